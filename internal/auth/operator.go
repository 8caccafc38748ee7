package auth

import (
	"context"

	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
)

// Operator is the verified identity behind a request. It is only ever built from
// a verified token, never from client-held flags.
type Operator struct {
	AttendeeID string
	Role       models.Role
}

func (o Operator) IsStaff() bool {
	return o.Role.IsStaff()
}

func (o Operator) IsSuperAdmin() bool {
	return o.Role == models.RoleSuperAdmin
}

var (
	ErrNotStaff      = rejection.Unauthorized("staff access required")
	ErrNotSuperAdmin = rejection.Unauthorized("super admin access required")
)

// IsAuthorizedOperator reports whether op holds at least the required role.
func IsAuthorizedOperator(op Operator, required models.Role) bool {
	if op.AttendeeID == "" {
		return false
	}
	switch required {
	case models.RoleSuperAdmin:
		return op.IsSuperAdmin()
	case models.RoleStaff:
		return op.IsStaff()
	default:
		return true
	}
}

func RequireStaff(op Operator) error {
	if !IsAuthorizedOperator(op, models.RoleStaff) {
		return ErrNotStaff
	}
	return nil
}

func RequireSuperAdmin(op Operator) error {
	if !IsAuthorizedOperator(op, models.RoleSuperAdmin) {
		return ErrNotSuperAdmin
	}
	return nil
}

type contextKey string

const operatorKey contextKey = "operator"

func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// OperatorFrom extracts the operator placed by Middleware.
func OperatorFrom(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey).(Operator)
	return op, ok
}
