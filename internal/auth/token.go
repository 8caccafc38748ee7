package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ms-engagement/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// Claims carried by capability tokens issued at identification.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 capability tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a signed token naming the attendee and their role.
func (i *Issuer) Issue(attendee models.Attendee) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("token secret not configured")
	}
	now := i.now()
	claims := Claims{
		Role: attendee.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   attendee.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks signature, expiry and issuer and returns the operator.
func (i *Issuer) Verify(_ context.Context, raw string) (Operator, error) {
	if raw == "" {
		return Operator{}, errors.New("empty token")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Operator{}, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.Subject == "" {
		return Operator{}, errors.New("subject claim not found in token")
	}
	if !claims.Role.Valid() {
		return Operator{}, fmt.Errorf("unknown role %q in token", claims.Role)
	}

	return Operator{AttendeeID: claims.Subject, Role: claims.Role}, nil
}
