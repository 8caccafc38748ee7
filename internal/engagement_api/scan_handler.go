package engagement_api

import (
	"fmt"
	"net/http"

	"ms-engagement/internal/models"
)

// Scan records a scan by the token holder. The scanner is always the token
// subject, never a field of the body.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	op, err := operator(r)
	if err != nil {
		h.fail(w, "Scan", err)
		return
	}
	var req models.ScanRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, "Scan", err)
		return
	}

	outcome, err := h.Scans.RecordScan(r.Context(), op.AttendeeID, req.Code)
	if err != nil {
		h.fail(w, "Scan", err)
		return
	}

	message := fmt.Sprintf("+%d points", outcome.PointsAwarded)
	if outcome.TargetName != "" {
		message = fmt.Sprintf("Scanned %s: %s", outcome.TargetName, message)
	}
	h.ok(w, "Scan", message, outcome)
}
