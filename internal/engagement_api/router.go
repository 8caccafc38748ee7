package engagement_api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ms-engagement/internal/auth"
	"ms-engagement/internal/logger"
	"ms-engagement/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts every engagement route. verifier authenticates the bearer
// token of everything outside the public group.
func NewRouter(h *Handler, verifier auth.Verifier, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(RequestLogger(h.Logger))

	r.Route("/api", func(r chi.Router) {
		// --- Public Routes ---
		r.Post("/identify", h.Identify)
		r.Get("/game", h.GetGame)
		r.Get("/leaderboard", h.GetLeaderboard)

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier))

			r.Get("/me", h.Me)
			r.Get("/me/ticket.png", h.MyTicket)
			r.Post("/scan", h.Scan)

			r.Route("/staff", func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleStaff))
				r.Post("/checkin/{attendeeId}", h.CheckIn)
				r.Put("/attendees/{id}/checked-in", h.SetCheckedIn)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleStaff))
				r.Get("/attendees", h.ListAttendees)
				r.Get("/attendees.csv", h.ExportAttendees)
				r.Get("/summary", h.Summary)
				r.Get("/bonus-codes/{code}/qr.png", h.BonusQR)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(models.RoleSuperAdmin))
					r.Post("/attendees/{id}/points", h.AddPoints)
					r.Put("/game", h.ToggleGame)
				})
			})

			r.Route("/raffle/sessions", func(r chi.Router) {
				r.With(auth.RequireRole(models.RoleSuperAdmin)).Post("/", h.StartRaffle)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.ViewRaffle)
					r.Delete("/", h.CloseRaffle)
					r.Post("/draws", h.DrawWinner)
					r.Get("/events", h.RaffleEvents)
					r.Get("/ws", h.RaffleSocket)
				})
			})
		})
	})

	return r
}

// RequestLogger writes one API line per request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), fmt.Sprintf("%dms", time.Since(start).Milliseconds()))
		})
	}
}
