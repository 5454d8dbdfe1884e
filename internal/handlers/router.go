package handlers

import (
	"context"
	"net/http"
	"time"

	"swipe-match-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router bundles everything the HTTP routes need
type Router struct {
	Users     *UserHandler
	Partners  *PartnerHandler
	Cards     *CardHandler
	Images    *ImageHandler
	WebSocket *WebSocketHandler
	Validator middleware.TokenValidator
	Store     Pinger
}

// Handler builds the chi router
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signin", rt.Users.SignIn)
		r.Post("/admin/session", rt.Users.AdminSession)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.Validator))

			r.Get("/me", rt.Users.Me)
			r.Put("/me", rt.Users.UpdateMe)

			r.Get("/partners", rt.Partners.List)
			r.Post("/partners", rt.Partners.SendRequest)
			r.Delete("/partners/{partner_id}", rt.Partners.Remove)
			r.Post("/partners/{partner_id}/accept", rt.Partners.Accept)
			r.Post("/partners/{partner_id}/reject", rt.Partners.Reject)
			r.Get("/partners/{partner_id}/matches", rt.Partners.Matches)
			r.Get("/partners/{partner_id}/deck", rt.Partners.Deck)
			r.Post("/partners/{partner_id}/viewed", rt.Partners.MarkViewed)

			r.Get("/cards", rt.Cards.List)
			r.Post("/cards/{card_id}/like", rt.Cards.Like)
			r.Post("/cards/{card_id}/highlight", rt.Cards.Highlight)

			if rt.Images != nil {
				r.Post("/images", rt.Images.Upload)
				r.Post("/images/presign", rt.Images.Presign)
			}

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Post("/cards", rt.Cards.Create)
				r.Put("/cards/{card_id}", rt.Cards.Update)
				r.Delete("/cards/{card_id}", rt.Cards.Delete)
				r.Post("/reset", rt.Cards.Reset)
				r.Post("/reconcile", rt.Partners.Reconcile)
			})
		})
	})

	if rt.WebSocket != nil {
		r.Get("/ws", rt.WebSocket.HandleWebSocket)
	}
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", rt.healthz)

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := rt.Store.Ping(ctx); err != nil {
		respondError(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
