// internal/server/router.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/unclebandit/helpflow-backend/internal/controller"
	"github.com/unclebandit/helpflow-backend/internal/logging"
	"github.com/unclebandit/helpflow-backend/internal/metrics"
	"github.com/unclebandit/helpflow-backend/internal/middleware"
)

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps is everything the router needs. Verifier and RateLimiter are optional.
type Deps struct {
	DB Pinger

	ClerkWebhook  http.Handler
	StripeWebhook http.Handler

	Billing  *controller.BillingController
	Messages *controller.MessageController
	Profiles *controller.ProfileController

	Verifier    *middleware.Verifier
	RateLimiter *middleware.RateLimiter
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", healthHandler(d.DB))
	r.Handle("/metrics", metrics.Handler())

	// Webhooks authenticate by signature.
	r.Post("/api/clerk/webhook", d.ClerkWebhook.ServeHTTP)
	r.Post("/api/stripe/webhook", d.StripeWebhook.ServeHTTP)

	r.Group(func(r chi.Router) {
		if d.Verifier != nil {
			r.Use(middleware.Authenticate(d.Verifier))
		} else {
			log.Warn().Msg("CLERK_JWKS_URL not set, user routes are unauthenticated")
		}

		r.Post("/api/stripe/create-checkout-session", d.Billing.CreateCheckoutSession)
		r.Post("/api/stripe/customer-portal", d.Billing.CreatePortalSession)

		r.Group(func(r chi.Router) {
			if d.RateLimiter != nil {
				r.Use(d.RateLimiter.Handler)
			}
			r.Post("/api/ai/generate-message", d.Messages.GenerateMessage)
		})

		r.Get("/api/messages", d.Messages.ListMessages)
		r.Get("/api/messages/{id}", d.Messages.GetMessage)
		r.Get("/api/profiles/{clerkUserId}", d.Profiles.GetProfile)
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	}
}
