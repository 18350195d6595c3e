// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/helpflow-backend/internal/billing"
	"github.com/unclebandit/helpflow-backend/internal/config"
	"github.com/unclebandit/helpflow-backend/internal/controller"
	"github.com/unclebandit/helpflow-backend/internal/db"
	"github.com/unclebandit/helpflow-backend/internal/delivery"
	"github.com/unclebandit/helpflow-backend/internal/generator"
	"github.com/unclebandit/helpflow-backend/internal/handler"
	"github.com/unclebandit/helpflow-backend/internal/logging"
	"github.com/unclebandit/helpflow-backend/internal/middleware"
	"github.com/unclebandit/helpflow-backend/internal/queue"
	"github.com/unclebandit/helpflow-backend/internal/repository"
	"github.com/unclebandit/helpflow-backend/internal/server"
	"github.com/unclebandit/helpflow-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.Config{Component: "server"})
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Format: cfg.Log.Format, Level: cfg.Log.Level, Component: "server"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	conn, err := db.Open(ctx, cfg.DB.URL, db.Options{
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.DB.AutoMigrate {
		if err := migrate(conn); err != nil {
			return err
		}
	}

	events, closeEvents, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer closeEvents()

	profileRepo := &repository.ProfileRepository{DB: conn}
	messageRepo := &repository.DemoMessageRepository{DB: conn}

	if cfg.Stripe.SecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, billing endpoints will fail")
	}
	if cfg.OpenAI.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, message generation will fail")
	}
	if cfg.Delivery.WebhookURL == "" {
		log.Info().Msg("N8N_WEBHOOK_URL not set, generated messages are marked sent without delivery")
	}

	billingService := &service.BillingService{
		Profiles:     profileRepo,
		Gateway:      billing.NewStripeGateway(cfg.Stripe.SecretKey, nil),
		Events:       events,
		PriceID:      cfg.Stripe.PriceID,
		DashboardURL: cfg.DashboardURL(),
	}
	profileService := &service.ProfileService{Profiles: profileRepo, Messages: messageRepo, Events: events}
	messageService := &service.MessageService{
		Messages: messageRepo,
		Profiles: profileRepo,
		Generator: generator.NewOpenAIClient(generator.Config{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     cfg.OpenAI.Timeout,
		}),
		Sender: delivery.NewWebhookSender(cfg.Delivery.WebhookURL, nil),
		Events: events,
	}

	deps := server.Deps{
		DB:            conn,
		ClerkWebhook:  handler.NewClerkWebhookHandler(cfg.Clerk.WebhookSecret, &service.IdentityService{Profiles: profileRepo, Events: events}),
		StripeWebhook: handler.NewStripeWebhookHandler(cfg.Stripe.WebhookSecret, billingService),
		Billing:       &controller.BillingController{BillingService: billingService},
		Messages:      &controller.MessageController{MessageService: messageService, ProfileService: profileService},
		Profiles:      &controller.ProfileController{ProfileService: profileService},
	}
	if cfg.Limits.GeneratePerMinute > 0 {
		deps.RateLimiter = middleware.NewRateLimiter(cfg.Limits.GeneratePerMinute, cfg.Limits.GenerateBurst)
	}
	if cfg.Clerk.JWKSURL != "" {
		verifier, err := middleware.NewVerifier(ctx, cfg.Clerk.JWKSURL, cfg.Clerk.Issuer)
		if err != nil {
			return err
		}
		deps.Verifier = verifier
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	if deps.RateLimiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if n := deps.RateLimiter.Prune(10 * time.Minute); n > 0 {
						log.Debug().Int("removed", n).Msg("pruned idle rate limiters")
					}
				}
			}
		})
	}
	return g.Wait()
}

func migrate(conn *sqlx.DB) error {
	m, err := db.NewMigrator(conn.DB)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		return err
	}
	version, _, err := m.Version()
	if err != nil {
		return err
	}
	log.Info().Uint("version", version).Msg("database migrated")
	return nil
}

// newPublisher returns the AMQP publisher when a broker is configured, otherwise an
// in-process queue that logs every event.
func newPublisher(cfg *config.Config) (queue.Publisher, func(), error) {
	if cfg.Events.AMQPURL != "" {
		p, err := queue.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("exchange", cfg.Events.Exchange).Msg("publishing lifecycle events to AMQP")
		return p, func() { p.Close() }, nil
	}
	q := queue.NewInMemoryQueue()
	if err := q.Subscribe(queue.AllTopics, queue.LogSubscriber); err != nil {
		return nil, nil, err
	}
	return q, func() {}, nil
}
