package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	adminapi "subscription-backend/internal/api/admin"
	authapi "subscription-backend/internal/api/auth"
	"subscription-backend/internal/api/billing"
	"subscription-backend/internal/api/plans"
	stripewebhooks "subscription-backend/internal/api/stripewebhook"
	usersapi "subscription-backend/internal/api/users"
	routes "subscription-backend/internal/app/http"
	"subscription-backend/internal/app/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApplication(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           a.router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("http server listening", "addr", srv.Addr, "store", cfg.StoreDriver, "gateway", cfg.Gateway.Provider)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables (postgres) or indexes (mongo)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newStoreApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		if err := a.migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("migration complete", "store", cfg.StoreDriver)
		return nil
	},
}

var seedPlansCmd = &cobra.Command{
	Use:   "seed-plans",
	Short: "Create the default monthly, quarterly and annual plans when missing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newStoreApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		created, err := a.catalog.SeedDefaults(cmd.Context())
		if err != nil {
			return err
		}
		log.Info("plans seeded", "created", len(created))
		return nil
	},
}

func (a *application) router() *gin.Engine {
	if !a.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(a.log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigin,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	health := map[string]func(context.Context) error{}
	if a.store.Ping != nil {
		health["store"] = a.store.Ping
	}
	if a.redis != nil {
		health["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}

	deps := routes.Deps{
		Auth:         authapi.NewHandler(a.store.Users, a.cfg),
		Users:        usersapi.NewHandler(a.store.Users, a.engine),
		Plans:        plans.NewHandler(a.catalog),
		Admin:        adminapi.NewHandler(a.catalog),
		Billing:      billing.NewHandler(a.engine, a.store.Payments, a.cfg.Gateway.WebhookSecret),
		JWTSecret:    []byte(a.cfg.JWTSecret),
		Subscription: a.engine,
		Health:       health,
	}
	if a.stripe != nil {
		deps.Stripe = stripewebhooks.NewHandler(a.stripe, a.engine)
	}

	routes.RegisterRoutes(r, deps)
	return r
}
