package main

import (
	"context"
	"fmt"
	"log/slog"

	"subscription-backend/config"
	"subscription-backend/database"
	"subscription-backend/internal/catalog"
	"subscription-backend/internal/gateway"
	"subscription-backend/internal/infra/gormstore"
	"subscription-backend/internal/infra/lock"
	"subscription-backend/internal/infra/mongostore"
	"subscription-backend/internal/infra/paysuite"
	"subscription-backend/internal/infra/stripe"
	"subscription-backend/internal/reconcile"
	"subscription-backend/internal/store"
	"subscription-backend/internal/store/memstore"

	"github.com/redis/go-redis/v9"
)

const callbackPath = "/api/subscriptions/payment-callback"

// application holds every long-lived component; commands build only what they use.
type application struct {
	cfg *config.Config
	log *slog.Logger

	store   *store.Store
	migrate func(ctx context.Context) error
	redis   *redis.Client

	catalog *catalog.Service
	engine  *reconcile.Engine
	stripe  *stripe.Gateway
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := cfg.Logger()
	slog.SetDefault(log)
	return cfg, log, nil
}

// newStoreApp opens the configured store only.
func newStoreApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	a := &application{cfg: cfg, log: log}

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Open(ctx, cfg.DBURL, log)
		if err != nil {
			return nil, err
		}
		a.store = gormstore.New(db)
		a.migrate = func(ctx context.Context) error { return database.Migrate(ctx, db) }
	case config.StoreDriverMongo:
		client, err := mongostore.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		a.store = mongostore.New(client, db)
		a.migrate = func(ctx context.Context) error { return mongostore.EnsureIndexes(ctx, db) }
	case config.StoreDriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		a.store = memstore.New()
		a.migrate = func(context.Context) error { return nil }
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	a.catalog = catalog.New(a.store.Plans, log)
	return a, nil
}

// newApplication wires the full serving stack.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	a, err := newStoreApp(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := a.prepare(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		client, err := lock.Connect(ctx, cfg.RedisURL, cfg.RedisConnectTimeout)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.redis = client
		locker = lock.NewRedis(client, cfg.LockTTL, log)
		log.Info("using redis subscription lock")
	}

	gw, err := a.newGateway()
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.engine = reconcile.New(a.store.Subscriptions, a.store.Payments, a.catalog, gw, locker, reconcile.Config{
		CallbackURL:   cfg.Gateway.CallbackBaseURL + callbackPath,
		ReturnURL:     cfg.Gateway.ReturnBaseURL + "/subscription/success",
		PaymentMethod: cfg.Gateway.PaymentMethod,
	}, reconcile.WithLogger(log))
	return a, nil
}

// prepare readies the store for serving. Mongo indexes carry the one-open-subscription
// rule and creating them is idempotent, so they are ensured on every start. Postgres
// schema changes stay behind the migrate command.
func (a *application) prepare(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case config.StoreDriverMemory:
		if err := a.migrate(ctx); err != nil {
			return err
		}
		_, err := a.catalog.SeedDefaults(ctx)
		return err
	case config.StoreDriverMongo:
		if err := a.migrate(ctx); err != nil {
			return fmt.Errorf("ensure mongo indexes: %w", err)
		}
		a.log.Info("mongo indexes ensured")
	}
	return nil
}

func (a *application) newGateway() (gateway.Gateway, error) {
	g := a.cfg.Gateway

	var raw gateway.Gateway
	switch g.Provider {
	case config.GatewayPaySuite:
		raw = paysuite.New(paysuite.Config{BaseURL: g.BaseURL, AuthToken: g.AuthToken})
	case config.GatewayStripe:
		a.stripe = stripe.New(stripe.Config{
			SecretKey:     g.StripeSecretKey,
			WebhookSecret: g.StripeWebhookSecret,
			Currency:      g.StripeCurrency,
		})
		raw = a.stripe
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", g.Provider)
	}

	return gateway.NewResilient(raw, gateway.ResilienceConfig{
		Name:             g.Provider,
		Timeout:          g.Timeout,
		FailureThreshold: g.BreakerFailures,
		OpenFor:          g.BreakerOpenFor,
	}, a.log), nil
}

func (a *application) close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("closing redis", "error", err)
		}
	}
	if a.store != nil && a.store.Close != nil {
		if err := a.store.Close(ctx); err != nil {
			a.log.Warn("closing store", "error", err)
		}
	}
}
