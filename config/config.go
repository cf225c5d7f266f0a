package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"

	GatewayPaySuite = "paysuite"
	GatewayStripe   = "stripe"
)

var logOutput io.Writer = os.Stderr

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Port       string   `env:"PORT" envDefault:"3000"`
	AppEnv     string   `env:"APP_ENV" envDefault:"production"`
	LogLevel   string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string   `env:"LOG_FORMAT"`
	CORSOrigin []string `env:"CORS_ORIGIN" envSeparator:"," envDefault:"http://localhost:3000"`

	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
	AdminEmails []string      `env:"ADMIN_EMAILS" envSeparator:","`

	StoreDriver string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DBURL       string        `env:"DB_URL"`
	RedisURL    string        `env:"REDIS_URL"`
	LockTTL     time.Duration `env:"LOCK_TTL" envDefault:"30s"`

	// RedisConnectTimeout bounds startup when REDIS_URL points at an unreachable server.
	RedisConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`

	Mongo   MongoConfig
	Gateway GatewayConfig
}

// MongoConfig is used when STORE_DRIVER=mongo.
type MongoConfig struct {
	URL            string        `env:"MONGODB_URL"`
	Database       string        `env:"MONGODB_DATABASE" envDefault:"subscriptions"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize    uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	RetryAttempts  int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

// GatewayConfig holds everything the payment gateway adapters need.
type GatewayConfig struct {
	Provider        string        `env:"GATEWAY_PROVIDER" envDefault:"paysuite"`
	BaseURL         string        `env:"PAYSUITE_BASE_URL" envDefault:"https://paysuite.tech/api/v1"`
	AuthToken       string        `env:"PAYSUITE_TOKEN"`
	WebhookSecret   string        `env:"PAYSUITE_WEBHOOK_SECRET"`
	CallbackBaseURL string        `env:"API_URL" envDefault:"http://localhost:3000"`
	ReturnBaseURL   string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	PaymentMethod   string        `env:"PAYMENT_METHOD"`
	Timeout         time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
	BreakerFailures uint32        `env:"GATEWAY_BREAKER_FAILURES" envDefault:"5"`
	BreakerOpenFor  time.Duration `env:"GATEWAY_BREAKER_OPEN_FOR" envDefault:"30s"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	StripeCurrency      string `env:"STRIPE_CURRENCY" envDefault:"mzn"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field consistency that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBURL == "" {
			errs = append(errs, errors.New("DB_URL is required when STORE_DRIVER=postgres"))
		}
	case StoreDriverMongo:
		if c.Mongo.URL == "" {
			errs = append(errs, errors.New("MONGODB_URL is required when STORE_DRIVER=mongo"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.Gateway.Provider {
	case GatewayPaySuite:
		if c.Gateway.AuthToken == "" {
			errs = append(errs, errors.New("PAYSUITE_TOKEN is required when GATEWAY_PROVIDER=paysuite"))
		}
	case GatewayStripe:
		if c.Gateway.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required when GATEWAY_PROVIDER=stripe"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GATEWAY_PROVIDER %q", c.Gateway.Provider))
	}

	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development") || strings.EqualFold(c.AppEnv, "dev")
}

// IsAdminEmail reports whether the email should be promoted to the admin role on registration.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	format := c.LogFormat
	if format == "" {
		format = "json"
		if c.IsDevelopment() {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(logOutput, opts))
	}
	return slog.New(slog.NewJSONHandler(logOutput, opts))
}
