package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PAYSUITE_TOKEN", "tok")
	t.Setenv("CORS_ORIGIN", "http://a.test,http://b.test")
	t.Setenv("GATEWAY_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigin)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, GatewayPaySuite, cfg.Gateway.Provider)
	assert.Equal(t, "subscriptions", cfg.Mongo.Database)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10*time.Second, cfg.RedisConnectTimeout)
}

// An empty secret would sign tokens with a zero-length key.
func TestLoad_EmptySecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PAYSUITE_TOKEN", "tok")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			StoreDriver: StoreDriverMemory,
			Gateway:     GatewayConfig{Provider: GatewayPaySuite, AuthToken: "tok", Timeout: time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "postgres without url", mutate: func(c *Config) { c.StoreDriver = StoreDriverPostgres }, want: "DB_URL"},
		{name: "mongo without url", mutate: func(c *Config) { c.StoreDriver = StoreDriverMongo }, want: "MONGODB_URL"},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, want: "STORE_DRIVER"},
		{name: "paysuite without token", mutate: func(c *Config) { c.Gateway.AuthToken = "" }, want: "PAYSUITE_TOKEN"},
		{name: "stripe without key", mutate: func(c *Config) { c.Gateway.Provider = GatewayStripe }, want: "STRIPE_SECRET_KEY"},
		{name: "zero timeout", mutate: func(c *Config) { c.Gateway.Timeout = 0 }, want: "GATEWAY_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIsAdminEmail(t *testing.T) {
	c := &Config{AdminEmails: []string{"Owner@Example.com ", "ops@example.com"}}

	assert.True(t, c.IsAdminEmail("owner@example.com"))
	assert.True(t, c.IsAdminEmail(" ops@example.com"))
	assert.False(t, c.IsAdminEmail("someone@example.com"))
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, (&Config{AppEnv: "development"}).IsDevelopment())
	assert.True(t, (&Config{AppEnv: "DEV"}).IsDevelopment())
	assert.False(t, (&Config{AppEnv: "production"}).IsDevelopment())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := logOutput
	logOutput = &buf
	t.Cleanup(func() { logOutput = prev })

	(&Config{LogLevel: "warn"}).Logger().Info("hidden")
	assert.Empty(t, buf.String())

	(&Config{LogLevel: "info"}).Logger().Info("shown", "k", "v")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "production logs are JSON")

	buf.Reset()
	(&Config{AppEnv: "development"}).Logger().Info("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}
