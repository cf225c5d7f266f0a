package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"subscription-backend/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPrepare_MemorySeedsPlans(t *testing.T) {
	ctx := context.Background()
	a, err := newStoreApp(ctx, &config.Config{StoreDriver: config.StoreDriverMemory}, discardLogger())
	require.NoError(t, err)

	require.NoError(t, a.prepare(ctx))
	active, err := a.catalog.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	require.NoError(t, a.prepare(ctx))
	active, err = a.catalog.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3, "seeding twice must not duplicate plans")
}

func TestPrepare_MongoEnsuresIndexes(t *testing.T) {
	calls := 0
	a := &application{
		cfg: &config.Config{StoreDriver: config.StoreDriverMongo},
		log: discardLogger(),
		migrate: func(context.Context) error {
			calls++
			return nil
		},
	}
	require.NoError(t, a.prepare(context.Background()))
	assert.Equal(t, 1, calls)

	a.migrate = func(context.Context) error { return errors.New("not primary") }
	err := a.prepare(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure mongo indexes")
}

func TestPrepare_PostgresLeavesSchemaToMigrate(t *testing.T) {
	a := &application{
		cfg: &config.Config{StoreDriver: config.StoreDriverPostgres},
		log: discardLogger(),
		migrate: func(context.Context) error {
			t.Fatal("migrate must not run on serve for postgres")
			return nil
		},
	}
	assert.NoError(t, a.prepare(context.Background()))
}
