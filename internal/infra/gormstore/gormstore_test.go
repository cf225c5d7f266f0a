package gormstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"subscription-backend/database"
	"subscription-backend/internal/store"
	"subscription-backend/internal/store/storetest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), store.ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), store.ErrDuplicate)
	assert.ErrorIs(t, translate(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})), store.ErrDuplicate)

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
}

// TestContract runs against a disposable database named by TEST_DATABASE_URL.
func TestContract(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	storetest.Run(t, func(t *testing.T) *store.Store {
		require.NoError(t, db.Migrator().DropTable("payments", "subscriptions", "plans", "users"))
		require.NoError(t, database.Migrate(ctx, db))
		return New(db)
	})
}
