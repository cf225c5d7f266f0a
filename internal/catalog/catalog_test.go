package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"subscription-backend/internal/apperr"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/store/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	return New(memstore.New().Plans, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	created, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Len(t, created, 3)

	again, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	list, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []plans.Category{plans.Monthly, plans.Quarterly, plans.Annual},
		[]plans.Category{list[0].Category, list[1].Category, list[2].Category})
	assert.Equal(t, 500.0, list[0].Price)
}

func TestGetByCategory(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.GetByCategory(ctx, plans.Monthly)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.GetByCategory(ctx, plans.Category("weekly"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.SeedDefaults(ctx)
	require.NoError(t, err)
	p, err := svc.GetByCategory(ctx, plans.Annual)
	require.NoError(t, err)
	assert.Equal(t, 4800.0, p.Price)
}

func TestCreate_Rejects(t *testing.T) {
	svc := newService()
	_, err := svc.Create(context.Background(), plans.Attributes{
		Title: "Semanal", Description: "7 dias", Price: 100, Category: "weekly", Features: []string{"x"},
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Create(context.Background(), plans.Attributes{
		Title: "Mensal", Description: "30 dias", Price: 100, Category: "monthly",
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestSetActive(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)

	p, err := svc.SetActive(ctx, created[0].ID, false)
	require.NoError(t, err)
	assert.False(t, p.Active)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.SetActive(ctx, uuid.New(), true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
