// Package catalog serves the plan catalog: the fixed set of billing periods and
// the priced plans offered for each.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"subscription-backend/internal/apperr"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/store"

	"github.com/google/uuid"
)

type Service struct {
	plans store.PlanStore
	log   *slog.Logger
	now   func() time.Time
}

func New(ps store.PlanStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{plans: ps, log: log, now: time.Now}
}

// ListActive returns active plans ordered monthly, quarterly, annual.
func (s *Service) ListActive(ctx context.Context) ([]plans.Plan, error) {
	return s.list(ctx, true)
}

// ListAll includes deactivated plans, for administrators.
func (s *Service) ListAll(ctx context.Context) ([]plans.Plan, error) {
	return s.list(ctx, false)
}

func (s *Service) list(ctx context.Context, activeOnly bool) ([]plans.Plan, error) {
	out, err := s.plans.List(ctx, activeOnly)
	if err != nil {
		return nil, apperr.Internal(err, "list plans")
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Category.Rank() < out[j].Category.Rank()
	})
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*plans.Plan, error) {
	p, err := s.plans.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("plan not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load plan")
	}
	return p, nil
}

// GetByCategory returns the active plan for category.
func (s *Service) GetByCategory(ctx context.Context, category plans.Category) (*plans.Plan, error) {
	if !category.Valid() {
		return nil, apperr.Validation("invalid plan: choose monthly, quarterly or annual")
	}
	p, err := s.plans.FindActiveByCategory(ctx, category)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("plan not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load plan")
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, attrs plans.Attributes) (*plans.Plan, error) {
	p, err := plans.New(attrs, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.plans.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err, "create plan")
	}
	s.log.Info("plan created", "plan_id", p.ID, "type", p.Category, "price", p.Price)
	return p, nil
}

// SetActive toggles a plan; plans are never deleted.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*plans.Plan, error) {
	p, err := s.plans.SetActive(ctx, id, active)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("plan not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "update plan")
	}
	s.log.Info("plan availability changed", "plan_id", id, "active", active)
	return p, nil
}

// SeedDefaults creates each default plan whose category has no active plan yet.
// It returns the plans it created.
func (s *Service) SeedDefaults(ctx context.Context) ([]plans.Plan, error) {
	var created []plans.Plan
	for _, attrs := range plans.Defaults() {
		category, _ := plans.ParseCategory(attrs.Category)
		_, err := s.plans.FindActiveByCategory(ctx, category)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return created, fmt.Errorf("check %s plan: %w", category, err)
		}

		p, err := s.Create(ctx, attrs)
		if err != nil {
			return created, fmt.Errorf("seed %s plan: %w", category, err)
		}
		created = append(created, *p)
	}
	return created, nil
}
