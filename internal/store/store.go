// Package store declares the persistence contracts used by the services.
// Implementations live in memstore, infra/gormstore and infra/mongostore.
package store

import (
	"context"
	"errors"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/domain/users"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint such as the open-subscription
	// key, the payment reference or the user email would be violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict means the row changed since it was read.
	ErrVersionConflict = errors.New("version conflict")
)

type SubscriptionStore interface {
	Create(ctx context.Context, s *subscriptions.Subscription) error
	Get(ctx context.Context, id uuid.UUID) (*subscriptions.Subscription, error)
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*subscriptions.Subscription, error)
	FindByReference(ctx context.Context, reference string) (*subscriptions.Subscription, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*subscriptions.Subscription, error)
	// Update writes s if its Version still matches the stored one and bumps Version on success.
	Update(ctx context.Context, s *subscriptions.Subscription) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PlanStore interface {
	List(ctx context.Context, activeOnly bool) ([]plans.Plan, error)
	Get(ctx context.Context, id uuid.UUID) (*plans.Plan, error)
	FindActiveByCategory(ctx context.Context, category plans.Category) (*plans.Plan, error)
	Create(ctx context.Context, p *plans.Plan) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*plans.Plan, error)
}

type PaymentStore interface {
	// Save inserts the payment or overwrites the one with the same reference.
	Save(ctx context.Context, p *billing.Payment) error
	FindByReference(ctx context.Context, reference string) (*billing.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]billing.Payment, error)
}

type UserStore interface {
	Create(ctx context.Context, u *users.User) error
	Get(ctx context.Context, id uuid.UUID) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

// Store bundles every repository a driver provides.
type Store struct {
	Subscriptions SubscriptionStore
	Plans         PlanStore
	Payments      PaymentStore
	Users         UserStore

	// Ping and Close are optional hooks for health checks and shutdown.
	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}
