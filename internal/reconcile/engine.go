// Package reconcile keeps local subscriptions in step with the payment gateway.
// Creation, client polling and gateway webhooks may overlap arbitrarily; every
// write goes through a version-checked read-modify-write so the transition rule
// is re-evaluated against the latest state.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"subscription-backend/internal/apperr"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/gateway"
	"subscription-backend/internal/infra/lock"
	"subscription-backend/internal/store"

	"github.com/google/uuid"
)

// PlanLookup resolves the active plan of a category.
type PlanLookup interface {
	GetByCategory(ctx context.Context, category plans.Category) (*plans.Plan, error)
}

// Config carries the URLs handed to the gateway for every new payment.
type Config struct {
	CallbackURL   string
	ReturnURL     string
	PaymentMethod string
}

type Engine struct {
	subs     store.SubscriptionStore
	payments store.PaymentStore
	plans    PlanLookup
	gateway  gateway.Gateway
	locker   lock.Locker
	cfg      Config

	log        *slog.Logger
	now        func() time.Time
	maxRetries int
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMaxRetries bounds how often a write is retried after a version conflict.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// New builds an engine. payments may be nil, in which case no local payment mirror is kept.
func New(subs store.SubscriptionStore, payments store.PaymentStore, pl PlanLookup, gw gateway.Gateway, locker lock.Locker, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		subs:       subs,
		payments:   payments,
		plans:      pl,
		gateway:    gw,
		locker:     locker,
		cfg:        cfg,
		log:        slog.Default(),
		now:        time.Now,
		maxRetries: 5,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.locker == nil {
		e.locker = lock.NewLocal()
	}
	return e
}

var errRetriesExhausted = errors.New("too many concurrent updates")

type mutation func(s *subscriptions.Subscription, now time.Time) subscriptions.Transition

// mutate re-reads the subscription, applies fn and writes it back with a version
// check, retrying on conflict. No write happens when fn reports no change.
func (e *Engine) mutate(ctx context.Context, id uuid.UUID, source string, fn mutation) (*subscriptions.Subscription, subscriptions.Transition, error) {
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		s, err := e.subs.Get(ctx, id)
		if err != nil {
			return nil, subscriptions.Transition{}, err
		}

		tr := fn(s, e.now())
		if !tr.Changed() {
			return s, tr, nil
		}

		err = e.subs.Update(ctx, s)
		if errors.Is(err, store.ErrVersionConflict) {
			e.log.Debug("subscription changed concurrently, retrying",
				"subscription_id", id, "source", source, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, tr, err
		}

		e.logTransition(s, tr, source)
		return s, tr, nil
	}
	return nil, subscriptions.Transition{}, errRetriesExhausted
}

func (e *Engine) logTransition(s *subscriptions.Subscription, tr subscriptions.Transition, source string) {
	attrs := []any{
		"subscription_id", s.ID,
		"user_id", s.UserID,
		"from", tr.From,
		"to", tr.To,
		"payment_status", tr.PaymentAfter,
		"source", source,
	}
	if tr.StatusChanged() {
		e.log.Info("subscription transition", attrs...)
		return
	}
	e.log.Debug("subscription updated", attrs...)
}

// internal wraps unexpected store failures at the engine boundary.
func internal(err error, msg string) error {
	if errors.Is(err, errRetriesExhausted) {
		return apperr.Internal(err, "subscription is being updated concurrently, try again")
	}
	return apperr.Internal(err, "%s", msg)
}

// gatewayError keeps the gateway's own message for rejections.
func gatewayError(err error) error {
	if msg, ok := gateway.RejectionMessage(err); ok {
		return apperr.Gateway(err, "%s", msg)
	}
	return apperr.GatewayUnavailable(err, "payment gateway unavailable, try again later")
}

// load fetches a subscription and checks that requester owns it.
func (e *Engine) load(ctx context.Context, id, requester uuid.UUID) (*subscriptions.Subscription, error) {
	s, err := e.subs.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("subscription not found")
	}
	if err != nil {
		return nil, internal(err, "load subscription")
	}
	if s.UserID != requester {
		return nil, apperr.Forbidden("access to this subscription is not allowed")
	}
	return s, nil
}
