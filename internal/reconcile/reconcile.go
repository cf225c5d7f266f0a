package reconcile

import (
	"context"
	"errors"
	"time"

	"subscription-backend/internal/apperr"
	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/gateway"
	"subscription-backend/internal/store"

	"github.com/google/uuid"
)

// ReconcileFromPoll pulls the live payment status for a subscription the requester owns
// and applies it. An unreachable gateway leaves local state untouched.
func (e *Engine) ReconcileFromPoll(ctx context.Context, id, requester uuid.UUID) (*Result, error) {
	s, err := e.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if s.PaymentID == "" {
		return nil, apperr.Precondition("no payment associated with this subscription")
	}

	p, err := e.gateway.GetPayment(ctx, s.PaymentID)
	if err != nil {
		e.log.Warn("payment status check failed", "subscription_id", s.ID, "payment_id", s.PaymentID, "error", err)
		return nil, gatewayError(err)
	}

	if p.Status == "" {
		e.log.Warn("gateway reported unknown payment status", "subscription_id", s.ID, "status", p.RawStatus)
	} else {
		s, _, err = e.mutate(ctx, s.ID, "poll", func(s *subscriptions.Subscription, now time.Time) subscriptions.Transition {
			return s.ApplyPaymentStatus(p.Status, now)
		})
		if err != nil {
			return nil, internal(err, "update subscription")
		}
		e.mirrorStatus(ctx, s, p)
	}

	plan := e.planFor(ctx, s)
	var amount float64
	if plan != nil {
		amount = plan.Price
	}
	return e.view(s, plan, summaryFrom(s, p, amount)), nil
}

// Webhook is the normalized content of a gateway notification.
type Webhook struct {
	Reference     string
	PaymentID     string
	Status        string
	TransactionID string
}

const (
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeIgnored   = "ignored"
	OutcomeNotFound  = "not_found"
)

// Ack tells the webhook endpoint what happened. Only internal failures are errors,
// so gateway retries never see a client error for an unknown reference.
type Ack struct {
	Outcome        string                `json:"outcome"`
	SubscriptionID uuid.UUID             `json:"subscriptionId,omitempty"`
	Status         subscriptions.Status  `json:"subscriptionStatus,omitempty"`
	PaymentStatus  billing.PaymentStatus `json:"paymentStatus,omitempty"`
}

// ApplyGatewayWebhook applies an at-least-once, possibly out-of-order gateway notification.
func (e *Engine) ApplyGatewayWebhook(ctx context.Context, in Webhook) (Ack, error) {
	reported, ok := billing.ParsePaymentStatus(in.Status)
	if !ok {
		e.log.Warn("webhook with unknown payment status ignored", "reference", in.Reference, "status", in.Status)
		return Ack{Outcome: OutcomeIgnored}, nil
	}

	s, err := e.findForWebhook(ctx, in)
	if errors.Is(err, store.ErrNotFound) {
		e.log.Warn("webhook for unknown subscription", "reference", in.Reference, "payment_id", in.PaymentID)
		return Ack{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Ack{}, internal(err, "load subscription")
	}

	s, tr, err := e.mutate(ctx, s.ID, "webhook", func(s *subscriptions.Subscription, now time.Time) subscriptions.Transition {
		return s.ApplyPaymentStatus(reported, now)
	})
	if errors.Is(err, store.ErrNotFound) {
		return Ack{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Ack{}, internal(err, "update subscription")
	}

	if reported == billing.PaymentPaid && s.Status != subscriptions.StatusActive {
		e.log.Warn("payment confirmed for a subscription that is no longer pending",
			"subscription_id", s.ID, "status", s.Status, "reference", s.PaymentReference)
	}

	var txPaidAt *time.Time
	if reported == billing.PaymentPaid {
		txPaidAt = s.PaidAt
	}
	e.mirrorStatus(ctx, s, &gateway.Payment{
		ID:            in.PaymentID,
		Status:        reported,
		TransactionID: in.TransactionID,
		PaidAt:        txPaidAt,
	})

	ack := Ack{Outcome: OutcomeUnchanged, SubscriptionID: s.ID, Status: s.Status, PaymentStatus: s.PaymentStatus}
	if tr.Changed() {
		ack.Outcome = OutcomeUpdated
	}
	return ack, nil
}

func (e *Engine) findForWebhook(ctx context.Context, in Webhook) (*subscriptions.Subscription, error) {
	if in.Reference != "" {
		s, err := e.subs.FindByReference(ctx, in.Reference)
		if err == nil || !errors.Is(err, store.ErrNotFound) || in.PaymentID == "" {
			return s, err
		}
	}
	return e.subs.FindByPaymentID(ctx, in.PaymentID)
}

// Renew extends a subscription the requester owns by one plan period, counted from
// its current end date, and marks it active.
func (e *Engine) Renew(ctx context.Context, id, requester uuid.UUID) (*Result, error) {
	s, err := e.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if !s.HasBeenPaid() {
		return nil, apperr.Precondition("subscription has never been paid and cannot be renewed")
	}

	release, err := e.locker.Lock(ctx, s.UserID.String())
	if err != nil {
		return nil, apperr.Internal(err, "acquire subscription lock")
	}
	defer release()

	s, _, err = e.mutate(ctx, id, "renew", func(s *subscriptions.Subscription, now time.Time) subscriptions.Transition {
		return s.Renew(s.Plan, now)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("user already has another open subscription")
	}
	if err != nil {
		return nil, internal(err, "renew subscription")
	}
	return e.view(s, e.planFor(ctx, s), nil), nil
}

// Current returns the user's open subscription with plan details.
func (e *Engine) Current(ctx context.Context, userID uuid.UUID) (*Result, error) {
	s, err := e.subs.FindOpenByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("no active subscription found")
	}
	if err != nil {
		return nil, internal(err, "load subscription")
	}
	return e.view(s, e.planFor(ctx, s), nil), nil
}

// Get returns one subscription the requester owns, without contacting the gateway.
func (e *Engine) Get(ctx context.Context, id, requester uuid.UUID) (*Result, error) {
	s, err := e.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	return e.view(s, e.planFor(ctx, s), nil), nil
}
