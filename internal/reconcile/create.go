package reconcile

import (
	"context"
	"errors"
	"time"

	"subscription-backend/internal/apperr"
	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/gateway"
	"subscription-backend/internal/store"

	"github.com/google/uuid"
)

const rollbackTimeout = 5 * time.Second

// Create starts a subscription for userID on the given plan category and requests
// its payment. An existing pending subscription is first reconciled against the
// gateway: if it was paid meanwhile it is returned as is, otherwise it is superseded.
func (e *Engine) Create(ctx context.Context, userID uuid.UUID, category string) (*Result, error) {
	cat, ok := plans.ParseCategory(category)
	if !ok {
		return nil, apperr.Validation("invalid plan: choose monthly, quarterly or annual")
	}
	plan, err := e.plans.GetByCategory(ctx, cat)
	if err != nil {
		return nil, err
	}

	release, err := e.locker.Lock(ctx, userID.String())
	if err != nil {
		return nil, apperr.Internal(err, "acquire subscription lock")
	}
	defer release()

	existing, err := e.subs.FindOpenByUser(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, internal(err, "load current subscription")
	default:
		res, err := e.resolveOpen(ctx, existing)
		if err != nil || res != nil {
			return res, err
		}
	}

	return e.createNew(ctx, userID, plan)
}

// resolveOpen clears the way for a new subscription. It returns a non-nil result
// when the existing subscription should be returned instead.
func (e *Engine) resolveOpen(ctx context.Context, existing *subscriptions.Subscription) (*Result, error) {
	now := e.now()

	if existing.Status == subscriptions.StatusActive {
		if existing.IsValid(now) {
			return nil, apperr.Conflict("user already has an active subscription")
		}
		s, _, err := e.mutate(ctx, existing.ID, "create", func(s *subscriptions.Subscription, now time.Time) subscriptions.Transition {
			return s.Expire(now)
		})
		if err != nil {
			return nil, internal(err, "expire subscription")
		}
		if s.Status.Open() {
			return nil, apperr.Conflict("user already has an active subscription")
		}
		return nil, nil
	}

	reported := e.pollPending(ctx, existing)
	if reported == billing.PaymentPaid {
		s, _, err := e.mutate(ctx, existing.ID, "create", func(s *subscriptions.Subscription, now time.Time) subscriptions.Transition {
			return s.ApplyPaymentStatus(billing.PaymentPaid, now)
		})
		if err != nil {
			return nil, internal(err, "activate subscription")
		}
		e.mirrorStatus(ctx, s, nil)
		if s.Status == subscriptions.StatusActive {
			return e.view(s, e.planFor(ctx, s), nil), nil
		}
		return nil, nil
	}

	s, _, err := e.mutate(ctx, existing.ID, "create", func(s *subscriptions.Subscription, now time.Time) subscriptions.Transition {
		tr := s.Begin()
		if reported != "" {
			tr = tr.Then(s.ApplyPaymentStatus(reported, now))
		}
		return tr.Then(s.Supersede(now))
	})
	if err != nil {
		return nil, internal(err, "supersede pending subscription")
	}
	if s.Status == subscriptions.StatusActive {
		// A webhook activated it while we were asking the gateway.
		return e.view(s, e.planFor(ctx, s), nil), nil
	}
	e.log.Info("pending subscription superseded", "subscription_id", s.ID, "user_id", s.UserID, "payment_status", s.PaymentStatus)
	e.mirrorStatus(ctx, s, nil)
	return nil, nil
}

// pollPending asks the gateway for the payment of a pending subscription. An empty
// status means nothing usable was learned and the subscription is superseded anyway.
func (e *Engine) pollPending(ctx context.Context, s *subscriptions.Subscription) billing.PaymentStatus {
	if s.PaymentID == "" {
		return ""
	}
	p, err := e.gateway.GetPayment(ctx, s.PaymentID)
	if err != nil {
		e.log.Warn("could not check pending payment, superseding",
			"subscription_id", s.ID, "payment_id", s.PaymentID, "error", err)
		return ""
	}
	return p.Status
}

func (e *Engine) createNew(ctx context.Context, userID uuid.UUID, plan *plans.Plan) (*Result, error) {
	sub := subscriptions.New(userID, plan.Category, e.now())
	if err := e.subs.Create(ctx, sub); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("user already has an open subscription")
		}
		return nil, internal(err, "create subscription")
	}

	payment, err := e.gateway.CreatePayment(ctx, gateway.CreatePaymentRequest{
		Amount:      plan.Price,
		Method:      e.cfg.PaymentMethod,
		Reference:   sub.PaymentReference,
		Description: "Subscrição " + plan.Title,
		ReturnURL:   e.cfg.ReturnURL,
		CallbackURL: e.cfg.CallbackURL,
	})
	if err != nil {
		e.rollback(ctx, sub, err)
		return nil, gatewayError(err)
	}

	s, _, err := e.mutate(ctx, sub.ID, "create", func(s *subscriptions.Subscription, now time.Time) subscriptions.Transition {
		tr := s.AttachPayment(payment.ID, payment.CheckoutURL, now)
		if payment.Status != "" && payment.Status != billing.PaymentPending {
			tr = tr.Then(s.ApplyPaymentStatus(payment.Status, now))
		}
		return tr
	})
	if err != nil {
		// The gateway payment exists, so the record stays; a webhook can still complete it.
		return nil, internal(err, "store payment details")
	}

	e.log.Info("subscription created",
		"subscription_id", s.ID,
		"user_id", s.UserID,
		"plan", s.Plan,
		"reference", s.PaymentReference,
		"payment_id", payment.ID,
	)

	summary := summaryFrom(s, payment, plan.Price)
	e.mirrorCreate(ctx, s, plan, summary)

	res := e.view(s, plan, summary)
	res.Created = true
	return res, nil
}

// rollback removes a subscription whose payment could not be created. It runs on a
// context detached from the request so a client disconnect cannot leave it behind.
func (e *Engine) rollback(ctx context.Context, sub *subscriptions.Subscription, cause error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if err := e.subs.Delete(rctx, sub.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		e.log.Error("rollback of subscription failed",
			"subscription_id", sub.ID, "reference", sub.PaymentReference, "error", err, "cause", cause)
		return
	}
	e.log.Warn("subscription rolled back after payment creation failed",
		"subscription_id", sub.ID, "reference", sub.PaymentReference, "cause", cause)
}
