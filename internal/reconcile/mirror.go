package reconcile

import (
	"context"
	"errors"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/gateway"
	"subscription-backend/internal/store"
)

// The payment mirror is best effort: failures are logged and never change the
// outcome of the operation that triggered them.

func (e *Engine) mirrorCreate(ctx context.Context, s *subscriptions.Subscription, plan *plans.Plan, summary *PaymentSummary) {
	if e.payments == nil {
		return
	}
	now := e.now()
	p := &billing.Payment{
		GatewayID:      summary.ID,
		UserID:         s.UserID,
		SubscriptionID: s.ID,
		Amount:         plan.Price,
		Method:         e.cfg.PaymentMethod,
		Reference:      s.PaymentReference,
		Description:    "Subscrição " + plan.Title,
		Status:         summary.Status,
		CheckoutURL:    summary.CheckoutURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.payments.Save(ctx, p); err != nil {
		e.log.Warn("payment mirror write failed", "reference", s.PaymentReference, "error", err)
	}
}

// mirrorStatus copies the subscription's payment status, and whatever the gateway
// reported in gp, onto the mirrored payment.
func (e *Engine) mirrorStatus(ctx context.Context, s *subscriptions.Subscription, gp *gateway.Payment) {
	if e.payments == nil || s.PaymentID == "" {
		return
	}
	now := e.now()

	p, err := e.payments.FindByReference(ctx, s.PaymentReference)
	if errors.Is(err, store.ErrNotFound) {
		p = &billing.Payment{
			GatewayID:      s.PaymentID,
			UserID:         s.UserID,
			SubscriptionID: s.ID,
			Reference:      s.PaymentReference,
			CheckoutURL:    s.CheckoutURL,
			CreatedAt:      now,
		}
	} else if err != nil {
		e.log.Warn("payment mirror read failed", "reference", s.PaymentReference, "error", err)
		return
	}

	p.Status = s.PaymentStatus
	if p.GatewayID == "" {
		p.GatewayID = s.PaymentID
	}
	if gp != nil {
		if gp.TransactionID != "" {
			tx := gp.TransactionID
			p.TransactionID = &tx
		}
		if gp.Amount > 0 && p.Amount == 0 {
			p.Amount = gp.Amount
		}
		if gp.PaidAt != nil {
			p.PaidAt = gp.PaidAt
		}
	}
	if p.PaidAt == nil && s.PaymentStatus == billing.PaymentPaid {
		p.PaidAt = s.PaidAt
	}
	p.UpdatedAt = now

	if err := e.payments.Save(ctx, p); err != nil {
		e.log.Warn("payment mirror write failed", "reference", s.PaymentReference, "error", err)
	}
}
