package reconcile

import (
	"context"
	"time"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/gateway"
)

// PaymentSummary is the payment part of a subscription response.
type PaymentSummary struct {
	ID            string                `json:"id,omitempty"`
	Amount        float64               `json:"amount"`
	Reference     string                `json:"reference"`
	CheckoutURL   string                `json:"checkoutUrl,omitempty"`
	Status        billing.PaymentStatus `json:"status"`
	TransactionID string                `json:"transactionId,omitempty"`
	PaidAt        *time.Time            `json:"paidAt,omitempty"`
}

// Result is what every subscription operation returns.
type Result struct {
	Subscription    *subscriptions.Subscription `json:"subscription"`
	Payment         *PaymentSummary             `json:"payment,omitempty"`
	Plan            *plans.Plan                 `json:"planDetails,omitempty"`
	DaysRemaining   int                         `json:"daysRemaining"`
	IsValid         bool                        `json:"isValid"`
	EffectiveStatus subscriptions.Status        `json:"effectiveStatus"`

	// Created is false when creation short-circuited to an existing, already paid subscription.
	Created bool `json:"-"`
}

func (e *Engine) view(s *subscriptions.Subscription, plan *plans.Plan, payment *PaymentSummary) *Result {
	now := e.now()
	if payment == nil && s.PaymentID != "" {
		payment = &PaymentSummary{
			ID:          s.PaymentID,
			Reference:   s.PaymentReference,
			CheckoutURL: s.CheckoutURL,
			Status:      s.PaymentStatus,
			PaidAt:      s.PaidAt,
		}
		if plan != nil {
			payment.Amount = plan.Price
		}
	}
	return &Result{
		Subscription:    s,
		Payment:         payment,
		Plan:            plan,
		DaysRemaining:   s.DaysRemaining(now),
		IsValid:         s.IsValid(now),
		EffectiveStatus: s.EffectiveStatus(now),
	}
}

// planFor looks up plan details for display; a missing or deactivated plan is not an error.
func (e *Engine) planFor(ctx context.Context, s *subscriptions.Subscription) *plans.Plan {
	p, err := e.plans.GetByCategory(ctx, s.Plan)
	if err != nil {
		e.log.Debug("plan details unavailable", "plan", s.Plan, "error", err)
		return nil
	}
	return p
}

func summaryFrom(s *subscriptions.Subscription, p *gateway.Payment, amount float64) *PaymentSummary {
	if p.Amount > 0 {
		amount = p.Amount
	}
	status := p.Status
	if status == "" {
		status = s.PaymentStatus
	}
	return &PaymentSummary{
		ID:            p.ID,
		Amount:        amount,
		Reference:     s.PaymentReference,
		CheckoutURL:   firstNonEmpty(p.CheckoutURL, s.CheckoutURL),
		Status:        status,
		TransactionID: p.TransactionID,
		PaidAt:        firstTime(p.PaidAt, s.PaidAt),
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstTime(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}
