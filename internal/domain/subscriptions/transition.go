package subscriptions

import (
	"time"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
)

// Transition describes what a mutation did to a subscription.
type Transition struct {
	From          Status
	To            Status
	PaymentBefore billing.PaymentStatus
	PaymentAfter  billing.PaymentStatus
	// Modified is set when any stored field changed, including ones outside the two statuses.
	Modified bool
}

// StatusChanged reports whether the lifecycle status moved.
func (t Transition) StatusChanged() bool { return t.From != t.To }

// Changed reports whether anything worth persisting moved.
func (t Transition) Changed() bool {
	return t.Modified || t.StatusChanged() || t.PaymentBefore != t.PaymentAfter
}

// Then folds a later transition on the same subscription into t.
func (t Transition) Then(next Transition) Transition {
	return Transition{
		From:          t.From,
		To:            next.To,
		PaymentBefore: t.PaymentBefore,
		PaymentAfter:  next.PaymentAfter,
		Modified:      t.Modified || next.Modified,
	}
}

// Begin returns the no-op transition for the current state, a starting point for Then.
func (s *Subscription) Begin() Transition {
	return Transition{From: s.Status, To: s.Status, PaymentBefore: s.PaymentStatus, PaymentAfter: s.PaymentStatus}
}

func (s *Subscription) finish(t Transition, now time.Time) Transition {
	t.To = s.Status
	t.PaymentAfter = s.PaymentStatus
	if t.Changed() {
		t.Modified = true
		s.touch(now)
	}
	return t
}

// AttachPayment records the gateway payment created for this subscription.
func (s *Subscription) AttachPayment(paymentID, checkoutURL string, now time.Time) Transition {
	t := s.Begin()
	if s.PaymentID != paymentID || s.CheckoutURL != checkoutURL {
		s.PaymentID = paymentID
		s.CheckoutURL = checkoutURL
		t.Modified = true
	}
	return s.finish(t, now)
}

// ApplyPaymentStatus merges a gateway-reported payment status into the subscription.
//
// The mirrored payment status always follows the report. The lifecycle status only
// leaves pending_payment: paid activates, failed or cancelled cancels, pending and
// processing leave it alone. Once terminal the status never moves again, which makes
// the rule idempotent and independent of delivery order.
func (s *Subscription) ApplyPaymentStatus(reported billing.PaymentStatus, now time.Time) Transition {
	t := s.Begin()

	s.PaymentStatus = reported
	if reported == billing.PaymentPaid && s.PaidAt == nil {
		paidAt := now
		s.PaidAt = &paidAt
		t.Modified = true
	}

	if !s.Status.Terminal() {
		switch reported {
		case billing.PaymentPaid:
			s.Status = StatusActive
		case billing.PaymentFailed, billing.PaymentCancelled:
			s.Status = StatusCancelled
		}
	}
	return s.finish(t, now)
}

// Supersede cancels an abandoned pending checkout.
func (s *Subscription) Supersede(now time.Time) Transition {
	t := s.Begin()
	if s.Status == StatusPendingPayment {
		s.Status = StatusCancelled
	}
	return s.finish(t, now)
}

// Expire persists the derived expired state once the period has passed.
func (s *Subscription) Expire(now time.Time) Transition {
	t := s.Begin()
	if s.EffectiveStatus(now) == StatusExpired {
		s.Status = StatusExpired
	}
	return s.finish(t, now)
}

// Renew extends the period by one plan duration counted from the current end date.
func (s *Subscription) Renew(category plans.Category, now time.Time) Transition {
	t := s.Begin()
	s.EndDate = category.AddTo(s.EndDate)
	s.Status = StatusActive
	t.Modified = true
	return s.finish(t, now)
}

func (s *Subscription) touch(now time.Time) {
	s.UpdatedAt = now
	s.SyncOpenKey()
}
