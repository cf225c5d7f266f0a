package stripe

import (
	"subscription-backend/internal/domain/billing"

	stripeapi "github.com/stripe/stripe-go/v75"
)

// SessionStatus normalizes a Checkout Session into the gateway payment status set.
func SessionStatus(s *stripeapi.CheckoutSession) billing.PaymentStatus {
	if s == nil {
		return billing.PaymentPending
	}
	switch {
	case s.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusPaid,
		s.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusNoPaymentRequired:
		return billing.PaymentPaid
	case s.Status == stripeapi.CheckoutSessionStatusExpired:
		return billing.PaymentCancelled
	case s.Status == stripeapi.CheckoutSessionStatusComplete:
		// Completed but unpaid: an async method such as a bank transfer is still settling.
		return billing.PaymentProcessing
	default:
		return billing.PaymentPending
	}
}

// EventStatus maps the checkout webhook events we act on; ok is false for everything else.
func EventStatus(eventType stripeapi.EventType, s *stripeapi.CheckoutSession) (status billing.PaymentStatus, ok bool) {
	switch eventType {
	case "checkout.session.completed":
		if s.PaymentStatus != stripeapi.CheckoutSessionPaymentStatusPaid {
			return "", false
		}
		return billing.PaymentPaid, true
	case "checkout.session.async_payment_succeeded":
		return billing.PaymentPaid, true
	case "checkout.session.async_payment_failed":
		return billing.PaymentFailed, true
	case "checkout.session.expired":
		return billing.PaymentCancelled, true
	}
	return "", false
}
