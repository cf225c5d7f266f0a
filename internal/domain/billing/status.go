package billing

import "strings"

// PaymentStatus is the gateway-owned state of a payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// ParsePaymentStatus normalizes a gateway-reported status.
// Unknown values are rejected so callers can acknowledge and ignore them.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return PaymentPending, true
	case "processing":
		return PaymentProcessing, true
	case "paid":
		return PaymentPaid, true
	case "failed":
		return PaymentFailed, true
	case "cancelled", "canceled":
		return PaymentCancelled, true
	default:
		return "", false
	}
}

// Settled reports whether the gateway will not move the payment any further.
func (s PaymentStatus) Settled() bool {
	switch s {
	case PaymentPaid, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}
