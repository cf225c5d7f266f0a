package subscriptions

// Status is the lifecycle state stored on a subscription.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusActive         Status = "active"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
)

// Open reports whether the status counts against the one-open-subscription-per-user rule.
func (s Status) Open() bool {
	return s == StatusPendingPayment || s == StatusActive
}

// Terminal reports whether gateway reports may no longer change the status.
// Only pending_payment is advanced by reconciliation.
func (s Status) Terminal() bool {
	return s != StatusPendingPayment
}
