// Package gateway defines the payment gateway contract and the error shapes the
// reconciliation engine relies on to pick between "retry later" and "rejected".
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription-backend/internal/domain/billing"
)

// ErrUnavailable covers timeouts, network failures, 5xx responses and an open circuit.
var ErrUnavailable = errors.New("payment gateway unavailable")

// RejectedError is a definitive refusal carrying the gateway's own message.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("payment gateway rejected request (%d): %s", e.Status, e.Message)
	}
	return "payment gateway rejected request: " + e.Message
}

// Unavailable wraps cause so errors.Is(err, ErrUnavailable) holds.
func Unavailable(cause error) error {
	if cause == nil || errors.Is(cause, ErrUnavailable) {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, cause)
}

func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// RejectionMessage returns the gateway message if err is a rejection.
func RejectionMessage(err error) (string, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Message, true
	}
	return "", false
}

type CreatePaymentRequest struct {
	Amount      float64
	Method      string
	Reference   string
	Description string
	ReturnURL   string
	CallbackURL string
}

// Payment is the gateway's view of one payment. Status is empty when the gateway
// reported something outside the known set; RawStatus keeps the original value.
type Payment struct {
	ID            string
	CheckoutURL   string
	Status        billing.PaymentStatus
	RawStatus     string
	Amount        float64
	Reference     string
	TransactionID string
	PaidAt        *time.Time
}

type Gateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// Event is a normalized webhook notification.
type Event struct {
	PaymentID     string
	Reference     string
	Status        string
	TransactionID string
}
