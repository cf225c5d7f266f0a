package reconcile

import (
	"context"
	"errors"

	"subscription-backend/internal/apperr"
	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/store"

	"github.com/google/uuid"
)

// PaymentLookup is a mirrored payment, refreshed from the gateway when possible.
type PaymentLookup struct {
	Payment *billing.Payment `json:"payment"`
	// Live is false when the gateway could not be reached and the local copy is returned.
	Live bool `json:"live"`
}

// Payment looks up one of the requester's payments by reference and reconciles its
// subscription from the gateway first. When the gateway is unreachable the last
// mirrored state is returned instead of an error.
func (e *Engine) Payment(ctx context.Context, reference string, requester uuid.UUID) (*PaymentLookup, error) {
	if e.payments == nil {
		return nil, apperr.NotFound("payment not found")
	}
	p, err := e.findPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	if p.UserID != requester {
		return nil, apperr.Forbidden("access to this payment is not allowed")
	}
	if p.GatewayID == "" {
		return &PaymentLookup{Payment: p}, nil
	}

	_, err = e.ReconcileFromPoll(ctx, p.SubscriptionID, requester)
	switch {
	case err == nil:
	case apperr.Is(err, apperr.KindGatewayUnavailable):
		e.log.Warn("serving mirrored payment, gateway unreachable", "reference", reference, "error", err)
		return &PaymentLookup{Payment: p}, nil
	default:
		return nil, err
	}

	fresh, err := e.findPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	return &PaymentLookup{Payment: fresh, Live: true}, nil
}

func (e *Engine) findPayment(ctx context.Context, reference string) (*billing.Payment, error) {
	p, err := e.payments.FindByReference(ctx, reference)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("payment not found")
	}
	if err != nil {
		return nil, internal(err, "load payment")
	}
	return p, nil
}
