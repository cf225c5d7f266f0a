package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"subscription-backend/internal/domain/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	calls int
	err   error
	delay time.Duration
}

func (s *stubGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	return s.GetPayment(ctx, req.Reference)
}

func (s *stubGateway) GetPayment(ctx context.Context, id string) (*Payment, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Payment{ID: id, Status: billing.PaymentPending}, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestResilient_PassesThrough(t *testing.T) {
	stub := &stubGateway{}
	g := NewResilient(stub, ResilienceConfig{Timeout: time.Second}, quiet())

	p, err := g.GetPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "pay_1", p.ID)
}

func TestResilient_TimeoutIsUnavailable(t *testing.T) {
	stub := &stubGateway{delay: time.Second}
	g := NewResilient(stub, ResilienceConfig{Timeout: 10 * time.Millisecond}, quiet())

	_, err := g.GetPayment(context.Background(), "pay_1")
	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResilient_OpensAfterFailures(t *testing.T) {
	stub := &stubGateway{err: Unavailable(errors.New("connection refused"))}
	g := NewResilient(stub, ResilienceConfig{Timeout: time.Second, FailureThreshold: 2, OpenFor: time.Minute}, quiet())

	for range 2 {
		_, err := g.GetPayment(context.Background(), "pay_1")
		assert.True(t, IsUnavailable(err))
	}
	assert.Equal(t, "open", g.State())

	_, err := g.GetPayment(context.Background(), "pay_1")
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 2, stub.calls, "open circuit must not reach the gateway")
}

func TestResilient_RejectionsDoNotTrip(t *testing.T) {
	stub := &stubGateway{err: &RejectedError{Status: 422, Message: "invalid amount"}}
	g := NewResilient(stub, ResilienceConfig{Timeout: time.Second, FailureThreshold: 1}, quiet())

	for range 3 {
		_, err := g.CreatePayment(context.Background(), CreatePaymentRequest{Reference: "ref"})
		msg, ok := RejectionMessage(err)
		require.True(t, ok)
		assert.Equal(t, "invalid amount", msg)
		assert.False(t, IsUnavailable(err))
	}
	assert.Equal(t, "closed", g.State())
}

func TestUnavailable(t *testing.T) {
	assert.Equal(t, ErrUnavailable, Unavailable(nil))
	assert.Equal(t, ErrUnavailable, Unavailable(ErrUnavailable))

	cause := errors.New("dial tcp")
	err := Unavailable(cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}
