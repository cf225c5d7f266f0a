package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type ResilienceConfig struct {
	Name             string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenFor          time.Duration
}

// Resilient bounds every call with a timeout and trips a circuit breaker after
// repeated unavailability. Rejections do not count as failures.
type Resilient struct {
	next    Gateway
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[*Payment]
}

func NewResilient(next Gateway, cfg ResilienceConfig, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "payment-gateway"
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsUnavailable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("gateway circuit breaker state changed",
				"gateway", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Resilient{
		next:    next,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker[*Payment](settings),
	}
}

func (r *Resilient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	return r.call(ctx, func(ctx context.Context) (*Payment, error) {
		return r.next.CreatePayment(ctx, req)
	})
}

func (r *Resilient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	return r.call(ctx, func(ctx context.Context) (*Payment, error) {
		return r.next.GetPayment(ctx, id)
	})
}

func (r *Resilient) call(ctx context.Context, fn func(context.Context) (*Payment, error)) (*Payment, error) {
	p, err := r.breaker.Execute(func() (*Payment, error) {
		callCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		p, err := fn(callCtx)
		if err != nil && callCtx.Err() != nil && !IsUnavailable(err) {
			return nil, Unavailable(err)
		}
		return p, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, Unavailable(err)
	}
	return p, err
}

// State exposes the breaker state for health reporting.
func (r *Resilient) State() string {
	return r.breaker.State().String()
}
