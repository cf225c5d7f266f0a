// Package stripe adapts Stripe Checkout to the payment gateway contract.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"subscription-backend/internal/gateway"

	stripeapi "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	// Backends overrides the API endpoints, mainly for tests.
	Backends *stripeapi.Backends
}

// Gateway creates one-off Checkout Sessions. The session id is the gateway payment id.
type Gateway struct {
	api           *client.API
	currency      string
	webhookSecret string
}

var _ gateway.Gateway = (*Gateway)(nil)

func New(cfg Config) *Gateway {
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "mzn"
	}
	return &Gateway{
		api:           client.New(cfg.SecretKey, cfg.Backends),
		currency:      currency,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (g *Gateway) CreatePayment(ctx context.Context, req gateway.CreatePaymentRequest) (*gateway.Payment, error) {
	description := req.Description
	if description == "" {
		description = req.Reference
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		ClientReferenceID: stripeapi.String(req.Reference),
		SuccessURL:        stripeapi.String(req.ReturnURL),
		CancelURL:         stripeapi.String(req.ReturnURL + "?canceled=1"),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				Quantity: stripeapi.Int64(1),
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripeapi.String(g.currency),
					UnitAmount: stripeapi.Int64(MinorUnits(req.Amount)),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripeapi.String(description),
					},
				},
			},
		},
		Metadata: map[string]string{"reference": req.Reference},
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, translate(err)
	}
	return toPayment(s), nil
}

func (g *Gateway) GetPayment(ctx context.Context, id string) (*gateway.Payment, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, translate(err)
	}
	return toPayment(s), nil
}

// MinorUnits converts a decimal price to the integer amount Stripe expects.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func toPayment(s *stripeapi.CheckoutSession) *gateway.Payment {
	status := SessionStatus(s)
	p := &gateway.Payment{
		ID:          s.ID,
		CheckoutURL: s.URL,
		Status:      status,
		RawStatus:   string(s.Status) + "/" + string(s.PaymentStatus),
		Amount:      float64(s.AmountTotal) / 100,
		Reference:   s.ClientReferenceID,
	}
	if s.PaymentIntent != nil {
		p.TransactionID = s.PaymentIntent.ID
	}
	return p
}

// translate separates retryable failures from definitive rejections.
func translate(err error) error {
	var se *stripeapi.Error
	if !errors.As(err, &se) {
		return gateway.Unavailable(err)
	}
	if se.HTTPStatusCode >= http.StatusInternalServerError || se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode == 0 {
		return gateway.Unavailable(err)
	}
	return &gateway.RejectedError{Status: se.HTTPStatusCode, Message: se.Msg}
}

// ErrSignature means the webhook could not be authenticated.
var ErrSignature = errors.New("stripe signature verification failed")

// ParseWebhook verifies the Stripe-Signature header and extracts the checkout event.
// handled is false for event types that carry no payment status change.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (ev gateway.Event, handled bool, err error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return gateway.Event{}, false, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if !strings.HasPrefix(string(event.Type), "checkout.session.") {
		return gateway.Event{}, false, nil
	}

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return gateway.Event{}, false, fmt.Errorf("decode checkout session: %w", err)
	}

	status, ok := EventStatus(event.Type, &session)
	if !ok {
		return gateway.Event{}, false, nil
	}

	ev = gateway.Event{
		PaymentID: session.ID,
		Reference: session.ClientReferenceID,
		Status:    string(status),
	}
	if ev.Reference == "" {
		ev.Reference = session.Metadata["reference"]
	}
	if session.PaymentIntent != nil {
		ev.TransactionID = session.PaymentIntent.ID
	}
	return ev, true, nil
}
