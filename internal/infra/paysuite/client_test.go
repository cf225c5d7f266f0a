package paysuite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/payments", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "500", body["amount"])
		assert.Equal(t, "SUBref", body["reference"])
		assert.Equal(t, "http://api/api/subscriptions/payment-callback", body["callback_url"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":"pay_1","checkout_url":"https://pay/checkout/1","status":"pending","amount":"500","reference":"SUBref"}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api/v1/", AuthToken: "secret"})
	p, err := c.CreatePayment(context.Background(), gateway.CreatePaymentRequest{
		Amount:      500,
		Reference:   "SUBref",
		CallbackURL: "http://api/api/subscriptions/payment-callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", p.ID)
	assert.Equal(t, "https://pay/checkout/1", p.CheckoutURL)
	assert.Equal(t, billing.PaymentPending, p.Status)
	assert.Equal(t, 500.0, p.Amount)
}

func TestGetPayment_Paid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":"pay_1","status":"paid","transaction":{"id":"tx_9"},"paid_at":"2026-03-01T10:00:00Z"}}`))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL}).GetPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentPaid, p.Status)
	assert.Equal(t, "tx_9", p.TransactionID)
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *p.PaidAt)
}

func TestGetPayment_EscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay%2F1%3Fx=1", r.URL.EscapedPath())
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":"pay/1?x=1","status":"pending"}}`))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL}).GetPayment(context.Background(), "pay/1?x=1")
	require.NoError(t, err)
	assert.Equal(t, "pay/1?x=1", p.ID)
}

func TestGetPayment_UnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":"pay_1","status":"on_hold"}}`))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL}).GetPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Empty(t, p.Status)
	assert.Equal(t, "on_hold", p.RawStatus)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		unavailable bool
		message     string
	}{
		{name: "server error", status: 503, body: `oops`, unavailable: true},
		{name: "rate limited", status: 429, body: `{}`, unavailable: true},
		{name: "validation", status: 422, body: `{"status":"error","message":"The amount field is required."}`, message: "The amount field is required."},
		{name: "unauthorized", status: 401, body: `not json`, message: "Unauthorized"},
		{name: "error envelope", status: 200, body: `{"status":"error","message":"Invalid reference"}`, message: "Invalid reference"},
		{name: "garbage", status: 200, body: `<html>`, unavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(Config{BaseURL: srv.URL}).CreatePayment(context.Background(), gateway.CreatePaymentRequest{Amount: 1, Reference: "r"})
			require.Error(t, err)
			assert.Equal(t, tt.unavailable, gateway.IsUnavailable(err))
			if !tt.unavailable {
				msg, ok := gateway.RejectionMessage(err)
				require.True(t, ok)
				assert.Equal(t, tt.message, msg)
			}
		})
	}
}

func TestNetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Config{BaseURL: url}).GetPayment(context.Background(), "pay_1")
	assert.True(t, gateway.IsUnavailable(err))
}
