// Package paysuite talks to the PaySuite payments API.
package paysuite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/gateway"
)

const DefaultBaseURL = "https://paysuite.tech/api/v1"

type Config struct {
	BaseURL   string
	AuthToken string
	// HTTPClient defaults to a client without its own timeout; callers bound
	// requests through the context.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ gateway.Gateway = (*Client)(nil)

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: base, token: cfg.AuthToken, http: hc}
}

type createPaymentBody struct {
	Amount      string `json:"amount"`
	Method      string `json:"method,omitempty"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    paymentData `json:"data"`
}

type paymentData struct {
	ID            string          `json:"id"`
	CheckoutURL   string          `json:"checkout_url"`
	Status        string          `json:"status"`
	Amount        json.Number     `json:"amount"`
	Reference     string          `json:"reference"`
	TransactionID string          `json:"transaction_id"`
	Transaction   json.RawMessage `json:"transaction"`
	PaidAt        string          `json:"paid_at"`
}

func (c *Client) CreatePayment(ctx context.Context, req gateway.CreatePaymentRequest) (*gateway.Payment, error) {
	body := createPaymentBody{
		Amount:      strconv.FormatFloat(req.Amount, 'f', -1, 64),
		Method:      req.Method,
		Reference:   req.Reference,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		CallbackURL: req.CallbackURL,
	}
	return c.do(ctx, http.MethodPost, "/payments", body)
}

func (c *Client) GetPayment(ctx context.Context, id string) (*gateway.Payment, error) {
	if id == "" {
		return nil, &gateway.RejectedError{Message: "payment id is required"}
	}
	return c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*gateway.Payment, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode paysuite request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build paysuite request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, gateway.Unavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, gateway.Unavailable(err)
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, gateway.Unavailable(fmt.Errorf("paysuite responded %d", resp.StatusCode))
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &gateway.RejectedError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, gateway.Unavailable(fmt.Errorf("decode paysuite response: %w", decodeErr))
	}
	if env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = "payment request was not accepted"
		}
		return nil, &gateway.RejectedError{Status: resp.StatusCode, Message: msg}
	}

	return env.Data.toPayment(), nil
}

func (d paymentData) toPayment() *gateway.Payment {
	p := &gateway.Payment{
		ID:            d.ID,
		CheckoutURL:   d.CheckoutURL,
		RawStatus:     d.Status,
		Reference:     d.Reference,
		TransactionID: d.TransactionID,
	}
	if status, ok := billing.ParsePaymentStatus(d.Status); ok {
		p.Status = status
	}
	if d.Amount != "" {
		if f, err := d.Amount.Float64(); err == nil {
			p.Amount = f
		}
	}
	if p.TransactionID == "" {
		p.TransactionID = transactionID(d.Transaction)
	}
	p.PaidAt = parseTime(d.PaidAt)
	return p
}

// transactionID accepts either a bare id or an object carrying one.
func transactionID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		ID            string `json:"id"`
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.ID != "" {
			return obj.ID
		}
		return obj.TransactionID
	}
	return ""
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
