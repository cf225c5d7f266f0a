package paysuite

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"subscription-backend/internal/gateway"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body when a webhook secret is configured.
const SignatureHeader = "X-Webhook-Signature"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	errEmptyWebhook     = errors.New("empty webhook body")
)

// webhookBody accepts the flat callback shape {id, status, reference, transaction}
// as well as the event envelope {event, data: {...}}.
type webhookBody struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Reference   string          `json:"reference"`
	Transaction json.RawMessage `json:"transaction"`

	Event string       `json:"event"`
	Data  *paymentData `json:"data"`
}

var eventStatus = map[string]string{
	"payment.success":   "paid",
	"payment.paid":      "paid",
	"payment.failed":    "failed",
	"payment.cancelled": "cancelled",
	"payment.pending":   "pending",
}

// VerifySignature checks the signature when secret is set; an empty secret disables verification.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseWebhook decodes a callback body into a normalized event.
func ParseWebhook(body []byte) (gateway.Event, error) {
	if len(body) == 0 {
		return gateway.Event{}, errEmptyWebhook
	}
	var w webhookBody
	if err := json.Unmarshal(body, &w); err != nil {
		return gateway.Event{}, fmt.Errorf("decode paysuite webhook: %w", err)
	}

	ev := gateway.Event{
		PaymentID:     w.ID,
		Reference:     w.Reference,
		Status:        w.Status,
		TransactionID: transactionID(w.Transaction),
	}
	if w.Data != nil {
		if ev.PaymentID == "" {
			ev.PaymentID = w.Data.ID
		}
		if ev.Reference == "" {
			ev.Reference = w.Data.Reference
		}
		if ev.Status == "" {
			ev.Status = w.Data.Status
		}
		if ev.TransactionID == "" {
			ev.TransactionID = w.Data.TransactionID
		}
		if ev.TransactionID == "" {
			ev.TransactionID = transactionID(w.Data.Transaction)
		}
	}
	if ev.Status == "" {
		ev.Status = eventStatus[strings.ToLower(w.Event)]
	}
	return ev, nil
}
