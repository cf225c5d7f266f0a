package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"subscription-backend/internal/app/http/middleware"
	"subscription-backend/internal/gateway"
	"subscription-backend/internal/infra/stripe"
	"subscription-backend/internal/reconcile"

	"github.com/gin-gonic/gin"
)

// EventParser authenticates and decodes a Stripe webhook.
type EventParser interface {
	ParseWebhook(payload []byte, signature string) (gateway.Event, bool, error)
}

type WebhookApplier interface {
	ApplyGatewayWebhook(ctx context.Context, in reconcile.Webhook) (reconcile.Ack, error)
}

type Handler struct {
	parser EventParser
	subs   WebhookApplier
}

func NewHandler(parser EventParser, subs WebhookApplier) *Handler {
	return &Handler{parser: parser, subs: subs}
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	log := middleware.Logger(c)

	payload, err := readStripeBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	ev, handled, err := h.parser.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, stripe.ErrSignature) {
		log.Warn("stripe signature verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}
	if err != nil {
		log.Warn("stripe webhook malformed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}
	if !handled {
		// Acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ack, err := h.subs.ApplyGatewayWebhook(c.Request.Context(), reconcile.Webhook{
		Reference:     ev.Reference,
		PaymentID:     ev.PaymentID,
		Status:        ev.Status,
		TransactionID: ev.TransactionID,
	})
	if err != nil {
		// Retryable: Stripe redelivers on 5xx.
		log.Error("stripe webhook processing failed", "reference", ev.Reference, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received", "outcome": ack.Outcome})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
