package billing

import (
	"errors"
	"io"
	"net/http"

	"subscription-backend/internal/app/http/middleware"
	"subscription-backend/internal/infra/paysuite"
	"subscription-backend/internal/reconcile"

	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = 64 << 10

// PaymentCallback receives PaySuite notifications. It acknowledges unknown references
// and statuses with 200 so the gateway stops retrying; only internal failures are 500.
func (h *Handler) PaymentCallback(c *gin.Context) {
	log := middleware.Logger(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Error reading request body"})
		return
	}

	if err := paysuite.VerifySignature(h.webhookSecret, payload, c.GetHeader(paysuite.SignatureHeader)); err != nil {
		log.Warn("paysuite webhook rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Signature verification failed"})
		return
	}

	ev, err := paysuite.ParseWebhook(payload)
	if err == nil && ev.Reference == "" && ev.PaymentID == "" {
		err = errNoReference
	}
	if err != nil {
		log.Warn("paysuite webhook malformed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Malformed webhook"})
		return
	}
	log.Info("paysuite webhook received", "reference", ev.Reference, "payment_id", ev.PaymentID, "status", ev.Status)

	h.apply(c, ev.Reference, ev.PaymentID, ev.Status, ev.TransactionID)
}

func (h *Handler) apply(c *gin.Context, reference, paymentID, status, transactionID string) {
	ack, err := h.subs.ApplyGatewayWebhook(c.Request.Context(), reconcile.Webhook{
		Reference:     reference,
		PaymentID:     paymentID,
		Status:        status,
		TransactionID: transactionID,
	})
	if err != nil {
		middleware.Logger(c).Error("webhook processing failed", "reference", reference, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Error processing payment callback"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "outcome": ack.Outcome})
}

var errNoReference = errors.New("webhook carries neither reference nor payment id")
