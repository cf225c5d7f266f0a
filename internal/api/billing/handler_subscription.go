package billing

import (
	"context"
	"net/http"
	"time"

	"subscription-backend/internal/api/respond"
	"subscription-backend/internal/app/http/middleware"
	"subscription-backend/internal/domain/access"
	"subscription-backend/internal/reconcile"
	"subscription-backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Subscriptions is the reconciliation engine as seen by the HTTP layer.
type Subscriptions interface {
	Create(ctx context.Context, userID uuid.UUID, category string) (*reconcile.Result, error)
	Current(ctx context.Context, userID uuid.UUID) (*reconcile.Result, error)
	Renew(ctx context.Context, id, requester uuid.UUID) (*reconcile.Result, error)
	ReconcileFromPoll(ctx context.Context, id, requester uuid.UUID) (*reconcile.Result, error)
	ApplyGatewayWebhook(ctx context.Context, in reconcile.Webhook) (reconcile.Ack, error)
	Payment(ctx context.Context, reference string, requester uuid.UUID) (*reconcile.PaymentLookup, error)
}

type Handler struct {
	subs          Subscriptions
	payments      store.PaymentStore
	webhookSecret string
}

func NewHandler(subs Subscriptions, payments store.PaymentStore, webhookSecret string) *Handler {
	return &Handler{subs: subs, payments: payments, webhookSecret: webhookSecret}
}

func caller(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}

func subscriptionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return uuid.Nil, false
	}
	return id, true
}

// GetSubscription returns the caller's open subscription with plan details.
func (h *Handler) GetSubscription(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	res, err := h.subs.Current(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RenewSubscription(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := subscriptionID(c)
	if !ok {
		return
	}
	res, err := h.subs.Renew(c.Request.Context(), id, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CheckPaymentStatus asks the gateway for the live payment status and applies it.
func (h *Handler) CheckPaymentStatus(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := subscriptionID(c)
	if !ok {
		return
	}
	res, err := h.subs.ReconcileFromPoll(c.Request.Context(), id, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CheckAccess answers whether the caller currently has a valid subscription.
// RequireActiveSubscription has already rejected everyone else.
func (h *Handler) CheckAccess(c *gin.Context) {
	res, ok := middleware.Subscription(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Subscription not found or expired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access":        access.ComputePolicy(time.Now(), res.Subscription),
		"plan":          res.Subscription.Plan,
		"daysRemaining": res.DaysRemaining,
	})
}
