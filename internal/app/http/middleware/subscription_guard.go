package middleware

import (
	"context"
	"net/http"

	"subscription-backend/internal/apperr"
	"subscription-backend/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ctxSubscription = "subscription"

// CurrentSubscription resolves a user's open subscription.
type CurrentSubscription interface {
	Current(ctx context.Context, userID uuid.UUID) (*reconcile.Result, error)
}

// RequireActiveSubscription lets the request through only while the caller's
// subscription is active and within its period. Must run after AuthMiddleware.
func RequireActiveSubscription(subs CurrentSubscription) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		res, err := subs.Current(c.Request.Context(), userID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Subscription not found or expired"})
				return
			}
			Logger(c).Error("subscription check failed", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check subscription"})
			return
		}

		if !res.IsValid {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "Your subscription is not active"})
			return
		}

		c.Set(ctxSubscription, res)
		c.Next()
	}
}

// Subscription returns the result stored by RequireActiveSubscription.
func Subscription(c *gin.Context) (*reconcile.Result, bool) {
	v, ok := c.Get(ctxSubscription)
	if !ok {
		return nil, false
	}
	res, ok := v.(*reconcile.Result)
	return res, ok
}
