package billing

import (
	"net/http"
	"sort"

	"subscription-backend/internal/api/respond"
	"subscription-backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// GetPaymentHistory lists the caller's mirrored payments, newest first.
func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	payments, err := h.payments.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, apperr.Internal(err, "failed to load payments"))
		return
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})

	c.JSON(http.StatusOK, payments)
}

// GetPayment returns one mirrored payment by reference, refreshed from the gateway.
func (h *Handler) GetPayment(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	res, err := h.subs.Payment(c.Request.Context(), c.Param("reference"), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
