package billing

import (
	"net/http"

	"subscription-backend/internal/api/respond"

	"github.com/gin-gonic/gin"
)

// CreateSubscription starts a subscription and returns the gateway checkout URL.
// An existing pending subscription that was paid meanwhile is returned with 200.
func (h *Handler) CreateSubscription(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var body struct {
		Plan string `json:"plan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.BadRequest(c, "plan is required: choose monthly, quarterly or annual", err)
		return
	}

	res, err := h.subs.Create(c.Request.Context(), userID, body.Plan)
	if err != nil {
		respond.Error(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}
