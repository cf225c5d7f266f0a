package admin

import (
	"context"
	"net/http"

	"subscription-backend/internal/api/respond"
	"subscription-backend/internal/app/http/middleware"
	"subscription-backend/internal/domain/plans"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PlanAdmin is the write side of the plan catalog.
type PlanAdmin interface {
	ListAll(ctx context.Context) ([]plans.Plan, error)
	Create(ctx context.Context, attrs plans.Attributes) (*plans.Plan, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*plans.Plan, error)
}

type Handler struct {
	plans PlanAdmin
}

func NewHandler(pa PlanAdmin) *Handler {
	return &Handler{plans: pa}
}

// ListAllPlans includes deactivated plans.
func (h *Handler) ListAllPlans(c *gin.Context) {
	list, err := h.plans.ListAll(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var attrs plans.Attributes
	if err := c.ShouldBindJSON(&attrs); err != nil {
		respond.BadRequest(c, "invalid plan payload", err)
		return
	}

	p, err := h.plans.Create(c.Request.Context(), attrs)
	if err != nil {
		respond.Error(c, err)
		return
	}
	middleware.Logger(c).Info("plan created by admin", "plan_id", p.ID, "admin", c.GetString("email"))
	c.JSON(http.StatusCreated, p)
}

// SetPlanActive toggles availability; plans are never deleted.
func (h *Handler) SetPlanActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	}
	var body struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.BadRequest(c, "active flag is required", err)
		return
	}

	p, err := h.plans.SetActive(c.Request.Context(), id, *body.Active)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
