package plans

import (
	"context"
	"net/http"

	"subscription-backend/internal/api/respond"
	"subscription-backend/internal/domain/plans"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Catalog is the read side of the plan catalog.
type Catalog interface {
	ListActive(ctx context.Context) ([]plans.Plan, error)
	Get(ctx context.Context, id uuid.UUID) (*plans.Plan, error)
}

type Handler struct {
	catalog Catalog
}

func NewHandler(cat Catalog) *Handler {
	return &Handler{catalog: cat}
}

// ListPlans returns active plans ordered monthly, quarterly, annual.
func (h *Handler) ListPlans(c *gin.Context) {
	list, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetPlan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	}
	p, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
