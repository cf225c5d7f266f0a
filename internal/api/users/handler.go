package users

import (
	"context"
	"errors"
	"net/http"
	"time"

	"subscription-backend/internal/api/respond"
	"subscription-backend/internal/app/http/middleware"
	"subscription-backend/internal/apperr"
	"subscription-backend/internal/domain/access"
	"subscription-backend/internal/domain/users"
	"subscription-backend/internal/reconcile"
	"subscription-backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CurrentSubscription is the part of the engine the profile needs.
type CurrentSubscription interface {
	Current(ctx context.Context, userID uuid.UUID) (*reconcile.Result, error)
}

type Handler struct {
	users store.UserStore
	subs  CurrentSubscription
}

func NewHandler(us store.UserStore, subs CurrentSubscription) *Handler {
	return &Handler{users: us, subs: subs}
}

type ProfileResponse struct {
	User         *users.User       `json:"user"`
	Subscription *reconcile.Result `json:"subscription"`
	Access       access.Policy     `json:"access"`
}

// GetProfile returns the caller and, when there is one, their open subscription.
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(c, apperr.NotFound("user not found"))
		return
	}
	if err != nil {
		respond.Error(c, apperr.Internal(err, "failed to load user"))
		return
	}

	resp := ProfileResponse{User: user, Access: access.ComputePolicy(time.Now(), nil)}
	sub, err := h.subs.Current(c.Request.Context(), userID)
	switch {
	case err == nil:
		resp.Subscription = sub
		resp.Access = access.ComputePolicy(time.Now(), sub.Subscription)
	case !apperr.Is(err, apperr.KindNotFound):
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
