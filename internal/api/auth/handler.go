package auth

import (
	"errors"
	"net/http"
	"time"

	"subscription-backend/config"
	"subscription-backend/internal/api/respond"
	"subscription-backend/internal/app/http/middleware"
	"subscription-backend/internal/apperr"
	"subscription-backend/internal/domain/users"
	"subscription-backend/internal/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	users   store.UserStore
	secret  []byte
	ttl     time.Duration
	isAdmin func(email string) bool
	now     func() time.Time
}

func NewHandler(us store.UserStore, cfg *config.Config) *Handler {
	return &Handler{
		users:   us,
		secret:  []byte(cfg.JWTSecret),
		ttl:     cfg.JWTTTL,
		isAdmin: cfg.IsAdminEmail,
		now:     time.Now,
	}
}

func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BadRequest(c, "username, email and password are required", err)
		return
	}

	if err := users.ValidatePassword(input.Password); err != nil {
		respond.Error(c, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Error(c, apperr.Internal(err, "failed to hash password"))
		return
	}

	role := users.RoleUser
	if h.isAdmin(input.Email) {
		role = users.RoleAdmin
	}
	user, err := users.New(input.Username, input.Email, string(hashed), role, h.now())
	if err != nil {
		respond.Error(c, err)
		return
	}

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respond.Error(c, apperr.Validation("email already in use"))
			return
		}
		respond.Error(c, apperr.Internal(err, "failed to register user"))
		return
	}

	token, err := middleware.IssueToken(h.secret, h.ttl, user, h.now())
	if err != nil {
		respond.Error(c, apperr.Internal(err, "could not create token"))
		return
	}

	middleware.Logger(c).Info("user registered", "user_id", user.ID, "role", user.Role)
	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered successfully",
		"token":   token,
		"userId":  user.ID.String(),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BadRequest(c, "email and password are required", err)
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), users.NormalizeEmail(input.Email))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respond.Error(c, apperr.Internal(err, "failed to log in"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !user.IsActive() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account disabled"})
		return
	}

	token, err := middleware.IssueToken(h.secret, h.ttl, user, h.now())
	if err != nil {
		respond.Error(c, apperr.Internal(err, "could not create token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"token":   token,
		"userId":  user.ID.String(),
	})
}
