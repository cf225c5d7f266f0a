package routes

import (
	"context"
	"net/http"
	"time"

	adminapi "subscription-backend/internal/api/admin"
	authapi "subscription-backend/internal/api/auth"
	"subscription-backend/internal/api/billing"
	"subscription-backend/internal/api/plans"
	stripewebhooks "subscription-backend/internal/api/stripewebhook"
	usersapi "subscription-backend/internal/api/users"
	"subscription-backend/internal/app/http/middleware"
	"subscription-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// Deps is everything the routes need; main builds it once at startup.
type Deps struct {
	Auth    *authapi.Handler
	Users   *usersapi.Handler
	Plans   *plans.Handler
	Admin   *adminapi.Handler
	Billing *billing.Handler
	// Stripe is nil unless the Stripe gateway is configured.
	Stripe *stripewebhooks.Handler

	JWTSecret    []byte
	Subscription middleware.CurrentSubscription
	// Health checks run on GET /health; each returns nil when its dependency is reachable.
	Health map[string]func(ctx context.Context) error
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", health(d.Health))

	api := r.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	// Gateway callbacks read the raw body, so they stay outside the sanitizer.
	api.POST("/subscriptions/payment-callback", d.Billing.PaymentCallback)
	api.POST("/payments/callback", d.Billing.PaymentCallback)
	if d.Stripe != nil {
		api.POST("/webhooks/stripe", d.Stripe.StripeWebhook)
	}

	api.GET("/plans", d.Plans.ListPlans)
	api.GET("/plans/:id", d.Plans.GetPlan)

	public := api.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.POST("/users/register", d.Auth.Register)
	public.POST("/users/login", d.Auth.Login)

	// Authenticated
	auth := api.Group("/")
	auth.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/users/profile", d.Users.GetProfile)
	auth.GET("/subscriptions", d.Billing.GetSubscription)
	auth.POST("/subscriptions", d.Billing.CreateSubscription)
	auth.PATCH("/subscriptions/:id/renew", d.Billing.RenewSubscription)
	auth.POST("/subscriptions/:id/renew", d.Billing.RenewSubscription)
	auth.GET("/subscriptions/:id/payment-status", d.Billing.CheckPaymentStatus)
	auth.GET("/payments", d.Billing.GetPaymentHistory)
	auth.GET("/payments/request/:reference", d.Billing.GetPayment)

	// Subscribed users
	subscribed := auth.Group("/")
	subscribed.Use(middleware.RequireActiveSubscription(d.Subscription))
	subscribed.GET("/subscriptions/access", d.Billing.CheckAccess)

	// Admin routes
	admin := api.Group("/")
	admin.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.RequireRole(users.RoleAdmin), middleware.SanitizeAndCleanInputMiddleware())
	admin.GET("/admin/plans", d.Admin.ListAllPlans)
	admin.POST("/plans", d.Admin.CreatePlan)
	admin.PATCH("/plans/:id/active", d.Admin.SetPlanActive)
}

func health(checks map[string]func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		report := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				middleware.Logger(c).Warn("health check failed", "component", name, "error", err)
				report[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "up"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": report})
	}
}
