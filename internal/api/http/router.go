package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Register       *handlers.RegisterHandler
	Subscription   *handlers.SubscriptionHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Static segments register before the
// :provider parameter routes so they win the match.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/revoke", cfg.Auth.Revoke)
	authGroup.Get("/verify", cfg.Auth.Verify)
	authGroup.Post("/password/reset/request", cfg.Auth.PasswordResetRequest)
	authGroup.Post("/password/reset/confirm", cfg.Auth.PasswordResetConfirm)
	authGroup.Post("/:provider/login", cfg.Auth.ProviderLogin)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/me", cfg.Auth.Me)

	register := app.Group("/register")
	register.Post("/", cfg.Register.Register)
	register.Get("/email/confirm", cfg.Register.Confirm)
	register.Get("/email/decline", cfg.Register.Decline)
	register.Post("/email/resend", cfg.Register.Resend)
	register.Post("/:provider", cfg.Register.RegisterProvider)

	app.Get("/subscription/unsubscribe", cfg.Subscription.Unsubscribe)
}
