package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// SubscriptionHandler exposes the one-click unsubscribe endpoint linked
// from outbound mail.
type SubscriptionHandler struct {
	auth *service.AuthService
}

// NewSubscriptionHandler constructs handler.
func NewSubscriptionHandler(authService *service.AuthService) *SubscriptionHandler {
	return &SubscriptionHandler{auth: authService}
}

// Unsubscribe handles GET /subscription/unsubscribe?token.
func (h *SubscriptionHandler) Unsubscribe(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	if err := h.auth.Unsubscribe(c.UserContext(), token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "unsubscribed"}})
}
