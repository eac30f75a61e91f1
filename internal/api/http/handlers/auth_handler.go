package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/ratelimit"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// AuthHandler exposes login, session and password endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	limiter *ratelimit.Limiter
	cfg     config.RateLimitConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, limiter *ratelimit.Limiter, cfg config.RateLimitConfig) *AuthHandler {
	return &AuthHandler{auth: authService, limiter: limiter, cfg: cfg}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	if h.cfg.Enabled && !h.limiter.Allow(c.UserContext(), "rl:login:"+service.NormalizeEmail(req.Email), h.cfg.LoginMax, h.cfg.LoginWindow) {
		return apperrors.NewRateLimited("too many login attempts")
	}

	account, access, refresh, err := h.auth.LoginLocal(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"account": dto.NewAccountResponse(account),
			"session": dto.NewSessionResponse(access, refresh),
		},
	})
}

// ProviderLogin handles POST /auth/:provider/login.
func (h *AuthHandler) ProviderLogin(c *fiber.Ctx) error {
	var req dto.ProviderLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	raw := auth.TokenFromRequest(c, req.Token, "")
	if raw == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	account, access, refresh, err := h.auth.LoginProvider(c.UserContext(), c.Params("provider"), raw)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"account": dto.NewAccountResponse(account),
			"session": dto.NewSessionResponse(access, refresh),
		},
	})
}

// Refresh handles POST /auth/refresh. The refresh token resolves with
// header > body > cookie precedence; the access value it rotated from comes
// from the body or the session cookie.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	_ = c.BodyParser(&req)

	refreshValue := auth.TokenFromRequest(c, req.RefreshToken, auth.SessionCookieRefresh)
	accessValue := req.AccessToken
	if accessValue == "" {
		accessValue = c.Cookies(auth.SessionCookieAccess)
	}
	if refreshValue == "" || accessValue == "" {
		return apperrors.NewValidationError("access and refresh tokens required", nil)
	}

	access, err := h.auth.RefreshSession(c.UserContext(), refreshValue, accessValue)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.TokenResponse{Token: access.SignedValue, ExpiresAt: access.ExpiresAt},
	})
}

// Revoke handles POST /auth/revoke. It revokes whichever representations
// are presented and always reports success.
func (h *AuthHandler) Revoke(c *fiber.Ctx) error {
	var req dto.RevokeRequest
	_ = c.BodyParser(&req)

	accessValue := auth.TokenFromRequest(c, req.AccessToken, auth.SessionCookieAccess)
	refreshValue := req.RefreshToken
	if refreshValue == "" {
		refreshValue = c.Cookies(auth.SessionCookieRefresh)
	}
	if accessValue == "" && refreshValue == "" {
		return apperrors.NewValidationError("no token presented", nil)
	}

	h.auth.Logout(c.UserContext(), accessValue, refreshValue)

	c.ClearCookie(auth.SessionCookieAccess, auth.SessionCookieRefresh)
	return c.JSON(fiber.Map{"data": fiber.Map{"revoked": true}})
}

// Verify handles GET /auth/verify.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	value := auth.TokenFromRequest(c, c.Query("token"), auth.SessionCookieAccess)
	if value == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	token := h.auth.VerifyToken(c.UserContext(), value)
	if token == nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"valid":      true,
			"kind":       token.Kind,
			"subject_id": token.SubjectID,
			"expires_at": token.ExpiresAt,
		},
	})
}

// Me handles GET /auth/me behind the auth middleware.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing credentials")
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(principal.Account)})
}

// PasswordResetRequest handles POST /auth/password/reset/request. The
// response is identical whether or not the email is registered.
func (h *AuthHandler) PasswordResetRequest(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "accepted"}})
}

// PasswordResetConfirm handles POST /auth/password/reset/confirm.
func (h *AuthHandler) PasswordResetConfirm(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	tokenValue := auth.TokenFromRequest(c, req.Token, "")
	if tokenValue == "" || req.Password == "" {
		return apperrors.NewValidationError("token and password required", nil)
	}

	if err := h.auth.ConfirmPasswordReset(c.UserContext(), tokenValue, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password updated"}})
}
