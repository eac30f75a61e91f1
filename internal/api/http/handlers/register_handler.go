package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/ratelimit"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// RegisterHandler exposes the signup and verification endpoints.
type RegisterHandler struct {
	registrations *service.RegistrationService
	auth          *service.AuthService
	limiter       *ratelimit.Limiter
	rateCfg       config.RateLimitConfig
	mailCfg       config.MailConfig
}

// NewRegisterHandler constructs handler.
func NewRegisterHandler(registrations *service.RegistrationService, authService *service.AuthService, limiter *ratelimit.Limiter, rateCfg config.RateLimitConfig, mailCfg config.MailConfig) *RegisterHandler {
	return &RegisterHandler{
		registrations: registrations,
		auth:          authService,
		limiter:       limiter,
		rateCfg:       rateCfg,
		mailCfg:       mailCfg,
	}
}

// Register handles POST /register.
func (h *RegisterHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	input := service.SignupInput{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Password:     req.Password,
		IsSubscribed: req.IsSubscribed,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return apperrors.NewValidationError("invalid date_of_birth, expected YYYY-MM-DD", nil)
		}
		input.DateOfBirth = &dob
	}

	pending, err := h.registrations.SignupLocal(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"email":      pending.Email,
			"expires_at": pending.ExpiresAt,
			"status":     "verification email sent",
		},
	})
}

// RegisterProvider handles POST /register/:provider. Provider-verified
// identities skip staging, so this shares the provider login flow.
func (h *RegisterHandler) RegisterProvider(c *fiber.Ctx) error {
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

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"account": dto.NewAccountResponse(account),
			"session": dto.NewSessionResponse(access, refresh),
		},
	})
}

// Confirm handles GET /register/email/confirm?email&token. On success the
// session tokens are set as cookies and the caller is redirected to the
// configured success page; any failure redirects to the failure page.
func (h *RegisterHandler) Confirm(c *fiber.Ctx) error {
	email := c.Query("email")
	token := c.Query("token")
	if email == "" || token == "" {
		return h.confirmOutcome(c, nil, nil, apperrors.NewValidationError("email and token required", nil))
	}

	_, access, refresh, err := h.registrations.Confirm(c.UserContext(), email, token)
	if err != nil {
		return h.confirmOutcome(c, nil, nil, err)
	}

	setSessionCookie(c, auth.SessionCookieAccess, access)
	setSessionCookie(c, auth.SessionCookieRefresh, refresh)
	return h.confirmOutcome(c, access, refresh, nil)
}

// Decline handles GET /register/email/decline?email&token.
func (h *RegisterHandler) Decline(c *fiber.Ctx) error {
	email := c.Query("email")
	token := c.Query("token")
	if email == "" || token == "" {
		return apperrors.NewValidationError("email and token required", nil)
	}

	if err := h.registrations.Decline(c.UserContext(), email, token); err != nil {
		if h.mailCfg.ConfirmFailureURL != "" {
			return c.Redirect(h.mailCfg.ConfirmFailureURL, http.StatusFound)
		}
		return err
	}

	if h.mailCfg.ConfirmSuccessURL != "" {
		return c.Redirect(h.mailCfg.ConfirmSuccessURL, http.StatusFound)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "registration declined"}})
}

// Resend handles POST /register/email/resend.
func (h *RegisterHandler) Resend(c *fiber.Ctx) error {
	var req dto.ResendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	if h.rateCfg.Enabled && !h.limiter.Allow(c.UserContext(), "rl:resend:"+service.NormalizeEmail(req.Email), h.rateCfg.ResendMax, h.rateCfg.ResendWindow) {
		return apperrors.NewRateLimited("too many resend requests")
	}

	if err := h.registrations.Resend(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "verification email sent"}})
}

func (h *RegisterHandler) confirmOutcome(c *fiber.Ctx, access, refresh *domain.Token, err error) error {
	if err != nil {
		if h.mailCfg.ConfirmFailureURL != "" {
			return c.Redirect(h.mailCfg.ConfirmFailureURL, http.StatusFound)
		}
		return err
	}
	if h.mailCfg.ConfirmSuccessURL != "" {
		return c.Redirect(h.mailCfg.ConfirmSuccessURL, http.StatusFound)
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"status":  "registration confirmed",
			"session": dto.NewSessionResponse(access, refresh),
		},
	})
}

func setSessionCookie(c *fiber.Ctx, name string, token *domain.Token) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token.SignedValue,
		Expires:  token.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
