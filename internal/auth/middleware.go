package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

const principalKey = "auth_principal"

// TokenVerifier checks a presented credential against both its signature
// and the token store. A nil result means the value is invalid, expired,
// revoked, or unknown; callers never learn which.
type TokenVerifier interface {
	Verify(ctx context.Context, signedValue string, ignoreExpiry bool) *domain.Token
}

// Principal represents the authenticated caller.
type Principal struct {
	Account *domain.Account
	Token   *domain.Token
}

// Middleware validates bearer access tokens and loads the account principal.
type Middleware struct {
	verifier TokenVerifier
	accounts repository.AccountRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(verifier TokenVerifier, accounts repository.AccountRepository) *Middleware {
	return &Middleware{verifier: verifier, accounts: accounts}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	value := TokenFromRequest(c, "", SessionCookieAccess)
	if value == "" {
		return apperrors.NewUnauthorized("missing credentials")
	}

	token := m.verifier.Verify(c.UserContext(), value, false)
	if token == nil || token.Kind != domain.TokenKindAccess {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.GetByID(c.UserContext(), token.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("invalid token")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{Account: account, Token: token})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
