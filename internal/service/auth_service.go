package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/provider"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// AuthService coordinates login, session and credential flows over the
// token service.
type AuthService struct {
	accounts   repository.AccountRepository
	tokens     *TokenService
	providers  *provider.Registry
	dispatcher events.Dispatcher
	cfg        config.AuthConfig
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborator requirements.
type AuthDependencies struct {
	AccountRepo  repository.AccountRepository
	TokenService *TokenService
	Providers    *provider.Registry
	Dispatcher   events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies, logger *zap.Logger) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		tokens:     deps.TokenService,
		providers:  deps.Providers,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// errInvalidCredentials is the single user-facing failure for login: the
// body never reveals whether the email or the password was wrong.
func errInvalidCredentials() error {
	return apperrors.NewUnauthorized("invalid credentials")
}

// LoginLocal authenticates a password-based account and opens a session.
func (s *AuthService) LoginLocal(ctx context.Context, email, password string) (*domain.Account, *domain.Token, *domain.Token, error) {
	account, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil, errInvalidCredentials()
		}
		return nil, nil, nil, err
	}
	if account.PasswordHash == "" {
		return nil, nil, nil, errInvalidCredentials()
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, nil, nil, errInvalidCredentials()
	}

	access, refresh, err := s.tokens.IssueSession(ctx, account.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return account, access, refresh, nil
}

// LoginProvider delegates the raw credential to the verifier registered for
// the provider (the fallback entry validates it as a local access token),
// then looks up or creates the account. Provider-verified identity is
// trusted immediately: no staging phase.
func (s *AuthService) LoginProvider(ctx context.Context, providerName, rawToken string) (*domain.Account, *domain.Token, *domain.Token, error) {
	verifier := s.providers.Lookup(providerName)
	identity, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, nil, nil, apperrors.NewDependencyError("identity provider", err)
	}
	if identity == nil || identity.Email == "" {
		return nil, nil, nil, errInvalidCredentials()
	}

	email := NormalizeEmail(identity.Email)
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil, err
		}
		account = &domain.Account{
			ID:           uuid.NewString(),
			Email:        email,
			FirstName:    identity.Name,
			AuthProvider: domain.AuthProvider(providerName),
			Verified:     true,
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, nil, nil, err
		}
	}

	access, refresh, err := s.tokens.IssueSession(ctx, account.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return account, access, refresh, nil
}

// VerifyToken resolves a presented value to its live store record, or nil.
func (s *AuthService) VerifyToken(ctx context.Context, value string) *domain.Token {
	return s.tokens.Verify(ctx, value, false)
}

// RefreshSession performs the single-slot rotation. Any failure is reported
// as a generic invalid-token outcome.
func (s *AuthService) RefreshSession(ctx context.Context, refreshValue, accessValue string) (*domain.Token, error) {
	access := s.tokens.RotateAccess(ctx, refreshValue, accessValue)
	if access == nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	return access, nil
}

// Logout revokes whichever of the presented values are set. Revocation does
// not cascade between paired tokens: each lifecycle is independent.
func (s *AuthService) Logout(ctx context.Context, accessValue, refreshValue string) {
	if accessValue != "" {
		s.tokens.RevokeValue(ctx, accessValue)
	}
	if refreshValue != "" {
		s.tokens.RevokeValue(ctx, refreshValue)
	}
}

// RequestPasswordReset issues a password-change token when the email is
// registered. It reports success either way so the endpoint cannot be used
// to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	if err := s.tokens.RevokeKindForSubject(ctx, account.ID, domain.TokenKindPasswordChange); err != nil {
		return err
	}
	token, err := s.tokens.Issue(ctx, domain.TokenKindPasswordChange, account.ID, domain.TokenExtra{Email: email})
	if err != nil {
		return err
	}

	s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPasswordResetRequested,
		Email:     email,
		Timestamp: time.Now(),
		Payload: events.PasswordResetRequestedPayload{
			FirstName:  account.FirstName,
			TokenValue: token.SignedValue,
		},
	})
	return nil
}

// ConfirmPasswordReset validates the single-use password-change token and
// updates the account's hash.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenValue, newPassword string) error {
	token := s.tokens.Verify(ctx, tokenValue, false)
	if token == nil || token.Kind != domain.TokenKindPasswordChange {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := s.accounts.GetByID(ctx, token.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("invalid token")
		}
		return err
	}

	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Warn("revoke password-change token failed", zap.Error(err))
	}
	return nil
}

// Unsubscribe consumes an unsubscribe token and turns off the account's
// subscription flag.
func (s *AuthService) Unsubscribe(ctx context.Context, tokenValue string) error {
	token := s.tokens.Verify(ctx, tokenValue, false)
	if token == nil || token.Kind != domain.TokenKindUnsubscribe {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := s.accounts.GetByID(ctx, token.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("invalid token")
		}
		return err
	}

	account.IsSubscribed = false
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Warn("revoke unsubscribe token failed", zap.Error(err))
	}
	return nil
}

// TokenService exposes the underlying token service for middleware usage.
func (s *AuthService) TokenService() *TokenService {
	return s.tokens
}

// LocalAccessVerifier adapts the token service into the provider registry's
// fallback entry: it treats the presented value as a local access token and
// reports the owning account's identity.
type LocalAccessVerifier struct {
	tokens   *TokenService
	accounts repository.AccountRepository
}

// NewLocalAccessVerifier builds the fallback verifier.
func NewLocalAccessVerifier(tokens *TokenService, accounts repository.AccountRepository) *LocalAccessVerifier {
	return &LocalAccessVerifier{tokens: tokens, accounts: accounts}
}

// Verify implements provider.Verifier.
func (v *LocalAccessVerifier) Verify(ctx context.Context, rawToken string) (*provider.Identity, error) {
	token := v.tokens.Verify(ctx, rawToken, false)
	if token == nil || token.Kind != domain.TokenKindAccess {
		return nil, nil
	}
	account, err := v.accounts.GetByID(ctx, token.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &provider.Identity{
		Email: account.Email,
		Name:  account.FirstName,
	}, nil
}
