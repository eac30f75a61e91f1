package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// SignupInput is a local signup request after transport-level parsing.
type SignupInput struct {
	Email        string
	FirstName    string
	LastName     string
	Password     string
	DateOfBirth  *time.Time
	IsSubscribed bool
}

// RegistrationService drives the staging lifecycle: signup holds the user
// in a time-limited pending record, confirmation promotes it to a
// permanent account, decline or expiry purges it.
type RegistrationService struct {
	accounts   repository.AccountRepository
	pendings   repository.PendingRepository
	tokens     *TokenService
	dispatcher events.Dispatcher
	cfg        config.AuthConfig
	logger     *zap.Logger
	now        func() time.Time
}

// RegistrationDependencies encapsulates collaborator requirements.
type RegistrationDependencies struct {
	AccountRepo  repository.AccountRepository
	PendingRepo  repository.PendingRepository
	TokenService *TokenService
	Dispatcher   events.Dispatcher
}

// NewRegistrationService builds the service.
func NewRegistrationService(cfg config.AuthConfig, deps RegistrationDependencies, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{
		accounts:   deps.AccountRepo,
		pendings:   deps.PendingRepo,
		tokens:     deps.TokenService,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// SignupLocal stages a password-based registration and issues a
// verification token for the email. A repeated signup before confirmation
// updates the staging record in place: re-submitting with a corrected field
// must not be blocked.
func (s *RegistrationService) SignupLocal(ctx context.Context, input SignupInput) (*domain.PendingRegistration, error) {
	email := NormalizeEmail(input.Email)

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	pending := &domain.PendingRegistration{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
		DateOfBirth:  input.DateOfBirth,
		IsSubscribed: input.IsSubscribed,
		AuthProvider: domain.AuthProviderLocal,
		ExpiresAt:    s.now().Add(s.cfg.PendingRegistrationTTL),
	}
	if err := s.pendings.Upsert(ctx, pending); err != nil {
		return nil, err
	}

	if err := s.issueVerification(ctx, pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// Confirm promotes a staged registration to a permanent account. The token
// must verify, its embedded email must match the presented email exactly,
// and the staging record must still exist; otherwise nothing is created.
func (s *RegistrationService) Confirm(ctx context.Context, email, tokenValue string) (*domain.Account, *domain.Token, *domain.Token, error) {
	email = NormalizeEmail(email)

	token := s.verifyEmailToken(ctx, email, tokenValue)
	if token == nil {
		return nil, nil, nil, apperrors.NewUnauthorized("invalid token")
	}

	pending, err := s.pendings.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil, apperrors.NewNotFound("pending registration", nil)
		}
		return nil, nil, nil, err
	}

	account := pending.ToAccount()
	account.ID = uuid.NewString()
	if err := s.accounts.PromotePending(ctx, account, pending.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Raced with another confirm or the sweep.
			return nil, nil, nil, apperrors.NewNotFound("pending registration", nil)
		}
		return nil, nil, nil, err
	}

	// Verification tokens are single use.
	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Warn("revoke verification token failed", zap.Error(err))
	}

	access, refresh, err := s.tokens.IssueSession(ctx, account.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	s.publishPromoted(ctx, account)
	return account, access, refresh, nil
}

// Decline validates the same way Confirm does, then purges the staging
// record without creating an account.
func (s *RegistrationService) Decline(ctx context.Context, email, tokenValue string) error {
	email = NormalizeEmail(email)

	token := s.verifyEmailToken(ctx, email, tokenValue)
	if token == nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	pending, err := s.pendings.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("pending registration", nil)
		}
		return err
	}

	if err := s.pendings.Delete(ctx, pending.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Warn("revoke verification token failed", zap.Error(err))
	}

	s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventRegistrationDeclined,
		Email:     email,
		Timestamp: s.now(),
	})
	return nil
}

// Resend issues a fresh verification token for an existing staging record,
// invalidating prior unconsumed ones first. No other staged field changes.
func (s *RegistrationService) Resend(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	pending, err := s.pendings.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("pending registration", nil)
		}
		return err
	}

	return s.issueVerification(ctx, pending)
}

func (s *RegistrationService) issueVerification(ctx context.Context, pending *domain.PendingRegistration) error {
	if err := s.tokens.RevokeKindForSubject(ctx, pending.ID, domain.TokenKindEmailVerification); err != nil {
		return err
	}

	token, err := s.tokens.Issue(ctx, domain.TokenKindEmailVerification, pending.ID, domain.TokenExtra{
		Email: pending.Email,
	})
	if err != nil {
		return err
	}

	s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventVerificationRequested,
		Email:     pending.Email,
		Timestamp: s.now(),
		Payload: events.VerificationRequestedPayload{
			FirstName:  pending.FirstName,
			TokenValue: token.SignedValue,
		},
	})
	return nil
}

// verifyEmailToken checks kind and the exact email binding, guarding
// against a token/email swap.
func (s *RegistrationService) verifyEmailToken(ctx context.Context, email, tokenValue string) *domain.Token {
	token := s.tokens.Verify(ctx, tokenValue, false)
	if token == nil || token.Kind != domain.TokenKindEmailVerification {
		return nil
	}
	if token.Extra.Email != email {
		return nil
	}
	return token
}

func (s *RegistrationService) publishPromoted(ctx context.Context, account *domain.Account) {
	payload := events.AccountPromotedPayload{
		AccountID: account.ID,
		FirstName: account.FirstName,
	}
	if account.IsSubscribed {
		unsub, err := s.tokens.Issue(ctx, domain.TokenKindUnsubscribe, account.ID, domain.TokenExtra{})
		if err != nil {
			s.logger.Warn("issue unsubscribe token failed", zap.Error(err))
		} else {
			payload.UnsubscribeTokenValue = unsub.SignedValue
		}
	}

	s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccountPromoted,
		Email:     account.Email,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// NormalizeEmail lower-cases and trims an address for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
