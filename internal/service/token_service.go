package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

// TokenService issues, verifies, rotates and revokes signed credentials.
// The signed value is self-describing but the store stays authoritative:
// deleting a record revokes the credential before its cryptographic expiry.
type TokenService struct {
	signer *auth.Signer
	tokens repository.TokenRepository
	cfg    config.AuthConfig
	logger *zap.Logger
	now    func() time.Time
}

// TokenServiceOption customizes construction.
type TokenServiceOption func(*TokenService)

// WithClock injects a custom time source, useful for tests.
func WithClock(clock func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewTokenService builds the service.
func NewTokenService(cfg config.AuthConfig, tokens repository.TokenRepository, logger *zap.Logger, opts ...TokenServiceOption) *TokenService {
	s := &TokenService{
		signer: auth.NewSigner(cfg.JWTSecret),
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a credential of the given kind for the subject and persists
// its companion record. The embedded exp and the stored expires_at denote
// the same second.
func (s *TokenService) Issue(ctx context.Context, kind domain.TokenKind, subjectID string, extra domain.TokenExtra) (*domain.Token, error) {
	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(s.ttlFor(kind))

	id := uuid.NewString()
	claims := auth.NewClaims(kind, id, subjectID, now, expiresAt, extra)
	signed, err := s.signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	token := &domain.Token{
		ID:          id,
		SubjectID:   subjectID,
		Kind:        kind,
		SignedValue: signed,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
		Extra:       extra,
	}
	if err := s.tokens.Insert(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// IssueSession mints an access/refresh pair for the subject. The refresh
// record tracks the access token's signed value as its rotation pointer.
func (s *TokenService) IssueSession(ctx context.Context, subjectID string) (access, refresh *domain.Token, err error) {
	access, err = s.Issue(ctx, domain.TokenKindAccess, subjectID, domain.TokenExtra{Scope: []string{"api"}})
	if err != nil {
		return nil, nil, err
	}

	refresh, err = s.Issue(ctx, domain.TokenKindRefresh, subjectID, domain.TokenExtra{
		LastAccessTokenValue: access.SignedValue,
	})
	if err != nil {
		return nil, nil, err
	}
	return access, refresh, nil
}

// Verify checks a presented credential in two phases: the signature and
// (unless ignoreExpiry) the embedded expiry first, using only cryptographic
// material; then the store, so a revoked or already-consumed value fails
// even while cryptographically valid. It never returns an error: anything
// short of a fully valid credential, including a storage fault, degrades
// to nil and the caller treats the value as invalid.
func (s *TokenService) Verify(ctx context.Context, signedValue string, ignoreExpiry bool) *domain.Token {
	if signedValue == "" {
		return nil
	}

	claims, err := s.signer.Parse(signedValue, ignoreExpiry)
	if err != nil {
		return nil
	}

	token, err := s.tokens.GetBySignedValue(ctx, signedValue)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("token store lookup failed", zap.Error(err))
		}
		return nil
	}
	if token.Kind != claims.Kind || token.SubjectID != claims.Subject {
		return nil
	}
	return token
}

// RotateAccess exchanges a refresh credential plus the access credential it
// most recently issued for a new access credential. Strict single-slot
// rotation: only the latest access value can refresh; any failed guard
// returns nil with no indication of which condition failed.
func (s *TokenService) RotateAccess(ctx context.Context, refreshValue, presentedAccessValue string) *domain.Token {
	refresh := s.Verify(ctx, refreshValue, false)
	if refresh == nil || refresh.Kind != domain.TokenKindRefresh {
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(refresh.Extra.LastAccessTokenValue), []byte(presentedAccessValue)) != 1 {
		return nil
	}

	access, err := s.Issue(ctx, domain.TokenKindAccess, refresh.SubjectID, domain.TokenExtra{Scope: []string{"api"}})
	if err != nil {
		s.logger.Warn("rotation: issue access failed", zap.Error(err))
		return nil
	}

	ok, err := s.tokens.UpdateRotationPointer(ctx, refresh.ID, presentedAccessValue, access.SignedValue)
	if err != nil || !ok {
		// Lost the race (or the refresh record vanished): discard the
		// access token we just minted so it never becomes usable.
		if delErr := s.tokens.Delete(ctx, access.ID); delErr != nil {
			s.logger.Warn("rotation: discard orphaned access failed", zap.Error(delErr))
		}
		if err != nil {
			s.logger.Warn("rotation: pointer update failed", zap.Error(err))
		}
		return nil
	}
	return access
}

// Revoke deletes the store record. The signed value stays cryptographically
// intact until its embedded expiry but Verify rejects it from now on.
func (s *TokenService) Revoke(ctx context.Context, token *domain.Token) error {
	return s.tokens.Delete(ctx, token.ID)
}

// RevokeValue revokes whatever record backs the presented value. Expired
// values are accepted: revoking them is a harmless no-op.
func (s *TokenService) RevokeValue(ctx context.Context, signedValue string) {
	token := s.Verify(ctx, signedValue, true)
	if token == nil {
		return
	}
	if err := s.tokens.Delete(ctx, token.ID); err != nil {
		s.logger.Warn("revoke failed", zap.String("token_id", token.ID), zap.Error(err))
	}
}

// RevokeKindForSubject deletes every record of the kind owned by the
// subject. Used to invalidate prior verification tokens on resend.
func (s *TokenService) RevokeKindForSubject(ctx context.Context, subjectID string, kind domain.TokenKind) error {
	return s.tokens.DeleteBySubjectAndKind(ctx, subjectID, kind)
}

func (s *TokenService) ttlFor(kind domain.TokenKind) time.Duration {
	switch kind {
	case domain.TokenKindAccess:
		return s.cfg.AccessTokenTTL
	case domain.TokenKindRefresh:
		return s.cfg.RefreshTokenTTL
	case domain.TokenKindEmailVerification:
		return s.cfg.EmailVerificationTTL
	case domain.TokenKindPasswordChange:
		return s.cfg.PasswordChangeTTL
	case domain.TokenKindUnsubscribe:
		return s.cfg.UnsubscribeTTL
	default:
		return s.cfg.AccessTokenTTL
	}
}
