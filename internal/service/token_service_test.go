package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/domain"
)

func newTestTokenService(repo *fakeTokenRepo, opts ...TokenServiceOption) *TokenService {
	return NewTokenService(testAuthConfig(), repo, zap.NewNop(), opts...)
}

func TestIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	svc := newTestTokenService(repo)

	token, err := svc.Issue(ctx, domain.TokenKindAccess, "subject-1", domain.TokenExtra{Scope: []string{"api"}})
	require.NoError(t, err)
	require.NotEmpty(t, token.SignedValue)
	assert.Equal(t, domain.TokenKindAccess, token.Kind)
	assert.True(t, token.ExpiresAt.Sub(token.IssuedAt) == testAuthConfig().AccessTokenTTL)

	verified := svc.Verify(ctx, token.SignedValue, false)
	require.NotNil(t, verified)
	assert.Equal(t, token.ID, verified.ID)
	assert.Equal(t, "subject-1", verified.SubjectID)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(newFakeTokenRepo())

	assert.Nil(t, svc.Verify(ctx, "", false))
	assert.Nil(t, svc.Verify(ctx, "not-a-token", false))
	assert.Nil(t, svc.Verify(ctx, "aaaa.bbbb.cccc", false))
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	svc := newTestTokenService(repo)

	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = "some-other-secret"
	other := NewTokenService(otherCfg, repo, zap.NewNop())

	token, err := other.Issue(ctx, domain.TokenKindAccess, "subject-1", domain.TokenExtra{})
	require.NoError(t, err)

	// Record exists in the shared store but the signature does not check out.
	assert.Nil(t, svc.Verify(ctx, token.SignedValue, false))
}

func TestVerifyRejectsRevoked(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	svc := newTestTokenService(repo)

	token, err := svc.Issue(ctx, domain.TokenKindUnsubscribe, "subject-1", domain.TokenExtra{})
	require.NoError(t, err)
	require.NotNil(t, svc.Verify(ctx, token.SignedValue, false))

	require.NoError(t, svc.Revoke(ctx, token))
	assert.Nil(t, svc.Verify(ctx, token.SignedValue, false))
}

func TestVerifyRejectsExpired(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	past := time.Now().Add(-time.Hour)
	svc := newTestTokenService(repo, WithClock(func() time.Time { return past }))

	// Issued an hour ago with a 15m TTL: expired both in the signed value
	// and in the store.
	token, err := svc.Issue(ctx, domain.TokenKindAccess, "subject-1", domain.TokenExtra{})
	require.NoError(t, err)

	assert.Nil(t, svc.Verify(ctx, token.SignedValue, false))
	// Even ignoring the embedded expiry, the store no longer surfaces the row.
	assert.Nil(t, svc.Verify(ctx, token.SignedValue, true))
}

func TestIssueSessionLinksPair(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	svc := newTestTokenService(repo)

	access, refresh, err := svc.IssueSession(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TokenKindAccess, access.Kind)
	assert.Equal(t, domain.TokenKindRefresh, refresh.Kind)
	assert.Equal(t, access.SignedValue, refresh.Extra.LastAccessTokenValue)
	assert.Equal(t, []string{"api"}, access.Extra.Scope)
}

func TestRotateAccess(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	svc := newTestTokenService(repo)

	access1, refresh, err := svc.IssueSession(ctx, "subject-1")
	require.NoError(t, err)

	access2 := svc.RotateAccess(ctx, refresh.SignedValue, access1.SignedValue)
	require.NotNil(t, access2)
	assert.NotEqual(t, access1.SignedValue, access2.SignedValue)
	assert.Equal(t, "subject-1", access2.SubjectID)

	// The refresh record now points at the new value; the old one can no
	// longer drive a rotation.
	assert.Nil(t, svc.RotateAccess(ctx, refresh.SignedValue, access1.SignedValue))

	// The new value can.
	access3 := svc.RotateAccess(ctx, refresh.SignedValue, access2.SignedValue)
	require.NotNil(t, access3)
}

func TestRotateAccessLeavesOldAccessAlive(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	svc := newTestTokenService(repo)

	access1, refresh, err := svc.IssueSession(ctx, "subject-1")
	require.NoError(t, err)

	access2 := svc.RotateAccess(ctx, refresh.SignedValue, access1.SignedValue)
	require.NotNil(t, access2)

	// Rotation advances the pointer without revoking the previous access
	// token; it stays valid until its own expiry.
	assert.NotNil(t, svc.Verify(ctx, access1.SignedValue, false))
	assert.NotNil(t, svc.Verify(ctx, access2.SignedValue, false))
}

func TestRotateAccessRejectsRevokedRefresh(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	svc := newTestTokenService(repo)

	access, refresh, err := svc.IssueSession(ctx, "subject-1")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, refresh))
	before := repo.count()
	assert.Nil(t, svc.RotateAccess(ctx, refresh.SignedValue, access.SignedValue))
	// No orphaned access token left behind.
	assert.Equal(t, before, repo.count())
}

func TestRotateAccessRejectsAccessAsRefresh(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	svc := newTestTokenService(repo)

	access, _, err := svc.IssueSession(ctx, "subject-1")
	require.NoError(t, err)

	assert.Nil(t, svc.RotateAccess(ctx, access.SignedValue, access.SignedValue))
}

func TestRevokeValueAcceptsExpired(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	past := time.Now().Add(-time.Hour)
	expiredSvc := newTestTokenService(repo, WithClock(func() time.Time { return past }))

	token, err := expiredSvc.Issue(ctx, domain.TokenKindAccess, "subject-1", domain.TokenExtra{})
	require.NoError(t, err)

	svc := newTestTokenService(repo)
	// Must not panic or error; the record is already unreadable and the
	// revocation is a no-op.
	svc.RevokeValue(ctx, token.SignedValue)
	svc.RevokeValue(ctx, "garbage")
}

func TestRevokeKindForSubject(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	svc := newTestTokenService(repo)

	first, err := svc.Issue(ctx, domain.TokenKindEmailVerification, "pending-1", domain.TokenExtra{Email: "a@example.com"})
	require.NoError(t, err)
	second, err := svc.Issue(ctx, domain.TokenKindEmailVerification, "pending-1", domain.TokenExtra{Email: "a@example.com"})
	require.NoError(t, err)
	other, err := svc.Issue(ctx, domain.TokenKindUnsubscribe, "pending-1", domain.TokenExtra{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeKindForSubject(ctx, "pending-1", domain.TokenKindEmailVerification))

	assert.Nil(t, svc.Verify(ctx, first.SignedValue, false))
	assert.Nil(t, svc.Verify(ctx, second.SignedValue, false))
	assert.NotNil(t, svc.Verify(ctx, other.SignedValue, false))
}
