package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/provider"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// stubVerifier is a canned identity provider.
type stubVerifier struct {
	identity *provider.Identity
	err      error
	calls    int
}

func (v *stubVerifier) Verify(context.Context, string) (*provider.Identity, error) {
	v.calls++
	return v.identity, v.err
}

type authFixture struct {
	svc        *AuthService
	tokens     *TokenService
	accounts   *fakeAccountRepo
	registry   *provider.Registry
	dispatcher *recordingDispatcher
}

func newAuthFixture() *authFixture {
	cfg := testAuthConfig()
	tokenRepo := newFakeTokenRepo()
	pendings := newFakePendingRepo()
	accounts := newFakeAccountRepo(pendings)
	dispatcher := &recordingDispatcher{}
	tokens := NewTokenService(cfg, tokenRepo, zap.NewNop())
	registry := provider.NewRegistry(NewLocalAccessVerifier(tokens, accounts))

	svc := NewAuthService(cfg, AuthDependencies{
		AccountRepo:  accounts,
		TokenService: tokens,
		Providers:    registry,
		Dispatcher:   dispatcher,
	}, zap.NewNop())

	return &authFixture{
		svc:        svc,
		tokens:     tokens,
		accounts:   accounts,
		registry:   registry,
		dispatcher: dispatcher,
	}
}

func (f *authFixture) createLocalAccount(t *testing.T, email, password string) *domain.Account {
	t.Helper()
	hash, err := auth.HashPassword(password, testAuthConfig().BcryptCost)
	require.NoError(t, err)
	account := &domain.Account{
		ID:           "acct-" + email,
		Email:        email,
		FirstName:    "Alice",
		PasswordHash: hash,
		AuthProvider: domain.AuthProviderLocal,
		IsSubscribed: true,
		Verified:     true,
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))
	return account
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "UNAUTHORIZED", de.Code)
}

func TestLoginLocalSuccess(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	created := f.createLocalAccount(t, "alice@example.com", "s3cret-pass")

	account, access, refresh, err := f.svc.LoginLocal(ctx, "Alice@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	require.NotNil(t, f.tokens.Verify(ctx, access.SignedValue, false))
	require.NotNil(t, f.tokens.Verify(ctx, refresh.SignedValue, false))
}

func TestLoginLocalWrongPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.createLocalAccount(t, "alice@example.com", "s3cret-pass")

	account, access, refresh, err := f.svc.LoginLocal(ctx, "alice@example.com", "wrong")
	requireUnauthorized(t, err)
	assert.Nil(t, account)
	assert.Nil(t, access)
	assert.Nil(t, refresh)
}

func TestLoginLocalUnknownEmailSameFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.createLocalAccount(t, "alice@example.com", "s3cret-pass")

	_, _, _, wrongPass := f.svc.LoginLocal(ctx, "alice@example.com", "wrong")
	_, _, _, unknown := f.svc.LoginLocal(ctx, "nobody@example.com", "wrong")

	// The two failures are indistinguishable to the caller.
	requireUnauthorized(t, wrongPass)
	requireUnauthorized(t, unknown)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestLoginLocalRejectsProviderOnlyAccount(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	require.NoError(t, f.accounts.Create(ctx, &domain.Account{
		ID:           "acct-1",
		Email:        "alice@example.com",
		AuthProvider: domain.AuthProvider("google"),
		Verified:     true,
	}))

	_, _, _, err := f.svc.LoginLocal(ctx, "alice@example.com", "anything")
	requireUnauthorized(t, err)
}

func TestLoginProviderCreatesAccountOnce(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.registry.Register("google", &stubVerifier{identity: &provider.Identity{
		Email: "Alice@Example.com",
		Name:  "Alice",
	}})

	first, _, _, err := f.svc.LoginProvider(ctx, "google", "provider-credential")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", first.Email)
	assert.True(t, first.Verified)
	assert.Equal(t, domain.AuthProvider("google"), first.AuthProvider)

	second, access, _, err := f.svc.LoginProvider(ctx, "google", "provider-credential")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, f.tokens.Verify(ctx, access.SignedValue, false))
}

func TestLoginProviderRejectsInvalidCredential(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.registry.Register("google", &stubVerifier{identity: nil})

	_, _, _, err := f.svc.LoginProvider(ctx, "google", "bad-credential")
	requireUnauthorized(t, err)
}

func TestLoginProviderReportsOutage(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.registry.Register("google", &stubVerifier{err: errors.New("upstream timeout")})

	_, _, _, err := f.svc.LoginProvider(ctx, "google", "credential")
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "DEPENDENCY_FAILED", de.Code)
}

func TestLoginProviderFallbackExchangesLocalAccess(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	created := f.createLocalAccount(t, "alice@example.com", "s3cret-pass")

	_, access, _, err := f.svc.LoginLocal(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	// An unregistered provider name falls back to validating the credential
	// as one of our own access tokens.
	account, newAccess, _, err := f.svc.LoginProvider(ctx, "unknown-provider", access.SignedValue)
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	require.NotNil(t, f.tokens.Verify(ctx, newAccess.SignedValue, false))
}

func TestRefreshSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.createLocalAccount(t, "alice@example.com", "s3cret-pass")

	_, access, refresh, err := f.svc.LoginLocal(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	rotated, err := f.svc.RefreshSession(ctx, refresh.SignedValue, access.SignedValue)
	require.NoError(t, err)
	require.NotNil(t, f.tokens.Verify(ctx, rotated.SignedValue, false))

	_, err = f.svc.RefreshSession(ctx, refresh.SignedValue, access.SignedValue)
	requireUnauthorized(t, err)
}

func TestLogoutIsNotCascading(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.createLocalAccount(t, "alice@example.com", "s3cret-pass")

	_, access, refresh, err := f.svc.LoginLocal(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)

	// Revoking only the refresh token leaves the access token usable.
	f.svc.Logout(ctx, "", refresh.SignedValue)
	assert.Nil(t, f.tokens.Verify(ctx, refresh.SignedValue, false))
	assert.NotNil(t, f.tokens.Verify(ctx, access.SignedValue, false))

	f.svc.Logout(ctx, access.SignedValue, "")
	assert.Nil(t, f.tokens.Verify(ctx, access.SignedValue, false))
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.createLocalAccount(t, "alice@example.com", "old-pass")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))
	event, ok := f.dispatcher.lastOfType(events.EventPasswordResetRequested)
	require.True(t, ok)
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	require.True(t, ok)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, payload.TokenValue, "new-pass"))

	_, _, _, err := f.svc.LoginLocal(ctx, "alice@example.com", "old-pass")
	requireUnauthorized(t, err)
	_, _, _, err = f.svc.LoginLocal(ctx, "alice@example.com", "new-pass")
	require.NoError(t, err)

	// Single use.
	err = f.svc.ConfirmPasswordReset(ctx, payload.TokenValue, "again")
	requireUnauthorized(t, err)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	_, ok := f.dispatcher.lastOfType(events.EventPasswordResetRequested)
	assert.False(t, ok)
}

func TestPasswordResetRequestInvalidatesPriorToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.createLocalAccount(t, "alice@example.com", "old-pass")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))
	first, _ := f.dispatcher.lastOfType(events.EventPasswordResetRequested)
	firstPayload := first.Payload.(events.PasswordResetRequestedPayload)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))
	second, _ := f.dispatcher.lastOfType(events.EventPasswordResetRequested)
	secondPayload := second.Payload.(events.PasswordResetRequestedPayload)

	require.NotEqual(t, firstPayload.TokenValue, secondPayload.TokenValue)
	err := f.svc.ConfirmPasswordReset(ctx, firstPayload.TokenValue, "new-pass")
	requireUnauthorized(t, err)
	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, secondPayload.TokenValue, "new-pass"))
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	account := f.createLocalAccount(t, "alice@example.com", "s3cret-pass")

	token, err := f.tokens.Issue(ctx, domain.TokenKindUnsubscribe, account.ID, domain.TokenExtra{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Unsubscribe(ctx, token.SignedValue))

	stored, err := f.accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsSubscribed)

	// Token is consumed.
	err = f.svc.Unsubscribe(ctx, token.SignedValue)
	requireUnauthorized(t, err)
}

func TestUnsubscribeRejectsWrongKind(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	account := f.createLocalAccount(t, "alice@example.com", "s3cret-pass")

	access, _, err := f.tokens.IssueSession(ctx, account.ID)
	require.NoError(t, err)

	err = f.svc.Unsubscribe(ctx, access.SignedValue)
	requireUnauthorized(t, err)
	stored, err := f.accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSubscribed)
}
