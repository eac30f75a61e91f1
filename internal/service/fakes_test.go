package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
)

// In-memory repository fakes mirroring the Postgres semantics the services
// rely on: expired rows are unreadable, signed values are unique, the
// rotation pointer update is a compare-and-swap, and promotion claims the
// staging record before creating the account.

type fakeTokenRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byID: make(map[string]*domain.Token)}
}

func (r *fakeTokenRepo) Insert(_ context.Context, token *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.SignedValue == token.SignedValue {
			return errors.New("duplicate signed value")
		}
	}
	token.CreatedAt = time.Now()
	cp := *token
	r.byID[token.ID] = &cp
	return nil
}

func (r *fakeTokenRepo) GetBySignedValue(_ context.Context, signedValue string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.byID {
		if token.SignedValue == signedValue && token.ExpiresAt.After(time.Now()) {
			cp := *token
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTokenRepo) GetByID(_ context.Context, id string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.byID[id]
	if !ok || !token.ExpiresAt.After(time.Now()) {
		return nil, pgx.ErrNoRows
	}
	cp := *token
	return &cp, nil
}

func (r *fakeTokenRepo) Update(_ context.Context, token *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[token.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *token
	r.byID[token.ID] = &cp
	return nil
}

func (r *fakeTokenRepo) UpdateRotationPointer(_ context.Context, id, previousValue, newValue string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.byID[id]
	if !ok || token.Kind != domain.TokenKindRefresh || !token.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	if token.Extra.LastAccessTokenValue != previousValue {
		return false, nil
	}
	token.Extra.LastAccessTokenValue = newValue
	return true, nil
}

func (r *fakeTokenRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakeTokenRepo) DeleteBySubjectAndKind(_ context.Context, subjectID string, kind domain.TokenKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, token := range r.byID {
		if token.SubjectID == subjectID && token.Kind == kind {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *fakeTokenRepo) PurgeExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for id, token := range r.byID {
		if !token.ExpiresAt.After(time.Now()) {
			delete(r.byID, id)
			purged++
		}
	}
	return purged, nil
}

func (r *fakeTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type fakePendingRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.PendingRegistration
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{byEmail: make(map[string]*domain.PendingRegistration)}
}

func (r *fakePendingRepo) Upsert(_ context.Context, pending *domain.PendingRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if existing, ok := r.byEmail[pending.Email]; ok {
		pending.ID = existing.ID
		pending.CreatedAt = existing.CreatedAt
	} else {
		pending.CreatedAt = now
	}
	pending.UpdatedAt = now
	cp := *pending
	r.byEmail[pending.Email] = &cp
	return nil
}

func (r *fakePendingRepo) GetByEmail(_ context.Context, email string) (*domain.PendingRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending, ok := r.byEmail[email]
	if !ok || !pending.ExpiresAt.After(time.Now()) {
		return nil, pgx.ErrNoRows
	}
	cp := *pending
	return &cp, nil
}

func (r *fakePendingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, pending := range r.byEmail {
		if pending.ID == id {
			delete(r.byEmail, email)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakePendingRepo) PurgeExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for email, pending := range r.byEmail {
		if !pending.ExpiresAt.After(time.Now()) {
			delete(r.byEmail, email)
			purged++
		}
	}
	return purged, nil
}

func (r *fakePendingRepo) expire(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pending, ok := r.byEmail[email]; ok {
		pending.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.Account
	pendings *fakePendingRepo
}

func newFakeAccountRepo(pendings *fakePendingRepo) *fakeAccountRepo {
	return &fakeAccountRepo{byID: make(map[string]*domain.Account), pendings: pendings}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == account.Email {
			return errors.New("duplicate email")
		}
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	cp := *account
	r.byID[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	account.UpdatedAt = time.Now()
	cp := *account
	r.byID[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *account
	return &cp, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.byID {
		if account.Email == email {
			cp := *account
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) PromotePending(ctx context.Context, account *domain.Account, pendingID string) error {
	// Claim the staging record first, as the transactional implementation does.
	if err := r.pendings.Delete(ctx, pendingID); err != nil {
		return err
	}
	return r.Create(ctx, account)
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:              "test-secret",
		AccessTokenTTL:         15 * time.Minute,
		RefreshTokenTTL:        30 * 24 * time.Hour,
		EmailVerificationTTL:   24 * time.Hour,
		PasswordChangeTTL:      30 * time.Minute,
		UnsubscribeTTL:         24 * time.Hour,
		PendingRegistrationTTL: 24 * time.Hour,
		BcryptCost:             4,
	}
}
