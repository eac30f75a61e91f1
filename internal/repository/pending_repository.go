package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-service/internal/domain"
)

// PendingRepository manages the staging area for unconfirmed signups.
type PendingRepository interface {
	// Upsert creates the staging record or, when one already exists for
	// the email, overwrites its fields in place and resets the TTL. The
	// record keeps its original id across upserts.
	Upsert(ctx context.Context, pending *domain.PendingRegistration) error
	GetByEmail(ctx context.Context, email string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type pendingRepository struct {
	pool *pgxpool.Pool
}

// NewPendingRepository returns a Postgres-backed implementation.
func NewPendingRepository(pool *pgxpool.Pool) PendingRepository {
	return &pendingRepository{pool: pool}
}

func (r *pendingRepository) Upsert(ctx context.Context, pending *domain.PendingRegistration) error {
	const query = `
        INSERT INTO pending_registrations
            (id, email, first_name, last_name, password_hash, date_of_birth, is_subscribed, auth_provider, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (email) DO UPDATE SET
            first_name=EXCLUDED.first_name,
            last_name=EXCLUDED.last_name,
            password_hash=EXCLUDED.password_hash,
            date_of_birth=EXCLUDED.date_of_birth,
            is_subscribed=EXCLUDED.is_subscribed,
            auth_provider=EXCLUDED.auth_provider,
            expires_at=EXCLUDED.expires_at,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		pending.ID,
		pending.Email,
		pending.FirstName,
		pending.LastName,
		pending.PasswordHash,
		pending.DateOfBirth,
		pending.IsSubscribed,
		pending.AuthProvider,
		pending.ExpiresAt,
	).Scan(&pending.ID, &pending.CreatedAt, &pending.UpdatedAt)
}

func (r *pendingRepository) GetByEmail(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	const query = `
        SELECT id, email, first_name, last_name, password_hash, date_of_birth,
               is_subscribed, auth_provider, expires_at, created_at, updated_at
        FROM pending_registrations WHERE email=$1 AND expires_at > NOW()`

	var pending domain.PendingRegistration
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&pending.ID,
		&pending.Email,
		&pending.FirstName,
		&pending.LastName,
		&pending.PasswordHash,
		&pending.DateOfBirth,
		&pending.IsSubscribed,
		&pending.AuthProvider,
		&pending.ExpiresAt,
		&pending.CreatedAt,
		&pending.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *pendingRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM pending_registrations WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pendingRepository) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM pending_registrations WHERE expires_at <= NOW()`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
