package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-service/internal/domain"
)

// AccountRepository defines persistence access for permanent accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// PromotePending inserts the account and deletes the staging record in
	// one transaction. Returns pgx.ErrNoRows when the staging record is
	// already gone (expired, swept, or claimed by a concurrent confirm),
	// in which case no account is created.
	PromotePending(ctx context.Context, account *domain.Account, pendingID string) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountInsertQuery = `
    INSERT INTO accounts
        (id, email, first_name, last_name, password_hash, date_of_birth, auth_provider, is_subscribed, is_vip, verified)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING created_at, updated_at`

const accountSelectColumns = `
    id, email, first_name, last_name, password_hash, date_of_birth,
    auth_provider, is_subscribed, is_vip, verified, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.pool.QueryRow(ctx, accountInsertQuery,
		account.ID,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PasswordHash,
		account.DateOfBirth,
		account.AuthProvider,
		account.IsSubscribed,
		account.IsVip,
		account.Verified,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET
            email=$1, first_name=$2, last_name=$3, password_hash=$4, date_of_birth=$5,
            auth_provider=$6, is_subscribed=$7, is_vip=$8, verified=$9, updated_at=NOW()
        WHERE id=$10`

	cmd, err := r.pool.Exec(ctx, query,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PasswordHash,
		account.DateOfBirth,
		account.AuthProvider,
		account.IsSubscribed,
		account.IsVip,
		account.Verified,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `SELECT` + accountSelectColumns + `
    FROM accounts WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `SELECT` + accountSelectColumns + `
    FROM accounts WHERE email=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *accountRepository) PromotePending(ctx context.Context, account *domain.Account, pendingID string) error {
	const deleteQuery = `
        DELETE FROM pending_registrations WHERE id=$1 AND expires_at > NOW()`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Claim the staging record first: a second concurrent confirm deletes
	// zero rows and never reaches the insert.
	cmd, err := tx.Exec(ctx, deleteQuery, pendingID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if err := tx.QueryRow(ctx, accountInsertQuery,
		account.ID,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PasswordHash,
		account.DateOfBirth,
		account.AuthProvider,
		account.IsSubscribed,
		account.IsVip,
		account.Verified,
	).Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *accountRepository) scanOne(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FirstName,
		&account.LastName,
		&account.PasswordHash,
		&account.DateOfBirth,
		&account.AuthProvider,
		&account.IsSubscribed,
		&account.IsVip,
		&account.Verified,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
