package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-service/internal/domain"
)

// TokenRepository persists issued credentials of every kind in one table so
// signed-value uniqueness holds globally. Reads exclude rows whose expiry
// has passed even before the sweeper removes them.
type TokenRepository interface {
	Insert(ctx context.Context, token *domain.Token) error
	GetBySignedValue(ctx context.Context, signedValue string) (*domain.Token, error)
	GetByID(ctx context.Context, id string) (*domain.Token, error)
	Update(ctx context.Context, token *domain.Token) error
	// UpdateRotationPointer atomically advances a refresh token's
	// last-access pointer, succeeding only when the stored pointer still
	// equals previousValue.
	UpdateRotationPointer(ctx context.Context, id, previousValue, newValue string) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteBySubjectAndKind(ctx context.Context, subjectID string, kind domain.TokenKind) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type tokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a Postgres-backed implementation.
func NewTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepository{pool: pool}
}

func (r *tokenRepository) Insert(ctx context.Context, token *domain.Token) error {
	const query = `
        INSERT INTO tokens (id, subject_id, kind, signed_value, extra, issued_at, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`

	extra, err := json.Marshal(token.Extra)
	if err != nil {
		return fmt.Errorf("marshal token extra: %w", err)
	}

	return r.pool.QueryRow(ctx, query,
		token.ID,
		token.SubjectID,
		token.Kind,
		token.SignedValue,
		extra,
		token.IssuedAt,
		token.ExpiresAt,
	).Scan(&token.CreatedAt)
}

func (r *tokenRepository) GetBySignedValue(ctx context.Context, signedValue string) (*domain.Token, error) {
	const query = `
        SELECT id, subject_id, kind, signed_value, extra, issued_at, expires_at, created_at
        FROM tokens WHERE signed_value=$1 AND expires_at > NOW()`

	return r.scanOne(r.pool.QueryRow(ctx, query, signedValue))
}

func (r *tokenRepository) GetByID(ctx context.Context, id string) (*domain.Token, error) {
	const query = `
        SELECT id, subject_id, kind, signed_value, extra, issued_at, expires_at, created_at
        FROM tokens WHERE id=$1 AND expires_at > NOW()`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *tokenRepository) Update(ctx context.Context, token *domain.Token) error {
	const query = `
        UPDATE tokens SET extra=$1, expires_at=$2
        WHERE id=$3`

	extra, err := json.Marshal(token.Extra)
	if err != nil {
		return fmt.Errorf("marshal token extra: %w", err)
	}

	cmd, err := r.pool.Exec(ctx, query, extra, token.ExpiresAt, token.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *tokenRepository) UpdateRotationPointer(ctx context.Context, id, previousValue, newValue string) (bool, error) {
	// Conditional write keyed on the previous pointer value so two
	// concurrent refreshes cannot both succeed.
	const query = `
        UPDATE tokens
        SET extra = jsonb_set(extra, '{last_access_token_value}', to_jsonb($1::text))
        WHERE id=$2
          AND kind=$3
          AND expires_at > NOW()
          AND extra->>'last_access_token_value' = $4`

	cmd, err := r.pool.Exec(ctx, query, newValue, id, domain.TokenKindRefresh, previousValue)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *tokenRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tokens WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *tokenRepository) DeleteBySubjectAndKind(ctx context.Context, subjectID string, kind domain.TokenKind) error {
	const query = `DELETE FROM tokens WHERE subject_id=$1 AND kind=$2`
	_, err := r.pool.Exec(ctx, query, subjectID, kind)
	return err
}

func (r *tokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM tokens WHERE expires_at <= NOW()`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *tokenRepository) scanOne(row pgx.Row) (*domain.Token, error) {
	var (
		token domain.Token
		extra []byte
	)
	if err := row.Scan(
		&token.ID,
		&token.SubjectID,
		&token.Kind,
		&token.SignedValue,
		&extra,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &token.Extra); err != nil {
			return nil, fmt.Errorf("unmarshal token extra: %w", err)
		}
	}
	return &token, nil
}
