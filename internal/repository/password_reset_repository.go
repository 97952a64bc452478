package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// PasswordResetToken represents stored reset tokens.
type PasswordResetToken struct {
	ID          string
	Kind        domain.Kind
	PrincipalID string
	Token       string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// PasswordResetRepository manages password reset token persistence.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*PasswordResetToken, error)
	// MarkUsed consumes the token. It returns ErrNotFound when the token was
	// already used, so two concurrent confirmations cannot both succeed.
	MarkUsed(ctx context.Context, id string) error
	// DeleteExpired removes tokens that expired or were used before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository(pool *pgxpool.Pool) PasswordResetRepository {
	return &passwordResetRepository{pool: pool}
}

func (r *passwordResetRepository) Create(ctx context.Context, token *PasswordResetToken) error {
	const query = `
        INSERT INTO password_reset_tokens (principal_kind, principal_id, token, expires_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		token.Kind,
		token.PrincipalID,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	return mapError(err)
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, tokenStr string) (*PasswordResetToken, error) {
	const query = `
        SELECT id, principal_kind, principal_id, token, expires_at, used_at, created_at
        FROM password_reset_tokens WHERE token=$1`
	var token PasswordResetToken
	if err := r.pool.QueryRow(ctx, query, tokenStr).Scan(
		&token.ID,
		&token.Kind,
		&token.PrincipalID,
		&token.Token,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &token, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE password_reset_tokens SET used_at=NOW()
        WHERE id=$1 AND used_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *passwordResetRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
        DELETE FROM password_reset_tokens
        WHERE expires_at < $1 OR used_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, mapError(err)
	}
	return cmd.RowsAffected(), nil
}
