package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AnriTapel/logitrades/internal/domain"
)

type TokenRepo struct {
	db *sqlx.DB
}

func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) CreateRefresh(ctx context.Context, t *domain.RefreshToken) error {
	t.ID = uuid.New()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		t.ID, t.UserID, t.Token, t.ExpiresAt).
		Scan(&t.CreatedAt)
	return translate(err, "create refresh token")
}

// GetActiveRefresh returns a stored refresh token that is neither revoked nor expired.
func (r *TokenRepo) GetActiveRefresh(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.GetContext(ctx, &t, `
		SELECT * FROM refresh_tokens
		WHERE token = $1 AND NOT revoked AND expires_at > NOW()`, token)
	if err != nil {
		return nil, translate(err, "get refresh token")
	}
	return &t, nil
}

func (r *TokenRepo) RevokeRefresh(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return translate(err, "revoke refresh token")
}

func (r *TokenRepo) RevokeAllRefresh(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	return translate(err, "revoke refresh tokens")
}

// ReplaceOneTime invalidates earlier unused tokens of the same kind and stores t.
func (r *TokenRepo) ReplaceOneTime(ctx context.Context, t *domain.OneTimeToken) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE one_time_tokens SET used = TRUE
		WHERE user_id = $1 AND kind = $2 AND NOT used`, t.UserID, t.Kind); err != nil {
		return translate(err, "invalidate one-time tokens")
	}

	t.ID = uuid.New()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO one_time_tokens (id, user_id, kind, token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		t.ID, t.UserID, t.Kind, t.Token, t.ExpiresAt).
		Scan(&t.CreatedAt)
	if err != nil {
		return translate(err, "create one-time token")
	}
	return tx.Commit()
}

// GetUnusedOneTime looks a token up regardless of expiry so callers can tell
// an expired link from an unknown one.
func (r *TokenRepo) GetUnusedOneTime(ctx context.Context, kind domain.TokenKind, token string) (*domain.OneTimeToken, error) {
	var t domain.OneTimeToken
	err := r.db.GetContext(ctx, &t, `
		SELECT * FROM one_time_tokens
		WHERE token = $1 AND kind = $2 AND NOT used`, token, kind)
	if err != nil {
		return nil, translate(err, "get one-time token")
	}
	return &t, nil
}

func (r *TokenRepo) MarkOneTimeUsed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE one_time_tokens SET used = TRUE WHERE id = $1 AND NOT used`, id)
	if err != nil {
		return translate(err, "use one-time token")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return translate(sql.ErrNoRows, "use one-time token")
	}
	return nil
}
