package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/agrisage/farm-auth/internal/model"
)

// TokenRepo persists refresh tokens.  The literal token string is the key;
// a row that is gone can never validate, which is what enforces single use.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token row.
func (r *TokenRepo) Store(ctx context.Context, t model.RefreshToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (token, user_id, created_at, expires_at) VALUES (?,?,?,?)",
		t.Token, t.UserID, toMillis(t.CreatedAt), toMillis(t.ExpiresAt))
	return err
}

// Find returns the stored row for a token string, or ErrNotFound.
func (r *TokenRepo) Find(ctx context.Context, token string) (model.RefreshToken, error) {
	var (
		t                    model.RefreshToken
		createdAt, expiresAt int64
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT token, user_id, created_at, expires_at FROM refresh_tokens WHERE token=? LIMIT 1",
		token).Scan(&t.Token, &t.UserID, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, ErrNotFound
		}
		return model.RefreshToken{}, err
	}
	t.CreatedAt = fromMillis(createdAt)
	t.ExpiresAt = fromMillis(expiresAt)
	return t, nil
}

// Consume deletes the token row and reports whether this call removed it.
// The single conditional DELETE is what makes rotation safe under two
// concurrent requests presenting the same token: exactly one caller sees
// true, the other gets false and must fail the exchange.
func (r *TokenRepo) Consume(ctx context.Context, token string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token=?", token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteAllForUser removes every refresh token owned by a user.
func (r *TokenRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}

// DeleteExpired purges rows whose expiry is in the past and returns how many
// were removed.  Called by the periodic sweep.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
