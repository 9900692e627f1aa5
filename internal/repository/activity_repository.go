package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/agrisage/farm-auth/internal/model"
)

// ActivityRepo persists synced client activities.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// InsertBatch stores a batch of activities in one transaction so a partial
// sync never happens.
func (r *ActivityRepo) InsertBatch(ctx context.Context, acts []model.Activity) error {
	if len(acts) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range acts {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		if a.Payload == "" {
			a.Payload = "{}"
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO activities (id, user_id, type, points, payload, created_at) VALUES (?,?,?,?,?,?)",
			a.ID, a.UserID, a.Type, a.Points, a.Payload, toMillis(a.CreatedAt)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByUser returns the user's most recent activities, newest first.
func (r *ActivityRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, type, points, payload, created_at FROM activities WHERE user_id=? ORDER BY created_at DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Activity{}
	for rows.Next() {
		var (
			a         model.Activity
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &a.Points, &a.Payload, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = fromMillis(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
