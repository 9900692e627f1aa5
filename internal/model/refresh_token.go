package model

import "time"

// RefreshToken mirrors the 'refresh_tokens' table.  The token string itself
// is the primary key; rotation deletes the row, so a consumed token can never
// validate again.
type RefreshToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
