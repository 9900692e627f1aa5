package model

import "time"

// Activity mirrors the 'activities' table.  Payload is an opaque JSON blob
// recorded as-is for downstream consumers; the server only interprets Type
// and Points.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Points    int64     `json:"points"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}
