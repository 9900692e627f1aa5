// Package queue defines message payloads exchanged over the message broker.
package queue

// ActivityRecordedEvent is published when a batch of client activities is
// synced.  It contains enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type ActivityRecordedEvent struct {
	UserID     string   `json:"user_id"`
	Count      int      `json:"count"`
	Points     int64    `json:"points"`
	Types      []string `json:"types"`
	RecordedAt string   `json:"recorded_at"`
}
