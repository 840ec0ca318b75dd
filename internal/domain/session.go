package domain

import "time"

// SessionValue is a per-user key/value entry.
// PK: user_id, SK: session_key. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type SessionValue struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Key       string `json:"key" dynamodbav:"session_key"`
	Value     string `json:"value" dynamodbav:"session_value"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (s *SessionValue) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.Unix()
}

// Presence is a single row per user, upserted on every heartbeat.
type Presence struct {
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	LastSeenAt   time.Time `json:"last_seen_at" dynamodbav:"last_seen_at"`
	LastSeenUnix int64     `json:"-" dynamodbav:"last_seen_unix"` // numeric copy for range filters
}

// UserEvent is an entry of the user-info event store.
// PK: user_id, SK: event_id (ULID).
type UserEvent struct {
	UserID    string                 `json:"user_id" dynamodbav:"user_id"`
	EventID   string                 `json:"id" dynamodbav:"event_id"`
	Event     string                 `json:"event" dynamodbav:"event"`
	Data      map[string]interface{} `json:"data,omitempty" dynamodbav:"data"`
	IP        string                 `json:"ip" dynamodbav:"ip"`
	UserAgent string                 `json:"user_agent" dynamodbav:"user_agent"`
	CreatedAt time.Time              `json:"created_at" dynamodbav:"created_at"`
}
