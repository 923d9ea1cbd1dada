// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// Event is one immutable record in a session's append-only log. ID is
// assigned by the store and is strictly increasing within a session; it
// is the only ordering guarantee the rest of the system relies on.
type Event struct {
	ID        int64           `json:"id"`
	SessionID SessionID       `json:"session_id"`
	TS        float64         `json:"ts"`
	Type      string          `json:"type"`
	ParentID  *int64          `json:"parent_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Artifact is an immutable derived object (e.g. a chart) referenced by
// id from chart_created events.
type Artifact struct {
	ID        ArtifactID      `json:"id"`
	SessionID SessionID       `json:"session_id"`
	TS        float64         `json:"ts"`
	Kind      string          `json:"kind"`
	Metadata  map[string]any  `json:"metadata"`
	Content   json.RawMessage `json:"content"`
}

// SessionSummary describes one session in the store, newest activity first.
type SessionSummary struct {
	SessionID SessionID `json:"session_id"`
	StartedTS float64   `json:"started_ts"`
	LastTS    float64   `json:"last_ts"`
	Events    int64     `json:"n"`
}

// MemoryItem is one deduplicated memory record.
type MemoryItem struct {
	TS      float64        `json:"ts"`
	Kind    string         `json:"kind"`
	Pair    string         `json:"pair"`
	Content map[string]any `json:"content"`
}

// NowTS returns the current time as unix seconds, the timestamp unit
// used throughout the event and artifact records.
func NowTS() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
