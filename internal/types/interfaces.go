// internal/types/interfaces.go
package types

import (
	"context"
)

// AppendOption adjusts an event before it is persisted.
type AppendOption func(*Event)

// WithParent links the event to an earlier event id.
func WithParent(id int64) AppendOption {
	return func(e *Event) { e.ParentID = &id }
}

// WithTimestamp overrides the append timestamp (unix seconds).
func WithTimestamp(ts float64) AppendOption {
	return func(e *Event) { e.TS = ts }
}

// EventStore is the append-only, per-session ordered event log. Append
// is the only mutation; returned ids are strictly increasing per
// session with no gaps. Durability is implied by a nil error.
type EventStore interface {
	Append(ctx context.Context, sessionID SessionID, eventType string, payload any, opts ...AppendOption) (int64, error)
	List(ctx context.Context, sessionID SessionID, limit int) ([]Event, error)
	Sessions(ctx context.Context, limit int) ([]SessionSummary, error)
}

// ArtifactStore persists immutable derived objects. Load returns
// (nil, nil) when the artifact does not exist.
type ArtifactStore interface {
	Store(ctx context.Context, sessionID SessionID, kind string, content any, metadata map[string]any) (ArtifactID, error)
	Load(ctx context.Context, id ArtifactID) (*Artifact, error)
}

// MemoryStore keeps deduplicated observations keyed by a stable hash
// of their content, searchable by substring.
type MemoryStore interface {
	Add(ctx context.Context, kind, pair string, content map[string]any) (string, error)
	Search(ctx context.Context, query, pair string, limit int) ([]MemoryItem, error)
}
