// internal/state/event.go
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/user/tradeagent/internal/types"
)

// EventStore is the SQLite-backed append-only event log. A store-wide
// mutex serializes the insert-and-read-rowid pair so assigned ids are
// gapless and strictly increasing even when turns for the same session
// race. Reads run without the lock; WAL gives them a stable snapshot.
type EventStore struct {
	db *DB
	mu sync.Mutex
}

// NewEventStore creates an EventStore over the shared database.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

var _ types.EventStore = (*EventStore)(nil)

// Append persists one event and returns its assigned id. The payload is
// marshaled to JSON; a payload that cannot be marshaled is a caller
// bug and fails before anything is written. Storage faults propagate
// to the caller, who owns the decision to retry the whole turn.
func (e *EventStore) Append(ctx context.Context, sessionID types.SessionID, eventType string, payload any, opts ...types.AppendOption) (int64, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal event payload: %w", err)
	}

	event := types.Event{
		SessionID: sessionID,
		TS:        types.NowTS(),
		Type:      eventType,
		Payload:   data,
	}
	for _, opt := range opts {
		opt(&event)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.db.conn.ExecContext(ctx,
		`INSERT INTO events (session_id, ts, type, parent_id, payload) VALUES (?, ?, ?, ?, ?)`,
		string(sessionID), event.TS, eventType, event.ParentID, string(data),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event rowid: %w", err)
	}
	return id, nil
}

// List returns the session's events ascending by id, oldest first.
// The result is always a complete prefix of the log: a concurrent
// append is either fully visible or not at all.
func (e *EventStore) List(ctx context.Context, sessionID types.SessionID, limit int) ([]types.Event, error) {
	if limit <= 0 {
		limit = 2000
	}
	rows, err := e.db.conn.QueryContext(ctx,
		`SELECT id, session_id, ts, type, parent_id, payload FROM events
		 WHERE session_id = ? ORDER BY id ASC LIMIT ?`,
		string(sessionID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var (
			ev       types.Event
			sid      string
			parentID sql.NullInt64
			payload  string
		)
		if err := rows.Scan(&ev.ID, &sid, &ev.TS, &ev.Type, &parentID, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.SessionID = types.SessionID(sid)
		if parentID.Valid {
			v := parentID.Int64
			ev.ParentID = &v
		}
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}

// Sessions returns per-session summaries, most recently active first.
func (e *EventStore) Sessions(ctx context.Context, limit int) ([]types.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := e.db.conn.QueryContext(ctx,
		`SELECT session_id, MIN(ts), MAX(ts), COUNT(*) FROM events
		 GROUP BY session_id ORDER BY MAX(ts) DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []types.SessionSummary
	for rows.Next() {
		var (
			s   types.SessionSummary
			sid string
		)
		if err := rows.Scan(&sid, &s.StartedTS, &s.LastTS, &s.Events); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		s.SessionID = types.SessionID(sid)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return sessions, nil
}
