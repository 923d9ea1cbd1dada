// internal/state/memory.go
package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/user/tradeagent/internal/types"
)

// MemoryStore keeps deduplicated observations (trade outcomes, notes)
// that the policy gate retrieves as context. Rows are keyed by a
// sha256 of their content, so re-adding the same observation is an
// upsert that only refreshes its timestamp.
type MemoryStore struct {
	db *DB
}

// NewMemoryStore creates a MemoryStore over the shared database.
func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

var _ types.MemoryStore = (*MemoryStore)(nil)

func stableKey(kind, pair string, content map[string]any) (string, error) {
	raw, err := json.Marshal(struct {
		Kind    string         `json:"kind"`
		Pair    string         `json:"pair"`
		Content map[string]any `json:"content"`
	}{kind, pair, content})
	if err != nil {
		return "", fmt.Errorf("marshal memory key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Add upserts one memory item and returns its stable key.
func (m *MemoryStore) Add(ctx context.Context, kind, pair string, content map[string]any) (string, error) {
	if content == nil {
		content = map[string]any{}
	}
	key, err := stableKey(kind, pair, content)
	if err != nil {
		return "", err
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("marshal memory content: %w", err)
	}

	_, err = m.db.conn.ExecContext(ctx,
		`INSERT INTO memory (key, ts, kind, pair, content) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET ts=excluded.ts`,
		key, types.NowTS(), kind, pair, string(contentJSON),
	)
	if err != nil {
		return "", fmt.Errorf("upsert memory: %w", err)
	}
	return key, nil
}

// Search returns items whose stored JSON contains query, newest first,
// optionally restricted to one pair. Rows with unparseable content are
// skipped.
func (m *MemoryStore) Search(ctx context.Context, query, pair string, limit int) ([]types.MemoryItem, error) {
	if limit <= 0 {
		limit = 5
	}

	q := "%" + query + "%"
	var (
		rows *sql.Rows
		err  error
	)
	if pair != "" {
		rows, err = m.db.conn.QueryContext(ctx,
			`SELECT ts, kind, pair, content FROM memory
			 WHERE content LIKE ? AND pair = ? ORDER BY ts DESC LIMIT ?`,
			q, pair, limit,
		)
	} else {
		rows, err = m.db.conn.QueryContext(ctx,
			`SELECT ts, kind, pair, content FROM memory
			 WHERE content LIKE ? ORDER BY ts DESC LIMIT ?`,
			q, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}
	defer rows.Close()

	var items []types.MemoryItem
	for rows.Next() {
		var (
			item    types.MemoryItem
			content string
		)
		if err := rows.Scan(&item.TS, &item.Kind, &item.Pair, &content); err != nil {
			return nil, fmt.Errorf("scan memory item: %w", err)
		}
		if err := json.Unmarshal([]byte(content), &item.Content); err != nil {
			continue
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan memory: %w", err)
	}
	return items, nil
}
