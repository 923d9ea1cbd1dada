// internal/state/artifact.go
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/tradeagent/internal/types"
)

// ArtifactStore persists immutable derived objects (charts) as JSON
// rows keyed by a fresh uuid.
type ArtifactStore struct {
	db *DB
}

// NewArtifactStore creates an ArtifactStore over the shared database.
func NewArtifactStore(db *DB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

var _ types.ArtifactStore = (*ArtifactStore)(nil)

// Store persists an artifact and returns its id.
func (a *ArtifactStore) Store(ctx context.Context, sessionID types.SessionID, kind string, content any, metadata map[string]any) (types.ArtifactID, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("marshal artifact content: %w", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal artifact metadata: %w", err)
	}

	id := types.NewArtifactID()
	_, err = a.db.conn.ExecContext(ctx,
		`INSERT INTO artifacts (id, session_id, ts, kind, metadata, content) VALUES (?, ?, ?, ?, ?, ?)`,
		string(id), string(sessionID), types.NowTS(), kind, string(metaJSON), string(contentJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert artifact: %w", err)
	}
	return id, nil
}

// Load returns the artifact, or (nil, nil) when no such id exists.
func (a *ArtifactStore) Load(ctx context.Context, id types.ArtifactID) (*types.Artifact, error) {
	var (
		art      types.Artifact
		aid, sid string
		meta     string
		content  string
	)
	err := a.db.conn.QueryRowContext(ctx,
		`SELECT id, session_id, ts, kind, metadata, content FROM artifacts WHERE id = ?`,
		string(id),
	).Scan(&aid, &sid, &art.TS, &art.Kind, &meta, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}

	art.ID = types.ArtifactID(aid)
	art.SessionID = types.SessionID(sid)
	art.Content = json.RawMessage(content)
	if err := json.Unmarshal([]byte(meta), &art.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal artifact metadata: %w", err)
	}
	return &art, nil
}
