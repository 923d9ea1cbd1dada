// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type SessionID string
type ArtifactID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewArtifactID() ArtifactID {
	return ArtifactID(uuid.New().String())
}

// NewCallID returns a short proposal call id in the form tc_xxxxxxxx.
// Assigned whenever the planner's output omits a call_id.
func NewCallID() string {
	return "tc_" + uuid.New().String()[:8]
}
