package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/user/tradeagent/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Inbound is a user turn arriving from any surface (API, Telegram,
// CLI). SessionKey is an opaque surface-specific identifier, for
// example "telegram:12345". Context is a structured mapping passed
// through to the planner untouched.
type Inbound struct {
	SessionKey string
	Text       string
	Context    map[string]any
}

// Run tracks a single processing pass of an inbound turn against a
// session.
type Run struct {
	ID         string
	SessionID  types.SessionID
	Inbound    *Inbound
	Status     RunStatus
	CreatedAt  time.Time
	StartedAt  *time.Time
	EndedAt    *time.Time
	Err        error
	Ctx        context.Context
	OnComplete func(response string)
}

// NewRun creates a Run in the Queued state for the given session and
// inbound turn.
func NewRun(sessionID types.SessionID, inbound *Inbound) *Run {
	return &Run{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Inbound:   inbound,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
	}
}
