// internal/agent/core.go
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/tradeagent/internal/planner"
	"github.com/user/tradeagent/internal/tools"
	"github.com/user/tradeagent/internal/types"
)

// Agent is the coordination core. Every state change is an appended
// event; all reads go through a projection of the session's log. The
// agent itself keeps no per-session state between calls.
type Agent struct {
	events    types.EventStore
	artifacts types.ArtifactStore
	registry  *tools.Registry
	planner   planner.Planner
	logger    *slog.Logger
}

// New creates an agent over the given stores and planner.
func New(events types.EventStore, artifacts types.ArtifactStore, registry *tools.Registry, p planner.Planner, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		events:    events,
		artifacts: artifacts,
		registry:  registry,
		planner:   p,
		logger:    logger,
	}
}

// EnsureSession appends a session_started event if the session has no
// events yet.
func (a *Agent) EnsureSession(ctx context.Context, sessionID types.SessionID) error {
	events, err := a.events.List(ctx, sessionID, 1)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if len(events) > 0 {
		return nil
	}
	_, err = a.events.Append(ctx, sessionID, types.EventSessionStarted, types.SessionStarted{})
	if err != nil {
		return fmt.Errorf("append session_started: %w", err)
	}
	return nil
}

// TurnResult summarizes what a user message produced.
type TurnResult struct {
	Reply     string
	Plan      []types.PlanStep
	ToolCalls []types.ToolCallProposed
	Questions []string
}

// UserMessage records a user message, runs one planning turn, and
// appends the planner's output as events. Proposals reusing a call id
// the session has already seen are dropped with a warning instead of
// being recorded; a call id is permanently bound to its first
// proposal.
func (a *Agent) UserMessage(ctx context.Context, sessionID types.SessionID, text string, extraContext map[string]any) (*TurnResult, error) {
	if err := a.EnsureSession(ctx, sessionID); err != nil {
		return nil, err
	}

	userEventID, err := a.events.Append(ctx, sessionID, types.EventUserMessage, types.UserMessage{Text: text, Context: extraContext})
	if err != nil {
		return nil, fmt.Errorf("append user_message: %w", err)
	}

	events, err := a.events.List(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	proj := Project(events)

	history := make([]planner.Message, 0, len(proj.Transcript))
	for _, m := range proj.Transcript {
		history = append(history, planner.Message{Role: m.Role, Text: m.Text})
	}
	// The message we just appended is already in the projection.
	if n := len(history); n > 0 && history[n-1].Role == "user" && history[n-1].Text == text {
		history = history[:n-1]
	}

	turn, err := a.planner.PlanTurn(ctx, &planner.TurnRequest{
		UserMessage: text,
		Context:     extraContext,
		History:     history,
	})
	if err != nil {
		return nil, fmt.Errorf("plan turn: %w", err)
	}

	result := &TurnResult{Reply: turn.Reply, Plan: turn.Plan, Questions: turn.Questions}
	parent := types.WithParent(userEventID)

	if turn.Reply != "" {
		if _, err := a.events.Append(ctx, sessionID, types.EventAssistantMessage, types.AssistantMessage{Text: turn.Reply}, parent); err != nil {
			return nil, fmt.Errorf("append assistant_message: %w", err)
		}
	}
	if len(turn.Plan) > 0 {
		if _, err := a.events.Append(ctx, sessionID, types.EventPlanCreated, types.PlanCreated{Plan: turn.Plan}, parent); err != nil {
			return nil, fmt.Errorf("append plan_created: %w", err)
		}
	}
	for _, tc := range turn.ToolCalls {
		if proj.HasCall(tc.CallID) {
			a.logger.Warn("dropping tool call with reused call id", "session_id", sessionID, "call_id", tc.CallID, "tool", tc.Tool)
			continue
		}
		if _, err := a.events.Append(ctx, sessionID, types.EventToolCallProposed, tc, parent); err != nil {
			return nil, fmt.Errorf("append tool_call_proposed: %w", err)
		}
		result.ToolCalls = append(result.ToolCalls, tc)
	}
	if len(turn.Questions) > 0 {
		if _, err := a.events.Append(ctx, sessionID, types.EventQuestions, types.Questions{Questions: turn.Questions}, parent); err != nil {
			return nil, fmt.Errorf("append questions: %w", err)
		}
	}

	return result, nil
}

// Approve records approval for a call id. Approval is an event like
// any other; approving an id that is already finished changes nothing
// in the projection.
func (a *Agent) Approve(ctx context.Context, sessionID types.SessionID, callID string) error {
	_, err := a.events.Append(ctx, sessionID, types.EventToolCallApproved, types.ToolCallApproved{CallID: callID})
	if err != nil {
		return fmt.Errorf("append tool_call_approved: %w", err)
	}
	return nil
}

// Projection rebuilds the session's read model from its log.
func (a *Agent) Projection(ctx context.Context, sessionID types.SessionID) (*Projection, error) {
	events, err := a.events.List(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return Project(events), nil
}

// PendingToolCalls returns the proposals awaiting approval.
func (a *Agent) PendingToolCalls(ctx context.Context, sessionID types.SessionID) ([]*ToolCallView, error) {
	proj, err := a.Projection(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return proj.Pending(), nil
}

// LatestChart loads the most recent chart artifact of the session, or
// nil when the session has produced none.
func (a *Agent) LatestChart(ctx context.Context, sessionID types.SessionID) (*types.Artifact, error) {
	proj, err := a.Projection(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if proj.LatestChartArtifactID == "" {
		return nil, nil
	}
	return a.artifacts.Load(ctx, types.ArtifactID(proj.LatestChartArtifactID))
}

// Events returns the raw session log, optionally limited.
func (a *Agent) Events(ctx context.Context, sessionID types.SessionID, limit int) ([]types.Event, error) {
	return a.events.List(ctx, sessionID, limit)
}

// Sessions lists known sessions, newest first.
func (a *Agent) Sessions(ctx context.Context, limit int) ([]types.SessionSummary, error) {
	return a.events.Sessions(ctx, limit)
}
