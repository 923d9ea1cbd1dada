// internal/planner/planner.go
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/user/tradeagent/internal/types"
	"github.com/user/tradeagent/pkg/llm"
)

// Message is one prior transcript entry handed to the planner.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// TurnRequest is the input for one planning turn. Context is the
// structured mapping attached to the user message, rendered into the
// prompt as JSON.
type TurnRequest struct {
	UserMessage string
	Context     map[string]any
	History     []Message
}

// Turn is the normalized planner output: an optional reply, an
// optional plan, zero or more tool call proposals, and optional
// clarifying questions.
type Turn struct {
	Reply     string
	Plan      []types.PlanStep
	ToolCalls []types.ToolCallProposed
	Questions []string
}

// Planner produces a Turn from a user message plus session history.
type Planner interface {
	PlanTurn(ctx context.Context, req *TurnRequest) (*Turn, error)
}

// RawTurn is the shape we ask the model for. Kept loose on purpose:
// normalization, not the decoder, decides what survives.
type RawTurn struct {
	Reply     string        `json:"reply"`
	Plan      []RawPlanStep `json:"plan"`
	ToolCalls []RawToolCall `json:"tool_calls"`
	Questions []string      `json:"questions"`
}

type RawPlanStep struct {
	StepID string `json:"step_id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type RawToolCall struct {
	CallID string `json:"call_id"`
	Tool   string `json:"tool"`
	Args   any    `json:"args"`
	Reason string `json:"reason"`
	Risk   string `json:"risk"`
}

// Normalize repairs a decoded planner turn in place of rejecting it:
// missing call ids get fresh ones, unknown risk levels collapse to
// low, non-object args become empty objects, and plan step statuses
// fall back to planned.
func Normalize(raw *RawTurn) *Turn {
	t := &Turn{
		Reply:     raw.Reply,
		Questions: raw.Questions,
	}

	for i, s := range raw.Plan {
		stepID := s.StepID
		if stepID == "" {
			stepID = fmt.Sprintf("s%d", i+1)
		}
		status := s.Status
		switch status {
		case types.StepPlanned, types.StepDone, types.StepBlocked:
		default:
			status = types.StepPlanned
		}
		t.Plan = append(t.Plan, types.PlanStep{StepID: stepID, Title: s.Title, Status: status})
	}

	for _, tc := range raw.ToolCalls {
		if tc.Tool == "" {
			continue
		}
		callID := tc.CallID
		if callID == "" {
			callID = types.NewCallID()
		}
		risk := tc.Risk
		if !types.ValidRisk(risk) {
			risk = types.RiskLow
		}
		args, _ := tc.Args.(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		t.ToolCalls = append(t.ToolCalls, types.ToolCallProposed{
			CallID: callID,
			Tool:   tc.Tool,
			Args:   args,
			Reason: tc.Reason,
			Risk:   risk,
		})
	}

	return t
}

// LLMPlanner plans turns with a completion provider. The model is
// instructed to reply with a single JSON object; anything else is an
// error surfaced to the caller.
type LLMPlanner struct {
	provider llm.Provider
	tools    []string
	budget   *Budget
	logger   *slog.Logger
}

// NewLLMPlanner builds a planner over the given provider. tools is the
// whitelist of tool names the model may propose; budget may be nil to
// skip history trimming.
func NewLLMPlanner(provider llm.Provider, tools []string, budget *Budget, logger *slog.Logger) *LLMPlanner {
	names := append([]string(nil), tools...)
	sort.Strings(names)
	return &LLMPlanner{provider: provider, tools: names, budget: budget, logger: logger}
}

func (p *LLMPlanner) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are the planning core of a crypto trading assistant.\n")
	b.WriteString("Respond with a single JSON object and nothing else:\n")
	b.WriteString(`{"reply": "...", "plan": [{"step_id": "s1", "title": "...", "status": "planned|done|blocked"}], "tool_calls": [{"call_id": "tc_1", "tool": "...", "args": {}, "reason": "...", "risk": "low|medium|high"}], "questions": []}` + "\n")
	b.WriteString("Only propose tools from this list:\n")
	for _, name := range p.tools {
		b.WriteString("- " + name + "\n")
	}
	b.WriteString("Never invent tool names. Ask questions instead of guessing when the request is ambiguous. You propose tool calls; a human approves them before anything runs.")
	return b.String()
}

// PlanTurn renders the prompt, calls the model, and normalizes the
// decoded result.
func (p *LLMPlanner) PlanTurn(ctx context.Context, req *TurnRequest) (*Turn, error) {
	history := req.History
	if p.budget != nil {
		history = p.budget.Trim(history)
	}

	var b strings.Builder
	for _, m := range history {
		b.WriteString(m.Role + ": " + m.Text + "\n")
	}
	if len(req.Context) > 0 {
		if raw, err := json.Marshal(req.Context); err == nil {
			b.WriteString("context: " + string(raw) + "\n")
		}
	}
	b.WriteString("user: " + req.UserMessage)

	text, err := p.provider.Complete(ctx, p.systemPrompt(), b.String())
	if err != nil {
		return nil, fmt.Errorf("planner completion: %w", err)
	}

	payload, ok := llm.ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("planner returned non-JSON output")
	}
	var raw RawTurn
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode planner turn: %w", err)
	}

	turn := Normalize(&raw)
	if p.logger != nil {
		p.logger.Debug("planner turn", "tool_calls", len(turn.ToolCalls), "plan_steps", len(turn.Plan), "questions", len(turn.Questions))
	}
	return turn, nil
}
