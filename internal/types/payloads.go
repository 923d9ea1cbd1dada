// internal/types/payloads.go
package types

// Event types form a closed enumeration. Each has a payload struct
// below; the projector pattern-matches on the type tag and unmarshals
// into the matching struct rather than probing loose maps.
const (
	EventSessionStarted   = "session_started"
	EventUserMessage      = "user_message"
	EventAssistantMessage = "assistant_message"
	EventPlanCreated      = "plan_created"
	EventToolCallProposed = "tool_call_proposed"
	EventQuestions        = "questions"
	EventToolCallApproved = "tool_call_approved"
	EventToolCallStarted  = "tool_call_started"
	EventToolCallFinished = "tool_call_finished"
	EventChartCreated     = "chart_created"
)

// Risk levels for proposed tool calls.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Plan step statuses.
const (
	StepPlanned = "planned"
	StepDone    = "done"
	StepBlocked = "blocked"
)

type SessionStarted struct{}

type UserMessage struct {
	Text    string         `json:"text"`
	Context map[string]any `json:"context"`
}

type AssistantMessage struct {
	Text string `json:"text"`
}

type PlanStep struct {
	StepID string `json:"step_id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type PlanCreated struct {
	Plan []PlanStep `json:"plan"`
}

type ToolCallProposed struct {
	CallID string         `json:"call_id"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Reason string         `json:"reason,omitempty"`
	Risk   string         `json:"risk"`
}

type Questions struct {
	Questions []string `json:"questions"`
}

type ToolCallApproved struct {
	CallID string `json:"call_id"`
}

type ToolCallStarted struct {
	CallID string         `json:"call_id"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
}

// ToolCallFinished is the terminal record for a call. Exactly one of
// Result/Error is meaningful depending on OK.
type ToolCallFinished struct {
	CallID          string  `json:"call_id"`
	Tool            string  `json:"tool"`
	OK              bool    `json:"ok"`
	Result          any     `json:"result,omitempty"`
	Error           string  `json:"error,omitempty"`
	StartedTS       float64 `json:"started_ts"`
	EndedTS         float64 `json:"ended_ts"`
	ChartArtifactID string  `json:"chart_artifact_id,omitempty"`
}

type ChartCreated struct {
	ArtifactID string `json:"artifact_id"`
	CallID     string `json:"call_id"`
}

// ValidRisk reports whether s is a recognized risk level.
func ValidRisk(s string) bool {
	return s == RiskLow || s == RiskMedium || s == RiskHigh
}
