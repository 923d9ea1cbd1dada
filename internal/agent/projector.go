// internal/agent/projector.go
package agent

import (
	"encoding/json"
	"sort"

	"github.com/user/tradeagent/internal/types"
)

// ToolCallState is the lifecycle position of a tool call within a
// session. The order is monotonic: a finished call never goes back to
// proposed or approved no matter what events arrive later.
type ToolCallState string

const (
	StateProposed ToolCallState = "proposed"
	StateApproved ToolCallState = "approved"
	StateFinished ToolCallState = "finished"
)

// ChatMessage is one transcript entry derived from user_message and
// assistant_message events.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ToolCallView is everything the projection knows about one call id.
type ToolCallView struct {
	CallID   string
	State    ToolCallState
	Proposal *types.ToolCallProposed
	Result   *types.ToolCallFinished
}

// Projection is the derived read model of a session. It is built by
// folding the event log in id order and holds no state of its own; two
// projections over the same events are identical.
type Projection struct {
	Transcript            []ChatMessage
	LatestPlan            []types.PlanStep
	ToolCalls             map[string]*ToolCallView
	LatestChartArtifactID string

	approved map[string]bool
	finished map[string]bool
}

// Project folds events into a Projection. Events with payloads that do
// not decode into their expected shape are skipped rather than
// aborting the fold; a corrupt row must not make the whole session
// unreadable.
func Project(events []types.Event) *Projection {
	p := &Projection{
		ToolCalls: make(map[string]*ToolCallView),
		approved:  make(map[string]bool),
		finished:  make(map[string]bool),
	}
	for _, ev := range events {
		p.apply(ev)
	}
	return p
}

func (p *Projection) apply(ev types.Event) {
	switch ev.Type {
	case types.EventUserMessage:
		var m types.UserMessage
		if decode(ev.Payload, &m) {
			p.Transcript = append(p.Transcript, ChatMessage{Role: "user", Text: m.Text})
		}
	case types.EventAssistantMessage:
		var m types.AssistantMessage
		if decode(ev.Payload, &m) {
			p.Transcript = append(p.Transcript, ChatMessage{Role: "assistant", Text: m.Text})
		}
	case types.EventPlanCreated:
		var m types.PlanCreated
		if decode(ev.Payload, &m) {
			p.LatestPlan = m.Plan
		}
	case types.EventToolCallProposed:
		var m types.ToolCallProposed
		if !decode(ev.Payload, &m) || m.CallID == "" {
			return
		}
		tc := p.call(m.CallID)
		proposal := m
		tc.Proposal = &proposal
		if tc.State == "" {
			tc.State = StateProposed
		}
	case types.EventToolCallApproved:
		var m types.ToolCallApproved
		if !decode(ev.Payload, &m) || m.CallID == "" {
			return
		}
		p.approved[m.CallID] = true
		tc := p.call(m.CallID)
		if tc.State != StateFinished {
			tc.State = StateApproved
		}
	case types.EventToolCallFinished:
		var m types.ToolCallFinished
		if !decode(ev.Payload, &m) || m.CallID == "" {
			return
		}
		p.finished[m.CallID] = true
		tc := p.call(m.CallID)
		result := m
		tc.Result = &result
		tc.State = StateFinished
	case types.EventChartCreated:
		var m types.ChartCreated
		if decode(ev.Payload, &m) && m.ArtifactID != "" {
			p.LatestChartArtifactID = m.ArtifactID
		}
	}
}

func (p *Projection) call(id string) *ToolCallView {
	tc, ok := p.ToolCalls[id]
	if !ok {
		tc = &ToolCallView{CallID: id, State: ""}
		p.ToolCalls[id] = tc
	}
	return tc
}

// Pending returns the proposed calls that have been neither approved
// nor finished, in ascending call id order.
func (p *Projection) Pending() []*ToolCallView {
	var out []*ToolCallView
	for id, tc := range p.ToolCalls {
		if tc.Proposal == nil {
			continue
		}
		if p.approved[id] || p.finished[id] {
			continue
		}
		out = append(out, tc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CallID < out[j].CallID })
	return out
}

// ApprovedUnfinished returns the call ids that are approved but not
// yet finished, in ascending order. This is the dispatch set; ids with
// no surviving proposal are still returned so the dispatcher can
// decide what to do with them.
func (p *Projection) ApprovedUnfinished() []string {
	var out []string
	for id := range p.approved {
		if !p.finished[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// HasCall reports whether a call id has appeared in the session in any
// lifecycle state.
func (p *Projection) HasCall(id string) bool {
	if _, ok := p.ToolCalls[id]; ok {
		return true
	}
	return p.approved[id] || p.finished[id]
}

// Finished reports whether a call id has a terminal result.
func (p *Projection) Finished(id string) bool {
	return p.finished[id]
}

func decode(raw json.RawMessage, v any) bool {
	return json.Unmarshal(raw, v) == nil
}
