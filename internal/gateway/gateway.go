package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/user/tradeagent/internal/agent"
	"github.com/user/tradeagent/internal/types"
)

// Gateway orchestrates inbound turns into runs. It resolves the
// session for each turn, wraps it in a Run, and enqueues the run so
// turns for one session never interleave.
type Gateway struct {
	agent *agent.Agent
	Queue *Queue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Gateway over the agent with the given concurrency
// limit for simultaneous run processing.
func New(a *agent.Agent, maxConcurrent int64) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	g := &Gateway{
		agent: a,
		Queue: NewQueue(maxConcurrent),
	}
	g.Queue.SetProcessor(g.process)
	return g
}

// Start initialises the gateway's context and starts the internal
// queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context, stops the queue, and waits for any
// outstanding work to finish.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
	g.wg.Wait()
}

// RunOption configures optional behavior on a Run.
type RunOption func(*Run)

// WithOnComplete sets a callback invoked with the formatted response
// when the run finishes.
func WithOnComplete(fn func(string)) RunOption {
	return func(r *Run) { r.OnComplete = fn }
}

// ResolveSession maps a surface session key to a session id. Keys are
// used directly so a surface reconnecting after a restart lands back
// in the same session; an empty key gets a fresh session.
func ResolveSession(key string) types.SessionID {
	if key == "" {
		return types.NewSessionID()
	}
	return types.SessionID(key)
}

// HandleInbound wraps the turn in a Run and enqueues it on the
// session's lane.
func (g *Gateway) HandleInbound(ctx context.Context, inbound *Inbound, opts ...RunOption) error {
	run := NewRun(ResolveSession(inbound.SessionKey), inbound)
	for _, opt := range opts {
		opt(run)
	}
	return g.Queue.Enqueue(run)
}

func (g *Gateway) process(run *Run) error {
	now := time.Now()
	run.Status = RunStatusRunning
	run.StartedAt = &now

	result, err := g.agent.UserMessage(run.Ctx, run.SessionID, run.Inbound.Text, run.Inbound.Context)

	ended := time.Now()
	run.EndedAt = &ended
	if err != nil {
		run.Status = RunStatusFailed
		run.Err = err
		return fmt.Errorf("process turn: %w", err)
	}

	run.Status = RunStatusComplete
	if run.OnComplete != nil {
		run.OnComplete(FormatTurn(result))
	}
	return nil
}

// FormatTurn renders a turn result as plain text for chat surfaces.
func FormatTurn(result *agent.TurnResult) string {
	var b strings.Builder
	if result.Reply != "" {
		b.WriteString(result.Reply)
	}
	if len(result.Plan) > 0 {
		b.WriteString("\n\nPlan:")
		for _, step := range result.Plan {
			fmt.Fprintf(&b, "\n  [%s] %s (%s)", step.StepID, step.Title, step.Status)
		}
	}
	if len(result.ToolCalls) > 0 {
		b.WriteString("\n\nProposed tool calls (approve to run):")
		for _, tc := range result.ToolCalls {
			fmt.Fprintf(&b, "\n  %s %s risk=%s", tc.CallID, tc.Tool, tc.Risk)
			if tc.Reason != "" {
				b.WriteString(" - " + tc.Reason)
			}
		}
	}
	if len(result.Questions) > 0 {
		b.WriteString("\n\nQuestions:")
		for _, q := range result.Questions {
			b.WriteString("\n  - " + q)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		text = "(no response)"
	}
	return text
}
