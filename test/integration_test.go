//go:build integration

package test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/tradeagent/internal/agent"
	"github.com/user/tradeagent/internal/gateway"
	"github.com/user/tradeagent/internal/planner"
	"github.com/user/tradeagent/internal/state"
	"github.com/user/tradeagent/internal/tools"
	"github.com/user/tradeagent/internal/types"
)

// cannedPlanner proposes one candle fetch on the first turn and
// replies plainly after that.
type cannedPlanner struct {
	calls int
}

func (p *cannedPlanner) PlanTurn(ctx context.Context, req *planner.TurnRequest) (*planner.Turn, error) {
	p.calls++
	if p.calls > 1 {
		return &planner.Turn{Reply: "Anything else?"}, nil
	}
	return &planner.Turn{
		Reply: "Fetching BTC candles.",
		ToolCalls: []types.ToolCallProposed{{
			CallID: "tc_1",
			Tool:   tools.ToolFetchOHLCV,
			Args:   map[string]any{"symbol": "BTC/USDT", "timeframe": "1h"},
			Risk:   types.RiskLow,
		}},
	}, nil
}

func buildCore(t *testing.T) (*agent.Agent, *tools.Context) {
	t.Helper()

	db, err := state.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	events := state.NewEventStore(db)
	artifacts := state.NewArtifactStore(db)
	memory := state.NewMemoryStore(db)

	registry := tools.BuildDefaultRegistry()
	registry.Register(tools.Spec{Name: tools.ToolFetchOHLCV, RiskLevel: types.RiskLow},
		func(ctx context.Context, args map[string]any, tc *tools.Context) (any, error) {
			rows := make([][]float64, 0, 60)
			for i := 0; i < 60; i++ {
				c := 100 + float64(i%7)
				rows = append(rows, []float64{float64(i * 3600), c - 1, c + 1, c - 2, c, 10})
			}
			return rows, nil
		})

	core := agent.New(events, artifacts, registry, &cannedPlanner{}, nil)
	return core, &tools.Context{Memory: memory}
}

func TestEndToEndApprovalFlow(t *testing.T) {
	core, toolCtx := buildCore(t)
	ctx := context.Background()

	gw := gateway.New(core, 2)
	gw.Start(ctx)
	defer gw.Stop()

	var response string
	done := make(chan struct{})
	inbound := &gateway.Inbound{
		SessionKey: "test:user1",
		Text:       "chart BTC please",
	}
	err := gw.HandleInbound(ctx, inbound, gateway.WithOnComplete(func(resp string) {
		response = resp
		close(done)
	}))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for turn response")
	}
	if response == "" {
		t.Fatal("empty turn response")
	}

	sid := gateway.ResolveSession("test:user1")

	pending, err := core.PendingToolCalls(ctx, sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Proposal.CallID != "tc_1" {
		t.Fatalf("pending = %+v", pending)
	}

	if err := core.Approve(ctx, sid, "tc_1"); err != nil {
		t.Fatal(err)
	}

	outcomes, err := core.RunApproved(ctx, sid, toolCtx)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || !outcomes[0].OK {
		t.Fatalf("outcomes = %+v", outcomes)
	}

	chart, err := core.LatestChart(ctx, sid)
	if err != nil {
		t.Fatal(err)
	}
	if chart == nil || chart.Kind != "chart" {
		t.Fatalf("chart = %+v", chart)
	}

	// Re-running executes nothing new.
	outcomes, err = core.RunApproved(ctx, sid, toolCtx)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 0 {
		t.Errorf("re-run outcomes = %+v", outcomes)
	}
}

func TestEndToEndFIFOWithinSession(t *testing.T) {
	core, _ := buildCore(t)
	ctx := context.Background()

	gw := gateway.New(core, 2)
	gw.Start(ctx)
	defer gw.Stop()

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		inbound := &gateway.Inbound{
			SessionKey: "test:fifo",
			Text:       fmt.Sprintf("message %d", i),
		}
		err := gw.HandleInbound(ctx, inbound, gateway.WithOnComplete(func(string) {
			done <- struct{}{}
		}))
		if err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for turns")
		}
	}

	events, err := core.Events(ctx, gateway.ResolveSession("test:fifo"), 0)
	if err != nil {
		t.Fatal(err)
	}
	var last int64
	userMessages := 0
	for _, ev := range events {
		if ev.ID <= last {
			t.Fatalf("event ids not strictly increasing: %d after %d", ev.ID, last)
		}
		last = ev.ID
		if ev.Type == types.EventUserMessage {
			userMessages++
		}
	}
	if userMessages != 3 {
		t.Errorf("expected 3 user messages, got %d", userMessages)
	}
}
