package gateway

import (
	"strings"
	"testing"

	"github.com/user/tradeagent/internal/agent"
	"github.com/user/tradeagent/internal/types"
)

func TestResolveSessionReusesKey(t *testing.T) {
	a := ResolveSession("telegram:42")
	b := ResolveSession("telegram:42")
	if a != b {
		t.Errorf("same key resolved to different sessions: %s vs %s", a, b)
	}
	if a != types.SessionID("telegram:42") {
		t.Errorf("key not used directly: %s", a)
	}
}

func TestResolveSessionEmptyKey(t *testing.T) {
	a := ResolveSession("")
	b := ResolveSession("")
	if a == "" || b == "" {
		t.Fatal("empty key should still produce a session id")
	}
	if a == b {
		t.Errorf("empty keys should get fresh sessions, both got %s", a)
	}
}

func TestFormatTurn(t *testing.T) {
	result := &agent.TurnResult{
		Reply: "Looking at BTC now.",
		Plan: []types.PlanStep{
			{StepID: "s1", Title: "Fetch candles", Status: "planned"},
		},
		ToolCalls: []types.ToolCallProposed{
			{CallID: "tc_1", Tool: "exchange.fetch_ohlcv", Risk: "low", Reason: "need price context"},
		},
		Questions: []string{"Which timeframe?"},
	}

	text := FormatTurn(result)
	for _, want := range []string{
		"Looking at BTC now.",
		"Plan:",
		"[s1] Fetch candles (planned)",
		"Proposed tool calls (approve to run):",
		"tc_1 exchange.fetch_ohlcv risk=low - need price context",
		"Questions:",
		"Which timeframe?",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("formatted turn missing %q:\n%s", want, text)
		}
	}
}

func TestFormatTurnEmpty(t *testing.T) {
	if got := FormatTurn(&agent.TurnResult{}); got != "(no response)" {
		t.Errorf("empty turn formatted as %q", got)
	}
}
