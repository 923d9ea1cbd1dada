// internal/policy/policy.go
package policy

import (
	"context"
	"log/slog"

	"github.com/user/tradeagent/internal/types"
)

// EntryRequest describes a proposed trade entry for review.
type EntryRequest struct {
	Pair       string             `json:"pair"`
	Side       string             `json:"side"`
	Timeframe  string             `json:"timeframe"`
	Indicators map[string]any     `json:"indicators"`
	News       []string           `json:"news"`
	MemoryHits []types.MemoryItem `json:"memory"`
}

// Decision is the gate's normalized answer. Confidence and
// MaxPositionRatio are nil when the assessor did not supply them;
// when present they are clamped to [0, 1].
type Decision struct {
	Allow            bool     `json:"allow"`
	Reason           string   `json:"reason"`
	Confidence       *float64 `json:"confidence,omitempty"`
	MaxPositionRatio *float64 `json:"max_position_ratio,omitempty"`
}

const maxReasonLen = 400

// RiskAssessor produces a raw verdict for an entry request.
type RiskAssessor interface {
	Assess(ctx context.Context, req *EntryRequest) (*Verdict, error)
}

// Verdict is the assessor's raw output before normalization. Allow is
// a pointer so a missing field is distinguishable from an explicit
// false; a verdict without it fails schema validation.
type Verdict struct {
	Allow            *bool    `json:"allow"`
	Reason           string   `json:"reason"`
	Confidence       *float64 `json:"confidence"`
	MaxPositionRatio *float64 `json:"max_position_ratio"`
}

// Gate reviews entry requests with a risk assessor. The gate advises,
// it does not trade: when the assessor is disabled, unreachable, or
// incoherent the gate fails open, so an advisor outage never blocks an
// entry on its own. Fail-open paths carry distinct reasons and are
// logged, since they are the one place errors are absorbed.
type Gate struct {
	assessor RiskAssessor
	enabled  bool
	logger   *slog.Logger
}

// NewGate builds a gate. A nil assessor or enabled=false makes every
// review an immediate allow.
func NewGate(assessor RiskAssessor, enabled bool, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{assessor: assessor, enabled: enabled, logger: logger}
}

// DecideEntry produces a decision for an entry request. It never
// returns an error; every failure path collapses to an allow with a
// reason naming the failure.
func (g *Gate) DecideEntry(ctx context.Context, req *EntryRequest) *Decision {
	if !g.enabled || g.assessor == nil {
		return &Decision{Allow: true, Reason: "llm policy disabled"}
	}

	verdict, err := g.assessor.Assess(ctx, req)
	if err != nil || verdict == nil {
		g.logger.Warn("policy gate failing open", "pair", req.Pair, "side", req.Side, "reason", "llm unavailable", "error", err)
		return &Decision{Allow: true, Reason: "llm unavailable"}
	}
	if verdict.Allow == nil {
		g.logger.Warn("policy gate failing open", "pair", req.Pair, "side", req.Side, "reason", "llm returned invalid decision schema")
		return &Decision{Allow: true, Reason: "llm returned invalid decision schema"}
	}

	return &Decision{
		Allow:            *verdict.Allow,
		Reason:           truncate(verdict.Reason, maxReasonLen),
		Confidence:       clamp01(verdict.Confidence),
		MaxPositionRatio: clamp01(verdict.MaxPositionRatio),
	}
}

func clamp01(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}

// truncate limits s to n characters, counting runes so a multibyte
// reason is never cut mid-sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
