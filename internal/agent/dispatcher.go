// internal/agent/dispatcher.go
package agent

import (
	"context"
	"fmt"

	"github.com/user/tradeagent/internal/chart"
	"github.com/user/tradeagent/internal/tools"
	"github.com/user/tradeagent/internal/types"
)

// Outcome is the dispatch result for one tool call.
type Outcome struct {
	CallID string `json:"call_id"`
	Tool   string `json:"tool"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// RunApproved executes every approved-but-unfinished call in the
// session, ascending by call id. Tool failures become failed
// tool_call_finished events and the pass continues; only event store
// failures abort, since losing the log would make the run
// unaccounted-for. Rerunning after a completed pass is a no-op.
func (a *Agent) RunApproved(ctx context.Context, sessionID types.SessionID, tc *tools.Context) ([]Outcome, error) {
	events, err := a.events.List(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	proj := Project(events)

	var outcomes []Outcome
	for _, callID := range proj.ApprovedUnfinished() {
		view := proj.ToolCalls[callID]
		if view == nil || view.Proposal == nil {
			// Approved id with no surviving proposal. Nothing to run.
			continue
		}
		outcome, err := a.runCall(ctx, sessionID, view.Proposal, tc)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (a *Agent) runCall(ctx context.Context, sessionID types.SessionID, proposal *types.ToolCallProposed, tc *tools.Context) (Outcome, error) {
	started := types.NowTS()
	_, err := a.events.Append(ctx, sessionID, types.EventToolCallStarted, types.ToolCallStarted{
		CallID: proposal.CallID,
		Tool:   proposal.Tool,
		Args:   proposal.Args,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("append tool_call_started: %w", err)
	}

	result, execErr := a.registry.Execute(ctx, proposal.Tool, proposal.Args, tc)

	finished := types.ToolCallFinished{
		CallID:    proposal.CallID,
		Tool:      proposal.Tool,
		OK:        execErr == nil,
		StartedTS: started,
		EndedTS:   types.NowTS(),
	}
	if execErr != nil {
		finished.Error = execErr.Error()
		a.logger.Warn("tool call failed", "session_id", sessionID, "call_id", proposal.CallID, "tool", proposal.Tool, "error", execErr)
	} else {
		finished.Result = result
	}

	if execErr == nil && proposal.Tool == tools.ToolFetchOHLCV {
		artifactID, chartErr := a.buildChart(ctx, sessionID, proposal, result)
		if chartErr != nil {
			return Outcome{}, chartErr
		}
		finished.ChartArtifactID = artifactID
	}

	if _, err := a.events.Append(ctx, sessionID, types.EventToolCallFinished, finished); err != nil {
		return Outcome{}, fmt.Errorf("append tool_call_finished: %w", err)
	}

	return Outcome{CallID: proposal.CallID, Tool: proposal.Tool, OK: finished.OK, Error: finished.Error}, nil
}

// buildChart turns a candle-fetch result into a stored chart artifact
// and a chart_created event. Empty results produce no chart.
func (a *Agent) buildChart(ctx context.Context, sessionID types.SessionID, proposal *types.ToolCallProposed, result any) (string, error) {
	candles := chart.ParseRows(result)
	if len(candles) == 0 {
		return "", nil
	}

	symbol, _ := proposal.Args["symbol"].(string)
	timeframe, _ := proposal.Args["timeframe"].(string)
	doc := chart.Build(candles, symbol, timeframe)

	artifactID, err := a.artifacts.Store(ctx, sessionID, "chart", doc, map[string]any{
		"symbol":    symbol,
		"timeframe": timeframe,
		"call_id":   proposal.CallID,
	})
	if err != nil {
		return "", fmt.Errorf("store chart artifact: %w", err)
	}

	_, err = a.events.Append(ctx, sessionID, types.EventChartCreated, types.ChartCreated{
		ArtifactID: string(artifactID),
		CallID:     proposal.CallID,
	})
	if err != nil {
		return "", fmt.Errorf("append chart_created: %w", err)
	}

	a.logger.Info("chart created", "session_id", sessionID, "artifact_id", artifactID, "symbol", symbol, "timeframe", timeframe)
	return string(artifactID), nil
}
