// internal/tools/exchange.go
package tools

import (
	"context"
	"fmt"

	"github.com/user/tradeagent/internal/exchange"
)

// ToolFetchOHLCV is the candle-fetch capability; the dispatcher
// special-cases it to derive a chart artifact from its result.
const ToolFetchOHLCV = "exchange.fetch_ohlcv"

func exchangeFrom(tc *Context) (exchange.Exchange, error) {
	if tc.Exchange == nil {
		return nil, fmt.Errorf("missing exchange client in context")
	}
	return tc.Exchange, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg tolerates the float64 that JSON decoding produces.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func fetchBalance(ctx context.Context, _ map[string]any, tc *Context) (any, error) {
	ex, err := exchangeFrom(tc)
	if err != nil {
		return nil, err
	}
	return ex.FetchBalance(ctx)
}

func fetchPositions(ctx context.Context, _ map[string]any, tc *Context) (any, error) {
	ex, err := exchangeFrom(tc)
	if err != nil {
		return nil, err
	}
	return ex.FetchPositions(ctx)
}

func fetchOpenOrders(ctx context.Context, args map[string]any, tc *Context) (any, error) {
	ex, err := exchangeFrom(tc)
	if err != nil {
		return nil, err
	}
	return ex.FetchOpenOrders(ctx, stringArg(args, "symbol"))
}

func fetchTicker(ctx context.Context, args map[string]any, tc *Context) (any, error) {
	ex, err := exchangeFrom(tc)
	if err != nil {
		return nil, err
	}
	symbol := stringArg(args, "symbol")
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	return ex.FetchTicker(ctx, symbol)
}

func fetchOHLCV(ctx context.Context, args map[string]any, tc *Context) (any, error) {
	ex, err := exchangeFrom(tc)
	if err != nil {
		return nil, err
	}
	symbol := stringArg(args, "symbol")
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	timeframe := stringArg(args, "timeframe")
	if timeframe == "" {
		return nil, fmt.Errorf("timeframe is required")
	}
	limit := intArg(args, "limit")
	if limit <= 0 {
		limit = 200
	}
	return ex.FetchOHLCV(ctx, symbol, timeframe, limit)
}
