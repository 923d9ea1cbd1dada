// internal/tools/trader.go
package tools

import (
	"context"
	"fmt"

	"github.com/user/tradeagent/internal/trader"
)

func traderFrom(tc *Context) (trader.Trader, error) {
	if tc.Trader == nil {
		return nil, fmt.Errorf("missing trader client in context")
	}
	return tc.Trader, nil
}

func traderStatus(ctx context.Context, _ map[string]any, tc *Context) (any, error) {
	t, err := traderFrom(tc)
	if err != nil {
		return nil, err
	}
	return t.GetStatus(ctx)
}

func traderBalance(ctx context.Context, _ map[string]any, tc *Context) (any, error) {
	t, err := traderFrom(tc)
	if err != nil {
		return nil, err
	}
	return t.GetBalance(ctx)
}

func traderTrades(ctx context.Context, _ map[string]any, tc *Context) (any, error) {
	t, err := traderFrom(tc)
	if err != nil {
		return nil, err
	}
	return t.GetTrades(ctx)
}
