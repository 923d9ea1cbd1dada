// internal/exchange/exchange.go
package exchange

import "context"

// Exchange is the read-side surface of an exchange connector. Handlers
// receive an implementation through the tool context; the core never
// constructs or inspects one.
//
// FetchOHLCV returns rows of [ts_ms, open, high, low, close, volume]
// in ascending time order.
type Exchange interface {
	FetchBalance(ctx context.Context) (map[string]any, error)
	FetchPositions(ctx context.Context) ([]map[string]any, error)
	FetchOpenOrders(ctx context.Context, symbol string) ([]map[string]any, error)
	FetchTicker(ctx context.Context, symbol string) (map[string]any, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([][]float64, error)
}
