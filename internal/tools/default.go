// internal/tools/default.go
package tools

import "github.com/user/tradeagent/internal/types"

// BuildDefaultRegistry registers the read-only exchange and trading
// engine capabilities. Everything here is low risk and runs without a
// confirmation prompt; approval of the call itself is still required
// before the dispatcher executes anything.
func BuildDefaultRegistry() *Registry {
	reg := NewRegistry()

	reg.Register(Spec{
		Name:        "exchange.fetch_balance",
		Description: "Fetch exchange account balance",
		RiskLevel:   types.RiskLow,
	}, fetchBalance)

	reg.Register(Spec{
		Name:        "exchange.fetch_positions",
		Description: "Fetch open exchange positions",
		RiskLevel:   types.RiskLow,
	}, fetchPositions)

	reg.Register(Spec{
		Name:        "exchange.fetch_open_orders",
		Description: "Fetch open exchange orders, optionally for one symbol",
		RiskLevel:   types.RiskLow,
	}, fetchOpenOrders)

	reg.Register(Spec{
		Name:        "exchange.fetch_ticker",
		Description: "Fetch ticker for a symbol",
		RiskLevel:   types.RiskLow,
	}, fetchTicker)

	reg.Register(Spec{
		Name:        ToolFetchOHLCV,
		Description: "Fetch OHLCV candles for a symbol",
		RiskLevel:   types.RiskLow,
	}, fetchOHLCV)

	reg.Register(Spec{
		Name:        "trader.get_status",
		Description: "Fetch trading engine open trades status",
		RiskLevel:   types.RiskLow,
	}, traderStatus)

	reg.Register(Spec{
		Name:        "trader.get_balance",
		Description: "Fetch trading engine computed balance",
		RiskLevel:   types.RiskLow,
	}, traderBalance)

	reg.Register(Spec{
		Name:        "trader.get_trades",
		Description: "Fetch trading engine trade history",
		RiskLevel:   types.RiskLow,
	}, traderTrades)

	return reg
}
