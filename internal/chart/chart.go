// internal/chart/chart.go
package chart

// Chart documents are derived from candle-fetch results and stored as
// artifacts: a renderable candlestick description with EMA overlays
// plus a small indicator summary for the policy gate and transcript.

// Candle is one OHLCV row.
type Candle struct {
	TS     float64 `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Summary holds the lightweight indicators computed over a candle
// series. RSI14 is nil until enough samples exist (15 closes) or when
// the series has no losses.
type Summary struct {
	LastClose float64  `json:"last_close"`
	EMA20     float64  `json:"ema20"`
	EMA50     float64  `json:"ema50"`
	RSI14     *float64 `json:"rsi14"`
}

// Document is the artifact content for a chart.
type Document struct {
	Title      string    `json:"title"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Candles    []Candle  `json:"candles"`
	EMA20      []float64 `json:"ema20"`
	EMA50      []float64 `json:"ema50"`
	Indicators Summary   `json:"indicators"`
}

// ParseRows converts a tool result into candles. Results arrive either
// directly from a handler ([][]float64) or after a JSON round trip
// ([]any of []any). Rows that don't look like OHLCV are dropped.
func ParseRows(result any) []Candle {
	switch rows := result.(type) {
	case [][]float64:
		out := make([]Candle, 0, len(rows))
		for _, row := range rows {
			if len(row) >= 6 {
				out = append(out, Candle{row[0], row[1], row[2], row[3], row[4], row[5]})
			}
		}
		return out
	case []any:
		out := make([]Candle, 0, len(rows))
		for _, r := range rows {
			row, ok := r.([]any)
			if !ok || len(row) < 6 {
				continue
			}
			vals := make([]float64, 6)
			valid := true
			for i := 0; i < 6; i++ {
				f, ok := row[i].(float64)
				if !ok {
					valid = false
					break
				}
				vals[i] = f
			}
			if valid {
				out = append(out, Candle{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]})
			}
		}
		return out
	default:
		return nil
	}
}

// ema returns the exponential moving average series for the closes
// with the given span, seeded on the first value.
func ema(closes []float64, span int) []float64 {
	if len(closes) == 0 {
		return nil
	}
	k := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// rsi14 returns the 14-period RSI of the final sample, or nil when
// there are fewer than 15 closes or the window has no losses.
func rsi14(closes []float64) *float64 {
	const period = 14
	if len(closes) < period+1 {
		return nil
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	if loss == 0 {
		return nil
	}
	rs := gain / loss
	v := 100.0 - 100.0/(1.0+rs)
	return &v
}

// Indicators computes the summary over a candle series. Returns the
// zero Summary for an empty series.
func Indicators(candles []Candle) Summary {
	if len(candles) == 0 {
		return Summary{}
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	e20 := ema(closes, 20)
	e50 := ema(closes, 50)
	return Summary{
		LastClose: closes[len(closes)-1],
		EMA20:     e20[len(e20)-1],
		EMA50:     e50[len(e50)-1],
		RSI14:     rsi14(closes),
	}
}

// Build assembles the chart document for a candle series.
func Build(candles []Candle, symbol, timeframe string) *Document {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	title := "Candles"
	if symbol != "" || timeframe != "" {
		title = symbol + " " + timeframe
	}

	return &Document{
		Title:      title,
		Symbol:     symbol,
		Timeframe:  timeframe,
		Candles:    candles,
		EMA20:      ema(closes, 20),
		EMA50:      ema(closes, 50),
		Indicators: Indicators(candles),
	}
}
