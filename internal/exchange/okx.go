// internal/exchange/okx.go
package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const okxDefaultBaseURL = "https://www.okx.com"

// OKX is an OKX v5 REST client. Market-data endpoints are public;
// account endpoints are signed with the API key triple.
type OKX struct {
	apiKey     string
	secret     string
	passphrase string
	baseURL    string
	client     *http.Client
}

// NewOKX creates an OKX client. baseURL may be empty for production.
func NewOKX(apiKey, secret, passphrase, baseURL string) *OKX {
	if baseURL == "" {
		baseURL = okxDefaultBaseURL
	}
	return &OKX{
		apiKey:     apiKey,
		secret:     secret,
		passphrase: passphrase,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Exchange = (*OKX)(nil)

// envelope is the OKX v5 response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// instID converts a unified "BTC/USDT" symbol to OKX's "BTC-USDT".
func instID(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}

// bar converts a unified timeframe ("1m", "1h", "1d") to an OKX bar
// value; hours and larger use uppercase suffixes.
func bar(timeframe string) string {
	if len(timeframe) < 2 {
		return timeframe
	}
	switch timeframe[len(timeframe)-1] {
	case 'h', 'd', 'w':
		return timeframe[:len(timeframe)-1] + strings.ToUpper(timeframe[len(timeframe)-1:])
	default:
		return timeframe
	}
}

// sign produces the OK-ACCESS-SIGN header value for a request.
func (o *OKX) sign(timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(o.secret))
	mac.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// get performs a GET request against requestPath (including any query
// string) and decodes the data field of the envelope into out. Signed
// requests require the API key triple to be configured.
func (o *OKX) get(ctx context.Context, requestPath string, signed bool, out any) error {
	if signed && (o.apiKey == "" || o.secret == "" || o.passphrase == "") {
		return fmt.Errorf("okx: missing API credentials for signed request %s", requestPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+requestPath, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if signed {
		timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.Header.Set("OK-ACCESS-KEY", o.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", o.sign(timestamp, http.MethodGet, requestPath, ""))
		req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("OK-ACCESS-PASSPHRASE", o.passphrase)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("okx request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("okx API error (status %d): %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if env.Code != "0" {
		return fmt.Errorf("okx error %s: %s", env.Code, env.Msg)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("parse data: %w", err)
	}
	return nil
}

func (o *OKX) FetchBalance(ctx context.Context) (map[string]any, error) {
	var data []map[string]any
	if err := o.get(ctx, "/api/v5/account/balance", true, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	return data[0], nil
}

func (o *OKX) FetchPositions(ctx context.Context) ([]map[string]any, error) {
	var data []map[string]any
	if err := o.get(ctx, "/api/v5/account/positions", true, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (o *OKX) FetchOpenOrders(ctx context.Context, symbol string) ([]map[string]any, error) {
	requestPath := "/api/v5/trade/orders-pending"
	if symbol != "" {
		requestPath += "?instId=" + url.QueryEscape(instID(symbol))
	}
	var data []map[string]any
	if err := o.get(ctx, requestPath, true, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (o *OKX) FetchTicker(ctx context.Context, symbol string) (map[string]any, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	requestPath := "/api/v5/market/ticker?instId=" + url.QueryEscape(instID(symbol))
	var data []map[string]any
	if err := o.get(ctx, requestPath, false, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("okx: no ticker for %s", symbol)
	}
	return data[0], nil
}

func (o *OKX) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([][]float64, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if timeframe == "" {
		return nil, fmt.Errorf("timeframe is required")
	}
	if limit <= 0 {
		limit = 200
	}

	requestPath := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		url.QueryEscape(instID(symbol)), url.QueryEscape(bar(timeframe)), limit)

	// OKX returns candles newest first as string arrays:
	// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm].
	var data [][]string
	if err := o.get(ctx, requestPath, false, &data); err != nil {
		return nil, err
	}

	rows := make([][]float64, 0, len(data))
	for i := len(data) - 1; i >= 0; i-- {
		raw := data[i]
		if len(raw) < 6 {
			continue
		}
		row := make([]float64, 6)
		ok := true
		for j := 0; j < 6; j++ {
			v, err := strconv.ParseFloat(raw[j], 64)
			if err != nil {
				ok = false
				break
			}
			row[j] = v
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
