// Package gateway talks to the broker bridge: a local REST/websocket service
// exposing market data, account state and order execution.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "tradefusion/internal/platform/http"
	"tradefusion/models"
)

// Client is the broker gateway API client
type Client struct {
	apiKey     string
	baseURL    string
	wsURL      string
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new gateway client
type ClientOptions struct {
	BaseURL         string
	WSURL           string
	APIKey          string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new broker gateway client
func NewClient(options ClientOptions) *Client {
	httpOpts := platformhttp.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}
	if httpOpts.Timeout == 0 {
		httpOpts.Timeout = 30 * time.Second
	}
	if httpOpts.RequestsPerSec == 0 {
		httpOpts.RequestsPerSec = 5
	}

	return &Client{
		apiKey:     options.APIKey,
		baseURL:    options.BaseURL,
		wsURL:      options.WSURL,
		httpClient: platformhttp.NewClient(httpOpts),
		logger:     log.With().Str("component", "gateway_client").Logger(),
	}
}

// candleRecord is the gateway wire format for one bar.
type candleRecord struct {
	Time       string  `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	TickVolume float64 `json:"tick_volume"`
}

type candlesResponse struct {
	Candles []candleRecord `json:"candles"`
}

// GetCandles fetches the most recent count candles, oldest first.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, count int) ([]models.Candle, error) {
	endpoint := fmt.Sprintf("%s/candles?symbol=%s&timeframe=%s&count=%d",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(timeframe), count)

	c.logger.Debug().Str("symbol", symbol).Str("timeframe", timeframe).Int("count", count).Msg("Fetching candles")

	var data candlesResponse
	if err := c.getJSON(ctx, endpoint, &data); err != nil {
		return nil, err
	}
	if len(data.Candles) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No candles in response")
		return nil, fmt.Errorf("empty data returned")
	}

	candles := make([]models.Candle, 0, len(data.Candles))
	for _, v := range data.Candles {
		candle, err := v.toCandle()
		if err != nil {
			return nil, fmt.Errorf("parsing candle: %w", err)
		}
		candles = append(candles, candle)
	}

	// Oldest first for proper indicator calculations
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

// GetAccountInfo fetches the current account snapshot.
func (c *Client) GetAccountInfo(ctx context.Context) (models.AccountInfo, error) {
	var info models.AccountInfo
	err := c.getJSON(ctx, c.baseURL+"/account", &info)
	return info, err
}

// GetSymbolInfo fetches pricing and lot constraints for a symbol.
func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (models.SymbolInfo, error) {
	var info models.SymbolInfo
	err := c.getJSON(ctx, c.baseURL+"/symbol?name="+url.QueryEscape(symbol), &info)
	return info, err
}

// PlaceOrder submits a market order and returns the broker acknowledgement.
func (c *Client) PlaceOrder(ctx context.Context, order models.OrderRequest) (models.TradeResult, error) {
	var result models.TradeResult
	if err := c.postJSON(ctx, c.baseURL+"/order", order, &result); err != nil {
		return models.TradeResult{}, err
	}

	c.logger.Info().
		Str("symbol", order.Symbol).
		Str("order_type", string(order.Side)).
		Float64("volume", order.Volume).
		Int64("ticket", result.Ticket).
		Msg("Order placed")
	return result, nil
}

// CloseOrder closes an open position by ticket.
func (c *Client) CloseOrder(ctx context.Context, ticket int64) error {
	payload := map[string]int64{"ticket": ticket}
	if err := c.postJSON(ctx, c.baseURL+"/close", payload, nil); err != nil {
		return err
	}
	c.logger.Info().Int64("ticket", ticket).Msg("Order closed")
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.DoRequest(req.Context(), req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		c.logger.Error().Str("response", string(body)).Msg("Gateway API error")
		return fmt.Errorf("gateway error: %s", apiErr.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return fmt.Errorf("parsing JSON: %w", err)
	}
	return nil
}

func (r candleRecord) toCandle() (models.Candle, error) {
	ts, err := time.Parse(time.RFC3339, r.Time)
	if err != nil {
		// Some bridges send bare datetimes without a zone
		ts, err = time.Parse("2006-01-02 15:04:05", r.Time)
		if err != nil {
			return models.Candle{}, err
		}
	}
	return models.Candle{
		Timestamp:  ts,
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		TickVolume: r.TickVolume,
	}, nil
}
