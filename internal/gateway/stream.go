package gateway

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"tradefusion/models"
)

// StreamEvent is the gateway's wire format for one candle stream message.
type StreamEvent struct {
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe"`
	Candle    candleRecord `json:"candle"`
	// Closed marks the bar as finalized; open bars repeat until closed.
	Closed bool `json:"closed"`
}

// StreamCandles subscribes to live candles over the gateway websocket and
// delivers finalized bars on the returned channel. The connection is
// re-established with exponential backoff after any failure; the channel is
// closed when ctx is cancelled.
func (c *Client) StreamCandles(ctx context.Context, symbol, timeframe string) <-chan models.Candle {
	out := make(chan models.Candle)

	go func() {
		defer close(out)
		for {
			if err := c.streamOnce(ctx, symbol, timeframe, out); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn().Err(err).Msg("Stream disconnected, reconnecting")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}()
	return out
}

func (c *Client) streamOnce(ctx context.Context, symbol, timeframe string, out chan<- models.Candle) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]string{"action": "subscribe", "symbol": symbol, "timeframe": timeframe}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	c.logger.Info().Str("symbol", symbol).Str("timeframe", timeframe).Msg("Subscribed to candle stream")

	// Unblock ReadJSON when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event StreamEvent
		if err := conn.ReadJSON(&event); err != nil {
			return err
		}
		if !event.Closed {
			continue
		}
		candle, err := event.Candle.toCandle()
		if err != nil {
			c.logger.Error().Err(err).Str("time", event.Candle.Time).Msg("Skipping unparseable streamed candle")
			continue
		}
		select {
		case out <- candle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	operation := func() error {
		var err error
		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err = dialer.DialContext(ctx, c.wsURL, nil)
		return err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = time.Minute

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return conn, nil
}
