package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStreamCandlesForwardsClosedBars(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrading connection: %v", err)
			return
		}
		defer conn.Close()

		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("reading subscribe message: %v", err)
			return
		}
		if sub["action"] != "subscribe" || sub["symbol"] != "EURUSD" {
			t.Errorf("unexpected subscribe message %v", sub)
		}

		// An in-progress bar followed by the finalized one; only the
		// finalized bar should surface.
		conn.WriteJSON(StreamEvent{
			Symbol:    "EURUSD",
			Timeframe: "5min",
			Candle:    candleRecord{Time: "2026-01-02T10:00:00Z", Close: 1.05},
			Closed:    false,
		})
		conn.WriteJSON(StreamEvent{
			Symbol:    "EURUSD",
			Timeframe: "5min",
			Candle:    candleRecord{Time: "2026-01-02T10:00:00Z", Close: 1.07},
			Closed:    true,
		})

		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient(ClientOptions{
		BaseURL: server.URL,
		WSURL:   "ws" + strings.TrimPrefix(server.URL, "http") + "/stream",
	})

	events := client.StreamCandles(ctx, "EURUSD", "5min")

	select {
	case candle, ok := <-events:
		if !ok {
			t.Fatal("stream channel closed before delivering a candle")
		}
		if candle.Close != 1.07 {
			t.Errorf("Close = %v, want 1.07 (the finalized bar)", candle.Close)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a stream event")
	}

	cancel()
	for range events {
	}
}
