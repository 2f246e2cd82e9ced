package notify

import (
	"strings"
	"testing"

	"tradefusion/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestUnconfiguredNotifierIsNoOp(t *testing.T) {
	n, err := NewTelegram("", 0)
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}
	if err := n.NotifySignal(models.Signal{Type: models.SignalBuy}); err != nil {
		t.Errorf("NotifySignal() error = %v, want nil", err)
	}
	if err := n.NotifyTrainResult(models.TrainResult{Version: 3}); err != nil {
		t.Errorf("NotifyTrainResult() error = %v, want nil", err)
	}
}

func TestFormatSignal(t *testing.T) {
	sig := models.Signal{
		ID:              "sig-1",
		Symbol:          "EURUSD",
		Timeframe:       "5min",
		Type:            models.SignalStrongSell,
		Confidence:      0.82,
		EntryPrice:      floatPtr(1.1),
		StopLoss:        floatPtr(1.105),
		TakeProfit:      floatPtr(1.09),
		RiskRewardRatio: floatPtr(2.0),
		Metrics: models.SignalMetrics{
			AIScore:                0.9,
			TrendScore:             0.45,
			MomentumScore:          0.8,
			SupportResistanceScore: 0.5,
		},
	}

	msg := formatSignal(sig)
	for _, want := range []string{
		"📉", "STRONG_SELL", "EURUSD", "82.0%",
		"Entry: `1.10000`", "Stop loss: `1.10500`", "Take profit: `1.09000`",
		"Risk/reward: `2.00`", "AI 0.90",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatSignal() missing %q in:\n%s", want, msg)
		}
	}
}

func TestFormatTrainResult(t *testing.T) {
	msg := formatTrainResult(models.TrainResult{
		TrainLoss:     0.4213,
		TrainAccuracy: 0.71,
		ValLoss:       0.5987,
		ValAccuracy:   0.64,
		Version:       7,
		Examples:      2890,
	})

	for _, want := range []string{
		"v7", "Examples: `2890`",
		"loss `0.4213` acc `71.0%`",
		"loss `0.5987` acc `64.0%`",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatTrainResult() missing %q in:\n%s", want, msg)
		}
	}
}
