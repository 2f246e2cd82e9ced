package levels

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradefusion/models"
)

// rangedCandles builds a flat 30-bar series with confirmed peaks at 110
// (bars 5, 13, 21), confirmed troughs at 100 (bars 9, 25) and a single
// unconfirmed spike to 115 at bar 17.
func rangedCandles(lastClose float64) []models.Candle {
	candles := make([]models.Candle, 30)
	for i := range candles {
		candles[i] = models.Candle{
			Timestamp: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
			Open:      105,
			High:      106,
			Low:       104,
			Close:     105,
			Volume:    1000,
		}
	}
	for _, i := range []int{5, 13, 21} {
		candles[i].High = 110
	}
	for _, i := range []int{9, 25} {
		candles[i].Low = 100
	}
	candles[17].High = 115
	candles[len(candles)-1].Close = lastClose
	return candles
}

func TestDetectSupportResistance(t *testing.T) {
	d := New(4, 2, 0.002, zerolog.Nop())
	set := d.DetectSupportResistance(rangedCandles(105))

	if len(set.Support) != 1 || set.Support[0] != 100 {
		t.Errorf("support = %v, want [100]", set.Support)
	}
	if len(set.Resistance) != 1 || set.Resistance[0] != 110 {
		t.Errorf("resistance = %v, want [110]", set.Resistance)
	}
}

func TestDetectSupportResistanceRejectsSingleTouch(t *testing.T) {
	d := New(4, 2, 0.002, zerolog.Nop())
	set := d.DetectSupportResistance(rangedCandles(105))

	for _, r := range set.Resistance {
		if r == 115 {
			t.Error("single-touch spike at 115 should not be a confirmed level")
		}
	}
}

func TestDetectSupportResistanceStrictPartition(t *testing.T) {
	// With the last close sitting exactly on a level, that level belongs to
	// neither side.
	d := New(4, 2, 0.002, zerolog.Nop())
	set := d.DetectSupportResistance(rangedCandles(110))

	if len(set.Support) != 1 || set.Support[0] != 100 {
		t.Errorf("support = %v, want [100]", set.Support)
	}
	if len(set.Resistance) != 0 {
		t.Errorf("resistance = %v, want empty", set.Resistance)
	}
}

func TestDetectSupportResistanceShortSeries(t *testing.T) {
	d := New(20, 2, 0.002, zerolog.Nop())
	set := d.DetectSupportResistance(rangedCandles(105))

	if len(set.Support) != 0 || len(set.Resistance) != 0 {
		t.Errorf("short series produced levels: %+v", set)
	}
}

func TestDetectPatterns(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		candles  []models.Candle
		expected []string
	}{
		{
			name: "Doji",
			candles: []models.Candle{
				{Timestamp: ts, Open: 100.00, High: 101, Low: 99, Close: 100.05},
			},
			expected: []string{PatternDoji},
		},
		{
			name: "Bullish engulfing",
			candles: []models.Candle{
				{Timestamp: ts, Open: 101, High: 101.5, Low: 99.5, Close: 100},
				{Timestamp: ts.Add(time.Minute), Open: 99.8, High: 102, Low: 99.5, Close: 101.5},
			},
			expected: []string{PatternBullishEngulfing},
		},
		{
			name: "Bearish engulfing",
			candles: []models.Candle{
				{Timestamp: ts, Open: 100, High: 101.5, Low: 99.5, Close: 101},
				{Timestamp: ts.Add(time.Minute), Open: 101.2, High: 101.5, Low: 99, Close: 99.5},
			},
			expected: []string{PatternBearishEngulfing},
		},
		{
			name: "Plain trending candle",
			candles: []models.Candle{
				{Timestamp: ts, Open: 100, High: 101, Low: 99.9, Close: 100.9},
				{Timestamp: ts.Add(time.Minute), Open: 100.9, High: 102, Low: 100.8, Close: 101.9},
			},
			expected: nil,
		},
		{
			name:     "Empty series",
			candles:  nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := DetectPatterns(tt.candles)
			if len(events) != len(tt.expected) {
				t.Fatalf("DetectPatterns() = %+v, want patterns %v", events, tt.expected)
			}
			for i, want := range tt.expected {
				if events[i].Pattern != want {
					t.Errorf("pattern[%d] = %v, want %v", i, events[i].Pattern, want)
				}
				if events[i].Confidence <= 0 {
					t.Errorf("pattern[%d] confidence = %v, want positive", i, events[i].Confidence)
				}
			}
		})
	}
}
