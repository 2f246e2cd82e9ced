package models

import (
	"math"
	"time"
)

// Candle represents a single OHLCV price candle.
type Candle struct {
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	TickVolume float64   `json:"tick_volume,omitempty"`
}

// FeatureSeries is a candle series augmented with named indicator columns.
// Every column is aligned 1:1 with Candles; positions where an indicator's
// window has not filled yet hold NaN.
type FeatureSeries struct {
	Candles []Candle
	Columns map[string][]float64
}

// NewFeatureSeries wraps a candle series with an empty column set.
func NewFeatureSeries(candles []Candle) *FeatureSeries {
	return &FeatureSeries{
		Candles: candles,
		Columns: make(map[string][]float64),
	}
}

// Len returns the number of candles in the series.
func (fs *FeatureSeries) Len() int {
	return len(fs.Candles)
}

// SetColumn attaches a named column. Columns shorter than the series are
// left-padded with NaN so indexes always line up with Candles.
func (fs *FeatureSeries) SetColumn(name string, values []float64) {
	if len(values) < len(fs.Candles) {
		padded := make([]float64, len(fs.Candles))
		offset := len(fs.Candles) - len(values)
		for i := 0; i < offset; i++ {
			padded[i] = math.NaN()
		}
		copy(padded[offset:], values)
		values = padded
	}
	fs.Columns[name] = values
}

// Column returns a named column and whether it exists.
func (fs *FeatureSeries) Column(name string) ([]float64, bool) {
	col, ok := fs.Columns[name]
	return col, ok
}

// Last returns the most recent value of a column, or NaN when the column is
// absent or the series is empty.
func (fs *FeatureSeries) Last(name string) float64 {
	col, ok := fs.Columns[name]
	if !ok || len(col) == 0 {
		return math.NaN()
	}
	return col[len(col)-1]
}

// LastClose returns the close of the most recent candle, or NaN when empty.
func (fs *FeatureSeries) LastClose() float64 {
	if len(fs.Candles) == 0 {
		return math.NaN()
	}
	return fs.Candles[len(fs.Candles)-1].Close
}
