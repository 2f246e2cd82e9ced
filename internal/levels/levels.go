// Package levels finds support/resistance price levels and short-lookback
// candlestick patterns from raw candle history.
package levels

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"tradefusion/models"
)

// Detector locates support/resistance levels by peak/trough clustering with
// touch-count confirmation. Designed for periodic recomputation, not per-tick:
// each call is O(n*window) over the supplied history.
type Detector struct {
	window    int
	touches   int
	tolerance float64
	logger    zerolog.Logger
}

// New creates a level detector. window is the centered extremum lookaround,
// touches the confirmation count, tolerance the relative price band counted
// as a touch (0.002 = 0.2%).
func New(window, touches int, tolerance float64, logger zerolog.Logger) *Detector {
	if window <= 0 {
		window = 20
	}
	if touches <= 0 {
		touches = 2
	}
	if tolerance <= 0 {
		tolerance = 0.002
	}
	return &Detector{window: window, touches: touches, tolerance: tolerance, logger: logger}
}

// DetectSupportResistance returns confirmed levels partitioned by the most
// recent close: support strictly below, resistance strictly above, both
// sorted ascending. Too-short series yield an empty level set.
func (d *Detector) DetectSupportResistance(candles []models.Candle) models.LevelSet {
	if len(candles) <= 2*d.window {
		d.logger.Debug().Int("candles", len(candles)).Msg("not enough history for level detection")
		return models.LevelSet{}
	}

	seen := make(map[float64]bool)
	var levels []float64

	half := d.window / 2
	for i := d.window; i < len(candles)-d.window; i++ {
		if isLocalHigh(candles, i, half) {
			level := candles[i].High
			if !seen[level] && d.countTouches(candles, level, touchHigh) >= d.touches {
				seen[level] = true
				levels = append(levels, level)
			}
		}
		if isLocalLow(candles, i, half) {
			level := candles[i].Low
			if !seen[level] && d.countTouches(candles, level, touchLow) >= d.touches {
				seen[level] = true
				levels = append(levels, level)
			}
		}
	}

	sort.Float64s(levels)

	currentPrice := candles[len(candles)-1].Close
	var set models.LevelSet
	for _, level := range levels {
		switch {
		case level < currentPrice:
			set.Support = append(set.Support, level)
		case level > currentPrice:
			set.Resistance = append(set.Resistance, level)
		}
	}
	return set
}

type touchSide int

const (
	touchHigh touchSide = iota
	touchLow
)

// countTouches counts bars across the full series whose high (or low) falls
// within tolerance of the level.
func (d *Detector) countTouches(candles []models.Candle, level float64, side touchSide) int {
	band := level * d.tolerance
	touches := 0
	for _, c := range candles {
		price := c.High
		if side == touchLow {
			price = c.Low
		}
		if math.Abs(price-level) <= band {
			touches++
		}
	}
	return touches
}

func isLocalHigh(candles []models.Candle, i, half int) bool {
	for j := i - half; j <= i+half; j++ {
		if j == i || j < 0 || j >= len(candles) {
			continue
		}
		if candles[j].High >= candles[i].High {
			return false
		}
	}
	return true
}

func isLocalLow(candles []models.Candle, i, half int) bool {
	for j := i - half; j <= i+half; j++ {
		if j == i || j < 0 || j >= len(candles) {
			continue
		}
		if candles[j].Low <= candles[i].Low {
			return false
		}
	}
	return true
}
