package levels

import (
	"math"

	"tradefusion/models"
)

// Pattern confidence is fixed per pattern type.
const (
	dojiConfidence      = 0.8
	engulfingConfidence = 0.9
)

// Pattern names emitted by DetectPatterns.
const (
	PatternDoji             = "doji"
	PatternBullishEngulfing = "bullish_engulfing"
	PatternBearishEngulfing = "bearish_engulfing"
)

// DetectPatterns inspects only the last candles of the series for a Doji and
// bullish/bearish engulfing. Stateless and lookback-bounded; it is not a full
// pattern-mining scan.
func DetectPatterns(candles []models.Candle) []models.PatternEvent {
	if len(candles) < 1 {
		return nil
	}

	var events []models.PatternEvent

	last := candles[len(candles)-1]
	bodySize := math.Abs(last.Open - last.Close)
	fullRange := last.High - last.Low
	if fullRange > 0 && bodySize <= fullRange*0.1 {
		events = append(events, models.PatternEvent{
			Pattern:    PatternDoji,
			Timestamp:  last.Timestamp,
			Confidence: dojiConfidence,
		})
	}

	if len(candles) >= 2 {
		current := candles[len(candles)-1]
		previous := candles[len(candles)-2]

		switch {
		case previous.Close < previous.Open && // previous red
			current.Close > current.Open && // current green
			current.Open < previous.Close && // opens below previous close
			current.Close > previous.Open: // closes above previous open
			events = append(events, models.PatternEvent{
				Pattern:    PatternBullishEngulfing,
				Timestamp:  current.Timestamp,
				Confidence: engulfingConfidence,
			})
		case previous.Close > previous.Open && // previous green
			current.Close < current.Open && // current red
			current.Open > previous.Close && // opens above previous close
			current.Close < previous.Open: // closes below previous open
			events = append(events, models.PatternEvent{
				Pattern:    PatternBearishEngulfing,
				Timestamp:  current.Timestamp,
				Confidence: engulfingConfidence,
			})
		}
	}

	return events
}
