// Package fusion combines classifier output, indicator readings and
// support/resistance proximity into one scored trading signal with bounded
// risk. The engine is a pure function of its inputs plus two tunable
// constants; it owns no persistent state.
package fusion

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tradefusion/models"
)

// Fixed factor weights. They are non-negative, so the overall score is
// monotone in every sub-score.
const (
	weightAI                = 0.40
	weightTrend             = 0.25
	weightMomentum          = 0.20
	weightSupportResistance = 0.15
)

// Engine fuses evidence into signals.
type Engine struct {
	minConfidence float64
	riskReward    float64
	logger        zerolog.Logger
}

// New creates a fusion engine. minConfidence is the NEUTRAL cutoff for the
// overall score, riskReward the target take-profit:stop-loss ratio.
func New(minConfidence, riskReward float64, logger zerolog.Logger) *Engine {
	if minConfidence <= 0 {
		minConfidence = 0.7
	}
	if riskReward <= 0 {
		riskReward = 2.0
	}
	return &Engine{minConfidence: minConfidence, riskReward: riskReward, logger: logger}
}

// factor is one evidence source's contribution: an unsigned magnitude in
// [0,1] plus the signed direction it argues for. Direction is kept separate
// from the magnitude so the polarity decision is explicit rather than
// recovered from an absolute value.
type factor struct {
	magnitude float64
	direction float64 // >0 bullish, <0 bearish, 0 no opinion
}

func newFactor(signed float64) factor {
	return factor{magnitude: clamp01(math.Abs(signed)), direction: sign(signed)}
}

// Generate produces one signal from an AI prediction, the feature-augmented
// series, the current price snapshot and detected support/resistance levels.
func (e *Engine) Generate(
	pred models.Prediction,
	fs *models.FeatureSeries,
	snapshot models.SymbolInfo,
	lv models.LevelSet,
) models.Signal {
	currentPrice := snapshot.Close
	if currentPrice == 0 {
		currentPrice = fs.LastClose()
	}

	ai := evaluateAI(pred)
	trend := evaluateTrend(fs)
	momentum := evaluateMomentum(fs)
	sr := evaluateSupportResistance(currentPrice, lv)

	overall := clamp01(weightAI*ai.magnitude +
		weightTrend*trend.magnitude +
		weightMomentum*momentum.magnitude +
		weightSupportResistance*sr.magnitude)
	direction := weightAI*ai.magnitude*ai.direction +
		weightTrend*trend.magnitude*trend.direction +
		weightMomentum*momentum.magnitude*momentum.direction +
		weightSupportResistance*sr.magnitude*sr.direction

	signalType := e.classify(overall, direction)
	e.logger.Debug().
		Float64("overall", overall).
		Float64("direction", direction).
		Str("signal_type", string(signalType)).
		Msg("fusion cycle")

	if signalType == models.SignalNeutral {
		return e.neutralSignal(snapshot.Symbol)
	}

	metrics := models.SignalMetrics{
		AIScore:                ai.magnitude,
		TrendScore:             trend.magnitude,
		MomentumScore:          momentum.magnitude,
		SupportResistanceScore: sr.magnitude,
	}
	entry, stop, target, rr := e.tradeLevels(signalType, currentPrice, fs, lv)

	return models.Signal{
		ID:              uuid.NewString(),
		Symbol:          snapshot.Symbol,
		Timestamp:       time.Now().UTC(),
		Type:            signalType,
		Confidence:      overall,
		EntryPrice:      &entry,
		StopLoss:        &stop,
		TakeProfit:      &target,
		RiskRewardRatio: &rr,
		Metrics:         metrics,
		Metadata: models.SignalMetadata{
			AIPrediction: &pred,
			Technical:    technicalSummary(fs),
			Market:       marketContext(fs),
		},
	}
}

// classify maps the overall score and signed direction to a signal type.
// A score below the confidence floor, or evidence with no net direction,
// yields NEUTRAL; above 0.8 the directional tier is upgraded to STRONG.
func (e *Engine) classify(overall, direction float64) models.SignalType {
	if overall < e.minConfidence || direction == 0 {
		return models.SignalNeutral
	}
	strong := overall > 0.8
	if direction > 0 {
		if strong {
			return models.SignalStrongBuy
		}
		return models.SignalBuy
	}
	if strong {
		return models.SignalStrongSell
	}
	return models.SignalSell
}

// evaluateAI scores the classifier prediction. Decisive predictions (a
// directional probability above 0.7) are boosted before clamping.
func evaluateAI(pred models.Prediction) factor {
	strength := pred.Confidence
	if pred.Probabilities.Buy > 0.7 || pred.Probabilities.Sell > 0.7 {
		strength *= 1.2
	}
	strength = math.Min(strength, 1.0)

	dir := 0.0
	switch pred.Signal {
	case models.DirectionBuy:
		dir = 1
	case models.DirectionSell:
		dir = -1
	}
	return factor{magnitude: clamp01(strength), direction: dir}
}

// evaluateTrend scores moving-average ordering scaled by ADX trend strength.
func evaluateTrend(fs *models.FeatureSeries) factor {
	score := 0.0

	sma20 := fs.Last("sma_20")
	sma50 := fs.Last("sma_50")
	if !math.IsNaN(sma20) && !math.IsNaN(sma50) {
		if sma20 > sma50 {
			score += 0.3 // bullish MA alignment
		} else if sma20 < sma50 {
			score -= 0.3 // bearish MA alignment
		}
	}

	adx := fs.Last("adx")
	if !math.IsNaN(adx) {
		if adx > 25 { // strong trend
			score *= 1.5
		} else if adx < 20 { // weak or choppy
			score *= 0.5
		}
	}
	return newFactor(score)
}

// evaluateMomentum sums RSI extremes, MACD crossover and stochastic ordering.
func evaluateMomentum(fs *models.FeatureSeries) factor {
	score := 0.0

	rsi := fs.Last("rsi")
	if !math.IsNaN(rsi) {
		if rsi > 70 {
			score -= 0.3 // overbought
		} else if rsi < 30 {
			score += 0.3 // oversold
		}
	}

	macdLine := fs.Last("macd_line")
	macdSignal := fs.Last("macd_signal")
	if !math.IsNaN(macdLine) && !math.IsNaN(macdSignal) {
		if macdLine > macdSignal {
			score += 0.3
		} else {
			score -= 0.3
		}
	}

	stochK := fs.Last("stoch_k")
	stochD := fs.Last("stoch_d")
	if !math.IsNaN(stochK) && !math.IsNaN(stochD) {
		if stochK > stochD {
			score += 0.2
		} else {
			score -= 0.2
		}
	}
	return newFactor(score)
}

// evaluateSupportResistance scores proximity to the nearest levels: support
// below is a bullish bias, resistance above a bearish one.
func evaluateSupportResistance(currentPrice float64, lv models.LevelSet) factor {
	if currentPrice <= 0 {
		return factor{}
	}
	score := 0.0

	if support, ok := lv.NearestSupport(currentPrice); ok {
		proximity := (currentPrice - support) / currentPrice
		if proximity < 0.01 {
			score += 0.5
		} else if proximity < 0.02 {
			score += 0.3
		}
	}
	if resistance, ok := lv.NearestResistance(currentPrice); ok {
		proximity := (resistance - currentPrice) / currentPrice
		if proximity < 0.01 {
			score -= 0.5
		} else if proximity < 0.02 {
			score -= 0.3
		}
	}
	return newFactor(score)
}

// tradeLevels computes entry/stop/target. The stop prefers the nearest
// structural level; without one it falls back to 2×ATR. The reported ratio
// is the achieved reward/risk, which can differ from the target when the
// ATR fallback applies to one leg only.
func (e *Engine) tradeLevels(
	signalType models.SignalType,
	currentPrice float64,
	fs *models.FeatureSeries,
	lv models.LevelSet,
) (entry, stop, target, rr float64) {
	atr := fs.Last("atr")
	if math.IsNaN(atr) || atr <= 0 {
		atr = currentPrice * 0.001
	}

	entry = currentPrice
	if signalType.IsLong() {
		if support, ok := lv.NearestSupport(currentPrice); ok {
			stop = support
		} else {
			stop = currentPrice - 2*atr
		}
		target = entry + (entry-stop)*e.riskReward
	} else {
		if resistance, ok := lv.NearestResistance(currentPrice); ok {
			stop = resistance
		} else {
			stop = currentPrice + 2*atr
		}
		target = entry - (stop-entry)*e.riskReward
	}

	risk := math.Abs(entry - stop)
	reward := math.Abs(target - entry)
	if risk > 0 {
		rr = reward / risk
	} else {
		rr = e.riskReward
	}
	return entry, stop, target, rr
}

// neutralSignal is the record emitted when fused evidence does not clear the
// confidence floor: no trade levels, zeroed metrics.
func (e *Engine) neutralSignal(symbol string) models.Signal {
	return models.Signal{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
		Type:      models.SignalNeutral,
	}
}

func technicalSummary(fs *models.FeatureSeries) *models.TechnicalSummary {
	return &models.TechnicalSummary{
		RSI: nanToZero(fs.Last("rsi")),
		MACD: models.MACDSummary{
			Line:      nanToZero(fs.Last("macd_line")),
			Signal:    nanToZero(fs.Last("macd_signal")),
			Histogram: nanToZero(fs.Last("macd_histogram")),
		},
		Bollinger: models.BollingerSummary{
			Upper:  nanToZero(fs.Last("bb_upper")),
			Middle: nanToZero(fs.Last("bb_middle")),
			Lower:  nanToZero(fs.Last("bb_lower")),
		},
		ADX: nanToZero(fs.Last("adx")),
	}
}

// marketContext summarizes broad conditions: trend label from MA ordering,
// annualized close-to-close volatility, average volume and the evaluated
// price range.
func marketContext(fs *models.FeatureSeries) *models.MarketContext {
	ctx := &models.MarketContext{Trend: "downtrend"}
	if fs.Last("sma_20") > fs.Last("sma_50") {
		ctx.Trend = "uptrend"
	}

	var returns []float64
	for i := 1; i < len(fs.Candles); i++ {
		prev := fs.Candles[i-1].Close
		if prev != 0 {
			returns = append(returns, fs.Candles[i].Close/prev-1)
		}
	}
	ctx.Volatility = stdDev(returns) * math.Sqrt(252)

	var volumeSum, high, low float64
	for i, c := range fs.Candles {
		volumeSum += c.Volume
		if i == 0 || c.High > high {
			high = c.High
		}
		if i == 0 || c.Low < low {
			low = c.Low
		}
	}
	if n := len(fs.Candles); n > 0 {
		ctx.AvgVolume = volumeSum / float64(n)
	}
	ctx.PriceRange = models.PriceRange{High: high, Low: low}
	return ctx
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
