package models

import "time"

// SignalType classifies a generated trading signal.
type SignalType string

const (
	SignalStrongBuy  SignalType = "STRONG_BUY"
	SignalBuy        SignalType = "BUY"
	SignalSell       SignalType = "SELL"
	SignalStrongSell SignalType = "STRONG_SELL"
	SignalNeutral    SignalType = "NEUTRAL"
	SignalHold       SignalType = "HOLD"
)

// IsLong reports whether the signal is long-biased.
func (s SignalType) IsLong() bool {
	return s == SignalBuy || s == SignalStrongBuy
}

// IsShort reports whether the signal is short-biased.
func (s SignalType) IsShort() bool {
	return s == SignalSell || s == SignalStrongSell
}

// Actionable reports whether the signal carries trade levels.
func (s SignalType) Actionable() bool {
	return s.IsLong() || s.IsShort()
}

// SignalMetrics is the per-factor breakdown behind a signal. All values are
// unsigned magnitudes in [0,1]; direction is carried by the signal type.
type SignalMetrics struct {
	AIScore                float64 `json:"ai_score"`
	TrendScore             float64 `json:"trend_score"`
	MomentumScore          float64 `json:"momentum_score"`
	SupportResistanceScore float64 `json:"support_resistance_score"`
}

// MACDSummary holds the MACD triple at signal time.
type MACDSummary struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerSummary holds the Bollinger band levels at signal time.
type BollingerSummary struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// TechnicalSummary is a snapshot of the headline indicators behind a signal.
type TechnicalSummary struct {
	RSI       float64          `json:"rsi"`
	MACD      MACDSummary      `json:"macd"`
	Bollinger BollingerSummary `json:"bollinger"`
	ADX       float64          `json:"adx"`
}

// PriceRange is the high/low range over the evaluated window.
type PriceRange struct {
	High float64 `json:"daily_high"`
	Low  float64 `json:"daily_low"`
}

// MarketContext describes broad market conditions at signal time.
type MarketContext struct {
	Trend      string     `json:"trend"`
	Volatility float64    `json:"volatility"`
	AvgVolume  float64    `json:"avg_volume"`
	PriceRange PriceRange `json:"price_range"`
}

// SignalMetadata carries the evidence a signal was built from.
type SignalMetadata struct {
	AIPrediction *Prediction       `json:"ai_prediction,omitempty"`
	Technical    *TechnicalSummary `json:"technical_indicators,omitempty"`
	Market       *MarketContext    `json:"market_context,omitempty"`
}

// Signal is one fused trading decision. Created once per fusion cycle and
// immutable afterwards; field names are part of the downstream contract.
type Signal struct {
	ID              string         `json:"id"`
	Symbol          string         `json:"symbol,omitempty"`
	Timeframe       string         `json:"timeframe,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	Type            SignalType     `json:"signal_type"`
	Confidence      float64        `json:"confidence"`
	EntryPrice      *float64       `json:"entry_price"`
	StopLoss        *float64       `json:"stop_loss"`
	TakeProfit      *float64       `json:"take_profit"`
	RiskRewardRatio *float64       `json:"risk_reward_ratio"`
	Metrics         SignalMetrics  `json:"metrics"`
	Metadata        SignalMetadata `json:"metadata"`
}

// LevelSet holds detected support and resistance price levels. Supports sit
// strictly below the reference price, resistances strictly above; both lists
// are sorted ascending.
type LevelSet struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

// NearestSupport returns the closest support below price, or false when none.
func (ls LevelSet) NearestSupport(price float64) (float64, bool) {
	found := false
	best := 0.0
	for _, s := range ls.Support {
		if s < price && (!found || s > best) {
			best = s
			found = true
		}
	}
	return best, found
}

// NearestResistance returns the closest resistance above price, or false when none.
func (ls LevelSet) NearestResistance(price float64) (float64, bool) {
	found := false
	best := 0.0
	for _, r := range ls.Resistance {
		if r > price && (!found || r < best) {
			best = r
			found = true
		}
	}
	return best, found
}

// PatternEvent is a detected candlestick pattern on recent candles.
type PatternEvent struct {
	Pattern    string    `json:"pattern"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}
