// Package indicators computes the technical indicator vocabulary over a
// candle series. Each indicator is windowed over the full series; the first
// window-1 positions of every column are NaN by construction and callers
// must tolerate the leading gap.
package indicators

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"tradefusion/models"
)

// Config holds the indicator windows. Zero values fall back to the defaults
// used throughout the signal pipeline.
type Config struct {
	MAPeriods        []int
	RSIPeriod        int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
	BBPeriod         int
	BBStdDev         float64
	ADXPeriod        int
	ATRPeriod        int
	StochKPeriod     int
	StochDPeriod     int
	VWAPPeriod       int
}

// DefaultConfig returns the standard indicator set windows.
func DefaultConfig() Config {
	return Config{
		MAPeriods:        []int{9, 20, 50, 200},
		RSIPeriod:        14,
		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,
		BBPeriod:         20,
		BBStdDev:         2.0,
		ADXPeriod:        14,
		ATRPeriod:        14,
		StochKPeriod:     14,
		StochDPeriod:     3,
		VWAPPeriod:       14,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.MAPeriods) == 0 {
		c.MAPeriods = d.MAPeriods
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.MACDFastPeriod <= 0 {
		c.MACDFastPeriod = d.MACDFastPeriod
	}
	if c.MACDSlowPeriod <= 0 {
		c.MACDSlowPeriod = d.MACDSlowPeriod
	}
	if c.MACDSignalPeriod <= 0 {
		c.MACDSignalPeriod = d.MACDSignalPeriod
	}
	if c.BBPeriod <= 0 {
		c.BBPeriod = d.BBPeriod
	}
	if c.BBStdDev <= 0 {
		c.BBStdDev = d.BBStdDev
	}
	if c.ADXPeriod <= 0 {
		c.ADXPeriod = d.ADXPeriod
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = d.ATRPeriod
	}
	if c.StochKPeriod <= 0 {
		c.StochKPeriod = d.StochKPeriod
	}
	if c.StochDPeriod <= 0 {
		c.StochDPeriod = d.StochDPeriod
	}
	if c.VWAPPeriod <= 0 {
		c.VWAPPeriod = d.VWAPPeriod
	}
	return c
}

// Engine enriches candle series with indicator columns.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates an indicator engine with the given windows.
func New(cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{cfg: cfg.withDefaults(), logger: logger}
}

// Enrich returns the series augmented with the full indicator column set.
// A failure in any single indicator is logged and that indicator skipped;
// partial results are acceptable and the pass never aborts.
func (e *Engine) Enrich(candles []models.Candle) *models.FeatureSeries {
	fs := models.NewFeatureSeries(candles)
	e.setBaseColumns(fs)

	steps := []struct {
		name string
		fn   func(*models.FeatureSeries) error
	}{
		{"moving_averages", e.addMovingAverages},
		{"rsi", e.addRSI},
		{"macd", e.addMACD},
		{"bollinger", e.addBollinger},
		{"adx", e.addADX},
		{"atr", e.addATR},
		{"stochastic", e.addStochastic},
		{"vwap", e.addVWAP},
	}
	for _, step := range steps {
		if err := step.fn(fs); err != nil {
			e.logger.Warn().Err(err).Str("indicator", step.name).Msg("indicator skipped")
		}
	}
	return fs
}

func (e *Engine) setBaseColumns(fs *models.FeatureSeries) {
	n := fs.Len()
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	tickVolume := make([]float64, n)
	for i, c := range fs.Candles {
		open[i] = c.Open
		high[i] = c.High
		low[i] = c.Low
		closes[i] = c.Close
		volume[i] = c.Volume
		tickVolume[i] = c.TickVolume
	}
	fs.SetColumn("open", open)
	fs.SetColumn("high", high)
	fs.SetColumn("low", low)
	fs.SetColumn("close", closes)
	fs.SetColumn("volume", volume)
	fs.SetColumn("tick_volume", tickVolume)
}

func (e *Engine) addMovingAverages(fs *models.FeatureSeries) error {
	closes := closeValues(fs.Candles)
	for _, period := range e.cfg.MAPeriods {
		if period <= 0 {
			return fmt.Errorf("invalid moving average period %d", period)
		}
		fs.SetColumn(fmt.Sprintf("sma_%d", period), smaSeries(closes, period))
		fs.SetColumn(fmt.Sprintf("ema_%d", period), emaSeries(closes, period))
	}
	return nil
}

func (e *Engine) addRSI(fs *models.FeatureSeries) error {
	closes := closeValues(fs.Candles)
	fs.SetColumn("rsi", rsiSeries(closes, e.cfg.RSIPeriod))
	return nil
}

func (e *Engine) addMACD(fs *models.FeatureSeries) error {
	if e.cfg.MACDFastPeriod >= e.cfg.MACDSlowPeriod {
		return fmt.Errorf("macd fast period %d must be below slow period %d",
			e.cfg.MACDFastPeriod, e.cfg.MACDSlowPeriod)
	}
	closes := closeValues(fs.Candles)
	line, signal, hist := macdSeries(closes,
		e.cfg.MACDFastPeriod, e.cfg.MACDSlowPeriod, e.cfg.MACDSignalPeriod)
	fs.SetColumn("macd_line", line)
	fs.SetColumn("macd_signal", signal)
	fs.SetColumn("macd_histogram", hist)
	return nil
}

func (e *Engine) addBollinger(fs *models.FeatureSeries) error {
	closes := closeValues(fs.Candles)
	upper, middle, lower := bollingerSeries(closes, e.cfg.BBPeriod, e.cfg.BBStdDev)
	width := make([]float64, len(closes))
	for i := range width {
		if middle[i] != 0 {
			width[i] = (upper[i] - lower[i]) / middle[i]
		} else {
			width[i] = math.NaN()
		}
	}
	fs.SetColumn("bb_upper", upper)
	fs.SetColumn("bb_middle", middle)
	fs.SetColumn("bb_lower", lower)
	fs.SetColumn("bb_width", width)
	return nil
}

func (e *Engine) addADX(fs *models.FeatureSeries) error {
	adx, plusDI, minusDI := adxSeries(fs.Candles, e.cfg.ADXPeriod)
	fs.SetColumn("adx", adx)
	fs.SetColumn("adx_pos", plusDI)
	fs.SetColumn("adx_neg", minusDI)
	return nil
}

func (e *Engine) addATR(fs *models.FeatureSeries) error {
	fs.SetColumn("atr", atrSeries(fs.Candles, e.cfg.ATRPeriod))
	return nil
}

func (e *Engine) addStochastic(fs *models.FeatureSeries) error {
	k, d := stochasticSeries(fs.Candles, e.cfg.StochKPeriod, e.cfg.StochDPeriod)
	fs.SetColumn("stoch_k", k)
	fs.SetColumn("stoch_d", d)
	return nil
}

func (e *Engine) addVWAP(fs *models.FeatureSeries) error {
	hasTicks := false
	for _, c := range fs.Candles {
		if c.TickVolume > 0 {
			hasTicks = true
			break
		}
	}
	if !hasTicks {
		return fmt.Errorf("tick_volume not available")
	}
	fs.SetColumn("vwap", vwapSeries(fs.Candles, e.cfg.VWAPPeriod))
	return nil
}

func closeValues(candles []models.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
