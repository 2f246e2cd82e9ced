package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradefusion/models"
)

func TestSMASeries(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := smaSeries(values, 3)

	for i := 0; i < 2; i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("sma[%d] = %v, want NaN before the window fills", i, out[i])
		}
	}
	expected := []float64{2, 3, 4}
	for i, want := range expected {
		if math.Abs(out[i+2]-want) > 1e-12 {
			t.Errorf("sma[%d] = %v, want %v", i+2, out[i+2], want)
		}
	}
}

func TestEMASeries(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := emaSeries(values, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Error("ema should be NaN before the seed window fills")
	}
	// Seeded with SMA(1,2,3)=2, multiplier 0.5: 2, 3, 4.
	expected := []float64{2, 3, 4}
	for i, want := range expected {
		if math.Abs(out[i+2]-want) > 1e-12 {
			t.Errorf("ema[%d] = %v, want %v", i+2, out[i+2], want)
		}
	}
}

func TestRSISeries(t *testing.T) {
	t.Run("Monotonic rise saturates at 100", func(t *testing.T) {
		values := make([]float64, 20)
		for i := range values {
			values[i] = 100 + float64(i)
		}
		out := rsiSeries(values, 14)
		for i := 0; i < 14; i++ {
			if !math.IsNaN(out[i]) {
				t.Errorf("rsi[%d] = %v, want NaN", i, out[i])
			}
		}
		if out[19] != 100 {
			t.Errorf("rsi = %v, want 100 on an all-gain series", out[19])
		}
	})

	t.Run("Alternating moves stay near the middle", func(t *testing.T) {
		values := make([]float64, 40)
		for i := range values {
			values[i] = 100 + float64(i%2)
		}
		out := rsiSeries(values, 14)
		last := out[len(out)-1]
		if last < 30 || last > 70 {
			t.Errorf("rsi = %v, want mid-range for alternating moves", last)
		}
	})
}

func TestMACDSeries(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i) // steady uptrend
	}
	line, signal, hist := macdSeries(values, 12, 26, 9)

	for i := 0; i < 25; i++ {
		if !math.IsNaN(line[i]) {
			t.Errorf("macd_line[%d] = %v, want NaN before the slow window", i, line[i])
		}
	}
	if line[59] <= 0 {
		t.Errorf("macd_line = %v, want positive in an uptrend", line[59])
	}
	if math.Abs(hist[59]-(line[59]-signal[59])) > 1e-12 {
		t.Errorf("histogram = %v, want line - signal = %v", hist[59], line[59]-signal[59])
	}
}

func TestBollingerSeries(t *testing.T) {
	t.Run("Constant closes collapse the bands", func(t *testing.T) {
		values := make([]float64, 25)
		for i := range values {
			values[i] = 100
		}
		upper, middle, lower := bollingerSeries(values, 20, 2.0)
		if upper[24] != 100 || middle[24] != 100 || lower[24] != 100 {
			t.Errorf("bands = %v/%v/%v, want all 100 on constant closes",
				upper[24], middle[24], lower[24])
		}
	})

	t.Run("Bands are symmetric around the middle", func(t *testing.T) {
		values := make([]float64, 25)
		for i := range values {
			values[i] = 100 + float64(i%5)
		}
		upper, middle, lower := bollingerSeries(values, 20, 2.0)
		if math.Abs((upper[24]-middle[24])-(middle[24]-lower[24])) > 1e-9 {
			t.Errorf("bands not symmetric: upper %v, middle %v, lower %v",
				upper[24], middle[24], lower[24])
		}
		if upper[24] <= middle[24] {
			t.Error("upper band should sit above the middle on varying closes")
		}
	})
}

func TestATRSeries(t *testing.T) {
	candles := make([]models.Candle, 30)
	for i := range candles {
		candles[i] = models.Candle{High: 101, Low: 100, Close: 100.5}
	}
	out := atrSeries(candles, 14)

	for i := 0; i < 14; i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("atr[%d] = %v, want NaN", i, out[i])
		}
	}
	// Constant 1-point true range means ATR is exactly 1 everywhere.
	if math.Abs(out[29]-1.0) > 1e-9 {
		t.Errorf("atr = %v, want 1.0 for constant ranges", out[29])
	}
}

func TestStochasticSeries(t *testing.T) {
	t.Run("Close at the top of the range", func(t *testing.T) {
		candles := make([]models.Candle, 20)
		for i := range candles {
			price := 100 + float64(i)
			candles[i] = models.Candle{High: price + 1, Low: price - 1, Close: price + 1}
		}
		k, d := stochasticSeries(candles, 14, 3)
		if k[19] != 100 {
			t.Errorf("stoch_k = %v, want 100 when closing on the high", k[19])
		}
		if math.IsNaN(d[19]) {
			t.Error("stoch_d should be valid once %K history covers the smoothing window")
		}
	})

	t.Run("Flat range defaults to midpoint", func(t *testing.T) {
		candles := make([]models.Candle, 20)
		for i := range candles {
			candles[i] = models.Candle{High: 100, Low: 100, Close: 100}
		}
		k, _ := stochasticSeries(candles, 14, 3)
		if k[19] != 50 {
			t.Errorf("stoch_k = %v, want 50 on a flat range", k[19])
		}
	})
}

func TestADXSeriesTrendStrength(t *testing.T) {
	candles := make([]models.Candle, 60)
	for i := range candles {
		price := 100 + float64(i) // every bar makes a higher high
		candles[i] = models.Candle{High: price + 1, Low: price - 1, Close: price + 0.5}
	}
	adx, plusDI, minusDI := adxSeries(candles, 14)

	if !math.IsNaN(adx[26]) {
		t.Errorf("adx[26] = %v, want NaN before 2*period-1", adx[26])
	}
	if math.IsNaN(adx[27]) {
		t.Error("adx[27] should be the seeded value")
	}
	if adx[59] < 25 {
		t.Errorf("adx = %v, want strong trend reading above 25", adx[59])
	}
	if plusDI[59] <= minusDI[59] {
		t.Errorf("+DI %v should exceed -DI %v in a pure uptrend", plusDI[59], minusDI[59])
	}
}

func TestEnrichColumnSet(t *testing.T) {
	candles := generateTestCandles(220, func(i int) models.Candle {
		price := 100 + float64(i)*0.1 + 2*math.Sin(float64(i)/4)
		return models.Candle{
			Timestamp:  time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
			Open:       price - 0.1,
			High:       price + 0.5,
			Low:        price - 0.5,
			Close:      price,
			Volume:     1000,
			TickVolume: 500,
		}
	})

	fs := New(DefaultConfig(), zerolog.Nop()).Enrich(candles)

	expected := []string{
		"open", "high", "low", "close", "volume", "tick_volume",
		"sma_9", "sma_20", "sma_50", "sma_200",
		"ema_9", "ema_20", "ema_50", "ema_200",
		"rsi", "macd_line", "macd_signal", "macd_histogram",
		"bb_upper", "bb_middle", "bb_lower", "bb_width",
		"adx", "adx_pos", "adx_neg", "atr",
		"stoch_k", "stoch_d", "vwap",
	}
	for _, name := range expected {
		col, ok := fs.Column(name)
		if !ok {
			t.Errorf("column %q missing after Enrich", name)
			continue
		}
		if len(col) != len(candles) {
			t.Errorf("column %q has %d values, want %d", name, len(col), len(candles))
		}
		if math.IsNaN(col[len(col)-1]) {
			t.Errorf("column %q has NaN at the last position", name)
		}
	}
}

func TestEnrichSkipsVWAPWithoutTicks(t *testing.T) {
	candles := generateTestCandles(50, func(i int) models.Candle {
		price := 100 + float64(i)*0.1
		return models.Candle{
			Open: price, High: price + 0.5, Low: price - 0.5, Close: price, Volume: 1000,
		}
	})

	fs := New(DefaultConfig(), zerolog.Nop()).Enrich(candles)

	if _, ok := fs.Column("vwap"); ok {
		t.Error("vwap should be skipped when tick volume is absent")
	}
	if _, ok := fs.Column("rsi"); !ok {
		t.Error("other indicators must survive a skipped vwap")
	}
}

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
	}
	return candles
}
