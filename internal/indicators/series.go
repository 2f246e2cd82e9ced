package indicators

import (
	"math"

	"tradefusion/models"
)

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// smaSeries returns the simple moving average; the first period-1 values are NaN.
func smaSeries(values []float64, period int) []float64 {
	out := nans(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// emaSeries seeds with the SMA of the first period values, then applies the
// standard recursive weighting.
func emaSeries(values []float64, period int) []float64 {
	out := nans(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// rsiSeries implements Wilder's RSI; the first period values are NaN.
func rsiSeries(closes []float64, period int) []float64 {
	out := nans(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// macdSeries returns the MACD line, signal line and histogram.
func macdSeries(closes []float64, fastPeriod, slowPeriod, signalPeriod int) ([]float64, []float64, []float64) {
	n := len(closes)
	line, signal, hist := nans(n), nans(n), nans(n)
	if n < slowPeriod {
		return line, signal, hist
	}

	fast := emaSeries(closes, fastPeriod)
	slow := emaSeries(closes, slowPeriod)
	for i := slowPeriod - 1; i < n; i++ {
		line[i] = fast[i] - slow[i]
	}

	// Signal line is an EMA over the valid portion of the MACD line.
	valid := line[slowPeriod-1:]
	sig := emaSeries(valid, signalPeriod)
	for i, v := range sig {
		signal[slowPeriod-1+i] = v
	}
	for i := 0; i < n; i++ {
		hist[i] = line[i] - signal[i]
	}
	return line, signal, hist
}

// bollingerSeries returns upper/middle/lower bands.
func bollingerSeries(closes []float64, period int, stdDev float64) ([]float64, []float64, []float64) {
	n := len(closes)
	upper, middle, lower := nans(n), nans(n), nans(n)
	if period <= 0 || n < period {
		return upper, middle, lower
	}
	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)

		var variance float64
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		sd := math.Sqrt(variance / float64(period))

		middle[i] = mean
		upper[i] = mean + sd*stdDev
		lower[i] = mean - sd*stdDev
	}
	return upper, middle, lower
}

// atrSeries implements Wilder's smoothed Average True Range.
func atrSeries(candles []models.Candle, period int) []float64 {
	n := len(candles)
	out := nans(n)
	if period <= 0 || n < period+1 {
		return out
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		highLow := candles[i].High - candles[i].Low
		highPrevClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowPrevClose := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(highLow, math.Max(highPrevClose, lowPrevClose))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	out[period] = atr

	for i := period + 1; i < n; i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out
}

// adxSeries returns ADX, +DI and -DI using Wilder smoothing. +DI/-DI become
// valid at index period, ADX at index 2*period-1.
func adxSeries(candles []models.Candle, period int) ([]float64, []float64, []float64) {
	n := len(candles)
	adx, plusDI, minusDI := nans(n), nans(n), nans(n)
	if period <= 0 || n < 2*period {
		return adx, plusDI, minusDI
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr1 := candles[i].High - candles[i].Low
		tr2 := math.Abs(candles[i].High - candles[i-1].Close)
		tr3 := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(tr1, math.Max(tr2, tr3))
	}

	var smTR, smPlusDM, smMinusDM float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlusDM += plusDM[i]
		smMinusDM += minusDM[i]
	}

	dx := nans(n)
	writeDI := func(i int) {
		if smTR == 0 {
			plusDI[i], minusDI[i], dx[i] = 0, 0, 0
			return
		}
		pDI := smPlusDM / smTR * 100
		mDI := smMinusDM / smTR * 100
		plusDI[i] = pDI
		minusDI[i] = mDI
		if pDI+mDI == 0 {
			dx[i] = 0
			return
		}
		dx[i] = math.Abs(pDI-mDI) / (pDI + mDI) * 100
	}
	writeDI(period)

	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM[i]
		smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM[i]
		writeDI(i)
	}

	// ADX seeds with the mean DX over the second period, then smooths.
	var dxSum float64
	for i := period; i < 2*period; i++ {
		dxSum += dx[i]
	}
	cur := dxSum / float64(period)
	adx[2*period-1] = cur
	for i := 2 * period; i < n; i++ {
		cur = (cur*float64(period-1) + dx[i]) / float64(period)
		adx[i] = cur
	}
	return adx, plusDI, minusDI
}

// stochasticSeries returns %K and its SMA %D.
func stochasticSeries(candles []models.Candle, kPeriod, dPeriod int) ([]float64, []float64) {
	n := len(candles)
	k := nans(n)
	if kPeriod <= 0 || n < kPeriod {
		return k, nans(n)
	}
	for i := kPeriod - 1; i < n; i++ {
		highest := candles[i-kPeriod+1].High
		lowest := candles[i-kPeriod+1].Low
		for j := i - kPeriod + 2; j <= i; j++ {
			if candles[j].High > highest {
				highest = candles[j].High
			}
			if candles[j].Low < lowest {
				lowest = candles[j].Low
			}
		}
		if highest-lowest > 0 {
			k[i] = (candles[i].Close - lowest) / (highest - lowest) * 100
		} else {
			k[i] = 50.0
		}
	}

	d := nans(n)
	for i := kPeriod - 1 + dPeriod - 1; i < n; i++ {
		var sum float64
		for j := i - dPeriod + 1; j <= i; j++ {
			sum += k[j]
		}
		d[i] = sum / float64(dPeriod)
	}
	return k, d
}

// vwapSeries computes a rolling volume weighted average of the typical price.
func vwapSeries(candles []models.Candle, period int) []float64 {
	n := len(candles)
	out := nans(n)
	if period <= 0 || n < period {
		return out
	}
	for i := period - 1; i < n; i++ {
		var priceVolume, volume float64
		for j := i - period + 1; j <= i; j++ {
			typical := (candles[j].High + candles[j].Low + candles[j].Close) / 3
			priceVolume += typical * candles[j].TickVolume
			volume += candles[j].TickVolume
		}
		if volume > 0 {
			out[i] = priceVolume / volume
		}
	}
	return out
}
