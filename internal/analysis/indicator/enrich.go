package indicator

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"synapse/internal/logger"
	"synapse/internal/market"
	"synapse/internal/strategy"
)

// zeroStdEpsilon treats a rolling deviation this small as flat prices.
const zeroStdEpsilon = 1e-12

// Enrich computes every indicator over candles and returns one Snapshot per
// bar. TA-Lib zero-fills its warm-up region, so each series is masked by its
// lookback before being wrapped in a Value.
func Enrich(candles []market.Candle, p strategy.Periods) ([]Snapshot, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles")
	}
	n := len(candles)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	var (
		emaLookbackFast = p.EMAFast - 1
		emaLookbackSlow = p.EMASlow - 1
		macdLookback    = p.MACDSlow - 1 + p.MACDSignal - 1
		adxLookback     = 2*p.ADX - 1
		bbLookback      = p.BB - 1
		zLookback       = p.ZScore - 1
	)

	emaFast := guard(n, emaLookbackFast, func() []float64 { return talib.Ema(closes, p.EMAFast) })
	emaSlow := guard(n, emaLookbackSlow, func() []float64 { return talib.Ema(closes, p.EMASlow) })
	macd, macdSignal := macdLines(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	rsi := guard(n, p.RSI, func() []float64 { return talib.Rsi(closes, p.RSI) })
	roc := guard(n, p.ROC, func() []float64 { return talib.Roc(closes, p.ROC) })
	cci := guard(n, p.CCI-1, func() []float64 { return talib.Cci(highs, lows, closes, p.CCI) })
	adx := guard(n, adxLookback, func() []float64 { return talib.Adx(highs, lows, closes, p.ADX) })
	atr := guard(n, p.ATR, func() []float64 { return talib.Atr(highs, lows, closes, p.ATR) })
	volSMA := guard(n, p.VolumeSMA-1, func() []float64 { return talib.Sma(volumes, p.VolumeSMA) })
	obv := talib.Obv(closes, volumes)
	zSMA := guard(n, zLookback, func() []float64 { return talib.Sma(closes, p.ZScore) })
	zStd := guard(n, zLookback, func() []float64 { return talib.StdDev(closes, p.ZScore, 1) })
	vwap := SessionVWAP(candles)

	bbUpper, bbMiddle, bbLower := make([]float64, n), make([]float64, n), make([]float64, n)
	if n > bbLookback {
		bbUpper, bbMiddle, bbLower = talib.BBands(closes, p.BB, p.BBStdDev, p.BBStdDev, talib.SMA)
	}
	bbWidth := make([]float64, n)
	for i := max(bbLookback, 0); i < n; i++ {
		bbWidth[i] = bbUpper[i] - bbLower[i]
	}
	bbWidthSMA := make([]float64, n)
	if n > 2*bbLookback {
		bbWidthSMA = alignAfter(talib.Sma(bbWidth[bbLookback:], p.BB), bbLookback, n)
	}

	out := make([]Snapshot, n)
	for i, c := range candles {
		s := Snapshot{
			Time:   c.Time(),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,

			EMAFast:    at(emaFast, i, emaLookbackFast),
			EMASlow:    at(emaSlow, i, emaLookbackSlow),
			MACD:       at(macd, i, macdLookback),
			MACDSignal: at(macdSignal, i, macdLookback),
			Oscillator: at(rsi, i, p.RSI),
			ROC:        at(roc, i, p.ROC),
			CCI:        at(cci, i, p.CCI-1),
			ADX:        at(adx, i, adxLookback),
			BBUpper:    at(bbUpper, i, bbLookback),
			BBMiddle:   at(bbMiddle, i, bbLookback),
			BBLower:    at(bbLower, i, bbLookback),
			BBWidth:    at(bbWidth, i, bbLookback),
			BBWidthSMA: at(bbWidthSMA, i, 2*bbLookback),
			ATR:        at(atr, i, p.ATR),
			VolumeSMA:  at(volSMA, i, p.VolumeSMA-1),
			OBV:        at(obv, i, 0),
			VWAP:       vwap[i],
		}
		if i >= zLookback && n > zLookback {
			if zStd[i] > zeroStdEpsilon {
				s.ZScore = Some((closes[i] - zSMA[i]) / zStd[i])
			} else {
				s.ZScore = Some(0)
			}
		}
		out[i] = s
	}
	logger.Debugf("indicator: enriched %d candles", n)
	return out, nil
}

// guard runs fn only when n bars cover lookback. go-talib indexes past the
// end of short inputs.
func guard(n, lookback int, fn func() []float64) []float64 {
	if n <= lookback {
		return make([]float64, n)
	}
	return fn()
}

// at reads series[i] as a Value, absent inside the warm-up region.
func at(series []float64, i, lookback int) Value {
	if lookback < 0 {
		lookback = 0
	}
	if i < lookback || i >= len(series) {
		return None()
	}
	return Some(series[i])
}

// macdLines derives the MACD line from two EMAs and smooths it into the
// signal line starting at the first bar the slow EMA exists, so the signal
// is never seeded with warm-up zeros.
func macdLines(closes []float64, fast, slow, signal int) ([]float64, []float64) {
	n := len(closes)
	line := make([]float64, n)
	start := slow - 1
	if start < 0 || n <= start+signal-1 {
		return line, make([]float64, n)
	}
	fastEMA := talib.Ema(closes, fast)
	slowEMA := talib.Ema(closes, slow)
	for i := start; i < n; i++ {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	return line, alignAfter(talib.Ema(line[start:], signal), start, n)
}

// alignAfter places series, computed over src[offset:], back onto n indexes.
func alignAfter(series []float64, offset, n int) []float64 {
	out := make([]float64, n)
	for i, v := range series {
		if offset+i < n {
			out[offset+i] = v
		}
	}
	return out
}
