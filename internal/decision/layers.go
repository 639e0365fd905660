package decision

import (
	"fmt"

	"synapse/internal/analysis/indicator"
	"synapse/internal/strategy"
)

// Bias is the fast/slow EMA cross, computed once per evaluation.
type Bias int

const (
	BiasFlat Bias = iota
	BiasBullish
	BiasBearish
)

// LayerContext carries what a layer needs beyond the current row.
type LayerContext struct {
	// PrevOBV is the previous bar's OBV; absent on the first bar of a series.
	PrevOBV indicator.Value
	Bias    Bias
}

func NewLayerContext(snap indicator.Snapshot, prevOBV indicator.Value) LayerContext {
	ctx := LayerContext{PrevOBV: prevOBV}
	switch {
	case snap.EMAFast.Gt(snap.EMASlow):
		ctx.Bias = BiasBullish
	case snap.EMAFast.Lt(snap.EMASlow):
		ctx.Bias = BiasBearish
	}
	return ctx
}

// LayerFunc evaluates one layer. Implementations are pure.
type LayerFunc func(indicator.Snapshot, strategy.Config, LayerContext) Verdict

// Layers run in this order; the index plus one is the layer number.
var Layers = [6]LayerFunc{
	TrendAlignment,
	MomentumQuality,
	TrendStrength,
	VolatilityExpansion,
	VolumeParticipation,
	StatisticalEdge,
}

func newVerdict(layer int, name string) Verdict {
	return Verdict{Layer: layer, Name: name, Result: ResultNoTrade, Direction: DirectionNone}
}

func (v *Verdict) fire(dir Direction, reason string) {
	v.Result = ResultTrade
	v.Direction = dir
	v.Reason = reason
}

func emaLabel(period int) string {
	return fmt.Sprintf("EMA %d", period)
}

func TrendAlignment(s indicator.Snapshot, cfg strategy.Config, ctx LayerContext) Verdict {
	fast, slow := cfg.Periods.EMAFast, cfg.Periods.EMASlow
	v := newVerdict(1, "Trend Alignment")
	v.Readings = Readings{
		{emaLabel(fast), fixed(s.EMAFast, 2)},
		{emaLabel(slow), fixed(s.EMASlow, 2)},
		{"MACD", fixed(s.MACD, 4)},
		{"MACD Signal", fixed(s.MACDSignal, 4)},
		{"Close", price(s.Close)},
		{"VWAP", fixed(s.VWAP, 2)},
	}
	v.LongCondition = fmt.Sprintf("EMA%d > EMA%d  AND  MACD > Signal AND > 0  AND  Close > VWAP", fast, slow)
	v.ShortCondition = fmt.Sprintf("EMA%d < EMA%d  AND  MACD < Signal AND < 0  AND  Close < VWAP", fast, slow)

	px := indicator.Some(s.Close)
	switch {
	case ctx.Bias == BiasBullish && s.MACD.Gt(s.MACDSignal) && s.MACD.GtF(0) && px.Gt(s.VWAP):
		v.fire(DirectionLong, "Trend Direction Aligned (Bullish)")
	case ctx.Bias == BiasBearish && s.MACD.Lt(s.MACDSignal) && s.MACD.LtF(0) && px.Lt(s.VWAP):
		v.fire(DirectionShort, "Trend Direction Aligned (Bearish)")
	default:
		v.Reason = "Trend not aligned"
	}
	return v
}

func MomentumQuality(s indicator.Snapshot, cfg strategy.Config, _ LayerContext) Verdict {
	th := cfg.Thresholds
	v := newVerdict(2, "Momentum Quality")
	v.Readings = Readings{
		{"RSI", fixed(s.Oscillator, 2)},
		{"ROC", fixed(s.ROC, 2)},
		{"CCI", fixed(s.CCI, 2)},
	}
	v.LongCondition = fmt.Sprintf("(RSI < %s AND ROC > %s)  OR  CCI > %s", num(th.RSIOversold), num(th.ROCStrong), num(th.CCI))
	v.ShortCondition = fmt.Sprintf("(RSI > %s AND ROC < -%s)  OR  CCI < -%s", num(th.RSIOverbought), num(th.ROCStrong), num(th.CCI))

	long := (s.Oscillator.LtF(th.RSIOversold) && s.ROC.GtF(th.ROCStrong)) || s.CCI.GtF(th.CCI)
	short := (s.Oscillator.GtF(th.RSIOverbought) && s.ROC.LtF(-th.ROCStrong)) || s.CCI.LtF(-th.CCI)
	switch {
	case long:
		v.fire(DirectionLong, "Momentum Quality Strong (Bullish)")
	case short:
		v.fire(DirectionShort, "Momentum Quality Strong (Bearish)")
	default:
		v.Reason = "Momentum not strong"
	}
	return v
}

func TrendStrength(s indicator.Snapshot, cfg strategy.Config, ctx LayerContext) Verdict {
	th := cfg.Thresholds
	v := newVerdict(3, "Trend Strength")
	v.Readings = Readings{
		{"ADX", fixed(s.ADX, 2)},
		{emaLabel(cfg.Periods.EMAFast), fixed(s.EMAFast, 2)},
		{emaLabel(cfg.Periods.EMASlow), fixed(s.EMASlow, 2)},
	}
	v.LongCondition = fmt.Sprintf("ADX >= %s  AND  EMA%d > EMA%d", num(th.ADX), cfg.Periods.EMAFast, cfg.Periods.EMASlow)
	v.ShortCondition = fmt.Sprintf("ADX >= %s  AND  EMA%d < EMA%d", num(th.ADX), cfg.Periods.EMAFast, cfg.Periods.EMASlow)

	strong := s.ADX.GeF(th.ADX)
	switch {
	case strong && ctx.Bias == BiasBullish:
		v.fire(DirectionLong, fmt.Sprintf("Trend Strength >= %s (Bullish)", num(th.ADX)))
	case strong && ctx.Bias == BiasBearish:
		v.fire(DirectionShort, fmt.Sprintf("Trend Strength >= %s (Bearish)", num(th.ADX)))
	default:
		v.Reason = "Weak trend"
	}
	return v
}

func VolatilityExpansion(s indicator.Snapshot, cfg strategy.Config, _ LayerContext) Verdict {
	factor := cfg.Thresholds.BBWidthExpansionFactor
	v := newVerdict(4, "Volatility Expansion")
	v.Readings = Readings{
		{"BB Width", fixed(s.BBWidth, 4)},
		{"BB Width SMA", fixed(s.BBWidthSMA, 4)},
		{"BB Upper", fixed(s.BBUpper, 2)},
		{"BB Middle", fixed(s.BBMiddle, 2)},
		{"BB Lower", fixed(s.BBLower, 2)},
		{"Close", price(s.Close)},
	}
	v.LongCondition = fmt.Sprintf("BB Width > BB Width SMA × %s  AND  Middle < Close < Upper", num(factor))
	v.ShortCondition = fmt.Sprintf("BB Width > BB Width SMA × %s  AND  Lower < Close < Middle", num(factor))

	px := indicator.Some(s.Close)
	expanding := s.BBWidth.Gt(s.BBWidthSMA.Mul(factor))
	switch {
	case expanding && s.BBMiddle.Lt(px) && px.Lt(s.BBUpper):
		v.fire(DirectionLong, "Volatility Expanding (Bullish)")
	case expanding && s.BBLower.Lt(px) && px.Lt(s.BBMiddle):
		v.fire(DirectionShort, "Volatility Expanding (Bearish)")
	default:
		v.Reason = "Volatility not expanding"
	}
	return v
}

func VolumeParticipation(s indicator.Snapshot, cfg strategy.Config, ctx LayerContext) Verdict {
	factor := cfg.Thresholds.VolumeParticipationFactor
	fast, slow := cfg.Periods.EMAFast, cfg.Periods.EMASlow
	v := newVerdict(5, "Volume Participation")
	v.Readings = Readings{
		{"Volume", count(indicator.Some(s.Volume))},
		{"Volume SMA", count(s.VolumeSMA)},
		{"OBV", count(s.OBV)},
		{"Prev OBV", count(ctx.PrevOBV)},
	}
	v.LongCondition = fmt.Sprintf("Volume > Volume SMA × %s  AND  OBV rising  AND  EMA%d > EMA%d", num(factor), fast, slow)
	v.ShortCondition = fmt.Sprintf("Volume > Volume SMA × %s  AND  OBV falling  AND  EMA%d < EMA%d", num(factor), fast, slow)

	if !ctx.PrevOBV.Valid() {
		v.Reason = "No previous OBV"
		return v
	}
	if !indicator.Some(s.Volume).Gt(s.VolumeSMA.Mul(factor)) {
		v.Reason = "Volume not sufficient"
		return v
	}
	rising := s.OBV.Gt(ctx.PrevOBV)
	switch {
	case rising && ctx.Bias == BiasBullish:
		v.fire(DirectionLong, "Volume Participation Good (Bullish)")
	case !rising && ctx.Bias == BiasBearish:
		v.fire(DirectionShort, "Volume Participation Good (Bearish)")
	default:
		v.Reason = "Volume direction conflicts with trend"
	}
	return v
}

func StatisticalEdge(s indicator.Snapshot, cfg strategy.Config, _ LayerContext) Verdict {
	z := cfg.Thresholds.ZScoreExtreme
	v := newVerdict(6, "Statistical Edge")
	v.Readings = Readings{
		{"Z-Score", fixed(s.ZScore, 4)},
		{"ATR", fixed(s.ATR, 4)},
	}
	v.LongCondition = fmt.Sprintf("Z-Score > %s", num(z))
	v.ShortCondition = fmt.Sprintf("Z-Score < -%s", num(z))

	switch {
	case s.ZScore.GtF(z):
		v.fire(DirectionLong, "Statistical Edge Extreme (Bullish)")
	case s.ZScore.LtF(-z):
		v.fire(DirectionShort, "Statistical Edge Extreme (Bearish)")
	default:
		v.Reason = "No statistical extreme"
	}
	return v
}
