package indicator

import (
	"math"
	"testing"
	"time"

	"synapse/internal/market"
	"synapse/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wave(n int, start time.Time, step time.Duration) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		p := 100 + 5*math.Sin(float64(i)/7) + float64(i)*0.05
		out[i] = market.Candle{
			OpenTime: start.Add(time.Duration(i) * step).UnixMilli(),
			Open:     p - 0.2,
			High:     p + 1,
			Low:      p - 1,
			Close:    p,
			Volume:   1000 + float64(i%10)*50,
		}
	}
	return out
}

func TestEnrichMasksWarmup(t *testing.T) {
	p := strategy.Default().Periods
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	snaps, err := Enrich(wave(200, start, time.Minute), p)
	require.NoError(t, err)
	require.Len(t, snaps, 200)

	cases := []struct {
		name     string
		get      func(Snapshot) Value
		firstIdx int
	}{
		{"ema_fast", func(s Snapshot) Value { return s.EMAFast }, p.EMAFast - 1},
		{"ema_slow", func(s Snapshot) Value { return s.EMASlow }, p.EMASlow - 1},
		{"macd", func(s Snapshot) Value { return s.MACD }, p.MACDSlow + p.MACDSignal - 2},
		{"macd_signal", func(s Snapshot) Value { return s.MACDSignal }, p.MACDSlow + p.MACDSignal - 2},
		{"oscillator", func(s Snapshot) Value { return s.Oscillator }, p.RSI},
		{"roc", func(s Snapshot) Value { return s.ROC }, p.ROC},
		{"cci", func(s Snapshot) Value { return s.CCI }, p.CCI - 1},
		{"adx", func(s Snapshot) Value { return s.ADX }, 2*p.ADX - 1},
		{"bb_upper", func(s Snapshot) Value { return s.BBUpper }, p.BB - 1},
		{"bb_width", func(s Snapshot) Value { return s.BBWidth }, p.BB - 1},
		{"bb_width_sma", func(s Snapshot) Value { return s.BBWidthSMA }, 2 * (p.BB - 1)},
		{"atr", func(s Snapshot) Value { return s.ATR }, p.ATR},
		{"volume_sma", func(s Snapshot) Value { return s.VolumeSMA }, p.VolumeSMA - 1},
		{"obv", func(s Snapshot) Value { return s.OBV }, 0},
		{"z_score", func(s Snapshot) Value { return s.ZScore }, p.ZScore - 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.firstIdx > 0 {
				assert.False(t, tc.get(snaps[tc.firstIdx-1]).Valid())
			}
			assert.True(t, tc.get(snaps[tc.firstIdx]).Valid())
			assert.True(t, tc.get(snaps[len(snaps)-1]).Valid())
		})
	}
}

func TestEnrichBandWidthSMA(t *testing.T) {
	p := strategy.Default().Periods
	snaps, err := Enrich(wave(120, time.Unix(0, 0).UTC(), time.Minute), p)
	require.NoError(t, err)

	last := len(snaps) - 1
	sum := 0.0
	for i := last - p.BB + 1; i <= last; i++ {
		sum += snaps[i].BBWidth.Or(math.NaN())
	}
	assert.InDelta(t, sum/float64(p.BB), snaps[last].BBWidthSMA.Or(0), 1e-9)

	upper, _ := snaps[last].BBUpper.Get()
	lower, _ := snaps[last].BBLower.Get()
	assert.InDelta(t, upper-lower, snaps[last].BBWidth.Or(0), 1e-12)
}

func TestEnrichFlatPricesGiveZeroZScore(t *testing.T) {
	candles := make([]market.Candle, 60)
	for i := range candles {
		candles[i] = market.Candle{OpenTime: int64(i) * 60_000, Open: 50, High: 50, Low: 50, Close: 50, Volume: 1}
	}
	snaps, err := Enrich(candles, strategy.Default().Periods)
	require.NoError(t, err)
	z, ok := snaps[59].ZScore.Get()
	require.True(t, ok)
	assert.InDelta(t, 0, z, 1e-6)
}

func TestEnrichShortSeriesLeavesIndicatorsAbsent(t *testing.T) {
	snaps, err := Enrich(wave(5, time.Unix(0, 0).UTC(), time.Minute), strategy.Default().Periods)
	require.NoError(t, err)
	require.Len(t, snaps, 5)
	assert.False(t, snaps[4].EMASlow.Valid())
	assert.False(t, snaps[4].ADX.Valid())
	assert.True(t, snaps[4].OBV.Valid())
	assert.True(t, snaps[4].VWAP.Valid())
}

func TestEnrichEmpty(t *testing.T) {
	_, err := Enrich(nil, strategy.Default().Periods)
	assert.Error(t, err)
}
