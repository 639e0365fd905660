package decision

import (
	"encoding/json"
	"testing"

	"synapse/internal/analysis/indicator"
	"synapse/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseSnapshot fires layer 1 and layer 3 LONG with the default config.
func baseSnapshot() indicator.Snapshot {
	some := indicator.Some
	return indicator.Snapshot{
		Close:      100,
		Volume:     800,
		EMAFast:    some(101),
		EMASlow:    some(99),
		MACD:       some(0.5),
		MACDSignal: some(0.2),
		VWAP:       some(99.5),
		ADX:        some(30),
		Oscillator: some(50),
		ROC:        some(0.1),
		CCI:        some(50),
		ZScore:     some(0.5),
		ATR:        some(2),
		VolumeSMA:  some(1000),
		OBV:        some(5000),
		BBUpper:    some(104),
		BBMiddle:   some(100),
		BBLower:    some(96),
		BBWidth:    some(8),
		BBWidthSMA: some(8),
	}
}

func TestEvaluateBullishScenario(t *testing.T) {
	rec := Evaluate(baseSnapshot(), indicator.Some(4900), strategy.Default())

	assert.Equal(t, ResultTrade, rec.Decision)
	assert.Equal(t, DirectionLong, rec.Direction)
	assert.Equal(t, 1, rec.Signal)
	assert.Equal(t, "Trend Direction Aligned (Bullish), Trend Strength >= 25 (Bullish)", rec.Reason)
	require.Len(t, rec.Layers, 6)
	for i, v := range rec.Layers {
		assert.Equal(t, i+1, v.Layer)
	}
	require.NotNil(t, rec.Carry)
	assert.Equal(t, 100.0, rec.Close)
	assert.Equal(t, 2.0, rec.ATR)
	assert.Nil(t, rec.RiskParams)

	trade, ok := rec.Trade()
	require.True(t, ok)
	assert.Equal(t, DirectionLong, trade.Direction())
}

func TestEvaluateBearishCross(t *testing.T) {
	snap := baseSnapshot()
	snap.EMASlow = indicator.Some(102)

	t.Run("only trend strength fires", func(t *testing.T) {
		rec := Evaluate(snap, indicator.Some(4900), strategy.Default())
		assert.False(t, rec.Layers[0].Fired())
		assert.Equal(t, ResultTrade, rec.Decision)
		assert.Equal(t, DirectionShort, rec.Direction)
		assert.Equal(t, -1, rec.Signal)
		assert.Equal(t, "Trend Strength >= 25 (Bearish)", rec.Reason)
	})

	t.Run("a long layer vetoes", func(t *testing.T) {
		s := snap
		s.CCI = indicator.Some(150)
		rec := Evaluate(s, indicator.Some(4900), strategy.Default())
		assert.Equal(t, ResultNoTrade, rec.Decision)
		assert.Equal(t, DirectionNone, rec.Direction)
		assert.Equal(t, ReasonConflicting, rec.Reason)
		assert.Len(t, rec.Layers, 6)
		assert.Nil(t, rec.Carry)
		_, ok := rec.Trade()
		assert.False(t, ok)
	})
}

func TestEvaluateConflictVetoesMajority(t *testing.T) {
	snap := baseSnapshot()
	// layers 1, 2, 3, 4 LONG; layer 6 SHORT
	snap.CCI = indicator.Some(150)
	snap.BBWidth = indicator.Some(12)
	snap.Close = 101
	snap.ZScore = indicator.Some(-3)

	rec := Evaluate(snap, indicator.Some(4900), strategy.Default())
	assert.Equal(t, ResultNoTrade, rec.Decision)
	assert.Equal(t, ReasonConflicting, rec.Reason)
	assert.Equal(t, 0, rec.Signal)
}

func TestEvaluateNoConditions(t *testing.T) {
	snap := baseSnapshot()
	snap.ADX = indicator.Some(10)
	snap.MACD = indicator.Some(-0.1)

	rec := Evaluate(snap, indicator.None(), strategy.Default())
	assert.Equal(t, ResultNoTrade, rec.Decision)
	assert.Equal(t, ReasonNoConditions, rec.Reason)
	assert.Len(t, rec.Layers, 6)
}

func TestEvaluateMissingMandatoryFields(t *testing.T) {
	cases := map[string]func(*indicator.Snapshot){
		"ema fast": func(s *indicator.Snapshot) { s.EMAFast = indicator.None() },
		"ema slow": func(s *indicator.Snapshot) { s.EMASlow = indicator.None() },
		"adx":      func(s *indicator.Snapshot) { s.ADX = indicator.None() },
		"atr":      func(s *indicator.Snapshot) { s.ATR = indicator.None() },
	}
	for name, drop := range cases {
		t.Run(name, func(t *testing.T) {
			snap := baseSnapshot()
			drop(&snap)
			rec := Evaluate(snap, indicator.Some(1), strategy.Default())
			assert.Equal(t, ResultNoTrade, rec.Decision)
			assert.Equal(t, DirectionNone, rec.Direction)
			assert.Equal(t, ReasonInsufficientData, rec.Reason)
			assert.NotNil(t, rec.Layers)
			assert.Empty(t, rec.Layers)
		})
	}
}

func TestEvaluateFirstBarCanTrade(t *testing.T) {
	rec := Evaluate(baseSnapshot(), indicator.None(), strategy.Default())
	assert.Equal(t, ResultTrade, rec.Decision)
	assert.Equal(t, "No previous OBV", rec.Layers[4].Reason)
}

func TestRecordJSON(t *testing.T) {
	rec := Evaluate(baseSnapshot(), indicator.Some(4900), strategy.Default())
	rec = rec.WithRisk(RiskParams{StopLoss: 97, RiskRewardRatio: 2})

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "TRADE", m["decision"])
	assert.Equal(t, 100.0, m["close"])
	assert.Equal(t, 0.5, m["z_score"])
	assert.Equal(t, 97.0, m["stop_loss"])
	layers := m["layers"].([]any)
	first := layers[0].(map[string]any)
	assert.Equal(t, "101.00", first["indicators"].(map[string]any)["EMA 9"])

	noTrade := Evaluate(indicator.Snapshot{}, indicator.None(), strategy.Default())
	raw, err = json.Marshal(noTrade)
	require.NoError(t, err)
	assert.JSONEq(t, `{"decision":"NO_TRADE","direction":"NONE","reason":"insufficient indicator data","signal":0,"layers":[]}`, string(raw))
}

func TestWithRiskCopies(t *testing.T) {
	rec := Evaluate(baseSnapshot(), indicator.Some(4900), strategy.Default())
	priced := rec.WithRisk(RiskParams{StopLoss: 1})
	assert.Nil(t, rec.RiskParams)
	require.NotNil(t, priced.RiskParams)
	priced.Layers[0].Reason = "changed"
	assert.NotEqual(t, "changed", rec.Layers[0].Reason)
}

func TestNewTradeRejectsNone(t *testing.T) {
	_, err := NewTrade(DirectionNone, 100, 1, indicator.None())
	assert.ErrorIs(t, err, ErrNotTradable)

	tr, err := NewTrade(DirectionShort, 100, 1, indicator.Some(1))
	require.NoError(t, err)
	assert.Equal(t, 100.0, tr.Close())
}
