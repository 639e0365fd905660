package risk

import (
	"encoding/json"
	"testing"

	"synapse/internal/analysis/indicator"
	"synapse/internal/decision"
	"synapse/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTrade(t *testing.T, dir decision.Direction, z indicator.Value) decision.Trade {
	t.Helper()
	tr, err := decision.NewTrade(dir, 100, 2, z)
	require.NoError(t, err)
	return tr
}

func TestPriceLong(t *testing.T) {
	p := Price(mustTrade(t, decision.DirectionLong, indicator.Some(1)), strategy.Default().Risk)

	// stop = 2*1.5*(1-0.3) = 2.1, target = 2*3*(1+0.5) = 9
	assert.InDelta(t, 97.9, p.StopLoss, 1e-9)
	assert.InDelta(t, 109, p.TakeProfit, 1e-9)
	assert.InDelta(t, 100+2.1*1.5, p.PartialExit1, 1e-9)
	assert.InDelta(t, 100+2.1*2.5, p.PartialExit2, 1e-9)
	assert.Equal(t, 100.0, p.TrailingStop)
	assert.InDelta(t, 2.1, p.RiskAmount, 1e-9)
	assert.InDelta(t, 9, p.RewardAmount, 1e-9)
	assert.InDelta(t, 9/2.1, p.RiskRewardRatio, 1e-9)
}

func TestPriceShortMirrors(t *testing.T) {
	p := Price(mustTrade(t, decision.DirectionShort, indicator.Some(-1)), strategy.Default().Risk)

	// stop = 2*1.5*(1+0.3) = 3.9, target = 2*3*(1-0.5) = 3
	assert.InDelta(t, 103.9, p.StopLoss, 1e-9)
	assert.InDelta(t, 97, p.TakeProfit, 1e-9)
	assert.InDelta(t, 100-3.9*1.5, p.PartialExit1, 1e-9)
	assert.InDelta(t, 100-3.9*2.5, p.PartialExit2, 1e-9)
	assert.InDelta(t, 3/3.9, p.RiskRewardRatio, 1e-9)
}

func TestZFactorClamped(t *testing.T) {
	assert.Equal(t, 2.0, ZFactor(mustTrade(t, decision.DirectionLong, indicator.Some(-40))))
	assert.Equal(t, 0.0, ZFactor(mustTrade(t, decision.DirectionLong, indicator.None())))
	assert.Equal(t, 0.5, ZFactor(mustTrade(t, decision.DirectionLong, indicator.Some(0.5))))

	far := Price(mustTrade(t, decision.DirectionLong, indicator.Some(9)), strategy.Default().Risk)
	capped := Price(mustTrade(t, decision.DirectionLong, indicator.Some(2)), strategy.Default().Risk)
	assert.Equal(t, capped, far)
}

func TestZeroRiskGivesZeroRatio(t *testing.T) {
	tr, err := decision.NewTrade(decision.DirectionLong, 100, 0, indicator.None())
	require.NoError(t, err)
	p := Price(tr, strategy.Default().Risk)
	assert.Equal(t, 0.0, p.RiskAmount)
	assert.Equal(t, 0.0, p.RiskRewardRatio)
}

func TestApplyIsDeterministic(t *testing.T) {
	cfg := strategy.Default()
	rec := decision.Record{
		Decision:  decision.ResultTrade,
		Direction: decision.DirectionLong,
		Signal:    1,
		Layers:    []decision.Verdict{},
		Carry:     &decision.Carry{Close: 100, ATR: 2, ZScore: indicator.Some(0.7)},
	}
	a, err := Apply(rec, cfg)
	require.NoError(t, err)
	b, err := Apply(rec, cfg)
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	assert.Equal(t, string(ja), string(jb))
	assert.Nil(t, rec.RiskParams)
	assert.GreaterOrEqual(t, a.RiskRewardRatio, 0.0)
}

func TestApplyRejectsNoTrade(t *testing.T) {
	_, err := Apply(decision.Record{Decision: decision.ResultNoTrade, Direction: decision.DirectionNone}, strategy.Default())
	assert.ErrorIs(t, err, decision.ErrNotTradable)
}
