// Package risk turns a TRADE decision into stop, target and partial-exit levels.
package risk

import (
	"fmt"
	"math"

	"synapse/internal/decision"
	"synapse/internal/logger"
	"synapse/internal/strategy"
)

// MaxZFactor caps how far the z-score can skew the stop and target.
const MaxZFactor = 2.0

const (
	stopSkew   = 0.3
	targetSkew = 0.5
)

// ZFactor is min(|z|, MaxZFactor); an absent z-score counts as 0.
func ZFactor(trade decision.Trade) float64 {
	z, ok := trade.ZScore().Get()
	if !ok {
		return 0
	}
	return math.Min(math.Abs(z), MaxZFactor)
}

// Price computes the risk levels for trade. It is deterministic in its inputs.
func Price(trade decision.Trade, cfg strategy.Risk) decision.RiskParams {
	zf := ZFactor(trade)
	atr := trade.ATR()
	entry := trade.Close()

	var stop, target float64
	side := 1.0
	switch trade.Direction() {
	case decision.DirectionLong:
		stop = atr * cfg.BaseSLATRMultiple * (1 - stopSkew*zf)
		target = atr * cfg.BaseTPATRMultiple * (1 + targetSkew*zf)
	default:
		side = -1
		stop = atr * cfg.BaseSLATRMultiple * (1 + stopSkew*zf)
		target = atr * cfg.BaseTPATRMultiple * (1 - targetSkew*zf)
	}

	p := decision.RiskParams{
		StopLoss:     entry - side*stop,
		TakeProfit:   entry + side*target,
		PartialExit1: entry + side*stop*cfg.PartialExit1Ratio,
		PartialExit2: entry + side*stop*cfg.PartialExit2Ratio,
		TrailingStop: entry,
		RiskAmount:   stop,
		RewardAmount: target,
	}
	if stop > 0 {
		p.RiskRewardRatio = target / stop
	}
	return p
}

// Apply prices a TRADE record and returns the record with risk attached.
// Records that are not TRADE are rejected.
func Apply(rec decision.Record, cfg strategy.Config) (decision.Record, error) {
	trade, ok := rec.Trade()
	if !ok {
		return rec, fmt.Errorf("risk: %w: decision is %s", decision.ErrNotTradable, rec.Decision)
	}
	p := Price(trade, cfg.Risk)
	logger.Debugf("risk: %s entry=%.4f sl=%.4f tp=%.4f rr=%.2f z_factor=%.2f",
		trade.Direction(), trade.Close(), p.StopLoss, p.TakeProfit, p.RiskRewardRatio, ZFactor(trade))
	return rec.WithRisk(p), nil
}
