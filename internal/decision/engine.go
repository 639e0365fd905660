package decision

import (
	"strings"

	"synapse/internal/analysis/indicator"
	"synapse/internal/strategy"
)

// Evaluate runs the six layers against one snapshot and fuses their
// verdicts. Any directional disagreement among fired layers vetoes the trade.
func Evaluate(snap indicator.Snapshot, prevOBV indicator.Value, cfg strategy.Config) Record {
	if !snap.EMAFast.Valid() || !snap.EMASlow.Valid() || !snap.ADX.Valid() || !snap.ATR.Valid() {
		return Record{
			Decision:  ResultNoTrade,
			Direction: DirectionNone,
			Reason:    ReasonInsufficientData,
			Layers:    []Verdict{},
		}
	}

	ctx := NewLayerContext(snap, prevOBV)
	layers := make([]Verdict, 0, len(Layers))
	for _, layer := range Layers {
		layers = append(layers, layer(snap, cfg, ctx))
	}

	var reasons []string
	directions := map[Direction]struct{}{}
	for _, v := range layers {
		if v.Fired() {
			reasons = append(reasons, v.Reason)
			directions[v.Direction] = struct{}{}
		}
	}

	rec := Record{Decision: ResultNoTrade, Direction: DirectionNone, Layers: layers}
	switch {
	case len(reasons) == 0:
		rec.Reason = ReasonNoConditions
	case len(directions) > 1:
		rec.Reason = ReasonConflicting
	default:
		var dir Direction
		for d := range directions {
			dir = d
		}
		atr, _ := snap.ATR.Get()
		rec.Decision = ResultTrade
		rec.Direction = dir
		rec.Signal = dir.Signal()
		rec.Reason = strings.Join(reasons, ", ")
		rec.Carry = &Carry{Close: snap.Close, ATR: atr, ZScore: snap.ZScore}
	}
	return rec
}
