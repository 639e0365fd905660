package series

import (
	"synapse/internal/decision"
	"synapse/internal/risk"
	"synapse/internal/strategy"
)

// Decide validates idx, evaluates the bar and prices the result when it is
// a TRADE.
func Decide(s Series, idx int, cfg strategy.Config) (decision.Record, error) {
	if err := ValidateIndex(s.Len(), idx, cfg); err != nil {
		return decision.Record{}, err
	}
	rec := decision.Evaluate(s.At(idx), s.PrevOBV(idx), cfg)
	if rec.Decision != decision.ResultTrade {
		return rec, nil
	}
	return risk.Apply(rec, cfg)
}
