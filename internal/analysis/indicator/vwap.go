package indicator

import (
	"synapse/internal/market"
)

// SessionVWAP is the volume-weighted typical price accumulated from the first
// bar of each UTC calendar day. Bars with no volume so far in the session
// have no VWAP.
func SessionVWAP(candles []market.Candle) []Value {
	out := make([]Value, len(candles))
	var (
		day    int64 = -1
		cumPV  float64
		cumVol float64
	)
	const msPerDay = 24 * 60 * 60 * 1000
	for i, c := range candles {
		d := floorDiv(c.OpenTime, msPerDay)
		if d != day {
			day = d
			cumPV, cumVol = 0, 0
		}
		typical := (c.High + c.Low + c.Close) / 3
		cumPV += typical * c.Volume
		cumVol += c.Volume
		if cumVol > 0 {
			out[i] = Some(cumPV / cumVol)
		}
	}
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
