// Package series holds an enriched bar series and the rules for choosing and
// validating the bar a decision is made on.
package series

import (
	"time"

	"synapse/internal/analysis/indicator"
)

// Series is an enriched, time-ordered bar sequence for one instrument.
type Series struct {
	Symbol    string
	Timeframe string
	Snapshots []indicator.Snapshot
}

func (s Series) Len() int {
	return len(s.Snapshots)
}

func (s Series) At(i int) indicator.Snapshot {
	return s.Snapshots[i]
}

// PrevOBV is the OBV of the bar before i, absent for the first bar.
func (s Series) PrevOBV(i int) indicator.Value {
	if i <= 0 || i > len(s.Snapshots) {
		return indicator.None()
	}
	return s.Snapshots[i-1].OBV
}

// TimeAt returns the open time of bar i.
func (s Series) TimeAt(i int) time.Time {
	return s.Snapshots[i].Time
}
