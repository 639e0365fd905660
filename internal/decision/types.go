package decision

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"synapse/internal/analysis/indicator"
)

type Result string

const (
	ResultTrade   Result = "TRADE"
	ResultNoTrade Result = "NO_TRADE"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// Signal maps LONG to +1, SHORT to -1 and anything else to 0.
func (d Direction) Signal() int {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	default:
		return 0
	}
}

const (
	ReasonInsufficientData = "insufficient indicator data"
	ReasonNoConditions     = "no conditions met"
	ReasonConflicting      = "conflicting signals"
)

// Verdict is the outcome of one layer.
type Verdict struct {
	Layer          int       `json:"layer"`
	Name           string    `json:"name"`
	Result         Result    `json:"result"`
	Direction      Direction `json:"direction"`
	Reason         string    `json:"reason"`
	Readings       Readings  `json:"indicators"`
	LongCondition  string    `json:"long_condition"`
	ShortCondition string    `json:"short_condition"`
}

func (v Verdict) Fired() bool {
	return v.Result == ResultTrade
}

// Carry holds the snapshot values a TRADE hands to the risk manager.
type Carry struct {
	Close  float64         `json:"close"`
	ATR    float64         `json:"atr"`
	ZScore indicator.Value `json:"z_score"`
}

// RiskParams are the price levels attached to a TRADE record.
type RiskParams struct {
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	PartialExit1    float64 `json:"partial_exit_1"`
	PartialExit2    float64 `json:"partial_exit_2"`
	TrailingStop    float64 `json:"trailing_stop"`
	RiskAmount      float64 `json:"risk_amount"`
	RewardAmount    float64 `json:"reward_amount"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

// Record is the output of one evaluation. Carry and RiskParams are nil
// unless the decision is TRADE; both are flattened into the JSON object.
type Record struct {
	Decision  Result    `json:"decision"`
	Direction Direction `json:"direction"`
	Reason    string    `json:"reason"`
	Signal    int       `json:"signal"`
	Layers    []Verdict `json:"layers"`
	*Carry
	*RiskParams
}

// Trade returns the risk input for a TRADE record.
func (r Record) Trade() (Trade, bool) {
	if r.Decision != ResultTrade || r.Carry == nil {
		return Trade{}, false
	}
	return Trade{direction: r.Direction, entry: r.Close, atr: r.ATR, zScore: r.ZScore}, true
}

// WithRisk returns a copy of r carrying p.
func (r Record) WithRisk(p RiskParams) Record {
	out := r
	out.Layers = slices.Clone(r.Layers)
	if r.Carry != nil {
		c := *r.Carry
		out.Carry = &c
	}
	out.RiskParams = &p
	return out
}

var ErrNotTradable = errors.New("trade requires a LONG or SHORT direction")

// Trade is the only accepted input of the risk manager. It can be obtained
// from a TRADE record or built with NewTrade, never for direction NONE.
type Trade struct {
	direction Direction
	entry     float64
	atr       float64
	zScore    indicator.Value
}

func NewTrade(direction Direction, entry, atr float64, zScore indicator.Value) (Trade, error) {
	if direction != DirectionLong && direction != DirectionShort {
		return Trade{}, fmt.Errorf("%w: got %q", ErrNotTradable, direction)
	}
	if math.IsNaN(entry) || math.IsNaN(atr) || math.IsInf(entry, 0) || math.IsInf(atr, 0) {
		return Trade{}, fmt.Errorf("close and atr must be finite")
	}
	return Trade{direction: direction, entry: entry, atr: atr, zScore: zScore}, nil
}

func (t Trade) Direction() Direction { return t.direction }

// Close is the entry price.
func (t Trade) Close() float64 { return t.entry }

func (t Trade) ATR() float64 { return t.atr }

func (t Trade) ZScore() indicator.Value { return t.zScore }
