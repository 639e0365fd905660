package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"synapse/internal/market"
	"synapse/internal/pkg/symbol"
	"synapse/internal/series"
	"synapse/internal/strategy"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

type RangeMode string

const (
	RangeLookback  RangeMode = "lookback"
	RangeDateRange RangeMode = "daterange"
)

const (
	DefaultSymbol    = "BTCUSDT"
	DefaultTimeframe = "1Min"
	DefaultLookback  = 500
	MaxLookback      = 5000
)

// Request is the caller's analysis payload. Times are strings as received;
// Normalize parses them.
type Request struct {
	Symbol            string `json:"symbol"`
	Timeframe         string `json:"timeframe"`
	RangeMode         string `json:"range_mode"`
	Lookback          int    `json:"lookback"`
	StartDatetime     string `json:"start_datetime"`
	EndDatetime       string `json:"end_datetime"`
	TimestampMode     string `json:"timestamp_mode"`
	DecisionTimestamp string `json:"decision_timestamp"`
}

// Query is a validated Request.
type Query struct {
	Symbol        string
	Timeframe     market.Timeframe
	RangeMode     RangeMode
	Lookback      int
	Start         time.Time
	End           time.Time
	TimestampMode series.TimestampMode
	DecisionTime  time.Time
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Normalize applies defaults and validates r against the warm-up in cfg.
func (r Request) Normalize(cfg strategy.Config) (Query, error) {
	var q Query
	sym := strings.TrimSpace(r.Symbol)
	if sym == "" {
		return q, invalid("symbol is required")
	}
	q.Symbol = symbol.ToBinance(sym)

	tfKey := strings.TrimSpace(r.Timeframe)
	if tfKey == "" {
		tfKey = DefaultTimeframe
	}
	tf, err := market.ParseTimeframe(tfKey)
	if err != nil {
		return q, invalid("invalid timeframe: %s", tfKey)
	}
	q.Timeframe = tf

	switch RangeMode(strings.ToLower(strings.TrimSpace(r.RangeMode))) {
	case "", RangeLookback:
		q.RangeMode = RangeLookback
		q.Lookback = r.Lookback
		if q.Lookback == 0 {
			q.Lookback = DefaultLookback
		}
		if q.Lookback < cfg.MinWarmupCandles {
			return q, invalid("lookback must be at least %d candles", cfg.MinWarmupCandles)
		}
		if q.Lookback > MaxLookback {
			return q, invalid("lookback must be at most %d candles", MaxLookback)
		}
	case RangeDateRange:
		q.RangeMode = RangeDateRange
		if strings.TrimSpace(r.StartDatetime) == "" || strings.TrimSpace(r.EndDatetime) == "" {
			return q, invalid("start and end datetime are required for date range mode")
		}
		if q.Start, err = ParseTime(r.StartDatetime); err != nil {
			return q, invalid("start_datetime: %v", err)
		}
		if q.End, err = ParseTime(r.EndDatetime); err != nil {
			return q, invalid("end_datetime: %v", err)
		}
		if !q.End.After(q.Start) {
			return q, invalid("end datetime must be after start datetime")
		}
	default:
		return q, invalid("invalid range mode: %s", r.RangeMode)
	}

	mode := series.TimestampMode(strings.ToLower(strings.TrimSpace(r.TimestampMode)))
	if mode == "" {
		mode = series.ModeLatest
	}
	if !mode.Valid() {
		return q, invalid("invalid timestamp mode: %s", r.TimestampMode)
	}
	q.TimestampMode = mode
	if mode == series.ModeManual {
		if strings.TrimSpace(r.DecisionTimestamp) == "" {
			return q, invalid("a decision timestamp is required when using manual mode")
		}
		if q.DecisionTime, err = ParseTime(r.DecisionTimestamp); err != nil {
			return q, invalid("decision_timestamp: %v", err)
		}
	}
	return q, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts RFC3339 and the common datetime-local spellings. Values
// without a zone are read as UTC.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", raw)
}
