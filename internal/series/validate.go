package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"synapse/internal/strategy"
)

var (
	ErrIndexOutOfRange    = errors.New("decision index out of range")
	ErrInsufficientWarmup = errors.New("insufficient warm-up candles")
	ErrNoCandleAtOrBefore = errors.New("no candle at or before timestamp")
	ErrTooFewCandles      = errors.New("too few candles")
)

// IndexErrorKind names which constraint a decision index violated.
type IndexErrorKind int

const (
	KindOutOfRange IndexErrorKind = iota + 1
	KindInsufficientWarmup
)

func (k IndexErrorKind) String() string {
	switch k {
	case KindOutOfRange:
		return "out_of_range"
	case KindInsufficientWarmup:
		return "insufficient_warmup"
	default:
		return "unknown"
	}
}

// IndexError reports a rejected decision index. It matches
// ErrIndexOutOfRange or ErrInsufficientWarmup through errors.Is.
type IndexError struct {
	Kind   IndexErrorKind
	Index  int
	Length int
	Warmup int
}

func (e *IndexError) Error() string {
	switch e.Kind {
	case KindOutOfRange:
		return fmt.Sprintf("candle index %d is out of range (0–%d)", e.Index, e.Length-1)
	default:
		return fmt.Sprintf("only %d candles exist before the selected candle; at least %d are needed for accurate indicators, please select a later candle",
			e.Index, e.Warmup)
	}
}

func (e *IndexError) Is(target error) bool {
	switch target {
	case ErrIndexOutOfRange:
		return e.Kind == KindOutOfRange
	case ErrInsufficientWarmup:
		return e.Kind == KindInsufficientWarmup
	}
	return false
}

// ValidateIndex accepts index when 0 <= index < length and at least
// cfg.MinWarmupCandles bars precede it.
func ValidateIndex(length, index int, cfg strategy.Config) error {
	if index < 0 || index >= length {
		return &IndexError{Kind: KindOutOfRange, Index: index, Length: length, Warmup: cfg.MinWarmupCandles}
	}
	if index < cfg.MinWarmupCandles {
		return &IndexError{Kind: KindInsufficientWarmup, Index: index, Length: length, Warmup: cfg.MinWarmupCandles}
	}
	return nil
}

// TimestampMode selects how the decision bar is located.
type TimestampMode string

const (
	ModeLatest TimestampMode = "latest"
	ModeManual TimestampMode = "manual"
)

func (m TimestampMode) Valid() bool {
	return m == ModeLatest || m == ModeManual
}

// DecisionIndex returns the last bar for ModeLatest, or the last bar opening
// at or before ts for ModeManual.
func DecisionIndex(s Series, mode TimestampMode, ts time.Time) (int, error) {
	n := s.Len()
	if n == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrTooFewCandles)
	}
	if mode != ModeManual {
		return n - 1, nil
	}
	// first bar strictly after ts
	after := sort.Search(n, func(i int) bool { return s.TimeAt(i).After(ts) })
	if after == 0 {
		return 0, fmt.Errorf("%w %s", ErrNoCandleAtOrBefore, ts.UTC().Format(time.RFC3339))
	}
	return after - 1, nil
}

// ValidateSeries checks a freshly fetched series has enough bars overall and,
// in manual mode, enough bars strictly before ts.
func ValidateSeries(s Series, mode TimestampMode, ts time.Time, cfg strategy.Config) error {
	warmup := cfg.MinWarmupCandles
	if s.Len() < warmup {
		return fmt.Errorf("%w: only %d candles returned, at least %d are needed for indicator calculation; try a wider date range or increase the lookback",
			ErrTooFewCandles, s.Len(), warmup)
	}
	if mode == ModeManual {
		before := sort.Search(s.Len(), func(i int) bool { return !s.TimeAt(i).Before(ts) })
		if before < warmup {
			return fmt.Errorf("%w: only %d candles exist before the selected timestamp, at least %d are needed; choose an earlier start or a later decision timestamp",
				ErrTooFewCandles, before, warmup)
		}
	}
	return nil
}
