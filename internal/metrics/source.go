package metrics

import (
	"context"
	"time"

	"synapse/internal/logger"
	"synapse/internal/market"
	"synapse/internal/pkg/circuit"
)

type instrumentedSource struct {
	next market.Source
	reg  *Registry
}

// InstrumentSource records fetch latency and bar counts for next.
func InstrumentSource(next market.Source, reg *Registry) market.Source {
	if reg == nil {
		return next
	}
	return &instrumentedSource{next: next, reg: reg}
}

func (s *instrumentedSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	start := time.Now()
	out, err := s.next.FetchHistory(ctx, symbol, interval, limit)
	s.observe("history", start, len(out), err)
	return out, err
}

func (s *instrumentedSource) FetchRange(ctx context.Context, symbol, interval string, from, to time.Time) ([]market.Candle, error) {
	start := time.Now()
	out, err := s.next.FetchRange(ctx, symbol, interval, from, to)
	s.observe("range", start, len(out), err)
	return out, err
}

func (s *instrumentedSource) observe(kind string, start time.Time, bars int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.reg.FetchDuration.WithLabelValues(kind, result).Observe(time.Since(start).Seconds())
	s.reg.FetchedBars.Add(float64(bars))
}

func logBreaker(name string, from, to circuit.State) {
	logger.Warnf("circuit %s: %s -> %s", name, from, to)
}
