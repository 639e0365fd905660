// Package analysis runs one analysis request end to end: fetch, enrich,
// choose the decision bar, decide, and cache the series for re-decisions.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"synapse/internal/analysis/indicator"
	"synapse/internal/decision"
	"synapse/internal/logger"
	"synapse/internal/market"
	"synapse/internal/metrics"
	"synapse/internal/series"
	"synapse/internal/session"
	"synapse/internal/strategy"
)

// FetchError marks a failure of the market data source, as opposed to a
// problem with the request.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return "data fetch failed: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a fresh analysis.
type Result struct {
	SessionID    string
	Symbol       string
	Timeframe    string
	CandleCount  int
	DecisionIdx  int
	DecisionTime time.Time
	Record       decision.Record
}

// Redecision is the outcome of re-running the engine on a cached series.
type Redecision struct {
	DecisionIdx  int
	DecisionTime time.Time
	Record       decision.Record
}

type Service struct {
	source     market.Source
	sessions   session.Store
	strategies strategy.Provider
	metrics    *metrics.Registry
}

// NewService wires the pipeline. reg may be nil.
func NewService(src market.Source, sessions session.Store, strategies strategy.Provider, reg *metrics.Registry) *Service {
	return &Service{source: src, sessions: sessions, strategies: strategies, metrics: reg}
}

// Analyze fetches bars for req, decides on the selected bar and caches the
// enriched series. Validation failures wrap ErrInvalidRequest, source
// failures are *FetchError, and too-short series or bad indexes surface the
// series sentinels.
func (s *Service) Analyze(ctx context.Context, req Request) (Result, error) {
	cfg := s.strategies.Current()
	q, err := req.Normalize(cfg)
	if err != nil {
		return Result{}, err
	}

	candles, err := s.fetch(ctx, q)
	if err != nil {
		return Result{}, &FetchError{Err: err}
	}
	if len(candles) == 0 {
		return Result{}, &FetchError{Err: market.ErrNoData}
	}

	snaps, err := indicator.Enrich(candles, cfg.Periods)
	if err != nil {
		return Result{}, fmt.Errorf("enrich %s: %w", q.Symbol, err)
	}
	ser := series.Series{Symbol: q.Symbol, Timeframe: q.Timeframe.Key, Snapshots: snaps}

	if err := series.ValidateSeries(ser, q.TimestampMode, q.DecisionTime, cfg); err != nil {
		return Result{}, err
	}
	idx, err := series.DecisionIndex(ser, q.TimestampMode, q.DecisionTime)
	if err != nil {
		return Result{}, err
	}
	if err := series.ValidateIndex(ser.Len(), idx, cfg); err != nil {
		return Result{}, err
	}

	rec, err := series.Decide(ser, idx, cfg)
	if err != nil {
		return Result{}, err
	}
	id := s.sessions.Create(ser, cfg)
	s.observe(rec)
	traceRecord("analysis", fmt.Sprintf("%s %s idx=%d session=%s", q.Symbol, q.Timeframe.Key, idx, id), rec)

	logger.Infof("analysis %s %s: %d bars, idx=%d, %s %s (session %s)",
		q.Symbol, q.Timeframe.Key, ser.Len(), idx, rec.Decision, rec.Direction, id)
	return Result{
		SessionID:    id,
		Symbol:       q.Symbol,
		Timeframe:    q.Timeframe.Key,
		CandleCount:  ser.Len(),
		DecisionIdx:  idx,
		DecisionTime: ser.TimeAt(idx),
		Record:       rec,
	}, nil
}

// Redecide re-runs the engine at idx on a cached series with the strategy
// configuration that was current when the session was created.
func (s *Service) Redecide(sessionID string, idx int) (Redecision, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return Redecision{}, err
	}
	rec, err := series.Decide(sess.Series, idx, sess.Config)
	if err != nil {
		return Redecision{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDecision(rec)
	}
	traceRecord("redecision", fmt.Sprintf("%s %s idx=%d session=%s", sess.Series.Symbol, sess.Series.Timeframe, idx, sessionID), rec)
	logger.Debugf("redecision %s idx=%d: %s %s", sessionID, idx, rec.Decision, rec.Direction)
	return Redecision{DecisionIdx: idx, DecisionTime: sess.Series.TimeAt(idx), Record: rec}, nil
}

// Session exposes a cached session, e.g. for chart rendering.
func (s *Service) Session(id string) (session.Session, error) {
	return s.sessions.Get(id)
}

func (s *Service) fetch(ctx context.Context, q Query) ([]market.Candle, error) {
	if q.RangeMode == RangeDateRange {
		return s.source.FetchRange(ctx, q.Symbol, q.Timeframe.SourceInterval, q.Start, q.End)
	}
	return s.source.FetchHistory(ctx, q.Symbol, q.Timeframe.SourceInterval, q.Lookback)
}

func (s *Service) observe(rec decision.Record) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDecision(rec)
	s.metrics.ObserveSession(s.sessions.Len())
}

func traceRecord(kind, subject string, rec decision.Record) {
	if !logger.TraceEnabled() {
		return
	}
	sections := []logger.TraceSection{{
		Title: "DECISION",
		Body:  fmt.Sprintf("%s %s signal=%d reason=%s", rec.Decision, rec.Direction, rec.Signal, rec.Reason),
	}}
	for _, v := range rec.Layers {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s: %s\n", v.Result, v.Direction, v.Reason)
		for _, rd := range v.Readings {
			fmt.Fprintf(&b, "  %s = %s\n", rd.Label, rd.Value)
		}
		sections = append(sections, logger.TraceSection{
			Title: fmt.Sprintf("LAYER %d %s", v.Layer, v.Name),
			Body:  b.String(),
		})
	}
	if rec.RiskParams != nil {
		sections = append(sections, logger.TraceSection{
			Title: "RISK",
			Body:  fmt.Sprintf("sl=%g tp=%g rr=%g", rec.StopLoss, rec.TakeProfit, rec.RiskRewardRatio),
		})
	}
	logger.Trace(kind, subject, sections)
}
