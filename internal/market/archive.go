package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"synapse/internal/logger"
)

// ArchivingSource writes every successful upstream fetch to an Archive and
// falls back to the archive when the upstream fails.
type ArchivingSource struct {
	upstream Source
	archive  Archive
}

func NewArchivingSource(upstream Source, archive Archive) *ArchivingSource {
	return &ArchivingSource{upstream: upstream, archive: archive}
}

func (s *ArchivingSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	candles, err := s.upstream.FetchHistory(ctx, symbol, interval, limit)
	if err == nil {
		s.save(ctx, symbol, interval, candles)
		return candles, nil
	}
	if s.archive == nil || ctx.Err() != nil {
		return nil, err
	}
	cached, aerr := s.archive.LoadRecent(ctx, symbol, interval, limit)
	if aerr != nil || len(cached) == 0 {
		return nil, err
	}
	logger.Warnf("market: upstream failed for %s %s (%v), serving %d archived bars", symbol, interval, err, len(cached))
	return cached, nil
}

func (s *ArchivingSource) FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error) {
	candles, err := s.upstream.FetchRange(ctx, symbol, interval, start, end)
	if err == nil {
		s.save(ctx, symbol, interval, candles)
		return candles, nil
	}
	if s.archive == nil || ctx.Err() != nil {
		return nil, err
	}
	cached, aerr := s.archive.LoadRange(ctx, symbol, interval, start, end)
	if aerr != nil || len(cached) == 0 {
		if aerr != nil && !errors.Is(aerr, ErrNoData) {
			return nil, fmt.Errorf("%w (archive: %v)", err, aerr)
		}
		return nil, err
	}
	logger.Warnf("market: upstream failed for %s %s (%v), serving %d archived bars", symbol, interval, err, len(cached))
	return cached, nil
}

func (s *ArchivingSource) save(ctx context.Context, symbol, interval string, candles []Candle) {
	if s.archive == nil || len(candles) == 0 {
		return
	}
	if err := s.archive.SaveCandles(ctx, symbol, interval, candles); err != nil {
		logger.Warnf("market: archive %s %s failed: %v", symbol, interval, err)
	}
}
