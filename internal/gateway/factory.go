package gateway

import (
	"fmt"
	"strings"
	"time"

	"synapse/internal/config"
	"synapse/internal/gateway/binance"
	"synapse/internal/logger"
	"synapse/internal/market"
	"synapse/internal/metrics"
	"synapse/internal/store/sqlite"
)

// SourceStack is the assembled bar source: exchange client behind a circuit
// breaker, optionally backed by the SQLite archive, instrumented when a
// registry is given.
type SourceStack struct {
	Source  market.Source
	Archive *sqlite.CandleArchive
}

func (s *SourceStack) Close() error {
	if s == nil || s.Archive == nil {
		return nil
	}
	return s.Archive.Close()
}

func NewSourceFromConfig(cfg config.MarketConfig, reg *metrics.Registry) (*SourceStack, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", "binance", "binance-futures":
	default:
		return nil, fmt.Errorf("unsupported market source: %s", cfg.Source)
	}
	bn, err := binance.New(binance.Config{
		RESTBaseURL:      cfg.RESTBaseURL,
		HTTPTimeout:      time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		ProxyURL:         cfg.ProxyURL,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerTimeout:   time.Duration(cfg.BreakerTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init binance source: %w", err)
	}
	if reg != nil {
		reg.TrackBreaker(bn.Breaker())
	}

	stack := &SourceStack{Source: bn}
	if path := strings.TrimSpace(cfg.ArchivePath); path != "" {
		archive, err := sqlite.NewCandleArchive(path, cfg.ArchiveDriver)
		if err != nil {
			return nil, fmt.Errorf("open bar archive: %w", err)
		}
		stack.Archive = archive
		stack.Source = market.NewArchivingSource(bn, archive)
		logger.Infof("bar archive enabled at %s", path)
	}
	stack.Source = metrics.InstrumentSource(stack.Source, reg)
	return stack, nil
}
