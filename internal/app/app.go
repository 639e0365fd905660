package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"synapse/internal/analysis"
	"synapse/internal/config"
	"synapse/internal/config/loader"
	"synapse/internal/gateway"
	"synapse/internal/logger"
	"synapse/internal/metrics"
	apihttp "synapse/internal/transport/http/api"
)

// App owns the long-lived pieces of the server: strategy watcher, bar
// source stack, analysis service and HTTP API.
type App struct {
	cfg        *config.Config
	strategies *loader.StrategyLoader
	sources    *gateway.SourceStack
	metrics    *metrics.Registry
	service    *analysis.Service
	api        *apihttp.Server
	Summary    *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves HTTP until ctx is cancelled, then releases the source stack.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.api == nil {
		return fmt.Errorf("api server not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	a.strategies.Subscribe(func(s loader.StrategySnapshot) {
		if s.Version > 1 {
			logger.Infof("strategy v%d active for new analyses", s.Version)
		}
	})

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.api.Start(ctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})
	return errors.Join(group.Wait(), a.Close())
}

func (a *App) Close() error {
	if a == nil {
		return nil
	}
	return a.sources.Close()
}

// Service exposes the analysis pipeline, e.g. for the CLI.
func (a *App) Service() *analysis.Service {
	if a == nil {
		return nil
	}
	return a.service
}
