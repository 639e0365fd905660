package app

import (
	"context"
	"fmt"

	"synapse/internal/analysis"
	"synapse/internal/config"
	"synapse/internal/config/loader"
	"synapse/internal/gateway"
	"synapse/internal/logger"
	"synapse/internal/market"
	"synapse/internal/metrics"
	"synapse/internal/session"
	apihttp "synapse/internal/transport/http/api"
)

// AppBuilder assembles an App. The function fields let tests swap out the
// network and filesystem facing parts.
type AppBuilder struct {
	cfg *config.Config

	sourceStackFn func(config.MarketConfig, *metrics.Registry) (*gateway.SourceStack, error)
	strategyFn    func(path string) (*loader.StrategyLoader, error)
	apiFn         func(apihttp.ServerConfig) (*apihttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithSource replaces the exchange-backed source stack.
func WithSource(src market.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		b.sourceStackFn = func(config.MarketConfig, *metrics.Registry) (*gateway.SourceStack, error) {
			return &gateway.SourceStack{Source: src}, nil
		}
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		sourceStackFn: gateway.NewSourceFromConfig,
		strategyFn:    loader.NewStrategyLoader,
		apiFn:         apihttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	strategies, err := b.strategyFn(cfg.Strategy.Path)
	if err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()
	stack, err := b.sourceStackFn(cfg.Market, reg)
	if err != nil {
		return nil, err
	}
	success := false
	defer func() {
		if !success {
			_ = stack.Close()
		}
	}()

	sessions := session.NewMemoryStore(
		session.WithCapacity(cfg.Session.Capacity),
		session.WithEvictHook(func(id string) {
			reg.SessionEvicted(id)
			logger.Debugf("session %s evicted", id)
		}),
	)
	svc := analysis.NewService(stack.Source, sessions, strategies, reg)

	api, err := b.apiFn(apihttp.ServerConfig{Addr: cfg.App.HTTPAddr, Analyzer: svc, Metrics: reg})
	if err != nil {
		return nil, err
	}

	success = true
	return &App{
		cfg:        cfg,
		strategies: strategies,
		sources:    stack,
		metrics:    reg,
		service:    svc,
		api:        api,
		Summary:    newStartupSummary(cfg, sessions.Capacity(), strategies.Current()),
	}, nil
}

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}
