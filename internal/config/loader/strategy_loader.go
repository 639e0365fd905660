package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"synapse/internal/logger"
	"synapse/internal/strategy"
)

// StrategySnapshot is one immutable version of the strategy file.
type StrategySnapshot struct {
	Version  int64
	LoadedAt time.Time
	Config   strategy.Config
}

// ChangeListener is called after every successful reload.
type ChangeListener func(StrategySnapshot)

// StrategyLoader reads a strategy YAML file and reloads it on change. A
// reload that fails to parse or validate keeps the previous snapshot.
type StrategyLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  StrategySnapshot
	listeners []ChangeListener
}

// NewStrategyLoader loads path and starts watching it. An empty path yields
// a loader that serves strategy.Default and never reloads.
func NewStrategyLoader(path string) (*StrategyLoader, error) {
	loader := &StrategyLoader{path: strings.TrimSpace(path)}
	if loader.path == "" {
		loader.snapshot = StrategySnapshot{Version: 1, LoadedAt: time.Now(), Config: strategy.Default()}
		logger.Infof("strategy loader: no file configured, using built-in defaults")
		return loader, nil
	}
	v := viper.New()
	v.SetConfigFile(loader.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read strategy config failed: %w", err)
	}
	loader.v = v
	if err := loader.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := loader.reload(); err != nil {
			logger.Errorf("strategy reload failed (%s): %v", evt.Name, err)
			return
		}
		loader.notify()
	})
	v.WatchConfig()
	return loader, nil
}

// Current returns the configuration in effect now. Callers own the copy.
func (l *StrategyLoader) Current() strategy.Config {
	return l.Snapshot().Config
}

func (l *StrategyLoader) Snapshot() StrategySnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Subscribe registers fn and immediately delivers the current snapshot.
func (l *StrategyLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := l.snapshot
	l.mu.Unlock()
	go safeCall(fn, snap)
}

func (l *StrategyLoader) notify() {
	l.mu.RLock()
	snap := l.snapshot
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		go safeCall(fn, snap)
	}
}

func safeCall(fn ChangeListener, snap StrategySnapshot) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("strategy listener panic: %v", r)
		}
	}()
	fn(snap)
}

func (l *StrategyLoader) reload() error {
	cfg, err := decodeStrategy(l.v)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.snapshot = StrategySnapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Config:   cfg,
	}
	version := l.snapshot.Version
	l.mu.Unlock()
	logger.Infof("strategy loader: loaded v%d from %s (adx=%g warmup=%d)",
		version, filepath.Base(l.path), cfg.Thresholds.ADX, cfg.MinWarmupCandles)
	return nil
}

func decodeStrategy(v *viper.Viper) (strategy.Config, error) {
	var cfg strategy.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return strategy.Config{}, fmt.Errorf("parse strategy config failed: %w", err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return strategy.Config{}, fmt.Errorf("invalid strategy config: %w", err)
	}
	return cfg, nil
}
