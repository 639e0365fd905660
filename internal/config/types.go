package config

// Config is the process configuration. Strategy thresholds live in a separate
// hot-reloaded file referenced by Strategy.Path.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Market   MarketConfig   `yaml:"market"`
	Session  SessionConfig  `yaml:"session"`
	Strategy StrategyConfig `yaml:"strategy"`
}

type AppConfig struct {
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	HTTPAddr  string `yaml:"http_addr"`
	LogPath   string `yaml:"log_path"`
	// TracePath receives a per-layer trace of every decision when set.
	TracePath string `yaml:"trace_path"`
}

// MarketConfig selects and tunes the bar source.
type MarketConfig struct {
	Source                string `yaml:"source"`
	RESTBaseURL           string `yaml:"rest_base_url"`
	HTTPTimeoutSeconds    int    `yaml:"http_timeout_seconds"`
	ProxyURL              string `yaml:"proxy_url"`
	BreakerThreshold      int    `yaml:"breaker_threshold"`
	BreakerTimeoutSeconds int    `yaml:"breaker_timeout_seconds"`
	// ArchivePath enables the SQLite bar archive when non-empty.
	ArchivePath string `yaml:"archive_path"`
	// ArchiveDriver is "sqlite3" (default) or "modernc".
	ArchiveDriver string `yaml:"archive_driver"`
}

type SessionConfig struct {
	Capacity int `yaml:"capacity"`
}

type StrategyConfig struct {
	Path string `yaml:"path"`
}
