package config

import (
	"fmt"
	"net/url"
	"strings"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	return c.Session.validate()
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level %q is not one of debug|info|warn|error", a.LogLevel)
	}
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format %q is not one of text|json", a.LogFormat)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if m.Source != "binance" {
		return fmt.Errorf("market.source %q is not supported (binance)", m.Source)
	}
	if _, err := url.ParseRequestURI(m.RESTBaseURL); err != nil {
		return fmt.Errorf("market.rest_base_url: %w", err)
	}
	if p := strings.TrimSpace(m.ProxyURL); p != "" {
		if _, err := url.Parse(p); err != nil {
			return fmt.Errorf("market.proxy_url: %w", err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(m.ArchiveDriver)) {
	case "", "sqlite3", "modernc":
	default:
		return fmt.Errorf("market.archive_driver %q is not one of sqlite3|modernc", m.ArchiveDriver)
	}
	if m.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("market.http_timeout_seconds must be > 0")
	}
	if m.BreakerThreshold <= 0 {
		return fmt.Errorf("market.breaker_threshold must be > 0")
	}
	if m.BreakerTimeoutSeconds <= 0 {
		return fmt.Errorf("market.breaker_timeout_seconds must be > 0")
	}
	return nil
}

func (s *SessionConfig) validate() error {
	if s.Capacity <= 0 {
		return fmt.Errorf("session.capacity must be > 0")
	}
	return nil
}
