package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"synapse/internal/config"
	"synapse/internal/logger"
	"synapse/internal/market"
	"synapse/internal/strategy"
)

var (
	summaryBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	summaryKey   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Width(18)
)

type StartupSummary struct {
	HTTPAddr        string
	Source          string
	Archive         string
	SessionCapacity int
	StrategyPath    string
	Strategy        strategy.Config
	Timeframes      []string
	// Plain skips the box and logs one line per row, for JSON log output.
	Plain bool
}

func newStartupSummary(cfg *config.Config, capacity int, strat strategy.Config) *StartupSummary {
	return &StartupSummary{
		HTTPAddr:        cfg.App.HTTPAddr,
		Source:          cfg.Market.Source + " " + cfg.Market.RESTBaseURL,
		Archive:         cfg.Market.ArchivePath,
		SessionCapacity: capacity,
		StrategyPath:    cfg.Strategy.Path,
		Strategy:        strat,
		Timeframes:      market.SupportedTimeframes(),
		Plain:           strings.EqualFold(cfg.App.LogFormat, "json"),
	}
}

// Render returns the boxed summary text.
func (s *StartupSummary) Render() string {
	return summaryBox.Render(strings.Join(s.lines(summaryTitle.Render, summaryKey.Render), "\n"))
}

func (s *StartupSummary) lines(title, key func(...string) string) []string {
	row := func(k, v string) string {
		if strings.TrimSpace(v) == "" {
			v = "-"
		}
		return key(k) + v
	}
	t := s.Strategy.Thresholds
	lines := []string{
		title("synapse"),
		row("http", s.HTTPAddr),
		row("market", s.Source),
		row("archive", s.Archive),
		row("sessions", fmt.Sprintf("%d", s.SessionCapacity)),
		row("strategy file", s.StrategyPath),
		row("warm-up", fmt.Sprintf("%d candles", s.Strategy.MinWarmupCandles)),
		row("thresholds", fmt.Sprintf("adx %g  rsi %g/%g  roc %g  cci %g  z %g",
			t.ADX, t.RSIOversold, t.RSIOverbought, t.ROCStrong, t.CCI, t.ZScoreExtreme)),
		row("timeframes", strings.Join(s.Timeframes, ", ")),
	}
	return lines
}

func (s *StartupSummary) Print() {
	if s.Plain {
		title := func(parts ...string) string { return strings.Join(parts, "") }
		key := func(parts ...string) string { return strings.Join(parts, "") + ": " }
		logger.InfoBlock(strings.Join(s.lines(title, key), "\n"))
		return
	}
	fmt.Println(s.Render())
}
