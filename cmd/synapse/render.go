package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"synapse/internal/decision"
	"synapse/internal/series"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	longStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	shortStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
)

func directionStyle(d decision.Direction) lipgloss.Style {
	switch d {
	case decision.DirectionLong:
		return longStyle
	case decision.DirectionShort:
		return shortStyle
	default:
		return mutedStyle
	}
}

func renderRecord(s series.Series, idx int, rec decision.Record) string {
	var b strings.Builder
	head := fmt.Sprintf("%s %s  #%d  %s", s.Symbol, s.Timeframe, idx, s.TimeAt(idx).Format("2006-01-02 15:04 MST"))
	b.WriteString(titleStyle.Render(head))
	b.WriteString("\n\n")
	b.WriteString(directionStyle(rec.Direction).Render(fmt.Sprintf("%s %s", rec.Decision, rec.Direction)))
	b.WriteString("  " + rec.Reason + "\n")

	for _, v := range rec.Layers {
		mark := mutedStyle.Render("·")
		if v.Fired() {
			mark = directionStyle(v.Direction).Render("●")
		}
		fmt.Fprintf(&b, "\n%s L%d %-22s %s", mark, v.Layer, v.Name, mutedStyle.Render(v.Reason))
		readings := make([]string, 0, len(v.Readings))
		for _, rd := range v.Readings {
			readings = append(readings, rd.Label+"="+rd.Value)
		}
		if len(readings) > 0 {
			b.WriteString("\n      " + mutedStyle.Render(strings.Join(readings, "  ")))
		}
	}

	if rec.RiskParams != nil {
		r := rec.RiskParams
		b.WriteString("\n\n")
		rows := []string{
			fmt.Sprintf("entry      %.4f", rec.Close),
			fmt.Sprintf("stop       %.4f", r.StopLoss),
			fmt.Sprintf("target     %.4f", r.TakeProfit),
			fmt.Sprintf("partials   %.4f / %.4f", r.PartialExit1, r.PartialExit2),
			fmt.Sprintf("trailing   %.4f", r.TrailingStop),
			fmt.Sprintf("R:R        %.2f", r.RiskRewardRatio),
		}
		b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
	}
	return b.String()
}
