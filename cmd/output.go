package main

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"vmacro/internal/history"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// field renders a "label  value" line
func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case history.StatusSuccess:
		return okStyle
	case history.StatusFailed:
		return errStyle
	case history.StatusStopped, history.StatusRunning:
		return warnStyle
	}
	return dimStyle
}

// formatDuration renders d compactly, e.g. "1m30s" or "250ms"
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Hour:
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
