package logger

import (
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

func defaultStyles() *charmlog.Styles {
	styles := charmlog.DefaultStyles()
	level := func(label, color string) lipgloss.Style {
		return lipgloss.NewStyle().
			SetString(label).
			Bold(true).
			MaxWidth(5).
			Foreground(lipgloss.Color(color))
	}
	styles.Levels[charmlog.DebugLevel] = level("DEBUG", "63")
	styles.Levels[charmlog.InfoLevel] = level("INFO", "86")
	styles.Levels[charmlog.WarnLevel] = level("WARN", "192")
	styles.Levels[charmlog.ErrorLevel] = level("ERROR", "204")
	styles.Keys["epoch"] = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	styles.Keys["loss"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	styles.Keys["err"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	return styles
}
