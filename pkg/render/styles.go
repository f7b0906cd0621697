package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	primaryColor = lipgloss.Color("#50FA7B") // Green
	infoColor    = lipgloss.Color("#8BE9FD") // Cyan
	accentColor  = lipgloss.Color("#50FA7B") // Green
	warningColor = lipgloss.Color("#FFB86C") // Orange
	dangerColor  = lipgloss.Color("#FF5555") // Red
	mutedColor   = lipgloss.Color("#6272A4") // Comment
	fgColor      = lipgloss.Color("#F8F8F2") // Foreground

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	subPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(primaryColor).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(infoColor).
			Italic(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(infoColor).
			Width(22)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Bold(true)

	accentValueStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Bold(true)

	warningValueStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true)

	dangerValueStyle = lipgloss.NewStyle().
				Foreground(dangerColor).
				Bold(true)

	infoValueStyle = lipgloss.NewStyle().
			Foreground(infoColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(infoColor).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

// createPanel renders a bordered panel with a title line above the content
func createPanel(style lipgloss.Style, title, icon, content string) string {
	titleLine := titleStyle.Render(title)
	if icon != "" {
		titleLine = icon + " " + titleLine
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, titleLine, content))
}

// labeled renders a "label: value" line
func labeled(label, value string, style lipgloss.Style) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(label+":"), style.Render(value))
}

// createProgressBar renders a usage bar followed by the percentage
func createProgressBar(percentage float64, width int) string {
	filled := int(percentage * float64(width) / 100)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	filledPart := lipgloss.NewStyle().Foreground(progressBarColor(percentage)).Render(strings.Repeat("█", filled))
	emptyPart := mutedStyle.Render(strings.Repeat("·", width-filled))

	return fmt.Sprintf("%s%s %.2f%% used", filledPart, emptyPart, percentage)
}

func progressBarColor(percentage float64) lipgloss.Color {
	if percentage > 90 {
		return dangerColor
	} else if percentage > 75 {
		return warningColor
	}
	return accentColor
}

func utilizationStyle(percentage float64) lipgloss.Style {
	if percentage > 90 {
		return dangerValueStyle
	} else if percentage > 75 {
		return warningValueStyle
	}
	return accentValueStyle
}

// levelStyle maps an alert level to its display style
func levelStyle(level string) lipgloss.Style {
	switch level {
	case "CRITICAL":
		return dangerValueStyle
	case "WARNING":
		return warningValueStyle
	default:
		return infoValueStyle
	}
}

// statusStyle colors a pool status
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "ONLINE":
		return accentValueStyle
	case "DEGRADED":
		return warningValueStyle
	default:
		return dangerValueStyle
	}
}
