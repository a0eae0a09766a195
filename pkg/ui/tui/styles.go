package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette named after the stones it borrows from
var (
	quartz    = lipgloss.Color("#E8F1F2")
	amethyst  = lipgloss.Color("#9966CC")
	malachite = lipgloss.Color("#0BDA51")
	citrine   = lipgloss.Color("#E4D00A")
	carnelian = lipgloss.Color("#E35335")
	jasper    = lipgloss.Color("#D73B3E")
	azurite   = lipgloss.Color("#5DADEC")
	basalt    = lipgloss.Color("#15171C")
	slate     = lipgloss.Color("#23262E")
	shale     = lipgloss.Color("#8A8F98")
	graphite  = lipgloss.Color("#4A4D55")
)

var (
	baseStyle = lipgloss.NewStyle().Background(basalt).Foreground(shale)

	logoStyle = lipgloss.NewStyle().
			Foreground(amethyst).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(graphite).
			Background(slate).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Background(amethyst).
			Foreground(quartz).
			Bold(true).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(graphite).Padding(1, 0, 0, 2)

	statsLabelStyle = lipgloss.NewStyle().Foreground(azurite).Bold(true)
	statsValueStyle = lipgloss.NewStyle().Foreground(quartz)
	rateStyle       = lipgloss.NewStyle().Foreground(citrine)

	successStyle = lipgloss.NewStyle().Foreground(malachite).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(jasper).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(carnelian).Bold(true)

	// minerals and posts in the queue panels
	activeMineralStyle = lipgloss.NewStyle().Foreground(malachite).Bold(true).PaddingLeft(2)
	postStyle          = lipgloss.NewStyle().PaddingLeft(2)
	donePostStyle      = lipgloss.NewStyle().Foreground(shale).Faint(true).PaddingLeft(2)

	logTimestampStyle = lipgloss.NewStyle().Foreground(graphite)
	logMessageStyle   = lipgloss.NewStyle().Foreground(shale)

	quotaEmptyStyle = lipgloss.NewStyle().Foreground(graphite)
)

// quotaStyle colours the quota bar by the share of requests already used
func quotaStyle(usage float64) lipgloss.Style {
	switch {
	case usage >= 90:
		return lipgloss.NewStyle().Foreground(jasper)
	case usage >= 70:
		return lipgloss.NewStyle().Foreground(carnelian)
	default:
		return lipgloss.NewStyle().Foreground(malachite)
	}
}
