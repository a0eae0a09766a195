package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	m.mu.RLock()
	width, height, showHelp := m.width, m.height, m.showHelp
	m.mu.RUnlock()

	if width == 0 || height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo(width))

	columnWidth := (width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(columnWidth),
		m.renderCurrentPanel(columnWidth),
		m.renderPostsPanel(columnWidth),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRateLimitPanel(columnWidth),
		m.renderMineralsPanel(columnWidth),
		m.renderLogsPanel(columnWidth, height),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if showHelp {
		sections = append(sections, m.renderHelp(width))
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to stop"))
	}

	return baseStyle.Width(width).Height(height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo(width int) string {
	logo := `
╔═══════════════════════════════════════════════════╗
║   ◆ M I N E R A L   S C R A P E R ◆               ║
║   reddit posts and comments, one mineral at a time ║
╚═══════════════════════════════════════════════════╝`

	return logoStyle.Width(width).Render(logo)
}

// renderStatsPanel renders the session totals
func (m *Model) renderStatsPanel(width int) string {
	rate := m.GetRate()

	m.mu.RLock()
	elapsed := time.Since(m.sessionStartTime)
	stats := []string{
		statLine("Session Time:", formatDuration(elapsed)),
		statLine("Posts Processed:", fmt.Sprintf("%d", m.totalProcessed)),
		statLine("New Posts:", fmt.Sprintf("%d", m.totalNewPosts)),
		statLine("New Comments:", fmt.Sprintf("%d", m.totalNewComments)),
		statLine("Skipped:", fmt.Sprintf("%d", m.totalSkipped)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Rate:"), rateStyle.Render(fmt.Sprintf("%.1f posts/min", rate))),
	}
	if m.totalFailed > 0 {
		stats = append(stats, errorStyle.Render(fmt.Sprintf("✗ %d failed", m.totalFailed)))
	}
	if m.stopping {
		stats = append(stats, warningStyle.Render("■  STOPPING"))
	}
	m.mu.RUnlock()

	return panel(width, " SESSION ", lipgloss.JoinVertical(lipgloss.Left, stats...))
}

// renderCurrentPanel shows the mineral being scraped and its subreddit progress
func (m *Model) renderCurrentPanel(width int) string {
	item, ok := m.GetCurrentMineral()
	if !ok {
		return panel(width, " CURRENT MINERAL ", dimText("Waiting for the first mineral"))
	}

	total := len(item.Subreddits)
	done := 0.0
	if total > 0 {
		done = float64(item.SubredditIndex) / float64(total)
	}

	bar := m.progress
	bar.Width = width - 8
	if bar.Width < 10 {
		bar.Width = 10
	}

	lines := []string{
		activeMineralStyle.Render(item.Name),
		statLine("Subreddit:", fmt.Sprintf("r/%s (%d/%d)", item.CurrentSubreddit, item.SubredditIndex, total)),
		bar.ViewAs(done),
		statLine("Stored:", fmt.Sprintf("%d posts, %d comments before this run", item.ExistingPosts, item.ExistingComments)),
		statLine("This run:", fmt.Sprintf("+%d posts, +%d comments", item.NewPosts, item.NewComments)),
	}
	return panel(width, " CURRENT MINERAL ", lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderPostsPanel lists in-flight posts and the last finished ones
func (m *Model) renderPostsPanel(width int) string {
	active := m.GetActivePosts()
	recent := m.GetRecentPosts()
	maxTitle := width - 16

	var items []string
	if len(active) == 0 {
		items = append(items, dimText("No posts in flight"))
	}
	for i, p := range active {
		if i == 3 {
			items = append(items, dimText(fmt.Sprintf("  ... and %d more", len(active)-3)))
			break
		}
		items = append(items, fmt.Sprintf("%s %s", m.spinner.View(), postStyle.Render(truncate(p.Title, maxTitle))))
	}

	if len(recent) > 0 {
		items = append(items, "")
	}
	for _, p := range recent {
		if p.Err != nil {
			items = append(items, errorStyle.Render("✗ ")+donePostStyle.Render(truncate(p.Title, maxTitle)))
			continue
		}
		items = append(items, successStyle.Render("✓ ")+donePostStyle.Render(
			fmt.Sprintf("%s (+%d)", truncate(p.Title, maxTitle-8), p.NewComments)))
	}

	return panel(width, " POSTS ", lipgloss.JoinVertical(lipgloss.Left, items...))
}

// renderMineralsPanel lists every mineral seen so far with its state
func (m *Model) renderMineralsPanel(width int) string {
	minerals := m.GetMinerals()
	if len(minerals) == 0 {
		return panel(width, " MINERALS ", dimText("None yet"))
	}

	var lines []string
	for _, item := range minerals {
		switch item.State {
		case MineralCompleted:
			lines = append(lines, successStyle.Render("✓ ")+fmt.Sprintf("%s  %d posts, %d comments", item.Name, item.TotalPosts, item.TotalComments))
		case MineralInterrupted:
			lines = append(lines, warningStyle.Render("■ ")+fmt.Sprintf("%s  interrupted", item.Name))
		case MineralActive:
			lines = append(lines, m.spinner.View()+" "+activeMineralStyle.Render(item.Name))
		default:
			lines = append(lines, dimText("• "+item.Name))
		}
	}
	return panel(width, " MINERALS ", lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderRateLimitPanel renders the rate limit status
func (m *Model) renderRateLimitPanel(width int) string {
	m.mu.RLock()
	used, max, resetAt := m.rateLimitUsed, m.rateLimitMax, m.rateLimitResetAt
	m.mu.RUnlock()

	usage := 0.0
	if max > 0 {
		usage = float64(used) / float64(max) * 100
	}
	if usage > 100 {
		usage = 100
	}

	barWidth := width - 8
	if barWidth < 0 {
		barWidth = 0
	}
	filled := int(usage * float64(barWidth) / 100)

	barStyle := quotaStyle(usage)
	bar := barStyle.Render(strings.Repeat("█", filled)) +
		quotaEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	resetIn := time.Until(resetAt)
	if resetIn < 0 {
		resetIn = 0
	}

	content := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Usage:"),
			barStyle.Render(fmt.Sprintf("%d/%d (%.0f%%)", used, max, usage))),
		bar,
		statLine("Reset in:", formatDuration(resetIn)),
	}
	return panel(width, " RATE LIMIT ", strings.Join(content, "\n"))
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width, height int) string {
	m.mu.RLock()
	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}
	messages := append([]LogMessage(nil), m.logMessages[start:]...)
	m.mu.RUnlock()

	var logs []string
	for _, log := range messages {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(truncate(log.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = dimText("No logs yet...")
	}

	logsHeight := height - 35
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" LOGS "), content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp(width int) string {
	help := `
  Keys:
    q        - Stop after the current posts (twice to quit now)
    ctrl+l   - Clear logs
    ?        - Toggle this help

  Status:
    ` + successStyle.Render("✓") + `        - Comments stored
    ` + warningStyle.Render("■") + `        - Interrupted, resumes next run
    ` + errorStyle.Render("✗") + `        - Failed, retried next run
`

	return panelStyle.Width(width).Render(help)
}

func panel(width int, title, content string) string {
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content),
	)
}

func statLine(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

func dimText(s string) string {
	return lipgloss.NewStyle().Foreground(shale).Render(s)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
