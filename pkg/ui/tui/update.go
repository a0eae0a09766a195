package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"mineralscraper/pkg/models"
	"mineralscraper/pkg/ui"
)

// Message types for the TUI

// MineralStartMsg is sent when a mineral starts
type MineralStartMsg struct {
	Mineral          string
	Subreddits       []string
	ExistingPosts    int
	ExistingComments int
	Processed        int
}

// SubredditStartMsg is sent when a subreddit search starts
type SubredditStartMsg struct {
	Mineral   string
	Subreddit string
	Index     int
	Total     int
}

// PostStartMsg is sent when a post's comments are queued for fetching
type PostStartMsg struct {
	Mineral string
	Post    models.Post
	IsNew   bool
}

// PostSkipMsg is sent for posts processed by an earlier run
type PostSkipMsg struct {
	Mineral string
	Post    models.Post
}

// PostCompleteMsg is sent when a post's comments are stored
type PostCompleteMsg struct {
	Mineral     string
	Post        models.Post
	NewComments int
}

// PostErrorMsg is sent when a post's comments could not be fetched
type PostErrorMsg struct {
	Mineral string
	Post    models.Post
	Error   error
}

// MineralFinishMsg is sent when a mineral is done
type MineralFinishMsg struct {
	Result ui.MineralResult
}

// RateLimitUpdateMsg is sent to update rate limit status
type RateLimitUpdateMsg struct {
	Used    int
	Max     int
	ResetAt time.Time
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mu.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.mu.Unlock()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		// Regular refresh so elapsed times keep moving
		return m, tickCmd()

	case MineralStartMsg:
		m.StartMineral(msg.Mineral, msg.Subreddits, msg.ExistingPosts, msg.ExistingComments, msg.Processed)
		m.AddLogMessage("INFO", fmt.Sprintf("Scraping %s in %d subreddits", msg.Mineral, len(msg.Subreddits)))
		return m, nil

	case SubredditStartMsg:
		m.StartSubreddit(msg.Mineral, msg.Subreddit, msg.Index, msg.Total)
		return m, nil

	case PostStartMsg:
		m.StartPost(msg.Mineral, msg.Post, msg.IsNew)
		return m, nil

	case PostSkipMsg:
		m.SkipPost(msg.Mineral, msg.Post)
		return m, nil

	case PostCompleteMsg:
		m.CompletePost(msg.Mineral, msg.Post, msg.NewComments)
		return m, nil

	case PostErrorMsg:
		m.FailPost(msg.Mineral, msg.Post, msg.Error)
		m.AddLogMessage("ERROR", fmt.Sprintf("Failed: %s - %v", msg.Post.ID, msg.Error))
		return m, nil

	case MineralFinishMsg:
		m.FinishMineral(msg.Result)
		r := msg.Result
		if r.Interrupted {
			m.AddLogMessage("WARN", fmt.Sprintf("Interrupted %s: %d posts, %d comments saved", r.Mineral, r.TotalPosts, r.TotalComments))
		} else {
			m.AddLogMessage("SUCCESS", fmt.Sprintf("Completed %s: +%d posts, +%d comments", r.Mineral, r.NewPosts, r.NewComments))
		}
		return m, nil

	case RateLimitUpdateMsg:
		m.UpdateRateLimit(msg.Used, msg.Max, msg.ResetAt)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input. The first quit key stops the scrape
// gracefully, a second one leaves immediately.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.requestStop() {
			m.AddLogMessage("WARN", "Stopping after the current posts, press q again to quit now")
			return m, nil
		}
		return m, tea.Quit

	case "?":
		m.mu.Lock()
		m.showHelp = !m.showHelp
		m.mu.Unlock()
		return m, nil

	case "ctrl+l":
		// Clear logs
		m.mu.Lock()
		m.logMessages = []LogMessage{}
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// Commands

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
