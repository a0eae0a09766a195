package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"mineralscraper/pkg/models"
	"mineralscraper/pkg/ui"
)

// TUI is the full-screen dashboard. It implements ui.Reporter, so the
// scraper can drive it directly.
type TUI struct {
	program *tea.Program
}

var _ ui.Reporter = (*TUI)(nil)

// NewTUI creates a new TUI instance. onQuit is called when the user presses
// q so the caller can cancel the scrape.
func NewTUI(onQuit func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(onQuit)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &TUI{program: tea.NewProgram(model, opts...)}
}

// Start runs the TUI until Stop is called or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) StartMineral(mineral string, subreddits []string, existingPosts, existingComments, processed int) {
	t.Send(MineralStartMsg{
		Mineral:          mineral,
		Subreddits:       subreddits,
		ExistingPosts:    existingPosts,
		ExistingComments: existingComments,
		Processed:        processed,
	})
}

func (t *TUI) StartSubreddit(mineral, subreddit string, index, total int) {
	t.Send(SubredditStartMsg{Mineral: mineral, Subreddit: subreddit, Index: index, Total: total})
}

func (t *TUI) StartPost(mineral string, post models.Post, isNew bool) {
	t.Send(PostStartMsg{Mineral: mineral, Post: post, IsNew: isNew})
}

func (t *TUI) SkipPost(mineral string, post models.Post) {
	t.Send(PostSkipMsg{Mineral: mineral, Post: post})
}

func (t *TUI) CompletePost(mineral string, post models.Post, newComments int) {
	t.Send(PostCompleteMsg{Mineral: mineral, Post: post, NewComments: newComments})
}

func (t *TUI) FailPost(mineral string, post models.Post, err error) {
	t.Send(PostErrorMsg{Mineral: mineral, Post: post, Error: err})
}

func (t *TUI) FinishMineral(result ui.MineralResult) {
	t.Send(MineralFinishMsg{Result: result})
}

// UpdateRateLimit updates the rate limit status
func (t *TUI) UpdateRateLimit(used, max int, resetAt time.Time) {
	t.Send(RateLimitUpdateMsg{Used: used, Max: max, ResetAt: resetAt})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogSuccess logs a success message
func (t *TUI) LogSuccess(format string, args ...interface{}) {
	t.Log("SUCCESS", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
