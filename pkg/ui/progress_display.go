package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"mineralscraper/pkg/models"
)

// ProgressDisplay is the plain terminal Reporter. By default it keeps one
// refreshing status line per mineral; verbose mode prints a line per post
// instead. Quiet mode only prints failures.
type ProgressDisplay struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	quiet   bool

	mineral     string
	subreddit   string
	startTime   time.Time
	processed   int
	newPosts    int
	newComments int
	skipped     int
	errors      int
	lineOpen    bool
}

// NewProgressDisplay creates a display writing to w, or stdout when w is nil
func NewProgressDisplay(w io.Writer, verbose, quiet bool) *ProgressDisplay {
	if w == nil {
		w = os.Stdout
	}
	return &ProgressDisplay{w: w, verbose: verbose, quiet: quiet, startTime: time.Now()}
}

// StartMineral resets the counters for a new mineral
func (p *ProgressDisplay) StartMineral(mineral string, subreddits []string, existingPosts, existingComments, processed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mineral = mineral
	p.subreddit = ""
	p.startTime = time.Now()
	p.processed, p.newPosts, p.newComments, p.skipped, p.errors = 0, 0, 0, 0, 0

	if p.quiet {
		return
	}
	p.println(fmt.Sprintf("\n%s Scraping %s in %d subreddits", Cyan("◆"), Yellow(mineral), len(subreddits)))
	p.println(fmt.Sprintf("  %s %d existing posts, %d existing comments, %d posts already processed",
		Dim("•"), existingPosts, existingComments, processed))
}

// StartSubreddit announces the next subreddit search
func (p *ProgressDisplay) StartSubreddit(mineral, subreddit string, index, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subreddit = subreddit
	if p.quiet {
		return
	}
	p.println(fmt.Sprintf("  %s r/%s %s", Magenta("→"), subreddit, Dim(fmt.Sprintf("(%d/%d)", index, total))))
}

// StartPost notes a post whose comments are being fetched
func (p *ProgressDisplay) StartPost(mineral string, post models.Post, isNew bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isNew {
		p.newPosts++
	}
	if p.quiet || !p.verbose {
		return
	}
	label := "updating"
	if isNew {
		label = Green("new post")
	}
	p.println(fmt.Sprintf("    %s: %s", label, truncate(post.Title, 70)))
}

// SkipPost notes a post that was already processed
func (p *ProgressDisplay) SkipPost(mineral string, post models.Post) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.skipped++
	if p.quiet {
		return
	}
	if p.verbose {
		p.println(fmt.Sprintf("    %s %s", Dim("skip"), Dim(truncate(post.Title, 70))))
		return
	}
	p.printProgress()
}

// CompletePost records the comments added for a post
func (p *ProgressDisplay) CompletePost(mineral string, post models.Post, newComments int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	p.newComments += newComments
	if p.quiet {
		return
	}
	if p.verbose {
		p.println(fmt.Sprintf("      %s %d new comments", Green("✓"), newComments))
		return
	}
	p.printProgress()
}

// FailPost reports a post whose comments could not be fetched
func (p *ProgressDisplay) FailPost(mineral string, post models.Post, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errors++
	p.println(fmt.Sprintf("    %s %s: %v", Red("✗"), post.ID, err))
}

// FinishMineral prints the mineral's totals
func (p *ProgressDisplay) FinishMineral(r MineralResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.quiet {
		return
	}
	status := Green("✓") + " Completed"
	if r.Interrupted {
		status = Yellow("■") + " Interrupted"
	}
	p.println(fmt.Sprintf("%s %s in %s", status, Yellow(r.Mineral), formatDuration(time.Since(p.startTime))))
	p.println(fmt.Sprintf("  %s total: %d posts, %d comments", Dim("•"), r.TotalPosts, r.TotalComments))
	p.println(fmt.Sprintf("  %s new this run: %d posts, %d comments", Dim("•"), r.NewPosts, r.NewComments))
	if r.Skipped > 0 || r.Failed > 0 {
		p.println(fmt.Sprintf("  %s %d skipped, %d failed", Dim("•"), r.Skipped, r.Failed))
	}
}

// UpdateRateLimit warns when the request budget is exhausted
func (p *ProgressDisplay) UpdateRateLimit(used, max int, resetAt time.Time) {
	if max <= 0 || used < max {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.quiet {
		return
	}
	p.println(fmt.Sprintf("  %s Rate limit reached. Waiting %s...", Yellow("⚠"), formatDuration(time.Until(resetAt))))
}

func (p *ProgressDisplay) LogInfo(format string, args ...interface{}) {
	p.log(Cyan("•"), format, args...)
}

func (p *ProgressDisplay) LogSuccess(format string, args ...interface{}) {
	p.log(Green("✓"), format, args...)
}

func (p *ProgressDisplay) LogWarning(format string, args ...interface{}) {
	p.log(Yellow("⚠"), format, args...)
}

func (p *ProgressDisplay) LogError(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.println(fmt.Sprintf("  %s %s", Red("✗"), fmt.Sprintf(format, args...)))
}

func (p *ProgressDisplay) log(prefix, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quiet {
		return
	}
	p.println(fmt.Sprintf("  %s %s", prefix, fmt.Sprintf(format, args...)))
}

// println ends an open status line before printing msg
func (p *ProgressDisplay) println(msg string) {
	if p.lineOpen {
		fmt.Fprintln(p.w)
		p.lineOpen = false
	}
	fmt.Fprintln(p.w, msg)
}

// printProgress redraws the status line
func (p *ProgressDisplay) printProgress() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.processed) / elapsed.Minutes()
	}

	line := fmt.Sprintf("    %s r/%s • %d posts • %d comments • %.1f/min",
		Cyan(p.mineral),
		p.subreddit,
		p.processed,
		p.newComments,
		rate,
	)
	if p.skipped > 0 {
		line += fmt.Sprintf(" • %s", Dim(fmt.Sprintf("%d skipped", p.skipped)))
	}
	if p.errors > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.errors)))
	}

	fmt.Fprintf(p.w, "\r%s\r%s", strings.Repeat(" ", 120), line)
	p.lineOpen = true
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
