package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"mineralscraper/pkg/models"
	"mineralscraper/pkg/ui"
)

// MineralState represents where a mineral is in the run
type MineralState int

const (
	MineralPending MineralState = iota
	MineralActive
	MineralCompleted
	MineralInterrupted
)

// MineralItem tracks one mineral of the run
type MineralItem struct {
	Name             string
	Subreddits       []string
	CurrentSubreddit string
	SubredditIndex   int
	ExistingPosts    int
	ExistingComments int
	AlreadyProcessed int
	Processed        int
	NewPosts         int
	NewComments      int
	Skipped          int
	Failed           int
	TotalPosts       int
	TotalComments    int
	State            MineralState
	StartTime        time.Time
	EndTime          time.Time
}

// PostItem is a post whose comments are being fetched or were just fetched
type PostItem struct {
	ID          string
	Mineral     string
	Subreddit   string
	Title       string
	IsNew       bool
	NewComments int
	StartTime   time.Time
	Err         error
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner  spinner.Model
	progress progress.Model

	// Scrape state
	minerals     map[string]*MineralItem
	mineralOrder []string
	current      string
	active       map[string]*PostItem
	activeOrder  []string
	recent       []*PostItem
	maxRecent    int

	// Totals over the session
	totalProcessed   int
	totalNewPosts    int
	totalNewComments int
	totalSkipped     int
	totalFailed      int
	sessionStartTime time.Time

	// Rate limiting
	rateLimitMax     int
	rateLimitUsed    int
	rateLimitResetAt time.Time

	// UI state
	width          int
	height         int
	showHelp       bool
	stopping       bool
	onQuit         func()
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a new TUI model. onQuit is called once when the user
// asks to stop.
func NewModel(onQuit func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(amethyst)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return &Model{
		spinner:          s,
		progress:         p,
		minerals:         make(map[string]*MineralItem),
		active:           make(map[string]*PostItem),
		maxRecent:        5,
		sessionStartTime: time.Now(),
		onQuit:           onQuit,
		maxLogMessages:   50,
		rateLimitMax:     60,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// StartMineral makes mineral the current one
func (m *Model) StartMineral(name string, subreddits []string, existingPosts, existingComments, processed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.minerals[name]
	if !ok {
		item = &MineralItem{Name: name}
		m.minerals[name] = item
		m.mineralOrder = append(m.mineralOrder, name)
	}
	item.Subreddits = append([]string(nil), subreddits...)
	item.ExistingPosts = existingPosts
	item.ExistingComments = existingComments
	item.AlreadyProcessed = processed
	item.State = MineralActive
	item.StartTime = time.Now()
	m.current = name
}

// StartSubreddit records the subreddit being searched
func (m *Model) StartSubreddit(mineral, subreddit string, index, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.minerals[mineral]; ok {
		item.CurrentSubreddit = subreddit
		item.SubredditIndex = index
	}
}

// StartPost adds a post to the in-flight list
func (m *Model) StartPost(mineral string, post models.Post, isNew bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[post.ID]; ok {
		return
	}
	m.active[post.ID] = &PostItem{
		ID:        post.ID,
		Mineral:   mineral,
		Subreddit: post.Subreddit,
		Title:     post.Title,
		IsNew:     isNew,
		StartTime: time.Now(),
	}
	m.activeOrder = append(m.activeOrder, post.ID)

	if isNew {
		m.totalNewPosts++
		if item, ok := m.minerals[mineral]; ok {
			item.NewPosts++
		}
	}
}

// SkipPost counts a post that was already processed
func (m *Model) SkipPost(mineral string, post models.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalSkipped++
	if item, ok := m.minerals[mineral]; ok {
		item.Skipped++
	}
}

// CompletePost moves a post from in-flight to recent
func (m *Model) CompletePost(mineral string, post models.Post, newComments int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := m.finishPost(post)
	done.NewComments = newComments

	m.totalProcessed++
	m.totalNewComments += newComments
	if item, ok := m.minerals[mineral]; ok {
		item.Processed++
		item.NewComments += newComments
	}
}

// FailPost records a post whose comments could not be fetched
func (m *Model) FailPost(mineral string, post models.Post, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := m.finishPost(post)
	done.Err = err

	m.totalFailed++
	if item, ok := m.minerals[mineral]; ok {
		item.Failed++
	}
}

// finishPost removes post from the in-flight list and returns its entry in
// the recent list. Callers hold m.mu.
func (m *Model) finishPost(post models.Post) *PostItem {
	item, ok := m.active[post.ID]
	if ok {
		delete(m.active, post.ID)
		for i, id := range m.activeOrder {
			if id == post.ID {
				m.activeOrder = append(m.activeOrder[:i], m.activeOrder[i+1:]...)
				break
			}
		}
	} else {
		item = &PostItem{ID: post.ID, Subreddit: post.Subreddit, Title: post.Title}
	}

	m.recent = append(m.recent, item)
	if len(m.recent) > m.maxRecent {
		m.recent = m.recent[len(m.recent)-m.maxRecent:]
	}
	return item
}

// FinishMineral stores the final totals of a mineral
func (m *Model) FinishMineral(r ui.MineralResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.minerals[r.Mineral]
	if !ok {
		item = &MineralItem{Name: r.Mineral}
		m.minerals[r.Mineral] = item
		m.mineralOrder = append(m.mineralOrder, r.Mineral)
	}
	item.TotalPosts = r.TotalPosts
	item.TotalComments = r.TotalComments
	item.NewPosts = r.NewPosts
	item.NewComments = r.NewComments
	item.Skipped = r.Skipped
	item.Failed = r.Failed
	item.EndTime = time.Now()
	item.State = MineralCompleted
	if r.Interrupted {
		item.State = MineralInterrupted
	}

	// Posts still listed belong to a mineral that has stopped
	for id, post := range m.active {
		if post.Mineral == r.Mineral {
			delete(m.active, id)
		}
	}
	order := m.activeOrder[:0]
	for _, id := range m.activeOrder {
		if _, ok := m.active[id]; ok {
			order = append(order, id)
		}
	}
	m.activeOrder = order
}

// UpdateRateLimit updates the rate limit status
func (m *Model) UpdateRateLimit(used, max int, resetAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rateLimitUsed = used
	m.rateLimitMax = max
	m.rateLimitResetAt = resetAt
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := shale
	switch level {
	case "ERROR":
		color = jasper
	case "WARN":
		color = carnelian
	case "SUCCESS":
		color = malachite
	case "INFO":
		color = azurite
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// GetMinerals returns copies of the minerals in the order they started
func (m *Model) GetMinerals() []MineralItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]MineralItem, 0, len(m.mineralOrder))
	for _, name := range m.mineralOrder {
		items = append(items, *m.minerals[name])
	}
	return items
}

// GetCurrentMineral returns the mineral being scraped, if any
func (m *Model) GetCurrentMineral() (MineralItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.minerals[m.current]
	if !ok {
		return MineralItem{}, false
	}
	return *item, true
}

// GetActivePosts returns the posts whose comments are being fetched
func (m *Model) GetActivePosts() []PostItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]PostItem, 0, len(m.activeOrder))
	for _, id := range m.activeOrder {
		posts = append(posts, *m.active[id])
	}
	return posts
}

// GetRecentPosts returns the last finished posts, oldest first
func (m *Model) GetRecentPosts() []PostItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	posts := make([]PostItem, 0, len(m.recent))
	for _, p := range m.recent {
		posts = append(posts, *p)
	}
	return posts
}

// GetRate returns processed posts per minute over the session
func (m *Model) GetRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.sessionStartTime)
	if elapsed <= 0 {
		return 0
	}
	return float64(m.totalProcessed) / elapsed.Minutes()
}

// requestStop calls onQuit the first time the user asks to stop
func (m *Model) requestStop() bool {
	m.mu.Lock()
	first := !m.stopping
	m.stopping = true
	m.mu.Unlock()

	if first && m.onQuit != nil {
		m.onQuit()
	}
	return first
}
