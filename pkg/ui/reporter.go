package ui

import (
	"time"

	"mineralscraper/pkg/models"
)

// Reporter receives scrape progress events. Implementations must be safe
// for concurrent use.
type Reporter interface {
	StartMineral(mineral string, subreddits []string, existingPosts, existingComments, processed int)
	StartSubreddit(mineral, subreddit string, index, total int)
	StartPost(mineral string, post models.Post, isNew bool)
	SkipPost(mineral string, post models.Post)
	CompletePost(mineral string, post models.Post, newComments int)
	FailPost(mineral string, post models.Post, err error)
	FinishMineral(result MineralResult)
	UpdateRateLimit(used, max int, resetAt time.Time)
	LogInfo(format string, args ...interface{})
	LogSuccess(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
}

// MineralResult is the outcome of one mineral shown when it finishes
type MineralResult struct {
	Mineral       string
	TotalPosts    int
	TotalComments int
	NewPosts      int
	NewComments   int
	Skipped       int
	Failed        int
	Interrupted   bool
}

// NopReporter discards every event
type NopReporter struct{}

func (NopReporter) StartMineral(string, []string, int, int, int) {}
func (NopReporter) StartSubreddit(string, string, int, int)      {}
func (NopReporter) StartPost(string, models.Post, bool)          {}
func (NopReporter) SkipPost(string, models.Post)                 {}
func (NopReporter) CompletePost(string, models.Post, int)        {}
func (NopReporter) FailPost(string, models.Post, error)          {}
func (NopReporter) FinishMineral(MineralResult)                  {}
func (NopReporter) UpdateRateLimit(int, int, time.Time)          {}
func (NopReporter) LogInfo(string, ...interface{})               {}
func (NopReporter) LogSuccess(string, ...interface{})            {}
func (NopReporter) LogWarning(string, ...interface{})            {}
func (NopReporter) LogError(string, ...interface{})              {}
