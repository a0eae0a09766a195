package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"mineralscraper/pkg/models"
)

func TestProgressDisplayDefaultMode(t *testing.T) {
	var buf bytes.Buffer
	d := NewProgressDisplay(&buf, false, false)

	d.StartMineral("quartz", []string{"geology", "crystals", "rocks"}, 4, 10, 2)
	d.StartSubreddit("quartz", "geology", 1, 3)
	d.StartPost("quartz", models.Post{ID: "p1", Title: "A quartz point"}, true)
	d.CompletePost("quartz", models.Post{ID: "p1"}, 7)
	d.SkipPost("quartz", models.Post{ID: "p2"})

	out := buf.String()
	assert.Contains(t, out, "quartz")
	assert.Contains(t, out, "in 3 subreddits")
	assert.Contains(t, out, "4 existing posts, 10 existing comments, 2 posts already processed")
	assert.Contains(t, out, "r/geology")
	assert.Contains(t, out, "(1/3)")
	assert.Contains(t, out, "1 posts • 7 comments")
	assert.Contains(t, out, "1 skipped")
	assert.NotContains(t, out, "A quartz point", "titles only shown in verbose mode")
}

func TestProgressDisplayVerbose(t *testing.T) {
	var buf bytes.Buffer
	d := NewProgressDisplay(&buf, true, false)

	d.StartMineral("beryl", []string{"geology"}, 0, 0, 0)
	d.StartPost("beryl", models.Post{ID: "p1", Title: "Emerald   on\nmatrix"}, true)
	d.CompletePost("beryl", models.Post{ID: "p1"}, 3)
	d.StartPost("beryl", models.Post{ID: "p2", Title: "Aquamarine"}, false)
	d.SkipPost("beryl", models.Post{ID: "p3", Title: "Old news"})

	out := buf.String()
	assert.Contains(t, out, "Emerald on matrix")
	assert.Contains(t, out, "3 new comments")
	assert.Contains(t, out, "updating: Aquamarine")
	assert.Contains(t, out, "Old news")
	assert.NotContains(t, out, "\r", "verbose mode has no status line")
}

func TestProgressDisplayQuietShowsOnlyFailures(t *testing.T) {
	var buf bytes.Buffer
	d := NewProgressDisplay(&buf, false, true)

	d.StartMineral("galena", []string{"geology"}, 0, 0, 0)
	d.StartSubreddit("galena", "geology", 1, 1)
	d.CompletePost("galena", models.Post{ID: "p1"}, 2)
	d.LogInfo("hello %s", "there")
	d.FinishMineral(MineralResult{Mineral: "galena"})
	assert.Empty(t, buf.String())

	d.FailPost("galena", models.Post{ID: "p9"}, errors.New("timeout"))
	d.LogError("search r/%s failed", "private")
	assert.Contains(t, buf.String(), "p9: timeout")
	assert.Contains(t, buf.String(), "search r/private failed")
}

func TestProgressDisplayFinishMineral(t *testing.T) {
	var buf bytes.Buffer
	d := NewProgressDisplay(&buf, false, false)

	d.StartMineral("pyrite", nil, 0, 0, 0)
	d.CompletePost("pyrite", models.Post{ID: "p1"}, 1)
	d.FinishMineral(MineralResult{
		Mineral:       "pyrite",
		TotalPosts:    12,
		TotalComments: 80,
		NewPosts:      2,
		NewComments:   9,
		Skipped:       10,
		Failed:        1,
		Interrupted:   true,
	})

	out := buf.String()
	assert.Contains(t, out, "Interrupted")
	assert.Contains(t, out, "total: 12 posts, 80 comments")
	assert.Contains(t, out, "new this run: 2 posts, 9 comments")
	assert.Contains(t, out, "10 skipped, 1 failed")

	// The open status line is ended before the summary
	assert.Contains(t, out, "/min\n")
}

func TestProgressDisplayRateLimit(t *testing.T) {
	var buf bytes.Buffer
	d := NewProgressDisplay(&buf, false, false)

	d.UpdateRateLimit(10, 60, time.Now().Add(time.Minute))
	assert.Empty(t, buf.String())

	d.UpdateRateLimit(60, 60, time.Now().Add(30*time.Second))
	assert.Contains(t, buf.String(), "Rate limit reached")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n b\t c", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo w...", truncate("héllo wörld!", 10))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(-time.Second))
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}
