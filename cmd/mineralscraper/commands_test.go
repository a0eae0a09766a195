package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mineralscraper/pkg/auth"
	"mineralscraper/pkg/checkpoint"
	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/models"
	"mineralscraper/pkg/scraper"
	"mineralscraper/pkg/storage"
)

func TestScrapeFlagsOnlyIncludesChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "scrape"}
	var delay time.Duration
	var n, w int
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "")
	cmd.Flags().IntVar(&n, "save-every", 10, "")
	cmd.Flags().IntVar(&w, "workers", 1, "")
	cmd.Flags().String("mapping", "", "")

	require.NoError(t, cmd.ParseFlags([]string{"--delay", "250ms", "--workers", "3"}))
	requestDelay, workers = delay, w
	t.Cleanup(func() { requestDelay, workers = 0, 0 })

	flags := scrapeFlags(cmd)
	assert.Equal(t, map[string]interface{}{
		"delay":   250 * time.Millisecond,
		"workers": 3,
	}, flags)
}

func TestMineralResults(t *testing.T) {
	results := mineralResults([]scraper.MineralStats{
		{Mineral: "quartz", TotalPosts: 4, NewPosts: 2, NewComments: 9, Skipped: 1, Failed: 1, FailedSubreddits: []string{"geology"}},
		{Mineral: "pyrite", Interrupted: true},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "quartz", results[0].Mineral)
	assert.Equal(t, 4, results[0].TotalPosts)
	assert.Equal(t, 9, results[0].NewComments)
	assert.Equal(t, 1, results[0].Failed)
	assert.True(t, results[1].Interrupted)
}

func TestCollectStatus(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.NewManager(dir)
	require.NoError(t, err)
	progress := checkpoint.NewJSONStore(dir, logger.NewNopLogger())

	ds, err := store.Open("quartz")
	require.NoError(t, err)
	ds.AddPost(models.Post{ID: "p1", Subreddit: "geology"})
	ds.AddPost(models.Post{ID: "p2", Subreddit: "geology"})
	ds.AddComments([]models.Comment{{ID: "c1", PostID: "p1", ParentID: "t3_p1", Subreddit: "geology"}})
	require.NoError(t, ds.Save())
	require.NoError(t, ds.WriteSummary(ds.BuildSummary("run-1", []string{"geology"}, 2, 1)))

	p := checkpoint.NewProgress("quartz")
	p.MarkProcessed("p1")
	require.NoError(t, progress.Save(ctx, p))

	// pyrite was interrupted before its first summary
	_, err = store.Open("pyrite")
	require.NoError(t, err)

	rows, err := collectStatus(ctx, store, progress, []string{"quartz", "pyrite"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, mineralStatus{Mineral: "quartz", Posts: 2, Comments: 1, Processed: 1, LastRun: rows[0].LastRun, HasRun: true}, rows[0])
	assert.NotEmpty(t, rows[0].LastRun)
	assert.Equal(t, mineralStatus{Mineral: "pyrite"}, rows[1])

	out := renderStatus(rows)
	assert.Contains(t, out, "MINERAL")
	assert.Contains(t, out, "quartz")
	assert.Contains(t, out, "never")

	_, err = collectStatus(ctx, store, progress, []string{"../etc"})
	assert.Error(t, err)
}

func TestPrintAccountsMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	printAccounts(&buf, []*auth.Account{{
		Name:         "default",
		ClientID:     "client-id-123",
		ClientSecret: "super-secret-value",
		Username:     "rockhound",
		Password:     "hunter22",
	}})

	out := buf.String()
	assert.Contains(t, out, "1. default")
	assert.Contains(t, out, "client-id-123")
	assert.Contains(t, out, "rockhound")
	assert.NotContains(t, out, "super-secret-value")
	assert.NotContains(t, out, "hunter22")
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"scrape"},
		{"status"},
		{"version"},
		{"config", "init"},
		{"config", "show"},
		{"config", "validate"},
		{"auth", "login"},
		{"auth", "logout"},
		{"auth", "list"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	for _, name := range []string{"mapping", "data-dir", "delay", "save-every", "workers", "limit", "account", "force-restart", "tui"} {
		assert.NotNil(t, scrapeCmd.Flags().Lookup(name), name)
	}
	for _, name := range []string{"config", "log-level", "quiet", "verbose"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}
