package scraper_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mineralscraper/pkg/checkpoint"
	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/models"
	"mineralscraper/pkg/ratelimit"
	"mineralscraper/pkg/reddit"
	"mineralscraper/pkg/scraper"
	"mineralscraper/pkg/storage"
)

type obj = map[string]interface{}

// mockReddit serves the public search and comment endpoints from in-memory
// fixtures
type mockReddit struct {
	server *httptest.Server

	mu       sync.Mutex
	posts    map[string][]obj // subreddit -> post things
	threads  map[string][]obj // post ID -> top-level comment things
	missing  map[string]bool  // post IDs answered with 404
	requests map[string]int
}

func newMockReddit(t *testing.T) *mockReddit {
	m := &mockReddit{
		posts:    make(map[string][]obj),
		threads:  make(map[string][]obj),
		missing:  make(map[string]bool),
		requests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/r/", m.handleSearch)
	mux.HandleFunc("/comments/", m.handleComments)
	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockReddit) addPost(subreddit, id, title string, comments ...obj) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[subreddit] = append(m.posts[subreddit], obj{"kind": "t3", "data": obj{
		"id":           id,
		"title":        title,
		"selftext":     "",
		"author":       "rockhound",
		"score":        10,
		"num_comments": len(comments),
		"subreddit":    subreddit,
		"created_utc":  1700000000.0,
		"permalink":    "/r/" + subreddit + "/comments/" + id + "/slug/",
	}})
	m.threads[id] = append(m.threads[id], comments...)
}

func (m *mockReddit) addComment(postID string, c obj) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[postID] = append(m.threads[postID], c)
}

func (m *mockReddit) setMissing(postID string, missing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing[postID] = missing
}

func (m *mockReddit) requestsFor(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

func (m *mockReddit) handleSearch(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests[r.URL.Path]++
	sub := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/r/"), "/search.json")
	posts, ok := m.posts[sub]
	posts = append([]obj{}, posts...)
	m.mu.Unlock()

	if r.URL.Query().Get("q") == "" {
		http.Error(w, "missing query", http.StatusBadRequest)
		return
	}
	if !ok {
		http.Error(w, `{"reason": "banned"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, listing(posts...))
}

func (m *mockReddit) handleComments(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests[r.URL.Path]++
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/comments/"), ".json")
	comments := append([]obj{}, m.threads[id]...)
	missing := m.missing[id]
	m.mu.Unlock()

	if missing {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, []obj{listing(obj{"kind": "t3", "data": obj{"id": id}}), listing(comments...)})
}

func listing(children ...obj) obj {
	if children == nil {
		children = []obj{}
	}
	return obj{"kind": "Listing", "data": obj{"after": nil, "children": children}}
}

func commentThing(postID, id, parent string, depth int, replies ...obj) obj {
	var r interface{} = ""
	if len(replies) > 0 {
		r = listing(replies...)
	}
	return obj{"kind": "t1", "data": obj{
		"id":          id,
		"parent_id":   parent,
		"link_id":     "t3_" + postID,
		"author":      "user_" + id,
		"body":        "comment " + id,
		"score":       1,
		"created_utc": 1700000100.0,
		"permalink":   "/comments/" + postID + "/slug/" + id + "/",
		"depth":       depth,
		"replies":     r,
	}}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// pipeline wires the real client, storage and progress store together
type pipeline struct {
	cfg      *config.Config
	store    *storage.Manager
	progress checkpoint.Store
	client   *reddit.Client
}

func newPipeline(t *testing.T, m *mockReddit, mutate func(*config.Config)) *pipeline {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Reddit.PublicURL = m.server.URL
	cfg.Output.DataDir = t.TempDir()
	cfg.RateLimit.RequestDelay = 0
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	log := logger.NewNopLogger()
	client, err := reddit.NewClient(context.Background(), cfg, log, reddit.WithLimiter(ratelimit.Unlimited{}))
	require.NoError(t, err)

	store, err := storage.NewManager(cfg.Output.DataDir)
	require.NoError(t, err)
	progress, err := checkpoint.Open(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { progress.Close() })

	return &pipeline{cfg: cfg, store: store, progress: progress, client: client}
}

func (p *pipeline) run(t *testing.T, mapping *config.Mapping) ([]scraper.MineralStats, error) {
	t.Helper()
	s := scraper.New(p.cfg, p.client, p.store, p.progress, logger.NewNopLogger())
	return s.Run(context.Background(), mapping, scraper.RunOptions{})
}

func (p *pipeline) readPosts(t *testing.T, mineral string) []models.Post {
	t.Helper()
	var posts []models.Post
	data, err := os.ReadFile(filepath.Join(p.cfg.Output.DataDir, mineral, storage.PostsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &posts))
	return posts
}

func (p *pipeline) readComments(t *testing.T, mineral string) []models.Comment {
	t.Helper()
	var comments []models.Comment
	data, err := os.ReadFile(filepath.Join(p.cfg.Output.DataDir, mineral, storage.CommentsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &comments))
	return comments
}

func mustMapping(t *testing.T, data string) *config.Mapping {
	t.Helper()
	m, err := config.ParseMapping([]byte(data))
	require.NoError(t, err)
	return m
}

func TestEndToEndIncrementalRuns(t *testing.T) {
	for _, backend := range []string{config.BackendJSON, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			m := newMockReddit(t)
			m.addPost("geology", "q1", "Quartz point",
				commentThing("q1", "c1", "t3_q1", 0,
					commentThing("q1", "c2", "t1_c1", 1)))
			m.addPost("geology", "q2", "Smoky quartz")
			m.addPost("crystals", "q1", "Quartz point")
			m.addPost("crystals", "q3", "Rose quartz", commentThing("q3", "c3", "t3_q3", 0))
			m.addPost("geology_pyrite", "p1", "Pyrite cube", commentThing("p1", "c9", "t3_p1", 0))
			m.setMissing("q2", true)

			p := newPipeline(t, m, func(cfg *config.Config) { cfg.Checkpoint.Backend = backend })
			mapping := mustMapping(t, `{"quartz": ["geology", "crystals"], "pyrite": ["geology_pyrite"]}`)

			results, err := p.run(t, mapping)
			require.NoError(t, err)
			require.Len(t, results, 2)

			quartz := results[0]
			assert.Equal(t, "quartz", quartz.Mineral)
			assert.Equal(t, 3, quartz.NewPosts)
			assert.Equal(t, 3, quartz.NewComments)
			assert.Equal(t, 1, quartz.Failed, "q2 has no thread")
			assert.Equal(t, 1, quartz.Skipped, "q1 appears in both subreddits")

			posts := p.readPosts(t, "quartz")
			assert.Len(t, posts, 3)
			comments := p.readComments(t, "quartz")
			require.Len(t, comments, 3)
			assert.Equal(t, 1, comments[1].Level)
			assert.Equal(t, "q1", comments[1].PostID)

			summary, err := p.store.ReadSummary("quartz")
			require.NoError(t, err)
			require.NotNil(t, summary)
			assert.Equal(t, 3, summary.TotalPosts)
			assert.Equal(t, 3, summary.TotalComments)
			assert.Equal(t, []string{"geology", "crystals"}, summary.SubredditsSearched)
			assert.Equal(t, 1, summary.CommentsBySubreddit["crystals"])

			assert.Equal(t, 1, m.requestsFor("/comments/q1.json"))

			// The second run only retries the post that failed
			m.setMissing("q2", false)
			m.addComment("q2", commentThing("q2", "c5", "t3_q2", 0))

			results, err = p.run(t, mapping)
			require.NoError(t, err)
			quartz = results[0]
			assert.Equal(t, 0, quartz.NewPosts)
			assert.Equal(t, 1, quartz.NewComments)
			assert.Equal(t, 0, quartz.Failed)
			assert.Equal(t, 4, quartz.TotalComments)

			assert.Equal(t, 1, m.requestsFor("/comments/q1.json"), "processed posts are not fetched again")
			assert.Equal(t, 2, m.requestsFor("/comments/q2.json"))

			progress, err := p.progress.Load(context.Background(), "quartz")
			require.NoError(t, err)
			assert.Equal(t, []string{"q1", "q2", "q3"}, progress.IDs())
		})
	}
}

func TestEndToEndMissingSubreddit(t *testing.T) {
	m := newMockReddit(t)
	m.addPost("geology", "g1", "Galena", commentThing("g1", "c1", "t3_g1", 0))

	p := newPipeline(t, m, func(cfg *config.Config) { cfg.Retry.Enabled = false })
	results, err := p.run(t, mustMapping(t, `{"galena": ["private_sub", "geology"]}`))
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, []string{"private_sub"}, results[0].FailedSubreddits)
	assert.Equal(t, 1, results[0].NewPosts)
	assert.Len(t, p.readComments(t, "galena"), 1)
}
