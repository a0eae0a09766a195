package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"mineralscraper/internal/fetcher"
	"mineralscraper/pkg/checkpoint"
	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/models"
	"mineralscraper/pkg/reddit"
	"mineralscraper/pkg/storage"
	"mineralscraper/pkg/ui"
)

// RunOptions changes how a run treats saved state
type RunOptions struct {
	// ForceRestart discards saved progress so every post is fetched again.
	// Stored posts and comments are kept.
	ForceRestart bool
}

// MineralStats is the outcome of scraping one mineral
type MineralStats struct {
	Mineral          string
	TotalPosts       int
	TotalComments    int
	NewPosts         int
	NewComments      int
	Skipped          int
	Failed           int
	FailedSubreddits []string
	Interrupted      bool
	Duration         time.Duration
}

// Scraper collects posts and comments for each mineral of a mapping
type Scraper struct {
	client   RedditClient
	storage  *storage.Manager
	progress checkpoint.Store
	logger   logger.Logger
	reporter ui.Reporter
	runID    string

	saveEvery    int
	requestDelay time.Duration
	workers      int
	search       reddit.SearchOptions
}

// New creates a Scraper. Pacing, batching and search settings come from cfg.
func New(cfg *config.Config, client RedditClient, store *storage.Manager, progress checkpoint.Store, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	runID := uuid.NewString()

	saveEvery := cfg.Output.SaveEvery
	if saveEvery < 1 {
		saveEvery = 1
	}

	return &Scraper{
		client:       client,
		storage:      store,
		progress:     progress,
		logger:       log.WithFields(map[string]interface{}{"component": "scraper", "run_id": runID}),
		reporter:     ui.NopReporter{},
		runID:        runID,
		saveEvery:    saveEvery,
		requestDelay: cfg.RateLimit.RequestDelay,
		workers:      cfg.Scrape.Workers,
		search:       reddit.SearchOptionsFromConfig(cfg.Scrape),
	}
}

// SetReporter sets where progress events go
func (s *Scraper) SetReporter(r ui.Reporter) {
	if r == nil {
		r = ui.NopReporter{}
	}
	s.reporter = r
}

// RunID identifies this run in logs and summaries
func (s *Scraper) RunID() string {
	return s.runID
}

// Run scrapes every mineral of the mapping in file order. A failing mineral
// is logged and the next one continues; the failures are returned joined.
// Cancelling ctx stops after the current mineral has saved its state.
func (s *Scraper) Run(ctx context.Context, mapping *config.Mapping, opts RunOptions) ([]MineralStats, error) {
	start := time.Now()
	s.logger.InfoWithFields("Starting scrape run", map[string]interface{}{
		"minerals":      mapping.Len(),
		"workers":       s.workers,
		"save_every":    s.saveEvery,
		"request_delay": s.requestDelay,
		"force_restart": opts.ForceRestart,
	})

	var results []MineralStats
	var failures []error
	for _, entry := range mapping.Entries() {
		if ctx.Err() != nil {
			break
		}

		stats, err := s.ScrapeMineral(ctx, entry.Mineral, entry.Subreddits, opts)
		if stats.Mineral != "" {
			results = append(results, stats)
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.WithError(err).WithField("mineral", entry.Mineral).Error("Mineral failed")
			s.reporter.LogError("%s failed: %v", entry.Mineral, err)
			failures = append(failures, fmt.Errorf("%s: %w", entry.Mineral, err))
		}
	}

	s.logger.InfoWithFields("Scrape run finished", map[string]interface{}{
		"minerals": len(results),
		"failed":   len(failures),
		"duration": time.Since(start),
	})

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, errors.Join(failures...)
}

// ScrapeMineral searches each subreddit for mineral, fetches comments for
// every post not yet processed and saves the dataset, progress and summary.
func (s *Scraper) ScrapeMineral(ctx context.Context, mineral string, subreddits []string, opts RunOptions) (MineralStats, error) {
	start := time.Now()
	log := s.logger.WithField("mineral", mineral)

	if opts.ForceRestart {
		if err := s.progress.Delete(ctx, mineral); err != nil {
			return MineralStats{}, fmt.Errorf("reset progress: %w", err)
		}
		log.Info("Saved progress discarded")
	}

	dataset, err := s.storage.Open(mineral)
	if err != nil {
		return MineralStats{}, fmt.Errorf("open dataset: %w", err)
	}
	progress, err := s.progress.Load(ctx, mineral)
	if err != nil {
		return MineralStats{}, fmt.Errorf("load progress: %w", err)
	}

	log.InfoWithFields("Scraping mineral", map[string]interface{}{
		"subreddits":        len(subreddits),
		"existing_posts":    dataset.PostCount(),
		"existing_comments": dataset.CommentCount(),
		"processed_posts":   progress.Count(),
	})
	s.reporter.StartMineral(mineral, subreddits, dataset.PostCount(), dataset.CommentCount(), progress.Count())

	run := &mineralRun{
		scraper:  s,
		logger:   log,
		dataset:  dataset,
		progress: progress,
		inFlight: make(map[string]bool),
		stats:    MineralStats{Mineral: mineral},
	}

	pool := fetcher.NewPool(ctx, s.workers, s.client, log, fetcher.WithPace(s.requestDelay))
	pool.Start()

	applied := make(chan struct{})
	go func() {
		defer close(applied)
		for result := range pool.Results() {
			run.apply(ctx, result)
		}
	}()

	for i, subreddit := range subreddits {
		if ctx.Err() != nil {
			break
		}
		s.reporter.StartSubreddit(mineral, subreddit, i+1, len(subreddits))
		log.DebugWithFields("Searching subreddit", map[string]interface{}{"subreddit": subreddit})

		err := s.client.Search(ctx, subreddit, mineral, s.search, func(post models.Post) error {
			return run.handlePost(ctx, pool, subreddit, post)
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.WithError(err).WithField("subreddit", subreddit).Error("Search failed, moving on")
			s.reporter.LogError("search r/%s failed: %v", subreddit, err)
			run.failSubreddit(subreddit)
			continue
		}
		logger.LogScrapeProgress(log, mineral, i+1, len(subreddits), progress.Count())
	}

	pool.Stop()
	<-applied

	// State is written even when ctx is cancelled
	saveCtx := context.WithoutCancel(ctx)
	saveErr := run.save(saveCtx)

	stats := run.snapshot()
	stats.TotalPosts = dataset.PostCount()
	stats.TotalComments = dataset.CommentCount()
	stats.Interrupted = ctx.Err() != nil
	stats.Duration = time.Since(start)

	if saveErr == nil {
		summary := dataset.BuildSummary(s.runID, subreddits, stats.NewPosts, stats.NewComments)
		if err := dataset.WriteSummary(summary); err != nil {
			saveErr = err
		}
	}

	log.InfoWithFields("Mineral finished", map[string]interface{}{
		"total_posts":    stats.TotalPosts,
		"total_comments": stats.TotalComments,
		"new_posts":      stats.NewPosts,
		"new_comments":   stats.NewComments,
		"skipped":        stats.Skipped,
		"failed":         stats.Failed,
		"interrupted":    stats.Interrupted,
		"duration":       stats.Duration,
	})
	s.reporter.FinishMineral(ui.MineralResult{
		Mineral:       mineral,
		TotalPosts:    stats.TotalPosts,
		TotalComments: stats.TotalComments,
		NewPosts:      stats.NewPosts,
		NewComments:   stats.NewComments,
		Skipped:       stats.Skipped,
		Failed:        stats.Failed,
		Interrupted:   stats.Interrupted,
	})

	if saveErr != nil {
		return stats, saveErr
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// mineralRun is the state of one ScrapeMineral call. handlePost runs on the
// search goroutine, apply on the single result consumer.
type mineralRun struct {
	scraper  *Scraper
	logger   logger.Logger
	dataset  *storage.Dataset
	progress *checkpoint.Progress

	mu        sync.Mutex
	inFlight  map[string]bool
	stats     MineralStats
	sinceSave int
}

func (r *mineralRun) handlePost(ctx context.Context, pool *fetcher.Pool, subreddit string, post models.Post) error {
	s := r.scraper
	mineral := r.stats.Mineral

	// Posts still being fetched count as processed
	r.mu.Lock()
	skip := r.inFlight[post.ID] || r.progress.IsProcessed(post.ID)
	if skip {
		r.stats.Skipped++
	} else {
		r.inFlight[post.ID] = true
	}
	r.mu.Unlock()

	if skip {
		r.logger.DebugWithFields("Skipping already processed post", map[string]interface{}{
			"post_id": post.ID,
			"title":   post.Title,
		})
		s.reporter.SkipPost(mineral, post)
		return nil
	}

	isNew := r.dataset.AddPost(post)
	if isNew {
		r.mu.Lock()
		r.stats.NewPosts++
		r.mu.Unlock()
		r.logger.DebugWithFields("New post", map[string]interface{}{"post_id": post.ID, "title": post.Title})
	} else {
		r.logger.DebugWithFields("Updating post", map[string]interface{}{"post_id": post.ID, "title": post.Title})
	}
	s.reporter.StartPost(mineral, post, isNew)

	job := fetcher.Job{Mineral: mineral, Subreddit: subreddit, Post: post, IsNew: isNew}
	if err := pool.Submit(job); err != nil {
		r.release(post.ID)
		return err
	}
	return nil
}

// apply records a finished fetch. A failed fetch leaves the post
// unprocessed so the next run retries it.
func (r *mineralRun) apply(ctx context.Context, result fetcher.Result) {
	s := r.scraper
	post := result.Job.Post
	defer r.release(post.ID)

	if result.Err != nil {
		if errors.Is(result.Err, context.Canceled) || errors.Is(result.Err, context.DeadlineExceeded) {
			return
		}
		r.mu.Lock()
		r.stats.Failed++
		r.mu.Unlock()
		r.logger.WithError(result.Err).WithField("post_id", post.ID).Error("Failed to get comments")
		s.reporter.FailPost(r.stats.Mineral, post, result.Err)
		return
	}

	added := r.dataset.AddComments(result.Comments)
	r.progress.MarkProcessed(post.ID)

	r.mu.Lock()
	r.stats.NewComments += added
	r.sinceSave++
	due := r.sinceSave >= s.saveEvery
	if due {
		r.sinceSave = 0
	}
	r.mu.Unlock()

	r.logger.DebugWithFields("Post processed", map[string]interface{}{
		"post_id":      post.ID,
		"comments":     len(result.Comments),
		"new_comments": added,
		"duration":     result.Duration,
	})
	s.reporter.CompletePost(r.stats.Mineral, post, added)

	if due {
		if err := r.save(context.WithoutCancel(ctx)); err != nil {
			r.logger.WithError(err).Error("Periodic save failed")
			s.reporter.LogError("save failed: %v", err)
		} else {
			r.logger.DebugWithFields("Progress saved", map[string]interface{}{"processed": r.progress.Count()})
		}
	}
}

// save writes the dataset before the progress record, so every post marked
// processed on disk has its comments on disk too
func (r *mineralRun) save(ctx context.Context) error {
	if err := r.dataset.Save(); err != nil {
		return err
	}
	return r.scraper.progress.Save(ctx, r.progress)
}

func (r *mineralRun) release(postID string) {
	r.mu.Lock()
	delete(r.inFlight, postID)
	r.mu.Unlock()
}

func (r *mineralRun) failSubreddit(subreddit string) {
	r.mu.Lock()
	r.stats.FailedSubreddits = append(r.stats.FailedSubreddits, subreddit)
	r.mu.Unlock()
}

func (r *mineralRun) snapshot() MineralStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.stats
	stats.FailedSubreddits = append([]string(nil), r.stats.FailedSubreddits...)
	return stats
}
