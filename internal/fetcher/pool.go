package fetcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/models"
	"mineralscraper/pkg/retry"
)

// Job asks for the comment tree of one post
type Job struct {
	Mineral   string
	Subreddit string
	Post      models.Post
	// IsNew is true when the post was added to the dataset by this run
	IsNew bool
}

// Result carries the comments fetched for a job
type Result struct {
	Job      Job
	Comments []models.Comment
	Err      error
	Duration time.Duration
	WorkerID int
}

// CommentSource fetches the flattened comment tree of a post
type CommentSource interface {
	FetchComments(ctx context.Context, post models.Post) ([]models.Comment, error)
}

// Pool runs comment fetches on a fixed number of workers. Results are
// delivered on a single channel so one consumer can apply them in order of
// completion.
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	source      CommentSource
	logger      logger.Logger
	active      int32
	stopOnce    sync.Once
	pace        time.Duration
}

// Option customises a Pool
type Option func(*Pool)

// WithPace makes each worker wait d after every fetch before taking the
// next job
func WithPace(d time.Duration) Option {
	return func(p *Pool) { p.pace = d }
}

// NewPool creates a pool bound to ctx. Cancelling ctx makes workers abandon
// queued jobs. The queue holds one job per worker, so Submit blocks while
// every worker is busy or pausing.
func NewPool(ctx context.Context, numWorkers int, source CommentSource, log logger.Logger, opts ...Option) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	p := &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		source:      source,
		logger:      log.WithField("component", "fetcher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers
func (p *Pool) Start() {
	logger.LogComponentStart(p.logger, "fetcher", map[string]interface{}{
		"num_workers": p.numWorkers,
		"pace":        p.pace,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the queue, waits for the workers to finish what was already
// submitted and then closes the result channel. It is safe to call twice.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobQueue)
		p.wg.Wait()
		close(p.resultQueue)
		p.cancel()

		reason := "queue drained"
		if p.ctx.Err() != nil {
			reason = "stopped"
		}
		logger.LogComponentStop(p.logger, "fetcher", reason)
	})
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(job Job) error {
	select {
	case <-p.ctx.Done():
		return fmt.Errorf("fetcher is shutting down: %w", p.ctx.Err())
	default:
	}

	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"post_id": job.Post.ID,
			"mineral": job.Mineral,
		})
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("fetcher is shutting down: %w", p.ctx.Err())
	}
}

// Results returns the channel results are delivered on. It is closed by Stop.
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

// InFlight returns the number of jobs currently being fetched
func (p *Pool) InFlight() int {
	return int(atomic.LoadInt32(&p.active))
}

// Workers returns the number of workers
func (p *Pool) Workers() int {
	return p.numWorkers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if p.ctx.Err() != nil {
			// Drain without fetching, the jobs stay unprocessed
			continue
		}

		result := p.processJob(job, id)

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			p.logger.DebugWithFields("Worker dropped result on shutdown", map[string]interface{}{
				"worker_id": id,
				"post_id":   job.Post.ID,
			})
		}

		// A cancelled wait falls through; the remaining jobs are drained above
		_ = retry.Wait(p.ctx, p.pace)
	}
}

func (p *Pool) processJob(job Job, workerID int) Result {
	atomic.AddInt32(&p.active, 1)
	defer atomic.AddInt32(&p.active, -1)

	start := time.Now()
	comments, err := p.source.FetchComments(p.ctx, job.Post)
	result := Result{
		Job:      job,
		Comments: comments,
		Duration: time.Since(start),
		WorkerID: workerID,
	}

	if err != nil {
		result.Err = err
		result.Comments = nil
		p.logger.ErrorWithFields("Worker failed to fetch comments", map[string]interface{}{
			"worker_id": workerID,
			"post_id":   job.Post.ID,
			"error":     err.Error(),
			"duration":  result.Duration,
		})
		return result
	}

	p.logger.DebugWithFields("Worker fetched comments", map[string]interface{}{
		"worker_id": workerID,
		"post_id":   job.Post.ID,
		"comments":  len(comments),
		"duration":  result.Duration,
	})
	return result
}
