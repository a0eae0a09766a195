package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
)

// Progress is the set of posts whose comments have been fully collected for
// one mineral
type Progress struct {
	Mineral     string
	LastUpdated time.Time

	mu        sync.RWMutex
	processed map[string]struct{}
	// pending holds IDs marked since the last successful save
	pending []string
}

// NewProgress returns an empty progress record
func NewProgress(mineral string) *Progress {
	return &Progress{
		Mineral:   mineral,
		processed: make(map[string]struct{}),
	}
}

// IsProcessed reports whether the post was fully processed
func (p *Progress) IsProcessed(postID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.processed[postID]
	return ok
}

// MarkProcessed records a processed post and reports whether it is new
func (p *Progress) MarkProcessed(postID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.processed[postID]; ok {
		return false
	}
	p.processed[postID] = struct{}{}
	p.pending = append(p.pending, postID)
	return true
}

// Count returns the number of processed posts
func (p *Progress) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.processed)
}

// IDs returns the processed post IDs sorted
func (p *Progress) IDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.processed))
	for id := range p.processed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Progress) load(ids []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.processed[id] = struct{}{}
	}
}

// unsaved returns the IDs marked since the last save
func (p *Progress) unsaved() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.pending...)
}

// saved drops the first n pending IDs once they are persisted
func (p *Progress) saved(n int, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > len(p.pending) {
		n = len(p.pending)
	}
	p.pending = p.pending[n:]
	p.LastUpdated = at
}

// Store persists progress records
type Store interface {
	// Load returns the saved progress for mineral, empty when none exists
	Load(ctx context.Context, mineral string) (*Progress, error)
	// Save persists p
	Save(ctx context.Context, p *Progress) error
	// Delete removes the saved progress for mineral
	Delete(ctx context.Context, mineral string) error
	Close() error
}

// Open returns the store selected by cfg.Checkpoint.Backend
func Open(cfg *config.Config, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	switch cfg.Checkpoint.Backend {
	case config.BackendJSON, "":
		return NewJSONStore(cfg.Output.DataDir, log), nil
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath(), log)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Checkpoint.Backend)
	}
}
