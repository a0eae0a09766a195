package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
	"mineralscraper/pkg/storage"
)

// progressFile is the on-disk layout of progress.json
type progressFile struct {
	ProcessedPosts []string  `json:"processed_posts"`
	LastUpdated    time.Time `json:"last_updated"`
}

// JSONStore keeps progress in <data>/<mineral>/progress.json
type JSONStore struct {
	dataDir string
	logger  logger.Logger
}

// NewJSONStore creates a store writing under dataDir
func NewJSONStore(dataDir string, log logger.Logger) *JSONStore {
	return &JSONStore{dataDir: dataDir, logger: log.WithField("component", "checkpoint")}
}

func (s *JSONStore) path(mineral string) string {
	return filepath.Join(s.dataDir, mineral, storage.ProgressFile)
}

// Load reads progress.json. A file that cannot be decoded is copied to
// progress.json.backup and reported as an error.
func (s *JSONStore) Load(ctx context.Context, mineral string) (*Progress, error) {
	if err := config.ValidateMineralName(mineral); err != nil {
		return nil, err
	}
	path := s.path(mineral)
	p := NewProgress(mineral)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("failed to open progress file: %w", err)
	}
	defer file.Close()

	var pf progressFile
	if err := json.NewDecoder(file).Decode(&pf); err != nil {
		if backupErr := backup(path); backupErr != nil {
			s.logger.WithError(backupErr).Warn("Failed to back up corrupt progress file")
		}
		return nil, fmt.Errorf("failed to decode progress for %s (backed up to %s.backup): %w", mineral, filepath.Base(path), err)
	}

	p.load(pf.ProcessedPosts)
	p.LastUpdated = pf.LastUpdated

	s.logger.DebugWithFields("Progress loaded", map[string]interface{}{
		"mineral":    mineral,
		"processed":  p.Count(),
		"updated_at": pf.LastUpdated,
	})
	return p, nil
}

// Save rewrites progress.json atomically
func (s *JSONStore) Save(ctx context.Context, p *Progress) error {
	if err := config.ValidateMineralName(p.Mineral); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path(p.Mineral)), 0755); err != nil {
		return fmt.Errorf("failed to create progress directory: %w", err)
	}

	pending := len(p.unsaved())
	now := time.Now()
	pf := progressFile{ProcessedPosts: p.IDs(), LastUpdated: now}
	if err := storage.WriteJSON(s.path(p.Mineral), pf); err != nil {
		return fmt.Errorf("save progress for %s: %w", p.Mineral, err)
	}
	p.saved(pending, now)

	s.logger.DebugWithFields("Progress saved", map[string]interface{}{
		"mineral":   p.Mineral,
		"processed": len(pf.ProcessedPosts),
	})
	return nil
}

// Delete removes progress.json
func (s *JSONStore) Delete(ctx context.Context, mineral string) error {
	if err := config.ValidateMineralName(mineral); err != nil {
		return err
	}
	if err := os.Remove(s.path(mineral)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	s.logger.InfoWithFields("Progress deleted", map[string]interface{}{"mineral": mineral})
	return nil
}

// Close is a no-op for the file store
func (s *JSONStore) Close() error {
	return nil
}

// backup copies path to path.backup
func backup(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open progress file for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path + ".backup")
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy progress file to backup: %w", err)
	}
	return nil
}
