package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"mineralscraper/pkg/config"
	"mineralscraper/pkg/models"
)

// File names inside a mineral directory
const (
	PostsFile    = "posts.json"
	CommentsFile = "comments.json"
	SummaryFile  = "summary.json"
	ProgressFile = "progress.json"
)

// Manager owns the data directory and hands out one Dataset per mineral
type Manager struct {
	dataDir  string
	datasets map[string]*Dataset
	mu       sync.RWMutex
}

// NewManager creates a new storage manager rooted at dataDir
func NewManager(dataDir string) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Manager{
		dataDir:  dataDir,
		datasets: make(map[string]*Dataset),
	}, nil
}

// DataDir returns the data directory path
func (m *Manager) DataDir() string {
	return m.dataDir
}

// MineralDir returns the directory holding a mineral's files
func (m *Manager) MineralDir(mineral string) string {
	return filepath.Join(m.dataDir, mineral)
}

// Open loads the dataset for mineral, creating its directory if needed.
// Missing files count as empty. Repeated calls return the same Dataset.
func (m *Manager) Open(mineral string) (*Dataset, error) {
	if err := config.ValidateMineralName(mineral); err != nil {
		return nil, err
	}

	m.mu.RLock()
	ds, ok := m.datasets[mineral]
	m.mu.RUnlock()
	if ok {
		return ds, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ds, ok := m.datasets[mineral]; ok {
		return ds, nil
	}

	dir := m.MineralDir(mineral)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mineral directory: %w", err)
	}

	ds, err := loadDataset(mineral, dir)
	if err != nil {
		return nil, err
	}
	m.datasets[mineral] = ds
	return ds, nil
}

// Minerals lists the minerals that have a directory under the data directory
func (m *Manager) Minerals() ([]string, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var minerals []string
	for _, entry := range entries {
		if entry.IsDir() && config.ValidateMineralName(entry.Name()) == nil {
			minerals = append(minerals, entry.Name())
		}
	}
	sort.Strings(minerals)
	return minerals, nil
}

// ReadSummary reads the summary written by the last completed run. It
// returns nil without error when no summary exists yet.
func (m *Manager) ReadSummary(mineral string) (*models.Summary, error) {
	if err := config.ValidateMineralName(mineral); err != nil {
		return nil, err
	}

	var summary models.Summary
	found, err := readJSON(filepath.Join(m.MineralDir(mineral), SummaryFile), &summary)
	if err != nil || !found {
		return nil, err
	}
	return &summary, nil
}

// readJSON decodes path into v, reporting false when the file does not exist
func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

// WriteJSON writes v as indented JSON to path atomically. The data goes to a
// temporary file which is synced and renamed over the target, so readers see
// either the old or the new content. Non-ASCII text is written as is.
func WriteJSON(path string, v interface{}) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
