package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_posts (
	mineral TEXT NOT NULL,
	post_id TEXT NOT NULL,
	processed_at INTEGER NOT NULL,
	PRIMARY KEY (mineral, post_id)
);

CREATE TABLE IF NOT EXISTS progress_meta (
	mineral TEXT PRIMARY KEY,
	last_updated INTEGER NOT NULL
);
`

// SQLiteStore keeps every mineral's processed posts in one SQLite database.
// Saves only insert the IDs marked since the previous save.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string, log logger.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress database: %w", err)
	}
	// One writer keeps SQLite from reporting SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure progress database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise progress database: %w", err)
	}

	return &SQLiteStore{db: db, logger: log.WithField("component", "checkpoint")}, nil
}

// Load reads the processed set for mineral
func (s *SQLiteStore) Load(ctx context.Context, mineral string) (*Progress, error) {
	if err := config.ValidateMineralName(mineral); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT post_id FROM processed_posts WHERE mineral = ?", mineral)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress for %s: %w", mineral, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to read progress for %s: %w", mineral, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read progress for %s: %w", mineral, err)
	}

	p := NewProgress(mineral)
	p.load(ids)

	var updated int64
	err = s.db.QueryRowContext(ctx, "SELECT last_updated FROM progress_meta WHERE mineral = ?", mineral).Scan(&updated)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("failed to read progress metadata for %s: %w", mineral, err)
	default:
		p.LastUpdated = time.Unix(updated, 0)
	}

	s.logger.DebugWithFields("Progress loaded", map[string]interface{}{
		"mineral":   mineral,
		"processed": len(ids),
	})
	return p, nil
}

// Save inserts the newly processed IDs in one transaction
func (s *SQLiteStore) Save(ctx context.Context, p *Progress) error {
	if err := config.ValidateMineralName(p.Mineral); err != nil {
		return err
	}
	ids := p.unsaved()
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin progress transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO processed_posts (mineral, post_id, processed_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare progress insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, p.Mineral, id, now.Unix()); err != nil {
			return fmt.Errorf("failed to record post %s: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO progress_meta (mineral, last_updated) VALUES (?, ?)
		ON CONFLICT(mineral) DO UPDATE SET last_updated = excluded.last_updated`,
		p.Mineral, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to update progress metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress for %s: %w", p.Mineral, err)
	}
	p.saved(len(ids), now)

	s.logger.DebugWithFields("Progress saved", map[string]interface{}{
		"mineral":  p.Mineral,
		"inserted": len(ids),
	})
	return nil
}

// Delete removes every row for mineral
func (s *SQLiteStore) Delete(ctx context.Context, mineral string) error {
	if err := config.ValidateMineralName(mineral); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin progress transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM processed_posts WHERE mineral = ?", mineral); err != nil {
		return fmt.Errorf("failed to delete progress for %s: %w", mineral, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM progress_meta WHERE mineral = ?", mineral); err != nil {
		return fmt.Errorf("failed to delete progress metadata for %s: %w", mineral, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress deletion: %w", err)
	}

	s.logger.InfoWithFields("Progress deleted", map[string]interface{}{"mineral": mineral})
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
