package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mineralscraper/pkg/config"
	"mineralscraper/pkg/logger"
)

func TestProgress(t *testing.T) {
	p := NewProgress("quartz")
	assert.Equal(t, 0, p.Count())
	assert.False(t, p.IsProcessed("b"))

	assert.True(t, p.MarkProcessed("b"))
	assert.True(t, p.MarkProcessed("a"))
	assert.False(t, p.MarkProcessed("b"))

	assert.True(t, p.IsProcessed("a"))
	assert.Equal(t, 2, p.Count())
	assert.Equal(t, []string{"a", "b"}, p.IDs())
	assert.Equal(t, []string{"b", "a"}, p.unsaved())
}

// storeContract runs the behaviour both stores share
func storeContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("MissingIsEmpty", func(t *testing.T) {
		store := open(t)
		p, err := store.Load(ctx, "quartz")
		require.NoError(t, err)
		assert.Equal(t, 0, p.Count())
		assert.Equal(t, "quartz", p.Mineral)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		store := open(t)
		p, err := store.Load(ctx, "quartz")
		require.NoError(t, err)
		p.MarkProcessed("p2")
		p.MarkProcessed("p1")
		require.NoError(t, store.Save(ctx, p))
		assert.Empty(t, p.unsaved())
		assert.False(t, p.LastUpdated.IsZero())

		p.MarkProcessed("p3")
		require.NoError(t, store.Save(ctx, p))

		loaded, err := store.Load(ctx, "quartz")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2", "p3"}, loaded.IDs())
		assert.False(t, loaded.LastUpdated.IsZero())
	})

	t.Run("MineralsAreSeparate", func(t *testing.T) {
		store := open(t)
		a, err := store.Load(ctx, "amethyst")
		require.NoError(t, err)
		a.MarkProcessed("x")
		require.NoError(t, store.Save(ctx, a))

		b, err := store.Load(ctx, "beryl")
		require.NoError(t, err)
		assert.False(t, b.IsProcessed("x"))
	})

	t.Run("Delete", func(t *testing.T) {
		store := open(t)
		p, err := store.Load(ctx, "pyrite")
		require.NoError(t, err)
		p.MarkProcessed("x")
		require.NoError(t, store.Save(ctx, p))

		require.NoError(t, store.Delete(ctx, "pyrite"))
		require.NoError(t, store.Delete(ctx, "pyrite"), "deleting twice is fine")

		p, err = store.Load(ctx, "pyrite")
		require.NoError(t, err)
		assert.Equal(t, 0, p.Count())
	})
}

func TestJSONStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewJSONStore(t.TempDir(), logger.NewNopLogger())
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		store, err := OpenSQLite(filepath.Join(t.TempDir(), "progress.db"), logger.NewNopLogger())
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestSQLiteStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "progress.db")

	store, err := OpenSQLite(path, logger.NewNopLogger())
	require.NoError(t, err)
	p, err := store.Load(ctx, "galena")
	require.NoError(t, err)
	p.MarkProcessed("p1")
	require.NoError(t, store.Save(ctx, p))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path, logger.NewNopLogger())
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "galena")
	require.NoError(t, err)
	assert.True(t, loaded.IsProcessed("p1"))
}

func TestJSONStoreFileFormat(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewJSONStore(dir, logger.NewNopLogger())

	p := NewProgress("quartz")
	p.MarkProcessed("zz")
	p.MarkProcessed("aa")
	require.NoError(t, store.Save(ctx, p))

	data, err := os.ReadFile(filepath.Join(dir, "quartz", "progress.json"))
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []interface{}{"aa", "zz"}, raw["processed_posts"])
	assert.Contains(t, raw, "last_updated")
}

func TestJSONStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "quartz", "progress.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{"processed_posts": [`), 0644))

	store := NewJSONStore(dir, logger.NewTestLogger())
	_, err := store.Load(ctx, "quartz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backed up")

	backup, err := os.ReadFile(path + ".backup")
	require.NoError(t, err)
	assert.Equal(t, `{"processed_posts": [`, string(backup))
}

func TestStoresRejectUnsafeMineral(t *testing.T) {
	stores := map[string]func(t *testing.T, dir string) Store{
		"json": func(t *testing.T, dir string) Store {
			return NewJSONStore(filepath.Join(dir, "data"), logger.NewNopLogger())
		},
		"sqlite": func(t *testing.T, dir string) Store {
			store, err := OpenSQLite(filepath.Join(dir, "progress.db"), logger.NewNopLogger())
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			store := open(t, dir)

			_, err := store.Load(ctx, "../etc")
			assert.Error(t, err)

			p := NewProgress("../etc")
			p.MarkProcessed("p1")
			assert.Error(t, store.Save(ctx, p))
			assert.NoFileExists(t, filepath.Join(dir, "etc", "progress.json"))

			assert.Error(t, store.Delete(ctx, "../etc"))
			assert.Error(t, store.Delete(ctx, ""))
		})
	}
}

func TestOpen(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.DataDir = t.TempDir()

	store, err := Open(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, store)

	cfg.Checkpoint.Backend = config.BackendSQLite
	store, err = Open(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())
	assert.FileExists(t, filepath.Join(cfg.Output.DataDir, "progress.db"))

	cfg.Checkpoint.Backend = "redis"
	_, err = Open(cfg, logger.NewNopLogger())
	assert.Error(t, err)
}
