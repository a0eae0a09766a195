package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 60, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, time.Second, config.RateLimit.RequestDelay)
	assert.Equal(t, "data", config.Output.DataDir)
	assert.Equal(t, 10, config.Output.SaveEvery)
	assert.Equal(t, filepath.Join("configs", "subreddit_mapping.json"), config.Scrape.MappingFile)
	assert.Equal(t, "all", config.Scrape.TimeFilter)
	assert.Equal(t, "relevance", config.Scrape.Sort)
	assert.Equal(t, 1, config.Scrape.Workers)
	assert.Zero(t, config.Scrape.MaxExpansions, "thread expansion is unlimited by default")
	assert.Equal(t, BackendJSON, config.Checkpoint.Backend)
	assert.Equal(t, 3, config.Retry.MaxAttempts)

	require.NoError(t, config.Validate(), "defaults must validate without credentials")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MINERALSCRAPER_CLIENT_ID", "client-123")
	t.Setenv("MINERALSCRAPER_CLIENT_SECRET", "secret-456")
	t.Setenv("MINERALSCRAPER_USERNAME", "rockhound")
	t.Setenv("MINERALSCRAPER_PASSWORD", "hunter2")
	t.Setenv("MINERALSCRAPER_REQUESTS_PER_MINUTE", "30")
	t.Setenv("MINERALSCRAPER_REQUEST_DELAY", "250ms")
	t.Setenv("MINERALSCRAPER_DATA_DIR", "/tmp/minerals")
	t.Setenv("MINERALSCRAPER_WORKERS", "3")
	t.Setenv("MINERALSCRAPER_CHECKPOINT_BACKEND", "sqlite")
	t.Setenv("MINERALSCRAPER_NOTIFICATIONS_ENABLED", "true")
	t.Setenv("MINERALSCRAPER_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "client-123", config.Reddit.ClientID)
	assert.Equal(t, "secret-456", config.Reddit.ClientSecret)
	assert.Equal(t, "rockhound", config.Reddit.Username)
	assert.Equal(t, "hunter2", config.Reddit.Password)
	assert.Equal(t, 30, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, 250*time.Millisecond, config.RateLimit.RequestDelay)
	assert.Equal(t, "/tmp/minerals", config.Output.DataDir)
	assert.Equal(t, 3, config.Scrape.Workers)
	assert.Equal(t, BackendSQLite, config.Checkpoint.Backend)
	assert.True(t, config.Notifications.Enabled)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvLeavesUnsetValues(t *testing.T) {
	config := DefaultConfig()
	config.Output.DataDir = "custom"

	require.NoError(t, config.LoadFromEnv())
	assert.Equal(t, "custom", config.Output.DataDir)
	assert.False(t, config.Notifications.Enabled)
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("MINERALSCRAPER_WORKERS", "many")

	config := DefaultConfig()
	assert.Error(t, config.LoadFromEnv())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
reddit:
  client_id: file-client
  user_agent: "test-agent/0.1"
rate_limit:
  requests_per_minute: 20
  request_delay: 2s
scrape:
  time_filter: year
  sort: new
output:
  data_dir: /srv/data
  save_every: 5
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, "file-client", config.Reddit.ClientID)
	assert.Equal(t, "test-agent/0.1", config.Reddit.UserAgent)
	assert.Equal(t, 20, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, 2*time.Second, config.RateLimit.RequestDelay)
	assert.Equal(t, "year", config.Scrape.TimeFilter)
	assert.Equal(t, "new", config.Scrape.Sort)
	assert.Equal(t, "/srv/data", config.Output.DataDir)
	assert.Equal(t, 5, config.Output.SaveEvery)
	assert.Equal(t, "warn", config.Logging.Level)

	// Untouched sections keep their defaults
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.Equal(t, "https://oauth.reddit.com", config.Reddit.OAuthURL)
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	err := config.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name: "script app credentials",
			mutate: func(c *Config) {
				c.Reddit.ClientID = "id"
				c.Reddit.ClientSecret = "secret"
				c.Reddit.Username = "user"
				c.Reddit.Password = "pass"
			},
		},
		{
			name:    "username without password",
			mutate:  func(c *Config) { c.Reddit.ClientID = "id"; c.Reddit.Username = "user" },
			wantErr: "password is required",
		},
		{
			name:    "secret without client id",
			mutate:  func(c *Config) { c.Reddit.ClientSecret = "secret" },
			wantErr: "client secret set without a client id",
		},
		{
			name:    "zero requests per minute",
			mutate:  func(c *Config) { c.RateLimit.RequestsPerMinute = 0 },
			wantErr: "requests per minute must be positive",
		},
		{
			name:    "bad time filter",
			mutate:  func(c *Config) { c.Scrape.TimeFilter = "decade" },
			wantErr: "invalid time filter",
		},
		{
			name:    "bad sort",
			mutate:  func(c *Config) { c.Scrape.Sort = "random" },
			wantErr: "invalid sort",
		},
		{
			name:    "too many workers",
			mutate:  func(c *Config) { c.Scrape.Workers = 20 },
			wantErr: "workers should not exceed 8",
		},
		{
			name:    "negative max expansions",
			mutate:  func(c *Config) { c.Scrape.MaxExpansions = -1 },
			wantErr: "max expansions cannot be negative",
		},
		{
			name:    "zero save every",
			mutate:  func(c *Config) { c.Output.SaveEvery = 0 },
			wantErr: "save_every must be positive",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Checkpoint.Backend = "redis" },
			wantErr: "invalid checkpoint backend",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	config := DefaultConfig()
	config.RateLimit.RequestsPerMinute = -1
	config.Output.DataDir = ""
	config.Scrape.Sort = "random"

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requests per minute")
	assert.Contains(t, err.Error(), "data directory")
	assert.Contains(t, err.Error(), "invalid sort")
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"mapping":    "other.json",
		"data-dir":   "out",
		"delay":      500 * time.Millisecond,
		"save-every": 25,
		"workers":    4,
		"limit":      50,
		"log-level":  "error",
	})

	assert.Equal(t, "other.json", config.Scrape.MappingFile)
	assert.Equal(t, "out", config.Output.DataDir)
	assert.Equal(t, 500*time.Millisecond, config.RateLimit.RequestDelay)
	assert.Equal(t, 25, config.Output.SaveEvery)
	assert.Equal(t, 4, config.Scrape.Workers)
	assert.Equal(t, 50, config.Scrape.SearchLimit)
	assert.Equal(t, "error", config.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  data_dir: from-file\n  save_every: 7\nscrape:\n  workers: 2\n"), 0644))

	t.Setenv("MINERALSCRAPER_DATA_DIR", "from-env")
	t.Setenv("MINERALSCRAPER_WORKERS", "3")

	config, err := Load(path, map[string]interface{}{"workers": 5})
	require.NoError(t, err)

	assert.Equal(t, "from-env", config.Output.DataDir, "env beats file")
	assert.Equal(t, 7, config.Output.SaveEvery, "file beats defaults")
	assert.Equal(t, 5, config.Scrape.Workers, "flags beat env")
}

func TestLoadValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checkpoint:\n  backend: redis\n"), 0644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	original := DefaultConfig()
	original.Scrape.Sort = "top"
	original.RateLimit.RequestDelay = 3 * time.Second
	require.NoError(t, original.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "top", loaded.Scrape.Sort)
	assert.Equal(t, 3*time.Second, loaded.RateLimit.RequestDelay)
}

func TestMasked(t *testing.T) {
	config := DefaultConfig()
	config.Reddit.ClientSecret = "abcdefghij"
	config.Reddit.Password = "pw"

	masked := config.Masked()
	assert.Equal(t, "ab******ij", masked.Reddit.ClientSecret)
	assert.Equal(t, "****", masked.Reddit.Password)
	assert.Equal(t, "abcdefghij", config.Reddit.ClientSecret, "original untouched")
}

func TestSQLitePath(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, filepath.Join("data", "progress.db"), config.SQLitePath())

	config.Checkpoint.SQLitePath = "/var/lib/progress.db"
	assert.Equal(t, "/var/lib/progress.db", config.SQLitePath())
}
