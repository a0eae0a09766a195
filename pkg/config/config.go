package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable the collector reads
const EnvPrefix = "MINERALSCRAPER"

// Config holds all configuration options for the mineral collector
type Config struct {
	// Reddit API access
	Reddit RedditConfig `yaml:"reddit" json:"reddit"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry behaviour for failed requests
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Search settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Progress tracking backend
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RedditConfig holds Reddit API credentials and endpoints.
// With no client ID the collector reads the public JSON endpoints anonymously.
type RedditConfig struct {
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"client_secret"`
	Username     string        `yaml:"username" json:"username"`
	Password     string        `yaml:"password" json:"password"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	OAuthURL     string        `yaml:"oauth_url" json:"oauth_url"`
	PublicURL    string        `yaml:"public_url" json:"public_url"`
	TokenURL     string        `yaml:"token_url" json:"token_url"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	// RequestDelay is the pause a fetch worker takes after each post.
	RequestDelay time.Duration `yaml:"request_delay" json:"request_delay"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// ScrapeConfig holds search settings
type ScrapeConfig struct {
	MappingFile string `yaml:"mapping_file" json:"mapping_file"`
	TimeFilter  string `yaml:"time_filter" json:"time_filter"`
	Sort        string `yaml:"sort" json:"sort"`
	Workers     int    `yaml:"workers" json:"workers"`
	// SearchLimit caps posts per subreddit search, 0 means unlimited.
	SearchLimit int `yaml:"search_limit" json:"search_limit"`
	// MaxExpansions caps the extra requests spent expanding one comment
	// thread, 0 means unlimited. A post that hits the cap is retried next run.
	MaxExpansions int `yaml:"max_expansions" json:"max_expansions"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	DataDir   string `yaml:"data_dir" json:"data_dir"`
	SaveEvery int    `yaml:"save_every" json:"save_every"`
}

// CheckpointConfig selects where processed post IDs are kept
type CheckpointConfig struct {
	Backend    string `yaml:"backend" json:"backend"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

var (
	validTimeFilters = map[string]bool{
		"hour": true, "day": true, "week": true, "month": true, "year": true, "all": true,
	}
	validSorts = map[string]bool{
		"relevance": true, "hot": true, "top": true, "new": true, "comments": true,
	}
	validLogLevels = map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent: "mineralscraper/1.0 (mineral mention collector)",
			OAuthURL:  "https://oauth.reddit.com",
			PublicURL: "https://www.reddit.com",
			TokenURL:  "https://www.reddit.com/api/v1/access_token",
			Timeout:   30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			RequestDelay:      time.Second,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			BaseDelay:    time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Scrape: ScrapeConfig{
			MappingFile: filepath.Join("configs", "subreddit_mapping.json"),
			TimeFilter:  "all",
			Sort:        "relevance",
			Workers:     1,
			SearchLimit: 0,
		},
		Output: OutputConfig{
			DataDir:   "data",
			SaveEvery: 10,
		},
		Checkpoint: CheckpointConfig{
			Backend: BackendJSON,
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// envOverrides lists the variables read from the environment.
// Zero values mean "not set" and leave the current value alone.
type envOverrides struct {
	ClientID          string        `envconfig:"CLIENT_ID"`
	ClientSecret      string        `envconfig:"CLIENT_SECRET"`
	Username          string        `envconfig:"USERNAME"`
	Password          string        `envconfig:"PASSWORD"`
	UserAgent         string        `envconfig:"USER_AGENT"`
	RequestsPerMinute int           `envconfig:"REQUESTS_PER_MINUTE"`
	RequestDelay      time.Duration `envconfig:"REQUEST_DELAY"`
	DataDir           string        `envconfig:"DATA_DIR"`
	MappingFile       string        `envconfig:"MAPPING_FILE"`
	Workers           int           `envconfig:"WORKERS"`
	CheckpointBackend string        `envconfig:"CHECKPOINT_BACKEND"`
	Notifications     *bool         `envconfig:"NOTIFICATIONS_ENABLED"`
	LogLevel          string        `envconfig:"LOG_LEVEL"`
	LogFile           string        `envconfig:"LOG_FILE"`
}

// LoadFromEnv loads configuration from MINERALSCRAPER_* environment variables
func (c *Config) LoadFromEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	setString(&c.Reddit.ClientID, env.ClientID)
	setString(&c.Reddit.ClientSecret, env.ClientSecret)
	setString(&c.Reddit.Username, env.Username)
	setString(&c.Reddit.Password, env.Password)
	setString(&c.Reddit.UserAgent, env.UserAgent)
	setString(&c.Output.DataDir, env.DataDir)
	setString(&c.Scrape.MappingFile, env.MappingFile)
	setString(&c.Checkpoint.Backend, env.CheckpointBackend)
	setString(&c.Logging.Level, env.LogLevel)
	setString(&c.Logging.File, env.LogFile)

	if env.RequestsPerMinute > 0 {
		c.RateLimit.RequestsPerMinute = env.RequestsPerMinute
	}
	if env.RequestDelay > 0 {
		c.RateLimit.RequestDelay = env.RequestDelay
	}
	if env.Workers > 0 {
		c.Scrape.Workers = env.Workers
	}
	if env.Notifications != nil {
		c.Notifications.Enabled = *env.Notifications
	}

	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".mineralscraper.yaml",
		".mineralscraper.yml",
		filepath.Join("configs", "config.yaml"),
		filepath.Join(home, ".config", "mineralscraper", "config.yaml"),
		filepath.Join(home, ".config", "mineralscraper", "config.yml"),
		filepath.Join(home, ".mineralscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Reddit credentials: a username only makes sense with a script app
	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("reddit user agent is required"))
	}
	if c.Reddit.Username != "" && c.Reddit.ClientID == "" {
		errs = append(errs, errors.New("reddit client id is required when a username is set"))
	}
	if c.Reddit.Username != "" && c.Reddit.Password == "" {
		errs = append(errs, errors.New("reddit password is required when a username is set"))
	}
	if c.Reddit.ClientSecret != "" && c.Reddit.ClientID == "" {
		errs = append(errs, errors.New("reddit client secret set without a client id"))
	}
	if c.Reddit.Timeout <= 0 {
		errs = append(errs, errors.New("reddit timeout must be positive"))
	}

	// Validate rate limiting
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.RequestDelay < 0 {
		errs = append(errs, errors.New("request delay cannot be negative"))
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts <= 0 {
			errs = append(errs, errors.New("retry max attempts must be positive"))
		}
		if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
			errs = append(errs, errors.New("retry delays must satisfy 0 < base_delay <= max_delay"))
		}
		if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
			errs = append(errs, errors.New("retry jitter factor must be between 0 and 1"))
		}
	}

	// Validate search settings
	if c.Scrape.MappingFile == "" {
		errs = append(errs, errors.New("mapping file is required"))
	}
	if !validTimeFilters[c.Scrape.TimeFilter] {
		errs = append(errs, fmt.Errorf("invalid time filter %q", c.Scrape.TimeFilter))
	}
	if !validSorts[c.Scrape.Sort] {
		errs = append(errs, fmt.Errorf("invalid sort %q", c.Scrape.Sort))
	}
	if c.Scrape.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Scrape.Workers > 8 {
		errs = append(errs, errors.New("workers should not exceed 8"))
	}
	if c.Scrape.SearchLimit < 0 {
		errs = append(errs, errors.New("search limit cannot be negative"))
	}
	if c.Scrape.MaxExpansions < 0 {
		errs = append(errs, errors.New("max expansions cannot be negative"))
	}

	// Validate output settings
	if c.Output.DataDir == "" {
		errs = append(errs, errors.New("data directory is required"))
	}
	if c.Output.SaveEvery <= 0 {
		errs = append(errs, errors.New("save_every must be positive"))
	}

	switch c.Checkpoint.Backend {
	case BackendJSON, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("invalid checkpoint backend %q", c.Checkpoint.Backend))
	}

	// Validate logging
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// SQLitePath returns the progress database location for the sqlite backend
func (c *Config) SQLitePath() string {
	if c.Checkpoint.SQLitePath != "" {
		return c.Checkpoint.SQLitePath
	}
	return filepath.Join(c.Output.DataDir, "progress.db")
}

// Masked returns a copy safe for display
func (c *Config) Masked() *Config {
	masked := *c
	masked.Reddit.ClientSecret = mask(c.Reddit.ClientSecret)
	masked.Reddit.Password = mask(c.Reddit.Password)
	return &masked
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["mapping"].(string); ok && v != "" {
		c.Scrape.MappingFile = v
	}
	if v, ok := flags["data-dir"].(string); ok && v != "" {
		c.Output.DataDir = v
	}
	if v, ok := flags["delay"].(time.Duration); ok && v >= 0 {
		c.RateLimit.RequestDelay = v
	}
	if v, ok := flags["save-every"].(int); ok && v > 0 {
		c.Output.SaveEvery = v
	}
	if v, ok := flags["workers"].(int); ok && v > 0 {
		c.Scrape.Workers = v
	}
	if v, ok := flags["limit"].(int); ok && v >= 0 {
		c.Scrape.SearchLimit = v
	}
	if v, ok := flags["backend"].(string); ok && v != "" {
		c.Checkpoint.Backend = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".mineralscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
