package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the bookmark exporter.
type Config struct {
	// Platform credentials
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// API endpoint settings
	API APIConfig `yaml:"api" json:"api"`

	// Export pipeline settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Media download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AuthConfig holds platform credentials.
type AuthConfig struct {
	AuthToken string `yaml:"auth_token" json:"auth_token"`
	CSRFToken string `yaml:"csrf_token" json:"csrf_token"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// APIConfig holds API transport settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ExportConfig holds export pipeline settings.
type ExportConfig struct {
	// PolitenessDelay is the fixed sleep between page fetches. Rate limits
	// are handled by checkpoint-and-stop, not backoff, so this stays fixed.
	PolitenessDelay time.Duration `yaml:"politeness_delay" json:"politeness_delay"`

	// QuoteDepth bounds recursive quote expansion. 0 means unlimited,
	// which is clamped to a hard ceiling by the expander.
	QuoteDepth int `yaml:"quote_depth" json:"quote_depth"`

	// IncludeReplies adds other users' direct replies to the archive.
	IncludeReplies bool `yaml:"include_replies" json:"include_replies"`

	// MaxPages caps pages fetched per invocation. 0 means no cap.
	MaxPages int `yaml:"max_pages" json:"max_pages"`

	// BoundarySkipThreshold stops a run after this many consecutive
	// already-exported posts at the head of the scan. 0 disables the
	// heuristic; the boundary id remains the authoritative stop signal.
	BoundarySkipThreshold int `yaml:"boundary_skip_threshold" json:"boundary_skip_threshold"`

	// StateDir overrides the platform data directory for checkpoint state.
	StateDir string `yaml:"state_dir" json:"state_dir"`
}

// OutputConfig holds output directory configuration.
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// DownloadConfig holds media download settings.
type DownloadConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	ConcurrentLimit int           `yaml:"concurrent_limit" json:"concurrent_limit"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	SkipVideos      bool          `yaml:"skip_videos" json:"skip_videos"`
	RetryAttempts   int           `yaml:"retry_attempts" json:"retry_attempts"`
}

// RateLimitConfig holds rate pacing configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		API: APIConfig{
			BaseURL: "https://x.com/i/api",
			Timeout: 30 * time.Second,
		},
		Export: ExportConfig{
			PolitenessDelay:       2 * time.Second,
			QuoteDepth:            0, // unlimited, clamped by the expander
			IncludeReplies:        true,
			MaxPages:              0,
			BoundarySkipThreshold: 0,
		},
		Output: OutputConfig{
			Directory: "./bookmarks",
		},
		Download: DownloadConfig{
			Enabled:         true,
			ConcurrentLimit: 3,
			Timeout:         60 * time.Second,
			SkipVideos:      false,
			RetryAttempts:   3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overrides configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("BMEXPORTER_AUTH_TOKEN"); token != "" {
		c.Auth.AuthToken = token
	}
	if csrf := os.Getenv("BMEXPORTER_CSRF_TOKEN"); csrf != "" {
		c.Auth.CSRFToken = csrf
	}
	if ua := os.Getenv("BMEXPORTER_USER_AGENT"); ua != "" {
		c.Auth.UserAgent = ua
	}
	if dir := os.Getenv("BMEXPORTER_OUTPUT_DIR"); dir != "" {
		c.Output.Directory = dir
	}
	if dir := os.Getenv("BMEXPORTER_STATE_DIR"); dir != "" {
		c.Export.StateDir = dir
	}
	if rpm := os.Getenv("BMEXPORTER_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if level := os.Getenv("BMEXPORTER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. An empty path falls
// back to the default locations; a missing default file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
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

func (c *Config) findConfigFile() string {
	locations := []string{
		".bmexporter.yaml",
		".bmexporter.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "bmexporter", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "bmexporter", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".bmexporter.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks whether the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Export.PolitenessDelay < 0 {
		errs = append(errs, errors.New("politeness delay cannot be negative"))
	}
	if c.Export.QuoteDepth < 0 {
		errs = append(errs, errors.New("quote depth cannot be negative"))
	}
	if c.Export.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}
	if c.Export.BoundarySkipThreshold < 0 {
		errs = append(errs, errors.New("boundary skip threshold cannot be negative"))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Download.ConcurrentLimit <= 0 {
		errs = append(errs, errors.New("concurrent download limit must be positive"))
	}
	if c.Download.ConcurrentLimit > 10 {
		errs = append(errs, errors.New("concurrent download limit should not exceed 10"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources.
// Precedence: environment variables > .env file > config file > defaults.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".bmexporter.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
