package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the SmugMug exporter
type Config struct {
	// SmugMug API credentials
	SmugMug SmugMugConfig `yaml:"smugmug" json:"smugmug"`

	// Rate limiting configuration shared by all outbound requests
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for transient remote failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Inventory traversal settings
	Walk WalkConfig `yaml:"walk" json:"walk"`

	// Download scheduler settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SmugMugConfig holds SmugMug-specific configuration
type SmugMugConfig struct {
	APIKey       string `yaml:"api_key" json:"api_key"`
	APISecret    string `yaml:"api_secret" json:"api_secret"`
	AccessToken  string `yaml:"access_token" json:"access_token"`
	AccessSecret string `yaml:"access_secret" json:"access_secret"`
	Nickname     string `yaml:"nickname" json:"nickname"`
	UserAgent    string `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds the declarative retry policy consumed by the walker and
// the download scheduler.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// WalkConfig holds inventory traversal configuration
type WalkConfig struct {
	// Concurrency bounds concurrent folder/gallery listings. Folder listing
	// is cheap but still rate-limited, so this stays below download
	// concurrency.
	Concurrency    int           `yaml:"concurrency" json:"concurrency"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// DownloadConfig holds download scheduler configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// OutputConfig holds destination tree configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	ReportFile    string `yaml:"report_file" json:"report_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		SmugMug: SmugMugConfig{
			UserAgent: "smugvault/1.0",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    1 * time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Walk: WalkConfig{
			Concurrency:    2,
			RequestTimeout: 30 * time.Second,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			DownloadTimeout:     60 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: "./smugmug-export",
			ReportFile:    "export-report.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("SMUGVAULT_API_KEY"); v != "" {
		c.SmugMug.APIKey = v
	}
	if v := os.Getenv("SMUGVAULT_API_SECRET"); v != "" {
		c.SmugMug.APISecret = v
	}
	if v := os.Getenv("SMUGVAULT_ACCESS_TOKEN"); v != "" {
		c.SmugMug.AccessToken = v
	}
	if v := os.Getenv("SMUGVAULT_ACCESS_SECRET"); v != "" {
		c.SmugMug.AccessSecret = v
	}
	if v := os.Getenv("SMUGVAULT_NICKNAME"); v != "" {
		c.SmugMug.Nickname = v
	}
	if v := os.Getenv("SMUGVAULT_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("SMUGVAULT_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("SMUGVAULT_CONCURRENT_DOWNLOADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Download.ConcurrentDownloads = n
		}
	}
	if v := os.Getenv("SMUGVAULT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
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
	locations := []string{
		".smugvault.yaml",
		".smugvault.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "smugvault", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".smugvault.yaml"),
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

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}
	if c.Retry.Multiplier < 1.0 {
		errs = append(errs, errors.New("retry multiplier must be at least 1.0"))
	}
	if c.Walk.Concurrency <= 0 {
		errs = append(errs, errors.New("walk concurrency must be positive"))
	}
	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
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

// Save saves the configuration to a file
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

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if nickname, ok := flags["nickname"].(string); ok && nickname != "" {
		c.SmugMug.Nickname = nickname
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if walkers, ok := flags["walk-concurrency"].(int); ok && walkers > 0 {
		c.Walk.Concurrency = walkers
	}
	if timeout, ok := flags["download-timeout"].(int); ok && timeout > 0 {
		c.Download.DownloadTimeout = time.Duration(timeout) * time.Second
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".smugvault.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
