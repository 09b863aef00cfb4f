// Package config loads gmailcli settings. Defaults are overridden by a YAML
// file, then by a .env file, then by GMAILCLI_* environment variables.
// Command-line flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teemow/gmailcli/internal/logging"
)

// Defaults.
const (
	DefaultAccount           = "default"
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 5
	DefaultConcurrency       = 4
	DefaultMaxRetries        = 4
	DefaultReadLimit         = 10
	DefaultBatchLimit        = 50
)

// Config holds the complete application configuration.
type Config struct {
	Account         string        `yaml:"account"`
	CredentialsFile string        `yaml:"credentials_file"`
	TokenDir        string        `yaml:"token_dir"`
	FullScope       bool          `yaml:"full_scope"`
	AttachmentDir   string        `yaml:"attachment_dir"`
	Logging         LoggingConfig `yaml:"logging"`
	Gmail           GmailConfig   `yaml:"gmail"`
	Metrics         MetricsConfig `yaml:"metrics"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GmailConfig holds the transport knobs of the Gmail client.
type GmailConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	Concurrency       int     `yaml:"concurrency"`
	MaxRetries        int     `yaml:"max_retries"`
	ReadLimit         int64   `yaml:"read_limit"`
	BatchLimit        int64   `yaml:"batch_limit"`
}

// MetricsConfig holds metrics output configuration.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Dir returns the gmailcli configuration directory.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".gmailcli"
	}
	return filepath.Join(dir, "gmailcli")
}

// DefaultPath returns the path of the configuration file read when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Account:         DefaultAccount,
		CredentialsFile: filepath.Join(Dir(), "credentials.json"),
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Gmail: GmailConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
			Concurrency:       DefaultConcurrency,
			MaxRetries:        DefaultMaxRetries,
			ReadLimit:         DefaultReadLimit,
			BatchLimit:        DefaultBatchLimit,
		},
	}
}

// Load builds the configuration. An empty path reads DefaultPath if it
// exists; an explicit path must exist. dotenv files are loaded into the
// process environment without overriding variables that are already set;
// missing dotenv files are ignored.
func Load(path string, dotenv ...string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := loadDotEnv(dotenv); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the configuration for values the client cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Account == "" {
		errs = append(errs, errors.New("account must not be empty"))
	}
	if c.Logging.Format != logging.FormatText && c.Logging.Format != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("invalid log format %q, must be one of: text, json", c.Logging.Format))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Gmail.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("gmail.requests_per_second must not be negative"))
	}
	if c.Gmail.Burst < 0 {
		errs = append(errs, errors.New("gmail.burst must not be negative"))
	}
	if c.Gmail.Concurrency < 1 {
		errs = append(errs, errors.New("gmail.concurrency must be at least 1"))
	}
	if c.Gmail.MaxRetries < 1 {
		errs = append(errs, errors.New("gmail.max_retries must be at least 1"))
	}
	if c.Gmail.ReadLimit < 1 {
		errs = append(errs, errors.New("gmail.read_limit must be at least 1"))
	}
	if c.Gmail.BatchLimit < 1 {
		errs = append(errs, errors.New("gmail.batch_limit must be at least 1"))
	}
	return errors.Join(errs...)
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	setString("GMAILCLI_ACCOUNT", &c.Account)
	setString("GMAILCLI_CREDENTIALS_FILE", &c.CredentialsFile)
	setString("GMAILCLI_TOKEN_DIR", &c.TokenDir)
	setBool("GMAILCLI_FULL_SCOPE", &c.FullScope)
	setString("GMAILCLI_ATTACHMENT_DIR", &c.AttachmentDir)

	setString("GMAILCLI_LOG_LEVEL", &c.Logging.Level)
	setString("GMAILCLI_LOG_FORMAT", &c.Logging.Format)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)

	if v := os.Getenv("GMAILCLI_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid GMAILCLI_REQUESTS_PER_SECOND: %w", err))
		} else {
			c.Gmail.RequestsPerSecond = rps
		}
	}
	setInt("GMAILCLI_BURST", &c.Gmail.Burst)
	setInt("GMAILCLI_CONCURRENCY", &c.Gmail.Concurrency)
	setInt("GMAILCLI_MAX_RETRIES", &c.Gmail.MaxRetries)
	setInt64("GMAILCLI_READ_LIMIT", &c.Gmail.ReadLimit)
	setInt64("GMAILCLI_BATCH_LIMIT", &c.Gmail.BatchLimit)

	setString("GMAILCLI_METRICS_TEXTFILE", &c.Metrics.Textfile)

	return errors.Join(errs...)
}
