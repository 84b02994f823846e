package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultLogLevel    = "info"
	defaultHolidayURL  = "https://www.shuyz.com/githubfiles/china-holiday-calender/master/holidayCal.ics"
	defaultTimeoutSec  = 15
	defaultMaxRetries  = 3
	defaultPollSeconds = 30
	defaultInboxSize   = 64
)

// envFile is read by Load before PASTELCAL_* overrides are applied.
var envFile = ".env"

// HolidayConfig describes the public holiday feed.
type HolidayConfig struct {
	// URL is the ICS endpoint. Empty disables holiday import.
	URL string `yaml:"url" json:"url"`

	// ImportOnStart triggers one import when the server starts.
	ImportOnStart bool `yaml:"import_on_start" json:"import_on_start"`

	// Refresh is an optional cron-style schedule (e.g. "0 3 * * *") for
	// re-importing the feed. Empty means import only on start/manual request.
	Refresh string `yaml:"refresh" json:"refresh"`

	// TimeoutSeconds bounds each download attempt.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// MaxRetries is the number of retries after a failed attempt.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	DefaultTitle       string `yaml:"default_title" json:"default_title"`
	DefaultDescription string `yaml:"default_description" json:"default_description"`
}

// ReminderConfig tunes the reminder scheduler.
type ReminderConfig struct {
	// PollSeconds is how often pending reminders check the clock.
	PollSeconds int `yaml:"poll_seconds" json:"poll_seconds"`
	// InboxSize caps the fired notifications kept for clients.
	InboxSize int `yaml:"inbox_size" json:"inbox_size"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	Holiday  HolidayConfig  `yaml:"holiday" json:"holiday"`
	Reminder ReminderConfig `yaml:"reminder" json:"reminder"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		LogLevel: defaultLogLevel,
		Holiday: HolidayConfig{
			URL:            defaultHolidayURL,
			ImportOnStart:  true,
			TimeoutSeconds: defaultTimeoutSec,
			MaxRetries:     defaultMaxRetries,
		},
		Reminder: ReminderConfig{
			PollSeconds: defaultPollSeconds,
			InboxSize:   defaultInboxSize,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Holiday.TimeoutSeconds <= 0 {
		c.Holiday.TimeoutSeconds = defaultTimeoutSec
	}
	if c.Holiday.MaxRetries < 0 {
		c.Holiday.MaxRetries = 0
	}
	if c.Reminder.PollSeconds <= 0 {
		c.Reminder.PollSeconds = defaultPollSeconds
	}
	if c.Reminder.InboxSize <= 0 {
		c.Reminder.InboxSize = defaultInboxSize
	}
}

// HolidayTimeout returns the per-attempt download timeout.
func (c *Config) HolidayTimeout() time.Duration {
	return time.Duration(c.Holiday.TimeoutSeconds) * time.Second
}

// PollInterval returns the reminder polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Reminder.PollSeconds) * time.Second
}

// Load reads the YAML config at path, writing a default one on first run.
// A .env file, when present, is loaded into the environment before the
// PASTELCAL_* overrides are applied; a .env that fails to parse is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// applyEnv overrides fields from PASTELCAL_* variables.
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("PASTELCAL_LISTEN"); ok && v != "" {
		cfg.Listen = v
	}
	if v, ok := os.LookupEnv("PASTELCAL_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("PASTELCAL_HOLIDAY_URL"); ok {
		cfg.Holiday.URL = v
	}
	if v, ok := os.LookupEnv("PASTELCAL_HOLIDAY_REFRESH"); ok {
		cfg.Holiday.Refresh = v
	}
	if v, ok := os.LookupEnv("PASTELCAL_REMINDER_POLL_SECONDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PASTELCAL_REMINDER_POLL_SECONDS: %w", err)
		}
		cfg.Reminder.PollSeconds = n
	}
	return nil
}

// Save writes cfg to path as YAML, creating parent directories. The file is
// replaced atomically and is readable only by its owner.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("save config %s: %w", path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
