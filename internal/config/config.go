package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Database contains storage configuration.
type Database struct {
	Path string `toml:"path"`
}

// Source contains CRHoy endpoints and the source timezone.
type Source struct {
	APIBaseURL string `toml:"api_base_url"`
	WebsiteURL string `toml:"website_url"`
	Timezone   string `toml:"timezone"`
	UserAgent  string `toml:"user_agent"`
}

// Synchronizer contains daily-index coverage settings.
type Synchronizer struct {
	FirstDay             string `toml:"first_day"`
	CheckUpdatesInterval int    `toml:"check_updates_interval"`
	DaysChunkSize        int    `toml:"days_chunk_size"`
}

// Downloader contains article fetch settings.
type Downloader struct {
	DownloadInterval   int      `toml:"download_interval"`
	DownloadsChunkSize int      `toml:"downloads_chunk_size"`
	IgnoreCategories   []string `toml:"ignore_categories"`
	RequestTimeout     int      `toml:"request_timeout"`
	MaxRetries         int      `toml:"max_retries"`
}

// ModelRole configures one of the engine model roles (basic, light,
// supplementary) together with its request window.
type ModelRole struct {
	Model                 string `toml:"model"`
	RequestLimit          int    `toml:"request_limit"`
	RequestLimitPeriod    int    `toml:"request_limit_period"`
	RequiresSupplementary bool   `toml:"requires_supplementary"`
}

// LLM contains engine connection settings shared by all agents.
type LLM struct {
	BaseURL          string    `toml:"base_url"`
	APIKey           string    `toml:"api_key"`
	TimeoutSeconds   int       `toml:"timeout_seconds"`
	KeepRawResponses bool      `toml:"keep_raw_responses"`
	RawResponsesDir  string    `toml:"raw_responses_dir"`
	Basic            ModelRole `toml:"basic"`
	Light            ModelRole `toml:"light"`
	Supplementary    ModelRole `toml:"supplementary"`
}

// Notifier contains publication settings.
type Notifier struct {
	TriggerTimes          []string `toml:"trigger_times"`
	WindowShift           int      `toml:"window_shift"`
	MaxInactivityInterval int      `toml:"max_inactivity_interval"`
	BotToken              string   `toml:"bot_token"`
	ChannelID             string   `toml:"channel_id"`
	MaxRetries            int      `toml:"max_retries"`
	MessageDelay          int      `toml:"message_delay"`
	Languages             []string `toml:"languages"`
	PublishLanguage       string   `toml:"publish_language"`
	SentRetentionHours    int      `toml:"sent_retention_hours"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for the tico services.
type Config struct {
	Paths        Paths        `toml:"paths"`
	Database     Database     `toml:"database"`
	Source       Source       `toml:"source"`
	Synchronizer Synchronizer `toml:"synchronizer"`
	Downloader   Downloader   `toml:"downloader"`
	LLM          LLM          `toml:"llm"`
	Notifier     Notifier     `toml:"notifier"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tico/config.toml")
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. When path is
// empty the default location is tried; a missing file yields the defaults.
// The returned string is the path actually used ("" when defaults applied).
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		resolved = defaultPath
	}

	expanded, err := expandPath(resolved)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", expanded, err)
		}
	case errors.Is(err, fs.ErrNotExist) && strings.TrimSpace(path) == "":
		expanded = ""
	default:
		return nil, "", fmt.Errorf("read config %s: %w", expanded, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, expanded, nil
}

// Location returns the source timezone. Validate rejects unknown zones, so
// after Load this never falls back; hand-built configs get UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Source.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FirstDay returns the configured first day to synchronize, or zero when
// unset.
func (c *Config) FirstDay() (time.Time, error) {
	value := strings.TrimSpace(c.Synchronizer.FirstDay)
	if value == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, c.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("synchronizer.first_day: %w", err)
	}
	return day, nil
}

// DatabasePath returns the resolved SQLite database location.
func (c *Config) DatabasePath() string {
	if strings.TrimSpace(c.Database.Path) != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Paths.DataDir, "tico.db")
}

// EnsureDirectories creates the directories the services write into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.LogDir,
		filepath.Join(c.Paths.DataDir, "locks"),
		filepath.Join(c.Paths.DataDir, "metadata"),
		filepath.Join(c.Paths.DataDir, "news"),
	}
	if c.LLM.KeepRawResponses && c.LLM.RawResponsesDir != "" {
		dirs = append(dirs, c.LLM.RawResponsesDir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the flock path for the named service.
func (c *Config) LockPath(service string) string {
	return filepath.Join(c.Paths.DataDir, "locks", service+".lock")
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}
