// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"tico/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// WithTriggerTimes overrides the notifier trigger schedule.
func WithTriggerTimes(times ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifier.TriggerTimes = times
	}
}

// WithIgnoreCategories overrides the downloader ignore list.
func WithIgnoreCategories(categories ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Downloader.IgnoreCategories = categories
	}
}

// WithDaysChunkSize overrides the synchronizer gap chunk size.
func WithDaysChunkSize(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Synchronizer.DaysChunkSize = size
	}
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	cfg.Notifier.BotToken = "test-token"
	cfg.Notifier.ChannelID = "@test"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
