package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable. It is called by Load; tests
// building configs by hand call it directly.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateSynchronizer(); err != nil {
		return err
	}
	if err := c.validateDownloader(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateNotifier(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if strings.TrimSpace(c.Source.APIBaseURL) == "" {
		return errors.New("source.api_base_url must be set")
	}
	if strings.TrimSpace(c.Source.WebsiteURL) == "" {
		return errors.New("source.website_url must be set")
	}
	if _, err := time.LoadLocation(c.Source.Timezone); err != nil {
		return fmt.Errorf("source.timezone: unknown zone %q", c.Source.Timezone)
	}
	return nil
}

func (c *Config) validateSynchronizer() error {
	if c.Synchronizer.CheckUpdatesInterval <= 0 {
		return errors.New("synchronizer.check_updates_interval must be positive")
	}
	if c.Synchronizer.DaysChunkSize <= 0 {
		return errors.New("synchronizer.days_chunk_size must be positive")
	}
	if _, err := c.FirstDay(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDownloader() error {
	if c.Downloader.DownloadInterval <= 0 {
		return errors.New("downloader.download_interval must be positive")
	}
	if c.Downloader.DownloadsChunkSize <= 0 {
		return errors.New("downloader.downloads_chunk_size must be positive")
	}
	if c.Downloader.RequestTimeout <= 0 {
		return errors.New("downloader.request_timeout must be positive")
	}
	if c.Downloader.MaxRetries < 0 {
		return errors.New("downloader.max_retries must not be negative")
	}
	return nil
}

func (c *Config) validateLLM() error {
	roles := []struct {
		name string
		role ModelRole
	}{
		{"llm.basic", c.LLM.Basic},
		{"llm.light", c.LLM.Light},
		{"llm.supplementary", c.LLM.Supplementary},
	}
	for _, r := range roles {
		if strings.TrimSpace(r.role.Model) == "" {
			return fmt.Errorf("%s.model must be set", r.name)
		}
		if r.role.RequestLimit <= 0 {
			return fmt.Errorf("%s.request_limit must be positive", r.name)
		}
		if r.role.RequestLimitPeriod <= 0 {
			return fmt.Errorf("%s.request_limit_period must be positive", r.name)
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifier() error {
	if len(c.Notifier.TriggerTimes) == 0 {
		return errors.New("notifier.trigger_times must list at least one HH:MM time")
	}
	for _, value := range c.Notifier.TriggerTimes {
		if _, err := time.Parse("15:04", value); err != nil {
			return fmt.Errorf("notifier.trigger_times: invalid time %q", value)
		}
	}
	if c.Notifier.WindowShift < 0 {
		return errors.New("notifier.window_shift must not be negative")
	}
	if c.Notifier.MaxInactivityInterval <= 0 {
		return errors.New("notifier.max_inactivity_interval must be positive")
	}
	if c.Notifier.MessageDelay < 0 {
		return errors.New("notifier.message_delay must not be negative")
	}
	if c.Notifier.SentRetentionHours <= 0 {
		return errors.New("notifier.sent_retention_hours must be positive")
	}
	for _, lang := range c.Notifier.Languages {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("notifier.languages: invalid language tag %q", lang)
		}
	}
	if c.Notifier.PublishLanguage == "" {
		return errors.New("notifier.publish_language must be set")
	}
	if _, err := language.Parse(c.Notifier.PublishLanguage); err != nil {
		return fmt.Errorf("notifier.publish_language: invalid language tag %q", c.Notifier.PublishLanguage)
	}
	return nil
}
