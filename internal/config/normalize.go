package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment overrides for secrets so they never need to live in the file.
const (
	envLLMAPIKey = "TICO_LLM_API_KEY"
	envBotToken  = "TICO_BOT_TOKEN"
)

// normalize expands paths, applies env secret overrides, and fills values
// derived from other settings.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Database.Path) != "" {
		if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
			return err
		}
	}

	if key := strings.TrimSpace(os.Getenv(envLLMAPIKey)); key != "" {
		c.LLM.APIKey = key
	}
	if token := strings.TrimSpace(os.Getenv(envBotToken)); token != "" {
		c.Notifier.BotToken = token
	}

	if c.LLM.KeepRawResponses && strings.TrimSpace(c.LLM.RawResponsesDir) == "" {
		c.LLM.RawResponsesDir = filepath.Join(c.Paths.DataDir, "raw")
	}
	if strings.TrimSpace(c.LLM.RawResponsesDir) != "" {
		if c.LLM.RawResponsesDir, err = expandPath(c.LLM.RawResponsesDir); err != nil {
			return err
		}
	}

	c.Downloader.IgnoreCategories = trimNonEmpty(c.Downloader.IgnoreCategories)
	c.Notifier.TriggerTimes = trimNonEmpty(c.Notifier.TriggerTimes)
	c.Notifier.Languages = trimNonEmpty(c.Notifier.Languages)
	c.Notifier.PublishLanguage = strings.TrimSpace(c.Notifier.PublishLanguage)

	if !strings.HasSuffix(c.Source.APIBaseURL, "/") {
		c.Source.APIBaseURL += "/"
	}
	if !strings.HasSuffix(c.Source.WebsiteURL, "/") {
		c.Source.WebsiteURL += "/"
	}
	return nil
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
