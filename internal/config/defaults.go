package config

// Default returns the built-in configuration. Paths keep their leading ~
// until normalize expands them against the home directory.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/tico",
			LogDir:  "~/.local/share/tico/logs",
		},
		Source: Source{
			APIBaseURL: "https://api.crhoy.net/",
			WebsiteURL: "https://www.crhoy.com/",
			Timezone:   "America/Costa_Rica",
			UserAgent:  "tico/1.0",
		},
		Synchronizer: Synchronizer{
			CheckUpdatesInterval: 300,
			DaysChunkSize:        5,
		},
		Downloader: Downloader{
			DownloadInterval:   60,
			DownloadsChunkSize: 10,
			RequestTimeout:     30,
			MaxRetries:         3,
		},
		LLM: LLM{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			TimeoutSeconds: 120,
			Basic: ModelRole{
				Model:              "google/gemini-2.0-flash-001",
				RequestLimit:       10,
				RequestLimitPeriod: 60,
			},
			Light: ModelRole{
				Model:              "google/gemini-2.0-flash-lite-001",
				RequestLimit:       15,
				RequestLimitPeriod: 60,
			},
			Supplementary: ModelRole{
				Model:              "google/gemini-2.0-flash-lite-001",
				RequestLimit:       15,
				RequestLimitPeriod: 60,
			},
		},
		Notifier: Notifier{
			TriggerTimes:          []string{"06:00", "12:00", "16:30"},
			WindowShift:           600,
			MaxInactivityInterval: 300,
			MaxRetries:            3,
			MessageDelay:          5,
			Languages:             []string{"ru"},
			PublishLanguage:       "ru",
			SentRetentionHours:    48,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
