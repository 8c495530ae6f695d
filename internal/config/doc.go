// Package config loads, validates, and defaults the TOML configuration
// shared by the three tico services.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Database: SQLite file location
//   - Source: CRHoy endpoints and the source timezone
//   - Synchronizer: index coverage intervals and gap chunking
//   - Downloader: article fetch intervals, chunk size, ignore list
//   - LLM: engine connection plus per-role model settings and rate limits
//   - Notifier: trigger times, Telegram credentials, message pacing
//   - Logging: log format and level
//
// Secrets (LLM API key, bot token) may be supplied via TICO_LLM_API_KEY and
// TICO_BOT_TOKEN instead of the config file.
package config
