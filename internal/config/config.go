// Package config manages application configuration from default values,
// an optional config.yaml file, and BOT_* environment variables.
package config

import (
	"time"
)

// Config defines the application configuration for all components of the
// check-in bot: logging, HTTP server, LINE credentials, Gemini settings,
// database, scheduler, and user-facing messages.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Line      LineConfig      `mapstructure:"line"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`

	// Timezone is the reference time zone used to compute log dates and to
	// schedule the nightly job, independent of server locale.
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// LogConfig controls log level and output format.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds settings for the webhook HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// LineConfig holds LINE Messaging API credentials.
type LineConfig struct {
	ChannelSecret string `mapstructure:"channel_secret" validate:"required"`
	ChannelToken  string `mapstructure:"channel_token"  validate:"required"`
}

// GeminiConfig holds Gemini API settings. Models lists candidate model names
// in priority order; the gateway falls through the list on quota exhaustion.
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key" validate:"required"`
	Models  []string      `mapstructure:"models"  validate:"required,min=1"`
	MaxWait time.Duration `mapstructure:"max_wait"`
}

// DatabaseConfig holds settings for the SQLite store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds the user-facing message texts. The quota fallback
// entries are format strings taking the wait estimate (e.g. "36秒").
type MessagesConfig struct {
	DailyQuestion        string `mapstructure:"daily_question"         validate:"required"`
	NoUserID             string `mapstructure:"no_user_id"             validate:"required"`
	ReportQuotaFallback  string `mapstructure:"report_quota_fallback"  validate:"required"`
	ProfileQuotaFallback string `mapstructure:"profile_quota_fallback" validate:"required"`
	WaitShortly          string `mapstructure:"wait_shortly"           validate:"required"`
}

// Location resolves the configured reference time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
