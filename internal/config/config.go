// Package config loads, defaults and validates the faqchat configuration.
// Values come from config.yaml, then FAQCHAT_* environment variables (a .env
// file is loaded first when present).
package config

import (
	"errors"
	"time"
	_ "time/tzdata" // timezone validation must not depend on the host zoneinfo
)

// ErrValidation wraps every configuration validation failure.
var ErrValidation = errors.New("config validation error")

// Config is the root configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Timezone  string          `mapstructure:"timezone"  validate:"required,timezone"`
	FAQ       FAQConfig       `mapstructure:"faq"`
	Race      RaceConfig      `mapstructure:"race"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// FAQConfig controls the FAQ ranking.
type FAQConfig struct {
	Limit int    `mapstructure:"limit" validate:"min=1,max=20"`
	Mode  string `mapstructure:"mode"  validate:"oneof=rollup live"`
}

// RaceConfig tunes the dataset/model race.
type RaceConfig struct {
	DatasetTimeout time.Duration `mapstructure:"dataset_timeout" validate:"min=1ms,max=1m"`
	MaxResults     int           `mapstructure:"max_results"     validate:"min=1,max=10"`
}

// DatasetConfig locates the curated dataset.
type DatasetConfig struct {
	Path                string  `mapstructure:"path"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" validate:"gt=0,lte=1"`
}

// ArchiveConfig controls the archiver.
type ArchiveConfig struct {
	Dir             string `mapstructure:"dir"              validate:"required"`
	RetentionMonths int    `mapstructure:"retention_months" validate:"min=1,max=120"`
}

// IngestConfig limits file uploads.
type IngestConfig struct {
	MaxFileSizeMB int      `mapstructure:"max_file_size_mb" validate:"min=1,max=50"`
	MaxChars      int      `mapstructure:"max_chars"        validate:"min=100"`
	Extensions    []string `mapstructure:"extensions"       validate:"min=1,dive,oneof=pdf csv txt"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (c IngestConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

// LLMConfig selects the generative backend.
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=gemini openai"`
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"              validate:"required"`
	Temperature       float32       `mapstructure:"temperature"        validate:"min=0,max=2"`
	MaxRetries        int           `mapstructure:"max_retries"        validate:"min=0,max=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"        validate:"min=0,max=1m"`
	Timeout           time.Duration `mapstructure:"timeout"            validate:"min=1s,max=10m"`
	SystemInstruction string        `mapstructure:"system_instruction"`
}

// OpenAIConfig configures an OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"           validate:"omitempty,url"`
	Model             string        `mapstructure:"model"              validate:"required"`
	Temperature       float32       `mapstructure:"temperature"        validate:"min=0,max=2"`
	Timeout           time.Duration `mapstructure:"timeout"            validate:"min=1s,max=10m"`
	SystemInstruction string        `mapstructure:"system_instruction"`
}

// TelegramConfig configures the bot front-end.
type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"min=0"`
}

// ChatConfig bounds the per-session conversation.
type ChatConfig struct {
	HistoryTurns  int `mapstructure:"history_turns"  validate:"min=2,max=200"`
	HistoryTokens int `mapstructure:"history_tokens" validate:"min=0"`
}

// TaskConfig schedules one task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// SchedulerConfig lists the scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// MessagesConfig holds the user-facing strings.
type MessagesConfig struct {
	Welcome         string `mapstructure:"welcome"          validate:"required"`
	Help            string `mapstructure:"help"             validate:"required"`
	GenerationError string `mapstructure:"generation_error" validate:"required"`
	GeneralError    string `mapstructure:"general_error"    validate:"required"`
	NotAuthorized   string `mapstructure:"not_authorized"   validate:"required"`
	SaveFailed      string `mapstructure:"save_failed"      validate:"required"`
	FileAdded       string `mapstructure:"file_added"       validate:"required"`
	FileDuplicate   string `mapstructure:"file_duplicate"   validate:"required"`
	FilesEmpty      string `mapstructure:"files_empty"      validate:"required"`
	FilesHeader     string `mapstructure:"files_header"     validate:"required"`
	Cleared         string `mapstructure:"cleared"          validate:"required"`
	FAQHeader       string `mapstructure:"faq_header"       validate:"required"`
	FAQEmpty        string `mapstructure:"faq_empty"        validate:"required"`
	FAQExpired      string `mapstructure:"faq_expired"      validate:"required"`
	RecentHeader    string `mapstructure:"recent_header"    validate:"required"`
	RecentEmpty     string `mapstructure:"recent_empty"     validate:"required"`
	RecentHidden    string `mapstructure:"recent_hidden"    validate:"required"`
	RecentExpired   string `mapstructure:"recent_expired"   validate:"required"`
	ArchiveStarted  string `mapstructure:"archive_started"  validate:"required"`
}

// Location returns the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// IsAdmin reports whether userID may run admin commands.
func (c *Config) IsAdmin(userID int64) bool {
	return c.Telegram.AdminUserID != 0 && userID == c.Telegram.AdminUserID
}
