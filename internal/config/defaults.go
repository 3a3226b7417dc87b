package config

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("database.path", "chat_history.db")
	v.SetDefault("timezone", "Asia/Seoul")

	v.SetDefault("faq.limit", 5)
	v.SetDefault("faq.mode", "rollup")

	v.SetDefault("race.dataset_timeout", 2*time.Second)
	v.SetDefault("race.max_results", 3)

	v.SetDefault("dataset.path", "")
	v.SetDefault("dataset.similarity_threshold", 0.5)

	v.SetDefault("archive.dir", "archives")
	v.SetDefault("archive.retention_months", 6)

	v.SetDefault("ingest.max_file_size_mb", 10)
	v.SetDefault("ingest.max_chars", 2000)
	v.SetDefault("ingest.extensions", []string{"pdf", "csv", "txt"})

	v.SetDefault("llm.provider", "gemini")

	// Secrets carry empty defaults so AutomaticEnv can see their keys.
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.system_instruction", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay", 2*time.Second)
	v.SetDefault("gemini.timeout", 2*time.Minute)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.system_instruction", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 1.0)
	v.SetDefault("openai.timeout", 2*time.Minute)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)

	v.SetDefault("chat.history_turns", 20)
	v.SetDefault("chat.history_tokens", 8000)

	v.SetDefault("scheduler.tasks.archive.enabled", true)
	v.SetDefault("scheduler.tasks.archive.schedule", "0 0 3 1 * *")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 4 * * 0")

	v.SetDefault("messages.welcome", "👋 Welcome to the BEXCO assistant! Ask me anything about the venue, or upload a PDF, CSV or TXT file and ask about it.")
	v.SetDefault("messages.help", "Send a question as a normal message.\n/faq - popular questions\n/recent - show or hide the latest questions asked\n/files - uploaded files\n/clear - forget files and conversation\n/archive - archive old messages (admin)")
	v.SetDefault("messages.generation_error", "Sorry, an error occurred while generating the answer: %v")
	v.SetDefault("messages.general_error", "❌ An error occurred. Please try again later.")
	v.SetDefault("messages.not_authorized", "🚫 You are not authorized to use this command.")
	v.SetDefault("messages.save_failed", "⚠️ The answer could not be saved to the history.")
	v.SetDefault("messages.file_added", "📎 %s added. Ask me anything about it.")
	v.SetDefault("messages.file_duplicate", "ℹ️ This file was already uploaded as %s.")
	v.SetDefault("messages.files_empty", "No files uploaded yet.")
	v.SetDefault("messages.files_header", "Uploaded files:")
	v.SetDefault("messages.cleared", "🔄 Files and conversation have been cleared.")
	v.SetDefault("messages.faq_header", "🔥 Popular questions:")
	v.SetDefault("messages.faq_empty", "No questions have been asked yet.")
	v.SetDefault("messages.faq_expired", "This list is outdated, please send /faq again.")
	v.SetDefault("messages.recent_header", "🕘 Recent questions:")
	v.SetDefault("messages.recent_empty", "The history is empty.")
	v.SetDefault("messages.recent_hidden", "Recent questions will no longer be shown after answers.")
	v.SetDefault("messages.recent_expired", "This list is outdated, please send /recent again.")
	v.SetDefault("messages.archive_started", "⏳ Archiving old messages...")
}
