package database

import (
	"time"
)

// Message is one immutable question/answer exchange in the message log.
// CreatedAt is a naive wall-clock value in the configured timezone, stored
// with a UTC label.
type Message struct {
	ID                 int64     `db:"id"`
	SessionID          string    `db:"session_id"`
	UserText           string    `db:"user_text"`
	BotText            string    `db:"bot_text"`
	NormalizedQuestion string    `db:"normalized_question"`
	CreatedAt          time.Time `db:"created_at"`
}

// FAQEntry is the rollup row kept per normalized question.
// Entries built from the curated dataset carry a QuestionCount of zero.
type FAQEntry struct {
	ID                 int64     `db:"id"`
	NormalizedQuestion string    `db:"normalized_question"`
	OriginalQuestion   string    `db:"original_question"`
	Answer             string    `db:"answer"`
	QuestionCount      int64     `db:"question_count"`
	LastSeenAt         time.Time `db:"last_seen_at"`
}

// ArchiveBatch describes what ArchiveMessages moved out of the log.
// Path is set as soon as the export succeeded, even if the delete then failed.
type ArchiveBatch struct {
	Count int
	Path  string
}
