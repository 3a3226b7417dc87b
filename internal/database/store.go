package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/faqchat/internal/text"
	"github.com/edgard/faqchat/internal/timeutil"
)

// Sentinel errors reported by ArchiveMessages. The archiver maps them to outcomes.
var (
	ErrArchiveRead   = errors.New("archive: reading old messages failed")
	ErrArchiveExport = errors.New("archive: export failed")
	ErrArchiveDelete = errors.New("archive: delete failed")
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 1000
	deleteBatchSize    = 500
)

// ExportFunc writes the selected rows somewhere durable and returns where.
// It runs while the archive transaction is open and must not use the Store.
type ExportFunc func(ctx context.Context, messages []*Message) (string, error)

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
// Times passed in are compared as wall clocks of the store's zone: UTC-labelled
// values are taken as naive wall clocks, zoned values are converted first.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// AppendMessage inserts one exchange with a server-assigned timestamp.
	AppendMessage(ctx context.Context, sessionID, userText, botText string) (*Message, error)

	// RecentMessages returns the newest messages across all sessions, newest first.
	RecentMessages(ctx context.Context, limit int) ([]*Message, error)

	// RecentMessagesForSession returns the newest messages of one session, oldest first.
	RecentMessagesForSession(ctx context.Context, sessionID string, limit int) ([]*Message, error)

	// SelectMessagesOlderThan returns every message created strictly before cutoff.
	SelectMessagesOlderThan(ctx context.Context, cutoff time.Time) ([]*Message, error)

	// DeleteMessagesOlderThan removes every message created strictly before cutoff.
	DeleteMessagesOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// RecordFAQ upserts the rollup row for userText.
	RecordFAQ(ctx context.Context, userText, botText string, ts time.Time) error

	// SaveExchange appends the message and records the FAQ entry in one transaction.
	SaveExchange(ctx context.Context, sessionID, userText, botText string) (*Message, error)

	// TopFAQs returns up to n rollup entries ordered by count, then recency.
	TopFAQs(ctx context.Context, n int) ([]*FAQEntry, error)

	// TopFAQsLive computes the same ranking directly from the message log.
	TopFAQsLive(ctx context.Context, n int) ([]*FAQEntry, error)

	// ArchiveMessages selects, exports and deletes messages older than cutoff
	// inside a single transaction.
	ArchiveMessages(ctx context.Context, cutoff time.Time, export ExportFunc) (ArchiveBatch, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db       *sqlx.DB
	clock    clockwork.Clock
	location *time.Location
	logger   *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// Timestamps are taken from clock in loc and stored without their zone.
func NewStore(db *sqlx.DB, clock clockwork.Clock, loc *time.Location, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &sqlxStore{
		db:       db,
		clock:    clock,
		location: loc,
		logger:   logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) now() time.Time {
	return timeutil.NaiveNow(s.clock, s.location)
}

func (s *sqlxStore) wallClock(t time.Time) time.Time {
	return timeutil.WallClock(t, s.location)
}

const insertMessageQuery = `
    INSERT INTO messages (session_id, user_text, bot_text, normalized_question, created_at)
    VALUES (:session_id, :user_text, :bot_text, :normalized_question, :created_at);
`

func insertMessage(ctx context.Context, ext sqlx.ExtContext, msg *Message) error {
	result, err := sqlx.NamedExecContext(ctx, ext, insertMessageQuery, msg)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted id: %w", err)
	}
	msg.ID = id
	return nil
}

const upsertFAQQuery = `
    INSERT INTO faq_entries (normalized_question, original_question, answer, question_count, last_seen_at)
    VALUES (?, ?, ?, 1, ?)
    ON CONFLICT(normalized_question) DO UPDATE SET
        question_count    = faq_entries.question_count + 1,
        original_question = excluded.original_question,
        answer            = excluded.answer,
        last_seen_at      = excluded.last_seen_at;
`

func upsertFAQ(ctx context.Context, ext sqlx.ExecerContext, userText, botText string, ts time.Time) error {
	_, err := ext.ExecContext(ctx, upsertFAQQuery, text.NormalizeQuestion(userText), userText, botText, ts)
	return err
}

func newMessage(sessionID, userText, botText string, ts time.Time) *Message {
	return &Message{
		SessionID:          sessionID,
		UserText:           userText,
		BotText:            botText,
		NormalizedQuestion: text.NormalizeQuestion(userText),
		CreatedAt:          ts,
	}
}

// AppendMessage inserts one immutable message row.
func (s *sqlxStore) AppendMessage(ctx context.Context, sessionID, userText, botText string) (*Message, error) {
	msg := newMessage(sessionID, userText, botText, s.now())
	if err := insertMessage(ctx, s.db, msg); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to save message (session %s): %w", sessionID, err)
	}
	s.logger.DebugContext(ctx, "Message saved", "session_id", sessionID, "message_id", msg.ID)
	return msg, nil
}

// RecordFAQ upserts the rollup row in a single statement, so concurrent
// writers on the same key cannot lose increments.
func (s *sqlxStore) RecordFAQ(ctx context.Context, userText, botText string, ts time.Time) error {
	if err := upsertFAQ(ctx, s.db, userText, botText, s.wallClock(ts)); err != nil {
		s.logger.ErrorContext(ctx, "Error recording FAQ entry", "error", err)
		return fmt.Errorf("failed to record faq entry: %w", err)
	}
	return nil
}

// SaveExchange writes the message and its FAQ rollup with the same timestamp.
func (s *sqlxStore) SaveExchange(ctx context.Context, sessionID, userText, botText string) (*Message, error) {
	msg := newMessage(sessionID, userText, botText, s.now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving exchange", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if err := insertMessage(ctx, tx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to save message (session %s): %w", sessionID, err)
	}
	if err := upsertFAQ(ctx, tx, userText, botText, msg.CreatedAt); err != nil {
		s.logger.ErrorContext(ctx, "Error recording FAQ entry", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to record faq entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Exchange saved", "session_id", sessionID, "message_id", msg.ID)
	return msg, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultRecentLimit
	case limit > maxRecentLimit:
		return maxRecentLimit
	default:
		return limit
	}
}

const messageColumns = `id, session_id, user_text, bot_text, normalized_question, created_at`

// RecentMessages returns the newest messages, newest first.
func (s *sqlxStore) RecentMessages(ctx context.Context, limit int) ([]*Message, error) {
	limit = clampLimit(limit)

	messages := []*Message{}
	query := `SELECT ` + messageColumns + ` FROM messages ORDER BY created_at DESC, id DESC LIMIT ?;`
	if err := s.db.SelectContext(ctx, &messages, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching recent messages", "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to fetch recent messages: %w", err)
	}
	return messages, nil
}

// RecentMessagesForSession returns the newest messages of one session in
// chronological order, ready to seed a conversation.
func (s *sqlxStore) RecentMessagesForSession(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	if sessionID == "" {
		return nil, errors.New("session_id cannot be empty")
	}
	limit = clampLimit(limit)

	messages := []*Message{}
	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE session_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?;`
	if err := s.db.SelectContext(ctx, &messages, query, sessionID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching session messages", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to fetch messages for session %s: %w", sessionID, err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

const selectOlderQuery = `SELECT ` + messageColumns + ` FROM messages WHERE created_at < ? ORDER BY id ASC;`

// SelectMessagesOlderThan returns messages created strictly before cutoff, oldest first.
func (s *sqlxStore) SelectMessagesOlderThan(ctx context.Context, cutoff time.Time) ([]*Message, error) {
	messages := []*Message{}
	if err := s.db.SelectContext(ctx, &messages, selectOlderQuery, s.wallClock(cutoff)); err != nil {
		s.logger.ErrorContext(ctx, "Error selecting old messages", "cutoff", cutoff, "error", err)
		return nil, fmt.Errorf("failed to select messages older than %s: %w", cutoff, err)
	}
	return messages, nil
}

// DeleteMessagesOlderThan removes messages created strictly before cutoff.
func (s *sqlxStore) DeleteMessagesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?;`, s.wallClock(cutoff))
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting old messages", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to delete messages older than %s: %w", cutoff, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted row count: %w", err)
	}
	s.logger.InfoContext(ctx, "Deleted old messages", "cutoff", cutoff, "count", affected)
	return affected, nil
}

// TopFAQs returns up to n rollup entries. Fewer than n rows are returned as-is.
func (s *sqlxStore) TopFAQs(ctx context.Context, n int) ([]*FAQEntry, error) {
	entries := []*FAQEntry{}
	if n <= 0 {
		return entries, nil
	}

	query := `
        SELECT id, normalized_question, original_question, answer, question_count, last_seen_at
        FROM faq_entries
        ORDER BY question_count DESC, last_seen_at DESC, id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &entries, query, n); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching top FAQs", "n", n, "error", err)
		return nil, fmt.Errorf("failed to fetch top faqs: %w", err)
	}
	return entries, nil
}

// The latest row per normalized question is picked with ROW_NUMBER and joined
// to the per-group count. Ties fall back to the first occurrence, matching the
// id order of the rollup table.
const topFAQsLiveQuery = `
    WITH ranked AS (
        SELECT lower(trim(normalized_question)) AS norm, user_text, bot_text,
               ROW_NUMBER() OVER (
                   PARTITION BY lower(trim(normalized_question))
                   ORDER BY created_at DESC, id DESC
               ) AS rn
        FROM messages
    ), grouped AS (
        SELECT lower(trim(normalized_question)) AS norm,
               COUNT(*) AS cnt, MAX(created_at) AS last_at, MIN(id) AS first_id
        FROM messages
        GROUP BY lower(trim(normalized_question))
    )
    SELECT g.first_id, r.norm, r.user_text, r.bot_text, g.cnt, g.last_at
    FROM ranked r
    JOIN grouped g ON g.norm = r.norm
    WHERE r.rn = 1
    ORDER BY g.cnt DESC, g.last_at DESC, g.first_id DESC
    LIMIT ?;
`

type liveFAQRow struct {
	FirstID  int64  `db:"first_id"`
	Norm     string `db:"norm"`
	UserText string `db:"user_text"`
	BotText  string `db:"bot_text"`
	Count    int64  `db:"cnt"`
	LastAt   string `db:"last_at"`
}

// TopFAQsLive aggregates the ranking straight from the message log.
func (s *sqlxStore) TopFAQsLive(ctx context.Context, n int) ([]*FAQEntry, error) {
	entries := []*FAQEntry{}
	if n <= 0 {
		return entries, nil
	}

	var rows []liveFAQRow
	if err := s.db.SelectContext(ctx, &rows, topFAQsLiveQuery, n); err != nil {
		s.logger.ErrorContext(ctx, "Error computing live FAQ ranking", "n", n, "error", err)
		return nil, fmt.Errorf("failed to compute live faq ranking: %w", err)
	}

	for _, row := range rows {
		lastSeen, err := timeutil.ParseSQLiteTime(row.LastAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_seen for %q: %w", row.Norm, err)
		}
		entries = append(entries, &FAQEntry{
			ID:                 row.FirstID,
			NormalizedQuestion: row.Norm,
			OriginalQuestion:   row.UserText,
			Answer:             row.BotText,
			QuestionCount:      row.Count,
			LastSeenAt:         lastSeen,
		})
	}
	return entries, nil
}

// ArchiveMessages runs Select, Export and Delete in one transaction. Only the
// selected ids are deleted; any mismatch or failure rolls everything back.
// When the delete step fails the returned batch still names the exported file.
func (s *sqlxStore) ArchiveMessages(ctx context.Context, cutoff time.Time, export ExportFunc) (ArchiveBatch, error) {
	var batch ArchiveBatch
	cutoff = s.wallClock(cutoff)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin archive transaction", "error", err)
		return batch, fmt.Errorf("%w: begin transaction: %w", ErrArchiveRead, err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back archive transaction", "error", rollbackErr)
			}
		}
	}()

	messages := []*Message{}
	if err := tx.SelectContext(ctx, &messages, selectOlderQuery, cutoff); err != nil {
		s.logger.ErrorContext(ctx, "Error selecting messages to archive", "cutoff", cutoff, "error", err)
		return batch, fmt.Errorf("%w: %w", ErrArchiveRead, err)
	}
	if len(messages) == 0 {
		return batch, nil
	}

	path, err := export(ctx, messages)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error exporting messages", "count", len(messages), "error", err)
		return batch, fmt.Errorf("%w: %w", ErrArchiveExport, err)
	}
	batch.Path = path

	ids := make([]int64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	var deleted int64
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))
		query, args, err := sqlx.In(`DELETE FROM messages WHERE id IN (?);`, ids[start:end])
		if err != nil {
			return batch, fmt.Errorf("%w: build delete: %w", ErrArchiveDelete, err)
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error deleting archived messages", "error", err)
			return batch, fmt.Errorf("%w: %w", ErrArchiveDelete, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return batch, fmt.Errorf("%w: rows affected: %w", ErrArchiveDelete, err)
		}
		deleted += affected
	}
	if deleted != int64(len(ids)) {
		s.logger.ErrorContext(ctx, "Archived row count mismatch", "selected", len(ids), "deleted", deleted)
		return batch, fmt.Errorf("%w: selected %d rows but deleted %d", ErrArchiveDelete, len(ids), deleted)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit archive transaction", "error", err)
		return batch, fmt.Errorf("%w: commit: %w", ErrArchiveDelete, err)
	}
	tx = nil

	batch.Count = len(messages)
	s.logger.InfoContext(ctx, "Archived messages", "count", batch.Count, "path", batch.Path)
	return batch, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Error running VACUUM", "error", err)
		return fmt.Errorf("failed to run database maintenance (VACUUM): %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully.")
	return nil
}
