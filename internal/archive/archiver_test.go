package archive_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/faqchat/internal/archive"
	"github.com/edgard/faqchat/internal/database"
)

type fixture struct {
	store database.Store
	db    *sqlx.DB
	clock *clockwork.FakeClock
	dir   string
}

// newFixture seeds two messages in January and one at the end of August 2024.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	store := database.NewStore(db, clock, time.UTC, nil)

	_, err = store.SaveExchange(ctx, "s1", "Where is Hall A?", "First floor, \"east\" wing")
	require.NoError(t, err)
	_, err = store.SaveExchange(ctx, "s2", "parking?", "Yes,\nunderground")
	require.NoError(t, err)

	clock.Advance(time.Date(2024, 8, 31, 12, 0, 0, 0, time.UTC).Sub(clock.Now()))
	_, err = store.SaveExchange(ctx, "s1", "recent question", "recent answer")
	require.NoError(t, err)

	return &fixture{store: store, db: db, clock: clock, dir: t.TempDir()}
}

func (f *fixture) archiver(dir string) *archive.Archiver {
	return archive.New(f.store, archive.Config{Dir: dir, RetentionMonths: 6, Location: time.UTC}, f.clock, nil)
}

func (f *fixture) remaining(t *testing.T) int {
	t.Helper()
	msgs, err := f.store.RecentMessages(context.Background(), 100)
	require.NoError(t, err)
	return len(msgs)
}

func TestArchiver_Archived(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.archiver(f.dir)

	assert.Equal(t, time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), a.Cutoff())

	res := a.Run(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, archive.OutcomeArchived, res.Outcome)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, filepath.Join(f.dir, "archive_20240831_120000.csv"), res.File)
	assert.Equal(t, 0, res.ExitCode())
	assert.Equal(t, "Archived 2 messages to "+res.File+".", res.Status())
	assert.Equal(t, 1, f.remaining(t))

	raw, err := os.ReadFile(res.File)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "\ufeff"), "archive starts with a BOM")

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, archive.Header, records[0])
	assert.Equal(t, []string{"1", "s1", "Where is Hall A?", "First floor, \"east\" wing", "2024-01-15 10:00:00"}, records[1])
	assert.Equal(t, "Yes,\nunderground", records[2][3])

	faqs, err := f.store.TopFAQs(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, faqs, 3)
}

func TestArchiver_NothingToArchive(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first := f.archiver(f.dir).Run(context.Background())
	require.Equal(t, archive.OutcomeArchived, first.Outcome)

	f.clock.Advance(time.Second)
	res := f.archiver(f.dir).Run(context.Background())
	assert.Equal(t, archive.OutcomeNothingToArchive, res.Outcome)
	assert.Empty(t, res.File)
	assert.Equal(t, 0, res.ExitCode())
	assert.Contains(t, res.Status(), "Nothing to archive")

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no file written when nothing is archived")
}

func TestArchiver_ReadFailed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	blocker := filepath.Join(f.dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	res := f.archiver(blocker).Run(context.Background())
	assert.Equal(t, archive.OutcomeReadFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, database.ErrArchiveExport)
	assert.Equal(t, 1, res.ExitCode())
	assert.Contains(t, res.Status(), "nothing was deleted")
	assert.Equal(t, 3, f.remaining(t))
}

func TestArchiver_RolledBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.db.Exec(`CREATE TRIGGER block_delete BEFORE DELETE ON messages BEGIN SELECT RAISE(ABORT, 'blocked'); END;`)
	require.NoError(t, err)

	res := f.archiver(f.dir).Run(context.Background())
	assert.Equal(t, archive.OutcomeRolledBack, res.Outcome)
	assert.Equal(t, 2, res.ExitCode())
	assert.Contains(t, res.Status(), "all changes were reverted")
	assert.Contains(t, res.Status(), res.File)
	assert.FileExists(t, res.File)
	assert.Equal(t, 3, f.remaining(t))
}

type failingStore struct{}

func (failingStore) ArchiveMessages(context.Context, time.Time, database.ExportFunc) (database.ArchiveBatch, error) {
	return database.ArchiveBatch{}, errors.Join(database.ErrArchiveRead, errors.New("disk I/O error"))
}

func TestArchiver_SelectFailure(t *testing.T) {
	t.Parallel()

	res := archive.New(failingStore{}, archive.Config{}, clockwork.NewFakeClock(), nil).Run(context.Background())
	assert.Equal(t, archive.OutcomeReadFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, database.ErrArchiveRead)
}

func TestWriteCSV_RefusesToOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "archive.csv")
	require.NoError(t, archive.WriteCSV(path, nil))
	assert.Error(t, archive.WriteCSV(path, nil))
}
