package archive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/edgard/faqchat/internal/database"
)

// Header is the first row of every archive file.
var Header = []string{"id", "session_id", "user_text", "bot_text", "created_at"}

const utf8BOM = "\ufeff"

// WriteCSV writes messages to path as UTF-8 CSV with a byte order mark.
// The file is written under a temporary name, synced and then renamed, so a
// partially written archive never carries the final name. An existing file
// at path is an error.
func WriteCSV(path string, messages []*database.Message) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory %s: %w", dir, err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("archive file %s already exists", path)
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat archive file %s: %w", path, statErr)
	}

	tmp, err := os.CreateTemp(dir, ".archive-*.csv.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp archive file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("failed to write archive header: %w", err)
	}

	w := csv.NewWriter(tmp)
	if err = w.Write(Header); err != nil {
		return fmt.Errorf("failed to write archive header: %w", err)
	}
	for _, m := range messages {
		record := []string{
			strconv.FormatInt(m.ID, 10),
			m.SessionID,
			m.UserText,
			m.BotText,
			m.CreatedAt.Format(time.DateTime),
		}
		if err = w.Write(record); err != nil {
			return fmt.Errorf("failed to write archive row %d: %w", m.ID, err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("failed to flush archive: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}
