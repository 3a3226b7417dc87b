// Package timeutil holds the wall-clock helpers shared by the message log and the archiver.
//
// Timestamps are taken in the configured zone, truncated to whole seconds and then
// relabelled as UTC so that the stored text sorts the same way the wall clock does.
package timeutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// StampLayout is the layout used in archive file names.
const StampLayout = "20060102_150405"

// NaiveNow returns the current wall clock in loc, stripped of its zone.
func NaiveNow(clock clockwork.Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Naive(clock.Now().In(loc))
}

// Naive relabels t as UTC without changing its wall-clock reading.
func Naive(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// WallClock returns t as a naive wall clock in loc. Times labelled UTC are
// taken to be naive already and only truncated; any other zone is converted
// to loc first.
func WallClock(t time.Time, loc *time.Location) time.Time {
	if loc != nil && t.Location() != time.UTC {
		t = t.In(loc)
	}
	return Naive(t)
}

// SubtractMonths moves t back by the given number of calendar months.
// The day of month is clamped to the last day of the target month, so
// 31 August minus six months is 28 (or 29) February.
func SubtractMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Stamp formats t for archive file names.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

var sqliteLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339Nano,
}

// ParseSQLiteTime parses the text forms SQLite hands back for DATETIME
// values once the declared column type is lost (aggregates, window functions).
func ParseSQLiteTime(s string) (time.Time, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	for _, layout := range sqliteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized sqlite time %q", s)
}
