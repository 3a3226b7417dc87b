// Package text provides the question normalization used as the FAQ grouping key,
// rune-safe truncation helpers and a token-budget window over conversation history.
package text

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// TruncationMarker is appended to content cut down to a character budget.
const TruncationMarker = "...(truncated)"

// NormalizeQuestion case-folds s and collapses every run of Unicode whitespace into a
// single space, trimming both ends. The result is the FAQ grouping key.
//
// NormalizeQuestion is idempotent: NormalizeQuestion(NormalizeQuestion(s)) == NormalizeQuestion(s).
func NormalizeQuestion(s string) string {
	// cases.Caser keeps state between calls, so a fresh one is needed per call.
	folded := cases.Fold().String(s)
	return strings.Join(strings.Fields(folded), " ")
}

// Truncate returns at most maxRunes runes of s and reports whether anything was cut.
// A non-positive maxRunes returns s unchanged.
func Truncate(s string, maxRunes int) (string, bool) {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == maxRunes {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

// TruncateWithMarker cuts s to maxRunes runes and appends TruncationMarker when it was cut.
func TruncateWithMarker(s string, maxRunes int) string {
	out, cut := Truncate(s, maxRunes)
	if cut {
		return out + TruncationMarker
	}
	return out
}

// Ellipsize shortens s for display (button labels, previews), appending "…" when cut.
func Ellipsize(s string, maxRunes int) string {
	out, cut := Truncate(s, maxRunes)
	if cut {
		return out + "…"
	}
	return out
}
