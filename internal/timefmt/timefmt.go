// Package timefmt is the wall-clock and date-formatting collaborator.
// Route templates and config express date patterns in the
// YYYY/MM/DD token style; this package translates them to Go layouts.
package timefmt

import (
	"strings"
	"time"
)

// DefaultDatePattern is the pattern used for the {date} builtin and
// fallback-route filenames.
const DefaultDatePattern = "YYYY-MM-DD"

// Clock abstracts the wall clock so tests can run under fixed time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant. Test helper.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

// patternReplacer maps date tokens to Go reference-layout fragments.
// Longer tokens come first so "YYYY" wins over "YY".
var patternReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"SSS", "000",
	"MM", "01",
	"DD", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
)

// TranslatePattern converts a token-style date pattern to a Go layout.
func TranslatePattern(pattern string) string {
	if pattern == "" {
		pattern = DefaultDatePattern
	}
	return patternReplacer.Replace(pattern)
}

// FormatDate renders t in the token-style pattern.
func FormatDate(t time.Time, pattern string) string {
	return t.Format(TranslatePattern(pattern))
}

// Timestamp renders t as the RFC3339 UTC string stamped on records.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// DayStamp renders t as the compact UTC day used in live filenames.
func DayStamp(t time.Time) string {
	return t.UTC().Format("20060102")
}
