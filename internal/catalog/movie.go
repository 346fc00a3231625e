package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// SourceRef points at the original message in the private source channel.
// It is relayed, never shown to users.
type SourceRef struct {
	ChatID    int64
	MessageID int
}

func (r SourceRef) IsZero() bool {
	return r.ChatID == 0 || r.MessageID == 0
}

// MovieRecord is one catalog entry. SearchKey is always derived from Title
// via NormalizeTitle; the storage layer recomputes it on every write.
type MovieRecord struct {
	ID        int64
	Title     string
	SearchKey string
	Year      int // 0 when unknown
	Source    SourceRef
	AddedBy   int64
	CreatedAt time.Time
}

// Display renders the record for user-facing lists, e.g. "The Matrix (1999)".
func (m MovieRecord) Display() string {
	if m.Year > 0 {
		return fmt.Sprintf("%s (%d)", m.Title, m.Year)
	}
	return m.Title
}

// Plausible calendar years. The lower bound is the first year anything was
// filmed at all; the upper bound keeps far-future numbers in the title.
const (
	minYear = 1888
	maxYear = 2100
)

var parenYearRe = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)$`)

func plausibleYear(n int) bool {
	return n >= minYear && n <= maxYear
}

// ParseQuery splits free-form request text into a title and an optional
// year. Both "The Matrix (1999)" and "The Matrix 1999" forms are accepted;
// a 4-digit token that is not a plausible calendar year stays in the title.
func ParseQuery(text string) (string, int) {
	text = strings.TrimSpace(text)
	if m := parenYearRe.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[2]); err == nil && plausibleYear(y) {
			return strings.TrimSpace(m[1]), y
		}
	}
	fields := strings.Fields(text)
	if len(fields) >= 2 {
		last := fields[len(fields)-1]
		if len(last) == 4 {
			if y, err := strconv.Atoi(last); err == nil && plausibleYear(y) {
				return strings.Join(fields[:len(fields)-1], " "), y
			}
		}
	}
	return text, 0
}

// NormalizeTitle produces the search key for a title: case-folded,
// punctuation stripped, whitespace collapsed.
func NormalizeTitle(title string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, title)
	return strings.Join(strings.Fields(mapped), " ")
}
