// Package dates normalizes invoice date strings to ISO-8601.
package dates

import (
	"regexp"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

// Layouts are tried in order; US month/day precedes EU day/month for ambiguous numerics.
var layouts = []string{
	"2006-01-02",
	"2006/1/2",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2 January, 2006",
	"2 Jan, 2006",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"1.2.2006",
	"2.1.2006",
	"1/2/06",
	"2/1/06",
	"1-2-06",
	"2-1-06",
	"January 2, 06",
	"Jan 2, 06",
}

var (
	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	abbrevDot     = regexp.MustCompile(`\b([A-Za-z]{3,4})\.`)
	spaces        = regexp.MustCompile(`\s+`)
)

// Normalize returns the ISO-8601 form of raw and true, or raw unchanged and false
// when no known layout matches.
func Normalize(raw string) (string, bool) {
	t, ok := Parse(raw)
	if !ok {
		return strings.TrimSpace(raw), false
	}
	return t.Format(isoLayout), true
}

func Parse(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = abbrevDot.ReplaceAllString(s, "$1")
	s = strings.Replace(s, "Sept ", "Sep ", 1)
	s = strings.Replace(s, "sept ", "sep ", 1)
	s = spaces.ReplaceAllString(s, " ")
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
