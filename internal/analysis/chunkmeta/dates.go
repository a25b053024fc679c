package chunkmeta

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDate   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usDate    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	wordyDate = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2}),?\s+(\d{4})\b`)
)

// ExtractDate returns the earliest-positioned calendar date in text. ISO
// (2024-03-05), US numeric (03/05/2024) and long form (March 5, 2024) are
// recognized. Impossible dates such as 02/30/2024 are skipped.
func ExtractDate(text string) (time.Time, bool) {
	var (
		best    time.Time
		bestPos = -1
	)
	consider := func(pos int, t time.Time, ok bool) {
		if ok && (bestPos < 0 || pos < bestPos) {
			best, bestPos = t, pos
		}
	}

	for _, m := range isoDate.FindAllStringSubmatchIndex(text, -1) {
		t, ok := makeDate(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]])
		consider(m[0], t, ok)
	}
	for _, m := range usDate.FindAllStringSubmatchIndex(text, -1) {
		t, ok := makeDate(text[m[6]:m[7]], text[m[2]:m[3]], text[m[4]:m[5]])
		consider(m[0], t, ok)
	}
	for _, m := range wordyDate.FindAllStringSubmatchIndex(text, -1) {
		month := monthNumber(text[m[2]:m[3]])
		t, ok := makeDate(text[m[6]:m[7]], strconv.Itoa(month), text[m[4]:m[5]])
		consider(m[0], t, ok)
	}
	return best, bestPos >= 0
}

func makeDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if y < 1900 || y > 2200 || m < 1 || m > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; a changed day means the input was invalid.
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func monthNumber(name string) int {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), name) {
			return int(m)
		}
	}
	return 0
}
