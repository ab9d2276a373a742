// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	relativePattern = regexp.MustCompile(`^(\d+|an?|one)\s*(seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|wks?|w|months?|mos?|years?|yrs?|y)\.?\s+ago$`)
	clockPattern    = regexp.MustCompile(`^(today|y-day|yesterday)\s+(\d{1,2}):(\d{2})$`)
	monthDayYear    = regexp.MustCompile(`^(\d{2})-(\d{2})\s+(\d{4})$`)
	monthDayClock   = regexp.MustCompile(`^(\d{2})-(\d{2})\s+(\d{1,2}):(\d{2})$`)
	unixPattern     = regexp.MustCompile(`^\d{9,11}$`)
	ordinalSuffix   = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)
)

// ParseDate reads an absolute or relative upload date. Strings it cannot
// interpret return now rather than an error.
func ParseDate(s string, now time.Time) time.Time {
	orig := CleanText(s)
	s = strings.TrimPrefix(strings.ToLower(orig), "uploaded ")
	if s == "" {
		return now
	}

	switch s {
	case "now", "just now", "today":
		return now
	case "yesterday", "y-day":
		return now.AddDate(0, 0, -1)
	}

	if t, ok := parseRelative(s, now); ok {
		return t
	}
	if t, ok := parseSiteFormats(s, now); ok {
		return t
	}
	if unixPattern.MatchString(s) {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC()
		}
	}

	if t, err := dateparse.ParseIn(orig, time.UTC); err == nil {
		return t
	}
	// 1337x writes "Jan. 15th '23".
	alt := ordinalSuffix.ReplaceAllString(strings.ReplaceAll(orig, ".", ""), "$1")
	alt = strings.Replace(alt, " '", ", 20", 1)
	if t, err := dateparse.ParseIn(alt, time.UTC); err == nil {
		return t
	}
	return now
}

// parseRelative handles "3 days ago", "an hour ago", "5 mins ago".
func parseRelative(s string, now time.Time) (time.Time, bool) {
	m := relativePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n := 1
	if v, err := strconv.Atoi(m[1]); err == nil {
		n = v
	}

	switch unit := strings.TrimSuffix(m[2], "s"); {
	case unit == "" || strings.HasPrefix(unit, "sec"):
		return now.Add(-time.Duration(n) * time.Second), true
	case unit == "m" || strings.HasPrefix(unit, "min"):
		return now.Add(-time.Duration(n) * time.Minute), true
	case strings.HasPrefix(unit, "h"):
		return now.Add(-time.Duration(n) * time.Hour), true
	case unit == "d" || strings.HasPrefix(unit, "day"):
		return now.AddDate(0, 0, -n), true
	case strings.HasPrefix(unit, "w"):
		return now.AddDate(0, 0, -7*n), true
	case strings.HasPrefix(unit, "mo"):
		return now.AddDate(0, -n, 0), true
	case strings.HasPrefix(unit, "y"):
		return now.AddDate(-n, 0, 0), true
	}
	return time.Time{}, false
}

// parseSiteFormats handles the listing formats of The Pirate Bay:
// "Today 14:02", "Y-day 09:30", "03-15 2021" and "03-15 14:02".
func parseSiteFormats(s string, now time.Time) (time.Time, bool) {
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		day := now
		if m[1] != "today" {
			day = now.AddDate(0, 0, -1)
		}
		h, _ := strconv.Atoi(m[2])
		mi, _ := strconv.Atoi(m[3])
		return time.Date(day.Year(), day.Month(), day.Day(), h, mi, 0, 0, now.Location()), true
	}
	if m := monthDayYear.FindStringSubmatch(s); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return time.Time{}, false
		}
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), true
	}
	if m := monthDayClock.FindStringSubmatch(s); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		mi, _ := strconv.Atoi(m[4])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return time.Time{}, false
		}
		return time.Date(now.Year(), time.Month(mo), d, h, mi, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
