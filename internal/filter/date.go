package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRegex   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	slashDateRegex = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})[/.](\d{2,4})`)

	// "3h", "2 d", "45 min", "3 hours ago"
	relativeEnRegex = regexp.MustCompile(`(?i)^(\d+)\s*(m|min|mins|minutes?|h|hr|hrs|hours?|d|days?|w|wks?|weeks?)(?:\s+ago)?$`)
	// "לפני 3 שעות", "לפני שעה", "לפני יומיים"
	relativeHeRegex = regexp.MustCompile(`^לפני\s+(?:(\d+)\s+)?(דקה|דקות|שעה|שעות|שעתיים|יום|ימים|יומיים|שבוע|שבועות|שבועיים)$`)
)

// futureSkew tolerates timezone differences between source and scraper.
const futureSkew = 2 * 24 * time.Hour

// ParsePostedAt reads the timestamp label a source shows next to a post. It
// understands ISO dates, dd/mm/yyyy, and relative labels in English and
// Hebrew. Unknown labels return nil.
func ParsePostedAt(label string, now time.Time) *time.Time {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	lower := strings.ToLower(label)

	switch lower {
	case "just now", "now", "עכשיו", "הרגע":
		return &now
	case "yesterday", "אתמול":
		t := now.Add(-24 * time.Hour)
		return &t
	}

	// Case 1: ISO format "2026-01-27" or 2026-01-27T...
	if isoDateRegex.MatchString(label) {
		if t, err := time.Parse(time.RFC3339, label); err == nil {
			return &t
		}
		if t, err := time.Parse("2006-01-02", label[:10]); err == nil {
			return &t
		}
	}

	// Case 2: dd/mm/yyyy
	if m := slashDateRegex.FindStringSubmatch(label); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			return &t
		}
		return nil
	}

	// Case 3: relative labels
	if m := relativeEnRegex.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		t := now.Add(-time.Duration(n) * englishUnit(m[2]))
		return &t
	}
	if m := relativeHeRegex.FindStringSubmatch(label); m != nil {
		n := 1
		if m[1] != "" {
			n, _ = strconv.Atoi(m[1])
		}
		unit, mult := hebrewUnit(m[2])
		t := now.Add(-time.Duration(n*mult) * unit)
		return &t
	}

	return nil
}

func englishUnit(u string) time.Duration {
	switch {
	case strings.HasPrefix(u, "m"):
		return time.Minute
	case strings.HasPrefix(u, "h"):
		return time.Hour
	case strings.HasPrefix(u, "d"):
		return 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// hebrewUnit returns the unit and a multiplier for the dual forms.
func hebrewUnit(u string) (time.Duration, int) {
	switch u {
	case "דקה", "דקות":
		return time.Minute, 1
	case "שעה", "שעות":
		return time.Hour, 1
	case "שעתיים":
		return time.Hour, 2
	case "יום", "ימים":
		return 24 * time.Hour, 1
	case "יומיים":
		return 24 * time.Hour, 2
	case "שבועיים":
		return 7 * 24 * time.Hour, 2
	default:
		return 7 * 24 * time.Hour, 1
	}
}

// IsRecentPost reports whether a post is at most maxAgeDays old. Posts
// with no date, and any post when maxAgeDays is 0, pass.
func IsRecentPost(postedAt *time.Time, maxAgeDays int, now time.Time) bool {
	if postedAt == nil || maxAgeDays <= 0 {
		return true
	}
	diff := now.Sub(*postedAt)

	// reject if older than the limit
	if diff > time.Duration(maxAgeDays)*24*time.Hour {
		return false
	}

	// reject if future date (timezone issues)
	if diff < -futureSkew {
		return false
	}
	return true
}
