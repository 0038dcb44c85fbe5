// Package due turns a small set of date phrases into concrete times.
//
// Recognized phrases, case-insensitive and trimmed:
//
//	tomorrow           next calendar day at 09:00
//	next <weekday>     next such weekday strictly after today, at 09:00
//	3pm, 10:30am, 15:30  today at that time
//	2024-01-08T09:00:00Z, 2024-01-08 14:00, 01/08/2024, Jan 8, 2024, ...
//
// Anything else is unresolved. Unresolved is not an error: callers simply
// leave the due date unset.
package due

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultHour is the hour assigned to day-only relative phrases.
const DefaultHour = 9

var (
	nextWeekdayRe = regexp.MustCompile(`^next\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)$`)
	clock12Re     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	clock24Re     = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// absoluteLayouts are tried in order against the trimmed input.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006 3:04pm",
	"01/02/2006 3:04PM",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006 3:04pm",
	"Jan 2, 2006 3:04PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// Parse resolves phrase relative to now. The second value is false when
// the phrase is not recognized. Results use now's location.
func Parse(phrase string, now time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(phrase)
	s := strings.ToLower(raw)
	if s == "" {
		return time.Time{}, false
	}

	loc := now.Location()
	y, m, d := now.Date()

	if s == "tomorrow" {
		return time.Date(y, m, d+1, DefaultHour, 0, 0, 0, loc), true
	}
	if match := nextWeekdayRe.FindStringSubmatch(s); match != nil {
		diff := (int(weekdays[match[1]]) - int(now.Weekday()) + 7) % 7
		if diff == 0 {
			diff = 7
		}
		return time.Date(y, m, d+diff, DefaultHour, 0, 0, 0, loc), true
	}
	if hour, minute, ok := parseClock(s); ok {
		return time.Date(y, m, d, hour, minute, 0, 0, loc), true
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseClock reads "3pm", "10:30am" or "15:30". Minutes default to 0.
func parseClock(s string) (hour, minute int, ok bool) {
	if match := clock12Re.FindStringSubmatch(s); match != nil {
		hour, _ = strconv.Atoi(match[1])
		if match[2] != "" {
			minute, _ = strconv.Atoi(match[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
		if match[3] == "pm" {
			hour += 12
		}
		return hour, minute, true
	}
	if match := clock24Re.FindStringSubmatch(s); match != nil {
		hour, _ = strconv.Atoi(match[1])
		minute, _ = strconv.Atoi(match[2])
		if hour > 23 || minute > 59 {
			return 0, 0, false
		}
		return hour, minute, true
	}
	return 0, 0, false
}
