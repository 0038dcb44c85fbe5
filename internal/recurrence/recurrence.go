// Package recurrence computes the next due time of a repeating task.
//
// Rules are free-form strings classified against a fixed set of patterns,
// tested in order with the first match winning:
//
//  1. contains "daily"                     -> +1 day
//  2. contains "every 2 weeks"/"biweekly"  -> +14 days
//  3. contains "weekly" or starts "every week" -> +7 days
//  4. contains "monthly"                   -> +1 calendar month
//  5. "every <weekday>"                    -> next such weekday, 1..7 days ahead
//  6. anything else                        -> +7 days
//
// Monthly rules keep the day of month and clamp it to the last day of the
// target month, so Jan 31 becomes Feb 29 in a leap year (Feb 28 otherwise)
// rather than spilling into March.
//
// The wall-clock time of the previous due time is preserved in every
// branch.
package recurrence

import (
	"regexp"
	"strings"
	"time"
)

// Interval names the pattern a rule was classified as.
type Interval string

const (
	Daily    Interval = "daily"
	Biweekly Interval = "biweekly"
	Weekly   Interval = "weekly"
	Monthly  Interval = "monthly"
	Weekday  Interval = "weekday"
	Fallback Interval = "default"
)

var (
	everyWeekRe    = regexp.MustCompile(`^every\s+week`)
	everyWeekdayRe = regexp.MustCompile(`every\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)`)
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

// Classify returns the interval a rule matches. For Weekday rules the
// target weekday is returned as well.
func Classify(rule string) (Interval, time.Weekday) {
	s := strings.ToLower(strings.TrimSpace(rule))
	switch {
	case strings.Contains(s, "daily"):
		return Daily, 0
	case strings.Contains(s, "every 2 weeks"), strings.Contains(s, "biweekly"):
		return Biweekly, 0
	case strings.Contains(s, "weekly"), everyWeekRe.MatchString(s):
		return Weekly, 0
	case strings.Contains(s, "monthly"):
		return Monthly, 0
	}
	if m := everyWeekdayRe.FindStringSubmatch(s); m != nil {
		return Weekday, weekdays[m[1]]
	}
	return Fallback, 0
}

// Next returns the next due time after prev for rule.
func Next(prev time.Time, rule string) time.Time {
	interval, wd := Classify(rule)
	switch interval {
	case Daily:
		return prev.AddDate(0, 0, 1)
	case Biweekly:
		return prev.AddDate(0, 0, 14)
	case Monthly:
		return addMonthClamped(prev)
	case Weekday:
		diff := (int(wd) - int(prev.Weekday()) + 7) % 7
		if diff == 0 {
			diff = 7
		}
		return prev.AddDate(0, 0, diff)
	default:
		return prev.AddDate(0, 0, 7)
	}
}

func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfNext := time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
	last := daysIn(firstOfNext.Year(), firstOfNext.Month(), t.Location())
	if d > last {
		d = last
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
