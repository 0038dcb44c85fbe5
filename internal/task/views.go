package task

import (
	"time"
)

// Stats summarizes completion across a set of tasks.
type Stats struct {
	Total     int `json:"total" yaml:"total"`
	Completed int `json:"completed" yaml:"completed"`
	Remaining int `json:"remaining" yaml:"remaining"`
}

// Count computes Stats over tasks. Pass a flattened list to include subtasks.
func Count(tasks []Task) Stats {
	var st Stats
	for _, t := range tasks {
		st.Total++
		if t.Completed {
			st.Completed++
		}
	}
	st.Remaining = st.Total - st.Completed
	return st
}

// DayLayout is the format of calendar day keys.
const DayLayout = "2006-01-02"

// DayKey returns the calendar day of t in loc. A nil loc means time.Local.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// GroupByDay buckets tasks by the calendar day of ScheduledAt, preserving
// input order inside each bucket.
func GroupByDay(tasks []Task, loc *time.Location) map[string][]Task {
	out := make(map[string][]Task)
	for _, t := range tasks {
		key := DayKey(t.ScheduledAt(), loc)
		out[key] = append(out[key], t)
	}
	return out
}

// TasksOn returns the tasks scheduled on the calendar day containing day.
func TasksOn(tasks []Task, day time.Time, loc *time.Location) []Task {
	return GroupByDay(tasks, loc)[DayKey(day, loc)]
}

// ProgressOf counts completed direct subtasks of t.
func ProgressOf(t Task) (done, total int) {
	for _, st := range t.Subtasks {
		total++
		if st.Completed {
			done++
		}
	}
	return done, total
}
