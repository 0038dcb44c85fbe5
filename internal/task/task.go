package task

import (
	"strings"
	"time"
)

// Category groups tasks by area of life.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryErrand   Category = "errand"
)

// Categories lists every accepted category in display order.
var Categories = []Category{CategoryWork, CategoryPersonal, CategoryErrand}

// ParseCategory maps a loosely formatted name to a Category.
// Unknown or empty names report false.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryWork:
		return CategoryWork, true
	case CategoryPersonal:
		return CategoryPersonal, true
	case CategoryErrand:
		return CategoryErrand, true
	}
	return "", false
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every accepted priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority maps a loosely formatted name to a Priority.
// Unknown or empty names report false.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	}
	return "", false
}

// Task is a single entry in the forest.
type Task struct {
	ID        int64      `json:"id" yaml:"id"`
	Text      string     `json:"text" yaml:"text"`
	Completed bool       `json:"completed" yaml:"completed"`
	CreatedAt time.Time  `json:"createdAt" yaml:"created_at"`
	DueAt     *time.Time `json:"dueAt,omitempty" yaml:"due_at,omitempty"`
	Category  Category   `json:"category,omitempty" yaml:"category,omitempty"`
	Priority  Priority   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Recurring string     `json:"recurring,omitempty" yaml:"recurring,omitempty"`
	Subtasks  []Task     `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
}

// ScheduledAt returns the due time, falling back to the creation time.
// It is the key used for sorting and calendar grouping.
func (t Task) ScheduledAt() time.Time {
	if t.DueAt != nil {
		return *t.DueAt
	}
	return t.CreatedAt
}

// Fields holds the optional attributes accepted when creating a task.
// Zero values mean "absent".
type Fields struct {
	DueAt     *time.Time
	Category  Category
	Priority  Priority
	Recurring string
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
