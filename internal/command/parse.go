package command

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/nibzard/astrotask/internal/task"
)

// ActionType discriminates the four action shapes.
type ActionType string

const (
	ActionAdd      ActionType = "add"
	ActionEdit     ActionType = "edit"
	ActionDelete   ActionType = "delete"
	ActionSubtasks ActionType = "subtasks"
)

// Action is a validated, normalized action descriptor.
//
// Which fields are set depends on Type:
//   - add:      Task, optional Category, Priority, DueDate, Recurring
//   - edit:     From, To, optional Category, Priority, DueDate, Recurring
//   - delete:   Task
//   - subtasks: Parent, Subtasks
type Action struct {
	Type      ActionType    `json:"action" yaml:"action"`
	Task      string        `json:"task,omitempty" yaml:"task,omitempty"`
	From      string        `json:"from,omitempty" yaml:"from,omitempty"`
	To        string        `json:"to,omitempty" yaml:"to,omitempty"`
	Parent    string        `json:"parent,omitempty" yaml:"parent,omitempty"`
	Subtasks  []string      `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
	Category  task.Category `json:"category,omitempty" yaml:"category,omitempty"`
	Priority  task.Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueDate   string        `json:"dueDate,omitempty" yaml:"due_date,omitempty"`
	Recurring string        `json:"recurring,omitempty" yaml:"recurring,omitempty"`
}

// Source tells which stage of the parser produced a Result.
type Source string

const (
	SourceJSON     Source = "json"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// Result is the outcome of parsing one assistant message. Exactly one of
// Action and Reply is meaningful: when Action is nil the message is a plain
// conversational reply and Reply holds it unchanged.
type Result struct {
	Action *Action `yaml:"action,omitempty"`
	Reply  string  `yaml:"reply,omitempty"`
	Source Source  `yaml:"source"`
	// Rejected records why a decoded JSON object was not accepted.
	Rejected error `yaml:"-"`
}

// IsAction reports whether the result carries an action.
func (r Result) IsAction() bool {
	return r.Action != nil
}

var (
	fenceRe = regexp.MustCompile("(?i)```(?:json)?")
	addRe   = regexp.MustCompile(`(?i)\badd(?:\s+task)?\s+(?:"([^"\n]+)"|“([^”\n]+)”|'([^'\n]+)')`)
)

// ErrNotObject is recorded when the extracted span is valid JSON but not
// an object.
var ErrNotObject = errors.New("json value is not an object")

// Parse extracts an action from raw assistant text.
//
// The text is trimmed, code fences are stripped when it opens with one,
// and when it still does not start with "{" the span from the first "{"
// to the last "}" is used. That span is decoded strictly, normalized and
// validated against ActionSchema. If decoding fails, a quoted
// `add [task] "<text>"` phrase is accepted as an add action. Anything else
// is a plain reply.
func Parse(raw string) Result {
	reply := Result{Reply: raw, Source: SourceNone}

	span := extractSpan(raw)
	var decoded any
	if err := json.Unmarshal([]byte(span), &decoded); err != nil {
		if a, ok := fallbackAdd(raw); ok {
			return Result{Action: a, Source: SourceFallback}
		}
		return reply
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		reply.Rejected = ErrNotObject
		return reply
	}
	canon, err := normalize(obj)
	if err != nil {
		reply.Rejected = err
		return reply
	}
	if err := validate(canon); err != nil {
		reply.Rejected = err
		return reply
	}
	return Result{Action: fromCanonical(canon), Source: SourceJSON}
}

// extractSpan isolates the part of the text most likely to hold the JSON
// object.
func extractSpan(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
	}
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}

func fallbackAdd(text string) (*Action, bool) {
	m := addRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	var captured string
	for _, g := range m[1:] {
		if g != "" {
			captured = strings.TrimSpace(g)
			break
		}
	}
	if captured == "" {
		return nil, false
	}
	return &Action{
		Type:     ActionAdd,
		Task:     captured,
		Category: Classify(captured),
	}, true
}

func fromCanonical(obj map[string]any) *Action {
	str := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}
	a := &Action{
		Type:      ActionType(str("action")),
		Task:      str("task"),
		From:      str("from"),
		To:        str("to"),
		Parent:    str("parent"),
		Category:  task.Category(str("category")),
		Priority:  task.Priority(str("priority")),
		DueDate:   str("dueDate"),
		Recurring: str("recurring"),
	}
	if items, ok := obj["subtasks"].([]any); ok {
		for _, item := range items {
			if s, ok := item.(string); ok {
				a.Subtasks = append(a.Subtasks, s)
			}
		}
	}
	return a
}
