package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nibzard/astrotask/internal/task"
)

// actionKeys are the accepted names of the discriminator field.
var actionKeys = []string{"action", "type", "intent", "command"}

var actionAliases = map[string]ActionType{
	"add":        ActionAdd,
	"create":     ActionAdd,
	"new":        ActionAdd,
	"add_task":   ActionAdd,
	"addtask":    ActionAdd,
	"edit":       ActionEdit,
	"update":     ActionEdit,
	"rename":     ActionEdit,
	"modify":     ActionEdit,
	"change":     ActionEdit,
	"delete":     ActionDelete,
	"remove":     ActionDelete,
	"del":        ActionDelete,
	"subtasks":   ActionSubtasks,
	"subtask":    ActionSubtasks,
	"breakdown":  ActionSubtasks,
	"break_down": ActionSubtasks,
	"split":      ActionSubtasks,
}

// field aliases, canonical name first. Keys are matched case-insensitively.
var (
	taskKeys      = []string{"task", "text", "title", "name"}
	fromKeys      = []string{"from", "original", "old", "oldtext", "old_text", "target", "task"}
	toKeys        = []string{"to", "new", "newtext", "new_text", "text"}
	parentKeys    = []string{"parent", "parenttask", "parent_task", "main", "task"}
	subtaskKeys   = []string{"subtasks", "steps", "items", "children"}
	categoryKeys  = []string{"category", "list"}
	priorityKeys  = []string{"priority", "prio", "importance"}
	dueDateKeys   = []string{"duedate", "due_date", "due", "dueat", "due_at", "date", "when", "deadline"}
	recurringKeys = []string{"recurring", "recurrence", "repeat", "repeats"}
)

// normalize maps a decoded object with aliased keys and values onto the
// canonical field names used by ActionSchema. Unknown enum values are
// dropped; unknown fields are ignored.
func normalize(raw map[string]any) (map[string]any, error) {
	fields := foldKeys(raw)

	name := strings.ToLower(firstString(fields, actionKeys))
	name = strings.ReplaceAll(name, "-", "_")
	kind, ok := actionAliases[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}

	out := map[string]any{"action": string(kind)}
	setString := func(canonical string, keys []string) {
		if v := firstString(fields, keys); v != "" {
			out[canonical] = v
		}
	}
	setEnums := func() {
		if c, ok := task.ParseCategory(firstString(fields, categoryKeys)); ok {
			out["category"] = string(c)
		}
		if p, ok := task.ParsePriority(firstString(fields, priorityKeys)); ok {
			out["priority"] = string(p)
		}
		setString("dueDate", dueDateKeys)
		setString("recurring", recurringKeys)
	}

	switch kind {
	case ActionAdd:
		setString("task", taskKeys)
		setEnums()
	case ActionEdit:
		setString("from", fromKeys)
		setString("to", toKeys)
		setEnums()
	case ActionDelete:
		setString("task", taskKeys)
	case ActionSubtasks:
		setString("parent", parentKeys)
		if items := firstList(fields, subtaskKeys); len(items) > 0 {
			out["subtasks"] = items
		}
	}
	return out, nil
}

// foldKeys lowercases and trims keys. When several keys fold to the same
// name, a key already in folded form wins, then the first in sorted order.
func foldKeys(raw map[string]any) map[string]any {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(map[string]any, len(raw))
	for _, exact := range []bool{true, false} {
		for _, k := range keys {
			key := strings.ToLower(strings.TrimSpace(k))
			if (key == k) != exact {
				continue
			}
			if _, dup := fields[key]; !dup {
				fields[key] = raw[k]
			}
		}
	}
	return fields
}

// firstString returns the first non-blank string value under keys, trimmed.
func firstString(fields map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstList returns the non-blank string items of the first list under keys.
func firstList(fields map[string]any, keys []string) []any {
	for _, k := range keys {
		list, ok := fields[k].([]any)
		if !ok {
			continue
		}
		items := make([]any, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					items = append(items, s)
				}
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}
