package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/nibzard/astrotask/internal/task"
)

// RenderTaskList draws the forest with 1-based positions matching the
// slash commands, completion marks, subtask progress, due dates and tags.
// styled is false for plain output.
func RenderTaskList(roots []task.Task, loc *time.Location, styled bool) string {
	var all []task.Task
	var collect func(ts []task.Task)
	collect = func(ts []task.Task) {
		for _, t := range ts {
			all = append(all, t)
			collect(t.Subtasks)
		}
	}
	collect(roots)
	st := task.Count(all)

	var b strings.Builder
	header := fmt.Sprintf("Cosmic Tasks  %d total · %d done · %d left", st.Total, st.Completed, st.Remaining)
	if styled {
		header = titleStyle.Render(header)
	}
	b.WriteString(header + "\n\n")
	if st.Total == 0 {
		line := "No tasks yet. Ask me to add one."
		if styled {
			line = mutedStyle.Render(line)
		}
		b.WriteString(line + "\n")
		return b.String()
	}

	n := 0
	var write func(ts []task.Task, depth int)
	write = func(ts []task.Task, depth int) {
		for _, t := range ts {
			n++
			b.WriteString(taskLine(n, t, depth, loc, styled))
			b.WriteString("\n")
			write(t.Subtasks, depth+1)
		}
	}
	write(roots, 0)
	return b.String()
}

func taskLine(n int, t task.Task, depth int, loc *time.Location, styled bool) string {
	mark := "[ ]"
	if t.Completed {
		mark = "[x]"
	}
	text := t.Text
	if styled && t.Completed {
		text = doneStyle.Render(text)
	}

	parts := []string{fmt.Sprintf("%s%2d. %s %s", strings.Repeat("  ", depth), n, mark, text)}
	if done, total := task.ProgressOf(t); total > 0 {
		parts = append(parts, fmt.Sprintf("(%d/%d)", done, total))
	}

	var tags []string
	if t.DueAt != nil {
		tags = append(tags, "due "+formatDue(*t.DueAt, loc))
	}
	if t.Category != "" {
		tags = append(tags, "#"+string(t.Category))
	}
	if t.Recurring != "" {
		tags = append(tags, "↻ "+t.Recurring)
	}
	if len(tags) > 0 {
		tagText := strings.Join(tags, " ")
		if styled {
			tagText = tagStyle.Render(tagText)
		}
		parts = append(parts, tagText)
	}
	if t.Priority != "" {
		prio := "!" + string(t.Priority)
		if styled && t.Priority == task.PriorityHigh {
			prio = highStyle.Render(prio)
		} else if styled {
			prio = mutedStyle.Render(prio)
		}
		parts = append(parts, prio)
	}
	return strings.Join(parts, " ")
}
