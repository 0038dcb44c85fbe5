package ui

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nibzard/astrotask/internal/dispatch"
	"github.com/nibzard/astrotask/internal/due"
	"github.com/nibzard/astrotask/internal/session"
	"github.com/nibzard/astrotask/internal/task"
)

var errNoTask = errors.New("no task at that position")

// slashCommand acts on the store directly, bypassing the assistant.
type slashCommand struct {
	usage string
	help  string
	run   func(sess *session.Session, args string) string
}

var slashCommands = map[string]slashCommand{
	"done":   {"/done <n>", "toggle completion of task n", cmdDone},
	"rm":     {"/rm <n>", "delete task n and its subtasks", cmdRemove},
	"sub":    {"/sub <n> <text>", "add a subtask under task n", cmdSub},
	"due":    {"/due <n> <phrase|none>", "set or clear the due date", cmdDue},
	"prio":   {"/prio <n> <low|medium|high|none>", "set or clear the priority", cmdPrio},
	"repeat": {"/repeat <n> <rule|none>", "set or clear the recurrence rule", cmdRepeat},
	"tasks":  {"/tasks", "print the task forest as YAML", cmdTasks},
}

// The help entry is registered in init because cmdHelp reads slashCommands,
// which would otherwise be an initialization cycle.
func init() {
	slashCommands["help"] = slashCommand{"/help", "show this list", cmdHelp}
}

// RunSlash executes line when it is a slash command. handled is false for
// anything that should go to the assistant instead.
func RunSlash(sess *session.Session, line string) (reply string, handled bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", false
	}
	name, args, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	cmd, ok := slashCommands[strings.ToLower(name)]
	if !ok {
		return fmt.Sprintf("Unknown command %q. Try /help.", "/"+name), true
	}
	return cmd.run(sess, strings.TrimSpace(args)), true
}

// SlashHelp lists the slash commands.
func SlashHelp() string {
	names := make([]string, 0, len(slashCommands))
	for name := range slashCommands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Commands (n is the number shown in the task list):\n")
	for _, name := range names {
		cmd := slashCommands[name]
		fmt.Fprintf(&b, "  %-34s %s\n", cmd.usage, cmd.help)
	}
	return strings.TrimRight(b.String(), "\n")
}

func cmdHelp(*session.Session, string) string {
	return SlashHelp()
}

func cmdTasks(sess *session.Session, _ string) string {
	var roots []task.Task
	sess.View(func(store *task.Store) { roots = store.Roots() })
	if len(roots) == 0 {
		return "No tasks yet."
	}
	out, err := yaml.Marshal(roots)
	if err != nil {
		return fmt.Sprintf("Could not render tasks: %v", err)
	}
	return strings.TrimRight(string(out), "\n")
}

func cmdDone(sess *session.Session, args string) string {
	return withTask(sess, args, "/done <n>", func(store *task.Store, t task.Task, _ string) string {
		updated, spawned, _ := store.Toggle(t.ID)
		if !updated.Completed {
			return fmt.Sprintf("↩️ Reopened %q.", updated.Text)
		}
		msg := fmt.Sprintf("✅ Completed %q.", updated.Text)
		if spawned != nil && spawned.DueAt != nil {
			msg += fmt.Sprintf(" Next one is due %s.", spawned.DueAt.In(sess.Location()).Format(dispatch.DueLayout))
		}
		return msg
	})
}

func cmdRemove(sess *session.Session, args string) string {
	return withTask(sess, args, "/rm <n>", func(store *task.Store, t task.Task, _ string) string {
		store.Delete(t.ID)
		return fmt.Sprintf("🗑️ Removed %q.", t.Text)
	})
}

func cmdSub(sess *session.Session, args string) string {
	return withTask(sess, args, "/sub <n> <text>", func(store *task.Store, t task.Task, rest string) string {
		if rest == "" {
			return "Usage: /sub <n> <text>"
		}
		sub, _ := store.AddSubtask(t.ID, rest, nil)
		return fmt.Sprintf("🪐 Added %q under %q.", sub.Text, t.Text)
	})
}

func cmdDue(sess *session.Session, args string) string {
	return withTask(sess, args, "/due <n> <phrase|none>", func(store *task.Store, t task.Task, rest string) string {
		if rest == "" {
			return "Usage: /due <n> <phrase|none>"
		}
		if isNone(rest) {
			store.UpdateDueAt(t.ID, nil)
			return fmt.Sprintf("Cleared the due date of %q.", t.Text)
		}
		at, ok := due.Parse(rest, sess.Now())
		if !ok {
			return fmt.Sprintf("I couldn't read %q as a date.", rest)
		}
		store.UpdateDueAt(t.ID, &at)
		return fmt.Sprintf("📅 %q is now due %s.", t.Text, at.Format(dispatch.DueLayout))
	})
}

func cmdPrio(sess *session.Session, args string) string {
	return withTask(sess, args, "/prio <n> <low|medium|high|none>", func(store *task.Store, t task.Task, rest string) string {
		if rest == "" {
			return "Usage: /prio <n> <low|medium|high|none>"
		}
		if isNone(rest) {
			store.UpdatePriority(t.ID, "")
			return fmt.Sprintf("Cleared the priority of %q.", t.Text)
		}
		p, ok := task.ParsePriority(rest)
		if !ok {
			return fmt.Sprintf("Unknown priority %q. Use low, medium, high or none.", rest)
		}
		store.UpdatePriority(t.ID, p)
		return fmt.Sprintf("%q is now %s priority.", t.Text, p)
	})
}

func cmdRepeat(sess *session.Session, args string) string {
	return withTask(sess, args, "/repeat <n> <rule|none>", func(store *task.Store, t task.Task, rest string) string {
		if rest == "" {
			return "Usage: /repeat <n> <rule|none>"
		}
		if isNone(rest) {
			store.UpdateRecurring(t.ID, "")
			return fmt.Sprintf("%q no longer repeats.", t.Text)
		}
		store.UpdateRecurring(t.ID, rest)
		return fmt.Sprintf("🔁 %q repeats %s.", t.Text, rest)
	})
}

// withTask resolves the leading position argument and runs fn with the
// store locked.
func withTask(sess *session.Session, args, usage string, fn func(store *task.Store, t task.Task, rest string) string) string {
	first, rest, _ := strings.Cut(args, " ")
	n, err := strconv.Atoi(first)
	if err != nil || n < 1 {
		return "Usage: " + usage
	}
	var reply string
	err = sess.Update(func(store *task.Store) error {
		flat := store.Flatten()
		if n > len(flat) {
			return errNoTask
		}
		reply = fn(store, flat[n-1], strings.TrimSpace(rest))
		return nil
	})
	if errors.Is(err, errNoTask) {
		return fmt.Sprintf("No task at position %d.", n)
	}
	return reply
}

func isNone(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "clear", "-":
		return true
	}
	return false
}

// formatDue renders a due time for the task pane.
func formatDue(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dispatch.DueLayout)
}
