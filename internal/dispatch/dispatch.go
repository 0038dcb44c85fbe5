// Package dispatch applies parsed actions to the task store and phrases
// the result for the user.
package dispatch

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/astrotask/internal/command"
	"github.com/nibzard/astrotask/internal/due"
	"github.com/nibzard/astrotask/internal/fuzzy"
	"github.com/nibzard/astrotask/internal/task"
)

// DueLayout formats due times in confirmations.
const DueLayout = "Mon Jan 2, 3:04 PM"

// State is the per-session context the dispatcher reads and updates.
// Create one per chat session and drop it when the session ends.
type State struct {
	// LastAdded is the id of the task most recently added or re-announced
	// as a duplicate; 0 when none. It is the implicit parent of a subtasks
	// action whose parent text cannot be found.
	LastAdded int64
}

// Outcome is the result of dispatching one action.
type Outcome struct {
	// Message is the user-facing confirmation or failure text. Empty
	// means the action was silently ignored.
	Message string
	// Changed reports whether the store was mutated.
	Changed bool
	// TaskID is the task the action resolved to, 0 when unresolved.
	TaskID int64
}

// Dispatcher validates references and mutates the store.
type Dispatcher struct {
	store  *task.Store
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock sets the clock used to resolve due-date phrases.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the logger for dispatch decisions.
func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a dispatcher over store.
func New(store *task.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		now:    time.Now,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch applies a to the store. Resolution failures never return an
// error; they produce a message and leave the store unchanged.
func (d *Dispatcher) Dispatch(st *State, a command.Action) Outcome {
	if st == nil {
		st = &State{}
	}
	var out Outcome
	switch a.Type {
	case command.ActionAdd:
		out = d.add(st, a)
	case command.ActionEdit:
		out = d.edit(a)
	case command.ActionDelete:
		out = d.remove(a)
	case command.ActionSubtasks:
		out = d.subtasks(st, a)
	default:
		out = Outcome{}
	}
	d.logger.Debug("Dispatched action", "action", a.Type, "task_id", out.TaskID, "changed", out.Changed)
	return out
}

func (d *Dispatcher) add(st *State, a command.Action) Outcome {
	if existing, ok := d.store.FindRootByText(a.Task); ok {
		st.LastAdded = existing.ID
		return Outcome{
			Message: fmt.Sprintf("%q is already in your cosmic task log. Would you like help completing it, or shall I break it down into smaller steps?", existing.Text),
			TaskID:  existing.ID,
		}
	}

	fields := task.Fields{
		Category:  a.Category,
		Priority:  a.Priority,
		Recurring: a.Recurring,
	}
	if at, ok := d.resolveDue(a.DueDate); ok {
		fields.DueAt = &at
	}
	t, ok := d.store.Add(a.Task, fields)
	if !ok {
		return Outcome{}
	}
	st.LastAdded = t.ID

	msg := fmt.Sprintf("✨ I've added %q to your cosmic task log", t.Text)
	if t.DueAt != nil {
		msg += ", due " + t.DueAt.Format(DueLayout)
	}
	if t.Recurring != "" {
		msg += fmt.Sprintf(" (repeats %s)", t.Recurring)
	}
	msg += ". 🌌 Would you like help completing it, or shall I break it down into smaller steps?"
	return Outcome{Message: msg, Changed: true, TaskID: t.ID}
}

func (d *Dispatcher) edit(a command.Action) Outcome {
	match, ok := fuzzy.Resolve(d.store.Flatten(), a.From)
	if !ok {
		return notFound(a.From)
	}
	if !d.store.UpdateText(match.ID, a.To, a.Category) {
		return Outcome{TaskID: match.ID}
	}
	if a.Priority != "" {
		d.store.UpdatePriority(match.ID, a.Priority)
	}
	if a.Recurring != "" {
		d.store.UpdateRecurring(match.ID, a.Recurring)
	}
	msg := fmt.Sprintf("✏️ Updated %q → %q", match.Text, a.To)
	if at, ok := d.resolveDue(a.DueDate); ok {
		d.store.UpdateDueAt(match.ID, &at)
		msg += ", due " + at.Format(DueLayout)
	}
	return Outcome{Message: msg + ".", Changed: true, TaskID: match.ID}
}

func (d *Dispatcher) remove(a command.Action) Outcome {
	match, ok := fuzzy.Resolve(d.store.Flatten(), a.Task)
	if !ok {
		return notFound(a.Task)
	}
	d.store.Delete(match.ID)
	return Outcome{
		Message: fmt.Sprintf("🗑️ I've removed %q from your cosmic task log. Anything else for the stars?", match.Text),
		Changed: true,
		TaskID:  match.ID,
	}
}

func (d *Dispatcher) subtasks(st *State, a command.Action) Outcome {
	parent, ok := d.store.FindByText(a.Parent)
	if !ok && st.LastAdded != 0 {
		parent, ok = d.store.Get(st.LastAdded)
	}
	if !ok {
		return Outcome{
			Message: fmt.Sprintf("🚫 I couldn't find the main task %q to add subtasks. Please try again!", a.Parent),
		}
	}

	added := 0
	for _, text := range a.Subtasks {
		if _, ok := d.store.AddSubtask(parent.ID, text, nil); ok {
			added++
		}
	}
	if added == 0 {
		return Outcome{TaskID: parent.ID}
	}
	return Outcome{
		Message: fmt.Sprintf("🪐 I've broken down %q into %d smaller %s. Anything else for the stars?", parent.Text, added, plural(added, "step", "steps")),
		Changed: true,
		TaskID:  parent.ID,
	}
}

func (d *Dispatcher) resolveDue(phrase string) (time.Time, bool) {
	if phrase == "" {
		return time.Time{}, false
	}
	return due.Parse(phrase, d.now())
}

func notFound(ref string) Outcome {
	return Outcome{
		Message: fmt.Sprintf("🚫 I couldn't find a task matching %q in your cosmic log. Please check the name and try again!", ref),
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
