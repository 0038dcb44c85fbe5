package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/nibzard/astrotask/internal/command"
	"github.com/nibzard/astrotask/internal/task"
)

// Wednesday 2024-01-10 14:00 UTC.
var testNow = time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)

func newTestDispatcher() (*Dispatcher, *task.Store) {
	store := task.NewStore(task.WithClock(func() time.Time { return testNow }))
	return New(store, WithClock(func() time.Time { return testNow })), store
}

func TestAddCallMomTomorrow(t *testing.T) {
	d, store := newTestDispatcher()
	st := &State{}

	// What the model answers for "remind me to call mom tomorrow".
	res := command.Parse(`{"action":"add","task":"call mom","dueDate":"tomorrow"}`)
	if !res.IsAction() {
		t.Fatalf("Parse returned a reply: %v", res.Rejected)
	}
	out := d.Dispatch(st, *res.Action)

	if !out.Changed {
		t.Fatal("add did not change the store")
	}
	roots := store.Roots()
	if len(roots) != 1 || roots[0].Text != "call mom" {
		t.Fatalf("roots = %+v", roots)
	}
	want := time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)
	if roots[0].DueAt == nil || !roots[0].DueAt.Equal(want) {
		t.Errorf("DueAt = %v, want %v", roots[0].DueAt, want)
	}
	if !strings.Contains(out.Message, want.Format(DueLayout)) {
		t.Errorf("message %q does not mention the due time", out.Message)
	}
	if st.LastAdded != roots[0].ID {
		t.Errorf("LastAdded = %d, want %d", st.LastAdded, roots[0].ID)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	d, store := newTestDispatcher()
	st := &State{}

	first := d.Dispatch(st, command.Action{Type: command.ActionAdd, Task: "Buy Milk"})
	st.LastAdded = 0
	second := d.Dispatch(st, command.Action{Type: command.ActionAdd, Task: "buy milk"})

	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}
	if second.Changed {
		t.Error("duplicate add reported a change")
	}
	if second.TaskID != first.TaskID || st.LastAdded != first.TaskID {
		t.Errorf("duplicate resolved to %d (last added %d), want %d", second.TaskID, st.LastAdded, first.TaskID)
	}
	if !strings.Contains(second.Message, "already") {
		t.Errorf("message = %q", second.Message)
	}
}

func TestAddDuplicateOfSubtaskCreatesRoot(t *testing.T) {
	d, store := newTestDispatcher()
	parent, _ := store.Add("plan trip", task.Fields{})
	store.AddSubtask(parent.ID, "pack", nil)

	out := d.Dispatch(&State{}, command.Action{Type: command.ActionAdd, Task: "pack"})
	if !out.Changed || len(store.Roots()) != 2 {
		t.Errorf("root add blocked by subtask with equal text: %+v", out)
	}
}

func TestAddUnresolvedDueIsOmitted(t *testing.T) {
	d, store := newTestDispatcher()
	out := d.Dispatch(&State{}, command.Action{Type: command.ActionAdd, Task: "stretch", DueDate: "someday", Recurring: "daily"})
	got, _ := store.Get(out.TaskID)
	if got.DueAt != nil {
		t.Errorf("DueAt = %v, want nil", got.DueAt)
	}
	if got.Recurring != "daily" || !strings.Contains(out.Message, "repeats daily") {
		t.Errorf("task = %+v, message = %q", got, out.Message)
	}
}

func TestAddBlankIsSilent(t *testing.T) {
	d, store := newTestDispatcher()
	out := d.Dispatch(&State{}, command.Action{Type: command.ActionAdd, Task: "   "})
	if out.Message != "" || out.Changed || store.Len() != 0 {
		t.Errorf("blank add = %+v, Len %d", out, store.Len())
	}
}

func TestEdit(t *testing.T) {
	d, store := newTestDispatcher()
	tk, _ := store.Add("buy milk", task.Fields{Category: task.CategoryErrand})

	out := d.Dispatch(&State{}, command.Action{
		Type:     command.ActionEdit,
		From:     "milk",
		To:       "buy oat milk",
		Priority: task.PriorityHigh,
		DueDate:  "next friday",
	})
	if !out.Changed || out.TaskID != tk.ID {
		t.Fatalf("edit = %+v", out)
	}
	if !strings.Contains(out.Message, `"buy milk" → "buy oat milk"`) {
		t.Errorf("message = %q", out.Message)
	}

	got, _ := store.Get(tk.ID)
	if got.Text != "buy oat milk" || got.Priority != task.PriorityHigh || got.Category != task.CategoryErrand {
		t.Errorf("task = %+v", got)
	}
	want := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	if got.DueAt == nil || !got.DueAt.Equal(want) {
		t.Errorf("DueAt = %v, want %v", got.DueAt, want)
	}
}

func TestEditAndDeleteNotFound(t *testing.T) {
	d, store := newTestDispatcher()
	store.Add("buy milk", task.Fields{})

	actions := []command.Action{
		{Type: command.ActionEdit, From: "walk the dog", To: "walk the cat"},
		{Type: command.ActionDelete, Task: "walk the dog"},
	}
	for _, a := range actions {
		t.Run(string(a.Type), func(t *testing.T) {
			out := d.Dispatch(&State{}, a)
			if out.Changed || !strings.Contains(out.Message, "couldn't find") {
				t.Errorf("outcome = %+v", out)
			}
			if got := store.Roots(); len(got) != 1 || got[0].Text != "buy milk" {
				t.Errorf("store changed: %+v", got)
			}
		})
	}
}

func TestDeleteFuzzy(t *testing.T) {
	d, store := newTestDispatcher()
	parent, _ := store.Add("plan the trip", task.Fields{})
	store.AddSubtask(parent.ID, "book flights", nil)
	store.AddSubtask(parent.ID, "reserve hotel", nil)
	store.Add("buy milk", task.Fields{})

	out := d.Dispatch(&State{}, command.Action{Type: command.ActionDelete, Task: "plan trip"})
	if !out.Changed || out.TaskID != parent.ID {
		t.Fatalf("delete = %+v", out)
	}
	if got := len(store.Flatten()); got != 1 {
		t.Errorf("Flatten() = %d entries, want 1", got)
	}
}

func TestSubtasks(t *testing.T) {
	tests := []struct {
		name       string
		parentText string
		lastAdded  bool
		wantOK     bool
	}{
		{name: "exact parent", parentText: "PLAN TRIP", wantOK: true},
		{name: "falls back to last added", parentText: "the trip thing", lastAdded: true, wantOK: true},
		{name: "no parent", parentText: "the trip thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, store := newTestDispatcher()
			st := &State{}
			parent, _ := store.Add("plan trip", task.Fields{})
			if tt.lastAdded {
				st.LastAdded = parent.ID
			}

			out := d.Dispatch(st, command.Action{
				Type:     command.ActionSubtasks,
				Parent:   tt.parentText,
				Subtasks: []string{"book flights", "reserve hotel"},
			})

			got, _ := store.Get(parent.ID)
			if !tt.wantOK {
				if out.Changed || len(got.Subtasks) != 0 || !strings.Contains(out.Message, "couldn't find") {
					t.Errorf("outcome = %+v, subtasks %+v", out, got.Subtasks)
				}
				return
			}
			if !out.Changed || len(got.Subtasks) != 2 {
				t.Fatalf("outcome = %+v, subtasks %+v", out, got.Subtasks)
			}
			if got.Subtasks[0].Text != "book flights" || got.Subtasks[1].Text != "reserve hotel" {
				t.Errorf("subtask order = %+v", got.Subtasks)
			}
			if !strings.Contains(out.Message, "2 smaller steps") {
				t.Errorf("message = %q", out.Message)
			}
		})
	}
}

func TestSubtasksLastAddedDeleted(t *testing.T) {
	d, store := newTestDispatcher()
	st := &State{}
	d.Dispatch(st, command.Action{Type: command.ActionAdd, Task: "plan trip"})
	d.Dispatch(st, command.Action{Type: command.ActionDelete, Task: "plan trip"})

	out := d.Dispatch(st, command.Action{Type: command.ActionSubtasks, Parent: "x", Subtasks: []string{"a"}})
	if out.Changed || store.Len() != 0 {
		t.Errorf("subtasks attached to a deleted task: %+v", out)
	}
}
