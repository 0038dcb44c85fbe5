package task

import (
	"strings"
	"time"

	"github.com/nibzard/astrotask/internal/recurrence"
)

// node is an arena slot. Subtasks on the stored Task are always nil;
// the children index is the only source of structure.
type node struct {
	task     Task
	parent   int64
	children []int64
}

// Store holds the task forest for one session.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	nodes  map[int64]*node
	roots  []int64
	now    func() time.Time
	lastID int64
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for creation times, ids and the
// recurrence base of tasks without a due date.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes: make(map[int64]*node),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nextID returns a millisecond timestamp, bumped past the previous id so
// that ids stay unique within the session. Zero is never issued; it marks
// "no parent" in the arena.
func (s *Store) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Store) insert(parent int64, t Task) Task {
	t.ID = s.nextID()
	t.CreatedAt = s.now()
	t.Subtasks = nil
	s.nodes[t.ID] = &node{task: t, parent: parent}
	if parent == 0 {
		s.roots = append(s.roots, t.ID)
	} else {
		p := s.nodes[parent]
		p.children = append(p.children, t.ID)
	}
	return t
}

// Add appends a new root task. Blank text is rejected and reports false.
func (s *Store) Add(text string, f Fields) (Task, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, false
	}
	t := s.insert(0, Task{
		Text:      text,
		DueAt:     cloneTime(f.DueAt),
		Category:  f.Category,
		Priority:  f.Priority,
		Recurring: strings.TrimSpace(f.Recurring),
	})
	return s.build(t.ID), true
}

// AddSubtask appends a new child under parentID. It reports false when the
// parent does not exist or the text is blank.
func (s *Store) AddSubtask(parentID int64, text string, dueAt *time.Time) (Task, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, false
	}
	if _, ok := s.nodes[parentID]; !ok {
		return Task{}, false
	}
	t := s.insert(parentID, Task{Text: text, DueAt: cloneTime(dueAt)})
	return s.build(t.ID), true
}

// Toggle flips the completion flag of the task with the given id.
//
// When the task becomes completed and carries a recurrence rule, a new
// root task is appended with its due time advanced from the old due time
// (or now when it had none). The spawned task is returned as the second
// value, nil otherwise.
func (s *Store) Toggle(id int64) (Task, *Task, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return Task{}, nil, false
	}
	n.task.Completed = !n.task.Completed

	var spawned *Task
	if n.task.Completed && n.task.Recurring != "" {
		base := s.now()
		if n.task.DueAt != nil {
			base = *n.task.DueAt
		}
		next := recurrence.Next(base, n.task.Recurring)
		t := s.insert(0, Task{
			Text:      n.task.Text,
			DueAt:     &next,
			Category:  n.task.Category,
			Priority:  n.task.Priority,
			Recurring: n.task.Recurring,
		})
		built := s.build(t.ID)
		spawned = &built
	}
	return s.build(id), spawned, true
}

// Delete removes the task and its entire subtree.
func (s *Store) Delete(id int64) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	if n.parent == 0 {
		s.roots = removeID(s.roots, id)
	} else if p, ok := s.nodes[n.parent]; ok {
		p.children = removeID(p.children, id)
	}
	s.drop(id)
	return true
}

func (s *Store) drop(id int64) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	for _, child := range n.children {
		s.drop(child)
	}
	delete(s.nodes, id)
}

func removeID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// UpdateText replaces the text of a task. A non-empty category replaces
// the existing one; an empty category keeps it. Blank text is rejected.
func (s *Store) UpdateText(id int64, text string, category Category) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	return s.update(id, func(t *Task) {
		t.Text = text
		if category != "" {
			t.Category = category
		}
	})
}

// UpdateDueAt sets or clears (nil) the due time.
func (s *Store) UpdateDueAt(id int64, dueAt *time.Time) bool {
	return s.update(id, func(t *Task) {
		t.DueAt = cloneTime(dueAt)
	})
}

// UpdatePriority sets or clears (empty) the priority.
func (s *Store) UpdatePriority(id int64, priority Priority) bool {
	return s.update(id, func(t *Task) {
		t.Priority = priority
	})
}

// UpdateRecurring sets or clears (empty) the recurrence rule.
func (s *Store) UpdateRecurring(id int64, rule string) bool {
	return s.update(id, func(t *Task) {
		t.Recurring = strings.TrimSpace(rule)
	})
}

func (s *Store) update(id int64, fn func(*Task)) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	fn(&n.task)
	return true
}

// Get returns the task with the given id, including its subtree.
func (s *Store) Get(id int64) (Task, bool) {
	if _, ok := s.nodes[id]; !ok {
		return Task{}, false
	}
	return s.build(id), true
}

// Contains reports whether a task with the id exists anywhere in the forest.
func (s *Store) Contains(id int64) bool {
	_, ok := s.nodes[id]
	return ok
}

// Len returns the number of tasks in the forest, subtasks included.
func (s *Store) Len() int {
	return len(s.nodes)
}

// Roots returns the forest as nested values.
func (s *Store) Roots() []Task {
	out := make([]Task, 0, len(s.roots))
	for _, id := range s.roots {
		out = append(out, s.build(id))
	}
	return out
}

func (s *Store) build(id int64) Task {
	n := s.nodes[id]
	t := n.task
	t.DueAt = cloneTime(n.task.DueAt)
	if len(n.children) > 0 {
		t.Subtasks = make([]Task, 0, len(n.children))
		for _, child := range n.children {
			t.Subtasks = append(t.Subtasks, s.build(child))
		}
	}
	return t
}

// Walk visits every task in pre-order, parents before children, passing
// the nesting depth (0 for roots). Subtasks is nil on visited values.
func (s *Store) Walk(fn func(t Task, depth int)) {
	var visit func(ids []int64, depth int)
	visit = func(ids []int64, depth int) {
		for _, id := range ids {
			n := s.nodes[id]
			t := n.task
			t.DueAt = cloneTime(n.task.DueAt)
			fn(t, depth)
			visit(n.children, depth+1)
		}
	}
	visit(s.roots, 0)
}

// Flatten returns every task in pre-order. Subtasks is nil on the
// returned values; use Roots or Get for the nested view.
func (s *Store) Flatten() []Task {
	out := make([]Task, 0, len(s.nodes))
	s.Walk(func(t Task, _ int) {
		out = append(out, t)
	})
	return out
}

// FindByText returns the first task, in pre-order, whose text equals
// text ignoring case and surrounding space.
func (s *Store) FindByText(text string) (Task, bool) {
	return findByText(s.Flatten(), text)
}

// FindRootByText is FindByText restricted to root tasks.
func (s *Store) FindRootByText(text string) (Task, bool) {
	roots := make([]Task, 0, len(s.roots))
	for _, id := range s.roots {
		t := s.nodes[id].task
		t.DueAt = cloneTime(t.DueAt)
		roots = append(roots, t)
	}
	return findByText(roots, text)
}

func findByText(tasks []Task, text string) (Task, bool) {
	want := strings.ToLower(strings.TrimSpace(text))
	if want == "" {
		return Task{}, false
	}
	for _, t := range tasks {
		if strings.ToLower(t.Text) == want {
			return t, true
		}
	}
	return Task{}, false
}

// Stats counts the tasks in the forest.
func (s *Store) Stats() Stats {
	return Count(s.Flatten())
}
