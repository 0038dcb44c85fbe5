package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/nibzard/astrotask/internal/due"
	"github.com/nibzard/astrotask/internal/task"
)

var (
	errTaskNotFound = errors.New("task not found")
	errTextRequired = errors.New("text is required")
)

type createTaskRequest struct {
	Text      string `json:"text"`
	DueDate   string `json:"dueDate"`
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Recurring string `json:"recurring"`
}

type subtaskRequest struct {
	Text    string `json:"text"`
	DueDate string `json:"dueDate"`
}

type toggleResponse struct {
	Task    task.Task  `json:"task"`
	Spawned *task.Task `json:"spawned,omitempty"`
}

type calendarResponse struct {
	Date  string      `json:"date"`
	Tasks []task.Task `json:"tasks"`
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []task.Task
	s.sess.View(func(store *task.Store) {
		tasks = store.Roots()
	})
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, errTextRequired.Error())
		return
	}

	var fields task.Fields
	var err error
	if fields.DueAt, err = s.parseDue(req.DueDate); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields.Category, err = parseCategory(req.Category); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields.Priority, err = parsePriority(req.Priority); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fields.Recurring = req.Recurring

	var created task.Task
	err = s.sess.Update(func(store *task.Store) error {
		var ok bool
		if created, ok = store.Add(req.Text, fields); !ok {
			return errTextRequired
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var (
		t     task.Task
		found bool
	)
	s.sess.View(func(store *task.Store) {
		t, found = store.Get(id)
	})
	if !found {
		writeError(w, http.StatusNotFound, errTaskNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// updateTask applies a partial update. Every present field is validated
// before any change is made. A null or empty dueDate, priority or
// recurring clears it.
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var changes []func(store *task.Store)
	if v, present := raw["text"]; present {
		text, err := stringField("text", v)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("text must not be blank")
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		changes = append(changes, func(store *task.Store) { store.UpdateText(id, text, "") })
	}
	if v, present := raw["category"]; present {
		name, err := stringField("category", v)
		var c task.Category
		if err == nil {
			c, err = parseCategory(name)
		}
		if err == nil && c == "" {
			err = errors.New("category cannot be cleared")
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		changes = append(changes, func(store *task.Store) {
			if t, ok := store.Get(id); ok {
				store.UpdateText(id, t.Text, c)
			}
		})
	}
	if v, present := raw["priority"]; present {
		name, err := stringField("priority", v)
		var p task.Priority
		if err == nil && name != "none" {
			p, err = parsePriority(name)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		changes = append(changes, func(store *task.Store) { store.UpdatePriority(id, p) })
	}
	if v, present := raw["recurring"]; present {
		rule, err := stringField("recurring", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		changes = append(changes, func(store *task.Store) { store.UpdateRecurring(id, rule) })
	}
	if v, present := raw["dueDate"]; present {
		phrase, err := stringField("dueDate", v)
		var dueAt *time.Time
		if err == nil {
			dueAt, err = s.parseDue(phrase)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		changes = append(changes, func(store *task.Store) { store.UpdateDueAt(id, dueAt) })
	}

	var updated task.Task
	err := s.sess.Update(func(store *task.Store) error {
		if !store.Contains(id) {
			return errTaskNotFound
		}
		for _, apply := range changes {
			apply(store)
		}
		updated, _ = store.Get(id)
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	err := s.sess.Update(func(store *task.Store) error {
		if !store.Delete(id) {
			return errTaskNotFound
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var resp toggleResponse
	err := s.sess.Update(func(store *task.Store) error {
		var found bool
		resp.Task, resp.Spawned, found = store.Toggle(id)
		if !found {
			return errTaskNotFound
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) addSubtask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req subtaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	dueAt, err := s.parseDue(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var created task.Task
	err = s.sess.Update(func(store *task.Store) error {
		var added bool
		if created, added = store.AddSubtask(id, req.Text, dueAt); !added {
			return errTaskNotFound
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	var st task.Stats
	s.sess.View(func(store *task.Store) {
		st = store.Stats()
	})
	writeJSON(w, http.StatusOK, st)
}

// calendar lists the tasks scheduled on ?date=YYYY-MM-DD, today when absent.
func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	loc := s.sess.Location()
	day := s.sess.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.ParseInLocation(task.DayLayout, v, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("date must be YYYY-MM-DD, got %q", v))
			return
		}
		day = parsed
	}

	var tasks []task.Task
	s.sess.View(func(store *task.Store) {
		tasks = task.TasksOn(store.Flatten(), day, loc)
	})
	writeJSON(w, http.StatusOK, calendarResponse{
		Date:  task.DayKey(day, loc),
		Tasks: nonNil(tasks),
	})
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

// parseDue accepts RFC 3339 or any phrase the due package resolves.
// Blank means no due date.
func (s *Server) parseDue(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	if t, ok := due.Parse(v, s.sess.Now()); ok {
		return &t, nil
	}
	return nil, fmt.Errorf("cannot resolve due date %q", v)
}

func parseCategory(v string) (task.Category, error) {
	if strings.TrimSpace(v) == "" {
		return "", nil
	}
	c, ok := task.ParseCategory(v)
	if !ok {
		return "", fmt.Errorf("unknown category %q", v)
	}
	return c, nil
}

func parsePriority(v string) (task.Priority, error) {
	if strings.TrimSpace(v) == "" {
		return "", nil
	}
	p, ok := task.ParsePriority(v)
	if !ok {
		return "", fmt.Errorf("unknown priority %q", v)
	}
	return p, nil
}

// stringField decodes a JSON string, treating null as empty.
func stringField(name string, raw json.RawMessage) (string, error) {
	if string(raw) == "null" {
		return "", nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return strings.TrimSpace(v), nil
}
