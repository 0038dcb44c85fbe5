package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nibzard/astrotask/internal/chat"
	"github.com/nibzard/astrotask/internal/session"
	"github.com/nibzard/astrotask/internal/task"
)

type proxyRequest struct {
	Messages []proxyMessage `json:"messages"`
}

type proxyMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type proxyResponse struct {
	Response string `json:"response"`
}

// proxyChat forwards a full conversation to the completion client
// without touching the session.
func (s *Server) proxyChat(w http.ResponseWriter, r *http.Request) {
	var req proxyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must be a non-empty list")
		return
	}
	messages := make([]chat.Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		role, ok := chat.ParseRole(m.Role)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("messages[%d]: invalid role %q", i, m.Role))
			return
		}
		if m.Content == nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("messages[%d]: content is required", i))
			return
		}
		messages = append(messages, chat.Message{Role: role, Content: *m.Content})
	}

	text, err := s.client.Complete(r.Context(), messages)
	if err != nil {
		s.logger.Warn("Proxy completion failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, proxyResponse{Response: text})
}

type sessionRequest struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	Reply   string       `json:"reply"`
	Kind    session.Kind `json:"kind"`
	Action  any          `json:"action,omitempty"`
	Changed bool         `json:"changed"`
	TaskID  int64        `json:"taskId,omitempty"`
	Tasks   []task.Task  `json:"tasks"`
	Stats   task.Stats   `json:"stats"`
}

// sessionMessage runs one user message through the session pipeline.
func (s *Server) sessionMessage(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := s.sess.Submit(r.Context(), req.Message)
	if errors.Is(err, session.ErrBusy) {
		writeError(w, http.StatusConflict, "another message is still being answered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := sessionResponse{
		Reply:   reply.Text,
		Kind:    reply.Kind,
		Changed: reply.Outcome.Changed,
		TaskID:  reply.Outcome.TaskID,
	}
	if reply.Action != nil {
		resp.Action = reply.Action
	}
	s.sess.View(func(store *task.Store) {
		resp.Tasks = nonNil(store.Roots())
		resp.Stats = store.Stats()
	})
	writeJSON(w, http.StatusOK, resp)
}

func nonNil(tasks []task.Task) []task.Task {
	if tasks == nil {
		return []task.Task{}
	}
	return tasks
}
