// Package session runs one chat session: it keeps the message history,
// asks the completion client, parses the reply and applies any action to
// the task store.
//
// A Session is safe for concurrent use. The network call runs outside the
// session lock so the store stays readable while a reply is pending, and
// only one call may be outstanding at a time.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/nibzard/astrotask/internal/chat"
	"github.com/nibzard/astrotask/internal/command"
	"github.com/nibzard/astrotask/internal/dispatch"
	"github.com/nibzard/astrotask/internal/logging"
	"github.com/nibzard/astrotask/internal/prompts"
	"github.com/nibzard/astrotask/internal/task"
)

var (
	// ErrBusy is returned when a message is submitted while another one is
	// still waiting for a reply.
	ErrBusy = errors.New("a reply is still pending")
	// ErrEmpty is returned by Ask for blank input.
	ErrEmpty = errors.New("message is empty")
)

// Kind classifies a Reply.
type Kind string

const (
	KindNone   Kind = ""
	KindChat   Kind = "chat"
	KindAction Kind = "action"
	KindError  Kind = "error"
)

// Reply is what the user sees after one exchange.
type Reply struct {
	Text    string
	Kind    Kind
	Action  *command.Action
	Outcome dispatch.Outcome
}

// Session holds the state of one conversation.
type Session struct {
	ID      string
	Started time.Time

	client     chat.Client
	store      *task.Store
	dispatcher *dispatch.Dispatcher
	renderer   *prompts.Renderer
	transcript *logging.Transcript
	logger     *log.Logger
	now        func() time.Time
	loc        *time.Location

	transcriptDir string

	mu      sync.Mutex
	state   dispatch.State
	history []chat.Message
	pending atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock used for ids, prompts and due dates.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone used to resolve due-date phrases.
func WithLocation(loc *time.Location) Option {
	return func(s *Session) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore uses an existing store instead of a fresh one.
func WithStore(store *task.Store) Option {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRenderer sets the system prompt renderer.
func WithRenderer(r *prompts.Renderer) Option {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithTranscriptDir writes a JSONL transcript under dir.
// An empty dir disables the transcript.
func WithTranscriptDir(dir string) Option {
	return func(s *Session) {
		s.transcriptDir = dir
	}
}

// New starts a session around client.
func New(client chat.Client, opts ...Option) (*Session, error) {
	if client == nil {
		return nil, errors.New("session requires a chat client")
	}
	s := &Session{
		client:   client,
		logger:   log.New(io.Discard),
		now:      time.Now,
		loc:      time.Local,
		renderer: prompts.NewRenderer(prompts.NewStore("")),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Started = s.now()
	id, err := ulid.New(ulid.Timestamp(s.Started), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	s.ID = id.String()

	clock := func() time.Time { return s.now().In(s.loc) }
	if s.store == nil {
		s.store = task.NewStore(task.WithClock(clock))
	}
	s.dispatcher = dispatch.New(s.store,
		dispatch.WithClock(clock),
		dispatch.WithLogger(s.logger),
	)

	if s.transcriptDir != "" {
		tr, err := logging.NewTranscript(s.transcriptDir, s.ID, s.Started)
		if err != nil {
			return nil, fmt.Errorf("open transcript: %w", err)
		}
		s.transcript = tr
	}

	s.logger.Debug("Session started", "session", s.ID)
	return s, nil
}

// Close flushes and closes the transcript.
func (s *Session) Close() error {
	if s.transcript == nil {
		return nil
	}
	return s.transcript.Close()
}

// TranscriptPath returns the transcript file, empty when disabled.
func (s *Session) TranscriptPath() string {
	if s.transcript == nil {
		return ""
	}
	return s.transcript.Path
}

// Pending reports whether a reply is outstanding.
func (s *Session) Pending() bool {
	return s.pending.Load()
}

// History returns a copy of the conversation without the system message.
func (s *Session) History() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Message, len(s.history))
	copy(out, s.history)
	return out
}

// State returns a copy of the dispatcher state.
func (s *Session) State() dispatch.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View runs fn with the store locked. fn must not retain the store.
func (s *Session) View(fn func(store *task.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

// Update runs fn with the store locked and returns its error.
func (s *Session) Update(fn func(store *task.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

// Location returns the zone used for due dates.
func (s *Session) Location() *time.Location {
	return s.loc
}

// Now returns the session clock in the session zone.
func (s *Session) Now() time.Time {
	return s.now().In(s.loc)
}

// Ask records text as a user message and requests a completion. The
// store is not changed; pass the result to Apply, or the error to Fail.
// The session stays busy until one of them ends the exchange, so a second
// Ask in between returns ErrBusy.
func (s *Session) Ask(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	if !s.pending.CompareAndSwap(false, true) {
		return "", ErrBusy
	}

	s.mu.Lock()
	system, err := s.systemPrompt()
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.history = append(s.history, chat.Message{Role: chat.RoleUser, Content: text})
	messages := make([]chat.Message, 0, len(s.history)+1)
	messages = append(messages, chat.Message{Role: chat.RoleSystem, Content: system})
	messages = append(messages, s.history...)
	s.record(logging.Event{Type: logging.EventUserMessage, Content: text})
	s.mu.Unlock()

	raw, err := s.client.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return raw, nil
}

// Apply parses raw assistant text and dispatches any action it carries.
func (s *Session) Apply(raw string) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.pending.Store(false)

	s.record(logging.Event{Type: logging.EventAssistantMessage, Content: raw})
	res := command.Parse(raw)
	if res.Rejected != nil {
		s.logger.Debug("Assistant JSON rejected", "err", res.Rejected)
	}

	if !res.IsAction() {
		s.history = append(s.history, chat.Message{Role: chat.RoleAssistant, Content: res.Reply})
		s.record(logging.Event{Type: logging.EventReply, Content: res.Reply, Source: string(res.Source)})
		return Reply{Text: res.Reply, Kind: KindChat}
	}

	out := s.dispatcher.Dispatch(&s.state, *res.Action)
	s.record(logging.Event{
		Type:   logging.EventAction,
		Action: res.Action,
		TaskID: out.TaskID,
		Source: string(res.Source),
	})
	if out.Message == "" {
		return Reply{Kind: KindNone, Action: res.Action, Outcome: out}
	}
	s.history = append(s.history, chat.Message{Role: chat.RoleAssistant, Content: out.Message})
	s.record(logging.Event{Type: logging.EventReply, Content: out.Message, TaskID: out.TaskID})
	return Reply{Text: out.Message, Kind: KindAction, Action: res.Action, Outcome: out}
}

// Fail turns a transport error into the apology shown to the user. The
// user message that triggered it stays in the history.
func (s *Session) Fail(err error) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.pending.Store(false)

	s.logger.Warn("Completion failed", "session", s.ID, "err", err)
	s.record(logging.Event{Type: logging.EventError, Content: err.Error()})
	msg := fmt.Sprintf("Cosmic interference detected: %s. The stars will realign shortly...", describe(err))
	s.history = append(s.history, chat.Message{Role: chat.RoleAssistant, Content: msg})
	return Reply{Text: msg, Kind: KindError}
}

// Submit asks and applies in one call. Blank input yields an empty Reply.
// ErrBusy is returned unchanged; transport failures become a KindError
// reply with a nil error.
func (s *Session) Submit(ctx context.Context, text string) (Reply, error) {
	raw, err := s.Ask(ctx, text)
	switch {
	case errors.Is(err, ErrEmpty):
		return Reply{}, nil
	case errors.Is(err, ErrBusy):
		return Reply{}, err
	case err != nil:
		return s.Fail(err), nil
	}
	return s.Apply(raw), nil
}

// systemPrompt renders the instruction with the current open tasks.
// Callers hold s.mu.
func (s *Session) systemPrompt() (string, error) {
	var open []string
	s.store.Walk(func(t task.Task, depth int) {
		if !t.Completed {
			open = append(open, strings.Repeat("  ", depth)+t.Text)
		}
	})
	text, err := s.renderer.System(prompts.NewData(s.Now(), open))
	if err != nil {
		return "", fmt.Errorf("system prompt: %w", err)
	}
	return text, nil
}

// record writes ev to the transcript. Callers hold s.mu.
func (s *Session) record(ev logging.Event) {
	if s.transcript == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now().UTC()
	}
	if err := s.transcript.Write(ev); err != nil {
		s.logger.Warn("Transcript write failed", "path", s.transcript.Path, "err", err)
	}
}

// describe strips the wrapping added by Ask so the apology names the cause.
func describe(err error) string {
	var apiErr *chat.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out"
	case errors.Is(err, context.Canceled):
		return "the request was cancelled"
	}
	msg := err.Error()
	return strings.TrimPrefix(msg, "complete: ")
}
