package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nibzard/astrotask/internal/chat"
	"github.com/nibzard/astrotask/internal/logging"
	"github.com/nibzard/astrotask/internal/task"
)

var testNow = time.Date(2024, 1, 10, 14, 20, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// scriptedClient returns canned replies and records what it was sent.
type scriptedClient struct {
	mu      sync.Mutex
	replies []string
	err     error
	block   chan struct{}
	started chan struct{}
	calls   [][]chat.Message
}

func (c *scriptedClient) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, messages)
	c.mu.Unlock()

	if c.started != nil {
		close(c.started)
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if c.err != nil {
		return "", c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r, nil
}

func newTestSession(t *testing.T, client chat.Client, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock), WithLocation(time.UTC)}, opts...)
	s, err := New(client, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func roots(s *Session) []task.Task {
	var out []task.Task
	s.View(func(store *task.Store) { out = store.Roots() })
	return out
}

// TestDemoScenario tests the remind-me flow end to end with the offline client.
func TestDemoScenario(t *testing.T) {
	s := newTestSession(t, chat.NewDemoClient(0))

	reply, err := s.Submit(context.Background(), "Remind me to call mom tomorrow")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if reply.Kind != KindAction {
		t.Fatalf("Kind: got %q, want action (text %q)", reply.Kind, reply.Text)
	}
	if !strings.Contains(reply.Text, "Thu Jan 11, 9:00 AM") {
		t.Errorf("reply does not mention the due time: %q", reply.Text)
	}

	tasks := roots(s)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	want := time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)
	if tasks[0].Text != "call mom" || tasks[0].DueAt == nil || !tasks[0].DueAt.Equal(want) {
		t.Errorf("task: got %+v", tasks[0])
	}
	if s.State().LastAdded != tasks[0].ID {
		t.Errorf("LastAdded: got %d, want %d", s.State().LastAdded, tasks[0].ID)
	}

	history := s.History()
	if len(history) != 2 || history[0].Role != chat.RoleUser || history[1].Role != chat.RoleAssistant {
		t.Fatalf("history: got %+v", history)
	}
	if history[1].Content != reply.Text {
		t.Errorf("assistant history: got %q, want the confirmation", history[1].Content)
	}
}

// TestSystemPromptAndHistory tests what is sent to the client.
func TestSystemPromptAndHistory(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action":"add","task":"water the ferns"}`,
		"The nebula hums.",
	}}
	s := newTestSession(t, client)

	if _, err := s.Submit(context.Background(), "add ferns"); err != nil {
		t.Fatal(err)
	}
	reply, err := s.Submit(context.Background(), "how are you?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Kind != KindChat || reply.Text != "The nebula hums." {
		t.Errorf("chat reply: got %+v", reply)
	}

	if len(client.calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(client.calls))
	}
	second := client.calls[1]
	if second[0].Role != chat.RoleSystem {
		t.Fatalf("first message role: got %q, want system", second[0].Role)
	}
	if !strings.Contains(second[0].Content, "January 10, 2024") {
		t.Error("system prompt does not carry the date")
	}
	if !strings.Contains(second[0].Content, "water the ferns") {
		t.Error("system prompt does not list the open task")
	}
	// system, user, assistant confirmation, user
	if len(second) != 4 || second[3].Content != "how are you?" {
		t.Errorf("second call messages: got %+v", second)
	}
}

// TestTransportFailure tests the apology and that the user message stays in history.
func TestTransportFailure(t *testing.T) {
	client := &scriptedClient{err: &chat.APIError{StatusCode: 503, Message: "overloaded"}}
	s := newTestSession(t, client)

	reply, err := s.Submit(context.Background(), "add milk")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := "Cosmic interference detected: overloaded. The stars will realign shortly..."
	if reply.Kind != KindError || reply.Text != want {
		t.Errorf("reply: got %+v", reply)
	}
	history := s.History()
	if len(history) == 0 || history[0].Content != "add milk" {
		t.Errorf("user message missing from history: %+v", history)
	}
	if len(roots(s)) != 0 {
		t.Error("store changed after a transport failure")
	}
	if s.Pending() {
		t.Error("still pending after failure")
	}
}

func TestBlankInputIgnored(t *testing.T) {
	client := &scriptedClient{}
	s := newTestSession(t, client)

	reply, err := s.Submit(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if reply.Kind != KindNone || reply.Text != "" {
		t.Errorf("reply: got %+v", reply)
	}
	if len(client.calls) != 0 || len(s.History()) != 0 {
		t.Error("blank input reached the client or the history")
	}
	if _, err := s.Ask(context.Background(), ""); !errors.Is(err, ErrEmpty) {
		t.Errorf("Ask blank: got %v, want ErrEmpty", err)
	}
}

// TestBusy tests that a second submission is refused while one is pending.
func TestBusy(t *testing.T) {
	client := &scriptedClient{
		replies: []string{"ok"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	s := newTestSession(t, client)

	done := make(chan Reply)
	go func() {
		r, _ := s.Submit(context.Background(), "first")
		done <- r
	}()
	<-client.started

	if !s.Pending() {
		t.Error("Pending: got false during a call")
	}
	if _, err := s.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("second Submit: got %v, want ErrBusy", err)
	}
	// the store stays readable while the call is outstanding
	_ = roots(s)

	close(client.block)
	if r := <-done; r.Text != "ok" {
		t.Errorf("first reply: got %q", r.Text)
	}
	if len(s.History()) != 2 {
		t.Errorf("history: got %d messages, want 2", len(s.History()))
	}
}

// TestBusyUntilApplied tests that the session stays busy between Ask and
// Apply, so a follow-up sees the task the first reply added.
func TestBusyUntilApplied(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action":"add","task":"buy milk"}`,
		`{"action":"subtasks","parent":"buy milk","subtasks":["find wallet"]}`,
		"all good",
	}}
	s := newTestSession(t, client)

	raw, err := s.Ask(context.Background(), "add buy milk")
	if err != nil {
		t.Fatalf("first Ask: %v", err)
	}
	if _, err := s.Ask(context.Background(), "break it down"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Ask before Apply: got %v, want ErrBusy", err)
	}
	if !s.Pending() {
		t.Error("Pending: got false before Apply")
	}
	s.Apply(raw)
	if s.Pending() {
		t.Error("Pending: still true after Apply")
	}

	reply, err := s.Submit(context.Background(), "break it down")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if reply.Kind != KindAction {
		t.Errorf("follow-up kind: got %q", reply.Kind)
	}

	client.mu.Lock()
	system := client.calls[len(client.calls)-1][0].Content
	client.mu.Unlock()
	if !strings.Contains(system, "buy milk") {
		t.Errorf("follow-up system prompt does not list the added task:\n%s", system)
	}

	wantRoles := []chat.Role{chat.RoleUser, chat.RoleAssistant, chat.RoleUser, chat.RoleAssistant}
	history := s.History()
	if len(history) != len(wantRoles) {
		t.Fatalf("history: got %d messages, want %d", len(history), len(wantRoles))
	}
	for i, role := range wantRoles {
		if history[i].Role != role {
			t.Errorf("history[%d]: got %q, want %q", i, history[i].Role, role)
		}
	}

	// a failed exchange also releases the session
	client.err = errors.New("boom")
	if _, err := s.Ask(context.Background(), "hello"); err == nil {
		t.Fatal("Ask: expected transport error")
	}
	if _, err := s.Ask(context.Background(), "again"); !errors.Is(err, ErrBusy) {
		t.Errorf("Ask before Fail: got %v, want ErrBusy", err)
	}
	s.Fail(errors.New("boom"))
	if s.Pending() {
		t.Error("Pending: still true after Fail")
	}
}

func TestCancelledRequest(t *testing.T) {
	client := &scriptedClient{block: make(chan struct{})}
	s := newTestSession(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reply, err := s.Submit(ctx, "add stars")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.Contains(reply.Text, "the request was cancelled") {
		t.Errorf("reply: got %q", reply.Text)
	}
}

func TestApplyRules(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})

	tests := []struct {
		name     string
		raw      string
		wantKind Kind
		wantText string
	}{
		{"add", "```json\n{\"action\":\"add\",\"task\":\"Plan launch\"}\n```", KindAction, "Plan launch"},
		{"duplicate", `{"action":"add","task":"plan LAUNCH"}`, KindAction, "already in your cosmic task log"},
		{"subtasks via last added", `{"action":"subtasks","parent":"nope","subtasks":["fuel","countdown"]}`, KindAction, "2 smaller steps"},
		{"edit", `{"action":"edit","from":"fuel","to":"refuel"}`, KindAction, "✏️"},
		{"delete miss", `{"action":"delete","task":"asteroid mining"}`, KindAction, "couldn't find"},
		{"blank add", `{"action":"add","task":"   "}`, KindChat, ""},
		{"plain", "Just stargazing.", KindChat, "Just stargazing."},
		{"quoted fallback", `Sure! add task "polish telescope`, KindChat, "polish telescope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := s.Apply(tt.raw)
			if r.Kind != tt.wantKind {
				t.Errorf("Kind: got %q, want %q (text %q)", r.Kind, tt.wantKind, r.Text)
			}
			if !strings.Contains(r.Text, tt.wantText) {
				t.Errorf("Text: got %q, want it to contain %q", r.Text, tt.wantText)
			}
		})
	}

	var flat []task.Task
	s.View(func(store *task.Store) { flat = store.Flatten() })
	if len(flat) != 3 {
		t.Fatalf("got %d tasks, want 3: %+v", len(flat), flat)
	}
	if flat[1].Text != "refuel" {
		t.Errorf("edited subtask: got %q, want refuel", flat[1].Text)
	}
}

// TestTranscript tests the JSONL events written for one exchange.
func TestTranscript(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, chat.NewDemoClient(0), WithTranscriptDir(dir))

	if _, err := s.Submit(context.Background(), "add feed the cat"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background(), "hello there"); err != nil {
		t.Fatal(err)
	}
	path := s.TranscriptPath()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "20240110-142000-"+s.ID+".jsonl") {
		t.Errorf("transcript path: got %q", path)
	}

	events, err := logging.ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
		if ev.SessionID != s.ID {
			t.Errorf("event session id: got %q, want %q", ev.SessionID, s.ID)
		}
	}
	want := []string{
		logging.EventUserMessage, logging.EventAssistantMessage, logging.EventAction, logging.EventReply,
		logging.EventUserMessage, logging.EventAssistantMessage, logging.EventReply,
	}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("event types:\n got %v\nwant %v", types, want)
	}
}

func TestSessionID(t *testing.T) {
	a := newTestSession(t, &scriptedClient{})
	b := newTestSession(t, &scriptedClient{})
	if len(a.ID) != 26 {
		t.Errorf("ID length: got %d, want 26", len(a.ID))
	}
	if a.ID == b.ID {
		t.Error("two sessions share an id")
	}
	if !a.Started.Equal(testNow) {
		t.Errorf("Started: got %v", a.Started)
	}
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected an error for a nil client")
	}
}
