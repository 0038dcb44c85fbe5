package logging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Transcript event types.
const (
	EventUserMessage      = "user_message"
	EventAssistantMessage = "assistant_message"
	EventAction           = "action"
	EventReply            = "reply"
	EventError            = "error"
)

const transcriptTimeLayout = "20060102-150405"

// Event is one line of a session transcript.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	// Content is the message text (user, assistant, reply and error events).
	Content string `json:"content,omitempty"`
	// Action is the parsed action (action events).
	Action any    `json:"action,omitempty"`
	TaskID int64  `json:"task_id,omitempty"`
	Source string `json:"source,omitempty"`
}

// Transcript appends JSONL events for one chat session.
// It is safe for concurrent use.
type Transcript struct {
	Dir       string
	SessionID string
	Path      string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewTranscript creates dir if needed and opens
// <dir>/<UTC timestamp>-<sessionID>.jsonl.
func NewTranscript(dir, sessionID string, now time.Time) (*Transcript, error) {
	if dir == "" {
		return nil, fmt.Errorf("transcript dir is empty")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session id is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.jsonl", now.UTC().Format(transcriptTimeLayout), sessionID)
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}

	return &Transcript{
		Dir:       dir,
		SessionID: sessionID,
		Path:      path,
		file:      file,
		enc:       json.NewEncoder(file),
		now:       time.Now,
	}, nil
}

// Write appends an event. A zero timestamp is filled with the current time
// and the session id is always set.
func (t *Transcript) Write(ev Event) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return errors.New("transcript is closed")
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = t.now().UTC()
	}
	ev.SessionID = t.SessionID
	if err := t.enc.Encode(ev); err != nil {
		return fmt.Errorf("write transcript event: %w", err)
	}
	return nil
}

// Close closes the transcript file.
func (t *Transcript) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// ReadEvents decodes every event in a transcript file.
func ReadEvents(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close()

	var events []Event
	dec := json.NewDecoder(file)
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, fmt.Errorf("decode transcript: %w", err)
		}
		events = append(events, ev)
	}
}

// Session describes one transcript file on disk.
type Session struct {
	ID      string
	Started time.Time
	ModTime time.Time
	Path    string
}

// FindSessions lists transcripts in logDir, newest first.
func FindSessions(logDir string) ([]Session, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	var sessions []Session
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		started, id, ok := parseTranscriptName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sessions = append(sessions, Session{
			ID:      id,
			Started: started,
			ModTime: info.ModTime(),
			Path:    filepath.Join(logDir, entry.Name()),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].ModTime.Equal(sessions[j].ModTime) {
			return sessions[i].ModTime.After(sessions[j].ModTime)
		}
		return sessions[i].Started.After(sessions[j].Started)
	})
	return sessions, nil
}

// parseTranscriptName splits "<yyyymmdd-hhmmss>-<id>.jsonl".
func parseTranscriptName(name string) (time.Time, string, bool) {
	base, ok := strings.CutSuffix(name, ".jsonl")
	if !ok || len(base) <= len(transcriptTimeLayout)+1 {
		return time.Time{}, "", false
	}
	stamp := base[:len(transcriptTimeLayout)]
	if base[len(transcriptTimeLayout)] != '-' {
		return time.Time{}, "", false
	}
	started, err := time.Parse(transcriptTimeLayout, stamp)
	if err != nil {
		return time.Time{}, "", false
	}
	return started, base[len(transcriptTimeLayout)+1:], true
}

// FindLatestLog returns the most recent transcript in logDir, or "" when
// there is none.
func FindLatestLog(logDir string) (string, error) {
	sessions, err := FindSessions(logDir)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", nil
	}
	return sessions[0].Path, nil
}

// TailLog copies the last n lines of path to w (all lines when n <= 0).
// With follow set it keeps copying appended data until ctx is done.
func TailLog(ctx context.Context, w io.Writer, path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n > 0 {
		if err := tailSeek(file, n); err != nil {
			return fmt.Errorf("seek to tail position: %w", err)
		}
	}

	if _, err := io.Copy(w, file); err != nil {
		return err
	}
	if !follow {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := io.Copy(w, file); err != nil {
				return err
			}
		}
	}
}

// tailSeek positions file at the start of the n-th line from the end.
func tailSeek(file *os.File, n int) error {
	stat, err := file.Stat()
	if err != nil {
		return err
	}
	size := stat.Size()
	if size == 0 {
		return nil
	}

	const chunk = 4096
	buf := make([]byte, chunk)
	newlines := 0
	pos := size

	// A trailing newline terminates the last line rather than starting a new one.
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		pos = size - 1
	}

	for pos > 0 {
		readSize := int64(chunk)
		if pos < readSize {
			readSize = pos
		}
		pos -= readSize
		if _, err := file.ReadAt(buf[:readSize], pos); err != nil {
			return err
		}
		for i := readSize - 1; i >= 0; i-- {
			if buf[i] != '\n' {
				continue
			}
			newlines++
			if newlines == n {
				_, err := file.Seek(pos+i+1, io.SeekStart)
				return err
			}
		}
	}
	_, err = file.Seek(0, io.SeekStart)
	return err
}
