package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClientComplete(t *testing.T) {
	var got completionRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello from orbit"}}]}`))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(context.Background(), Options{
		BaseURL:     srv.URL + "/v1/",
		APIKey:      "sk-test",
		Temperature: 0.8,
	})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	msgs := []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}}
	out, err := c.Complete(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello from orbit" {
		t.Errorf("Complete = %q", out)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Model != DefaultModel || got.MaxTokens != DefaultMaxTokens || got.Temperature != 0.8 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "hi" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestHTTPClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantAPI *APIError
		wantErr error
	}{
		{
			name:    "api error message",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"invalid api key"}}`,
			wantAPI: &APIError{StatusCode: 401, Message: "invalid api key"},
		},
		{
			name:    "api error without body",
			status:  http.StatusBadGateway,
			body:    `upstream down`,
			wantAPI: &APIError{StatusCode: 502},
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"choices":[]}`,
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewHTTPClient(context.Background(), Options{BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("NewHTTPClient: %v", err)
			}
			_, err = c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
			if err == nil {
				t.Fatal("Complete succeeded")
			}
			if tt.wantAPI != nil {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("err = %T %v, want *APIError", err, err)
				}
				if *apiErr != *tt.wantAPI {
					t.Errorf("APIError = %+v, want %+v", *apiErr, *tt.wantAPI)
				}
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	if got := (&APIError{StatusCode: 500}).Error(); got != "API error: 500" {
		t.Errorf("Error() = %q", got)
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewHTTPClient(context.Background(), Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	_, err = c.Complete(context.Background(), nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestNewHTTPClientRequiresURL(t *testing.T) {
	if _, err := NewHTTPClient(context.Background(), Options{BaseURL: "  "}); err == nil {
		t.Error("NewHTTPClient accepted an empty base url")
	}
}

func TestExtractSimpleTask(t *testing.T) {
	tests := []struct {
		msg  string
		text string
		due  string
	}{
		{"Remind me to call mom tomorrow", "call mom", "tomorrow"},
		{"Can you add task buy milk?", "buy milk", ""},
		{"please add a dentist appointment next Friday!", "dentist appointment", "next friday"},
		{"create a reminder to water plants", "water plants", ""},
		{"add apples", "apples", ""},
		{"Add task", "", ""},
		{"hello there", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			text, due := ExtractSimpleTask(tt.msg)
			if text != tt.text || due != tt.due {
				t.Errorf("ExtractSimpleTask(%q) = %q, %q; want %q, %q", tt.msg, text, due, tt.text, tt.due)
			}
		})
	}
}

func TestDemoClient(t *testing.T) {
	d := NewDemoClient(0)

	out, err := d.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "remind me to call mom tomorrow"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	var action map[string]string
	if err := json.Unmarshal([]byte(out), &action); err != nil {
		t.Fatalf("demo reply is not JSON: %q", out)
	}
	if action["action"] != "add" || action["task"] != "call mom" || action["dueDate"] != "tomorrow" {
		t.Errorf("action = %v", action)
	}

	out, err = d.Complete(context.Background(), []Message{{Role: RoleUser, Content: "how are the stars?"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(out, "cosmic message") {
		t.Errorf("chat reply = %q", out)
	}
}

func TestDemoClientCancel(t *testing.T) {
	d := NewDemoClient(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Complete(ctx, []Message{{Role: RoleUser, Content: "add milk"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" User "); !ok || r != RoleUser {
		t.Errorf("ParseRole = %q, %v", r, ok)
	}
	if _, ok := ParseRole("tool"); ok {
		t.Error("ParseRole accepted tool")
	}
}
