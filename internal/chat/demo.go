package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultDemoDelay paces demo replies.
const DefaultDemoDelay = 1500 * time.Millisecond

var (
	politeRe  = regexp.MustCompile(`(?i)^(?:can you|please|could you|would you)\s+`)
	commandRe = regexp.MustCompile(`(?i)^(?:remind me|add to|put on|set up|create a|add a|make a|add|create|make|put|set)(?:\s+(?:task|reminder|to-do|todo|to do|in my list|to my list|on my list))?(?:\s+|$)`)
	toRe      = regexp.MustCompile(`(?i)^to\s+`)
	punctRe   = regexp.MustCompile(`[?.!]`)
	dueTailRe = regexp.MustCompile(`(?i)\s+(tomorrow|next\s+(?:sunday|monday|tuesday|wednesday|thursday|friday|saturday))$`)
)

// DemoClient answers without a network. Requests that look like "add X"
// or "remind me to X" get an add action; anything else gets a canned
// conversational reply.
type DemoClient struct {
	Delay time.Duration
}

// NewDemoClient returns a demo client with the given reply delay.
// A negative delay means DefaultDemoDelay.
func NewDemoClient(delay time.Duration) *DemoClient {
	if delay < 0 {
		delay = DefaultDemoDelay
	}
	return &DemoClient{Delay: delay}
}

// Complete answers the last user message in messages.
func (d *DemoClient) Complete(ctx context.Context, messages []Message) (string, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = messages[i].Content
			break
		}
	}

	if d.Delay > 0 {
		timer := time.NewTimer(d.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	text, dueDate := ExtractSimpleTask(last)
	if text == "" {
		return fmt.Sprintf("I sense your cosmic message: %q. How may I assist you in your journey through the productivity cosmos? ✨", strings.TrimSpace(last)), nil
	}

	action := map[string]string{"action": "add", "task": text}
	if dueDate != "" {
		action["dueDate"] = dueDate
	}
	data, err := json.Marshal(action)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExtractSimpleTask strips request phrasing from a user message and
// returns the remaining task text, plus a trailing due phrase when one
// was found. Empty text means the message names no task.
func ExtractSimpleTask(msg string) (text, dueDate string) {
	s := strings.ToLower(strings.TrimSpace(msg))
	s = punctRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(politeRe.ReplaceAllString(s, ""))

	loc := commandRe.FindStringIndex(s)
	if loc == nil {
		return "", ""
	}
	s = strings.TrimSpace(s[loc[1]:])
	s = strings.TrimSpace(toRe.ReplaceAllString(s, ""))

	if m := dueTailRe.FindStringSubmatchIndex(s); m != nil {
		dueDate = strings.Join(strings.Fields(s[m[2]:m[3]]), " ")
		s = strings.TrimSpace(s[:m[0]])
	}
	if s == "" {
		return "", ""
	}
	return s, dueDate
}
