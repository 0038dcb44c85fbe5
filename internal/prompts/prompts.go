package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/nibzard/astrotask/internal/command"
	"github.com/nibzard/astrotask/internal/task"
)

// SystemPrompt is the name of the system instruction template.
const SystemPrompt = "system"

// bundledSystemTemplate is the default system instruction.
const bundledSystemTemplate = `You are a cosmic AI assistant that helps manage tasks. Today is {{.Weekday}}, {{.Today}}.

Your ONLY valid responses for task actions are single JSON objects:

  - To add a task:
    { "action": "add", "task": "<task text>" }
  - To edit a task:
    { "action": "edit", "from": "<current task text>", "to": "<new task text>" }
  - To delete a task:
    { "action": "delete", "task": "<task text>" }
  - To break down a task:
    { "action": "subtasks", "parent": "<main task>", "subtasks": ["<step 1>", "<step 2>", ...] }

"add" and "edit" also accept these optional fields:
  - "category": one of {{join .Categories ", "}}
  - "priority": one of {{join .Priorities ", "}}
  - "dueDate": a phrase such as "tomorrow", "next monday", "3pm" or an ISO date
  - "recurring": a rule such as "daily", "weekly", "every 2 weeks", "monthly" or "every friday"
{{- if .Tasks}}

The user's current tasks:
{{- range .Tasks}}
  - {{.}}
{{- end}}
{{- end}}

Do NOT include any extra text, code block formatting, or explanations. Only output the JSON object for these actions.
The object must satisfy this JSON Schema:
{{.Schema}}

If the user is just chatting, reply in a dreamy, space-themed voice, but for any task action, use ONLY the JSON format above.
`

// BundledSystem returns the built-in system instruction template.
func BundledSystem() string {
	return bundledSystemTemplate
}

// Store loads prompt templates, preferring an override file.
type Store struct {
	path string
}

// NewStore creates a prompt store. An empty path uses the bundled template.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the override file, empty when the bundled template is used.
func (s *Store) Path() string {
	return s.path
}

// Load returns the template source for name.
func (s *Store) Load(name string) (string, error) {
	if name == "" {
		return "", errors.New("prompt name is empty")
	}
	if name != SystemPrompt {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	if s.path == "" {
		return bundledSystemTemplate, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read prompt %q: %w", name, err)
	}
	return string(data), nil
}

// Data holds prompt template variables.
type Data struct {
	Today      string
	Weekday    string
	Now        string
	Categories []string
	Priorities []string
	Schema     string
	Tasks      []string // open task texts, may be empty
}

// NewData builds prompt data for the given local time and open tasks.
func NewData(now time.Time, tasks []string) Data {
	cats := make([]string, 0, len(task.Categories))
	for _, c := range task.Categories {
		cats = append(cats, string(c))
	}
	prios := make([]string, 0, len(task.Priorities))
	for _, p := range task.Priorities {
		prios = append(prios, string(p))
	}
	return Data{
		Today:      now.Format("January 2, 2006"),
		Weekday:    now.Weekday().String(),
		Now:        now.Format(time.RFC3339),
		Categories: cats,
		Priorities: prios,
		Schema:     command.ActionSchema,
		Tasks:      tasks,
	}
}

// Renderer renders templates with strict missing-key behavior.
type Renderer struct {
	store *Store
}

// NewRenderer creates a prompt renderer.
func NewRenderer(store *Store) *Renderer {
	return &Renderer{store: store}
}

var funcs = template.FuncMap{
	"join": strings.Join,
}

// Render loads and renders a prompt template with required variable checks.
func (r *Renderer) Render(name string, data Data) (string, error) {
	if r == nil || r.store == nil {
		return "", errors.New("prompt renderer is not initialized")
	}
	if data.Today == "" || data.Schema == "" {
		return "", fmt.Errorf("prompt %q requires Today and Schema", name)
	}
	raw, err := r.store.Load(name)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse prompt %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return buf.String(), nil
}

// System renders the system instruction.
func (r *Renderer) System(data Data) (string, error) {
	return r.Render(SystemPrompt, data)
}
