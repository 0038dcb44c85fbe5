package command

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nibzard/astrotask/internal/task"
)

func TestParseActions(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Action
		source Source
	}{
		{
			name:   "plain add",
			raw:    `{"action":"add","task":"buy milk","category":"errand","priority":"high","dueDate":"tomorrow","recurring":"weekly"}`,
			want:   Action{Type: ActionAdd, Task: "buy milk", Category: task.CategoryErrand, Priority: task.PriorityHigh, DueDate: "tomorrow", Recurring: "weekly"},
			source: SourceJSON,
		},
		{
			name:   "fenced",
			raw:    "```json\n{\"action\":\"delete\",\"task\":\"buy milk\"}\n```",
			want:   Action{Type: ActionDelete, Task: "buy milk"},
			source: SourceJSON,
		},
		{
			name:   "fenced after prose",
			raw:    "Sure! Here you go:\n```json\n{\"action\": \"add\", \"task\": \"call mom\"}\n```\nAnything else?",
			want:   Action{Type: ActionAdd, Task: "call mom"},
			source: SourceJSON,
		},
		{
			name:   "edit",
			raw:    `{"action":"edit","from":"buy milk","to":"buy oat milk","priority":"low"}`,
			want:   Action{Type: ActionEdit, From: "buy milk", To: "buy oat milk", Priority: task.PriorityLow},
			source: SourceJSON,
		},
		{
			name:   "subtasks",
			raw:    `{"action":"subtasks","parent":"plan trip","subtasks":["book flights"," ","reserve hotel"]}`,
			want:   Action{Type: ActionSubtasks, Parent: "plan trip", Subtasks: []string{"book flights", "reserve hotel"}},
			source: SourceJSON,
		},
		{
			name:   "aliases",
			raw:    `{"Type":"Remove","Title":"  buy milk "}`,
			want:   Action{Type: ActionDelete, Task: "buy milk"},
			source: SourceJSON,
		},
		{
			name:   "subtask aliases",
			raw:    `{"intent":"breakdown","task":"plan trip","steps":["pack"]}`,
			want:   Action{Type: ActionSubtasks, Parent: "plan trip", Subtasks: []string{"pack"}},
			source: SourceJSON,
		},
		{
			name:   "unknown enums dropped",
			raw:    `{"action":"add","task":"nap","category":"leisure","priority":"urgent","color":"blue"}`,
			want:   Action{Type: ActionAdd, Task: "nap"},
			source: SourceJSON,
		},
		{
			name:   "fallback add",
			raw:    `I'll add task "email the quarterly report" for you.`,
			want:   Action{Type: ActionAdd, Task: "email the quarterly report", Category: task.CategoryWork},
			source: SourceFallback,
		},
		{
			name:   "fallback curly quotes",
			raw:    "Let me add “pick up laundry” to your list",
			want:   Action{Type: ActionAdd, Task: "pick up laundry", Category: task.CategoryErrand},
			source: SourceFallback,
		},
		{
			name:   "fallback on broken json",
			raw:    `{"action": "add", "task": add 'water plants'}`,
			want:   Action{Type: ActionAdd, Task: "water plants", Category: task.CategoryPersonal},
			source: SourceFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if !got.IsAction() {
				t.Fatalf("Parse(%q) returned a reply, rejected: %v", tt.raw, got.Rejected)
			}
			if got.Source != tt.source {
				t.Errorf("Source = %q, want %q", got.Source, tt.source)
			}
			if !reflect.DeepEqual(*got.Action, tt.want) {
				t.Errorf("Action = %+v, want %+v", *got.Action, tt.want)
			}
		})
	}
}

func TestParseReplies(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		rejected bool
	}{
		{name: "prose", raw: "The stars say hello. How can I help?"},
		{name: "unquoted add phrase", raw: "I can add milk to your list if you like."},
		{name: "unquoted add task", raw: "add task buy milk"},
		{name: "unquoted add with due phrase", raw: "Add buy milk tomorrow"},
		{name: "array", raw: `["add", "milk"]`, rejected: true},
		{name: "unknown action", raw: `{"action":"archive","task":"x"}`, rejected: true},
		{name: "add without task", raw: `{"action":"add","category":"work"}`, rejected: true},
		{name: "edit without to", raw: `{"action":"edit","from":"x"}`, rejected: true},
		{name: "subtasks empty list", raw: `{"action":"subtasks","parent":"x","subtasks":[]}`, rejected: true},
		{name: "blank task", raw: `{"action":"delete","task":"   "}`, rejected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if got.IsAction() {
				t.Fatalf("Parse(%q) = %+v, want reply", tt.raw, *got.Action)
			}
			if got.Reply != tt.raw {
				t.Errorf("Reply = %q, want original text", got.Reply)
			}
			if got.Source != SourceNone {
				t.Errorf("Source = %q", got.Source)
			}
			if (got.Rejected != nil) != tt.rejected {
				t.Errorf("Rejected = %v, want rejected=%v", got.Rejected, tt.rejected)
			}
		})
	}
}

func TestParseRejectionErrors(t *testing.T) {
	got := Parse(`[1, 2]`)
	if !errors.Is(got.Rejected, ErrNotObject) {
		t.Errorf("Rejected = %v, want ErrNotObject", got.Rejected)
	}

	got = Parse(`{"action":"add","category":"work"}`)
	var ve *ValidationError
	if !errors.As(got.Rejected, &ve) {
		t.Fatalf("Rejected = %T %v, want *ValidationError", got.Rejected, got.Rejected)
	}
}

// TestParseCaseFoldedKeys tests that keys differing only in case resolve
// the same way on every run, with the canonical spelling winning.
func TestParseCaseFoldedKeys(t *testing.T) {
	raw := `{"Action":"delete","action":"add","TASK":"sell boat","task":"buy milk"}`
	want := Action{Type: ActionAdd, Task: "buy milk"}
	for i := 0; i < 50; i++ {
		got := Parse(raw)
		if !got.IsAction() {
			t.Fatalf("run %d: Parse = reply %q (rejected %v)", i, got.Reply, got.Rejected)
		}
		if got.Action.Type != want.Type || got.Action.Task != want.Task {
			t.Fatalf("run %d: got %+v, want %+v", i, *got.Action, want)
		}
	}

	raw = `{"TYPE":"delete","Type":"add","Task":"buy milk"}`
	for i := 0; i < 50; i++ {
		got := Parse(raw)
		// "TYPE" sorts before "Type"
		if !got.IsAction() || got.Action.Type != ActionDelete {
			t.Fatalf("run %d: got %+v, want delete from TYPE", i, got)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want task.Category
	}{
		{"Prepare presentation for client", task.CategoryWork},
		{"send email to Bob", task.CategoryWork},
		{"buy groceries", task.CategoryErrand},
		{"mail the package", task.CategoryErrand},
		{"go for a run", task.CategoryPersonal},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestJSONPointerToPath(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"#":             "",
		"/subtasks/0":   "subtasks[0]",
		"#/task":        "task",
		"/a~1b/c~0d/12": "a/b.c~d[12]",
	}
	for in, want := range tests {
		if got := jsonPointerToPath(in); got != want {
			t.Errorf("jsonPointerToPath(%q) = %q, want %q", in, got, want)
		}
	}
}
