package command

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ActionSchema is the JSON Schema every normalized action must satisfy.
// The four shapes form a discriminated union on "action".
const ActionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Task action",
  "type": "object",
  "required": ["action"],
  "oneOf": [
    { "$ref": "#/$defs/add" },
    { "$ref": "#/$defs/edit" },
    { "$ref": "#/$defs/delete" },
    { "$ref": "#/$defs/subtasks" }
  ],
  "$defs": {
    "text": { "type": "string", "minLength": 1 },
    "category": { "type": "string", "enum": ["work", "personal", "errand"] },
    "priority": { "type": "string", "enum": ["low", "medium", "high"] },
    "add": {
      "type": "object",
      "required": ["action", "task"],
      "properties": {
        "action": { "const": "add" },
        "task": { "$ref": "#/$defs/text" },
        "category": { "$ref": "#/$defs/category" },
        "priority": { "$ref": "#/$defs/priority" },
        "dueDate": { "type": "string" },
        "recurring": { "type": "string" }
      }
    },
    "edit": {
      "type": "object",
      "required": ["action", "from", "to"],
      "properties": {
        "action": { "const": "edit" },
        "from": { "$ref": "#/$defs/text" },
        "to": { "$ref": "#/$defs/text" },
        "category": { "$ref": "#/$defs/category" },
        "priority": { "$ref": "#/$defs/priority" },
        "dueDate": { "type": "string" },
        "recurring": { "type": "string" }
      }
    },
    "delete": {
      "type": "object",
      "required": ["action", "task"],
      "properties": {
        "action": { "const": "delete" },
        "task": { "$ref": "#/$defs/text" }
      }
    },
    "subtasks": {
      "type": "object",
      "required": ["action", "parent", "subtasks"],
      "properties": {
        "action": { "const": "subtasks" },
        "parent": { "$ref": "#/$defs/text" },
        "subtasks": {
          "type": "array",
          "minItems": 1,
          "items": { "$ref": "#/$defs/text" }
        }
      }
    }
  }
}`

const schemaURL = "https://astrotask.local/schemas/action.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func actionSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, strings.NewReader(ActionSchema)); err != nil {
			schemaErr = fmt.Errorf("add action schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile action schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ValidationError reports why a decoded object is not an action.
type ValidationError struct {
	Path string // dotted path to the offending value
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// validate checks a canonical action object against ActionSchema and
// returns the first leaf error.
func validate(obj map[string]any) error {
	schema, err := actionSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(obj); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return &ValidationError{Err: err}
		}
		leaf := firstLeaf(ve)
		return &ValidationError{
			Path: jsonPointerToPath(leaf.InstanceLocation),
			Err:  fmt.Errorf("%s", leaf.Message),
		}
	}
	return nil
}

func firstLeaf(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(err.Causes) > 0 {
		err = err.Causes[0]
	}
	return err
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	path := ""
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}
	return path
}
