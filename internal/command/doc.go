// Package command extracts structured task actions from assistant text.
//
// The language model is asked to answer task requests with a single JSON
// object in one of four shapes:
//
//	{ "action": "add", "task": "<text>", "category"?, "priority"?, "dueDate"?, "recurring"? }
//	{ "action": "edit", "from": "<text>", "to": "<text>", "category"?, "priority"?, "dueDate"?, "recurring"? }
//	{ "action": "delete", "task": "<text>" }
//	{ "action": "subtasks", "parent": "<text>", "subtasks": ["<text>", ...] }
//
// Models wrap that object in prose and code fences, rename fields and
// invent enum values, so parsing is a pipeline:
//
//  1. extraction: trim, strip fences, cut the first "{" .. last "}" span
//  2. strict decoding with encoding/json
//  3. normalization of key and value aliases ("type" -> "action",
//     "remove" -> "delete", "steps" -> "subtasks", unknown enums dropped)
//  4. validation against ActionSchema, a JSON Schema discriminated union
//
// Objects that decode but fail normalization or validation are plain
// replies. Text that does not decode at all gets one more chance through a
// quoted add phrase (add task "buy milk"), classified into a category by
// keywords.
package command
