// Package task owns the in-memory task forest.
//
// A task may own an ordered list of subtasks, which may own subtasks of
// their own. Tasks live in an arena keyed by id with a separate
// parent/children index, so lookups and mutations anywhere in the forest
// are map operations rather than recursive rebuilds:
//
//	roots:    [101, 205]
//	101 -> children [102, 103]
//	102 -> children []
//
// Ids are unique across the whole forest, not only among siblings. They
// are derived from the store clock in milliseconds and bumped when two
// tasks are created within the same millisecond.
//
// # Recurrence
//
// Completing a task that carries a recurrence rule leaves the completed
// task untouched (apart from the flag) and appends a fresh root task with
// the same text, category, priority and rule, due at the next occurrence
// computed by package recurrence.
//
// # Values
//
// Every read returns Task values that are deep copies of the arena state.
// Callers may keep or modify them freely; changes only reach the store
// through its mutation methods.
package task
