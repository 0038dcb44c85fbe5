// Package fuzzy resolves free-text task references to task ids.
package fuzzy

import (
	"strings"

	"github.com/nibzard/astrotask/internal/task"
)

const (
	// Threshold is the minimum score a winning candidate needs.
	Threshold = 0.5

	exactScore     = 1.0
	substringScore = 0.9
)

// Match is the best candidate for a query.
type Match struct {
	ID    int64
	Text  string
	Score float64
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Score rates how well candidate matches query, in [0, 1].
//
// Equal normalized strings score 1.0, containment in either direction
// 0.9 (by characters, so a single contained letter counts), otherwise
// the share of distinct words in common relative to the
// larger word set.
func Score(query, candidate string) float64 {
	q := normalize(query)
	c := normalize(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return exactScore
	}
	if strings.Contains(c, q) || strings.Contains(q, c) {
		return substringScore
	}
	return tokenOverlap(q, c)
}

func tokenOverlap(q, c string) float64 {
	qt := tokenSet(q)
	ct := tokenSet(c)
	if len(qt) == 0 || len(ct) == 0 {
		return 0
	}
	shared := 0
	for tok := range qt {
		if _, ok := ct[tok]; ok {
			shared++
		}
	}
	denom := len(qt)
	if len(ct) > denom {
		denom = len(ct)
	}
	return float64(shared) / float64(denom)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Accepts reports whether a winning score is good enough.
func Accepts(score float64) bool {
	return score >= Threshold
}

// Best returns the highest scoring candidate. Ties keep the earliest
// candidate in the given order. It reports false when tasks is empty or
// every candidate scores 0.
func Best(tasks []task.Task, query string) (Match, bool) {
	var best Match
	found := false
	for _, t := range tasks {
		s := Score(query, t.Text)
		if s == 0 {
			continue
		}
		if !found || s > best.Score {
			best = Match{ID: t.ID, Text: t.Text, Score: s}
			found = true
		}
	}
	return best, found
}

// Resolve returns the best candidate when it reaches Threshold.
// Pass the flattened forest so subtasks are candidates too.
func Resolve(tasks []task.Task, query string) (Match, bool) {
	m, ok := Best(tasks, query)
	if !ok || !Accepts(m.Score) {
		return Match{}, false
	}
	return m, true
}
