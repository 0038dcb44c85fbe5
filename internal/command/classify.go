package command

import (
	"strings"

	"github.com/nibzard/astrotask/internal/task"
)

// Keyword lists are checked in order: work before errand, so "email"
// is not mistaken for "mail".
var (
	workKeywords = []string{
		"meeting", "email", "e-mail", "report", "project", "office",
		"presentation", "client", "deadline", "boss", "colleague", "invoice",
	}
	errandKeywords = []string{
		"buy", "store", "shop", "mail", "post office", "grocer", "laundry",
		"pick up", "pickup", "pharmacy", "bank", "errand",
	}
)

// Classify guesses a category from task text. It never fails; text
// matching no keyword is personal.
func Classify(text string) task.Category {
	s := strings.ToLower(text)
	for _, kw := range workKeywords {
		if strings.Contains(s, kw) {
			return task.CategoryWork
		}
	}
	for _, kw := range errandKeywords {
		if strings.Contains(s, kw) {
			return task.CategoryErrand
		}
	}
	return task.CategoryPersonal
}
