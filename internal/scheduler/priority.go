package scheduler

import (
	"strings"

	"github.com/taskpilot/taskpilot/internal/domain"
)

// Descriptions mentioning any of these are floored at priority 4.
var urgencyKeywords = []string{"urgent", "asap", "critical", "important"}

// Word count above which a description bumps priority by one.
const longDescriptionWords = 50

// EvaluatePriority re-scores a task from its description. Urgency
// keywords raise the priority to at least 4; a long description adds
// one more, capped at the maximum. The result never drops below the
// task's current priority.
func EvaluatePriority(t domain.Task) int {
	desc := strings.ToLower(t.Description)
	priority := t.Priority

	for _, kw := range urgencyKeywords {
		if strings.Contains(desc, kw) {
			if priority < 4 {
				priority = 4
			}
			break
		}
	}

	if len(strings.Fields(desc)) > longDescriptionWords {
		priority++
	}

	return domain.ClampPriority(priority)
}
