// Package reconcile computes which plan subtasks have no corresponding
// tracker issue. Matching is exact normalized title equality; fuzzy
// matching is deliberately excluded so the drafter can never be handed a
// subtask whose issue provably exists.
package reconcile

import (
	"strings"

	"ticketsmith/internal/plan"
	"ticketsmith/internal/tracker"
)

// NormalizeTitle lowers and trims a title for comparison. The same
// normalization governs reconciliation and the drafter's title check.
func NormalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Missing returns the subtasks with no matching issue title, in plan
// traversal order. When includeClosed is false only open issues
// participate in matching. Pure: neither input is mutated.
func Missing(p *plan.Plan, existing []tracker.Issue, includeClosed bool) []plan.Subtask {
	titles := make(map[string]bool, len(existing))
	for _, issue := range existing {
		if !includeClosed && issue.State != tracker.StateOpen {
			continue
		}
		titles[NormalizeTitle(issue.Title)] = true
	}

	var missing []plan.Subtask
	for _, st := range p.Subtasks() {
		if !titles[NormalizeTitle(st.Name)] {
			missing = append(missing, st)
		}
	}
	return missing
}
