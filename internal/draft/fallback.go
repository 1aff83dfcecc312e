package draft

import (
	"fmt"
	"strings"

	"ticketsmith/internal/plan"
	"ticketsmith/internal/tracker"
)

// FromSubtask builds a draft locally, without the model. Used for dry
// runs, where the pipeline reports what it would create without spending
// a model call.
func FromSubtask(st plan.Subtask) Draft {
	labels := make([]string, len(st.Labels))
	copy(labels, st.Labels)

	return Draft{
		Title:     st.Name,
		Body:      bodyFor(st),
		Labels:    labels,
		Milestone: st.PhaseName,
		Assignees: []string{},
		State:     tracker.StateOpen,
	}
}

// FromSubtasks maps FromSubtask over a slice, preserving order.
func FromSubtasks(subtasks []plan.Subtask) []Draft {
	drafts := make([]Draft, 0, len(subtasks))
	for _, st := range subtasks {
		drafts = append(drafts, FromSubtask(st))
	}
	return drafts
}

// complexity bands a point estimate for the ticket body.
func complexity(points int) string {
	switch {
	case points <= 2:
		return "low"
	case points <= 5:
		return "medium"
	default:
		return "high"
	}
}

func bodyFor(st plan.Subtask) string {
	return fmt.Sprintf(`This subtask belongs to:
- Phase: %s
- Task: %s

Objective:
%s

Estimated Story Points: %d
Labels: %s
Complexity: %s

Acceptance Criteria:
- [ ] Complete the described functionality
- [ ] Ensure code quality and documentation
- [ ] Test the implementation
- [ ] Update any related documentation`,
		st.PhaseName, st.TaskName, st.Description,
		st.EstimatedPoints, strings.Join(st.Labels, ", "), complexity(st.EstimatedPoints))
}
