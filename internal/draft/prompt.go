package draft

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"ticketsmith/internal/plan"
	"ticketsmith/internal/tracker"
)

// systemInstruction is the fixed role and constraint preamble. The model
// phrases the tickets; the plan decides what gets ticketed.
const systemInstruction = `You are a project management assistant that drafts issue tracker tickets from an implementation plan.

Rules:
- Draft a ticket ONLY for subtasks listed under "Unmatched subtasks" below. Never invent tickets for other work.
- Never duplicate a ticket whose title already appears in the existing issue list.
- Never reopen or reference closed issues.
- Never assign tickets to anyone: "assignees" must always be an empty array.
- Every ticket's "state" must be "open".
- Use each subtask's name verbatim as the ticket title.
- Write the body from the subtask description plus its phase and task context, with a short acceptance criteria checklist.
- Estimate effort from the subtask's estimated points and reflect complexity in the body.
- Label by domain, starting from the subtask's labels.
- Set "milestone" to the subtask's phase name.`

// responseFormat describes the exact JSON contract expected back.
const responseFormat = `Return ONLY a JSON array with this exact structure (no other text):
[
  {
    "title": "Subtask name, verbatim",
    "body": "Detailed ticket body",
    "labels": ["domain-label"],
    "milestone": "Phase name",
    "assignees": [],
    "state": "open"
  }
]`

// promptSubtask is the YAML shape of one unmatched subtask in the prompt.
type promptSubtask struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	EstimatedPoints int      `yaml:"estimated_points"`
	Labels          []string `yaml:"labels,omitempty"`
	Task            string   `yaml:"task"`
	Phase           string   `yaml:"phase"`
}

// promptIssue is the JSON shape of one existing issue in the prompt.
// Bodies are omitted to keep the prompt bounded; titles are what the
// duplicate rule operates on.
type promptIssue struct {
	Title     string   `json:"title"`
	State     string   `json:"state"`
	Labels    []string `json:"labels,omitempty"`
	Milestone string   `json:"milestone,omitempty"`
}

// BuildPrompt assembles the single prompt: instruction, the unmatched
// subtasks serialized as YAML, the existing issues serialized as JSON,
// and the response format contract.
func BuildPrompt(unmatched []plan.Subtask, existing []tracker.Issue) (string, error) {
	subtasks := make([]promptSubtask, 0, len(unmatched))
	for _, st := range unmatched {
		subtasks = append(subtasks, promptSubtask{
			Name:            st.Name,
			Description:     st.Description,
			EstimatedPoints: st.EstimatedPoints,
			Labels:          st.Labels,
			Task:            st.TaskName,
			Phase:           st.PhaseName,
		})
	}
	planYAML, err := yaml.Marshal(subtasks)
	if err != nil {
		return "", fmt.Errorf("serializing plan excerpt: %w", err)
	}

	issues := make([]promptIssue, 0, len(existing))
	for _, issue := range existing {
		issues = append(issues, promptIssue{
			Title:     issue.Title,
			State:     issue.State,
			Labels:    issue.Labels,
			Milestone: issue.Milestone,
		})
	}
	issuesJSON, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing existing issues: %w", err)
	}

	return fmt.Sprintf("%s\n\nUnmatched subtasks (YAML):\n%s\nExisting issues (JSON):\n%s\n\n%s",
		systemInstruction, planYAML, issuesJSON, responseFormat), nil
}
