package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ticketsmith/internal/plan"
	"ticketsmith/internal/reconcile"
	"ticketsmith/internal/retry"
	"ticketsmith/internal/tracker"
)

// Draft is a proposed issue not yet persisted to the tracker.
type Draft struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels"`
	Milestone string   `json:"milestone,omitempty"`
	Assignees []string `json:"assignees"`
	State     string   `json:"state"`
}

// GenerationError means the model was unreachable or its response could
// not be used at all. Fatal for the run: no partial ticket set is
// fabricated from a broken response.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("draft generation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("draft generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Drafter sends unmatched subtasks to the model and validates the
// response into drafts.
type Drafter struct {
	model Completer
	retry retry.Policy
}

// NewDrafter creates a Drafter using the given model and retry policy.
func NewDrafter(model Completer, policy retry.Policy) *Drafter {
	return &Drafter{model: model, retry: policy}
}

// Draft generates one draft per unmatched subtask. Model output is
// advisory: objects with a bad shape are dropped with a warning, objects
// whose title is not an unmatched subtask name are discarded, and a
// response with no JSON array at all fails the run after retries.
func (d *Drafter) Draft(ctx context.Context, unmatched []plan.Subtask, existing []tracker.Issue) ([]Draft, error) {
	if len(unmatched) == 0 {
		return nil, nil
	}

	prompt, err := BuildPrompt(unmatched, existing)
	if err != nil {
		return nil, &GenerationError{Reason: "building prompt", Err: err}
	}

	var parsed []Draft
	err = d.retry.Do(ctx, "draft tickets", func(ctx context.Context) error {
		raw, err := d.model.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		parsed, err = ParseResponse(raw)
		return err
	})
	if err != nil {
		return nil, &GenerationError{Reason: "model response unusable", Err: err}
	}

	drafts := filterToUnmatched(parsed, unmatched)
	if len(drafts) == 0 {
		return nil, &GenerationError{Reason: "no draft matched an unmatched subtask"}
	}
	return drafts, nil
}

// ParseResponse extracts the JSON array from the raw model text and
// schema-validates each object. Individually malformed objects are
// dropped and logged; a response without a parseable array is an error.
func ParseResponse(response string) ([]Draft, error) {
	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return nil, fmt.Errorf("no JSON array found in response (got %d chars): %q", len(response), preview)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal JSON array: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty draft array returned")
	}

	var drafts []Draft
	for i, msg := range raw {
		var draft Draft
		if err := json.Unmarshal(msg, &draft); err != nil {
			log.Printf("[draft] dropping object %d: not an object: %v", i, err)
			continue
		}
		if err := validateDraft(draft); err != nil {
			log.Printf("[draft] dropping %q: %v", draft.Title, err)
			continue
		}
		draft.Title = strings.TrimSpace(draft.Title)
		if draft.Labels == nil {
			draft.Labels = []string{}
		}
		draft.Assignees = []string{}
		drafts = append(drafts, draft)
	}

	if len(drafts) == 0 {
		return nil, fmt.Errorf("no valid draft in array of %d objects", len(raw))
	}
	return drafts, nil
}

// validateDraft checks the per-object contract from the model.
func validateDraft(d Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("empty title")
	}
	if len(d.Assignees) > 0 {
		return fmt.Errorf("assignees must be empty, got %v", d.Assignees)
	}
	if d.State != tracker.StateOpen {
		return fmt.Errorf("state must be %q, got %q", tracker.StateOpen, d.State)
	}
	return nil
}

// Omitted returns the unmatched subtasks for which no draft exists,
// compared by normalized title. Callers report these so a partial model
// response never shrinks the ticket set without a trace.
func Omitted(unmatched []plan.Subtask, drafts []Draft) []plan.Subtask {
	drafted := make(map[string]bool, len(drafts))
	for _, d := range drafts {
		drafted[reconcile.NormalizeTitle(d.Title)] = true
	}

	var omitted []plan.Subtask
	for _, st := range unmatched {
		if !drafted[reconcile.NormalizeTitle(st.Name)] {
			omitted = append(omitted, st)
		}
	}
	return omitted
}

// filterToUnmatched discards drafts whose title does not normalize to an
// unmatched subtask name. The plan is authoritative for what gets
// ticketed; the model only for how it is phrased.
func filterToUnmatched(drafts []Draft, unmatched []plan.Subtask) []Draft {
	allowed := make(map[string]bool, len(unmatched))
	for _, st := range unmatched {
		allowed[reconcile.NormalizeTitle(st.Name)] = true
	}

	var kept []Draft
	for _, d := range drafts {
		if !allowed[reconcile.NormalizeTitle(d.Title)] {
			log.Printf("[draft] discarding %q: title is not an unmatched subtask", d.Title)
			continue
		}
		kept = append(kept, d)
	}
	return kept
}
