// Package publish creates drafted issues through the tracker API under a
// run policy: dry-run short-circuits every write, max-new-tickets caps
// successful creations, transient failures are retried, and every draft
// comes back with an outcome so nothing is silently dropped.
package publish

import (
	"context"
	"fmt"
	"log"

	"ticketsmith/internal/draft"
	"ticketsmith/internal/retry"
	"ticketsmith/internal/tracker"
)

// Outcome classifies what happened to a single draft.
type Outcome string

const (
	// OutcomeCreated means the tracker accepted the issue.
	OutcomeCreated Outcome = "created"
	// OutcomeSkipped means no creation was attempted (dry run or policy limit).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means creation was attempted and failed.
	OutcomeFailed Outcome = "failed"
)

// Skip reasons surfaced in the report.
const (
	ReasonDryRun        = "dry run"
	ReasonPolicyLimited = "policy-limited"
	ReasonNoDraft       = "no draft produced"
)

// Result is the per-draft outcome, returned in input order.
type Result struct {
	Draft       draft.Draft
	Outcome     Outcome
	IssueNumber int
	Reason      string
	Err         error
}

// Policy limits a publish run.
type Policy struct {
	// DryRun reports what would be created without any write call.
	DryRun bool
	// MaxNewTickets caps successful creations per run. Zero or negative
	// means unlimited.
	MaxNewTickets int
}

// API is the tracker surface the publisher writes through.
type API interface {
	CreateIssue(ctx context.Context, issue tracker.NewIssue) (*tracker.Issue, error)
	ListMilestones(ctx context.Context) ([]tracker.Milestone, error)
	CreateMilestone(ctx context.Context, title string) (*tracker.Milestone, error)
}

// Publisher applies policy and creates drafted issues sequentially.
type Publisher struct {
	api   API
	retry retry.Policy

	// milestones caches title -> number for the run so each distinct
	// milestone name is created at most once.
	milestones map[string]int
	loaded     bool
}

// New creates a Publisher. The retry policy is applied to both issue and
// milestone creation; only transient tracker errors are retried.
func New(api API, policy retry.Policy) *Publisher {
	if policy.Retryable == nil {
		policy.Retryable = tracker.IsTransient
	}
	return &Publisher{api: api, retry: policy}
}

// Publish creates the drafts in input order. One Result per draft comes
// back in the same order. A per-item failure never aborts the batch; the
// returned error is reserved for context cancellation.
func (p *Publisher) Publish(ctx context.Context, drafts []draft.Draft, policy Policy) ([]Result, error) {
	results := make([]Result, 0, len(drafts))

	if policy.DryRun {
		for _, d := range drafts {
			results = append(results, Result{Draft: d, Outcome: OutcomeSkipped, Reason: ReasonDryRun})
		}
		return results, nil
	}

	created := 0
	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if policy.MaxNewTickets > 0 && created >= policy.MaxNewTickets {
			results = append(results, Result{Draft: d, Outcome: OutcomeSkipped, Reason: ReasonPolicyLimited})
			continue
		}

		issue, err := p.createIssue(ctx, d)
		if err != nil {
			log.Printf("[publish] %q failed: %v", d.Title, err)
			results = append(results, Result{Draft: d, Outcome: OutcomeFailed, Err: err})
			continue
		}

		created++
		results = append(results, Result{Draft: d, Outcome: OutcomeCreated, IssueNumber: issue.Number})
	}

	return results, nil
}

// createIssue resolves the draft's milestone and creates the issue with
// retry on transient failures.
func (p *Publisher) createIssue(ctx context.Context, d draft.Draft) (*tracker.Issue, error) {
	milestone := 0
	if d.Milestone != "" {
		number, err := p.resolveMilestone(ctx, d.Milestone)
		if err != nil {
			return nil, fmt.Errorf("resolving milestone %q: %w", d.Milestone, err)
		}
		milestone = number
	}

	payload := tracker.NewIssue{
		Title:     d.Title,
		Body:      d.Body,
		Labels:    d.Labels,
		Milestone: milestone,
		Assignees: d.Assignees,
	}

	var issue *tracker.Issue
	err := p.retry.Do(ctx, fmt.Sprintf("create issue %q", d.Title), func(ctx context.Context) error {
		var err error
		issue, err = p.api.CreateIssue(ctx, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// resolveMilestone returns the milestone number for a title, creating the
// milestone if the tracker has none with that name. The cache guarantees
// at most one create per distinct name per run; reruns find the milestone
// in the initial listing instead.
func (p *Publisher) resolveMilestone(ctx context.Context, title string) (int, error) {
	if !p.loaded {
		var existing []tracker.Milestone
		err := p.retry.Do(ctx, "list milestones", func(ctx context.Context) error {
			var err error
			existing, err = p.api.ListMilestones(ctx)
			return err
		})
		if err != nil {
			return 0, err
		}
		p.milestones = make(map[string]int, len(existing))
		for _, m := range existing {
			p.milestones[m.Title] = m.Number
		}
		p.loaded = true
	}

	if number, ok := p.milestones[title]; ok {
		return number, nil
	}

	var created *tracker.Milestone
	err := p.retry.Do(ctx, fmt.Sprintf("create milestone %q", title), func(ctx context.Context) error {
		var err error
		created, err = p.api.CreateMilestone(ctx, title)
		return err
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[publish] created milestone %q (#%d)", title, created.Number)
	p.milestones[title] = created.Number
	return created.Number, nil
}

// Counts tallies results by outcome for the run report.
type Counts struct {
	Created int
	Skipped int
	Failed  int
}

// Tally counts outcomes across results.
func Tally(results []Result) Counts {
	var c Counts
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCreated:
			c.Created++
		case OutcomeSkipped:
			c.Skipped++
		case OutcomeFailed:
			c.Failed++
		}
	}
	return c
}
