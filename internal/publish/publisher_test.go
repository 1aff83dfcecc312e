package publish

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"ticketsmith/internal/draft"
	"ticketsmith/internal/retry"
	"ticketsmith/internal/tracker"
)

// fakeAPI records write calls and fails on demand.
type fakeAPI struct {
	createIssueCalls     int
	createMilestoneCalls map[string]int
	listMilestoneCalls   int
	milestones           []tracker.Milestone
	nextNumber           int

	// failIssue maps a title to the errors returned before succeeding.
	failIssue map[string][]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		createMilestoneCalls: make(map[string]int),
		failIssue:            make(map[string][]error),
		nextNumber:           100,
	}
}

func (f *fakeAPI) CreateIssue(_ context.Context, issue tracker.NewIssue) (*tracker.Issue, error) {
	f.createIssueCalls++
	if errs := f.failIssue[issue.Title]; len(errs) > 0 {
		err := errs[0]
		f.failIssue[issue.Title] = errs[1:]
		return nil, err
	}
	f.nextNumber++
	return &tracker.Issue{Number: f.nextNumber, Title: issue.Title, State: tracker.StateOpen}, nil
}

func (f *fakeAPI) ListMilestones(_ context.Context) ([]tracker.Milestone, error) {
	f.listMilestoneCalls++
	return f.milestones, nil
}

func (f *fakeAPI) CreateMilestone(_ context.Context, title string) (*tracker.Milestone, error) {
	f.createMilestoneCalls[title]++
	m := tracker.Milestone{Number: 50 + len(f.createMilestoneCalls), Title: title, State: tracker.StateOpen}
	f.milestones = append(f.milestones, m)
	return &m, nil
}

func noWaitPolicy() retry.Policy {
	return retry.Default().WithSleep(func(context.Context, time.Duration) error { return nil })
}

func testDrafts(n int) []draft.Draft {
	drafts := make([]draft.Draft, 0, n)
	for i := 0; i < n; i++ {
		drafts = append(drafts, draft.Draft{
			Title:     fmt.Sprintf("Subtask %d", i+1),
			Body:      "body",
			Labels:    []string{"backend"},
			Assignees: []string{},
			State:     tracker.StateOpen,
		})
	}
	return drafts
}

func TestPublish_DryRunMakesNoWriteCalls(t *testing.T) {
	api := newFakeAPI()
	p := New(api, noWaitPolicy())

	results, err := p.Publish(context.Background(), testDrafts(3), Policy{DryRun: true, MaxNewTickets: 10})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if api.createIssueCalls != 0 || api.listMilestoneCalls != 0 {
		t.Errorf("dry run made API calls: issues=%d milestones=%d", api.createIssueCalls, api.listMilestoneCalls)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Outcome != OutcomeSkipped || r.Reason != ReasonDryRun {
			t.Errorf("results[%d] = %s/%s, want skipped/dry run", i, r.Outcome, r.Reason)
		}
	}
}

func TestPublish_MaxNewTicketsLimit(t *testing.T) {
	api := newFakeAPI()
	p := New(api, noWaitPolicy())

	results, err := p.Publish(context.Background(), testDrafts(5), Policy{MaxNewTickets: 2})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}

	counts := Tally(results)
	if counts.Created != 2 {
		t.Errorf("created = %d, want 2", counts.Created)
	}
	if counts.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", counts.Skipped)
	}
	for _, r := range results[2:] {
		if r.Outcome != OutcomeSkipped || r.Reason != ReasonPolicyLimited {
			t.Errorf("%q = %s/%s, want skipped/policy-limited", r.Draft.Title, r.Outcome, r.Reason)
		}
	}
	if api.createIssueCalls != 2 {
		t.Errorf("createIssueCalls = %d, want 2", api.createIssueCalls)
	}
}

func TestPublish_ResultsPreserveInputOrder(t *testing.T) {
	api := newFakeAPI()
	p := New(api, noWaitPolicy())

	drafts := testDrafts(4)
	results, err := p.Publish(context.Background(), drafts, Policy{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	for i := range drafts {
		if results[i].Draft.Title != drafts[i].Title {
			t.Errorf("results[%d] = %q, want %q", i, results[i].Draft.Title, drafts[i].Title)
		}
	}
}

func TestPublish_TransientFailureRetriedThenSucceeds(t *testing.T) {
	api := newFakeAPI()
	api.failIssue["Subtask 1"] = []error{
		&tracker.APIError{StatusCode: http.StatusTooManyRequests, Message: "rate limited"},
	}
	p := New(api, noWaitPolicy())

	results, err := p.Publish(context.Background(), testDrafts(1), Policy{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if results[0].Outcome != OutcomeCreated {
		t.Errorf("outcome = %s, want created (err=%v)", results[0].Outcome, results[0].Err)
	}
	// One failed attempt plus one successful retry.
	if api.createIssueCalls != 2 {
		t.Errorf("createIssueCalls = %d, want 2", api.createIssueCalls)
	}
}

func TestPublish_ValidationErrorFailsWithoutRetry(t *testing.T) {
	api := newFakeAPI()
	api.failIssue["Subtask 1"] = []error{
		&tracker.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "Validation Failed"},
		&tracker.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "Validation Failed"},
	}
	p := New(api, noWaitPolicy())

	results, err := p.Publish(context.Background(), testDrafts(2), Policy{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if results[0].Outcome != OutcomeFailed {
		t.Errorf("results[0] = %s, want failed", results[0].Outcome)
	}
	if results[0].Err == nil {
		t.Error("failed result should carry its error")
	}
	// The batch continues past a per-item failure.
	if results[1].Outcome != OutcomeCreated {
		t.Errorf("results[1] = %s, want created", results[1].Outcome)
	}
	// 1 non-retried failure + 1 success for the second draft.
	if api.createIssueCalls != 2 {
		t.Errorf("createIssueCalls = %d, want 2 (no retry on 422)", api.createIssueCalls)
	}
}

func TestPublish_FailedItemDoesNotCountTowardLimit(t *testing.T) {
	api := newFakeAPI()
	api.failIssue["Subtask 1"] = []error{
		&tracker.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "bad"},
	}
	p := New(api, noWaitPolicy())

	results, err := p.Publish(context.Background(), testDrafts(3), Policy{MaxNewTickets: 2})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	counts := Tally(results)
	if counts.Failed != 1 || counts.Created != 2 {
		t.Errorf("counts = %+v, want 1 failed and 2 created", counts)
	}
}

func TestPublish_MilestoneCreatedOncePerName(t *testing.T) {
	api := newFakeAPI()
	p := New(api, noWaitPolicy())

	drafts := testDrafts(3)
	for i := range drafts {
		drafts[i].Milestone = "Phase 1"
	}

	results, err := p.Publish(context.Background(), drafts, Policy{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	for _, r := range results {
		if r.Outcome != OutcomeCreated {
			t.Errorf("%q = %s, want created", r.Draft.Title, r.Outcome)
		}
	}

	if api.createMilestoneCalls["Phase 1"] != 1 {
		t.Errorf("milestone created %d times, want 1", api.createMilestoneCalls["Phase 1"])
	}
	if api.listMilestoneCalls != 1 {
		t.Errorf("milestones listed %d times, want 1", api.listMilestoneCalls)
	}
}

func TestPublish_ExistingMilestoneReused(t *testing.T) {
	api := newFakeAPI()
	api.milestones = []tracker.Milestone{{Number: 7, Title: "Phase 1", State: tracker.StateOpen}}
	p := New(api, noWaitPolicy())

	drafts := testDrafts(1)
	drafts[0].Milestone = "Phase 1"

	if _, err := p.Publish(context.Background(), drafts, Policy{}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(api.createMilestoneCalls) != 0 {
		t.Errorf("existing milestone should not be re-created, calls=%v", api.createMilestoneCalls)
	}
}

func TestPublish_EmptyDrafts(t *testing.T) {
	p := New(newFakeAPI(), noWaitPolicy())

	results, err := p.Publish(context.Background(), nil, Policy{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestTally(t *testing.T) {
	results := []Result{
		{Outcome: OutcomeCreated},
		{Outcome: OutcomeSkipped},
		{Outcome: OutcomeSkipped},
		{Outcome: OutcomeFailed},
	}
	c := Tally(results)
	if c.Created != 1 || c.Skipped != 2 || c.Failed != 1 {
		t.Errorf("Tally = %+v, want 1/2/1", c)
	}
}
