package tracker

// Issue is a tracker-side record as read from the API. Read-only to the
// reconciliation core.
type Issue struct {
	Number    int
	Title     string
	Body      string
	State     string
	Labels    []string
	Milestone string
	Assignees []string
}

// NewIssue is the payload for creating an issue. Milestone is the
// tracker-assigned milestone number; zero means none.
type NewIssue struct {
	Title     string
	Body      string
	Labels    []string
	Milestone int
	Assignees []string
}

// Milestone is a tracker milestone.
type Milestone struct {
	Number int
	Title  string
	State  string
}

// Issue states accepted by ListIssues.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"
)

// GitHub API wire structures.

type issueResponse struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Milestone *struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	} `json:"milestone"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
}

type milestoneResponse struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
}

type userResponse struct {
	Login string `json:"login"`
}

type createIssueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	Milestone int      `json:"milestone,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

type createMilestoneRequest struct {
	Title string `json:"title"`
}

func (r issueResponse) toIssue() Issue {
	issue := Issue{
		Number: r.Number,
		Title:  r.Title,
		Body:   r.Body,
		State:  r.State,
	}
	for _, l := range r.Labels {
		issue.Labels = append(issue.Labels, l.Name)
	}
	if r.Milestone != nil {
		issue.Milestone = r.Milestone.Title
	}
	for _, a := range r.Assignees {
		issue.Assignees = append(issue.Assignees, a.Login)
	}
	return issue
}
