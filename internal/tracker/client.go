// Package tracker is a GitHub REST v3 client covering the issue and
// milestone operations the sync pipeline needs. Pagination is exhausted
// here so callers always see the full issue list.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// perPage is the GitHub maximum page size.
const perPage = 100

// APIError is a non-2xx response from the tracker.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: status %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether the error signals backoff-and-retry.
// GitHub uses 403 as well as 429 for rate limiting; 5xx is server trouble.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusForbidden ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// IsTransient reports whether err is a transient tracker error.
// Network-level failures (no status code at all) also count.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Client handles GitHub API operations using direct HTTP calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	owner      string
	repo       string
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Token is a pre-obtained personal access token.
	Token string
	// Repository is "owner/repo".
	Repository string
	// BaseURL overrides the API endpoint for GitHub Enterprise.
	// Empty means api.github.com.
	BaseURL string
}

// NewClient creates a GitHub client for a single repository.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	owner, repo, ok := strings.Cut(cfg.Repository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("repository must be in owner/repo form, got %q", cfg.Repository)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      cfg.Token,
		owner:      owner,
		repo:       repo,
	}, nil
}

// do performs an authenticated request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "ticketsmith")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) repoURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s%s", c.baseURL, c.owner, c.repo, path)
}

// ListIssues fetches all issues in the given state (open, closed, or all),
// exhausting pagination. Pull requests, which GitHub reports through the
// same endpoint, are filtered out.
func (c *Client) ListIssues(ctx context.Context, state string) ([]Issue, error) {
	if state == "" {
		state = StateOpen
	}

	var issues []Issue
	for page := 1; ; page++ {
		url := c.repoURL(fmt.Sprintf("/issues?state=%s&per_page=%d&page=%d", state, perPage, page))

		var pageIssues []issueResponse
		if err := c.do(ctx, http.MethodGet, url, nil, &pageIssues); err != nil {
			return nil, fmt.Errorf("listing issues (page %d): %w", page, err)
		}

		for _, r := range pageIssues {
			if r.PullRequest != nil {
				continue
			}
			issues = append(issues, r.toIssue())
		}

		if len(pageIssues) < perPage {
			break
		}
	}
	return issues, nil
}

// CreateIssue creates a new issue and returns the tracker's record of it.
func (c *Client) CreateIssue(ctx context.Context, issue NewIssue) (*Issue, error) {
	req := createIssueRequest{
		Title:     issue.Title,
		Body:      issue.Body,
		Labels:    issue.Labels,
		Milestone: issue.Milestone,
		Assignees: issue.Assignees,
	}

	var created issueResponse
	if err := c.do(ctx, http.MethodPost, c.repoURL("/issues"), req, &created); err != nil {
		return nil, fmt.Errorf("creating issue %q: %w", issue.Title, err)
	}
	result := created.toIssue()
	return &result, nil
}

// ListMilestones fetches all milestones regardless of state.
func (c *Client) ListMilestones(ctx context.Context) ([]Milestone, error) {
	var milestones []Milestone
	for page := 1; ; page++ {
		url := c.repoURL(fmt.Sprintf("/milestones?state=all&per_page=%d&page=%d", perPage, page))

		var pageMilestones []milestoneResponse
		if err := c.do(ctx, http.MethodGet, url, nil, &pageMilestones); err != nil {
			return nil, fmt.Errorf("listing milestones (page %d): %w", page, err)
		}

		for _, m := range pageMilestones {
			milestones = append(milestones, Milestone(m))
		}

		if len(pageMilestones) < perPage {
			break
		}
	}
	return milestones, nil
}

// CreateMilestone creates a milestone with the given title.
func (c *Client) CreateMilestone(ctx context.Context, title string) (*Milestone, error) {
	var created milestoneResponse
	if err := c.do(ctx, http.MethodPost, c.repoURL("/milestones"), createMilestoneRequest{Title: title}, &created); err != nil {
		return nil, fmt.Errorf("creating milestone %q: %w", title, err)
	}
	m := Milestone(created)
	return &m, nil
}

// Viewer returns the login of the authenticated user. Used by the check
// command to verify the token.
func (c *Client) Viewer(ctx context.Context) (string, error) {
	var user userResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/user", nil, &user); err != nil {
		return "", fmt.Errorf("fetching authenticated user: %w", err)
	}
	return user.Login, nil
}
