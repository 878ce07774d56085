// Package github provides the hosting-API client used by the metric calculators.
package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v62/github"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/netscore/internal/resilience"
)

// ErrMissingToken is returned by every call when no API token is configured.
var ErrMissingToken = eris.New("github: token not configured")

// Repo identifies a repository on the hosting platform.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// URL is the canonical https clone URL of the repository.
func (r Repo) URL() string {
	return "https://github.com/" + r.String()
}

// ParseRepo extracts owner/name from a https://github.com/ URL. Trailing
// path segments, slashes and a .git suffix are ignored.
func ParseRepo(rawURL string) (Repo, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Repo{}, eris.Wrapf(err, "github: parse %q", rawURL)
	}
	if !strings.EqualFold(u.Host, "github.com") && !strings.EqualFold(u.Host, "www.github.com") {
		return Repo{}, eris.Errorf("github: %q is not a github.com URL", rawURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, eris.Errorf("github: %q has no owner/repository path", rawURL)
	}
	return Repo{Owner: parts[0], Name: strings.TrimSuffix(parts[1], ".git")}, nil
}

// Contributor is one entry of the contributor list.
type Contributor struct {
	Login         string
	Contributions int
}

// Issue is an issue or pull request as returned by the issues endpoint.
type Issue struct {
	Number        int
	IsPullRequest bool
	ClosedAt      time.Time
}

// PullRequest is a pull request summary.
type PullRequest struct {
	Number         int
	MergeCommitSHA string
	ClosedAt       time.Time
}

// FileDiff is the per-file change count of a commit or pull request.
type FileDiff struct {
	Filename string
	Changes  int
}

// Commit is a commit with its message and, when fetched individually, its files.
type Commit struct {
	SHA     string
	Message string
	Files   []FileDiff
}

// Client defines the hosting-API operations the calculators need.
type Client interface {
	// HasToken reports whether API credentials are configured.
	HasToken() bool
	// ListContributors returns one page of contributors.
	ListContributors(ctx context.Context, repo Repo, page, perPage int) ([]Contributor, error)
	// ListIssues returns issues (including pull requests) in state, updated since the given time when non-zero.
	ListIssues(ctx context.Context, repo Repo, state string, since time.Time) ([]Issue, error)
	// ListPullRequests returns pull requests in state, most recently updated first.
	ListPullRequests(ctx context.Context, repo Repo, state string) ([]PullRequest, error)
	// ListPullRequestFiles returns the file diffs of a pull request.
	ListPullRequestFiles(ctx context.Context, repo Repo, number int) ([]FileDiff, error)
	// ListCommits returns recent commits on the default branch.
	ListCommits(ctx context.Context, repo Repo) ([]Commit, error)
	// GetCommit returns one commit including its file diffs.
	GetCommit(ctx context.Context, repo Repo, sha string) (*Commit, error)
	// GetFileContents returns the decoded contents of a file at the repository root or a path.
	GetFileContents(ctx context.Context, repo Repo, path string) ([]byte, error)
	// GetReadme returns the decoded contents of the repository README.
	GetReadme(ctx context.Context, repo Repo) ([]byte, error)
}

// Option configures the client.
type Option func(*apiClient)

// WithBaseURL points the client at a different API root (tests, GHES).
func WithBaseURL(u string) Option {
	return func(c *apiClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *apiClient) {
		c.http = hc
	}
}

// WithRateLimit paces requests to rps per second.
func WithRateLimit(rps float64) Option {
	return func(c *apiClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *apiClient) {
		c.retry = cfg
	}
}

// WithPageSize sets the page size for list endpoints.
func WithPageSize(n int) Option {
	return func(c *apiClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

type apiClient struct {
	token    string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
	pageSize int
	gh       *gogithub.Client
}

// NewClient creates a hosting-API client. An empty token yields a client
// whose calls all fail with ErrMissingToken.
func NewClient(token string, opts ...Option) (Client, error) {
	c := &apiClient{
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(10, 10),
		retry:    resilience.DefaultRetryConfig(),
		pageSize: 100,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.gh = gogithub.NewClient(c.http)
	if c.token != "" {
		c.gh = c.gh.WithAuthToken(c.token)
	}
	if c.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(c.baseURL, "/") + "/")
		if err != nil {
			return nil, eris.Wrapf(err, "github: parse base url %q", c.baseURL)
		}
		c.gh.BaseURL = u
	}
	return c, nil
}

func (c *apiClient) HasToken() bool {
	return c.token != ""
}

// call paces, retries and classifies a single API request.
func call[T any](ctx context.Context, c *apiClient, op string, fn func(ctx context.Context) (T, *gogithub.Response, error)) (T, error) {
	var zero T
	if c.token == "" {
		return zero, ErrMissingToken
	}

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("github", op)

	val, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		v, resp, err := fn(ctx)
		if err != nil {
			return zero, classify(resp, err)
		}
		return v, nil
	})
	if err != nil {
		return zero, eris.Wrapf(err, "github: %s", op)
	}
	return val, nil
}

// classify marks rate limits and server errors as transient.
func classify(resp *gogithub.Response, err error) error {
	var rl *gogithub.RateLimitError
	var abuse *gogithub.AbuseRateLimitError
	if errors.As(err, &rl) || errors.As(err, &abuse) {
		return resilience.NewTransientError(err, http.StatusTooManyRequests)
	}
	if resp != nil && resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(err, resp.StatusCode)
	}
	return err
}

func (c *apiClient) ListContributors(ctx context.Context, repo Repo, page, perPage int) ([]Contributor, error) {
	if perPage <= 0 {
		perPage = c.pageSize
	}
	raw, err := call(ctx, c, "list contributors", func(ctx context.Context) ([]*gogithub.Contributor, *gogithub.Response, error) {
		return c.gh.Repositories.ListContributors(ctx, repo.Owner, repo.Name, &gogithub.ListContributorsOptions{
			ListOptions: gogithub.ListOptions{Page: page, PerPage: perPage},
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]Contributor, 0, len(raw))
	for _, rc := range raw {
		out = append(out, Contributor{Login: rc.GetLogin(), Contributions: rc.GetContributions()})
	}
	return out, nil
}

func (c *apiClient) ListIssues(ctx context.Context, repo Repo, state string, since time.Time) ([]Issue, error) {
	raw, err := call(ctx, c, "list issues", func(ctx context.Context) ([]*gogithub.Issue, *gogithub.Response, error) {
		return c.gh.Issues.ListByRepo(ctx, repo.Owner, repo.Name, &gogithub.IssueListByRepoOptions{
			State:       state,
			Since:       since,
			ListOptions: gogithub.ListOptions{PerPage: c.pageSize},
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]Issue, 0, len(raw))
	for _, ri := range raw {
		out = append(out, Issue{
			Number:        ri.GetNumber(),
			IsPullRequest: ri.IsPullRequest(),
			ClosedAt:      ri.GetClosedAt().Time,
		})
	}
	return out, nil
}

func (c *apiClient) ListPullRequests(ctx context.Context, repo Repo, state string) ([]PullRequest, error) {
	raw, err := call(ctx, c, "list pull requests", func(ctx context.Context) ([]*gogithub.PullRequest, *gogithub.Response, error) {
		return c.gh.PullRequests.List(ctx, repo.Owner, repo.Name, &gogithub.PullRequestListOptions{
			State:       state,
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: gogithub.ListOptions{PerPage: c.pageSize},
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]PullRequest, 0, len(raw))
	for _, pr := range raw {
		out = append(out, PullRequest{
			Number:         pr.GetNumber(),
			MergeCommitSHA: pr.GetMergeCommitSHA(),
			ClosedAt:       pr.GetClosedAt().Time,
		})
	}
	return out, nil
}

func (c *apiClient) ListPullRequestFiles(ctx context.Context, repo Repo, number int) ([]FileDiff, error) {
	raw, err := call(ctx, c, "list pull request files", func(ctx context.Context) ([]*gogithub.CommitFile, *gogithub.Response, error) {
		return c.gh.PullRequests.ListFiles(ctx, repo.Owner, repo.Name, number, &gogithub.ListOptions{PerPage: c.pageSize})
	})
	if err != nil {
		return nil, err
	}
	return toDiffs(raw), nil
}

func (c *apiClient) ListCommits(ctx context.Context, repo Repo) ([]Commit, error) {
	raw, err := call(ctx, c, "list commits", func(ctx context.Context) ([]*gogithub.RepositoryCommit, *gogithub.Response, error) {
		return c.gh.Repositories.ListCommits(ctx, repo.Owner, repo.Name, &gogithub.CommitsListOptions{
			ListOptions: gogithub.ListOptions{PerPage: c.pageSize},
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]Commit, 0, len(raw))
	for _, rc := range raw {
		out = append(out, toCommit(rc))
	}
	return out, nil
}

func (c *apiClient) GetCommit(ctx context.Context, repo Repo, sha string) (*Commit, error) {
	raw, err := call(ctx, c, "get commit", func(ctx context.Context) (*gogithub.RepositoryCommit, *gogithub.Response, error) {
		return c.gh.Repositories.GetCommit(ctx, repo.Owner, repo.Name, sha, &gogithub.ListOptions{})
	})
	if err != nil {
		return nil, err
	}
	commit := toCommit(raw)
	return &commit, nil
}

func (c *apiClient) GetFileContents(ctx context.Context, repo Repo, path string) ([]byte, error) {
	file, err := call(ctx, c, "get contents "+path, func(ctx context.Context) (*gogithub.RepositoryContent, *gogithub.Response, error) {
		file, _, resp, err := c.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, &gogithub.RepositoryContentGetOptions{})
		return file, resp, err
	})
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, eris.Errorf("github: %s in %s is a directory", path, repo)
	}
	return decode(file, path)
}

func (c *apiClient) GetReadme(ctx context.Context, repo Repo) ([]byte, error) {
	file, err := call(ctx, c, "get readme", func(ctx context.Context) (*gogithub.RepositoryContent, *gogithub.Response, error) {
		return c.gh.Repositories.GetReadme(ctx, repo.Owner, repo.Name, &gogithub.RepositoryContentGetOptions{})
	})
	if err != nil {
		return nil, err
	}
	return decode(file, "README")
}

func decode(file *gogithub.RepositoryContent, path string) ([]byte, error) {
	content, err := file.GetContent()
	if err != nil {
		return nil, eris.Wrapf(err, "github: decode %s", path)
	}
	return []byte(content), nil
}

func toDiffs(files []*gogithub.CommitFile) []FileDiff {
	out := make([]FileDiff, 0, len(files))
	for _, f := range files {
		out = append(out, FileDiff{Filename: f.GetFilename(), Changes: f.GetChanges()})
	}
	return out
}

func toCommit(rc *gogithub.RepositoryCommit) Commit {
	return Commit{
		SHA:     rc.GetSHA(),
		Message: rc.GetCommit().GetMessage(),
		Files:   toDiffs(rc.Files),
	}
}
