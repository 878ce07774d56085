package metrics

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/netscore/pkg/github"
)

// mockGitHub implements github.Client for testing.
type mockGitHub struct {
	mock.Mock
}

func (m *mockGitHub) HasToken() bool {
	return m.Called().Bool(0)
}

func (m *mockGitHub) ListContributors(ctx context.Context, repo github.Repo, page, perPage int) ([]github.Contributor, error) {
	args := m.Called(ctx, repo, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.Contributor), args.Error(1)
}

func (m *mockGitHub) ListIssues(ctx context.Context, repo github.Repo, state string, since time.Time) ([]github.Issue, error) {
	args := m.Called(ctx, repo, state, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.Issue), args.Error(1)
}

func (m *mockGitHub) ListPullRequests(ctx context.Context, repo github.Repo, state string) ([]github.PullRequest, error) {
	args := m.Called(ctx, repo, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.PullRequest), args.Error(1)
}

func (m *mockGitHub) ListPullRequestFiles(ctx context.Context, repo github.Repo, number int) ([]github.FileDiff, error) {
	args := m.Called(ctx, repo, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.FileDiff), args.Error(1)
}

func (m *mockGitHub) ListCommits(ctx context.Context, repo github.Repo) ([]github.Commit, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.Commit), args.Error(1)
}

func (m *mockGitHub) GetCommit(ctx context.Context, repo github.Repo, sha string) (*github.Commit, error) {
	args := m.Called(ctx, repo, sha)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Commit), args.Error(1)
}

func (m *mockGitHub) GetFileContents(ctx context.Context, repo github.Repo, path string) ([]byte, error) {
	args := m.Called(ctx, repo, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockGitHub) GetReadme(ctx context.Context, repo github.Repo) ([]byte, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
