package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/netscore/internal/resilience"
)

var lodash = Repo{Owner: "lodash", Name: "lodash"}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     1,
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-token", WithBaseURL(srv.URL), WithRetry(fastRetry()), WithRateLimit(1000))
	require.NoError(t, err)
	return c
}

func TestParseRepo(t *testing.T) {
	tests := []struct {
		in      string
		want    Repo
		wantErr bool
	}{
		{in: "https://github.com/lodash/lodash", want: lodash},
		{in: "https://github.com/lodash/lodash/", want: lodash},
		{in: "https://github.com/lodash/lodash.git", want: lodash},
		{in: "https://github.com/cloudinary/cloudinary_npm/tree/master", want: Repo{Owner: "cloudinary", Name: "cloudinary_npm"}},
		{in: "https://github.com/lodash", wantErr: true},
		{in: "https://gitlab.com/a/b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepo(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Owner+"/"+tt.want.Name, got.String())
			assert.Equal(t, "https://github.com/"+got.String(), got.URL())
		})
	}
}

func TestMissingToken(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c, err := NewClient("  ", WithBaseURL(srv.URL))
	require.NoError(t, err)
	assert.False(t, c.HasToken())

	_, err = c.ListContributors(context.Background(), lodash, 1, 100)
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.Zero(t, hits.Load())
}

func TestListContributors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/lodash/lodash/contributors", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"login": "jdalton", "contributions": 900},
			{"login": "bnjmnt4n", "contributions": 40},
		})
	})

	got, err := c.ListContributors(context.Background(), lodash, 2, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Contributor{Login: "jdalton", Contributions: 900}, got[0])
}

func TestListIssues_MarksPullRequests(t *testing.T) {
	closed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/lodash/lodash/issues", r.URL.Path)
		assert.Equal(t, "closed", r.URL.Query().Get("state"))
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"number": 1, "closed_at": closed.Format(time.RFC3339)},
			{"number": 2, "pull_request": map[string]any{"url": "x"}},
		})
	})

	got, err := c.ListIssues(context.Background(), lodash, "closed", closed.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[0].IsPullRequest)
	assert.True(t, got[0].ClosedAt.Equal(closed))
	assert.True(t, got[1].IsPullRequest)
}

func TestListPullRequestsAndFiles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/lodash/lodash/pulls":
			assert.Equal(t, "closed", r.URL.Query().Get("state"))
			json.NewEncoder(w).Encode([]map[string]any{
				{"number": 7, "merge_commit_sha": "abc123"},
			})
		case "/repos/lodash/lodash/pulls/7/files":
			json.NewEncoder(w).Encode([]map[string]any{
				{"filename": "a.js", "changes": 10},
				{"filename": "b.js", "changes": 5},
			})
		default:
			http.NotFound(w, r)
		}
	})

	prs, err := c.ListPullRequests(context.Background(), lodash, "closed")
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, 7, prs[0].Number)
	assert.Equal(t, "abc123", prs[0].MergeCommitSHA)

	files, err := c.ListPullRequestFiles(context.Background(), lodash, 7)
	require.NoError(t, err)
	assert.Equal(t, []FileDiff{{Filename: "a.js", Changes: 10}, {Filename: "b.js", Changes: 5}}, files)
}

func TestCommits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/lodash/lodash/commits":
			json.NewEncoder(w).Encode([]map[string]any{
				{"sha": "abc123", "commit": map[string]any{"message": "Merge pull request #7"}},
			})
		case "/repos/lodash/lodash/commits/abc123":
			json.NewEncoder(w).Encode(map[string]any{
				"sha":    "abc123",
				"commit": map[string]any{"message": "Merge pull request #7"},
				"files":  []map[string]any{{"filename": "a.js", "changes": 3}},
			})
		default:
			http.NotFound(w, r)
		}
	})

	commits, err := c.ListCommits(context.Background(), lodash)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "Merge pull request #7", commits[0].Message)

	commit, err := c.GetCommit(context.Background(), lodash, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []FileDiff{{Filename: "a.js", Changes: 3}}, commit.Files)
}

func TestContents(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("MIT License"))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/lodash/lodash/contents/LICENSE":
			json.NewEncoder(w).Encode(map[string]any{"type": "file", "encoding": "base64", "content": encoded})
		case "/repos/lodash/lodash/readme":
			json.NewEncoder(w).Encode(map[string]any{"type": "file", "encoding": "base64", "content": encoded})
		default:
			http.NotFound(w, r)
		}
	})

	data, err := c.GetFileContents(context.Background(), lodash, "LICENSE")
	require.NoError(t, err)
	assert.Equal(t, "MIT License", string(data))

	data, err = c.GetReadme(context.Background(), lodash)
	require.NoError(t, err)
	assert.Equal(t, "MIT License", string(data))

	_, err = c.GetFileContents(context.Background(), lodash, "missing")
	assert.Error(t, err)
}

func TestRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{})
	})

	got, err := c.ListContributors(context.Background(), lodash, 1, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), hits.Load())
}

func TestDoesNotRetryNotFound(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	})

	_, err := c.ListPullRequests(context.Background(), lodash, "closed")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingToken))
	assert.Equal(t, int32(1), hits.Load())
}
