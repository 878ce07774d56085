package metrics

import (
	"context"
	"strconv"
	"strings"

	"github.com/sells-group/netscore/pkg/github"
)

// referencesPR reports whether msg mentions #number and not a longer number.
func referencesPR(msg string, number int) bool {
	ref := "#" + strconv.Itoa(number)
	for i := strings.Index(msg, ref); i >= 0; {
		end := i + len(ref)
		if end == len(msg) || msg[end] < '0' || msg[end] > '9' {
			return true
		}
		next := strings.Index(msg[end:], ref)
		if next < 0 {
			break
		}
		i = end + next
	}
	return false
}

func associatedPR(commit github.Commit, prs []github.PullRequest) (github.PullRequest, bool) {
	for _, pr := range prs {
		if pr.MergeCommitSHA != "" && pr.MergeCommitSHA == commit.SHA {
			return pr, true
		}
		if referencesPR(commit.Message, pr.Number) {
			return pr, true
		}
	}
	return github.PullRequest{}, false
}

func changedLines(files []github.FileDiff) int {
	n := 0
	for _, f := range files {
		n += f.Changes
	}
	return n
}

// PullRequestProvenance is the share of changed lines in recent commits
// that arrived through a closed pull request.
func (s *Set) PullRequestProvenance(ctx context.Context, in *Input) (float64, error) {
	commits, err := s.gh.ListCommits(ctx, in.Repo)
	if err != nil {
		return 0, err
	}
	prs, err := s.gh.ListPullRequests(ctx, in.Repo, "closed")
	if err != nil {
		return 0, err
	}

	prChanges := make(map[int]int)
	prLines, totalLines := 0, 0
	for _, commit := range commits {
		if pr, ok := associatedPR(commit, prs); ok {
			lines, seen := prChanges[pr.Number]
			if !seen {
				files, err := s.gh.ListPullRequestFiles(ctx, in.Repo, pr.Number)
				if err != nil {
					return 0, err
				}
				lines = changedLines(files)
				prChanges[pr.Number] = lines
			}
			prLines += lines
		}

		full, err := s.gh.GetCommit(ctx, in.Repo, commit.SHA)
		if err != nil {
			return 0, err
		}
		totalLines += changedLines(full.Files)
	}

	if totalLines == 0 {
		return 0, nil
	}
	return clamp01(float64(prLines) / float64(totalLines)), nil
}
