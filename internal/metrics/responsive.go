package metrics

import (
	"context"
	"time"
)

// ResponsiveMaintainer is the share of closed work in the trailing month:
// issues closed since the cutoff plus pull requests closed after it, over
// that plus the open issues.
func (s *Set) ResponsiveMaintainer(ctx context.Context, in *Input) (float64, error) {
	cutoff := s.now().AddDate(0, -1, 0)

	closedIssues, err := s.gh.ListIssues(ctx, in.Repo, "closed", cutoff)
	if err != nil {
		return 0, err
	}

	closedPRs, err := s.gh.ListPullRequests(ctx, in.Repo, "closed")
	if err != nil {
		return 0, err
	}
	recentPRs := 0
	for _, pr := range closedPRs {
		if !pr.ClosedAt.Before(cutoff) {
			recentPRs++
		}
	}

	openIssues, err := s.gh.ListIssues(ctx, in.Repo, "open", time.Time{})
	if err != nil {
		return 0, err
	}

	closed := float64(len(closedIssues) + recentPRs)
	open := float64(len(openIssues))
	if closed+open == 0 {
		return 0, nil
	}
	return clamp01(closed / (closed + open)), nil
}
