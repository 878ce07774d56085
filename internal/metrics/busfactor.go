package metrics

import (
	"context"

	"go.uber.org/zap"
)

var busFactorSteps = []struct {
	max   int
	score float64
}{
	{4, 0.3},
	{8, 0.4},
	{16, 0.5},
	{32, 0.6},
	{64, 0.7},
	{128, 0.8},
	{256, 0.9},
}

// BusFactorScore maps a contributor count onto the step scale.
func BusFactorScore(contributors int) float64 {
	switch contributors {
	case 1:
		return 0.1
	case 2:
		return 0.2
	}
	for _, step := range busFactorSteps {
		if contributors <= step.max {
			return step.score
		}
	}
	return 1.0
}

// BusFactor counts contributors page by page until a short page. Any page
// error fails the whole metric.
func (s *Set) BusFactor(ctx context.Context, in *Input) (float64, error) {
	total := 0
	for page := 1; page <= s.maxPages; page++ {
		contributors, err := s.gh.ListContributors(ctx, in.Repo, page, s.pageSize)
		if err != nil {
			return 0, err
		}
		total += len(contributors)
		if len(contributors) < s.pageSize {
			return BusFactorScore(total), nil
		}
	}

	zap.L().Warn("metrics: contributor pagination truncated",
		zap.String("repo", in.Repo.String()),
		zap.Int("pages", s.maxPages),
		zap.Int("contributors", total),
	)
	return BusFactorScore(total), nil
}
