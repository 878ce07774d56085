package scoring

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/netscore/internal/model"
)

func TestReadURLs(t *testing.T) {
	urls, err := ReadURLs(strings.NewReader("https://a\n\n  https://b  \n\t\nhttps://c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a", "https://b", "https://c"}, urls)
}

func TestEvaluateBatch_SortedDescending(t *testing.T) {
	rater := fixedRater{
		"https://github.com/a/a": {URL: "https://github.com/a/a", NetScore: 0.80},
		"https://github.com/b/b": {URL: "https://github.com/b/b", NetScore: 0.20},
		"https://github.com/c/c": {URL: "https://github.com/c/c", NetScore: 0.55},
	}

	reports := EvaluateBatch(context.Background(), rater, []string{
		"https://github.com/a/a",
		"https://github.com/b/b",
		"https://github.com/c/c",
	})
	require.Len(t, reports, 3)
	assert.Equal(t, []float64{0.80, 0.55, 0.20}, netScores(reports))
}

func TestEvaluateBatch_StableTiesAndSkips(t *testing.T) {
	rater := fixedRater{
		"first":  {URL: "first", NetScore: 0.5},
		"second": {URL: "second", NetScore: 0.5},
		"top":    {URL: "top", NetScore: 0.9},
	}

	reports := EvaluateBatch(context.Background(), rater, []string{"first", "", "invalid", "second", "  top "})
	require.Len(t, reports, 3)
	assert.Equal(t, "top", reports[0].URL)
	assert.Equal(t, "first", reports[1].URL)
	assert.Equal(t, "second", reports[2].URL)
}

func TestEvaluateBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports := EvaluateBatch(ctx, fixedRater{"a": {URL: "a"}}, []string{"a"})
	assert.Empty(t, reports)
}

func netScores(reports []*model.ScoreReport) []float64 {
	out := make([]float64, len(reports))
	for i, r := range reports {
		out[i] = r.NetScore
	}
	return out
}
