package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/netscore/internal/model"
)

func allScores(v float64) map[model.MetricName]float64 {
	scores := make(map[model.MetricName]float64, len(model.MetricNames))
	for _, name := range model.MetricNames {
		scores[name] = v
	}
	return scores
}

func TestWeights_SumToOne(t *testing.T) {
	total := 0.0
	for _, name := range model.MetricNames {
		w, ok := Weights[name]
		assert.True(t, ok, name)
		total += w
	}
	assert.Len(t, Weights, len(model.MetricNames))
	assert.InDelta(t, 1.0, total, 1e-12)
}

func TestCombine_AllOnes(t *testing.T) {
	assert.Equal(t, 1.0, Combine(allScores(1)))
}

func TestCombine_Weighted(t *testing.T) {
	scores := map[model.MetricName]float64{
		model.BusFactor:             0.4,
		model.RampUp:                0.5,
		model.Correctness:           0.5,
		model.ResponsiveMaintainer:  0.2,
		model.License:               1,
		model.PinnedDependencies:    0,
		model.PullRequestProvenance: 0.4,
	}
	// 0.1 + 0.05 + 0.05 + 0.02 + 0.4 + 0 + 0.01
	assert.Equal(t, 0.63, Combine(scores))
}

func TestCombine_FailurePropagation(t *testing.T) {
	tests := []struct {
		name   string
		metric model.MetricName
		value  float64
	}{
		{"license zero", model.License, 0},
		{"license failed", model.License, model.Sentinel},
		{"bus factor failed", model.BusFactor, model.Sentinel},
		{"ramp up failed", model.RampUp, model.Sentinel},
		{"correctness failed", model.Correctness, model.Sentinel},
		{"responsive failed", model.ResponsiveMaintainer, model.Sentinel},
	}
	for _, tt := range tests {
		for _, others := range []float64{0, 0.5, 1} {
			t.Run(tt.name, func(t *testing.T) {
				scores := allScores(others)
				scores[model.License] = 1
				scores[tt.metric] = tt.value
				assert.True(t, Zeroed(scores))
				assert.Zero(t, Combine(scores))
			})
		}
	}
}

func TestCombine_LowButValidCoreMetricsDoNotZero(t *testing.T) {
	scores := allScores(0)
	scores[model.License] = 1
	assert.False(t, Zeroed(scores))
	assert.Equal(t, 0.4, Combine(scores))
}

func TestCombine_OptionalSentinelIgnored(t *testing.T) {
	scores := allScores(1)
	scores[model.PinnedDependencies] = model.Sentinel
	scores[model.PullRequestProvenance] = 0
	assert.Equal(t, 0.95, Combine(scores))
}

func TestZeroed_MissingMetric(t *testing.T) {
	scores := allScores(1)
	delete(scores, model.RampUp)
	assert.True(t, Zeroed(scores))
}
