package scoring

import "github.com/sells-group/netscore/internal/model"

// Weights is the NetScore weight of each metric. They sum to 1.
var Weights = map[model.MetricName]float64{
	model.BusFactor:             0.25,
	model.RampUp:                0.10,
	model.Correctness:           0.10,
	model.ResponsiveMaintainer:  0.10,
	model.License:               0.40,
	model.PinnedDependencies:    0.025,
	model.PullRequestProvenance: 0.025,
}

// coreMetrics zero NetScore when they could not be computed.
var coreMetrics = []model.MetricName{
	model.BusFactor,
	model.RampUp,
	model.Correctness,
	model.ResponsiveMaintainer,
}

// Zeroed reports whether the failure rule forces NetScore to 0: License is
// 0 or failed, or a core metric failed. Missing metrics count as failed.
func Zeroed(scores map[model.MetricName]float64) bool {
	license, ok := scores[model.License]
	if !ok || license <= 0 {
		return true
	}
	for _, name := range coreMetrics {
		v, ok := scores[name]
		if !ok || v == model.Sentinel {
			return true
		}
	}
	return false
}

// Combine applies the weights to scores, rounded to two decimals.
func Combine(scores map[model.MetricName]float64) float64 {
	if Zeroed(scores) {
		return 0
	}
	total := 0.0
	for _, name := range model.MetricNames {
		total += Weights[name] * max(0, scores[name])
	}
	return model.RoundScore(min(1, total))
}
