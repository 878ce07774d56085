package metrics

import "context"

// EstimatedLinesPerFile approximates project size in Correctness.
const EstimatedLinesPerFile = 100

// RampUp scores documentation: comment density plus README length and
// external links. A snapshot without a README scores 0.
func (s *Set) RampUp(ctx context.Context, in *Input) (float64, error) {
	facts, err := in.facts(ctx)
	if err != nil {
		return 0, err
	}
	if !facts.HasReadme {
		return 0, nil
	}

	score := 2*facts.CommentRatio() +
		0.1*(float64(facts.ReadmeExternalLinkCount)/3) +
		0.1*(float64(facts.ReadmeWordCount)/80)
	return min(1.0, score), nil
}

// Correctness scores test evidence: 0.5 for a declared framework or any
// test lines, plus up to 0.5 for the test-line share of the estimated size.
func (s *Set) Correctness(ctx context.Context, in *Input) (float64, error) {
	facts, err := in.facts(ctx)
	if err != nil {
		return 0, err
	}

	baseline := 0.0
	if len(facts.TestFrameworks) > 0 {
		baseline = 0.5
	}
	if facts.TestCodeLines == 0 || facts.TotalFileCount == 0 {
		return baseline, nil
	}

	estimated := float64(facts.TotalFileCount * EstimatedLinesPerFile)
	lineRatio := min(0.5, 0.5*float64(facts.TestCodeLines)/estimated)
	return 0.5 + lineRatio, nil
}
