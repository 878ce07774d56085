// Package scoring runs the metric calculators for a URL and combines them
// into a NetScore report.
package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/netscore/internal/metrics"
	"github.com/sells-group/netscore/internal/model"
	"github.com/sells-group/netscore/internal/snapshot"
	"github.com/sells-group/netscore/internal/source"
	"github.com/sells-group/netscore/pkg/github"
)

// DefaultTaskTimeout bounds a single calculator.
const DefaultTaskTimeout = 45 * time.Second

// Rater evaluates one URL. ok is false when the URL is not a supported form.
type Rater interface {
	Evaluate(ctx context.Context, rawURL string) (report *model.ScoreReport, ok bool)
}

// Resolver maps a classified target to its source repository.
type Resolver interface {
	Resolve(ctx context.Context, t source.Target) (*source.Resolution, error)
}

// Acquirer provides repository snapshots.
type Acquirer interface {
	Acquire(ctx context.Context, repoURL string) snapshot.Result
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTaskTimeout bounds each calculator.
func WithTaskTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.taskTimeout = d
		}
	}
}

// WithHostingToken records whether hosting-API credentials are configured.
// A missing token is logged on the first evaluation.
func WithHostingToken(present bool) Option {
	return func(e *Evaluator) { e.hasToken = present }
}

// Evaluator is the concurrent aggregator and combiner for single URLs.
type Evaluator struct {
	resolver    Resolver
	acquirer    Acquirer
	calcs       []metrics.Calculator
	taskTimeout time.Duration
	hasToken    bool
	tokenOnce   sync.Once
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(resolver Resolver, acquirer Acquirer, calcs []metrics.Calculator, opts ...Option) *Evaluator {
	e := &Evaluator{
		resolver:    resolver,
		acquirer:    acquirer,
		calcs:       calcs,
		taskTimeout: DefaultTaskTimeout,
		hasToken:    true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate classifies rawURL, resolves and acquires its repository, runs
// every calculator concurrently and combines the results. Unsupported URLs
// return (nil, false). Registry packages without a usable repository get a
// report with every metric at the sentinel.
func (e *Evaluator) Evaluate(ctx context.Context, rawURL string) (*model.ScoreReport, bool) {
	start := time.Now()
	log := zap.L().With(zap.String("url", rawURL))

	target := source.Classify(rawURL)
	if target.Kind == source.Invalid {
		log.Debug("scoring: unsupported url")
		return nil, false
	}

	e.tokenOnce.Do(func() {
		if !e.hasToken {
			zap.L().Warn("scoring: hosting API token not configured; API metrics will report their failure value")
		}
	})

	failed := func(err error) (*model.ScoreReport, bool) {
		log.Info("scoring: no source repository", zap.Error(err))
		report := model.FailedReport(rawURL)
		report.NetScoreLatencySeconds = model.RoundLatency(time.Since(start).Seconds())
		return report, true
	}

	res, err := e.resolver.Resolve(ctx, target)
	if err != nil {
		return failed(err)
	}
	repo, err := github.ParseRepo(res.RepoURL)
	if err != nil {
		return failed(err)
	}
	log = log.With(zap.String("repo", repo.String()))
	repoURL := repo.URL()

	snap := e.acquirer.Acquire(ctx, repoURL)
	if snap.Err != nil {
		log.Warn("scoring: snapshot unavailable", zap.Error(snap.Err))
	}

	report := &model.ScoreReport{
		URL:     rawURL,
		Metrics: e.run(ctx, log, metrics.NewInput(repoURL, repo, snap)),
	}
	report.NetScore = Combine(report.Scores())
	report.NetScoreLatencySeconds = model.RoundLatency(time.Since(start).Seconds())

	log.Info("scoring: evaluated",
		zap.Float64("net_score", report.NetScore),
		zap.Float64("latency_s", report.NetScoreLatencySeconds),
	)
	return report, true
}

// run executes every calculator and waits for all of them. A failing
// calculator never cancels the others.
func (e *Evaluator) run(ctx context.Context, log *zap.Logger, in *metrics.Input) []model.MetricOutcome {
	outcomes := make([]model.MetricOutcome, len(e.calcs))

	var g errgroup.Group
	for i, calc := range e.calcs {
		g.Go(func() error {
			start := time.Now()
			score, err := e.compute(ctx, calc, in)
			elapsed := time.Since(start)

			if err != nil {
				score = calc.OnError
				log.Debug("scoring: metric failed",
					zap.String("metric", string(calc.Name)),
					zap.Duration("elapsed", elapsed),
					zap.Error(err),
				)
			} else if score != model.Sentinel {
				score = max(0, min(1, score))
			}

			outcomes[i] = model.MetricOutcome{
				Name:           calc.Name,
				Score:          model.RoundScore(score),
				LatencySeconds: model.RoundLatency(elapsed.Seconds()),
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Evaluator) compute(ctx context.Context, calc metrics.Calculator, in *metrics.Input) (score float64, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.taskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("scoring: %s panicked: %v", calc.Name, r)
		}
	}()
	return calc.Compute(ctx, in)
}
