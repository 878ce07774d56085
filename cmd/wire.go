package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/netscore/internal/config"
	"github.com/sells-group/netscore/internal/metrics"
	"github.com/sells-group/netscore/internal/resilience"
	"github.com/sells-group/netscore/internal/scoring"
	"github.com/sells-group/netscore/internal/snapshot"
	"github.com/sells-group/netscore/internal/source"
	"github.com/sells-group/netscore/internal/transport"
	"github.com/sells-group/netscore/pkg/github"
	"github.com/sells-group/netscore/pkg/npm"
)

// scoringEnv holds the clients and the evaluator shared by the commands.
type scoringEnv struct {
	HTTP      *http.Client
	Retry     resilience.RetryConfig
	Evaluator *scoring.Evaluator
}

// initScoring validates c for mode and builds the evaluator and its
// collaborators. Background work stops when ctx is done.
func initScoring(ctx context.Context, c *config.Config, mode string) (*scoringEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	hc := transport.NewHTTPClient(transport.Options{
		FailureThreshold: c.Circuit.FailureThreshold,
		ResetTimeout:     c.Circuit.ResetTimeout(),
		DNSRefresh:       5 * time.Minute,
		Context:          ctx,
	})
	retry := resilience.NewRetryConfig(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)

	ghOpts := []github.Option{
		github.WithHTTPClient(hc),
		github.WithRateLimit(c.GitHub.RequestsPerSecond),
		github.WithRetry(retry),
		github.WithPageSize(c.GitHub.PageSize),
	}
	if c.GitHub.BaseURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(c.GitHub.BaseURL))
	}
	gh, err := github.NewClient(c.GitHub.Token, ghOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "init github client")
	}

	registry := npm.NewClient(
		npm.WithBaseURL(c.Registry.BaseURL),
		npm.WithHTTPClient(hc),
		npm.WithRetry(retry),
	)

	calcs := metrics.New(gh,
		metrics.WithMaxContributorPages(c.GitHub.MaxContributorPages),
		metrics.WithPageSize(c.GitHub.PageSize),
	).Calculators()

	acquirer := snapshot.NewAcquirer(c.Snapshot.Root, snapshot.GitCloner{}, c.Snapshot.CloneTimeout())

	ev := scoring.NewEvaluator(source.NewRedirector(registry), acquirer, calcs,
		scoring.WithTaskTimeout(c.Scoring.TaskTimeout()),
		scoring.WithHostingToken(gh.HasToken()),
	)

	zap.L().Debug("scoring environment ready",
		zap.String("snapshot_root", c.Snapshot.Root),
		zap.Bool("token", gh.HasToken()),
	)

	return &scoringEnv{HTTP: hc, Retry: retry, Evaluator: ev}, nil
}
