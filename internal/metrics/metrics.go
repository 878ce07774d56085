// Package metrics implements the per-dimension quality calculators.
//
// Each calculator returns a score in [0,1] or an error. Errors are mapped to
// the calculator's OnError value, which differs by metric: Bus Factor and
// Ramp-Up report the -1 sentinel while the rest report 0. The asymmetry
// decides whether a failure zeroes NetScore, so it is kept as an explicit
// table rather than a shared convention.
package metrics

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/netscore/internal/analysis"
	"github.com/sells-group/netscore/internal/model"
	"github.com/sells-group/netscore/internal/snapshot"
	"github.com/sells-group/netscore/pkg/github"
)

// ErrNoSnapshot is returned by snapshot-based calculators when acquisition failed.
var ErrNoSnapshot = eris.New("metrics: snapshot unavailable")

// Input is everything a calculator may read for one evaluation.
type Input struct {
	RepoURL  string
	Repo     github.Repo
	Snapshot snapshot.Result
	// Facts is shared by the snapshot calculators; nil when Snapshot failed.
	Facts *analysis.Lazy
}

// NewInput builds the calculator input for a resolved repository.
func NewInput(repoURL string, repo github.Repo, snap snapshot.Result) *Input {
	in := &Input{RepoURL: repoURL, Repo: repo, Snapshot: snap}
	if snap.OK() {
		in.Facts = analysis.NewLazy(snap.Snapshot.Path)
	}
	return in
}

func (in *Input) facts(ctx context.Context) (*analysis.Facts, error) {
	if in.Facts == nil {
		if in.Snapshot.Err != nil {
			return nil, eris.Wrapf(ErrNoSnapshot, "metrics: %v", in.Snapshot.Err)
		}
		return nil, ErrNoSnapshot
	}
	return in.Facts.Facts(ctx)
}

// Calculator is one metric with its failure policy.
type Calculator struct {
	Name    model.MetricName
	Compute func(ctx context.Context, in *Input) (float64, error)
	// OnError is reported when Compute fails.
	OnError float64
}

// Set holds the collaborators shared by all calculators.
type Set struct {
	gh       github.Client
	now      func() time.Time
	maxPages int
	pageSize int
}

// Option configures a Set.
type Option func(*Set)

// WithClock overrides the time source used for the responsiveness window.
func WithClock(now func() time.Time) Option {
	return func(s *Set) { s.now = now }
}

// WithMaxContributorPages bounds Bus Factor pagination.
func WithMaxContributorPages(n int) Option {
	return func(s *Set) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithPageSize sets the contributor page size.
func WithPageSize(n int) Option {
	return func(s *Set) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New creates a calculator set backed by the hosting API client gh.
func New(gh github.Client, opts ...Option) *Set {
	s := &Set{
		gh:       gh,
		now:      time.Now,
		maxPages: 50,
		pageSize: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculators returns every calculator in report order.
func (s *Set) Calculators() []Calculator {
	return []Calculator{
		{Name: model.RampUp, Compute: s.RampUp, OnError: model.Sentinel},
		{Name: model.Correctness, Compute: s.Correctness, OnError: 0},
		{Name: model.BusFactor, Compute: s.BusFactor, OnError: model.Sentinel},
		{Name: model.ResponsiveMaintainer, Compute: s.ResponsiveMaintainer, OnError: 0},
		{Name: model.License, Compute: s.License, OnError: 0},
		{Name: model.PinnedDependencies, Compute: s.PinnedDependencies, OnError: 0},
		{Name: model.PullRequestProvenance, Compute: s.PullRequestProvenance, OnError: 0},
	}
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
