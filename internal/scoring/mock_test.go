package scoring

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/netscore/internal/model"
	"github.com/sells-group/netscore/internal/snapshot"
	"github.com/sells-group/netscore/internal/source"
)

// mockResolver implements Resolver for testing.
type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, t source.Target) (*source.Resolution, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*source.Resolution), args.Error(1)
}

// fakeAcquirer returns a fixed result and records the requested URLs.
type fakeAcquirer struct {
	result snapshot.Result
	calls  atomic.Int32

	mu   sync.Mutex
	urls []string
}

func (f *fakeAcquirer) Acquire(_ context.Context, repoURL string) snapshot.Result {
	f.calls.Add(1)
	f.mu.Lock()
	f.urls = append(f.urls, repoURL)
	f.mu.Unlock()
	return f.result
}

// fixedRater returns canned reports keyed by URL.
type fixedRater map[string]*model.ScoreReport

func (r fixedRater) Evaluate(_ context.Context, rawURL string) (*model.ScoreReport, bool) {
	report, ok := r[rawURL]
	return report, ok
}
