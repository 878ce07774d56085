package source

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/netscore/pkg/npm"
)

// mockRegistry implements npm.Client for testing.
type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) GetPackageMetadata(ctx context.Context, name string) (*npm.Metadata, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*npm.Metadata), args.Error(1)
}
