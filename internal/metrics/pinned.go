package metrics

import (
	"context"
	"regexp"

	"github.com/sells-group/netscore/internal/analysis"
)

// pinnedRe matches X.Y and X.Y.Z, optionally prefixed with ^ or ~.
var pinnedRe = regexp.MustCompile(`^(?:\^|~)?(\d+)\.(\d+)(\.\d+)?$`)

// IsPinned reports whether a version specifier fixes at least major.minor.
func IsPinned(version string) bool {
	return pinnedRe.MatchString(version)
}

// PinnedFraction is the share of pinned dependencies; an empty set is 1.
func PinnedFraction(deps map[string]string) float64 {
	if len(deps) == 0 {
		return 1.0
	}
	pinned := 0
	for _, version := range deps {
		if IsPinned(version) {
			pinned++
		}
	}
	return float64(pinned) / float64(len(deps))
}

// PinnedDependencies scores the repository manifest's runtime and
// development dependencies.
func (s *Set) PinnedDependencies(ctx context.Context, in *Input) (float64, error) {
	data, err := s.gh.GetFileContents(ctx, in.Repo, "package.json")
	if err != nil {
		return 0, err
	}
	m, err := analysis.ParseManifest(data)
	if err != nil {
		return 0, err
	}
	return PinnedFraction(m.AllDependencies()), nil
}
