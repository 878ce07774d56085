// Package source classifies input URLs and redirects registry packages to
// their declared source repository.
package source

import (
	"context"
	"net/url"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/netscore/pkg/npm"
)

// Kind is the classification of an input URL.
type Kind int

const (
	Invalid Kind = iota
	SourceRepo
	RegistryPackage
)

func (k Kind) String() string {
	switch k {
	case SourceRepo:
		return "source_repo"
	case RegistryPackage:
		return "registry_package"
	default:
		return "invalid"
	}
}

const repoPrefix = "https://github.com/"

var registryPrefixes = []string{
	"https://www.npmjs.com/package/",
	"https://npmjs.com/package/",
}

// Target is a classified input.
type Target struct {
	Raw     string
	Kind    Kind
	RepoURL string // set for SourceRepo
	Package string // set for RegistryPackage
}

// Classify matches raw against the known hosting and registry URL forms.
func Classify(raw string) Target {
	in := strings.TrimSpace(raw)
	t := Target{Raw: raw}

	switch {
	case strings.HasPrefix(in, repoPrefix):
		if len(strings.Trim(strings.TrimPrefix(in, repoPrefix), "/")) == 0 {
			return t
		}
		t.Kind = SourceRepo
		t.RepoURL = in
		return t
	case strings.HasPrefix(in, "pkg:"):
		name, err := packageFromPURL(in)
		if err != nil {
			return t
		}
		t.Kind = RegistryPackage
		t.Package = name
		return t
	}

	for _, prefix := range registryPrefixes {
		if !strings.HasPrefix(in, prefix) {
			continue
		}
		name := strings.Trim(strings.TrimPrefix(in, prefix), "/")
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
		if name == "" {
			return t
		}
		t.Kind = RegistryPackage
		t.Package = name
		return t
	}
	return t
}

func packageFromPURL(in string) (string, error) {
	p, err := packageurl.FromString(in)
	if err != nil {
		return "", eris.Wrapf(err, "source: parse purl %q", in)
	}
	if p.Type != packageurl.TypeNPM || p.Name == "" {
		return "", eris.Errorf("source: unsupported purl %q", in)
	}
	if p.Namespace != "" {
		return p.Namespace + "/" + p.Name, nil
	}
	return p.Name, nil
}

// NormalizeRepoURL strips VCS protocol prefixes and suffixes and rewrites
// ssh-style addresses so the result is an https URL.
func NormalizeRepoURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimPrefix(u, "git+")

	switch {
	case strings.HasPrefix(u, "ssh://git@github.com"):
		u = "https://github.com" + strings.TrimPrefix(u, "ssh://git@github.com")
	case strings.HasPrefix(u, "git@github.com:"):
		u = "https://github.com/" + strings.TrimPrefix(u, "git@github.com:")
	case strings.HasPrefix(u, "github:"):
		u = "https://github.com/" + strings.TrimPrefix(u, "github:")
	case strings.HasPrefix(u, "git://"):
		u = "https://" + strings.TrimPrefix(u, "git://")
	case strings.HasPrefix(u, "http://"):
		u = "https://" + strings.TrimPrefix(u, "http://")
	}

	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")
	if !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

// ErrNoRepository is returned when a registry entry declares no usable source repository.
var ErrNoRepository = eris.New("source: registry entry has no source repository")

// Resolution is the outcome of resolving a target to a repository.
type Resolution struct {
	RepoURL  string
	Metadata *npm.Metadata // nil for direct repository URLs
}

// Redirector resolves registry packages to their source repository.
type Redirector struct {
	registry npm.Client
}

// NewRedirector creates a Redirector backed by registry.
func NewRedirector(registry npm.Client) *Redirector {
	return &Redirector{registry: registry}
}

// Resolve returns the repository URL for t. Registry packages are looked up
// and their repository field normalized; only hosted repositories are accepted.
func (r *Redirector) Resolve(ctx context.Context, t Target) (*Resolution, error) {
	switch t.Kind {
	case SourceRepo:
		return &Resolution{RepoURL: t.RepoURL}, nil
	case RegistryPackage:
	default:
		return nil, eris.Errorf("source: cannot resolve %q", t.Raw)
	}

	meta, err := r.registry.GetPackageMetadata(ctx, t.Package)
	if err != nil {
		return nil, eris.Wrapf(err, "source: lookup %s", t.Package)
	}
	if meta.RepositoryURL == "" {
		return nil, eris.Wrapf(ErrNoRepository, "source: %s", t.Package)
	}

	repoURL := NormalizeRepoURL(meta.RepositoryURL)
	if !strings.HasPrefix(repoURL, repoPrefix) {
		return nil, eris.Wrapf(ErrNoRepository, "source: %s declares %s", t.Package, repoURL)
	}
	return &Resolution{RepoURL: repoURL, Metadata: meta}, nil
}
