// Package snapshot acquires shallow local copies of source repositories.
package snapshot

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Snapshot is a local, read-only repository copy.
type Snapshot struct {
	Path string
	// Reused is true when an existing directory was used without fetching.
	Reused bool
}

// AcquisitionError records why no snapshot is available.
type AcquisitionError struct {
	URL string
	Err error
}

func (e *AcquisitionError) Error() string {
	return "snapshot: acquire " + e.URL + ": " + e.Err.Error()
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Result is the outcome of Acquire. Exactly one of Snapshot and Err is set.
type Result struct {
	Snapshot *Snapshot
	Err      *AcquisitionError
}

// OK reports whether a snapshot is available.
func (r Result) OK() bool {
	return r.Err == nil && r.Snapshot != nil
}

// Cloner fetches a repository into dir.
type Cloner interface {
	Clone(ctx context.Context, repoURL, dir string) error
}

// Key derives the directory name for repoURL: scheme and host are dropped
// and path separators become underscores. Owner names cannot contain an
// underscore, so distinct owner/name pairs get distinct keys.
func Key(repoURL string) string {
	path := repoURL
	if u, err := url.Parse(strings.TrimSpace(repoURL)); err == nil && u.Host != "" {
		path = u.Path
	}
	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	return strings.NewReplacer("/", "_", "\\", "_").Replace(path)
}

// Acquirer places snapshots under a root directory.
type Acquirer struct {
	root    string
	cloner  Cloner
	timeout time.Duration
}

// NewAcquirer creates an Acquirer rooted at root. A zero timeout means no
// limit beyond the caller's context.
func NewAcquirer(root string, cloner Cloner, timeout time.Duration) *Acquirer {
	return &Acquirer{root: root, cloner: cloner, timeout: timeout}
}

// Path returns the snapshot directory for repoURL.
func (a *Acquirer) Path(repoURL string) string {
	return filepath.Join(a.root, Key(repoURL))
}

// Acquire returns the snapshot for repoURL, fetching it when the directory
// is missing or empty. It never panics or returns a bare error: failures are
// reported in Result.Err.
func (a *Acquirer) Acquire(ctx context.Context, repoURL string) Result {
	key := Key(repoURL)
	switch key {
	case "", ".", "..":
		return failed(repoURL, eris.Errorf("snapshot: invalid repository key %q", key))
	}
	dir := filepath.Join(a.root, key)
	log := zap.L().With(zap.String("url", repoURL), zap.String("dir", dir))

	if nonEmpty(dir) {
		log.Debug("snapshot: reusing existing directory")
		return Result{Snapshot: &Snapshot{Path: dir, Reused: true}}
	}

	if err := os.MkdirAll(a.root, 0o755); err != nil {
		return failed(repoURL, eris.Wrapf(err, "snapshot: create root %s", a.root))
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := a.cloner.Clone(ctx, repoURL, dir); err != nil {
		// A second evaluation of the same URL may have finished first.
		if nonEmpty(dir) && errors.Is(err, git.ErrRepositoryAlreadyExists) {
			return Result{Snapshot: &Snapshot{Path: dir, Reused: true}}
		}
		_ = os.RemoveAll(dir)
		log.Warn("snapshot: clone failed", zap.Error(err))
		return failed(repoURL, err)
	}

	log.Info("snapshot: cloned", zap.Duration("elapsed", time.Since(start)))
	return Result{Snapshot: &Snapshot{Path: dir}}
}

func failed(repoURL string, err error) Result {
	return Result{Err: &AcquisitionError{URL: repoURL, Err: err}}
}

func nonEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

// GitCloner performs shallow single-branch clones with go-git.
type GitCloner struct{}

// Clone implements Cloner.
func (GitCloner) Clone(ctx context.Context, repoURL, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          repoURL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		return eris.Wrapf(err, "snapshot: clone %s", repoURL)
	}
	return nil
}
