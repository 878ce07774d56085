// Package analysis derives structural facts from a local repository snapshot.
package analysis

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MaxScanLines bounds the lines examined per source file.
const MaxScanLines = 500

var sourceExtensions = []string{".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs"}

// Facts are per-snapshot structural measurements.
type Facts struct {
	TotalSourceLines  int
	TotalCommentLines int

	HasReadme               bool
	ReadmeWordCount         int
	ReadmeExternalLinkCount int

	TestFrameworks []string
	TestCodeLines  int
	TotalFileCount int
}

// CommentRatio is comment lines over source lines, or 0 without source.
func (f *Facts) CommentRatio() float64 {
	if f.TotalSourceLines == 0 {
		return 0
	}
	return float64(f.TotalCommentLines) / float64(f.TotalSourceLines)
}

// LineCounts is the classification of a file's lines.
type LineCounts struct {
	Source  int
	Comment int
}

// CountLines classifies up to limit lines from r as source or comment.
// Blank lines count as neither.
func CountLines(r io.Reader, limit int) (LineCounts, error) {
	var counts LineCounts
	inBlock := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 0; sc.Scan() && (limit <= 0 || n < limit); n++ {
		line := strings.TrimSpace(sc.Text())
		switch {
		case inBlock:
			counts.Comment++
			if strings.HasSuffix(line, "*/") {
				inBlock = false
			}
		case strings.HasPrefix(line, "//"):
			counts.Comment++
		case strings.HasPrefix(line, "/*"):
			counts.Comment++
			inBlock = !strings.HasSuffix(line, "*/")
		case line != "":
			counts.Source++
		}
	}
	if err := sc.Err(); err != nil {
		return counts, eris.Wrap(err, "analysis: scan lines")
	}
	return counts, nil
}

func isSourceFile(name string) bool {
	return slices.Contains(sourceExtensions, strings.ToLower(filepath.Ext(name)))
}

// Analyze computes all facts for the snapshot at root. The walk stops when
// ctx is done.
func Analyze(ctx context.Context, root string) (*Facts, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: stat %s", root)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("analysis: %s is not a directory", root)
	}

	facts := &Facts{}
	if err := countSource(ctx, root, facts); err != nil {
		return nil, err
	}

	readme, err := ReadReadme(root)
	if err != nil {
		return nil, err
	}
	if readme != nil {
		facts.HasReadme = true
		facts.ReadmeWordCount = WordCount(readme)
		facts.ReadmeExternalLinkCount = ExternalLinkCount(readme)
	}

	facts.TestFrameworks = DetectTestFrameworks(root)
	facts.TestCodeLines, facts.TotalFileCount, err = countTests(ctx, root, facts.TestFrameworks)
	if err != nil {
		return nil, err
	}
	return facts, nil
}

func countSource(ctx context.Context, root string, facts *Facts) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			zap.L().Debug("analysis: walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isSourceFile(d.Name()) {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		counts, err := CountLines(f, MaxScanLines)
		if err != nil {
			zap.L().Debug("analysis: skip unreadable file", zap.String("path", path), zap.Error(err))
		}
		facts.TotalSourceLines += counts.Source
		facts.TotalCommentLines += counts.Comment
		return nil
	})
	return eris.Wrapf(err, "analysis: walk %s", root)
}

// Lazy computes Facts for one snapshot at most once. A computation cut
// short by its context is not cached.
type Lazy struct {
	root  string
	mu    sync.Mutex
	done  bool
	facts *Facts
	err   error
}

// NewLazy returns a Lazy for root.
func NewLazy(root string) *Lazy {
	return &Lazy{root: root}
}

// Facts returns the cached facts, computing them on first use.
func (l *Lazy) Facts(ctx context.Context) (*Facts, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return l.facts, l.err
	}

	facts, err := Analyze(ctx, l.root)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}
	l.facts, l.err, l.done = facts, err, true
	return l.facts, l.err
}
