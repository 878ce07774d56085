package analysis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// KnownTestFrameworks are the test runners recognised in the manifest.
var KnownTestFrameworks = []string{"jest", "mocha", "jasmine", "ava", "cypress"}

var frameworkPatterns = map[string][]string{
	"jest":    {".test.js", ".test.ts", ".spec.js", ".spec.ts", "__tests__/"},
	"mocha":   {".test.js", ".spec.js", "test/"},
	"jasmine": {".spec.js", "spec/"},
	"cypress": {".cy.js", ".cy.ts", "cypress/integration/"},
	"ava":     {".test.js", "test/"},
}

var defaultTestPatterns = []string{".test.js", ".spec.js", "test/", "__tests__/"}

// Manifest is the part of package.json the analyzers and calculators read.
type Manifest struct {
	License         any               `json:"license"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// ParseManifest decodes package.json content.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "analysis: parse manifest")
	}
	return &m, nil
}

// LicenseField returns the manifest license as text. Object and list
// forms are reduced to their type names.
func (m *Manifest) LicenseField() string {
	switch l := m.License.(type) {
	case string:
		return l
	case map[string]any:
		s, _ := l["type"].(string)
		return s
	case []any:
		var out []string
		for _, item := range l {
			if obj, ok := item.(map[string]any); ok {
				if s, ok := obj["type"].(string); ok {
					out = append(out, s)
				}
			}
		}
		return strings.Join(out, " OR ")
	}
	return ""
}

// AllDependencies merges runtime and development dependencies; development
// entries win on conflict.
func (m *Manifest) AllDependencies() map[string]string {
	all := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	for k, v := range m.Dependencies {
		all[k] = v
	}
	for k, v := range m.DevDependencies {
		all[k] = v
	}
	return all
}

// DetectTestFrameworks lists the known frameworks declared in the root
// package.json. A missing or malformed manifest yields none.
func DetectTestFrameworks(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil
	}

	var found []string
	for _, fw := range KnownTestFrameworks {
		if m.Dependencies[fw] != "" || m.DevDependencies[fw] != "" {
			found = append(found, fw)
		}
	}
	return found
}

// TestPatterns returns the filename and path patterns for frameworks, or
// the default set when none are given.
func TestPatterns(frameworks []string) []string {
	if len(frameworks) == 0 {
		return defaultTestPatterns
	}
	var patterns []string
	for _, fw := range frameworks {
		patterns = append(patterns, frameworkPatterns[fw]...)
	}
	return patterns
}

// IsTestFile matches a file by its name suffix or its slash-separated
// path relative to the snapshot root.
func IsTestFile(name, relPath string, patterns []string) bool {
	return slices.ContainsFunc(patterns, func(p string) bool {
		return strings.HasSuffix(name, p) || strings.Contains(relPath, p)
	})
}

// countTests walks the root and its immediate subdirectories, returning the
// lines in matched test files and the number of files seen.
func countTests(ctx context.Context, root string, frameworks []string) (testLines, files int, err error) {
	patterns := TestPatterns(frameworks)

	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		entries, readErr := os.ReadDir(dir)
		if readErr != nil {
			return
		}
		for _, e := range entries {
			if err = ctx.Err(); err != nil {
				return
			}
			full := filepath.Join(dir, e.Name())
			if e.IsDir() {
				if depth < 1 && e.Name() != ".git" {
					walk(full, depth+1)
				}
				continue
			}
			if !e.Type().IsRegular() {
				continue
			}

			files++
			rel, relErr := filepath.Rel(root, full)
			if relErr != nil {
				continue
			}
			if IsTestFile(e.Name(), filepath.ToSlash(rel), patterns) {
				testLines += lineCount(full)
			}
		}
	}
	walk(root, 0)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "analysis: count tests in %s", root)
	}
	return testLines, files, nil
}

func lineCount(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return strings.Count(string(data), "\n") + 1
}
