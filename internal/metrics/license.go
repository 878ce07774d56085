package metrics

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/netscore/internal/analysis"
)

// CompatibleLicenses is the allow-list of identifiers compatible with LGPL-2.1.
var CompatibleLicenses = []string{
	"LGPL-2.1", "LGPL-3.0",
	"GPL-2.0", "GPL-3.0",
	"MIT", "BSD-2-Clause", "BSD-3-Clause",
	"Apache-2.0", "ISC", "Unlicense",
}

var readmeLicenseRe = regexp.MustCompile(`(?is)#+\s*License\s*(.*?)(?:#|\z)`)

func foldLicense(s string) string {
	return strings.ReplaceAll(cases.Fold().String(s), "-", " ")
}

// IsCompatibleLicense matches text against the allow-list, ignoring case
// and treating '-' and ' ' alike. The literal UNLICENSED is never compatible.
func IsCompatibleLicense(text string) bool {
	if strings.EqualFold(strings.TrimSpace(text), "UNLICENSED") {
		return false
	}
	folded := foldLicense(text)
	for _, id := range CompatibleLicenses {
		if strings.Contains(folded, foldLicense(id)) {
			return true
		}
	}
	return false
}

// ReadmeLicenseSection returns the body of the first "License" heading in
// a markdown README, up to the next heading.
func ReadmeLicenseSection(readme string) string {
	m := readmeLicenseRe.FindStringSubmatch(readme)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// License scores 1 when the first license source found is on the
// allow-list. Sources are tried in order: LICENSE, the manifest license
// field, the README License section.
func (s *Set) License(ctx context.Context, in *Input) (float64, error) {
	if !s.gh.HasToken() {
		return 0, nil
	}

	text, err := s.licenseText(ctx, in)
	if err != nil {
		return 0, err
	}
	if text == "" {
		zap.L().Debug("metrics: no license information", zap.String("repo", in.Repo.String()))
		return 0, nil
	}
	if IsCompatibleLicense(text) {
		return 1, nil
	}
	return 0, nil
}

func (s *Set) licenseText(ctx context.Context, in *Input) (string, error) {
	if data, err := s.gh.GetFileContents(ctx, in.Repo, "LICENSE"); err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return string(data), nil
	}

	if data, err := s.gh.GetFileContents(ctx, in.Repo, "package.json"); err == nil {
		if m, err := analysis.ParseManifest(data); err == nil {
			if l := strings.TrimSpace(m.LicenseField()); l != "" {
				return l, nil
			}
		}
	}

	readme, err := s.gh.GetReadme(ctx, in.Repo)
	if err != nil {
		return "", err
	}
	return ReadmeLicenseSection(string(readme)), nil
}
