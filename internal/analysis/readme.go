package analysis

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var readmeNames = []string{"readme.md", "readme", "readme.markdown", "readme.txt"}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ReadReadme returns the root README of the snapshot, matched
// case-insensitively, or nil when there is none.
func ReadReadme(root string) ([]byte, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: read %s", root)
	}

	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			byName[strings.ToLower(e.Name())] = e.Name()
		}
	}

	for _, candidate := range readmeNames {
		name, ok := byName[candidate]
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			return nil, eris.Wrapf(err, "analysis: read %s", name)
		}
		return data, nil
	}
	return nil, nil
}

// WordCount counts whitespace-delimited words.
func WordCount(doc []byte) int {
	return len(strings.Fields(string(doc)))
}

// Links returns every link target in a markdown document, including
// GFM autolinks.
func Links(doc []byte) []string {
	root := markdown.Parser().Parse(text.NewReader(doc))

	var links []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			links = append(links, string(node.Destination))
		case *ast.AutoLink:
			links = append(links, string(node.URL(doc)))
		}
		return ast.WalkContinue, nil
	})
	return links
}

// IsExternalLink reports whether link is an https URL off the hosting
// platform and the registry.
func IsExternalLink(link string) bool {
	return strings.HasPrefix(link, "https://") &&
		!strings.Contains(link, "github.com") &&
		!strings.Contains(link, "npmjs.com")
}

// ExternalLinkCount counts the external links in a markdown document.
func ExternalLinkCount(doc []byte) int {
	n := 0
	for _, link := range Links(doc) {
		if IsExternalLink(link) {
			n++
		}
	}
	return n
}
