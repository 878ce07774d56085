package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadReadme_CaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Readme.MD", "hi")

	data, err := ReadReadme(root)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestReadReadme_Missing(t *testing.T) {
	data, err := ReadReadme(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 5, WordCount([]byte("  one two\nthree\tfour   five \n")))
	assert.Zero(t, WordCount(nil))
}

func TestLinks(t *testing.T) {
	doc := []byte(`# Title

Inline [site](https://example.com), [npm](https://www.npmjs.com/package/x),
[insecure](http://example.org) and <https://autolink.dev>.

Bare https://bare.example.net here.

[ref]: https://ref.example.io

Use [the ref][ref].
`)
	links := Links(doc)
	assert.Contains(t, links, "https://example.com")
	assert.Contains(t, links, "https://www.npmjs.com/package/x")
	assert.Contains(t, links, "http://example.org")
	assert.Contains(t, links, "https://autolink.dev")
	assert.Contains(t, links, "https://bare.example.net")
	assert.Contains(t, links, "https://ref.example.io")

	assert.Equal(t, 4, ExternalLinkCount(doc))
}

func TestIsExternalLink(t *testing.T) {
	tests := map[string]bool{
		"https://example.com":            true,
		"https://github.com/a/b":         false,
		"https://docs.npmjs.com/cli":     false,
		"http://example.com":             false,
		"mailto:someone@example.com":     false,
		"https://example.com/github.com": false,
	}
	for link, want := range tests {
		t.Run(link, func(t *testing.T) {
			assert.Equal(t, want, IsExternalLink(link))
		})
	}
}
