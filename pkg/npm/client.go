// Package npm provides a metadata client for the npm package registry.
package npm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/netscore/internal/resilience"
)

const defaultBaseURL = "https://registry.npmjs.org"

// NotFoundError is returned when the registry has no such package.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "npm: package " + e.Name + " not found"
}

// Metadata is the subset of a registry document the scoring pipeline needs.
type Metadata struct {
	Name            string
	RepositoryURL   string
	License         string
	Dependencies    map[string]string
	DevDependencies map[string]string
}

// Client fetches package metadata.
type Client interface {
	GetPackageMetadata(ctx context.Context, name string) (*Metadata, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the registry root.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a registry client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type document struct {
	Name       string             `json:"name"`
	Repository any                `json:"repository"`
	License    any                `json:"license"`
	DistTags   map[string]string  `json:"dist-tags"`
	Versions   map[string]version `json:"versions"`
}

type version struct {
	Repository      any               `json:"repository"`
	License         any               `json:"license"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// GetPackageMetadata fetches the registry document for name and reduces it
// to the latest version's repository, license and dependency maps.
func (c *httpClient) GetPackageMetadata(ctx context.Context, name string) (*Metadata, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, eris.New("npm: empty package name")
	}
	endpoint := c.baseURL + "/" + escapeName(name)

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("npm", "get package")

	doc, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*document, error) {
		return c.fetch(ctx, endpoint, name)
	})
	if err != nil {
		return nil, err
	}

	latest := doc.Versions[doc.DistTags["latest"]]
	meta := &Metadata{
		Name:            doc.Name,
		RepositoryURL:   repositoryURL(latest.Repository, doc.Repository),
		License:         licenseText(latest.License, doc.License),
		Dependencies:    latest.Dependencies,
		DevDependencies: latest.DevDependencies,
	}
	if meta.Name == "" {
		meta.Name = name
	}
	return meta, nil
}

func (c *httpClient) fetch(ctx context.Context, endpoint, name string) (*document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "npm: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "npm: get %s", name)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "npm: read response body")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Name: name}
	case resp.StatusCode != http.StatusOK:
		err := eris.Errorf("npm: unexpected status %d for %s", resp.StatusCode, name)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, eris.Wrapf(err, "npm: decode %s", name)
	}
	return &doc, nil
}

// escapeName encodes the scope separator: @scope/pkg → @scope%2Fpkg.
func escapeName(name string) string {
	return url.PathEscape(name)
}

func repositoryURL(values ...any) string {
	for _, v := range values {
		switch r := v.(type) {
		case string:
			if r != "" {
				return r
			}
		case map[string]any:
			if u, ok := r["url"].(string); ok && u != "" {
				return u
			}
		}
	}
	return ""
}

func licenseText(values ...any) string {
	for _, v := range values {
		switch l := v.(type) {
		case string:
			if l != "" {
				return l
			}
		case map[string]any:
			if t, ok := l["type"].(string); ok && t != "" {
				return t
			}
		case []any:
			var out []string
			for _, item := range l {
				if s := licenseText(item); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return strings.Join(out, " OR ")
			}
		}
	}
	return ""
}
