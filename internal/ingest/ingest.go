// Package ingest forwards packages that meet the NetScore threshold to a
// package registry endpoint.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/netscore/internal/model"
	"github.com/sells-group/netscore/internal/resilience"
	"github.com/sells-group/netscore/internal/scoring"
)

// DefaultThreshold is the minimum NetScore accepted for ingestion.
const DefaultThreshold = 0.5

// ShouldIngest reports whether report meets threshold.
func ShouldIngest(report *model.ScoreReport, threshold float64) bool {
	return report != nil && report.NetScore >= threshold
}

// Client submits packages to the ingestion endpoint.
type Client interface {
	Submit(ctx context.Context, packageURL string) error
}

// Option configures the ingestion client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	endpoint string
	http     *http.Client
	retry    resilience.RetryConfig
}

// NewClient creates a client posting to endpoint.
func NewClient(endpoint string, opts ...Option) Client {
	c := &httpClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitRequest struct {
	URL string `json:"url"`
}

// Submit posts {"url": packageURL} to the endpoint. Any 2xx is success.
func (c *httpClient) Submit(ctx context.Context, packageURL string) error {
	body, err := json.Marshal(submitRequest{URL: packageURL})
	if err != nil {
		return eris.Wrap(err, "ingest: marshal request")
	}

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("ingest", "submit")

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return eris.Wrap(err, "ingest: create request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "ingest: post")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode/100 != 2 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			statusErr := eris.Errorf("ingest: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return statusErr
		}
		return nil
	})
}

// Outcome is the ingestion result for one package.
type Outcome struct {
	URL      string
	Report   *model.ScoreReport
	Ingested bool
	Err      error
}

// Gate rates packages and submits those that meet the threshold.
type Gate struct {
	rater     scoring.Rater
	client    Client
	threshold float64
}

// NewGate creates a Gate. A negative threshold selects DefaultThreshold.
func NewGate(rater scoring.Rater, client Client, threshold float64) *Gate {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Gate{rater: rater, client: client, threshold: threshold}
}

// Run evaluates each URL in order and submits those at or above the
// threshold. Unsupported URLs are reported with an error.
func (g *Gate) Run(ctx context.Context, urls []string) []Outcome {
	out := make([]Outcome, 0, len(urls))
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		out = append(out, g.one(ctx, u))
	}
	return out
}

func (g *Gate) one(ctx context.Context, packageURL string) Outcome {
	log := zap.L().With(zap.String("url", packageURL))

	report, ok := g.rater.Evaluate(ctx, packageURL)
	if !ok {
		return Outcome{URL: packageURL, Err: eris.Errorf("ingest: unsupported url %q", packageURL)}
	}
	res := Outcome{URL: packageURL, Report: report}

	if !ShouldIngest(report, g.threshold) {
		log.Info("ingest: below threshold, skipped",
			zap.Float64("net_score", report.NetScore),
			zap.Float64("threshold", g.threshold),
		)
		return res
	}

	if err := g.client.Submit(ctx, packageURL); err != nil {
		log.Error("ingest: submit failed", zap.Error(err))
		res.Err = err
		return res
	}
	log.Info("ingest: submitted", zap.Float64("net_score", report.NetScore))
	res.Ingested = true
	return res
}
