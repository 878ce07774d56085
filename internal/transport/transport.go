// Package transport builds the shared HTTP client used by the hosting and
// registry clients: a DNS-caching dialer and per-host circuit breakers.
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/rotisserie/eris"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"
	"go.uber.org/zap"
)

// ErrUpstreamDown is returned when a host's circuit breaker is open.
var ErrUpstreamDown = eris.New("transport: upstream unavailable")

// Options configures NewHTTPClient.
type Options struct {
	// Timeout bounds a single request. Default: 30s.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens a
	// host's breaker. Default: 5.
	FailureThreshold int

	// ResetTimeout is the initial open interval before a trial request is allowed.
	// Default: 30s.
	ResetTimeout time.Duration

	// DNSRefresh is how often cached DNS entries are refreshed. Zero
	// disables the background refresh.
	DNSRefresh time.Duration

	// Context bounds the DNS refresh goroutine. The refresh only runs when
	// Context is set.
	Context context.Context

	// Base overrides the underlying round tripper (tests).
	Base http.RoundTripper
}

// NewHTTPClient returns an http.Client whose transport caches DNS lookups
// and trips a breaker per host after repeated failures.
func NewHTTPClient(opts Options) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	base := opts.Base
	if base == nil {
		base = newCachingTransport(opts.Context, opts.DNSRefresh)
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: NewBreakerTransport(base, opts.FailureThreshold, opts.ResetTimeout),
	}
}

func newCachingTransport(ctx context.Context, refresh time.Duration) *http.Transport {
	resolver := &dnscache.Resolver{}
	if ctx != nil && refresh > 0 {
		go refreshDNS(ctx, resolver, refresh)
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var lastErr error
			for _, ip := range ips {
				conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if dialErr == nil {
					return conn, nil
				}
				lastErr = dialErr
			}
			return nil, eris.Wrapf(lastErr, "transport: dial %s", host)
		},
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

func refreshDNS(ctx context.Context, resolver *dnscache.Resolver, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resolver.Refresh(true)
		}
	}
}

// BreakerTransport is an http.RoundTripper with one circuit breaker per host.
// Network errors and 5xx responses count as failures. Requests ended by
// their own context leave the breaker untouched.
type BreakerTransport struct {
	base         http.RoundTripper
	threshold    int64
	resetTimeout time.Duration

	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

// NewBreakerTransport wraps base with per-host breakers.
func NewBreakerTransport(base http.RoundTripper, failureThreshold int, resetTimeout time.Duration) *BreakerTransport {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &BreakerTransport{
		base:         base,
		threshold:    int64(failureThreshold),
		resetTimeout: resetTimeout,
		breakers:     make(map[string]*circuit.Breaker),
	}
}

func (t *BreakerTransport) breaker(host string) *circuit.Breaker {
	t.mu.RLock()
	b, ok := t.breakers[host]
	t.mu.RUnlock()
	if ok {
		return b
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok = t.breakers[host]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = t.resetTimeout
	expBackoff.MaxInterval = 10 * t.resetTimeout
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ConsecutiveTripFunc(t.threshold),
	})
	t.breakers[host] = b
	return b
}

// RoundTrip implements http.RoundTripper.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	b := t.breaker(host)
	if !b.Ready() {
		return nil, eris.Wrapf(ErrUpstreamDown, "transport: breaker open for %s", host)
	}

	resp, err := t.base.RoundTrip(req)
	switch {
	case err != nil && callerGaveUp(req, err):
		// Not an upstream failure.
	case err != nil:
		b.Fail()
	case resp.StatusCode >= http.StatusInternalServerError:
		b.Fail()
	default:
		b.Success()
	}

	if b.Tripped() {
		zap.L().Warn("transport: circuit open", zap.String("host", host))
	}
	return resp, err
}

func callerGaveUp(req *http.Request, err error) bool {
	return req.Context().Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// States reports "open" or "closed" for every host seen so far.
func (t *BreakerTransport) States() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make(map[string]string, len(t.breakers))
	for host, b := range t.breakers {
		if b.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}
