// Package urlcheck verifies that a set of URLs is still alive, fanning the
// checks out concurrently and delivering results as each check finishes.
// It is used to validate upstream source URLs referenced by PKGBUILDs.
package urlcheck

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default settings for a Checker
const (
	// DefaultConcurrency is the maximum number of in-flight checks
	DefaultConcurrency = 10

	// DefaultTimeout is the per-URL timeout
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent identifies the checker to remote servers
	DefaultUserAgent = "go-archtools-urlcheck/0.3.0"
)

// Result is the outcome of checking one URL
type Result struct {
	// URL is the checked URL
	URL string
	// StatusCode is the HTTP status received, 0 when the request failed
	StatusCode int
	// Err is the transport or protocol error, if any
	Err error
	// Elapsed is how long the check took
	Elapsed time.Duration
}

// OK reports whether the URL counts as alive: a 2xx or 3xx response
func (r Result) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 400
}

// Checker verifies URL liveness with bounded concurrency. Checks are
// performed with HEAD and fall back to GET for servers that reject HEAD.
type Checker struct {
	// Concurrency is the maximum number of concurrent checks
	Concurrency int

	// Timeout is the per-URL timeout
	Timeout time.Duration

	// UserAgent is sent with every request
	UserAgent string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	logger *zap.Logger
}

// Option configures a Checker
type Option func(*Checker)

// WithConcurrency sets the maximum number of concurrent checks
func WithConcurrency(n int) Option {
	return func(c *Checker) {
		c.Concurrency = n
	}
}

// WithTimeout sets the per-URL timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.Timeout = d
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) {
		c.HTTPClient = hc
	}
}

// WithLogger sets the logger used for check diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// NewChecker creates a Checker with default settings
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		HTTPClient:  http.DefaultClient,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.Concurrency < 1 {
		c.Concurrency = 1
	}

	return c
}

// Check fans the URL checks out and returns a channel delivering results
// in completion order. The channel is closed once every URL has been
// checked.
func (c *Checker) Check(ctx context.Context, urls []string) <-chan Result {
	results := make(chan Result, len(urls))

	// Semaphore for concurrency control
	sem := make(chan struct{}, c.Concurrency)

	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- Result{URL: target, Err: ctx.Err()}
				return
			}

			results <- c.checkOne(ctx, target)
		}(u)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// CheckAll runs Check and collects every result
func (c *Checker) CheckAll(ctx context.Context, urls []string) []Result {
	var all []Result
	for r := range c.Check(ctx, urls) {
		all = append(all, r)
	}
	return all
}

// checkOne performs a single liveness check with HEAD, retrying with GET
// for servers that reject HEAD outright
func (c *Checker) checkOne(ctx context.Context, target string) Result {
	start := time.Now()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	status, err := c.request(ctx, http.MethodHead, target)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.request(ctx, http.MethodGet, target)
	}

	res := Result{
		URL:        target,
		StatusCode: status,
		Err:        err,
		Elapsed:    time.Since(start),
	}

	c.logger.Debug("checked url", zap.String("url", target),
		zap.Int("status", status), zap.Duration("elapsed", res.Elapsed), zap.Error(err))

	return res
}

// request issues one request and returns the status code
func (c *Checker) request(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, nil
}
