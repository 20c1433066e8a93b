// Package aur implements a client for the AUR RPC interface, covering the
// search and info queries the maintainer tooling needs.
package aur

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Default endpoint and settings
const (
	// DefaultBaseURL is the AUR RPC endpoint
	DefaultBaseURL = "https://aur.archlinux.org/rpc/"

	// DefaultHTTPTimeout bounds each request
	DefaultHTTPTimeout = 30 * time.Second

	// rpcVersion is the AUR RPC protocol version spoken
	rpcVersion = "5"
)

// SearchBy selects the field a search query matches against
type SearchBy string

// Supported search fields
const (
	SearchByNameDesc    SearchBy = "name-desc"
	SearchByName        SearchBy = "name"
	SearchByMaintainer  SearchBy = "maintainer"
	SearchByDepends     SearchBy = "depends"
	SearchByMakeDepends SearchBy = "makedepends"
)

// Package is one AUR package record
type Package struct {
	Name         string  `json:"Name"`
	PackageBase  string  `json:"PackageBase"`
	Version      string  `json:"Version"`
	Description  string  `json:"Description"`
	URL          string  `json:"URL"`
	Maintainer   string  `json:"Maintainer"`
	NumVotes     int     `json:"NumVotes"`
	Popularity   float64 `json:"Popularity"`
	OutOfDate    int64   `json:"OutOfDate"`
	LastModified int64   `json:"LastModified"`
}

// rpcResponse is the RPC envelope shared by all query types
type rpcResponse struct {
	Type        string    `json:"type"`
	ResultCount int       `json:"resultcount"`
	Results     []Package `json:"results"`
	Error       string    `json:"error"`
}

// Client queries the AUR RPC interface
type Client struct {
	// BaseURL is the RPC endpoint
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the RPC endpoint
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.BaseURL = u
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = hc
	}
}

// NewClient creates a Client with default settings
func NewClient(opts ...Option) *Client {
	c := &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// query performs one RPC call and unwraps the envelope
func (c *Client) query(ctx context.Context, params url.Values) ([]Package, error) {
	params.Set("v", rpcVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aur: unexpected status %s", resp.Status)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("aur: decoding response: %w", err)
	}
	if envelope.Type == "error" {
		return nil, fmt.Errorf("aur: rpc error: %s", envelope.Error)
	}

	return envelope.Results, nil
}

// Search searches the AUR by the given field
func (c *Client) Search(ctx context.Context, by SearchBy, term string) ([]Package, error) {
	params := url.Values{}
	params.Set("type", "search")
	params.Set("by", string(by))
	params.Set("arg", term)
	return c.query(ctx, params)
}

// Info fetches full records for the named packages
func (c *Client) Info(ctx context.Context, names ...string) ([]Package, error) {
	params := url.Values{}
	params.Set("type", "info")
	for _, name := range names {
		params.Add("arg[]", name)
	}
	return c.query(ctx, params)
}
