package archweb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"
)

// Default endpoints and settings
const (
	// DefaultBaseURL is the archweb site root
	DefaultBaseURL = "https://www.archlinux.org"

	// DefaultMirrorURL is the mirror used for sync database downloads
	DefaultMirrorURL = "http://mirror.pkgbuild.com"

	// DefaultHTTPTimeout bounds each request
	DefaultHTTPTimeout = 60 * time.Second
)

// DefaultRepos are the repositories consulted for packages and orphans
var DefaultRepos = []string{"core", "extra", "community", "multilib"}

// Client queries the archweb JSON API and downloads sync databases from a
// mirror
type Client struct {
	// BaseURL is the archweb site root
	BaseURL string

	// MirrorURL is the package mirror root
	MirrorURL string

	// Repos are the repositories to consult
	Repos []string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	logger *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL overrides the archweb site root
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.BaseURL = u
	}
}

// WithMirrorURL overrides the package mirror root
func WithMirrorURL(u string) ClientOption {
	return func(c *Client) {
		c.MirrorURL = u
	}
}

// WithRepos overrides the consulted repositories
func WithRepos(repos ...string) ClientOption {
	return func(c *Client) {
		c.Repos = repos
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.HTTPClient = hc
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client with default settings
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    DefaultBaseURL,
		MirrorURL:  DefaultMirrorURL,
		Repos:      DefaultRepos,
		HTTPClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// searchResponse is the archweb package search JSON envelope
type searchResponse struct {
	NumPages int `json:"num_pages"`
	Page     int `json:"page"`
	Results  []struct {
		PkgName string `json:"pkgname"`
	} `json:"results"`
}

// pkgResponse is the archweb package detail JSON envelope
type pkgResponse struct {
	Maintainers []string `json:"maintainers"`
}

// getJSON fetches a URL and decodes the JSON body into v
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", rawURL, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// Orphans returns the names of all orphaned packages in the configured
// repositories, following the API's pagination
func (c *Client) Orphans(ctx context.Context) (Set, error) {
	query := url.Values{}
	query.Set("maintainer", "orphan")
	for _, repo := range c.Repos {
		// archweb expects capitalized repo names in search queries
		query.Add("repo", capitalize(repo))
	}

	orphans := make(Set)
	page := 1
	for {
		query.Set("page", fmt.Sprintf("%d", page))
		u := fmt.Sprintf("%s/packages/search/json/?%s", c.BaseURL, query.Encode())

		var resp searchResponse
		if err := c.getJSON(ctx, u, &resp); err != nil {
			return nil, fmt.Errorf("fetching orphans page %d: %w", page, err)
		}

		for _, r := range resp.Results {
			orphans.Add(r.PkgName)
		}

		c.logger.Debug("fetched orphan page",
			zap.Int("page", page), zap.Int("total_pages", resp.NumPages),
			zap.Int("results", len(resp.Results)))

		if page >= resp.NumPages {
			break
		}
		page++
	}

	return orphans, nil
}

// Maintainers returns the maintainers of one package
func (c *Client) Maintainers(ctx context.Context, repo, arch, name string) ([]string, error) {
	u := fmt.Sprintf("%s/packages/%s/%s/%s/json/",
		c.BaseURL, url.PathEscape(repo), url.PathEscape(arch), url.PathEscape(name))

	var resp pkgResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetching maintainers of %s: %w", name, err)
	}
	return resp.Maintainers, nil
}

// FetchSyncDB downloads one repository's sync database into destDir,
// writing it atomically, and returns the local path
func (c *Client) FetchSyncDB(ctx context.Context, repo, destDir string) (string, error) {
	u := fmt.Sprintf("%s/%s/os/x86_64/%s.db", c.MirrorURL, repo, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s db: %w", repo, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s db: unexpected status %s", repo, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("downloading %s db: %w", repo, err)
	}

	dest := filepath.Join(destDir, repo+".db")
	if err := renameio.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}

	c.logger.Debug("fetched sync db", zap.String("repo", repo),
		zap.String("path", dest), zap.Int("bytes", len(data)))

	return dest, nil
}

// LoadPackages downloads and parses every configured repository's sync
// database, merging the results into one map keyed by package name
func (c *Client) LoadPackages(ctx context.Context, destDir string) (map[string]*Package, error) {
	pkgs := make(map[string]*Package)

	for _, repo := range c.Repos {
		path, err := c.FetchSyncDB(ctx, repo, destDir)
		if err != nil {
			return nil, err
		}

		repoPkgs, err := parseRepoDBFile(path, repo)
		if err != nil {
			return nil, err
		}
		for name, pkg := range repoPkgs {
			pkgs[name] = pkg
		}
	}

	return pkgs, nil
}

// capitalize uppercases the first byte of an ASCII repo name
func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
