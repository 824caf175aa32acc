// Package release discovers the latest published release of an upstream
// GitHub repository and its downloadable assets.
package release

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wenpm/bucketctl/pkg/logger"
	"github.com/wenpm/bucketctl/pkg/sources"
)

const defaultBaseURL = "https://api.github.com"

// Asset is one downloadable file attached to a Release. Immutable.
type Asset struct {
	Name string
	URL  string
	Size int64
}

// Release is a repository's latest published version and its assets.
type Release struct {
	Tag    string
	Assets []Asset
}

// Repository carries the upstream metadata the manifest enriches records with.
type Repository struct {
	Name        string
	Description string
	Homepage    string
	HTMLURL     string
	License     string
}

// Options configures a Client.
type Options struct {
	// Token is a GitHub personal access token. Optional; raises the API
	// rate limit from 60 to 5000 requests per hour.
	Token string

	// BaseURL overrides the GitHub API base, mainly for tests.
	BaseURL string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// MaxAttempts bounds retries per request, including the first attempt.
	MaxAttempts int

	// RetryDelay is the initial backoff; it doubles per attempt.
	RetryDelay time.Duration
}

// Client queries the GitHub REST API. Its lifecycle is scoped to one
// generation run; create it at run start, drop it at run end.
type Client struct {
	httpFetcher HTTPFetcher
	baseURL     string
	token       string
	maxAttempts int
	retryDelay  time.Duration
}

// NewClient creates a GitHub client with a secure HTTP transport.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
	return NewClientWithHTTP(NewRealHTTPFetcher(client), opts)
}

// NewClientWithHTTP creates a client with injectable HTTP for testing.
func NewClientWithHTTP(httpFetcher HTTPFetcher, opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Client{
		httpFetcher: httpFetcher,
		baseURL:     baseURL,
		token:       opts.Token,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// githubReleaseResponse matches GitHub's release API response structure
type githubReleaseResponse struct {
	TagName string `json:"tag_name"`
	Draft   bool   `json:"draft"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	} `json:"assets"`
}

// githubRepoResponse matches GitHub's repository API response structure
type githubRepoResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Homepage    string `json:"homepage"`
	HTMLURL     string `json:"html_url"`
	License     *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}

// LatestRelease returns the most recent published release for a repository.
// Returns ErrNoRelease when the repository has never published one.
func (c *Client) LatestRelease(ctx context.Context, ref sources.Ref) (*Release, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, ref.Owner, ref.Name)

	var resp githubReleaseResponse
	if err := c.getJSON(ctx, apiURL, &resp); err != nil {
		return nil, err
	}

	rel := &Release{Tag: resp.TagName}
	for _, a := range resp.Assets {
		rel.Assets = append(rel.Assets, Asset{
			Name: a.Name,
			URL:  a.BrowserDownloadURL,
			Size: a.Size,
		})
	}
	return rel, nil
}

// Repo returns repository metadata used to enrich manifest records.
func (c *Client) Repo(ctx context.Context, ref sources.Ref) (*Repository, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, ref.Owner, ref.Name)

	var resp githubRepoResponse
	if err := c.getJSON(ctx, apiURL, &resp); err != nil {
		return nil, err
	}

	repo := &Repository{
		Name:        resp.Name,
		Description: resp.Description,
		Homepage:    resp.Homepage,
		HTMLURL:     resp.HTMLURL,
	}
	if resp.License != nil {
		repo.License = resp.License.SPDXID
	}
	return repo, nil
}

// getJSON performs a GET with bounded exponential backoff on transient
// failures. Not-found responses are never retried.
func (c *Client) getJSON(ctx context.Context, apiURL string, v interface{}) error {
	delay := c.retryDelay

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = c.fetchOnce(ctx, apiURL, v)
		if lastErr == nil || !Retriable(lastErr) {
			return lastErr
		}

		if attempt == c.maxAttempts {
			break
		}

		logger.Debug("retrying after transient failure",
			logger.String("url", apiURL),
			logger.Int("attempt", attempt),
			logger.Err(lastErr))

		select {
		case <-ctx.Done():
			return &NetworkError{URL: apiURL, Wrapped: ctx.Err()}
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrQueryFailed, c.maxAttempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, apiURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Authentication raises the rate limit from 60 to 5000 requests/hour
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	// GitHub API requires a User-Agent header
	req.Header.Set("User-Agent", "bucketctl-manifest-generator")
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpFetcher.Do(req)
	if err != nil {
		return &NetworkError{URL: apiURL, Wrapped: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNoRelease, apiURL)

	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		return parseRateLimitError(resp, apiURL)

	case resp.StatusCode >= 500:
		return &NetworkError{
			URL:     apiURL,
			Wrapped: fmt.Errorf("GitHub server error: HTTP %d", resp.StatusCode),
		}

	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GitHub API error: HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &ParseError{Message: "GitHub API", Wrapped: err}
	}
	return nil
}

// parseRateLimitError extracts rate limit information from response headers
func parseRateLimitError(resp *http.Response, url string) error {
	// GitHub rate limit headers:
	// X-RateLimit-Limit: total requests per hour
	// X-RateLimit-Remaining: requests remaining
	// X-RateLimit-Reset: Unix timestamp when limit resets

	limit := 60 // Default unauthenticated limit
	if limitStr := resp.Header.Get("X-RateLimit-Limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	remaining := 0
	if remainingStr := resp.Header.Get("X-RateLimit-Remaining"); remainingStr != "" {
		if parsed, err := strconv.Atoi(remainingStr); err == nil {
			remaining = parsed
		}
	}

	var retryAfter time.Time
	if resetStr := resp.Header.Get("X-RateLimit-Reset"); resetStr != "" {
		if resetUnix, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			retryAfter = time.Unix(resetUnix, 0)
		}
	}

	message := fmt.Sprintf("GitHub API rate limit exceeded for %s", url)
	if resp.StatusCode == http.StatusForbidden {
		message = fmt.Sprintf("GitHub API returned 403 (likely rate limit) for %s", url)
	}

	return &RateLimitError{
		RetryAfter: retryAfter,
		Limit:      limit,
		Remaining:  remaining,
		Message:    message,
	}
}
