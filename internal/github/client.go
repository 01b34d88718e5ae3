// Package github is the GitHub REST collaborator: a thin client plus the
// DataSource and DataSink adapters the orchestration core consumes. The core
// never retries; transient failures are retried here with exponential
// backoff before they surface.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the GitHub REST API base URL.
	DefaultAPIEndpoint = "https://api.github.com"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the maximum number of records to fetch per page.
	MaxPageSize = 100

	// MaxPages is the maximum number of pages to fetch before stopping.
	// This prevents infinite loops from malformed Link headers.
	MaxPages = 1000

	// maxRetryElapsed caps the total time spent retrying one request.
	maxRetryElapsed = 2 * time.Minute

	// maxResponseSize caps response bodies to keep a hostile or broken
	// server from exhausting memory.
	maxResponseSize = 50 * 1024 * 1024
)

// Sentinel errors for collaborator-reported failures. They scope to the
// failing entity's result; the run continues.
var (
	// ErrSourceUnavailable wraps transport failures and 5xx responses that
	// persisted through retries.
	ErrSourceUnavailable = errors.New("github: source unavailable")

	// ErrAuthorizationDenied wraps 401 and non-rate-limit 403 responses.
	ErrAuthorizationDenied = errors.New("github: authorization denied")
)

// errTransient marks failures worth retrying; whatever survives the backoff
// policy is reported as ErrSourceUnavailable.
var errTransient = errors.New("transient failure")

// NotFoundError reports a 404 for a specific resource path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("github: not found: %s", e.Path)
}

// Client provides methods to interact with the GitHub REST API.
type Client struct {
	Token      string       // personal access token
	Owner      string       // repository owner (user or org)
	Repo       string       // repository name
	BaseURL    string       // API base URL (default: https://api.github.com)
	HTTPClient *http.Client // optional custom HTTP client
}

// NewClient creates a new GitHub client for owner/repo.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		Token:   token,
		Owner:   owner,
		Repo:    repo,
		BaseURL: DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithBaseURL returns a new client with a custom base URL (for testing or
// GitHub Enterprise).
func (c *Client) WithBaseURL(baseURL string) *Client {
	return &Client{
		Token:      c.Token,
		Owner:      c.Owner,
		Repo:       c.Repo,
		BaseURL:    baseURL,
		HTTPClient: c.HTTPClient,
	}
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	return &Client{
		Token:      c.Token,
		Owner:      c.Owner,
		Repo:       c.Repo,
		BaseURL:    c.BaseURL,
		HTTPClient: httpClient,
	}
}

// repoPath returns the "/repos/owner/repo" path segment.
func (c *Client) repoPath() string {
	return "/repos/" + c.Owner + "/" + c.Repo
}

// buildURL constructs a full API URL.
func (c *Client) buildURL(path string, params map[string]string) string {
	u := c.BaseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		u += "?" + values.Encode()
	}
	return u
}

// retryAfterDelay reads a Retry-After header in seconds, zero when absent.
func retryAfterDelay(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

// isRateLimited reports whether the response signals rate limiting. GitHub
// uses 429, or 403 with X-RateLimit-Remaining: 0.
func isRateLimited(resp *http.Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
}

// doRequest performs one authenticated request with retry. Rate limits and
// 5xx responses are retried with exponential backoff (honoring Retry-After);
// auth failures and client errors are permanent.
func (c *Client) doRequest(ctx context.Context, method, urlStr string, body interface{}) ([]byte, http.Header, error) {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	type response struct {
		body    []byte
		headers http.Header
	}

	operation := func() (*response, error) {
		var reqBody io.Reader
		if jsonBody != nil {
			reqBody = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errTransient, err)
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %v", errTransient, err)
		}

		switch {
		case isRateLimited(resp):
			if delay := retryAfterDelay(resp.Header); delay > 0 {
				select {
				case <-ctx.Done():
					return nil, backoff.Permanent(ctx.Err())
				case <-time.After(delay):
				}
			}
			return nil, fmt.Errorf("%w: rate limited (status %d)", errTransient, resp.StatusCode)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, backoff.Permanent(fmt.Errorf("%w: %s (status %d)", ErrAuthorizationDenied, method+" "+urlStr, resp.StatusCode))
		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(&NotFoundError{Path: urlStr})
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: server error (status %d): %s", errTransient, resp.StatusCode, string(respBody))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, backoff.Permanent(fmt.Errorf("API error: %s (status %d)", string(respBody), resp.StatusCode))
		}
		return &response{body: respBody, headers: resp.Header}, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxRetryElapsed
	resp, err := backoff.RetryWithData(operation, backoff.WithContext(policy, ctx))
	if err != nil {
		if errors.Is(err, errTransient) {
			return nil, nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return nil, nil, err
	}
	return resp.body, resp.headers, nil
}

// linkNextPattern matches the "next" relation in GitHub Link headers.
var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// hasNextPage checks the Link header for a next page URL and returns it.
func hasNextPage(headers http.Header) (string, bool) {
	link := headers.Get("Link")
	if link == "" {
		return "", false
	}
	matches := linkNextPattern.FindStringSubmatch(link)
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}

// listRaw pages through a collection endpoint and returns every element of
// every page as its own raw JSON object.
func (c *Client) listRaw(ctx context.Context, path string, params map[string]string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	page := 1

	merged := map[string]string{"per_page": strconv.Itoa(MaxPageSize)}
	for k, v := range params {
		merged[k] = v
	}

	for {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		merged["page"] = strconv.Itoa(page)
		urlStr := c.buildURL(path, merged)
		respBody, headers, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
		}

		var items []json.RawMessage
		if err := json.Unmarshal(respBody, &items); err != nil {
			return nil, fmt.Errorf("failed to parse %s response: %w", path, err)
		}
		all = append(all, items...)

		if _, ok := hasNextPage(headers); !ok {
			break
		}
		page++
		if page > MaxPages {
			return nil, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
		}
	}

	return all, nil
}

// postJSON sends a POST and decodes the created resource into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	respBody, _, err := c.doRequest(ctx, http.MethodPost, c.buildURL(path, nil), body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse create response: %w", err)
	}
	return nil
}

// patchJSON sends a PATCH and discards the response body.
func (c *Client) patchJSON(ctx context.Context, path string, body interface{}) error {
	_, _, err := c.doRequest(ctx, http.MethodPatch, c.buildURL(path, nil), body)
	return err
}

// getJSON sends a GET for a single resource and decodes it into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	respBody, _, err := c.doRequest(ctx, http.MethodGet, c.buildURL(path, nil), nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
