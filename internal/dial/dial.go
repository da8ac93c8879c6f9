// Package dial is the typed client boundary to a DIAL deployment: streaming
// chat completions, embeddings, and per-user file storage.
//
// The wire format is OpenAI-compatible with DIAL extensions
// (custom_fields.configuration on requests, custom_content.attachments on
// streamed deltas). General-purpose OpenAI SDKs drop those extension fields,
// so the client speaks the protocol directly over net/http.
//
// Credentials are per call: the hosting conversation passes the caller's API
// key with each tool invocation, so Client is cheap to clone via WithKey.
package dial

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/koopa0/dialtools/internal/log"
)

// Client talks to one DIAL endpoint. Safe for concurrent use.
type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the default API key used when no per-call key is given.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithAPIVersion overrides the api-version query parameter.
func WithAPIVersion(version string) Option {
	return func(c *Client) { c.apiVersion = version }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit paces outgoing requests at r requests per second with the
// given burst. Zero r disables pacing.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// New creates a Client for the given DIAL endpoint, e.g.
// "https://dial.example.com".
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiVersion: "2025-01-01-preview",
		httpClient: http.DefaultClient,
		logger:     log.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithKey returns a shallow copy of the client authenticated with the given
// per-call API key. The original client is not modified.
func (c *Client) WithKey(apiKey string) *Client {
	clone := *c
	clone.apiKey = apiKey
	return &clone
}

// do applies rate-limit pacing and auth, sends the request, and rejects
// non-2xx responses.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s %s: unexpected status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// deploymentURL builds {endpoint}/openai/deployments/{name}/{op}?api-version=...
func (c *Client) deploymentURL(deployment, op string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		c.endpoint, deployment, op, c.apiVersion)
}
