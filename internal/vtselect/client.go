package vtselect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/five82/tracetail/internal/cache"
	"github.com/five82/tracetail/internal/traces"
)

// Fetcher defines the one-shot calls used by the explore poller and the CLI.
// This interface is implemented by *Client and can be used for testing.
type Fetcher interface {
	Query(ctx context.Context, params QueryParams) ([]traces.Record, error)
	Hits(ctx context.Context, params HitsParams) ([]Hit, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// ErrNoBody is returned when the server answers a tail request without a body.
var ErrNoBody = errors.New("response has no body")

// StatusError reports a non-2xx answer from the select API.
type StatusError struct {
	Path string
	Code int
	Body string // leading bytes of the response body
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
	}
	return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Code, e.Body)
}

// Client talks to the VictoriaTraces select API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	stream    *http.Client
	userAgent string
	accountID string
	projectID string
	values    *cache.FIFO[string, []FieldValue]
}

const (
	defaultServer      = "127.0.0.1:10428"
	defaultUserAgent   = "tracetail/0.1"
	requestTimeout     = 5 * time.Second
	errorBodyLimit     = 512
	fieldValuesCacheSz = 1000
)

// Option customises a Client.
type Option func(*Client)

// WithTenant sets the AccountID and ProjectID headers sent with every request.
func WithTenant(accountID, projectID string) Option {
	return func(c *Client) {
		c.accountID = strings.TrimSpace(accountID)
		c.projectID = strings.TrimSpace(projectID)
	}
}

// WithHTTPClient replaces both the bounded and the streaming HTTP clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
			c.stream = hc
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for the given host:port or URL.
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		// The tail response never ends on its own, so only the context bounds it.
		stream:    &http.Client{},
		userAgent: defaultUserAgent,
		values:    cache.NewFIFO[string, []FieldValue](fieldValuesCacheSz),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised server URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Tail opens the live tail stream for query. The caller owns the returned
// body and must close it; cancelling ctx aborts the stream.
func (c *Client) Tail(ctx context.Context, query string) (io.ReadCloser, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	form := url.Values{}
	form.Set("query", strings.TrimSpace(query))
	resp, err := c.post(ctx, c.stream, "/select/tracesql/tail", form)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoBody
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, path string, form url.Values) (*http.Response, error) {
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(hc, path, req)
}

func (c *Client) get(ctx context.Context, path string, values url.Values) (*http.Response, error) {
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.send(c.http, path, req)
}

func (c *Client) send(hc *http.Client, path string, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.accountID != "" {
		req.Header.Set("AccountID", c.accountID)
	}
	if c.projectID != "" {
		req.Header.Set("ProjectID", c.projectID)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &StatusError{
			Path: path,
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(snippet)),
		}
	}
	return resp, nil
}

func parseBaseURL(server string) (*url.URL, error) {
	trimmed := strings.TrimSpace(server)
	if trimmed == "" {
		trimmed = defaultServer
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server_url %q: %w", server, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server_url %q: missing host", server)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
