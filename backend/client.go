// Package backend issues requests to the dashboard backend on behalf of the
// current session.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/BharatiPatra/fi-dashboard/internal/errors"
	"github.com/BharatiPatra/fi-dashboard/internal/metrics"
	"github.com/BharatiPatra/fi-dashboard/session"
	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

// SessionReader is the read side of session.Context. Each call takes one
// snapshot with Current and gates on it.
type SessionReader interface {
	Current() session.Triple
}

// Client sends authenticated requests to the backend. It never changes the
// session it reads from.
type Client struct {
	baseURL    *url.URL
	sessions   SessionReader
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *metrics.Backend
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Backend) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// RequestOptions describes a backend call. Method defaults to GET.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   io.Reader
}

func New(baseURL string, sessions SessionReader, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    u,
		sessions:   sessions,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root the client resolves relative paths against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Request issues an authenticated request. Without a complete session it
// returns errors.ErrUnauthenticated and performs no I/O. The session
// identifiers are appended to path as query parameters; path may be relative
// to the backend root or absolute. Transport errors are returned unchanged and
// the caller owns the response body.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (*http.Response, error) {
	return c.requestAs(ctx, c.sessions.Current(), path, opts)
}

// requestAs is Request for an already read session snapshot.
func (c *Client) requestAs(ctx context.Context, t session.Triple, path string, opts RequestOptions) (*http.Response, error) {
	if !t.IsComplete() {
		return nil, errors.ErrUnauthenticated
	}

	u, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	params, err := query.Values(t.Params())
	if err != nil {
		return nil, fmt.Errorf("unable to encode session parameters: %w", err)
	}
	q := u.Query()
	for k := range params {
		q.Set(k, params.Get(k))
	}
	u.RawQuery = q.Encode()

	return c.send(ctx, u, opts)
}

func (c *Client) send(ctx context.Context, u *url.URL, opts RequestOptions) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), opts.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if opts.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

func (c *Client) resolve(p string) (*url.URL, error) {
	ref, err := url.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", p, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}

	u := *c.baseURL
	u.Path = path.Join("/", c.baseURL.Path, ref.Path)
	u.RawQuery = ref.RawQuery
	return &u, nil
}

// getJSON runs a gated GET and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, p string, out any) error {
	resp, err := c.Request(ctx, p, RequestOptions{})
	return c.decode(endpoint, resp, err, out)
}

// postJSON runs a POST of in gated on t and decodes a 2xx body into out.
func (c *Client) postJSON(ctx context.Context, t session.Triple, endpoint, p string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("unable to encode %s request: %w", endpoint, err)
	}
	resp, err := c.requestAs(ctx, t, p, RequestOptions{Method: http.MethodPost, Body: bytes.NewReader(body)})
	return c.decode(endpoint, resp, err, out)
}

func (c *Client) decode(endpoint string, resp *http.Response, err error, out any) error {
	if err != nil {
		if !errors.Is(err, errors.ErrUnauthenticated) {
			c.metrics.Request(endpoint, "error")
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("backend request failed")
		}
		return err
	}
	defer resp.Body.Close()

	c.metrics.Request(endpoint, statusClass(resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := newHTTPError(resp.StatusCode, raw)
		c.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg(httpErr.Message)
		return httpErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unable to decode %s response: %w", endpoint, err)
	}
	return nil
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
