package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout  = 15 * time.Second
	maxErrorBody    = 64 << 10
	maxDocumentBody = 64 << 20
)

// TokenSource supplies the bearer token for each request. An empty token
// means the request is sent unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// StaticToken is a fixed token, mostly useful in tests and scripts.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// RequestIDHeader carries the caller's request id to the backend.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID returns a context whose backend calls carry id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached with WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client issues JSON requests against the question-bank backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Transport: c.http.Transport, Timeout: d}
		}
	}
}

// WithTokenSource attaches a bearer token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log.With().Str("component", "client").Logger()
	}
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Document is a binary payload such as a generated paper.
type Document struct {
	ContentType string
	Filename    string
	Data        []byte
}

// ─── JSON verbs ───────────────────────────────────────────────

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, withQuery(path, query), nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// Download performs a request whose successful response is a binary document.
func (c *Client) Download(ctx context.Context, method, path string, body any) (*Document, error) {
	resp, err := c.send(ctx, method, path, body, "application/pdf, application/octet-stream, */*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBody))
	if err != nil {
		return nil, newNetworkError(method, path, err)
	}

	return &Document{
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    filenameFrom(resp.Header.Get("Content-Disposition")),
		Data:        data,
	}, nil
}

// ─── Plumbing ─────────────────────────────────────────────────

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// send executes the request and returns the response only for 2xx statuses.
func (c *Client) send(ctx context.Context, method, path string, body any, accept string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: marshal request: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: create request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	if id := RequestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("Backend unreachable")
		return nil, newNetworkError(method, path, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newStatusError(method, path, resp.StatusCode, raw)
	}
	return resp, nil
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func filenameFrom(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
