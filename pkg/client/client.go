// Package client is a Go client for the SpecSync HTTP API.
//
// The client authenticates with a session token issued by
// "specsync session issue". Reads are retried on transient failures; writes
// are sent once.
//
// [ScreenClient] adapts the client to the placement controller, so a drag
// committed on the command line is persisted exactly like one committed in
// the browser:
//
//	c, _ := client.New("http://localhost:8080", token)
//	ctrl := placement.New(c.Screen(screenID))
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/httputil"
	"github.com/matzehuels/specsync/pkg/server"
)

// DefaultTimeout bounds each request, uploads and exports included.
const DefaultTimeout = 60 * time.Second

// ErrNetwork wraps transport failures. It carries no error code.
var ErrNetwork = errors.New("client: network error")

// Client calls the API on behalf of one session.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	retry  httputil.Policy
	logger *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry sets the retry policy for reads.
func WithRetry(p httputil.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the API at baseURL.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid server url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "server url must be http or https, got %q", baseURL)
	}
	c := &Client{
		base:   u,
		token:  token,
		http:   &http.Client{Timeout: DefaultTimeout},
		retry:  httputil.DefaultPolicy,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string { return c.base.String() }

// =============================================================================
// Transport
// =============================================================================

// request describes one API call.
type request struct {
	method      string
	path        string
	contentType string
	body        []byte
	idempotent  bool
}

// response is a successful API reply.
type response struct {
	header http.Header
	body   []byte
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// do sends req, retrying idempotent requests on transient failures. Error
// bodies are decoded back into coded errors.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	policy := httputil.NoRetry
	if req.idempotent {
		policy = c.retry
	}

	var out *response
	err := httputil.Retry(ctx, policy, func() error {
		var body io.Reader
		if req.body != nil {
			body = bytes.NewReader(req.body)
		}
		hr, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path), body)
		if err != nil {
			return err
		}
		if req.contentType != "" {
			hr.Header.Set("Content-Type", req.contentType)
		}
		if c.token != "" {
			hr.Header.Set("Authorization", "Bearer "+c.token)
		}

		start := time.Now()
		resp, err := c.http.Do(hr)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &httputil.RetryableError{Err: fmt.Errorf("%w: read body: %v", ErrNetwork, err)}
		}
		c.logger.Debug("api call",
			"method", req.method,
			"path", req.path,
			"status", resp.StatusCode,
			"duration", time.Since(start))

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			out = &response{header: resp.Header, body: data}
			return nil
		}
		apiErr := decodeError(resp.StatusCode, data)
		if httputil.RetryableStatus(resp.StatusCode) {
			return &httputil.RetryableError{Err: apiErr}
		}
		return apiErr
	})
	return out, err
}

// decodeError rebuilds the coded error the server reported.
func decodeError(status int, body []byte) error {
	var e server.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Code != "" {
		return apperrors.New(e.Code, "%s", e.Message)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return apperrors.New(statusCode(status), "server returned %d: %s", status, msg)
}

// statusCode guesses an error code for replies without a JSON body, such as
// those from a proxy in front of the API.
func statusCode(status int) apperrors.Code {
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.ErrCodeUnauthorized
	case status == http.StatusForbidden:
		return apperrors.ErrCodeForbidden
	case status == http.StatusNotFound:
		return apperrors.ErrCodeNotFound
	case status == http.StatusRequestEntityTooLarge:
		return apperrors.ErrCodeUploadTooLarge
	case status >= 500:
		return apperrors.ErrCodePersistence
	default:
		return apperrors.ErrCodeInvalidInput
	}
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path, idempotent: true})
	if err != nil {
		return err
	}
	return decode(resp.body, v)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "encode request")
	}
	resp, err := c.do(ctx, request{
		method:      method,
		path:        path,
		contentType: "application/json",
		body:        body,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(resp.body, out)
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "decode response")
	}
	return nil
}
