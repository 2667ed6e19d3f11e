// Package api is the HTTP half of the lobby client: it injects the bearer
// credential, normalizes response field names from the wire convention to
// the client convention, and turns a dead credential into a cleared token
// store so the caller can route to login.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fiverow/lobby-client/internal/tokenstore"
	"github.com/fiverow/lobby-client/internal/wirecase"
)

// ErrUnauthorized is returned when the server rejects the credential. The
// stored token has already been cleared by the time the caller sees it.
var ErrUnauthorized = errors.New("unauthorized")

// ErrRejected is returned when the server answers success=false to a
// command (room full, already in a room, not the host, and so on).
var ErrRejected = errors.New("rejected by server")

// StatusError is any non-2xx response other than an authorization failure.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithTokenStore makes the client authenticated: every request carries the
// stored token as a bearer header when one is present, and a 401 clears
// the store. Without it the client is the unauthenticated configuration.
func WithTokenStore(store tokenstore.Store) Option {
	return func(c *Client) { c.store = store }
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger. Default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// Client issues requests against the lobby server. It performs no retries;
// transport failures propagate to the caller unchanged.
type Client struct {
	base  string
	http  *http.Client
	store tokenstore.Store
	log   *zap.Logger
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post sends body as JSON and decodes the normalized response into out
// (skipped when out is nil). On a 401 from an authenticated client the
// stored token is cleared before the failure is returned; nothing is
// decoded from such a response.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", path, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.store != nil {
		// No token is not an error here: the request goes out bare and
		// the server decides.
		if tok := c.store.Get(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.store != nil {
		if err := c.store.Clear(); err != nil {
			c.log.Warn("clear token after 401", zap.Error(err))
		}
		return fmt.Errorf("%s: %w", path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}

	norm, err := wirecase.CamelizeJSON(data)
	if err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	if err := json.Unmarshal(norm, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}
