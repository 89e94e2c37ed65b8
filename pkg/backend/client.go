// Package backend is the HTTP client for the conseil assistant backend.
// It owns request construction and authentication header injection; the
// decoding of streaming responses lives in pkg/stream, shared by every
// streaming endpoint.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/conseilapp/conseil/pkg/stream"
)

const (
	chatStreamPath  = "/v1/chat/stream"
	boardStreamPath = "/v1/board/stream"

	// maxErrorBody bounds how much of a rejected response we read back
	// for the error message.
	maxErrorBody = 32 * 1024
)

// Client talks to one conseil backend. All configuration is explicit; there
// is no process-wide base URL or session token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client created with New.
type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client's logger. It is also handed to opened streams
// for frame-drop diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client for the given base URL (scheme + host + port).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		// Assistant replies can be slow; the per-stream context is the
		// cancellation mechanism, not this timeout.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StreamChat opens a live chat reply stream. The returned stream is owned
// by the caller and ends when a terminal event is yielded, the body ends,
// or ctx is canceled.
func (c *Client) StreamChat(ctx context.Context, req *ChatRequest) (*stream.Stream, error) {
	return c.openStream(ctx, chatStreamPath, req)
}

// StreamBoard opens a board deliberation stream.
func (c *Client) StreamBoard(ctx context.Context, req *BoardRequest) (*stream.Stream, error) {
	return c.openStream(ctx, boardStreamPath, req)
}

// openStream issues the POST and hands the response body to a decoding
// session. On a non-2xx status the body is read (bounded), released, and a
// *StatusError is returned: no stream was established.
func (c *Client) openStream(ctx context.Context, path string, payload any) (*stream.Stream, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("opening stream",
		"url", url,
		"request_id", requestID,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request to backend: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(msg)}
	}

	// The stream takes ownership of the body from here on.
	return stream.New(ctx, resp.Body, stream.WithLogger(c.logger)), nil
}
