// Package api is the typed request/response client for the durable message
// store. It is the system of record: every other component treats its
// responses as authoritative and the push channel as a latency optimization.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/creds"
	"github.com/NahoooMac/wedhabesha-sub006/internal/logging"
	"github.com/NahoooMac/wedhabesha-sub006/internal/retry"
)

const defaultRequestTimeout = 10 * time.Second

// Client talks to the REST persistence API.
type Client struct {
	baseURL string
	creds   creds.Provider
	http    *http.Client
	logger  zerolog.Logger
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.example.com/v1".
	BaseURL string
	// Credentials supplies the bearer token. Requests without a token are
	// still sent; the server decides what anonymous callers may see.
	Credentials creds.Provider
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
}

// NewClient creates a persistence client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("api base URL required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	provider := cfg.Credentials
	if provider == nil {
		provider = creds.Static{}
	}
	return &Client{
		baseURL: base,
		creds:   provider,
		http:    &http.Client{Timeout: timeout},
		logger:  logging.Component("api"),
	}, nil
}

// SendMessageRequest is the payload for creating a message.
type SendMessageRequest struct {
	Body        string            `json:"body"`
	Kind        chat.MessageKind  `json:"kind"`
	Attachments []chat.Attachment `json:"attachments,omitempty"`
}

// ListThreads fetches all threads for the authenticated vendor, ordered by
// last activity descending.
func (c *Client) ListThreads(ctx context.Context) ([]chat.Thread, error) {
	var threads []chat.Thread
	if err := c.do(ctx, http.MethodGet, "/threads", nil, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// ListMessages fetches the full message history of one thread, ordered by
// creation time ascending.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]chat.Message, error) {
	var messages []chat.Message
	path := fmt.Sprintf("/threads/%s/messages", url.PathEscape(threadID))
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage durably creates a message and returns the persisted record
// with its server-assigned identifier.
func (c *Client) SendMessage(ctx context.Context, threadID string, req SendMessageRequest) (chat.Message, error) {
	var msg chat.Message
	path := fmt.Sprintf("/threads/%s/messages", url.PathEscape(threadID))
	if err := c.do(ctx, http.MethodPost, path, req, &msg); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// MarkThreadRead acknowledges every message in the thread as read.
func (c *Client) MarkThreadRead(ctx context.Context, threadID string) error {
	path := fmt.Sprintf("/threads/%s/read", url.PathEscape(threadID))
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// MarkMessageRead acknowledges a single message as read.
func (c *Client) MarkMessageRead(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("/messages/%s/read", url.PathEscape(messageID))
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// DeleteMessage removes a message from the durable store.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("/messages/%s", url.PathEscape(messageID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do executes one request, decoding a JSON response into out when non-nil.
// Failures come back as retry.ClassifiedError so callers and the coordinator
// agree on retryability.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return retry.Classified(retry.ClassValidation, op, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return retry.Classified(retry.ClassValidation, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, err := c.creds.Token(); err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return retry.Classified(retry.ClassTransient, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(op, resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Classified(retry.ClassTransient, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	// Error bodies are {"error": "..."} when the server produces them.
	var body struct {
		Error string `json:"error"`
	}
	detail := strings.TrimSpace(string(payload))
	if json.Unmarshal(payload, &body) == nil && body.Error != "" {
		detail = body.Error
	}

	class := retry.ClassifyHTTP(resp.StatusCode)
	err := fmt.Errorf("status %d: %s", resp.StatusCode, logging.Redact(detail))
	c.logger.Debug().Str("op", op).Int("status", resp.StatusCode).Msg("request rejected")
	return retry.Classified(class, op, err)
}
