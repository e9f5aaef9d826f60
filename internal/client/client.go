// Package client talks to the message relay over HTTP. It performs exactly
// one attempt per call; retrying is left to the caller.
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
)

// Client is the relay API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a client for the relay at baseURL, e.g. "http://localhost:3001".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Message is the stored envelope as returned by the relay.
type Message struct {
	EncryptedData string     `json:"encryptedData"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type createRequest struct {
	EncryptedData string     `json:"encryptedData"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

type createResponse struct {
	ID string `json:"id"`
}

// CreateMessage stores encryptedData and returns its id.
func (c *Client) CreateMessage(ctx context.Context, encryptedData string, expiresAt *time.Time) (string, error) {
	var resp createResponse
	if err := c.do(ctx, http.MethodPost, "/", createRequest{
		EncryptedData: encryptedData,
		ExpiresAt:     expiresAt,
	}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("server returned no id")
	}
	return resp.ID, nil
}

// GetMessage fetches the envelope without burning it.
func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	var msg Message
	if err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, &msg); err != nil {
		return nil, err
	}
	if msg.EncryptedData == "" {
		return nil, errors.New("server returned no encryptedData")
	}
	return &msg, nil
}

// DeleteMessage burns the message.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
