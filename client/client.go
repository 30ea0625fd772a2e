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
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://tinto.com.br"
	DefaultTimeout = 10 * time.Second

	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// TokenSource supplies the bearer token and clears the session when the
// server rejects it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

type Client struct {
	mu      sync.RWMutex
	baseURL string
	tokens  TokenSource
	client  *http.Client
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// WithTimeout sets the request timeout on a copy of the current http.Client,
// so a client passed through WithHTTPClient is left untouched.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			copied := *c.client
			copied.Timeout = timeout
			c.client = &copied
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	c := &Client{
		tokens: tokens,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(zap.String("component", "client"))

	if err := c.SetBaseURL(baseURL); err != nil {
		return nil, err
	}

	return c, nil
}

// SetBaseURL points every following request at raw, which must be an
// absolute http or https URL.
func (c *Client) SetBaseURL(raw string) error {
	normalized, err := NormalizeBaseURL(raw)

	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.baseURL = normalized

	return nil
}

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.baseURL
}

func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if len(raw) == 0 {
		return "", errors.New("base URL cannot be empty")
	}

	parsed, err := url.Parse(raw)

	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("base URL '%v' must use http or https", raw)
	}

	if len(parsed.Host) == 0 {
		return "", fmt.Errorf("base URL '%v' has no host", raw)
	}

	return strings.TrimRight(parsed.String(), "/"), nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

// PostForm sends form as application/x-www-form-urlencoded. The login
// endpoint is the only caller.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), contentTypeForm, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if body == nil {
		return c.do(ctx, method, path, http.NoBody, contentTypeJSON, out)
	}

	payload, err := json.Marshal(body)

	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	return c.do(ctx, method, path, bytes.NewReader(payload), contentTypeJSON, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	reqURL, err := c.getURL(path)

	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)

	if err != nil {
		return fmt.Errorf("failed create new request: %w", err)
	}

	requestID := uuid.NewString()

	if err := c.setHeaders(ctx, req, contentType, requestID); err != nil {
		return err
	}

	logger := c.logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)

	res, err := c.client.Do(req)

	if err != nil {
		httpErr := &HTTPError{Method: method, Path: path, Err: err}
		logger.Error("request failed", zap.Bool("timeout", httpErr.Timeout()), zap.Error(err))
		return httpErr
	}

	defer res.Body.Close()

	bodyBytes, readErr := io.ReadAll(res.Body)

	if res.StatusCode == http.StatusUnauthorized {
		logger.Warn("server rejected credentials, clearing session")

		if c.tokens != nil {
			if err := c.tokens.Logout(ctx); err != nil {
				logger.Error("failed to clear session", zap.Error(err))
			}
		}
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		httpErr := &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: res.StatusCode,
			Body:       bodyBytes,
			Err:        readErr,
		}
		logger.Error("request failed", zap.Int("status", res.StatusCode))
		return httpErr
	}

	if readErr != nil {
		return fmt.Errorf("failed to read body: %w", readErr)
	}

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed reading body: %w", err)
	}

	return nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, contentType, requestID string) error {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("X-Request-ID", requestID)

	if c.tokens == nil {
		return nil
	}

	raw, err := c.tokens.Token(ctx)

	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	if len(raw) > 0 {
		req.Header.Set("Authorization", "Bearer "+raw)
	}

	return nil
}

// getURL joins path onto the base URL. A query string in path is kept as is.
func (c *Client) getURL(path string) (string, error) {
	path, query, _ := strings.Cut(path, "?")
	clientURL, err := url.JoinPath(c.BaseURL(), path)

	if err != nil {
		return "", fmt.Errorf("failed to create URL: %w", err)
	}

	if len(query) > 0 {
		clientURL += "?" + query
	}

	return clientURL, nil
}
