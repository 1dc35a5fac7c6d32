// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/stream"
)

// Configuration constants for backend requests.
const (
	// DefaultBaseURL is the local ChillGPT backend.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultOpenAIURL is the base URL for the OpenAI dialect.
	DefaultOpenAIURL = "https://api.openai.com/v1"

	// DefaultTimeout is the timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed non-streaming response body size.
	MaxResponseSize = 10 * 1024 * 1024

	// maxErrorBodySize bounds how much of an error response is read.
	maxErrorBodySize = 64 * 1024

	// Version is sent in the User-Agent header.
	Version = "0.3.0"
)

var (
	// Shared transports keep connections pooled across requests.
	sharedTransport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	sharedHTTPClient = &http.Client{
		Transport: sharedTransport,
		Timeout:   DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; streams are bounded by their context.
	sharedStreamingClient = &http.Client{
		Transport: sharedTransport,
	}
)

// Error variables for common backend errors.
var (
	// ErrNotConfigured indicates no backend client was set up.
	ErrNotConfigured = errors.New("backend client not configured")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound indicates the endpoint or resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest indicates the server rejected the request.
	ErrBadRequest = errors.New("bad request")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("server error")
)

// =============================================================================
// DIALECT
// =============================================================================

// Dialect selects the request and response shape of a backend.
type Dialect string

const (
	DialectChillGPT Dialect = "chillgpt"
	DialectOpenAI   Dialect = "openai"
	DialectPyPal    Dialect = "pypal"
)

// ParseDialect converts a config value to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", DialectChillGPT:
		return DialectChillGPT, nil
	case DialectOpenAI:
		return DialectOpenAI, nil
	case DialectPyPal:
		return DialectPyPal, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (want chillgpt, openai or pypal)", s)
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to a chat backend.
type Client struct {
	baseURL string
	apiKey  string
	dialect Dialect

	// mode overrides content-type detection when set
	mode *stream.Mode

	httpClient      *http.Client
	streamingClient *http.Client
	limiter         *rate.Limiter
	logger          *log.Logger
}

// NewClient creates a client for the ChillGPT dialect.
// apiKey is used when a request does not carry its own.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		apiKey:          strings.TrimSpace(apiKey),
		dialect:         DialectChillGPT,
		httpClient:      sharedHTTPClient,
		streamingClient: sharedStreamingClient,
	}
}

// WithDialect sets the wire dialect.
func (c *Client) WithDialect(d Dialect) *Client {
	c.dialect = d
	return c
}

// WithStreamMode forces the decoding mode instead of detecting it.
func (c *Client) WithStreamMode(m stream.Mode) *Client {
	c.mode = &m
	return c
}

// WithRateLimit paces requests to rps per second with the given burst.
// A non-positive rps disables pacing.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithHTTPClient replaces both the regular and the streaming HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamingClient = hc
	return c
}

// WithLogger enables request logging. Bodies and headers are never logged.
func (c *Client) WithLogger(l *log.Logger) *Client {
	c.logger = l
	return c
}

// ForKey returns a copy of the client that authenticates with key. The
// copy shares the transport and the rate limiter.
func (c *Client) ForKey(key string) *Client {
	cp := *c
	cp.apiKey = strings.TrimSpace(key)
	return &cp
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Dialect returns the wire dialect.
func (c *Client) Dialect() Dialect {
	return c.dialect
}

// IsConfigured returns true if an API key is available.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a display form of the key that hides its body.
func (c *Client) APIKeyMasked() string {
	return MaskKey(c.apiKey)
}

// MaskKey hides all but the prefix and last four characters of a key.
func MaskKey(key string) string {
	if key == "" {
		return "[not set]"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + "..." + key[len(key)-4:]
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// wait blocks until the rate limiter admits a request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) logRequest(req *http.Request) {
	if c.logger != nil {
		c.logger.Printf("API Request: %s %s", req.Method, req.URL.Path)
	}
}

func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	if c.logger != nil {
		c.logger.Printf("API Response: %s (%v)", resp.Status, duration)
	}
}

// setHeaders sets headers shared by every request.
func (c *Client) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("User-Agent", "chillgpt/"+Version)
	if c.dialect == DialectOpenAI && apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// do sends req with the pooled client, logging method, path and status.
func (c *Client) do(hc *http.Client, req *http.Request) (*http.Response, error) {
	c.logRequest(req)
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	c.logResponse(resp, time.Since(start))
	return resp, nil
}

// doJSON performs a non-streaming request and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.setHeaders(req, c.apiKey)

	resp, err := c.do(c.httpClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

// decodeResponse checks the status and decodes a size-limited JSON body.
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp)
	}

	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// =============================================================================
// CHAT
// =============================================================================

// ChatRequest is a chat turn as the front end sees it.
type ChatRequest struct {
	Messages []model.ChatMessage
	Model    string
	APIKey   string
	UseRAG   bool
}

// ChatStream is an open streamed reply. The caller owns Body.
type ChatStream struct {
	Body       io.ReadCloser
	Mode       stream.Mode
	StatusCode int
}

type chillgptChatBody struct {
	Messages []model.ChatMessage `json:"messages"`
	Model    string              `json:"model"`
	APIKey   string              `json:"api_key"`
	UseRAG   bool                `json:"use_rag,omitempty"`
}

type pypalChatBody struct {
	UserMessage string `json:"user_message"`
	APIKey      string `json:"api_key"`
	Model       string `json:"model"`
}

type openAIChatBody struct {
	Model    string              `json:"model"`
	Messages []model.ChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

// chatEndpoint returns the URL and JSON body for req in the client's dialect.
func (c *Client) chatEndpoint(req ChatRequest, apiKey string) (string, any) {
	modelID := req.Model
	if modelID == "" {
		modelID = model.DefaultModel
	}

	switch c.dialect {
	case DialectOpenAI:
		return c.baseURL + "/chat/completions", openAIChatBody{
			Model:    modelID,
			Messages: req.Messages,
			Stream:   true,
		}
	case DialectPyPal:
		return c.baseURL + "/api/chat", pypalChatBody{
			UserMessage: lastUserContent(req.Messages),
			APIKey:      apiKey,
			Model:       modelID,
		}
	default:
		return c.baseURL + "/api/chat", chillgptChatBody{
			Messages: req.Messages,
			Model:    modelID,
			APIKey:   apiKey,
			UseRAG:   req.UseRAG,
		}
	}
}

func lastUserContent(msgs []model.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser.String() {
			return msgs[i].Content
		}
	}
	return ""
}

// Chat sends req and returns the open reply stream once headers arrive.
// Non-success statuses become *TransportError.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatStream, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	url, payload := c.chatEndpoint(req, apiKey)
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream, text/plain")
	httpReq.Header.Set("Cache-Control", "no-cache")
	c.setHeaders(httpReq, apiKey)

	resp, err := c.do(c.streamingClient, httpReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, handleErrorResponse(resp)
	}

	// An empty 200 still has a body that ends at EOF; only 204 means none.
	if resp.Body == nil || resp.StatusCode == http.StatusNoContent {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: stream.ErrNoBody}
	}

	mode := stream.ModeForContentType(resp.Header.Get("Content-Type"))
	if c.mode != nil {
		mode = *c.mode
	}

	return &ChatStream{Body: resp.Body, Mode: mode, StatusCode: resp.StatusCode}, nil
}
