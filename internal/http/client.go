// Package http is the transport used by the RETS client. It sends requests
// through go-retryablehttp and hands every response back, whatever its
// status, so protocol classification stays with the caller.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/pkg/rets"
	"github.com/hashicorp/go-retryablehttp"
)

// Request is one outgoing exchange.
type Request struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
	// Host overrides the Host header.
	Host string
}

// Response is a fully read reply.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client sends requests to one base URL.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	logger       rets.Logger
	debug        bool
	interceptors *rets.InterceptorChain
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger rets.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every request and response when a logger is set.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig bounds transport retries for connection errors and 5xx.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithInterceptors runs chain around every exchange.
func WithInterceptors(chain *rets.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// NewClient creates a transport for baseURL (scheme://host[:port]).
func NewClient(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: retryClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.logger != nil && client.debug {
		retryClient.Logger = &leveledLogger{logger: client.logger}
	}

	return client
}

// BaseURL returns the scheme and authority requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends body to path.
func (c *Client) Post(ctx context.Context, path string, body []byte, headers http.Header) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodPost,
		Path:    path,
		Headers: headers,
		Body:    body,
	})
}

// Do performs the request. Non-2xx statuses are not errors.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	intercepted := &rets.Request{
		Method:  req.Method,
		Path:    req.Path,
		Headers: req.Headers.Clone(),
		Body:    req.Body,
	}

	if intercepted.Headers == nil {
		intercepted.Headers = make(http.Header)
	}

	if c.interceptors != nil {
		err := c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
		if err != nil {
			return nil, err
		}
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, intercepted.Method, c.baseURL+intercepted.Path, intercepted.Body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header = intercepted.Headers
	if req.Host != "" {
		httpReq.Host = req.Host
	}

	start := time.Now()

	c.logRequest(intercepted)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		_ = c.runResponseInterceptors(ctx, intercepted, &rets.Response{})

		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	c.logResponse(intercepted, resp, time.Since(start))

	err = c.runResponseInterceptors(ctx, intercepted, &rets.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	})
	if err != nil {
		return resp, err
	}

	return resp, nil
}

func (c *Client) runResponseInterceptors(ctx context.Context, req *rets.Request, resp *rets.Response) error {
	if c.interceptors == nil {
		return nil
	}

	return c.interceptors.ExecuteResponseInterceptors(ctx, req, resp)
}

func (c *Client) logRequest(req *rets.Request) {
	if c.logger == nil || !c.debug {
		return
	}

	headers := make(map[string]string, len(req.Headers))
	for key := range req.Headers {
		headers[key] = req.Headers.Get(key)
	}

	for _, secret := range []string{constants.HeaderAuthorization, constants.HeaderUAAuthorization, constants.HeaderCookie} {
		if _, ok := headers[secret]; ok {
			headers[secret] = constants.MaskedSecret
		}
	}

	c.logger.Debug("HTTP Request", map[string]interface{}{
		"method":    req.Method,
		"url":       c.baseURL + req.Path,
		"headers":   headers,
		"body_size": len(req.Body),
	})
}

func (c *Client) logResponse(req *rets.Request, resp *Response, duration time.Duration) {
	if c.logger == nil || !c.debug {
		return
	}

	c.logger.Debug("HTTP Response", map[string]interface{}{
		"method":    req.Method,
		"path":      req.Path,
		"status":    resp.StatusCode,
		"duration":  duration.String(),
		"body_size": len(resp.Body),
		"body":      previewBody(resp.Body),
	})
}

const bodyPreviewLimit = 512

func previewBody(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > bodyPreviewLimit {
		return string(body[:bodyPreviewLimit]) + "..."
	}

	return string(body)
}

// leveledLogger adapts rets.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger rets.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues))
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return out
}
