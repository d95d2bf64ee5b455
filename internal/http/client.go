package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/fivetwenty-io/strapi-client/internal/auth"
	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

// Client is a bearer-authenticated JSON client for one Strapi API root.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	tokenManager auth.TokenManager
	logger       strapi.Logger
	debug        bool
	userAgent    string
	limiter      *rate.Limiter
}

// Request describes one HTTP call relative to the base URL.
type Request struct {
	Method string
	Path   string
	// Query is encoded and appended to Path.
	Query url.Values
	// RawQuery is appended verbatim when Query is empty.
	RawQuery string
	// Body is JSON encoded when not nil.
	Body    interface{}
	Headers map[string]string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for debug output.
func WithLogger(logger strapi.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithTimeout bounds each HTTP call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.HTTPClient.Timeout = timeout
		}
	}
}

// WithRateLimit caps the client at rps requests per second. Zero or less
// disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTracing wraps the transport with OpenTelemetry instrumentation.
func WithTracing(enabled bool) Option {
	return func(c *Client) {
		if !enabled {
			return
		}

		base := c.httpClient.HTTPClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}

		c.httpClient.HTTPClient.Transport = otelhttp.NewTransport(base)
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient.HTTPClient = client
		}
	}
}

// NewClient creates a client for baseURL. A nil tokenManager sends no
// Authorization header. Requests are never retried: a failed call is
// returned to the caller as is.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   retryClient,
		tokenManager: tokenManager,
		userAgent:    constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes req. A non-2xx status returns the response together with a
// *strapi.APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.limiter != nil {
		err := c.limiter.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	fullURL := c.buildURL(req)

	var body interface{}

	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}

		body = data
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", constants.ContentTypeJSON)
	httpReq.Header.Set("User-Agent", c.userAgent)

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", constants.ContentTypeJSON)
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting auth token: %w", err)
		}

		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	c.logDebug("HTTP Request", map[string]interface{}{
		"method": req.Method,
		"url":    fullURL,
	})

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing %s %s: %w", req.Method, req.Path, err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logDebug("HTTP Response", map[string]interface{}{
		"method":   req.Method,
		"url":      fullURL,
		"status":   httpResp.StatusCode,
		"duration": time.Since(start).String(),
		"bytes":    len(respBody),
	})

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		if len(respBody) > constants.MaxErrorBodySize {
			respBody = respBody[:constants.MaxErrorBodySize]
		}

		return resp, strapi.ParseErrorResponse(httpResp.StatusCode, respBody)
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) buildURL(req *Request) string {
	fullURL := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")

	rawQuery := req.RawQuery
	if len(req.Query) > 0 {
		rawQuery = req.Query.Encode()
	}

	rawQuery = strings.TrimPrefix(rawQuery, "?")
	if rawQuery != "" {
		fullURL += "?" + rawQuery
	}

	return fullURL
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.debug && c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}
