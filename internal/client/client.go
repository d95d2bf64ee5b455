package client

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/strapi-client/internal/auth"
	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/internal/http"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

// Static errors for err113 compliance.
var (
	ErrNoTokenManagerConfigured = errors.New("no token manager configured")
)

// Client implements the strapi.Client interface. Resource handles are
// created on first use and cached by name.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       strapi.Logger
	concurrency  int

	mu        sync.Mutex
	resources map[string]*ResourceClient
	atomic    *AtomicClient
}

// createTokenManager creates a static token manager. An empty token sends
// no Authorization header until SetToken is called.
func createTokenManager(config *strapi.Config) auth.TokenManager {
	return auth.NewStaticTokenManager(config.APIToken)
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *strapi.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RateLimit > 0 {
		httpOpts = append(httpOpts, http.WithRateLimit(config.RateLimit))
	}

	if config.Tracing {
		httpOpts = append(httpOpts, http.WithTracing(true))
	}

	return httpOpts
}

// New creates a new Strapi client. The base URL is used as given; callers
// normally go through strapiclient.New, which normalizes it.
func New(_ context.Context, config *strapi.Config) (*Client, error) {
	if config == nil {
		return nil, strapi.ErrConfigRequired
	}

	return NewWithTokenManager(config, createTokenManager(config))
}

// NewWithTokenManager creates a new Strapi client with a custom token manager.
func NewWithTokenManager(config *strapi.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil {
		return nil, strapi.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, strapi.ErrBaseURLRequired
	}

	httpClient := http.NewClient(config.BaseURL, tokenManager, createHTTPClientOptions(config)...)

	logger := config.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      config.BaseURL,
		logger:       logger,
		concurrency:  config.BatchConcurrency,
		resources:    make(map[string]*ResourceClient),
	}

	client.atomic = newAtomicClient(httpClient, atomicOptions{
		logger:      logger,
		concurrency: config.BatchConcurrency,
		newID:       config.IDGenerator,
		metrics:     config.Metrics,
		events:      config.Events,
	})

	return client, nil
}

// Resource implements strapi.Client.Resource.
func (c *Client) Resource(name string) strapi.ResourceClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	resource, ok := c.resources[name]
	if !ok {
		resource = newResourceClient(c.httpClient, name, c.concurrency, c.logger)
		c.resources[name] = resource
	}

	return resource
}

// Users implements strapi.Client.Users.
func (c *Client) Users() strapi.ResourceClient {
	return c.Resource(constants.UsersResource)
}

// Atomic implements strapi.Client.Atomic.
func (c *Client) Atomic() strapi.AtomicClient {
	return c.atomic
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// SetToken replaces the bearer token, e.g. with the jwt returned by Auth.
func (c *Client) SetToken(token string) error {
	if c.tokenManager == nil {
		return ErrNoTokenManagerConfigured
	}

	expiresAt, err := auth.JWTExpiry(token)
	if err != nil {
		c.logger.Debug("token has no readable expiry", map[string]interface{}{"error": err.Error()})
	}

	c.tokenManager.SetToken(token, expiresAt)

	return nil
}

func defaultIDGenerator() string {
	return uuid.NewString()
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(constants.TracerName)
}

// noopLogger discards everything.
type noopLogger struct{}

func (noopLogger) Debug(string, map[string]interface{}) {}
func (noopLogger) Info(string, map[string]interface{})  {}
func (noopLogger) Warn(string, map[string]interface{})  {}
func (noopLogger) Error(string, map[string]interface{}) {}
