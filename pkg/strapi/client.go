package strapi

import (
	"context"
	"time"
)

// Request is a find/mutate request bound to one resource. Builder methods
// record query options and return the request for chaining; every other
// method issues exactly one HTTP call.
type Request interface {
	Pagination(page, pageSize int, withCount ...bool) Request
	OffsetPagination(start, limit int, withCount ...bool) Request
	Filters(filters any) Request
	Sort(fields ...string) Request
	Populate(populate any) Request
	Fields(fields ...string) Request
	Locale(locale string) Request
	PublicationState(state PublicationState) Request

	// Query returns a copy of the accumulated query state.
	Query() *Query

	FindMany(ctx context.Context) (Record, error)
	FindOne(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, data any) (Record, error)
	Update(ctx context.Context, id string, data any) (Record, error)
	Delete(ctx context.Context, id string) (Record, error)

	// RawFindMany bypasses the builder. With stringify the query object is
	// bracket encoded; otherwise query must already be an encoded string.
	RawFindMany(ctx context.Context, query any, stringify bool) (Record, error)

	// Auth and Register are only available on the "users" resource.
	Auth(ctx context.Context, identifier, password string) (Record, error)
	Register(ctx context.Context, username, email, password string) (Record, error)
}

// ResourceClient is a handle on one remote collection.
type ResourceClient interface {
	Name() string
	Query() Request
	// Bulk runs independent operations concurrently with no rollback.
	Bulk(ctx context.Context, operations []Operation) ([]Record, error)
}

// AtomicClient runs heterogeneous batches with compensating rollback.
type AtomicClient interface {
	Atomic(ctx context.Context, operations []Operation) ([]Record, error)
}

// Client is the entry point of the SDK.
type Client interface {
	// Resource returns the handle for name, creating it on first use.
	Resource(name string) ResourceClient
	// Users is Resource("users").
	Users() ResourceClient
	// Atomic returns the atomic batch coordinator.
	Atomic() AtomicClient
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// IDGenerator returns a process-unique correlation identifier.
type IDGenerator func() string

// Config represents client configuration for building a strapi.Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://cms.example.com/api".
	// strapiclient.New trims a trailing slash and adds "https://" when no
	// scheme is present.
	BaseURL string
	// APIToken is sent as a Bearer token on every request when set.
	APIToken string

	// HTTPTimeout bounds each HTTP call. Zero uses the default timeout.
	// Callers can still cancel earlier through the context.
	HTTPTimeout time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// RateLimit caps requests per second across the client. Zero disables it.
	RateLimit float64
	// Debug enables request/response logging when a Logger is provided.
	Debug bool
	// Logger is an optional structured logger.
	Logger Logger

	// BatchConcurrency bounds in-flight calls of one Bulk or Atomic batch.
	// Zero means every operation is dispatched at once.
	BatchConcurrency int
	// IDGenerator overrides the correlation id source of atomic batches.
	IDGenerator IDGenerator
	// Metrics receives atomic batch outcomes.
	Metrics Metrics
	// Events receives atomic batch outcome events.
	Events EventPublisher
	// Tracing wraps the transport with OpenTelemetry instrumentation.
	Tracing bool
}
