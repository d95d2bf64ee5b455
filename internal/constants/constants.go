package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// HTTP defaults.
const (
	// DefaultUserAgent is sent when the config does not override it.
	DefaultUserAgent = "strapi-client-go/1.0.0"

	// ContentTypeJSON is the media type of every request and response body.
	ContentTypeJSON = "application/json"

	// MaxErrorBodySize caps how much of an error body is kept.
	MaxErrorBodySize = 1 << 20
)

// Fixed API paths.
const (
	// AuthLocalPath is the local provider login endpoint.
	AuthLocalPath = "/auth/local"

	// AuthRegisterPath is the local provider registration endpoint.
	AuthRegisterPath = "/auth/local/register"

	// UsersResource is the only resource exposing auth and register.
	UsersResource = "users"
)

// Atomic batch settings.
const (
	// AtomicSubjectPrefix prefixes the NATS subject of batch outcome events.
	AtomicSubjectPrefix = "strapi.atomic"

	// TracerName names the OpenTelemetry tracer of the atomic coordinator.
	TracerName = "github.com/fivetwenty-io/strapi-client/internal/client"
)

// Token handling.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// CLI display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// StringTruncationLimit truncates long table cells.
	StringTruncationLimit = 60
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)
