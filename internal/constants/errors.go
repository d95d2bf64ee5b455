package constants

import "errors"

// Configuration errors.
var (
	ErrNoBaseURLConfigured = errors.New("no Strapi URL configured, use --url or set STRAPI_URL")
	ErrNoTokenReturned     = errors.New("login response did not contain a jwt")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
)

// Validation errors.
var (
	ErrDataRequired          = errors.New("--data or --file is required")
	ErrFileRequired          = errors.New("--file flag is required")
	ErrIdentifierRequired    = errors.New("--identifier flag is required")
	ErrInvalidOutputFormat   = errors.New("invalid output format, expected json, yaml or table")
	ErrUnsupportedFileType   = errors.New("unsupported file type, expected .json, .yaml or .yml")
	ErrConflictingPagination = errors.New("--page/--page-size and --start/--limit are mutually exclusive")
	ErrPayloadNotObject      = errors.New("payload must be a JSON or YAML object")
)
