package strapi

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// Record is a decoded JSON object returned by the API.
type Record map[string]any

// ID returns the record identifier as a string. It looks at a top-level "id"
// first and then at an enveloped "data.id" (the shape Strapi v4 returns for
// single entries). It returns "" when neither is present.
func (r Record) ID() string {
	if r == nil {
		return ""
	}

	if id := stringID(r["id"]); id != "" {
		return id
	}

	if data, ok := r["data"].(map[string]any); ok {
		return stringID(data["id"])
	}

	if data, ok := r["data"].(Record); ok {
		return stringID(data["id"])
	}

	return ""
}

// Decode decodes the record into out, which must be a pointer to a struct or
// map. Struct fields are matched by their json tags.
func (r Record) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("creating record decoder: %w", err)
	}

	err = decoder.Decode(map[string]any(r))
	if err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}

	return nil
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}

	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case Record:
		return Record(cloneValue(map[string]any(typed)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			out[key] = cloneValue(inner)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = cloneValue(inner)
		}

		return out
	default:
		return value
	}
}

func stringID(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		return fmt.Sprintf("%.0f", typed)
	default:
		return fmt.Sprint(typed)
	}
}

// OperationType is the kind of a bulk operation.
type OperationType string

// Supported operation types.
const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// Operation is a single entry in a bulk or atomic batch.
type Operation struct {
	// Type selects the variant.
	Type OperationType `json:"type" yaml:"type"`
	// Resource is the target collection. Required for atomic batches; Bulk
	// always uses the resource it was called on.
	Resource string `json:"resource,omitempty" yaml:"resource,omitempty"`
	// ID is the target record. Required for update and delete, forbidden for create.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// Data is the request body. Required for create and update.
	Data any `json:"data,omitempty" yaml:"data,omitempty"`
}

// HasData reports whether the operation carries a payload.
func (o Operation) HasData() bool {
	if o.Data == nil {
		return false
	}

	value := reflect.ValueOf(o.Data)
	switch value.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return !value.IsNil()
	default:
		return true
	}
}

// Validate checks the operation against its variant's required fields.
func (o Operation) Validate() error {
	switch o.Type {
	case OperationCreate:
		if o.ID == "" && o.HasData() {
			return nil
		}
	case OperationUpdate:
		if o.ID != "" && o.HasData() {
			return nil
		}
	case OperationDelete:
		if o.ID != "" {
			return nil
		}
	}

	return fmt.Errorf("%w: type %q", ErrInvalidOperation, o.Type)
}

// PublicationState selects draft visibility for a query.
type PublicationState string

// Publication states accepted by the API.
const (
	PublicationLive    PublicationState = "live"
	PublicationPreview PublicationState = "preview"
)

// Credentials is the body of POST /auth/local.
type Credentials struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Password   string `json:"password"   yaml:"password"`
}

// Registration is the body of POST /auth/local/register.
type Registration struct {
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email"    yaml:"email"`
	Password string `json:"password" yaml:"password"`
}
