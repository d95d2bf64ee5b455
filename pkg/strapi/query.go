package strapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
)

// Query keys written by the builder.
const (
	QueryKeyPagination       = "pagination"
	QueryKeyFilters          = "filters"
	QueryKeySort             = "sort"
	QueryKeyPopulate         = "populate"
	QueryKeyFields           = "fields"
	QueryKeyLocale           = "locale"
	QueryKeyPublicationState = "publicationState"
)

// Query accumulates the options of a find request. Each setter overwrites
// only its own key. Nothing is validated: filter and sort shapes are sent as
// given and any rejection comes back as an APIError.
type Query struct {
	state map[string]any
}

// NewQuery creates an empty query.
func NewQuery() *Query {
	return &Query{state: make(map[string]any)}
}

// Pagination sets page based pagination. It replaces any previous
// pagination, including offset pagination.
func (q *Query) Pagination(page, pageSize int, withCount ...bool) *Query {
	pagination := map[string]any{
		"page":     page,
		"pageSize": pageSize,
	}
	if len(withCount) > 0 {
		pagination["withCount"] = withCount[0]
	}

	return q.set(QueryKeyPagination, pagination)
}

// OffsetPagination sets start/limit pagination. It replaces any previous
// pagination, including page pagination.
func (q *Query) OffsetPagination(start, limit int, withCount ...bool) *Query {
	pagination := map[string]any{
		"start": start,
		"limit": limit,
	}
	if len(withCount) > 0 {
		pagination["withCount"] = withCount[0]
	}

	return q.set(QueryKeyPagination, pagination)
}

// Filters sets the filters object, e.g. map[string]any{"title": map[string]any{"$eq": "A"}}.
func (q *Query) Filters(filters any) *Query {
	return q.set(QueryKeyFilters, filters)
}

// Sort sets the sort fields, e.g. "title:asc".
func (q *Query) Sort(fields ...string) *Query {
	return q.set(QueryKeySort, fields)
}

// Populate sets the relations to populate. It accepts a string ("*"), a
// slice of names or a nested object.
func (q *Query) Populate(populate any) *Query {
	return q.set(QueryKeyPopulate, populate)
}

// Fields selects the attributes to return.
func (q *Query) Fields(fields ...string) *Query {
	return q.set(QueryKeyFields, fields)
}

// Locale selects the content locale.
func (q *Query) Locale(locale string) *Query {
	return q.set(QueryKeyLocale, locale)
}

// PublicationState selects live or preview content.
func (q *Query) PublicationState(state PublicationState) *Query {
	return q.set(QueryKeyPublicationState, string(state))
}

// Get returns the raw value stored under key.
func (q *Query) Get(key string) (any, bool) {
	if q == nil {
		return nil, false
	}

	value, ok := q.state[key]

	return value, ok
}

// Clone returns an independent copy of the query.
func (q *Query) Clone() *Query {
	clone := NewQuery()
	if q == nil {
		return clone
	}

	for key, value := range q.state {
		clone.state[key] = value
	}

	return clone
}

// Values flattens the query into bracket notation pairs.
func (q *Query) Values() url.Values {
	if q == nil {
		return url.Values{}
	}

	return EncodeValues(q.state)
}

// Encode returns the query string (without the leading "?").
func (q *Query) Encode() string {
	return q.Values().Encode()
}

func (q *Query) set(key string, value any) *Query {
	if q.state == nil {
		q.state = make(map[string]any)
	}

	q.state[key] = value

	return q
}

// EncodeQuery encodes an arbitrary object into a bracket notation query
// string. It is used by RawFindMany and accepts maps, structs and anything
// else that marshals to a JSON object.
func EncodeQuery(query any) (string, error) {
	normalized := normalize(query)
	if normalized == nil {
		return "", nil
	}

	object, ok := normalized.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: got %T", ErrInvalidRawQuery, query)
	}

	return EncodeValues(object).Encode(), nil
}

// EncodeValues flattens nested maps and slices into key[sub]=value pairs:
// maps produce key[name], slices produce key[index] and nil produces an
// empty value. Empty maps and slices produce nothing.
func EncodeValues(object map[string]any) url.Values {
	values := url.Values{}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		flatten(values, key, normalize(object[key]))
	}

	return values
}

func flatten(values url.Values, prefix string, value any) {
	switch typed := value.(type) {
	case nil:
		values.Add(prefix, "")
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			flatten(values, prefix+"["+key+"]", typed[key])
		}
	case []any:
		for index, inner := range typed {
			flatten(values, prefix+"["+strconv.Itoa(index)+"]", inner)
		}
	case string:
		values.Add(prefix, typed)
	case bool:
		values.Add(prefix, strconv.FormatBool(typed))
	case json.Number:
		values.Add(prefix, typed.String())
	default:
		values.Add(prefix, fmt.Sprint(typed))
	}
}

// normalize converts typed maps, slices, pointers and structs into the
// map[string]any / []any shapes flatten understands.
func normalize(value any) any {
	if value == nil {
		return nil
	}

	switch typed := value.(type) {
	case Record:
		return normalize(map[string]any(typed))
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			out[key] = normalize(inner)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for index, inner := range typed {
			out[index] = normalize(inner)
		}

		return out
	case string, bool, json.Number:
		return typed
	}

	reflected := reflect.ValueOf(value)

	switch reflected.Kind() {
	case reflect.Pointer, reflect.Interface:
		if reflected.IsNil() {
			return nil
		}

		return normalize(reflected.Elem().Interface())
	case reflect.Map:
		if reflected.Type().Key().Kind() != reflect.String {
			return viaJSON(value)
		}

		out := make(map[string]any, reflected.Len())
		iter := reflected.MapRange()

		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}

		return out
	case reflect.Slice, reflect.Array:
		if reflected.Kind() == reflect.Slice && reflected.IsNil() {
			return []any{}
		}

		out := make([]any, reflected.Len())
		for index := range reflected.Len() {
			out[index] = normalize(reflected.Index(index).Interface())
		}

		return out
	case reflect.Struct:
		return viaJSON(value)
	default:
		return value
	}
}

func viaJSON(value any) any {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}

	var out any

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	err = decoder.Decode(&out)
	if err != nil {
		return fmt.Sprint(value)
	}

	return normalize(out)
}
