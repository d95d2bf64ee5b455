package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/internal/http"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

type targetKind int

const (
	// namedResource is a handle obtained from Client.Resource.
	namedResource targetKind = iota
	// atomicRoot is a request issued by the atomic coordinator on behalf of
	// one operation. It never exposes auth endpoints.
	atomicRoot
)

// target is the path segment a Request is bound to.
type target struct {
	kind    targetKind
	segment string
}

func (t target) path(id string) string {
	if id == "" {
		return "/" + t.segment
	}

	return "/" + t.segment + "/" + url.PathEscape(id)
}

func (t target) isUsers() bool {
	return t.kind == namedResource && t.segment == constants.UsersResource
}

// Request implements strapi.Request.
type Request struct {
	httpClient *http.Client
	target     target
	query      *strapi.Query
}

func newRequest(httpClient *http.Client, t target) *Request {
	return &Request{
		httpClient: httpClient,
		target:     t,
		query:      strapi.NewQuery(),
	}
}

// Pagination implements strapi.Request.Pagination.
func (r *Request) Pagination(page, pageSize int, withCount ...bool) strapi.Request {
	r.query.Pagination(page, pageSize, withCount...)

	return r
}

// OffsetPagination implements strapi.Request.OffsetPagination.
func (r *Request) OffsetPagination(start, limit int, withCount ...bool) strapi.Request {
	r.query.OffsetPagination(start, limit, withCount...)

	return r
}

// Filters implements strapi.Request.Filters.
func (r *Request) Filters(filters any) strapi.Request {
	r.query.Filters(filters)

	return r
}

// Sort implements strapi.Request.Sort.
func (r *Request) Sort(fields ...string) strapi.Request {
	r.query.Sort(fields...)

	return r
}

// Populate implements strapi.Request.Populate.
func (r *Request) Populate(populate any) strapi.Request {
	r.query.Populate(populate)

	return r
}

// Fields implements strapi.Request.Fields.
func (r *Request) Fields(fields ...string) strapi.Request {
	r.query.Fields(fields...)

	return r
}

// Locale implements strapi.Request.Locale.
func (r *Request) Locale(locale string) strapi.Request {
	r.query.Locale(locale)

	return r
}

// PublicationState implements strapi.Request.PublicationState.
func (r *Request) PublicationState(state strapi.PublicationState) strapi.Request {
	r.query.PublicationState(state)

	return r
}

// Query implements strapi.Request.Query.
func (r *Request) Query() *strapi.Query {
	return r.query.Clone()
}

// FindMany implements strapi.Request.FindMany.
func (r *Request) FindMany(ctx context.Context) (strapi.Record, error) {
	return r.do(ctx, &http.Request{
		Method: "GET",
		Path:   r.target.path(""),
		Query:  r.query.Values(),
	})
}

// FindOne implements strapi.Request.FindOne.
func (r *Request) FindOne(ctx context.Context, id string) (strapi.Record, error) {
	return r.do(ctx, &http.Request{
		Method: "GET",
		Path:   r.target.path(id),
		Query:  r.query.Values(),
	})
}

// Create implements strapi.Request.Create.
func (r *Request) Create(ctx context.Context, data any) (strapi.Record, error) {
	return r.do(ctx, &http.Request{
		Method: "POST",
		Path:   r.target.path(""),
		Body:   data,
	})
}

// Update implements strapi.Request.Update.
func (r *Request) Update(ctx context.Context, id string, data any) (strapi.Record, error) {
	return r.do(ctx, &http.Request{
		Method: "PUT",
		Path:   r.target.path(id),
		Body:   data,
	})
}

// Delete implements strapi.Request.Delete.
func (r *Request) Delete(ctx context.Context, id string) (strapi.Record, error) {
	return r.do(ctx, &http.Request{
		Method: "DELETE",
		Path:   r.target.path(id),
	})
}

// RawFindMany implements strapi.Request.RawFindMany.
func (r *Request) RawFindMany(ctx context.Context, query any, stringify bool) (strapi.Record, error) {
	var rawQuery string

	if stringify {
		encoded, err := strapi.EncodeQuery(query)
		if err != nil {
			return nil, err
		}

		rawQuery = encoded
	} else {
		encoded, ok := query.(string)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", strapi.ErrInvalidRawQuery, query)
		}

		rawQuery = encoded
	}

	return r.do(ctx, &http.Request{
		Method:   "GET",
		Path:     r.target.path(""),
		RawQuery: rawQuery,
	})
}

// Auth implements strapi.Request.Auth.
func (r *Request) Auth(ctx context.Context, identifier, password string) (strapi.Record, error) {
	if !r.target.isUsers() {
		return nil, fmt.Errorf("%w: %w", strapi.ErrInvalidOperation, strapi.ErrUsersOnly)
	}

	return r.do(ctx, &http.Request{
		Method: "POST",
		Path:   constants.AuthLocalPath,
		Body:   strapi.Credentials{Identifier: identifier, Password: password},
	})
}

// Register implements strapi.Request.Register.
func (r *Request) Register(ctx context.Context, username, email, password string) (strapi.Record, error) {
	if !r.target.isUsers() {
		return nil, fmt.Errorf("%w: %w", strapi.ErrInvalidOperation, strapi.ErrUsersOnly)
	}

	return r.do(ctx, &http.Request{
		Method: "POST",
		Path:   constants.AuthRegisterPath,
		Body:   strapi.Registration{Username: username, Email: email, Password: password},
	})
}

// do issues req and decodes the body. Transport and API errors are returned
// unchanged.
func (r *Request) do(ctx context.Context, req *http.Request) (strapi.Record, error) {
	resp, err := r.httpClient.Do(ctx, req)
	if err != nil {
		return nil, err //nolint:wrapcheck // remote errors reach the caller as returned by the server
	}

	return decodeRecord(resp.Body)
}

// decodeRecord decodes a response body. An empty body yields a nil Record.
// Bodies that are not JSON objects (the users endpoint returns a bare array)
// are returned under the "data" key.
func decodeRecord(body []byte) (strapi.Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value any

	err := decoder.Decode(&value)
	if err != nil {
		return nil, fmt.Errorf("parsing response body: %w", err)
	}

	switch typed := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return strapi.Record(typed), nil
	default:
		return strapi.Record{"data": typed}, nil
	}
}
