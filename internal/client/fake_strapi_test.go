package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

// recordedCall is one request seen by fakeStrapi.
type recordedCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

func (c recordedCall) String() string {
	return c.Method + " " + c.Path
}

// fakeStrapi is an in-memory Strapi REST API. Records are flat objects with a
// string "id". Failures are injected per "METHOD /path" and consumed once.
type fakeStrapi struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	nextID   int
	records  map[string]map[string]map[string]any
	calls    []recordedCall
	failures map[string][]int
}

func newFakeStrapi(t *testing.T) *fakeStrapi {
	t.Helper()

	fake := &fakeStrapi{
		t:        t,
		nextID:   100,
		records:  make(map[string]map[string]map[string]any),
		failures: make(map[string][]int),
	}

	fake.server = httptest.NewServer(http.HandlerFunc(fake.serveHTTP))
	t.Cleanup(fake.server.Close)

	return fake
}

// client builds a Client against the fake server.
func (f *fakeStrapi) client(config *strapi.Config) *Client {
	f.t.Helper()

	if config == nil {
		config = &strapi.Config{}
	}

	config.BaseURL = f.server.URL

	client, err := New(context.Background(), config)
	require.NoError(f.t, err)

	return client
}

// seed stores a record under resource.
func (f *fakeStrapi) seed(resource, id string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record := map[string]any{"id": id}
	for key, value := range fields {
		record[key] = value
	}

	if f.records[resource] == nil {
		f.records[resource] = make(map[string]map[string]any)
	}

	f.records[resource][id] = record
}

// failOnce makes the next request matching "METHOD /path" fail with status.
func (f *fakeStrapi) failOnce(call string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[call] = append(f.failures[call], status)
}

func (f *fakeStrapi) record(resource, id string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[resource][id]

	return record, ok
}

func (f *fakeStrapi) count(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.records[resource])
}

func (f *fakeStrapi) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]recordedCall, len(f.calls))
	copy(out, f.calls)

	return out
}

// callIndex returns the position of the first call matching "METHOD /path",
// or -1.
func (f *fakeStrapi) callIndex(call string) int {
	for index, recorded := range f.recorded() {
		if recorded.String() == call {
			return index
		}
	}

	return -1
}

func (f *fakeStrapi) serveHTTP(writer http.ResponseWriter, request *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := recordedCall{Method: request.Method, Path: request.URL.Path, Query: request.URL.RawQuery}

	if request.Body != nil {
		var body map[string]any

		decoder := json.NewDecoder(request.Body)
		decoder.UseNumber()

		if err := decoder.Decode(&body); err == nil {
			call.Body = body
		}
	}

	f.calls = append(f.calls, call)

	if statuses := f.failures[call.String()]; len(statuses) > 0 {
		f.failures[call.String()] = statuses[1:]
		writeError(writer, statuses[0], "ApplicationError", "injected failure")

		return
	}

	switch call.Path {
	case "/auth/local", "/auth/local/register":
		writeJSON(writer, http.StatusOK, map[string]any{"jwt": "jwt-token", "user": map[string]any{"id": 1}})

		return
	}

	parts := strings.Split(strings.Trim(call.Path, "/"), "/")
	resource := parts[0]

	var id string
	if len(parts) > 1 {
		id = parts[1]
	}

	if f.records[resource] == nil {
		f.records[resource] = make(map[string]map[string]any)
	}

	switch {
	case request.Method == http.MethodGet && id == "":
		f.list(writer, resource)
	case request.Method == http.MethodGet:
		f.found(writer, resource, id, func(record map[string]any) { writeJSON(writer, http.StatusOK, record) })
	case request.Method == http.MethodPost:
		f.nextID++
		newID := strconv.Itoa(f.nextID)
		record := fields(call.Body)
		record["id"] = newID
		f.records[resource][newID] = record
		writeJSON(writer, http.StatusOK, record)
	case request.Method == http.MethodPut:
		f.found(writer, resource, id, func(record map[string]any) {
			for key, value := range fields(call.Body) {
				record[key] = value
			}

			writeJSON(writer, http.StatusOK, record)
		})
	case request.Method == http.MethodDelete:
		f.found(writer, resource, id, func(record map[string]any) {
			delete(f.records[resource], id)
			writeJSON(writer, http.StatusOK, record)
		})
	default:
		writeError(writer, http.StatusMethodNotAllowed, "MethodNotAllowedError", "method not allowed")
	}
}

func (f *fakeStrapi) list(writer http.ResponseWriter, resource string) {
	ids := make([]string, 0, len(f.records[resource]))
	for id := range f.records[resource] {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	data := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		data = append(data, f.records[resource][id])
	}

	writeJSON(writer, http.StatusOK, map[string]any{
		"data": data,
		"meta": map[string]any{"pagination": map[string]any{"total": len(data)}},
	})
}

func (f *fakeStrapi) found(writer http.ResponseWriter, resource, id string, fn func(map[string]any)) {
	record, ok := f.records[resource][id]
	if !ok {
		writeError(writer, http.StatusNotFound, "NotFoundError", "Not Found")

		return
	}

	fn(record)
}

// fields copies a body, unwrapping a {"data": {...}} envelope.
func fields(body map[string]any) map[string]any {
	source := body
	if data, ok := body["data"].(map[string]any); ok {
		source = data
	}

	out := make(map[string]any, len(source))
	for key, value := range source {
		out[key] = value
	}

	return out
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

func writeError(writer http.ResponseWriter, status int, name, message string) {
	writeJSON(writer, status, map[string]any{
		"data": nil,
		"error": map[string]any{
			"status":  status,
			"name":    name,
			"message": message,
			"details": map[string]any{},
		},
	})
}

// sequentialIDs returns a deterministic IDGenerator.
func sequentialIDs(prefix string) strapi.IDGenerator {
	var (
		mu   sync.Mutex
		next int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		next++

		return fmt.Sprintf("%s-%d", prefix, next)
	}
}
