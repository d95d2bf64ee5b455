package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// testJWTExpiry is 2030-01-01T00:00:00Z.
const testJWTExpiry = 1893456000

// cliCall is one request seen by cliServer.
type cliCall struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	Body          map[string]any
}

func (c cliCall) String() string {
	return c.Method + " " + c.Path
}

// cliServer answers the content API with canned entries. POST /tags fails
// with a validation error so atomic batches touching tags roll back.
type cliServer struct {
	server *httptest.Server

	mu    sync.Mutex
	calls []cliCall
}

func newCLIServer(t *testing.T) *cliServer {
	t.Helper()

	fake := &cliServer{}
	fake.server = httptest.NewServer(http.HandlerFunc(fake.serveHTTP))
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *cliServer) URL() string {
	return f.server.URL
}

func (f *cliServer) recorded() []cliCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]cliCall, len(f.calls))
	copy(out, f.calls)

	return out
}

func (f *cliServer) serveHTTP(writer http.ResponseWriter, request *http.Request) {
	call := cliCall{
		Method:        request.Method,
		Path:          request.URL.Path,
		RawQuery:      request.URL.RawQuery,
		Authorization: request.Header.Get("Authorization"),
	}

	var body map[string]any
	if json.NewDecoder(request.Body).Decode(&body) == nil {
		call.Body = body
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	writer.Header().Set("Content-Type", "application/json")

	switch {
	case call.Path == "/auth/local" || call.Path == "/auth/local/register":
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"jwt":  testJWT(testJWTExpiry),
			"user": map[string]any{"id": 1, "username": "editor"},
		})
	case call.String() == "POST /tags":
		writer.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"data":  nil,
			"error": map[string]any{"status": 400, "name": "ValidationError", "message": "name must be unique"},
		})
	case call.Method == http.MethodGet && strings.Count(call.Path, "/") == 1:
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"data": []any{
				map[string]any{"id": 5, "attributes": map[string]any{"title": "Old", "publishedAt": "2024-01-01"}},
				map[string]any{"id": 9, "attributes": map[string]any{"title": "Other"}},
			},
			"meta": map[string]any{"pagination": map[string]any{"page": 1, "total": 2}},
		})
	case call.Method == http.MethodPost:
		_ = json.NewEncoder(writer).Encode(map[string]any{"data": map[string]any{"id": 101, "attributes": data(body)}})
	default:
		id, _ := strconv.Atoi(call.Path[strings.LastIndex(call.Path, "/")+1:])
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"data": map[string]any{"id": id, "attributes": map[string]any{"title": "Old"}},
		})
	}
}

func data(body map[string]any) any {
	if inner, ok := body["data"]; ok {
		return inner
	}

	return body
}

func testJWT(exp int64) string {
	encode := func(value any) string {
		raw, _ := json.Marshal(value)

		return base64.RawURLEncoding.EncodeToString(raw)
	}

	return encode(map[string]any{"alg": "HS256", "typ": "JWT"}) + "." +
		encode(map[string]any{"id": 1, "exp": exp}) + ".signature"
}

// runCLI executes args against a fresh command tree and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	root := &cobra.Command{Use: "strapi", SilenceUsage: true, SilenceErrors: true}
	RegisterGlobalFlags(root)
	root.AddCommand(
		NewVersionCommand("1.2.3", "abc123", "2024-01-01"),
		NewLoginCommand(),
		NewRegisterCommand(),
		NewLogoutCommand(),
		NewConfigCommand(),
		NewFindCommand(),
		NewGetCommand(),
		NewCreateCommand(),
		NewUpdateCommand(),
		NewDeleteCommand(),
		NewBulkCommand(),
		NewAtomicCommand(),
	)

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return stdout.String(), err
}
