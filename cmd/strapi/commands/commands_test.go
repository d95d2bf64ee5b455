package commands

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

func TestNewFindCommand(t *testing.T) {
	cmd := NewFindCommand()
	assert.Equal(t, "find RESOURCE", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	for _, flag := range []string{
		"page", "page-size", "start", "limit", "with-count", "sort", "fields",
		"populate", "locale", "publication-state", "filters", "query",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestFind(t *testing.T) {
	t.Run("query flags", func(t *testing.T) {
		server := newCLIServer(t)

		out, err := runCLI(t, "find", "articles", "--url", server.URL(),
			"--sort", "title:asc,id:desc",
			"--page", "2", "--page-size", "5",
			"--filters", `{"title":{"$eq":"A"}}`,
			"--populate", "author,tags",
			"--fields", "title",
			"--locale", "en",
			"--publication-state", "preview",
		)
		require.NoError(t, err)

		calls := server.recorded()
		require.Len(t, calls, 1)
		assert.Equal(t, "GET /articles", calls[0].String())

		query, err := url.ParseQuery(calls[0].RawQuery)
		require.NoError(t, err)
		assert.Equal(t, "title:asc", query.Get("sort[0]"))
		assert.Equal(t, "id:desc", query.Get("sort[1]"))
		assert.Equal(t, "2", query.Get("pagination[page]"))
		assert.Equal(t, "5", query.Get("pagination[pageSize]"))
		assert.False(t, query.Has("pagination[withCount]"))
		assert.Equal(t, "A", query.Get("filters[title][$eq]"))
		assert.Equal(t, "author", query.Get("populate[0]"))
		assert.Equal(t, "tags", query.Get("populate[1]"))
		assert.Equal(t, "title", query.Get("fields[0]"))
		assert.Equal(t, "en", query.Get("locale"))
		assert.Equal(t, "preview", query.Get("publicationState"))

		var result map[string]any

		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Len(t, result["data"], 2)
	})

	t.Run("no flags sends no query", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "find", "articles", "--url", server.URL())
		require.NoError(t, err)
		assert.Empty(t, server.recorded()[0].RawQuery)
	})

	t.Run("conflicting pagination", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "find", "articles", "--url", server.URL(), "--page", "2", "--start", "10")
		require.ErrorIs(t, err, constants.ErrConflictingPagination)
		assert.Empty(t, server.recorded())
	})

	t.Run("raw query", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "find", "articles", "--url", server.URL(), "--query", "?filters[slug][$eq]=hello", "--locale", "en")
		require.NoError(t, err)
		assert.Equal(t, "filters[slug][$eq]=hello", server.recorded()[0].RawQuery)
	})

	t.Run("table output", func(t *testing.T) {
		server := newCLIServer(t)

		out, err := runCLI(t, "find", "articles", "--url", server.URL(), "--output", "table")
		require.NoError(t, err)
		assert.Contains(t, strings.ToUpper(out), "TITLE")
		assert.Contains(t, strings.ToUpper(out), "PUBLISHED AT")
		assert.Contains(t, out, "Other")
	})

	t.Run("yaml output", func(t *testing.T) {
		server := newCLIServer(t)

		out, err := runCLI(t, "find", "articles", "--url", server.URL(), "-o", "yaml")
		require.NoError(t, err)

		var result map[string]any

		require.NoError(t, yaml.Unmarshal([]byte(out), &result))
		first := result["data"].([]any)[0].(map[string]any)
		assert.Equal(t, 5, first["id"], "numbers are printed as numbers")
	})

	t.Run("invalid output format", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "find", "articles", "--url", server.URL(), "-o", "xml")
		require.ErrorIs(t, err, constants.ErrInvalidOutputFormat)
	})

	t.Run("requires url", func(t *testing.T) {
		_, err := runCLI(t, "find", "articles")
		require.ErrorIs(t, err, constants.ErrNoBaseURLConfigured)
	})

	t.Run("token flag", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "find", "articles", "--url", server.URL(), "--token", "api-token")
		require.NoError(t, err)
		assert.Equal(t, "Bearer api-token", server.recorded()[0].Authorization)
	})
}

func TestRecordCommands(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		server := newCLIServer(t)

		out, err := runCLI(t, "get", "articles", "5", "--url", server.URL(), "--populate", "*")
		require.NoError(t, err)
		assert.Equal(t, "GET /articles/5", server.recorded()[0].String())
		assert.Equal(t, "populate=%2A", server.recorded()[0].RawQuery)
		assert.Contains(t, out, `"title": "Old"`)
	})

	t.Run("create wraps the payload", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "create", "articles", "--url", server.URL(), "--data", `{"title":"A"}`)
		require.NoError(t, err)

		call := server.recorded()[0]
		assert.Equal(t, "POST /articles", call.String())
		assert.Equal(t, map[string]any{"data": map[string]any{"title": "A"}}, call.Body)
	})

	t.Run("create keeps an existing envelope", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "create", "articles", "--url", server.URL(), "--data", `{"data":{"title":"A"}}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"data": map[string]any{"title": "A"}}, server.recorded()[0].Body)
	})

	t.Run("create requires a payload", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "create", "articles", "--url", server.URL())
		require.ErrorIs(t, err, constants.ErrDataRequired)
		assert.Empty(t, server.recorded())
	})

	t.Run("update from yaml file", func(t *testing.T) {
		server := newCLIServer(t)
		file := filepath.Join(t.TempDir(), "article.yaml")
		require.NoError(t, os.WriteFile(file, []byte("title: New\n"), 0o600))

		_, err := runCLI(t, "update", "articles", "5", "--url", server.URL(), "--file", file)
		require.NoError(t, err)

		call := server.recorded()[0]
		assert.Equal(t, "PUT /articles/5", call.String())
		assert.Equal(t, map[string]any{"data": map[string]any{"title": "New"}}, call.Body)
	})

	t.Run("delete", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "delete", "articles", "9", "--url", server.URL())
		require.NoError(t, err)
		assert.Equal(t, "DELETE /articles/9", server.recorded()[0].String())
	})
}

func TestBatchCommands(t *testing.T) {
	t.Run("bulk", func(t *testing.T) {
		server := newCLIServer(t)
		file := filepath.Join(t.TempDir(), "ops.json")
		require.NoError(t, os.WriteFile(file, []byte(`[
			{"type": "update", "id": "5", "data": {"title": "New"}},
			{"type": "delete", "resource": "ignored", "id": "9"}
		]`), 0o600))

		out, err := runCLI(t, "bulk", "articles", "--url", server.URL(), "--file", file)
		require.NoError(t, err)

		var seen []string
		for _, call := range server.recorded() {
			seen = append(seen, call.String())
		}

		assert.ElementsMatch(t, []string{"PUT /articles/5", "DELETE /articles/9"}, seen)

		var results []map[string]any

		require.NoError(t, json.Unmarshal([]byte(out), &results))
		assert.Len(t, results, 2)
	})

	t.Run("bulk requires a file", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "bulk", "articles", "--url", server.URL())
		require.ErrorIs(t, err, constants.ErrFileRequired)
	})

	t.Run("atomic rolls back", func(t *testing.T) {
		server := newCLIServer(t)
		file := filepath.Join(t.TempDir(), "ops.yaml")
		require.NoError(t, os.WriteFile(file, []byte(`
- type: create
  resource: articles
  data: {title: A}
- type: create
  resource: tags
  data: {name: go}
`), 0o600))

		_, err := runCLI(t, "atomic", "--url", server.URL(), "--file", file, "--concurrency", "1")
		require.Error(t, err)
		assert.True(t, strapi.IsValidation(err))

		var seen []string
		for _, call := range server.recorded() {
			seen = append(seen, call.String())
		}

		assert.Equal(t, []string{"POST /articles", "POST /tags", "DELETE /articles/101"}, seen)
	})

	t.Run("atomic rejects an invalid batch", func(t *testing.T) {
		server := newCLIServer(t)
		file := filepath.Join(t.TempDir(), "ops.json")
		require.NoError(t, os.WriteFile(file, []byte(`[{"type": "update", "resource": "articles"}]`), 0o600))

		_, err := runCLI(t, "atomic", "--url", server.URL(), "--file", file)
		require.ErrorIs(t, err, strapi.ErrInvalidOperation)
		assert.Empty(t, server.recorded())
	})
}

func TestSessionCommands(t *testing.T) {
	t.Run("login persists the jwt", func(t *testing.T) {
		server := newCLIServer(t)
		configFile := filepath.Join(t.TempDir(), "config.yml")

		out, err := runCLI(t, "login", "--config", configFile, "--url", server.URL(),
			"--identifier", "editor", "--password", "secret")
		require.NoError(t, err)
		assert.Contains(t, out, "Logged in as editor")

		call := server.recorded()[0]
		assert.Equal(t, "POST /auth/local", call.String())
		assert.Equal(t, map[string]any{"identifier": "editor", "password": "secret"}, call.Body)

		config := readConfigFile(t, configFile)
		assert.Equal(t, server.URL(), config.URL)
		assert.Equal(t, "editor", config.Identifier)
		assert.Equal(t, testJWT(testJWTExpiry), config.Token)
		require.NotNil(t, config.TokenExpiresAt)
		assert.True(t, time.Unix(testJWTExpiry, 0).Equal(*config.TokenExpiresAt))

		_, err = runCLI(t, "logout", "--config", configFile)
		require.NoError(t, err)
		assert.Empty(t, readConfigFile(t, configFile).Token)
		assert.Equal(t, "editor", readConfigFile(t, configFile).Identifier)
	})

	t.Run("login reads the password from stdin", func(t *testing.T) {
		server := newCLIServer(t)
		configFile := filepath.Join(t.TempDir(), "config.yml")

		_, err := runCLI(t, "login", "--config", configFile, "--url", server.URL(), "--identifier", "editor")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"identifier": "editor", "password": ""}, server.recorded()[0].Body)
	})

	t.Run("login requires an identifier", func(t *testing.T) {
		server := newCLIServer(t)

		_, err := runCLI(t, "login", "--url", server.URL(), "--password", "secret")
		require.ErrorIs(t, err, constants.ErrIdentifierRequired)
	})

	t.Run("register", func(t *testing.T) {
		server := newCLIServer(t)
		configFile := filepath.Join(t.TempDir(), "config.yml")

		out, err := runCLI(t, "register", "--config", configFile, "--url", server.URL(),
			"--username", "editor", "--email", "editor@example.com", "--password", "secret")
		require.NoError(t, err)
		assert.Contains(t, out, `"username": "editor"`)

		call := server.recorded()[0]
		assert.Equal(t, "POST /auth/local/register", call.String())
		assert.Equal(t, testJWT(testJWTExpiry), readConfigFile(t, configFile).Token)
	})
}

func TestConfigCommand(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "nested", "config.yml")

	_, err := runCLI(t, "config", "set", "url", "https://cms.example.com/api", "--config", configFile)
	require.NoError(t, err)

	_, err = runCLI(t, "config", "set", "token", "secret-token", "--config", configFile)
	require.NoError(t, err)

	_, err = runCLI(t, "config", "set", "nats-url", "nats://localhost:4222", "--config", configFile)
	require.NoError(t, err)

	config := readConfigFile(t, configFile)
	assert.Equal(t, "https://cms.example.com/api", config.URL)
	assert.Equal(t, "nats://localhost:4222", config.NATSURL)

	info, err := os.Stat(configFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(constants.ConfigFilePerm), info.Mode().Perm())

	out, err := runCLI(t, "config", "show", "--config", configFile)
	require.NoError(t, err)
	assert.Contains(t, out, constants.MaskedSecret)
	assert.NotContains(t, out, "secret-token")

	_, err = runCLI(t, "config", "unset", "token", "--config", configFile)
	require.NoError(t, err)
	assert.Empty(t, readConfigFile(t, configFile).Token)

	_, err = runCLI(t, "config", "set", "color", "blue", "--config", configFile)
	require.ErrorIs(t, err, constants.ErrUnknownConfigKey)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)

	var info VersionInfo

	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, VersionInfo{Version: "1.2.3", Commit: "abc123", Built: "2024-01-01"}, info)

	out, err = runCLI(t, "version", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "abc123")
}

func readConfigFile(t *testing.T, path string) *Config {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	config := &Config{}
	require.NoError(t, yaml.Unmarshal(data, config))

	return config
}
