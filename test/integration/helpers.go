//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
	"github.com/fivetwenty-io/strapi-client/pkg/strapiclient"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	URL        string
	Token      string
	Collection string
	TitleField string
	StrapiPath string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		URL:        os.Getenv("STRAPI_URL"),
		Token:      os.Getenv("STRAPI_TOKEN"),
		Collection: envOr("STRAPI_COLLECTION", "articles"),
		TitleField: envOr("STRAPI_TITLE_FIELD", "title"),
		StrapiPath: getStrapiPath(),
		Verbose:    os.Getenv("STRAPI_VERBOSE") == "true",
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

// getStrapiPath determines the path to the strapi binary.
func getStrapiPath() string {
	if path := os.Getenv("STRAPI_BINARY_PATH"); path != "" {
		return path
	}

	for _, candidate := range []string{"../../strapi", "./strapi", "../strapi"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "strapi"
}

// SkipIfMissingConfig skips the test when no Strapi server is configured.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.URL == "" || config.Token == "" {
		t.Skip("STRAPI_URL and STRAPI_TOKEN not set, skipping integration test")
	}
}

// SkipIfMissingBinary skips the test when the CLI binary is not built.
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.StrapiPath); err != nil {
		t.Skipf("strapi binary not found at %s, skipping integration test", config.StrapiPath)
	}
}

// NewClient builds an SDK client for the configured server.
func (config *TestConfig) NewClient(t *testing.T) strapi.Client {
	t.Helper()

	client, err := strapiclient.NewWithToken(context.Background(), config.URL, config.Token)
	require.NoError(t, err)

	return client
}

// Entry returns a create/update payload with a unique title.
func (config *TestConfig) Entry(title string) map[string]any {
	return map[string]any{"data": map[string]any{config.TitleField: title}}
}

// Title reads the title attribute of a v4 or v5 single entry response.
func (config *TestConfig) Title(record strapi.Record) string {
	data, _ := record["data"].(map[string]any)
	if attributes, ok := data["attributes"].(map[string]any); ok {
		data = attributes
	}

	title, _ := data[config.TitleField].(string)

	return title
}

// CommandRunner runs the strapi CLI binary.
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{config: config, t: t}
}

// Run executes a strapi command against the configured server.
func (runner *CommandRunner) Run(args ...string) (string, string, error) {
	args = append(args, "--url", runner.config.URL, "--token", runner.config.Token)

	cmd := exec.Command(runner.config.StrapiPath, args...) // #nosec G204 -- test binary

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.StrapiPath, strings.Join(args, " "))
	}

	err := cmd.Run()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdoutBuf.String(), stderrBuf.String())
	}

	return stdoutBuf.String(), stderrBuf.String(), err
}

// GenerateTestName creates a unique entry title.
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// CleanupEntry deletes an entry, ignoring failures.
func CleanupEntry(t *testing.T, client strapi.Client, collection, id string) {
	t.Helper()

	if id == "" {
		return
	}

	_, err := client.Resource(collection).Query().Delete(context.Background(), id)
	if err != nil && !strapi.IsNotFound(err) {
		t.Logf("Cleanup warning for %s/%s: %v", collection, id, err)
	}
}
