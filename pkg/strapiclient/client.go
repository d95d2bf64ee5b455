// Package strapiclient provides the main entry point for creating Strapi API clients
package strapiclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/strapi-client/internal/client"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

// ErrNoJWTInResponse is returned when a login response carries no jwt.
var ErrNoJWTInResponse = errors.New("login response contains no jwt")

// New creates a new Strapi API client.
func New(ctx context.Context, config *strapi.Config) (strapi.Client, error) {
	cli, err := newClient(ctx, config)
	if err != nil {
		return nil, err
	}

	return cli, nil
}

func newClient(ctx context.Context, config *strapi.Config) (*client.Client, error) {
	if config == nil {
		return nil, strapi.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, strapi.ErrBaseURLRequired
	}

	config.BaseURL = NormalizeBaseURL(config.BaseURL)

	cli, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return cli, nil
}

// NormalizeBaseURL trims a trailing slash and defaults the scheme to https.
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}

// NewWithToken creates a new client with a base URL and API token.
func NewWithToken(ctx context.Context, baseURL, token string) (strapi.Client, error) {
	return New(ctx, &strapi.Config{
		BaseURL:  baseURL,
		APIToken: token,
	})
}

// NewWithCredentials logs in through /auth/local and returns a client that
// sends the issued jwt on every request.
func NewWithCredentials(ctx context.Context, baseURL, identifier, password string) (strapi.Client, string, error) {
	cli, err := newClient(ctx, &strapi.Config{BaseURL: baseURL})
	if err != nil {
		return nil, "", err
	}

	session, err := cli.Users().Query().Auth(ctx, identifier, password)
	if err != nil {
		return nil, "", fmt.Errorf("logging in as %s: %w", identifier, err)
	}

	jwt, _ := session["jwt"].(string)
	if jwt == "" {
		return nil, "", ErrNoJWTInResponse
	}

	err = cli.SetToken(jwt)
	if err != nil {
		return nil, "", fmt.Errorf("storing session token: %w", err)
	}

	return cli, jwt, nil
}
