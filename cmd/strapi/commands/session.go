package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/internal/events"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
	"github.com/fivetwenty-io/strapi-client/pkg/strapiclient"
)

// cliVersion is reported on traces; set by NewVersionCommand.
var cliVersion = "dev"

// session is a client plus everything opened to build it.
type session struct {
	client  strapi.Client
	logger  *zap.Logger
	closers []func(context.Context) error
}

// newSession builds a client from flags, environment and the config file.
func newSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	baseURL := viper.GetString(keyURL)
	if baseURL == "" {
		return nil, constants.ErrNoBaseURLConfigured
	}

	verbose := viper.GetBool(keyVerbose)
	current := &session{logger: newCLILogger(verbose)}

	config := &strapi.Config{
		BaseURL:          baseURL,
		APIToken:         viper.GetString(keyToken),
		HTTPTimeout:      viper.GetDuration(keyTimeout),
		RateLimit:        viper.GetFloat64(keyRateLimit),
		BatchConcurrency: viper.GetInt(keyConcurrency),
		Debug:            verbose,
		Logger:           NewZapLogger(current.logger),
		Tracing:          viper.GetBool(keyTrace),
	}

	if config.Tracing {
		shutdown, err := initTracing(ctx, cmd.ErrOrStderr(), cliVersion)
		if err != nil {
			return nil, err
		}

		current.closers = append(current.closers, shutdown)
	}

	if natsURL := viper.GetString(keyNATSURL); natsURL != "" {
		conn, err := events.Connect(natsURL)
		if err != nil {
			current.close(ctx)

			return nil, err
		}

		current.closers = append(current.closers, func(context.Context) error { return conn.Drain() })
		config.Events = events.NewNATSPublisher(conn)
	}

	client, err := strapiclient.New(ctx, config)
	if err != nil {
		current.close(ctx)

		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	current.client = client

	return current, nil
}

// close releases resources in reverse order of acquisition.
func (s *session) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		err := s.closers[i](context.WithoutCancel(ctx))
		if err != nil {
			s.logger.Warn("closing session", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
}

// withSession runs fn with a session that is closed afterwards.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	current, err := newSession(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	defer current.close(ctx)

	return fn(ctx, current)
}
