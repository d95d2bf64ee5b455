package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/strapi-client/internal/auth"
	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
	"github.com/fivetwenty-io/strapi-client/pkg/strapiclient"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var identifier, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with a Strapi user",
		Long:  "Authenticate against /auth/local and store the issued jwt in the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			baseURL := viper.GetString(keyURL)
			if baseURL == "" {
				return constants.ErrNoBaseURLConfigured
			}

			if identifier == "" {
				return constants.ErrIdentifierRequired
			}

			if password == "" {
				var err error

				password, err = readPassword(cmd, "Password: ")
				if err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			_, jwt, err := strapiclient.NewWithCredentials(ctx, baseURL, identifier, password)
			if err != nil {
				return err
			}

			err = persistSession(strapiclient.NormalizeBaseURL(baseURL), identifier, jwt)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", identifier)

			return nil
		},
	}

	cmd.Flags().StringVarP(&identifier, "identifier", "i", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")

	return cmd
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a Strapi user",
		Long:  "Register a user through /auth/local/register and store the issued jwt, if any",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || email == "" {
				return constants.ErrIdentifierRequired
			}

			if password == "" {
				var err error

				password, err = readPassword(cmd, "Password: ")
				if err != nil {
					return err
				}
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				result, err := s.client.Users().Query().Register(ctx, username, email, password)
				if err != nil {
					return err
				}

				if jwt, _ := result["jwt"].(string); jwt != "" {
					err = persistSession(strapiclient.NormalizeBaseURL(viper.GetString(keyURL)), username, jwt)
					if err != nil {
						return err
					}
				}

				user := result["user"]
				if user == nil {
					user = strapi.Record{}
				}

				return writeOutput(cmd.OutOrStdout(), user)
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored jwt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			config.Token = ""
			config.TokenExpiresAt = nil

			err = saveConfig(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")

			return nil
		},
	}
}

func persistSession(baseURL, identifier, jwt string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	config.URL = baseURL
	config.Identifier = identifier
	config.Token = jwt
	config.TokenExpiresAt = nil

	expiresAt, err := auth.JWTExpiry(jwt)
	if err == nil {
		expiresAt = expiresAt.UTC().Truncate(time.Second)
		config.TokenExpiresAt = &expiresAt
	}

	return saveConfig(config)
}

// readPassword prompts without echo on a terminal and reads a line otherwise.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), prompt)

	if file, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		secret, err := term.ReadPassword(int(file.Fd()))

		_, _ = fmt.Fprintln(cmd.ErrOrStderr())

		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		return string(secret), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
