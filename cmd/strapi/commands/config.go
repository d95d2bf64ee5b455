package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
)

// Viper keys. Flags use dashes, keys use underscores so that STRAPI_NATS_URL
// style environment variables resolve.
const (
	keyConfig      = "config"
	keyURL         = "url"
	keyToken       = "token"
	keyOutput      = "output"
	keyVerbose     = "verbose"
	keyNATSURL     = "nats_url"
	keyTrace       = "trace"
	keyRateLimit   = "rate_limit"
	keyConcurrency = "concurrency"
	keyTimeout     = "timeout"
	keyIdentifier  = "identifier"
)

// Config is the persisted CLI configuration.
type Config struct {
	URL            string     `json:"url,omitempty"              yaml:"url,omitempty"`
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	Identifier     string     `json:"identifier,omitempty"       yaml:"identifier,omitempty"`
	Output         string     `json:"output,omitempty"           yaml:"output,omitempty"`
	NATSURL        string     `json:"nats_url,omitempty"         yaml:"nats_url,omitempty"`
}

// configSetters maps the keys accepted by "config set" to their fields.
var configSetters = map[string]func(*Config, string){
	keyURL:        func(c *Config, v string) { c.URL = v },
	keyOutput:     func(c *Config, v string) { c.Output = v },
	keyNATSURL:    func(c *Config, v string) { c.NATSURL = v },
	keyIdentifier: func(c *Config, v string) { c.Identifier = v },
	keyToken: func(c *Config, v string) {
		c.Token = v
		c.TokenExpiresAt = nil
	},
}

// RegisterGlobalFlags adds the persistent flags and binds them to viper.
func RegisterGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.strapi/config.yml)")
	flags.StringP("url", "u", "", "Strapi API base URL, e.g. https://cms.example.com/api")
	flags.StringP("token", "t", "", "API token or user jwt")
	flags.StringP("output", "o", constants.FormatJSON, "output format (json, yaml, table)")
	flags.BoolP("verbose", "v", false, "log HTTP traffic and batch phases to stderr")
	flags.String("nats-url", "", "publish atomic batch outcomes to this NATS server")
	flags.Bool("trace", false, "print OpenTelemetry spans to stderr")
	flags.Float64("rate-limit", 0, "maximum requests per second (0 disables limiting)")
	flags.Int("concurrency", 0, "maximum in-flight calls per batch (0 is unbounded)")
	flags.Duration("timeout", constants.DefaultHTTPTimeout, "timeout of each HTTP call")

	bindings := map[string]string{
		keyConfig:      "config",
		keyURL:         "url",
		keyToken:       "token",
		keyOutput:      "output",
		keyVerbose:     "verbose",
		keyNATSURL:     "nats-url",
		keyTrace:       "trace",
		keyRateLimit:   "rate-limit",
		keyConcurrency: "concurrency",
		keyTimeout:     "timeout",
	}

	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// InitConfig reads the config file and STRAPI_ environment variables.
func InitConfig() {
	cfgFile := viper.GetString(keyConfig)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".strapi")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("STRAPI")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err == nil && viper.GetBool(keyVerbose) {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func configFilePath() (string, error) {
	if cfgFile := viper.GetString(keyConfig); cfgFile != "" {
		return cfgFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}

	return filepath.Join(home, ".strapi", "config.yml"), nil
}

// loadConfig reads the persisted config file only; flags and environment are
// not merged so that saving never persists a one-off flag value.
func loadConfig() (*Config, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- user-selected config path
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := &Config{}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return config, nil
}

func saveConfig(config *Config) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the values persisted in the CLI config file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the persisted configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			shown := *config
			if shown.Token != "" {
				shown.Token = constants.MaskedSecret
			}

			return writeOutput(cmd.OutOrStdout(), configView(&shown))
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + strings.Join(configKeys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, args[0], args[1])
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, args[0], "")
		},
	}
}

func updateConfig(cmd *cobra.Command, key, value string) error {
	setter, ok := configSetters[strings.ReplaceAll(key, "-", "_")]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}

	setter(config, value)

	err = saveConfig(config)
	if err != nil {
		return err
	}

	if value == "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", key)
	} else {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)
	}

	return nil
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for key := range configSetters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func configView(config *Config) map[string]any {
	view := map[string]any{
		"url":        valueOrNA(config.URL),
		"token":      valueOrNA(config.Token),
		"identifier": valueOrNA(config.Identifier),
		"output":     valueOrNA(config.Output),
		"nats_url":   valueOrNA(config.NATSURL),
	}

	if config.TokenExpiresAt != nil {
		view["token_expires_at"] = config.TokenExpiresAt.Format(time.RFC3339)
	}

	return view
}

func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
