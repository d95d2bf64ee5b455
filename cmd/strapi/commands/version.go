package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
)

// VersionInfo describes the CLI build.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit"  yaml:"commit"`
	Built   string `json:"built"   yaml:"built"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	cliVersion = version

	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the Strapi CLI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := VersionInfo{Version: version, Commit: commit, Built: date}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			if format != constants.FormatTable {
				return writeOutput(cmd.OutOrStdout(), info)
			}

			return writePropertyTable(cmd.OutOrStdout(), map[string]any{
				"version": info.Version,
				"commit":  info.Commit,
				"built":   info.Built,
			})
		},
	}
}
