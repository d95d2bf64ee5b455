package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/strapi-client/cmd/strapi/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "strapi",
		Short: "Strapi REST API CLI",
		Long: `A command-line interface for a Strapi headless CMS.

It queries and mutates content-type entries, runs concurrent bulk batches and
atomic batches that compensate already-applied changes when one operation fails.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.RegisterGlobalFlags(rootCmd)
	cobra.OnInitialize(commands.InitConfig)

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewRegisterCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewFindCommand())
	rootCmd.AddCommand(commands.NewGetCommand())
	rootCmd.AddCommand(commands.NewCreateCommand())
	rootCmd.AddCommand(commands.NewUpdateCommand())
	rootCmd.AddCommand(commands.NewDeleteCommand())
	rootCmd.AddCommand(commands.NewBulkCommand())
	rootCmd.AddCommand(commands.NewAtomicCommand())

	return rootCmd
}

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
