package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var (
		populate string
		locale   string
	)

	cmd := &cobra.Command{
		Use:   "get RESOURCE ID",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				request := s.client.Resource(args[0]).Query()

				if populate != "" {
					value, err := parsePopulate(populate)
					if err != nil {
						return err
					}

					request.Populate(value)
				}

				if locale != "" {
					request.Locale(locale)
				}

				record, err := request.FindOne(ctx, args[1])
				if err != nil {
					return err
				}

				return writeOutput(cmd.OutOrStdout(), record)
			})
		},
	}

	cmd.Flags().StringVar(&populate, "populate", "", "relations to populate: *, a comma separated list or a JSON object")
	cmd.Flags().StringVar(&locale, "locale", "", "content locale")

	return cmd
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var data, file string

	cmd := &cobra.Command{
		Use:   "create RESOURCE",
		Short: "Create an entry",
		Long:  "Create an entry. The payload is sent inside a {\"data\": ...} envelope unless it already is one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(data, file)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				record, err := s.client.Resource(args[0]).Query().Create(ctx, wrapData(payload))
				if err != nil {
					return err
				}

				return writeOutput(cmd.OutOrStdout(), record)
			})
		},
	}

	addPayloadFlags(cmd, &data, &file)

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var data, file string

	cmd := &cobra.Command{
		Use:   "update RESOURCE ID",
		Short: "Update an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(data, file)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				record, err := s.client.Resource(args[0]).Query().Update(ctx, args[1], wrapData(payload))
				if err != nil {
					return err
				}

				return writeOutput(cmd.OutOrStdout(), record)
			})
		},
	}

	addPayloadFlags(cmd, &data, &file)

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete RESOURCE ID",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				record, err := s.client.Resource(args[0]).Query().Delete(ctx, args[1])
				if err != nil {
					return err
				}

				return writeOutput(cmd.OutOrStdout(), record)
			})
		},
	}
}

func addPayloadFlags(cmd *cobra.Command, data, file *string) {
	cmd.Flags().StringVarP(data, "data", "d", "", "payload as a JSON object")
	cmd.Flags().StringVarP(file, "file", "f", "", "payload file (.json, .yaml or .yml)")
}
