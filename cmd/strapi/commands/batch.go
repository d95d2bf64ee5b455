package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

const operationsFileHelp = `The file holds a list of operations:

  - type: update
    resource: articles
    id: "5"
    data: {title: New}
  - type: delete
    resource: tags
    id: "9"

Create and update payloads are wrapped in a {"data": ...} envelope unless they
already are one.`

// NewBulkCommand creates the bulk command.
func NewBulkCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "bulk RESOURCE",
		Short: "Run independent operations on one collection concurrently",
		Long: "Run independent operations on one collection concurrently. Failures are not rolled back; " +
			"the resource field of each operation is ignored.\n\n" + operationsFileHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operations, err := loadOperations(file)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				results, err := s.client.Resource(args[0]).Bulk(ctx, operations)
				if err != nil {
					return err
				}

				return writeOutput(cmd.OutOrStdout(), results)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "operations file (.json, .yaml or .yml)")

	return cmd
}

// NewAtomicCommand creates the atomic command.
func NewAtomicCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "atomic",
		Short: "Run a batch that is compensated when any operation fails",
		Long: "Run a batch across collections. Updated and deleted entries are read first; when an operation " +
			"fails, applied changes are undone in batch order.\n\n" + operationsFileHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			operations, err := loadOperations(file)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				results, err := s.client.Atomic().Atomic(ctx, operations)
				if err != nil {
					reportAtomicFailure(s.logger, err)

					return err
				}

				return writeOutput(cmd.OutOrStdout(), results)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "operations file (.json, .yaml or .yml)")

	return cmd
}

func reportAtomicFailure(logger *zap.Logger, err error) {
	rollbackErr := &strapi.RollbackError{}
	if errors.As(err, &rollbackErr) {
		logger.Error("rollback incomplete, remote state needs manual repair",
			zap.Int("operation_index", rollbackErr.OperationIndex),
			zap.String("operation", string(rollbackErr.Operation)),
			zap.NamedError("compensation_error", rollbackErr.Err),
			zap.NamedError("cause", rollbackErr.Cause),
		)

		return
	}

	if errors.Is(err, strapi.ErrInvalidOperation) {
		return
	}

	logger.Warn("atomic batch failed, no changes remain applied", zap.Error(err))
}
