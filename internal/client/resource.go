package client

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/fivetwenty-io/strapi-client/internal/http"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

// ResourceClient implements strapi.ResourceClient.
type ResourceClient struct {
	httpClient  *http.Client
	name        string
	concurrency int
	logger      strapi.Logger
}

func newResourceClient(httpClient *http.Client, name string, concurrency int, logger strapi.Logger) *ResourceClient {
	return &ResourceClient{
		httpClient:  httpClient,
		name:        name,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Name implements strapi.ResourceClient.Name.
func (c *ResourceClient) Name() string {
	return c.name
}

// Query implements strapi.ResourceClient.Query.
func (c *ResourceClient) Query() strapi.Request {
	return newRequest(c.httpClient, target{kind: namedResource, segment: c.name})
}

// Bulk implements strapi.ResourceClient.Bulk. Every operation is validated
// before the first call is sent. Operation.Resource is ignored: calls always
// go to this resource. Completed calls are not undone when another fails.
func (c *ResourceClient) Bulk(ctx context.Context, operations []strapi.Operation) ([]strapi.Record, error) {
	err := validateOperations(operations, false)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("dispatching bulk operations", map[string]interface{}{
		"resource":   c.name,
		"operations": len(operations),
	})

	return dispatch(ctx, operations, c.concurrency, func(ctx context.Context, _ int, operation strapi.Operation) (strapi.Record, error) {
		return execute(ctx, c.Query(), operation)
	})
}

// validateOperations checks every operation. withResource also requires a
// target resource on each entry.
func validateOperations(operations []strapi.Operation, withResource bool) error {
	for index, operation := range operations {
		err := operation.Validate()
		if err != nil {
			return fmt.Errorf("operation %d: %w", index, err)
		}

		if withResource && operation.Resource == "" {
			return fmt.Errorf("operation %d: %w: %w", index, strapi.ErrInvalidOperation, strapi.ErrResourceNameRequired)
		}
	}

	return nil
}

// execute issues the single call an operation maps to.
func execute(ctx context.Context, request strapi.Request, operation strapi.Operation) (strapi.Record, error) {
	switch operation.Type {
	case strapi.OperationCreate:
		return request.Create(ctx, operation.Data)
	case strapi.OperationUpdate:
		return request.Update(ctx, operation.ID, operation.Data)
	case strapi.OperationDelete:
		return request.Delete(ctx, operation.ID)
	default:
		return nil, fmt.Errorf("%w: type %q", strapi.ErrInvalidOperation, operation.Type)
	}
}

// dispatch runs fn for every operation concurrently, at most limit at a time
// when limit is positive. It waits for every call to settle and returns the
// first error, or the results in input order.
func dispatch(
	ctx context.Context,
	operations []strapi.Operation,
	limit int,
	fn func(ctx context.Context, index int, operation strapi.Operation) (strapi.Record, error),
) ([]strapi.Record, error) {
	results := make([]strapi.Record, len(operations))

	var group errgroup.Group
	if limit > 0 {
		group.SetLimit(limit)
	}

	for index, operation := range operations {
		group.Go(func() error {
			record, err := fn(ctx, index, operation)
			if err != nil {
				return err
			}

			results[index] = record

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err //nolint:wrapcheck // the failing call's error is returned as is
	}

	return results, nil
}
