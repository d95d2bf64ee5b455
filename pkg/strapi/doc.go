// Package strapi provides types, interfaces, and helpers for working with the
// Strapi REST API.
//
// # Overview
//
// The strapi package defines the query builder (Query), the batch operation
// type (Operation), decoded response bodies (Record), the error taxonomy and
// the client interfaces (Client, ResourceClient, Request, AtomicClient). A
// concrete implementation is provided by the strapiclient package, which
// wires configuration, transport and authentication. Most consumers import
// strapiclient to construct a client and then use the interfaces here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/strapi-client/pkg/strapi"
//	  "github.com/fivetwenty-io/strapi-client/pkg/strapiclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := strapiclient.New(ctx, &strapi.Config{
//	    BaseURL:  "https://cms.example.com/api",
//	    APIToken: "token",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  articles, err := cli.Resource("articles").Query().
//	    Filters(map[string]any{"title": map[string]any{"$contains": "go"}}).
//	    Sort("publishedAt:desc").
//	    Pagination(1, 25, true).
//	    FindMany(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = articles
//	}
//
// # Queries
//
// Query setters each overwrite only their own key. Page and offset
// pagination share one slot, so the last call wins. The query is encoded in
// bracket notation (filters[title][$eq]=A, sort[0]=title) and nothing is
// validated locally.
//
// # Bulk and atomic batches
//
// ResourceClient.Bulk runs independent operations concurrently and does not
// undo anything when one fails. AtomicClient.Atomic snapshots the records it
// is about to update or delete, runs the batch and, if any operation fails,
// issues compensating calls in batch order: updates are reverted, deleted
// records are re-created (with a new identifier) and created records are
// deleted. The original error is always returned; if a compensating call
// fails a *RollbackError is returned instead and the remote state may be
// only partially restored.
//
// # Errors
//
// Non-2xx responses are returned as *APIError. Helpers such as IsNotFound,
// IsUnauthorized and IsValidation branch on common cases. Malformed batch
// entries fail with ErrInvalidOperation before any request is sent.
package strapi
