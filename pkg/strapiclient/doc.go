// Package strapiclient builds strapi.Client values.
//
// It normalizes the base URL and wires the HTTP transport, token handling and
// atomic batch coordinator behind the interfaces defined in the strapi
// package.
//
// Quick start
//
//	ctx := context.Background()
//
//	cli, err := strapiclient.NewWithToken(ctx, "https://cms.example.com/api", os.Getenv("STRAPI_TOKEN"))
//	if err != nil {
//	  log.Fatal(err)
//	}
//
//	articles, err := cli.Resource("articles").Query().
//	  Filters(map[string]any{"title": map[string]any{"$containsi": "go"}}).
//	  Sort("publishedAt:desc").
//	  Pagination(1, 25).
//	  FindMany(ctx)
//
// Logging in with user credentials stores the issued jwt on the client:
//
//	cli, jwt, err := strapiclient.NewWithCredentials(ctx, baseURL, "editor@example.com", password)
package strapiclient
