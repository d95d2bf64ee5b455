package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

type findOptions struct {
	page             int
	pageSize         int
	start            int
	limit            int
	withCount        bool
	sort             []string
	fields           []string
	populate         string
	locale           string
	publicationState string
	filters          string
	rawQuery         string
}

// NewFindCommand creates the find command.
func NewFindCommand() *cobra.Command {
	opts := &findOptions{}

	cmd := &cobra.Command{
		Use:   "find RESOURCE",
		Short: "List entries of a collection",
		Long: `List entries of a collection.

Filters and populate accept JSON objects, for example
  strapi find articles --filters '{"title":{"$containsi":"go"}}' --populate '{"author":{"fields":["name"]}}'
--query sends a pre-encoded query string verbatim and ignores the other query flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				request := s.client.Resource(args[0]).Query()

				var (
					result strapi.Record
					err    error
				)

				if opts.rawQuery != "" {
					result, err = request.RawFindMany(ctx, strings.TrimPrefix(opts.rawQuery, "?"), false)
				} else {
					err = opts.apply(cmd, request)
					if err != nil {
						return err
					}

					result, err = request.FindMany(ctx)
				}

				if err != nil {
					return err
				}

				return writeOutput(cmd.OutOrStdout(), result)
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.page, "page", 1, "page number")
	flags.IntVar(&opts.pageSize, "page-size", 25, "entries per page")
	flags.IntVar(&opts.start, "start", 0, "offset of the first entry")
	flags.IntVar(&opts.limit, "limit", 25, "maximum entries with offset pagination")
	flags.BoolVar(&opts.withCount, "with-count", true, "include the total count in meta.pagination")
	flags.StringSliceVar(&opts.sort, "sort", nil, "sort fields, e.g. title:asc")
	flags.StringSliceVar(&opts.fields, "fields", nil, "attributes to return")
	flags.StringVar(&opts.populate, "populate", "", "relations to populate: *, a comma separated list or a JSON object")
	flags.StringVar(&opts.locale, "locale", "", "content locale")
	flags.StringVar(&opts.publicationState, "publication-state", "", "live or preview")
	flags.StringVar(&opts.filters, "filters", "", "filters as a JSON object")
	flags.StringVar(&opts.rawQuery, "query", "", "pre-encoded query string")

	return cmd
}

// apply copies the flags that were set onto request.
func (o *findOptions) apply(cmd *cobra.Command, request strapi.Request) error {
	flags := cmd.Flags()
	pagePagination := flags.Changed("page") || flags.Changed("page-size")
	offsetPagination := flags.Changed("start") || flags.Changed("limit")

	var withCount []bool
	if flags.Changed("with-count") {
		withCount = []bool{o.withCount}
	}

	switch {
	case pagePagination && offsetPagination:
		return constants.ErrConflictingPagination
	case pagePagination:
		request.Pagination(o.page, o.pageSize, withCount...)
	case offsetPagination:
		request.OffsetPagination(o.start, o.limit, withCount...)
	}

	if o.filters != "" {
		var filters any

		err := decodeJSON([]byte(o.filters), &filters)
		if err != nil {
			return err
		}

		request.Filters(filters)
	}

	if len(o.sort) > 0 {
		request.Sort(o.sort...)
	}

	if len(o.fields) > 0 {
		request.Fields(o.fields...)
	}

	if o.populate != "" {
		populate, err := parsePopulate(o.populate)
		if err != nil {
			return err
		}

		request.Populate(populate)
	}

	if o.locale != "" {
		request.Locale(o.locale)
	}

	if o.publicationState != "" {
		request.PublicationState(strapi.PublicationState(o.publicationState))
	}

	return nil
}

func parsePopulate(value string) (any, error) {
	trimmed := strings.TrimSpace(value)

	switch {
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		var populate any

		err := decodeJSON([]byte(trimmed), &populate)
		if err != nil {
			return nil, err
		}

		return populate, nil
	case strings.Contains(trimmed, ","):
		parts := strings.Split(trimmed, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		return parts, nil
	default:
		return trimmed, nil
	}
}
