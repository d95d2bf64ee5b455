package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

const (
	defaultJSONIndent = 2
	truncationSuffix  = "..."
)

func outputFormat() (string, error) {
	format := strings.ToLower(strings.TrimSpace(viper.GetString(keyOutput)))

	switch format {
	case "":
		return constants.FormatJSON, nil
	case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q", constants.ErrInvalidOutputFormat, format)
	}
}

// writeOutput renders value in the selected output format.
func writeOutput(out io.Writer, value any) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	switch format {
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(defaultJSONIndent)

		err = encoder.Encode(plain(value))
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}

		return encoder.Close()
	case constants.FormatTable:
		return writeTable(out, value)
	default:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		err = encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}

		return nil
	}
}

// plain converts json.Number values so YAML prints them as numbers.
func plain(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if integer, err := typed.Int64(); err == nil {
			return integer
		}

		if float, err := typed.Float64(); err == nil {
			return float
		}

		return typed.String()
	case strapi.Record:
		return plain(map[string]any(typed))
	case []strapi.Record:
		out := make([]any, len(typed))
		for i, record := range typed {
			out[i] = plain(record)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			out[key] = plain(inner)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = plain(inner)
		}

		return out
	default:
		return value
	}
}

func writeTable(out io.Writer, value any) error {
	switch typed := value.(type) {
	case strapi.Record:
		switch data := typed["data"].(type) {
		case []any:
			return writeRowsTable(out, entries(data))
		case map[string]any:
			return writePropertyTable(out, entry(data))
		}

		return writePropertyTable(out, typed)
	case []strapi.Record:
		rows := make([]map[string]any, 0, len(typed))

		for _, record := range typed {
			if data, ok := record["data"].(map[string]any); ok {
				rows = append(rows, entry(data))
			} else {
				rows = append(rows, record)
			}
		}

		return writeRowsTable(out, rows)
	case map[string]any:
		return writePropertyTable(out, typed)
	default:
		return writePropertyTable(out, map[string]any{"value": value})
	}
}

// entry flattens a v4 {id, attributes} entry; other shapes pass through.
func entry(data map[string]any) map[string]any {
	attributes, ok := data["attributes"].(map[string]any)
	if !ok {
		return data
	}

	out := make(map[string]any, len(attributes)+1)
	for key, value := range attributes {
		out[key] = value
	}

	out["id"] = data["id"]

	return out
}

func entries(data []any) []map[string]any {
	out := make([]map[string]any, 0, len(data))

	for _, item := range data {
		if object, ok := item.(map[string]any); ok {
			out = append(out, entry(object))
		}
	}

	return out
}

func writeRowsTable(out io.Writer, rows []map[string]any) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, "No entries found")

		return nil
	}

	columns := columnKeys(rows)

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = headerLabel(column)
	}

	table := tablewriter.NewWriter(out)
	table.Header(header...)

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, column := range columns {
			cells[i] = formatCell(row[column])
		}

		_ = table.Append(cells)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func writePropertyTable(out io.Writer, record map[string]any) error {
	table := tablewriter.NewWriter(out)
	table.Header("Property", "Value")

	for _, key := range sortedKeys(record) {
		_ = table.Append(headerLabel(key), formatCell(record[key]))
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// columnKeys returns the union of row keys, identifiers first.
func columnKeys(rows []map[string]any) []string {
	seen := make(map[string]any)

	for _, row := range rows {
		for key := range row {
			seen[key] = nil
		}
	}

	return sortedKeys(seen)
}

func sortedKeys(record map[string]any) []string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}

	rank := func(key string) int {
		switch key {
		case "id":
			return 0
		case "documentId":
			return 1
		default:
			return 2
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if rank(keys[i]) != rank(keys[j]) {
			return rank(keys[i]) < rank(keys[j])
		}

		return keys[i] < keys[j]
	})

	return keys
}

// headerLabel turns "publishedAt" or "published_at" into "Published At".
func headerLabel(key string) string {
	var builder strings.Builder

	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			builder.WriteRune(' ')
		case i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(runes[i-1]):
			builder.WriteRune(' ')
			builder.WriteRune(r)
		default:
			builder.WriteRune(r)
		}
	}

	return cases.Title(language.English, cases.NoLower).String(builder.String())
}

func formatCell(value any) string {
	var text string

	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		text = typed
	case json.Number:
		text = typed.String()
	case bool:
		text = fmt.Sprint(typed)
	case map[string]any, []any:
		data, err := json.Marshal(typed)
		if err != nil {
			text = fmt.Sprint(typed)
		} else {
			text = string(data)
		}
	default:
		text = fmt.Sprint(typed)
	}

	return truncate(text, constants.StringTruncationLimit)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit-len(truncationSuffix)]) + truncationSuffix
}
