package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

func TestHeaderLabel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"id":           "Id",
		"title":        "Title",
		"publishedAt":  "Published At",
		"published_at": "Published At",
		"documentId":   "Document Id",
		"createdByURL": "Created By URL",
	}

	for input, want := range tests {
		assert.Equal(t, want, headerLabel(input), input)
	}
}

func TestFormatCell(t *testing.T) {
	t.Parallel()

	assert.Empty(t, formatCell(nil))
	assert.Equal(t, "A", formatCell("A"))
	assert.Equal(t, "7", formatCell(json.Number("7")))
	assert.Equal(t, "true", formatCell(true))
	assert.Equal(t, `{"a":1}`, formatCell(map[string]any{"a": 1}))
	assert.Equal(t, `["x","y"]`, formatCell([]any{"x", "y"}))

	long := formatCell(strings.Repeat("x", 100))
	assert.Len(t, long, constants.StringTruncationLimit)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	keys := sortedKeys(map[string]any{"title": 1, "documentId": 2, "id": 3, "author": 4})
	assert.Equal(t, []string{"id", "documentId", "author", "title"}, keys)
}

func TestEntry(t *testing.T) {
	t.Parallel()

	v4 := map[string]any{"id": 1, "attributes": map[string]any{"title": "A"}}
	assert.Equal(t, map[string]any{"id": 1, "title": "A"}, entry(v4))

	v5 := map[string]any{"id": 1, "documentId": "abc", "title": "A"}
	assert.Equal(t, v5, entry(v5))
}

func TestPlain(t *testing.T) {
	t.Parallel()

	got := plain(strapi.Record{
		"id":    json.Number("3"),
		"score": json.Number("1.5"),
		"tags":  []any{json.Number("1")},
	})

	assert.Equal(t, map[string]any{"id": int64(3), "score": 1.5, "tags": []any{int64(1)}}, got)
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	t.Run("empty collection", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer

		require.NoError(t, writeTable(&out, strapi.Record{"data": []any{}}))
		assert.Equal(t, "No entries found\n", out.String())
	})

	t.Run("single entry", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer

		require.NoError(t, writeTable(&out, strapi.Record{
			"data": map[string]any{"id": json.Number("4"), "attributes": map[string]any{"title": "Hello"}},
		}))
		assert.Contains(t, out.String(), "Hello")
		assert.Contains(t, strings.ToUpper(out.String()), "PROPERTY")
	})

	t.Run("batch results", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer

		require.NoError(t, writeTable(&out, []strapi.Record{
			{"data": map[string]any{"id": 1, "attributes": map[string]any{"title": "One"}}},
			{"id": 2, "title": "Two"},
		}))
		assert.Contains(t, out.String(), "One")
		assert.Contains(t, out.String(), "Two")
	})
}
