package strapi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

func TestBatchBuilder(t *testing.T) {
	t.Parallel()

	builder := strapi.NewBatchBuilder("articles").
		Create(map[string]any{"title": "A"}).
		UpdateIn("authors", "7", map[string]any{"name": "B"}).
		Delete("9").
		Add(strapi.Operation{Type: strapi.OperationDelete, Resource: "tags", ID: "3"})

	operations := builder.Build()
	require.Len(t, operations, 4)

	assert.Equal(t, strapi.Operation{Type: strapi.OperationCreate, Resource: "articles", Data: map[string]any{"title": "A"}}, operations[0])
	assert.Equal(t, "authors", operations[1].Resource)
	assert.Equal(t, "7", operations[1].ID)
	assert.Equal(t, strapi.Operation{Type: strapi.OperationDelete, Resource: "articles", ID: "9"}, operations[2])
	assert.Equal(t, "tags", operations[3].Resource)

	for _, operation := range operations {
		require.NoError(t, operation.Validate())
	}

	operations[0].ID = "changed"
	assert.Empty(t, builder.Build()[0].ID, "Build returns a copy")
}

func TestBatchBuilder_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, strapi.NewBatchBuilder("articles").Build())
}
