package strapi

// BatchBuilder helps build bulk and atomic batches.
type BatchBuilder struct {
	resource   string
	operations []Operation
}

// NewBatchBuilder creates a new batch builder. Operations added without an
// explicit resource target defaultResource.
func NewBatchBuilder(defaultResource string) *BatchBuilder {
	return &BatchBuilder{
		resource:   defaultResource,
		operations: make([]Operation, 0),
	}
}

// Create adds a create operation on the default resource.
func (b *BatchBuilder) Create(data any) *BatchBuilder {
	return b.CreateIn(b.resource, data)
}

// CreateIn adds a create operation on resource.
func (b *BatchBuilder) CreateIn(resource string, data any) *BatchBuilder {
	return b.Add(Operation{Type: OperationCreate, Resource: resource, Data: data})
}

// Update adds an update operation on the default resource.
func (b *BatchBuilder) Update(id string, data any) *BatchBuilder {
	return b.UpdateIn(b.resource, id, data)
}

// UpdateIn adds an update operation on resource.
func (b *BatchBuilder) UpdateIn(resource, id string, data any) *BatchBuilder {
	return b.Add(Operation{Type: OperationUpdate, Resource: resource, ID: id, Data: data})
}

// Delete adds a delete operation on the default resource.
func (b *BatchBuilder) Delete(id string) *BatchBuilder {
	return b.DeleteIn(b.resource, id)
}

// DeleteIn adds a delete operation on resource.
func (b *BatchBuilder) DeleteIn(resource, id string) *BatchBuilder {
	return b.Add(Operation{Type: OperationDelete, Resource: resource, ID: id})
}

// Add adds a custom operation.
func (b *BatchBuilder) Add(operation Operation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the built operations.
func (b *BatchBuilder) Build() []Operation {
	out := make([]Operation, len(b.operations))
	copy(out, b.operations)

	return out
}
