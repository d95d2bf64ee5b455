package client

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/strapi-client/internal/http"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

type atomicOptions struct {
	logger      strapi.Logger
	concurrency int
	newID       strapi.IDGenerator
	metrics     strapi.Metrics
	events      strapi.EventPublisher
	tracer      trace.Tracer
}

// AtomicClient implements strapi.AtomicClient.
//
// Strapi has no multi-record transactions, so a batch is made all-or-nothing
// on a best-effort basis: the records about to change are read first, the
// batch runs concurrently and, if any call fails, inverse calls are issued
// one at a time in batch order.
type AtomicClient struct {
	httpClient  *http.Client
	logger      strapi.Logger
	concurrency int
	newID       strapi.IDGenerator
	metrics     strapi.Metrics
	events      strapi.EventPublisher
	tracer      trace.Tracer
}

func newAtomicClient(httpClient *http.Client, opts atomicOptions) *AtomicClient {
	client := &AtomicClient{
		httpClient:  httpClient,
		logger:      opts.logger,
		concurrency: opts.concurrency,
		newID:       opts.newID,
		metrics:     opts.metrics,
		events:      opts.events,
		tracer:      opts.tracer,
	}

	if client.logger == nil {
		client.logger = noopLogger{}
	}

	if client.newID == nil {
		client.newID = defaultIDGenerator
	}

	if client.tracer == nil {
		client.tracer = defaultTracer()
	}

	return client
}

// Atomic implements strapi.AtomicClient.Atomic.
//
// On failure the error of the first failing call is returned after
// compensation, even when compensation succeeded. If a compensating call
// fails the pass stops and a *strapi.RollbackError is returned.
func (c *AtomicClient) Atomic(ctx context.Context, operations []strapi.Operation) ([]strapi.Record, error) {
	return c.newBatch(operations).run(ctx)
}

func (c *AtomicClient) newBatch(operations []strapi.Operation) *atomicBatch {
	return &atomicBatch{
		client:     c,
		id:         c.newID(),
		operations: operations,
		snapshots:  newSnapshotStore(),
	}
}

func (c *AtomicClient) request(operation strapi.Operation) strapi.Request {
	return newRequest(c.httpClient, target{kind: atomicRoot, segment: operation.Resource})
}

// atomicBatch is one invocation of Atomic.
type atomicBatch struct {
	client     *AtomicClient
	id         string
	operations []strapi.Operation
	// tags holds the correlation id of each operation, by index.
	tags          []string
	snapshots     *snapshotStore
	compensations int
}

func (b *atomicBatch) run(ctx context.Context) (results []strapi.Record, err error) {
	start := time.Now()

	ctx, span := b.client.tracer.Start(ctx, "strapi.atomic", trace.WithAttributes(
		attribute.String("strapi.batch_id", b.id),
		attribute.Int("strapi.operations", len(b.operations)),
	))

	outcome := strapi.OutcomeRejected

	defer func() {
		b.snapshots.discard(b.tags)
		b.finish(ctx, span, outcome, err, time.Since(start))
		span.End()
	}()

	err = validateOperations(b.operations, true)
	if err != nil {
		return nil, err
	}

	b.tag()

	err = b.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	results, execErr := b.execute(ctx)
	if execErr == nil {
		outcome = strapi.OutcomeCommitted

		return results, nil
	}

	err = b.compensate(ctx, execErr)

	outcome = strapi.OutcomeRolledBack
	if errors.Is(err, strapi.ErrRollbackFailed) {
		outcome = strapi.OutcomeRollbackFailed
	}

	return nil, err
}

// tag assigns every operation a fresh correlation id.
func (b *atomicBatch) tag() {
	b.tags = make([]string, len(b.operations))
	for index := range b.operations {
		b.tags[index] = b.client.newID()
	}
}

// snapshot reads, one at a time, the current state of every record an update
// or delete is about to change. It completes before any mutation is sent.
func (b *atomicBatch) snapshot(ctx context.Context) error {
	ctx, span := b.client.tracer.Start(ctx, "strapi.atomic.snapshot")
	defer span.End()

	for index, operation := range b.operations {
		if operation.Type != strapi.OperationUpdate && operation.Type != strapi.OperationDelete {
			continue
		}

		if operation.ID == "" {
			continue
		}

		prior, err := b.client.request(operation).FindOne(ctx, operation.ID)
		if err != nil {
			span.RecordError(err)
			b.client.logger.Error("atomic snapshot failed", map[string]interface{}{
				"batch_id": b.id,
				"index":    index,
				"resource": operation.Resource,
				"id":       operation.ID,
				"error":    err.Error(),
			})

			return err
		}

		b.snapshots.put(b.tags[index], snapshot{kind: operation.Type, prior: prior})
	}

	span.SetAttributes(attribute.Int("strapi.snapshots", b.snapshots.len()))

	return nil
}

// execute sends every operation concurrently and waits for all of them.
// A successful create records its result so it can be deleted on rollback.
func (b *atomicBatch) execute(ctx context.Context) ([]strapi.Record, error) {
	ctx, span := b.client.tracer.Start(ctx, "strapi.atomic.execute")
	defer span.End()

	results, err := dispatch(ctx, b.operations, b.client.concurrency,
		func(ctx context.Context, index int, operation strapi.Operation) (strapi.Record, error) {
			record, err := execute(ctx, b.client.request(operation), operation)
			if err != nil {
				return nil, err
			}

			if operation.Type == strapi.OperationCreate {
				b.snapshots.put(b.tags[index], snapshot{kind: strapi.OperationCreate, prior: record})
			}

			return record, nil
		})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return results, err
}

// compensate undoes the batch in order. Operations without a snapshot never
// changed anything and are skipped. It ignores cancellation of ctx.
func (b *atomicBatch) compensate(ctx context.Context, cause error) error {
	ctx, span := b.client.tracer.Start(context.WithoutCancel(ctx), "strapi.atomic.compensate")
	defer span.End()

	b.client.logger.Warn("atomic batch failed, compensating", map[string]interface{}{
		"batch_id": b.id,
		"error":    cause.Error(),
	})

	for index, operation := range b.operations {
		entry, ok := b.snapshots.get(b.tags[index])
		if !ok {
			continue
		}

		kind, issued, err := b.compensateOne(ctx, operation, entry)
		if !issued {
			continue
		}

		if b.client.metrics != nil {
			b.client.metrics.CompensationIssued(kind, err)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rollback failed")
			b.client.logger.Error("atomic rollback failed", map[string]interface{}{
				"batch_id":     b.id,
				"index":        index,
				"operation":    string(operation.Type),
				"compensation": string(kind),
				"error":        err.Error(),
			})

			return &strapi.RollbackError{
				OperationIndex: index,
				Operation:      operation.Type,
				Err:            err,
				Cause:          cause,
			}
		}

		b.compensations++

		b.client.logger.Debug("compensated operation", map[string]interface{}{
			"batch_id":     b.id,
			"index":        index,
			"operation":    string(operation.Type),
			"compensation": string(kind),
		})
	}

	span.SetAttributes(attribute.Int("strapi.compensations", b.compensations))

	return cause
}

// compensateOne issues the inverse call for one operation and reports the
// type of call sent. The operation's own type decides first; the snapshot
// kind only matters for deletes. A nil prior state leaves nothing to restore.
func (b *atomicBatch) compensateOne(ctx context.Context, operation strapi.Operation, entry snapshot) (strapi.OperationType, bool, error) {
	request := b.client.request(operation)

	switch {
	case operation.Type == strapi.OperationUpdate:
		if entry.prior == nil {
			return "", false, nil
		}

		_, err := request.Update(ctx, operation.ID, restorePayload(entry.prior))

		return strapi.OperationUpdate, true, err
	case entry.kind == strapi.OperationDelete:
		if entry.prior == nil {
			return "", false, nil
		}

		_, err := request.Create(ctx, restorePayload(entry.prior))

		return strapi.OperationCreate, true, err
	case operation.Type == strapi.OperationCreate && entry.prior.ID() != "":
		_, err := request.Delete(ctx, entry.prior.ID())

		return strapi.OperationDelete, true, err
	default:
		return "", false, nil
	}
}

// finish reports the batch to metrics, events and the trace.
func (b *atomicBatch) finish(ctx context.Context, span trace.Span, outcome strapi.BatchOutcome, err error, duration time.Duration) {
	span.SetAttributes(attribute.String("strapi.outcome", string(outcome)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	fields := map[string]interface{}{
		"batch_id":      b.id,
		"outcome":       string(outcome),
		"operations":    len(b.operations),
		"compensations": b.compensations,
		"duration":      duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
	}

	b.client.logger.Info("atomic batch finished", fields)

	if b.client.metrics != nil {
		b.client.metrics.BatchCompleted(outcome, len(b.operations), duration)
	}

	if b.client.events == nil {
		return
	}

	event := b.event(outcome, err, duration)

	publishErr := b.client.events.PublishBatchEvent(context.WithoutCancel(ctx), event)
	if publishErr != nil {
		b.client.logger.Warn("publishing atomic batch event failed", map[string]interface{}{
			"batch_id": b.id,
			"error":    publishErr.Error(),
		})
	}
}

func (b *atomicBatch) event(outcome strapi.BatchOutcome, err error, duration time.Duration) *strapi.BatchEvent {
	resources := make(map[string]struct{})
	counts := make(map[string]int)

	for _, operation := range b.operations {
		if operation.Resource != "" {
			resources[operation.Resource] = struct{}{}
		}

		counts[string(operation.Type)]++
	}

	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}

	sort.Strings(names)

	event := &strapi.BatchEvent{
		BatchID:       b.id,
		Outcome:       outcome,
		Operations:    len(b.operations),
		Resources:     names,
		Compensations: b.compensations,
		Duration:      duration,
		Timestamp:     time.Now().UTC(),
		Counts:        counts,
	}

	if err != nil {
		event.Error = err.Error()
	}

	return event
}
