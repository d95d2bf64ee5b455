// Package events publishes atomic batch outcomes to NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

// Static errors for err113 compliance.
var (
	ErrNATSURLRequired = errors.New("NATS URL is required")
	ErrNilEvent        = errors.New("batch event is nil")
)

// Header names set on every published message.
const (
	HeaderMsgID   = nats.MsgIdHdr
	HeaderOutcome = "Strapi-Batch-Outcome"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher implements strapi.EventPublisher. Each batch is published
// on "<prefix>.<outcome>" with the batch id as message id.
type NATSPublisher struct {
	conn   Conn
	prefix string
}

// Option configures a NATSPublisher.
type Option func(*NATSPublisher)

// WithSubjectPrefix overrides the subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(p *NATSPublisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// NewNATSPublisher creates a publisher writing to conn.
func NewNATSPublisher(conn Conn, opts ...Option) *NATSPublisher {
	publisher := &NATSPublisher{
		conn:   conn,
		prefix: constants.AtomicSubjectPrefix,
	}

	for _, opt := range opts {
		opt(publisher)
	}

	return publisher
}

// Connect dials a NATS server for event publishing.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		return nil, ErrNATSURLRequired
	}

	opts = append([]nats.Option{nats.Name("strapi-client")}, opts...)

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	return conn, nil
}

// Subject returns the subject an outcome is published on.
func (p *NATSPublisher) Subject(outcome strapi.BatchOutcome) string {
	return p.prefix + "." + string(outcome)
}

// PublishBatchEvent implements strapi.EventPublisher.
func (p *NATSPublisher) PublishBatchEvent(ctx context.Context, event *strapi.BatchEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("publishing batch event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling batch event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(event.Outcome))
	msg.Data = data
	msg.Header.Set(HeaderMsgID, event.BatchID)
	msg.Header.Set(HeaderOutcome, string(event.Outcome))

	err = p.conn.PublishMsg(msg)
	if err != nil {
		return fmt.Errorf("publishing batch event to %s: %w", msg.Subject, err)
	}

	return nil
}
