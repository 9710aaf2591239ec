// Package outbox relays committed history entries to Kafka.
//
// History rows and their outbox rows are written in the same transaction,
// so a transition is published if and only if it committed. The relay
// delivers at least once; consumers dedupe on the entry id carried in the
// payload.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one unpublished outbox row.
type Message struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Store claims unpublished rows and marks them delivered. Claim must run
// inside the caller's unit of work so the claimed rows stay locked until
// MarkPublished commits.
type Store interface {
	Claim(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers a batch, in order, to the broker.
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
}
