package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event emitted after a ledger mutation.
// Events carry enough data for downstream read-model projections to
// reconstruct the change without reloading the ledger.
type Event interface {
	EventName() string
}

// TransactionRecorded is emitted after a new transaction is appended
type TransactionRecorded struct {
	Transaction Transaction
	OccurredAt  time.Time
}

func (TransactionRecorded) EventName() string { return "transaction.recorded" }

// TransactionUpdated is emitted after an active transaction is amended.
// Transaction holds the post-update state.
type TransactionUpdated struct {
	Transaction Transaction
	OccurredAt  time.Time
}

func (TransactionUpdated) EventName() string { return "transaction.updated" }

// TransactionCancelled is emitted after a transaction is cancelled
type TransactionCancelled struct {
	TransactionID uuid.UUID
	PortfolioID   uuid.UUID
	OccurredAt    time.Time
}

func (TransactionCancelled) EventName() string { return "transaction.cancelled" }

// EventHandler reacts to a published event.
// Handlers run synchronously; they must not block for long.
type EventHandler func(ctx context.Context, event Event)

// EventPublisher fans domain events out to registered handlers.
// Implementations are injected into the services that mutate the ledger;
// handler registration happens once at startup.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}
