package events

import (
	"context"
	"sync"
	"time"

	"farisight/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTransactionRecorded EventType = "transaction_recorded"
	EventTypeSnapshotComputed    EventType = "snapshot_computed"
	EventTypeAccountSeeded       EventType = "account_seeded"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TransactionRecordedEvent is published after a generated transaction commits
type TransactionRecordedEvent struct {
	TrnRef     string
	AccountNo  string
	CustomerID string
	Direction  models.Direction
	Amount     decimal.Decimal
	Currency   string
	Status     models.TransactionStatus
}

func (e TransactionRecordedEvent) Type() EventType {
	return EventTypeTransactionRecorded
}

// SnapshotComputedEvent is published after a KPI snapshot replaces the prior one
type SnapshotComputedEvent struct {
	ComputedAt        time.Time
	TotalTransactions int64
	FailureRate       decimal.Decimal
}

func (e SnapshotComputedEvent) Type() EventType {
	return EventTypeSnapshotComputed
}

// AccountSeededEvent is published when start-up seeding creates an account
type AccountSeededEvent struct {
	AccountNo  string
	CustomerID string
	Currency   string
	Balance    decimal.Decimal
}

func (e AccountSeededEvent) Type() EventType {
	return EventTypeAccountSeeded
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events published during a unit of work and flushes
// them to the underlying bus only after the database commit succeeds.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events are processed independently of the transaction lifecycle, so
	// emission uses a background context.
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback to drop pending events
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
