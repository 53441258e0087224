// Package pubsub fans typed events out to subscribers. The record store
// announces changes on it; the record cache, the terminal browser and
// the debug log overlay consume them.
package pubsub

import (
	"context"
	"time"
)

// EventType names what happened to the payload.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"
	// FlushedEvent means every cached copy is stale, e.g. another process
	// rewrote the database file. Its payload is the zero value.
	FlushedEvent EventType = "flushed"
)

// IsChange reports whether t describes a change to a single payload
// rather than a flush.
func (t EventType) IsChange() bool {
	switch t {
	case CreatedEvent, UpdatedEvent, DeletedEvent:
		return true
	}
	return false
}

// Event carries one payload and the time it was published.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber hands out event channels that close when ctx is done.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher delivers payloads to every current subscriber.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}

var (
	_ Subscriber[string] = (*Broker[string])(nil)
	_ Publisher[string]  = (*Broker[string])(nil)
)
