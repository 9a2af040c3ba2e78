// Package comms provides in-process fan-out of task lifecycle events.
package comms

import (
	"context"
	"time"
)

// EventType identifies what happened to a task.
type EventType string

const (
	TypeTaskCreated EventType = "task.created"
	TypeTaskUpdated EventType = "task.updated"
	TypeTaskDeleted EventType = "task.deleted"

	// TypeAll subscribes a handler to every event type.
	TypeAll EventType = "*"
)

// Event describes a single task mutation.
type Event struct {
	Type      EventType `json:"type"`
	TaskID    string    `json:"task_id"`
	AgentID   string    `json:"agent_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler processes a published event.
type Handler func(ctx context.Context, ev *Event) error

// Bus distributes task events to subscribers.
type Bus interface {
	// Publish delivers ev to every handler subscribed to its type.
	Publish(ctx context.Context, ev *Event) error

	// Subscribe registers a handler for events of type t (TypeAll for
	// everything). The returned function unsubscribes the handler.
	Subscribe(t EventType, handler Handler) (unsubscribe func())

	// History returns the most recent limit events, oldest first.
	History(limit int) []*Event
}
