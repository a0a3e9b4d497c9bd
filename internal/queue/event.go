// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// TaskEventType names a task lifecycle transition.
type TaskEventType string

const (
	TaskCreated TaskEventType = "task.created"
	TaskUpdated TaskEventType = "task.updated"
	TaskDeleted TaskEventType = "task.deleted"
)

// TaskEventsQueue is the durable queue carrying TaskEvent messages.
const TaskEventsQueue = "task.events"

// TaskEvent is published after a task mutation has been persisted.  It
// carries enough for an audit consumer without querying the database.
type TaskEvent struct {
	Type       TaskEventType `json:"type"`
	TaskID     string        `json:"task_id"`
	OwnerID    string        `json:"owner_id"`
	Title      string        `json:"title,omitempty"`
	Status     string        `json:"status,omitempty"`
	Priority   string        `json:"priority,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
