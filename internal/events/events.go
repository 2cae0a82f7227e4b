// Package events defines the domain event envelopes published on the
// message bus, and the handler that turns those events into deferred
// due-date reminder jobs.
package events

// Topics for task domain events.
const (
	TopicTaskCreated       = "task.created"
	TopicTaskUpdated       = "task.updated"
	TopicTaskStatusChanged = "task.status.changed"
)

// TaskCreatedEvent is published after a task and its initial assignments
// have been persisted. Field names follow the wire format other consumers
// already speak; timestamps are ISO-8601.
type TaskCreatedEvent struct {
	TaskID      string   `json:"taskId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"dueDate"`
	CreatedBy   string   `json:"createdBy"`
	Assignees   []string `json:"assignees"`
	Timestamp   string   `json:"timestamp"`
}

// TaskUpdatedEvent is published after every task update. It carries enough
// state for subscribers to act without re-querying the store.
type TaskUpdatedEvent struct {
	TaskID         string   `json:"taskId"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	PreviousStatus string   `json:"previousStatus,omitempty"`
	DueDate        string   `json:"dueDate"`
	UpdatedBy      string   `json:"updatedBy"`
	UpdatedFields  []string `json:"updatedFields"`
	Assignees      []string `json:"assignees"`
	Timestamp      string   `json:"timestamp"`
}

// TaskStatusChangedEvent is published in addition to TaskUpdatedEvent when
// an update changed the task's status.
type TaskStatusChangedEvent struct {
	TaskID         string `json:"taskId"`
	Title          string `json:"title"`
	PreviousStatus string `json:"previousStatus"`
	NewStatus      string `json:"newStatus"`
	UpdatedBy      string `json:"updatedBy"`
	Timestamp      string `json:"timestamp"`
}

// ReminderJob is the payload of a sendDueDateReminder queue job.
type ReminderJob struct {
	TaskID string `json:"taskId"`
}

// FieldDueDate is the changed-field name reminder rescheduling keys on.
const FieldDueDate = "dueDate"
