// Package searchindex describes entries and tasks of the external search index.
package searchindex

import "encoding/json"

// VisibleToPublic marks an entry readable by anyone.
const VisibleToPublic = "public"

// Entry is the projection of one garden.
type Entry struct {
	Subject   string          `json:"subject"`
	VisibleTo []string        `json:"visible_to"`
	Content   json.RawMessage `json:"content"`
}

// TaskStatus is the lifecycle state of an asynchronous index task.
type TaskStatus string

const (
	TaskEnqueued   TaskStatus = "enqueued"
	TaskProcessing TaskStatus = "processing"
	TaskSucceeded  TaskStatus = "succeeded"
	TaskFailed     TaskStatus = "failed"
)

// Done reports whether the status is terminal.
func (s TaskStatus) Done() bool { return s == TaskSucceeded || s == TaskFailed }

// Task is an index operation handle.
type Task struct {
	ID      string
	Status  TaskStatus
	Message string
}

// Completed returns a task that finished synchronously.
func Completed(id string) Task { return Task{ID: id, Status: TaskSucceeded} }
