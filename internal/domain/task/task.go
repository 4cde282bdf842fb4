// Package task models Meilisearch asynchronous task handles.
package task

import (
	"github.com/kailas-cloud/meiligate/internal/domain"
)

// Status is the lifecycle state of an enqueued task.
type Status string

// Task statuses reported by Meilisearch.
const (
	StatusEnqueued   Status = "enqueued"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// IsFinal reports whether the task will not change state anymore.
func (s Status) IsFinal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Handle is returned immediately for every asynchronous mutation.
// Completion is polled by the caller against Meilisearch's task endpoint.
type Handle struct {
	TaskUID    int64            `json:"taskUid"`
	IndexUID   string           `json:"indexUid,omitempty"`
	Status     Status           `json:"status"`
	Type       string           `json:"type"`
	EnqueuedAt domain.Timestamp `json:"enqueuedAt"`
}

// Error is the failure detail attached to a failed task.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
	Link    string `json:"link"`
}

// Task is the state of a task after it has been awaited.
type Task struct {
	UID      int64  `json:"uid"`
	IndexUID string `json:"indexUid"`
	Status   Status `json:"status"`
	Type     string `json:"type"`
	Error    *Error `json:"error"`
}

// Err converts a failed task into a *domain.TaskFailedError.
func (t Task) Err() error {
	if t.Status != StatusFailed && t.Status != StatusCanceled {
		return nil
	}
	failure := &domain.TaskFailedError{TaskUID: t.UID, Code: string(t.Status)}
	if t.Error != nil {
		failure.Code = t.Error.Code
		failure.Message = t.Error.Message
	}
	return failure
}
