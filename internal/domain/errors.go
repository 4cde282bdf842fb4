package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound signals a missing index, document, key or task.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest signals a semantically invalid caller payload.
	ErrBadRequest = errors.New("bad request")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidConfig signals a configuration that cannot produce a connection.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrProviderClosed signals that the client provider no longer hands out leases.
	ErrProviderClosed = errors.New("client provider closed")
	// ErrUpstreamUnavailable signals that Meilisearch could not be reached.
	ErrUpstreamUnavailable = errors.New("meilisearch unavailable")
	// ErrTaskTimeout signals that an awaited task did not finish in time.
	ErrTaskTimeout = errors.New("task wait timed out")
)

// BadRequest wraps ErrBadRequest with a human-readable reason.
func BadRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// UpstreamError is a failure reported by Meilisearch itself.
// Status and message are forwarded to the caller unchanged.
type UpstreamError struct {
	Status  int
	Code    string
	Type    string
	Message string
	Link    string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("meilisearch %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("meilisearch %d: %s", e.Status, e.Message)
}

// Is makes a 404 from Meilisearch match ErrNotFound.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUpstreamUnavailable:
		return e.Status == 0
	}
	return false
}

// TaskFailedError is an awaited Meilisearch task that ended in failure.
type TaskFailedError struct {
	TaskUID int64
	Code    string
	Message string
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task %d failed: %s: %s", e.TaskUID, e.Code, e.Message)
}

// Is maps Meilisearch task error codes onto the sentinel taxonomy.
func (e *TaskFailedError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return strings.HasSuffix(e.Code, "_not_found")
	case ErrAlreadyExists:
		return strings.HasSuffix(e.Code, "_already_exists")
	case ErrBadRequest:
		return !strings.HasSuffix(e.Code, "_not_found") && !strings.HasSuffix(e.Code, "_already_exists")
	}
	return false
}
