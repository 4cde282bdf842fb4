package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes produced by the gateway itself. Errors reported by Meilisearch
// carry Meilisearch's own code instead.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeNotFound           ErrorCode = "not_found"
	CodeAlreadyExists      ErrorCode = "already_exists"
	CodePayloadTooLarge    ErrorCode = "payload_too_large"
	CodeUpstreamFailure    ErrorCode = "meilisearch_unreachable"
	CodeTaskTimeout        ErrorCode = "task_timeout"
	CodeServiceUnavailable ErrorCode = "service_unavailable"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Link    string    `json:"link,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		taskFailedHandler,
		upstreamHandler,
		sentinelHandler(domain.ErrTaskTimeout, http.StatusGatewayTimeout, CodeTaskTimeout),
		sentinelHandler(domain.ErrProviderClosed, http.StatusServiceUnavailable, CodeServiceUnavailable),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, CodeUpstreamFailure),
		sentinelHandler(errBodyTooLarge, http.StatusRequestEntityTooLarge, CodePayloadTooLarge),
		sentinelHandler(domain.ErrBadRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTaskTimeout),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// clientMessage strips the operation prefixes added while wrapping, leaving
// the reason the caller can act on.
func clientMessage(err error, sentinel error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return msg
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, clientMessage(err, sentinel))
		return true
	}
}

// upstreamHandler forwards Meilisearch's status, code and message.
func upstreamHandler(w http.ResponseWriter, err error) bool {
	var up *domain.UpstreamError
	if !errors.As(err, &up) {
		return false
	}
	if up.Status == 0 {
		writeError(w, http.StatusBadGateway, CodeUpstreamFailure, up.Message)
		return true
	}
	code := ErrorCode(up.Code)
	if code == "" {
		code = CodeInternalError
	}
	writeJSON(w, up.Status, ErrorResponse{Code: code, Message: up.Message, Link: up.Link})
	return true
}

// taskFailedHandler reports an awaited task failure with the task's own code.
func taskFailedHandler(w http.ResponseWriter, err error) bool {
	var tf *domain.TaskFailedError
	if !errors.As(err, &tf) {
		return false
	}
	status := http.StatusBadRequest
	switch {
	case errors.Is(tf, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(tf, domain.ErrAlreadyExists):
		status = http.StatusConflict
	}
	writeError(w, status, ErrorCode(tf.Code), tf.Message)
	return true
}
