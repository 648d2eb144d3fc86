package web

// errors.go provides unified error responses for the API.
//
// The technical error is logged with the request id; the client gets the
// coded user message from core.MapError. The status code is derived from
// the error itself so handlers never pick one by hand.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/OrderImport/internal/core"
	"github.com/JonMunkholm/OrderImport/internal/ingest"
	"github.com/JonMunkholm/OrderImport/internal/logging"
	"github.com/JonMunkholm/OrderImport/internal/orders"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`

	// Result carries the partial summary of an import that started and
	// then aborted.
	Result *ingest.Result `json:"result,omitempty"`
}

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ingest.ErrConfig), errors.Is(err, core.ErrFileOutsideBase):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrRunNotFound), errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing form.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, result *ingest.Result) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}

	writeJSON(w, status, ErrorResponse{
		Error:  msg.Message,
		Action: msg.Action,
		Code:   msg.Code,
		Result: result,
	})
}
