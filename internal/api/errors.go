package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// APIError represents a structured error response
type APIError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e APIError) Error() string {
	return e.Message
}

// Error types
const (
	ErrTypeValidation   = "validation_error"
	ErrTypeAuth         = "auth_required"
	ErrTypeCSRF         = "csrf_mismatch"
	ErrTypeForbidden    = "forbidden"
	ErrTypeNotFound     = "not_found"
	ErrTypeConflict     = "conflict"
	ErrTypeVerification = "verification_failed"
	ErrTypeInternal     = "internal_error"
)

// writeError writes a structured error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	s.writeJSON(w, status, APIError{
		Type:      errType,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// internalError logs the cause and answers with a generic 500; internals
// never reach the client.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithField("request_id", middleware.GetReqID(r.Context())).
		WithError(err).Error("internal error")
	s.writeError(w, r, http.StatusInternalServerError, ErrTypeInternal, "internal error")
}
