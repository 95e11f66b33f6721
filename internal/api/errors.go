package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/abhisek/tierloop/internal/logger"
	"github.com/abhisek/tierloop/internal/session"
)

// Error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeInvalidSubmission  = "INVALID_SUBMISSION"
	ErrCodeContentUnavailable = "CONTENT_UNAVAILABLE"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// AppError is an error with an HTTP status and a stable code.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func badRequest(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeBadRequest, Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

// toAppError maps engine errors onto HTTP statuses.
func toAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return &AppError{Code: ErrCodeNotFound, Message: err.Error(), Status: http.StatusNotFound, Err: err}
	case errors.Is(err, session.ErrInvalidTransition):
		return &AppError{Code: ErrCodeInvalidTransition, Message: err.Error(), Status: http.StatusConflict, Err: err}
	case errors.Is(err, session.ErrInvalidSubmission):
		return &AppError{Code: ErrCodeInvalidSubmission, Message: err.Error(), Status: http.StatusBadRequest, Err: err}
	case errors.Is(err, session.ErrContentUnavailable):
		return &AppError{Code: ErrCodeContentUnavailable, Message: "no content available, try again later", Status: http.StatusServiceUnavailable, Err: err}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "internal server error", Status: http.StatusInternalServerError, Err: err}
	}
}

// handleError centralizes error responses.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.log)
	appErr := toAppError(err)

	if appErr.Status >= 500 {
		log.Error("server error", "code", appErr.Code, "error", err)
	} else {
		log.Warn("client error", "code", appErr.Code, "error", err)
	}

	writeJSON(w, appErr.Status, map[string]any{
		"error": map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
