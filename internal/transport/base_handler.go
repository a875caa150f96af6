package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &BaseHandler{Logger: lg}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    int                `json:"code"`
	Error   internal.ErrorCode `json:"error,omitempty"`
	Message string             `json:"message"`
	Details interface{}        `json:"details,omitempty"`
}

// MessageResponse is used by endpoints that only report an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.WriteJSON(w, status, ErrorResponse{Code: status, Message: message})
}

// WriteAppError renders an AppError, hiding the cause of internal errors.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, appErr *internal.AppError) {
	message := appErr.GetDetailedMessage()
	if appErr.Type == internal.ErrorTypeInternal {
		message = "Internal server error"
	}
	h.WriteJSON(w, appErr.StatusCode, ErrorResponse{
		Code:    appErr.StatusCode,
		Error:   appErr.Code,
		Message: message,
		Details: appErr.Details,
	})
}

// HandleServiceError maps a service error onto the HTTP response. Anything that
// is not an AppError is reported as a 500.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	lg := logger.From(r.Context())

	appErr, ok := internal.IsAppError(err)
	if !ok {
		lg.ErrorContext(r.Context(), "unhandled service error", "error", err, "path", r.URL.Path)
		h.WriteAppError(w, internal.NewInternalError("unexpected error", err))
		return
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		lg.ErrorContext(r.Context(), "service error", "error", err, "path", r.URL.Path)
	} else {
		lg.DebugContext(r.Context(), "request rejected", "code", appErr.Code, "message", appErr.Message)
	}
	h.WriteAppError(w, appErr)
}

// DecodeJSON reads a JSON body into dst. Unknown fields are tolerated.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return internal.NewValidationError("Request body is required", internal.ErrCodeValidationFailed)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return internal.NewValidationError("Request body is required", internal.ErrCodeValidationFailed)
		}
		return internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed).WithCause(err)
	}
	return nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}

	return strings.TrimSpace(authHeader[7:])
}
