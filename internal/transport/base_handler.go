package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/frahmantamala/expense-tickets/internal"
	"github.com/frahmantamala/expense-tickets/internal/core/common/validation"
	"github.com/frahmantamala/expense-tickets/pkg/logger"
)

// DefaultTokenCookie is the cookie the browser client stores the session in.
const DefaultTokenCookie = "access_token"

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

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a plain error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Warn("http error", "status", status, "message", message)
	h.WriteJSON(w, status, map[string]interface{}{
		"code":    status,
		"message": message,
	})
}

// HandleServiceError maps service errors onto HTTP responses. AppErrors keep
// their status and code; anything else is reported as an internal error.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.IsAppError(err)
	if !ok {
		appErr = apperrors.NewInternalError("internal server error", err)
	}

	lg := logger.From(r.Context())
	if appErr.StatusCode >= http.StatusInternalServerError {
		lg.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
	} else {
		lg.InfoContext(r.Context(), "request rejected", "code", appErr.Code, "message", appErr.GetDetailedMessage(), "path", r.URL.Path)
	}

	h.WriteJSON(w, appErr.StatusCode, apperrors.Response{
		Error:   appErr,
		TraceID: logger.TraceID(r.Context()),
	})
}

// DecodeJSON decodes the body into dst and runs struct validation on it.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request body", apperrors.ErrCodeValidationFailed).Wrap(err)
	}
	if verr := validation.Struct(dst); verr != nil {
		return verr
	}
	return nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	return ExtractToken(r, "")
}

// ExtractToken returns the bearer token from the Authorization header, falling
// back to the named session cookie.
func ExtractToken(r *http.Request, cookieName string) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}

	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		if !errors.Is(err, http.ErrNoCookie) {
			logger.From(r.Context()).Debug("unreadable session cookie", "error", err)
		}
		return ""
	}
	return cookie.Value
}
