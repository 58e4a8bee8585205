package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Session lock gate (SESSION) ----

func ErrSessionNotFound() *AppError {
	return New("SESSION_001", "Session not found or expired", http.StatusNotFound)
}

func ErrSessionAlreadyUnlocked() *AppError {
	return New("SESSION_002", "Session is already unlocked", http.StatusConflict)
}

func ErrScanInProgress() *AppError {
	return New("SESSION_003", "A biometric scan is already in progress", http.StatusConflict)
}

func ErrSessionLocked() *AppError {
	return New("SESSION_004", "Session is locked", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("SESSION_005", "Invalid or expired session token", http.StatusUnauthorized)
}

// ---- Account linking wizard (LINK) ----

func ErrFlowNotFound() *AppError {
	return New("LINK_001", "Link flow not found", http.StatusNotFound)
}

func ErrInvalidStep(current string) *AppError {
	return New("LINK_002", fmt.Sprintf("Action not allowed at step %s", current), http.StatusConflict)
}

func ErrUnknownInstitution(name string) *AppError {
	return New("LINK_003", fmt.Sprintf("Unknown institution: %s", name), http.StatusBadRequest)
}

func ErrFinalizeInProgress() *AppError {
	return New("LINK_004", "Link flow is already being finalized", http.StatusConflict)
}

// ---- Token vault (VAULT) ----

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("VAULT_001", "Encryption service failure", http.StatusInternalServerError, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrStorageError(err error) *AppError {
	return Wrap("SYS_001", "Internal storage error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a SYS_002 validation error.
func Validation(message string) *AppError {
	return New("SYS_002", message, http.StatusBadRequest)
}

func ErrPayloadTooLarge() *AppError {
	return New("SYS_003", "Request body too large", http.StatusRequestEntityTooLarge)
}
