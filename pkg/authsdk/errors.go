package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/crissvargas/realestate/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidInput         = "invalid_input"
	ErrorCodeAlreadyExists        = "already_exists"
	ErrorCodeInvalidCredentials   = "invalid_credentials"
	ErrorCodeUnknownDestination   = "unknown_destination"
	ErrorCodeInvalidOrExpiredCode = "invalid_or_expired_code"
	ErrorCodeDeliveryFailed       = "delivery_failed"
	ErrorCodeUnauthenticated      = "unauthenticated"
	ErrorCodeRateLimited          = "rate_limited"
	ErrorCodeInternal             = "internal"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is an error response from the auth service. It is used both by
// the server (to write HTTP responses) and by the SDK client (to represent
// errors).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	Code    string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *APIError with the same code, so callers can write
// errors.Is(err, authsdk.ErrInvalidCredentials).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes e as the JSON error body with its status code.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{
		Error:   e.Code,
		Message: e.Message,
		Detail:  e.Detail,
	})
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrInvalidInput = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeInvalidInput,
		Message:    "invalid input",
	}

	ErrAlreadyExists = &APIError{
		StatusCode: http.StatusConflict,
		Code:       ErrorCodeAlreadyExists,
		Message:    "an account with this email already exists",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidCredentials,
		Message:    "invalid email or password",
	}

	ErrUnknownDestination = &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeUnknownDestination,
		Message:    "no account is registered for this email",
	}

	ErrInvalidOrExpiredCode = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidOrExpiredCode,
		Message:    "invalid or expired code",
	}

	ErrDeliveryFailed = &APIError{
		StatusCode: http.StatusBadGateway,
		Code:       ErrorCodeDeliveryFailed,
		Message:    "could not deliver the access code",
	}

	ErrUnauthenticated = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeUnauthenticated,
		Message:    "missing or invalid session token",
	}

	ErrRateLimited = &APIError{
		StatusCode: http.StatusTooManyRequests,
		Code:       ErrorCodeRateLimited,
		Message:    "too many requests",
	}

	ErrInternal = &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeInternal,
		Message:    "internal server error",
	}
)

// NewAPIError creates an APIError with a custom message.
func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// IsCode reports whether err is an *APIError carrying code.
func IsCode(err error, code string) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == code
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Error,
			Message:    errResp.Message,
			Detail:     errResp.Detail,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       ErrorCodeInternal,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
