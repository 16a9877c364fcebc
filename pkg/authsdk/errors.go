package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/trackcrate/trackcrate/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeMissingFields         = "MISSING_FIELDS"
	ErrorCodeEmptyFields           = "EMPTY_FIELDS"
	ErrorCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrorCodeInvalidRefreshToken   = "INVALID_REFRESH_TOKEN"
	ErrorCodeTokenNotFound         = "TOKEN_NOT_FOUND"
	ErrorCodeUnauthorized          = "UNAUTHORIZED"
	ErrorCodeForbidden             = "FORBIDDEN"
	ErrorCodeServerError           = "SERVER_ERROR"
	ErrorCodeUnsupportedAPIVersion = "UNSUPPORTED_API_VERSION"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the error envelope shared by the server handlers and the SDK.
// Handlers use WriteError to shape responses; the SDK reconstructs one from
// any non-2xx response body.
type APIError struct {
	// Status is the HTTP status code for this error
	Status int `json:"-"`

	// Code is the machine-readable error code
	Code string `json:"error"`

	// Message is a human-readable description
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteError writes this APIError to an HTTP response writer. Unauthorized
// responses additionally carry the RFC 6750 WWW-Authenticate challenge.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	if e.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate",
			`Bearer error="invalid_token", error_description="`+e.Message+`"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   e.Code,
		"message": e.Message,
	})
}

// NewAPIError creates an APIError with a custom message while keeping the
// standard envelope.
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	// ErrMissingFields is returned when a required request field is absent.
	ErrMissingFields = &APIError{
		Status:  http.StatusBadRequest,
		Code:    ErrorCodeMissingFields,
		Message: "request is missing required fields",
	}

	// ErrEmptyFields is returned when a required request field is present
	// but blank.
	ErrEmptyFields = &APIError{
		Status:  http.StatusBadRequest,
		Code:    ErrorCodeEmptyFields,
		Message: "required fields must not be empty",
	}

	// ErrInvalidCredentials is returned on a failed login. Unknown username
	// and wrong password produce the same error.
	ErrInvalidCredentials = &APIError{
		Status:  http.StatusUnauthorized,
		Code:    ErrorCodeInvalidCredentials,
		Message: "invalid username or password",
	}

	// ErrInvalidRefreshToken is returned when a refresh token is unknown,
	// expired, or already rotated.
	ErrInvalidRefreshToken = &APIError{
		Status:  http.StatusUnauthorized,
		Code:    ErrorCodeInvalidRefreshToken,
		Message: "refresh token is invalid or expired",
	}

	// ErrTokenNotFound is returned by logout when the refresh token does
	// not exist.
	ErrTokenNotFound = &APIError{
		Status:  http.StatusNotFound,
		Code:    ErrorCodeTokenNotFound,
		Message: "token not found",
	}

	// ErrUnauthorized is returned when no acceptable credential accompanies
	// a protected request. Expired and revoked tokens read identically.
	ErrUnauthorized = &APIError{
		Status:  http.StatusUnauthorized,
		Code:    ErrorCodeUnauthorized,
		Message: "invalid or expired token",
	}

	// ErrForbidden is returned when the caller is authenticated but lacks
	// a required role.
	ErrForbidden = &APIError{
		Status:  http.StatusForbidden,
		Code:    ErrorCodeForbidden,
		Message: "insufficient permissions",
	}

	// ErrServerError is returned when a dependency failed and the request
	// cannot be decided. Authentication fails closed on this path.
	ErrServerError = &APIError{
		Status:  http.StatusInternalServerError,
		Code:    ErrorCodeServerError,
		Message: "internal server error",
	}

	// ErrInvalidJSONBody is returned when the request body cannot be parsed.
	ErrInvalidJSONBody = &APIError{
		Status:  http.StatusBadRequest,
		Code:    ErrorCodeMissingFields,
		Message: "invalid JSON body",
	}
)

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx HTTP response into a typed *APIError.
// Returns nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    errResp.Error,
			Message: errResp.Message,
		}
	}

	// Fallback: generic error from the status code
	return &APIError{
		Status:  resp.StatusCode,
		Code:    ErrorCodeServerError,
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
