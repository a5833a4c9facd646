package errors

import "fmt"

// ErrorType classifies failures seen while talking to the Spotify Web API
// or while managing the credential pool.
type ErrorType string

const (
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeInvalidClient ErrorType = "invalid_client"
	ErrorTypeParsing       ErrorType = "parsing"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeServerError   ErrorType = "server_error"
	ErrorTypePoolExhausted ErrorType = "pool_exhausted"
	ErrorTypeMaxRetries    ErrorType = "max_retries"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error represents a typed API or pool error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("spotpool %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error. Code is the HTTP status code, 0 for non-HTTP failures.
func New(errorType ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// IsRetryable checks if an error type can be recovered via rotation + retry
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeAuth:
		return true
	case ErrorTypeInvalidClient, ErrorTypeNotFound, ErrorTypeParsing,
		ErrorTypePoolExhausted, ErrorTypeMaxRetries:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable failure
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 401: // Expired token, recoverable through reissue
		return true
	case 400, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
