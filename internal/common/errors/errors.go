// Package errors provides the structured error type shared by the HTTP API
// and the Zeebe worker, plus its BPMN and HTTP mappings.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeAIUnavailable           ErrorCode = "AI_UNAVAILABLE"
	ErrCodeAITimeout               ErrorCode = "AI_TIMEOUT"
	ErrCodeStoreReadFailed         ErrorCode = "STORE_READ_FAILED"
	ErrCodeStoreWriteFailed        ErrorCode = "STORE_WRITE_FAILED"
	ErrCodeInvalidTurnInput        ErrorCode = "INVALID_TURN_INPUT"
	ErrCodeAuthCheckFailed         ErrorCode = "AUTH_CHECK_FAILED"
	ErrCodeArchiveFailed           ErrorCode = "ARCHIVE_FAILED"
	ErrCodeEscalationPublishFailed ErrorCode = "ESCALATION_PUBLISH_FAILED"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.cause }

// WithMetadata attaches a key to the error and returns it for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewAIUnavailableError(err error) *StandardError {
	return newError(ErrCodeAIUnavailable, "Remote AI unavailable", err, true)
}

func NewAITimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeAITimeout, "Remote AI timeout", fmt.Errorf("no response within %s", timeout), true)
}

func NewStoreReadFailedError(key string, err error) *StandardError {
	return newError(ErrCodeStoreReadFailed, "Conversation store read failed", err, true).WithMetadata("key", key)
}

func NewStoreWriteFailedError(key string, err error) *StandardError {
	return newError(ErrCodeStoreWriteFailed, "Conversation store write failed", err, true).WithMetadata("key", key)
}

func NewInvalidTurnInputError(details string) *StandardError {
	e := newError(ErrCodeInvalidTurnInput, "Invalid turn input", nil, false)
	e.Details = details
	return e
}

func NewAuthCheckFailedError(err error) *StandardError {
	return newError(ErrCodeAuthCheckFailed, "Session verification failed", err, true)
}

func NewArchiveFailedError(err error) *StandardError {
	return newError(ErrCodeArchiveFailed, "Turn archive failed", err, true)
}

func NewEscalationPublishFailedError(err error) *StandardError {
	return newError(ErrCodeEscalationPublishFailed, "Escalation publish failed", err, true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// ==========================
// 4. Error Conversion
// ==========================

// BPMNErrorMapping maps internal codes to the error codes caught by boundary
// events in the advisor process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeAIUnavailable:           "AI_UNAVAILABLE",
	ErrCodeAITimeout:               "AI_TIMEOUT",
	ErrCodeStoreReadFailed:         "STORE_READ_FAILED",
	ErrCodeStoreWriteFailed:        "STORE_WRITE_FAILED",
	ErrCodeInvalidTurnInput:        "INVALID_TURN_INPUT",
	ErrCodeAuthCheckFailed:         "AUTH_CHECK_FAILED",
	ErrCodeArchiveFailed:           "ARCHIVE_FAILED",
	ErrCodeEscalationPublishFailed: "ESCALATION_PUBLISH_FAILED",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreReadFailed,
		ErrCodeStoreWriteFailed,
		ErrCodeArchiveFailed,
		ErrCodeEscalationPublishFailed:
		return 3

	case ErrCodeAuthCheckFailed:
		return 2

	case ErrCodeAIUnavailable, ErrCodeAITimeout:
		return 0 // the turn already fell back locally

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// HTTPStatus maps a code onto the status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidTurnInput:
		return http.StatusBadRequest
	case ErrCodeAuthCheckFailed:
		return http.StatusUnauthorized
	case ErrCodeStoreReadFailed, ErrCodeStoreWriteFailed, ErrCodeArchiveFailed:
		return http.StatusServiceUnavailable
	case ErrCodeAIUnavailable, ErrCodeAITimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard unwraps err into a StandardError, wrapping unknown errors as
// INTERNAL_ERROR.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "AI_"):
		return "AI"
	case strings.HasPrefix(codeStr, "STORE_"):
		return "STORAGE"
	case strings.HasPrefix(codeStr, "AUTH_"):
		return "AUTH"
	case strings.Contains(codeStr, "ARCHIVE") || strings.Contains(codeStr, "ESCALATION"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
