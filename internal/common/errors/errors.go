// Package errors provides standardized error handling for the recommendation pipeline,
// shared by HTTP handlers and BPMN job workers.
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
	ErrCodeDecodeFailed     ErrorCode = "DECODE_FAILED"
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrCodeResolutionFailed ErrorCode = "RESOLUTION_FAILED"
	ErrCodeAnalysisFailed   ErrorCode = "ANALYSIS_FAILED"

	ErrCodeEmptyInput     ErrorCode = "EMPTY_INPUT"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	ErrCodeMetadataNotConfigured ErrorCode = "METADATA_NOT_CONFIGURED"
	ErrCodeMetadataUnavailable   ErrorCode = "METADATA_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the error the StandardError was built from, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
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

// NewDecodeFailedError creates a non-retryable error for model output that held no JSON.
func NewDecodeFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecodeFailed,
		Message:   "Model output could not be decoded as JSON",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewGenerationFailedError creates a retryable error; the message is the primary provider's.
func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   err.Error(),
		Details:   "every configured generation provider failed",
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewResolutionFailedError(title string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResolutionFailed,
		Message:   "Title could not be resolved against the catalog",
		Details:   fmt.Sprintf("title: %s, error: %s", title, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewAnalysisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisFailed,
		Message:   "Conversation analysis failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewEmptyInputError creates a non-retryable client error for a blank message.
func NewEmptyInputError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyInput,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMetadataNotConfiguredError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMetadataNotConfigured,
		Message:   message,
		Details:   "TMDB_ACCESS_TOKEN is not set",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMetadataUnavailableError(message string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMetadataUnavailable,
		Message:   message,
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Mapping Helpers
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDecodeFailed:          "DECODE_FAILED",
	ErrCodeGenerationFailed:      "GENERATION_FAILED",
	ErrCodeResolutionFailed:      "RESOLUTION_FAILED",
	ErrCodeAnalysisFailed:        "ANALYSIS_FAILED",
	ErrCodeEmptyInput:            "EMPTY_INPUT",
	ErrCodeInvalidRequest:        "INVALID_REQUEST",
	ErrCodeMetadataNotConfigured: "METADATA_NOT_CONFIGURED",
	ErrCodeMetadataUnavailable:   "METADATA_UNAVAILABLE",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeMetadataUnavailable:
		return 2

	case ErrCodeGenerationFailed:
		return 1 // the gateway already walked the fallback chain

	default:
		return 0 // client and business errors: no retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DECODE") || strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "ANALYSIS"):
		return "AI"
	case strings.Contains(codeStr, "METADATA") || strings.Contains(codeStr, "RESOLUTION"):
		return "METADATA"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "EMPTY"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the status an API handler should answer with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeEmptyInput, ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AsStandardError returns err as a *StandardError, wrapping anything else as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}
