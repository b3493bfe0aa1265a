package errors

import (
	"fmt"
	"time"
)

// Error codes
const (
	CodeIndexerError = "INDEXER_ERROR"
	CodeAPIError     = "API_ERROR"
	CodeDownload     = "DOWNLOAD_ERROR"
	CodeDecode       = "DECODE_ERROR"
	CodeExhausted    = "CANDIDATES_EXHAUSTED"
	CodeCircuitOpen  = "CIRCUIT_OPEN"
	CodeValidation   = "VALIDATION_ERROR"
	CodeCache        = "CACHE_ERROR"
	CodeStore        = "STORE_ERROR"
)

type IndexerError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *IndexerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *IndexerError) Unwrap() error {
	return e.Cause
}

func NewIndexerError(message, code string, statusCode int, context map[string]any) *IndexerError {
	return &IndexerError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *IndexerError) WithCause(cause error) *IndexerError {
	e.Cause = cause
	return e
}

// APIError is a transport failure or non-success status while fetching JSON.
// StatusCode is 0 when no response was received.
type APIError struct {
	*IndexerError
	URL string
}

func NewAPIError(message, url string, statusCode int, cause error) *APIError {
	return &APIError{
		IndexerError: &IndexerError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context: map[string]any{
				"url": url,
			},
			Cause: cause,
		},
		URL: url,
	}
}

// Retryable reports whether another attempt may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// CircuitOpenError is returned without contacting the host while its circuit
// breaker is open. It says nothing about the requested URL itself.
type CircuitOpenError struct {
	*IndexerError
	URL  string
	Host string
}

func NewCircuitOpenError(url, host string, retryAfter time.Duration) *CircuitOpenError {
	return &CircuitOpenError{
		IndexerError: &IndexerError{
			Message:    fmt.Sprintf("circuit breaker open for %s, retry after %s", host, retryAfter.Round(time.Second)),
			Code:       CodeCircuitOpen,
			StatusCode: 503,
			Context: map[string]any{
				"url":  url,
				"host": host,
			},
		},
		URL:  url,
		Host: host,
	}
}

// DownloadError is a failed image download.
type DownloadError struct {
	*IndexerError
	URL string
}

func NewDownloadError(url string, statusCode int, cause error) *DownloadError {
	message := "image download failed"
	if statusCode > 0 {
		message = fmt.Sprintf("image download failed with status %d", statusCode)
	}
	return &DownloadError{
		IndexerError: &IndexerError{
			Message:    message,
			Code:       CodeDownload,
			StatusCode: statusCode,
			Context: map[string]any{
				"url": url,
			},
			Cause: cause,
		},
		URL: url,
	}
}

// DecodeError means the downloaded bytes are not a supported raster image.
type DecodeError struct {
	*IndexerError
	URL string
}

func NewDecodeError(url string, cause error) *DecodeError {
	return &DecodeError{
		IndexerError: &IndexerError{
			Message:    "image decode failed",
			Code:       CodeDecode,
			StatusCode: 422,
			Context: map[string]any{
				"url": url,
			},
			Cause: cause,
		},
		URL: url,
	}
}

// ExhaustedError means every candidate URL of a mode failed, or there were none.
type ExhaustedError struct {
	*IndexerError
	Mode     string
	Attempts int
}

func NewExhaustedError(mode string, attempts int, lastErr error) *ExhaustedError {
	message := fmt.Sprintf("no %s image candidates available", mode)
	if attempts > 0 {
		message = fmt.Sprintf("all %d %s image candidates failed", attempts, mode)
	}
	return &ExhaustedError{
		IndexerError: &IndexerError{
			Message:    message,
			Code:       CodeExhausted,
			StatusCode: 404,
			Context: map[string]any{
				"mode":     mode,
				"attempts": attempts,
			},
			Cause: lastErr,
		},
		Mode:     mode,
		Attempts: attempts,
	}
}

type ValidationError struct {
	*IndexerError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		IndexerError: &IndexerError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*IndexerError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		IndexerError: &IndexerError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type StoreError struct {
	*IndexerError
	Operation string
	Path      string
}

func NewStoreError(message, operation, path string, cause error) *StoreError {
	return &StoreError{
		IndexerError: &IndexerError{
			Message:    message,
			Code:       CodeStore,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"path":      path,
			},
			Cause: cause,
		},
		Operation: operation,
		Path:      path,
	}
}
