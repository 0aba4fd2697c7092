package models

import (
	"errors"
	"fmt"
)

// Error codes used in tool results and internal error handling.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeURLRejected  = "URL_REJECTED"
	ErrCodeChallenge    = "CHALLENGE_DETECTED"
	ErrCodeBlocked      = "REQUEST_BLOCKED"
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeScrape       = "SCRAPE_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf extracts the error code from err, walking the wrap chain.
// Unclassified errors map to ErrCodeScrape.
func CodeOf(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeScrape
}

// HasCode reports whether err carries the given error code anywhere in
// its wrap chain.
func HasCode(err error, code string) bool {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
