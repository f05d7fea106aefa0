package models

import "fmt"

// Error codes used in batch outcomes and internal error handling.
const (
	ErrCodeLoginFailed     = "LOGIN_FAILED"
	ErrCodeSessionInvalid  = "SESSION_INVALID"
	ErrCodeNavTimeout      = "NAV_TIMEOUT"
	ErrCodeNavUnreachable  = "NAV_UNREACHABLE"
	ErrCodeSelectorMissing = "SELECTOR_MISSING"
	ErrCodeMalformed       = "MALFORMED_CONTENT"
	ErrCodePersistFailed   = "PERSIST_FAILED"
	ErrCodeBrowserCrash    = "BROWSER_CRASH"
	ErrCodeInterrupted     = "INTERRUPTED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// CrawlError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CrawlError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// NewCrawlError creates a new CrawlError.
func NewCrawlError(code, message string, err error) *CrawlError {
	return &CrawlError{Code: code, Message: message, Err: err}
}
