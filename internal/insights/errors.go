package insights

import (
	"errors"
	"fmt"

	"github.com/radiusdt/metasync/internal/meta"
)

// Kind classifies an Error for callers that map it to a transport status.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConfiguration
	KindAuth
	KindUpstream
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindAuth:
		return "auth"
	case KindUpstream:
		return "upstream"
	case KindStore:
		return "store"
	}
	return "unknown"
}

// Machine readable error codes.
const (
	CodeMissingTenant = "MISSING_TENANT"
	CodeInvalidDate   = "INVALID_DATE"
	CodeInvalidRange  = "INVALID_RANGE"
	CodeTooManyDays   = "TOO_MANY_DAYS"
	CodeNotConfigured = "META_NOT_CONFIGURED"
	CodeNotConnected  = "META_NOT_CONNECTED"
	CodeTokenExpired  = "META_TOKEN_EXPIRED"
	CodeFetchFailed   = "META_FETCH_FAILED"
	CodeStoreError    = "STORE_ERROR"
)

// Error is returned by every operation of this package.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func validationError(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func storeError(message string, err error) *Error {
	return &Error{Kind: KindStore, Code: CodeStoreError, Message: message, Err: err}
}

// upstreamError maps an external client failure. A rejected access token
// becomes an auth error so callers can trigger re-authentication.
func upstreamError(err error) *Error {
	var apiErr *meta.APIError
	if errors.As(err, &apiErr) && apiErr.IsTokenError() {
		return &Error{
			Kind:    KindAuth,
			Code:    CodeTokenExpired,
			Message: "Meta access token is invalid or expired",
			Err:     err,
		}
	}
	return &Error{
		Kind:    KindUpstream,
		Code:    CodeFetchFailed,
		Message: "failed to fetch metrics from Meta",
		Err:     err,
	}
}
