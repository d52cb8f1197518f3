package sheets

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind int

const (
	KindTransient Kind = iota
	KindAuth
	KindNotFound
	KindRateLimited
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not found"
	case KindRateLimited:
		return "rate limited"
	case KindMalformed:
		return "malformed"
	default:
		return "transient"
	}
}

// Sentinel errors matched by a *GatewayError of the same kind.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, sheets.ErrTabNotFound) {
//	    // Skip this table, the others may still sync
//	}
var (
	// ErrAuth is returned when credentials are rejected or lack access
	// to the spreadsheet.
	ErrAuth = errors.New("sheet access denied")

	// ErrTabNotFound is returned when the spreadsheet or the table's tab
	// does not exist.
	ErrTabNotFound = errors.New("sheet tab not found")

	// ErrRateLimited is returned when the API quota is exhausted.
	ErrRateLimited = errors.New("sheet API rate limited")

	// ErrTransient is returned for network failures and server errors.
	ErrTransient = errors.New("transient sheet failure")

	// ErrMalformed is returned when the API rejects a request or returns
	// data of an unexpected shape.
	ErrMalformed = errors.New("malformed sheet request or response")

	// ErrNoCredentials is returned when neither the secrets file nor the
	// credentials file provides a service account.
	ErrNoCredentials = errors.New("no service account credentials configured")

	// ErrNotConnected is returned when an operation runs before Connect.
	ErrNotConnected = errors.New("sheet gateway not connected")
)

// GatewayError is the error type returned by every Gateway operation.
type GatewayError struct {
	Kind Kind
	Op   string // gateway operation, e.g. "append"
	Tab  string // tab title, empty for spreadsheet-wide operations
	Err  error
}

func (e *GatewayError) Error() string {
	if e.Tab != "" {
		return fmt.Sprintf("sheets %s %q: %s: %v", e.Op, e.Tab, e.Kind, e.Err)
	}
	return fmt.Sprintf("sheets %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the same kind.
func (e *GatewayError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuth
	case KindNotFound:
		return ErrTabNotFound
	case KindRateLimited:
		return ErrRateLimited
	case KindMalformed:
		return ErrMalformed
	default:
		return ErrTransient
	}
}

func newError(kind Kind, op, tab string, err error) *GatewayError {
	return &GatewayError{Kind: kind, Op: op, Tab: tab, Err: err}
}

// KindOf returns the kind of a gateway error and whether err is one.
func KindOf(err error) (Kind, bool) {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return 0, false
}

// IsRetryable returns true if the error is likely to succeed on retry.
// Only transient failures qualify; rate limits need the quota window to
// pass and are not retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient)
}

// IsFatal returns true if the error means no sheet operation can succeed
// with the current credentials.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrNoCredentials)
}

// IsNotFound returns true if the spreadsheet or a tab is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTabNotFound)
}
