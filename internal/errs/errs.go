// Package errs classifies the error kinds the daemon and its clients
// raise, following the propagation table in the core error-handling
// design: transient upstream errors are retriable and handled locally;
// everything else is surfaced to the caller verbatim.
package errs

import "errors"

// RetriableError is implemented by errors that a caller may treat as
// transient (HTTP 5xx, a socket blip during reconnect) rather than fatal.
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable reports whether err (or something it wraps) is a RetriableError
// that considers itself retriable.
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// UpstreamError wraps a failure talking to the exchange transport.
type UpstreamError struct {
	Op        string
	Err       error
	Retriable bool
}

func (e *UpstreamError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *UpstreamError) IsRetriable() bool { return e.Retriable }
func (e *UpstreamError) Unwrap() error     { return e.Err }

// NewTransientUpstreamError marks err as a retriable upstream failure.
func NewTransientUpstreamError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err, Retriable: true}
}

// NewFatalUpstreamError marks err as a non-retriable upstream failure.
func NewFatalUpstreamError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err, Retriable: false}
}

// Fixed surfaced error strings, per the error-handling design's
// user-visible policy. Callers compare against these with errors.Is,
// or match the string directly across the IPC boundary where the error
// has already been flattened to text.
var (
	ErrNoData          = errors.New("No data available")
	ErrConnectionClosed = errors.New("Connection closed")
	ErrRequestTimeout  = errors.New("Request timeout")
	ErrAlreadyRunning  = errors.New("already running")

	// ErrAuthMissing is the fixed guidance surfaced when a signed
	// operation is requested without a configured private key.
	ErrAuthMissing = errors.New("no private key configured: set HL_PRIVATE_KEY")
)

// CoinNotFound formats the unknown-lookup error kind for a missing coin.
func CoinNotFound(symbol string) error {
	return errors.New("Coin not found: " + symbol)
}

// UnknownMethod formats the IPC "unknown method" error kind.
func UnknownMethod(method string) error {
	return errors.New("Unknown method: " + method)
}
