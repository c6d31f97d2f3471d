package aerospike

import "github.com/cuemby/aerospike-go/pkg/aeroerr"

// Error is the concrete error type every Client method returns. It is a
// re-export of aeroerr.Error so callers can branch on outcome without
// importing pkg/aeroerr directly.
type Error = aeroerr.Error

// ErrorKind classifies an Error — see aeroerr.Kind for the full set.
type ErrorKind = aeroerr.Kind

const (
	ErrConnection      = aeroerr.Connection
	ErrTimeout         = aeroerr.Timeout
	ErrNoAvailableNode = aeroerr.NoAvailableNode
	ErrServer          = aeroerr.Server
	ErrProtocol        = aeroerr.Protocol
	ErrPolicy          = aeroerr.Policy
	ErrAuth            = aeroerr.Auth
)

// KindOf extracts the ErrorKind of err if it is (or wraps) an *Error.
func KindOf(err error) (ErrorKind, bool) {
	return aeroerr.KindOf(err)
}

// Retryable reports whether err falls in a class the command engine may
// retry: connection errors, timeouts, and the retryable server result
// codes. The engine also checks the policy (RetryOnTimeout, write safety,
// the retry budget) before retrying; this function does not. Exposed so
// callers building their own retry wrappers around a single command can
// reuse the same error classification the client uses internally.
func Retryable(err error) bool {
	return aeroerr.Retryable(err)
}
