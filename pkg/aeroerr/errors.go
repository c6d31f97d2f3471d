package aeroerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can branch on outcome without
// string-matching messages. See spec §7.
type Kind string

const (
	// Connection covers failures to establish or complete I/O on a socket.
	Connection Kind = "connection"
	// Timeout covers per-attempt or total deadline expiry.
	Timeout Kind = "timeout"
	// NoAvailableNode means the partition map held no reachable replica.
	NoAvailableNode Kind = "no_available_node"
	// Server wraps a non-zero wire result code from the server.
	Server Kind = "server"
	// Protocol covers malformed headers, impossible field counts, or
	// unknown particle types.
	Protocol Kind = "protocol"
	// Policy covers caller misuse: empty or oversized bin names, a nil
	// value where disallowed, etc.
	Policy Kind = "policy"
	// Auth covers login rejection or a token expiring mid-command.
	Auth Kind = "auth"
)

// Error is the concrete error type returned by every package in this
// module. It always carries a Kind, optionally wraps a lower-level cause,
// and records the node the failure originated from when known.
type Error struct {
	Kind       Kind
	Node       string // node name, empty if not yet associated with one
	ResultCode int    // wire result code, meaningful only for Kind == Server
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Node != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s [node=%s]: %v", e.Kind, e.Message, e.Node, e.Cause)
		}
		return fmt.Sprintf("%s: %s [node=%s]", e.Kind, e.Message, e.Node)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, &aeroerr.Error{Kind: aeroerr.Timeout}) style
// checks work by comparing Kind when the target is itself an *Error with
// no Cause/Message set.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind && t.Cause == nil && t.Message == ""
	}
	return false
}

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WithNode returns a copy of e annotated with the originating node name.
func (e *Error) WithNode(node string) *Error {
	cp := *e
	cp.Node = node
	return &cp
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Retryable reports whether the engine should attempt this error again,
// independent of the caller's max_retries budget — see spec §7 and §4.5.
func Retryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case Connection, Timeout:
		return true
	case Server:
		var e *Error
		errors.As(err, &e)
		return isRetryableResultCode(e.ResultCode)
	default:
		return false
	}
}
