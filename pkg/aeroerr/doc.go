// Package aeroerr defines the error taxonomy shared by every layer of the
// client: connection handling, the command engine, cluster tending, and
// the operation builders all return *Error values so that callers can
// switch on Kind instead of parsing message strings.
package aeroerr
