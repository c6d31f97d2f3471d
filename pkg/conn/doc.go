// Package conn implements a single wire Connection (spec §4.2): proto
// header framing, the optional login/session-token handshake, idle
// deadline tracking, and the terminal Broken state that forces a caller
// to discard rather than reuse a failed socket.
package conn
