// Package node implements the Node handle (spec §4.3): one server's
// connection pool, info queries issued over a borrowed connection, and
// the health counter the tend loop uses to decide when a node is no
// longer reachable.
package node
