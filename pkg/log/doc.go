/*
Package log provides structured logging for this client using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("cluster")                 │          │
	│  │  - WithNodeID("BB9020011AC4202")            │          │
	│  │  - WithNamespace("test")                    │          │
	│  │  - WithCommand("Scan")                      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "cluster",                  │          │
	│  │    "time": "2026-07-30T10:30:00Z",         │          │
	│  │    "message": "tend completed"              │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2026-07-30T10:30:00Z INF tend completed     │          │
	│  │    component=cluster                         │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all packages in this module
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithNodeID: Add node ID context
  - WithNamespace: Add namespace context
  - WithCommand: Add command name context

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "sending Put to node BB1: ns=test set=users"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "cluster tend completed: 3 nodes, 0 partitions unavailable"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "command retried after connection error (attempt 2)"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "Put failed: generation mismatch"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "Failed to connect to any seed node: %v"

# Usage

Initializing the Logger:

	import "github.com/cuemby/aerospike-go/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/aerospike-client.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("client initialized successfully")
	log.Debug("sending Get to node BB1")
	log.Warn("high connection pool occupancy")
	log.Error("failed to connect to seed node")
	log.Fatal("cannot start without any reachable seed") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("node", "BB1").
		Int("partitions", 4096).
		Msg("partition table refreshed")

	log.Logger.Error().
		Err(err).
		Str("node", "BB1").
		Msg("tend cycle failed")

Component Loggers:

	// Create component-specific logger
	clusterLog := log.WithComponent("cluster")
	clusterLog.Info().Msg("starting tend loop")
	clusterLog.Debug().Str("node", "BB1").Msg("refreshing partition map")

	// Multiple context fields
	cmdLog := log.WithComponent("command").
		With().Str("node", "BB1").
		Str("command", "Put").Logger()
	cmdLog.Info().Msg("sending request")
	cmdLog.Error().Err(err).Msg("command failed")

Context Logger Helpers:

	// Node-specific logs
	nodeLog := log.WithNodeID("BB9020011AC4202")
	nodeLog.Info().Msg("node joined cluster")

	// Namespace-specific logs
	nsLog := log.WithNamespace("test")
	nsLog.Info().Msg("partition map refreshed")

	// Command-specific logs
	cmdLog := log.WithCommand("Scan")
	cmdLog.Info().Msg("streaming started")

Complete Example:

	package main

	import (
		"errors"
		"os"

		"github.com/cuemby/aerospike-go/pkg/log"
	)

	func main() {
		// Initialize logger
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("client starting")

		// Component-specific logging
		clusterLog := log.WithComponent("cluster")
		clusterLog.Info().
			Str("node", "BB1").
			Int("nodes_known", 3).
			Msg("tend completed")

		// Error logging
		err := errors.New("connection refused")
		log.Logger.Error().
			Err(err).
			Str("component", "conn").
			Msg("failed to dial node")

		log.Info("client stopped")
	}

# Integration Points

This package integrates with:

  - cmd/aero-cli: The only importer of this package; it configures the
    global logger, passes log.Logger to the client, and logs through
    the context helpers
  - pkg/cluster: Logs a warning when tend deactivates a node, through
    the zerolog.Logger handed to the client rather than this package
  - pkg/node: Logs debug lines when it discards a connection, through
    that same injected logger with a "node" field added

pkg/command, pkg/conn, and pkg/ops do not log.

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"cluster","time":"2026-07-30T10:30:00Z","message":"tend completed"}
	{"level":"info","component":"command","command":"Put","time":"2026-07-30T10:30:01Z","message":"request sent"}
	{"level":"error","component":"conn","node":"BB1","error":"connection refused","time":"2026-07-30T10:30:02Z","message":"dial failed"}

Console Format (Development):

	2026-07-30T10:30:00Z INF tend completed component=cluster
	2026-07-30T10:30:01Z INF request sent component=command command=Put
	2026-07-30T10:30:02Z ERR dial failed component=conn node=BB1 error="connection refused"

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Better than string concatenation
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Enables error tracking and alerting
  - Consistent error format across codebase

# Troubleshooting

Common Issues:

No Log Output:
  - Symptom: No logs appearing
  - Check: log.Init() called before logging
  - Check: Log level set appropriately (Debug < Info < Warn < Error)
  - Solution: Initialize logger before any logging

Excessive Log Volume:
  - Symptom: Disk space fills quickly
  - Cause: Debug level in production
  - Check: Log level configuration
  - Solution: Use Info level in production, rotate logs

Missing Context Fields:
  - Symptom: Logs missing component or node fields
  - Cause: Using global Logger instead of a context logger
  - Solution: Use WithComponent() or create child loggers

Log Parsing Fails:
  - Symptom: Cannot parse JSON logs
  - Cause: Invalid JSON in message field
  - Check: Embedded quotes or control characters
  - Solution: Use .Str() instead of string interpolation

# Security

Log Content:
  - Never log secrets or sensitive data
  - Redact credentials and connection strings
  - Review logs before sharing externally

Log Injection:
  - Use structured logging (prevents injection)
  - Never concatenate user input into log messages
  - Use typed fields (.Str, .Int) for user data

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() for context

Don't:
  - Log sensitive data (credentials, tokens)
  - Use Debug level in production
  - Log in tight loops (use sampling)
  - Concatenate strings (use .Str, .Int)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Structured logging: https://www.thoughtworks.com/radar/techniques/structured-logging
*/
package log
