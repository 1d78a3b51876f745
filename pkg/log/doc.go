/*
Package log provides structured logging for the database core using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Architecture

The logging system provides structured JSON logging with minimal overhead:

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
	│  │  - WithComponent("router")                  │          │
	│  │  - WithCollection("inventory")              │          │
	│  │  - WithPeerID(42)                           │          │
	│  │  - WithKey(1337)                            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON: machine-parseable, for production    │          │
	│  │  Console: human-readable, for development   │          │
	│  └────────────────────────────────────────────┘          │
	│                                                            │
	└────────────────────────────────────────────────────────────┘

# Core Components

Global Logger: a single zerolog.Logger shared process-wide, configured once
at startup via Init. Re-initialization is safe but unusual; tests that need
to capture output pass their own io.Writer.

Config: the three knobs that matter — Level (minimum severity), JSONOutput
(structured vs. console rendering), and Output (any io.Writer, defaulting
to stdout).

Child loggers: WithComponent, WithCollection, WithPeerID and WithKey return
loggers pre-loaded with the fields every log line from that code path
should carry, so call sites never repeat them.

# Log Levels

	debug  - index query plans, cache hits, per-operation detail
	info   - lifecycle events: store opened, rebuild complete, listener started
	warn   - recoverable oddities: skipped log records, stale peer entries
	error  - failed operations that surface to the caller

# Usage

Initialize once in main:

	import "github.com/tagdb/tagdb/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Log with structured fields from a component:

	logger := log.WithComponent("tracker")
	logger.Debug().Uint32("peer_id", id).Msg("cache miss, querying directory")

Scope a logger to a collection:

	logger := log.WithCollection("inventory")
	logger.Info().Msg("rebuild complete")

# Integration Points

  - pkg/localdb logs each document creation at debug level
  - cmd/tagdb logs rebuild progress and the metrics listener start
  - cmd/tagdb initializes logging from the --log-level/--log-json flags
    before any subcommand runs

# Design Patterns

Package-Level Functions: Info, Debug, Warn, Error and Fatal cover the
common no-field case so small call sites stay one line.

Child Logger Derivation: fields are attached by deriving a child logger
rather than repeating Str/Uint32 calls at every site; derivation is cheap
and the child shares the parent's writer.

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - pkg/metrics for the numeric side of observability
*/
package log
