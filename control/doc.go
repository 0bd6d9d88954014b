// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload and metrics layer for the pinwatch tool.
//
// Provides concurrent-safe state handling primitives including:
//   - YAML watch configuration with validation
//   - Snapshot config reads and reload listeners
//   - File-change driven hot reload
//   - Named counters fed from reactor statistics
package control
