// Package logging builds the slog loggers used across mcpjob.
//
// It provides console and JSON handlers with consistent timestamp and
// level formatting, standardized attribute keys for job runs, and a
// no-op logger for tests. Components obtain their logger through
// NewComponentLogger so the component name is rendered uniformly.
package logging
