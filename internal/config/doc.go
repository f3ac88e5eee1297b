// Package config loads, normalizes, and validates mcpjob configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MCPJOB_ENDPOINT. The Config type centralizes every knob the CLI needs:
// server connection details, tool names, poll tuning, status
// classification sets, and output locations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, lower-cased status sets, and clear validation errors.
package config
