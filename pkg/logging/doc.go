// Package logging provides structured logging with context propagation for
// the workflow runtime, built on log/slog. JSON output is the default;
// pretty mode uses a tinted console handler for CLI use.
package logging
