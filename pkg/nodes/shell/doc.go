// Package shell implements the shell node: it executes a command line
// through the system shell with stdin adaptation, dangerous-pattern
// blocking, safe non-error normalisation and a subprocess timeout.
//
// This node runs commands with full shell power (pipes, redirects, globs).
// Only run trusted commands.
package shell
