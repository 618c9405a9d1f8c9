package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds workflow engine configuration. All options are centralized
// here for easy management and validation.
type Config struct {
	// Execution limits
	MaxExecutionTime     time.Duration // Maximum time for the entire workflow run
	MaxNodeExecutionTime time.Duration // Maximum time for a single node

	// Shell node configuration
	ShellTimeout time.Duration // Default subprocess timeout
	ShellStrict  bool          // Block warning-pattern commands instead of logging

	// Template resolution
	ResolutionMode string // "strict" (default) or "permissive"

	// Retry defaults applied when a node does not configure its own
	DefaultMaxRetries int
	DefaultWait       time.Duration

	// Trace output
	TraceDir     string // Directory for workflow trace files ("" disables)
	TraceEnabled bool

	// Resource limits
	MaxNodes       int // Maximum number of nodes in a workflow
	MaxEdges       int // Maximum number of edges
	MaxPayloadSize int // Maximum size of a workflow document (bytes)
}

// Default returns a Config with production-ready default values.
func Default() *Config {
	return &Config{
		MaxExecutionTime:     5 * time.Minute,
		MaxNodeExecutionTime: 60 * time.Second,

		ShellTimeout: 30 * time.Second,
		ShellStrict:  false,

		ResolutionMode: "strict",

		DefaultMaxRetries: 0,
		DefaultWait:       time.Second,

		TraceDir:     defaultTraceDir(),
		TraceEnabled: true,

		MaxNodes:       1000,
		MaxEdges:       5000,
		MaxPayloadSize: 10 * 1024 * 1024,
	}
}

// Development returns a Config with relaxed limits for local iteration.
func Development() *Config {
	cfg := Default()
	cfg.MaxExecutionTime = 10 * time.Minute
	cfg.ResolutionMode = "permissive"
	return cfg
}

// FromEnv overlays environment variables onto cfg:
//
//	PFLOW_SHELL_STRICT=true   enable strict shell safety
//	PFLOW_TRACE_DIR=<path>    trace file directory
//	PFLOW_PERMISSIVE=true     permissive template resolution
func (c *Config) FromEnv() *Config {
	if os.Getenv("PFLOW_SHELL_STRICT") == "true" {
		c.ShellStrict = true
	}
	if dir := os.Getenv("PFLOW_TRACE_DIR"); dir != "" {
		c.TraceDir = dir
	}
	if os.Getenv("PFLOW_PERMISSIVE") == "true" {
		c.ResolutionMode = "permissive"
	}
	return c
}

func defaultTraceDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pflow", "debug")
	}
	return filepath.Join(home, ".pflow", "debug")
}
