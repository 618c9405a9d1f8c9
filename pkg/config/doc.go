// Package config centralizes runtime configuration for the workflow engine:
// execution limits, retry defaults, template resolution mode, shell safety
// mode and trace output location.
package config
