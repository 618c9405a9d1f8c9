// Package ir defines the in-memory representation of a workflow: a typed
// graph of nodes with parameter bindings, directed edges, declared inputs and
// template-sourced outputs.
//
// The IR is produced by the markdown parser (or constructed programmatically),
// normalized once, validated, and then treated as immutable for the rest of
// the run.
package ir
