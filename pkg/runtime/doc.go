// Package runtime defines the node execution contract and the template-aware
// wrapper that surrounds every node at run time.
//
// A node implements the prep/exec/post lifecycle:
//
//   - Prep reads from the shared store and builds what exec needs. Errors
//     here are fatal and never retried.
//   - Exec performs the node's computation. Retriable errors are retried up
//     to MaxRetries times with Wait between attempts; a NonRetriableError
//     short-circuits straight to the fallback.
//   - ExecFallback runs after retries exhaust and may return a structured
//     result so Post can still run.
//   - Post writes results into the shared store and returns an action string
//     that selects the outgoing edge.
//
// The Wrapper intercepts Run to resolve ${...} template parameters against
// the shared store just before execution, applying type coercion and
// validation driven by the node's registry interface metadata.
package runtime
