// Package engine executes validated workflow IR. It topologically orders the
// nodes, seeds a per-run shared store with workflow inputs, drives each node
// through the prep/exec/post lifecycle behind the template-resolving wrapper,
// and materialises declared outputs from the final shared store.
//
// Execution is single-threaded cooperative: exactly one node runs at a time,
// and the shared store is mutated sequentially without locks. The engine is
// cancellable between nodes; in-flight nodes own their own timeouts.
package engine
