// Package graph provides DAG operations over workflow IR: topological
// sorting, cycle detection and reachability analysis.
//
// Ordering is deterministic: Kahn's algorithm breaks ties by IR document
// order, so the same workflow always produces the same execution plan.
package graph
