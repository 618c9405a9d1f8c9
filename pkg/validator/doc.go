// Package validator performs static validation of workflow IR before any
// node executes. Four independent layers run in order:
//
//  1. Structural — schema-shape conformance, identifier patterns, version
//     compatibility, unique node ids
//  2. Dataflow — topological sort, cycle and reachability analysis
//  3. Template — every ${ref} must name a declared input or an
//     earlier-executing node, with typo suggestions on failure
//  4. Node type — every node.type must exist in the registry
//
// The validator never executes nodes and never causes side effects; that is
// its core contract.
package validator
