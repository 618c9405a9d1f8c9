package ir

import (
	"strings"

	"github.com/spinje/pflow/pkg/template"
)

// Normalize applies boilerplate fixes that the validator would otherwise
// flag. It is idempotent and never changes workflow semantics:
//
//   - sets ir_version to CurrentVersion when absent
//   - adds an empty edges slice for single-node workflows (multi-node
//     workflows without edges are a validation error, not normalized)
//   - removes declared inputs that no template anywhere references
//
// Input names that collide with a node id are never removed here: whether
// such an input is "used" is ambiguous, and the validator reports the
// collision as an explicit error instead.
func Normalize(w *Workflow) *Workflow {
	if w.IRVersion == "" {
		w.IRVersion = CurrentVersion
	}
	if w.Edges == nil && len(w.Nodes) <= 1 {
		w.Edges = []Edge{}
	}
	removeUnreferencedInputs(w)
	return w
}

// removeUnreferencedInputs drops inputs whose names appear in no template
// reference. Base identifiers that match a node id count as node references,
// not input references, except when the input shares the node's name (the
// collision the validator reports).
func removeUnreferencedInputs(w *Workflow) {
	if len(w.Inputs) == 0 {
		return
	}
	referenced := ReferencedBaseIdentifiers(w)
	for name := range w.Inputs {
		if _, ok := referenced[name]; ok {
			continue
		}
		if w.HasNode(name) {
			// Ambiguous: identifier usage may mean the node or this input.
			// Left in place for the validator to report.
			continue
		}
		delete(w.Inputs, name)
	}
}

// ReferencedBaseIdentifiers collects the base identifier of every template
// reference in node params (recursively) and output sources.
func ReferencedBaseIdentifiers(w *Workflow) map[string]struct{} {
	referenced := make(map[string]struct{})
	collect := func(s string) {
		for v := range template.ExtractVariables(s) {
			base, _, _ := strings.Cut(v, ".")
			referenced[base] = struct{}{}
		}
	}
	var walk func(value any)
	walk = func(value any) {
		switch v := value.(type) {
		case string:
			collect(v)
		case map[string]any:
			for _, item := range v {
				walk(item)
			}
		case []any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	for _, node := range w.Nodes {
		for _, value := range node.Params {
			walk(value)
		}
	}
	for _, output := range w.Outputs {
		collect(output.Source)
	}
	return referenced
}
