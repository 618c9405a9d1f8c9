package validator

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/xeipuuv/gojsonschema"

	"github.com/spinje/pflow/pkg/graph"
	"github.com/spinje/pflow/pkg/ir"
	"github.com/spinje/pflow/pkg/runtime"
	"github.com/spinje/pflow/pkg/template"
)

//go:embed schema.json
var irSchema []byte

// topErrorCount is how many errors the validator surfaces to the caller by
// default; the rest stay available for diagnostics.
const topErrorCount = 3

// Issue is one validation finding.
type Issue struct {
	Kind        runtime.ErrorKind `json:"kind"`
	NodeID      string            `json:"node_id,omitempty"`
	Field       string            `json:"field,omitempty"`
	Message     string            `json:"message"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	if i.NodeID != "" {
		fmt.Fprintf(&b, "node %s: ", i.NodeID)
	}
	b.WriteString(i.Message)
	for _, s := range i.Suggestions {
		b.WriteString("\n  ")
		b.WriteString(s)
	}
	return b.String()
}

// Result collects findings from all validation layers.
type Result struct {
	Errors         []Issue
	Warnings       []Issue
	ExecutionOrder []string
}

// Valid reports whether no errors were found.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

// TopErrors returns the most actionable errors (those carrying suggestions
// first), capped at topErrorCount.
func (r *Result) TopErrors() []Issue {
	ranked := make([]Issue, len(r.Errors))
	copy(ranked, r.Errors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].Suggestions) > len(ranked[j].Suggestions)
	})
	if len(ranked) > topErrorCount {
		ranked = ranked[:topErrorCount]
	}
	return ranked
}

// Options tunes a validation pass.
type Options struct {
	// SkipNodeTypes disables registry lookups, for pre-planning scenarios
	// where node types are not resolvable yet.
	SkipNodeTypes bool

	// SuppliedInputs, when non-nil, is checked against required inputs
	// without defaults.
	SuppliedInputs map[string]any
}

// Validate runs all validation layers over the workflow. It never executes
// nodes and never causes side effects.
func Validate(wf *ir.Workflow, registry *runtime.Registry, opts Options) *Result {
	result := &Result{}

	structural(wf, result)
	dataflowOK := dataflow(wf, result)
	if dataflowOK {
		templates(wf, result)
	}
	if !opts.SkipNodeTypes && registry != nil {
		nodeTypes(wf, registry, result)
	}
	if opts.SuppliedInputs != nil {
		requiredInputs(wf, opts.SuppliedInputs, result)
	}
	unusedInputWarnings(wf, result)

	return result
}

// structural checks schema shape, version compatibility, identifier rules
// and node id uniqueness.
func structural(wf *ir.Workflow, result *Result) {
	doc, err := json.Marshal(wf)
	if err != nil {
		result.Errors = append(result.Errors, Issue{
			Kind: runtime.KindStructural, Message: fmt.Sprintf("workflow not serialisable: %v", err),
		})
		return
	}
	schemaResult, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(irSchema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		result.Errors = append(result.Errors, Issue{
			Kind: runtime.KindStructural, Message: fmt.Sprintf("schema validation failed: %v", err),
		})
		return
	}
	for _, desc := range schemaResult.Errors() {
		result.Errors = append(result.Errors, Issue{
			Kind:    runtime.KindStructural,
			Field:   desc.Field(),
			Message: desc.String(),
		})
	}

	if len(wf.Nodes) == 0 {
		result.Errors = append(result.Errors, Issue{
			Kind: runtime.KindStructural, Message: "workflow must contain at least one node",
		})
	}

	if wf.IRVersion == "" {
		result.Errors = append(result.Errors, Issue{
			Kind: runtime.KindStructural, Message: "ir_version is required (run Normalize to default it)",
		})
	} else if version, err := semver.NewVersion(wf.IRVersion); err != nil {
		result.Errors = append(result.Errors, Issue{
			Kind:    runtime.KindStructural,
			Message: fmt.Sprintf("ir_version %q is not valid semver: %v", wf.IRVersion, err),
		})
	} else if supported := semver.MustParse(ir.CurrentVersion); version.Major() != supported.Major() {
		result.Errors = append(result.Errors, Issue{
			Kind: runtime.KindStructural,
			Message: fmt.Sprintf("ir_version %s is not compatible with supported major %d",
				wf.IRVersion, supported.Major()),
		})
	}

	seen := make(map[string]bool, len(wf.Nodes))
	for _, node := range wf.Nodes {
		if seen[node.ID] {
			result.Errors = append(result.Errors, Issue{
				Kind:   runtime.KindStructural,
				NodeID: node.ID,
				Message: fmt.Sprintf("duplicate node id %q: node ids must be unique within a workflow",
					node.ID),
			})
		}
		seen[node.ID] = true
	}

	// An input named after a node is ambiguous: template references to the
	// name could mean either. Normalize deliberately leaves these alone so
	// the collision surfaces here.
	for name := range wf.Inputs {
		if seen[name] {
			result.Errors = append(result.Errors, Issue{
				Kind:  runtime.KindStructural,
				Field: name,
				Message: fmt.Sprintf(
					"input %q has the same name as a node; rename one so ${%s} is unambiguous",
					name, name),
			})
		}
	}
}

// dataflow checks edge integrity, acyclicity and reachability, and records
// the execution order. Returns false when later layers cannot rely on an
// order.
func dataflow(wf *ir.Workflow, result *Result) bool {
	if len(wf.Nodes) > 1 && len(wf.Edges) == 0 {
		result.Errors = append(result.Errors, Issue{
			Kind:    runtime.KindDataflow,
			Message: "multi-node workflow has no edges; add edges to define execution order",
		})
		return false
	}

	g := graph.New(wf.Nodes, wf.Edges)
	order, err := g.TopologicalSort()
	if err != nil {
		result.Errors = append(result.Errors, Issue{
			Kind: runtime.KindDataflow, Message: err.Error(),
		})
		return false
	}
	result.ExecutionOrder = order

	for _, id := range g.UnreachableNodes() {
		result.Errors = append(result.Errors, Issue{
			Kind:    runtime.KindDataflow,
			NodeID:  id,
			Message: fmt.Sprintf("node %q is not reachable from any source node", id),
		})
	}
	// Unreachable nodes are an error, but an execution order still exists,
	// so the template layer can run.
	return true
}

// templates verifies that every template reference resolves to a declared
// input or an earlier-executing node.
func templates(wf *ir.Workflow, result *Result) {
	position := make(map[string]int, len(result.ExecutionOrder))
	for i, id := range result.ExecutionOrder {
		position[id] = i
	}

	available := func(forNode string) []string {
		var keys []string
		for name := range wf.Inputs {
			keys = append(keys, name)
		}
		for id, pos := range position {
			if forNode == "" || pos < position[forNode] {
				keys = append(keys, id)
			}
		}
		sort.Strings(keys)
		return keys
	}

	check := func(nodeID, field, value string) {
		for variable := range template.ExtractVariables(value) {
			base, _, _ := strings.Cut(variable, ".")
			if _, isInput := wf.Inputs[base]; isInput {
				continue
			}
			refPos, isNode := position[base]
			if isNode {
				if nodeID == "" {
					continue // outputs resolve after every node
				}
				if refPos < position[nodeID] {
					continue
				}
				message := fmt.Sprintf("template ${%s} references node %q which does not execute before %q",
					variable, base, nodeID)
				result.Errors = append(result.Errors, Issue{
					Kind: runtime.KindTemplate, NodeID: nodeID, Field: field, Message: message,
				})
				continue
			}
			issue := Issue{
				Kind:   runtime.KindTemplate,
				NodeID: nodeID,
				Field:  field,
				Message: fmt.Sprintf(
					"template ${%s} references %q which is neither a workflow input nor an earlier node",
					variable, base),
			}
			if similar := runtime.SimilarIdentifiers(base, available(nodeID)); len(similar) > 0 {
				rest := strings.TrimPrefix(variable, base)
				for _, s := range similar {
					issue.Suggestions = append(issue.Suggestions,
						fmt.Sprintf("did you mean ${%s%s} instead of ${%s}?", s, rest, variable))
					if len(issue.Suggestions) >= 3 {
						break
					}
				}
			}
			result.Errors = append(result.Errors, issue)
		}
	}

	var walk func(nodeID, field string, value any)
	walk = func(nodeID, field string, value any) {
		switch v := value.(type) {
		case string:
			check(nodeID, field, v)
		case map[string]any:
			for key, item := range v {
				walk(nodeID, field+"."+key, item)
			}
		case []any:
			for _, item := range v {
				walk(nodeID, field, item)
			}
		}
	}

	for _, node := range wf.Nodes {
		for param, value := range node.Params {
			walk(node.ID, param, value)
		}
	}
	for name, output := range wf.Outputs {
		check("", "outputs."+name, output.Source)
	}
}

// nodeTypes verifies every node.type exists in the registry.
func nodeTypes(wf *ir.Workflow, registry *runtime.Registry, result *Result) {
	for _, node := range wf.Nodes {
		if node.Type == "" || registry.Has(node.Type) {
			continue
		}
		issue := Issue{
			Kind:    runtime.KindNodeType,
			NodeID:  node.ID,
			Message: fmt.Sprintf("unknown node type %q", node.Type),
		}
		if similar := runtime.SimilarIdentifiers(node.Type, registry.Types()); len(similar) > 0 {
			issue.Suggestions = append(issue.Suggestions,
				fmt.Sprintf("did you mean %q?", similar[0]))
		}
		result.Errors = append(result.Errors, issue)
	}
}

// requiredInputs checks that required inputs without defaults were supplied.
func requiredInputs(wf *ir.Workflow, supplied map[string]any, result *Result) {
	var names []string
	for name := range wf.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		input := wf.Inputs[name]
		if !input.Required || input.Default != nil {
			continue
		}
		if _, ok := supplied[name]; ok {
			continue
		}
		message := fmt.Sprintf("workflow requires input %q", name)
		if input.Description != "" {
			message += ": " + input.Description
		}
		result.Errors = append(result.Errors, Issue{
			Kind: runtime.KindInput, Field: name, Message: message,
		})
	}
}

// unusedInputWarnings flags declared inputs nothing references. Normalize
// removes these; seeing one means Normalize was not run.
func unusedInputWarnings(wf *ir.Workflow, result *Result) {
	if len(wf.Inputs) == 0 {
		return
	}
	referenced := ir.ReferencedBaseIdentifiers(wf)
	var names []string
	for name := range wf.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := referenced[name]; ok {
			continue
		}
		if wf.HasNode(name) {
			continue // reported as a structural collision already
		}
		result.Warnings = append(result.Warnings, Issue{
			Kind:    runtime.KindStructural,
			Field:   name,
			Message: fmt.Sprintf("input %q is declared but never referenced", name),
		})
	}
}
