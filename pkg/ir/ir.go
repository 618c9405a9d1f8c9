package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/spinje/pflow/pkg/coerce"
)

// CurrentVersion is the IR schema version this runtime produces and the
// major series it accepts.
const CurrentVersion = "1.0.0"

// IdentifierPattern matches valid node and input identifiers: they start
// with a letter or underscore and may contain letters, digits, underscores
// and hyphens.
var IdentifierPattern = regexp.MustCompile(`^[a-zA-Z_][\w-]*$`)

// Workflow is the in-memory representation of a workflow definition.
type Workflow struct {
	IRVersion string            `json:"ir_version,omitempty"`
	Inputs    map[string]Input  `json:"inputs,omitempty"`
	Nodes     []Node            `json:"nodes"`
	Edges     []Edge            `json:"edges"`
	Outputs   map[string]Output `json:"outputs,omitempty"`
}

// Input declares a workflow input parameter.
type Input struct {
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Node is one compute step in the workflow graph. Params values may contain
// ${...} template references; they are resolved at execution time against
// the shared store.
type Node struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Purpose string         `json:"purpose,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Batch   map[string]any `json:"batch,omitempty"`
}

// Edge is a directed dependency between two nodes.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Output declares a workflow output. Source is a template string resolved
// against the final shared store after all nodes complete.
type Output struct {
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
}

// Parse decodes a JSON workflow document into a Workflow. Integral numbers
// in params and defaults decode as int, not float64, so values survive a
// markdown round-trip unchanged.
func Parse(data []byte) (*Workflow, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var wf Workflow
	if err := dec.Decode(&wf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	for i := range wf.Nodes {
		if wf.Nodes[i].Params != nil {
			wf.Nodes[i].Params = coerce.NormalizeNumbers(wf.Nodes[i].Params).(map[string]any)
		}
		if wf.Nodes[i].Batch != nil {
			wf.Nodes[i].Batch = coerce.NormalizeNumbers(wf.Nodes[i].Batch).(map[string]any)
		}
	}
	for name, input := range wf.Inputs {
		if input.Default != nil {
			input.Default = coerce.NormalizeNumbers(input.Default)
			wf.Inputs[name] = input
		}
	}
	return &wf, nil
}

// MarshalJSON output of a Workflow always carries nodes and edges arrays,
// even when empty, so round-tripped documents stay schema-conformant.
func (w *Workflow) MarshalJSON() ([]byte, error) {
	type alias Workflow
	out := alias(*w)
	if out.Nodes == nil {
		out.Nodes = []Node{}
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return json.Marshal(out)
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// NodeIDs returns the node ids in document order.
func (w *Workflow) NodeIDs() []string {
	ids := make([]string, len(w.Nodes))
	for i := range w.Nodes {
		ids[i] = w.Nodes[i].ID
	}
	return ids
}

// HasNode reports whether a node with the given id exists.
func (w *Workflow) HasNode(id string) bool {
	return w.NodeByID(id) != nil
}

// Clone returns a deep copy of the workflow. Params and outputs are copied
// through JSON so the copy shares no mutable state with the original.
func (w *Workflow) Clone() (*Workflow, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("clone workflow: %w", err)
	}
	return Parse(data)
}
