package runtime

import (
	"fmt"
	"sort"
	"sync"
)

// PortSpec describes one declared input, param or output of a node type.
type PortSpec struct {
	Key         string `json:"key"`
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Entry is the interface descriptor for one node type: what it reads,
// accepts, writes, and which actions it may return. Module, ClassName and
// FilePath are opaque locators carried through from discovery.
type Entry struct {
	Inputs    []PortSpec `json:"inputs,omitempty"`
	Params    []PortSpec `json:"params,omitempty"`
	Outputs   []PortSpec `json:"outputs,omitempty"`
	Actions   []string   `json:"actions,omitempty"`
	Module    string     `json:"module,omitempty"`
	ClassName string     `json:"class_name,omitempty"`
	FilePath  string     `json:"file_path,omitempty"`
}

// ExpectedTypes builds the param/input key to declared type map used by the
// wrapper for coercion and validation.
func (e *Entry) ExpectedTypes() map[string]string {
	types := make(map[string]string)
	for _, spec := range e.Inputs {
		if spec.Key != "" && spec.Type != "" {
			types[spec.Key] = spec.Type
		}
	}
	for _, spec := range e.Params {
		if spec.Key != "" && spec.Type != "" {
			types[spec.Key] = spec.Type
		}
	}
	return types
}

// OutputKeys returns the declared output keys in declaration order.
func (e *Entry) OutputKeys() []string {
	keys := make([]string, 0, len(e.Outputs))
	for _, spec := range e.Outputs {
		keys = append(keys, spec.Key)
	}
	return keys
}

// Constructor builds a fresh node instance. The executor calls it once per
// run; instances are never shared across runs.
type Constructor func() Node

// Registry maps node type strings to constructors and interface metadata.
// Registration happens at start-up; lookups at run time are read-only.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ctors   map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		ctors:   make(map[string]Constructor),
	}
}

// Register adds a node type. Returns an error if the type already exists.
func (r *Registry) Register(nodeType string, entry Entry, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[nodeType]; exists {
		return fmt.Errorf("node type already registered: %s", nodeType)
	}
	r.entries[nodeType] = entry
	r.ctors[nodeType] = ctor
	return nil
}

// MustRegister registers a node type and panics on error. Useful during
// initialization where registration must succeed.
func (r *Registry) MustRegister(nodeType string, entry Entry, ctor Constructor) {
	if err := r.Register(nodeType, entry, ctor); err != nil {
		panic(err)
	}
}

// Has reports whether nodeType is registered.
func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[nodeType]
	return ok
}

// Entry returns the interface metadata for nodeType.
func (r *Registry) Entry(nodeType string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[nodeType]
	return entry, ok
}

// Instantiate builds a fresh node of the given type.
func (r *Registry) Instantiate(nodeType string) (Node, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[nodeType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}
	return ctor(), nil
}

// Types returns all registered node types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.ctors))
	for t := range r.ctors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
