package runtime

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spinje/pflow/pkg/coerce"
	"github.com/spinje/pflow/pkg/template"
)

// ResolutionMode controls how the wrapper reacts to unresolved templates and
// type mismatches.
type ResolutionMode string

const (
	// Strict fails the node on the first unresolved template or type
	// mismatch. The default.
	Strict ResolutionMode = "strict"

	// Permissive records the problem under TemplateErrorsKey in the shared
	// store and continues, passing the literal ${...} through to the node.
	Permissive ResolutionMode = "permissive"
)

// TemplateErrorsKey is the shared-store key where permissive-mode template
// problems are recorded, keyed by node id.
const TemplateErrorsKey = "__template_errors__"

// Wrapper intercepts a node's execution to resolve ${...} template
// parameters against the shared store just before the lifecycle runs. It is
// the runtime proxy between the IR's static parameters and the node.
type Wrapper struct {
	inner         Node
	nodeID        string
	initialParams map[string]any
	mode          ResolutionMode
	expectedTypes map[string]string

	templateParams map[string]any
	staticParams   map[string]any

	log *slog.Logger
}

// WrapperOption customises a Wrapper.
type WrapperOption func(*Wrapper)

// WithResolutionMode selects strict or permissive resolution.
func WithResolutionMode(mode ResolutionMode) WrapperOption {
	return func(w *Wrapper) {
		if mode != "" {
			w.mode = mode
		}
	}
}

// WithInterface supplies the registry entry whose declared types drive
// coercion and validation.
func WithInterface(entry Entry) WrapperOption {
	return func(w *Wrapper) { w.expectedTypes = entry.ExpectedTypes() }
}

// WithLogger attaches a logger for resolution diagnostics.
func WithLogger(log *slog.Logger) WrapperOption {
	return func(w *Wrapper) { w.log = log }
}

// Wrap builds a Wrapper around inner. initialParams are the IR's static
// parameters for the node; they take priority over shared-store values
// during resolution.
func Wrap(inner Node, nodeID string, initialParams map[string]any, opts ...WrapperOption) *Wrapper {
	w := &Wrapper{
		inner:         inner,
		nodeID:        nodeID,
		initialParams: initialParams,
		mode:          Strict,
		expectedTypes: map[string]string{},
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.SetParams(initialParams)
	return w
}

// NodeID returns the wrapped node's id.
func (w *Wrapper) NodeID() string { return w.nodeID }

// Inner exposes the wrapped node.
func (w *Wrapper) Inner() Node { return w.inner }

// SetParams partitions params into template and static sets. Static params
// are coerced to their declared types immediately and set on the inner node;
// template params are deferred until Run, when the shared store exists.
func (w *Wrapper) SetParams(params map[string]any) {
	w.templateParams = map[string]any{}
	w.staticParams = map[string]any{}
	for key, value := range params {
		if template.HasTemplates(value) {
			w.templateParams[key] = value
		} else {
			w.staticParams[key] = coerce.ToDeclaredType(value, w.expectedTypes[key])
		}
	}
	w.inner.SetParams(w.staticParams)
}

// Run resolves template parameters against shared, then drives the inner
// node's lifecycle. The shared store itself is the base of the resolution
// context; initial IR params overlay it.
func (w *Wrapper) Run(shared map[string]any) (string, error) {
	if len(w.templateParams) == 0 {
		return Run(w.inner, shared)
	}

	context := w.buildContext(shared)
	resolved := make(map[string]any, len(w.templateParams))

	for key, tmpl := range w.templateParams {
		value, isSimple := w.resolveParameter(tmpl, context)

		if isSimple {
			value = w.coerceSimple(key, value)
			if err := w.validateResolvedType(key, value, tmpl, shared); err != nil {
				return "", err
			}
		}

		if unresolvedTemplate(value, tmpl, 0) {
			if err := w.handleUnresolved(key, tmpl, context, shared); err != nil {
				return "", err
			}
		}

		resolved[key] = value
	}

	// Run the lifecycle with resolved params, restoring the originals after.
	// Nodes are fresh per run, so this is defensive rather than required.
	original := w.inner.Params()
	merged := make(map[string]any, len(w.staticParams)+len(resolved))
	for k, v := range w.staticParams {
		merged[k] = v
	}
	for k, v := range resolved {
		merged[k] = v
	}
	w.inner.SetParams(merged)
	defer w.inner.SetParams(original)

	return Run(w.inner, shared)
}

// buildContext merges the shared store with the node's initial parameters;
// IR parameters win over runtime values.
func (w *Wrapper) buildContext(shared map[string]any) map[string]any {
	context := make(map[string]any, len(shared)+len(w.initialParams))
	for k, v := range shared {
		context[k] = v
	}
	for k, v := range w.initialParams {
		context[k] = v
	}
	return context
}

// resolveParameter resolves one template parameter. Maps and slices resolve
// recursively with complex-template semantics; a string that is exactly one
// ${path} resolves to the raw value preserving its type.
func (w *Wrapper) resolveParameter(tmpl any, context map[string]any) (value any, isSimple bool) {
	switch t := tmpl.(type) {
	case map[string]any, []any:
		return template.ResolveNested(t, context), false
	case string:
		if varName := template.SimpleTemplateVar(t); varName != "" {
			if template.VariableExists(varName, context) {
				return template.ResolveValue(varName, context), true
			}
			// Keep the literal so unresolved detection fires.
			return t, true
		}
		return template.ResolveString(t, context), false
	default:
		return tmpl, false
	}
}

// coerceSimple applies the JSON bridge for simple-template results: a JSON
// string feeding a structured parameter is parsed, and a map/slice feeding a
// string parameter is serialised.
func (w *Wrapper) coerceSimple(key string, value any) any {
	expected := w.expectedTypes[key]

	if s, ok := value.(string); ok && coerce.IsStructuredType(expected) {
		if parsed, ok := coerce.TryParseJSON(s); ok {
			matches := (coerce.IsMapType(expected) && isMap(parsed)) ||
				(coerce.IsSliceType(expected) && isSlice(parsed))
			if matches {
				w.log.Debug("auto-parsed JSON string for structured param",
					"node_id", w.nodeID, "param", key, "expected", expected)
				return parsed
			}
		}
		return value
	}

	switch value.(type) {
	case map[string]any, []any:
		coerced := coerce.ToDeclaredType(value, expected)
		if _, stayed := coerced.(string); stayed && expected == coerce.TypeStr {
			w.log.Debug("serialized structured value to JSON for str param",
				"node_id", w.nodeID, "param", key)
		}
		return coerced
	}
	return value
}

// validateResolvedType checks a simple-template result against the declared
// parameter type. In strict mode mismatches are fatal; in permissive mode
// they are recorded in the shared store and execution continues.
func (w *Wrapper) validateResolvedType(key string, value any, tmpl any, shared map[string]any) error {
	expected, ok := w.expectedTypes[key]
	if !ok || expected == coerce.TypeAny {
		return nil
	}
	templateStr := fmt.Sprintf("%v", tmpl)

	var message string
	switch {
	case expected == coerce.TypeStr && (isMap(value) || isSlice(value)):
		message = w.typeMismatchMessage(key, value, templateStr, expected)
	case coerce.IsStructuredType(expected):
		s, isString := value.(string)
		if isString && coerce.LooksLikeJSON(s) {
			// Still a string after the auto-parse attempt: the JSON is bad.
			message = coerce.JSONParseErrorMessage(key, s, templateStr, expected)
		}
	}
	if message == "" {
		return nil
	}

	if w.mode == Permissive {
		w.recordTemplateError(shared, map[string]any{
			"message": message,
			"type":    "type_validation",
			"param":   key,
		})
		w.log.Warn("type validation failed, continuing in permissive mode",
			"node_id", w.nodeID, "param", key)
		return nil
	}
	return &ExecutionError{Kind: KindTemplate, NodeID: w.nodeID, Message: message, Err: ErrTypeMismatch}
}

// handleUnresolved reacts to a parameter that still contains its original
// ${...} reference after resolution.
func (w *Wrapper) handleUnresolved(key string, tmpl any, context, shared map[string]any) error {
	message := w.unresolvedMessage(key, tmpl, context)
	if w.mode == Permissive {
		w.recordTemplateError(shared, map[string]any{
			"message":    message,
			"unresolved": []any{key},
			"template":   fmt.Sprintf("%v", tmpl),
		})
		w.log.Warn("unresolved template, continuing in permissive mode",
			"node_id", w.nodeID, "param", key)
		return nil
	}
	return &ExecutionError{Kind: KindTemplate, NodeID: w.nodeID, Message: message, Err: ErrUnresolvedTemplate}
}

func (w *Wrapper) recordTemplateError(shared map[string]any, detail map[string]any) {
	errorsMap, _ := shared[TemplateErrorsKey].(map[string]any)
	if errorsMap == nil {
		errorsMap = map[string]any{}
		shared[TemplateErrorsKey] = errorsMap
	}
	errorsMap[w.nodeID] = detail
}

// typeMismatchMessage builds the multi-section diagnostic for a structured
// value feeding a string parameter.
func (w *Wrapper) typeMismatchMessage(key string, value any, templateStr, expected string) string {
	actual := typeName(value)
	varName := "variable"
	for v := range template.ExtractVariables(templateStr) {
		varName = v
		break
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Parameter '%s' expects %s but received %s\n\n", key, expected, actual)
	fmt.Fprintf(&b, "Template used: %s\n", templateStr)
	fmt.Fprintf(&b, "Resolved to: %s object\n", actual)

	b.WriteString("\nCommon fixes:\n")
	b.WriteString("  1. Serialize to JSON (recommended):\n")
	fmt.Fprintf(&b, "     %s: \"%s\"\n\n", key, templateStr)
	switch value.(type) {
	case map[string]any:
		b.WriteString("  2. Access a specific field:\n")
		fmt.Fprintf(&b, "     %s: ${%s.field_name}\n\n", key, varName)
	case []any:
		b.WriteString("  2. Access a specific item:\n")
		fmt.Fprintf(&b, "     %s: ${%s.0}\n\n", key, varName)
	}
	b.WriteString("  3. Combine with text:\n")
	fmt.Fprintf(&b, "     %s: \"Summary: %s\"\n", key, templateStr)

	switch v := value.(type) {
	case map[string]any:
		if len(v) > 0 {
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			shown := keys
			if len(shown) > 10 {
				shown = shown[:10]
			}
			fmt.Fprintf(&b, "\n\nAvailable fields in %s:\n", varName)
			for _, k := range shown {
				fmt.Fprintf(&b, "  - %s\n", k)
			}
			if len(keys) > 10 {
				fmt.Fprintf(&b, "  ... and %d more\n", len(keys)-10)
			}
		}
	case []any:
		fmt.Fprintf(&b, "\n\n%s contains %d items\n", varName, len(v))
		if len(v) > 0 {
			fmt.Fprintf(&b, "Access items with: ${%s.0}, ${%s.1}, etc.\n", varName, varName)
		}
	}
	return b.String()
}

// unresolvedMessage builds the diagnostic for a template that failed to
// resolve: the unresolved variables, the available context keys, JSON-parse
// hints and typo suggestions.
func (w *Wrapper) unresolvedMessage(key string, tmpl any, context map[string]any) string {
	templateStr := fmt.Sprintf("%v", tmpl)

	// Only report variables that actually failed, not every variable in the
	// template.
	var unresolved []string
	for v := range template.ExtractVariables(templateStr) {
		if !template.VariableExists(v, context) {
			unresolved = append(unresolved, v)
		}
	}
	sort.Strings(unresolved)

	var availableKeys []string
	for k := range context {
		if !strings.HasPrefix(k, "__") {
			availableKeys = append(availableKeys, k)
		}
	}
	sort.Strings(availableKeys)

	quoted := make([]string, len(unresolved))
	for i, v := range unresolved {
		quoted[i] = "${" + v + "}"
	}
	parts := []string{fmt.Sprintf("Unresolved variables in parameter '%s': %s", key, strings.Join(quoted, ", "))}

	if len(availableKeys) > 0 {
		parts = append(parts, "", "Available context keys:")
		shown := availableKeys
		if len(shown) > 20 {
			shown = shown[:20]
		}
		for _, k := range shown {
			parts = append(parts, fmt.Sprintf("  - %s (%s)", k, typeName(context[k])))
		}
		if len(availableKeys) > 20 {
			parts = append(parts, fmt.Sprintf("  ... and %d more", len(availableKeys)-20))
		}
	}

	if hints := jsonParseHints(unresolved, context); len(hints) > 0 {
		parts = append(parts, "", "JSON parsing issue:")
		for _, hint := range hints {
			parts = append(parts, "  "+hint)
		}
		parts = append(parts, "  Fix: Ensure upstream node outputs valid JSON.")
	} else if suggestions := suggestCorrections(unresolved, availableKeys); len(suggestions) > 0 {
		parts = append(parts, "", "Suggestions:")
		for _, s := range suggestions {
			parts = append(parts, "  "+s)
		}
	}

	return strings.Join(parts, "\n")
}

// jsonParseHints explains nested accesses that failed because the parent
// value is a plain string rather than parsed JSON, e.g. ${node.stdout.field}
// where node.stdout holds unparsed text.
func jsonParseHints(unresolved []string, context map[string]any) []string {
	for _, variable := range unresolved {
		parts := strings.Split(variable, ".")
		if len(parts) < 3 {
			continue
		}
		nodeData, ok := context[parts[0]].(map[string]any)
		if !ok {
			continue
		}
		value, ok := nodeData[parts[1]]
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		preview := s
		if len(preview) > 60 {
			preview = preview[:60] + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", "\\n")
		return []string{
			fmt.Sprintf("${%s.%s} is a string, not JSON. Nested access (.%s) requires valid JSON.",
				parts[0], parts[1], strings.Join(parts[2:], ".")),
			fmt.Sprintf("  Actual value: %q", preview),
		}
	}
	return nil
}

// unresolvedTemplate reports whether value still contains the specific
// template references it started with. A resolved value that merely happens
// to contain ${...} text (e.g. command output) is not flagged: only when the
// original variables survive resolution is the template unresolved.
func unresolvedTemplate(value, original any, depth int) bool {
	if depth > template.MaxDepth {
		return false
	}
	switch v := value.(type) {
	case string:
		o, ok := original.(string)
		if !ok {
			return false
		}
		if !strings.Contains(v, "${") {
			return false
		}
		if v == o {
			return len(template.ExtractVariables(o)) > 0
		}
		// Partially resolved: unresolved only if an original variable is
		// still present.
		originalVars := template.ExtractVariables(o)
		for remaining := range template.ExtractVariables(v) {
			if _, ok := originalVars[remaining]; ok {
				return true
			}
		}
		return false
	case []any:
		o, ok := original.([]any)
		if !ok || len(v) != len(o) {
			return false
		}
		for i := range v {
			if unresolvedTemplate(v[i], o[i], depth+1) {
				return true
			}
		}
		return false
	case map[string]any:
		o, ok := original.(map[string]any)
		if !ok || len(v) != len(o) {
			return false
		}
		for k := range v {
			if unresolvedTemplate(v[k], o[k], depth+1) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func isSlice(v any) bool {
	_, ok := v.([]any)
	return ok
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "str"
	case bool:
		return "bool"
	case int, int64:
		return "int"
	case float64, float32:
		return "float"
	case map[string]any:
		return "dict"
	case []any:
		return "list"
	default:
		return fmt.Sprintf("%T", v)
	}
}
