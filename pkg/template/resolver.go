package template

import (
	"regexp"
	"strings"
)

// Pattern matches ${identifier} with optional dotted paths, e.g.
// ${data.field.subfield}. Identifiers start with a letter or underscore and
// may contain letters, digits, underscores and hyphens.
//
// The first alternative consumes the escape form $${...} so that the capture
// group is only populated for real template references. Go's regexp has no
// lookbehind, so the escape is handled by the alternation instead.
var Pattern = regexp.MustCompile(
	`\$\$\{[a-zA-Z_][\w-]*(?:\.[a-zA-Z_][\w-]*)*\}` +
		`|\$\{([a-zA-Z_][\w-]*(?:\.[a-zA-Z_][\w-]*)*)\}`)

// MaxDepth bounds recursion through nested maps and slices. Real workflows
// never approach this depth; the limit keeps pathological inputs from
// blowing the stack.
const MaxDepth = 100

// HasTemplates reports whether value contains a template variable anywhere
// in its structure. Strings are checked for the "${" marker; maps and slices
// are walked recursively.
func HasTemplates(value any) bool {
	return hasTemplates(value, 0)
}

func hasTemplates(value any, depth int) bool {
	if depth > MaxDepth {
		return false
	}
	switch v := value.(type) {
	case string:
		return strings.Contains(v, "${")
	case map[string]any:
		for _, item := range v {
			if hasTemplates(item, depth+1) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if hasTemplates(item, depth+1) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ExtractVariables returns every template variable name (including dotted
// paths) found in s. Escaped occurrences ($${x}) are not included.
func ExtractVariables(s string) map[string]struct{} {
	vars := make(map[string]struct{})
	for _, m := range Pattern.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			vars[m[1]] = struct{}{}
		}
	}
	return vars
}

// SimpleTemplateVar returns the variable name if s is exactly one ${path}
// with no surrounding text, or "" otherwise.
func SimpleTemplateVar(s string) string {
	m := Pattern.FindStringSubmatchIndex(s)
	if m == nil || m[0] != 0 || m[1] != len(s) {
		return ""
	}
	// Escaped form: capture group absent.
	if m[2] < 0 {
		return ""
	}
	return s[m[2]:m[3]]
}

// VariableExists reports whether varName resolves to an existing key in
// context, regardless of the key's value. This distinguishes "variable not
// present" from "variable present but nil".
//
// For dotted paths every intermediate segment must be a map and must be
// non-nil; the final segment is checked for key presence only.
func VariableExists(varName string, context map[string]any) bool {
	parts := strings.Split(varName, ".")
	current := any(context)
	for i, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		value, ok := m[part]
		if !ok {
			return false
		}
		if i < len(parts)-1 {
			if value == nil {
				return false
			}
			current = value
		}
	}
	return true
}

// ResolveValue walks varName's path through context and returns the value,
// or nil if any segment is missing or any intermediate is not a map.
func ResolveValue(varName string, context map[string]any) any {
	parts := strings.Split(varName, ".")
	current := any(context)
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		value, ok := m[part]
		if !ok {
			return nil
		}
		current = value
	}
	return current
}

// ResolveString replaces every resolvable ${path} in s with its string
// rendering. References that cannot be resolved are left as the literal
// ${path} so callers can detect them. The escape $${x} yields ${x}.
func ResolveString(s string, context map[string]any) string {
	return Pattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "$$") {
			// Escape form: drop one dollar sign.
			return match[1:]
		}
		varName := match[2 : len(match)-1]
		if !VariableExists(varName, context) {
			return match
		}
		return ConvertToString(ResolveValue(varName, context))
	})
}

// ResolveNested recursively resolves templates in nested maps and slices,
// preserving the shape of value. Non-string scalars pass through unchanged.
// String leaves go through ResolveString, so every leaf resolution yields a
// string (complex template semantics).
func ResolveNested(value any, context map[string]any) any {
	return resolveNested(value, context, 0)
}

func resolveNested(value any, context map[string]any, depth int) any {
	if depth > MaxDepth {
		return value
	}
	switch v := value.(type) {
	case string:
		if strings.Contains(v, "${") {
			return ResolveString(v, context)
		}
		return v
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, item := range v {
			resolved[key] = resolveNested(item, context, depth+1)
		}
		return resolved
	case []any:
		resolved := make([]any, len(v))
		for i, item := range v {
			resolved[i] = resolveNested(item, context, depth+1)
		}
		return resolved
	default:
		return value
	}
}
