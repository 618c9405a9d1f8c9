// Package template provides detection and resolution of ${identifier.path}
// template variables against a context mapping.
//
// Templates come in two forms with different resolution semantics:
//
//   - Simple templates: a value that is exactly one ${path} with no
//     surrounding text. Resolution preserves the referent's type (a map stays
//     a map, an int stays an int).
//   - Complex templates: a string containing one or more ${path} substrings
//     interleaved with other text. Resolution always yields a string.
//
// Unresolved references are left as literal ${path} so callers can detect
// them. The escape form $${x} renders as the literal ${x}.
//
// All functions in this package are pure: they never mutate the context or
// the input value.
package template
