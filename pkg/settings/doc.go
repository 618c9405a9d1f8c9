// Package settings manages the user's pflow settings store
// (~/.pflow/settings.yaml): runtime options and an env section holding API
// tokens and other values workflows reference by environment-variable name.
//
// The package also provides the environment-expansion helper: parameter
// values of the form $NAME or ${NAME} (env-var style, upper snake case) are
// replaced from the settings env section or the process environment before
// execution, and the affected parameter names are reported so sanitization
// can redact them unconditionally.
package settings
