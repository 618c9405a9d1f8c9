package engine

import "strings"

// RedactedValue replaces sensitive values in persisted metadata and traces.
const RedactedValue = "<REDACTED>"

// sensitiveTokens are matched case-insensitively against parameter names.
// Any name containing one of these is redacted in persisted output.
var sensitiveTokens = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "api-key",
	"secret", "credential", "credentials",
	"authorization", "auth",
	"access_token", "auth_token",
	"private_key", "ssh_key", "client_secret",
}

// IsSensitiveName reports whether a parameter name should be redacted.
func IsSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, token := range sensitiveTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// Sanitize returns a deep copy of params with sensitive values replaced by
// RedactedValue. Names matching the sensitive token set are redacted, as is
// every name in envParams (values that came from the environment-expansion
// helper, regardless of what they are called). Redaction recurses into
// nested maps and slices.
func Sanitize(params map[string]any, envParams []string) map[string]any {
	fromEnv := make(map[string]bool, len(envParams))
	for _, name := range envParams {
		fromEnv[name] = true
	}
	out, _ := sanitizeValue(params, fromEnv).(map[string]any)
	return out
}

func sanitizeValue(value any, fromEnv map[string]bool) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			if IsSensitiveName(key) || fromEnv[key] {
				out[key] = RedactedValue
				continue
			}
			out[key] = sanitizeValue(item, fromEnv)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item, fromEnv)
		}
		return out
	default:
		return value
	}
}

// SanitizeShared prepares a shared store for persistence: sensitive keys are
// redacted and hidden bookkeeping keys are dropped. The env-param list is
// read first to drive redaction and is dropped along with the other hidden
// keys.
func SanitizeShared(shared map[string]any) map[string]any {
	var envParams []string
	if names, ok := shared[EnvParamNamesKey].([]string); ok {
		envParams = names
	} else if names, ok := shared[EnvParamNamesKey].([]any); ok {
		for _, n := range names {
			if s, ok := n.(string); ok {
				envParams = append(envParams, s)
			}
		}
	}

	visible := make(map[string]any, len(shared))
	for key, value := range shared {
		if strings.HasPrefix(key, "__") {
			continue
		}
		visible[key] = value
	}
	return Sanitize(visible, envParams)
}
