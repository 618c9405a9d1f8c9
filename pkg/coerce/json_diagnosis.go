package coerce

import (
	"fmt"
	"strings"
)

// previewLimit caps how much of a malformed value is echoed in diagnostics.
const previewLimit = 200

// DiagnoseJSON inspects a string that looks like JSON but failed to parse
// and returns the detected issues, e.g. single quotes or unmatched braces.
func DiagnoseJSON(s string) []string {
	trimmed := strings.TrimSpace(s)
	var issues []string
	if strings.Contains(trimmed, "'") {
		issues = append(issues, `Single quotes detected (use double quotes: "key" not 'key')`)
	}
	if strings.Count(trimmed, "{") != strings.Count(trimmed, "}") {
		issues = append(issues, "Mismatched braces { }")
	}
	if strings.Count(trimmed, "[") != strings.Count(trimmed, "]") {
		issues = append(issues, "Mismatched brackets [ ]")
	}
	if strings.Contains(trimmed, ",}") || strings.Contains(trimmed, ",]") {
		issues = append(issues, "Trailing comma before closing brace/bracket")
	}
	return issues
}

// JSONParseErrorMessage builds the multi-section diagnostic for a parameter
// that expects structured data but received a malformed JSON string.
func JSONParseErrorMessage(paramKey, value, templateStr, expectedType string) string {
	trimmed := strings.TrimSpace(value)
	preview := trimmed
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}

	lines := []string{
		fmt.Sprintf("Parameter '%s' expects %s but received malformed JSON string.", paramKey, expectedType),
		"",
		fmt.Sprintf("Template: %s", templateStr),
		fmt.Sprintf("Value preview: %s", preview),
		"",
		fmt.Sprintf("The string starts with '%c' suggesting JSON, but failed to parse.", trimmed[0]),
	}

	if issues := DiagnoseJSON(trimmed); len(issues) > 0 {
		lines = append(lines, "", "Detected issues:")
		for _, issue := range issues {
			lines = append(lines, "  - "+issue)
		}
	}

	lines = append(lines,
		"",
		"Common JSON formatting issues:",
		"  - Missing closing brace/bracket",
		"  - Single quotes instead of double quotes",
		"  - Trailing commas in arrays/objects",
		"  - Unescaped special characters",
		"  - Missing quotes around object keys",
		"",
		"Fix: Ensure the source outputs valid JSON.",
		fmt.Sprintf("Test with: echo '%s' | jq '.'", templateStr),
	)

	return strings.Join(lines, "\n")
}
