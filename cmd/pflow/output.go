package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spinje/pflow/pkg/engine"
	"github.com/spinje/pflow/pkg/markdown"
	"github.com/spinje/pflow/pkg/validator"
)

func jsonMode() bool { return flagOutputFormat == "json" }

func markdownWrite(doc *markdown.Document) (string, error) {
	return markdown.Write(doc)
}

func printError(message string) {
	if jsonMode() {
		emitJSON(map[string]any{
			"success": false,
			"error":   map[string]any{"type": "not_found", "message": message},
		})
		return
	}
	fmt.Fprintf(os.Stderr, "✗ %s\n", message)
}

func printValidationSuccess(result *validator.Result) {
	if jsonMode() {
		emitJSON(map[string]any{
			"success":  true,
			"valid":    true,
			"warnings": result.Warnings,
		})
		return
	}
	fmt.Println("✓ Workflow is valid")
	for _, warning := range result.Warnings {
		fmt.Printf("  ⚠ %s\n", warning.Message)
	}
}

func printValidationFailure(result *validator.Result) {
	if jsonMode() {
		emitJSON(map[string]any{
			"success": false,
			"valid":   false,
			"error": map[string]any{
				"type":    "validation",
				"message": "workflow failed validation",
			},
			"errors":   result.Errors,
			"warnings": result.Warnings,
		})
		return
	}
	fmt.Fprintln(os.Stderr, "✗ Workflow failed validation")
	for _, issue := range result.TopErrors() {
		fmt.Fprintf(os.Stderr, "  • %s\n", indentFollowing(issue.String(), 4))
	}
	if extra := len(result.Errors) - len(result.TopErrors()); extra > 0 {
		fmt.Fprintf(os.Stderr, "  ... and %d more\n", extra)
	}
}

func printExecutionResult(result *engine.Result, execErr error) {
	if jsonMode() {
		payload := map[string]any{
			"success":   result.Success,
			"result":    result.Outputs,
			"execution": map[string]any{"steps": result.Steps},
			"metrics":   result.Metrics,
		}
		if result.TracePath != "" {
			payload["trace_path"] = result.TracePath
		}
		if len(result.Errors) > 0 {
			payload["errors"] = result.Errors
			first := result.Errors[0]
			payload["error"] = map[string]any{
				"type":    first.Type,
				"message": first.Message,
			}
		}
		emitJSON(payload)
		return
	}

	if execErr != nil {
		fmt.Fprintln(os.Stderr, "✗ Workflow execution failed")
		for _, detail := range result.Errors {
			fmt.Fprintf(os.Stderr, "  • %s\n", indentFollowing(detail.Message, 4))
		}
		if result.TracePath != "" {
			fmt.Fprintf(os.Stderr, "  Trace: %s\n", result.TracePath)
		}
		return
	}

	fmt.Println("✓ Workflow completed")
	for name, value := range result.Outputs {
		fmt.Printf("\n%s:\n%s\n", name, strings.TrimRight(fmt.Sprintf("%v", value), "\n"))
	}

	// Stderr from successful shell steps shows up as warnings.
	for _, step := range result.Steps {
		if step.HasStderr {
			fmt.Fprintf(os.Stderr, "\n⚠ %s wrote to stderr:\n%s\n",
				step.NodeID, strings.TrimRight(step.Stderr, "\n"))
		}
	}
	if result.TracePath != "" && flagVerbose {
		fmt.Printf("\nTrace: %s\n", result.TracePath)
	}
}

func emitJSON(payload map[string]any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

// indentFollowing indents every line after the first so multi-line messages
// align under their bullet.
func indentFollowing(s string, spaces int) string {
	lines := strings.Split(s, "\n")
	if len(lines) == 1 {
		return s
	}
	pad := strings.Repeat(" ", spaces)
	for i := 1; i < len(lines); i++ {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}
