package markdown

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/spinje/pflow/pkg/ir"
)

// Param keys whose values render as fenced code blocks, with their language
// hints.
var fencedParams = map[string]string{
	"command": "shell",
	"prompt":  "markdown",
	"code":    "python",
}

// Write renders a Document back to .pflow.md form.
func Write(doc *Document) (string, error) {
	var b strings.Builder

	// The IR version persists through frontmatter so parsing restores it.
	metadata := doc.Metadata
	if doc.Workflow.IRVersion != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, ok := metadata["version"]; !ok {
			copied := make(map[string]any, len(metadata)+1)
			for k, v := range metadata {
				copied[k] = v
			}
			copied["version"] = doc.Workflow.IRVersion
			metadata = copied
		}
	}

	if len(metadata) > 0 {
		meta, err := yaml.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("marshal frontmatter: %w", err)
		}
		b.WriteString("---\n")
		b.Write(meta)
		b.WriteString("---\n\n")
	}

	title := doc.Title
	if title == "" {
		title = "Workflow"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	wf := doc.Workflow
	if len(wf.Inputs) > 0 {
		b.WriteString("## Inputs\n\n")
		for _, name := range sortedKeys(wf.Inputs) {
			input := wf.Inputs[name]
			fmt.Fprintf(&b, "### %s\n\n", name)
			writeProse(&b, input.Description, "Input parameter.")
			if input.Type != "" {
				fmt.Fprintf(&b, "- type: %s\n", input.Type)
			}
			if input.Required {
				b.WriteString("- required: true\n")
			}
			if input.Default != nil {
				fmt.Fprintf(&b, "- default: %s\n", inlineValue(input.Default))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Steps\n\n")
	for _, node := range wf.Nodes {
		fmt.Fprintf(&b, "### %s\n\n", node.ID)
		writeProse(&b, node.Purpose, "Step description.")
		fmt.Fprintf(&b, "- type: %s\n", node.Type)
		for _, key := range sortedKeys(node.Params) {
			value := node.Params[key]
			if lang, fenced := fencedParams[key]; fenced {
				writeFence(&b, lang, key, fmt.Sprintf("%v", value))
				continue
			}
			switch v := value.(type) {
			case map[string]any, []any:
				content, err := yaml.Marshal(v)
				if err != nil {
					return "", fmt.Errorf("marshal param %q: %w", key, err)
				}
				writeFence(&b, "yaml", key, strings.TrimRight(string(content), "\n"))
			default:
				fmt.Fprintf(&b, "- %s: %s\n", key, inlineValue(value))
			}
		}
		if len(node.Batch) > 0 {
			content, err := yaml.Marshal(node.Batch)
			if err != nil {
				return "", fmt.Errorf("marshal batch: %w", err)
			}
			writeFence(&b, "yaml", "batch", strings.TrimRight(string(content), "\n"))
		}
		b.WriteString("\n")
	}

	if len(wf.Outputs) > 0 {
		b.WriteString("## Outputs\n\n")
		for _, name := range sortedKeys(wf.Outputs) {
			output := wf.Outputs[name]
			fmt.Fprintf(&b, "### %s\n\n", name)
			writeProse(&b, output.Description, "Output value.")
			if strings.Contains(output.Source, "\n") {
				writeFence(&b, "markdown", "source", output.Source)
			} else {
				fmt.Fprintf(&b, "- source: %s\n", inlineValue(output.Source))
			}
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}

// WriteWorkflow renders bare IR with a title and no metadata.
func WriteWorkflow(wf *ir.Workflow, title string) (string, error) {
	return Write(&Document{Title: title, Workflow: wf})
}

func writeProse(b *strings.Builder, text, fallback string) {
	if strings.TrimSpace(text) == "" {
		text = fallback
	}
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n\n")
}

// writeFence emits a fenced block, growing the fence when the content
// itself contains triple backticks.
func writeFence(b *strings.Builder, lang, key, content string) {
	fence := "```"
	for strings.Contains(content, fence) {
		fence += "`"
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "%s%s %s\n", fence, lang, key)
	b.WriteString(content)
	b.WriteString("\n")
	b.WriteString(fence)
	b.WriteString("\n")
}

// inlineValue formats a scalar for a "- key: value" bullet: booleans
// lowercase, strings quoted when YAML would misread them.
func inlineValue(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		if needsQuoting(v) {
			escaped := strings.ReplaceAll(v, `\`, `\\`)
			escaped = strings.ReplaceAll(escaped, `"`, `\"`)
			escaped = strings.ReplaceAll(escaped, "\n", `\n`)
			return `"` + escaped + `"`
		}
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	lower := strings.ToLower(s)
	switch lower {
	case "true", "false", "null", "yes", "no", "on", "off", "~":
		return true
	}
	if strings.ContainsAny(s, "#\n") || strings.Contains(s, ": ") {
		return true
	}
	switch s[0] {
	case '{', '[', '\'', '"', '&', '*', '!', '|', '>', '%', '@':
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
