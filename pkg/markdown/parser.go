package markdown

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/spinje/pflow/pkg/ir"
)

// Document is a parsed .pflow.md file: the workflow IR plus the metadata
// that lives outside it.
type Document struct {
	Title    string
	Metadata map[string]any
	Workflow *ir.Workflow
}

// Parse decodes .pflow.md content into a Document. Multi-node documents get
// the linear chain edges implied by step order.
func Parse(content string) (*Document, error) {
	doc := &Document{Workflow: &ir.Workflow{}}
	lines := strings.Split(content, "\n")
	pos := 0

	// Frontmatter
	if pos < len(lines) && strings.TrimSpace(lines[pos]) == "---" {
		end := -1
		for i := pos + 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				end = i
				break
			}
		}
		if end < 0 {
			return nil, ErrMalformedFrontmatter
		}
		raw := strings.Join(lines[pos+1:end], "\n")
		if strings.TrimSpace(raw) != "" {
			var meta map[string]any
			if err := yaml.Unmarshal([]byte(raw), &meta); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedFrontmatter, err)
			}
			doc.Metadata = normalizeValue(meta).(map[string]any)
		}
		pos = end + 1
	}

	// Walk the remaining lines, tracking the current ## section and the
	// current ### subsection.
	var section string    // "inputs" | "steps" | "outputs"
	var subsection string // current input/step/output name
	var prose []string
	bullets := map[string]any{}
	blocks := map[string]any{}
	order := []string{} // step names in document order

	type stepData struct {
		purpose string
		params  map[string]any
		typ     string
		batch   map[string]any
	}
	steps := map[string]*stepData{}
	inputs := map[string]ir.Input{}
	outputs := map[string]ir.Output{}

	reset := func() {
		prose = nil
		bullets = map[string]any{}
		blocks = map[string]any{}
	}

	flush := func() {
		if subsection == "" {
			// Section intro prose has no home; drop it with the buffers.
			reset()
			return
		}
		description := strings.TrimSpace(strings.Join(prose, "\n"))
		switch section {
		case "inputs":
			input := ir.Input{Description: description}
			if t, ok := bullets["type"].(string); ok {
				input.Type = t
			}
			if r, ok := bullets["required"].(bool); ok {
				input.Required = r
			}
			if d, ok := bullets["default"]; ok {
				input.Default = d
			}
			inputs[subsection] = input
		case "steps":
			step := &stepData{purpose: description, params: map[string]any{}}
			for key, value := range bullets {
				if key == "type" {
					step.typ, _ = value.(string)
					continue
				}
				step.params[key] = value
			}
			for key, value := range blocks {
				if key == "batch" {
					step.batch, _ = value.(map[string]any)
					continue
				}
				step.params[key] = value
			}
			steps[subsection] = step
			order = append(order, subsection)
		case "outputs":
			output := ir.Output{Description: description}
			if s, ok := bullets["source"].(string); ok {
				output.Source = s
			}
			if s, ok := blocks["source"].(string); ok {
				output.Source = s
			}
			outputs[subsection] = output
		}
		reset()
	}

	for pos < len(lines) {
		line := lines[pos]
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "####"):
			// Deeper headings are prose.
			prose = append(prose, trimmed)
			pos++
		case strings.HasPrefix(trimmed, "### "):
			flush()
			subsection = strings.TrimSpace(strings.TrimPrefix(trimmed, "### "))
			pos++
		case strings.HasPrefix(trimmed, "## "):
			flush()
			subsection = ""
			section = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "## ")))
			pos++
		case strings.HasPrefix(trimmed, "# "):
			if doc.Title == "" && section == "" {
				doc.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			} else {
				prose = append(prose, trimmed)
			}
			pos++
		case strings.HasPrefix(trimmed, "```"):
			key, value, next, err := parseFence(lines, pos)
			if err != nil {
				return nil, err
			}
			if key != "" {
				blocks[key] = value
			}
			pos = next
		case strings.HasPrefix(trimmed, "- ") && strings.Contains(trimmed, ":"):
			body := strings.TrimPrefix(trimmed, "- ")
			key, raw, _ := strings.Cut(body, ":")
			bullets[strings.TrimSpace(key)] = parseScalar(strings.TrimSpace(raw))
			pos++
		default:
			if trimmed != "" {
				prose = append(prose, trimmed)
			}
			pos++
		}
	}
	flush()

	if len(order) == 0 {
		return nil, ErrNoSteps
	}

	wf := doc.Workflow
	if len(inputs) > 0 {
		wf.Inputs = inputs
	}
	for _, name := range order {
		step := steps[name]
		node := ir.Node{ID: name, Type: step.typ, Purpose: step.purpose, Batch: step.batch}
		if len(step.params) > 0 {
			node.Params = step.params
		}
		wf.Nodes = append(wf.Nodes, node)
	}
	wf.Edges = []ir.Edge{}
	for i := 1; i < len(order); i++ {
		wf.Edges = append(wf.Edges, ir.Edge{From: order[i-1], To: order[i]})
	}
	if len(outputs) > 0 {
		wf.Outputs = outputs
	}
	if version, ok := doc.Metadata["version"].(string); ok {
		wf.IRVersion = version
	}
	ir.Normalize(wf)

	return doc, nil
}

// parseFence consumes one fenced code block starting at lines[start].
// The info string is "<lang> <key>"; yaml blocks are decoded, everything
// else stays a raw string. Returns the param key, the value and the index
// after the closing fence.
func parseFence(lines []string, start int) (string, any, int, error) {
	open := strings.TrimSpace(lines[start])
	fenceLen := 0
	for fenceLen < len(open) && open[fenceLen] == '`' {
		fenceLen++
	}
	fence := open[:fenceLen]
	info := strings.Fields(strings.TrimSpace(open[fenceLen:]))

	var body []string
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == fence {
			content := strings.Join(body, "\n")
			if len(info) < 2 {
				// Anonymous block: prose, not a parameter.
				return "", nil, i + 1, nil
			}
			lang, key := info[0], info[1]
			if lang == "yaml" {
				var value any
				if err := yaml.Unmarshal([]byte(content), &value); err != nil {
					return "", nil, 0, fmt.Errorf("yaml block %q: %w", key, err)
				}
				return key, normalizeValue(value), i + 1, nil
			}
			return key, content, i + 1, nil
		}
		body = append(body, lines[i])
	}
	return "", nil, 0, ErrUnterminatedFence
}

// parseScalar interprets one inline bullet value using YAML scalar rules
// (bools, numbers, quoted strings, flow collections).
func parseScalar(raw string) any {
	if raw == "" {
		return ""
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return normalizeValue(value)
}

// normalizeValue rewrites YAML decode results into the engine's canonical
// shapes: map[string]any for mappings, int for integral numbers.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeValue(item)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprintf("%v", key)] = normalizeValue(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = normalizeValue(item)
		}
		return v
	case uint64:
		return int(v)
	case int64:
		return int(v)
	default:
		return value
	}
}
