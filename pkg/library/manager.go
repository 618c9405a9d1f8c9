package library

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spinje/pflow/pkg/engine"
	"github.com/spinje/pflow/pkg/markdown"
	"github.com/spinje/pflow/pkg/runtime"
)

// Extension is the workflow file suffix.
const Extension = ".pflow.md"

// namePattern restricts saved workflow names to filesystem-safe slugs.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][\w-]*$`)

// Source describes where a resolved workflow came from.
type Source string

const (
	SourceLibrary Source = "library"
	SourceFile    Source = "file"
	SourceContent Source = "content"
)

// Info summarises one saved workflow.
type Info struct {
	Name           string
	Description    string
	ExecutionCount int
	UpdatedAt      string
}

// Manager reads and writes the workflow library directory.
type Manager struct {
	dir string
}

// DefaultDir returns ~/.pflow/workflows.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pflow", "workflows")
	}
	return filepath.Join(home, ".pflow", "workflows")
}

// NewManager creates a Manager over dir (DefaultDir when empty).
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Manager{dir: dir}
}

func (m *Manager) pathFor(name string) string {
	return filepath.Join(m.dir, name+Extension)
}

// Exists reports whether a saved workflow has the given name.
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.pathFor(name))
	return err == nil
}

// Save writes doc under name, creating the library directory as needed.
func (m *Manager) Save(name string, doc *markdown.Document) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	if _, ok := doc.Metadata["created_at"]; !ok {
		doc.Metadata["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	content, err := markdown.Write(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(m.pathFor(name), []byte(content), 0o644)
}

// Load reads and parses the saved workflow with the given name.
func (m *Manager) Load(name string) (*markdown.Document, error) {
	data, err := os.ReadFile(m.pathFor(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, err
	}
	return markdown.Parse(string(data))
}

// Delete removes a saved workflow.
func (m *Manager) Delete(name string) error {
	if err := os.Remove(m.pathFor(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return err
	}
	return nil
}

// List returns summaries for every saved workflow, sorted by name.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), Extension)
		info := Info{Name: name}
		if doc, err := m.Load(name); err == nil {
			if desc, ok := doc.Metadata["description"].(string); ok {
				info.Description = desc
			}
			if count, ok := doc.Metadata["execution_count"].(int); ok {
				info.ExecutionCount = count
			}
			if updated, ok := doc.Metadata["updated_at"].(string); ok {
				info.UpdatedAt = updated
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Resolve turns a workflow reference into a parsed document.
//
// Resolution order:
//  1. content with newlines parses as raw markdown
//  2. a reference ending in .pflow.md loads as a file path
//  3. anything else tries the library by name, then as a file path
//
// Unknown names come back with "did you mean" suggestions.
func (m *Manager) Resolve(ref string) (*markdown.Document, Source, error) {
	if strings.Contains(ref, "\n") {
		doc, err := markdown.Parse(ref)
		if err != nil {
			return nil, "", fmt.Errorf("invalid markdown content: %w", err)
		}
		return doc, SourceContent, nil
	}

	if strings.HasSuffix(strings.ToLower(ref), Extension) {
		doc, err := loadFile(ref)
		if err != nil {
			return nil, "", err
		}
		return doc, SourceFile, nil
	}

	if m.Exists(ref) {
		doc, err := m.Load(ref)
		if err != nil {
			return nil, "", err
		}
		return doc, SourceLibrary, nil
	}

	if _, err := os.Stat(ref); err == nil {
		doc, err := loadFile(ref)
		if err != nil {
			return nil, "", err
		}
		return doc, SourceFile, nil
	}

	message := fmt.Sprintf("workflow not found: %q", ref)
	if suggestions := m.Suggestions(ref); len(suggestions) > 0 {
		message += "\n\nDid you mean one of these?\n"
		for _, s := range suggestions {
			message += "  - " + s + "\n"
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNotFound, message)
}

// Suggestions returns saved workflow names similar to query.
func (m *Manager) Suggestions(query string) []string {
	infos, err := m.List()
	if err != nil {
		return nil
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	similar := runtime.SimilarIdentifiers(query, names)
	if len(similar) > 5 {
		similar = similar[:5]
	}
	return similar
}

func loadFile(path string) (*markdown.Document, error) {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file %q", ErrNotFound, path)
		}
		return nil, err
	}
	doc, err := markdown.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("invalid workflow file %q: %w", path, err)
	}
	return doc, nil
}

// RecordExecution updates a saved workflow's metadata after a successful
// run: bumps execution_count, stamps updated_at, and stores the execution
// parameters with secrets redacted. Parameters whose values came from the
// environment-expansion helper are redacted regardless of name.
func (m *Manager) RecordExecution(name string, params map[string]any, envParams []string) error {
	doc, err := m.Load(name)
	if err != nil {
		return err
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	count, _ := doc.Metadata["execution_count"].(int)
	doc.Metadata["execution_count"] = count + 1
	doc.Metadata["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	if params != nil {
		// Hidden bookkeeping keys never persist.
		visible := make(map[string]any, len(params))
		for key, value := range params {
			if strings.HasPrefix(key, "__") {
				continue
			}
			visible[key] = value
		}
		doc.Metadata["last_execution_params"] = engine.Sanitize(visible, envParams)
	}

	content, err := markdown.Write(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(m.pathFor(name), []byte(content), 0o644)
}
