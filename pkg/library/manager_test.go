package library

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spinje/pflow/pkg/engine"
	"github.com/spinje/pflow/pkg/ir"
	"github.com/spinje/pflow/pkg/markdown"
)

func sampleDoc(t *testing.T) *markdown.Document {
	t.Helper()
	return &markdown.Document{
		Title:    "Sample",
		Metadata: map[string]any{"description": "A sample workflow"},
		Workflow: &ir.Workflow{
			IRVersion: ir.CurrentVersion,
			Nodes: []ir.Node{
				{ID: "n1", Type: "shell", Purpose: "Say hello.",
					Params: map[string]any{"command": "echo hello"}},
			},
			Edges: []ir.Edge{},
		},
	}
}

func TestSaveLoadDelete(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.Save("greeter", sampleDoc(t)); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if !m.Exists("greeter") {
		t.Fatal("saved workflow should exist")
	}

	doc, err := m.Load("greeter")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if doc.Workflow.Nodes[0].Params["command"] != "echo hello" {
		t.Errorf("loaded workflow = %+v", doc.Workflow.Nodes[0])
	}
	if _, ok := doc.Metadata["created_at"]; !ok {
		t.Error("created_at not stamped on save")
	}

	if err := m.Delete("greeter"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if m.Exists("greeter") {
		t.Error("workflow should be gone")
	}
	if err := m.Delete("greeter"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSaveRejectsBadNames(t *testing.T) {
	m := NewManager(t.TempDir())
	for _, name := range []string{"../escape", "has space", "", ".hidden"} {
		if err := m.Save(name, sampleDoc(t)); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Save(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestList(t *testing.T) {
	m := NewManager(t.TempDir())
	for _, name := range []string{"beta", "alpha"} {
		if err := m.Save(name, sampleDoc(t)); err != nil {
			t.Fatal(err)
		}
	}
	infos, err := m.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "alpha" || infos[1].Name != "beta" {
		t.Errorf("infos = %+v", infos)
	}
	if infos[0].Description != "A sample workflow" {
		t.Errorf("description = %q", infos[0].Description)
	}
}

func TestListEmptyLibrary(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"))
	infos, err := m.List()
	if err != nil || infos != nil {
		t.Errorf("List = %v, %v", infos, err)
	}
}

func TestResolveByName(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.Save("my-workflow", sampleDoc(t)); err != nil {
		t.Fatal(err)
	}
	doc, source, err := m.Resolve("my-workflow")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if source != SourceLibrary || doc == nil {
		t.Errorf("source = %q", source)
	}
}

func TestResolveByPath(t *testing.T) {
	m := NewManager(t.TempDir())
	content, err := markdown.Write(sampleDoc(t))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "external.pflow.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, source, err := m.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if source != SourceFile || doc == nil {
		t.Errorf("source = %q", source)
	}
}

func TestResolveRawContent(t *testing.T) {
	m := NewManager(t.TempDir())
	content, err := markdown.Write(sampleDoc(t))
	if err != nil {
		t.Fatal(err)
	}
	doc, source, err := m.Resolve(content)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if source != SourceContent || doc == nil {
		t.Errorf("source = %q", source)
	}
}

func TestResolveUnknownSuggests(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.Save("text-analyzer", sampleDoc(t)); err != nil {
		t.Fatal(err)
	}
	_, _, err := m.Resolve("text-analyz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "text-analyzer") {
		t.Errorf("suggestions missing:\n%v", err)
	}
}

func TestRecordExecution(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.Save("secretive", sampleDoc(t)); err != nil {
		t.Fatal(err)
	}

	params := map[string]any{
		"repo":    "anthropics/pflow",
		"api_key": "sk-real",
		"covert":  "env-sourced",
	}
	if err := m.RecordExecution("secretive", params, []string{"covert"}); err != nil {
		t.Fatalf("RecordExecution error: %v", err)
	}

	doc, err := m.Load("secretive")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Metadata["execution_count"] != 1 {
		t.Errorf("execution_count = %v", doc.Metadata["execution_count"])
	}
	last, ok := doc.Metadata["last_execution_params"].(map[string]any)
	if !ok {
		t.Fatalf("last_execution_params = %#v", doc.Metadata["last_execution_params"])
	}
	if last["api_key"] != engine.RedactedValue {
		t.Errorf("api_key = %v, want redacted", last["api_key"])
	}
	if last["covert"] != engine.RedactedValue {
		t.Errorf("env-sourced param = %v, want redacted", last["covert"])
	}
	if last["repo"] != "anthropics/pflow" {
		t.Errorf("repo = %v", last["repo"])
	}

	// Raw secret must not appear anywhere in the persisted file.
	raw, err := os.ReadFile(filepath.Join(m.dir, "secretive"+Extension))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "sk-real") {
		t.Error("secret leaked into persisted workflow file")
	}

	if err := m.RecordExecution("secretive", nil, nil); err != nil {
		t.Fatal(err)
	}
	doc, _ = m.Load("secretive")
	if doc.Metadata["execution_count"] != 2 {
		t.Errorf("execution_count = %v, want 2", doc.Metadata["execution_count"])
	}
}

func TestRecordExecutionFiltersHiddenKeys(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.Save("wf", sampleDoc(t)); err != nil {
		t.Fatal(err)
	}
	params := map[string]any{
		"repo":                "a/b",
		"__env_param_names__": []string{"repo"},
		"__template_errors__": map[string]any{},
	}
	if err := m.RecordExecution("wf", params, []string{"repo"}); err != nil {
		t.Fatal(err)
	}
	doc, err := m.Load("wf")
	if err != nil {
		t.Fatal(err)
	}
	last := doc.Metadata["last_execution_params"].(map[string]any)
	for key := range last {
		if strings.HasPrefix(key, "__") {
			t.Errorf("hidden key %q persisted", key)
		}
	}
	if last["repo"] != engine.RedactedValue {
		t.Errorf("env-listed param not redacted: %v", last["repo"])
	}
}
