package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spinje/pflow/pkg/config"
	"github.com/spinje/pflow/pkg/ir"
	"github.com/spinje/pflow/pkg/logging"
	"github.com/spinje/pflow/pkg/observer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TraceDir = t.TempDir()
	return cfg
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	return New(DefaultRegistry(), WithConfig(testConfig(t)), WithLogger(logging.Discard()))
}

// Linear chain: one shell node echoing an input, one output wired to its
// stdout.
func TestLinearChain(t *testing.T) {
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Inputs:    map[string]ir.Input{"repo": {Type: "str", Required: true}},
		Nodes: []ir.Node{
			{ID: "n1", Type: "shell", Params: map[string]any{"command": "echo ${repo}"}},
		},
		Edges:   []ir.Edge{},
		Outputs: map[string]ir.Output{"result": {Source: "${n1.stdout}"}},
	}

	result, err := newTestExecutor(t).Execute(context.Background(), wf,
		map[string]any{"repo": "anthropics/pflow"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.Success {
		t.Fatalf("success = false: %+v", result.Errors)
	}
	if result.Outputs["result"] != "anthropics/pflow\n" {
		t.Errorf("result = %q", result.Outputs["result"])
	}
	if len(result.Steps) != 1 || result.Steps[0].Status != StatusCompleted {
		t.Errorf("steps = %+v", result.Steps)
	}
}

func TestSharedStorePropagationBetweenNodes(t *testing.T) {
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Nodes: []ir.Node{
			{ID: "producer", Type: "shell", Params: map[string]any{"command": "echo payload"}},
			{ID: "consumer", Type: "shell", Params: map[string]any{
				"command": "cat",
				"stdin":   "${producer.stdout}",
			}},
		},
		Edges:   []ir.Edge{{From: "producer", To: "consumer"}},
		Outputs: map[string]ir.Output{"echoed": {Source: "${consumer.stdout}"}},
	}

	result, err := newTestExecutor(t).Execute(context.Background(), wf, nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.Outputs["echoed"] != "payload\n" {
		t.Errorf("echoed = %q", result.Outputs["echoed"])
	}
}

func TestNamespacedOutputsForRepeatedTypes(t *testing.T) {
	// Both nodes write the flat "stdout" key; each must still be visible
	// under its own node id.
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Nodes: []ir.Node{
			{ID: "a", Type: "shell", Params: map[string]any{"command": "echo first"}},
			{ID: "b", Type: "shell", Params: map[string]any{"command": "echo second"}},
		},
		Edges: []ir.Edge{{From: "a", To: "b"}},
		Outputs: map[string]ir.Output{
			"from_a": {Source: "${a.stdout}"},
			"from_b": {Source: "${b.stdout}"},
		},
	}

	result, err := newTestExecutor(t).Execute(context.Background(), wf, nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.Outputs["from_a"] != "first\n" || result.Outputs["from_b"] != "second\n" {
		t.Errorf("outputs = %v", result.Outputs)
	}
}

func TestMissingRequiredInputFailsBeforeExecution(t *testing.T) {
	sentinel := filepath.Join(t.TempDir(), "executed")
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Inputs:    map[string]ir.Input{"needed": {Type: "str", Required: true}},
		Nodes: []ir.Node{
			{ID: "n1", Type: "shell", Params: map[string]any{"command": "touch " + sentinel + " && echo ${needed}"}},
		},
		Edges: []ir.Edge{},
	}

	_, err := newTestExecutor(t).Execute(context.Background(), wf, nil)
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("err = %v, want ErrMissingInput", err)
	}
	if _, statErr := os.Stat(sentinel); !os.IsNotExist(statErr) {
		t.Error("node executed despite missing required input")
	}
}

func TestInputDefaultsApplied(t *testing.T) {
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Inputs:    map[string]ir.Input{"greeting": {Type: "str", Required: true, Default: "hi"}},
		Nodes: []ir.Node{
			{ID: "n1", Type: "shell", Params: map[string]any{"command": "echo ${greeting}"}},
		},
		Edges:   []ir.Edge{},
		Outputs: map[string]ir.Output{"out": {Source: "${n1.stdout}"}},
	}
	result, err := newTestExecutor(t).Execute(context.Background(), wf, nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.Outputs["out"] != "hi\n" {
		t.Errorf("out = %q", result.Outputs["out"])
	}
}

func TestInputTypeCoercion(t *testing.T) {
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Inputs: map[string]ir.Input{
			"count": {Type: "int"},
			"flag":  {Type: "bool"},
		},
		Nodes: []ir.Node{
			{ID: "n1", Type: "shell", Params: map[string]any{"command": "echo ${count} ${flag}"}},
		},
		Edges:   []ir.Edge{},
		Outputs: map[string]ir.Output{"out": {Source: "${n1.stdout}"}},
	}
	result, err := newTestExecutor(t).Execute(context.Background(), wf,
		map[string]any{"count": "42", "flag": "true"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	// int renders as 42; bool renders capitalised through string conversion.
	if result.Outputs["out"] != "42 True\n" {
		t.Errorf("out = %q", result.Outputs["out"])
	}
}

func TestErrorActionTerminatesRun(t *testing.T) {
	sentinel := filepath.Join(t.TempDir(), "after")
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Nodes: []ir.Node{
			{ID: "boom", Type: "shell", Params: map[string]any{"command": "echo bad >&2; exit 7"}},
			{ID: "after", Type: "shell", Params: map[string]any{"command": "touch " + sentinel}},
		},
		Edges: []ir.Edge{{From: "boom", To: "after"}},
	}

	result, err := newTestExecutor(t).Execute(context.Background(), wf, nil)
	if err == nil {
		t.Fatal("expected run failure")
	}
	if result.Success {
		t.Error("success must be false")
	}
	if _, statErr := os.Stat(sentinel); !os.IsNotExist(statErr) {
		t.Error("downstream node ran after error action")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0].Message, "boom") {
		t.Errorf("errors = %+v", result.Errors)
	}
}

func TestPartialOutputsOnFailure(t *testing.T) {
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Nodes: []ir.Node{
			{ID: "ok", Type: "shell", Params: map[string]any{"command": "echo done"}},
			{ID: "fail", Type: "shell", Params: map[string]any{"command": "exit 1"}},
		},
		Edges: []ir.Edge{{From: "ok", To: "fail"}},
		Outputs: map[string]ir.Output{
			"good": {Source: "${ok.stdout}"},
			"bad":  {Source: "${fail.never_written}"},
		},
	}

	result, err := newTestExecutor(t).Execute(context.Background(), wf, nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if result.Outputs["good"] != "done\n" {
		t.Errorf("resolved partial output missing: %v", result.Outputs)
	}
	if _, ok := result.Outputs["bad"]; ok {
		t.Errorf("unresolvable output should be skipped: %v", result.Outputs)
	}
}

func TestStderrSurfacedInSteps(t *testing.T) {
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Nodes: []ir.Node{
			{ID: "warny", Type: "shell", Params: map[string]any{"command": "echo caution >&2; echo fine"}},
		},
		Edges: []ir.Edge{},
	}
	result, err := newTestExecutor(t).Execute(context.Background(), wf, nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	step := result.Steps[0]
	if !step.HasStderr || !strings.Contains(step.Stderr, "caution") {
		t.Errorf("step = %+v, want stderr surfaced", step)
	}
}

func TestCancellationBetweenNodes(t *testing.T) {
	sentinel := filepath.Join(t.TempDir(), "second")
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Nodes: []ir.Node{
			{ID: "first", Type: "shell", Params: map[string]any{"command": "true"}},
			{ID: "second", Type: "shell", Params: map[string]any{"command": "touch " + sentinel}},
		},
		Edges: []ir.Edge{{From: "first", To: "second"}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := newTestExecutor(t).Execute(ctx, wf, nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if result.Success {
		t.Error("success must be false after cancellation")
	}
	if _, statErr := os.Stat(sentinel); !os.IsNotExist(statErr) {
		t.Error("node ran after cancellation")
	}
}

func TestUnknownNodeTypeFails(t *testing.T) {
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Nodes:     []ir.Node{{ID: "x", Type: "no-such-type"}},
		Edges:     []ir.Edge{},
	}
	result, err := newTestExecutor(t).Execute(context.Background(), wf, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(result.Steps) != 1 || result.Steps[0].Status != StatusFailed {
		t.Errorf("steps = %+v", result.Steps)
	}
}

func TestSimpleTemplateOutputPreservesType(t *testing.T) {
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Inputs:    map[string]ir.Input{"n": {Type: "int"}},
		Nodes: []ir.Node{
			{ID: "noop", Type: "shell", Params: map[string]any{"command": "true"}},
		},
		Edges:   []ir.Edge{},
		Outputs: map[string]ir.Output{"num": {Source: "${n}"}},
	}
	result, err := newTestExecutor(t).Execute(context.Background(), wf, map[string]any{"n": "42"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.Outputs["num"] != 42 {
		t.Errorf("num = %#v, want integer 42", result.Outputs["num"])
	}
}

func TestTraceFileWritten(t *testing.T) {
	cfg := testConfig(t)
	executor := New(DefaultRegistry(), WithConfig(cfg), WithLogger(logging.Discard()))
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Nodes:     []ir.Node{{ID: "n1", Type: "shell", Params: map[string]any{"command": "echo hi"}}},
		Edges:     []ir.Edge{},
	}
	result, err := executor.Execute(context.Background(), wf, nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.TracePath == "" {
		t.Fatal("trace path missing")
	}
	data, err := os.ReadFile(result.TracePath)
	if err != nil {
		t.Fatalf("trace not written: %v", err)
	}
	if !strings.Contains(string(data), result.ExecutionID) {
		t.Error("trace missing execution id")
	}
	if !strings.Contains(filepath.Base(result.TracePath), "workflow-trace-") {
		t.Errorf("trace filename = %q", result.TracePath)
	}
}

func TestTraceRedactsSecrets(t *testing.T) {
	cfg := testConfig(t)
	executor := New(DefaultRegistry(), WithConfig(cfg), WithLogger(logging.Discard()))
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Inputs:    map[string]ir.Input{"api_key": {Type: "str", Required: true}},
		Nodes:     []ir.Node{{ID: "n1", Type: "shell", Params: map[string]any{"command": "true"}}},
		Edges:     []ir.Edge{},
	}
	result, err := executor.Execute(context.Background(), wf, map[string]any{"api_key": "sk-real"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	data, err := os.ReadFile(result.TracePath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "sk-real") {
		t.Error("secret value leaked into trace file")
	}
	if !strings.Contains(string(data), RedactedValue) {
		t.Error("redaction marker missing from trace")
	}
}

func TestObserversReceiveLifecycleEvents(t *testing.T) {
	var events []observer.EventType
	executor := New(DefaultRegistry(),
		WithConfig(testConfig(t)),
		WithLogger(logging.Discard()),
		WithObserver(observer.Func(func(_ context.Context, e observer.Event) {
			events = append(events, e.Type)
		})),
	)
	wf := &ir.Workflow{
		IRVersion: ir.CurrentVersion,
		Nodes:     []ir.Node{{ID: "n1", Type: "shell", Params: map[string]any{"command": "true"}}},
		Edges:     []ir.Edge{},
	}
	if _, err := executor.Execute(context.Background(), wf, nil); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	want := []observer.EventType{
		observer.EventWorkflowStart,
		observer.EventNodeStart,
		observer.EventNodeSuccess,
		observer.EventWorkflowEnd,
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}
