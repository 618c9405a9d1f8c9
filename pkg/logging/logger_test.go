package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Output: &buf}).
		WithWorkflowID("wf-1").
		WithExecutionID("exec-1").
		WithNodeID("n1")
	log.Info("node execution started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	for key, want := range map[string]string{
		"workflow_id":  "wf-1",
		"execution_id": "exec-1",
		"node_id":      "n1",
		"msg":          "node execution started",
	} {
		if record[key] != want {
			t.Errorf("%s = %v, want %q", key, record[key], want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})
	log.Info("hidden")
	log.Warn("visible")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message leaked through warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn message missing")
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if parseLevel("nonsense") != parseLevel("info") {
		t.Error("unknown level should default to info")
	}
}

func TestContextRoundTrip(t *testing.T) {
	log := Discard()
	ctx := log.WithContext(context.Background())
	if FromContext(ctx) != log {
		t.Error("logger lost in context round trip")
	}
	// Missing logger falls back to a default, never nil.
	if FromContext(context.Background()) == nil {
		t.Error("FromContext must not return nil")
	}
}

func TestPrettyHandlerSelected(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf, Pretty: true})
	log.Info("hello")
	if json.Valid(buf.Bytes()) {
		t.Error("pretty mode should not emit JSON")
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("message missing from output: %q", buf.String())
	}
}
