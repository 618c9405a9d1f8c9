package coerce

import (
	"reflect"
	"strings"
	"testing"
)

func TestToDeclaredType(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		declared string
		want     any
	}{
		{name: "map to str serialises", value: map[string]any{"k": "v"}, declared: TypeStr, want: `{"k":"v"}`},
		{name: "slice to str serialises", value: []any{1, "a"}, declared: TypeStr, want: `[1,"a"]`},
		{name: "string to str unchanged", value: "hello", declared: TypeStr, want: "hello"},
		{name: "any passes through", value: map[string]any{"k": "v"}, declared: TypeAny, want: map[string]any{"k": "v"}},
		{name: "mismatched scalar passes through", value: "7", declared: TypeInt, want: "7"},
		{name: "map to dict unchanged", value: map[string]any{"k": "v"}, declared: TypeDict, want: map[string]any{"k": "v"}},
		{name: "no type info passes through", value: []any{1}, declared: "", want: []any{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDeclaredType(tt.value, tt.declared)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToDeclaredType(%v, %q) = %v, want %v", tt.value, tt.declared, got, tt.want)
			}
		})
	}
}

func TestTryParseJSON(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		wantOK bool
		want   any
	}{
		{name: "object", s: `{"a": 1}`, wantOK: true, want: map[string]any{"a": 1}},
		{name: "array", s: `[1, 2]`, wantOK: true, want: []any{1, 2}},
		{name: "float preserved", s: `{"x": 1.5}`, wantOK: true, want: map[string]any{"x": 1.5}},
		{name: "integer stays integer", s: `{"n": 42}`, wantOK: true, want: map[string]any{"n": 42}},
		{name: "bare string", s: `"hi"`, wantOK: true, want: "hi"},
		{name: "single quotes invalid", s: `{'a': 1}`, wantOK: false},
		{name: "trailing garbage invalid", s: `{"a":1} extra`, wantOK: false},
		{name: "empty", s: "", wantOK: false},
		{name: "whitespace only", s: "  \n ", wantOK: false},
		{name: "plain text", s: "not json", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TryParseJSON(tt.s)
			if ok != tt.wantOK {
				t.Fatalf("TryParseJSON(%q) ok = %v, want %v", tt.s, ok, tt.wantOK)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TryParseJSON(%q) = %#v, want %#v", tt.s, got, tt.want)
			}
		})
	}
}

func TestLooksLikeJSON(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{`{"a":1}`, true},
		{`  [1]`, true},
		{`plain`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := LooksLikeJSON(tt.s); got != tt.want {
			t.Errorf("LooksLikeJSON(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"url": "https://x?a=1&b=<2>"})
	if err != nil {
		t.Fatalf("MarshalCanonical error: %v", err)
	}
	if strings.Contains(got, `\u003c`) || strings.Contains(got, `\u0026`) {
		t.Errorf("MarshalCanonical escaped HTML characters: %s", got)
	}
}

func TestDiagnoseJSON(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want []string
	}{
		{
			name: "single quotes",
			s:    `{'key': 'value'}`,
			want: []string{`Single quotes detected (use double quotes: "key" not 'key')`},
		},
		{
			name: "unmatched brace",
			s:    `{"a": 1`,
			want: []string{"Mismatched braces { }"},
		},
		{
			name: "trailing comma",
			s:    `{"a": 1,}`,
			want: []string{"Trailing comma before closing brace/bracket"},
		},
		{
			name: "clean but unparseable elsewhere",
			s:    `{"a": undefined}`,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiagnoseJSON(tt.s)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DiagnoseJSON(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestJSONParseErrorMessage(t *testing.T) {
	msg := JSONParseErrorMessage("payload", `{'bad': 1}`, "${n1.stdout}", TypeDict)
	for _, fragment := range []string{
		"Parameter 'payload' expects dict",
		"Template: ${n1.stdout}",
		"Single quotes detected",
		"Fix: Ensure the source outputs valid JSON.",
	} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("message missing %q:\n%s", fragment, msg)
		}
	}
}

func TestJSONParseErrorMessagePreviewTruncated(t *testing.T) {
	long := "{" + strings.Repeat("x", 500)
	msg := JSONParseErrorMessage("p", long, "${t}", TypeList)
	if !strings.Contains(msg, "...") {
		t.Errorf("long value preview not truncated:\n%s", msg)
	}
}
