package template

import (
	"reflect"
	"testing"
)

func TestHasTemplates(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{name: "plain string", value: "hello", want: false},
		{name: "template string", value: "echo ${repo}", want: true},
		{name: "nested map", value: map[string]any{"headers": map[string]any{"Authorization": "Bearer ${token}"}}, want: true},
		{name: "nested slice", value: []any{"a", []any{"${x}"}}, want: true},
		{name: "map without templates", value: map[string]any{"a": 1, "b": true}, want: false},
		{name: "non-string scalar", value: 42, want: false},
		{name: "nil", value: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasTemplates(tt.value); got != tt.want {
				t.Errorf("HasTemplates(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want []string
	}{
		{name: "single", s: "Visit ${url}", want: []string{"url"}},
		{name: "dotted path", s: "Title: ${data.title}", want: []string{"data.title"}},
		{name: "multiple", s: "${a} and ${b.c}", want: []string{"a", "b.c"}},
		{name: "escaped skipped", s: "$${not_a_var} but ${real}", want: []string{"real"}},
		{name: "hyphenated identifier", s: "${my-node.stdout}", want: []string{"my-node.stdout"}},
		{name: "invalid start digit", s: "${1abc}", want: nil},
		{name: "none", s: "no templates here", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractVariables(tt.s)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractVariables(%q) = %v, want %v", tt.s, got, tt.want)
			}
			for _, w := range tt.want {
				if _, ok := got[w]; !ok {
					t.Errorf("ExtractVariables(%q) missing %q", tt.s, w)
				}
			}
		})
	}
}

func TestSimpleTemplateVar(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want string
	}{
		{name: "simple", s: "${data}", want: "data"},
		{name: "simple with path", s: "${n1.stdout}", want: "n1.stdout"},
		{name: "complex leading text", s: "result: ${data}", want: ""},
		{name: "complex trailing text", s: "${data}!", want: ""},
		{name: "two templates", s: "${a}${b}", want: ""},
		{name: "escaped", s: "$${data}", want: ""},
		{name: "no template", s: "data", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SimpleTemplateVar(tt.s); got != tt.want {
				t.Errorf("SimpleTemplateVar(%q) = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}

func TestVariableExists(t *testing.T) {
	context := map[string]any{
		"url":   "https://example.com",
		"empty": nil,
		"data": map[string]any{
			"title":  "Test",
			"absent": nil,
		},
		"text": "not a map",
	}
	tests := []struct {
		name    string
		varName string
		want    bool
	}{
		{name: "top level", varName: "url", want: true},
		{name: "top level nil value still exists", varName: "empty", want: true},
		{name: "missing", varName: "missing", want: false},
		{name: "nested", varName: "data.title", want: true},
		{name: "nested final nil exists", varName: "data.absent", want: true},
		{name: "nested missing key", varName: "data.nope", want: false},
		{name: "traverse through non-map", varName: "text.field", want: false},
		{name: "traverse through nil", varName: "empty.field", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VariableExists(tt.varName, context); got != tt.want {
				t.Errorf("VariableExists(%q) = %v, want %v", tt.varName, got, tt.want)
			}
		})
	}
}

func TestResolveValue(t *testing.T) {
	context := map[string]any{
		"count": 42,
		"data": map[string]any{
			"nested": map[string]any{"deep": "value"},
		},
	}
	tests := []struct {
		name    string
		varName string
		want    any
	}{
		{name: "scalar preserves type", varName: "count", want: 42},
		{name: "deep path", varName: "data.nested.deep", want: "value"},
		{name: "missing returns nil", varName: "nope", want: nil},
		{name: "partial path returns nil", varName: "data.missing.deep", want: nil},
		{name: "intermediate map returned whole", varName: "data.nested", want: map[string]any{"deep": "value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveValue(tt.varName, context)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolveValue(%q) = %v, want %v", tt.varName, got, tt.want)
			}
		})
	}
}

func TestResolveString(t *testing.T) {
	context := map[string]any{
		"url":   "https://example.com",
		"count": 0,
		"ok":    true,
		"off":   false,
		"blank": nil,
		"list":  []any{},
		"obj":   map[string]any{},
		"data":  map[string]any{"title": "Test"},
	}
	tests := []struct {
		name string
		s    string
		want string
	}{
		{name: "simple substitution", s: "Visit ${url}", want: "Visit https://example.com"},
		{name: "dotted path", s: "Title: ${data.title}", want: "Title: Test"},
		{name: "unresolved left literal", s: "Missing: ${undefined}", want: "Missing: ${undefined}"},
		{name: "zero renders as 0", s: "n=${count}", want: "n=0"},
		{name: "true capitalised", s: "flag=${ok}", want: "flag=True"},
		{name: "false capitalised", s: "flag=${off}", want: "flag=False"},
		{name: "nil renders empty", s: "v=${blank}.", want: "v=."},
		{name: "empty list", s: "v=${list}", want: "v=[]"},
		{name: "empty map", s: "v=${obj}", want: "v={}"},
		{name: "escape yields literal", s: "$${url}", want: "${url}"},
		{name: "escape beside real", s: "$${x} ${url}", want: "${x} https://example.com"},
		{name: "partial resolution", s: "${url} ${missing}", want: "https://example.com ${missing}"},
		{name: "repeated variable", s: "${url}/${url}", want: "https://example.com/https://example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveString(tt.s, context); got != tt.want {
				t.Errorf("ResolveString(%q) = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}

func TestResolveStringPathThroughNil(t *testing.T) {
	context := map[string]any{"a": nil}
	// Traversal through nil cannot resolve; the template must stay literal.
	if got := ResolveString("${a.b}", context); got != "${a.b}" {
		t.Errorf("ResolveString = %q, want literal template", got)
	}
}

func TestResolveNested(t *testing.T) {
	context := map[string]any{"token": "abc123", "channel": "C123"}
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{
			name:  "nested map",
			value: map[string]any{"headers": map[string]any{"Authorization": "Bearer ${token}"}},
			want:  map[string]any{"headers": map[string]any{"Authorization": "Bearer abc123"}},
		},
		{
			name:  "slice",
			value: []any{"${token}", "static", 7},
			want:  []any{"abc123", "static", 7},
		},
		{
			name:  "non-string scalars untouched",
			value: map[string]any{"n": 3, "b": false},
			want:  map[string]any{"n": 3, "b": false},
		},
		{
			name:  "plain string untouched",
			value: "no templates",
			want:  "no templates",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveNested(tt.value, context)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolveNested(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// Values without templates must round-trip ResolveNested unchanged even with
// an empty context.
func TestResolveNestedIdentityWithoutTemplates(t *testing.T) {
	values := []any{
		"plain",
		42,
		true,
		map[string]any{"a": []any{1, 2, map[string]any{"b": "c"}}},
	}
	for _, v := range values {
		got := ResolveNested(v, map[string]any{})
		if !reflect.DeepEqual(got, v) {
			t.Errorf("ResolveNested(%v, {}) = %v, want unchanged", v, got)
		}
	}
}

func TestConvertToString(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "nil", value: nil, want: ""},
		{name: "empty string", value: "", want: ""},
		{name: "true", value: true, want: "True"},
		{name: "false", value: false, want: "False"},
		{name: "zero int", value: 0, want: "0"},
		{name: "zero float", value: 0.0, want: "0"},
		{name: "int", value: 17, want: "17"},
		{name: "float", value: 1.5, want: "1.5"},
		{name: "empty slice", value: []any{}, want: "[]"},
		{name: "empty map", value: map[string]any{}, want: "{}"},
		{name: "slice as json", value: []any{"a", 1}, want: `["a",1]`},
		{name: "map as json", value: map[string]any{"k": "v"}, want: `{"k":"v"}`},
		{name: "no html escaping", value: map[string]any{"u": "a<b>&c"}, want: `{"u":"a<b>&c"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertToString(tt.value); got != tt.want {
				t.Errorf("ConvertToString(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
