package toolcall

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AcceptedShapesAgree(t *testing.T) {
	want := ToolCall{Name: "read_file", Args: map[string]any{"path": "x"}}

	tests := []struct {
		name  string
		raw   any
		shape Shape
	}{
		{
			name:  "canonical object",
			raw:   map[string]any{"name": "read_file", "args": map[string]any{"path": "x"}},
			shape: ShapeCanonical,
		},
		{
			name:  "tool object",
			raw:   map[string]any{"tool": "read_file", "args": map[string]any{"path": "x"}},
			shape: ShapeTool,
		},
		{
			name:  "arguments object",
			raw:   map[string]any{"name": "read_file", "arguments": map[string]any{"path": "x"}},
			shape: ShapeArguments,
		},
		{
			name:  "arguments json string",
			raw:   map[string]any{"name": "read_file", "arguments": `{"path":"x"}`},
			shape: ShapeArguments,
		},
		{
			name:  "encoded canonical",
			raw:   `{"name":"read_file","args":{"path":"x"}}`,
			shape: ShapeEncoded,
		},
		{
			name:  "encoded tool",
			raw:   []byte(`{"tool":"read_file","args":{"path":"x"}}`),
			shape: ShapeEncoded,
		},
		{
			name:  "encoded arguments",
			raw:   json.RawMessage(`{"name":"read_file","arguments":"{\"path\":\"x\"}"}`),
			shape: ShapeEncoded,
		},
		{
			name:  "typed call",
			raw:   ToolCall{Name: "read_file", Args: map[string]any{"path": "x"}},
			shape: ShapeCanonical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, v.Shape())

			if diff := cmp.Diff(want, v.Call()); diff != "" {
				t.Fatalf("normalized call mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_RejectsUnknownShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{name: "nil", raw: nil},
		{name: "nil typed pointer", raw: (*ToolCall)(nil)},
		{name: "number", raw: 42},
		{name: "empty object", raw: map[string]any{}},
		{name: "name without args", raw: map[string]any{"name": "read_file"}},
		{name: "blank name", raw: map[string]any{"name": "  ", "args": map[string]any{}}},
		{name: "args not an object", raw: map[string]any{"name": "read_file", "args": []any{"x"}}},
		{name: "arguments malformed json", raw: map[string]any{"name": "read_file", "arguments": "{path"}},
		{name: "arguments json array", raw: map[string]any{"name": "read_file", "arguments": `["x"]`}},
		{name: "arguments null", raw: map[string]any{"name": "read_file", "arguments": nil}},
		{name: "string not json", raw: "read the file please"},
		{name: "string of json array", raw: `[1,2,3]`},
		{name: "string of null", raw: `null`},
		{name: "typed call without args", raw: ToolCall{Name: "read_file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidShape)
		})
	}
}

func TestNormalize_StringDepthCapped(t *testing.T) {
	inner := `{"name":"read_file","args":{"path":"x"}}`
	twice, err := json.Marshal(inner)
	require.NoError(t, err)

	_, err = Normalize(string(twice))
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestNormalize_PriorityOrder(t *testing.T) {
	raw := map[string]any{
		"name":      "read_file",
		"tool":      "list_dir",
		"args":      map[string]any{"path": "a"},
		"arguments": map[string]any{"path": "b"},
	}

	v, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, ShapeCanonical, v.Shape())
	assert.Equal(t, "read_file", v.Call().Name)
	assert.Equal(t, "a", v.Call().Args["path"])
}

func TestNormalize_EmptyArgumentsString(t *testing.T) {
	call, err := Normalize(map[string]any{"name": "list_tools", "arguments": ""})
	require.NoError(t, err)
	assert.Equal(t, "list_tools", call.Name)
	assert.Empty(t, call.Args)
	assert.NotNil(t, call.Args)
}

func TestNormalize_PreservesArgsIdentity(t *testing.T) {
	args := map[string]any{"path": "x"}
	call, err := Normalize(map[string]any{"name": "read_file", "args": args})
	require.NoError(t, err)

	call.Args["marker"] = true
	assert.Equal(t, true, args["marker"], "canonical args should be the decoded map itself")
}

func TestToolCall_StringOmitsArgs(t *testing.T) {
	call := ToolCall{Name: "read_file", Args: map[string]any{"token": "secret"}}
	assert.Equal(t, "ToolCall(read_file)", call.String())
}
