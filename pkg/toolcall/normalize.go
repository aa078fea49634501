package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidShape is returned when a raw call matches none of the accepted shapes.
var ErrInvalidShape = errors.New("invalid tool call shape")

// ToolCall is the canonical form of a proposed tool invocation.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Shape identifies the wire variant a call was decoded from.
type Shape int

const (
	ShapeCanonical Shape = iota + 1 // {"name", "args"}
	ShapeTool                       // {"tool", "args"}
	ShapeArguments                  // {"name", "arguments"} with object or JSON string arguments
	ShapeEncoded                    // a JSON string holding one of the object shapes
)

func (s Shape) String() string {
	switch s {
	case ShapeCanonical:
		return "canonical"
	case ShapeTool:
		return "tool"
	case ShapeArguments:
		return "arguments"
	case ShapeEncoded:
		return "encoded"
	default:
		return "unknown"
	}
}

// Variant is one decoded wire shape. The concrete types below are the only implementations.
type Variant interface {
	Shape() Shape
	Call() ToolCall
	variant()
}

// CanonicalVariant is {"name": ..., "args": {...}}.
type CanonicalVariant struct {
	Name string
	Args map[string]any
}

// ToolVariant is {"tool": ..., "args": {...}}.
type ToolVariant struct {
	Tool string
	Args map[string]any
}

// ArgumentsVariant is {"name": ..., "arguments": ...}. Encoded reports whether
// the arguments arrived as a JSON string.
type ArgumentsVariant struct {
	Name    string
	Args    map[string]any
	Encoded bool
}

// EncodedVariant wraps the object shape found inside a JSON string.
type EncodedVariant struct {
	Inner Variant
}

func (CanonicalVariant) Shape() Shape { return ShapeCanonical }
func (ToolVariant) Shape() Shape      { return ShapeTool }
func (ArgumentsVariant) Shape() Shape { return ShapeArguments }
func (EncodedVariant) Shape() Shape   { return ShapeEncoded }

func (v CanonicalVariant) Call() ToolCall { return ToolCall{Name: v.Name, Args: v.Args} }
func (v ToolVariant) Call() ToolCall      { return ToolCall{Name: v.Tool, Args: v.Args} }
func (v ArgumentsVariant) Call() ToolCall { return ToolCall{Name: v.Name, Args: v.Args} }
func (v EncodedVariant) Call() ToolCall   { return v.Inner.Call() }

func (CanonicalVariant) variant() {}
func (ToolVariant) variant()      {}
func (ArgumentsVariant) variant() {}
func (EncodedVariant) variant()   {}

// maxDecodeDepth bounds string re-parsing to a single level.
const maxDecodeDepth = 1

type decoder func(raw any, depth int) (Variant, bool)

// decoders is the fixed priority order. It is assigned in init because
// decodeEncoded recurses through decode.
var decoders []decoder

func init() {
	decoders = []decoder{
		decodeCanonical,
		decodeTool,
		decodeArguments,
		decodeEncoded,
	}
}

// Normalize converts a raw call into its canonical form.
func Normalize(raw any) (ToolCall, error) {
	v, err := Decode(raw)
	if err != nil {
		return ToolCall{}, err
	}
	return v.Call(), nil
}

// Decode identifies which accepted shape raw is.
func Decode(raw any) (Variant, error) {
	if v, ok := decode(raw, 0); ok {
		return v, nil
	}
	return nil, ErrInvalidShape
}

func decode(raw any, depth int) (Variant, bool) {
	if raw == nil {
		return nil, false
	}
	for _, d := range decoders {
		if v, ok := d(raw, depth); ok {
			return v, true
		}
	}
	return nil, false
}

func decodeCanonical(raw any, _ int) (Variant, bool) {
	if call, ok := asToolCall(raw); ok {
		if call.Name == "" || call.Args == nil {
			return nil, false
		}
		return CanonicalVariant{Name: call.Name, Args: call.Args}, true
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	name, ok := stringField(obj, "name")
	if !ok {
		return nil, false
	}
	args, ok := obj["args"].(map[string]any)
	if !ok || args == nil {
		return nil, false
	}
	return CanonicalVariant{Name: name, Args: args}, true
}

func decodeTool(raw any, _ int) (Variant, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	tool, ok := stringField(obj, "tool")
	if !ok {
		return nil, false
	}
	args, ok := obj["args"].(map[string]any)
	if !ok || args == nil {
		return nil, false
	}
	return ToolVariant{Tool: tool, Args: args}, true
}

func decodeArguments(raw any, _ int) (Variant, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	name, ok := stringField(obj, "name")
	if !ok {
		return nil, false
	}

	switch arguments := obj["arguments"].(type) {
	case map[string]any:
		if arguments == nil {
			return nil, false
		}
		return ArgumentsVariant{Name: name, Args: arguments}, true
	case string:
		// Providers send "" for tools without parameters.
		if strings.TrimSpace(arguments) == "" {
			return ArgumentsVariant{Name: name, Args: map[string]any{}, Encoded: true}, true
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(arguments), &args); err != nil || args == nil {
			return nil, false
		}
		return ArgumentsVariant{Name: name, Args: args, Encoded: true}, true
	default:
		return nil, false
	}
}

func decodeEncoded(raw any, depth int) (Variant, bool) {
	if depth >= maxDecodeDepth {
		return nil, false
	}

	var data []byte
	switch s := raw.(type) {
	case string:
		data = []byte(s)
	case []byte:
		data = s
	case json.RawMessage:
		data = s
	default:
		return nil, false
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false
	}

	inner, ok := decode(parsed, depth+1)
	if !ok {
		return nil, false
	}
	return EncodedVariant{Inner: inner}, true
}

func asToolCall(raw any) (ToolCall, bool) {
	switch c := raw.(type) {
	case ToolCall:
		return ToolCall{Name: strings.TrimSpace(c.Name), Args: c.Args}, true
	case *ToolCall:
		if c == nil {
			return ToolCall{}, false
		}
		return ToolCall{Name: strings.TrimSpace(c.Name), Args: c.Args}, true
	default:
		return ToolCall{}, false
	}
}

func stringField(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// String renders the call name only; arguments stay out of logs.
func (c ToolCall) String() string {
	return fmt.Sprintf("ToolCall(%s)", c.Name)
}
