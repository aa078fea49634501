package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// ToolParameter defines a parameter for a tool.
// Type is a JSON Schema type name; alternatives are separated by "|" (e.g. "boolean|string").
type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolHandler performs one tool's effect and returns human-readable text.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    ToolCategory    `json:"category"`
	Parameters  []ToolParameter `json:"parameters"`
	Handler     ToolHandler     `json:"-"`
}

// Registry maps tool names to handlers.
type Registry struct {
	tools   map[string]*ToolDefinition
	schemas map[string]*gojsonschema.Schema
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]*ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// RegisterTool registers a new tool
func (r *Registry) RegisterTool(def ToolDefinition) error {
	if err := validateToolDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schema, err := generateJSONSchema(def)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, def.Name)
	}

	r.tools[def.Name] = &def
	r.schemas[def.Name] = schema

	log.Debug().Str("tool", def.Name).Str("category", string(def.Category)).Msg("Tool registered")

	return nil
}

// HasTool reports whether a tool is registered under name
func (r *Registry) HasTool(name string) bool {
	return r.GetTool(name) != nil
}

// GetTool returns a tool definition by name, or nil
func (r *Registry) GetTool(name string) *ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tools[strings.TrimSpace(name)]
}

// ListTools returns all registered tool names, sorted
func (r *Registry) ListTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Definitions returns copies of all tool definitions, sorted by name
func (r *Registry) Definitions() []ToolDefinition {
	names := r.ListTools()

	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(names))
	for _, name := range names {
		if def, ok := r.tools[name]; ok {
			defs = append(defs, *def)
		}
	}
	return defs
}

// Dispatch invokes the named tool's handler with args exactly as given.
// A handler panic is returned as an error.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (result string, err error) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	tool := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if tool == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if err := validateArguments(schema, args); err != nil {
		return "", fmt.Errorf("%s: %w: %v", name, ErrInvalidArgument, err)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("tool", name).Interface("panic", p).Msg("Tool handler panicked")
			result, err = "", fmt.Errorf("%s: handler panic: %v", name, p)
		}
	}()

	return tool.Handler(ctx, args)
}

var validParamTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

// validateToolDefinition validates a tool definition
func validateToolDefinition(def ToolDefinition) error {
	if strings.TrimSpace(def.Name) == "" || def.Name != strings.TrimSpace(def.Name) {
		return fmt.Errorf("tool name cannot be empty or padded")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}
	if def.Category != "" && !IsValidCategory(string(def.Category)) {
		return fmt.Errorf("invalid category %s for %s", def.Category, def.Name)
	}

	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if param.Type == "" {
			return fmt.Errorf("parameter type cannot be empty for %s", param.Name)
		}
		if param.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		}
		for _, typ := range paramTypes(param) {
			if !validParamTypes[typ] {
				return fmt.Errorf("invalid parameter type %s for %s", typ, param.Name)
			}
		}
	}

	return nil
}

func paramTypes(param ToolParameter) []string {
	parts := strings.Split(param.Type, "|")
	types := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, part)
		}
	}
	return types
}

// generateJSONSchema builds a type-checking schema from tool parameters.
// Required-ness is not encoded: handlers report missing arguments themselves.
func generateJSONSchema(def ToolDefinition) (*gojsonschema.Schema, error) {
	properties := make(map[string]interface{}, len(def.Parameters))

	for _, param := range def.Parameters {
		paramSchema := map[string]interface{}{
			"description": param.Description,
		}

		types := paramTypes(param)
		if !param.Required {
			// Optional parameters may be sent as null to mean "use the default".
			types = append(types, "null")
		}
		if len(types) == 1 {
			paramSchema["type"] = types[0]
		} else {
			paramSchema["type"] = types
		}

		if param.Default != nil {
			paramSchema["default"] = param.Default
		}

		properties[param.Name] = paramSchema
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": true,
		"properties":           properties,
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}

// validateArguments validates args against a tool schema
func validateArguments(schema *gojsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}

	var doc interface{} = args
	if args == nil {
		doc = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return err
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return errors.New(strings.Join(messages, "; "))
	}

	return nil
}
