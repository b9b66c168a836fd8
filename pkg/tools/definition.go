// Package tools provides tool definitions, the tool registry and argument parsing.
package tools

// ToolDefinition describes a tool to the model: its name, purpose and JSON input schema.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// InputSchema is the top-level JSON schema of a tool's arguments.
type InputSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

// Property is a single JSON schema property.
//
//nolint:govet // fieldalignment: schema field order mirrors JSON schema
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	MinItems    *int                 `json:"minItems,omitempty"`
}

// JSONSchema renders the input schema as a generic JSON schema object.
func (s *InputSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name := range s.Properties {
		prop := s.Properties[name]
		props[name] = prop.JSONSchema()
	}
	typ := s.Type
	if typ == "" {
		typ = "object"
	}
	schema := map[string]any{
		"type":                 typ,
		"properties":           props,
		"additionalProperties": s.AdditionalProperties,
	}
	if len(s.Required) > 0 {
		schema["required"] = s.Required
	}
	return schema
}

// JSONSchema renders a property recursively.
func (p *Property) JSONSchema() map[string]any {
	schema := map[string]any{"type": p.Type}
	if p.Description != "" {
		schema["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		schema["enum"] = p.Enum
	}
	if p.Items != nil {
		schema["items"] = p.Items.JSONSchema()
	}
	if p.MinItems != nil {
		schema["minItems"] = *p.MinItems
	}
	if len(p.Properties) > 0 {
		children := make(map[string]any, len(p.Properties))
		for name, child := range p.Properties {
			if child != nil {
				children[name] = child.JSONSchema()
			}
		}
		schema["properties"] = children
	}
	return schema
}
