package llm

import (
	"encoding/json"

	"google.golang.org/genai"
)

// Schema is the subset of JSON Schema the structured-output backends share.
// Properties keep declaration order so every backend sees the same layout.
type Schema struct {
	Type        string
	Description string
	Properties  []Property
	Items       *Schema
	Enum        []string
	Minimum     *float64
	Maximum     *float64
	MinItems    *int64
}

// Property is a named field of an object schema. All properties are required.
type Property struct {
	Name   string
	Schema *Schema
}

// Object builds an object schema.
func Object(props ...Property) *Schema {
	return &Schema{Type: "object", Properties: props}
}

// Prop pairs a field name with its schema.
func Prop(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

// String builds a string schema.
func String(desc string) *Schema {
	return &Schema{Type: "string", Description: desc}
}

// Enum builds a string schema restricted to values.
func Enum(desc string, values ...string) *Schema {
	return &Schema{Type: "string", Description: desc, Enum: values}
}

// Integer builds an integer schema bounded to [min, max].
func Integer(desc string, min, max float64) *Schema {
	return &Schema{Type: "integer", Description: desc, Minimum: &min, Maximum: &max}
}

// Array builds an array schema.
func Array(desc string, items *Schema, minItems int64) *Schema {
	s := &Schema{Type: "array", Description: desc, Items: items}
	if minItems > 0 {
		s.MinItems = &minItems
	}
	return s
}

// Map renders strict JSON Schema: every property required, no additional
// properties. Numeric bounds are left to the description and to
// post-processing since strict mode rejects some keywords on older models.
func (s *Schema) Map() map[string]any {
	m := map[string]any{"type": s.Type}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}
	if s.Items != nil {
		m["items"] = s.Items.Map()
	}
	if s.Type == "object" {
		props := make(map[string]any, len(s.Properties))
		required := make([]string, 0, len(s.Properties))
		for _, p := range s.Properties {
			props[p.Name] = p.Schema.Map()
			required = append(required, p.Name)
		}
		m["properties"] = props
		m["required"] = required
		m["additionalProperties"] = false
	}
	return m
}

// JSON renders the schema for embedding in a prompt.
func (s *Schema) JSON() string {
	b, err := json.MarshalIndent(s.Map(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Genai converts the schema for the Gemini response schema.
func (s *Schema) Genai() *genai.Schema {
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
		MinItems:    s.MinItems,
	}
	if s.Items != nil {
		out.Items = s.Items.Genai()
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for _, p := range s.Properties {
			out.Properties[p.Name] = p.Schema.Genai()
			out.Required = append(out.Required, p.Name)
			out.PropertyOrdering = append(out.PropertyOrdering, p.Name)
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	types := map[string]genai.Type{
		"object":  genai.TypeObject,
		"array":   genai.TypeArray,
		"string":  genai.TypeString,
		"integer": genai.TypeInteger,
		"number":  genai.TypeNumber,
		"boolean": genai.TypeBoolean,
	}
	if gt, ok := types[t]; ok {
		return gt
	}
	return genai.TypeString
}
