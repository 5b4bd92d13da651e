package model

import (
	"github.com/opal-lang/rsx/core/types"
)

// InputSchema describes the caller input document of the algorithm: one
// property per parameter, no others. Required parameters without a
// default must be present. Every property also accepts null, which binds
// NULL in the generated script.
func (a *Algorithm) InputSchema() types.JSONSchema {
	props := make(map[string]any, len(a.Parameters))
	var required []string
	for _, p := range a.Parameters {
		s := propertySchema(p.Kind)
		if p.Description != "" {
			s["description"] = p.Description
		}
		props[p.Name] = s
		if p.Required() && p.Default == nil && !p.IsDestination() {
			required = append(required, p.Name)
		}
	}

	schema := types.JSONSchema{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func anyOf(names ...string) []any {
	out := make([]any, 0, len(names)+1)
	for _, n := range names {
		out = append(out, n)
	}
	return append(out, "null")
}

func propertySchema(kind ParameterKind) map[string]any {
	stringList := map[string]any{
		"type":  anyOf("string", "array"),
		"items": map[string]any{"type": "string"},
	}
	indices := map[string]any{
		"type":  anyOf("integer", "string", "array"),
		"items": map[string]any{"type": []any{"integer", "string"}},
	}

	switch k := kind.(type) {
	case MultipleLayers:
		return stringList
	case Field:
		if k.AllowMultiple {
			return stringList
		}
		return map[string]any{"type": anyOf("string")}
	case Number:
		s := map[string]any{"type": anyOf("number", "string")}
		if k.Min != nil {
			s["minimum"] = *k.Min
		}
		if k.Max != nil {
			s["maximum"] = *k.Max
		}
		return s
	case Distance, Scale:
		return map[string]any{"type": anyOf("number", "string")}
	case Boolean:
		return map[string]any{"type": anyOf("boolean", "string")}
	case Enum, Band:
		return indices
	case Point:
		return map[string]any{"type": anyOf("string"), "format": "rsx-point"}
	case Extent:
		return map[string]any{"type": anyOf("string"), "format": "rsx-extent"}
	case Color:
		return map[string]any{"type": anyOf("string"), "format": "rsx-color"}
	case Range:
		return map[string]any{
			"type":   anyOf("string", "array"),
			"format": "rsx-range",
			"items":  map[string]any{"type": []any{"number", "string"}},
		}
	case DateTime:
		if k.Type == types.KindTime {
			return map[string]any{"type": anyOf("string")}
		}
		return map[string]any{"type": anyOf("string"), "format": "rsx-datetime"}
	default:
		return map[string]any{"type": anyOf("string")}
	}
}
