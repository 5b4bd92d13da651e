package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/core/types"
)

// isNone reports whether a directive argument means "no value".
func isNone(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "None"
}

// unquote strips one leading and one trailing quote character.
func unquote(s string) string {
	if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, `'`) {
		s = s[1:]
	}
	if strings.HasSuffix(s, `"`) || strings.HasSuffix(s, `'`) {
		s = s[:len(s)-1]
	}
	return s
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// parseIndices parses "1" or "0,2" into enum/band indices.
func parseIndices(s string, options []string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if i, err := strconv.Atoi(part); err == nil {
			out = append(out, i)
			continue
		}
		found := false
		for i, opt := range options {
			if opt == part {
				out = append(out, i)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid index %q", part)
		}
	}
	return out, nil
}

// convertDefault turns the textual default of a directive into the typed
// value stored on the parameter. Legacy and typed forms both go through
// here so equal text yields equal defaults.
func convertDefault(kind model.ParameterKind, raw string) (any, error) {
	if isNone(raw) {
		return nil, nil
	}
	raw = strings.TrimSpace(raw)

	switch k := kind.(type) {
	case model.Number, model.Distance, model.Scale:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		return f, nil
	case model.Boolean:
		return parseBool(raw)
	case model.Enum:
		idx, err := parseIndices(raw, k.Options)
		if err != nil {
			return nil, err
		}
		for _, i := range idx {
			if i < 0 || i >= len(k.Options) {
				return nil, fmt.Errorf("enum default %d out of range [0,%d)", i, len(k.Options))
			}
		}
		if k.AllowMultiple {
			return idx, nil
		}
		if len(idx) != 1 {
			return nil, fmt.Errorf("single enum default expected, got %q", raw)
		}
		return idx[0], nil
	case model.Band:
		idx, err := parseIndices(raw, nil)
		if err != nil {
			return nil, err
		}
		if k.AllowMultiple {
			return idx, nil
		}
		return idx[0], nil
	case model.Point:
		return types.ParsePoint(raw)
	case model.Extent:
		return types.ParseExtent(raw)
	case model.Range:
		return types.ParseRange(raw)
	case model.Color:
		return types.ParseColor(raw)
	case model.Crs:
		return types.ParseCRS(raw)
	case model.DateTime:
		return types.ParseDateTime(raw, k.Type)
	case model.Field:
		if k.AllowMultiple {
			return strings.Split(raw, ";"), nil
		}
		return raw, nil
	default:
		return raw, nil
	}
}
