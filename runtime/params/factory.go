// Package params builds parameter and output descriptors from directive
// bodies, in both the legacy "name=type definition" form and the typed
// "QgsProcessingParameter<Class>|name|description|args..." form.
package params

import (
	"fmt"
	"strings"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/core/types"
	"github.com/opal-lang/rsx/runtime/directive"
)

// literalEnumPhrase marks an enum rendered by option text.
const literalEnumPhrase = "enum literal"

// UnknownTypeError is returned for a directive type no builder handles.
type UnknownTypeError struct {
	Type       string
	Suggestion string // closest known type, may be empty
}

func (e *UnknownTypeError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown parameter type %q (did you mean %q?)", e.Type, e.Suggestion)
	}
	return fmt.Sprintf("unknown parameter type %q", e.Type)
}

type legacyBuilder func(sc directive.ScriptCode) (model.ParameterKind, string, error)

// legacyBuilders map a script type to its kind plus the raw default text.
var legacyBuilders = map[string]legacyBuilder{
	"raster":     simple(model.Raster{}),
	"extent":     simple(model.Extent{}),
	"crs":        simple(model.Crs{}),
	"point":      simple(model.Point{}),
	"scale":      simple(model.Scale{}),
	"range":      simple(model.Range{Subtype: model.NumberDouble}),
	"file":       simple(model.File{Behavior: model.BehaviorFile}),
	"folder":     simple(model.File{Behavior: model.BehaviorFolder}),
	"expression": simple(model.Expression{}),
	"boolean":    buildBoolean,
	"string":     buildString,
	"enum":       buildEnum,
	"field":      buildField,
	"source":     buildSource,
	"vector":     buildSource,
	"number":     buildNumber,
	"distance":   buildDistance,
	"color":      buildColor,
	"datetime":   buildDateTime,
	"multiple":   buildMultiple,
	"band":       buildBand,
}

// Types lists the legacy parameter type keywords.
func Types() []string {
	out := make([]string, 0, len(legacyBuilders))
	for name := range legacyBuilders {
		out = append(out, name)
	}
	return out
}

// CreateParameter builds a parameter from a directive body ("x=number 5" or
// a typed line). Name validation is left to the caller.
func CreateParameter(body string) (*model.Parameter, error) {
	if directive.IsTyped(body) {
		if strings.HasPrefix(body, directive.ParameterPrefix) {
			return createTypedParameter(body)
		}
		return nil, fmt.Errorf("%w: %q is not a parameter", directive.ErrMalformed, body)
	}

	body = directive.Upgrade(body)
	literal := strings.Contains(body, literalEnumPhrase)
	body = strings.ReplaceAll(body, literalEnumPhrase, "enum")

	sc, err := directive.ParseScriptCode(body)
	if err != nil {
		return nil, err
	}

	build, ok := legacyBuilders[sc.Type]
	if !ok {
		return nil, &UnknownTypeError{Type: sc.Type, Suggestion: Suggest(sc.Type)}
	}
	kind, rawDefault, err := build(sc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sc.Name, err)
	}
	if e, ok := kind.(model.Enum); ok && literal {
		e.Literal = true
		kind = e
	}

	p := &model.Parameter{
		Name:        sc.Name,
		Description: directive.DescriptiveName(sc.Name),
		Kind:        kind,
		Optional:    sc.Optional,
	}
	if _, ok := kind.(model.Boolean); ok {
		p.Default = !strings.EqualFold(strings.TrimSpace(rawDefault), "false")
		return p, nil
	}
	if p.Default, err = convertDefault(kind, rawDefault); err != nil {
		return nil, fmt.Errorf("%s: %w", sc.Name, err)
	}
	return p, nil
}

func simple(kind model.ParameterKind) legacyBuilder {
	return func(sc directive.ScriptCode) (model.ParameterKind, string, error) {
		return kind, sc.Definition, nil
	}
}

func buildBoolean(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	return model.Boolean{}, sc.Definition, nil
}

// hasPrefixFold strips prefix case-insensitively.
func hasPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

// splitLast splits at the last whitespace run: "a;b;c 1" -> "a;b;c", "1".
func splitLast(s string) (string, string, bool) {
	i := strings.LastIndexAny(s, " \t")
	if i < 0 {
		return s, "", false
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
}

// splitFirst splits at the first whitespace: "Layer 2" -> "Layer", "2".
func splitFirst(s string) (string, string, bool) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, "", false
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
}

func buildString(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	def, multi := hasPrefixFold(sc.Definition, "long")
	def = unquote(strings.TrimSpace(def))
	return model.String{MultiLine: multi}, def, nil
}

func buildEnum(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	def, multi := hasPrefixFold(sc.Definition, "multiple")
	def = strings.TrimSpace(def)

	values, rawDefault, _ := splitLast(def)
	if values == "" {
		return nil, "", fmt.Errorf("enum without options")
	}
	return model.Enum{Options: strings.Split(values, ";"), AllowMultiple: multi}, rawDefault, nil
}

func buildField(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	k := model.Field{}
	def := sc.Definition
	if rest, ok := hasPrefixFold(def, "numeric "); ok {
		k.DataType, def = model.FieldNumeric, rest
	} else if rest, ok := hasPrefixFold(def, "string "); ok {
		k.DataType, def = model.FieldString, rest
	} else if rest, ok := hasPrefixFold(def, "datetime "); ok {
		k.DataType, def = model.FieldDateTime, rest
	}
	def = strings.TrimSpace(def)
	if rest, ok := hasPrefixFold(def, "multiple "); ok {
		k.AllowMultiple, def = true, strings.TrimSpace(rest)
	}
	if rest, ok := hasPrefixFold(def, "default_to_all_fields"); ok {
		k.DefaultToAllFields, def = true, strings.TrimSpace(rest)
	}
	parent, rawDefault, _ := splitFirst(def)
	if parent == "" {
		return nil, "", fmt.Errorf("field without parent layer")
	}
	k.Parent = parent
	return k, rawDefault, nil
}

func buildSource(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	k := model.VectorSource{}
	def := sc.Definition
	for {
		if rest, ok := hasPrefixFold(def, "point"); ok {
			k.GeometryTypes = append(k.GeometryTypes, model.LayerPoint)
			def = strings.TrimSpace(rest)
			continue
		}
		if rest, ok := hasPrefixFold(def, "line"); ok {
			k.GeometryTypes = append(k.GeometryTypes, model.LayerLine)
			def = strings.TrimSpace(rest)
			continue
		}
		if rest, ok := hasPrefixFold(def, "polygon"); ok {
			k.GeometryTypes = append(k.GeometryTypes, model.LayerPolygon)
			def = strings.TrimSpace(rest)
			continue
		}
		break
	}
	return k, def, nil
}

// buildNumber accepts "default" or "default min max".
func buildNumber(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	k := model.Number{Subtype: model.NumberDouble}
	fields := strings.Fields(sc.Definition)
	switch len(fields) {
	case 0:
		return k, "", nil
	case 1:
		return k, fields[0], nil
	case 3:
		lo, err := convertDefault(k, fields[1])
		if err != nil {
			return nil, "", err
		}
		hi, err := convertDefault(k, fields[2])
		if err != nil {
			return nil, "", err
		}
		minValue, maxValue := lo.(float64), hi.(float64)
		k.Min, k.Max = &minValue, &maxValue
		return k, fields[0], nil
	default:
		return nil, "", fmt.Errorf("number definition %q: expected default or default min max", sc.Definition)
	}
}

func buildDistance(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	parent, rawDefault, _ := splitFirst(strings.TrimSpace(sc.Definition))
	return model.Distance{Parent: parent}, rawDefault, nil
}

func buildColor(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	def, opacity := hasPrefixFold(sc.Definition, "withopacity")
	return model.Color{AllowOpacity: opacity}, unquote(strings.TrimSpace(def)), nil
}

func buildDateTime(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	k := model.DateTime{Type: types.KindDateTime}
	def := sc.Definition
	if rest, ok := hasPrefixFold(def, "datetime"); ok {
		def = rest
	} else if rest, ok := hasPrefixFold(def, "date"); ok {
		k.Type, def = types.KindDate, rest
	} else if rest, ok := hasPrefixFold(def, "time"); ok {
		k.Type, def = types.KindTime, rest
	}
	return k, unquote(strings.TrimSpace(def)), nil
}

func buildMultiple(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	typ, rawDefault, _ := splitFirst(strings.TrimSpace(sc.Definition))
	k := model.MultipleLayers{LayerType: model.LayerAnyGeometry}
	switch strings.ToLower(typ) {
	case "", "vector":
	case "raster":
		k.LayerType = model.LayerRaster
	case "file":
		k.LayerType = model.LayerFile
	default:
		return nil, "", fmt.Errorf("unknown layer type %q for multiple", typ)
	}
	return k, rawDefault, nil
}

func buildBand(sc directive.ScriptCode) (model.ParameterKind, string, error) {
	k := model.Band{}
	def := strings.TrimSpace(sc.Definition)
	if rest, ok := hasPrefixFold(def, "multiple"); ok {
		k.AllowMultiple, def = true, strings.TrimSpace(rest)
	}
	parent, rawDefault, _ := splitFirst(def)
	if parent == "" {
		return nil, "", fmt.Errorf("band without parent layer")
	}
	k.Parent = parent
	return k, rawDefault, nil
}
