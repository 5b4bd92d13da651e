package params

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/core/types"
	"github.com/opal-lang/rsx/runtime/directive"
)

// typedArgs are the positional constructor arguments after name and
// description. Missing and "None" arguments read as absent.
type typedArgs []string

func (a typedArgs) get(i int) (string, bool) {
	if i >= len(a) || isNone(a[i]) {
		return "", false
	}
	return strings.TrimSpace(a[i]), true
}

func (a typedArgs) raw(i int) string {
	s, _ := a.get(i)
	return s
}

func (a typedArgs) boolean(i int) (bool, error) {
	s, ok := a.get(i)
	if !ok {
		return false, nil
	}
	return parseBool(s)
}

func (a typedArgs) float(i int) (*float64, error) {
	s, ok := a.get(i)
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return &f, nil
}

// enumeration reads a constant that may be spelled as its number or as a
// qualified name ("QgsProcessingParameterNumber.Double").
func (a typedArgs) enumeration(i int, names map[string]int, fallback int) (int, error) {
	s, ok := a.get(i)
	if !ok {
		return fallback, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if dot := strings.LastIndex(s, "."); dot >= 0 {
		s = s[dot+1:]
	}
	if n, ok := names[strings.ToLower(s)]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown constant %q", a[i])
}

var (
	numberTypes = map[string]int{"integer": int(model.NumberInteger), "double": int(model.NumberDouble)}
	fileTypes   = map[string]int{"file": int(model.BehaviorFile), "folder": int(model.BehaviorFolder)}
	dateTypes   = map[string]int{"datetime": int(types.KindDateTime), "date": int(types.KindDate), "time": int(types.KindTime)}
	fieldTypes  = map[string]int{"any": int(model.FieldAny), "numeric": int(model.FieldNumeric), "string": int(model.FieldString), "datetime": int(model.FieldDateTime)}
	layerTypes  = map[string]int{
		"typevectoranygeometry": int(model.LayerAnyGeometry),
		"typevectorpoint":       int(model.LayerPoint),
		"typevectorline":        int(model.LayerLine),
		"typevectorpolygon":     int(model.LayerPolygon),
		"typeraster":            int(model.LayerRaster),
		"typefile":              int(model.LayerFile),
		"typevector":            int(model.LayerTable),
	}
)

// layerList parses "[0,2]", "0;2" or a single layer type.
func (a typedArgs) layerList(i int) ([]model.LayerType, error) {
	s, ok := a.get(i)
	if !ok {
		return nil, nil
	}
	s = strings.Trim(s, "[]")
	var out []model.LayerType
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		n, err := typedArgs{strings.TrimSpace(part)}.enumeration(0, layerTypes, int(model.LayerAnyGeometry))
		if err != nil {
			return nil, err
		}
		if model.LayerType(n) == model.LayerAnyGeometry {
			continue
		}
		out = append(out, model.LayerType(n))
	}
	return out, nil
}

// typedBuilder returns the kind, the index of the default argument and the
// optional flag argument index.
type typedBuilder func(args typedArgs) (kind model.ParameterKind, defaultAt, optionalAt int, err error)

var typedBuilders = map[string]typedBuilder{
	"Boolean":     fixed(model.Boolean{}, 0, 1),
	"Crs":         fixed(model.Crs{}, 0, 1),
	"Extent":      fixed(model.Extent{}, 0, 1),
	"Point":       fixed(model.Point{}, 0, 1),
	"Scale":       fixed(model.Scale{}, 0, 1),
	"RasterLayer": fixed(model.Raster{}, 0, 1),
	"File": func(a typedArgs) (model.ParameterKind, int, int, error) {
		behavior, err := a.enumeration(0, fileTypes, int(model.BehaviorFile))
		if err != nil {
			return nil, 0, 0, err
		}
		return model.File{Behavior: model.FileBehavior(behavior), Extension: a.raw(1), Filter: a.raw(4)}, 2, 3, nil
	},
	"MultipleLayers": func(a typedArgs) (model.ParameterKind, int, int, error) {
		lt, err := a.enumeration(0, layerTypes, int(model.LayerAnyGeometry))
		if err != nil {
			return nil, 0, 0, err
		}
		return model.MultipleLayers{LayerType: model.LayerType(lt)}, 1, 2, nil
	},
	"Number": func(a typedArgs) (model.ParameterKind, int, int, error) {
		subtype, err := a.enumeration(0, numberTypes, int(model.NumberInteger))
		if err != nil {
			return nil, 0, 0, err
		}
		k := model.Number{Subtype: model.NumberType(subtype)}
		if k.Min, err = a.float(3); err != nil {
			return nil, 0, 0, err
		}
		if k.Max, err = a.float(4); err != nil {
			return nil, 0, 0, err
		}
		return k, 1, 2, nil
	},
	"Distance": func(a typedArgs) (model.ParameterKind, int, int, error) {
		return model.Distance{Parent: a.raw(1)}, 0, 2, nil
	},
	"Range": func(a typedArgs) (model.ParameterKind, int, int, error) {
		subtype, err := a.enumeration(0, numberTypes, int(model.NumberInteger))
		if err != nil {
			return nil, 0, 0, err
		}
		return model.Range{Subtype: model.NumberType(subtype)}, 1, 2, nil
	},
	"Enum": func(a typedArgs) (model.ParameterKind, int, int, error) {
		options, ok := a.get(0)
		if !ok {
			return nil, 0, 0, fmt.Errorf("enum without options")
		}
		multi, err := a.boolean(1)
		if err != nil {
			return nil, 0, 0, err
		}
		return model.Enum{Options: strings.Split(options, ";"), AllowMultiple: multi}, 2, 3, nil
	},
	"String": func(a typedArgs) (model.ParameterKind, int, int, error) {
		multi, err := a.boolean(1)
		if err != nil {
			return nil, 0, 0, err
		}
		return model.String{MultiLine: multi}, 0, 2, nil
	},
	"Expression": func(a typedArgs) (model.ParameterKind, int, int, error) {
		return model.Expression{Parent: a.raw(1)}, 0, 2, nil
	},
	"FeatureSource": vectorLayer,
	"VectorLayer":   vectorLayer,
	"Field": func(a typedArgs) (model.ParameterKind, int, int, error) {
		dt, err := a.enumeration(2, fieldTypes, int(model.FieldAny))
		if err != nil {
			return nil, 0, 0, err
		}
		multi, err := a.boolean(3)
		if err != nil {
			return nil, 0, 0, err
		}
		all, err := a.boolean(5)
		if err != nil {
			return nil, 0, 0, err
		}
		return model.Field{Parent: a.raw(1), DataType: model.FieldDataType(dt), AllowMultiple: multi, DefaultToAllFields: all}, 0, 4, nil
	},
	"Band": func(a typedArgs) (model.ParameterKind, int, int, error) {
		multi, err := a.boolean(3)
		if err != nil {
			return nil, 0, 0, err
		}
		return model.Band{Parent: a.raw(1), AllowMultiple: multi}, 0, 2, nil
	},
	"Color": func(a typedArgs) (model.ParameterKind, int, int, error) {
		opacity := true
		if _, ok := a.get(1); ok {
			v, err := a.boolean(1)
			if err != nil {
				return nil, 0, 0, err
			}
			opacity = v
		}
		return model.Color{AllowOpacity: opacity}, 0, 2, nil
	},
	"DateTime": func(a typedArgs) (model.ParameterKind, int, int, error) {
		dt, err := a.enumeration(0, dateTypes, int(types.KindDateTime))
		if err != nil {
			return nil, 0, 0, err
		}
		return model.DateTime{Type: types.TemporalKind(dt)}, 1, 2, nil
	},
	"VectorDestination": func(a typedArgs) (model.ParameterKind, int, int, error) {
		lt, err := a.enumeration(0, layerTypes, int(model.LayerAnyGeometry))
		if err != nil {
			return nil, 0, 0, err
		}
		return model.VectorDestination{LayerType: model.LayerType(lt)}, 1, 2, nil
	},
	"RasterDestination": fixed(model.RasterDestination{}, 0, 1),
	"FileDestination": func(a typedArgs) (model.ParameterKind, int, int, error) {
		filter := a.raw(0)
		return model.FileDestination{Filter: filter, Extension: extensionFromFilter(filter)}, 1, 2, nil
	},
	"FolderDestination": fixed(model.FolderDestination{}, 0, 1),
}

func fixed(kind model.ParameterKind, defaultAt, optionalAt int) typedBuilder {
	return func(typedArgs) (model.ParameterKind, int, int, error) {
		return kind, defaultAt, optionalAt, nil
	}
}

func vectorLayer(a typedArgs) (model.ParameterKind, int, int, error) {
	geoms, err := a.layerList(0)
	if err != nil {
		return nil, 0, 0, err
	}
	return model.VectorSource{GeometryTypes: geoms}, 1, 2, nil
}

var filterExtension = regexp.MustCompile(`\*\.([A-Za-z0-9]+)`)

// extensionFromFilter returns the first extension of a file filter such as
// "CSV Files (*.csv)".
func extensionFromFilter(filter string) string {
	if m := filterExtension.FindStringSubmatch(filter); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

func createTypedParameter(body string) (*model.Parameter, error) {
	tokens := strings.Split(body, "|")
	class := strings.TrimPrefix(tokens[0], directive.ParameterPrefix)
	build, ok := typedBuilders[class]
	if !ok {
		return nil, &UnknownTypeError{Type: tokens[0], Suggestion: suggestClass(class)}
	}

	name := strings.TrimSpace(tokens[1])
	description := name
	if len(tokens) > 2 && !isNone(tokens[2]) {
		description = tokens[2]
	}
	var args typedArgs
	if len(tokens) > 3 {
		args = tokens[3:]
	}

	kind, defaultAt, optionalAt, err := build(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	optional, err := args.boolean(optionalAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	def, err := convertDefault(kind, args.raw(defaultAt))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &model.Parameter{
		Name:        name,
		Description: description,
		Kind:        kind,
		Default:     def,
		Optional:    optional,
	}, nil
}

var typedOutputs = map[string]func(args typedArgs) (model.OutputKind, error){
	"VectorLayer": func(a typedArgs) (model.OutputKind, error) {
		lt, err := a.enumeration(0, layerTypes, int(model.LayerAnyGeometry))
		if err != nil {
			return nil, err
		}
		if model.LayerType(lt) == model.LayerTable {
			return model.TableOutput{}, nil
		}
		return model.VectorOutput{LayerType: model.LayerType(lt)}, nil
	},
	"RasterLayer": func(typedArgs) (model.OutputKind, error) { return model.RasterOutput{}, nil },
	"MapLayer":    func(typedArgs) (model.OutputKind, error) { return model.LayerOutput{}, nil },
	"Html":        func(typedArgs) (model.OutputKind, error) { return model.HTMLOutput{}, nil },
	"Number":      func(typedArgs) (model.OutputKind, error) { return model.NumberOutput{}, nil },
	"String":      func(typedArgs) (model.OutputKind, error) { return model.StringOutput{}, nil },
	"Folder":      func(typedArgs) (model.OutputKind, error) { return model.FolderOutput{}, nil },
	"File":        func(typedArgs) (model.OutputKind, error) { return model.FileOutput{}, nil },
}

func createTypedOutput(body string) (*model.Output, bool) {
	tokens := strings.Split(body, "|")
	build, ok := typedOutputs[strings.TrimPrefix(tokens[0], directive.OutputPrefix)]
	if !ok {
		return nil, false
	}
	var args typedArgs
	if len(tokens) > 3 {
		args = tokens[3:]
	}
	kind, err := build(args)
	if err != nil {
		return nil, false
	}
	name := strings.TrimSpace(tokens[1])
	description := name
	if len(tokens) > 2 && !isNone(tokens[2]) {
		description = tokens[2]
	}
	return &model.Output{Name: name, Description: description, Kind: kind}, true
}
