// Package model holds the in-memory description of an annotated R script:
// its parameters, outputs, body commands and flags.
//
// Parameter and output kinds are closed sets. Every variant implements a
// private marker method, so code outside this package can only switch over
// the variants declared here; AllParameterKinds and AllOutputKinds list
// them for exhaustiveness tests in the renderers.
package model

import (
	"fmt"

	"github.com/opal-lang/rsx/core/types"
)

// LayerType classifies layer inputs and outputs. Values match the numeric
// codes used by typed-form directives.
type LayerType int

const (
	LayerAnyGeometry LayerType = -1
	LayerPoint       LayerType = 0
	LayerLine        LayerType = 1
	LayerPolygon     LayerType = 2
	LayerRaster      LayerType = 3
	LayerFile        LayerType = 4
	LayerTable       LayerType = 5
)

func (t LayerType) String() string {
	switch t {
	case LayerAnyGeometry:
		return "any"
	case LayerPoint:
		return "point"
	case LayerLine:
		return "line"
	case LayerPolygon:
		return "polygon"
	case LayerRaster:
		return "raster"
	case LayerFile:
		return "file"
	case LayerTable:
		return "table"
	default:
		return fmt.Sprintf("LayerType(%d)", int(t))
	}
}

// NumberType is the subtype of numeric and range parameters.
type NumberType int

const (
	NumberInteger NumberType = iota
	NumberDouble
)

func (t NumberType) String() string {
	if t == NumberInteger {
		return "integer"
	}
	return "double"
}

// FieldDataType restricts which attribute fields a Field parameter accepts.
type FieldDataType int

const (
	FieldAny FieldDataType = iota
	FieldNumeric
	FieldString
	FieldDateTime
)

// FileBehavior distinguishes file from folder inputs.
type FileBehavior int

const (
	BehaviorFile FileBehavior = iota
	BehaviorFolder
)

// ParameterKind is the closed set of parameter variants.
type ParameterKind interface {
	parameterKind()
}

type (
	Raster       struct{}
	VectorSource struct {
		GeometryTypes []LayerType // empty means any geometry
	}
	Field struct {
		Parent             string
		DataType           FieldDataType
		AllowMultiple      bool
		DefaultToAllFields bool
	}
	Extent struct{}
	Crs    struct{}
	String struct {
		MultiLine bool
	}
	File struct {
		Behavior  FileBehavior
		Extension string
		Filter    string
	}
	Number struct {
		Subtype NumberType
		Min     *float64
		Max     *float64
	}
	Enum struct {
		Options       []string
		AllowMultiple bool
		// Literal enums render the selected option text instead of its index.
		Literal bool
	}
	Boolean struct{}
	Point   struct{}
	Range   struct {
		Subtype NumberType
	}
	Color struct {
		AllowOpacity bool
	}
	DateTime struct {
		Type types.TemporalKind
	}
	MultipleLayers struct {
		LayerType LayerType
	}
	Band struct {
		Parent        string
		AllowMultiple bool
	}
	Expression struct {
		Parent string
	}
	Distance struct {
		Parent string
	}
	Scale struct{}

	VectorDestination struct {
		LayerType LayerType
	}
	RasterDestination struct{}
	FileDestination   struct {
		Filter    string
		Extension string
	}
	FolderDestination struct{}
)

func (Raster) parameterKind()            {}
func (VectorSource) parameterKind()      {}
func (Field) parameterKind()             {}
func (Extent) parameterKind()            {}
func (Crs) parameterKind()               {}
func (String) parameterKind()            {}
func (File) parameterKind()              {}
func (Number) parameterKind()            {}
func (Enum) parameterKind()              {}
func (Boolean) parameterKind()           {}
func (Point) parameterKind()             {}
func (Range) parameterKind()             {}
func (Color) parameterKind()             {}
func (DateTime) parameterKind()          {}
func (MultipleLayers) parameterKind()    {}
func (Band) parameterKind()              {}
func (Expression) parameterKind()        {}
func (Distance) parameterKind()          {}
func (Scale) parameterKind()             {}
func (VectorDestination) parameterKind() {}
func (RasterDestination) parameterKind() {}
func (FileDestination) parameterKind()   {}
func (FolderDestination) parameterKind() {}

// AllParameterKinds returns the zero value of every parameter variant.
func AllParameterKinds() []ParameterKind {
	return []ParameterKind{
		Raster{}, VectorSource{}, Field{}, Extent{}, Crs{}, String{}, File{},
		Number{}, Enum{}, Boolean{}, Point{}, Range{}, Color{}, DateTime{},
		MultipleLayers{}, Band{}, Expression{}, Distance{}, Scale{},
		VectorDestination{}, RasterDestination{}, FileDestination{}, FolderDestination{},
	}
}

// KindName returns the directive keyword for kind.
func KindName(kind ParameterKind) string {
	switch kind.(type) {
	case Raster:
		return "raster"
	case VectorSource:
		return "source"
	case Field:
		return "field"
	case Extent:
		return "extent"
	case Crs:
		return "crs"
	case String:
		return "string"
	case File:
		return "file"
	case Number:
		return "number"
	case Enum:
		return "enum"
	case Boolean:
		return "boolean"
	case Point:
		return "point"
	case Range:
		return "range"
	case Color:
		return "color"
	case DateTime:
		return "datetime"
	case MultipleLayers:
		return "multiple"
	case Band:
		return "band"
	case Expression:
		return "expression"
	case Distance:
		return "distance"
	case Scale:
		return "scale"
	case VectorDestination:
		return "vectorDestination"
	case RasterDestination:
		return "rasterDestination"
	case FileDestination:
		return "fileDestination"
	case FolderDestination:
		return "folderDestination"
	default:
		return ""
	}
}

// IsDestinationKind reports whether kind asks the caller for a target path.
func IsDestinationKind(kind ParameterKind) bool {
	switch kind.(type) {
	case VectorDestination, RasterDestination, FileDestination, FolderDestination:
		return true
	default:
		return false
	}
}

// OutputKind is the closed set of reported output variants.
type OutputKind interface {
	outputKind()
}

type (
	VectorOutput struct {
		LayerType LayerType
	}
	RasterOutput struct{}
	NumberOutput struct{}
	StringOutput struct{}
	LayerOutput  struct{}
	FolderOutput struct{}
	FileOutput   struct {
		Extension string
	}
	HTMLOutput  struct{}
	TableOutput struct{}
)

func (VectorOutput) outputKind() {}
func (RasterOutput) outputKind() {}
func (NumberOutput) outputKind() {}
func (StringOutput) outputKind() {}
func (LayerOutput) outputKind()  {}
func (FolderOutput) outputKind() {}
func (FileOutput) outputKind()   {}
func (HTMLOutput) outputKind()   {}
func (TableOutput) outputKind()  {}

// AllOutputKinds returns the zero value of every output variant.
func AllOutputKinds() []OutputKind {
	return []OutputKind{
		VectorOutput{}, RasterOutput{}, NumberOutput{}, StringOutput{}, LayerOutput{},
		FolderOutput{}, FileOutput{}, HTMLOutput{}, TableOutput{},
	}
}

// OutputKindName returns a short label for kind.
func OutputKindName(kind OutputKind) string {
	switch kind.(type) {
	case VectorOutput:
		return "vector"
	case RasterOutput:
		return "raster"
	case NumberOutput:
		return "number"
	case StringOutput:
		return "string"
	case LayerOutput:
		return "layer"
	case FolderOutput:
		return "folder"
	case FileOutput:
		return "file"
	case HTMLOutput:
		return "html"
	case TableOutput:
		return "table"
	default:
		return ""
	}
}
