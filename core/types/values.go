// Package types defines the typed values that flow from a caller into the
// R code generator (points, extents, colours, dates...) and validates raw
// input documents against a JSON Schema.
package types

import (
	"fmt"
	"strings"
	"time"
)

// CRS identifies a coordinate reference system either by authority id
// ("EPSG:4326") or by its well-known text.
type CRS struct {
	AuthID string `json:"authid,omitempty"`
	WKT    string `json:"wkt,omitempty"`
}

// IsValid reports whether the CRS carries any definition.
func (c CRS) IsValid() bool {
	return c.AuthID != "" || c.WKT != ""
}

// IsUserDefined reports whether the CRS has no usable authority id.
// Such systems are passed to R as WKT.
func (c CRS) IsUserDefined() bool {
	return c.AuthID == "" || strings.HasPrefix(strings.ToLower(c.AuthID), "user:")
}

// String returns the identifier preferred by R: authority id when present,
// WKT otherwise.
func (c CRS) String() string {
	if !c.IsUserDefined() {
		return c.AuthID
	}
	return c.WKT
}

// Point is a 2D coordinate tagged with its CRS.
type Point struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	CRS CRS     `json:"crs"`
}

// Extent is a bounding box. Field order follows the raster package's
// extent(xmin, xmax, ymin, ymax) convention.
type Extent struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
	CRS  CRS     `json:"crs"`
}

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Color is an RGBA colour with 0-255 channels.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// TemporalKind selects which part of a DateTime is meaningful.
type TemporalKind int

const (
	KindDateTime TemporalKind = iota
	KindDate
	KindTime
)

func (k TemporalKind) String() string {
	switch k {
	case KindDateTime:
		return "datetime"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("TemporalKind(%d)", int(k))
	}
}

// DateTime is a date, a time of day, or both.
type DateTime struct {
	Time time.Time
	Kind TemporalKind
}

// ISO formats the value as ISO-8601 text for its kind.
func (d DateTime) ISO() string {
	switch d.Kind {
	case KindDate:
		return d.Time.Format("2006-01-02")
	case KindTime:
		return d.Time.Format("15:04:05")
	default:
		return d.Time.Format("2006-01-02T15:04:05")
	}
}

// Geometry carries a geometry as WKT.
type Geometry struct {
	WKT string
}

// Layer is a resolved data source: a readable path, an optional sub-layer
// name (GeoPackage tables etc.) and the provider that serves it.
type Layer struct {
	Path      string
	LayerName string
	Provider  string
}

// Providers recognised by the local host.
const (
	ProviderOGR      = "ogr"
	ProviderGDAL     = "gdal"
	ProviderPostgres = "postgres"
)
