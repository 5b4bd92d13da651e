package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opal-lang/rsx/core/invariant"
	"github.com/opal-lang/rsx/core/types"
)

func assign(variable, rhs string) string {
	invariant.Precondition(variable != "", "variable name must not be empty")
	return variable + " <- " + rhs
}

// SetString assigns a quoted string.
func SetString(variable, value string) string {
	return assign(variable, Quote(value))
}

// SetStringList assigns c("a","b"). An empty list renders as c().
func SetStringList(variable string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	return assign(variable, "c("+strings.Join(quoted, ",")+")")
}

// SetDirectly assigns value's textual form unchanged.
func SetDirectly(variable string, value any) string {
	return assign(variable, fmt.Sprint(value))
}

// SetNull assigns NULL.
func SetNull(variable string) string {
	return assign(variable, "NULL")
}

// SetDouble assigns a double, always with a decimal point.
func SetDouble(variable string, value float64) string {
	return assign(variable, FormatDouble(value))
}

// SetInt assigns an integer literal.
func SetInt(variable string, value int) string {
	return assign(variable, strconv.Itoa(value))
}

// SetBool assigns TRUE or FALSE.
func SetBool(variable string, value bool) string {
	return assign(variable, FormatBool(value))
}

// SetIndices assigns c(0, 1). Used for multi-select enums and bands.
func SetIndices(variable string, values []int) string {
	return assign(variable, "c("+formatInts(values)+")")
}

// SetEnum renders a single selected enum index. Literal enums assign the
// option text instead of the index.
func SetEnum(variable string, index int, options []string, literal bool) (string, error) {
	if !literal {
		return SetInt(variable, index), nil
	}
	if index < 0 || index >= len(options) {
		return "", fmt.Errorf("enum %s: index %d out of range [0, %d)", variable, index, len(options))
	}
	return SetString(variable, options[index]), nil
}

// SetEnums renders a multi-select enum.
func SetEnums(variable string, indices []int, options []string, literal bool) (string, error) {
	if !literal {
		return SetIndices(variable, indices), nil
	}
	values := make([]string, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(options) {
			return "", fmt.Errorf("enum %s: index %d out of range [0, %d)", variable, idx, len(options))
		}
		values[i] = options[idx]
	}
	return SetStringList(variable, values), nil
}

// SetGeometry assigns a geometry parsed from WKT.
func SetGeometry(variable, wkt string) string {
	return assign(variable, geometryLiteral(wkt))
}

func geometryLiteral(wkt string) string {
	return "sf::st_as_sfc(" + Quote(wkt) + ")"
}

// SetExtent assigns extent(xmin,xmax,ymin,ymax).
func SetExtent(variable string, e types.Extent) string {
	return assign(variable, fmt.Sprintf("extent(%s,%s,%s,%s)",
		FormatDouble(e.XMin), FormatDouble(e.XMax), FormatDouble(e.YMin), FormatDouble(e.YMax)))
}

// SetCRS assigns the authority id, or WKT for user defined systems, or
// NULL when the CRS is empty.
func SetCRS(variable string, crs types.CRS) string {
	if !crs.IsValid() {
		return SetNull(variable)
	}
	return SetString(variable, crs.String())
}

// SetPoint emits the CRS object then the point tagged with it.
func SetPoint(variable string, p types.Point) []string {
	crsVar := variable + "_crs"
	crs := "st_crs(NA)"
	if p.CRS.IsValid() {
		crs = "st_crs(" + Quote(p.CRS.String()) + ")"
	}
	return []string{
		assign(crsVar, crs),
		assign(variable, fmt.Sprintf("st_sfc(st_point(c(%s,%s)), crs = %s)",
			FormatDouble(p.X), FormatDouble(p.Y), crsVar)),
	}
}

// SetRange assigns c(min = a, max = b).
func SetRange(variable string, r types.Range) string {
	return assign(variable, fmt.Sprintf("c(min = %s, max = %s)", FormatDouble(r.Min), FormatDouble(r.Max)))
}

// SetColor assigns an rgb() call with 0-255 channels.
func SetColor(variable string, c types.Color) string {
	return assign(variable, fmt.Sprintf("rgb(%d, %d, %d, %d, maxColorValue = 255)", c.R, c.G, c.B, c.A))
}
