package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyValue is returned by the parsers for blank input.
var ErrEmptyValue = errors.New("empty value")

// ParseCRS accepts an authority id ("EPSG:4326", "user:100000") or WKT/PROJ text.
func ParseCRS(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, ErrEmptyValue
	}
	if strings.ContainsAny(s, "[ ") || strings.HasPrefix(s, "+") {
		return CRS{WKT: s}, nil
	}
	if !strings.Contains(s, ":") {
		return CRS{}, fmt.Errorf("invalid crs %q: expected AUTHORITY:CODE or WKT", s)
	}
	return CRS{AuthID: s}, nil
}

// splitCRSSuffix separates "values [CRS]" into its two parts.
func splitCRSSuffix(s string) (string, CRS, error) {
	s = strings.TrimSpace(s)
	open := strings.Index(s, "[")
	if open < 0 {
		return s, CRS{}, nil
	}
	if !strings.HasSuffix(s, "]") {
		return "", CRS{}, fmt.Errorf("unterminated crs in %q", s)
	}
	crs, err := ParseCRS(s[open+1 : len(s)-1])
	if err != nil {
		return "", CRS{}, err
	}
	return strings.TrimSpace(s[:open]), crs, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma separated numbers, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", strings.TrimSpace(p))
		}
		out[i] = f
	}
	return out, nil
}

// ParsePoint parses "x,y" with an optional " [CRS]" suffix.
func ParsePoint(s string) (Point, error) {
	if strings.TrimSpace(s) == "" {
		return Point{}, ErrEmptyValue
	}
	coords, crs, err := splitCRSSuffix(s)
	if err != nil {
		return Point{}, err
	}
	xy, err := parseFloats(coords, 2)
	if err != nil {
		return Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return Point{X: xy[0], Y: xy[1], CRS: crs}, nil
}

// ParseExtent parses "xmin,xmax,ymin,ymax" with an optional " [CRS]" suffix.
func ParseExtent(s string) (Extent, error) {
	if strings.TrimSpace(s) == "" {
		return Extent{}, ErrEmptyValue
	}
	bounds, crs, err := splitCRSSuffix(s)
	if err != nil {
		return Extent{}, err
	}
	v, err := parseFloats(bounds, 4)
	if err != nil {
		return Extent{}, fmt.Errorf("invalid extent %q: %w", s, err)
	}
	if v[0] > v[1] || v[2] > v[3] {
		return Extent{}, fmt.Errorf("invalid extent %q: minimum greater than maximum", s)
	}
	return Extent{XMin: v[0], XMax: v[1], YMin: v[2], YMax: v[3], CRS: crs}, nil
}

// ParseRange parses "min,max".
func ParseRange(s string) (Range, error) {
	if strings.TrimSpace(s) == "" {
		return Range{}, ErrEmptyValue
	}
	v, err := parseFloats(s, 2)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	return Range{Min: v[0], Max: v[1]}, nil
}

// ParseColor parses "#RRGGBB", "#RRGGBBAA" or "r,g,b[,a]". Alpha defaults to 255.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Color{}, ErrEmptyValue
	}

	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) != 6 && len(hex) != 8 {
			return Color{}, fmt.Errorf("invalid color %q: expected #RRGGBB or #RRGGBBAA", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		if len(hex) == 6 {
			return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
		}
		return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, fmt.Errorf("invalid color %q: expected r,g,b or r,g,b,a", s)
	}
	ch := [4]uint8{0, 0, 0, 255}
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color channel %q: must be 0-255", strings.TrimSpace(p))
		}
		ch[i] = uint8(v)
	}
	return Color{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

var temporalLayouts = map[TemporalKind][]string{
	KindDateTime: {time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"},
	KindDate:     {"2006-01-02"},
	KindTime:     {"15:04:05", "15:04"},
}

// ParseDateTime parses ISO-8601 text for the given kind.
func ParseDateTime(s string, kind TemporalKind) (DateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateTime{}, ErrEmptyValue
	}
	for _, layout := range temporalLayouts[kind] {
		if t, err := time.Parse(layout, s); err == nil {
			return DateTime{Time: t, Kind: kind}, nil
		}
	}
	return DateTime{}, fmt.Errorf("invalid %s %q", kind, s)
}
