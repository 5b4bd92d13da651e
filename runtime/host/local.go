package host

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/core/types"
)

// rasterExtensions are the file types served by the gdal provider. Any
// other file is opened through ogr.
var rasterExtensions = map[string]bool{
	".tif": true, ".tiff": true, ".asc": true, ".img": true, ".vrt": true,
	".nc": true, ".jp2": true, ".grd": true, ".sdat": true, ".dem": true,
	".hgt": true, ".bil": true, ".png": true, ".jpg": true,
}

// Local resolves sources on the local filesystem and coerces values given
// on the command line or in a JSON inputs document.
type Local struct {
	// Dir resolves relative source paths. Empty means the working directory.
	Dir string
}

// ResolveSource accepts "path", "path|layername=name" or a database
// connection string.
func (l *Local) ResolveSource(_ context.Context, parameter, ref string) (types.Layer, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return types.Layer{}, fmt.Errorf("layer %s: %w", parameter, types.ErrEmptyValue)
	}
	if isDatabaseSource(ref) {
		return types.Layer{Path: ref, Provider: types.ProviderPostgres}, nil
	}

	path, options, _ := strings.Cut(ref, "|")
	layer := types.Layer{Path: path}
	for _, opt := range strings.Split(options, "|") {
		if name, ok := strings.CutPrefix(opt, "layername="); ok {
			layer.LayerName = name
		}
	}
	if l.Dir != "" && !filepath.IsAbs(layer.Path) {
		layer.Path = filepath.Join(l.Dir, layer.Path)
	}
	if _, err := os.Stat(layer.Path); err != nil {
		return types.Layer{}, fmt.Errorf("layer %s: %w", parameter, err)
	}
	layer.Path = filepath.ToSlash(layer.Path)

	layer.Provider = types.ProviderOGR
	if rasterExtensions[strings.ToLower(filepath.Ext(layer.Path))] {
		layer.Provider = types.ProviderGDAL
	}
	return layer, nil
}

func isDatabaseSource(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "pg:") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "dbname=")
}

var errType = errors.New("unexpected value type")

// Coerce converts raw into the value kind p expects. Values that already
// have the target type (declared defaults) pass through.
func (l *Local) Coerce(_ context.Context, p *model.Parameter, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := coerce(p.Kind, raw)
	if err != nil {
		return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
	}
	return v, nil
}

func coerce(kind model.ParameterKind, raw any) (any, error) {
	switch k := kind.(type) {
	case model.Raster, model.VectorSource, model.File, model.String, model.Expression,
		model.VectorDestination, model.RasterDestination, model.FileDestination, model.FolderDestination:
		return asString(raw)
	case model.MultipleLayers:
		return asStrings(raw, ";")
	case model.Field:
		if k.AllowMultiple {
			return asStrings(raw, ";")
		}
		return asString(raw)
	case model.Number, model.Distance, model.Scale:
		return asFloat(raw)
	case model.Boolean:
		return asBool(raw)
	case model.Enum:
		idx, err := asIndices(raw, k.Options)
		if err != nil {
			return nil, err
		}
		for _, i := range idx {
			if i < 0 || i >= len(k.Options) {
				return nil, fmt.Errorf("enum index %d out of range [0,%d)", i, len(k.Options))
			}
		}
		if k.AllowMultiple {
			return idx, nil
		}
		return single(idx)
	case model.Band:
		idx, err := asIndices(raw, nil)
		if err != nil {
			return nil, err
		}
		if k.AllowMultiple {
			return idx, nil
		}
		return single(idx)
	case model.Extent:
		return parsed(raw, types.ParseExtent)
	case model.Crs:
		return parsed(raw, types.ParseCRS)
	case model.Point:
		return parsed(raw, types.ParsePoint)
	case model.Range:
		if r, ok := raw.([]any); ok && len(r) == 2 {
			lo, err := asFloat(r[0])
			if err != nil {
				return nil, err
			}
			hi, err := asFloat(r[1])
			if err != nil {
				return nil, err
			}
			return types.Range{Min: lo, Max: hi}, nil
		}
		return parsed(raw, types.ParseRange)
	case model.Color:
		return parsed(raw, types.ParseColor)
	case model.DateTime:
		return parsed(raw, func(s string) (types.DateTime, error) { return types.ParseDateTime(s, k.Type) })
	default:
		return nil, fmt.Errorf("no coercion for %s", model.KindName(kind))
	}
}

func single(idx []int) (int, error) {
	if len(idx) != 1 {
		return 0, fmt.Errorf("expected a single index, got %d", len(idx))
	}
	return idx[0], nil
}

// parsed passes through values of type T and parses strings.
func parsed[T any](raw any, parse func(string) (T, error)) (T, error) {
	switch v := raw.(type) {
	case T:
		return v, nil
	case string:
		return parse(v)
	default:
		var zero T
		return zero, fmt.Errorf("%w %T", errType, raw)
	}
}

func asString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64, int, int64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("%w %T", errType, raw)
	}
}

func asStrings(raw any, sep string) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		parts := strings.Split(v, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	case []any:
		out := make([]string, len(v))
		for i, elem := range v {
			s, err := asString(elem)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w %T", errType, raw)
	}
}

func asFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w %T", errType, raw)
	}
}

func asBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean %q", v)
	default:
		return false, fmt.Errorf("%w %T", errType, raw)
	}
}

// asIndices accepts an index, a list of indices, or option text. Strings
// may hold several comma separated entries.
func asIndices(raw any, options []string) ([]int, error) {
	switch v := raw.(type) {
	case int:
		return []int{v}, nil
	case []int:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("invalid index %v", v)
		}
		return []int{int(v)}, nil
	case []any:
		var out []int
		for _, elem := range v {
			idx, err := asIndices(elem, options)
			if err != nil {
				return nil, err
			}
			out = append(out, idx...)
		}
		return out, nil
	case string:
		var out []int
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if n, err := strconv.Atoi(part); err == nil {
				out = append(out, n)
				continue
			}
			i := indexOf(options, part)
			if i < 0 {
				return nil, fmt.Errorf("invalid index %q", part)
			}
			out = append(out, i)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w %T", errType, raw)
	}
}

func indexOf(options []string, s string) int {
	for i, opt := range options {
		if opt == s {
			return i
		}
	}
	return -1
}
