package planner

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/opal-lang/rsx/core/invariant"
	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/core/types"
	"github.com/opal-lang/rsx/runtime/codegen"
)

func slashed(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// resolveDestinations fixes the path of every destination parameter.
// Missing, empty and TEMPORARY_OUTPUT values get a fresh path in the run
// directory.
func (b *builder) resolveDestinations(ctx context.Context) error {
	for _, p := range b.alg.DestinationParameters() {
		var dest string
		if raw, ok := b.inputs[p.Name]; ok && raw != nil {
			v, err := b.env.Coercer.Coerce(ctx, p, raw)
			if err != nil {
				return err
			}
			dest, _ = v.(string)
		}
		if dest == "" || dest == TemporaryOutput {
			dir, err := b.runDir()
			if err != nil {
				return err
			}
			dest = filepath.Join(dir, p.Name+temporaryExtension(p.Kind))
		}
		b.plan.Destinations[p.Name] = slashed(dest)
	}
	return nil
}

func temporaryExtension(kind model.ParameterKind) string {
	switch k := kind.(type) {
	case model.VectorDestination:
		if k.LayerType == model.LayerTable {
			return ".csv"
		}
		return ".gpkg"
	case model.RasterDestination:
		return ".tif"
	case model.FileDestination:
		if k.Extension != "" {
			return "." + k.Extension
		}
		return ".txt"
	default:
		return ""
	}
}

func (b *builder) imports(ctx context.Context) error {
	b.advance(PhaseExpressionsBuilt, PhaseImportsBuilt)
	var cmds []string

	for _, p := range b.alg.InputParameters() {
		raw, ok := b.inputs[p.Name]
		if !ok || raw == nil {
			cmds = append(cmds, codegen.SetNull(p.Name))
			continue
		}
		value, err := b.env.Coercer.Coerce(ctx, p, raw)
		if err != nil {
			return err
		}
		if value == nil {
			cmds = append(cmds, codegen.SetNull(p.Name))
			continue
		}
		rendered, err := b.importValue(ctx, p, value)
		if err != nil {
			return err
		}
		cmds = append(cmds, rendered...)
	}

	for _, p := range b.alg.DestinationParameters() {
		dest := b.plan.Destinations[p.Name]
		switch p.Kind.(type) {
		case model.FolderDestination:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("creating folder for %s: %w", p.Name, err)
			}
		case model.FileDestination:
			if err := os.MkdirAll(path.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("creating folder for %s: %w", p.Name, err)
			}
		default:
			continue
		}
		cmds = append(cmds, codegen.SetString(p.Name, dest))
		b.plan.SaveOutputValues = true
	}

	if b.alg.Flags.ShowPlots {
		html := b.plan.Destinations[model.RPlots]
		b.plan.PlotsFile = strings.TrimSuffix(html, path.Ext(html)) + ".png"
		cmds = append(cmds, b.state.CreatePNG(b.plan.PlotsFile))
	}

	b.plan.Sections.Imports = cmds
	return nil
}

// wrongType reports a coercer returning a value the kind cannot render.
func wrongType(p *model.Parameter, v any) error {
	return fmt.Errorf("parameter %s: %s value of type %T", p.Name, model.KindName(p.Kind), v)
}

func (b *builder) importValue(ctx context.Context, p *model.Parameter, value any) ([]string, error) {
	one := func(s string) ([]string, error) { return []string{s}, nil }

	switch k := p.Kind.(type) {
	case model.Raster:
		ref, ok := value.(string)
		if !ok {
			return nil, wrongType(p, value)
		}
		cmd, err := b.rasterImport(ctx, p.Name, p.Name, ref)
		if err != nil {
			return nil, err
		}
		return one(cmd)
	case model.VectorSource:
		ref, ok := value.(string)
		if !ok {
			return nil, wrongType(p, value)
		}
		cmd, err := b.vectorImport(ctx, p.Name, p.Name, ref)
		if err != nil {
			return nil, err
		}
		return one(cmd)
	case model.MultipleLayers:
		refs, ok := value.([]string)
		if !ok {
			return nil, wrongType(p, value)
		}
		cmds := make([]string, 0, len(refs)+1)
		for i, ref := range refs {
			var cmd string
			var err error
			if k.LayerType == model.LayerRaster {
				cmd, err = b.rasterImport(ctx, p.Name, codegen.TempVar(i), ref)
			} else {
				cmd, err = b.vectorImport(ctx, p.Name, codegen.TempVar(i), ref)
			}
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, cmd)
		}
		return append(cmds, b.state.LayerList(p.Name, len(refs))), nil
	case model.Band:
		switch v := value.(type) {
		case int:
			return one(codegen.SetInt(p.Name, v))
		case []int:
			return one(codegen.SetIndices(p.Name, v))
		}
	case model.Extent:
		if v, ok := value.(types.Extent); ok {
			return one(codegen.SetExtent(p.Name, v))
		}
	case model.Crs:
		if v, ok := value.(types.CRS); ok {
			return one(codegen.SetCRS(p.Name, v))
		}
	case model.File:
		if v, ok := value.(string); ok {
			return one(codegen.SetString(p.Name, slashed(v)))
		}
	case model.String, model.Expression:
		if v, ok := value.(string); ok {
			return one(codegen.SetString(p.Name, v))
		}
	case model.Field:
		switch v := value.(type) {
		case string:
			return one(codegen.SetString(p.Name, v))
		case []string:
			return one(codegen.SetStringList(p.Name, v))
		}
	case model.Number, model.Distance, model.Scale:
		if v, ok := value.(float64); ok {
			return one(codegen.SetDouble(p.Name, v))
		}
	case model.Enum:
		var cmd string
		var err error
		switch v := value.(type) {
		case int:
			cmd, err = codegen.SetEnum(p.Name, v, k.Options, k.Literal)
		case []int:
			cmd, err = codegen.SetEnums(p.Name, v, k.Options, k.Literal)
		default:
			return nil, wrongType(p, value)
		}
		if err != nil {
			return nil, err
		}
		return one(cmd)
	case model.Boolean:
		if v, ok := value.(bool); ok {
			return one(codegen.SetBool(p.Name, v))
		}
	case model.Point:
		if v, ok := value.(types.Point); ok {
			return codegen.SetPoint(p.Name, v), nil
		}
	case model.Range:
		if v, ok := value.(types.Range); ok {
			return one(codegen.SetRange(p.Name, v))
		}
	case model.Color:
		if v, ok := value.(types.Color); ok {
			return one(codegen.SetColor(p.Name, v))
		}
	case model.DateTime:
		if v, ok := value.(types.DateTime); ok {
			return one(b.state.SetDateTime(p.Name, v))
		}
	case model.VectorDestination, model.RasterDestination, model.FileDestination, model.FolderDestination:
		invariant.Invariant(false, "destination %s reached the input import", p.Name)
	default:
		invariant.Invariant(false, "unhandled parameter kind %T", p.Kind)
	}
	return nil, wrongType(p, value)
}

func (b *builder) rasterImport(ctx context.Context, param, variable, ref string) (string, error) {
	layer, err := b.env.Resolver.ResolveSource(ctx, param, ref)
	if err != nil {
		return "", err
	}
	if layer.Provider != types.ProviderGDAL {
		return "", &UnsupportedProviderError{Parameter: variable, Provider: layer.Provider}
	}
	layer.Path = slashed(layer.Path)
	return b.state.ReadRaster(variable, layer), nil
}

func (b *builder) vectorImport(ctx context.Context, param, variable, ref string) (string, error) {
	layer, err := b.env.Resolver.ResolveSource(ctx, param, ref)
	if err != nil {
		return "", err
	}
	layer.Path = slashed(layer.Path)
	return b.state.ReadVector(variable, layer), nil
}
