package params

import (
	"fmt"
	"strings"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/runtime/directive"
)

// Result is what an output directive declares: either a reported Output or a
// destination Parameter the caller supplies a path for.
type Result struct {
	Output    *model.Output
	Parameter *model.Parameter
}

// Name returns the declared name.
func (r Result) Name() string {
	if r.Output != nil {
		return r.Output.Name
	}
	return r.Parameter.Name
}

// outputFallbacks are the reported outputs used when no destination applies.
var outputFallbacks = map[string]func() model.OutputKind{
	"layer":  func() model.OutputKind { return model.LayerOutput{} },
	"folder": func() model.OutputKind { return model.FolderOutput{} },
	"file":   func() model.OutputKind { return model.FileOutput{} },
	"html":   func() model.OutputKind { return model.HTMLOutput{} },
	"number": func() model.OutputKind { return model.NumberOutput{} },
	"string": func() model.OutputKind { return model.StringOutput{} },
	"raster": func() model.OutputKind { return model.RasterOutput{} },
}

// CreateOutput builds the output declared by body, e.g. "out=output vector".
// It reports false when body is not an output directive or names an
// unknown output type.
func CreateOutput(body string) (Result, bool) {
	if directive.IsTyped(body) {
		if !strings.HasPrefix(body, directive.OutputPrefix) {
			return Result{}, false
		}
		out, ok := createTypedOutput(body)
		return Result{Output: out}, ok
	}

	name, token, ok := strings.Cut(body, "=")
	if !ok {
		return Result{}, false
	}
	token = strings.TrimSpace(token)
	if len(token) < len("output") || !strings.EqualFold(token[:len("output")], "output") {
		return Result{}, false
	}
	token = strings.TrimPrefix(token[len("output"):], " ")
	return fromToken(name, directive.DescriptiveName(name), token)
}

func fromToken(name, description, token string) (Result, bool) {
	noPrompt := strings.Contains(token, "noprompt")
	if noPrompt {
		token = strings.ReplaceAll(token, " noprompt", "")
	}
	outputType := strings.ToLower(strings.TrimSpace(token))

	output := func(kind model.OutputKind) (Result, bool) {
		return Result{Output: &model.Output{Name: name, Description: description, Kind: kind}}, true
	}
	destination := func(kind model.ParameterKind) (Result, bool) {
		return Result{Parameter: &model.Parameter{Name: name, Description: description, Kind: kind}}, true
	}

	switch {
	case strings.HasPrefix(outputType, "vector"):
		lt := model.LayerAnyGeometry
		switch outputType {
		case "vector point":
			lt = model.LayerPoint
		case "vector line":
			lt = model.LayerLine
		case "vector polygon":
			lt = model.LayerPolygon
		}
		if noPrompt {
			return output(model.VectorOutput{LayerType: lt})
		}
		return destination(model.VectorDestination{LayerType: lt})
	case strings.HasPrefix(outputType, "table"):
		if noPrompt {
			return output(model.TableOutput{})
		}
		return destination(model.VectorDestination{LayerType: model.LayerTable})
	case outputType == "multilayers":
		return Result{}, false
	case !noPrompt && strings.HasPrefix(outputType, "raster"):
		return destination(model.RasterDestination{})
	case !noPrompt && strings.HasPrefix(outputType, "folder"):
		return destination(model.FolderDestination{})
	case !noPrompt && strings.HasPrefix(outputType, "html"):
		return destination(model.FileDestination{Filter: "HTML Files (*.html)", Extension: "html"})
	case !noPrompt && strings.HasPrefix(outputType, "file"):
		if ext := fileExtension(token); ext != "" {
			return destination(model.FileDestination{
				Filter:    fmt.Sprintf("%s Files (*.%s)", strings.ToUpper(ext), ext),
				Extension: ext,
			})
		}
		return destination(model.FileDestination{})
	}

	if fallback, ok := outputFallbacks[outputType]; ok {
		return output(fallback())
	}
	if strings.HasPrefix(outputType, "file") {
		return output(model.FileOutput{Extension: fileExtension(token)})
	}
	return Result{}, false
}

// fileExtension returns "csv" for "file csv".
func fileExtension(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= len("file") {
		return ""
	}
	return strings.TrimSpace(token[len("file"):])
}
