// Package codegen renders typed values and I/O operations as R statements.
//
// Value renderers (SetString, SetExtent, ...) are pure functions. Renderers
// that read or write data, or that pull in extra packages, are methods on
// State, which carries the per-run generator flags and the set of packages
// the generated header has to load. A State is never shared between runs.
package codegen

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/core/types"
)

// Packages loaded for every script unless automatic loading is disabled.
var basePackages = []string{"sf", "raster"}

const (
	lubridatePackage = "lubridate"
	remotesPackage   = "remotes"
)

// State is the mutable generator configuration of one run.
type State struct {
	AutoLoadPackages   bool
	InstallGithub      bool
	GithubDependencies []string
	// PassFileNames makes layer inputs plain path strings instead of reads.
	PassFileNames bool

	needsLubridate bool
	registry       *TemplateRegistry
}

// NewState derives the generator state from a parsed algorithm.
func NewState(alg *model.Algorithm) *State {
	return &State{
		AutoLoadPackages:   alg.Flags.AutoLoadPackages,
		InstallGithub:      alg.Flags.InstallGithub,
		GithubDependencies: slices.Clone(alg.GithubDependencies),
		PassFileNames:      alg.Flags.PassFileNames,
		registry:           defaultRegistry,
	}
}

func (s *State) render(name string, data stmt) string {
	if s.registry == nil {
		s.registry = defaultRegistry
	}
	return s.registry.render(name, data)
}

// NeedsLubridate reports whether a rendered time value requires lubridate.
func (s *State) NeedsLubridate() bool { return s.needsLubridate }

// NecessaryPackages lists the packages the header installs and loads
// before any script supplied library() call.
func (s *State) NecessaryPackages() []string {
	var pkgs []string
	if s.AutoLoadPackages {
		pkgs = append(pkgs, basePackages...)
	}
	if s.needsLubridate {
		pkgs = append(pkgs, lubridatePackage)
	}
	if s.InstallGithub && len(s.GithubDependencies) > 0 {
		pkgs = append(pkgs, remotesPackage)
	}
	return pkgs
}

// SetDateTime renders a date, time or datetime by its kind. Times mark
// lubridate as required.
func (s *State) SetDateTime(variable string, dt types.DateTime) string {
	return assign(variable, s.dateTimeLiteral(dt))
}

func (s *State) dateTimeLiteral(dt types.DateTime) string {
	switch dt.Kind {
	case types.KindDate:
		return fmt.Sprintf(`as.POSIXct(%s, format = "%%Y-%%m-%%d")`, Quote(dt.ISO()))
	case types.KindTime:
		s.needsLubridate = true
		return fmt.Sprintf("lubridate::hms(%s)", Quote(dt.ISO()))
	default:
		return fmt.Sprintf(`as.POSIXct(%s, format = "%%Y-%%m-%%dT%%H:%%M:%%S")`, Quote(dt.ISO()))
	}
}

// SetValue renders a value produced by expression evaluation. Integers
// stay integers; lists become list(...) of element literals.
func (s *State) SetValue(variable string, value any) (string, error) {
	lit, err := s.literal(value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", variable, err)
	}
	return assign(variable, lit), nil
}

func (s *State) literal(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case string:
		return Quote(v), nil
	case bool:
		return FormatBool(v), nil
	case int:
		return fmt.Sprint(v), nil
	case int64:
		return fmt.Sprint(v), nil
	case float64:
		return FormatDouble(v), nil
	case types.DateTime:
		return s.dateTimeLiteral(v), nil
	case types.Geometry:
		return geometryLiteral(v.WKT), nil
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			lit, err := s.literal(elem)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "list(" + strings.Join(parts, ", ") + ")", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

// ReadVector loads a vector layer, or binds its path when file names are
// passed through.
func (s *State) ReadVector(variable string, layer types.Layer) string {
	if s.PassFileNames {
		return SetString(variable, layer.Path)
	}
	return s.render(TmplReadVector, stmt{Var: variable, Path: layer.Path, Layer: layer.LayerName})
}

// ReadRaster loads a raster layer, or binds its path when file names are
// passed through.
func (s *State) ReadRaster(variable string, layer types.Layer) string {
	if s.PassFileNames {
		return SetString(variable, layer.Path)
	}
	return s.render(TmplReadRaster, stmt{Var: variable, Path: layer.Path})
}

// TempVar names the i-th element of a multi-layer input.
func TempVar(i int) string {
	return fmt.Sprintf("tempvar%d", i)
}

// LayerList binds variable to list(tempvar0,...,tempvar<n-1>).
func (s *State) LayerList(variable string, n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = TempVar(i)
	}
	return s.render(TmplLayerList, stmt{Var: variable, Items: items})
}

// WriteVector writes a vector destination. A .csv path selects the table
// writer; other paths use the file's base name as layer name.
func (s *State) WriteVector(variable, dest string) string {
	base := path.Base(dest)
	ext := path.Ext(base)
	if strings.EqualFold(ext, ".csv") {
		return s.render(TmplWriteCSV, stmt{Var: variable, Path: dest})
	}
	return s.render(TmplWriteVector, stmt{Var: variable, Path: dest, Layer: strings.TrimSuffix(base, ext)})
}

// WriteRaster writes a raster destination.
func (s *State) WriteRaster(variable, dest string) string {
	return s.render(TmplWriteRaster, stmt{Var: variable, Path: dest})
}

// WriteOutputValue appends "##name" and the value of name to file.
func (s *State) WriteOutputValue(name, file string) []string {
	return []string{
		s.render(TmplCatName, stmt{Var: name, Path: file}),
		s.render(TmplCatValue, stmt{Var: name, Path: file}),
	}
}

// CreatePNG opens the plot device.
func (s *State) CreatePNG(file string) string {
	return s.render(TmplPNG, stmt{Path: file})
}

// DevOff closes the plot device.
func (s *State) DevOff() string {
	return s.render(TmplDevOff, stmt{})
}

// CheckPackage installs name from the configured repository when missing.
func (s *State) CheckPackage(name string) string {
	return s.render(TmplCheckPackage, stmt{Name: name})
}

// LoadPackage renders library("name"[, options]).
func (s *State) LoadPackage(name, options string) string {
	return s.render(TmplLoadPackage, stmt{Name: name, Options: options})
}

// InstallPackageGithub renders remotes::install_github("owner/repo").
func (s *State) InstallPackageGithub(repo string) string {
	return s.render(TmplInstallGithub, stmt{Name: strings.TrimSpace(repo)})
}

// SetRepos points install.packages at repo.
func (s *State) SetRepos(repo string) string {
	return s.render(TmplRepos, stmt{Path: repo})
}

// ChangeLibPath prepends a package library folder.
func (s *State) ChangeLibPath(dir string) string {
	return s.render(TmplLibPaths, stmt{Path: strings.ReplaceAll(dir, `\`, "/")})
}

// Package is a library() call found in a script.
type Package struct {
	Name    string
	Options string // verbatim text after the first comma
}

var libraryCall = regexp.MustCompile(`(?:^|[^#])library\("?(.*?)"?\)`)

// RequiredPackages scans script for library() calls that are not directly
// commented out.
func RequiredPackages(script string) []Package {
	var pkgs []Package
	for _, m := range libraryCall.FindAllStringSubmatch(script, -1) {
		name, options, _ := strings.Cut(m[1], ",")
		name = strings.Trim(strings.TrimSpace(name), `"'`)
		if name == "" {
			continue
		}
		pkgs = append(pkgs, Package{Name: name, Options: strings.TrimSpace(options)})
	}
	return pkgs
}

// HeaderOptions configure the package section of the generated script.
type HeaderOptions struct {
	Repo        string // CRAN mirror; empty skips options("repos")
	LibraryPath string // user library; empty keeps R's default
}

// HeaderCommands builds the script preamble: repository, library path,
// the necessary packages, github installs, then packages loaded by the
// script itself. Each package is checked and loaded once.
func (s *State) HeaderCommands(script string, opts HeaderOptions) []string {
	var cmds []string
	if opts.Repo != "" {
		cmds = append(cmds, s.SetRepos(opts.Repo))
	}
	if opts.LibraryPath != "" {
		cmds = append(cmds, s.ChangeLibPath(opts.LibraryPath))
	}

	seen := make(map[string]bool)
	for _, p := range s.NecessaryPackages() {
		seen[p] = true
		cmds = append(cmds, s.CheckPackage(p), s.LoadPackage(p, ""))
	}
	if s.InstallGithub {
		for _, dep := range s.GithubDependencies {
			cmds = append(cmds, s.InstallPackageGithub(dep))
		}
	}
	for _, p := range RequiredPackages(script) {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		cmds = append(cmds, s.CheckPackage(p.Name), s.LoadPackage(p.Name, p.Options))
	}
	return cmds
}

// LatePackages returns check and load statements for packages that became
// necessary after the header was built, skipping those in loaded.
func (s *State) LatePackages(loaded []string) []string {
	var cmds []string
	for _, p := range s.NecessaryPackages() {
		if slices.Contains(loaded, p) {
			continue
		}
		cmds = append(cmds, s.CheckPackage(p), s.LoadPackage(p, ""))
	}
	return cmds
}
