package codegen

import (
	"strings"
	"text/template"

	"github.com/opal-lang/rsx/core/invariant"
)

// Statement template names.
const (
	TmplReadVector    = "read-vector"
	TmplReadRaster    = "read-raster"
	TmplWriteVector   = "write-vector"
	TmplWriteCSV      = "write-csv"
	TmplWriteRaster   = "write-raster"
	TmplCatName       = "cat-name"
	TmplCatValue      = "cat-value"
	TmplLayerList     = "layer-list"
	TmplPNG           = "png"
	TmplDevOff        = "dev-off"
	TmplCheckPackage  = "check-package"
	TmplLoadPackage   = "load-package"
	TmplInstallGithub = "install-github"
	TmplRepos         = "repos"
	TmplLibPaths      = "lib-paths"
)

// stmt is the data every statement template renders from.
type stmt struct {
	Var     string
	Path    string
	Layer   string
	Name    string
	Options string
	Items   []string
}

const (
	readVectorTemplate    = `{{.Var}} <- st_read({{q .Path}}{{with .Layer}}, layer = {{q .}}{{end}}, quiet = TRUE, stringsAsFactors = FALSE)`
	readRasterTemplate    = `{{.Var}} <- brick({{q .Path}})`
	writeVectorTemplate   = `st_write({{.Var}}, {{q .Path}}{{with .Layer}}, layer = {{q .}}{{end}}, quiet = TRUE)`
	writeCSVTemplate      = `write.csv({{.Var}}, {{q .Path}}, row.names = FALSE)`
	writeRasterTemplate   = `writeRaster({{.Var}}, {{q .Path}}, overwrite = TRUE)`
	catNameTemplate       = `cat({{q (printf "##%s" .Var)}}, file={{q .Path}}, sep="\n", append=TRUE)`
	catValueTemplate      = `cat({{.Var}}, file={{q .Path}}, sep="\n", append=TRUE)`
	layerListTemplate     = `{{.Var}} = list({{join .Items ","}})`
	pngTemplate           = `png({{q .Path}})`
	devOffTemplate        = `dev.off()`
	checkPackageTemplate  = `tryCatch(find.package({{q .Name}}), error = function(e) install.packages({{q .Name}}, dependencies=TRUE))`
	loadPackageTemplate   = `library({{q .Name}}{{with .Options}}, {{.}}{{end}})`
	installGithubTemplate = `remotes::install_github({{q .Name}})`
	reposTemplate         = `options("repos"={{q .Path}})`
	libPathsTemplate      = `.libPaths({{q .Path}})`
)

// TemplateRegistry holds the parsed statement templates.
type TemplateRegistry struct {
	templates map[string]string
	root      *template.Template
}

// NewTemplateRegistry creates a registry with every statement component.
func NewTemplateRegistry() *TemplateRegistry {
	tr := &TemplateRegistry{templates: make(map[string]string)}
	tr.registerComponents()

	root := template.New("rsx").Funcs(template.FuncMap{
		"q":    Quote,
		"join": strings.Join,
	})
	for name, text := range tr.templates {
		template.Must(root.New(name).Parse(text))
	}
	tr.root = root
	return tr
}

func (tr *TemplateRegistry) registerComponents() {
	// Data input
	tr.templates[TmplReadVector] = readVectorTemplate
	tr.templates[TmplReadRaster] = readRasterTemplate
	tr.templates[TmplLayerList] = layerListTemplate

	// Data output
	tr.templates[TmplWriteVector] = writeVectorTemplate
	tr.templates[TmplWriteCSV] = writeCSVTemplate
	tr.templates[TmplWriteRaster] = writeRasterTemplate
	tr.templates[TmplCatName] = catNameTemplate
	tr.templates[TmplCatValue] = catValueTemplate

	// Graphics
	tr.templates[TmplPNG] = pngTemplate
	tr.templates[TmplDevOff] = devOffTemplate

	// Packages
	tr.templates[TmplCheckPackage] = checkPackageTemplate
	tr.templates[TmplLoadPackage] = loadPackageTemplate
	tr.templates[TmplInstallGithub] = installGithubTemplate
	tr.templates[TmplRepos] = reposTemplate
	tr.templates[TmplLibPaths] = libPathsTemplate
}

// GetTemplate returns the source of a template component.
func (tr *TemplateRegistry) GetTemplate(name string) (string, bool) {
	text, ok := tr.templates[name]
	return text, ok
}

// Names lists the registered components.
func (tr *TemplateRegistry) Names() []string {
	names := make([]string, 0, len(tr.templates))
	for name := range tr.templates {
		names = append(names, name)
	}
	return names
}

// render executes a registered template. Templates are fixed at init so a
// failure here is a bug.
func (tr *TemplateRegistry) render(name string, data stmt) string {
	t := tr.root.Lookup(name)
	invariant.Precondition(t != nil, "unknown statement template %q", name)
	var b strings.Builder
	invariant.ExpectNoError(t.Execute(&b, data), "executing template "+name)
	return b.String()
}

var defaultRegistry = NewTemplateRegistry()
