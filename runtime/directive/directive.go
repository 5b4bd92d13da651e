// Package directive tokenizes the "##" annotation lines of an R script.
//
// A directive body (the text after the leading '#' characters) comes in two
// forms:
//
//	name=type [modifiers]                      legacy form
//	QgsProcessingParameterNumber|name|desc|... typed form
//
// Split separates the variable name from the type token for both forms.
package directive

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Typed-form prefixes.
const (
	ParameterPrefix = "QgsProcessingParameter"
	OutputPrefix    = "QgsProcessingOutput"
)

// ErrMalformed is returned for a directive with neither '=' nor a typed form.
var ErrMalformed = errors.New("malformed directive")

// IsTyped reports whether body uses the pipe-delimited typed form.
func IsTyped(body string) bool {
	return strings.Contains(body, "|") &&
		(strings.HasPrefix(body, ParameterPrefix) || strings.HasPrefix(body, OutputPrefix))
}

// Split returns the variable name and the type token of a directive body.
// For the typed form the whole body is the token.
func Split(body string) (value, token string, err error) {
	if IsTyped(body) {
		tokens := strings.Split(body, "|")
		return tokens[1], body, nil
	}
	name, rest, ok := strings.Cut(body, "=")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrMalformed, body)
	}
	return name, rest, nil
}

var upgrades = []struct{ old, new string }{
	{"=selection", "=enum"},
	{"=vector", "=source"},
}

// Upgrade rewrites legacy type spellings to their current names.
// Upgrade(Upgrade(s)) == Upgrade(s).
func Upgrade(body string) string {
	for _, u := range upgrades {
		body = strings.ReplaceAll(body, u.old, u.new)
	}
	return body
}

// Special is a directive that sets a flag instead of declaring a parameter.
type Special int

const (
	NotSpecial Special = iota
	ShowPlots
	PassFileNames
	DontLoadPackages
	// Unsupported directives selected the rgdal backend, which is gone.
	Unsupported
)

var specials = []struct {
	prefix string
	kind   Special
}{
	{"output_plots_to_html", ShowPlots},
	{"showplots", ShowPlots},
	{"load_raster_using_rgdal", Unsupported},
	{"dontuserasterpackage", Unsupported},
	{"load_vector_using_rgdal", Unsupported},
	{"pass_filenames", PassFileNames},
	{"passfilenames", PassFileNames},
	{"dont_load_any_packages", DontLoadPackages},
}

// Classify recognizes special keywords, case-insensitively. First match wins.
func Classify(body string) Special {
	b := strings.ToLower(strings.TrimSpace(body))
	for _, s := range specials {
		if strings.HasPrefix(b, s.prefix) {
			return s.kind
		}
	}
	return NotSpecial
}

// ScriptCode is a legacy directive split into its parts:
//
//	name=[optional] type definition
type ScriptCode struct {
	Name       string
	Optional   bool
	Type       string // lower case
	Definition string
}

// ParseScriptCode splits a legacy directive body.
func ParseScriptCode(body string) (ScriptCode, error) {
	name, rest, ok := strings.Cut(strings.TrimLeft(body, "#"), "=")
	if !ok {
		return ScriptCode{}, fmt.Errorf("%w: %q", ErrMalformed, body)
	}
	sc := ScriptCode{Name: strings.TrimSpace(name)}

	rest = strings.TrimLeft(rest, " \t")
	if len(rest) >= len("optional") && strings.EqualFold(rest[:len("optional")], "optional") {
		sc.Optional = true
		rest = rest[len("optional"):]
	}
	rest = strings.TrimSpace(rest)

	if typ, def, ok := strings.Cut(rest, " "); ok {
		sc.Type = strings.ToLower(strings.TrimSpace(typ))
		sc.Definition = strings.TrimSpace(def)
	} else {
		sc.Type = strings.ToLower(rest)
	}
	if sc.Type == "" {
		return ScriptCode{}, fmt.Errorf("%w: missing type in %q", ErrMalformed, body)
	}
	return sc, nil
}

const validChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// StripSpecialCharacters keeps ASCII letters and digits only.
func StripSpecialCharacters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(validChars, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DescriptiveName turns a variable name into a label.
func DescriptiveName(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

var (
	rIdentChars   = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)
	rIdentBadHead = regexp.MustCompile(`^[0-9_]|^\.[0-9]`)
)

// IsValidRVariable reports whether name can be used as an R variable:
// letters, digits, '.' and '_' only, not starting with a digit, '_' or '.'
// followed by a digit.
func IsValidRVariable(name string) bool {
	return rIdentChars.MatchString(name) && !rIdentBadHead.MatchString(name)
}
