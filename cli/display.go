package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/opal-lang/rsx/core/model"
)

// node is one line of a rendered tree.
type node struct {
	label    string
	children []node
}

// DisplayAlgorithm renders the parameters, outputs and flags of alg as a
// tree.
func DisplayAlgorithm(w io.Writer, alg *model.Algorithm, useColor bool) error {
	fingerprint, err := alg.Fingerprint()
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s (%s)", alg.DisplayName, alg.Name)
	if alg.Group != "" {
		title += " [" + alg.Group + "]"
	}
	_, _ = fmt.Fprintf(w, "%s:\n", Colorize(title, ColorBlue, useColor))

	params := node{label: "parameters"}
	for _, p := range alg.Parameters {
		params.children = append(params.children, node{label: parameterLabel(p, useColor)})
	}
	outputs := node{label: "outputs"}
	for _, o := range alg.Outputs {
		outputs.children = append(outputs.children, node{
			label: fmt.Sprintf("%s %s", o.Name, Colorize(model.OutputKindName(o.Kind), ColorGray, useColor)),
		})
	}
	sections := []node{params, outputs}
	if flags := flagNames(alg.Flags); len(flags) > 0 {
		sections = append(sections, node{label: "flags " + strings.Join(flags, ", ")})
	}
	if len(alg.GithubDependencies) > 0 {
		sections = append(sections, node{label: "github " + strings.Join(alg.GithubDependencies, ", ")})
	}
	for _, d := range alg.Diagnostics {
		sections = append(sections, node{label: Colorize("error "+d.Error(), ColorRed, useColor)})
	}
	sections = append(sections, node{label: "fingerprint " + Colorize(fingerprint, ColorGray, useColor)})

	renderNodes(w, sections, "")
	return nil
}

func parameterLabel(p *model.Parameter, useColor bool) string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteString(" ")
	b.WriteString(Colorize(model.KindName(p.Kind), ColorGray, useColor))
	if p.Default != nil {
		fmt.Fprintf(&b, " = %v", p.Default)
	}
	if p.Optional {
		b.WriteString(" (optional)")
	}
	return b.String()
}

func flagNames(f model.Flags) []string {
	var out []string
	if f.ShowPlots {
		out = append(out, "showplots")
	}
	if f.ShowConsoleOutput {
		out = append(out, "console_output")
	}
	if f.PassFileNames {
		out = append(out, "pass_filenames")
	}
	if !f.AutoLoadPackages {
		out = append(out, "dont_load_any_packages")
	}
	return out
}

// renderNodes writes nodes with tree characters below indent.
func renderNodes(w io.Writer, nodes []node, indent string) {
	for i, n := range nodes {
		prefix, childIndent := "├─ ", "│  "
		if i == len(nodes)-1 {
			prefix, childIndent = "└─ ", "   "
		}
		label := n.label
		if len(n.children) == 0 && (label == "parameters" || label == "outputs") {
			label += " (none)"
		}
		_, _ = fmt.Fprintf(w, "%s%s%s\n", indent, prefix, label)
		renderNodes(w, n.children, indent+childIndent)
	}
}

// DisplayAlgorithms prints one line per loaded script.
func DisplayAlgorithms(w io.Writer, algs []*model.Algorithm, useColor bool) {
	if len(algs) == 0 {
		_, _ = fmt.Fprintln(w, "(no scripts)")
		return
	}
	width := 0
	for _, a := range algs {
		width = max(width, len(a.Name))
	}
	for _, a := range algs {
		line := fmt.Sprintf("%-*s  %s", width, a.Name, a.DisplayName)
		if a.Group != "" {
			line += " " + Colorize("["+a.Group+"]", ColorGray, useColor)
		}
		if len(a.Diagnostics) > 0 {
			line += " " + Colorize("(errors)", ColorRed, useColor)
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

// DisplayResults prints the results of a run sorted by name.
func DisplayResults(w io.Writer, results map[string]string, useColor bool) {
	names := make([]string, 0, len(results))
	for k := range results {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		_, _ = fmt.Fprintf(w, "%s = %s\n", Colorize(k, ColorCyan, useColor), results[k])
	}
}

type parameterJSON struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Help        string `json:"help,omitempty"`
}

type outputJSON struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

type algorithmJSON struct {
	Name         string          `json:"name"`
	DisplayName  string          `json:"display_name"`
	Group        string          `json:"group,omitempty"`
	Fingerprint  string          `json:"fingerprint"`
	Executable   bool            `json:"executable"`
	Parameters   []parameterJSON `json:"parameters"`
	Outputs      []outputJSON    `json:"outputs"`
	Flags        []string        `json:"flags,omitempty"`
	Github       []string        `json:"github,omitempty"`
	Diagnostics  []string        `json:"diagnostics,omitempty"`
	InputsSchema map[string]any  `json:"inputs_schema"`
}

// WriteAlgorithmJSON prints an indented JSON description of alg.
func WriteAlgorithmJSON(w io.Writer, alg *model.Algorithm) error {
	fingerprint, err := alg.Fingerprint()
	if err != nil {
		return err
	}
	executable, _ := alg.CanExecute()
	out := algorithmJSON{
		Name:         alg.Name,
		DisplayName:  alg.DisplayName,
		Group:        alg.Group,
		Fingerprint:  fingerprint,
		Executable:   executable,
		Parameters:   []parameterJSON{},
		Outputs:      []outputJSON{},
		Flags:        flagNames(alg.Flags),
		Github:       alg.GithubDependencies,
		InputsSchema: alg.InputSchema(),
	}
	for _, p := range alg.Parameters {
		out.Parameters = append(out.Parameters, parameterJSON{
			Name:        p.Name,
			Kind:        model.KindName(p.Kind),
			Description: p.Description,
			Default:     p.Default,
			Optional:    p.Optional,
			Help:        alg.ParameterHelp(p.Name),
		})
	}
	for _, o := range alg.Outputs {
		out.Outputs = append(out.Outputs, outputJSON{
			Name:        o.Name,
			Kind:        model.OutputKindName(o.Kind),
			Description: o.Description,
		})
	}
	for _, d := range alg.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, d.Error())
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
