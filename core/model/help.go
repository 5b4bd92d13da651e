package model

import (
	"html"
	"strings"
)

// HelpMap is an insertion ordered string map.
type HelpMap struct {
	keys   []string
	values map[string]string
}

// NewHelpMap returns an empty map.
func NewHelpMap() *HelpMap {
	return &HelpMap{values: make(map[string]string)}
}

// Set stores value under key. Existing keys keep their position.
func (m *HelpMap) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Append joins value onto the most recently inserted key with a space.
// It reports false when the map is empty.
func (m *HelpMap) Append(value string) bool {
	key, ok := m.Last()
	if !ok {
		return false
	}
	m.values[key] = m.values[key] + " " + value
	return true
}

func (m *HelpMap) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Last returns the most recently inserted key.
func (m *HelpMap) Last() (string, bool) {
	if m == nil || len(m.keys) == 0 {
		return "", false
	}
	return m.keys[len(m.keys)-1], true
}

func (m *HelpMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

func (m *HelpMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Well-known help keys.
const (
	HelpDescription = "ALG_DESC"
	HelpCreator     = "ALG_CREATOR"
	HelpHelpCreator = "ALG_HELP_CREATOR"
	HelpVersion     = "ALG_VERSION"
)

// HelpHTML renders the algorithm help as an HTML page. The .help file wins
// over inline help. Returns "" when neither exists.
func (a *Algorithm) HelpHTML() string {
	m := a.Description
	if m == nil {
		m = a.Help
	}
	if m == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	if v, ok := m.Get(HelpDescription); ok {
		b.WriteString("<h2>Algorithm description</h2>\n<p>" + html.EscapeString(v) + "</p>\n")
	}

	var inputs, outputs strings.Builder
	for _, p := range a.Parameters {
		v, ok := m.Get(p.Name)
		if !ok {
			continue
		}
		section := &inputs
		if p.IsDestination() {
			section = &outputs
		}
		section.WriteString("<h3>" + html.EscapeString(p.Description) + "</h3>\n<p>" + html.EscapeString(v) + "</p>\n")
	}
	for _, o := range a.Outputs {
		if v, ok := m.Get(o.Name); ok {
			outputs.WriteString("<h3>" + html.EscapeString(o.Description) + "</h3>\n<p>" + html.EscapeString(v) + "</p>\n")
		}
	}
	if inputs.Len() > 0 {
		b.WriteString("<h2>Input parameters</h2>\n" + inputs.String())
	}
	if outputs.Len() > 0 {
		b.WriteString("<h2>Outputs</h2>\n" + outputs.String())
	}

	b.WriteString("<br>")
	for _, kv := range []struct{ key, label string }{
		{HelpCreator, "Algorithm author:"},
		{HelpHelpCreator, "Help author:"},
		{HelpVersion, "Algorithm version:"},
	} {
		if v, ok := m.Get(kv.key); ok {
			b.WriteString(`<p align="right">` + kv.label + " " + html.EscapeString(v) + "</p>")
		}
	}
	b.WriteString("</body></html>")
	return b.String()
}
