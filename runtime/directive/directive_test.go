package directive

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantValue string
		wantToken string
	}{
		{"legacy", "Layer=source", "Layer", "source"},
		{"legacy keeps remainder", "s=string a=b", "s", "string a=b"},
		{"typed parameter", "QgsProcessingParameterNumber|x|X|1|5", "x", "QgsProcessingParameterNumber|x|X|1|5"},
		{"typed output", "QgsProcessingOutputNumber|n|N", "n", "QgsProcessingOutputNumber|n|N"},
		{"pipe without typed prefix is legacy", "e=enum a|b", "e", "enum a|b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, token, err := Split(tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, value)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestSplitMalformed(t *testing.T) {
	_, _, err := Split("polygon")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestUpgradeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Layer=vector",
		"Layer=vector point",
		"mode=selection a;b;c",
		"x=number 5",
		"out=output vector",
		"a=vector=vector",
		"QgsProcessingParameterVectorLayer|v|V",
		"",
	}
	for _, in := range inputs {
		once := Upgrade(in)
		assert.Equal(t, once, Upgrade(once), "input %q", in)
	}
	assert.Equal(t, "Layer=source point", Upgrade("Layer=vector point"))
	assert.Equal(t, "mode=enum a;b;c", Upgrade("mode=selection a;b;c"))
	assert.Equal(t, "out=output vector", Upgrade("out=output vector"))
}

func TestClassify(t *testing.T) {
	tests := map[string]Special{
		"output_plots_to_html":    ShowPlots,
		"  ShowPlots":             ShowPlots,
		"load_raster_using_rgdal": Unsupported,
		"dontuserasterpackage":    Unsupported,
		"load_vector_using_rgdal": Unsupported,
		"pass_filenames":          PassFileNames,
		"passfilenames":           PassFileNames,
		"dont_load_any_packages":  DontLoadPackages,
		"Layer=source":            NotSpecial,
	}
	for body, want := range tests {
		assert.Equal(t, want, Classify(body), body)
	}
}

func TestParseScriptCode(t *testing.T) {
	tests := []struct {
		body string
		want ScriptCode
	}{
		{"x=number 0 0 10", ScriptCode{Name: "x", Type: "number", Definition: "0 0 10"}},
		{"Layer=source", ScriptCode{Name: "Layer", Type: "source"}},
		{"s=optional string hello world", ScriptCode{Name: "s", Optional: true, Type: "string", Definition: "hello world"}},
		{"b=Optional   Boolean True", ScriptCode{Name: "b", Optional: true, Type: "boolean", Definition: "True"}},
	}
	for _, tt := range tests {
		got, err := ParseScriptCode(tt.body)
		require.NoError(t, err, tt.body)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseScriptCode(%q) mismatch (-want +got):\n%s", tt.body, diff)
		}
	}

	_, err := ParseScriptCode("x=")
	assert.True(t, errors.Is(err, ErrMalformed))
	_, err = ParseScriptCode("nothing")
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestIsValidRVariable(t *testing.T) {
	valid := []string{"Layer", "in_number", "x.y", ".hidden", "a1", "A_b.C"}
	invalid := []string{"", "1abc", "_x", ".1", "a-b", "a b", "ä"}
	for _, v := range valid {
		assert.True(t, IsValidRVariable(v), v)
	}
	for _, v := range invalid {
		assert.False(t, IsValidRVariable(v), v)
	}
}

func TestNameHelpers(t *testing.T) {
	assert.Equal(t, "MyAlgorithm2", StripSpecialCharacters("My Algorithm-2!"))
	assert.Equal(t, "in number", DescriptiveName("in_number"))
}
