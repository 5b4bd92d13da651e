package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/rsx/runtime/config"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// rsx runs the command line with RSX_* variables cleared and extraConfig
// as the YAML configuration.
func rsx(t *testing.T, stdin, extraConfig string, args ...string) result {
	t.Helper()
	for _, key := range []string{
		config.EnvRFolder, config.EnvScriptsFolder, config.EnvRepo, config.EnvMinVersion,
		config.EnvLibsUser, config.EnvRUse64, "RSX_DEBUG",
	} {
		// Setenv restores the variable after the test.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv(config.EnvUseUserLib, "false")

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(extraConfig), 0o644))

	var out, errb bytes.Buffer
	argv := append([]string{"--config", cfg, "--no-color"}, args...)
	code := run(context.Background(), argv, strings.NewReader(stdin), &out, &errb)
	return result{code: code, stdout: out.String(), stderr: errb.String()}
}

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckValidScript(t *testing.T) {
	path := writeScript(t, t.TempDir(), "buffer.rsx", "##Layer=vector\n##dist=number 10\n##out=output vector\nout <- Layer")

	r := rsx(t, "", "", "check", path)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "ok buffer (3 parameters, 0 outputs)\n", r.stdout)
}

func TestCheckReportsDiagnostics(t *testing.T) {
	path := writeScript(t, t.TempDir(), "old.rsx", "##load_vector_using_rgdal\nprint(1)")

	r := rsx(t, "", "", "check", path)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stdout, "line 1:")
	assert.Contains(t, r.stderr, "Error: old cannot be executed: 1 problem")
}

func TestCheckMissingFile(t *testing.T) {
	r := rsx(t, "", "", "check", filepath.Join(t.TempDir(), "nope.rsx"))
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "could not read script")
}

func TestCheckReadsStdin(t *testing.T) {
	r := rsx(t, "##x=number 1\nprint(x)", "", "check", "-")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "ok unnamedalgorithm (1 parameter, 0 outputs)")
}

func TestBadConfig(t *testing.T) {
	r := rsx(t, "", "bogus: true\n", "list")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "could not load configuration")
}

func TestInspectTree(t *testing.T) {
	path := writeScript(t, t.TempDir(), "Slope_Map.rsx",
		"##Terrain=group\n##dem=raster\n##z=optional number 1\n##total=output number\n##showplots\nplot(dem)")

	r := rsx(t, "", "", "inspect", path)
	require.Equal(t, 0, r.code, r.stderr)
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.GreaterOrEqual(t, len(lines), 7)
	assert.Equal(t, "Slope Map (Slope_Map) [Terrain]:", lines[0])
	assert.Equal(t, "├─ parameters", lines[1])
	assert.Contains(t, r.stdout, "│  ├─ dem raster\n")
	assert.Contains(t, r.stdout, "z number = 1 (optional)")
	assert.Contains(t, r.stdout, "├─ outputs\n│  └─ total number\n")
	assert.Contains(t, r.stdout, "├─ flags showplots\n")
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "└─ fingerprint blake2b:"))
}

func TestInspectJSON(t *testing.T) {
	path := writeScript(t, t.TempDir(), "buffer.rsx", "##Layer=vector\n##dist=number 10\nprint(dist)")

	r := rsx(t, "", "", "inspect", "--json", path)
	require.Equal(t, 0, r.code, r.stderr)

	var got struct {
		Name        string `json:"name"`
		Fingerprint string `json:"fingerprint"`
		Executable  bool   `json:"executable"`
		Parameters  []struct {
			Name    string `json:"name"`
			Kind    string `json:"kind"`
			Default any    `json:"default"`
		} `json:"parameters"`
		InputsSchema map[string]any `json:"inputs_schema"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &got))
	assert.Equal(t, "buffer", got.Name)
	assert.True(t, got.Executable)
	assert.True(t, strings.HasPrefix(got.Fingerprint, "blake2b:"))
	require.Len(t, got.Parameters, 2)
	assert.Equal(t, "Layer", got.Parameters[0].Name)
	assert.Equal(t, "source", got.Parameters[0].Kind)
	assert.Equal(t, 10.0, got.Parameters[1].Default)
	assert.Equal(t, "object", got.InputsSchema["type"])
}

func TestRenderFromStdin(t *testing.T) {
	r := rsx(t, "##x=number 0\n##y=number 3\nprint(x + y)", "", "render", "-", "-p", "x=5.5")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "x <- 5.5\ny <- 3.0\nprint(x + y)\n")
	assert.Contains(t, r.stdout, `options("repos"="http://cran.at.r-project.org/")`)
	assert.NotContains(t, r.stdout, ".libPaths")
}

func TestRenderInputsFile(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "s.rsx", "##x=number 0\n##flag=boolean False\nprint(x)")
	inputs := writeScript(t, dir, "inputs.json", `{"x": 2, "flag": true}`)

	r := rsx(t, "", "", "render", script, "--inputs", inputs, "-p", "x=4")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "x <- 4.0\n")
	assert.Contains(t, r.stdout, "flag <- TRUE\n")
}

func TestRenderRejectsInvalidInputs(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "s.rsx", "##x=number 0 0 10\nprint(x)")
	inputs := writeScript(t, dir, "inputs.json", `{"x": 11, "y": 1}`)

	r := rsx(t, "", "", "render", script, "--inputs", inputs)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Error: invalid inputs")
	assert.Contains(t, r.stderr, "x:")
	assert.Empty(t, r.stdout)
}

func TestRenderBadParamFlag(t *testing.T) {
	r := rsx(t, "##x=number 0\nprint(x)", "", "render", "-", "-p", "x")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `invalid parameter "x"`)
	assert.Contains(t, r.stderr, "Hint: use -p name=value")
}

func TestRenderNotExecutable(t *testing.T) {
	r := rsx(t, "##load_vector_using_rgdal\nprint(1)", "", "render", "-")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "run rsx check")
}

func TestRenderExpressionError(t *testing.T) {
	r := rsx(t, "##n=expression 1 +\nprint(n)", "", "render", "-")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Expression with name `n`")
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "buffer.rsx", "##Vector=group\n##Layer=vector\nprint(Layer)")
	writeScript(t, dir, "old.rsx", "##load_vector_using_rgdal\nprint(1)")

	r := rsx(t, "", "scripts:\n  folders: ["+strconvQuote(dir)+"]\n", "list")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "buffer  buffer [Vector]\nold     old (errors)\n", r.stdout)
}

func TestListEmpty(t *testing.T) {
	r := rsx(t, "", "scripts:\n  folders: ["+strconvQuote(t.TempDir())+"]\n", "list")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "(no scripts)\n", r.stdout)
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// fakeR installs R and Rscript stand-ins. Rscript writes the output values
// the generated script would have written, then exits with status.
func fakeR(t *testing.T, status int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a Unix shell")
	}
	dir := t.TempDir()
	r := "#!/bin/sh\necho 'R version 4.3.1 (2023-06-16)'\n"
	rscript := `#!/bin/sh
f=$(sed -n 's/.*file="\([^"]*\)".*/\1/p' "$1" | head -n 1)
if [ -n "$f" ]; then printf '##total\n42\n' > "$f"; fi
echo '[1] 42'
exit ` + string(rune('0'+status)) + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "R"), []byte(r), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Rscript"), []byte(rscript), 0o755))
	return "r:\n  folder: " + strconvQuote(dir) + "\n"
}

func TestRun(t *testing.T) {
	cfg := fakeR(t, 0)
	r := rsx(t, "##total=output number\n>total <- 42\n", cfg, "run", "-", "--temp-dir", t.TempDir())
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "total = 42\n")
	assert.Contains(t, r.stdout, "R_CONSOLE_OUTPUT = ")
	assert.Contains(t, r.stderr, "[1] 42")
}

func TestRunProcessFailure(t *testing.T) {
	cfg := fakeR(t, 3)
	r := rsx(t, "##total=output number\ntotal <- 42\n", cfg, "run", "-")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stdout, "total = 42\n")
	assert.Contains(t, r.stderr, "R exited with status 3")
}

func TestRunWithoutR(t *testing.T) {
	cfg := "r:\n  folder: " + strconvQuote(t.TempDir()) + "\n"
	r := rsx(t, "print(1)\n", cfg, "run", "-")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "R is not available")
}

func TestNoScriptGiven(t *testing.T) {
	var out, errb bytes.Buffer
	a := &app{stdout: &out, stderr: &errb}
	_, _, err := a.getInputReader(nil)
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, "no script given", cliErr.Message)
}

func TestRunRedactsDatabasePassword(t *testing.T) {
	cfg := fakeR(t, 0)
	r := rsx(t, "##Layer=vector\nprint(Layer)\n", cfg,
		"--debug", "run", "-", "-p", "Layer=dbname=gis host=db password=hunter2")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stderr, "st_read")
	assert.Contains(t, r.stderr, "password=***")
	assert.NotContains(t, r.stderr, "hunter2")
}

func TestCheckPipedInput(t *testing.T) {
	r := rsx(t, "##Buffers=group\nprint(1)", "", "check")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "ok unnamedalgorithm (0 parameters, 0 outputs)")
}
