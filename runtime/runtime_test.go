package runtime

import (
	"context"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/rsx/runtime/config"
	"github.com/opal-lang/rsx/runtime/planner"
)

type lines struct{ console []string }

func (l *lines) PushInfo(string) {}
func (l *lines) PushCommand(string) {}
func (l *lines) PushConsole(line string) { l.console = append(l.console, line) }
func (l *lines) ReportError(string) {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Packages.UseUserLibrary = false
	cfg.Packages.Repo = ""
	return cfg
}

func TestExecuteDryRun(t *testing.T) {
	exec, err := Execute(context.Background(), strings.NewReader("##x=number 2\nprint(x * 2)"), ExecutionOptions{
		Inputs:  planner.Inputs{"x": "3"},
		Config:  testConfig(t),
		DryRun:  true,
		TempDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Nil(t, exec.Result)
	assert.Equal(t, []string{"x <- 3.0"}, exec.Plan.Sections.Imports)
	assert.Equal(t, []string{"print(x * 2)"}, exec.Plan.Sections.Body)
	assert.Equal(t, planner.PhaseExportsBuilt, exec.Plan.Phase())
}

func TestExecuteNotExecutable(t *testing.T) {
	_, err := Execute(context.Background(), strings.NewReader("##load_raster_using_rgdal\nprint(1)"), ExecutionOptions{
		Config: testConfig(t),
		DryRun: true,
	})
	assert.ErrorIs(t, err, planner.ErrNotExecutable)
}

func TestExecuteWithoutR(t *testing.T) {
	cfg := testConfig(t)
	cfg.R.Folder = t.TempDir()
	_, err := Execute(context.Background(), strings.NewReader("print(1)"), ExecutionOptions{Config: cfg})
	assert.ErrorIs(t, err, ErrRNotAvailable)
	assert.ErrorIs(t, err, config.ErrNotInstalled)
}

func TestExecuteRuns(t *testing.T) {
	if goruntime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a Unix shell")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "R"),
		[]byte("#!/bin/sh\necho 'R version 4.3.1 (2023-06-16)'\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Rscript"),
		[]byte("#!/bin/sh\necho '[1] 4'\n"), 0o755))

	cfg := testConfig(t)
	cfg.R.Folder = dir
	fb := &lines{}
	exec, err := Execute(context.Background(), strings.NewReader("##x=number 2\n>print(x * 2)"), ExecutionOptions{
		Config:   cfg,
		TempDir:  t.TempDir(),
		Feedback: fb,
	})
	require.NoError(t, err)
	require.NotNil(t, exec.Result)
	assert.Equal(t, 0, exec.Result.ExitCode)
	assert.Equal(t, []string{"[1] 4"}, fb.console)
	assert.Contains(t, exec.Result.Results, "R_CONSOLE_OUTPUT")
	assert.Equal(t, planner.PhaseResultsCollected, exec.Plan.Phase())
}
