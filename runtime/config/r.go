package config

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrNotConfigured means the R install folder must be set on this platform.
var ErrNotConfigured = errors.New("R folder is not configured")

// ErrNotInstalled means R could not be run or did not identify itself.
var ErrNotInstalled = errors.New("R is not installed or not correctly configured")

var goos = runtime.GOOS

// BinaryFolder returns the configured R folder or a platform guess. Empty
// means the executables are expected on PATH.
func (c *Config) BinaryFolder() string {
	folder := c.R.Folder
	if folder == "" {
		folder = guessBinaryFolder()
	}
	if folder == "" {
		return ""
	}
	if abs, err := filepath.Abs(folder); err == nil {
		return abs
	}
	return folder
}

func guessBinaryFolder() string {
	switch goos {
	case "darwin":
		return "/usr/local/bin"
	case "windows":
		for _, env := range []string{"ProgramW6432", "PROGRAMFILES(x86)", "PROGRAMFILES", ""} {
			root := `C:\`
			if env != "" {
				root = os.Getenv(env)
				if root == "" {
					continue
				}
			}
			if dir := newestInstall(filepath.Join(root, "R")); dir != "" {
				return dir
			}
		}
	}
	return ""
}

// newestInstall picks the highest R-x.y.z folder below root.
func newestInstall(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	var versions []string
	byVersion := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasPrefix(strings.ToUpper(name), "R-") {
			continue
		}
		v := "v" + name[2:]
		if !semver.IsValid(v) {
			v = "v0.0.0-" + name[2:]
		}
		versions = append(versions, v)
		byVersion[v] = name
	}
	if len(versions) == 0 {
		return ""
	}
	sort.Slice(versions, func(i, j int) bool { return semver.Compare(versions[i], versions[j]) > 0 })
	return filepath.Join(root, byVersion[versions[0]])
}

// Executable returns the path of Rscript (script true) or R.
func (c *Config) Executable(script bool) string {
	name := "R"
	if script {
		name = "Rscript"
	}
	folder := c.BinaryFolder()
	if goos == "windows" {
		arch := "i386"
		if c.R.Use64 {
			arch = "x64"
		}
		return filepath.Join(folder, "bin", arch, name+".exe")
	}
	if folder == "" {
		return name
	}
	return filepath.Join(folder, name)
}

// CheckEnvironment fails with ErrNotConfigured when R cannot be located
// without an explicit folder.
func (c *Config) CheckEnvironment() error {
	if goos == "windows" && c.BinaryFolder() == "" {
		return ErrNotConfigured
	}
	return nil
}

var versionLine = regexp.MustCompile(`R version (\d+\.\d+(?:\.\d+)?)`)

// Version runs "R --version" and returns the line identifying the release.
func (c *Config) Version(ctx context.Context) (string, error) {
	if err := c.CheckEnvironment(); err != nil {
		return "", err
	}
	exe := c.Executable(false)
	out, err := exec.CommandContext(ctx, exe, "--version").CombinedOutput()
	if err != nil && len(out) == 0 {
		return "", fmt.Errorf("%w: %s: %v", ErrNotInstalled, exe, err)
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "R version") || strings.Contains(line, "R Under development") {
			return strings.TrimSpace(line), nil
		}
	}
	return "", fmt.Errorf("%w: %s did not report a version", ErrNotInstalled, exe)
}

// CheckInstalled verifies R runs and, when R.MinVersion is set, that it is
// recent enough. Development builds always pass the version check.
func (c *Config) CheckInstalled(ctx context.Context) error {
	line, err := c.Version(ctx)
	if err != nil {
		return err
	}
	if c.R.MinVersion == "" {
		return nil
	}
	m := versionLine.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	required := "v" + strings.TrimPrefix(c.R.MinVersion, "v")
	if !semver.IsValid(required) {
		return fmt.Errorf("invalid minimum R version %q", c.R.MinVersion)
	}
	if semver.Compare("v"+m[1], required) < 0 {
		return fmt.Errorf("R %s is older than the required %s", m[1], c.R.MinVersion)
	}
	return nil
}
