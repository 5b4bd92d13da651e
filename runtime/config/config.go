// Package config loads interpreter and package settings.
//
// Values are layered, later sources winning: built-in defaults, a YAML
// file, a .env file, then RSX_* process environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultRepo is the CRAN mirror used when none is configured.
const DefaultRepo = "http://cran.at.r-project.org/"

// Environment variable names.
const (
	EnvRFolder       = "RSX_R_FOLDER"
	EnvRUse64        = "RSX_R_USE64"
	EnvRepo          = "RSX_R_REPO"
	EnvUseUserLib    = "RSX_R_USE_USER_LIB"
	EnvLibsUser      = "RSX_R_LIBS_USER"
	EnvScriptsFolder = "RSX_SCRIPTS_FOLDER"
	EnvMinVersion    = "RSX_R_MIN_VERSION"
)

// Config is the resolved configuration.
type Config struct {
	R        RConfig        `yaml:"r"`
	Packages PackagesConfig `yaml:"packages"`
	Scripts  ScriptsConfig  `yaml:"scripts"`
}

// RConfig locates the interpreter.
type RConfig struct {
	// Folder holds the R binaries. Empty means guess, then PATH.
	Folder string `yaml:"folder"`
	// Use64 selects bin/x64 over bin/i386 on Windows.
	Use64 bool `yaml:"use64"`
	// MinVersion is the oldest accepted R release, e.g. "4.1.0".
	MinVersion string `yaml:"min_version"`
}

// PackagesConfig controls package installation in generated scripts.
type PackagesConfig struct {
	Repo           string `yaml:"repo"`
	UseUserLibrary bool   `yaml:"use_user_library"`
	UserLibrary    string `yaml:"user_library"`
}

// ScriptsConfig lists the folders scanned for .rsx scripts.
type ScriptsConfig struct {
	Folders []string `yaml:"folders"`
}

// Default returns the built-in configuration.
func Default() *Config {
	base := userFolder()
	return &Config{
		R: RConfig{Use64: true},
		Packages: PackagesConfig{
			Repo:           DefaultRepo,
			UseUserLibrary: true,
			UserLibrary:    filepath.Join(base, "rlibs"),
		},
		Scripts: ScriptsConfig{Folders: []string{filepath.Join(base, "rscripts")}},
	}
}

func userFolder() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "rsx")
}

// DefaultPath is the YAML file read when no explicit file is given.
func DefaultPath() string {
	return filepath.Join(userFolder(), "config.yaml")
}

// LoadOptions select the sources Load reads.
type LoadOptions struct {
	// ConfigFile is a YAML file. Empty reads DefaultPath if it exists.
	ConfigFile string
	// EnvFile is a dotenv file. Empty skips the dotenv layer.
	EnvFile string
	// LookupEnv reads process variables. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds a Config from defaults and the sources in opts.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path, explicit := opts.ConfigFile, opts.ConfigFile != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.readYAML(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		m, err := godotenv.Read(opts.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("reading env file: %w", err)
		}
		dotenv = m
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(get); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readYAML(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(get func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := get(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", key, v)
		}
		*dst = b
		return nil
	}

	str(EnvRFolder, &c.R.Folder)
	str(EnvRepo, &c.Packages.Repo)
	str(EnvLibsUser, &c.Packages.UserLibrary)
	str(EnvMinVersion, &c.R.MinVersion)
	if err := boolean(EnvRUse64, &c.R.Use64); err != nil {
		return err
	}
	if err := boolean(EnvUseUserLib, &c.Packages.UseUserLibrary); err != nil {
		return err
	}
	if v, ok := get(EnvScriptsFolder); ok {
		c.Scripts.Folders = nil
		for _, dir := range strings.Split(v, ";") {
			if dir = strings.TrimSpace(dir); dir != "" {
				c.Scripts.Folders = append(c.Scripts.Folders, dir)
			}
		}
	}
	return nil
}

// LibraryPath returns the user package library, creating it if needed.
// It is empty when the system library is used.
func (c *Config) LibraryPath() (string, error) {
	if !c.Packages.UseUserLibrary || c.Packages.UserLibrary == "" {
		return "", nil
	}
	dir, err := filepath.Abs(c.Packages.UserLibrary)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating R library folder: %w", err)
	}
	return dir, nil
}
