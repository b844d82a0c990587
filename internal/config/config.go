// Package config loads the forge.toml project manifest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"forge/internal/module"
	"forge/internal/resolve"
)

// ManifestName is the file looked up in the project root.
const ManifestName = "forge.toml"

var (
	// ErrNoEntry indicates the manifest declares no entry points.
	ErrNoEntry = errors.New("no entry points in [build]")
)

// AliasConfig is one [[resolve.alias]] entry.
type AliasConfig struct {
	From   string `toml:"from"`
	To     string `toml:"to"`
	Ignore bool   `toml:"ignore"`
}

// ResolveConfig is the [resolve] section.
type ResolveConfig struct {
	Extensions     []string      `toml:"extensions"`
	Modules        []string      `toml:"modules"`
	MainFiles      []string      `toml:"main_files"`
	PreferRelative bool          `toml:"prefer_relative"`
	Alias          []AliasConfig `toml:"alias"`
}

// OutputConfig is the [output] section.
type OutputConfig struct {
	HashDigestLength int    `toml:"hash_digest_length"`
	HashSalt         string `toml:"hash_salt"`
}

// BuildConfig is the [build] section.
type BuildConfig struct {
	Entry          []string `toml:"entry"`
	Jobs           int      `toml:"jobs"`
	MaxDiagnostics int      `toml:"max_diagnostics"`
	// Worker is the command line that starts the external loader worker.
	// Empty disables cross-runtime loaders.
	Worker string `toml:"worker"`
}

// Config is the parsed manifest.
type Config struct {
	Context string        `toml:"context"`
	Devtool string        `toml:"devtool"`
	Output  OutputConfig  `toml:"output"`
	Resolve ResolveConfig `toml:"resolve"`
	Build   BuildConfig   `toml:"build"`
}

// Load reads and normalizes the manifest at path. Relative context paths
// are anchored at the manifest's directory.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	if cfg.Context == "" {
		cfg.Context = base
	} else if !filepath.IsAbs(cfg.Context) {
		cfg.Context = filepath.Join(base, cfg.Context)
	}

	if cfg.Build.MaxDiagnostics == 0 {
		cfg.Build.MaxDiagnostics = 100
	}
	if len(cfg.Build.Entry) == 0 {
		return nil, ErrNoEntry
	}
	return &cfg, nil
}

// Find walks upwards from dir looking for the manifest.
func Find(dir string) (string, bool) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(cur, ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", false
		}
		cur = parent
	}
}

// ModuleOptions converts the manifest into the module core's options view.
func (c *Config) ModuleOptions() *module.Options {
	return &module.Options{
		Context: c.Context,
		Devtool: module.Devtool(c.Devtool),
		Output: module.OutputOptions{
			HashDigestLength: c.Output.HashDigestLength,
			HashSalt:         c.Output.HashSalt,
		},
	}
}

// ResolveOptions converts the [resolve] section into engine options.
func (c *Config) ResolveOptions() resolve.Options {
	opts := resolve.DefaultOptions()
	if len(c.Resolve.Extensions) > 0 {
		opts.Extensions = c.Resolve.Extensions
	}
	if len(c.Resolve.Modules) > 0 {
		opts.Modules = c.Resolve.Modules
	}
	if len(c.Resolve.MainFiles) > 0 {
		opts.MainFiles = c.Resolve.MainFiles
	}
	opts.PreferRelative = c.Resolve.PreferRelative
	for _, a := range c.Resolve.Alias {
		opts.Alias = append(opts.Alias, resolve.Alias{From: a.From, To: a.To, Ignore: a.Ignore})
	}
	return opts
}
