package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
context = "web"
devtool = "source-map"

[output]
hash_digest_length = 8
hash_salt = "v2"

[resolve]
extensions = [".ts", ".js"]
prefer_relative = true

[[resolve.alias]]
from = "@"
to = "/abs/src"

[[resolve.alias]]
from = "fsevents"
ignore = true

[build]
entry = ["./src/index.ts"]
jobs = 4
worker = "node loader-worker.mjs"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Context != filepath.Join(dir, "web") {
		t.Fatalf("Context = %q", cfg.Context)
	}
	if cfg.Build.Jobs != 4 || cfg.Build.Worker != "node loader-worker.mjs" {
		t.Fatalf("build section = %+v", cfg.Build)
	}
	if cfg.Build.MaxDiagnostics != 100 {
		t.Fatalf("MaxDiagnostics default = %d", cfg.Build.MaxDiagnostics)
	}

	mo := cfg.ModuleOptions()
	if !mo.Devtool.FullMap() || mo.Output.HashDigestLength != 8 || mo.Output.HashSalt != "v2" {
		t.Fatalf("module options = %+v", mo)
	}

	ro := cfg.ResolveOptions()
	if len(ro.Extensions) != 2 || ro.Extensions[0] != ".ts" {
		t.Fatalf("extensions = %v", ro.Extensions)
	}
	if !ro.PreferRelative {
		t.Fatalf("prefer_relative lost")
	}
	if len(ro.Alias) != 2 || ro.Alias[0].To != "/abs/src" || !ro.Alias[1].Ignore {
		t.Fatalf("alias = %+v", ro.Alias)
	}
	// Unset sections keep engine defaults.
	if len(ro.Modules) == 0 || ro.Modules[0] != "node_modules" {
		t.Fatalf("modules default lost: %v", ro.Modules)
	}
}

func TestLoadDefaultsContextToManifestDir(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[build]\nentry = [\"./index.js\"]\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Context != dir {
		t.Fatalf("Context = %q, want %q", cfg.Context, dir)
	}
}

func TestLoadRequiresEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "context = \".\"\n")

	_, err := Load(path)
	if !errors.Is(err, ErrNoEntry) {
		t.Fatalf("err = %v, want ErrNoEntry", err)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "context = [unterminated\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := writeManifest(t, root, "[build]\nentry = [\"./x.js\"]\n")

	got, ok := Find(nested)
	if !ok || got != want {
		t.Fatalf("Find = %q %v, want %q", got, ok, want)
	}

	if _, ok := Find(t.TempDir()); ok {
		t.Fatalf("Find must miss outside a project")
	}
}
