package cache

import (
	"context"
	"errors"
	"testing"

	"forge/internal/loader"
	"forge/internal/module"
	"forge/internal/respath"
	"forge/internal/sources"
)

type passPG struct{}

func (*passPG) SourceTypes() []module.SourceType {
	return []module.SourceType{module.SourceTypeJavaScript}
}

func (*passPG) Parse(pc *module.ParseContext) (*module.ParseResult, error) {
	return &module.ParseResult{
		Source:       pc.Source,
		Dependencies: []module.Dependency{{Request: "./dep", Type: "esm import"}},
	}, nil
}

func (*passPG) Generate(source sources.Source, _ *module.Module, _ *module.GenerateContext) (sources.Source, error) {
	return source, nil
}

func (*passPG) Size(*module.Module, module.SourceType) float64 { return 1 }

func builtModule(t *testing.T, content string) *module.Module {
	t.Helper()
	m := module.NewModule("/proj/a.js", "/proj/a.js", "./a.js",
		module.TypeJs, &passPG{}, nil, respath.ParseResource("/proj/a.js"), nil, nil, false, 1)
	_, err := m.Build(context.Background(), &module.BuildContext{
		Options: &module.Options{Context: "/proj"},
		Driver:  module.NopDriver{},
		Read: func(respath.ResourceData) ([]byte, error) {
			return []byte(content), nil
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func freshModule() *module.Module {
	return module.NewModule("/proj/a.js", "/proj/a.js", "./a.js",
		module.TypeJs, &passPG{}, nil, respath.ParseResource("/proj/a.js"), nil, nil, false, 2)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	built := builtModule(t, "export default 1;")
	payload := Snapshot(built)
	if payload == nil {
		t.Fatalf("cacheable build must snapshot")
	}

	restored := freshModule()
	Restore(restored, payload)

	if restored.State().Kind() != module.StateBuiltSucceed {
		t.Fatalf("state = %v", restored.State().Kind())
	}
	if restored.State().Source().String() != "export default 1;" {
		t.Fatalf("source = %q", restored.State().Source().String())
	}
	if restored.BuildInfo().Hash != built.BuildInfo().Hash {
		t.Fatalf("hash changed across restore")
	}
	if len(restored.Dependencies()) != 1 || restored.Dependencies()[0].Request != "./dep" {
		t.Fatalf("dependencies = %+v", restored.Dependencies())
	}
	if !restored.BuildInfo().FileDependencies.Has("/proj/a.js") {
		t.Fatalf("file dependencies lost")
	}

	// A restored module generates the same artifact as the original.
	comp := &module.Compilation{Options: &module.Options{}}
	a, err := built.CodeGeneration(comp)
	if err != nil {
		t.Fatalf("CodeGeneration original: %v", err)
	}
	b, err := restored.CodeGeneration(comp)
	if err != nil {
		t.Fatalf("CodeGeneration restored: %v", err)
	}
	if a.Hash != b.Hash {
		t.Fatalf("artifact hashes differ across restore")
	}
}

func TestSnapshotSkipsUnbuiltAndUncacheable(t *testing.T) {
	if Snapshot(freshModule()) != nil {
		t.Fatalf("unbuilt module must not snapshot")
	}
}

func TestMemoryCacheContentValidation(t *testing.T) {
	c := NewMemoryCache(4)
	id := module.Identifier("/proj/a.js")
	digest := sources.HashOf([]byte("v1"))
	payload := &Payload{Schema: schemaVersion, Identifier: string(id)}

	c.Put(id, digest, payload)

	if got, ok := c.Get(id, digest); !ok || got != payload {
		t.Fatalf("expected hit for matching digest")
	}
	if _, ok := c.Get(id, sources.HashOf([]byte("v2"))); ok {
		t.Fatalf("changed content must miss")
	}
	if _, ok := c.Get(module.Identifier("/other"), digest); ok {
		t.Fatalf("unknown identifier must miss")
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenDiskCacheAt(dir)
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}

	built := builtModule(t, "cached content")
	payload := Snapshot(built)
	key := sources.HashOf([]byte("key"))

	if err := c.Put(key, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var out Payload
	hit, err := c.Get(key, &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatalf("expected hit")
	}
	if out.Identifier != payload.Identifier || string(out.SourceContent) != "cached content" {
		t.Fatalf("payload corrupted: %+v", out)
	}
	if out.Hash != payload.Hash {
		t.Fatalf("hash corrupted")
	}

	hit, err = c.Get(sources.HashOf([]byte("absent")), &out)
	if err != nil || hit {
		t.Fatalf("absent key: hit=%v err=%v", hit, err)
	}
}

func TestDiskCacheSchemaMismatchIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenDiskCacheAt(dir)
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	key := sources.HashOf([]byte("k"))
	stale := &Payload{Schema: schemaVersion + 1, Identifier: "/old"}
	if err := c.Put(key, stale); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var out Payload
	hit, err := c.Get(key, &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Fatalf("newer schema must read as a miss")
	}
}

func TestDiskCacheDropAll(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenDiskCacheAt(dir)
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	key := sources.HashOf([]byte("k"))
	if err := c.Put(key, &Payload{Schema: schemaVersion}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	var out Payload
	hit, err := c.Get(key, &out)
	if err != nil || hit {
		t.Fatalf("after DropAll: hit=%v err=%v", hit, err)
	}
}

func TestSnapshotFailedBuild(t *testing.T) {
	m := module.NewModule("/proj/bad.js", "/proj/bad.js", "./bad.js",
		module.TypeJs, &passPG{}, nil, respath.ParseResource("/proj/bad.js"), nil,
		loader.NewChain(failStep{}), false, 3)
	if _, err := m.Build(context.Background(), &module.BuildContext{
		Options: &module.Options{Context: "/proj"},
		Driver:  module.NopDriver{},
		Read:    func(respath.ResourceData) ([]byte, error) { return []byte("x"), nil },
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	payload := Snapshot(m)
	if payload == nil || !payload.Failed {
		t.Fatalf("failed builds cache too: %+v", payload)
	}

	restored := freshModule()
	Restore(restored, payload)
	if restored.State().Kind() != module.StateBuiltFailed {
		t.Fatalf("state = %v", restored.State().Kind())
	}
	if restored.State().FailureMessage() == "" {
		t.Fatalf("failure message lost")
	}
}

type failStep struct{}

func (failStep) Identifier() string                           { return "builtin:boom" }
func (failStep) Pitch(context.Context, *loader.Context) error { return nil }
func (failStep) Run(context.Context, *loader.Context) error {
	return errors.New("transform failed")
}
