package module

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"forge/internal/diag"
	"forge/internal/loader"
	"forge/internal/resolve"
	"forge/internal/respath"
	"forge/internal/sources"
)

// countingPG is a minimal parser/generator that records Size invocations.
type countingPG struct {
	mu        sync.Mutex
	sizeCalls int
	size      float64
	parseErr  error
	deps      []Dependency
}

func (p *countingPG) SourceTypes() []SourceType {
	return []SourceType{SourceTypeJavaScript}
}

func (p *countingPG) Parse(pc *ParseContext) (*ParseResult, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return &ParseResult{Source: pc.Source, Dependencies: p.deps}, nil
}

func (p *countingPG) Generate(source sources.Source, _ *Module, _ *GenerateContext) (sources.Source, error) {
	return source, nil
}

func (p *countingPG) Size(*Module, SourceType) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizeCalls++
	return p.size
}

type appendLoader struct{ suffix string }

func (l *appendLoader) Identifier() string { return "builtin:append" }

func (l *appendLoader) Pitch(context.Context, *loader.Context) error { return nil }

func (l *appendLoader) Run(_ context.Context, lc *loader.Context) error {
	lc.Content = append(lc.Content, []byte(l.suffix)...)
	return nil
}

type failingLoader struct{ msg string }

func (l *failingLoader) Identifier() string { return "builtin:failing" }

func (l *failingLoader) Pitch(context.Context, *loader.Context) error { return nil }

func (l *failingLoader) Run(context.Context, *loader.Context) error {
	return errors.New(l.msg)
}

func testModule(pg ParserAndGenerator, chain loader.Chain) *Module {
	resource := respath.ParseResource("/proj/src/a.js")
	return NewModule("/proj/src/a.js", "/proj/src/a.js", "./a.js",
		TypeJs, pg, nil, resource, nil, chain, false, 1)
}

func testBuildContext(content string) *BuildContext {
	return &BuildContext{
		Options: &Options{Context: "/proj"},
		Driver:  NopDriver{},
		Read: func(respath.ResourceData) ([]byte, error) {
			return []byte(content), nil
		},
	}
}

func TestNewIdentifier(t *testing.T) {
	if got := NewIdentifier(TypeJs, "/a.js"); got != "/a.js" {
		t.Fatalf("default type identifier = %q", got)
	}
	if got := NewIdentifier(TypeJSON, "/a.json"); got != "json|/a.json" {
		t.Fatalf("typed identifier = %q", got)
	}
}

func TestModuleEqualIsIdentity(t *testing.T) {
	pg := &countingPG{}
	a := testModule(pg, nil)
	b := testModule(pg, nil)
	if !a.Equal(b) {
		t.Fatalf("modules with equal identifiers must be equal")
	}
	if a.Equal(nil) {
		t.Fatalf("Equal(nil) must be false")
	}

	// A built module is still the same module as an unbuilt twin.
	if _, err := a.Build(context.Background(), testBuildContext("x")); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("build state must not affect identity")
	}

	other := NewModule("/proj/src/b.js", "/proj/src/b.js", "./b.js",
		TypeJs, pg, nil, respath.ParseResource("/proj/src/b.js"), nil, nil, false, 2)
	if a.Equal(other) {
		t.Fatalf("distinct identifiers must not be equal")
	}
}

func TestBuildSuccess(t *testing.T) {
	pg := &countingPG{deps: []Dependency{{Request: "./dep", Type: "esm import"}}}
	m := testModule(pg, nil)

	result, err := m.Build(context.Background(), testBuildContext("export default 1;"))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if m.State().Kind() != StateBuiltSucceed {
		t.Fatalf("state = %v, want BuiltSucceed", m.State().Kind())
	}
	if m.State().Source() == nil || m.State().Source().String() != "export default 1;" {
		t.Fatalf("built source lost")
	}
	if m.BuildInfo().Hash.IsZero() {
		t.Fatalf("successful build must be hashed")
	}
	if len(result.Dependencies) != 1 || result.Dependencies[0].Request != "./dep" {
		t.Fatalf("dependencies = %+v", result.Dependencies)
	}
	if !m.BuildInfo().Cacheable {
		t.Fatalf("untouched build must stay cacheable")
	}
	if !m.BuildInfo().FileDependencies.Has("/proj/src/a.js") {
		t.Fatalf("resource not recorded as file dependency")
	}
}

func TestBuildLoaderFailure(t *testing.T) {
	pg := &countingPG{}
	chain := loader.NewChain(&failingLoader{msg: "transform exploded"})
	m := testModule(pg, chain)

	result, err := m.Build(context.Background(), testBuildContext("x"))
	if err != nil {
		t.Fatalf("loader failure must not be a Go error, got %v", err)
	}
	if m.State().Kind() != StateBuiltFailed {
		t.Fatalf("state = %v, want BuiltFailed", m.State().Kind())
	}
	if !strings.Contains(m.State().FailureMessage(), "transform exploded") {
		t.Fatalf("FailureMessage = %q", m.State().FailureMessage())
	}
	if m.BuildInfo().Hash.IsZero() {
		t.Fatalf("failed build must still be hashed")
	}
	if len(result.Diagnostics) == 0 || result.Diagnostics[0].Code != diag.BuildFailed {
		t.Fatalf("diagnostics = %+v", result.Diagnostics)
	}

	// The failure hash is deterministic: a twin failing the same way gets
	// the same hash.
	twin := testModule(&countingPG{}, loader.NewChain(&failingLoader{msg: "transform exploded"}))
	if _, err := twin.Build(context.Background(), testBuildContext("x")); err != nil {
		t.Fatalf("twin Build: %v", err)
	}
	if twin.BuildInfo().Hash != m.BuildInfo().Hash {
		t.Fatalf("identical failures must hash identically")
	}
}

func TestBuildParseFailure(t *testing.T) {
	pg := &countingPG{parseErr: errors.New("unexpected token")}
	m := testModule(pg, nil)

	result, err := m.Build(context.Background(), testBuildContext("{"))
	if err != nil {
		t.Fatalf("parse failure must not be a Go error, got %v", err)
	}
	if m.State().Kind() != StateBuiltFailed {
		t.Fatalf("state = %v, want BuiltFailed", m.State().Kind())
	}
	if len(result.Diagnostics) == 0 || result.Diagnostics[0].Code != diag.ParseFailed {
		t.Fatalf("diagnostics = %+v", result.Diagnostics)
	}
}

func TestRebuildResetsState(t *testing.T) {
	pg := &countingPG{size: 10}
	m := testModule(pg, nil)
	bc := testBuildContext("content")

	if _, err := m.Build(context.Background(), bc); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	first := m.BuildInfo().Hash
	_ = m.Size(SourceTypeJavaScript)

	if _, err := m.Build(context.Background(), bc); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if m.BuildInfo().Hash != first {
		t.Fatalf("identical rebuild changed the hash")
	}
	// The size memo was dropped with the rebuild.
	_ = m.Size(SourceTypeJavaScript)
	if pg.sizeCalls != 2 {
		t.Fatalf("sizeCalls = %d, want 2", pg.sizeCalls)
	}
}

func TestRebuildRunsLoadersAgain(t *testing.T) {
	pg := &countingPG{}
	chain := loader.NewChain(&appendLoader{suffix: "+x"})
	m := testModule(pg, chain)
	bc := testBuildContext("base")

	for attempt := 0; attempt < 2; attempt++ {
		if _, err := m.Build(context.Background(), bc); err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if got := m.State().Source().String(); got != "base+x" {
			t.Fatalf("attempt %d source = %q, want %q", attempt, got, "base+x")
		}
	}
}

func TestFailedRebuildDropsPriorResults(t *testing.T) {
	pg := &countingPG{deps: []Dependency{{Request: "./dep", Type: "esm import"}}}
	m := testModule(pg, nil)

	reads := 0
	bc := &BuildContext{
		Options: &Options{Context: "/proj"},
		Driver:  NopDriver{},
		Read: func(respath.ResourceData) ([]byte, error) {
			reads++
			if reads > 1 {
				return nil, errors.New("resource vanished")
			}
			return []byte("export default 1;"), nil
		},
	}

	if _, err := m.Build(context.Background(), bc); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if len(m.Dependencies()) != 1 {
		t.Fatalf("first build dependencies = %+v", m.Dependencies())
	}

	if _, err := m.Build(context.Background(), bc); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if m.State().Kind() != StateBuiltFailed {
		t.Fatalf("state = %v, want BuiltFailed", m.State().Kind())
	}
	// The failed attempt owns the module now; nothing from the earlier
	// success may leak through.
	if len(m.Dependencies()) != 0 {
		t.Fatalf("stale dependencies survived: %+v", m.Dependencies())
	}
	if len(m.PresentationalDependencies()) != 0 {
		t.Fatalf("stale presentational dependencies survived")
	}
	if m.OriginalSource() != nil {
		t.Fatalf("stale original source survived")
	}
}

func TestSizeMemoizedAndFloored(t *testing.T) {
	pg := &countingPG{size: 0.25}
	m := testModule(pg, nil)
	if _, err := m.Build(context.Background(), testBuildContext("x")); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i := 0; i < 5; i++ {
		if got := m.Size(SourceTypeJavaScript); got != 1.0 {
			t.Fatalf("Size = %v, want floor 1.0", got)
		}
	}
	if pg.sizeCalls != 1 {
		t.Fatalf("sizeCalls = %d, want 1 (memoized)", pg.sizeCalls)
	}
}

func TestCodeGeneration(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		pg := &countingPG{}
		m := testModule(pg, nil)
		if _, err := m.Build(context.Background(), testBuildContext("ok")); err != nil {
			t.Fatalf("Build: %v", err)
		}
		result, err := m.CodeGeneration(&Compilation{Options: &Options{}})
		if err != nil {
			t.Fatalf("CodeGeneration: %v", err)
		}
		artifact, ok := result.Get(SourceTypeJavaScript)
		if !ok || artifact.Source.String() != "ok" {
			t.Fatalf("artifact missing or wrong: %v", ok)
		}
		if result.Hash.IsZero() {
			t.Fatalf("result hash not set")
		}
	})

	t.Run("failed build emits throwing artifact", func(t *testing.T) {
		pg := &countingPG{}
		m := testModule(pg, loader.NewChain(&failingLoader{msg: `bad "quote"`}))
		if _, err := m.Build(context.Background(), testBuildContext("x")); err != nil {
			t.Fatalf("Build: %v", err)
		}
		result, err := m.CodeGeneration(&Compilation{Options: &Options{}})
		if err != nil {
			t.Fatalf("CodeGeneration: %v", err)
		}
		artifact, ok := result.Get(SourceTypeJavaScript)
		if !ok {
			t.Fatalf("script-capable failed module must emit an artifact")
		}
		text := artifact.Source.String()
		if !strings.HasPrefix(text, "throw new Error(") || !strings.HasSuffix(text, ");\n") {
			t.Fatalf("artifact = %q", text)
		}
		// The message is JSON-encoded, so the quote is escaped.
		if !strings.Contains(text, `\"quote\"`) {
			t.Fatalf("message not JSON-escaped: %q", text)
		}
	})

	t.Run("unbuilt is a programmer error", func(t *testing.T) {
		m := testModule(&countingPG{}, nil)
		if _, err := m.CodeGeneration(&Compilation{Options: &Options{}}); err == nil {
			t.Fatalf("expected error for unbuilt module")
		}
	})
}

func TestOutputOptionsAffectHash(t *testing.T) {
	build := func(salt string) sources.Digest {
		m := testModule(&countingPG{}, nil)
		bc := testBuildContext("same content")
		bc.Options.Output.HashSalt = salt
		if _, err := m.Build(context.Background(), bc); err != nil {
			t.Fatalf("Build: %v", err)
		}
		return m.BuildInfo().Hash
	}
	if build("a") == build("b") {
		t.Fatalf("output salt must separate hashes")
	}
	if build("a") != build("a") {
		t.Fatalf("hash must be deterministic under equal options")
	}
}

func TestRenderHash(t *testing.T) {
	o := OutputOptions{HashDigestLength: 8}
	if got := o.RenderHash("0123456789abcdef"); got != "01234567" {
		t.Fatalf("RenderHash = %q", got)
	}
	o.HashDigestLength = 0
	if got := o.RenderHash("abcd"); got != "abcd" {
		t.Fatalf("RenderHash without limit = %q", got)
	}
}

func TestBuildStateClassification(t *testing.T) {
	bag := diag.NewBag(0)
	bag.Add(diag.Warning(diag.ResolveFailed, "just a warning"))
	state := NewBuilt(sources.NewRawSource("x"), bag)
	if state.Kind() != StateBuiltSucceed {
		t.Fatalf("warnings alone must not fail the build")
	}

	bag.Add(diag.Error(diag.BuildFailed, "first"))
	bag.Add(diag.Error(diag.BuildFailed, "second"))
	state = NewBuilt(sources.NewRawSource("x"), bag)
	if state.Kind() != StateBuiltFailed {
		t.Fatalf("error diagnostics must fail the build")
	}
	if state.FailureMessage() != "first\nsecond" {
		t.Fatalf("FailureMessage = %q", state.FailureMessage())
	}
}

func TestModuleTypeInference(t *testing.T) {
	tests := []struct {
		path string
		want ModuleType
	}{
		{path: "/a/x.js", want: TypeJs},
		{path: "/a/x.mjs", want: TypeJsEsm},
		{path: "/a/x.cjs", want: TypeJsCjs},
		{path: "/a/x.json", want: TypeJSON},
		{path: "/a/x.css", want: TypeCSS},
		{path: "/a/x.png", want: TypeAsset},
		{path: "/a/noext", want: TypeJs},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := inferModuleType(tt.path); got != tt.want {
				t.Fatalf("inferModuleType(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestBuildFullRequest(t *testing.T) {
	resource := respath.ParseResource("/p/a.js?q")
	if got := buildFullRequest(nil, resource); got != "/p/a.js?q" {
		t.Fatalf("empty chain request = %q", got)
	}
	chain := loader.NewChain(&failingLoader{msg: ""})
	if got := buildFullRequest(chain, resource); got != "builtin:failing!/p/a.js?q" {
		t.Fatalf("request = %q", got)
	}
}

func TestRestoreRehydrates(t *testing.T) {
	pg := &countingPG{size: 4}
	m := testModule(pg, nil)

	info := BuildInfo{
		Hash:             sources.HashOf([]byte("h")),
		Cacheable:        true,
		FileDependencies: respath.NewSet("/proj/src/a.js"),
	}
	meta := BuildMeta{StrictEsm: true, ExportsType: ExportsNamespace}
	deps := []Dependency{{Request: "./dep"}}

	m.Restore(BuiltSucceed(sources.NewRawSource("cached")), info, meta, deps, nil)

	if m.State().Kind() != StateBuiltSucceed || m.State().Source().String() != "cached" {
		t.Fatalf("restored state wrong: %v", m.State().Kind())
	}
	if !m.BuildMeta().StrictEsm || len(m.Dependencies()) != 1 {
		t.Fatalf("restored metadata wrong")
	}
	if _, err := m.CodeGeneration(&Compilation{Options: &Options{}}); err != nil {
		t.Fatalf("restored module must generate: %v", err)
	}
}

func TestFactoryDebugIDsUnique(t *testing.T) {
	f := &Factory{nextDebugID: 1}
	const n = 64
	var wg sync.WaitGroup
	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = f.nextID()
		}(i)
	}
	wg.Wait()
	seen := make(map[uint64]struct{}, n)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate debug id %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestDriverChain(t *testing.T) {
	okLoader := &failingLoader{msg: ""}
	first := driverFunc{resolve: func() (loader.Loader, error) { return nil, nil }}
	second := driverFunc{resolve: func() (loader.Loader, error) { return okLoader, nil }}
	third := driverFunc{resolve: func() (loader.Loader, error) {
		return nil, fmt.Errorf("must not be reached")
	}}

	chain := DriverChain{first, second, third}
	l, err := chain.ResolveLoader(nil, "", nil, "", "")
	if err != nil {
		t.Fatalf("ResolveLoader: %v", err)
	}
	if l != loader.Loader(okLoader) {
		t.Fatalf("first non-nil answer must win")
	}
}

type driverFunc struct {
	resolve func() (loader.Loader, error)
}

func (driverFunc) BeforeLoaders(*Module) error { return nil }

func (d driverFunc) ResolveLoader(*Options, string, *resolve.Resolver, string, string) (loader.Loader, error) {
	return d.resolve()
}
