package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"forge/internal/respath"
)

// stubLoader records its execution order and can transform, pitch-produce
// content, mark its own normal phase done, or fail in either phase.
type stubLoader struct {
	id           string
	pitchOut     string
	pitchErr     error
	runErr       error
	markExecuted bool
	trace        *[]string
}

func (s *stubLoader) Identifier() string { return s.id }

func (s *stubLoader) Pitch(_ context.Context, lc *Context) error {
	*s.trace = append(*s.trace, "pitch:"+s.id)
	if s.pitchErr != nil {
		return s.pitchErr
	}
	if s.markExecuted {
		lc.CurrentLoader().SetNormalExecuted()
	}
	if s.pitchOut != "" {
		lc.Content = []byte(s.pitchOut)
	}
	return nil
}

func (s *stubLoader) Run(_ context.Context, lc *Context) error {
	*s.trace = append(*s.trace, "run:"+s.id)
	if s.runErr != nil {
		return s.runErr
	}
	lc.Content = append(lc.Content, []byte("+"+s.id)...)
	return nil
}

func memRead(content string) ReadResource {
	return func(respath.ResourceData) ([]byte, error) {
		return []byte(content), nil
	}
}

func TestRunPhaseOrder(t *testing.T) {
	var trace []string
	chain := NewChain(
		&stubLoader{id: "a", trace: &trace},
		&stubLoader{id: "b", trace: &trace},
		&stubLoader{id: "c", trace: &trace},
	)

	result, err := Run(context.Background(), chain, respath.ParseResource("/virtual/x.js"), Options{
		Read: memRead("base"),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []string{"pitch:a", "pitch:b", "pitch:c", "run:c", "run:b", "run:a"}
	if strings.Join(trace, " ") != strings.Join(want, " ") {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	if string(result.Content) != "base+c+b+a" {
		t.Fatalf("Content = %q", result.Content)
	}
}

func TestRunPitchShortCircuit(t *testing.T) {
	var trace []string
	chain := NewChain(
		&stubLoader{id: "a", trace: &trace},
		&stubLoader{id: "b", pitchOut: "pitched", trace: &trace},
		&stubLoader{id: "c", trace: &trace},
	)

	read := false
	result, err := Run(context.Background(), chain, respath.ParseResource("/virtual/x.js"), Options{
		Read: func(respath.ResourceData) ([]byte, error) {
			read = true
			return []byte("base"), nil
		},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if read {
		t.Fatalf("resource must not be read after a pitch short-circuit")
	}

	// b pitched content, so c never runs in either phase and the normal
	// phase starts at a.
	want := []string{"pitch:a", "pitch:b", "run:a"}
	if strings.Join(trace, " ") != strings.Join(want, " ") {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	if string(result.Content) != "pitched+a" {
		t.Fatalf("Content = %q", result.Content)
	}
}

func TestRunRecordsResourceDependency(t *testing.T) {
	chain := NewChain()
	resource := respath.ParseResource("/virtual/dep.js")
	result, err := Run(context.Background(), chain, resource, Options{Read: memRead("x")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !result.FileDependencies.Has("/virtual/dep.js") {
		t.Fatalf("resource path not recorded as file dependency")
	}
	if !result.Cacheable {
		t.Fatalf("untouched run must stay cacheable")
	}
}

func TestRunErrorWrapping(t *testing.T) {
	boom := errors.New("boom")

	t.Run("pitch", func(t *testing.T) {
		var trace []string
		chain := NewChain(&stubLoader{id: "p", pitchErr: boom, trace: &trace})
		_, err := Run(context.Background(), chain, respath.ParseResource("/x.js"), Options{Read: memRead("")})
		if err == nil || !errors.Is(err, boom) {
			t.Fatalf("expected wrapped pitch error, got %v", err)
		}
		if !strings.Contains(err.Error(), "loader p pitch:") {
			t.Fatalf("error = %q", err)
		}
	})

	t.Run("normal", func(t *testing.T) {
		var trace []string
		chain := NewChain(&stubLoader{id: "n", runErr: boom, trace: &trace})
		_, err := Run(context.Background(), chain, respath.ParseResource("/x.js"), Options{Read: memRead("")})
		if err == nil || !errors.Is(err, boom) {
			t.Fatalf("expected wrapped run error, got %v", err)
		}
		if !strings.Contains(err.Error(), "loader n:") {
			t.Fatalf("error = %q", err)
		}
	})
}

func TestRunSkipsNormalExecuted(t *testing.T) {
	var trace []string
	chain := NewChain(
		&stubLoader{id: "a", trace: &trace},
		&stubLoader{id: "b", markExecuted: true, trace: &trace},
	)

	result, err := Run(context.Background(), chain, respath.ParseResource("/x.js"), Options{Read: memRead("base")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if string(result.Content) != "base+a" {
		t.Fatalf("Content = %q, step b must be skipped", result.Content)
	}
}

func TestRunChainReusableAcrossRuns(t *testing.T) {
	var trace []string
	chain := NewChain(
		&stubLoader{id: "a", trace: &trace},
		&stubLoader{id: "b", trace: &trace},
	)
	resource := respath.ParseResource("/x.js")

	for attempt := 0; attempt < 2; attempt++ {
		trace = nil
		result, err := Run(context.Background(), chain, resource, Options{Read: memRead("base")})
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		want := []string{"pitch:a", "pitch:b", "run:b", "run:a"}
		if strings.Join(trace, " ") != strings.Join(want, " ") {
			t.Fatalf("attempt %d trace = %v, want %v", attempt, trace, want)
		}
		if string(result.Content) != "base+b+a" {
			t.Fatalf("attempt %d Content = %q", attempt, result.Content)
		}
	}
}

func TestRunClearsStaleExecutionMarks(t *testing.T) {
	var trace []string
	chain := NewChain(&stubLoader{id: "x", trace: &trace})
	// Marks left behind by an earlier run must not survive into this one.
	chain[0].SetNormalExecuted()

	result, err := Run(context.Background(), chain, respath.ParseResource("/x.js"), Options{Read: memRead("base")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if string(result.Content) != "base+x" {
		t.Fatalf("Content = %q, stale mark skipped the step", result.Content)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name              string
		request           string
		loaders           []string
		resource          string
		disableConfigured bool
		disableAll        bool
	}{
		{name: "plain", request: "./a.js", resource: "./a.js"},
		{name: "one loader", request: "ts-loader!./a.ts", loaders: []string{"ts-loader"}, resource: "./a.ts"},
		{
			name:     "two loaders keep order",
			request:  "style!css!./a.css",
			loaders:  []string{"style", "css"},
			resource: "./a.css",
		},
		{
			name:              "bang disables configured",
			request:           "!raw!./a.js",
			loaders:           []string{"raw"},
			resource:          "./a.js",
			disableConfigured: true,
		},
		{
			name:       "double bang disables all",
			request:    "!!raw!./a.js",
			loaders:    []string{"raw"},
			resource:   "./a.js",
			disableAll: true,
		},
		{
			name:              "dash bang",
			request:           "-!raw!./a.js",
			loaders:           []string{"raw"},
			resource:          "./a.js",
			disableConfigured: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseRequest(tt.request)
			if p.Resource != tt.resource {
				t.Fatalf("Resource = %q, want %q", p.Resource, tt.resource)
			}
			if fmt.Sprint(p.Loaders) != fmt.Sprint(tt.loaders) && len(p.Loaders)+len(tt.loaders) > 0 {
				t.Fatalf("Loaders = %v, want %v", p.Loaders, tt.loaders)
			}
			if p.DisableConfigured != tt.disableConfigured || p.DisableAll != tt.disableAll {
				t.Fatalf("flags = %v/%v, want %v/%v",
					p.DisableConfigured, p.DisableAll, tt.disableConfigured, tt.disableAll)
			}
		})
	}
}

func TestSplitQuery(t *testing.T) {
	path, query := SplitQuery("/abs/loader.js?opt=1")
	if path != "/abs/loader.js" || query != "?opt=1" {
		t.Fatalf("SplitQuery = %q %q", path, query)
	}
	path, query = SplitQuery("bare")
	if path != "bare" || query != "" {
		t.Fatalf("SplitQuery = %q %q", path, query)
	}
}

func TestBuiltinRegistry(t *testing.T) {
	var lastOptions string
	RegisterBuiltin("test-upper", func(options string) (Loader, error) {
		lastOptions = options
		var trace []string
		return &stubLoader{id: "builtin:test-upper", trace: &trace}, nil
	})

	if !IsBuiltin("builtin:test-upper") {
		t.Fatalf("IsBuiltin missed the prefix")
	}
	if IsBuiltin("./test-upper") {
		t.Fatalf("IsBuiltin matched a path")
	}

	l, err := GetBuiltin("builtin:test-upper?caps", "")
	if err != nil {
		t.Fatalf("GetBuiltin returned error: %v", err)
	}
	if l.Identifier() != "builtin:test-upper" {
		t.Fatalf("Identifier = %q", l.Identifier())
	}
	if lastOptions != "caps" {
		t.Fatalf("options = %q, want %q", lastOptions, "caps")
	}

	if _, err := GetBuiltin("builtin:absent", ""); err == nil {
		t.Fatalf("expected error for unknown builtin")
	}
}
