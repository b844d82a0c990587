package module

import (
	"forge/internal/loader"
	"forge/internal/resolve"
)

// PluginDriver is the ordered-callback dispatcher the core invokes at fixed
// points. Implementations live outside this package; a no-op chain is valid.
type PluginDriver interface {
	// BeforeLoaders runs right before a module's chain executes. The
	// loader-selection policy rewrites the chain here; this is the only
	// point the chain may change.
	BeforeLoaders(m *Module) error
	// ResolveLoader maps a loader request to a transform step. A nil
	// loader defers to the next driver in the chain.
	ResolveLoader(opts *Options, contextDir string, resolver *resolve.Resolver, request, options string) (loader.Loader, error)
}

// NopDriver ignores every hook.
type NopDriver struct{}

func (NopDriver) BeforeLoaders(*Module) error { return nil }

func (NopDriver) ResolveLoader(*Options, string, *resolve.Resolver, string, string) (loader.Loader, error) {
	return nil, nil
}

// DriverChain dispatches hooks to each driver in order. For ResolveLoader
// the first non-nil answer wins.
type DriverChain []PluginDriver

func (c DriverChain) BeforeLoaders(m *Module) error {
	for _, d := range c {
		if err := d.BeforeLoaders(m); err != nil {
			return err
		}
	}
	return nil
}

func (c DriverChain) ResolveLoader(opts *Options, contextDir string, resolver *resolve.Resolver, request, options string) (loader.Loader, error) {
	for _, d := range c {
		l, err := d.ResolveLoader(opts, contextDir, resolver, request, options)
		if err != nil {
			return nil, err
		}
		if l != nil {
			return l, nil
		}
	}
	return nil, nil
}
