package module

// Restore rehydrates a module from a cached build instead of running one.
// The caller is responsible for having validated the cache entry against
// the current resource content; a restored module behaves exactly like a
// freshly built one, including degraded code generation for failed builds.
func (m *Module) Restore(state BuildState, info BuildInfo, meta BuildMeta, deps []Dependency, presentational []PresentationalDependency) {
	m.state = state
	m.buildInfo = info
	m.buildMeta = meta
	m.dependencies = deps
	m.presentational = presentational
	if state.Kind() == StateBuiltSucceed {
		m.originalSource = state.Source()
	}
	m.sizeMu.Lock()
	m.sizes = make(map[SourceType]float64)
	m.sizeMu.Unlock()
}
