package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type statKind uint8

const (
	statMissing statKind = iota
	statFile
	statDir
)

// statCache memoizes filesystem probes. Shared by every resolver a factory
// hands out; purged by Factory.ClearEntries when files change underneath us.
type statCache struct {
	mu      sync.RWMutex
	entries map[string]statKind
}

func newStatCache() *statCache {
	return &statCache{entries: make(map[string]statKind)}
}

func (c *statCache) kind(path string) statKind {
	c.mu.RLock()
	k, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		return k
	}
	k = statMissing
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			k = statDir
		} else {
			k = statFile
		}
	}
	c.mu.Lock()
	c.entries[path] = k
	c.mu.Unlock()
	return k
}

func (c *statCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]statKind)
	c.mu.Unlock()
}

// probeLog collects the paths a single resolution consulted, for
// incremental-rebuild invalidation. Best effort: an empty log is valid.
type probeLog struct {
	files   []string
	missing []string
}

func (l *probeLog) file(path string)   { l.files = append(l.files, path) }
func (l *probeLog) absent(path string) { l.missing = append(l.missing, path) }

// NotFoundError reports that no filesystem entry answered the specifier.
type NotFoundError struct {
	Specifier string
	Dir       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot resolve %q in %s", e.Specifier, e.Dir)
}

// CycleError reports an alias chain that revisited a specifier.
type CycleError struct {
	Specifier string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("alias cycle while resolving %q", e.Specifier)
}

// engine is the underlying path-resolution engine: node-style probing with a
// shared stat cache. Stateless per call; all per-call bookkeeping lives in
// the probeLog.
type engine struct {
	cache *statCache
}

func newEngine(cache *statCache) *engine {
	return &engine{cache: cache}
}

type resolution struct {
	path    string
	ignored bool
}

func (e *engine) resolve(opts *Options, resolveToContext bool, dir, specifier string, log *probeLog) (resolution, error) {
	spec, ignored, err := applyAlias(opts.Alias, specifier)
	if err != nil {
		return resolution{}, err
	}
	if ignored {
		return resolution{ignored: true}, nil
	}

	switch {
	case filepath.IsAbs(spec):
		return e.loadPath(opts, resolveToContext, spec, log, specifier, dir)
	case strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == "..":
		return e.loadPath(opts, resolveToContext, filepath.Join(dir, spec), log, specifier, dir)
	default:
		if opts.PreferRelative {
			if res, err := e.loadPath(opts, resolveToContext, filepath.Join(dir, spec), log, specifier, dir); err == nil {
				return res, nil
			}
		}
		return e.loadModule(opts, resolveToContext, dir, spec, log, specifier)
	}
}

// applyAlias rewrites the specifier by longest matching prefix until no alias
// applies, detecting rewrite cycles.
func applyAlias(aliases []Alias, specifier string) (string, bool, error) {
	seen := map[string]struct{}{specifier: {}}
	spec := specifier
	for {
		best := -1
		for i, a := range aliases {
			if spec == a.From || strings.HasPrefix(spec, a.From+"/") {
				if best < 0 || len(a.From) > len(aliases[best].From) {
					best = i
				}
			}
		}
		if best < 0 {
			return spec, false, nil
		}
		a := aliases[best]
		if a.Ignore {
			return "", true, nil
		}
		next := a.To + strings.TrimPrefix(spec, a.From)
		if _, dup := seen[next]; dup {
			return "", false, &CycleError{Specifier: specifier}
		}
		seen[next] = struct{}{}
		spec = next
	}
}

// loadPath resolves an absolute candidate path as a file (with extension
// fallback) or as a directory (via main files). When resolveToContext is set
// only a directory satisfies the request.
func (e *engine) loadPath(opts *Options, resolveToContext bool, path string, log *probeLog, specifier, dir string) (resolution, error) {
	path = filepath.Clean(path)
	kind := e.cache.kind(path)

	if resolveToContext {
		if kind == statDir {
			log.file(path)
			return resolution{path: path}, nil
		}
		log.absent(path)
		return resolution{}, &NotFoundError{Specifier: specifier, Dir: dir}
	}

	if kind == statFile {
		log.file(path)
		return resolution{path: path}, nil
	}
	for _, ext := range opts.Extensions {
		cand := path + ext
		if e.cache.kind(cand) == statFile {
			log.file(cand)
			return resolution{path: cand}, nil
		}
		log.absent(cand)
	}
	if kind == statDir {
		for _, main := range opts.MainFiles {
			base := filepath.Join(path, main)
			if e.cache.kind(base) == statFile {
				log.file(base)
				return resolution{path: base}, nil
			}
			for _, ext := range opts.Extensions {
				cand := base + ext
				if e.cache.kind(cand) == statFile {
					log.file(cand)
					return resolution{path: cand}, nil
				}
				log.absent(cand)
			}
		}
	} else {
		log.absent(path)
	}
	return resolution{}, &NotFoundError{Specifier: specifier, Dir: dir}
}

// loadModule walks ancestor directories probing each configured modules
// directory for a bare specifier.
func (e *engine) loadModule(opts *Options, resolveToContext bool, dir, spec string, log *probeLog, specifier string) (resolution, error) {
	for cur := filepath.Clean(dir); ; cur = filepath.Dir(cur) {
		for _, mods := range opts.Modules {
			root := filepath.Join(cur, mods)
			if e.cache.kind(root) != statDir {
				log.absent(root)
				continue
			}
			res, err := e.loadPath(opts, resolveToContext, filepath.Join(root, spec), log, specifier, dir)
			if err == nil {
				return res, nil
			}
		}
		if cur == filepath.Dir(cur) {
			break
		}
	}
	return resolution{}, &NotFoundError{Specifier: specifier, Dir: dir}
}
