package loader

import (
	"fmt"
	"strings"
	"sync"
)

// BuiltinPrefix marks loader requests dispatched to statically registered
// in-process transforms, bypassing filesystem resolution entirely.
const BuiltinPrefix = "builtin:"

// BuiltinFactory constructs a builtin transform from its option string (the
// raw ?query suffix, without the '?').
type BuiltinFactory func(options string) (Loader, error)

var builtins struct {
	mu sync.RWMutex
	m  map[string]BuiltinFactory
}

// RegisterBuiltin adds a builtin transform under name (without the prefix).
// Registration happens at init time; later calls replace the factory.
func RegisterBuiltin(name string, factory BuiltinFactory) {
	builtins.mu.Lock()
	defer builtins.mu.Unlock()
	if builtins.m == nil {
		builtins.m = make(map[string]BuiltinFactory)
	}
	builtins.m[name] = factory
}

// IsBuiltin reports whether the request names a builtin transform.
func IsBuiltin(request string) bool {
	return strings.HasPrefix(request, BuiltinPrefix)
}

// GetBuiltin instantiates the builtin transform named by request. Unknown
// names are a caller error.
func GetBuiltin(request, options string) (Loader, error) {
	name := strings.TrimPrefix(request, BuiltinPrefix)
	if i := strings.IndexByte(name, '?'); i >= 0 {
		if options == "" {
			options = name[i+1:]
		}
		name = name[:i]
	}
	builtins.mu.RLock()
	factory, ok := builtins.m[name]
	builtins.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown builtin loader %q", BuiltinPrefix+name)
	}
	return factory(options)
}
