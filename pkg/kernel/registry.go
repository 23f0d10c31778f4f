package kernel

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"github.com/weave-lang/weave/pkg/werrors"
)

var moduleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_.]*$`)

// Registry is a thread-safe mapping from dotted module name to module
// value, the kernel's namespaced replacement for a global `require(...)`.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]any
	log     *slog.Logger
}

// NewRegistry creates an empty module registry. A nil logger falls back
// to slog.Default().
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{modules: make(map[string]any), log: log}
}

// Register adds a module under name. Returns ErrValidation if name does
// not match ^[a-z][a-z0-9_.]*$, ErrDuplicate if already registered.
func (r *Registry) Register(name string, module any) error {
	if !moduleNamePattern.MatchString(name) {
		return fmt.Errorf("%w: module name %q", werrors.ErrValidation, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("%w: module %q already registered", werrors.ErrDuplicate, name)
	}
	r.modules[name] = module
	r.log.Debug("module registered", slog.String("module", name))
	return nil
}

// Unregister removes a module. It is a no-op if the module is absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.modules, name)
	r.log.Debug("module unregistered", slog.String("module", name))
}

// Get retrieves a module by name.
func (r *Registry) Get(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: module %q", werrors.ErrNotFound, name)
	}
	return m, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[name]
	return ok
}

// List returns all registered module names in lexicographic order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// Clear removes every registered module.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules = make(map[string]any)
}
