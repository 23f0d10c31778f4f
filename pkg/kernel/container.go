package kernel

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/weave-lang/weave/pkg/werrors"
)

// Resolver is the narrow view of the Container a Factory receives. Nested
// Resolve calls made through it carry the in-progress resolution trail so
// cycles are detected no matter how deep the dependency chain runs.
type Resolver interface {
	Resolve(name string, args ...any) (any, error)
	ResolveInterface(iface string) (any, error)
	ResolveAll(iface string) ([]any, error)
}

// Factory constructs one instance of a registered component.
type Factory func(r Resolver, args ...any) (any, error)

// RegisterOptions configures how a registered component is built and torn
// down (spec §4.1 DI container).
type RegisterOptions struct {
	// Singleton instances are built at most once and cached.
	Singleton bool
	// Depends names other components this one relies on. Purely
	// declarative: the container stores it but never reads or enforces
	// it (a Factory that forgets to Resolve a declared dependency is a
	// bug in the component, not the container).
	Depends []string
	// Implements names an interface this component claims to satisfy.
	// If an interface validator is registered under that name (see
	// Container.RegisterInterfaceValidator), it runs after construction.
	Implements string
	// Capability names a capability that is declared and enabled the
	// first time this component is resolved.
	Capability string
	// Init, if non-empty, is a method name invoked on the built instance
	// as Init(kernel.Resolver) error immediately after construction.
	Init string
	// Destroy, if non-empty, is a method name invoked with no arguments
	// on a singleton instance at Container.Close, in reverse
	// registration order. Ignored for non-singletons.
	Destroy string
}

type buildState int

const (
	stateUnbuilt buildState = iota
	stateBuilding
	stateBuilt
)

type componentEntry struct {
	name     string
	factory  Factory
	opts     RegisterOptions
	order    int
	state    buildState
	instance any
	buildErr error
}

// Container is the engine's capability-gated dependency-injection
// container: the sole global the kernel exposes (spec §9, "Global module
// registry... replace with explicit DI container passing").
type Container struct {
	mu         sync.Mutex
	entries    map[string]*componentEntry
	order      []string
	validators map[string]func(any) error
	caps       *CapabilitySet
	log        *slog.Logger
	nextOrder  int
}

// NewContainer creates an empty container. caps may be nil, in which case
// a fresh CapabilitySet is created; log may be nil, in which case
// slog.Default() is used.
func NewContainer(caps *CapabilitySet, log *slog.Logger) *Container {
	if caps == nil {
		caps = NewCapabilitySet()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Container{
		entries:    make(map[string]*componentEntry),
		validators: make(map[string]func(any) error),
		caps:       caps,
		log:        log,
	}
}

// Capabilities returns the container's capability set.
func (c *Container) Capabilities() *CapabilitySet { return c.caps }

// RegisterInterfaceValidator installs a validation function for the named
// interface. Components registered with opts.Implements == iface are
// passed through fn after construction; a non-nil return fails the
// resolve with that rejection reason.
func (c *Container) RegisterInterfaceValidator(iface string, fn func(any) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validators[iface] = fn
}

// Register adds a component factory under name.
func (c *Container) Register(name string, factory Factory, opts RegisterOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("%w: component %q already registered", werrors.ErrDuplicate, name)
	}
	c.entries[name] = &componentEntry{name: name, factory: factory, opts: opts, order: c.nextOrder}
	c.order = append(c.order, name)
	c.nextOrder++
	return nil
}

// Resolve builds (or returns the cached singleton for) the named
// component.
func (c *Container) Resolve(name string, args ...any) (any, error) {
	return c.resolve(name, args, make(map[string]int))
}

// ResolveInterface returns the first-registered component claiming
// Implements == iface.
func (c *Container) ResolveInterface(iface string) (any, error) {
	name, err := c.firstImplementing(iface)
	if err != nil {
		return nil, err
	}
	return c.Resolve(name)
}

// ResolveAll returns every component claiming Implements == iface, in
// registration order.
func (c *Container) ResolveAll(iface string) ([]any, error) {
	names := c.allImplementing(iface)
	out := make([]any, 0, len(names))
	for _, name := range names {
		inst, err := c.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func (c *Container) firstImplementing(iface string) (string, error) {
	names := c.allImplementing(iface)
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no component implements %q", werrors.ErrNotFound, iface)
	}
	return names[0], nil
}

func (c *Container) allImplementing(iface string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	type hit struct {
		name  string
		order int
	}
	var hits []hit
	for _, e := range c.entries {
		if e.opts.Implements == iface {
			hits = append(hits, hit{e.name, e.order})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].order < hits[j].order })
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.name
	}
	return names
}

// resolve threads an in-progress trail (component name -> depth) through
// recursive Resolve calls so dependency cycles are detected deterministically
// regardless of how deep the chain runs.
func (c *Container) resolve(name string, args []any, trail map[string]int) (any, error) {
	c.mu.Lock()
	entry, ok := c.entries[name]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: component %q", werrors.ErrNotFound, name)
	}
	if entry.opts.Singleton && entry.state == stateBuilt {
		inst, err := entry.instance, entry.buildErr
		c.mu.Unlock()
		return inst, err
	}
	if _, inTrail := trail[name]; inTrail {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", werrors.ErrDependencyCycle, cyclePath(trail, name))
	}
	entry.state = stateBuilding
	trail[name] = len(trail)
	c.mu.Unlock()

	bound := &boundResolver{c: c, trail: trail}
	instance, err := entry.factory(bound, args...)

	if err == nil && entry.opts.Implements != "" {
		if verr := c.validateImplements(entry.opts.Implements, instance); verr != nil {
			err = verr
		}
	}
	if err == nil && entry.opts.Init != "" {
		err = callMethod(instance, entry.opts.Init, bound)
	}
	if err == nil && entry.opts.Capability != "" {
		c.caps.Declare(entry.opts.Capability)
		c.caps.Enable(entry.opts.Capability)
	}

	c.mu.Lock()
	delete(trail, name)
	if entry.opts.Singleton {
		entry.instance, entry.buildErr, entry.state = instance, err, stateBuilt
	} else {
		entry.state = stateUnbuilt
	}
	log := c.log
	c.mu.Unlock()

	if err != nil {
		log.Warn("component resolve failed", slog.String("component", name), slog.Any("error", err))
	}
	return instance, err
}

func (c *Container) validateImplements(iface string, instance any) error {
	c.mu.Lock()
	fn, ok := c.validators[iface]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if err := fn(instance); err != nil {
		return fmt.Errorf("%w: %s does not satisfy %s: %v", werrors.ErrValidation, reflect.TypeOf(instance), iface, err)
	}
	return nil
}

// Close runs Destroy methods for every built singleton, in reverse
// registration order.
func (c *Container) Close() error {
	c.mu.Lock()
	names := make([]string, len(c.order))
	copy(names, c.order)
	c.mu.Unlock()

	var firstErr error
	for i := len(names) - 1; i >= 0; i-- {
		c.mu.Lock()
		entry := c.entries[names[i]]
		c.mu.Unlock()
		if entry == nil || !entry.opts.Singleton || entry.opts.Destroy == "" || entry.state != stateBuilt {
			continue
		}
		if err := callMethod(entry.instance, entry.opts.Destroy); err != nil {
			c.log.Error("component destroy failed", slog.String("component", entry.name), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// boundResolver threads a resolution trail through nested Resolve calls
// made from within a Factory.
type boundResolver struct {
	c     *Container
	trail map[string]int
}

func (b *boundResolver) Resolve(name string, args ...any) (any, error) {
	return b.c.resolve(name, args, b.trail)
}

func (b *boundResolver) ResolveInterface(iface string) (any, error) {
	name, err := b.c.firstImplementing(iface)
	if err != nil {
		return nil, err
	}
	return b.Resolve(name)
}

func (b *boundResolver) ResolveAll(iface string) ([]any, error) {
	names := b.c.allImplementing(iface)
	out := make([]any, 0, len(names))
	for _, name := range names {
		inst, err := b.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func cyclePath(trail map[string]int, closingName string) string {
	type ordered struct {
		name  string
		depth int
	}
	items := make([]ordered, 0, len(trail))
	for name, depth := range trail {
		items = append(items, ordered{name, depth})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].depth < items[j].depth })
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.name
	}
	return strings.Join(append(names, closingName), " -> ")
}

// callMethod invokes a no-or-one-argument method by name via reflection,
// returning its error result (if any). Used for the string-named Init /
// Destroy hooks declared in RegisterOptions.
func callMethod(instance any, method string, args ...any) error {
	v := reflect.ValueOf(instance)
	m := v.MethodByName(method)
	if !m.IsValid() {
		return fmt.Errorf("%w: %T has no method %s", werrors.ErrValidation, instance, method)
	}
	in := make([]reflect.Value, 0, len(args))
	numIn := m.Type().NumIn()
	for i := 0; i < numIn && i < len(args); i++ {
		in = append(in, reflect.ValueOf(args[i]))
	}
	out := m.Call(in)
	if len(out) == 0 {
		return nil
	}
	last := out[len(out)-1]
	if last.IsNil() {
		return nil
	}
	err, ok := last.Interface().(error)
	if !ok {
		return nil
	}
	return err
}
