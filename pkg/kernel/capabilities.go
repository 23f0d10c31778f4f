package kernel

import "sync"

// CapabilitySet is the unit-of-permission gate checked at the plugin API
// boundary (spec §4.9). Unknown capability names are always reported as
// disabled; enabling or disabling an unknown name is a no-op, matching the
// spec's "has(name) returns false for unknown names" / "enable/disable
// only affect known capabilities" rules.
type CapabilitySet struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

// NewCapabilitySet creates a capability set seeded with the given
// capability names, all initially disabled.
func NewCapabilitySet(names ...string) *CapabilitySet {
	cs := &CapabilitySet{enabled: make(map[string]bool, len(names))}
	for _, n := range names {
		cs.enabled[n] = false
	}
	return cs
}

// Declare registers a new known capability name (default: disabled) if
// not already known. It is idempotent.
func (c *CapabilitySet) Declare(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, known := c.enabled[name]; !known {
		c.enabled[name] = false
	}
}

// Has reports whether name is both known and enabled.
func (c *CapabilitySet) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled[name]
}

// Known reports whether name has been declared, regardless of state.
func (c *CapabilitySet) Known(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.enabled[name]
	return ok
}

// Enable turns a known capability on. No-op for unknown names.
func (c *CapabilitySet) Enable(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, known := c.enabled[name]; known {
		c.enabled[name] = true
	}
}

// Disable turns a known capability off. No-op for unknown names.
func (c *CapabilitySet) Disable(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, known := c.enabled[name]; known {
		c.enabled[name] = false
	}
}

// Names returns every known capability name, enabled or not.
func (c *CapabilitySet) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.enabled))
	for n := range c.enabled {
		names = append(names, n)
	}
	return names
}
