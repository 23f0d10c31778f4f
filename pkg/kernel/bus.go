package kernel

import (
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Handler receives an emitted event's payload.
type Handler func(event string, payload any)

// Unsubscribe removes a previously registered handler. Calling it more
// than once is a no-op.
type Unsubscribe func()

type subscription struct {
	id       uint64
	pattern  string
	handler  Handler
	priority int
	once     bool
	removed  bool
}

// isWildcard reports whether pattern is a wildcard subscription ("*" or
// "ns:*").
func isWildcard(pattern string) bool {
	return pattern == "*" || strings.HasSuffix(pattern, ":*")
}

func matches(pattern, event string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, ":*") {
		return strings.HasPrefix(event, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == event
}

// Bus is the kernel's in-process publish/subscribe event bus (spec
// §4.1). Handlers for one emission run from highest to lowest priority,
// stable within equal priority; specific-pattern handlers run before
// wildcard handlers at the same priority tier.
type Bus struct {
	mu      sync.Mutex
	subs    []*subscription
	nextID  uint64
	debug   bool
	tap     func(event string, payload any)
	log     *slog.Logger
	bridges []func(event string, payload any)
}

// NewBus creates an empty event bus.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log}
}

// SetDebug enables or disables the pre-dispatch tap.
func (b *Bus) SetDebug(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.debug = enabled
}

// SetTap installs the single pre-dispatch tap invoked with (event, payload)
// before handler dispatch, only while debug mode is enabled.
func (b *Bus) SetTap(tap func(event string, payload any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tap = tap
}

// On registers handler for event (an exact name or wildcard pattern).
// Higher priority handlers fire first; ties broken by subscription order.
func (b *Bus) On(event string, handler Handler, priority int) Unsubscribe {
	return b.subscribe(event, handler, priority, false)
}

// Once registers a handler that is removed before its first invocation,
// so re-emitting the same event from within the callback never re-fires
// it.
func (b *Bus) Once(event string, handler Handler, priority int) Unsubscribe {
	return b.subscribe(event, handler, priority, true)
}

func (b *Bus) subscribe(event string, handler Handler, priority int, once bool) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	sub := &subscription{id: b.nextID, pattern: event, handler: handler, priority: priority, once: once}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		sub.removed = true
		b.mu.Unlock()
	}
}

// Off removes handlers subscribed to event. If handler is nil, every
// handler for that exact pattern is removed.
func (b *Bus) Off(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.pattern != event {
			continue
		}
		if handler == nil || samePointer(s.handler, handler) {
			s.removed = true
		}
	}
}

// samePointer compares handlers by the underlying function pointer. Go
// offers no general func equality; this matches the common case of
// passing the same named function or method value to On and Off. Callers
// needing to remove one specific closure-based subscription should use
// the Unsubscribe token returned by On/Once instead.
func samePointer(a, b Handler) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// Emit dispatches event with payload to every matching handler, highest
// priority first, stable within a tier, specific handlers before
// wildcards at the same priority.
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	if b.debug && b.tap != nil {
		b.tap(event, payload)
	}
	snapshot := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.removed {
			continue
		}
		if matches(s.pattern, event) {
			snapshot = append(snapshot, s)
		}
	}
	bridges := append([]func(event string, payload any){}, b.bridges...)
	b.mu.Unlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].priority != snapshot[j].priority {
			return snapshot[i].priority > snapshot[j].priority
		}
		iw, jw := isWildcard(snapshot[i].pattern), isWildcard(snapshot[j].pattern)
		if iw != jw {
			return !iw // specific before wildcard
		}
		return snapshot[i].id < snapshot[j].id
	})

	for _, s := range snapshot {
		b.mu.Lock()
		alreadyGone := s.removed
		if s.once {
			s.removed = true
		}
		b.mu.Unlock()
		if alreadyGone {
			continue
		}
		s.handler(event, payload)
	}

	for _, bridge := range bridges {
		bridge(event, payload)
	}
}

// Bridge registers a fire-and-forget relay invoked after every local
// dispatch. Used by the NATS bridge (SPEC_FULL §4.9) to forward events to
// out-of-process collaborators without the bus depending on network
// transport directly.
func (b *Bus) Bridge(fn func(event string, payload any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bridges = append(b.bridges, fn)
}
