package state

import (
	"sort"
	"sync"

	"github.com/weave-lang/weave/pkg/werrors"
)

// Observer is notified after a variable mutates, with its name and both
// values. Observers must not mutate the State during notification; doing
// so is rejected with werrors.ErrInvalidState (spec §4.7).
type Observer func(name string, oldValue, newValue Value)

// Unsubscribe removes a single observation previously registered with
// Observe.
type Unsubscribe func()

type observation struct {
	id      uint64
	pattern string // variable name, or "*" for every variable
	fn      Observer
	removed bool
}

// State is the engine's mutable variable store: a name -> Value map
// with snapshot/restore and per-name (or wildcard) change observation.
// Not safe for concurrent use from multiple goroutines; the engine's
// single-threaded cooperative model (spec §5) makes one mutex enough to
// guard the re-entrancy check, not true concurrent access.
type State struct {
	mu         sync.Mutex
	values     map[string]Value
	observers  []*observation
	nextObsID  uint64
	notifying  bool
}

func New() *State {
	return &State{values: map[string]Value{}}
}

func (s *State) Get(name string) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

func (s *State) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[name]
	return ok
}

// Set assigns name to v, then notifies observers of name and of "*" in
// subscription order. Calling Set re-entrantly from inside an observer
// callback fails with werrors.ErrInvalidState and leaves the state
// unchanged.
func (s *State) Set(name string, v Value) error {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return werrors.ErrInvalidState
	}
	old, existed := s.values[name]
	if !existed {
		old = Nil()
	}
	s.values[name] = v
	snapshot := make([]*observation, len(s.observers))
	copy(snapshot, s.observers)
	s.notifying = true
	s.mu.Unlock()

	for _, obs := range snapshot {
		if obs.removed {
			continue
		}
		if obs.pattern == name || obs.pattern == "*" {
			obs.fn(name, old, v)
		}
	}

	s.mu.Lock()
	s.notifying = false
	s.mu.Unlock()
	return nil
}

// Observe subscribes fn to changes of name (or "*" for every variable),
// in subscription order. The returned Unsubscribe is idempotent.
func (s *State) Observe(name string, fn Observer) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextObsID++
	obs := &observation{id: s.nextObsID, pattern: name, fn: fn}
	s.observers = append(s.observers, obs)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		obs.removed = true
	}
}

// Names returns every assigned variable name, sorted.
func (s *State) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot is an immutable, independently-owned copy of a State's
// values at one instant; it may be restored any number of times.
type Snapshot struct {
	values map[string]Value
}

// Snapshot captures the current values. The result shares no mutable
// state with the live State.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return Snapshot{values: out}
}

// Restore replaces every variable with snap's values: restoration is
// total, so a name absent from snap is removed even if currently set.
// Restore does not notify observers (spec §4.7 treats restore as a
// distinct "state.restored" event at the runtime layer, not a sequence
// of per-variable mutations).
func (s *State) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make(map[string]Value, len(snap.values))
	for k, v := range snap.values {
		values[k] = v
	}
	s.values = values
}

// Values returns a defensive copy of the snapshot's contents. The map
// has no order; callers building a byte-stable encoding (spec §6.4) sort
// the names themselves.
func (snap Snapshot) Values() map[string]Value {
	out := make(map[string]Value, len(snap.values))
	for k, v := range snap.values {
		out[k] = v
	}
	return out
}

// SnapshotFromValues builds a Snapshot directly from a values map, used
// by persistence/format code reconstructing a snapshot from storage.
func SnapshotFromValues(values map[string]Value) Snapshot {
	out := make(map[string]Value, len(values))
	for k, v := range values {
		out[k] = v
	}
	return Snapshot{values: out}
}
