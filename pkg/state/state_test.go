package state_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weave-lang/weave/pkg/state"
)

func TestGetSetHas(t *testing.T) {
	s := state.New()
	assert.False(t, s.Has("gold"))

	require.NoError(t, s.Set("gold", state.Number(10)))
	assert.True(t, s.Has("gold"))

	v, ok := s.Get("gold")
	require.True(t, ok)
	n, _ := v.AsNumber()
	assert.Equal(t, 10.0, n)
}

func TestSnapshotRestoreIsTotal(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Set("gold", state.Number(10)))
	snap := s.Snapshot()

	require.NoError(t, s.Set("gold", state.Number(99)))
	require.NoError(t, s.Set("new_var", state.String("hi")))

	s.Restore(snap)

	v, _ := s.Get("gold")
	n, _ := v.AsNumber()
	assert.Equal(t, 10.0, n)
	assert.False(t, s.Has("new_var"), "restore must remove names absent from the snapshot")
}

func TestObserversFireInSubscriptionOrderWithOldAndNew(t *testing.T) {
	s := state.New()
	var calls []string

	s.Observe("gold", func(name string, old, new state.Value) {
		o, _ := old.AsNumber()
		n, _ := new.AsNumber()
		calls = append(calls, "first", name, fmt.Sprintf("%g:%g", o, n))
	})
	s.Observe("gold", func(name string, old, new state.Value) {
		calls = append(calls, "second")
	})

	require.NoError(t, s.Set("gold", state.Number(5)))
	assert.Equal(t, []string{"first", "gold", "0:5", "second"}, calls)
}

func TestWildcardObserverFiresForEveryVariable(t *testing.T) {
	s := state.New()
	var seen []string
	s.Observe("*", func(name string, old, new state.Value) {
		seen = append(seen, name)
	})

	require.NoError(t, s.Set("a", state.Number(1)))
	require.NoError(t, s.Set("b", state.Number(2)))
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestUnsubscribeDuringNotificationDoesNotAffectScheduledObservers(t *testing.T) {
	s := state.New()
	var calls []string
	var unsub state.Unsubscribe
	unsub = s.Observe("x", func(name string, old, new state.Value) {
		calls = append(calls, "one")
		unsub()
	})
	s.Observe("x", func(name string, old, new state.Value) {
		calls = append(calls, "two")
	})

	require.NoError(t, s.Set("x", state.Number(1)))
	assert.Equal(t, []string{"one", "two"}, calls)

	calls = nil
	require.NoError(t, s.Set("x", state.Number(2)))
	assert.Equal(t, []string{"two"}, calls)
}

func TestReentrantWriteDuringNotificationFailsAndLeavesStateUnchanged(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Set("x", state.Number(1)))

	var reentrantErr error
	s.Observe("x", func(name string, old, new state.Value) {
		reentrantErr = s.Set("y", state.Number(99))
	})

	require.NoError(t, s.Set("x", state.Number(2)))
	require.Error(t, reentrantErr)
	assert.False(t, s.Has("y"), "rejected re-entrant write must not mutate state")
}

func TestValueEqualityAndTruthy(t *testing.T) {
	assert.True(t, state.Number(1).Equal(state.Number(1)))
	assert.False(t, state.Number(1).Equal(state.String("1")))
	assert.False(t, state.Nil().Truthy())
	assert.False(t, state.Number(0).Truthy())
	assert.True(t, state.String("x").Truthy())
	assert.True(t, state.List([]state.Value{state.Number(1)}).Truthy())
	assert.False(t, state.List(nil).Truthy())
}
