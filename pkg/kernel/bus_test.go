package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/weave-lang/weave/pkg/kernel"
)

func TestBusPriorityOrdering(t *testing.T) {
	b := kernel.NewBus(nil)
	var order []int

	b.On("evt", func(string, any) { order = append(order, 1) }, 1)
	b.On("evt", func(string, any) { order = append(order, 10) }, 10)
	b.On("evt", func(string, any) { order = append(order, 5) }, 5)
	b.On("evt", func(string, any) { order = append(order, 11) }, 10)

	b.Emit("evt", nil)
	assert.Equal(t, []int{10, 11, 5, 1}, order)
}

func TestBusWildcardFiresAlongsideSpecific(t *testing.T) {
	b := kernel.NewBus(nil)
	var order []string

	b.On("ns:*", func(e string, _ any) { order = append(order, "wild:"+e) }, 0)
	b.On("ns:action", func(e string, _ any) { order = append(order, "specific:"+e) }, 0)

	b.Emit("ns:action", nil)
	assert.Equal(t, []string{"specific:ns:action", "wild:ns:action"}, order)
}

func TestBusGlobalWildcard(t *testing.T) {
	b := kernel.NewBus(nil)
	count := 0
	b.On("*", func(string, any) { count++ }, 0)
	b.Emit("anything:here", nil)
	b.Emit("else:there", nil)
	assert.Equal(t, 2, count)
}

func TestBusOnceFiresOnlyOnceEvenOnReentrantEmit(t *testing.T) {
	b := kernel.NewBus(nil)
	fired := 0
	b.Once("evt", func(string, any) {
		fired++
		b.Emit("evt", nil) // re-entrant emit must not re-trigger this handler
	}, 0)

	b.Emit("evt", nil)
	assert.Equal(t, 1, fired)
}

func TestBusUnsubscribeDuringEmitDoesNotAffectScheduledHandlers(t *testing.T) {
	b := kernel.NewBus(nil)
	var calledB, calledC bool
	var unsubA kernel.Unsubscribe

	unsubA = b.On("evt", func(string, any) {
		unsubA() // unsubscribe self mid-dispatch
	}, 10)
	b.On("evt", func(string, any) { calledB = true }, 5)
	b.On("evt", func(string, any) { calledC = true }, 0)

	b.Emit("evt", nil)
	assert.True(t, calledB)
	assert.True(t, calledC)

	// Second emission: A must not fire again.
	calledB, calledC = false, false
	b.Emit("evt", nil)
	assert.True(t, calledB)
	assert.True(t, calledC)
}

func TestBusDebugTap(t *testing.T) {
	b := kernel.NewBus(nil)
	var tapped []string
	b.SetTap(func(event string, _ any) { tapped = append(tapped, event) })
	b.SetDebug(true)

	b.Emit("a", nil)
	b.SetDebug(false)
	b.Emit("b", nil)

	assert.Equal(t, []string{"a"}, tapped)
}
