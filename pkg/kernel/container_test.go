package kernel_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weave-lang/weave/pkg/kernel"
	"github.com/weave-lang/weave/pkg/werrors"
)

type widget struct {
	id          int
	inited      bool
	destroyed   *bool
	destroyLog  *[]int
	initErr     error
}

func (w *widget) Init(kernel.Resolver) error {
	w.inited = true
	return w.initErr
}

func (w *widget) Destroy() error {
	*w.destroyed = true
	if w.destroyLog != nil {
		*w.destroyLog = append(*w.destroyLog, w.id)
	}
	return nil
}

func TestContainerSingletonBuiltOnce(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	builds := 0
	require.NoError(t, c.Register("widget", func(r kernel.Resolver, args ...any) (any, error) {
		builds++
		return &widget{id: builds}, nil
	}, kernel.RegisterOptions{Singleton: true}))

	a, err := c.Resolve("widget")
	require.NoError(t, err)
	b, err := c.Resolve("widget")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, builds)
}

func TestContainerNonSingletonRebuildsEveryResolve(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	builds := 0
	require.NoError(t, c.Register("widget", func(r kernel.Resolver, args ...any) (any, error) {
		builds++
		return &widget{id: builds}, nil
	}, kernel.RegisterOptions{}))

	a, _ := c.Resolve("widget")
	b, _ := c.Resolve("widget")
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, builds)
}

func TestContainerDuplicateRegistration(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	factory := func(r kernel.Resolver, args ...any) (any, error) { return 1, nil }
	require.NoError(t, c.Register("x", factory, kernel.RegisterOptions{}))
	err := c.Register("x", factory, kernel.RegisterOptions{})
	assert.ErrorIs(t, err, werrors.ErrDuplicate)
}

func TestContainerDependencyCycleDetected(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	require.NoError(t, c.Register("a", func(r kernel.Resolver, args ...any) (any, error) {
		return r.Resolve("b")
	}, kernel.RegisterOptions{}))
	require.NoError(t, c.Register("b", func(r kernel.Resolver, args ...any) (any, error) {
		return r.Resolve("a")
	}, kernel.RegisterOptions{}))

	_, err := c.Resolve("a")
	assert.ErrorIs(t, err, werrors.ErrDependencyCycle)
}

func TestContainerInitHookRuns(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	require.NoError(t, c.Register("widget", func(r kernel.Resolver, args ...any) (any, error) {
		return &widget{}, nil
	}, kernel.RegisterOptions{Init: "Init"}))

	inst, err := c.Resolve("widget")
	require.NoError(t, err)
	assert.True(t, inst.(*widget).inited)
}

func TestContainerInitHookFailurePropagates(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	boom := errors.New("boom")
	require.NoError(t, c.Register("widget", func(r kernel.Resolver, args ...any) (any, error) {
		return &widget{initErr: boom}, nil
	}, kernel.RegisterOptions{Init: "Init"}))

	_, err := c.Resolve("widget")
	assert.ErrorIs(t, err, boom)
}

func TestContainerCapabilityEnabledOnFirstResolve(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	require.NoError(t, c.Register("widget", func(r kernel.Resolver, args ...any) (any, error) {
		return &widget{}, nil
	}, kernel.RegisterOptions{Capability: "widgets:use"}))

	assert.False(t, c.Capabilities().Has("widgets:use"))
	_, err := c.Resolve("widget")
	require.NoError(t, err)
	assert.True(t, c.Capabilities().Has("widgets:use"))
}

func TestContainerInterfaceValidationRejection(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	c.RegisterInterfaceValidator("IFoo", func(any) error {
		return errors.New("missing Bar()")
	})
	require.NoError(t, c.Register("widget", func(r kernel.Resolver, args ...any) (any, error) {
		return &widget{}, nil
	}, kernel.RegisterOptions{Implements: "IFoo"}))

	_, err := c.Resolve("widget")
	assert.ErrorIs(t, err, werrors.ErrValidation)
}

func TestContainerResolveInterfaceAndAll(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	require.NoError(t, c.Register("first", func(r kernel.Resolver, args ...any) (any, error) {
		return &widget{id: 1}, nil
	}, kernel.RegisterOptions{Implements: "IThing", Singleton: true}))
	require.NoError(t, c.Register("second", func(r kernel.Resolver, args ...any) (any, error) {
		return &widget{id: 2}, nil
	}, kernel.RegisterOptions{Implements: "IThing", Singleton: true}))

	first, err := c.ResolveInterface("IThing")
	require.NoError(t, err)
	assert.Equal(t, 1, first.(*widget).id)

	all, err := c.ResolveAll("IThing")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[1].(*widget).id)
}

func TestContainerDestroyRunsReverseOrder(t *testing.T) {
	c := kernel.NewContainer(nil, nil)
	destroyed1, destroyed2 := false, false
	var order []int

	require.NoError(t, c.Register("first", func(r kernel.Resolver, args ...any) (any, error) {
		return &widget{id: 1, destroyed: &destroyed1, destroyLog: &order}, nil
	}, kernel.RegisterOptions{Singleton: true, Destroy: "Destroy"}))
	require.NoError(t, c.Register("second", func(r kernel.Resolver, args ...any) (any, error) {
		return &widget{id: 2, destroyed: &destroyed2, destroyLog: &order}, nil
	}, kernel.RegisterOptions{Singleton: true, Destroy: "Destroy"}))

	_, err := c.Resolve("first")
	require.NoError(t, err)
	_, err = c.Resolve("second")
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.True(t, destroyed1)
	assert.True(t, destroyed2)
	assert.Equal(t, []int{2, 1}, order)
}
