package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weave-lang/weave/pkg/kernel"
	"github.com/weave-lang/weave/pkg/werrors"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := kernel.NewRegistry(nil)

	require.NoError(t, r.Register("story.runtime", 42))
	v, err := r.Get("story.runtime")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, r.Has("story.runtime"))
	assert.Equal(t, 1, r.Count())
}

func TestRegistryDuplicateRejected(t *testing.T) {
	r := kernel.NewRegistry(nil)
	require.NoError(t, r.Register("a.b", 1))

	err := r.Register("a.b", 2)
	assert.ErrorIs(t, err, werrors.ErrDuplicate)
}

func TestRegistryRejectsInvalidNames(t *testing.T) {
	r := kernel.NewRegistry(nil)
	for _, name := range []string{"Bad", "1bad", "bad name", ""} {
		err := r.Register(name, 1)
		assert.ErrorIsf(t, err, werrors.ErrValidation, "name %q should be rejected", name)
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := kernel.NewRegistry(nil)
	_, err := r.Get("missing")
	assert.ErrorIs(t, err, werrors.ErrNotFound)
}

func TestRegistryListIsSorted(t *testing.T) {
	r := kernel.NewRegistry(nil)
	require.NoError(t, r.Register("z.mod", 1))
	require.NoError(t, r.Register("a.mod", 1))
	require.NoError(t, r.Register("m.mod", 1))

	assert.Equal(t, []string{"a.mod", "m.mod", "z.mod"}, r.List())
}

func TestRegistryUnregisterAndClear(t *testing.T) {
	r := kernel.NewRegistry(nil)
	require.NoError(t, r.Register("a.b", 1))
	r.Unregister("a.b")
	assert.False(t, r.Has("a.b"))

	require.NoError(t, r.Register("c.d", 1))
	r.Clear()
	assert.Equal(t, 0, r.Count())
}
