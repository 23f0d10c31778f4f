package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/weave-lang/weave/pkg/kernel"
)

func TestCapabilitySetUnknownIsAlwaysFalse(t *testing.T) {
	cs := kernel.NewCapabilitySet("state:read")
	assert.False(t, cs.Has("state:write"))
	cs.Enable("state:write") // no-op, unknown
	assert.False(t, cs.Has("state:write"))
}

func TestCapabilitySetEnableDisable(t *testing.T) {
	cs := kernel.NewCapabilitySet("persistence:write")
	assert.False(t, cs.Has("persistence:write"))

	cs.Enable("persistence:write")
	assert.True(t, cs.Has("persistence:write"))

	cs.Disable("persistence:write")
	assert.False(t, cs.Has("persistence:write"))
}

func TestCapabilitySetDeclareIsIdempotent(t *testing.T) {
	cs := kernel.NewCapabilitySet()
	cs.Declare("x")
	cs.Enable("x")
	cs.Declare("x") // must not reset to disabled
	assert.True(t, cs.Has("x"))
	assert.True(t, cs.Known("x"))
}
