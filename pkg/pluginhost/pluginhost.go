// Package pluginhost implements the minimal core contract spec §4.9
// grants to plugins: capability-gated state access, event bus
// subscription, and registration of external functions and content
// hooks. Plugins never reach the AST or runtime internals except
// through a Host.
package pluginhost

import (
	"fmt"
	"log/slog"

	"github.com/weave-lang/weave/pkg/kernel"
	"github.com/weave-lang/weave/pkg/runtime"
	"github.com/weave-lang/weave/pkg/state"
	"github.com/weave-lang/weave/pkg/werrors"
)

// The capability names the host declares on its CapabilitySet.
// Deployments may declare additional capabilities of their own; these
// five are the ones this package's methods check.
const (
	CapStateRead          = "state:read"
	CapStateWrite         = "state:write"
	CapEventsSubscribe    = "events:subscribe"
	CapFunctionsRegister  = "functions:register"
	CapContentHooksRegister = "content:hooks"
)

// DefaultCapabilities returns a CapabilitySet with the host's five
// known capabilities declared, all disabled — a deployment enables only
// what it means to grant.
func DefaultCapabilities() *kernel.CapabilitySet {
	return kernel.NewCapabilitySet(
		CapStateRead,
		CapStateWrite,
		CapEventsSubscribe,
		CapFunctionsRegister,
		CapContentHooksRegister,
	)
}

// ContentHook is invoked when a passage carrying the hook's registered
// tag is entered.
type ContentHook func(payload runtime.PassageEnteredPayload)

// Plugin is the lifecycle contract a loaded plugin implements. Init
// receives the capability-gated Host and does all of its own
// subscription/registration through it, never through engine or bus
// directly.
type Plugin interface {
	Name() string
	Init(h *Host) error
	Shutdown() error
}

// Host is the capability-gated facade the core exposes to plugins. It
// wraps an Engine and a Bus, checking a CapabilitySet before forwarding
// any call; denial surfaces as werrors.ErrPermissionDenied, per spec
// §4.9's "capability denial at call time is surfaced as
// permission_denied".
type Host struct {
	log     *slog.Logger
	engine  *runtime.Engine
	bus     *kernel.Bus
	caps    *kernel.CapabilitySet
	plugins []Plugin
}

// New returns a Host. A nil logger falls back to slog.Default().
func New(engine *runtime.Engine, bus *kernel.Bus, caps *kernel.CapabilitySet, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{log: log, engine: engine, bus: bus, caps: caps}
}

func (h *Host) require(capability string) error {
	if h.caps.Has(capability) {
		return nil
	}
	h.log.Warn("plugin capability denied", "capability", capability)
	return fmt.Errorf("%w: capability %q not granted", werrors.ErrPermissionDenied, capability)
}

// GetVariable reads a runtime variable, gated by state:read.
func (h *Host) GetVariable(name string) (state.Value, error) {
	if err := h.require(CapStateRead); err != nil {
		return state.Nil(), err
	}
	v, _ := h.engine.GetVariable(name)
	return v, nil
}

// SetVariable writes a runtime variable, gated by state:write.
func (h *Host) SetVariable(name string, v state.Value) error {
	if err := h.require(CapStateWrite); err != nil {
		return err
	}
	return h.engine.SetVariable(name, v)
}

// Subscribe attaches a bus handler, gated by events:subscribe.
func (h *Host) Subscribe(event string, handler kernel.Handler, priority int) (kernel.Unsubscribe, error) {
	if err := h.require(CapEventsSubscribe); err != nil {
		return nil, err
	}
	return h.bus.On(event, handler, priority), nil
}

// RegisterFunction binds an external function into the runtime's
// function registry, gated by functions:register.
func (h *Host) RegisterFunction(name string, fn runtime.ExternalFunc, lookaheadSafe bool) error {
	if err := h.require(CapFunctionsRegister); err != nil {
		return err
	}
	h.engine.BindExternalFunction(name, fn, lookaheadSafe)
	return nil
}

// RegisterContentHook fires hook every time a passage carrying tag is
// entered, gated by content:hooks. The returned Unsubscribe detaches it.
func (h *Host) RegisterContentHook(tag string, hook ContentHook) (kernel.Unsubscribe, error) {
	if err := h.require(CapContentHooksRegister); err != nil {
		return nil, err
	}
	unsub := h.bus.On(kernel.EventPassageEntered, func(_ string, payload any) {
		p, ok := payload.(runtime.PassageEnteredPayload)
		if !ok {
			return
		}
		for _, t := range p.Tags {
			if t == tag {
				hook(p)
				return
			}
		}
	}, 0)
	return unsub, nil
}

// LoadPlugin calls p.Init(h) and tracks it for Shutdown. A plugin whose
// Init fails is not tracked.
func (h *Host) LoadPlugin(p Plugin) error {
	if err := p.Init(h); err != nil {
		h.log.Warn("plugin init failed", "plugin", p.Name(), "error", err)
		return err
	}
	h.plugins = append(h.plugins, p)
	h.log.Debug("plugin loaded", "plugin", p.Name())
	return nil
}

// Shutdown tears down every loaded plugin in reverse load order,
// mirroring the DI container's reverse-registration teardown order
// (spec §4.1). The first error is returned after every plugin has been
// given a chance to shut down.
func (h *Host) Shutdown() error {
	var firstErr error
	for i := len(h.plugins) - 1; i >= 0; i-- {
		p := h.plugins[i]
		if err := p.Shutdown(); err != nil {
			h.log.Warn("plugin shutdown failed", "plugin", p.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	h.plugins = nil
	return firstErr
}
