//
//  Copyright 2023 The compat authors
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//  	http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Package privilege switches the effective identity of the process for the
// duration of a scoped context and restores the prior identity on release.
//
// On POSIX systems the effective uid/gid is process wide state, so a Manager
// serializes whole contexts behind a single mutex: Acquire blocks until no
// other context is active. On Windows impersonation is thread local and
// contexts on different threads proceed concurrently.
//
// Nested acquisitions are explicit: an inner identity is entered with
// Context.Nest on the enclosing context, never with a second Acquire, and
// contexts unwind strictly LIFO.
package privilege

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/chevah/compat"
)

// Switcher sets and reports the effective identity on one platform.
type Switcher interface {
	// Current returns the effective identity of the calling thread.
	Current() compat.Identity

	// ProcessDefault returns the identity the process started with.
	ProcessDefault() compat.Identity

	// Switch sets the effective identity. On POSIX it elevates to root first
	// when required, so the switch is always permitted to a root-started
	// process.
	Switch(id compat.Identity) error

	// ThreadLocal is true when Switch only affects the calling thread.
	ThreadLocal() bool
}

// Manager owns the process-wide effective identity state.
type Manager struct {
	sw         Switcher
	opMu       sync.Mutex
	forceReset atomic.Bool
	logger     zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithSwitcher replaces the platform switcher, used by tests.
func WithSwitcher(sw Switcher) Option {
	return func(m *Manager) {
		m.sw = sw
	}
}

// NewManager returns a Manager using the platform switcher.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sw:     newOsSwitcher(),
		logger: compat.Logger("privilege"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetForceReset toggles the global reset mode. When enabled, entering an
// identity equal to the current one actively resets to the process default
// identity instead of doing nothing, guaranteeing a non-impersonated window
// even when nested.
func (m *Manager) SetForceReset(on bool) {
	m.forceReset.Store(on)
}

// ForceReset reports whether global reset mode is enabled.
func (m *Manager) ForceReset() bool {
	return m.forceReset.Load()
}

// Context is a scoped acquisition of an effective identity. It must be
// released on every exit path of the operation that acquired it, and is not
// safe for use from multiple goroutines.
type Context struct {
	mgr       *Manager
	parent    *Context
	restore   compat.Identity
	effective compat.Identity
	switched  bool
	outer     bool
	released  bool
	children  int
}

// Acquire enters an outermost privilege context for id. On POSIX it blocks
// until no other context is active. The calling goroutine is pinned to its
// OS thread until the context is released.
func (m *Manager) Acquire(id compat.Identity) (*Context, error) {
	if !m.sw.ThreadLocal() {
		m.opMu.Lock()
	}

	runtime.LockOSThread()

	ctx, err := m.enter(nil, id)
	if err != nil {
		runtime.UnlockOSThread()

		if !m.sw.ThreadLocal() {
			m.opMu.Unlock()
		}

		return nil, err
	}

	ctx.outer = true

	return ctx, nil
}

// Nest enters an inner privilege context for id on top of c. Nesting the
// identity already in effect is a no-op context, unless global reset mode is
// enabled.
func (c *Context) Nest(id compat.Identity) (*Context, error) {
	if c.released {
		return nil, errors.New("privilege: nest on a released context")
	}

	return c.mgr.enter(c, id)
}

// Effective returns the identity in effect under this context.
func (c *Context) Effective() compat.Identity {
	return c.effective
}

func (m *Manager) enter(parent *Context, id compat.Identity) (*Context, error) {
	cur := m.sw.Current()
	if parent != nil {
		cur = parent.effective
	}

	ctx := &Context{
		mgr:       m,
		parent:    parent,
		restore:   cur,
		effective: cur,
	}

	// Every context, including a no-op one, counts towards its parent's
	// open children so release order stays LIFO.
	entered := func() (*Context, error) {
		if parent != nil {
			parent.children++
		}

		return ctx, nil
	}

	target := id

	if id.SameAs(cur) {
		if !m.forceReset.Load() {
			return entered()
		}

		// Global reset mode: a no-op context becomes an active reset to the
		// process default identity.
		target = m.sw.ProcessDefault()
		if target.SameAs(cur) {
			return entered()
		}
	}

	if err := m.sw.Switch(target); err != nil {
		var adjustErr *AdjustPrivilegeError
		if errors.As(err, &adjustErr) {
			return nil, err
		}

		return nil, compat.NewCompatError(compat.EventImpersonationFailed,
			"Failed to change user to '"+id.Name+"'.").WithDetails(err.Error())
	}

	ctx.switched = true
	ctx.effective = target

	m.logger.Trace().
		Str("user", target.Name).
		Int("uid", target.UID).
		Msg("identity entered")

	return entered()
}

// Release restores the identity recorded when the context was entered.
// Releasing an already released context is a no-op. A restoration failure is
// fatal: the process privilege state is no longer trustworthy and the
// returned FatalRestoreError must be propagated, never downgraded.
func (c *Context) Release() error {
	if c.released {
		return nil
	}

	if c.children != 0 {
		return errors.New("privilege: context released before its nested contexts")
	}

	c.released = true

	var err error

	if c.switched {
		if serr := c.mgr.sw.Switch(c.restore); serr != nil {
			err = &FatalRestoreError{Identity: c.restore, Err: serr}

			c.mgr.logger.Error().
				Str("user", c.restore.Name).
				Err(serr).
				Msg("identity restoration failed, privilege state is inconsistent")
		}
	}

	if c.parent != nil {
		c.parent.children--
	}

	if c.outer {
		runtime.UnlockOSThread()

		if !c.mgr.sw.ThreadLocal() {
			c.mgr.opMu.Unlock()
		}
	}

	return err
}

// FatalRestoreError reports that the prior identity could not be restored on
// context release. The process-wide privilege state is inconsistent.
type FatalRestoreError struct {
	Identity compat.Identity
	Err      error
}

func (e *FatalRestoreError) Error() string {
	return "privilege: fatal: can't restore identity '" + e.Identity.Name + "': " + e.Err.Error()
}

func (e *FatalRestoreError) Unwrap() error {
	return e.Err
}

// AdjustPrivilegeError reports that a named privilege required for the
// operation is not held by the process.
type AdjustPrivilegeError struct {
	Privilege string
	Err       error
}

func (e *AdjustPrivilegeError) Error() string {
	s := "privilege: can't adjust privilege " + e.Privilege
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}

	return s
}

func (e *AdjustPrivilegeError) Unwrap() error {
	return e.Err
}
