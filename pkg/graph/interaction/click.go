package interaction

import (
	"time"

	"onionscope/pkg/graph"
)

// DefaultDoubleClickWindow is how long a click stays pending before it is
// committed as a single click.
const DefaultDoubleClickWindow = 220 * time.Millisecond

// Clock abstracts wall time so click disambiguation is testable without
// real waits.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// TargetKind identifies what a pointer event landed on.
type TargetKind int

const (
	// TargetNone is empty canvas.
	TargetNone TargetKind = iota
	// TargetModule is a domain module node box.
	TargetModule
	// TargetFile is a child file box beneath an expanded module.
	TargetFile
)

// Target describes the entity under the pointer.
type Target struct {
	Kind     TargetKind
	ID       string           // module id or file id
	ModuleID string           // owning module for file targets
	Path     string           // module path for module targets
	File     graph.ModuleFile // populated for file targets
}

// pendingClick holds the PendingSingle state of the click machine: a first
// click whose single-click action is deferred until the double-click window
// elapses.
type pendingClick struct {
	target   Target
	deadline time.Time
}

// Click feeds a pointer click on target into the disambiguation machine.
//
// The machine has two states: Idle and PendingSingle. A click in Idle defers
// its single action and arms a deadline; a second click on the same target
// before the deadline promotes to a double click and cancels the pending
// single. A click on a different target commits the pending single first,
// then starts over.
//
// Callers must pump Tick so pending singles eventually fire.
func (c *Controller) Click(target Target) {
	now := c.clock.Now()

	if c.pending != nil {
		if c.pending.target.Kind == target.Kind && c.pending.target.ID == target.ID && now.Before(c.pending.deadline) {
			c.pending = nil
			c.fireDouble(target)
			return
		}
		// Different target (or expired without a Tick): the old click can
		// no longer become a double.
		c.commitPending()
	}

	if target.Kind == TargetNone {
		return
	}
	c.pending = &pendingClick{target: target, deadline: now.Add(c.window)}
}

// Tick advances the click machine to now, committing a pending single
// click whose window has elapsed. It returns true if an action fired.
func (c *Controller) Tick(now time.Time) bool {
	if c.pending == nil || now.Before(c.pending.deadline) {
		return false
	}
	c.commitPending()
	return true
}

// NextDeadline reports when Tick next needs to run.
// ok is false when nothing is pending.
func (c *Controller) NextDeadline() (deadline time.Time, ok bool) {
	if c.pending == nil {
		return time.Time{}, false
	}
	return c.pending.deadline, true
}

// commitPending fires the single-click action for the pending target and
// returns the machine to Idle.
func (c *Controller) commitPending() {
	if c.pending == nil {
		return
	}
	target := c.pending.target
	c.pending = nil
	c.fireSingle(target)
}

func (c *Controller) fireSingle(target Target) {
	switch target.Kind {
	case TargetModule:
		c.selected = target.ID
		if c.hooks.OnDomainClick != nil {
			c.hooks.OnDomainClick(target.ID)
		}
	case TargetFile:
		if c.hooks.OnFileClick != nil {
			c.hooks.OnFileClick(target.File, target.ModuleID)
		}
	}
}

// fireDouble runs the double-click action. Double-clicking a module toggles
// its expansion; the resulting fetch, if any, is queued for TakeFileFetches.
func (c *Controller) fireDouble(target Target) {
	switch target.Kind {
	case TargetModule:
		if fetch := c.ToggleExpand(target.ID, target.Path); fetch != nil {
			c.fileFetches = append(c.fileFetches, fetch)
		}
		if c.hooks.OnDomainDoubleClick != nil {
			c.hooks.OnDomainDoubleClick(target.ID, target.Path)
		}
	case TargetFile:
		if c.hooks.OnFileDoubleClick != nil {
			c.hooks.OnFileDoubleClick(target.File, target.ModuleID)
		}
	}
}
