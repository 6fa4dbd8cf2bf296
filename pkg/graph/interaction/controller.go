// Package interaction drives pointer input over a laid-out Domain Graph.
//
// The Controller is a state machine independent from the layout engine's
// pure output. It owns the view transform (pan/zoom), per-node drag offsets,
// the expansion map for module child files, the selected node, and the
// click/double-click disambiguation machine. All mutation goes through its
// methods; no external component writes into its maps directly.
//
// The Controller is synchronous and single-owner: asynchronous child-file
// fetches are described by the FileFetch values it hands back, executed by
// the shell, and fed back in through ResolveFiles/FailFiles. Completions
// that no longer match an expansion entry are discarded, so an abandoned
// fetch can never resurrect a collapsed node.
package interaction

import (
	"math"
	"sort"
	"time"

	"onionscope/pkg/graph"
	"onionscope/pkg/graph/layout"
)

// dragThreshold is how far (in screen units) the pointer may travel between
// press and release while still counting as a click.
const dragThreshold = 3.0

// zoomStep is the per-wheel-notch zoom factor.
const zoomStep = 1.1

// Hooks are the graph-specific callbacks fired on user action. The shell
// decides what happens next; the controller only reports that an
// interaction occurred and which entity it targeted.
type Hooks struct {
	OnDomainClick       func(id string)
	OnDomainDoubleClick func(id, path string)
	OnFileClick         func(file graph.ModuleFile, moduleID string)
	OnFileDoubleClick   func(file graph.ModuleFile, moduleID string)
}

// FileFetch describes an asynchronous child-file fetch the shell must run.
// Feed the outcome back via ResolveFiles or FailFiles with the same
// ModuleID.
type FileFetch struct {
	ModuleID string
	Path     string
}

// dragMode tracks what the held pointer is doing. Panning and node dragging
// are mutually exclusive.
type dragMode int

const (
	modeIdle dragMode = iota
	modePanning
	modeDragging
)

// Controller is the graph interaction state machine.
type Controller struct {
	clock  Clock
	window time.Duration
	hooks  Hooks

	transform Transform
	selected  string
	pending   *pendingClick

	// base holds the layout engine's positions; offsets holds per-node
	// user drag deltas. The two are composed at render time and never
	// merged, so a re-layout cannot discard manual placement.
	base    map[string]layout.Position
	offsets map[string]layout.Point

	// fileOwner maps child file ids to their expanded module.
	fileOwner map[string]string

	// modulePaths maps module ids to project paths for callbacks.
	modulePaths map[string]string

	expansions map[string]layout.Expansion

	// fileFetches queues fetches issued by gestures (module double-click)
	// rather than by a direct ToggleExpand call. The shell drains them
	// with TakeFileFetches after feeding input.
	fileFetches []*FileFetch

	mode        dragMode
	dragID      string
	grab        layout.Point
	lastScreen  layout.Point
	pressScreen layout.Point
	pressTarget Target
	moved       bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock, for tests.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithDoubleClickWindow overrides the double-click window.
func WithDoubleClickWindow(d time.Duration) Option {
	return func(c *Controller) { c.window = d }
}

// WithHooks sets the interaction callbacks.
func WithHooks(hooks Hooks) Option {
	return func(c *Controller) { c.hooks = hooks }
}

// New creates a Controller with the identity view transform.
func New(opts ...Option) *Controller {
	c := &Controller{
		clock:       SystemClock(),
		window:      DefaultDoubleClickWindow,
		transform:   NewTransform(),
		offsets:     make(map[string]layout.Point),
		fileOwner:   make(map[string]string),
		modulePaths: make(map[string]string),
		expansions:  make(map[string]layout.Expansion),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLayout installs freshly computed base positions. User offsets and the
// view transform are untouched and survive re-layout.
func (c *Controller) SetLayout(base map[string]layout.Position) {
	c.base = base

	c.fileOwner = make(map[string]string)
	for id, exp := range c.expansions {
		for _, f := range exp.Files {
			c.fileOwner[f.ID] = id
		}
	}
}

// SetModules records the module id→path mapping used to populate click
// targets. Call it alongside SetLayout whenever the node set changes.
func (c *Controller) SetModules(nodes []graph.DomainNode) {
	c.modulePaths = make(map[string]string, len(nodes))
	for _, n := range nodes {
		c.modulePaths[n.ID] = n.Path
	}
}

// Transform returns the current view transform.
func (c *Controller) Transform() Transform { return c.transform }

// Selected returns the currently selected module id, if any.
func (c *Controller) Selected() string { return c.selected }

// Select sets the selected module id.
func (c *Controller) Select(id string) { c.selected = id }

// IsEmphasized reports whether a relationship should be rendered
// highlighted. This is derived from the selection, never stored.
func (c *Controller) IsEmphasized(rel graph.DomainRelationship) bool {
	return rel.Touches(c.selected)
}

// Offset returns the user drag offset for a node id.
func (c *Controller) Offset(id string) layout.Point { return c.offsets[id] }

// ResetLayout clears all user drag offsets.
func (c *Controller) ResetLayout() {
	c.offsets = make(map[string]layout.Point)
}

// ResetView restores the identity view transform.
func (c *Controller) ResetView() {
	c.transform = NewTransform()
}

// Rendered composes base positions with user offsets. Child files inherit
// their parent module's offset so an expansion follows a dragged parent.
func (c *Controller) Rendered() map[string]layout.Position {
	out := make(map[string]layout.Position, len(c.base))
	for id, pos := range c.base {
		off := c.offsets[id]
		if owner, ok := c.fileOwner[id]; ok {
			off = c.offsets[owner]
		}
		pos.X += off.X
		pos.Y += off.Y
		out[id] = pos
	}
	return out
}

// =============================================================================
// Pointer Input
// =============================================================================

// MouseDown begins a pan (empty canvas) or a node drag. Starting a node
// drag swallows the event so the canvas does not also pan.
func (c *Controller) MouseDown(screen layout.Point) {
	c.pressScreen = screen
	c.lastScreen = screen
	c.moved = false
	c.pressTarget = c.HitTest(screen)

	switch c.pressTarget.Kind {
	case TargetModule:
		c.mode = modeDragging
		c.dragID = c.pressTarget.ID
		rendered := c.Rendered()[c.dragID]
		pointer := c.transform.ToLayout(screen)
		c.grab = layout.Point{X: pointer.X - rendered.X, Y: pointer.Y - rendered.Y}
	case TargetFile:
		// Files are click targets only; holding one neither pans nor drags.
		c.mode = modeIdle
	default:
		c.mode = modePanning
	}
}

// MouseMove translates the pan or updates the dragged node's offset.
func (c *Controller) MouseMove(screen layout.Point) {
	if math.Abs(screen.X-c.pressScreen.X) > dragThreshold || math.Abs(screen.Y-c.pressScreen.Y) > dragThreshold {
		c.moved = true
	}

	switch c.mode {
	case modePanning:
		c.transform = c.transform.Translated(screen.X-c.lastScreen.X, screen.Y-c.lastScreen.Y)
		c.lastScreen = screen
	case modeDragging:
		base, ok := c.base[c.dragID]
		if !ok {
			return
		}
		pointer := c.transform.ToLayout(screen)
		c.offsets[c.dragID] = layout.Point{
			X: pointer.X - c.grab.X - base.X,
			Y: pointer.Y - c.grab.Y - base.Y,
		}
	}
}

// MouseUp ends the active pan or drag. A press-release pair that never
// travelled past the drag threshold counts as a click on the pressed
// target and enters the disambiguation machine.
func (c *Controller) MouseUp(screen layout.Point) {
	wasClick := !c.moved
	c.mode = modeIdle
	c.dragID = ""

	if wasClick {
		c.Click(c.pressTarget)
	}
}

// Wheel zooms around the cursor. Positive steps zoom in.
func (c *Controller) Wheel(cursor layout.Point, steps int) {
	if steps == 0 {
		return
	}
	factor := math.Pow(zoomStep, float64(steps))
	c.transform = c.transform.ZoomAt(cursor, factor)
}

// HitTest resolves a screen-space point to the entity under it. Child file
// boxes are drawn above module boxes, so they win ties.
func (c *Controller) HitTest(screen layout.Point) Target {
	p := c.transform.ToLayout(screen)
	rendered := c.Rendered()

	ids := make([]string, 0, len(rendered))
	for id := range rendered {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var hit Target
	for _, id := range ids {
		pos := rendered[id]
		if p.X < pos.X || p.X > pos.X+pos.Width || p.Y < pos.Y || p.Y > pos.Y+pos.Height {
			continue
		}
		if owner, ok := c.fileOwner[id]; ok {
			exp := c.expansions[owner]
			for _, f := range exp.Files {
				if f.ID == id {
					return Target{Kind: TargetFile, ID: id, ModuleID: owner, File: f}
				}
			}
			continue
		}
		if hit.Kind == TargetNone {
			hit = Target{Kind: TargetModule, ID: id, Path: c.modulePaths[id]}
		}
	}
	return hit
}
