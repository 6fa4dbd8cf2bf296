package interaction

import (
	"errors"
	"math"
	"testing"
	"time"

	"onionscope/pkg/graph"
	"onionscope/pkg/graph/layout"
)

// fakeClock is a manually advanced Clock for click-timing tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// recorder counts hook invocations.
type recorder struct {
	domainClicks  []string
	domainDoubles []string
	fileClicks    []string
	fileDoubles   []string
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnDomainClick:       func(id string) { r.domainClicks = append(r.domainClicks, id) },
		OnDomainDoubleClick: func(id, path string) { r.domainDoubles = append(r.domainDoubles, id+":"+path) },
		OnFileClick:         func(f graph.ModuleFile, m string) { r.fileClicks = append(r.fileClicks, f.ID) },
		OnFileDoubleClick:   func(f graph.ModuleFile, m string) { r.fileDoubles = append(r.fileDoubles, f.ID) },
	}
}

func testController(clock Clock, rec *recorder) *Controller {
	opts := []Option{WithClock(clock)}
	if rec != nil {
		opts = append(opts, WithHooks(rec.hooks()))
	}
	c := New(opts...)
	c.SetModules([]graph.DomainNode{
		{ID: "M", Path: "internal/m"},
		{ID: "N", Path: "internal/n"},
	})
	c.SetLayout(map[string]layout.Position{
		"M": {ID: "M", X: 0, Y: 0, Width: 100, Height: 50},
		"N": {ID: "N", X: 200, Y: 0, Width: 100, Height: 50},
	})
	return c
}

// =============================================================================
// View Transform
// =============================================================================

func TestZoomAnchoring(t *testing.T) {
	tr := NewTransform()
	cursor := layout.Point{X: 320, Y: 180}

	before := tr.ToLayout(cursor)
	zoomed := tr.ZoomAt(cursor, 1.7)
	after := zoomed.ToLayout(cursor)

	if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
		t.Errorf("anchor moved: before %v, after %v", before, after)
	}

	// The anchored layout point maps back to the same screen pixel.
	screen := zoomed.ToScreen(before)
	if math.Abs(screen.X-cursor.X) > 1e-9 || math.Abs(screen.Y-cursor.Y) > 1e-9 {
		t.Errorf("anchor screen position = %v, want %v", screen, cursor)
	}
}

func TestZoomClamping(t *testing.T) {
	tr := NewTransform()
	cursor := layout.Point{}

	for i := 0; i < 50; i++ {
		tr = tr.ZoomAt(cursor, 0.5)
	}
	if tr.Scale != MinScale {
		t.Errorf("Scale = %v after repeated zoom out, want %v", tr.Scale, MinScale)
	}
	if tr.Scale <= 0 {
		t.Error("scale must never reach zero or negative")
	}

	for i := 0; i < 50; i++ {
		tr = tr.ZoomAt(cursor, 2)
	}
	if tr.Scale != MaxScale {
		t.Errorf("Scale = %v after repeated zoom in, want %v", tr.Scale, MaxScale)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{Scale: 2.5, Pan: layout.Point{X: -40, Y: 17}}
	p := layout.Point{X: 123, Y: -456}

	back := tr.ToLayout(tr.ToScreen(p))
	if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
		t.Errorf("round trip = %v, want %v", back, p)
	}
}

// =============================================================================
// Click Disambiguation
// =============================================================================

func TestDoubleClickPromotion(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	c := testController(clock, rec)

	target := Target{Kind: TargetModule, ID: "M", Path: "internal/m"}
	c.Click(target)
	clock.advance(150 * time.Millisecond)
	c.Click(target)

	// Window elapsed: a lingering pending single would fire now.
	clock.advance(time.Second)
	c.Tick(clock.Now())

	if len(rec.domainDoubles) != 1 || rec.domainDoubles[0] != "M:internal/m" {
		t.Errorf("domainDoubles = %v, want exactly [M:internal/m]", rec.domainDoubles)
	}
	if len(rec.domainClicks) != 0 {
		t.Errorf("domainClicks = %v, want none", rec.domainClicks)
	}
}

func TestDoubleClickTogglesExpansion(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	c := testController(clock, rec)

	target := Target{Kind: TargetModule, ID: "M", Path: "internal/m"}
	doubleClick := func() {
		c.Click(target)
		clock.advance(50 * time.Millisecond)
		c.Click(target)
	}

	// Expand: a loading entry appears and the fetch is queued for the shell.
	doubleClick()
	if exp, ok := c.Expansion("M"); !ok || !exp.Loading {
		t.Fatalf("after double click: expansion = %+v, ok = %v, want loading entry", exp, ok)
	}
	fetches := c.TakeFileFetches()
	if len(fetches) != 1 || fetches[0].ModuleID != "M" || fetches[0].Path != "internal/m" {
		t.Fatalf("queued fetches = %+v, want exactly one for M", fetches)
	}
	if got := c.TakeFileFetches(); len(got) != 0 {
		t.Errorf("second take = %+v, want drained queue", got)
	}
	c.ResolveFiles("M", []graph.ModuleFile{{ID: "f1"}})

	// Collapse: entry removed, nothing queued.
	clock.advance(time.Second)
	doubleClick()
	if _, ok := c.Expansion("M"); ok {
		t.Fatal("expansion entry must be absent after double-click collapse")
	}
	if got := c.TakeFileFetches(); len(got) != 0 {
		t.Errorf("collapse queued fetches = %+v, want none", got)
	}

	// Re-expand: a fresh fetch, the second of the cycle.
	clock.advance(time.Second)
	doubleClick()
	if got := c.TakeFileFetches(); len(got) != 1 {
		t.Errorf("re-expand queued fetches = %+v, want exactly one", got)
	}
	if len(rec.domainDoubles) != 3 {
		t.Errorf("domainDoubles = %v, want three", rec.domainDoubles)
	}
	if len(rec.domainClicks) != 0 {
		t.Errorf("domainClicks = %v, want none", rec.domainClicks)
	}
}

func TestSingleClickAfterSilence(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	c := testController(clock, rec)

	c.Click(Target{Kind: TargetModule, ID: "M"})

	clock.advance(100 * time.Millisecond)
	if c.Tick(clock.Now()) {
		t.Error("Tick fired before the double-click window elapsed")
	}

	clock.advance(300 * time.Millisecond)
	if !c.Tick(clock.Now()) {
		t.Error("Tick should fire the pending single after the window")
	}

	if len(rec.domainClicks) != 1 || rec.domainClicks[0] != "M" {
		t.Errorf("domainClicks = %v, want exactly [M]", rec.domainClicks)
	}
	if len(rec.domainDoubles) != 0 {
		t.Errorf("domainDoubles = %v, want none", rec.domainDoubles)
	}
}

func TestClickOnDifferentTargetCommitsPending(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	c := testController(clock, rec)

	c.Click(Target{Kind: TargetModule, ID: "M"})
	clock.advance(50 * time.Millisecond)
	c.Click(Target{Kind: TargetModule, ID: "N"})
	clock.advance(time.Second)
	c.Tick(clock.Now())

	if len(rec.domainClicks) != 2 {
		t.Fatalf("domainClicks = %v, want [M N]", rec.domainClicks)
	}
	if rec.domainClicks[0] != "M" || rec.domainClicks[1] != "N" {
		t.Errorf("domainClicks = %v, want [M N]", rec.domainClicks)
	}
	if len(rec.domainDoubles) != 0 {
		t.Errorf("domainDoubles = %v, want none", rec.domainDoubles)
	}
}

func TestFileClickDisambiguation(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	c := testController(clock, rec)

	file := graph.ModuleFile{ID: "f1", Name: "f1.go", Type: graph.FileTypeFile}
	target := Target{Kind: TargetFile, ID: "f1", ModuleID: "M", File: file}

	c.Click(target)
	clock.advance(100 * time.Millisecond)
	c.Click(target)

	if len(rec.fileDoubles) != 1 || len(rec.fileClicks) != 0 {
		t.Errorf("fileDoubles = %v, fileClicks = %v, want one double and no singles",
			rec.fileDoubles, rec.fileClicks)
	}
}

func TestNextDeadline(t *testing.T) {
	clock := newFakeClock()
	c := testController(clock, nil)

	if _, ok := c.NextDeadline(); ok {
		t.Error("NextDeadline should report nothing pending initially")
	}

	c.Click(Target{Kind: TargetModule, ID: "M"})
	deadline, ok := c.NextDeadline()
	if !ok {
		t.Fatal("NextDeadline should report a pending click")
	}
	if want := clock.Now().Add(DefaultDoubleClickWindow); !deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", deadline, want)
	}
}

func TestSingleClickSelects(t *testing.T) {
	clock := newFakeClock()
	c := testController(clock, nil)

	c.Click(Target{Kind: TargetModule, ID: "M"})
	clock.advance(time.Second)
	c.Tick(clock.Now())

	if c.Selected() != "M" {
		t.Errorf("Selected = %q, want M", c.Selected())
	}

	rel := graph.DomainRelationship{Source: "M", Target: "N", Type: graph.RelationImport}
	if !c.IsEmphasized(rel) {
		t.Error("relationship touching the selection should be emphasized")
	}
	other := graph.DomainRelationship{Source: "N", Target: "Q", Type: graph.RelationCall}
	if c.IsEmphasized(other) {
		t.Error("relationship not touching the selection should not be emphasized")
	}
}

// =============================================================================
// Pan and Drag
// =============================================================================

func TestCanvasPan(t *testing.T) {
	c := testController(newFakeClock(), nil)

	c.MouseDown(layout.Point{X: 500, Y: 500}) // empty canvas
	c.MouseMove(layout.Point{X: 530, Y: 480})
	c.MouseMove(layout.Point{X: 560, Y: 460})
	c.MouseUp(layout.Point{X: 560, Y: 460})

	tr := c.Transform()
	if tr.Pan.X != 60 || tr.Pan.Y != -40 {
		t.Errorf("Pan = %v, want {60 -40}", tr.Pan)
	}
}

func TestNodeDragDoesNotPan(t *testing.T) {
	c := testController(newFakeClock(), nil)

	c.MouseDown(layout.Point{X: 50, Y: 25}) // inside M
	c.MouseMove(layout.Point{X: 60, Y: 45})
	c.MouseUp(layout.Point{X: 60, Y: 45})

	if tr := c.Transform(); tr.Pan.X != 0 || tr.Pan.Y != 0 {
		t.Errorf("node drag also panned the canvas: %v", tr.Pan)
	}
	if off := c.Offset("M"); off.X != 10 || off.Y != 20 {
		t.Errorf("Offset(M) = %v, want {10 20}", off)
	}
}

func TestDragPersistsAcrossRelayout(t *testing.T) {
	c := testController(newFakeClock(), nil)

	// Drag M by (10, 20).
	c.MouseDown(layout.Point{X: 50, Y: 25})
	c.MouseMove(layout.Point{X: 60, Y: 45})
	c.MouseUp(layout.Point{X: 60, Y: 45})

	// Re-layout (as if a sibling was expanded): new base for M.
	newBase := map[string]layout.Position{
		"M": {ID: "M", X: 40, Y: 100, Width: 100, Height: 50},
		"N": {ID: "N", X: 240, Y: 100, Width: 100, Height: 50},
	}
	c.SetLayout(newBase)

	got := c.Rendered()["M"]
	if got.X != 50 || got.Y != 120 {
		t.Errorf("Rendered(M) = (%v, %v), want base + (10, 20) = (50, 120)", got.X, got.Y)
	}

	c.ResetLayout()
	got = c.Rendered()["M"]
	if got.X != 40 || got.Y != 100 {
		t.Errorf("after ResetLayout Rendered(M) = (%v, %v), want base (40, 100)", got.X, got.Y)
	}
}

func TestDragUnderZoom(t *testing.T) {
	c := testController(newFakeClock(), nil)
	c.Wheel(layout.Point{}, 0) // no-op
	// Zoom to 2x around origin: screen = layout*2.
	for c.Transform().Scale < 2-1e-9 {
		c.Wheel(layout.Point{}, 1)
		if c.Transform().Scale > 2 {
			break
		}
	}
	scale := c.Transform().Scale

	// M's box in screen space starts at origin scaled; press its center.
	c.MouseDown(layout.Point{X: 50 * scale, Y: 25 * scale})
	c.MouseMove(layout.Point{X: 50*scale + 20, Y: 25 * scale})
	c.MouseUp(layout.Point{X: 50*scale + 20, Y: 25 * scale})

	off := c.Offset("M")
	want := 20 / scale
	if math.Abs(off.X-want) > 1e-9 || math.Abs(off.Y) > 1e-9 {
		t.Errorf("Offset(M) = %v, want {%v 0}: drags are in layout space", off, want)
	}
}

func TestMouseUpWithoutMovementClicks(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	c := testController(clock, rec)

	c.MouseDown(layout.Point{X: 50, Y: 25})
	c.MouseUp(layout.Point{X: 50, Y: 25})
	clock.advance(time.Second)
	c.Tick(clock.Now())

	if len(rec.domainClicks) != 1 || rec.domainClicks[0] != "M" {
		t.Errorf("domainClicks = %v, want [M]", rec.domainClicks)
	}
}

// =============================================================================
// Expansion Lifecycle
// =============================================================================

func TestExpandCollapseIdempotence(t *testing.T) {
	c := testController(newFakeClock(), nil)
	fetches := 0

	// Expand: issues fetch #1.
	if f := c.ToggleExpand("M", "internal/m"); f != nil {
		fetches++
		c.ResolveFiles(f.ModuleID, []graph.ModuleFile{{ID: "f1"}})
	}
	if exp, ok := c.Expansion("M"); !ok || exp.Loading || len(exp.Files) != 1 {
		t.Fatalf("after resolve: expansion = %+v, ok = %v", exp, ok)
	}

	// Collapse: entry removed entirely, no fetch.
	if f := c.ToggleExpand("M", "internal/m"); f != nil {
		t.Fatal("collapse must not issue a fetch")
	}
	if _, ok := c.Expansion("M"); ok {
		t.Fatal("expansion entry must be absent after collapse")
	}

	// Re-expand: issues fetch #2.
	if f := c.ToggleExpand("M", "internal/m"); f != nil {
		fetches++
	}

	if fetches != 2 {
		t.Errorf("fetches = %d, want exactly 2", fetches)
	}
}

func TestToggleWhileLoadingIsNoop(t *testing.T) {
	c := testController(newFakeClock(), nil)

	if f := c.ToggleExpand("M", "internal/m"); f == nil {
		t.Fatal("first toggle should issue a fetch")
	}
	if f := c.ToggleExpand("M", "internal/m"); f != nil {
		t.Error("toggle while loading must be a no-op")
	}
	if exp, ok := c.Expansion("M"); !ok || !exp.Loading {
		t.Error("loading entry must survive a no-op toggle")
	}
}

func TestStaleFileResponseDiscarded(t *testing.T) {
	c := testController(newFakeClock(), nil)

	// A response for a module with no loading entry (collapsed, or cleared
	// by navigation) must be discarded, not resurrect an expansion.
	c.ResolveFiles("M", []graph.ModuleFile{{ID: "zombie"}})
	if _, ok := c.Expansion("M"); ok {
		t.Error("stale response must not create an expansion entry")
	}
	c.FailFiles("M", errors.New("late"))
	if _, ok := c.Expansion("M"); ok {
		t.Error("stale failure must not create an expansion entry")
	}

	// A response arriving after the entry already resolved is also stale.
	c.ToggleExpand("M", "internal/m")
	c.ResolveFiles("M", []graph.ModuleFile{{ID: "f1"}})
	c.ResolveFiles("M", []graph.ModuleFile{{ID: "f1"}, {ID: "f2"}})
	if exp, _ := c.Expansion("M"); len(exp.Files) != 1 {
		t.Errorf("duplicate response replaced a resolved entry: %+v", exp)
	}
}

func TestFailAndRetryExpansion(t *testing.T) {
	c := testController(newFakeClock(), nil)

	c.ToggleExpand("M", "internal/m")
	c.FailFiles("M", errors.New("boom"))

	exp, ok := c.Expansion("M")
	if !ok || exp.Loading || exp.Err == "" {
		t.Fatalf("after failure: expansion = %+v, ok = %v", exp, ok)
	}

	f := c.RetryExpansion("M", "internal/m")
	if f == nil {
		t.Fatal("RetryExpansion should re-issue the fetch")
	}
	c.ResolveFiles("M", []graph.ModuleFile{{ID: "f1"}})

	exp, _ = c.Expansion("M")
	if exp.Err != "" || exp.Loading || len(exp.Files) != 1 {
		t.Errorf("after retry: expansion = %+v", exp)
	}
}

// =============================================================================
// Hit Testing
// =============================================================================

func TestHitTest(t *testing.T) {
	c := testController(newFakeClock(), nil)

	if hit := c.HitTest(layout.Point{X: 50, Y: 25}); hit.Kind != TargetModule || hit.ID != "M" {
		t.Errorf("HitTest inside M = %+v", hit)
	}
	if hit := c.HitTest(layout.Point{X: 50, Y: 500}); hit.Kind != TargetNone {
		t.Errorf("HitTest on empty canvas = %+v, want none", hit)
	}

	// Expand M and install child positions; the file box wins over any
	// module box underneath.
	c.ToggleExpand("M", "internal/m")
	file := graph.ModuleFile{ID: "f1", Name: "f1.go", Type: graph.FileTypeFile}
	c.ResolveFiles("M", []graph.ModuleFile{file})
	c.SetLayout(map[string]layout.Position{
		"M":  {ID: "M", X: 0, Y: 0, Width: 100, Height: 50},
		"f1": {ID: "f1", X: 10, Y: 66, Width: 80, Height: 30},
	})

	hit := c.HitTest(layout.Point{X: 20, Y: 70})
	if hit.Kind != TargetFile || hit.ID != "f1" || hit.ModuleID != "M" {
		t.Errorf("HitTest inside f1 = %+v", hit)
	}
}

func TestHitTestModulePath(t *testing.T) {
	c := testController(newFakeClock(), nil)

	hit := c.HitTest(layout.Point{X: 250, Y: 25})
	if hit.ID != "N" || hit.Path != "internal/n" {
		t.Errorf("HitTest = %+v, want module N with path internal/n", hit)
	}
}
