package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	n := NoopNavigationHooks{}
	n.OnNavigate(ctx, "business_domain", "", 2)
	n.OnDrillDown(ctx, "key_process", "auth")
	n.OnStaleDiscard(ctx, "business_domain:auth")

	f := NoopFetchHooks{}
	f.OnFetchStart(ctx, "business_domain")
	f.OnFetchComplete(ctx, "business_domain", time.Second, nil)
	f.OnCacheHit(ctx, "implementation:auth")

	l := NoopLayoutHooks{}
	l.OnLayoutComplete(ctx, 12, 2, time.Millisecond)
}

type testNavHooks struct {
	NoopNavigationHooks
	drills int
}

func (h *testNavHooks) OnDrillDown(ctx context.Context, layer, focusID string) { h.drills++ }

type testFetchHooks struct{ NoopFetchHooks }

type testLayoutHooks struct{ NoopLayoutHooks }

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Navigation().(NoopNavigationHooks); !ok {
		t.Error("Navigation() should return NoopNavigationHooks by default")
	}
	if _, ok := Fetch().(NoopFetchHooks); !ok {
		t.Error("Fetch() should return NoopFetchHooks by default")
	}
	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Layout() should return NoopLayoutHooks by default")
	}

	nav := &testNavHooks{}
	SetNavigationHooks(nav)
	if Navigation() != nav {
		t.Error("SetNavigationHooks should set custom hooks")
	}
	Navigation().OnDrillDown(context.Background(), "key_process", "auth")
	if nav.drills != 1 {
		t.Errorf("drills = %d, want 1", nav.drills)
	}

	fetch := &testFetchHooks{}
	SetFetchHooks(fetch)
	if Fetch() != fetch {
		t.Error("SetFetchHooks should set custom hooks")
	}

	layout := &testLayoutHooks{}
	SetLayoutHooks(layout)
	if Layout() != layout {
		t.Error("SetLayoutHooks should set custom hooks")
	}

	// Nil registrations are ignored.
	SetNavigationHooks(nil)
	if Navigation() != nav {
		t.Error("nil hooks should not replace the registered ones")
	}

	Reset()
	if _, ok := Navigation().(NoopNavigationHooks); !ok {
		t.Error("Reset should restore the no-op hooks")
	}
}
