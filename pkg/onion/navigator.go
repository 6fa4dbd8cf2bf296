package onion

import (
	"context"

	"onionscope/pkg/errors"
	"onionscope/pkg/observability"
)

// StackEntry is one visit in the navigation history. The stack is a literal
// visit history: consecutive entries need not be adjacent layers, and a
// drill-down may point at a shallower layer than the current one.
type StackEntry struct {
	Layer   Layer  `json:"layer"`
	FocusID string `json:"focus_id,omitempty"`
}

// Key returns the cache key this entry reads from.
func (e StackEntry) Key() Key {
	return Key{Layer: e.Layer, FocusID: e.FocusID}
}

// Fetch describes an asynchronous provider call the shell must run. The
// shell feeds the outcome back through Resolve or Fail with the same Key.
type Fetch struct {
	Key Key
}

// Navigator is the onion-layer state machine. It owns the navigation stack
// and the layer cache exclusively; all mutation goes through its methods.
// It is not safe for concurrent use.
//
// Fetching is split between core and shell: navigation operations return a
// *Fetch when provider work is needed (nil when the cache already serves
// the target key, or when an identical fetch is already in flight). The
// single-flight set guarantees at most one fetch per key at a time;
// duplicate requests coalesce onto the pending one.
type Navigator struct {
	stack    []StackEntry
	cache    *LayerCache
	inflight map[Key]struct{}
}

// NewNavigator creates a Navigator positioned at the project-intent layer
// with an empty cache. Call Init to obtain the initial fetch.
func NewNavigator() *Navigator {
	return &Navigator{
		stack:    []StackEntry{{Layer: LayerProjectIntent}},
		cache:    NewLayerCache(),
		inflight: make(map[Key]struct{}),
	}
}

// Init returns the fetch for the initial layer, or nil if its data is
// already present (e.g. a pre-warmed cache).
func (n *Navigator) Init() *Fetch {
	return n.ensureFetch(n.current().Key())
}

// =============================================================================
// View State
// =============================================================================

func (n *Navigator) current() StackEntry {
	return n.stack[len(n.stack)-1]
}

// CurrentLayer returns the layer of the top stack entry.
func (n *Navigator) CurrentLayer() Layer { return n.current().Layer }

// CurrentFocus returns the focus id of the top stack entry; empty for the
// unfocused view of the layer.
func (n *Navigator) CurrentFocus() string { return n.current().FocusID }

// Stack returns a copy of the navigation history, oldest first.
func (n *Navigator) Stack() []StackEntry {
	out := make([]StackEntry, len(n.stack))
	copy(out, n.stack)
	return out
}

// CanGoBack reports whether GoBack would change state.
func (n *Navigator) CanGoBack() bool { return len(n.stack) > 1 }

// CurrentData returns the payload cached for the current (layer, focus),
// or nil while nothing has resolved yet. A pending fetch for the current
// key never exposes another key's payload here: data is looked up strictly
// by the current key.
func (n *Navigator) CurrentData() Payload {
	e, ok := n.cache.Get(n.current().Key())
	if !ok {
		return nil
	}
	return e.Data
}

// focusFor returns the focus id of the most recent visit to layer, or ""
// if the layer was never visited.
func (n *Navigator) focusFor(layer Layer) string {
	for i := len(n.stack) - 1; i >= 0; i-- {
		if n.stack[i].Layer == layer {
			return n.stack[i].FocusID
		}
	}
	return ""
}

// Loading reports whether the layer's current entry has a fetch pending.
func (n *Navigator) Loading(layer Layer) bool {
	e, _ := n.cache.Get(Key{Layer: layer, FocusID: n.focusFor(layer)})
	return e.Loading
}

// Err returns the layer's current fetch error, or "" when none.
func (n *Navigator) Err(layer Layer) string {
	e, _ := n.cache.Get(Key{Layer: layer, FocusID: n.focusFor(layer)})
	return e.Err
}

// Cache exposes the layer cache, for pre-warming and for tests.
func (n *Navigator) Cache() *LayerCache { return n.cache }

// =============================================================================
// Navigation Operations
// =============================================================================

// NavigateToLayer pushes a new unfocused entry for layer. Caches for other
// layers are untouched. An invalid layer is a no-op.
func (n *Navigator) NavigateToLayer(layer Layer) *Fetch {
	if !layer.Valid() {
		return nil
	}
	entry := StackEntry{Layer: layer}
	n.stack = append(n.stack, entry)
	return n.ensureFetch(entry.Key())
}

// DrillDown pushes a focused entry for layer. It is always a deeper
// navigation in history terms, even when layer is shallower than the
// current one. A malformed focus id or invalid layer is a no-op.
func (n *Navigator) DrillDown(layer Layer, focusID string) *Fetch {
	if !layer.Valid() || errors.ValidateFocusID(focusID) != nil {
		return nil
	}
	entry := StackEntry{Layer: layer, FocusID: focusID}
	n.stack = append(n.stack, entry)
	return n.ensureFetch(entry.Key())
}

// GoBack pops the top entry and returns to the previous one. A stack of
// one entry is a no-op. Cached data for the revealed entry is reused; a
// fetch is returned only when it is missing.
func (n *Navigator) GoBack() *Fetch {
	if len(n.stack) <= 1 {
		return nil
	}
	n.stack = n.stack[:len(n.stack)-1]
	return n.ensureFetch(n.current().Key())
}

// QuickJump navigates to layer with breadcrumb semantics: if the layer
// appears in the history, the stack is truncated back to its most recent
// visit (restoring that visit's focus); otherwise a new unfocused entry is
// pushed, exactly like NavigateToLayer.
func (n *Navigator) QuickJump(layer Layer) *Fetch {
	if !layer.Valid() {
		return nil
	}
	for i := len(n.stack) - 1; i >= 0; i-- {
		if n.stack[i].Layer == layer {
			n.stack = n.stack[:i+1]
			return n.ensureFetch(n.current().Key())
		}
	}
	return n.NavigateToLayer(layer)
}

// Refresh force-invalidates the current entry's cache slot and re-fetches
// it. This is also the retry affordance after a fetch failure.
func (n *Navigator) Refresh() *Fetch {
	key := n.current().Key()
	n.cache.Invalidate(key)
	delete(n.inflight, key)
	return n.ensureFetch(key)
}

// ClearError drops the error flag on the layer's current entry, leaving
// its data and every other layer's state untouched.
func (n *Navigator) ClearError(layer Layer) {
	n.cache.clearError(Key{Layer: layer, FocusID: n.focusFor(layer)})
}

// ensureFetch returns a fetch for key unless the cache already holds data
// for it or an identical fetch is in flight.
func (n *Navigator) ensureFetch(key Key) *Fetch {
	if e, ok := n.cache.Get(key); ok && e.Data != nil && !e.Loading {
		return nil
	}
	if _, ok := n.inflight[key]; ok {
		return nil
	}
	n.cache.markLoading(key)
	n.inflight[key] = struct{}{}
	return &Fetch{Key: key}
}

// =============================================================================
// Fetch Completion
// =============================================================================

// Resolve applies a completed fetch. Completions whose key has no
// in-flight record (superseded by Refresh, or never issued) are discarded;
// because data is stored strictly under its own key, a late completion can
// never overwrite the payload rendered for a different focus.
func (n *Navigator) Resolve(key Key, data Payload) {
	if _, ok := n.inflight[key]; !ok {
		observability.Navigation().OnStaleDiscard(context.Background(), key.String())
		return
	}
	delete(n.inflight, key)
	n.cache.resolve(key, data)
}

// Fail records a fetch failure for key. Previously cached data for the key
// survives; only the error flag is set. Stale failures are discarded by
// the same rule as Resolve.
func (n *Navigator) Fail(key Key, err error) {
	if _, ok := n.inflight[key]; !ok {
		observability.Navigation().OnStaleDiscard(context.Background(), key.String())
		return
	}
	delete(n.inflight, key)
	msg := "fetch failed"
	if err != nil {
		msg = err.Error()
	}
	n.cache.fail(key, msg)
}
