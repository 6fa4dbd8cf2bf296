// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about navigation, analysis fetches,
// and graph layout.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, which avoids import
// cycles and keeps the core free of observability frameworks.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetNavigationHooks(&myNavHooks{})
//	    observability.SetFetchHooks(&myFetchHooks{})
//	    // ... run application
//	}
//
// Shells call hooks to emit events:
//
//	observability.Navigation().OnDrillDown(ctx, layer, focusID)
//	observability.Fetch().OnFetchComplete(ctx, key, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Navigation Hooks
// =============================================================================

// NavigationHooks receives events from the layer navigator.
type NavigationHooks interface {
	// OnNavigate records any layer change: push, back, or quick-jump.
	OnNavigate(ctx context.Context, layer string, focusID string, stackDepth int)

	// OnDrillDown records a focused forward navigation.
	OnDrillDown(ctx context.Context, layer string, focusID string)

	// OnStaleDiscard records a completion dropped because its key no
	// longer matched an in-flight request.
	OnStaleDiscard(ctx context.Context, key string)
}

// =============================================================================
// Fetch Hooks
// =============================================================================

// FetchHooks receives events from analysis provider calls.
type FetchHooks interface {
	// OnFetchStart records the start of a provider fetch.
	OnFetchStart(ctx context.Context, key string)

	// OnFetchComplete records a finished fetch, successful or not.
	OnFetchComplete(ctx context.Context, key string, duration time.Duration, err error)

	// OnCacheHit records a fetch served from cache.
	OnCacheHit(ctx context.Context, key string)
}

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from graph layout computation.
type LayoutHooks interface {
	// OnLayoutComplete records one layout pass over the domain graph.
	OnLayoutComplete(ctx context.Context, nodeCount, expandedCount int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopNavigationHooks is a no-op implementation of NavigationHooks.
type NoopNavigationHooks struct{}

func (NoopNavigationHooks) OnNavigate(context.Context, string, string, int) {}
func (NoopNavigationHooks) OnDrillDown(context.Context, string, string)     {}
func (NoopNavigationHooks) OnStaleDiscard(context.Context, string)          {}

// NoopFetchHooks is a no-op implementation of FetchHooks.
type NoopFetchHooks struct{}

func (NoopFetchHooks) OnFetchStart(context.Context, string)                          {}
func (NoopFetchHooks) OnFetchComplete(context.Context, string, time.Duration, error) {}
func (NoopFetchHooks) OnCacheHit(context.Context, string)                            {}

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutComplete(context.Context, int, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	navigationHooks NavigationHooks = NoopNavigationHooks{}
	fetchHooks      FetchHooks      = NoopFetchHooks{}
	layoutHooks     LayoutHooks     = NoopLayoutHooks{}
	hooksMu         sync.RWMutex
)

// SetNavigationHooks registers custom navigation hooks.
// This should be called once at application startup.
func SetNavigationHooks(h NavigationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		navigationHooks = h
	}
}

// SetFetchHooks registers custom fetch hooks.
// This should be called once at application startup.
func SetFetchHooks(h FetchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fetchHooks = h
	}
}

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// Navigation returns the registered navigation hooks.
func Navigation() NavigationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return navigationHooks
}

// Fetch returns the registered fetch hooks.
func Fetch() FetchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fetchHooks
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	navigationHooks = NoopNavigationHooks{}
	fetchHooks = NoopFetchHooks{}
	layoutHooks = NoopLayoutHooks{}
}
