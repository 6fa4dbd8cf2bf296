package cached

import (
	"context"
	"testing"
	"time"

	"onionscope/pkg/cache"
	"onionscope/pkg/errors"
	"onionscope/pkg/graph"
	"onionscope/pkg/observability"
	"onionscope/pkg/onion"
)

// countingProvider counts calls and serves canned data.
type countingProvider struct {
	layerCalls, fileCalls, annCalls int
	fail                            bool
}

func (p *countingProvider) FetchLayerData(ctx context.Context, layer onion.Layer, focusID string) (onion.Payload, error) {
	p.layerCalls++
	if p.fail {
		return nil, errors.New(errors.ErrCodeFetchFailed, "provider down")
	}
	return onion.KeyProcessData{FocusID: focusID}, nil
}

func (p *countingProvider) FetchModuleFiles(ctx context.Context, modulePath string) ([]graph.ModuleFile, error) {
	p.fileCalls++
	return []graph.ModuleFile{{ID: modulePath + "/a.go", Name: "a.go"}}, nil
}

func (p *countingProvider) FetchFileAnnotation(ctx context.Context, filePath string) (graph.Annotation, error) {
	p.annCalls++
	return graph.Annotation{Path: filePath, Summary: "s"}, nil
}

func newTestProvider(t *testing.T, inner *countingProvider) *Provider {
	t.Helper()
	c, err := cache.NewMemoryCache(64)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return NewProvider(inner, c, nil, "/proj", time.Hour)
}

func TestLayerDataCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{}
	p := newTestProvider(t, inner)

	for i := 0; i < 3; i++ {
		payload, err := p.FetchLayerData(ctx, onion.LayerKeyProcess, "auth")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if payload.(onion.KeyProcessData).FocusID != "auth" {
			t.Errorf("fetch %d payload = %+v", i, payload)
		}
	}
	if inner.layerCalls != 1 {
		t.Errorf("inner calls = %d, want 1: repeats must hit the cache", inner.layerCalls)
	}

	// A different focus is a different key.
	p.FetchLayerData(ctx, onion.LayerKeyProcess, "store")
	if inner.layerCalls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.layerCalls)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{}
	p := newTestProvider(t, inner)

	p.FetchLayerData(ctx, onion.LayerKeyProcess, "")
	if err := p.Invalidate(ctx, onion.LayerKeyProcess, ""); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	p.FetchLayerData(ctx, onion.LayerKeyProcess, "")

	if inner.layerCalls != 2 {
		t.Errorf("inner calls = %d, want 2 after invalidation", inner.layerCalls)
	}
}

func TestErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{fail: true}
	p := newTestProvider(t, inner)

	if _, err := p.FetchLayerData(ctx, onion.LayerKeyProcess, ""); !errors.Is(err, errors.ErrCodeFetchFailed) {
		t.Fatalf("error = %v", err)
	}

	// Provider recovers: the failure must not have been stored.
	inner.fail = false
	payload, err := p.FetchLayerData(ctx, onion.LayerKeyProcess, "")
	if err != nil || payload == nil {
		t.Fatalf("after recovery: payload=%v err=%v", payload, err)
	}
	if inner.layerCalls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.layerCalls)
	}
}

func TestFilesAndAnnotationsCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{}
	p := newTestProvider(t, inner)

	for i := 0; i < 2; i++ {
		files, err := p.FetchModuleFiles(ctx, "internal/auth")
		if err != nil || len(files) != 1 {
			t.Fatalf("files fetch %d: %v %v", i, files, err)
		}
		ann, err := p.FetchFileAnnotation(ctx, "internal/auth/a.go")
		if err != nil || ann.Summary == "" {
			t.Fatalf("annotation fetch %d: %+v %v", i, ann, err)
		}
	}
	if inner.fileCalls != 1 || inner.annCalls != 1 {
		t.Errorf("inner calls = %d files, %d annotations, want 1 each", inner.fileCalls, inner.annCalls)
	}
}

func TestNullCachePassesThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{}
	p := NewProvider(inner, cache.NewNullCache(), nil, "/proj", 0)

	p.FetchLayerData(ctx, onion.LayerProjectIntent, "")
	p.FetchLayerData(ctx, onion.LayerProjectIntent, "")
	if inner.layerCalls != 2 {
		t.Errorf("inner calls = %d, want 2 with the null cache", inner.layerCalls)
	}
}

// hitRecorder captures cache-hit events.
type hitRecorder struct {
	observability.NoopFetchHooks
	hits []string
}

func (r *hitRecorder) OnCacheHit(_ context.Context, key string) {
	r.hits = append(r.hits, key)
}

func TestCacheHitEmitsHook(t *testing.T) {
	rec := &hitRecorder{}
	observability.SetFetchHooks(rec)
	defer observability.Reset()

	ctx := context.Background()
	p := newTestProvider(t, &countingProvider{})

	p.FetchLayerData(ctx, onion.LayerKeyProcess, "auth")
	if len(rec.hits) != 0 {
		t.Fatalf("hits after cold fetch = %v, want none", rec.hits)
	}
	p.FetchLayerData(ctx, onion.LayerKeyProcess, "auth")
	if len(rec.hits) != 1 {
		t.Errorf("hits after warm fetch = %v, want exactly one", rec.hits)
	}
}

// flakyCache fails a set number of Gets with a retryable error before
// delegating to the wrapped cache.
type flakyCache struct {
	cache.Cache
	failures int
}

func (f *flakyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.failures > 0 {
		f.failures--
		return nil, false, cache.Retryable(errors.New(errors.ErrCodeNetwork, "connection reset"))
	}
	return f.Cache.Get(ctx, key)
}

func TestTransientBackendErrorRetried(t *testing.T) {
	ctx := context.Background()
	mem, err := cache.NewMemoryCache(64)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mem.Close() })

	inner := &countingProvider{}
	flaky := &flakyCache{Cache: mem}
	p := NewProvider(inner, flaky, nil, "/proj", time.Hour)

	// Warm the cache, then make the next read fail once transiently.
	p.FetchLayerData(ctx, onion.LayerKeyProcess, "auth")
	flaky.failures = 1

	payload, err := p.FetchLayerData(ctx, onion.LayerKeyProcess, "auth")
	if err != nil {
		t.Fatalf("fetch through flaky cache: %v", err)
	}
	if payload.(onion.KeyProcessData).FocusID != "auth" {
		t.Errorf("payload = %+v", payload)
	}
	if inner.layerCalls != 1 {
		t.Errorf("inner calls = %d, want 1: the retried read must serve the hit", inner.layerCalls)
	}
}

func TestPersistentBackendErrorFallsBackToInner(t *testing.T) {
	ctx := context.Background()
	mem, err := cache.NewMemoryCache(64)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mem.Close() })

	inner := &countingProvider{}
	p := NewProvider(inner, &flakyCache{Cache: mem, failures: 100}, nil, "/proj", time.Hour)

	payload, err := p.FetchLayerData(ctx, onion.LayerKeyProcess, "auth")
	if err != nil || payload == nil {
		t.Fatalf("fetch with broken backend: payload=%v err=%v", payload, err)
	}
	if inner.layerCalls != 1 {
		t.Errorf("inner calls = %d, want 1: a dead cache degrades to pass-through", inner.layerCalls)
	}
}
