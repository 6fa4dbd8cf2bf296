// Package cached wraps any analysis provider with a byte cache, so
// repeated fetches for the same key skip the underlying analysis.
package cached

import (
	"context"
	"encoding/json"
	"time"

	"onionscope/pkg/analysis"
	"onionscope/pkg/cache"
	"onionscope/pkg/graph"
	"onionscope/pkg/observability"
	"onionscope/pkg/onion"
)

// DefaultTTL is how long cached analysis results stay valid.
const DefaultTTL = 15 * time.Minute

// Provider caches another provider's results. Cache failures are treated
// as misses: the inner provider still answers, and a flaky cache backend
// never turns into a fetch failure.
type Provider struct {
	inner   analysis.Provider
	cache   cache.Cache
	keyer   cache.Keyer
	project string
	ttl     time.Duration
}

// NewProvider wraps inner with a cache. The project string namespaces
// keys so one backend can serve several projects; a nil keyer uses the
// default, ttl <= 0 uses DefaultTTL.
func NewProvider(inner analysis.Provider, c cache.Cache, keyer cache.Keyer, project string, ttl time.Duration) *Provider {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{inner: inner, cache: c, keyer: keyer, project: project, ttl: ttl}
}

// getWithRetry reads a key, retrying transient backend errors (network
// hiccups against Redis, say) before giving up and reporting a miss.
func (p *Provider) getWithRetry(ctx context.Context, key string) ([]byte, bool) {
	var (
		data []byte
		hit  bool
	)
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		data, hit, err = p.cache.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, false
	}
	return data, hit
}

func (p *Provider) FetchLayerData(ctx context.Context, layer onion.Layer, focusID string) (onion.Payload, error) {
	key := p.keyer.LayerKey(p.project, layer.String(), focusID)

	if data, hit := p.getWithRetry(ctx, key); hit {
		if payload, err := analysis.UnmarshalPayload(layer, data); err == nil {
			observability.Fetch().OnCacheHit(ctx, key)
			return payload, nil
		}
		// Undecodable entry: drop it and fall through to the inner fetch.
		_ = p.cache.Delete(ctx, key)
	}

	payload, err := p.inner.FetchLayerData(ctx, layer, focusID)
	if err != nil {
		return nil, err
	}
	if data, err := analysis.MarshalPayload(payload); err == nil {
		_ = p.cache.Set(ctx, key, data, p.ttl)
	}
	return payload, nil
}

func (p *Provider) FetchModuleFiles(ctx context.Context, modulePath string) ([]graph.ModuleFile, error) {
	key := p.keyer.FilesKey(p.project, modulePath)

	if data, hit := p.getWithRetry(ctx, key); hit {
		var files []graph.ModuleFile
		if json.Unmarshal(data, &files) == nil {
			observability.Fetch().OnCacheHit(ctx, key)
			return files, nil
		}
		_ = p.cache.Delete(ctx, key)
	}

	files, err := p.inner.FetchModuleFiles(ctx, modulePath)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(files); err == nil {
		_ = p.cache.Set(ctx, key, data, p.ttl)
	}
	return files, nil
}

func (p *Provider) FetchFileAnnotation(ctx context.Context, filePath string) (graph.Annotation, error) {
	key := p.keyer.AnnotationKey(p.project, filePath)

	if data, hit := p.getWithRetry(ctx, key); hit {
		var ann graph.Annotation
		if json.Unmarshal(data, &ann) == nil {
			observability.Fetch().OnCacheHit(ctx, key)
			return ann, nil
		}
		_ = p.cache.Delete(ctx, key)
	}

	ann, err := p.inner.FetchFileAnnotation(ctx, filePath)
	if err != nil {
		return graph.Annotation{}, err
	}
	if data, err := json.Marshal(ann); err == nil {
		_ = p.cache.Set(ctx, key, data, p.ttl)
	}
	return ann, nil
}

// Invalidate drops the cached layer entry for a key, used by Refresh to
// force re-analysis.
func (p *Provider) Invalidate(ctx context.Context, layer onion.Layer, focusID string) error {
	return p.cache.Delete(ctx, p.keyer.LayerKey(p.project, layer.String(), focusID))
}

var _ analysis.Provider = (*Provider)(nil)
