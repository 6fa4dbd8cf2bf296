package goscan

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"onionscope/pkg/analysis"
	"onionscope/pkg/graph"
	"onionscope/pkg/onion"
)

// Provider is the live-project analysis provider: it scans lazily on the
// first fetch and serves every later fetch from the held snapshot until
// Invalidate drops it (e.g. after a file watcher event).
type Provider struct {
	mu      sync.Mutex
	scanner *Scanner
	snap    *analysis.SnapshotProvider
}

// NewProvider creates a provider scanning the project at root.
func NewProvider(root string, logger *log.Logger) *Provider {
	return &Provider{scanner: NewScanner(root, logger)}
}

// Invalidate drops the held snapshot; the next fetch re-scans.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.snap = nil
	p.mu.Unlock()
}

// Snapshot scans if needed and returns the current snapshot.
func (p *Provider) Snapshot(ctx context.Context) (*analysis.Snapshot, error) {
	sp, err := p.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return sp.Snapshot(), nil
}

func (p *Provider) snapshot(ctx context.Context) (*analysis.SnapshotProvider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.snap == nil {
		snap, err := p.scanner.Scan()
		if err != nil {
			return nil, err
		}
		p.snap = analysis.NewSnapshotProvider(snap)
	}
	return p.snap, nil
}

func (p *Provider) FetchLayerData(ctx context.Context, layer onion.Layer, focusID string) (onion.Payload, error) {
	sp, err := p.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return sp.FetchLayerData(ctx, layer, focusID)
}

func (p *Provider) FetchModuleFiles(ctx context.Context, modulePath string) ([]graph.ModuleFile, error) {
	sp, err := p.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return sp.FetchModuleFiles(ctx, modulePath)
}

func (p *Provider) FetchFileAnnotation(ctx context.Context, filePath string) (graph.Annotation, error) {
	sp, err := p.snapshot(ctx)
	if err != nil {
		return graph.Annotation{}, err
	}
	return sp.FetchFileAnnotation(ctx, filePath)
}

var _ analysis.Provider = (*Provider)(nil)
