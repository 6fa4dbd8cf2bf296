package analysis

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"onionscope/pkg/errors"
	"onionscope/pkg/graph"
	"onionscope/pkg/onion"
)

// Snapshot is the complete analysis result for one project: every layer
// payload plus the per-module file listings and per-file annotations the
// expansion and selection paths need. It is what `onionscope scan` writes
// and the static provider reads.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Root        string    `json:"root"`

	Intent    onion.ProjectIntentData `json:"intent"`
	Domain    graph.Domain            `json:"domain"`
	Processes []onion.Process         `json:"processes,omitempty"`

	// Files maps a module path to its direct children.
	Files map[string][]graph.ModuleFile `json:"files,omitempty"`

	// Symbols maps a module path to its declared symbols.
	Symbols map[string][]onion.Symbol `json:"symbols,omitempty"`

	// Annotations maps a file path to its semantic summary.
	Annotations map[string]graph.Annotation `json:"annotations,omitempty"`
}

// MarshalSnapshot serializes a snapshot with stable indentation, so
// snapshot files diff cleanly between scans.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to marshal snapshot")
	}
	return append(data, '\n'), nil
}

// UnmarshalSnapshot parses a snapshot and normalizes its domain graph.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "malformed snapshot")
	}
	s.Domain.Normalize()
	return &s, nil
}

// WriteSnapshotFile writes a snapshot to path.
func WriteSnapshotFile(path string, s *Snapshot) error {
	data, err := MarshalSnapshot(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to write snapshot to %s", path)
	}
	return nil
}

// ReadSnapshotFile reads a snapshot from path.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "snapshot %s does not exist", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to read snapshot %s", path)
	}
	return UnmarshalSnapshot(data)
}

// =============================================================================
// Snapshot-backed Provider
// =============================================================================

// SnapshotProvider answers every provider call from a materialized
// Snapshot. Both goscan (after scanning) and static (after loading)
// delegate here, so focus filtering behaves identically across providers.
type SnapshotProvider struct {
	snap *Snapshot
}

// NewSnapshotProvider wraps a snapshot.
func NewSnapshotProvider(s *Snapshot) *SnapshotProvider {
	return &SnapshotProvider{snap: s}
}

// Snapshot returns the underlying snapshot.
func (p *SnapshotProvider) Snapshot() *Snapshot { return p.snap }

func (p *SnapshotProvider) FetchLayerData(ctx context.Context, layer onion.Layer, focusID string) (onion.Payload, error) {
	if err := errors.ValidateFocusID(focusID); err != nil {
		return nil, err
	}
	switch layer {
	case onion.LayerProjectIntent:
		return p.snap.Intent, nil
	case onion.LayerBusinessDomain:
		return p.businessDomain(focusID)
	case onion.LayerKeyProcess:
		return p.keyProcesses(focusID), nil
	case onion.LayerImplementation:
		return p.implementation(focusID)
	default:
		return nil, errors.New(errors.ErrCodeInvalidLayer, "unknown layer %d", int(layer))
	}
}

// businessDomain returns the full graph for an empty focus, or the
// neighborhood subgraph of the focused module: the module itself plus
// every node one relationship away.
func (p *SnapshotProvider) businessDomain(focusID string) (onion.Payload, error) {
	if focusID == "" {
		return onion.BusinessDomainData{
			Domains:       p.snap.Domain.Nodes,
			Relationships: p.snap.Domain.Relationships,
		}, nil
	}
	if p.snap.Domain.Node(focusID) == nil {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "module %s not found", focusID)
	}

	keep := map[string]bool{focusID: true}
	var rels []graph.DomainRelationship
	for _, r := range p.snap.Domain.Relationships {
		if r.Touches(focusID) {
			keep[r.Source] = true
			keep[r.Target] = true
			rels = append(rels, r)
		}
	}
	var nodes []graph.DomainNode
	for _, n := range p.snap.Domain.Nodes {
		if keep[n.ID] {
			nodes = append(nodes, n)
		}
	}
	return onion.BusinessDomainData{Domains: nodes, Relationships: rels}, nil
}

func (p *SnapshotProvider) keyProcesses(focusID string) onion.Payload {
	if focusID == "" {
		return onion.KeyProcessData{Processes: p.snap.Processes}
	}
	var out []onion.Process
	for _, proc := range p.snap.Processes {
		for _, step := range proc.Steps {
			if step.Module == focusID {
				out = append(out, proc)
				break
			}
		}
	}
	return onion.KeyProcessData{FocusID: focusID, Processes: out}
}

func (p *SnapshotProvider) implementation(focusID string) (onion.Payload, error) {
	if focusID == "" {
		return onion.ImplementationData{}, nil
	}
	node := p.snap.Domain.Node(focusID)
	if node == nil {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "module %s not found", focusID)
	}
	return onion.ImplementationData{
		FocusID: focusID,
		Files:   p.snap.Files[node.Path],
		Symbols: p.snap.Symbols[node.Path],
	}, nil
}

func (p *SnapshotProvider) FetchModuleFiles(ctx context.Context, modulePath string) ([]graph.ModuleFile, error) {
	if err := errors.ValidateModulePath(modulePath); err != nil {
		return nil, err
	}
	files, ok := p.snap.Files[modulePath]
	if !ok {
		return nil, errors.New(errors.ErrCodeModuleNotFound, "module %s not found", modulePath)
	}
	return files, nil
}

func (p *SnapshotProvider) FetchFileAnnotation(ctx context.Context, filePath string) (graph.Annotation, error) {
	ann, ok := p.snap.Annotations[filePath]
	if !ok {
		return graph.Annotation{}, errors.New(errors.ErrCodeFileNotFound, "no annotation for %s", filePath)
	}
	return ann, nil
}

var _ Provider = (*SnapshotProvider)(nil)
