// Package static serves analysis data from a snapshot file written by a
// previous scan, with no filesystem access beyond the initial load.
package static

import (
	"onionscope/pkg/analysis"
)

// NewProvider loads the snapshot at path. All fetches are answered from
// the loaded data; failures carry a NOT_FOUND code when the file is
// missing and INVALID_FORMAT when it cannot be parsed.
func NewProvider(path string) (*analysis.SnapshotProvider, error) {
	snap, err := analysis.ReadSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	return analysis.NewSnapshotProvider(snap), nil
}

// NewProviderFromBytes parses a snapshot held in memory, for embedding
// and tests.
func NewProviderFromBytes(data []byte) (*analysis.SnapshotProvider, error) {
	snap, err := analysis.UnmarshalSnapshot(data)
	if err != nil {
		return nil, err
	}
	return analysis.NewSnapshotProvider(snap), nil
}
