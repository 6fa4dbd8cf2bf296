// Package cache provides byte-level caching for analysis results. Four
// backends share one interface: in-memory LRU for the serve path, files
// for CLI usage, Redis for shared deployments, and a null cache for
// disabling caching entirely.
//
// Keys are produced by a Keyer so every caller agrees on the composite-key
// scheme; a ScopedKeyer prefixes keys for per-project isolation.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte blobs under string keys with optional TTL.
// A zero TTL means no expiration. Implementations are safe for concurrent
// use.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss;
	// expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. ttl <= 0 stores without expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys for the analysis result kinds.
type Keyer interface {
	// LayerKey keys a layer payload by project root, layer name and focus.
	LayerKey(project, layer, focusID string) string

	// FilesKey keys a module's child-file listing.
	FilesKey(project, modulePath string) string

	// AnnotationKey keys a single file's semantic annotation.
	AnnotationKey(project, filePath string) string
}

// DefaultKeyer hashes key components so keys stay fixed-length and safe
// for any backend regardless of what characters appear in paths.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

func (*DefaultKeyer) LayerKey(project, layer, focusID string) string {
	return hashKey("layer", project, layer, focusID)
}

func (*DefaultKeyer) FilesKey(project, modulePath string) string {
	return hashKey("files", project, modulePath)
}

func (*DefaultKeyer) AnnotationKey(project, filePath string) string {
	return hashKey("annotation", project, filePath)
}

var _ Keyer = (*DefaultKeyer)(nil)
