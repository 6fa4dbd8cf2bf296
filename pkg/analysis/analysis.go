// Package analysis defines the provider interface the navigation core
// fetches its layer data from, plus the snapshot format shared by the
// provider implementations.
//
// Four providers exist: goscan analyzes a local Go project, static serves
// a snapshot file written by a previous scan, remote talks to a serve
// instance over HTTP, and cached wraps any of them with a byte cache.
package analysis

import (
	"context"

	"onionscope/pkg/graph"
	"onionscope/pkg/onion"
)

// Provider supplies the data behind each onion layer. Implementations are
// safe for concurrent use; the navigation core calls them through its
// shell, never directly from event handlers.
type Provider interface {
	// FetchLayerData returns the payload for a layer. The focus id scopes
	// layers below the top level; empty means the project-wide view.
	FetchLayerData(ctx context.Context, layer onion.Layer, focusID string) (onion.Payload, error)

	// FetchModuleFiles lists the children of a module, for node expansion.
	FetchModuleFiles(ctx context.Context, modulePath string) ([]graph.ModuleFile, error)

	// FetchFileAnnotation returns the semantic summary of a single file.
	FetchFileAnnotation(ctx context.Context, filePath string) (graph.Annotation, error)
}
