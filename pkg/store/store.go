// Package store persists saved views: named bookmarks of a navigation
// position together with the manual node placement and the pan/zoom state
// at the time of saving.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"onionscope/pkg/onion"
)

// Offset is a per-node drag delta in layout coordinates.
type Offset struct {
	DX float64 `json:"dx" bson:"dx"`
	DY float64 `json:"dy" bson:"dy"`
}

// ViewTransform is the saved pan/zoom state.
type ViewTransform struct {
	Scale float64 `json:"scale" bson:"scale"`
	PanX  float64 `json:"pan_x" bson:"pan_x"`
	PanY  float64 `json:"pan_y" bson:"pan_y"`
}

// View is one saved navigation position.
type View struct {
	ID        string            `json:"id" bson:"_id"`
	Name      string            `json:"name" bson:"name"`
	Project   string            `json:"project" bson:"project"`
	Layer     onion.Layer       `json:"layer" bson:"layer"`
	FocusID   string            `json:"focus_id,omitempty" bson:"focus_id,omitempty"`
	Offsets   map[string]Offset `json:"offsets,omitempty" bson:"offsets,omitempty"`
	Transform ViewTransform     `json:"transform" bson:"transform"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at"`
}

// NewID returns a fresh view id.
func NewID() string { return uuid.NewString() }

// Store persists views. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the view with the given id, or a VIEW_NOT_FOUND error.
	Get(ctx context.Context, id string) (View, error)

	// Put inserts or replaces a view by id.
	Put(ctx context.Context, v View) error

	// List returns all views for a project, newest first. An empty
	// project matches every view.
	List(ctx context.Context, project string) ([]View, error)

	// Delete removes a view. Deleting a missing view is a
	// VIEW_NOT_FOUND error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
