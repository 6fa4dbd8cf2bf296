package interaction

import (
	"onionscope/pkg/graph/layout"
)

// Scale clamps. Zoom never reaches zero or flips negative.
const (
	MinScale = 0.2
	MaxScale = 5.0
)

// Transform is the view transform applied as the outermost transform over
// the laid-out content: screen = layout*Scale + Pan.
type Transform struct {
	Scale float64      `json:"scale"`
	Pan   layout.Point `json:"pan"`
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{Scale: 1}
}

// ToLayout converts a screen-space point to layout space.
func (t Transform) ToLayout(p layout.Point) layout.Point {
	return layout.Point{
		X: (p.X - t.Pan.X) / t.Scale,
		Y: (p.Y - t.Pan.Y) / t.Scale,
	}
}

// ToScreen converts a layout-space point to screen space.
func (t Transform) ToScreen(p layout.Point) layout.Point {
	return layout.Point{
		X: p.X*t.Scale + t.Pan.X,
		Y: p.Y*t.Scale + t.Pan.Y,
	}
}

// ZoomAt scales the view by factor around the given screen-space cursor.
// The zoom is anchor-preserving: the layout point under the cursor maps to
// the same screen pixel before and after. The resulting scale is clamped to
// [MinScale, MaxScale].
func (t Transform) ZoomAt(cursor layout.Point, factor float64) Transform {
	scale := t.Scale * factor
	if scale < MinScale {
		scale = MinScale
	}
	if scale > MaxScale {
		scale = MaxScale
	}

	anchor := t.ToLayout(cursor)
	return Transform{
		Scale: scale,
		Pan: layout.Point{
			X: cursor.X - anchor.X*scale,
			Y: cursor.Y - anchor.Y*scale,
		},
	}
}

// Translated returns the transform shifted by a screen-space delta.
func (t Transform) Translated(dx, dy float64) Transform {
	t.Pan.X += dx
	t.Pan.Y += dy
	return t
}
