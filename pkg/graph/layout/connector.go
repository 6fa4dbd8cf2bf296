package layout

import "math"

// Point is a 2-D coordinate in layout space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a quadratic bezier connector between two node boxes.
type Curve struct {
	Start   Point `json:"start"`
	Control Point `json:"control"`
	End     Point `json:"end"`
}

// curvature scales how far the control point bows away from the straight
// line between the anchors, as a fraction of the perpendicular displacement.
const curvature = 0.25

// Connector computes the quadratic curve joining two node boxes.
//
// The endpoints are anchored to the nearest box edges rather than the box
// centers so connectors do not cross through node bodies. The control point
// sits at the midpoint, offset perpendicular to the dominant axis: for a
// mostly-vertical connector the bow is horizontal, and vice versa.
func Connector(from, to Position) Curve {
	dx := to.CenterX() - from.CenterX()
	dy := to.CenterY() - from.CenterY()

	var start, end Point
	vertical := math.Abs(dy) > math.Abs(dx)
	if vertical {
		if dy >= 0 {
			start = Point{from.CenterX(), from.Y + from.Height}
			end = Point{to.CenterX(), to.Y}
		} else {
			start = Point{from.CenterX(), from.Y}
			end = Point{to.CenterX(), to.Y + to.Height}
		}
	} else {
		if dx >= 0 {
			start = Point{from.X + from.Width, from.CenterY()}
			end = Point{to.X, to.CenterY()}
		} else {
			start = Point{from.X, from.CenterY()}
			end = Point{to.X + to.Width, to.CenterY()}
		}
	}

	mid := Point{(start.X + end.X) / 2, (start.Y + end.Y) / 2}
	control := mid
	if vertical {
		control.X += dx * curvature
	} else {
		control.Y += dy * curvature
	}

	return Curve{Start: start, Control: control, End: end}
}

// At evaluates the curve at parameter t in [0, 1].
func (c Curve) At(t float64) Point {
	u := 1 - t
	return Point{
		X: u*u*c.Start.X + 2*u*t*c.Control.X + t*t*c.End.X,
		Y: u*u*c.Start.Y + 2*u*t*c.Control.Y + t*t*c.End.Y,
	}
}
