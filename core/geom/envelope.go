package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Envelope is an axis-aligned bounding box in the XY plane.
type Envelope struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// NewEnvelope returns the envelope spanning the given bounds, normalizing
// swapped min/max values.
func NewEnvelope(minX, minY, maxX, maxY float64) Envelope {
	return Envelope{
		MinX: math.Min(minX, maxX),
		MinY: math.Min(minY, maxY),
		MaxX: math.Max(minX, maxX),
		MaxY: math.Max(minY, maxY),
	}
}

// FromBound converts an orb bound.
func FromBound(b orb.Bound) Envelope {
	return Envelope{MinX: b.Min.X(), MinY: b.Min.Y(), MaxX: b.Max.X(), MaxY: b.Max.Y()}
}

// Bound converts the envelope to an orb bound.
func (e Envelope) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{e.MinX, e.MinY}, Max: orb.Point{e.MaxX, e.MaxY}}
}

// Expand grows the envelope outward by tolerance on all four sides.
func (e Envelope) Expand(tolerance float64) Envelope {
	return Envelope{
		MinX: e.MinX - tolerance,
		MinY: e.MinY - tolerance,
		MaxX: e.MaxX + tolerance,
		MaxY: e.MaxY + tolerance,
	}
}

// Intersects reports whether the two envelopes overlap or touch.
func (e Envelope) Intersects(o Envelope) bool {
	return e.MinX <= o.MaxX && e.MinY <= o.MaxY && e.MaxX >= o.MinX && e.MaxY >= o.MinY
}

// Contains reports whether o lies entirely inside e.
func (e Envelope) Contains(o Envelope) bool {
	return e.MinX <= o.MinX && e.MinY <= o.MinY && e.MaxX >= o.MaxX && e.MaxY >= o.MaxY
}

// Union returns the smallest envelope containing both.
func (e Envelope) Union(o Envelope) Envelope {
	return Envelope{
		MinX: math.Min(e.MinX, o.MinX),
		MinY: math.Min(e.MinY, o.MinY),
		MaxX: math.Max(e.MaxX, o.MaxX),
		MaxY: math.Max(e.MaxY, o.MaxY),
	}
}

// Valid reports whether min <= max on both axes and no bound is NaN.
func (e Envelope) Valid() bool {
	return e.MinX <= e.MaxX && e.MinY <= e.MaxY
}

func (e Envelope) String() string {
	return fmt.Sprintf("[%g %g, %g %g]", e.MinX, e.MinY, e.MaxX, e.MaxY)
}
