package umbra

// HitShape is a hit-testing region in an entity's local, unrotated
// coordinate space, with (0, 0) at the entity's pivot.
type HitShape interface {
	Contains(x, y float64) bool
}

// --- Built-in HitShape types ---

// HitRect is an axis-aligned rectangular hit area in local coordinates.
type HitRect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r HitRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// HitCircle is a circular hit area in local coordinates.
type HitCircle struct {
	CenterX, CenterY, Radius float64
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c HitCircle) Contains(x, y float64) bool {
	dx := x - c.CenterX
	dy := y - c.CenterY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// HitPolygon is a convex polygon hit area in local coordinates.
// Points must define a convex polygon in either winding order.
type HitPolygon struct {
	Points []Vec2
}

// Contains reports whether (x, y) lies inside a convex polygon using cross-product sign test.
func (p HitPolygon) Contains(x, y float64) bool {
	n := len(p.Points)
	if n < 3 {
		return false
	}

	var positive, negative bool
	for i := 0; i < n; i++ {
		x1 := p.Points[i].X
		y1 := p.Points[i].Y
		j := (i + 1) % n
		x2 := p.Points[j].X
		y2 := p.Points[j].Y

		cross := (x2-x1)*(y-y1) - (y2-y1)*(x-x1)
		if cross > 0 {
			positive = true
		} else if cross < 0 {
			negative = true
		}
		if positive && negative {
			return false
		}
	}
	return true
}

// ShapeKind identifies the collision shape stored on an entity.
type ShapeKind uint8

const (
	ShapeNone    ShapeKind = iota // no collision shape; sprite footprint is used for picking
	ShapeBox                      // axis-aligned box centered on the pivot
	ShapeCircle                   // circle centered on the pivot
	ShapePolygon                  // convex polygon in pivot-relative coordinates
)

// String returns the name used in scene and definition files.
func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeCircle:
		return "circle"
	case ShapePolygon:
		return "polygon"
	default:
		return "none"
	}
}

// ParseShapeKind is the inverse of ShapeKind.String. Unknown names map to ShapeNone.
func ParseShapeKind(s string) ShapeKind {
	switch s {
	case "box":
		return ShapeBox
	case "circle":
		return ShapeCircle
	case "polygon":
		return ShapePolygon
	default:
		return ShapeNone
	}
}

// Shape is the serializable collision shape of an entity. It is stored by
// value so that copying an entity copies its shape.
type Shape struct {
	Kind   ShapeKind `json:"kind" msgpack:"kind"`
	Size   Vec2      `json:"size,omitempty" msgpack:"size,omitempty"`
	Radius float64   `json:"radius,omitempty" msgpack:"radius,omitempty"`
	Points []Vec2    `json:"points,omitempty" msgpack:"points,omitempty"`
}

// HitShape returns the hit-testing implementation for s, or nil for ShapeNone.
func (s Shape) HitShape() HitShape {
	switch s.Kind {
	case ShapeBox:
		return HitRect{X: -s.Size.X / 2, Y: -s.Size.Y / 2, Width: s.Size.X, Height: s.Size.Y}
	case ShapeCircle:
		return HitCircle{Radius: s.Radius}
	case ShapePolygon:
		return HitPolygon{Points: s.Points}
	default:
		return nil
	}
}

// Bounds returns the local bounding rectangle of the shape.
func (s Shape) Bounds() Rect {
	switch s.Kind {
	case ShapeBox:
		return Rect{X: -s.Size.X / 2, Y: -s.Size.Y / 2, Width: s.Size.X, Height: s.Size.Y}
	case ShapeCircle:
		return Rect{X: -s.Radius, Y: -s.Radius, Width: 2 * s.Radius, Height: 2 * s.Radius}
	case ShapePolygon:
		if len(s.Points) == 0 {
			return Rect{}
		}
		minX, minY := s.Points[0].X, s.Points[0].Y
		maxX, maxY := minX, minY
		for _, p := range s.Points[1:] {
			minX, maxX = min(minX, p.X), max(maxX, p.X)
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}
		return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	default:
		return Rect{}
	}
}
