package umbra

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Light is a point light attached to an entity.
type Light struct {
	// Offset is the light position relative to the owning entity.
	Offset Vec3 `json:"offset" msgpack:"offset"`
	// Color is the light tint. Alpha is ignored.
	Color Color `json:"color" msgpack:"color"`
	// Range is the distance at which the light's contribution reaches zero.
	Range float64 `json:"range" msgpack:"range"`
	// Intensity multiplies the contribution. Zero is treated as 1.
	Intensity float64 `json:"intensity,omitempty" msgpack:"intensity,omitempty"`
	// CastShadows enables the shadow pass for receivers within range.
	CastShadows bool `json:"cast_shadows" msgpack:"cast_shadows"`
	// Static lights are baked into lightmaps; dynamic lights are evaluated
	// every frame and never baked.
	Static bool `json:"static" msgpack:"static"`
}

// gain returns the effective intensity multiplier.
func (l *Light) gain() float64 {
	if l.Intensity == 0 {
		return 1
	}
	return l.Intensity
}

// sceneLight is a light resolved to its world position for one frame or bake.
type sceneLight struct {
	light *Light
	owner *Entity
	pos   Vec3
}

// attenuation returns the falloff in [0, 1] at distance d.
func (sl sceneLight) attenuation(d float64) float64 {
	r := sl.light.Range
	if r <= 0 || d >= r {
		return 0
	}
	t := 1 - d/r
	return t * t
}

// reaches reports whether the light's range touches the rectangle.
func (sl sceneLight) reaches(r Rect) bool {
	cx := clampRange(sl.pos.X, r.X, r.X+r.Width)
	cy := clampRange(sl.pos.Y, r.Y, r.Y+r.Height)
	return math.Hypot(sl.pos.X-cx, sl.pos.Y-cy) < sl.light.Range
}

// toLocal transforms the light position into the entity's local space:
// translated to the entity's position and rotated by the inverse of its angle.
func (sl sceneLight) toLocal(e *Entity) Vec3 {
	d := sl.pos.Sub(e.pos)
	v := mgl64.Rotate2D(-e.Angle).Mul2x1(mgl64.Vec2{d.X, d.Y})
	return Vec3{v.X(), v.Y(), d.Z}
}
