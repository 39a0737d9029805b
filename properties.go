package umbra

import "math"

// Scene property limits.
const (
	MaxLightIntensity = 100.0
	MinLightIntensity = 0.0
)

// SceneProperties are the scene-wide rendering parameters persisted with the
// scene file. The Scene owns the only mutable copy; the pass renderer reads a
// value copy each frame.
type SceneProperties struct {
	// Ambient is the ambient light color. Each RGB component is clamped to
	// [0, 1]; alpha is always 1.
	Ambient Color `json:"ambient" msgpack:"ambient"`
	// LightIntensity scales every light contribution. Clamped to [0, 100].
	LightIntensity float64 `json:"light_intensity" msgpack:"light_intensity"`
	// Parallax displaces entities away from the camera center in proportion
	// to their Z. Unclamped; zero disables parallax.
	Parallax float64 `json:"parallax" msgpack:"parallax"`
	// ZAxis is the screen-space direction a unit of Z moves an entity.
	// Unclamped.
	ZAxis Vec2 `json:"z_axis" msgpack:"z_axis"`
}

// DefaultSceneProperties returns the properties of a new, empty scene.
func DefaultSceneProperties() SceneProperties {
	return SceneProperties{
		Ambient:        ColorWhite,
		LightIntensity: 2,
		ZAxis:          Vec2{0, -1},
	}
}

// SetAmbient sets the ambient color, clamping each component to [0, 1].
func (p *SceneProperties) SetAmbient(c Color) {
	p.Ambient = Color{clamp01(c.R), clamp01(c.G), clamp01(c.B), 1}
}

// SetLightIntensity sets the global light intensity, clamped to [0, 100].
func (p *SceneProperties) SetLightIntensity(v float64) {
	p.LightIntensity = clampRange(v, MinLightIntensity, MaxLightIntensity)
}

// SetParallax sets the parallax intensity. The value is not clamped.
func (p *SceneProperties) SetParallax(v float64) {
	p.Parallax = v
}

// SetZAxis sets the z-axis screen direction. The value is not clamped.
func (p *SceneProperties) SetZAxis(v Vec2) {
	p.ZAxis = v
}

// Sanitized returns a copy of p with every clamped field brought into range.
// Values read from files or editor fields pass through here before use.
func (p SceneProperties) Sanitized() SceneProperties {
	out := p
	out.SetAmbient(p.Ambient)
	out.SetLightIntensity(p.LightIntensity)
	return out
}

// View bundles the camera and scene properties needed to map between scene
// positions and screen pixels.
type View struct {
	Camera *Camera
	Props  SceneProperties
}

// Plane projects a scene position onto the screen-space plane in world
// units: Z is applied along Props.ZAxis, then parallax pushes the point away
// from the camera center in proportion to Z.
func (v View) Plane(p Vec3) Vec2 {
	x := p.X + v.Props.ZAxis.X*p.Z
	y := p.Y + v.Props.ZAxis.Y*p.Z
	if v.Props.Parallax != 0 && v.Camera != nil && p.Z != 0 {
		halfW := v.Camera.Viewport.Width / 2
		halfH := v.Camera.Viewport.Height / 2
		if halfW > 0 && halfH > 0 {
			nx := (x - v.Camera.X) / halfW
			ny := (y - v.Camera.Y) / halfH
			x += nx * p.Z * v.Props.Parallax
			y += ny * p.Z * v.Props.Parallax
		}
	}
	return Vec2{x, y}
}

// ToScreen converts a scene position to screen pixels.
func (v View) ToScreen(p Vec3) Vec2 {
	pl := v.Plane(p)
	if v.Camera == nil {
		return pl
	}
	sx, sy := v.Camera.WorldToScreen(pl.X, pl.Y)
	return Vec2{sx, sy}
}

// ScreenToPlane converts screen pixels to a point on the screen-space plane.
func (v View) ScreenToPlane(s Vec2) Vec2 {
	if v.Camera == nil {
		return s
	}
	wx, wy := v.Camera.ScreenToWorld(s.X, s.Y)
	return Vec2{wx, wy}
}

// zoom returns the camera zoom, or 1 without a camera.
func (v View) zoom() float64 {
	if v.Camera == nil || v.Camera.Zoom == 0 {
		return 1
	}
	return v.Camera.Zoom
}

// planeToScreen converts a screen-space plane point to screen pixels.
func (v View) planeToScreen(p Vec2) Vec2 {
	if v.Camera == nil {
		return p
	}
	sx, sy := v.Camera.WorldToScreen(p.X, p.Y)
	return Vec2{sx, sy}
}

// screenRect converts a plane rectangle to the screen rectangle bounding it.
func (v View) screenRect(r Rect) Rect {
	a := v.planeToScreen(Vec2{r.X, r.Y})
	b := v.planeToScreen(Vec2{r.X + r.Width, r.Y + r.Height})
	return Rect{
		X:      min(a.X, b.X),
		Y:      min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// screenHeight returns the camera viewport height, or fallback without a
// camera.
func (v View) screenHeight(fallback float64) float64 {
	if v.Camera != nil && v.Camera.Viewport.Height > 0 {
		return v.Camera.Viewport.Height
	}
	return fallback
}
