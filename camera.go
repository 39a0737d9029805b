package umbra

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Camera is the editor view into the scene. X and Y are the plane point shown
// at the viewport center.
type Camera struct {
	X, Y float64
	// Zoom scales plane units to pixels. 1 shows the plane at native size.
	Zoom float64
	// Rotation turns the view clockwise, in radians.
	Rotation float64
	// Viewport is the screen rectangle the camera renders into.
	Viewport Rect

	follow *cameraFollow
	scroll *cameraScroll

	bounds    Rect
	hasBounds bool

	view, inv [6]float64
	stale     bool
}

// cameraFollow chases an entity by ID. The scene resolves the ID each update
// and stops following once it no longer exists.
type cameraFollow struct {
	id     EntityID
	offset Vec2
	lerp   float64
}

// cameraScroll is a ScrollTo animation, one tween per axis.
type cameraScroll struct {
	x, y         *gween.Tween
	xDone, yDone bool
}

// NewCamera returns an unrotated camera at zoom 1 centered on the plane
// origin.
func NewCamera(viewport Rect) *Camera {
	return &Camera{Zoom: 1, Viewport: viewport, stale: true}
}

// Follow keeps the entity id centered, offset by offset. Each update moves
// the camera lerp of the remaining distance; 1 snaps.
func (c *Camera) Follow(id EntityID, offset Vec2, lerp float64) {
	if id == NoEntity {
		c.follow = nil
		return
	}
	c.follow = &cameraFollow{id: id, offset: offset, lerp: clamp01(lerp)}
}

// Unfollow stops following.
func (c *Camera) Unfollow() {
	c.follow = nil
}

// Following returns the followed entity, or NoEntity.
func (c *Camera) Following() EntityID {
	if c.follow == nil {
		return NoEntity
	}
	return c.follow.id
}

// chase moves one follow step toward the plane point p.
func (c *Camera) chase(p Vec2) {
	if c.follow == nil {
		return
	}
	f := c.follow
	c.X += (p.X + f.offset.X - c.X) * f.lerp
	c.Y += (p.Y + f.offset.Y - c.Y) * f.lerp
	c.stale = true
}

// ScrollTo animates the camera to (x, y) over duration seconds.
func (c *Camera) ScrollTo(x, y float64, duration float32, fn ease.TweenFunc) {
	c.scroll = &cameraScroll{
		x: gween.New(float32(c.X), float32(x), duration, fn),
		y: gween.New(float32(c.Y), float32(y), duration, fn),
	}
}

// Scrolling reports whether a ScrollTo animation is running.
func (c *Camera) Scrolling() bool {
	return c.scroll != nil
}

// SetPosition jumps to (x, y) and cancels any scroll. Bounds apply on the
// next Update.
func (c *Camera) SetPosition(x, y float64) {
	c.scroll = nil
	c.X, c.Y = x, y
	c.stale = true
}

// SetBounds keeps the visible area inside r from the next Update on. An area
// smaller than the view is centered instead.
func (c *Camera) SetBounds(r Rect) {
	c.bounds, c.hasBounds = r, true
}

// ClearBounds lets the camera move freely again.
func (c *Camera) ClearBounds() {
	c.hasBounds = false
}

// Bounds returns the clamping rectangle, if one is set.
func (c *Camera) Bounds() (Rect, bool) {
	return c.bounds, c.hasBounds
}

// Update advances the scroll animation by dt seconds and applies bounds.
func (c *Camera) Update(dt float32) {
	if s := c.scroll; s != nil {
		if !s.xDone {
			v, done := s.x.Update(dt)
			c.X, s.xDone = float64(v), done
		}
		if !s.yDone {
			v, done := s.y.Update(dt)
			c.Y, s.yDone = float64(v), done
		}
		if s.xDone && s.yDone {
			c.scroll = nil
		}
		c.stale = true
	}
	if c.hasBounds {
		zoom := c.zoom()
		c.X = clampAxis(c.X, c.bounds.X, c.bounds.Width, c.Viewport.Width/(2*zoom))
		c.Y = clampAxis(c.Y, c.bounds.Y, c.bounds.Height, c.Viewport.Height/(2*zoom))
	}
	// The position fields are public and may have been set directly.
	c.stale = true
}

// clampAxis keeps a view of half-extent half centered on v inside
// [lo, lo+size], or centers it when it does not fit.
func clampAxis(v, lo, size, half float64) float64 {
	if size < 2*half {
		return lo + size/2
	}
	return clampRange(v, lo+half, lo+size-half)
}

func (c *Camera) zoom() float64 {
	if c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

// matrices rebuilds the view transform and its inverse when stale:
// translate to the viewport center, scale by zoom, rotate by -Rotation,
// translate by -(X, Y).
func (c *Camera) matrices() (view, inv [6]float64) {
	if !c.stale {
		return c.view, c.inv
	}
	z := c.zoom()
	sin, cos := math.Sincos(-c.Rotation)
	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	c.view = [6]float64{
		z * cos, z * sin,
		-z * sin, z * cos,
		cx - z*(cos*c.X-sin*c.Y),
		cy - z*(sin*c.X+cos*c.Y),
	}
	c.inv = invertAffine(c.view)
	c.stale = false
	return c.view, c.inv
}

// WorldToScreen maps a plane point to screen pixels.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	m, _ := c.matrices()
	return transformPoint(m, wx, wy)
}

// ScreenToWorld maps screen pixels to a plane point.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	_, inv := c.matrices()
	return transformPoint(inv, sx, sy)
}

// VisibleBounds returns the plane-space AABB of the viewport.
func (c *Camera) VisibleBounds() Rect {
	_, inv := c.matrices()
	vp := c.Viewport
	xs := [4]float64{vp.X, vp.X + vp.Width, vp.X + vp.Width, vp.X}
	ys := [4]float64{vp.Y, vp.Y, vp.Y + vp.Height, vp.Y + vp.Height}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range xs {
		x, y := transformPoint(inv, xs[i], ys[i])
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// MarkDirty forces the view transform to be rebuilt on next use.
func (c *Camera) MarkDirty() {
	c.stale = true
}
