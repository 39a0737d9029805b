package umbra

import (
	"math"

	"github.com/jinzhu/copier"
)

// EntityID identifies an entity within a scene.
type EntityID uint32

// NoEntity is the sentinel returned by lookups that find nothing. It is never
// assigned to a live entity.
const NoEntity EntityID = 0

// Kind distinguishes how an entity participates in lighting and lifetime.
type Kind uint8

const (
	KindStatic    Kind = iota // non-moving; receives and contributes baked lighting
	KindDynamic               // relit every frame
	KindTemporary             // expires after Lifetime seconds; never baked
)

// String returns the name used in scene and definition files.
func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindTemporary:
		return "temporary"
	default:
		return "dynamic"
	}
}

// ParseKind is the inverse of Kind.String. Unknown names map to KindDynamic.
func ParseKind(s string) Kind {
	switch s {
	case "static":
		return KindStatic
	case "temporary":
		return KindTemporary
	default:
		return KindDynamic
	}
}

// Animation describes a sprite-sheet frame animation.
type Animation struct {
	Frames int     `json:"frames,omitempty" yaml:"frames" msgpack:"frames,omitempty"`
	FPS    float64 `json:"fps,omitempty" yaml:"fps" msgpack:"fps,omitempty"`
	Loop   bool    `json:"loop,omitempty" yaml:"loop" msgpack:"loop,omitempty"`

	elapsed float64
}

// --- Capabilities ---

// Renderable is implemented by entities that draw a sprite.
type Renderable interface {
	SpritePath() string
	Footprint(v View) Rect
}

// Collidable is implemented by entities with a collision shape.
type Collidable interface {
	CollisionShape() HitShape
}

// LightEmitting is implemented by entities carrying a light.
type LightEmitting interface {
	EmittedLight() *Light
}

// ParticleEmitting is implemented by entities with particle systems.
type ParticleEmitting interface {
	ParticleSystems() []*ParticleSystem
}

// --- Entity ---

// Entity is a placeable scene object. Once added to a BucketManager the
// manager owns it; other holders keep its EntityID and look it up again on
// every use.
type Entity struct {
	id EntityID

	Name     string
	Template string

	pos   Vec3
	Angle float64
	Frame int
	Kind  Kind

	// Render data
	Sprite        string
	Size          Vec2
	Pivot         Vec2
	Color         Color
	Invisible     bool
	HaloSource    bool
	CastShadow    bool
	ReceiveShadow bool
	Animation     Animation

	// Lifetime is the remaining life in seconds of a KindTemporary entity.
	// Zero means no expiry.
	Lifetime float64

	// Attachments
	Light     *Light
	Particles []*ParticleSystem `copier:"-"`
	Shape     Shape

	// Custom holds user key-value data saved with the scene.
	Custom map[string]string

	owner   *BucketManager
	bucket  BucketKey
	deleted bool
}

// NewEntity creates a dynamic entity with default render settings. It is not
// part of any scene until added to a BucketManager.
func NewEntity(name string) *Entity {
	return &Entity{
		Name:          name,
		Kind:          KindDynamic,
		Size:          Vec2{32, 32},
		Pivot:         Vec2{0.5, 0.5},
		Color:         ColorWhite,
		ReceiveShadow: true,
	}
}

// ID returns the entity's ID, or NoEntity if it was never added to a scene.
func (e *Entity) ID() EntityID {
	return e.id
}

// Position returns the entity's scene position.
func (e *Entity) Position() Vec3 {
	return e.pos
}

// Deleted reports whether the entity has been removed from its scene.
func (e *Entity) Deleted() bool {
	return e.deleted
}

// Bucket returns the key of the bucket holding the entity, if it is in one.
func (e *Entity) Bucket() (BucketKey, bool) {
	if e.owner == nil {
		return BucketKey{}, false
	}
	return e.bucket, true
}

// SetPosition moves the entity. When the entity is owned by a BucketManager,
// the bucket membership is updated in the same call.
func (e *Entity) SetPosition(p Vec3) {
	if e.owner != nil {
		e.owner.relocate(e, p)
		return
	}
	e.pos = p
}

// AddToPositionXY offsets the entity in the screen-space plane.
func (e *Entity) AddToPositionXY(d Vec2) {
	e.SetPosition(Vec3{e.pos.X + d.X, e.pos.Y + d.Y, e.pos.Z})
}

// AddToPosition offsets the entity on all three axes.
func (e *Entity) AddToPosition(d Vec3) {
	e.SetPosition(e.pos.Add(d))
}

// IsStatic reports whether the entity is KindStatic.
func (e *Entity) IsStatic() bool {
	return e.Kind == KindStatic
}

// influencesLighting reports whether adding, removing, or re-kinding this
// entity changes baked lighting.
func (e *Entity) influencesLighting() bool {
	return e.Light != nil || e.CastShadow
}

// SpritePath implements Renderable.
func (e *Entity) SpritePath() string {
	return e.Sprite
}

// CollisionShape implements Collidable.
func (e *Entity) CollisionShape() HitShape {
	return e.Shape.HitShape()
}

// EmittedLight implements LightEmitting.
func (e *Entity) EmittedLight() *Light {
	return e.Light
}

// ParticleSystems implements ParticleEmitting.
func (e *Entity) ParticleSystems() []*ParticleSystem {
	return e.Particles
}

// AsRenderable returns the entity as a Renderable if it draws a sprite.
func (e *Entity) AsRenderable() (Renderable, bool) {
	if e.Size.X <= 0 || e.Size.Y <= 0 {
		return nil, false
	}
	return e, true
}

// AsCollidable returns the entity as a Collidable if it has a collision shape.
func (e *Entity) AsCollidable() (Collidable, bool) {
	if e.Shape.Kind == ShapeNone {
		return nil, false
	}
	return e, true
}

// AsLightEmitting returns the entity as a LightEmitting if it carries a light.
func (e *Entity) AsLightEmitting() (LightEmitting, bool) {
	if e.Light == nil {
		return nil, false
	}
	return e, true
}

// AsParticleEmitting returns the entity as a ParticleEmitting if it has
// particle systems.
func (e *Entity) AsParticleEmitting() (ParticleEmitting, bool) {
	if len(e.Particles) == 0 {
		return nil, false
	}
	return e, true
}

// Footprint returns the axis-aligned bounds of the entity's sprite on the
// screen-space plane, accounting for pivot, angle, and the view projection.
func (e *Entity) Footprint(v View) Rect {
	return rotatedBounds(v.Plane(e.pos), e.localRect(), e.Angle)
}

// groundFootprint is Footprint with Z ignored. Lightmaps are baked in this
// space so they do not depend on camera or parallax.
func (e *Entity) groundFootprint() Rect {
	return rotatedBounds(e.pos.XY(), e.localRect(), e.Angle)
}

// reach returns the largest distance from the entity origin to any point of
// its sprite rectangle or collision shape, at any rotation.
func (e *Entity) reach() float64 {
	corner := func(r Rect) float64 {
		x := max(math.Abs(r.X), math.Abs(r.X+r.Width))
		y := max(math.Abs(r.Y), math.Abs(r.Y+r.Height))
		return math.Hypot(x, y)
	}
	return max(corner(e.localRect()), corner(e.Shape.Bounds()))
}

// localRect returns the sprite rectangle relative to the pivot.
func (e *Entity) localRect() Rect {
	return Rect{
		X:      -e.Pivot.X * e.Size.X,
		Y:      -e.Pivot.Y * e.Size.Y,
		Width:  e.Size.X,
		Height: e.Size.Y,
	}
}

// hit reports whether the plane point p lies on the entity. The collision
// shape is used when present, otherwise the sprite rectangle.
func (e *Entity) hit(v View, p Vec2) bool {
	origin := v.Plane(e.pos)
	lx, ly := p.X-origin.X, p.Y-origin.Y
	if e.Angle != 0 {
		sin, cos := math.Sincos(-e.Angle)
		lx, ly = cos*lx-sin*ly, sin*lx+cos*ly
	}
	if c, ok := e.AsCollidable(); ok {
		return c.CollisionShape().Contains(lx, ly)
	}
	r := e.localRect()
	return HitRect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}.Contains(lx, ly)
}

// advance steps time-based state: animation frame and particle simulation.
func (e *Entity) advance(dt float64, v View) {
	a := &e.Animation
	if a.Frames > 1 && a.FPS > 0 {
		a.elapsed += dt
		f := int(a.elapsed * a.FPS)
		if a.Loop {
			f %= a.Frames
		} else if f >= a.Frames {
			f = a.Frames - 1
		}
		e.Frame = f
	}
	if pe, ok := e.AsParticleEmitting(); ok {
		for _, ps := range pe.ParticleSystems() {
			ps.update(dt, v.Plane(e.pos.Add(ps.config.Offset)))
		}
	}
}

// Clone returns a deep copy of the entity's properties. The copy has no ID
// and no owner; particle systems are rebuilt from their configs.
func (e *Entity) Clone() *Entity {
	out := &Entity{}
	if err := copier.CopyWithOption(out, e, copier.Option{DeepCopy: true}); err != nil {
		Logger().Sugar().Warnf("clone entity %d: %v", e.id, err)
	}
	out.id, out.owner, out.bucket, out.deleted = NoEntity, nil, BucketKey{}, false
	out.pos = e.pos
	out.Animation.elapsed = 0
	out.Particles = nil
	for _, ps := range e.Particles {
		out.Particles = append(out.Particles, NewParticleSystem(ps.config))
	}
	return out
}

// adopt replaces e's template-defined properties with p's. Identity,
// placement, name, kind, and custom data are kept.
func (e *Entity) adopt(p *Entity) {
	e.Template = p.Template
	e.Sprite, e.Size, e.Pivot, e.Color = p.Sprite, p.Size, p.Pivot, p.Color
	e.Invisible, e.HaloSource = p.Invisible, p.HaloSource
	e.CastShadow, e.ReceiveShadow = p.CastShadow, p.ReceiveShadow
	e.Animation, e.Frame = p.Animation, 0
	e.Light, e.Shape = p.Light, p.Shape
	e.Particles = p.Particles
}

// rotatedBounds returns the AABB of local rotated by angle and translated to origin.
func rotatedBounds(origin Vec2, local Rect, angle float64) Rect {
	if angle == 0 {
		return Rect{X: origin.X + local.X, Y: origin.Y + local.Y, Width: local.Width, Height: local.Height}
	}
	sin, cos := math.Sincos(angle)
	xs := [4]float64{local.X, local.X + local.Width, local.X + local.Width, local.X}
	ys := [4]float64{local.Y, local.Y, local.Y + local.Height, local.Y + local.Height}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range xs {
		x := cos*xs[i] - sin*ys[i]
		y := sin*xs[i] + cos*ys[i]
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	return Rect{X: origin.X + minX, Y: origin.Y + minY, Width: maxX - minX, Height: maxY - minY}
}
