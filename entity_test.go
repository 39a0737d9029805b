package umbra

import (
	"math"
	"testing"
)

func TestNewEntityDefaults(t *testing.T) {
	e := NewEntity("crate")
	if e.Kind != KindDynamic {
		t.Errorf("Kind = %v, want dynamic", e.Kind)
	}
	if e.ID() != NoEntity {
		t.Errorf("ID = %d before insertion", e.ID())
	}
	if e.Color != ColorWhite || !e.ReceiveShadow {
		t.Error("render defaults not applied")
	}
	if _, ok := e.Bucket(); ok {
		t.Error("unowned entity reports a bucket")
	}
}

func TestKindNames(t *testing.T) {
	for _, k := range []Kind{KindStatic, KindDynamic, KindTemporary} {
		if got := ParseKind(k.String()); got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if ParseKind("bogus") != KindDynamic {
		t.Error("unknown kind should parse as dynamic")
	}
}

func TestCapabilities(t *testing.T) {
	e := NewEntity("plain")
	if _, ok := e.AsRenderable(); !ok {
		t.Error("sized entity is not renderable")
	}
	if _, ok := e.AsCollidable(); ok {
		t.Error("entity without shape is collidable")
	}
	if _, ok := e.AsLightEmitting(); ok {
		t.Error("entity without light emits light")
	}
	if _, ok := e.AsParticleEmitting(); ok {
		t.Error("entity without particles emits particles")
	}

	e.Size = Vec2{}
	e.Shape = Shape{Kind: ShapeBox, Size: Vec2{8, 8}}
	e.Light = &Light{Range: 10}
	e.Particles = []*ParticleSystem{NewParticleSystem(EmitterConfig{})}
	if _, ok := e.AsRenderable(); ok {
		t.Error("zero-size entity is renderable")
	}
	if c, ok := e.AsCollidable(); !ok || c.CollisionShape() == nil {
		t.Error("shaped entity not collidable")
	}
	if le, ok := e.AsLightEmitting(); !ok || le.EmittedLight() != e.Light {
		t.Error("light not exposed")
	}
	if pe, ok := e.AsParticleEmitting(); !ok || len(pe.ParticleSystems()) != 1 {
		t.Error("particles not exposed")
	}
}

func TestCloneIsDeep(t *testing.T) {
	e := NewEntity("torch")
	e.SetPosition(Vec3{1, 2, 3})
	e.Light = &Light{Color: ColorWhite, Range: 100}
	e.Shape = Shape{Kind: ShapePolygon, Points: []Vec2{{0, 0}, {1, 0}, {0, 1}}}
	e.Custom = map[string]string{"k": "v"}
	e.Particles = []*ParticleSystem{NewParticleSystem(EmitterConfig{MaxParticles: 4})}
	m := NewBucketManager(Vec2{})
	m.AddEntity(e)

	c := e.Clone()
	if c.ID() != NoEntity {
		t.Errorf("clone ID = %d, want NoEntity", c.ID())
	}
	if _, ok := c.Bucket(); ok {
		t.Error("clone is owned")
	}
	if c.Position() != e.Position() || c.Name != e.Name {
		t.Error("clone lost properties")
	}

	c.Light.Range = 5
	c.Shape.Points[0] = Vec2{9, 9}
	c.Custom["k"] = "changed"
	if e.Light.Range != 100 {
		t.Error("clone shares the light")
	}
	if e.Shape.Points[0] != (Vec2{0, 0}) {
		t.Error("clone shares shape points")
	}
	if e.Custom["k"] != "v" {
		t.Error("clone shares custom data")
	}
	if len(c.Particles) != 1 || c.Particles[0] == e.Particles[0] {
		t.Error("particle systems not rebuilt")
	}
	if len(c.Particles[0].particles) != 4 {
		t.Error("rebuilt particle system lost its config")
	}

	// The clone can be inserted independently.
	if id := m.AddEntity(c); id == e.ID() {
		t.Error("clone got the original's ID")
	}
}

func TestFootprintPivotAndRotation(t *testing.T) {
	v := View{Props: DefaultSceneProperties()}
	e := NewEntity("box")
	e.Size = Vec2{20, 10}
	e.Pivot = Vec2{0, 1}
	e.SetPosition(Vec3{X: 100, Y: 100})

	r := e.Footprint(v)
	if r != (Rect{X: 100, Y: 90, Width: 20, Height: 10}) {
		t.Errorf("footprint = %+v", r)
	}

	e.Pivot = Vec2{0.5, 0.5}
	e.Angle = math.Pi / 2
	r = e.Footprint(v)
	if !approxEqual(r.Width, 10, 1e-9) || !approxEqual(r.Height, 20, 1e-9) {
		t.Errorf("rotated footprint = %+v, want 10x20", r)
	}
	c := r.Center()
	if !approxEqual(c.X, 100, 1e-9) || !approxEqual(c.Y, 100, 1e-9) {
		t.Errorf("rotated center = %v", c)
	}
}

func TestFootprintFollowsZAxis(t *testing.T) {
	v := View{Props: DefaultSceneProperties()}
	e := NewEntity("lamp")
	e.SetPosition(Vec3{X: 50, Y: 50, Z: 20})
	r := e.Footprint(v)
	if c := r.Center(); c != (Vec2{50, 30}) {
		t.Errorf("center with height = %v, want (50, 30)", c)
	}
	if g := e.groundFootprint().Center(); g != (Vec2{50, 50}) {
		t.Errorf("ground center = %v, want (50, 50)", g)
	}
}

func TestHitRotated(t *testing.T) {
	v := View{Props: DefaultSceneProperties()}
	e := NewEntity("plank")
	e.Size = Vec2{40, 4}
	e.Angle = math.Pi / 2
	if !e.hit(v, Vec2{0, 15}) {
		t.Error("point along rotated long axis missed")
	}
	if e.hit(v, Vec2{15, 0}) {
		t.Error("point along unrotated long axis hit")
	}
}

func TestAnimationAdvance(t *testing.T) {
	v := View{Props: DefaultSceneProperties()}
	e := NewEntity("anim")
	e.Animation = Animation{Frames: 4, FPS: 10, Loop: true}

	e.advance(0.25, v)
	if e.Frame != 2 {
		t.Errorf("frame = %d, want 2", e.Frame)
	}
	e.advance(0.2, v)
	if e.Frame != 0 {
		t.Errorf("looped frame = %d, want 0", e.Frame)
	}

	e.Animation = Animation{Frames: 3, FPS: 10}
	e.advance(5, v)
	if e.Frame != 2 {
		t.Errorf("non-looping frame = %d, want last frame 2", e.Frame)
	}
}

func TestInfluencesLighting(t *testing.T) {
	e := NewEntity("floor")
	if e.influencesLighting() {
		t.Error("plain entity influences lighting")
	}
	e.CastShadow = true
	if !e.influencesLighting() {
		t.Error("shadow caster does not influence lighting")
	}
	e.CastShadow = false
	e.Light = &Light{}
	if !e.influencesLighting() {
		t.Error("light does not influence lighting")
	}
}
