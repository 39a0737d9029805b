package umbra

import (
	"context"
	"errors"
	"testing"
)

func TestNewPassRendererFallsBackToVertex(t *testing.T) {
	b := newRecordingBackend()
	b.caps.PixelShaders = false
	r, err := NewPassRenderer(b, RenderPS)
	if err != nil {
		t.Fatalf("NewPassRenderer: %v", err)
	}
	if r.Mode() != RenderVS {
		t.Errorf("Mode = %v, want vs", r.Mode())
	}
}

func TestNewPassRendererNoLightingPath(t *testing.T) {
	b := newRecordingBackend()
	b.caps = Caps{}
	if _, err := NewPassRenderer(b, RenderPS); !errors.Is(err, ErrNoLightingPath) {
		t.Errorf("err = %v, want ErrNoLightingPath", err)
	}
}

func TestSetModeRespectsCapabilities(t *testing.T) {
	b := newRecordingBackend()
	r, _ := NewPassRenderer(b, RenderVS)
	b.caps.PixelShaders = false
	if err := r.SetMode(RenderPS); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if r.Mode() != RenderVS {
		t.Errorf("Mode = %v, want vs", r.Mode())
	}
}

func TestAmbientClampedAtRender(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	s.AddEntity(sprite("a", 400, 300))

	v := s.View()
	v.Props.Ambient = Color{1.5, 0.5, -1, 1}
	s.Renderer().Render(s.Visible(), v, nil)

	amb := b.sprites(ShaderAmbientPS)
	if len(amb) != 1 {
		t.Fatalf("ambient draws = %d, want 1", len(amb))
	}
	got := amb[0].consts["ambient"]
	want := []float32{1, 0.5, 0}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("ambient constant = %v, want %v", got, want)
	}
}

func TestAmbientVertexPathUsesCornerColors(t *testing.T) {
	s, b := testRenderer(t, RenderVS)
	s.AddEntity(sprite("a", 400, 300))
	s.SetAmbient(Color{0.5, 0.25, 1, 1})
	s.Frame(0)

	amb := b.sprites(ShaderAmbientVS)
	if len(amb) != 1 {
		t.Fatalf("ambient draws = %d, want 1", len(amb))
	}
	c := amb[0].sprite.Colors[0]
	if c.R != 0.5 || c.G != 0.25 || c.B != 1 || c.A != 1 {
		t.Errorf("corner color = %+v", c)
	}
}

func TestLightPassBlendRestored(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	l := sprite("lamp", 400, 300)
	l.Light = &Light{Color: ColorWhite, Range: 200}
	s.AddEntity(l)
	s.AddEntity(sprite("crate", 450, 300))

	st := s.Frame(0)
	if st.LightDraws != 2 {
		t.Errorf("LightDraws = %d, want 2", st.LightDraws)
	}
	if b.BlendMode() != BlendNormal {
		t.Errorf("blend after frame = %v, want BlendNormal", b.BlendMode())
	}
	for _, c := range b.sprites(ShaderLightPS) {
		if c.blend != BlendAdd {
			t.Errorf("light draw blend = %v, want BlendAdd", c.blend)
		}
	}
	for _, c := range b.sprites(ShaderAmbientPS) {
		if c.blend != BlendNormal {
			t.Errorf("ambient draw blend = %v, want BlendNormal", c.blend)
		}
	}
}

func TestLightPassConstantsInEntitySpace(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	l := sprite("lamp", 400, 300)
	l.Invisible = true
	l.Light = &Light{Color: Color{1, 0.5, 0, 1}, Range: 200, Intensity: 1}
	s.AddEntity(l)
	s.AddEntity(sprite("crate", 450, 300))
	s.Frame(0)

	lights := b.sprites(ShaderLightPS)
	if len(lights) != 1 {
		t.Fatalf("light draws = %d, want 1", len(lights))
	}
	c := lights[0].consts
	if p := c["light_pos"]; len(p) != 3 || p[0] != -50 || p[1] != 0 || p[2] != 0 {
		t.Errorf("light_pos = %v, want [-50 0 0]", p)
	}
	if r := c["light_range"]; len(r) != 1 || r[0] != 200 {
		t.Errorf("light_range = %v, want [200]", r)
	}
	// Intensity 1 times the default global intensity 2.
	if g := c["light_intensity"]; len(g) != 1 || g[0] != 2 {
		t.Errorf("light_intensity = %v, want [2]", g)
	}
}

func TestVertexLightAttenuatesPerCorner(t *testing.T) {
	s, b := testRenderer(t, RenderVS)
	l := sprite("lamp", 300, 300)
	l.Invisible = true
	l.Light = &Light{Color: ColorWhite, Range: 200}
	s.AddEntity(l)
	s.AddEntity(sprite("crate", 400, 300))
	s.Frame(0)

	lights := b.sprites(ShaderLightVS)
	if len(lights) != 1 {
		t.Fatalf("light draws = %d, want 1", len(lights))
	}
	cs := lights[0].sprite.Colors
	// Left corners are nearer the light than right corners.
	if cs[0].R <= cs[1].R || cs[3].R <= cs[2].R {
		t.Errorf("corner colors not attenuated toward the light: %+v", cs)
	}
}

func TestMissingSpriteDrawsPlaceholder(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	b.missing["ghost.png"] = true
	s.AddEntity(sprite("ghost", 400, 300))

	for range 2 {
		b.reset()
		st := s.Frame(0)
		if st.Placeholders != 1 || st.AmbientDraws != 0 {
			t.Errorf("stats = %+v, want one placeholder", st)
		}
		if n := b.count("rect"); n != 1 {
			t.Errorf("rect draws = %d, want 1", n)
		}
		if n := b.count("line"); n != 2 {
			t.Errorf("line draws = %d, want 2", n)
		}
	}
	for _, c := range b.calls {
		if c.op == "rect" && c.color != placeholderColor {
			t.Errorf("placeholder color = %+v", c.color)
		}
	}
}

func ambientOrder(b *recordingBackend, k ShaderKind) []string {
	var out []string
	for _, c := range b.sprites(k) {
		out = append(out, c.sprite.Path)
	}
	return out
}

func TestDepthOrderLowerOnScreenDrawsLater(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	// Same bucket, so visible order is insertion order: front first.
	s.AddEntity(sprite("front", 400, 240))
	s.AddEntity(sprite("back", 410, 10))
	s.Frame(0)

	got := ambientOrder(b, ShaderAmbientPS)
	if len(got) != 2 || got[0] != "back.png" || got[1] != "front.png" {
		t.Errorf("draw order = %v, want [back.png front.png]", got)
	}
}

func TestEqualDepthKeepsVisibleOrder(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	names := []string{"a", "b", "c", "d", "e"}
	for i, n := range names {
		s.AddEntity(sprite(n, 300+float64(i)*10, 300))
	}
	s.Frame(0)

	got := ambientOrder(b, ShaderAmbientPS)
	for i, n := range names {
		if got[i] != n+".png" {
			t.Fatalf("draw order = %v, want visible order", got)
		}
	}
}

func TestHeightDrawsInFront(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	tall := sprite("tall", 400, 300)
	tall.SetPosition(Vec3{400, 300, 50})
	s.AddEntity(tall)
	s.AddEntity(sprite("flat", 405, 300))
	s.Frame(0)

	got := ambientOrder(b, ShaderAmbientPS)
	if len(got) != 2 || got[1] != "tall.png" {
		t.Errorf("draw order = %v, want tall.png last", got)
	}
}

func TestDepthClamped(t *testing.T) {
	v := View{Camera: identityCamera(), Props: DefaultSceneProperties()}
	far := sprite("far", 400, -10000)
	near := sprite("near", 400, 10000)
	if d := depthFor(far, v, 600); d != MinDepth {
		t.Errorf("far depth = %v, want %v", d, MinDepth)
	}
	if d := depthFor(near, v, 600); d != MaxDepth {
		t.Errorf("near depth = %v, want %v", d, MaxDepth)
	}
}

func TestShadowPassBeforeAmbient(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	l := sprite("lamp", 400, 300)
	l.Invisible = true
	l.Light = &Light{Color: ColorWhite, Range: 200, CastShadows: true}
	s.AddEntity(l)
	c := sprite("pillar", 450, 300)
	c.CastShadow = true
	s.AddEntity(c)

	st := s.Frame(0)
	if st.ShadowDraws != 1 {
		t.Fatalf("ShadowDraws = %d, want 1", st.ShadowDraws)
	}
	shadowAt, ambientAt := -1, -1
	for i, call := range b.calls {
		if call.op != "sprite" || !call.bound {
			continue
		}
		switch call.shader {
		case ShaderShadow:
			shadowAt = i
			if a := call.sprite.Colors[0].A; !approxEqual(a, 0.5625, 1e-9) {
				t.Errorf("shadow alpha = %v, want 0.5625", a)
			}
		case ShaderAmbientPS:
			ambientAt = i
		}
	}
	if shadowAt < 0 || ambientAt < 0 || shadowAt > ambientAt {
		t.Errorf("shadow draw at %d, ambient at %d; want shadow first", shadowAt, ambientAt)
	}
}

func TestNoShadowFromOwnLight(t *testing.T) {
	s, _ := testRenderer(t, RenderPS)
	e := sprite("torch", 400, 300)
	e.CastShadow = true
	e.Light = &Light{Color: ColorWhite, Range: 200, CastShadows: true}
	s.AddEntity(e)
	if st := s.Frame(0); st.ShadowDraws != 0 {
		t.Errorf("ShadowDraws = %d, want 0", st.ShadowDraws)
	}
}

func TestPixelShaderFailureFallsBackToVertex(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	b.failShader[ShaderAmbientPS] = true
	s.AddEntity(sprite("a", 400, 300))
	st := s.Frame(0)

	if s.Renderer().Mode() != RenderVS {
		t.Errorf("Mode = %v, want vs after pixel shader failure", s.Renderer().Mode())
	}
	if st.AmbientDraws != 1 || len(b.sprites(ShaderAmbientVS)) != 1 {
		t.Errorf("ambient not drawn with vertex shader: %+v", st)
	}
}

func TestInvisibleEntityOutlineOnlyWhenShown(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	e := sprite("trigger", 400, 300)
	e.Invisible = true
	e.Shape = Shape{Kind: ShapeBox, Size: Vec2{20, 20}}
	s.AddEntity(e)

	s.Frame(0)
	if len(b.calls) != 0 {
		t.Errorf("hidden invisible entity drew %d calls", len(b.calls))
	}

	s.Prefs.ShowInvisible = true
	b.reset()
	s.Frame(0)
	if n := b.count("line"); n != 4 {
		t.Errorf("outline lines = %d, want 4", n)
	}
	for _, c := range b.calls {
		if c.op == "line" && c.color != collisionColor {
			t.Errorf("outline color = %+v", c.color)
		}
	}
}

func TestHaloSourceDrawnWhenInvisible(t *testing.T) {
	s, _ := testRenderer(t, RenderPS)
	e := sprite("halo", 400, 300)
	e.Invisible = true
	e.HaloSource = true
	s.AddEntity(e)
	if st := s.Frame(0); st.AmbientDraws != 1 {
		t.Errorf("AmbientDraws = %d, want 1", st.AmbientDraws)
	}
}

func TestBakedReceiverSkipsStaticLights(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	s.AddEntity(staticLight("torch", 400, 300, 200))
	floor := sprite("floor", 450, 300)
	floor.Kind = KindStatic
	s.AddEntity(floor)
	if _, err := s.GenerateLightmaps(context.Background(), AllEntities); err != nil {
		t.Fatalf("GenerateLightmaps: %v", err)
	}

	b.reset()
	st := s.Frame(0)
	if st.LightDraws != 0 {
		t.Errorf("LightDraws = %d, want 0 for baked receivers", st.LightDraws)
	}
	if st.LightmapDraws != 2 {
		t.Errorf("LightmapDraws = %d, want 2", st.LightmapDraws)
	}
	for _, c := range b.calls {
		if c.op == "lightmap" {
			if c.blend != BlendAdd {
				t.Errorf("lightmap blend = %v, want BlendAdd", c.blend)
			}
			if c.lm.Intensity != s.Properties().LightIntensity {
				t.Errorf("lightmap intensity = %v", c.lm.Intensity)
			}
		}
	}
	if b.BlendMode() != BlendNormal {
		t.Errorf("blend after frame = %v, want BlendNormal", b.BlendMode())
	}

	// A dynamic light still lights the baked floor.
	d := sprite("lantern", 460, 300)
	d.Invisible = true
	d.Light = &Light{Color: ColorWhite, Range: 100}
	s.AddEntity(d)
	b.reset()
	if st := s.Frame(0); st.LightDraws == 0 {
		t.Error("dynamic light not applied to baked receiver")
	}
}

func TestLightmapsDisabledRendersLive(t *testing.T) {
	s, _ := testRenderer(t, RenderPS)
	s.AddEntity(staticLight("torch", 400, 300, 200))
	floor := sprite("floor", 450, 300)
	floor.Kind = KindStatic
	s.AddEntity(floor)
	if _, err := s.GenerateLightmaps(context.Background(), AllEntities); err != nil {
		t.Fatal(err)
	}
	s.Prefs.LightmapsEnabled = false
	st := s.Frame(0)
	if st.LightmapDraws != 0 || st.LightDraws != 2 {
		t.Errorf("stats = %+v, want live lighting only", st)
	}
}

func TestParticlesDrawn(t *testing.T) {
	s, b := testRenderer(t, RenderPS)
	e := sprite("fire", 400, 300)
	e.Particles = []*ParticleSystem{NewParticleSystem(EmitterConfig{
		Sprite:     "spark.png",
		Size:       Vec2{4, 4},
		EmitRate:   10,
		StartScale: Range{1, 1},
		EndScale:   Range{1, 1},
		StartAlpha: Range{1, 1},
		EndAlpha:   Range{1, 1},
		Additive:   true,
	})}
	s.AddEntity(e)

	st := s.Frame(1)
	if st.ParticleDraws != 10 {
		t.Errorf("ParticleDraws = %d, want 10", st.ParticleDraws)
	}
	for _, c := range b.calls {
		if c.op == "sprite" && c.sprite.Path == "spark.png" && c.blend != BlendAdd {
			t.Errorf("additive particle drawn with %v", c.blend)
		}
	}
	if b.BlendMode() != BlendNormal {
		t.Errorf("blend after frame = %v, want BlendNormal", b.BlendMode())
	}
}

func TestMergeSortStable(t *testing.T) {
	r := &PassRenderer{}
	depths := []float64{0.5, 0.1, 0.5, 0.3, 0.1, 0.9, 0.5}
	for i, d := range depths {
		r.items = append(r.items, renderItem{key: drawKey{depth: d, order: i}})
	}
	r.mergeSort()
	for i := 1; i < len(r.items); i++ {
		if r.items[i].key.less(r.items[i-1].key) {
			t.Fatalf("items not sorted at %d: %+v", i, r.items)
		}
	}
	if r.items[0].key.order != 1 || r.items[1].key.order != 4 {
		t.Errorf("equal depths reordered: %+v", r.items[:2])
	}
}
