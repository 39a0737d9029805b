package umbra

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Depth range handed to the backend. Larger depth draws in front.
const (
	MinDepth = 0.0
	MaxDepth = 1.0
)

// shadowSquash flattens a shadow silhouette along the light direction.
const shadowSquash = 0.5

var (
	placeholderColor = Color{1, 0, 1, 1}
	collisionColor   = Color{0, 1, 1, 0.8}
)

// FrameStats counts the work done by one Render call.
type FrameStats struct {
	Entities      int
	ShadowDraws   int
	AmbientDraws  int
	LightmapDraws int
	LightDraws    int
	ParticleDraws int
	Placeholders  int
}

// drawKey orders entities for drawing: depth first, then visible order.
type drawKey struct {
	depth float64
	order int
}

func (k drawKey) less(o drawKey) bool {
	if k.depth != o.depth {
		return k.depth < o.depth
	}
	return k.order < o.order
}

func (k drawKey) lessOrEqual(o drawKey) bool {
	return !o.less(k)
}

// depthFor maps the entity's ground screen y from [-h, 2h] into
// [MinDepth, MaxDepth] and adds its height, so lower-on-screen and taller
// entities draw in front.
func depthFor(e *Entity, v View, h float64) float64 {
	if h <= 0 {
		h = 1
	}
	minY, maxY := -h, 2*h
	ground := v.ToScreen(Vec3{e.pos.X, e.pos.Y, 0})
	d := (ground.Y - minY) / (maxY - minY)
	d += e.pos.Z * v.zoom() / (maxY - minY)
	return clampRange(MinDepth+d*(MaxDepth-MinDepth), MinDepth, MaxDepth)
}

// drawKeyFor is the draw key of e without a visible-order component.
func drawKeyFor(e *Entity, v View) drawKey {
	return drawKey{depth: depthFor(e, v, v.screenHeight(0))}
}

type renderItem struct {
	e   *Entity
	key drawKey
}

// PassRenderer draws the visible entities of a scene in three passes per
// entity: shadow, ambient, and additive light. It issues calls to a Backend
// and never draws anything itself.
type PassRenderer struct {
	backend Backend
	mode    RenderMode

	// ShowInvisible draws the collision outline of invisible entities.
	ShowInvisible bool

	items   []renderItem
	sortBuf []renderItem
	lights  []sceneLight
	warned  map[string]struct{}
}

// NewPassRenderer creates a renderer using mode when the backend supports it.
// A pixel-shader request falls back to vertex lighting on hardware without
// pixel shaders; ErrNoLightingPath is returned when neither is available.
func NewPassRenderer(b Backend, mode RenderMode) (*PassRenderer, error) {
	caps := b.Capabilities()
	if mode == RenderPS && !caps.PixelShaders {
		Logger().Warn("pixel shaders unsupported, using vertex lighting")
		mode = RenderVS
	}
	if mode == RenderVS && !caps.VertexShaders {
		return nil, fmt.Errorf("vertex lighting: %w", ErrNoLightingPath)
	}
	return &PassRenderer{
		backend: b,
		mode:    mode,
		warned:  make(map[string]struct{}),
	}, nil
}

// Mode returns the lighting model in use, which may be lower than requested.
func (r *PassRenderer) Mode() RenderMode {
	return r.mode
}

// SetMode switches lighting model, subject to the same fallback as
// NewPassRenderer.
func (r *PassRenderer) SetMode(mode RenderMode) error {
	caps := r.backend.Capabilities()
	if mode == RenderPS && !caps.PixelShaders {
		mode = RenderVS
	}
	if mode == RenderVS && !caps.VertexShaders {
		return fmt.Errorf("vertex lighting: %w", ErrNoLightingPath)
	}
	r.mode = mode
	return nil
}

// Backend returns the backend the renderer draws with.
func (r *PassRenderer) Backend() Backend {
	return r.backend
}

// Render draws visible in depth order. maps supplies baked lighting for
// static entities; static lights are not applied live to a static receiver
// that has a baked map.
func (r *PassRenderer) Render(visible []*Entity, v View, maps *LightmapSet) FrameStats {
	var st FrameStats
	v.Props = v.Props.Sanitized()
	h := v.screenHeight(r.backend.ScreenSize().Y)

	r.collectLights(visible)

	r.items = r.items[:0]
	for i, e := range visible {
		r.items = append(r.items, renderItem{e: e, key: drawKey{depth: depthFor(e, v, h), order: i}})
	}
	r.mergeSort()

	for _, it := range r.items {
		st.Entities++
		r.drawEntity(it, v, maps, &st)
	}
	return st
}

// collectLights resolves every light carried by a visible entity to its
// scene position.
func (r *PassRenderer) collectLights(visible []*Entity) {
	r.lights = r.lights[:0]
	for _, e := range visible {
		le, ok := e.AsLightEmitting()
		if !ok {
			continue
		}
		l := le.EmittedLight()
		r.lights = append(r.lights, sceneLight{light: l, owner: e, pos: e.pos.Add(l.Offset)})
	}
}

func (r *PassRenderer) drawEntity(it renderItem, v View, maps *LightmapSet, st *FrameStats) {
	e := it.e
	if e.Invisible && !e.HaloSource {
		if r.ShowInvisible {
			r.drawCollision(e, v)
			st.Placeholders++
		}
		return
	}
	if _, ok := e.AsRenderable(); !ok {
		r.drawParticles(e, v, st)
		return
	}

	lm, baked := maps.Get(e.id)
	baked = baked && e.IsStatic()
	affecting := r.affecting(e, baked)

	// Shadow pass.
	if e.CastShadow {
		for _, sl := range affecting {
			if sl.light.CastShadows && sl.owner != e {
				if r.drawShadow(e, sl, v, it.key.depth) {
					st.ShadowDraws++
				}
			}
		}
	}

	// Ambient pass.
	if r.drawAmbient(e, v, it.key.depth) {
		st.AmbientDraws++
	} else {
		st.Placeholders++
	}
	if baked {
		if r.drawLightmap(e, lm, v, it.key.depth) {
			st.LightmapDraws++
		}
	}

	// Light pass.
	if len(affecting) > 0 {
		st.LightDraws += r.drawLights(e, affecting, v, it.key.depth)
	}

	r.drawParticles(e, v, st)
}

// affecting returns the lights whose range reaches e's ground footprint.
func (r *PassRenderer) affecting(e *Entity, baked bool) []sceneLight {
	var out []sceneLight
	fp := e.groundFootprint()
	for _, sl := range r.lights {
		if baked && sl.light.Static && sl.owner.IsStatic() {
			continue
		}
		if sl.reaches(fp) {
			out = append(out, sl)
		}
	}
	return out
}

func (r *PassRenderer) spriteDraw(e *Entity, v View, depth float64, c Color) SpriteDraw {
	z := v.zoom()
	return SpriteDraw{
		Path:   e.Sprite,
		Pos:    v.ToScreen(e.pos),
		Size:   e.Size.Mul(z),
		Pivot:  e.Pivot,
		Colors: uniColors(c),
		Depth:  depth,
		Angle:  e.Angle,
		Frame:  e.Frame,
	}
}

// bindLighting binds the program for k in the current mode, downgrading
// from pixel to vertex lighting when the pixel program fails.
func (r *PassRenderer) bindLighting(ps, vs ShaderKind) (ShaderKind, error) {
	if r.mode == RenderPS {
		err := r.backend.BindShader(ps)
		if err == nil {
			return ps, nil
		}
		if !errors.Is(err, ErrShaderUnsupported) {
			return ps, err
		}
		Logger().Warn("pixel shader failed, falling back to vertex lighting",
			zap.Stringer("shader", ps), zap.Error(err))
		r.mode = RenderVS
	}
	return vs, r.backend.BindShader(vs)
}

func (r *PassRenderer) drawAmbient(e *Entity, v View, depth float64) bool {
	amb := v.Props.Ambient
	kind, err := r.bindLighting(ShaderAmbientPS, ShaderAmbientVS)
	if err != nil {
		r.warnOnce("shader:"+kind.String(), "ambient shader unavailable", err)
	} else {
		defer r.backend.UnbindShader()
		r.backend.SetConstant("ambient", float32(amb.R), float32(amb.G), float32(amb.B))
	}

	c := e.Color
	if kind == ShaderAmbientVS || err != nil {
		// Vertex path: ambient is baked into the corner colors.
		c = Color{c.R * amb.R, c.G * amb.G, c.B * amb.B, c.A}
	}
	d := r.spriteDraw(e, v, depth, c)
	if err := r.backend.DrawSprite(d); err != nil {
		r.warnOnce(e.Sprite, "sprite missing, drawing placeholder", err)
		r.drawPlaceholder(e, v)
		return false
	}
	return true
}

func (r *PassRenderer) drawLightmap(e *Entity, lm *Lightmap, v View, depth float64) bool {
	prev := r.backend.BlendMode()
	r.backend.SetBlendMode(BlendAdd)
	defer r.backend.SetBlendMode(prev)

	err := r.backend.DrawLightmap(LightmapDraw{
		Map:       lm,
		Pos:       v.ToScreen(e.pos),
		Size:      e.Size.Mul(v.zoom()),
		Pivot:     e.Pivot,
		Depth:     depth,
		Angle:     e.Angle,
		Intensity: v.Props.LightIntensity,
	})
	if err != nil {
		r.warnOnce(fmt.Sprintf("lightmap:%d", e.id), "lightmap draw failed", err)
		return false
	}
	return true
}

// drawLights runs the additive pass for every light in ls. The caller's
// blend mode is restored on return.
func (r *PassRenderer) drawLights(e *Entity, ls []sceneLight, v View, depth float64) int {
	prev := r.backend.BlendMode()
	r.backend.SetBlendMode(BlendAdd)
	defer r.backend.SetBlendMode(prev)

	n := 0
	for _, sl := range ls {
		if r.drawLight(e, sl, v, depth) {
			n++
		}
	}
	return n
}

func (r *PassRenderer) drawLight(e *Entity, sl sceneLight, v View, depth float64) bool {
	kind, err := r.bindLighting(ShaderLightPS, ShaderLightVS)
	if err != nil {
		r.warnOnce("shader:"+kind.String(), "light shader unavailable", err)
		return false
	}
	defer r.backend.UnbindShader()

	gain := sl.light.gain() * v.Props.LightIntensity
	col := sl.light.Color
	d := r.spriteDraw(e, v, depth, e.Color)

	if kind == ShaderLightPS {
		local := sl.toLocal(e)
		r.backend.SetConstant("light_pos", float32(local.X), float32(local.Y), float32(local.Z))
		r.backend.SetConstant("light_range", float32(sl.light.Range))
		r.backend.SetConstant("light_color", float32(col.R), float32(col.G), float32(col.B))
		r.backend.SetConstant("light_intensity", float32(gain))
		r.backend.SetConstant("zoom", float32(v.zoom()))
	} else {
		d.Colors = vertexLight(e, sl, gain)
	}

	if err := r.backend.DrawSprite(d); err != nil {
		// Ambient pass already drew the placeholder.
		return false
	}
	return true
}

// vertexLight evaluates the light at the four sprite corners, clockwise from
// top-left, in scene space.
func vertexLight(e *Entity, sl sceneLight, gain float64) [4]Color {
	lr := e.localRect()
	xs := [4]float64{lr.X, lr.X + lr.Width, lr.X + lr.Width, lr.X}
	ys := [4]float64{lr.Y, lr.Y, lr.Y + lr.Height, lr.Y + lr.Height}
	sin, cos := math.Sincos(e.Angle)
	var out [4]Color
	for i := range xs {
		cx := e.pos.X + cos*xs[i] - sin*ys[i]
		cy := e.pos.Y + sin*xs[i] + cos*ys[i]
		dx, dy, dz := sl.pos.X-cx, sl.pos.Y-cy, sl.pos.Z-e.pos.Z
		c := sl.light.Color.Scale(sl.attenuation(math.Sqrt(dx*dx+dy*dy+dz*dz)) * gain)
		out[i] = Color{e.Color.R * c.R, e.Color.G * c.G, e.Color.B * c.B, e.Color.A}
	}
	return out
}

// drawShadow draws e's silhouette stretched away from the light, just
// behind e.
func (r *PassRenderer) drawShadow(e *Entity, sl sceneLight, v View, depth float64) bool {
	if err := r.backend.BindShader(ShaderShadow); err != nil {
		r.warnOnce("shader:shadow", "shadow shader unavailable", err)
		return false
	}
	defer r.backend.UnbindShader()

	lp := v.ToScreen(sl.pos)
	col := sl.light.Color
	r.backend.SetConstant("light_pos", float32(lp.X), float32(lp.Y))
	r.backend.SetConstant("light_range", float32(sl.light.Range*v.zoom()))
	r.backend.SetConstant("light_color", float32(col.R), float32(col.G), float32(col.B))
	r.backend.SetConstant("depth_bounds", float32(MinDepth), float32(MaxDepth))

	dx, dy := e.pos.X-sl.pos.X, e.pos.Y-sl.pos.Y
	dist := math.Hypot(dx, dy)
	alpha := sl.attenuation(dist)
	if alpha <= 0 {
		return false
	}

	d := r.spriteDraw(e, v, math.Max(MinDepth, depth-1e-6), Color{0, 0, 0, alpha})
	d.Pos = v.ToScreen(Vec3{e.pos.X, e.pos.Y, 0})
	d.Size.Y *= shadowSquash
	d.Pivot = Vec2{e.Pivot.X, 1}
	// Silhouette top points away from the light.
	d.Angle = math.Atan2(dy, dx) + math.Pi/2
	if err := r.backend.DrawSprite(d); err != nil {
		return false
	}
	return true
}

func (r *PassRenderer) drawParticles(e *Entity, v View, st *FrameStats) {
	pe, ok := e.AsParticleEmitting()
	if !ok {
		return
	}
	z := v.zoom()
	for _, ps := range pe.ParticleSystems() {
		cfg := ps.Config()
		prev := r.backend.BlendMode()
		if cfg.Additive {
			r.backend.SetBlendMode(BlendAdd)
		}
		ps.each(func(pos Vec2, scale, alpha float64, c Color) {
			c.A = alpha
			err := r.backend.DrawSprite(SpriteDraw{
				Path:   cfg.Sprite,
				Pos:    v.planeToScreen(pos),
				Size:   cfg.Size.Mul(scale * z),
				Pivot:  Vec2{0.5, 0.5},
				Colors: uniColors(c),
				Depth:  MaxDepth,
			})
			if err != nil {
				r.warnOnce(cfg.Sprite, "particle sprite missing", err)
				return
			}
			st.ParticleDraws++
		})
		r.backend.SetBlendMode(prev)
	}
}

// drawPlaceholder draws a magenta box with a cross over e's footprint.
func (r *PassRenderer) drawPlaceholder(e *Entity, v View) {
	fp := v.screenRect(e.Footprint(v))
	r.backend.DrawRectangle(fp, placeholderColor)
	a := Vec2{fp.X, fp.Y}
	b := Vec2{fp.X + fp.Width, fp.Y + fp.Height}
	r.backend.DrawLine(a, b, ColorBlack)
	r.backend.DrawLine(Vec2{b.X, a.Y}, Vec2{a.X, b.Y}, ColorBlack)
}

// drawCollision outlines e's collision shape, or its sprite rectangle when
// it has none.
func (r *PassRenderer) drawCollision(e *Entity, v View) {
	origin := v.Plane(e.pos)
	sin, cos := math.Sincos(e.Angle)
	toScreen := func(p Vec2) Vec2 {
		return v.planeToScreen(Vec2{
			origin.X + cos*p.X - sin*p.Y,
			origin.Y + sin*p.X + cos*p.Y,
		})
	}

	var pts []Vec2
	switch e.Shape.Kind {
	case ShapeCircle:
		const segs = 16
		for i := range segs {
			a := 2 * math.Pi * float64(i) / segs
			pts = append(pts, Vec2{e.Shape.Radius * math.Cos(a), e.Shape.Radius * math.Sin(a)})
		}
	case ShapePolygon:
		pts = e.Shape.Points
	default:
		b := e.localRect()
		if e.Shape.Kind == ShapeBox {
			b = e.Shape.Bounds()
		}
		pts = []Vec2{{b.X, b.Y}, {b.X + b.Width, b.Y}, {b.X + b.Width, b.Y + b.Height}, {b.X, b.Y + b.Height}}
	}
	for i := range pts {
		r.backend.DrawLine(toScreen(pts[i]), toScreen(pts[(i+1)%len(pts)]), collisionColor)
	}
}

func (r *PassRenderer) warnOnce(key, msg string, err error) {
	if _, ok := r.warned[key]; ok {
		return
	}
	r.warned[key] = struct{}{}
	Logger().Warn(msg, zap.String("resource", key), zap.Error(err))
}

// --- Sorting ---

// mergeSort stably sorts r.items by draw key using r.sortBuf as scratch.
// Bottom-up merge sort: no allocations once the buffer reaches its
// high-water mark.
func (r *PassRenderer) mergeSort() {
	n := len(r.items)
	if n <= 1 {
		return
	}
	if cap(r.sortBuf) < n {
		r.sortBuf = make([]renderItem, n)
	}
	r.sortBuf = r.sortBuf[:n]

	a, b := r.items, r.sortBuf
	swapped := false
	for width := 1; width < n; width *= 2 {
		for i := 0; i < n; i += 2 * width {
			mergeRun(a, b, i, min(i+width, n), min(i+2*width, n))
		}
		a, b = b, a
		swapped = !swapped
	}
	if swapped {
		copy(r.items, r.sortBuf)
	}
}

// mergeRun merges the sorted runs [lo, mid) and [mid, hi) from src into dst.
func mergeRun(src, dst []renderItem, lo, mid, hi int) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if src[i].key.lessOrEqual(src[j].key) {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	k += copy(dst[k:], src[i:mid])
	copy(dst[k:], src[j:hi])
}
