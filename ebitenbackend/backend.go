package ebitenbackend

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/phanxgames/umbra"
)

// quadIndices draws a quad as two triangles: TL-TR-BL, TR-BR-BL.
var quadIndices = []uint16{0, 1, 3, 1, 2, 3}

type cachedLightmap struct {
	version uint64
	img     *ebiten.Image
}

// Backend implements umbra.Backend on top of Ebitengine. Draw calls go to
// the target image set with SetTarget; nothing is batched, so the call
// order issued by the pass renderer is the draw order.
type Backend struct {
	target  *ebiten.Image
	sprites *SpriteCache
	shaders *shaderSet

	shader   *ebiten.Shader
	uniforms map[string]any
	blend    umbra.BlendMode
	caps     umbra.Caps
	size     umbra.Vec2

	lightmaps map[umbra.EntityID]cachedLightmap
	verts     [4]ebiten.Vertex

	// ScreenshotDir is the directory screenshots are written to.
	ScreenshotDir string
	screenshots   []string
}

// NewBackend creates a backend reading sprites from sprites. A nil cache
// reads from the working directory. With vertexOnly set the backend
// reports no pixel-shader support, forcing vertex lighting.
func NewBackend(sprites *SpriteCache, width, height int, vertexOnly bool) *Backend {
	if sprites == nil {
		sprites = NewSpriteCache(nil)
	}
	b := &Backend{
		sprites:       sprites,
		shaders:       newShaderSet(),
		uniforms:      make(map[string]any),
		caps:          umbra.Caps{PixelShaders: true, VertexShaders: true},
		size:          umbra.Vec2{X: float64(width), Y: float64(height)},
		lightmaps:     make(map[umbra.EntityID]cachedLightmap),
		ScreenshotDir: "screenshots",
	}
	if vertexOnly {
		b.caps.PixelShaders = false
		b.shaders.disabled[umbra.ShaderAmbientPS] = true
		b.shaders.disabled[umbra.ShaderLightPS] = true
	}
	return b
}

// SetTarget sets the image subsequent draws render into.
func (b *Backend) SetTarget(img *ebiten.Image) {
	b.target = img
	if img != nil {
		r := img.Bounds()
		b.size = umbra.Vec2{X: float64(r.Dx()), Y: float64(r.Dy())}
	}
}

// Target returns the current target image.
func (b *Backend) Target() *ebiten.Image {
	return b.target
}

// Sprites returns the sprite cache.
func (b *Backend) Sprites() *SpriteCache {
	return b.sprites
}

// Capabilities implements umbra.Backend.
func (b *Backend) Capabilities() umbra.Caps {
	return b.caps
}

// ScreenSize implements umbra.Backend.
func (b *Backend) ScreenSize() umbra.Vec2 {
	return b.size
}

// BlendMode implements umbra.Backend.
func (b *Backend) BlendMode() umbra.BlendMode {
	return b.blend
}

// SetBlendMode implements umbra.Backend.
func (b *Backend) SetBlendMode(m umbra.BlendMode) {
	b.blend = m
}

// BindShader implements umbra.Backend.
func (b *Backend) BindShader(k umbra.ShaderKind) error {
	sh, err := b.shaders.get(k)
	if err != nil {
		return err
	}
	b.shader = sh
	clear(b.uniforms)
	return nil
}

// SetConstant implements umbra.Backend. A single value sets a float
// uniform; several set a vector.
func (b *Backend) SetConstant(name string, v ...float32) {
	if len(v) == 1 {
		b.uniforms[uniformName(name)] = v[0]
		return
	}
	b.uniforms[uniformName(name)] = append([]float32(nil), v...)
}

// UnbindShader implements umbra.Backend.
func (b *Backend) UnbindShader() {
	b.shader = nil
	clear(b.uniforms)
}

// DrawSprite implements umbra.Backend.
func (b *Backend) DrawSprite(d umbra.SpriteDraw) error {
	if b.target == nil {
		return nil
	}
	img, err := b.sprites.Get(d.Path)
	if err != nil {
		return err
	}
	src := frameRect(img.Bounds(), d.Size, d.Frame)
	b.buildQuad(d.Pos, d.Size, d.Pivot, d.Angle, src, d.Colors)

	if b.shader != nil {
		b.uniforms["Origin"] = []float32{float32(d.Pos.X), float32(d.Pos.Y)}
		b.uniforms["Angle"] = float32(d.Angle)
		op := &ebiten.DrawTrianglesShaderOptions{
			Uniforms: b.uniforms,
			Blend:    blendFor(b.blend),
		}
		op.Images[0] = img
		b.target.DrawTrianglesShader(b.verts[:], quadIndices, b.shader, op)
		return nil
	}
	op := &ebiten.DrawTrianglesOptions{Blend: blendFor(b.blend)}
	b.target.DrawTriangles(b.verts[:], quadIndices, img, op)
	return nil
}

// DrawLightmap implements umbra.Backend. Lightmap images are uploaded once
// per entity and version.
func (b *Backend) DrawLightmap(d umbra.LightmapDraw) error {
	if b.target == nil || d.Map == nil || d.Map.Image == nil {
		return nil
	}
	img := b.lightmapImage(d.Map)
	f := d.Intensity
	if f <= 0 {
		f = 1
	}
	c := umbra.Color{R: f, G: f, B: f, A: 1}
	b.buildQuad(d.Pos, d.Size, d.Pivot, d.Angle, img.Bounds(), [4]umbra.Color{c, c, c, c})
	op := &ebiten.DrawTrianglesOptions{Blend: blendFor(b.blend), Filter: ebiten.FilterLinear}
	b.target.DrawTriangles(b.verts[:], quadIndices, img, op)
	return nil
}

func (b *Backend) lightmapImage(lm *umbra.Lightmap) *ebiten.Image {
	if c, ok := b.lightmaps[lm.Entity]; ok && c.version == lm.Version {
		return c.img
	}
	if c, ok := b.lightmaps[lm.Entity]; ok {
		c.img.Deallocate()
	}
	img := ebiten.NewImageFromImage(lm.Image)
	b.lightmaps[lm.Entity] = cachedLightmap{version: lm.Version, img: img}
	return img
}

// PruneLightmaps releases uploaded lightmaps no longer present in set.
func (b *Backend) PruneLightmaps(set *umbra.LightmapSet) {
	for id, c := range b.lightmaps {
		if _, ok := set.Get(id); !ok {
			c.img.Deallocate()
			delete(b.lightmaps, id)
		}
	}
}

// DrawLine implements umbra.Backend.
func (b *Backend) DrawLine(p, q umbra.Vec2, c umbra.Color) {
	if b.target == nil {
		return
	}
	vector.StrokeLine(b.target, float32(p.X), float32(p.Y), float32(q.X), float32(q.Y), 1, toNRGBA(c), true)
}

// DrawRectangle implements umbra.Backend.
func (b *Backend) DrawRectangle(r umbra.Rect, c umbra.Color) {
	if b.target == nil {
		return
	}
	vector.DrawFilledRect(b.target, float32(r.X), float32(r.Y), float32(r.Width), float32(r.Height), toNRGBA(c), false)
}

// buildQuad fills b.verts with the corners of a size rectangle pivoted at
// pos and rotated by angle. Corners run clockwise from top-left, matching
// the order of colors.
func (b *Backend) buildQuad(pos, size, pivot umbra.Vec2, angle float64, src image.Rectangle, colors [4]umbra.Color) {
	corners := quadCorners(pos, size, pivot, angle)
	sx := [4]float32{float32(src.Min.X), float32(src.Max.X), float32(src.Max.X), float32(src.Min.X)}
	sy := [4]float32{float32(src.Min.Y), float32(src.Min.Y), float32(src.Max.Y), float32(src.Max.Y)}
	for i := range b.verts {
		r, g, bl, a := premultiply(colors[i])
		b.verts[i] = ebiten.Vertex{
			DstX:   float32(corners[i].X),
			DstY:   float32(corners[i].Y),
			SrcX:   sx[i],
			SrcY:   sy[i],
			ColorR: r,
			ColorG: g,
			ColorB: bl,
			ColorA: a,
		}
	}
}

// quadCorners returns the screen corners of a rotated sprite rectangle,
// clockwise from top-left.
func quadCorners(pos, size, pivot umbra.Vec2, angle float64) [4]umbra.Vec2 {
	x0, y0 := -pivot.X*size.X, -pivot.Y*size.Y
	x1, y1 := x0+size.X, y0+size.Y
	xs := [4]float64{x0, x1, x1, x0}
	ys := [4]float64{y0, y0, y1, y1}
	sin, cos := math.Sincos(angle)
	var out [4]umbra.Vec2
	for i := range out {
		out[i] = umbra.Vec2{
			X: pos.X + cos*xs[i] - sin*ys[i],
			Y: pos.Y + sin*xs[i] + cos*ys[i],
		}
	}
	return out
}

// premultiply converts a straight-alpha color to premultiplied vertex
// components. RGB may exceed 1 for over-bright light.
func premultiply(c umbra.Color) (r, g, b, a float32) {
	alpha := math.Max(0, math.Min(1, c.A))
	return float32(math.Max(0, c.R) * alpha),
		float32(math.Max(0, c.G) * alpha),
		float32(math.Max(0, c.B) * alpha),
		float32(alpha)
}

func toNRGBA(c umbra.Color) color.NRGBA {
	c = c.Clamped()
	return color.NRGBA{
		R: uint8(c.R*255 + 0.5),
		G: uint8(c.G*255 + 0.5),
		B: uint8(c.B*255 + 0.5),
		A: uint8(c.A*255 + 0.5),
	}
}

// blendFor returns the ebiten.Blend value for m.
func blendFor(m umbra.BlendMode) ebiten.Blend {
	switch m {
	case umbra.BlendAdd:
		return ebiten.BlendLighter
	case umbra.BlendMultiply:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case umbra.BlendScreen:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceColor,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case umbra.BlendErase:
		return ebiten.BlendDestinationOut
	case umbra.BlendNone:
		return ebiten.BlendCopy
	default:
		return ebiten.BlendSourceOver
	}
}

var _ umbra.Backend = (*Backend)(nil)
