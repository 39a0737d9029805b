package umbra

import "strings"

// ShaderKind selects one of the programs a Backend must provide.
type ShaderKind uint8

const (
	ShaderAmbientPS ShaderKind = iota // per-pixel ambient
	ShaderAmbientVS                   // per-vertex ambient
	ShaderLightPS                     // per-pixel additive point light
	ShaderLightVS                     // per-vertex additive point light
	ShaderShadow                      // projected silhouette
)

// String returns a short name for logs.
func (k ShaderKind) String() string {
	switch k {
	case ShaderAmbientPS:
		return "ambient_ps"
	case ShaderAmbientVS:
		return "ambient_vs"
	case ShaderLightPS:
		return "light_ps"
	case ShaderLightVS:
		return "light_vs"
	case ShaderShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// RenderMode selects the lighting model.
type RenderMode uint8

const (
	RenderPS RenderMode = iota // pixel-shader lighting
	RenderVS                   // vertex lighting
)

// String returns the preference value for the mode.
func (m RenderMode) String() string {
	if m == RenderVS {
		return "vs"
	}
	return "ps"
}

// ParseRenderMode parses "ps" or "vs" (case-insensitive). Anything else is RenderPS.
func ParseRenderMode(s string) RenderMode {
	if strings.EqualFold(s, "vs") {
		return RenderVS
	}
	return RenderPS
}

// Caps reports what lighting paths a backend can run.
type Caps struct {
	PixelShaders  bool
	VertexShaders bool
}

// SpriteDraw is one sprite submission. Pos is the pivot point in screen
// pixels; Colors tint the four corners clockwise from top-left.
type SpriteDraw struct {
	Path   string
	Pos    Vec2
	Size   Vec2
	Pivot  Vec2
	Colors [4]Color
	Depth  float64
	Angle  float64
	Frame  int
}

// LightmapDraw overlays a baked lightmap on an entity's sprite rectangle.
// The map is drawn additively, scaled by Intensity.
type LightmapDraw struct {
	Map       *Lightmap
	Pos       Vec2
	Size      Vec2
	Pivot     Vec2
	Depth     float64
	Angle     float64
	Intensity float64
}

// Backend is the drawing surface the pass renderer issues calls to.
// Implementations live outside this package (see ebitenbackend).
type Backend interface {
	// DrawSprite draws a sprite. It returns an error wrapping
	// ErrResourceMissing when the image cannot be loaded.
	DrawSprite(d SpriteDraw) error
	DrawLine(a, b Vec2, c Color)
	DrawRectangle(r Rect, c Color)
	DrawLightmap(d LightmapDraw) error

	// BindShader makes k the active program for subsequent draws. It returns
	// an error wrapping ErrShaderUnsupported when the hardware cannot run it.
	BindShader(k ShaderKind) error
	SetConstant(name string, v ...float32)
	UnbindShader()

	BlendMode() BlendMode
	SetBlendMode(b BlendMode)

	Capabilities() Caps
	ScreenSize() Vec2
}

// uniColors returns four identical corner colors.
func uniColors(c Color) [4]Color {
	return [4]Color{c, c, c, c}
}
