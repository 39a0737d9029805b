package ebitenbackend

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/umbra"
)

// --- Kage shader sources ---
// All shaders use //kage:unit pixels. Ebitengine uses premultiplied alpha;
// vertex colors arrive premultiplied as well.

const ambientPSSrc = `//kage:unit pixels
package main

var Ambient vec3

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src) * color
	return vec4(c.rgb*Ambient, c.a)
}
`

// ambientVSSrc expects the ambient term baked into the vertex colors.
const ambientVSSrc = `//kage:unit pixels
package main

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	return imageSrc0At(src) * color
}
`

const lightPSSrc = `//kage:unit pixels
package main

var Origin vec2
var Angle float
var Zoom float
var LightPos vec3
var LightRange float
var LightColor vec3
var LightIntensity float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src) * color
	if c.a == 0 || LightRange <= 0 {
		return vec4(0)
	}
	// Destination pixel to entity-local space.
	p := (dst.xy - Origin) / max(Zoom, 0.0001)
	s := sin(-Angle)
	k := cos(-Angle)
	local := vec2(k*p.x-s*p.y, s*p.x+k*p.y)
	d := distance(vec3(local, 0), LightPos)
	t := clamp(1-d/LightRange, 0, 1)
	att := t * t * LightIntensity
	return vec4(c.rgb*LightColor*att, 0)
}
`

// lightVSSrc expects the per-corner light evaluated into the vertex colors.
const lightVSSrc = `//kage:unit pixels
package main

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	return vec4(c.rgb*color.rgb, 0)
}
`

const shadowSrc = `//kage:unit pixels
package main

var LightPos vec2
var LightRange float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	a := imageSrc0At(src).a * color.a
	if LightRange > 0 {
		a *= clamp(1-distance(dst.xy, LightPos)/LightRange, 0, 1)
	}
	return vec4(0, 0, 0, a)
}
`

var shaderSources = map[umbra.ShaderKind]string{
	umbra.ShaderAmbientPS: ambientPSSrc,
	umbra.ShaderAmbientVS: ambientVSSrc,
	umbra.ShaderLightPS:   lightPSSrc,
	umbra.ShaderLightVS:   lightVSSrc,
	umbra.ShaderShadow:    shadowSrc,
}

// uniformNames maps renderer constant names to Kage uniform names.
var uniformNames = map[string]string{
	"ambient":         "Ambient",
	"light_pos":       "LightPos",
	"light_range":     "LightRange",
	"light_color":     "LightColor",
	"light_intensity": "LightIntensity",
	"depth_bounds":    "DepthBounds",
	"zoom":            "Zoom",
}

// uniformName returns the Kage name for a renderer constant. Unknown names
// pass through unchanged.
func uniformName(name string) string {
	if u, ok := uniformNames[name]; ok {
		return u
	}
	return name
}

// shaderSet compiles shaders lazily and remembers failures so a broken
// program is not recompiled every frame.
type shaderSet struct {
	compiled map[umbra.ShaderKind]*ebiten.Shader
	failed   map[umbra.ShaderKind]error
	disabled map[umbra.ShaderKind]bool
}

func newShaderSet() *shaderSet {
	return &shaderSet{
		compiled: make(map[umbra.ShaderKind]*ebiten.Shader),
		failed:   make(map[umbra.ShaderKind]error),
		disabled: make(map[umbra.ShaderKind]bool),
	}
}

func (s *shaderSet) get(k umbra.ShaderKind) (*ebiten.Shader, error) {
	if s.disabled[k] {
		return nil, fmt.Errorf("shader %s disabled: %w", k, umbra.ErrShaderUnsupported)
	}
	if sh, ok := s.compiled[k]; ok {
		return sh, nil
	}
	if err, ok := s.failed[k]; ok {
		return nil, err
	}
	src, ok := shaderSources[k]
	if !ok {
		err := fmt.Errorf("shader %s: %w", k, umbra.ErrShaderUnsupported)
		s.failed[k] = err
		return nil, err
	}
	sh, err := ebiten.NewShader([]byte(src))
	if err != nil {
		err = fmt.Errorf("compile shader %s: %w: %w", k, umbra.ErrShaderUnsupported, err)
		s.failed[k] = err
		return nil, err
	}
	s.compiled[k] = sh
	return sh, nil
}
