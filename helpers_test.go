package umbra

import (
	"fmt"
	"math"
	"testing"
)

const epsilon = 1e-9

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// identityCamera returns an 800x600 camera whose world coordinates equal
// screen coordinates.
func identityCamera() *Camera {
	cam := NewCamera(Rect{Width: 800, Height: 600})
	cam.SetPosition(400, 300)
	return cam
}

// testScene returns a scene with an identity camera and in-memory prefs.
func testScene() *Scene {
	return NewScene(identityCamera(), DefaultPreferences())
}

// sprite returns a static-free renderable entity at (x, y).
func sprite(name string, x, y float64) *Entity {
	e := NewEntity(name)
	e.Sprite = name + ".png"
	e.SetPosition(Vec3{X: x, Y: y})
	return e
}

// staticLight returns a static entity carrying a static light.
func staticLight(name string, x, y, rng float64) *Entity {
	e := sprite(name, x, y)
	e.Kind = KindStatic
	e.Light = &Light{Color: ColorWhite, Range: rng, Static: true}
	return e
}

// --- recording backend ---

type call struct {
	op      string // sprite, line, rect, lightmap
	shader  ShaderKind
	bound   bool
	blend   BlendMode
	sprite  SpriteDraw
	lm      LightmapDraw
	color   Color
	consts  map[string][]float32
	rect    Rect
	a, b    Vec2
}

// recordingBackend implements Backend by recording every call.
type recordingBackend struct {
	caps       Caps
	size       Vec2
	blend      BlendMode
	shader     ShaderKind
	bound      bool
	consts     map[string][]float32
	missing    map[string]bool
	failShader map[ShaderKind]bool
	calls      []call
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{
		caps:       Caps{PixelShaders: true, VertexShaders: true},
		size:       Vec2{800, 600},
		consts:     make(map[string][]float32),
		missing:    make(map[string]bool),
		failShader: make(map[ShaderKind]bool),
	}
}

func (b *recordingBackend) snapshotConsts() map[string][]float32 {
	out := make(map[string][]float32, len(b.consts))
	for k, v := range b.consts {
		out[k] = v
	}
	return out
}

func (b *recordingBackend) DrawSprite(d SpriteDraw) error {
	if b.missing[d.Path] {
		return fmt.Errorf("sprite %s: %w", d.Path, ErrResourceMissing)
	}
	b.calls = append(b.calls, call{
		op: "sprite", shader: b.shader, bound: b.bound, blend: b.blend,
		sprite: d, consts: b.snapshotConsts(),
	})
	return nil
}

func (b *recordingBackend) DrawLine(p, q Vec2, c Color) {
	b.calls = append(b.calls, call{op: "line", a: p, b: q, color: c, blend: b.blend})
}

func (b *recordingBackend) DrawRectangle(r Rect, c Color) {
	b.calls = append(b.calls, call{op: "rect", rect: r, color: c, blend: b.blend})
}

func (b *recordingBackend) DrawLightmap(d LightmapDraw) error {
	b.calls = append(b.calls, call{op: "lightmap", lm: d, blend: b.blend})
	return nil
}

func (b *recordingBackend) BindShader(k ShaderKind) error {
	if b.failShader[k] {
		return fmt.Errorf("shader %s: %w", k, ErrShaderUnsupported)
	}
	b.shader, b.bound = k, true
	clear(b.consts)
	return nil
}

func (b *recordingBackend) SetConstant(name string, v ...float32) {
	b.consts[name] = append([]float32(nil), v...)
}

func (b *recordingBackend) UnbindShader() {
	b.bound = false
	clear(b.consts)
}

func (b *recordingBackend) BlendMode() BlendMode     { return b.blend }
func (b *recordingBackend) SetBlendMode(m BlendMode) { b.blend = m }
func (b *recordingBackend) Capabilities() Caps       { return b.caps }
func (b *recordingBackend) ScreenSize() Vec2         { return b.size }

// sprites returns the sprite draws bound to shader k.
func (b *recordingBackend) sprites(k ShaderKind) []call {
	var out []call
	for _, c := range b.calls {
		if c.op == "sprite" && c.bound && c.shader == k {
			out = append(out, c)
		}
	}
	return out
}

func (b *recordingBackend) count(op string) int {
	n := 0
	for _, c := range b.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (b *recordingBackend) reset() {
	b.calls = b.calls[:0]
}

// testRenderer returns a scene wired to a recording backend.
func testRenderer(t *testing.T, mode RenderMode) (*Scene, *recordingBackend) {
	t.Helper()
	b := newRecordingBackend()
	r, err := NewPassRenderer(b, mode)
	if err != nil {
		t.Fatalf("NewPassRenderer: %v", err)
	}
	s := testScene()
	s.SetRenderer(r)
	return s, b
}

// fakeInput is an InputBackend with settable state.
type fakeInput struct {
	states map[Key]KeyState
	cursor Vec2
	wheel  float64
}

func (f *fakeInput) KeyState(k Key) KeyState { return f.states[k] }
func (f *fakeInput) CursorPosition() Vec2    { return f.cursor }
func (f *fakeInput) WheelDelta() float64     { return f.wheel }

// frameInput builds one frame of input with the given key states.
func frameInput(cursor Vec2, states map[Key]KeyState) InputState {
	return Snapshot(&fakeInput{states: states, cursor: cursor})
}
