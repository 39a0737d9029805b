package ebitenbackend

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/phanxgames/umbra"
)

// keyBindings maps editor keys to physical keys. Any bound key held counts
// as the editor key held.
var keyBindings = map[umbra.Key][]ebiten.Key{
	umbra.KeyShift:      {ebiten.KeyShiftLeft, ebiten.KeyShiftRight},
	umbra.KeyCtrl:       {ebiten.KeyControlLeft, ebiten.KeyControlRight},
	umbra.KeyAlt:        {ebiten.KeyAltLeft, ebiten.KeyAltRight},
	umbra.KeyMeta:       {ebiten.KeyMetaLeft, ebiten.KeyMetaRight},
	umbra.KeyEscape:     {ebiten.KeyEscape},
	umbra.KeyTab:        {ebiten.KeyTab},
	umbra.KeyDelete:     {ebiten.KeyDelete, ebiten.KeyBackspace},
	umbra.KeyArrowLeft:  {ebiten.KeyArrowLeft},
	umbra.KeyArrowRight: {ebiten.KeyArrowRight},
	umbra.KeyArrowUp:    {ebiten.KeyArrowUp},
	umbra.KeyArrowDown:  {ebiten.KeyArrowDown},
	umbra.KeyPageUp:     {ebiten.KeyPageUp},
	umbra.KeyPageDown:   {ebiten.KeyPageDown},
	umbra.KeySpace:      {ebiten.KeySpace},
	umbra.KeyB:          {ebiten.KeyB},
	umbra.KeyC:          {ebiten.KeyC},
	umbra.KeyF:          {ebiten.KeyF},
	umbra.KeyG:          {ebiten.KeyG},
	umbra.KeyL:          {ebiten.KeyL},
	umbra.KeyP:          {ebiten.KeyP},
	umbra.KeyR:          {ebiten.KeyR},
	umbra.KeyS:          {ebiten.KeyS},
	umbra.KeyT:          {ebiten.KeyT},
	umbra.KeyV:          {ebiten.KeyV},
}

var mouseBindings = map[umbra.Key]ebiten.MouseButton{
	umbra.KeyMouseLeft:   ebiten.MouseButtonLeft,
	umbra.KeyMouseRight:  ebiten.MouseButtonRight,
	umbra.KeyMouseMiddle: ebiten.MouseButtonMiddle,
}

// Input implements umbra.InputBackend with Ebitengine polling. Call Poll
// once per tick before taking a snapshot.
type Input struct {
	prev    map[umbra.Key]bool
	cur     map[umbra.Key]bool
	pressed []ebiten.Key
	cursor  umbra.Vec2
	wheel   float64
}

// NewInput creates an input poller.
func NewInput() *Input {
	return &Input{
		prev: make(map[umbra.Key]bool),
		cur:  make(map[umbra.Key]bool),
	}
}

// Poll reads the current device state.
func (in *Input) Poll() {
	in.prev, in.cur = in.cur, in.prev
	clear(in.cur)

	in.pressed = inpututil.AppendPressedKeys(in.pressed[:0])
	in.setPressed(in.pressed)
	for k, btn := range mouseBindings {
		if ebiten.IsMouseButtonPressed(btn) {
			in.cur[k] = true
		}
	}

	x, y := ebiten.CursorPosition()
	in.cursor = umbra.Vec2{X: float64(x), Y: float64(y)}
	_, in.wheel = ebiten.Wheel()
}

// setPressed marks every editor key bound to one of keys as held.
func (in *Input) setPressed(keys []ebiten.Key) {
	for _, pk := range keys {
		for k, bound := range keyBindings {
			for _, b := range bound {
				if b == pk {
					in.cur[k] = true
				}
			}
		}
	}
}

// KeyState implements umbra.InputBackend.
func (in *Input) KeyState(k umbra.Key) umbra.KeyState {
	return umbra.KeyStateFrom(in.prev[k], in.cur[k])
}

// CursorPosition implements umbra.InputBackend.
func (in *Input) CursorPosition() umbra.Vec2 {
	return in.cursor
}

// WheelDelta implements umbra.InputBackend.
func (in *Input) WheelDelta() float64 {
	return in.wheel
}

var _ umbra.InputBackend = (*Input)(nil)
