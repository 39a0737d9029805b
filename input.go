package umbra

import "strings"

// KeyState is the per-frame state of a key or mouse button.
type KeyState uint8

const (
	StateUp       KeyState = iota // not pressed
	StateDown                     // held since an earlier frame
	StateHit                      // pressed this frame
	StateReleased                 // released this frame
)

// Pressed reports whether the key is held, including the frame it was hit.
func (s KeyState) Pressed() bool {
	return s == StateDown || s == StateHit
}

// KeyStateFrom derives a KeyState from the pressed flag of the previous and
// current frame.
func KeyStateFrom(wasDown, down bool) KeyState {
	switch {
	case down && !wasDown:
		return StateHit
	case down:
		return StateDown
	case wasDown:
		return StateReleased
	default:
		return StateUp
	}
}

// Key identifies an input the editor reacts to. Mouse buttons are keys.
type Key uint8

const (
	KeyMouseLeft Key = iota
	KeyMouseRight
	KeyMouseMiddle
	KeyShift
	KeyCtrl
	KeyAlt
	KeyMeta
	KeyEscape
	KeyTab
	KeyDelete
	KeyArrowLeft
	KeyArrowRight
	KeyArrowUp
	KeyArrowDown
	KeyPageUp
	KeyPageDown
	KeySpace
	KeyB
	KeyC
	KeyF
	KeyG
	KeyL
	KeyP
	KeyR
	KeyS
	KeyT
	KeyV

	numKeys
)

var keyNames = [numKeys]string{
	KeyMouseLeft:   "mouse_left",
	KeyMouseRight:  "mouse_right",
	KeyMouseMiddle: "mouse_middle",
	KeyShift:       "shift",
	KeyCtrl:        "ctrl",
	KeyAlt:         "alt",
	KeyMeta:        "meta",
	KeyEscape:      "escape",
	KeyTab:         "tab",
	KeyDelete:      "delete",
	KeyArrowLeft:   "left",
	KeyArrowRight:  "right",
	KeyArrowUp:     "up",
	KeyArrowDown:   "down",
	KeyPageUp:      "page_up",
	KeyPageDown:    "page_down",
	KeySpace:       "space",
	KeyB:           "b",
	KeyC:           "c",
	KeyF:           "f",
	KeyG:           "g",
	KeyL:           "l",
	KeyP:           "p",
	KeyR:           "r",
	KeyS:           "s",
	KeyT:           "t",
	KeyV:           "v",
}

// String returns the name used in input scripts.
func (k Key) String() string {
	if k < numKeys {
		return keyNames[k]
	}
	return "unknown"
}

// ParseKey returns the key with the given script name (case-insensitive).
func ParseKey(s string) (Key, bool) {
	for k, name := range keyNames {
		if strings.EqualFold(name, s) {
			return Key(k), true
		}
	}
	return 0, false
}

// AllKeys returns every key the editor reacts to.
func AllKeys() []Key {
	out := make([]Key, numKeys)
	for i := range out {
		out[i] = Key(i)
	}
	return out
}

// KeyModifiers is a bitmask of keyboard modifier keys.
// Values can be combined with bitwise OR (e.g. ModShift | ModCtrl).
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt / Option key
	ModMeta                           // Meta / Command / Windows key
)

// InputBackend is polled once per frame for raw input. Implementations
// report the state transition of each key for the current frame.
type InputBackend interface {
	KeyState(k Key) KeyState
	CursorPosition() Vec2
	WheelDelta() float64
}

// InputState is an immutable snapshot of one frame of input. Editor logic
// reads only this, never a live backend.
type InputState struct {
	Keys   [numKeys]KeyState
	Cursor Vec2
	Wheel  float64
	Mods   KeyModifiers
}

// Snapshot polls b once and returns the frame's input.
func Snapshot(b InputBackend) InputState {
	var in InputState
	for k := range numKeys {
		in.Keys[k] = b.KeyState(k)
	}
	in.Cursor = b.CursorPosition()
	in.Wheel = b.WheelDelta()
	in.Mods = in.modifiers()
	return in
}

func (in *InputState) modifiers() KeyModifiers {
	var m KeyModifiers
	if in.Keys[KeyShift].Pressed() {
		m |= ModShift
	}
	if in.Keys[KeyCtrl].Pressed() {
		m |= ModCtrl
	}
	if in.Keys[KeyAlt].Pressed() {
		m |= ModAlt
	}
	if in.Keys[KeyMeta].Pressed() {
		m |= ModMeta
	}
	return m
}

// Hit reports whether k was pressed this frame.
func (in InputState) Hit(k Key) bool {
	return in.Keys[k] == StateHit
}

// Down reports whether k is held.
func (in InputState) Down(k Key) bool {
	return in.Keys[k].Pressed()
}

// Released reports whether k was released this frame.
func (in InputState) Released(k Key) bool {
	return in.Keys[k] == StateReleased
}

// Ctrl reports whether the control (or meta) modifier is held.
func (in InputState) Ctrl() bool {
	return in.Mods&(ModCtrl|ModMeta) != 0
}

// Shift reports whether shift is held.
func (in InputState) Shift() bool {
	return in.Mods&ModShift != 0
}
