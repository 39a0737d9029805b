package umbra

import (
	"encoding/json"
	"errors"
	"fmt"
)

// scriptStep is a single action in an input script.
type scriptStep struct {
	Action string   `json:"action"`
	Label  string   `json:"label,omitempty"`
	X      float64  `json:"x,omitempty"`
	Y      float64  `json:"y,omitempty"`
	FromX  float64  `json:"fromX,omitempty"`
	FromY  float64  `json:"fromY,omitempty"`
	ToX    float64  `json:"toX,omitempty"`
	ToY    float64  `json:"toY,omitempty"`
	Frames int      `json:"frames,omitempty"`
	Key    string   `json:"key,omitempty"`
	Mods   []string `json:"mods,omitempty"`
	Delta  float64  `json:"delta,omitempty"`
	Path   string   `json:"path,omitempty"`
}

// script is the top-level JSON structure of an input script.
type script struct {
	Steps []scriptStep `json:"steps"`
}

// frameEvent is a non-input action fired when a scripted frame is reached.
type frameEvent uint8

const (
	eventNone frameEvent = iota
	eventScreenshot
	eventSave
)

// syntheticFrame is the raw input of one scripted frame.
type syntheticFrame struct {
	cursor Vec2
	down   [numKeys]bool
	wheel  float64
	event  frameEvent
	arg    string
}

// ScriptRunner replays scripted input one frame at a time. It implements
// InputBackend, so the editor consumes it exactly like real input:
//
//	for r.Next() {
//		ed.Step(umbra.Snapshot(r))
//		scene.Frame(dt)
//	}
type ScriptRunner struct {
	queue  []syntheticFrame
	cur    syntheticFrame
	prev   [numKeys]bool
	done   bool
	frames int

	// OnScreenshot is called with the label of each screenshot step.
	OnScreenshot func(label string)
	// OnSave is called with the path of each save step.
	OnSave func(path string)
}

// NewScriptRunner returns an empty runner. Queue input with the Queue
// methods or use LoadScript.
func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{}
}

// LoadScript parses a JSON input script.
//
// Supported actions: click (x, y), drag (fromX, fromY, toX, toY, frames),
// move (x, y), key (key, mods), wheel (delta), wait (frames),
// screenshot (label), and save (path).
func LoadScript(data []byte) (*ScriptRunner, error) {
	var s script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse input script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("parse input script: no steps")
	}
	r := NewScriptRunner()
	for i, st := range s.Steps {
		if err := r.queueStep(st); err != nil {
			return nil, fmt.Errorf("parse input script: step %d: %w", i, err)
		}
	}
	return r, nil
}

func (r *ScriptRunner) queueStep(st scriptStep) error {
	switch st.Action {
	case "click":
		r.QueueClick(st.X, st.Y)
	case "move":
		r.QueueMove(st.X, st.Y)
	case "drag":
		r.QueueDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "key":
		k, ok := ParseKey(st.Key)
		if !ok {
			return fmt.Errorf("unknown key %q", st.Key)
		}
		var mods []Key
		for _, m := range st.Mods {
			mk, ok := ParseKey(m)
			if !ok {
				return fmt.Errorf("unknown modifier %q", m)
			}
			mods = append(mods, mk)
		}
		r.QueueKey(k, mods...)
	case "wheel":
		r.QueueWheel(st.Delta)
	case "wait":
		r.QueueWait(st.Frames)
	case "screenshot":
		f := r.tail()
		f.event, f.arg = eventScreenshot, st.Label
		r.queue = append(r.queue, f)
	case "save":
		f := r.tail()
		f.event, f.arg = eventSave, st.Path
		r.queue = append(r.queue, f)
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

// tail returns the last queued frame with transient input cleared, so a new
// frame continues from where the script left the cursor.
func (r *ScriptRunner) tail() syntheticFrame {
	var f syntheticFrame
	if n := len(r.queue); n > 0 {
		f.cursor = r.queue[n-1].cursor
	} else {
		f.cursor = r.cur.cursor
	}
	return f
}

// QueueMove queues one frame with the cursor at (x, y) and no buttons.
func (r *ScriptRunner) QueueMove(x, y float64) {
	f := r.tail()
	f.cursor = Vec2{x, y}
	r.queue = append(r.queue, f)
}

// QueueClick queues a left press then a release at (x, y). Consumes two
// frames.
func (r *ScriptRunner) QueueClick(x, y float64) {
	f := r.tail()
	f.cursor = Vec2{x, y}
	f.down[KeyMouseLeft] = true
	r.queue = append(r.queue, f)
	f.down[KeyMouseLeft] = false
	r.queue = append(r.queue, f)
}

// QueueDrag queues a full drag: press at (fromX, fromY), moves linearly
// interpolated over frames-2 intermediate frames, and release at (toX, toY).
// The sequence consumes frames frames; the minimum is 2.
func (r *ScriptRunner) QueueDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	f := r.tail()
	f.cursor = Vec2{fromX, fromY}
	f.down[KeyMouseLeft] = true
	r.queue = append(r.queue, f)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		f.cursor = Vec2{fromX + (toX-fromX)*t, fromY + (toY-fromY)*t}
		r.queue = append(r.queue, f)
	}
	f.cursor = Vec2{toX, toY}
	f.down[KeyMouseLeft] = false
	r.queue = append(r.queue, f)
}

// QueueKey queues a press of k with the given modifier keys held, then a
// release. Consumes two frames.
func (r *ScriptRunner) QueueKey(k Key, mods ...Key) {
	f := r.tail()
	for _, m := range mods {
		f.down[m] = true
	}
	f.down[k] = true
	r.queue = append(r.queue, f)
	r.queue = append(r.queue, r.tail())
}

// QueueWheel queues one frame of wheel movement.
func (r *ScriptRunner) QueueWheel(delta float64) {
	f := r.tail()
	f.wheel = delta
	r.queue = append(r.queue, f)
}

// QueueWait queues n idle frames.
func (r *ScriptRunner) QueueWait(n int) {
	for range max(n, 1) {
		r.queue = append(r.queue, r.tail())
	}
}

// Next advances to the next scripted frame. It returns false once the
// script is exhausted.
func (r *ScriptRunner) Next() bool {
	r.prev = r.cur.down
	if len(r.queue) == 0 {
		r.cur = syntheticFrame{cursor: r.cur.cursor}
		r.done = true
		return false
	}
	r.cur = r.queue[0]
	r.queue = r.queue[1:]
	r.frames++

	switch r.cur.event {
	case eventScreenshot:
		if r.OnScreenshot != nil {
			r.OnScreenshot(r.cur.arg)
		}
	case eventSave:
		if r.OnSave != nil {
			r.OnSave(r.cur.arg)
		}
	}
	return true
}

// Done reports whether every queued frame has been consumed.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// Frames returns the number of frames replayed so far.
func (r *ScriptRunner) Frames() int {
	return r.frames
}

// KeyState implements InputBackend.
func (r *ScriptRunner) KeyState(k Key) KeyState {
	return KeyStateFrom(r.prev[k], r.cur.down[k])
}

// CursorPosition implements InputBackend.
func (r *ScriptRunner) CursorPosition() Vec2 {
	return r.cur.cursor
}

// WheelDelta implements InputBackend.
func (r *ScriptRunner) WheelDelta() float64 {
	return r.cur.wheel
}

// Run replays the whole script into ed, running one scene frame after each
// input frame. Save steps save through the editor unless OnSave is set.
func (r *ScriptRunner) Run(ed *Editor, dt float64) {
	if r.OnSave == nil {
		r.OnSave = func(path string) { ed.SaveScene(path) }
	}
	for r.Next() {
		ed.Step(Snapshot(r))
		ed.Scene().Frame(dt)
	}
}
