package umbra

import (
	"fmt"
	"math"
	"slices"

	"github.com/tanema/gween/ease"
	"go.uber.org/zap"
)

// Tool is the editor's active mouse tool.
type Tool uint8

const (
	ToolSelect Tool = iota // pick, drag, and edit placed entities
	ToolPlace              // place copies of the current catalog template
)

// String returns the tool name for status lines.
func (t Tool) String() string {
	if t == ToolPlace {
		return "place"
	}
	return "select"
}

// Editor defaults.
const (
	DefaultNudgeStep     = 1.0
	DefaultZStep         = 4.0
	maxMessages          = 8
	cycleClickTolerance  = 2.0
	defaultScrollSeconds = 0.35
	defaultFollowLerp    = 0.2
	defaultBoundsMargin  = 64.0
	defaultFileCheck     = 60
	maxGridLines         = 256
)

// dragState tracks a mouse drag of the selected entity.
type dragState struct {
	active bool
	id     EntityID
	last   Vec2 // cursor on the plane at the previous frame
	moved  bool
}

// Editor is the selection and placement workflow. Step consumes one frame
// of input; every change it makes is picked up by the scene's next Frame.
//
// The selection is an EntityID validated against the scene on every use.
// The clipboard is a deep copy and is unaffected by later edits or deletion
// of its source.
type Editor struct {
	scene   *Scene
	catalog *Catalog

	tool      Tool
	current   int
	preview   *Entity
	placeKind Kind
	previewZ  float64
	snapping  bool

	selected  EntityID
	clipboard *Entity
	drag      dragState

	lastClick    Vec2
	hasLastClick bool

	messages []string
	frames   int

	// NudgeStep is the arrow-key move distance; shift multiplies it by 10.
	NudgeStep float64
	// ZStep is the PageUp/PageDown height change of the placement preview.
	ZStep float64
	// PasteOffset is added to the clipboard position on every paste.
	PasteOffset Vec2
	// ScrollSeconds is the duration of the focus-selection camera tween.
	ScrollSeconds float32
	// FollowLerp is the camera follow smoothing used by ToggleFollow.
	FollowLerp float64
	// BoundsMargin pads the scene extents used by ToggleCameraBounds.
	BoundsMargin float64
	// CatalogDir is reloaded by Ctrl+R. Empty disables the shortcut.
	CatalogDir string
	// FileCheckFrames is how many Steps pass between checks for an external
	// change to the scene file. Zero disables the check.
	FileCheckFrames int
}

// NewEditor creates an editor for s. A nil catalog is treated as empty.
func NewEditor(s *Scene, c *Catalog) *Editor {
	if c == nil {
		c = NewCatalog()
	}
	ed := &Editor{
		scene:           s,
		catalog:         c,
		NudgeStep:       DefaultNudgeStep,
		ZStep:           DefaultZStep,
		PasteOffset:     Vec2{16, 16},
		ScrollSeconds:   defaultScrollSeconds,
		FollowLerp:      defaultFollowLerp,
		BoundsMargin:    defaultBoundsMargin,
		FileCheckFrames: defaultFileCheck,
	}
	s.OnDelete(func(id EntityID) {
		if id == AllEntities || id == ed.selected {
			ed.clearSelection()
		}
	})
	return ed
}

// Scene returns the edited scene.
func (ed *Editor) Scene() *Scene {
	return ed.scene
}

// Catalog returns the template catalog.
func (ed *Editor) Catalog() *Catalog {
	return ed.catalog
}

// --- Tools and preview ---

// Tool returns the active tool.
func (ed *Editor) Tool() Tool {
	return ed.tool
}

// SetTool switches tools. Entering ToolPlace builds the preview entity for
// the current template; leaving it discards the preview.
func (ed *Editor) SetTool(t Tool) {
	ed.tool = t
	ed.endDrag()
	if t == ToolPlace {
		ed.rebuildPreview()
		return
	}
	ed.preview = nil
}

// Preview returns the placement preview. It is a KindTemporary entity that
// is not part of the scene.
func (ed *Editor) Preview() *Entity {
	return ed.preview
}

// CurrentTemplate returns the index of the template being placed.
func (ed *Editor) CurrentTemplate() int {
	return ed.current
}

// SetCurrentTemplate selects the template placed by ToolPlace. The index
// wraps around the catalog.
func (ed *Editor) SetCurrentTemplate(i int) {
	n := ed.catalog.Len()
	if n == 0 {
		ed.current = 0
		ed.preview = nil
		return
	}
	ed.current = ((i % n) + n) % n
	if ed.tool == ToolPlace {
		ed.rebuildPreview()
	}
}

// SetCurrentTemplateByName selects the named template. It returns false and
// leaves the selection unchanged when the catalog has no such template.
func (ed *Editor) SetCurrentTemplateByName(name string) bool {
	i := ed.catalog.Index(name)
	if i < 0 {
		return false
	}
	ed.SetCurrentTemplate(i)
	return true
}

// ReloadCatalog replaces the catalog with the templates in dir and refreshes
// placed entities from them. The current template is kept by name when it
// still exists. Templates that fail to parse are reported and skipped.
func (ed *Editor) ReloadCatalog(dir string) bool {
	c, err := LoadCatalog(dir)
	if c == nil {
		ed.Notify(fmt.Sprintf("Reload failed: %v", err))
		Logger().Warn("catalog reload failed", zap.String("dir", dir), zap.Error(err))
		return false
	}
	if err != nil {
		ed.Notify(fmt.Sprintf("Skipped templates: %v", err))
	}
	var name string
	if t, ok := ed.catalog.At(ed.current); ok {
		name = t.Name
	}
	ed.catalog = c
	if !ed.SetCurrentTemplateByName(name) {
		ed.SetCurrentTemplate(0)
	}
	n := ed.scene.RefreshFromCatalog(c)
	ed.Notify(fmt.Sprintf("Reloaded %d templates, refreshed %d entities", c.Len(), n))
	return true
}

func (ed *Editor) rebuildPreview() {
	t, ok := ed.catalog.At(ed.current)
	if !ok {
		ed.preview = nil
		return
	}
	var pos Vec3
	if ed.preview != nil {
		pos = ed.preview.pos
	}
	ed.preview = t.Instantiate(pos)
	ed.placeKind = ed.preview.Kind
	ed.preview.Kind = KindTemporary
}

// movePreview places the preview under the screen point at the current
// preview height. While snapping, the preview's sprite is aligned to a grid
// of cells the size of the template.
func (ed *Editor) movePreview(cursor Vec2) {
	if ed.preview == nil {
		return
	}
	v := ed.scene.View()
	p := v.ScreenToPlane(cursor)
	z := ed.previewZ
	g := Vec2{p.X - v.Props.ZAxis.X*z, p.Y - v.Props.ZAxis.Y*z}
	if ed.snapping {
		g = snapToCell(g, ed.preview)
	}
	ed.preview.SetPosition(Vec3{g.X, g.Y, z})
}

// snapToCell moves p so e's sprite exactly covers the grid cell containing p.
func snapToCell(p Vec2, e *Entity) Vec2 {
	w, h := gridCell(e.Size)
	return Vec2{
		math.Floor(p.X/w)*w + e.Pivot.X*w,
		math.Floor(p.Y/h)*h + e.Pivot.Y*h,
	}
}

func gridCell(size Vec2) (w, h float64) {
	return max(size.X, 1), max(size.Y, 1)
}

// Snapping reports whether placement is aligned to the grid this frame.
func (ed *Editor) Snapping() bool {
	return ed.snapping
}

// Place inserts a copy of the preview into the scene and selects it.
// Returns NoEntity when there is nothing to place.
func (ed *Editor) Place() EntityID {
	if ed.preview == nil {
		return NoEntity
	}
	e := ed.preview.Clone()
	e.Kind = ed.placeKind
	id := ed.scene.AddEntity(e)
	ed.Select(id)
	return id
}

// --- Selection ---

// SelectedID returns the selected entity ID after validating it.
func (ed *Editor) SelectedID() EntityID {
	if _, ok := ed.Selected(); !ok {
		return NoEntity
	}
	return ed.selected
}

// Selected returns the selected entity. A selection whose entity no longer
// exists is cleared.
func (ed *Editor) Selected() (*Entity, bool) {
	if ed.selected == NoEntity {
		return nil, false
	}
	e, ok := ed.scene.Buckets.Entity(ed.selected)
	if !ok {
		ed.clearSelection()
		return nil, false
	}
	return e, true
}

// Select selects id. An unknown ID clears the selection.
func (ed *Editor) Select(id EntityID) {
	if _, ok := ed.scene.Buckets.Entity(id); !ok {
		id = NoEntity
	}
	if id == ed.selected {
		return
	}
	ed.selected = id
	ed.scene.emit(SceneEvent{Type: EventEntitySelected, EntityID: id})
}

func (ed *Editor) clearSelection() {
	ed.selected = NoEntity
	ed.endDrag()
}

// Pick selects the front-most entity under the screen point. Clicking again
// at the same point selects the next entity stacked beneath the current one.
func (ed *Editor) Pick(cursor Vec2) EntityID {
	v := ed.scene.View()
	exclude := NoEntity
	if ed.hasLastClick && cursor.Sub(ed.lastClick).Len() <= cycleClickTolerance {
		exclude = ed.SelectedID()
	}
	ed.lastClick, ed.hasLastClick = cursor, true

	id := ed.scene.Buckets.SeekEntity(cursor, v, exclude)
	if id == NoEntity && exclude != NoEntity {
		// Nothing else under the cursor; keep the current selection.
		id = exclude
	}
	ed.Select(id)
	return ed.selected
}

// --- Selection-dependent operations. Each is a no-op without a live selection. ---

// DeleteSelected deletes the selected entity.
func (ed *Editor) DeleteSelected() bool {
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	return ed.scene.DeleteEntity(e.id)
}

// Copy stores a deep copy of the selected entity in the clipboard.
func (ed *Editor) Copy() bool {
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	ed.clipboard = e.Clone()
	return true
}

// HasClipboard reports whether Paste has something to paste.
func (ed *Editor) HasClipboard() bool {
	return ed.clipboard != nil
}

// Paste adds a new entity copied from the clipboard, offset by PasteOffset
// from the previous paste, and selects it.
func (ed *Editor) Paste() EntityID {
	if ed.clipboard == nil {
		return NoEntity
	}
	ed.clipboard.AddToPositionXY(ed.PasteOffset)
	id := ed.scene.AddEntity(ed.clipboard.Clone())
	ed.Select(id)
	return id
}

// ToggleStatic switches the selected entity between static and dynamic.
func (ed *Editor) ToggleStatic() bool {
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	k := KindStatic
	if e.IsStatic() {
		k = KindDynamic
	}
	return ed.scene.SetKind(e.id, k)
}

// Nudge moves the selected entity by d on the plane.
func (ed *Editor) Nudge(d Vec2) bool {
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	e.AddToPositionXY(d)
	ed.scene.EntityMoved(e.id)
	return true
}

// FocusSelected scrolls the camera to the selected entity.
func (ed *Editor) FocusSelected() bool {
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	p := ed.scene.View().Plane(e.pos)
	ed.scene.Camera.ScrollTo(p.X, p.Y, ed.ScrollSeconds, ease.OutCubic)
	return true
}

// ToggleFollow makes the camera follow the selected entity, or stops an
// active follow. It reports whether the camera follows afterwards.
func (ed *Editor) ToggleFollow() bool {
	cam := ed.scene.Camera
	if cam.Following() != NoEntity {
		cam.Unfollow()
		ed.Notify("Camera released")
		return false
	}
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	cam.Follow(e.id, Vec2{}, ed.FollowLerp)
	ed.Notify(fmt.Sprintf("Camera following #%d", e.id))
	return true
}

// ToggleCameraBounds clamps the camera to the scene extents padded by
// BoundsMargin, or lifts an active clamp. It reports whether bounds are set
// afterwards.
func (ed *Editor) ToggleCameraBounds() bool {
	cam := ed.scene.Camera
	if _, ok := cam.Bounds(); ok {
		cam.ClearBounds()
		ed.Notify("Camera bounds off")
		return false
	}
	r, ok := ed.scene.Extents()
	if !ok {
		ed.Notify("Camera bounds need at least one entity")
		return false
	}
	cam.SetBounds(r.Grow(ed.BoundsMargin, ed.BoundsMargin))
	ed.Notify("Camera bounds on")
	return true
}

// CenterCamera moves the camera to the plane origin and stops following.
func (ed *Editor) CenterCamera() {
	ed.scene.Camera.Unfollow()
	ed.scene.Camera.SetPosition(0, 0)
}

// ToggleParticles stops the selected entity's particle systems when any is
// emitting, and starts them all otherwise.
func (ed *Editor) ToggleParticles() bool {
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	pe, ok := e.AsParticleEmitting()
	if !ok {
		return false
	}
	systems := pe.ParticleSystems()
	running := slices.ContainsFunc(systems, (*ParticleSystem).IsActive)
	for _, ps := range systems {
		if running {
			ps.Stop()
		} else {
			ps.Start()
		}
	}
	return true
}

// SetCustom sets a custom data value on the selected entity. An empty value
// deletes the key.
func (ed *Editor) SetCustom(key, value string) bool {
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	if value == "" {
		delete(e.Custom, key)
		return true
	}
	if e.Custom == nil {
		e.Custom = make(map[string]string)
	}
	e.Custom[key] = value
	return true
}

// Rename renames the selected entity.
func (ed *Editor) Rename(name string) bool {
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	e.Name = name
	return true
}

// Rotate adds delta radians to the selected entity's angle.
func (ed *Editor) Rotate(delta float64) bool {
	e, ok := ed.Selected()
	if !ok {
		return false
	}
	e.Angle += delta
	ed.scene.EntityChanged(e.id)
	return true
}

// --- Drag ---

func (ed *Editor) beginDrag(id EntityID, cursor Vec2) {
	ed.drag = dragState{active: true, id: id, last: ed.scene.View().ScreenToPlane(cursor)}
}

func (ed *Editor) updateDrag(cursor Vec2) {
	e, ok := ed.scene.Buckets.Entity(ed.drag.id)
	if !ok || ed.drag.id != ed.selected {
		ed.endDrag()
		return
	}
	p := ed.scene.View().ScreenToPlane(cursor)
	d := p.Sub(ed.drag.last)
	if d.X == 0 && d.Y == 0 {
		return
	}
	e.AddToPositionXY(d)
	ed.drag.last = p
	ed.drag.moved = true
}

func (ed *Editor) finishDrag() {
	if ed.drag.active && ed.drag.moved {
		ed.scene.EntityMoved(ed.drag.id)
	}
	ed.endDrag()
}

func (ed *Editor) endDrag() {
	ed.drag = dragState{}
}

// Dragging reports whether a drag is in progress.
func (ed *Editor) Dragging() bool {
	return ed.drag.active
}

// --- Scene properties ---

// SetAmbient sets the ambient color from editor fields. Components are
// clamped to [0, 1] before the next frame uses them.
func (ed *Editor) SetAmbient(r, g, b float64) {
	ed.scene.SetAmbient(Color{r, g, b, 1})
}

// SetLightIntensity sets the global light intensity, clamped to [0, 100].
func (ed *Editor) SetLightIntensity(v float64) {
	ed.scene.SetLightIntensity(v)
}

// SetParallax sets the parallax intensity.
func (ed *Editor) SetParallax(v float64) {
	ed.scene.SetParallax(v)
}

// SetZAxis sets the z-axis screen direction.
func (ed *Editor) SetZAxis(x, y float64) {
	ed.scene.SetZAxis(Vec2{x, y})
}

// --- Files and messages ---

// SaveScene saves the scene. Failures are reported through Messages.
func (ed *Editor) SaveScene(path string) bool {
	if err := ed.scene.Save(path); err != nil {
		ed.Notify(fmt.Sprintf("Save failed: %v", err))
		Logger().Warn("save failed", zap.String("path", path), zap.Error(err))
		return false
	}
	ed.Notify("Saved " + path)
	return true
}

// LoadScene loads a scene. On failure the current scene is kept and the
// error is reported through Messages.
func (ed *Editor) LoadScene(path string) bool {
	if err := ed.scene.Load(path); err != nil {
		ed.Notify(fmt.Sprintf("Load failed: %v", err))
		Logger().Warn("load failed", zap.String("path", path), zap.Error(err))
		return false
	}
	ed.Notify("Loaded " + path)
	return true
}

// CheckFileUpdate reloads the scene when its file was changed on disk by
// something other than this editor. It reports whether it reloaded.
func (ed *Editor) CheckFileUpdate() bool {
	changed, err := ed.scene.FileChanged()
	if err != nil {
		Logger().Debug("scene file check failed", zap.Error(err))
		return false
	}
	if !changed {
		return false
	}
	path := ed.scene.Path()
	if !ed.LoadScene(path) {
		// Report a broken file once, not on every check.
		ed.scene.fileTime = modTime(path)
		return false
	}
	ed.Notify("Reloaded changed file " + path)
	return true
}

// Notify appends a user-visible message, dropping the oldest beyond the
// message limit.
func (ed *Editor) Notify(msg string) {
	ed.messages = append(ed.messages, msg)
	if len(ed.messages) > maxMessages {
		ed.messages = slices.Delete(ed.messages, 0, len(ed.messages)-maxMessages)
	}
}

// Messages returns the on-screen messages, oldest first.
func (ed *Editor) Messages() []string {
	return ed.messages
}

// StatusLines describes the editor state for an on-screen overlay.
func (ed *Editor) StatusLines() []string {
	s := ed.scene
	p := s.Properties()
	lines := []string{
		fmt.Sprintf("tool: %s  entities: %d  buckets: %d", ed.tool, s.Buckets.Len(), s.Buckets.NumBuckets()),
		fmt.Sprintf("ambient: %s  intensity: %.1f  parallax: %.2f", HexColor(p.Ambient), p.LightIntensity, p.Parallax),
	}
	if ed.tool == ToolPlace {
		if t, ok := ed.catalog.At(ed.current); ok {
			line := fmt.Sprintf("placing: %s  z: %.0f", t.Name, ed.previewZ)
			if ed.snapping {
				line += "  snap"
			}
			lines = append(lines, line)
		}
	}
	if id := s.Camera.Following(); id != NoEntity {
		lines = append(lines, fmt.Sprintf("camera: following #%d", id))
	}
	if e, ok := ed.Selected(); ok {
		pos := e.Position()
		lines = append(lines, fmt.Sprintf("selected: #%d %s (%s) at %.0f,%.0f,%.0f",
			e.id, e.Name, e.Kind, pos.X, pos.Y, pos.Z))
		if s.Prefs.ShowCustomData {
			keys := make([]string, 0, len(e.Custom))
			for k := range e.Custom {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				lines = append(lines, fmt.Sprintf("  %s = %s", k, e.Custom[k]))
			}
		}
	}
	if s.UpdateLightsFlag() || s.Lightmaps.Pending() {
		lines = append(lines, "lightmaps: rebuilding")
	}
	return lines
}

// DrawOverlay draws the selection outline and the placement preview bounds,
// with the snapping grid under the preview while snapping.
func (ed *Editor) DrawOverlay(b Backend) {
	v := ed.scene.View()
	if ed.tool == ToolPlace && ed.preview != nil && ed.snapping {
		drawGrid(b, v, ed.preview.Size, ed.previewZ)
	}
	if e, ok := ed.Selected(); ok {
		outline(b, v.screenRect(e.Footprint(v)), Color{1, 1, 0, 1})
	}
	if ed.tool == ToolPlace && ed.preview != nil {
		outline(b, v.screenRect(ed.preview.Footprint(v)), Color{0, 1, 0, 0.6})
	}
}

// drawGrid draws the cell lines of a size grid raised to height z across the
// visible area. Grids too dense to read are skipped.
func drawGrid(b Backend, v View, size Vec2, z float64) {
	if v.Camera == nil {
		return
	}
	w, h := gridCell(size)
	r := v.Camera.VisibleBounds()
	if r.Width/w+r.Height/h > maxGridLines {
		return
	}
	ox, oy := v.Props.ZAxis.X*z, v.Props.ZAxis.Y*z
	c := Color{1, 1, 1, 0.27}
	for x := math.Floor((r.X-ox)/w)*w + ox; x <= r.X+r.Width; x += w {
		b.DrawLine(v.planeToScreen(Vec2{x, r.Y}), v.planeToScreen(Vec2{x, r.Y + r.Height}), c)
	}
	for y := math.Floor((r.Y-oy)/h)*h + oy; y <= r.Y+r.Height; y += h {
		b.DrawLine(v.planeToScreen(Vec2{r.X, y}), v.planeToScreen(Vec2{r.X + r.Width, y}), c)
	}
}

func outline(b Backend, r Rect, c Color) {
	tl := Vec2{r.X, r.Y}
	tr := Vec2{r.X + r.Width, r.Y}
	br := Vec2{r.X + r.Width, r.Y + r.Height}
	bl := Vec2{r.X, r.Y + r.Height}
	b.DrawLine(tl, tr, c)
	b.DrawLine(tr, br, c)
	b.DrawLine(br, bl, c)
	b.DrawLine(bl, tl, c)
}

// --- Frame input ---

// Step applies one frame of input. It only mutates scene state; the scene
// culls and renders the result on its next Frame.
func (ed *Editor) Step(in InputState) {
	if in.Hit(KeyTab) {
		if ed.tool == ToolPlace {
			ed.SetTool(ToolSelect)
		} else {
			ed.SetTool(ToolPlace)
		}
	}
	if in.Hit(KeyEscape) {
		ed.Select(NoEntity)
	}
	if in.Ctrl() && in.Hit(KeyS) && ed.scene.Path() != "" {
		ed.SaveScene(ed.scene.Path())
	}
	if in.Hit(KeyG) {
		ed.scene.RequestLightmaps(AllEntities)
	}
	if in.Ctrl() && in.Hit(KeySpace) {
		ed.CenterCamera()
	}
	if in.Ctrl() && in.Hit(KeyR) && ed.CatalogDir != "" {
		ed.ReloadCatalog(ed.CatalogDir)
	}
	ed.frames++
	if ed.FileCheckFrames > 0 && ed.frames%ed.FileCheckFrames == 0 {
		ed.CheckFileUpdate()
	}

	switch ed.tool {
	case ToolPlace:
		ed.stepPlace(in)
	default:
		ed.stepSelect(in)
	}
}

func (ed *Editor) stepPlace(in InputState) {
	if in.Wheel > 0 {
		ed.SetCurrentTemplate(ed.current + 1)
	} else if in.Wheel < 0 {
		ed.SetCurrentTemplate(ed.current - 1)
	}
	if in.Hit(KeyPageUp) {
		ed.previewZ += ed.ZStep
	}
	if in.Hit(KeyPageDown) {
		ed.previewZ -= ed.ZStep
	}
	ed.snapping = in.Shift()
	ed.movePreview(in.Cursor)
	if in.Hit(KeyMouseLeft) {
		ed.Place()
	}
}

func (ed *Editor) stepSelect(in InputState) {
	switch {
	case in.Hit(KeyMouseLeft):
		if id := ed.Pick(in.Cursor); id != NoEntity {
			ed.beginDrag(id, in.Cursor)
		}
	case in.Down(KeyMouseLeft) && ed.drag.active:
		ed.updateDrag(in.Cursor)
	case in.Released(KeyMouseLeft):
		if ed.drag.active {
			ed.updateDrag(in.Cursor)
		}
		ed.finishDrag()
	}

	if in.Hit(KeyDelete) {
		ed.DeleteSelected()
	}
	if in.Ctrl() && in.Hit(KeyC) {
		ed.Copy()
	}
	if in.Ctrl() && in.Hit(KeyV) {
		ed.Paste()
	}
	if in.Hit(KeyT) && !in.Ctrl() {
		ed.ToggleStatic()
	}
	if in.Hit(KeyF) {
		ed.FocusSelected()
	}
	if in.Hit(KeyL) {
		ed.ToggleFollow()
	}
	if in.Hit(KeyB) {
		ed.ToggleCameraBounds()
	}
	if in.Hit(KeyP) {
		ed.ToggleParticles()
	}

	step := ed.NudgeStep
	if in.Shift() {
		step *= 10
	}
	var d Vec2
	if in.Hit(KeyArrowLeft) {
		d.X -= step
	}
	if in.Hit(KeyArrowRight) {
		d.X += step
	}
	if in.Hit(KeyArrowUp) {
		d.Y -= step
	}
	if in.Hit(KeyArrowDown) {
		d.Y += step
	}
	if d.X != 0 || d.Y != 0 {
		ed.Nudge(d)
	}
}
