package umbra

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventType identifies a kind of scene event.
type EventType uint8

const (
	EventEntityAdded    EventType = iota // entity inserted by placement, paste, or load
	EventEntityDeleted                   // entity removed explicitly or by lifetime expiry
	EventEntityMoved                     // entity position committed by the editor
	EventEntitySelected                  // selection changed; EntityID may be NoEntity
	EventKindChanged                     // entity toggled between static and dynamic
	EventLightmapsBaked                  // a synchronous bake published a new set
	EventSceneLoaded                     // a scene file replaced the scene contents
)

// String returns a short name for logs.
func (t EventType) String() string {
	switch t {
	case EventEntityAdded:
		return "added"
	case EventEntityDeleted:
		return "deleted"
	case EventEntityMoved:
		return "moved"
	case EventEntitySelected:
		return "selected"
	case EventKindChanged:
		return "kind_changed"
	case EventLightmapsBaked:
		return "lightmaps_baked"
	case EventSceneLoaded:
		return "scene_loaded"
	default:
		return "unknown"
	}
}

// SceneEvent is delivered to the EventStore.
type SceneEvent struct {
	Type     EventType
	EntityID EntityID
	Position Vec3
}

// EventStore is the interface for optional ECS integration.
// When set on a Scene, scene and editor events are forwarded to it.
type EventStore interface {
	EmitEvent(event SceneEvent)
}

// Scene aggregates the bucket manager, the scene-wide properties, and the
// lighting state, and runs the per-frame sequence.
type Scene struct {
	Buckets   *BucketManager
	Lightmaps *LightmapGenerator
	Camera    *Camera
	Prefs     *Preferences

	props    SceneProperties
	renderer *PassRenderer
	store    EventStore
	debug    bool

	// updateLights is set when a change affects more than one lightmap.
	updateLights bool
	deleteHooks  []func(EntityID)
	lastStats    FrameStats
	path         string
	fileTime     time.Time // modification time of path at the last save or load
}

// NewScene creates an empty scene. A nil camera gets a 1280x720 viewport
// and nil prefs get in-memory defaults.
func NewScene(cam *Camera, prefs *Preferences) *Scene {
	if cam == nil {
		cam = NewCamera(Rect{Width: 1280, Height: 720})
	}
	if prefs == nil {
		prefs = DefaultPreferences()
	}
	return &Scene{
		Buckets:   NewBucketManager(Vec2{DefaultBucketSize, DefaultBucketSize}),
		Lightmaps: NewLightmapGenerator(),
		Camera:    cam,
		Prefs:     prefs,
		props:     DefaultSceneProperties(),
	}
}

// SetRenderer sets the pass renderer used by Frame. A nil renderer makes
// Frame skip the render step.
func (s *Scene) SetRenderer(r *PassRenderer) {
	s.renderer = r
	if r != nil {
		r.ShowInvisible = s.Prefs.ShowInvisible
	}
}

// Renderer returns the pass renderer, or nil.
func (s *Scene) Renderer() *PassRenderer {
	return s.renderer
}

// SetEntityStore sets the optional event bridge.
func (s *Scene) SetEntityStore(store EventStore) {
	s.store = store
}

// SetDebugMode enables per-frame timing stats logged at debug level.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
}

// Path returns the file the scene was last loaded from or saved to.
func (s *Scene) Path() string {
	return s.path
}

// LastStats returns the render stats of the most recent Frame.
func (s *Scene) LastStats() FrameStats {
	return s.lastStats
}

// --- Properties ---

// Properties returns a copy of the scene properties.
func (s *Scene) Properties() SceneProperties {
	return s.props
}

// SetProperties replaces the scene properties, clamping out-of-range values.
func (s *Scene) SetProperties(p SceneProperties) {
	s.props = p.Sanitized()
}

// SetAmbient sets the ambient color; components are clamped to [0, 1].
func (s *Scene) SetAmbient(c Color) {
	s.props.SetAmbient(c)
}

// SetLightIntensity sets the global light intensity, clamped to [0, 100].
func (s *Scene) SetLightIntensity(v float64) {
	s.props.SetLightIntensity(v)
}

// SetParallax sets the parallax intensity.
func (s *Scene) SetParallax(v float64) {
	s.props.SetParallax(v)
}

// SetZAxis sets the screen direction of the z axis.
func (s *Scene) SetZAxis(v Vec2) {
	s.props.SetZAxis(v)
}

// View returns the camera and properties for projection this frame.
func (s *Scene) View() View {
	return View{Camera: s.Camera, Props: s.props}
}

// --- Entities ---

// OnDelete registers fn to run, in the same call, whenever an entity is
// deleted from the scene. fn receives AllEntities when Load replaces the
// whole scene.
func (s *Scene) OnDelete(fn func(EntityID)) {
	s.deleteHooks = append(s.deleteHooks, fn)
}

// AddEntity inserts e and schedules the lightmap work its kind requires.
func (s *Scene) AddEntity(e *Entity) EntityID {
	id := s.Buckets.AddEntity(e)
	s.lightingChanged(e, e.IsStatic())
	s.emit(SceneEvent{Type: EventEntityAdded, EntityID: id, Position: e.pos})
	return id
}

// DeleteEntity removes an entity. Delete hooks run before it returns, so a
// selection holding id is already cleared. Returns false for unknown IDs.
func (s *Scene) DeleteEntity(id EntityID) bool {
	e, ok := s.Buckets.Entity(id)
	if !ok {
		return false
	}
	static := e.IsStatic()
	pos := e.pos
	s.Buckets.DeleteEntityByID(id)
	if static {
		s.Lightmaps.Forget(id)
	}
	for _, fn := range s.deleteHooks {
		fn(id)
	}
	s.lightingChangedID(id, e, static)
	s.emit(SceneEvent{Type: EventEntityDeleted, EntityID: id, Position: pos})
	return true
}

// SetKind changes an entity between static, dynamic, and temporary. A change
// to or from static with light or shadow influence sets the update-lights
// flag. Returns false for unknown IDs.
func (s *Scene) SetKind(id EntityID, k Kind) bool {
	e, ok := s.Buckets.Entity(id)
	if !ok {
		return false
	}
	if e.Kind == k {
		return true
	}
	wasStatic := e.IsStatic()
	e.Kind = k
	s.lightingChanged(e, wasStatic || e.IsStatic())
	s.emit(SceneEvent{Type: EventKindChanged, EntityID: id, Position: e.pos})
	return true
}

// EntityMoved records that the editor committed a move of id.
func (s *Scene) EntityMoved(id EntityID) {
	e, ok := s.Buckets.Entity(id)
	if !ok {
		return
	}
	s.lightingChanged(e, e.IsStatic())
	s.emit(SceneEvent{Type: EventEntityMoved, EntityID: id, Position: e.pos})
}

// EntityChanged records an edit to a lighting-relevant property of id
// (light, shadow flags, size).
func (s *Scene) EntityChanged(id EntityID) {
	if e, ok := s.Buckets.Entity(id); ok {
		s.lightingChanged(e, e.IsStatic())
	}
}

func (s *Scene) lightingChanged(e *Entity, static bool) {
	s.lightingChangedID(e.id, e, static)
}

func (s *Scene) lightingChangedID(id EntityID, e *Entity, static bool) {
	if !static {
		return
	}
	if e.influencesLighting() {
		s.updateLights = true
		s.Lightmaps.InvalidateAll()
		return
	}
	s.Lightmaps.Invalidate(id)
}

// UpdateLightsFlag reports whether a full lightmap rebake is pending.
func (s *Scene) UpdateLightsFlag() bool {
	return s.updateLights
}

// RequestLightmaps schedules a bake of one entity, or of every entity with
// AllEntities, for the end of the next frame.
func (s *Scene) RequestLightmaps(only EntityID) {
	if only == AllEntities {
		s.updateLights = true
		s.Lightmaps.InvalidateAll()
		return
	}
	s.Lightmaps.Invalidate(only)
}

// GenerateLightmaps bakes synchronously, bypassing the frame sequence.
func (s *Scene) GenerateLightmaps(ctx context.Context, only EntityID) (*LightmapSet, error) {
	set, err := s.Lightmaps.GenerateLightmaps(ctx, s.Buckets, only)
	if err != nil {
		return set, err
	}
	if only == AllEntities {
		s.updateLights = false
	}
	s.emit(SceneEvent{Type: EventLightmapsBaked, EntityID: only})
	return set, nil
}

// --- Frame ---

// Update advances the camera and time-based entity state: animation,
// particles, and temporary-entity lifetimes. Expired entities are deleted
// through DeleteEntity.
func (s *Scene) Update(dt float64) {
	if id := s.Camera.Following(); id != NoEntity {
		if e, ok := s.Buckets.Entity(id); ok {
			s.Camera.chase(s.View().Plane(e.pos))
		} else {
			s.Camera.Unfollow()
		}
	}
	s.Camera.Update(float32(dt))
	v := s.View()

	var expired []EntityID
	for _, e := range s.Buckets.GetEntityArray() {
		e.advance(dt, v)
		if e.Kind == KindTemporary && e.Lifetime > 0 {
			e.Lifetime -= dt
			if e.Lifetime <= 0 {
				expired = append(expired, e.id)
			}
		}
	}
	for _, id := range expired {
		s.DeleteEntity(id)
	}
}

// RefreshFromCatalog re-applies each entity's template from c. Entities
// whose template c does not define are left alone. Returns the number of
// entities refreshed.
func (s *Scene) RefreshFromCatalog(c *Catalog) int {
	n := 0
	relight := false
	for _, e := range s.Buckets.GetEntityArray() {
		if e.Template == "" {
			continue
		}
		t, err := c.ByName(e.Template)
		if err != nil {
			continue
		}
		before := e.influencesLighting()
		e.adopt(t.Prototype())
		s.Buckets.track(e)
		if e.IsStatic() {
			relight = relight || before || e.influencesLighting()
			s.Lightmaps.Invalidate(e.id)
		}
		n++
	}
	if relight {
		s.RequestLightmaps(AllEntities)
	}
	if n > 0 {
		Logger().Info("entities refreshed from catalog", zap.Int("count", n))
	}
	return n
}

// Extents returns the union of every entity's drawn footprint, or false for
// an empty scene.
func (s *Scene) Extents() (Rect, bool) {
	v := s.View()
	var r Rect
	n := 0
	for _, e := range s.Buckets.GetEntityArray() {
		if n == 0 {
			r = e.Footprint(v)
		} else {
			r = r.Union(e.Footprint(v))
		}
		n++
	}
	return r, n > 0
}

// Visible returns the entities in the camera-visible buckets. The camera
// rectangle is grown by the bucket manager's displacement so raised entities
// drawn on screen are kept even when their ground bucket is off screen.
func (s *Scene) Visible() []*Entity {
	d := s.Buckets.Displacement(s.View())
	return s.Buckets.GetVisibleEntities(s.Camera.VisibleBounds().Grow(d.X, d.Y))
}

// Frame runs one frame in fixed order: update, cull, render, then apply
// pending lightmap invalidation. Input-driven edits made after Frame
// returns are seen by the next frame.
func (s *Scene) Frame(dt float64) FrameStats {
	var ds debugStats
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}

	s.Update(dt)
	if s.debug {
		ds.updateTime = time.Since(t0)
		t0 = time.Now()
	}

	visible := s.Visible()
	if s.debug {
		ds.cullTime = time.Since(t0)
		ds.visible = len(visible)
		t0 = time.Now()
	}

	var st FrameStats
	if s.renderer != nil {
		var maps *LightmapSet
		if s.Prefs.LightmapsEnabled {
			maps = s.Lightmaps.Current()
		}
		s.renderer.ShowInvisible = s.Prefs.ShowInvisible
		st = s.renderer.Render(visible, s.View(), maps)
	}
	s.lastStats = st
	if s.debug {
		ds.renderTime = time.Since(t0)
		t0 = time.Now()
	}

	s.applyInvalidation()
	if s.debug {
		ds.bakeTime = time.Since(t0)
		ds.frame = st
		s.debugLog(ds)
	}
	return st
}

// applyInvalidation bakes whatever was invalidated. Nothing is baked while
// lightmaps are disabled; the invalidation stays pending until they are
// enabled again.
func (s *Scene) applyInvalidation() {
	if !s.Prefs.LightmapsEnabled || !s.Lightmaps.Dirty() {
		return
	}
	async := s.Prefs.AsyncLightmaps
	if err := s.Lightmaps.Apply(context.Background(), s.Buckets, async); err != nil {
		Logger().Warn("lightmap bake failed", zap.Error(err))
		return
	}
	s.updateLights = false
	if !async {
		s.emit(SceneEvent{Type: EventLightmapsBaked, EntityID: AllEntities})
	}
}

func (s *Scene) emit(ev SceneEvent) {
	if s.store != nil {
		s.store.EmitEvent(ev)
	}
}
