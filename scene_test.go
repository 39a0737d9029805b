package umbra

import (
	"context"
	"math"
	"testing"
)

type recordingStore struct {
	events []SceneEvent
}

func (r *recordingStore) EmitEvent(ev SceneEvent) {
	r.events = append(r.events, ev)
}

func (r *recordingStore) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func TestNewSceneDefaults(t *testing.T) {
	s := NewScene(nil, nil)
	if s.Camera == nil || s.Prefs == nil || s.Buckets == nil || s.Lightmaps == nil {
		t.Fatal("NewScene left a component nil")
	}
	if s.Camera.Viewport.Width != 1280 || s.Camera.Viewport.Height != 720 {
		t.Errorf("default viewport = %+v", s.Camera.Viewport)
	}
	if s.Properties() != DefaultSceneProperties() {
		t.Errorf("properties = %+v", s.Properties())
	}
}

func TestSceneSetDebugMode(t *testing.T) {
	s := testScene()
	s.SetDebugMode(true)
	if !s.debug {
		t.Error("debug should be true")
	}
	s.SetDebugMode(false)
	if s.debug {
		t.Error("debug should be false")
	}
}

func TestSceneEvents(t *testing.T) {
	s := testScene()
	store := &recordingStore{}
	s.SetEntityStore(store)

	id := s.AddEntity(sprite("a", 10, 10))
	s.SetKind(id, KindStatic)
	s.SetKind(id, KindStatic) // unchanged, no event
	s.EntityMoved(id)
	s.DeleteEntity(id)
	s.DeleteEntity(id) // unknown, no event

	want := []EventType{EventEntityAdded, EventKindChanged, EventEntityMoved, EventEntityDeleted}
	got := store.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
	if store.events[0].EntityID != id || store.events[0].Position != (Vec3{X: 10, Y: 10}) {
		t.Errorf("added event = %+v", store.events[0])
	}
}

func TestSceneNilStore(t *testing.T) {
	s := testScene()
	s.SetEntityStore(nil)
	s.AddEntity(NewEntity("a")) // must not panic
}

func TestDeleteHooksRunBeforeReturn(t *testing.T) {
	s := testScene()
	id := s.AddEntity(sprite("a", 0, 0))
	var got []EntityID
	s.OnDelete(func(d EntityID) { got = append(got, d) })

	if !s.DeleteEntity(id) {
		t.Fatal("DeleteEntity failed")
	}
	if len(got) != 1 || got[0] != id {
		t.Errorf("hook saw %v, want [%d]", got, id)
	}
	if s.DeleteEntity(id) {
		t.Error("second delete succeeded")
	}
	if len(got) != 1 {
		t.Error("hook ran for an unknown ID")
	}
}

func TestDeleteStaticLightInvalidatesAll(t *testing.T) {
	s, torch, _ := litScene(t)
	s.Frame(0)
	if s.UpdateLightsFlag() {
		t.Fatal("flag still set after bake")
	}
	s.DeleteEntity(torch)
	if !s.UpdateLightsFlag() {
		t.Error("deleting a static light did not request a full rebake")
	}
}

func TestDeleteDynamicEntityLeavesLightmaps(t *testing.T) {
	s, _, _ := litScene(t)
	s.Frame(0)
	id := s.AddEntity(sprite("walker", 10, 10))
	s.DeleteEntity(id)
	if s.Lightmaps.Dirty() || s.UpdateLightsFlag() {
		t.Error("dynamic entity churn invalidated lightmaps")
	}
}

func TestTemporaryEntityExpires(t *testing.T) {
	s := testScene()
	store := &recordingStore{}
	s.SetEntityStore(store)
	e := sprite("spark", 400, 300)
	e.Kind = KindTemporary
	e.Lifetime = 0.5
	id := s.AddEntity(e)

	s.Update(0.3)
	if _, ok := s.Buckets.Entity(id); !ok {
		t.Fatal("temporary entity expired early")
	}
	s.Update(0.3)
	if _, ok := s.Buckets.Entity(id); ok {
		t.Error("temporary entity did not expire")
	}
	if last := store.events[len(store.events)-1]; last.Type != EventEntityDeleted || last.EntityID != id {
		t.Errorf("last event = %+v", last)
	}
}

func TestTemporaryWithoutLifetimeStays(t *testing.T) {
	s := testScene()
	e := sprite("marker", 0, 0)
	e.Kind = KindTemporary
	id := s.AddEntity(e)
	s.Update(100)
	if _, ok := s.Buckets.Entity(id); !ok {
		t.Error("temporary entity without lifetime was deleted")
	}
}

func TestFrameOrder(t *testing.T) {
	s, b := testRenderer(t, RenderPS)

	// Expires during this frame's update, so it is never drawn.
	tmp := sprite("spark", 400, 300)
	tmp.Kind = KindTemporary
	tmp.Lifetime = 0.01
	s.AddEntity(tmp)

	s.AddEntity(staticLight("torch", 400, 300, 200))
	floor := sprite("floor", 450, 300)
	floor.Kind = KindStatic
	s.AddEntity(floor)

	st := s.Frame(0.1)
	if b.count("sprite") == 0 {
		t.Fatal("nothing drawn")
	}
	for _, c := range b.calls {
		if c.op == "sprite" && c.sprite.Path == "spark.png" {
			t.Fatal("expired entity drawn in the frame it expired")
		}
	}
	// The bake runs after rendering, so this frame had no lightmaps.
	if st.LightmapDraws != 0 {
		t.Errorf("first frame lightmap draws = %d, want 0", st.LightmapDraws)
	}
	if s.Lightmaps.Current().Len() != 2 {
		t.Fatalf("lightmaps after frame = %d, want 2", s.Lightmaps.Current().Len())
	}

	b.reset()
	if st := s.Frame(0.1); st.LightmapDraws != 2 {
		t.Errorf("second frame lightmap draws = %d, want 2", st.LightmapDraws)
	}
	if s.LastStats().LightmapDraws != 2 {
		t.Error("LastStats not recorded")
	}
}

func TestFrameWithoutRenderer(t *testing.T) {
	s := testScene()
	s.AddEntity(staticLight("torch", 0, 0, 100))
	st := s.Frame(1.0 / 60)
	if st != (FrameStats{}) {
		t.Errorf("stats without renderer = %+v", st)
	}
	if s.Lightmaps.Current().Len() != 1 {
		t.Error("frame without renderer skipped the bake")
	}
}

func TestVisibleKeepsRaisedEntity(t *testing.T) {
	s := testScene()
	e := sprite("balloon", 400, 1200)
	e.SetPosition(Vec3{X: 400, Y: 1200, Z: 1000})
	id := s.AddEntity(e)
	if got := s.View().Plane(e.Position()); got != (Vec2{400, 200}) {
		t.Fatalf("drawn at %v", got)
	}
	found := false
	for _, v := range s.Visible() {
		found = found || v.ID() == id
	}
	if !found {
		t.Error("raised entity drawn on screen was culled")
	}
}

func TestFrameAsyncBake(t *testing.T) {
	s, _, floor := litScene(t)
	s.Prefs.AsyncLightmaps = true
	store := &recordingStore{}
	s.SetEntityStore(store)

	s.Frame(0)
	s.Lightmaps.Wait()
	mapOf(t, s.Lightmaps.Current(), floor)
	for _, ev := range store.events {
		if ev.Type == EventLightmapsBaked {
			t.Error("async bake emitted a baked event from the frame")
		}
	}
}

func TestGenerateLightmapsClearsFlagAndEmits(t *testing.T) {
	s, _, _ := litScene(t)
	store := &recordingStore{}
	s.SetEntityStore(store)
	if !s.UpdateLightsFlag() {
		t.Fatal("flag not set by static light")
	}
	if _, err := s.GenerateLightmaps(context.Background(), AllEntities); err != nil {
		t.Fatal(err)
	}
	if s.UpdateLightsFlag() {
		t.Error("full bake left the flag set")
	}
	if n := len(store.events); n != 1 || store.events[0].Type != EventLightmapsBaked {
		t.Errorf("events = %v", store.types())
	}
}

func TestRequestLightmaps(t *testing.T) {
	s := testScene()
	f := sprite("floor", 0, 0)
	f.Kind = KindStatic
	id := s.AddEntity(f)
	s.Frame(0)

	s.RequestLightmaps(id)
	if !s.Lightmaps.Dirty() || s.UpdateLightsFlag() {
		t.Error("single request should invalidate one entity")
	}
	s.RequestLightmaps(AllEntities)
	if !s.UpdateLightsFlag() {
		t.Error("full request did not set the flag")
	}
}

func TestSetPropertiesClamps(t *testing.T) {
	s := testScene()
	s.SetProperties(SceneProperties{
		Ambient:        Color{2, -1, 0.5, 0},
		LightIntensity: 500,
		Parallax:       -3,
		ZAxis:          Vec2{1, 1},
	})
	p := s.Properties()
	if p.Ambient != (Color{1, 0, 0.5, 1}) {
		t.Errorf("ambient = %+v", p.Ambient)
	}
	if p.LightIntensity != MaxLightIntensity {
		t.Errorf("intensity = %v", p.LightIntensity)
	}
	if p.Parallax != -3 || p.ZAxis != (Vec2{1, 1}) {
		t.Error("unclamped fields changed")
	}

	s.SetLightIntensity(-1)
	if s.Properties().LightIntensity != MinLightIntensity {
		t.Errorf("intensity = %v, want %v", s.Properties().LightIntensity, MinLightIntensity)
	}
	s.SetAmbient(Color{0.2, 0.3, 0.4, 0.1})
	if s.Properties().Ambient != (Color{0.2, 0.3, 0.4, 1}) {
		t.Errorf("ambient = %+v", s.Properties().Ambient)
	}
}

func TestEventTypeString(t *testing.T) {
	if EventKindChanged.String() != "kind_changed" {
		t.Errorf("String = %q", EventKindChanged.String())
	}
	if EventType(99).String() != "unknown" {
		t.Error("unknown event type name")
	}
}

func TestRefreshFromCatalog(t *testing.T) {
	s := testScene()
	s.Frame(0)

	post := sprite("post", 100, 100)
	post.Template = "post"
	post.Kind = KindStatic
	post.Custom = map[string]string{"k": "v"}
	postID := s.AddEntity(post)
	stray := sprite("stray", 300, 100)
	stray.Template = "retired"
	s.AddEntity(stray)
	s.Frame(0)

	proto := NewEntity("post")
	proto.Sprite = "lit-post.png"
	proto.Size = Vec2{20, 80}
	proto.Light = &Light{Color: ColorWhite, Range: 150, Static: true}
	c := NewCatalog()
	c.Add(NewTemplate("post", proto))

	if n := s.RefreshFromCatalog(c); n != 1 {
		t.Fatalf("refreshed %d, want 1", n)
	}
	e, _ := s.Buckets.Entity(postID)
	if e.Sprite != "lit-post.png" || e.Light == nil || e.Kind != KindStatic || e.Custom["k"] != "v" {
		t.Errorf("refreshed entity = %+v", e)
	}
	if e.Light == proto.Light {
		t.Error("refresh shares the template's light")
	}
	if stray.Sprite != "stray.png" {
		t.Error("entity with an unknown template changed")
	}
	if !s.UpdateLightsFlag() {
		t.Error("gaining a static light did not request a full bake")
	}
	if d := s.Buckets.Displacement(s.View()); d.Y < math.Hypot(10, 40) {
		t.Errorf("displacement %v ignores the refreshed size", d)
	}
}

func TestSceneExtents(t *testing.T) {
	s := testScene()
	if _, ok := s.Extents(); ok {
		t.Error("empty scene has extents")
	}
	s.AddEntity(sprite("a", 0, 0))
	s.AddEntity(sprite("b", 100, 50))
	r, ok := s.Extents()
	if !ok || r != (Rect{X: -16, Y: -16, Width: 132, Height: 82}) {
		t.Errorf("extents = %v, %v", r, ok)
	}
}
