package umbra

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"maps"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/anthonynsimon/bild/blur"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AllEntities requests a full lightmap bake.
const AllEntities = NoEntity

// Lightmap baking defaults.
const (
	DefaultTexelSize   = 8.0
	minLightmapTexels  = 2
	maxLightmapTexels  = 64
	lightmapBlurRadius = 1.0
)

// Lightmap is the baked static-light contribution for one static entity.
// Image covers the entity's ground footprint; it is never modified after
// publication.
type Lightmap struct {
	Entity  EntityID
	Image   *image.RGBA
	Bounds  Rect
	Version uint64
}

// At samples the lightmap at normalized coordinates (u, v) in [0, 1].
func (lm *Lightmap) At(u, v float64) Color {
	b := lm.Image.Bounds()
	x := min(int(clamp01(u)*float64(b.Dx())), b.Dx()-1)
	y := min(int(clamp01(v)*float64(b.Dy())), b.Dy()-1)
	c := lm.Image.RGBAAt(b.Min.X+x, b.Min.Y+y)
	return Color{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, 1}
}

// LightmapSet is an immutable snapshot of every published lightmap.
type LightmapSet struct {
	maps    map[EntityID]*Lightmap
	version uint64
}

// Get returns the lightmap for an entity. Safe on a nil set.
func (s *LightmapSet) Get(id EntityID) (*Lightmap, bool) {
	if s == nil {
		return nil, false
	}
	lm, ok := s.maps[id]
	return lm, ok
}

// Len returns the number of lightmaps. Safe on a nil set.
func (s *LightmapSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.maps)
}

// Version returns the generation that published this set.
func (s *LightmapSet) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// IDs returns the entities with a lightmap, ascending.
func (s *LightmapSet) IDs() []EntityID {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.maps))
}

// --- Bake input snapshot ---

type bakeReceiver struct {
	id     EntityID
	bounds Rect
	z      float64
}

type bakeLight struct {
	owner   EntityID
	pos     Vec3
	color   Color
	rng     float64
	gain    float64
	shadows bool
}

type occluder struct {
	id     EntityID
	bounds Rect
}

// bakeInput is a copy of everything a bake reads, taken on the frame
// goroutine so a worker never touches live entities.
type bakeInput struct {
	texel     float64
	receivers []bakeReceiver
	lights    []bakeLight
	occluders []occluder
}

func snapshotBake(m *BucketManager, texel float64) bakeInput {
	in := bakeInput{texel: texel}
	for _, e := range m.GetEntityArray() {
		if !e.IsStatic() {
			continue
		}
		if _, ok := e.AsRenderable(); ok {
			in.receivers = append(in.receivers, bakeReceiver{id: e.id, bounds: e.groundFootprint(), z: e.pos.Z})
		}
		if le, ok := e.AsLightEmitting(); ok && le.EmittedLight().Static {
			l := le.EmittedLight()
			in.lights = append(in.lights, bakeLight{
				owner:   e.id,
				pos:     e.pos.Add(l.Offset),
				color:   l.Color,
				rng:     l.Range,
				gain:    l.gain(),
				shadows: l.CastShadows,
			})
		}
		if e.CastShadow {
			b := e.groundFootprint()
			if e.Shape.Kind != ShapeNone {
				sb := e.Shape.Bounds()
				b = Rect{X: e.pos.X + sb.X, Y: e.pos.Y + sb.Y, Width: sb.Width, Height: sb.Height}
			}
			in.occluders = append(in.occluders, occluder{id: e.id, bounds: b})
		}
	}
	return in
}

func (in *bakeInput) receiver(id EntityID) (bakeReceiver, bool) {
	for _, r := range in.receivers {
		if r.id == id {
			return r, true
		}
	}
	return bakeReceiver{}, false
}

// bake computes one receiver's lightmap. The result depends only on in.
func (in *bakeInput) bake(r bakeReceiver, version uint64) *Lightmap {
	w := clampTexels(r.bounds.Width / in.texel)
	h := clampTexels(r.bounds.Height / in.texel)
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for ty := 0; ty < h; ty++ {
		for tx := 0; tx < w; tx++ {
			px := r.bounds.X + (float64(tx)+0.5)*r.bounds.Width/float64(w)
			py := r.bounds.Y + (float64(ty)+0.5)*r.bounds.Height/float64(h)
			var acc Color
			for _, l := range in.lights {
				dx, dy, dz := l.pos.X-px, l.pos.Y-py, l.pos.Z-r.z
				d := math.Sqrt(dx*dx + dy*dy + dz*dz)
				if l.rng <= 0 || d >= l.rng {
					continue
				}
				if l.shadows && in.occluded(px, py, l, r.id) {
					continue
				}
				t := 1 - d/l.rng
				c := l.color.Scale(t * t * l.gain)
				acc.R, acc.G, acc.B = acc.R+c.R, acc.G+c.G, acc.B+c.B
			}
			img.SetRGBA(tx, ty, color.RGBA{
				R: uint8(clamp01(acc.R) * 255),
				G: uint8(clamp01(acc.G) * 255),
				B: uint8(clamp01(acc.B) * 255),
				A: 255,
			})
		}
	}

	return &Lightmap{
		Entity:  r.id,
		Image:   blur.Box(img, lightmapBlurRadius),
		Bounds:  r.bounds,
		Version: version,
	}
}

// occluded reports whether the segment from (px, py) to the light crosses a
// shadow caster other than the receiver and the light's owner.
func (in *bakeInput) occluded(px, py float64, l bakeLight, self EntityID) bool {
	for _, o := range in.occluders {
		if o.id == self || o.id == l.owner {
			continue
		}
		if segmentIntersectsRect(px, py, l.pos.X, l.pos.Y, o.bounds) {
			return true
		}
	}
	return false
}

// segmentIntersectsRect is a slab test of the segment (px,py)->(qx,qy)
// against r.
func segmentIntersectsRect(px, py, qx, qy float64, r Rect) bool {
	dx := qx - px
	dy := qy - py
	tmin, tmax := 0.0, 1.0

	if dx != 0 {
		inv := 1 / dx
		t0 := (r.X - px) * inv
		t1 := (r.X + r.Width - px) * inv
		if inv < 0 {
			t0, t1 = t1, t0
		}
		tmin = max(tmin, t0)
		tmax = min(tmax, t1)
	} else if px < r.X || px > r.X+r.Width {
		return false
	}

	if dy != 0 {
		inv := 1 / dy
		t0 := (r.Y - py) * inv
		t1 := (r.Y + r.Height - py) * inv
		if inv < 0 {
			t0, t1 = t1, t0
		}
		tmin = max(tmin, t0)
		tmax = min(tmax, t1)
	} else if py < r.Y || py > r.Y+r.Height {
		return false
	}

	return tmax >= tmin && tmax > 0 && tmin < 1
}

func clampTexels(v float64) int {
	n := int(math.Ceil(v))
	return max(minLightmapTexels, min(n, maxLightmapTexels))
}

// --- Generator ---

// bakeRequest names the entities a bake covers. all overrides ids.
type bakeRequest struct {
	all bool
	ids []EntityID
}

func (r bakeRequest) empty() bool {
	return !r.all && len(r.ids) == 0
}

func (r *bakeRequest) merge(o bakeRequest) {
	if o.all {
		r.all, r.ids = true, nil
		return
	}
	if r.all {
		return
	}
	for _, id := range o.ids {
		if !slices.Contains(r.ids, id) {
			r.ids = append(r.ids, id)
		}
	}
}

// remove drops from r what o covers.
func (r *bakeRequest) remove(o bakeRequest) {
	if o.all {
		r.all, r.ids = false, nil
		return
	}
	if r.all {
		return
	}
	r.ids = slices.DeleteFunc(r.ids, func(id EntityID) bool {
		return slices.Contains(o.ids, id)
	})
}

func requestFor(only EntityID) bakeRequest {
	if only == AllEntities {
		return bakeRequest{all: true}
	}
	return bakeRequest{ids: []EntityID{only}}
}

// LightmapGenerator bakes static lighting and publishes immutable
// LightmapSet snapshots. Readers always see a complete set: the previous
// one stays current until a bake finishes.
type LightmapGenerator struct {
	// TexelSize is the scene distance covered by one lightmap texel.
	TexelSize float64

	current atomic.Pointer[LightmapSet]
	version atomic.Uint64

	mu       sync.Mutex
	dirty    bakeRequest // invalidations not yet applied
	inflight bakeRequest // union of unpublished async requests
	cancel   context.CancelFunc
	latest   uint64              // request generation allowed to publish
	dropped  map[EntityID]uint64 // forgotten ids, by generation at Forget
	wg       sync.WaitGroup
	pending  atomic.Int32
}

// NewLightmapGenerator returns a generator with an empty current set.
func NewLightmapGenerator() *LightmapGenerator {
	g := &LightmapGenerator{TexelSize: DefaultTexelSize}
	g.current.Store(&LightmapSet{maps: map[EntityID]*Lightmap{}})
	return g
}

// Current returns the last published set.
func (g *LightmapGenerator) Current() *LightmapSet {
	return g.current.Load()
}

// Reset publishes an empty set and discards in-flight results and pending
// invalidations.
func (g *LightmapGenerator) Reset() {
	g.mu.Lock()
	g.supersedeLocked()
	g.inflight = bakeRequest{}
	g.dirty = bakeRequest{}
	g.dropped = nil
	g.mu.Unlock()
	g.current.Store(&LightmapSet{maps: map[EntityID]*Lightmap{}, version: g.version.Add(1)})
}

// Invalidate marks one entity's lightmap for rebaking on the next Apply.
func (g *LightmapGenerator) Invalidate(id EntityID) {
	g.mu.Lock()
	g.dirty.merge(requestFor(id))
	g.mu.Unlock()
}

// InvalidateAll marks every lightmap for rebaking on the next Apply.
func (g *LightmapGenerator) InvalidateAll() {
	g.mu.Lock()
	g.dirty.merge(bakeRequest{all: true})
	g.mu.Unlock()
}

// Forget removes an entity's lightmap from the current set at once, so an
// entity that later reuses the ID never draws it. Bakes started before the
// call do not bring it back.
func (g *LightmapGenerator) Forget(id EntityID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dropped == nil {
		g.dropped = map[EntityID]uint64{}
	}
	g.dropped[id] = g.latest
	cur := g.Current()
	if _, ok := cur.maps[id]; !ok {
		return
	}
	next := &LightmapSet{maps: maps.Clone(cur.maps), version: cur.version}
	delete(next.maps, id)
	g.current.Store(next)
}

// Dirty reports whether invalidations are waiting for Apply.
func (g *LightmapGenerator) Dirty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.dirty.empty()
}

// Apply bakes everything invalidated since the last Apply. With async set
// the bake runs on a worker and Apply returns at once. Apply is a no-op
// when nothing is dirty.
func (g *LightmapGenerator) Apply(ctx context.Context, m *BucketManager, async bool) error {
	g.mu.Lock()
	req := g.dirty
	g.dirty = bakeRequest{}
	g.mu.Unlock()
	if req.empty() {
		return nil
	}
	if async {
		g.startAsync(m, req)
		return nil
	}
	_, err := g.generate(ctx, m, req)
	return err
}

// GenerateLightmaps bakes synchronously and publishes the result. With
// only == AllEntities every static entity is rebaked (in parallel);
// otherwise only that entity's lightmap is rebaked, or dropped when it is no
// longer a static receiver. Pending invalidations the bake covers are
// cleared.
func (g *LightmapGenerator) GenerateLightmaps(ctx context.Context, m *BucketManager, only EntityID) (*LightmapSet, error) {
	return g.generate(ctx, m, requestFor(only))
}

func (g *LightmapGenerator) generate(ctx context.Context, m *BucketManager, req bakeRequest) (*LightmapSet, error) {
	in := snapshotBake(m, g.texel())

	g.mu.Lock()
	// A synchronous bake supersedes any worker; fold its work in so nothing
	// the worker covered is lost.
	req.merge(g.inflight)
	g.inflight = bakeRequest{}
	g.dirty.remove(req)
	id := g.supersedeLocked()
	g.mu.Unlock()

	set, err := g.run(ctx, in, req, g.Current())
	if err != nil {
		return g.Current(), err
	}
	g.publish(id, set)
	return g.Current(), nil
}

// GenerateAsync starts a bake on a worker goroutine and returns immediately.
// A newer request supersedes an older one: the older worker is cancelled
// and its result, if it still finishes, is discarded. The newer request
// takes over the entities the older one covered.
func (g *LightmapGenerator) GenerateAsync(m *BucketManager, only EntityID) {
	g.startAsync(m, requestFor(only))
}

func (g *LightmapGenerator) startAsync(m *BucketManager, req bakeRequest) {
	in := snapshotBake(m, g.texel())

	g.mu.Lock()
	base := g.Current()
	g.inflight.merge(req)
	req = g.inflight
	id := g.supersedeLocked()
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.mu.Unlock()

	g.wg.Add(1)
	g.pending.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.pending.Add(-1)
		defer cancel()
		set, err := g.run(ctx, in, req, base)
		if err != nil {
			Logger().Debug("lightmap bake superseded", zap.Uint64("request", id), zap.Error(err))
			return
		}
		g.publish(id, set)
	}()
}

// Pending reports whether an asynchronous bake is still running.
func (g *LightmapGenerator) Pending() bool {
	return g.pending.Load() > 0
}

// Wait blocks until every asynchronous bake has finished or been discarded.
func (g *LightmapGenerator) Wait() {
	g.wg.Wait()
}

func (g *LightmapGenerator) texel() float64 {
	if g.TexelSize <= 0 {
		return DefaultTexelSize
	}
	return g.TexelSize
}

// supersedeLocked cancels any running worker and returns the new request
// generation. g.mu must be held.
func (g *LightmapGenerator) supersedeLocked() uint64 {
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.latest++
	return g.latest
}

// publish stores set unless a newer request has been issued since id. The
// latest request covers everything in flight, so inflight is cleared with it.
func (g *LightmapGenerator) publish(id uint64, set *LightmapSet) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id != g.latest {
		return false
	}
	for eid, gen := range g.dropped {
		if id > gen {
			delete(g.dropped, eid)
		} else {
			delete(set.maps, eid)
		}
	}
	g.current.Store(set)
	g.inflight = bakeRequest{}
	Logger().Debug("lightmaps published",
		zap.Uint64("version", set.version),
		zap.Int("count", len(set.maps)))
	return true
}

func (g *LightmapGenerator) run(ctx context.Context, in bakeInput, req bakeRequest, base *LightmapSet) (*LightmapSet, error) {
	version := g.version.Add(1)

	if !req.all {
		next := &LightmapSet{maps: maps.Clone(base.maps), version: version}
		if next.maps == nil {
			next.maps = map[EntityID]*Lightmap{}
		}
		for _, id := range req.ids {
			if r, ok := in.receiver(id); ok {
				next.maps[id] = in.bake(r, version)
			} else {
				delete(next.maps, id)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("bake lightmaps: %w", err)
		}
		return next, nil
	}

	results := make([]*Lightmap, len(in.receivers))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range in.receivers {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			results[i] = in.bake(r, version)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("bake lightmaps: %w", err)
	}

	next := &LightmapSet{maps: make(map[EntityID]*Lightmap, len(results)), version: version}
	for _, lm := range results {
		next.maps[lm.Entity] = lm
	}
	return next, nil
}
