package umbra

import (
	"cmp"
	"math"
	"slices"
)

// Bucket manager defaults.
const (
	DefaultBucketSize    = 256.0
	DefaultBorderBuckets = 1
)

// BucketKey is the integer grid cell an entity belongs to: its X/Y position
// divided by the bucket size, floored toward negative infinity.
type BucketKey struct {
	X, Y int
}

func compareKeys(a, b BucketKey) int {
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

// bucket holds the entities of one grid cell in insertion order.
type bucket struct {
	entities []*Entity
}

// remove deletes e from the bucket preserving order. Returns false if absent.
func (b *bucket) remove(id EntityID) (*Entity, bool) {
	for i, e := range b.entities {
		if e.id == id {
			copy(b.entities[i:], b.entities[i+1:])
			b.entities[len(b.entities)-1] = nil
			b.entities = b.entities[:len(b.entities)-1]
			return e, true
		}
	}
	return nil, false
}

// BucketManager owns every entity of a scene and partitions them into a
// uniform grid of buckets for visibility and hit queries.
//
// Every owned entity is in exactly one bucket. Position changes made through
// Entity.SetPosition and friends move the entity between buckets before the
// call returns, so a query issued afterwards always sees the new bucket.
type BucketManager struct {
	size Vec2

	// BorderBuckets is the number of extra bucket rings included around the
	// camera rectangle by GetVisibleEntities.
	BorderBuckets int

	buckets map[BucketKey]*bucket
	index   map[EntityID]*Entity
	nextID  EntityID
	freeIDs []EntityID // ascending
	moves   int

	// High-water marks of |Z| and entity reach, used to widen SeekEntity
	// for entities drawn away from their ground bucket.
	maxZ     float64
	maxReach float64
}

// NewBucketManager creates an empty manager. Non-positive size components
// fall back to DefaultBucketSize.
func NewBucketManager(size Vec2) *BucketManager {
	if size.X <= 0 {
		size.X = DefaultBucketSize
	}
	if size.Y <= 0 {
		size.Y = DefaultBucketSize
	}
	return &BucketManager{
		size:          size,
		BorderBuckets: DefaultBorderBuckets,
		buckets:       make(map[BucketKey]*bucket),
		index:         make(map[EntityID]*Entity),
	}
}

// BucketSize returns the size of one bucket.
func (m *BucketManager) BucketSize() Vec2 {
	return m.size
}

// KeyFor returns the bucket key for a point on the screen-space plane.
func (m *BucketManager) KeyFor(p Vec2) BucketKey {
	return BucketKey{
		X: int(math.Floor(p.X / m.size.X)),
		Y: int(math.Floor(p.Y / m.size.Y)),
	}
}

// AddEntity assigns the next free ID to e, inserts it into the bucket for its
// current position, and takes ownership. Panics if e is nil or already owned.
func (m *BucketManager) AddEntity(e *Entity) EntityID {
	if e == nil {
		panic("umbra: cannot add nil entity")
	}
	if e.owner != nil {
		panic("umbra: entity is already owned by a bucket manager")
	}
	id := m.allocID()
	e.id = id
	e.owner = m
	e.deleted = false
	e.bucket = m.KeyFor(e.pos.XY())
	b := m.bucketAt(e.bucket)
	b.entities = append(b.entities, e)
	m.index[id] = e
	m.track(e)
	return id
}

// DeleteEntity removes the entity with the given ID from the given bucket.
// It is a no-op returning false when the entity is not in that bucket.
func (m *BucketManager) DeleteEntity(id EntityID, key BucketKey) bool {
	b, ok := m.buckets[key]
	if !ok {
		return false
	}
	e, ok := b.remove(id)
	if !ok {
		return false
	}
	if len(b.entities) == 0 {
		delete(m.buckets, key)
	}
	delete(m.index, id)
	m.releaseID(id)
	e.owner = nil
	e.deleted = true
	return true
}

// DeleteEntityByID removes an entity wherever it is. Returns false if the ID
// is unknown.
func (m *BucketManager) DeleteEntityByID(id EntityID) bool {
	e, ok := m.index[id]
	if !ok {
		return false
	}
	return m.DeleteEntity(id, e.bucket)
}

// Entity returns the live entity with the given ID.
func (m *BucketManager) Entity(id EntityID) (*Entity, bool) {
	if id == NoEntity {
		return nil, false
	}
	e, ok := m.index[id]
	return e, ok
}

// BucketOf returns the bucket key currently holding the entity.
func (m *BucketManager) BucketOf(id EntityID) (BucketKey, bool) {
	e, ok := m.index[id]
	if !ok {
		return BucketKey{}, false
	}
	return e.bucket, true
}

// Len returns the number of live entities.
func (m *BucketManager) Len() int {
	return len(m.index)
}

// NumBuckets returns the number of non-empty buckets.
func (m *BucketManager) NumBuckets() int {
	return len(m.buckets)
}

// Moves returns how many position changes crossed a bucket boundary.
func (m *BucketManager) Moves() int {
	return m.moves
}

// BucketEntities returns the entities in one bucket. The returned slice MUST
// NOT be mutated.
func (m *BucketManager) BucketEntities(key BucketKey) []*Entity {
	if b, ok := m.buckets[key]; ok {
		return b.entities
	}
	return nil
}

// Clear removes every entity and resets ID allocation.
func (m *BucketManager) Clear() {
	for _, e := range m.index {
		e.owner = nil
		e.deleted = true
	}
	m.buckets = make(map[BucketKey]*bucket)
	m.index = make(map[EntityID]*Entity)
	m.freeIDs = m.freeIDs[:0]
	m.nextID = 0
	m.maxZ, m.maxReach = 0, 0
}

// track raises the Z and reach high-water marks for e.
func (m *BucketManager) track(e *Entity) {
	m.maxZ = max(m.maxZ, math.Abs(e.pos.Z))
	m.maxReach = max(m.maxReach, e.reach())
}

// Displacement returns how far, per axis, any entity in the manager can be
// drawn from its ground position under v: the largest z-axis and parallax
// shift plus the largest entity reach.
func (m *BucketManager) Displacement(v View) Vec2 {
	// Parallax scales Z by the normalized distance from the camera center,
	// which stays below 2 for anything on screen.
	par := math.Abs(v.Props.Parallax) * m.maxZ * 2
	return Vec2{
		X: math.Abs(v.Props.ZAxis.X)*m.maxZ + par + m.maxReach,
		Y: math.Abs(v.Props.ZAxis.Y)*m.maxZ + par + m.maxReach,
	}
}

// searchRadius returns how many buckets around the cursor's bucket may hold
// an entity drawn under the cursor, per axis.
func (m *BucketManager) searchRadius(v View) (rx, ry int) {
	d := m.Displacement(v)
	return 1 + int(math.Ceil(d.X/m.size.X)), 1 + int(math.Ceil(d.Y/m.size.Y))
}

// keysIn returns the keys of the non-empty buckets in the inclusive key
// range, in row-major order.
func (m *BucketManager) keysIn(k0, k1 BucketKey) []BucketKey {
	var keys []BucketKey
	span := (k1.X - k0.X + 1) * (k1.Y - k0.Y + 1)
	if span <= len(m.buckets) {
		for y := k0.Y; y <= k1.Y; y++ {
			for x := k0.X; x <= k1.X; x++ {
				if _, ok := m.buckets[BucketKey{x, y}]; ok {
					keys = append(keys, BucketKey{x, y})
				}
			}
		}
		return keys
	}
	for k := range m.buckets {
		if k.X >= k0.X && k.X <= k1.X && k.Y >= k0.Y && k.Y <= k1.Y {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// SeekEntity returns the front-most entity under the screen point, or
// NoEntity. Entities are bucketed by their ground position but drawn shifted
// along the z-axis, so the search covers every bucket an entity drawn under
// the point could be in: the neighbors of the cursor's bucket, widened by the
// largest Z displacement and entity size in the manager. The entity with ID
// exclude is skipped.
func (m *BucketManager) SeekEntity(screen Vec2, v View, exclude EntityID) EntityID {
	p := v.ScreenToPlane(screen)
	center := m.KeyFor(p)
	rx, ry := m.searchRadius(v)
	k0 := BucketKey{center.X - rx, center.Y - ry}
	k1 := BucketKey{center.X + rx, center.Y + ry}

	var best *Entity
	var bestKey drawKey
	for _, k := range m.keysIn(k0, k1) {
		for _, e := range m.buckets[k].entities {
			if e.id == exclude || !e.hit(v, p) {
				continue
			}
			dk := drawKeyFor(e, v)
			// Ties go to the later entity in visible order, which the
			// renderer draws last.
			if best == nil || !dk.less(bestKey) {
				best, bestKey = e, dk
			}
		}
	}
	if best == nil {
		return NoEntity
	}
	return best.id
}

// GetVisibleEntities returns the entities whose bucket intersects cameraRect
// grown by BorderBuckets. Buckets are visited in row-major key order and
// entities in insertion order, so identical scenes yield identical slices.
func (m *BucketManager) GetVisibleEntities(cameraRect Rect) []*Entity {
	border := float64(m.BorderBuckets)
	r := cameraRect.Grow(border*m.size.X, border*m.size.Y)
	k0 := m.KeyFor(Vec2{r.X, r.Y})
	k1 := m.KeyFor(Vec2{r.X + r.Width, r.Y + r.Height})

	var out []*Entity
	for _, k := range m.keysIn(k0, k1) {
		out = append(out, m.buckets[k].entities...)
	}
	return out
}

// GetEntityArray returns every live entity ordered by ID.
func (m *BucketManager) GetEntityArray() []*Entity {
	out := make([]*Entity, 0, len(m.index))
	for _, e := range m.index {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Entity) int { return cmp.Compare(a.id, b.id) })
	return out
}

// relocate sets e's position and moves it to its new bucket if the key
// changed. Removal and insertion happen in this single call.
func (m *BucketManager) relocate(e *Entity, p Vec3) {
	oldKey := e.bucket
	newKey := m.KeyFor(p.XY())
	e.pos = p
	m.track(e)
	if oldKey == newKey {
		return
	}
	if b, ok := m.buckets[oldKey]; ok {
		b.remove(e.id)
		if len(b.entities) == 0 {
			delete(m.buckets, oldKey)
		}
	}
	nb := m.bucketAt(newKey)
	nb.entities = append(nb.entities, e)
	e.bucket = newKey
	m.moves++
}

func (m *BucketManager) bucketAt(k BucketKey) *bucket {
	b, ok := m.buckets[k]
	if !ok {
		b = &bucket{}
		m.buckets[k] = b
	}
	return b
}

// allocID returns the lowest released ID, or the next never-used one.
func (m *BucketManager) allocID() EntityID {
	if len(m.freeIDs) > 0 {
		id := m.freeIDs[0]
		m.freeIDs = m.freeIDs[1:]
		return id
	}
	m.nextID++
	return m.nextID
}

func (m *BucketManager) releaseID(id EntityID) {
	i, _ := slices.BinarySearch(m.freeIDs, id)
	m.freeIDs = slices.Insert(m.freeIDs, i, id)
}
