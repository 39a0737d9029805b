package umbra

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// SceneFileVersion is the version written to new scene files.
const SceneFileVersion = 1

// BinarySceneExt selects the msgpack codec. Every other extension is JSON.
const BinarySceneExt = ".umbrab"

// sceneDoc is the persisted form of a scene.
type sceneDoc struct {
	Version    int             `json:"version" msgpack:"version"`
	Properties SceneProperties `json:"properties" msgpack:"properties"`
	Entities   []entityRecord  `json:"entities" msgpack:"entities"`
}

type entityRecord struct {
	ID            EntityID          `json:"id" msgpack:"id"`
	Name          string            `json:"name" msgpack:"name"`
	Template      string            `json:"template,omitempty" msgpack:"template,omitempty"`
	Pos           Vec3              `json:"pos" msgpack:"pos"`
	Angle         float64           `json:"angle,omitempty" msgpack:"angle,omitempty"`
	Frame         int               `json:"frame,omitempty" msgpack:"frame,omitempty"`
	Kind          string            `json:"kind" msgpack:"kind"`
	Sprite        string            `json:"sprite,omitempty" msgpack:"sprite,omitempty"`
	Size          Vec2              `json:"size" msgpack:"size"`
	Pivot         Vec2              `json:"pivot" msgpack:"pivot"`
	Color         Color             `json:"color" msgpack:"color"`
	Invisible     bool              `json:"invisible,omitempty" msgpack:"invisible,omitempty"`
	HaloSource    bool              `json:"halo_source,omitempty" msgpack:"halo_source,omitempty"`
	CastShadow    bool              `json:"cast_shadow,omitempty" msgpack:"cast_shadow,omitempty"`
	ReceiveShadow bool              `json:"receive_shadow,omitempty" msgpack:"receive_shadow,omitempty"`
	Animation     Animation         `json:"animation" msgpack:"animation"`
	Lifetime      float64           `json:"lifetime,omitempty" msgpack:"lifetime,omitempty"`
	Light         *Light            `json:"light,omitempty" msgpack:"light,omitempty"`
	Particles     []EmitterConfig   `json:"particles,omitempty" msgpack:"particles,omitempty"`
	Shape         Shape             `json:"shape" msgpack:"shape"`
	Custom        map[string]string `json:"custom,omitempty" msgpack:"custom,omitempty"`
}

func recordOf(e *Entity) entityRecord {
	r := entityRecord{
		ID:            e.id,
		Name:          e.Name,
		Template:      e.Template,
		Pos:           e.pos,
		Angle:         e.Angle,
		Frame:         e.Frame,
		Kind:          e.Kind.String(),
		Sprite:        e.Sprite,
		Size:          e.Size,
		Pivot:         e.Pivot,
		Color:         e.Color,
		Invisible:     e.Invisible,
		HaloSource:    e.HaloSource,
		CastShadow:    e.CastShadow,
		ReceiveShadow: e.ReceiveShadow,
		Animation:     e.Animation,
		Lifetime:      e.Lifetime,
		Light:         e.Light,
		Shape:         e.Shape,
		Custom:        e.Custom,
	}
	for _, ps := range e.Particles {
		r.Particles = append(r.Particles, ps.config)
	}
	return r
}

func (r entityRecord) entity() *Entity {
	e := &Entity{
		Name:          r.Name,
		Template:      r.Template,
		pos:           r.Pos,
		Angle:         r.Angle,
		Frame:         r.Frame,
		Kind:          ParseKind(r.Kind),
		Sprite:        r.Sprite,
		Size:          r.Size,
		Pivot:         r.Pivot,
		Color:         r.Color,
		Invisible:     r.Invisible,
		HaloSource:    r.HaloSource,
		CastShadow:    r.CastShadow,
		ReceiveShadow: r.ReceiveShadow,
		Animation:     r.Animation,
		Lifetime:      r.Lifetime,
		Light:         r.Light,
		Shape:         r.Shape,
		Custom:        r.Custom,
	}
	for _, cfg := range r.Particles {
		e.Particles = append(e.Particles, NewParticleSystem(cfg))
	}
	return e
}

// sceneCodec encodes and decodes a sceneDoc.
type sceneCodec interface {
	marshal(doc *sceneDoc) ([]byte, error)
	unmarshal(data []byte, doc *sceneDoc) error
}

type jsonCodec struct{}

func (jsonCodec) marshal(doc *sceneDoc) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func (jsonCodec) unmarshal(data []byte, doc *sceneDoc) error {
	return json.Unmarshal(data, doc)
}

type msgpackCodec struct{}

func (msgpackCodec) marshal(doc *sceneDoc) ([]byte, error) {
	return msgpack.Marshal(doc)
}

func (msgpackCodec) unmarshal(data []byte, doc *sceneDoc) error {
	return msgpack.Unmarshal(data, doc)
}

func codecFor(path string) sceneCodec {
	if strings.EqualFold(filepath.Ext(path), BinarySceneExt) {
		return msgpackCodec{}
	}
	return jsonCodec{}
}

// document captures the scene for saving. Entities are ordered by ID.
func (s *Scene) document() *sceneDoc {
	doc := &sceneDoc{Version: SceneFileVersion, Properties: s.props}
	for _, e := range s.Buckets.GetEntityArray() {
		doc.Entities = append(doc.Entities, recordOf(e))
	}
	return doc
}

// Save writes the scene to path. The codec is chosen by extension: msgpack
// for BinarySceneExt, JSON otherwise. On failure the error wraps ErrIO and
// any existing file at path is left intact.
func (s *Scene) Save(path string) error {
	data, err := codecFor(path).marshal(s.document())
	if err != nil {
		return fmt.Errorf("encode scene %s: %w: %w", path, ErrIO, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("save scene %s: %w: %w", path, ErrIO, err)
	}
	s.path, s.fileTime = path, modTime(path)
	Logger().Info("scene saved", zap.String("path", path), zap.Int("entities", len(s.Buckets.index)))
	return nil
}

// FileChanged reports whether the scene file was modified on disk since the
// scene last loaded or saved it. A scene without a path never changes.
func (s *Scene) FileChanged() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	fi, err := os.Stat(s.path)
	if err != nil {
		return false, fmt.Errorf("stat scene %s: %w: %w", s.path, ErrIO, err)
	}
	return !fi.ModTime().Equal(s.fileTime), nil
}

func modTime(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

// Load replaces the scene contents with the file at path. The file is
// decoded into a fresh bucket manager first, so on any error the scene is
// unchanged. Entities receive new IDs in the order of their saved IDs.
// When lightmaps are enabled a full bake is scheduled.
func (s *Scene) Load(path string) error {
	mt := modTime(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load scene %s: %w: %w", path, ErrIO, err)
	}
	var doc sceneDoc
	if err := codecFor(path).unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode scene %s: %w: %w", path, ErrIO, err)
	}
	if doc.Version < 1 || doc.Version > SceneFileVersion {
		return fmt.Errorf("load scene %s: version %d: %w", path, doc.Version, ErrInvalidScene)
	}

	slices.SortStableFunc(doc.Entities, func(a, b entityRecord) int { return cmp.Compare(a.ID, b.ID) })
	m := NewBucketManager(s.Buckets.BucketSize())
	m.BorderBuckets = s.Buckets.BorderBuckets
	for _, r := range doc.Entities {
		m.AddEntity(r.entity())
	}

	s.Buckets.Clear()
	s.Buckets = m
	s.props = doc.Properties.Sanitized()
	s.path, s.fileTime = path, mt
	s.updateLights = false
	s.Lightmaps.Reset()
	for _, fn := range s.deleteHooks {
		fn(AllEntities)
	}
	if s.Prefs.LightmapsEnabled {
		s.RequestLightmaps(AllEntities)
	}
	if err := s.Prefs.SetLastDirectory(filepath.Dir(path)); err != nil {
		Logger().Warn("last directory not saved", zap.Error(err))
	}

	Logger().Info("scene loaded", zap.String("path", path), zap.Int("entities", m.Len()))
	s.emit(SceneEvent{Type: EventSceneLoaded})
	return nil
}
