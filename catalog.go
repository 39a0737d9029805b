package umbra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TemplateExt is the file suffix of entity definition files.
const TemplateExt = ".ent.yaml"

// Template is a placeable entity definition. Instantiate produces independent
// entities; the template itself is never inserted into a scene.
type Template struct {
	Name  string
	proto *Entity
}

// NewTemplate wraps a prototype entity. The prototype is copied.
func NewTemplate(name string, proto *Entity) *Template {
	p := proto.Clone()
	p.Template = name
	return &Template{Name: name, proto: p}
}

// Prototype returns a copy of the template's entity.
func (t *Template) Prototype() *Entity {
	return t.proto.Clone()
}

// Instantiate returns a new unowned entity at pos.
func (t *Template) Instantiate(pos Vec3) *Entity {
	e := t.proto.Clone()
	e.SetPosition(pos)
	return e
}

// Catalog is an ordered, read-only set of templates indexed by position and
// by name.
type Catalog struct {
	templates []*Template
	byName    map[string]int
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]int)}
}

// Add appends t. A template with the same name replaces the earlier one in
// place.
func (c *Catalog) Add(t *Template) {
	if i, ok := c.byName[t.Name]; ok {
		c.templates[i] = t
		return
	}
	c.byName[t.Name] = len(c.templates)
	c.templates = append(c.templates, t)
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.templates)
}

// At returns the template at index i.
func (c *Catalog) At(i int) (*Template, bool) {
	if i < 0 || i >= len(c.templates) {
		return nil, false
	}
	return c.templates[i], true
}

// ByName returns the named template or an error wrapping ErrUnknownTemplate.
func (c *Catalog) ByName(name string) (*Template, error) {
	i, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("template %q: %w", name, ErrUnknownTemplate)
	}
	return c.templates[i], nil
}

// Index returns the position of the named template, or -1.
func (c *Catalog) Index(name string) int {
	if i, ok := c.byName[name]; ok {
		return i
	}
	return -1
}

// LoadCatalog reads every *.ent.yaml file in dir, ordered by file name.
// Files that fail to parse are skipped; their errors are joined into the
// returned error alongside the partial catalog. An unreadable directory
// returns an error wrapping ErrIO.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w: %w", dir, ErrIO, err)
	}
	c := NewCatalog()
	var errs []error
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), TemplateExt) {
			continue
		}
		path := filepath.Join(dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w: %w", path, ErrIO, err))
			continue
		}
		t, err := ParseTemplate(strings.TrimSuffix(de.Name(), TemplateExt), data)
		if err != nil {
			Logger().Warn("skipping entity definition", zap.String("path", path), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		c.Add(t)
	}
	Logger().Debug("catalog loaded", zap.String("dir", dir), zap.Int("templates", c.Len()))
	return c, errors.Join(errs...)
}

// --- Definition file format ---

type templateFile struct {
	Name          string            `yaml:"name"`
	Sprite        string            `yaml:"sprite"`
	Size          *Vec2             `yaml:"size"`
	Pivot         *Vec2             `yaml:"pivot"`
	Kind          string            `yaml:"kind"`
	Color         string            `yaml:"color"`
	Alpha         *float64          `yaml:"alpha"`
	Invisible     bool              `yaml:"invisible"`
	HaloSource    bool              `yaml:"halo_source"`
	CastShadow    bool              `yaml:"cast_shadow"`
	ReceiveShadow *bool             `yaml:"receive_shadow"`
	Animation     Animation         `yaml:"animation"`
	Lifetime      float64           `yaml:"lifetime"`
	Light         *lightFile        `yaml:"light"`
	Particles     []EmitterConfig   `yaml:"particles"`
	Shape         *shapeFile        `yaml:"shape"`
	Custom        map[string]string `yaml:"custom"`
}

type lightFile struct {
	Offset      Vec3    `yaml:"offset"`
	Color       string  `yaml:"color"`
	Range       float64 `yaml:"range"`
	Intensity   float64 `yaml:"intensity"`
	CastShadows bool    `yaml:"cast_shadows"`
	Static      bool    `yaml:"static"`
}

type shapeFile struct {
	Kind   string  `yaml:"kind"`
	Size   Vec2    `yaml:"size"`
	Radius float64 `yaml:"radius"`
	Points []Vec2  `yaml:"points"`
}

// ParseTemplate decodes one entity definition. fallbackName is used when the
// file has no name field.
func ParseTemplate(fallbackName string, data []byte) (*Template, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse entity definition: %w", err)
	}
	name := f.Name
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		return nil, errors.New("entity definition has no name")
	}

	e := NewEntity(name)
	e.Template = name
	e.Sprite = f.Sprite
	e.Kind = ParseKind(f.Kind)
	if f.Size != nil {
		e.Size = *f.Size
	}
	if f.Pivot != nil {
		e.Pivot = *f.Pivot
	}
	if f.Color != "" {
		c, err := parseHexColor(f.Color)
		if err != nil {
			return nil, err
		}
		e.Color = c
	}
	if f.Alpha != nil {
		e.Color.A = clamp01(*f.Alpha)
	}
	e.Invisible = f.Invisible
	e.HaloSource = f.HaloSource
	e.CastShadow = f.CastShadow
	if f.ReceiveShadow != nil {
		e.ReceiveShadow = *f.ReceiveShadow
	}
	e.Animation = f.Animation
	e.Lifetime = f.Lifetime
	e.Custom = f.Custom

	if f.Light != nil {
		l := &Light{
			Offset:      f.Light.Offset,
			Color:       ColorWhite,
			Range:       f.Light.Range,
			Intensity:   f.Light.Intensity,
			CastShadows: f.Light.CastShadows,
			Static:      f.Light.Static,
		}
		if f.Light.Color != "" {
			c, err := parseHexColor(f.Light.Color)
			if err != nil {
				return nil, fmt.Errorf("light: %w", err)
			}
			l.Color = c
		}
		e.Light = l
	}
	for _, cfg := range f.Particles {
		e.Particles = append(e.Particles, NewParticleSystem(cfg))
	}
	if f.Shape != nil {
		e.Shape = Shape{
			Kind:   ParseShapeKind(f.Shape.Kind),
			Size:   f.Shape.Size,
			Radius: f.Shape.Radius,
			Points: f.Shape.Points,
		}
	}
	return &Template{Name: name, proto: e}, nil
}

// parseHexColor parses "#rrggbb" or "#rgb" into an opaque Color.
func parseHexColor(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return Color{R: c.R, G: c.G, B: c.B, A: 1}, nil
}

// HexColor formats the RGB components of c as "#rrggbb".
func HexColor(c Color) string {
	return colorful.Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}.Hex()
}
