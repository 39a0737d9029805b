package umbra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const lampDef = `
name: lamp
sprite: sprites/lamp.png
size: {x: 16, y: 32}
kind: static
color: "#ff0000"
alpha: 0.5
receive_shadow: false
light:
  color: "#00ff00"
  range: 90
  static: true
shape:
  kind: polygon
  points: [{x: 0, y: 0}, {x: 4, y: 0}, {x: 0, y: 4}]
custom:
  owner: town
`

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("fallback", []byte(lampDef))
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Name != "lamp" {
		t.Errorf("Name = %q", tmpl.Name)
	}
	e := tmpl.Prototype()
	if e.Template != "lamp" || e.Sprite != "sprites/lamp.png" || e.Kind != KindStatic {
		t.Errorf("prototype = %+v", e)
	}
	if e.Size != (Vec2{16, 32}) || e.Pivot != (Vec2{0.5, 0.5}) {
		t.Errorf("size %v pivot %v", e.Size, e.Pivot)
	}
	if e.Color != (Color{1, 0, 0, 0.5}) {
		t.Errorf("color = %+v", e.Color)
	}
	if e.ReceiveShadow {
		t.Error("receive_shadow: false ignored")
	}
	if e.Light == nil || e.Light.Color != (Color{0, 1, 0, 1}) || e.Light.Range != 90 || !e.Light.Static {
		t.Errorf("light = %+v", e.Light)
	}
	if e.Shape.Kind != ShapePolygon || len(e.Shape.Points) != 3 {
		t.Errorf("shape = %+v", e.Shape)
	}
	if e.Custom["owner"] != "town" {
		t.Errorf("custom = %v", e.Custom)
	}
}

func TestParseTemplateFallbackName(t *testing.T) {
	tmpl, err := ParseTemplate("rock", []byte("sprite: rock.png\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Name != "rock" {
		t.Errorf("Name = %q, want rock", tmpl.Name)
	}
	e := tmpl.Prototype()
	if e.Kind != KindDynamic || e.Color != ColorWhite || !e.ReceiveShadow {
		t.Errorf("defaults not applied: %+v", e)
	}
}

func TestParseTemplateErrors(t *testing.T) {
	tests := []struct {
		name, fallback, data string
	}{
		{"yaml", "x", "size: [1, 2"},
		{"no name", "", "sprite: a.png\n"},
		{"color", "x", "color: chartreuse\n"},
		{"light color", "x", "light:\n  color: \"#12\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTemplate(tt.fallback, []byte(tt.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestTemplateInstancesIndependent(t *testing.T) {
	tmpl, err := ParseTemplate("", []byte(lampDef))
	if err != nil {
		t.Fatal(err)
	}
	a := tmpl.Instantiate(Vec3{X: 1})
	b := tmpl.Instantiate(Vec3{X: 2})
	a.Light.Range = 1
	a.Custom["owner"] = "nobody"
	if b.Light.Range != 90 || b.Custom["owner"] != "town" {
		t.Error("instances share state")
	}
	if tmpl.Prototype().Light.Range != 90 {
		t.Error("instance edit reached the template")
	}
	if a.Position().X != 1 || b.Position().X != 2 {
		t.Error("Instantiate ignored pos")
	}
}

func TestCatalogAddAndLookup(t *testing.T) {
	c := NewCatalog()
	c.Add(NewTemplate("a", NewEntity("a")))
	c.Add(NewTemplate("b", NewEntity("b")))
	replacement := NewEntity("a2")
	c.Add(NewTemplate("a", replacement))

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if c.Index("a") != 0 || c.Index("b") != 1 || c.Index("zz") != -1 {
		t.Error("Index wrong")
	}
	first, ok := c.At(0)
	if !ok || first.Prototype().Name != "a2" {
		t.Error("same-name template not replaced in place")
	}
	if _, ok := c.At(2); ok {
		t.Error("At out of range succeeded")
	}
	if _, err := c.ByName("missing"); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("ByName err = %v", err)
	}
}

func TestLoadCatalogPartial(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b_lamp.ent.yaml": lampDef,
		"a_rock.ent.yaml": "sprite: rock.png\n",
		"c_bad.ent.yaml":  "color: not-a-color\n",
		"notes.txt":       "ignored",
		"d_plain.yaml":    "sprite: ignored.png\n",
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c, err := LoadCatalog(dir)
	if err == nil {
		t.Error("bad definition not reported")
	}
	if c == nil || c.Len() != 2 {
		t.Fatalf("catalog = %v", c)
	}
	first, _ := c.At(0)
	second, _ := c.At(1)
	if first.Name != "a_rock" || second.Name != "lamp" {
		t.Errorf("order = %s, %s", first.Name, second.Name)
	}
}

func TestLoadCatalogMissingDir(t *testing.T) {
	c, err := LoadCatalog(filepath.Join(t.TempDir(), "absent"))
	if c != nil || !errors.Is(err, ErrIO) {
		t.Errorf("LoadCatalog = %v, %v", c, err)
	}
}

func TestBundledTemplatesLoad(t *testing.T) {
	c, err := LoadCatalog(filepath.Join("examples", "editor", "templates"))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"hero", "torch", "trigger", "wall"} {
		if _, err := c.ByName(name); err != nil {
			t.Error(err)
		}
	}
	torch, _ := c.ByName("torch")
	p := torch.Prototype()
	if !p.IsStatic() || p.Light == nil || !p.Light.Static || len(p.Particles) != 1 {
		t.Fatalf("torch = %+v", p)
	}
	if !p.Particles[0].Config().Additive {
		t.Error("torch particles not additive")
	}
}

func TestHexColor(t *testing.T) {
	if got := HexColor(Color{1, 0.5, 0, 1}); got != "#ff8000" {
		t.Errorf("HexColor = %q", got)
	}
	if got := HexColor(Color{2, -1, 0, 1}); got != "#ff0000" {
		t.Errorf("HexColor clamps: %q", got)
	}
	c, err := parseHexColor("#ff8000")
	if err != nil {
		t.Fatal(err)
	}
	if HexColor(c) != "#ff8000" {
		t.Errorf("round trip = %q", HexColor(c))
	}
}
