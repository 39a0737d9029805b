package ebitenbackend

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"go.uber.org/zap"

	"github.com/phanxgames/umbra"
)

// RunConfig configures the editor window.
type RunConfig struct {
	Title         string
	Width, Height int
	// ShowFPS draws an FPS/TPS counter in the top-right corner.
	ShowFPS bool
	// VertexOnly disables pixel-shader lighting.
	VertexOnly bool
	// ScreenshotDir overrides the screenshot directory.
	ScreenshotDir string
	// Sprites supplies sprite images. Nil reads the working directory.
	Sprites *SpriteCache
	// Script, when set, drives the editor instead of live input until it
	// is exhausted.
	Script *umbra.ScriptRunner
	// ExitOnScriptDone ends Run once Script has replayed every frame.
	ExitOnScriptDone bool
	// Background fills the screen before each frame.
	Background color.Color
	// OnFrame, when set, runs after each scene frame is drawn.
	OnFrame func()
}

func (c *RunConfig) defaults() {
	if c.Title == "" {
		c.Title = "umbra"
	}
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 720
	}
	if c.Background == nil {
		c.Background = color.RGBA{R: 16, G: 16, B: 24, A: 255}
	}
}

// Run opens a window and runs the editor until it is closed. It installs a
// pass renderer on the editor's scene, using the scene's preferred render
// mode where the hardware allows it.
func Run(ed *umbra.Editor, cfg RunConfig) error {
	cfg.defaults()
	b := NewBackend(cfg.Sprites, cfg.Width, cfg.Height, cfg.VertexOnly)
	if cfg.ScreenshotDir != "" {
		b.ScreenshotDir = cfg.ScreenshotDir
	}

	s := ed.Scene()
	r, err := umbra.NewPassRenderer(b, s.Prefs.Mode())
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	s.SetRenderer(r)
	s.Camera.Viewport = umbra.Rect{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	s.Camera.MarkDirty()

	g := &game{
		ed:      ed,
		backend: b,
		input:   NewInput(),
		cfg:     cfg,
		dt:      1.0 / float64(ebiten.TPS()),
	}
	if cfg.Script != nil && cfg.Script.OnScreenshot == nil {
		cfg.Script.OnScreenshot = b.Screenshot
	}

	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	umbra.Logger().Info("editor starting",
		zap.String("title", cfg.Title),
		zap.Stringer("mode", r.Mode()),
		zap.Int("templates", ed.Catalog().Len()))

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// game adapts the editor to ebiten.Game. Input is applied in Update; the
// scene's frame (update, cull, render, lightmap invalidation) runs in Draw.
type game struct {
	ed      *umbra.Editor
	backend *Backend
	input   *Input
	cfg     RunConfig
	dt      float64

	fps        fpsCounter
	lmVersion  uint64
	scriptDone bool
}

func (g *game) Update() error {
	g.input.Poll()

	var src umbra.InputBackend = g.input
	if s := g.cfg.Script; s != nil && !g.scriptDone {
		if s.Next() {
			src = s
		} else {
			g.scriptDone = true
			umbra.Logger().Info("input script finished", zap.Int("frames", s.Frames()))
			if g.cfg.ExitOnScriptDone {
				return ebiten.Termination
			}
		}
	}
	g.ed.Step(umbra.Snapshot(src))
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(g.cfg.Background)
	g.backend.SetTarget(screen)

	s := g.ed.Scene()
	s.Frame(g.dt)
	g.ed.DrawOverlay(g.backend)
	if g.cfg.OnFrame != nil {
		g.cfg.OnFrame()
	}

	if set := s.Lightmaps.Current(); set.Version() != g.lmVersion {
		g.lmVersion = set.Version()
		g.backend.PruneLightmaps(set)
	}

	y := 4
	for _, line := range g.ed.StatusLines() {
		ebitenutil.DebugPrintAt(screen, line, 4, y)
		y += 16
	}
	y += 8
	for _, msg := range g.ed.Messages() {
		ebitenutil.DebugPrintAt(screen, msg, 4, y)
		y += 16
	}
	if g.cfg.ShowFPS {
		g.fps.draw(screen, g.dt)
	}

	g.backend.flushScreenshots(screen)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.ed.Scene()
	w, h := float64(outsideWidth), float64(outsideHeight)
	if s.Camera.Viewport.Width != w || s.Camera.Viewport.Height != h {
		s.Camera.Viewport = umbra.Rect{Width: w, Height: h}
		s.Camera.MarkDirty()
	}
	return outsideWidth, outsideHeight
}
