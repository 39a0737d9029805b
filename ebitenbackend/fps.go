package ebitenbackend

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// fpsCounter draws the current FPS and TPS, refreshed every half second.
type fpsCounter struct {
	img   *ebiten.Image
	since float64
}

func (f *fpsCounter) draw(screen *ebiten.Image, dt float64) {
	if f.img == nil {
		// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
		f.img = ebiten.NewImage(100, 32)
		f.since = 0.5
	}
	f.since += dt
	if f.since >= 0.5 {
		f.since = 0
		f.img.Clear()
		f.img.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrint(f.img, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(screen.Bounds().Dx()-f.img.Bounds().Dx()-4), 4)
	screen.DrawImage(f.img, op)
}
