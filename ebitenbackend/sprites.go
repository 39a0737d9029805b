package ebitenbackend

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/phanxgames/umbra"
)

// magentaImage is a 1x1 magenta image used to mark missing sprites.
var magentaImage *ebiten.Image

func ensureMagentaImage() *ebiten.Image {
	if magentaImage == nil {
		magentaImage = ebiten.NewImage(1, 1)
		magentaImage.Fill(color.RGBA{R: 255, G: 0, B: 255, A: 255})
	}
	return magentaImage
}

// whiteImage is a 1x1 white image used as the source of solid fills.
var whiteImage *ebiten.Image

func ensureWhiteImage() *ebiten.Image {
	if whiteImage == nil {
		whiteImage = ebiten.NewImage(1, 1)
		whiteImage.Fill(color.White)
	}
	return whiteImage
}

// SpriteCache loads sprite images by path and keeps them for the lifetime
// of the cache. Paths that fail to load are remembered and keep failing
// without touching the file system again.
type SpriteCache struct {
	fsys    fs.FS
	images  map[string]*ebiten.Image
	missing map[string]error
}

// NewSpriteCache creates a cache reading from fsys. A nil fsys reads paths
// relative to the working directory.
func NewSpriteCache(fsys fs.FS) *SpriteCache {
	if fsys == nil {
		fsys = os.DirFS(".")
	}
	return &SpriteCache{
		fsys:    fsys,
		images:  make(map[string]*ebiten.Image),
		missing: make(map[string]error),
	}
}

// Get returns the image for path. A sprite that cannot be loaded returns an
// error wrapping umbra.ErrResourceMissing.
func (c *SpriteCache) Get(path string) (*ebiten.Image, error) {
	if img, ok := c.images[path]; ok {
		return img, nil
	}
	if err, ok := c.missing[path]; ok {
		return nil, err
	}
	if path == "" {
		return ensureWhiteImage(), nil
	}
	img, err := c.load(path)
	if err != nil {
		err = fmt.Errorf("sprite %s: %w: %w", path, umbra.ErrResourceMissing, err)
		c.missing[path] = err
		return nil, err
	}
	c.images[path] = img
	return img, nil
}

// Put registers an image under path, replacing any cached or missing entry.
func (c *SpriteCache) Put(path string, img *ebiten.Image) {
	delete(c.missing, path)
	c.images[path] = img
}

func (c *SpriteCache) load(path string) (*ebiten.Image, error) {
	f, err := c.fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return ebiten.NewImageFromImage(src), nil
}

// frameRect returns the source rectangle of frame in a horizontal strip of
// frames whose aspect ratio matches size. Out-of-range frames use frame 0.
func frameRect(bounds image.Rectangle, size umbra.Vec2, frame int) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	if size.X <= 0 || size.Y <= 0 || h == 0 {
		return bounds
	}
	fw := int(float64(h) * size.X / size.Y)
	if fw <= 0 || fw >= w {
		return bounds
	}
	n := w / fw
	if frame < 0 || frame >= n {
		frame = 0
	}
	x := bounds.Min.X + frame*fw
	return image.Rect(x, bounds.Min.Y, x+fw, bounds.Max.Y)
}
