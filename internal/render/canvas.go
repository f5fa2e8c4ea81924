package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"
)

var parseRegular = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// faces holds the text faces for one render call. Faces are not safe for
// concurrent use, so every render builds its own.
type faces struct {
	header  font.Face
	caption font.Face
}

func newFaces() (*faces, error) {
	f, err := parseRegular()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	header, err := opentype.NewFace(f, &opentype.FaceOptions{Size: HeaderTextSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("header face: %w", err)
	}
	caption, err := opentype.NewFace(f, &opentype.FaceOptions{Size: CaptionTextSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		header.Close()
		return nil, fmt.Errorf("caption face: %w", err)
	}
	return &faces{header: header, caption: caption}, nil
}

func (f *faces) Close() {
	f.header.Close()
	f.caption.Close()
}

// canvas is one page bitmap with a white background.
type canvas struct {
	img *image.RGBA
}

func newCanvas() *canvas {
	img := image.NewRGBA(image.Rect(0, 0, PageW, PageH))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return &canvas{img: img}
}

// drawCover center-crops src to the aspect ratio of dst and scales the crop
// into dst.
func (c *canvas) drawCover(src image.Image, dst Rect) {
	target := dst.Pixels()
	if target.Empty() {
		return
	}
	b := src.Bounds()
	crop := CenterCrop(b.Dx(), b.Dy(), target.Dx(), target.Dy())
	if crop.Empty() {
		return
	}
	crop = crop.Add(b.Min)
	draw.CatmullRom.Scale(c.img, target, src, crop, draw.Over, nil)
}

// strokeRect draws a stroke of width w centered on the outline of r, as four
// non-overlapping bands so that translucent colors blend only once.
func (c *canvas) strokeRect(r Rect, w float64, col color.NRGBA) {
	if w <= 0 {
		return
	}
	half := w / 2
	px := func(v float64) int { return int(math.Round(v)) }

	ox0, oy0 := px(r.X-half), px(r.Y-half)
	ox1, oy1 := px(r.X+r.W+half), px(r.Y+r.H+half)
	ix0, iy0 := px(r.X+half), px(r.Y+half)
	ix1, iy1 := px(r.X+r.W-half), px(r.Y+r.H-half)
	if ix1 < ix0 {
		ix0, ix1 = ox0, ox0
	}
	if iy1 < iy0 {
		iy0, iy1 = oy0, oy0
	}

	src := image.NewUniform(col)
	bands := []image.Rectangle{
		image.Rect(ox0, oy0, ox1, iy0), // top
		image.Rect(ox0, iy1, ox1, oy1), // bottom
		image.Rect(ox0, iy0, ix0, iy1), // left
		image.Rect(ix1, iy0, ox1, iy1), // right
	}
	for _, band := range bands {
		band = band.Intersect(c.img.Bounds())
		if band.Empty() {
			continue
		}
		draw.Draw(c.img, band, src, image.Point{}, draw.Over)
	}
}

// drawText draws s in black with its baseline at y.
func (c *canvas) drawText(face font.Face, s string, x, y float64) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(norm.NFC.String(s))
}

// frameColor applies the fixed frame alpha to an opaque color.
func frameColor(c color.NRGBA) color.NRGBA {
	c.A = frameAlpha
	return c
}
