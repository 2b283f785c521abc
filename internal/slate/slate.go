// Package slate draws a preview card for a composition: its geometry,
// timing and id as text, the title-safe area, and a QR code of the id.
package slate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/ivlev/composer/internal/composition"
	"github.com/ivlev/composer/internal/system"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultMaxEdge caps the longest side of the slate in pixels.
	DefaultMaxEdge = 640
	// MaxEdgeLimit is the largest MaxEdge honoured; larger requests are
	// clamped so a slate never exceeds 4096x4096.
	MaxEdgeLimit = 4096

	safeArea  = 0.9
	margin    = 12
	lineSpace = 18
	minQRSize = 48
)

var (
	background = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	foreground = color.RGBA{R: 235, G: 235, B: 235, A: 255}
	guide      = color.RGBA{R: 230, G: 180, B: 40, A: 255}
)

type Options struct {
	MaxEdge int  // longest side of the output; DefaultMaxEdge when zero
	NoQR    bool // skip the QR code
}

// Size returns the slate dimensions for d: the composition's aspect ratio,
// scaled down so the longest side is at most maxEdge (itself capped at
// MaxEdgeLimit).
func Size(d composition.Descriptor, maxEdge int) (int, int) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	if maxEdge > MaxEdgeLimit {
		maxEdge = MaxEdgeLimit
	}
	w, h := d.Width(), d.Height()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxEdge {
		return w, h
	}
	scale := float64(maxEdge) / float64(longest)
	sw := int(float64(w)*scale + 0.5)
	sh := int(float64(h)*scale + 0.5)
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

// Render draws the slate for d. The canvas comes from a shared pool; hand
// it back with Release once it has been encoded.
func Render(d composition.Descriptor, opts Options) (*image.RGBA, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	w, h := Size(d, opts.MaxEdge)
	img := system.GetImage(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	drawSafeArea(img)

	lines := []string{
		d.ID(),
		fmt.Sprintf("%dx%d @ %g fps", d.Width(), d.Height(), d.FPS()),
		fmt.Sprintf("%d frames (%.2fs)", d.DurationInFrames(), d.DurationSeconds()),
		fmt.Sprintf("props: %d  defaults: %d", len(d.Props()), len(d.DefaultProps())),
	}
	drawLines(img, lines)

	if !opts.NoQR {
		if err := drawQR(img, d.ID()); err != nil {
			Release(img)
			return nil, err
		}
	}

	return img, nil
}

// Release returns a canvas obtained from Render to the pool.
func Release(img *image.RGBA) {
	system.PutImage(img)
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// drawSafeArea outlines the centred 90% title-safe rectangle.
func drawSafeArea(img *image.RGBA) {
	b := img.Bounds()
	dx := int(float64(b.Dx()) * (1 - safeArea) / 2)
	dy := int(float64(b.Dy()) * (1 - safeArea) / 2)
	r := image.Rect(b.Min.X+dx, b.Min.Y+dy, b.Max.X-dx-1, b.Max.Y-dy-1)
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return
	}
	for x := r.Min.X; x <= r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, guide)
		img.SetRGBA(x, r.Max.Y, guide)
	}
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, guide)
		img.SetRGBA(r.Max.X, y, guide)
	}
}

func drawLines(img *image.RGBA, lines []string) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(foreground),
		Face: basicfont.Face7x13,
	}

	y := margin + lineSpace
	for _, line := range lines {
		if y > img.Bounds().Dy()-margin {
			break
		}
		drawer.Dot = fixed.Point26_6{
			X: fixed.I(margin * 2),
			Y: fixed.I(y),
		}
		drawer.DrawString(line)
		y += lineSpace
	}
}

// drawQR places a QR code of content in the bottom-right corner, sized to
// a third of the short side. Canvases too small for a readable code are
// left without one.
func drawQR(img *image.RGBA, content string) error {
	b := img.Bounds()
	short := b.Dx()
	if b.Dy() < short {
		short = b.Dy()
	}
	size := short / 3
	if size < minQRSize {
		return nil
	}

	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to encode qr code: %w", err)
	}
	code := q.Image(size)

	at := image.Pt(b.Max.X-margin*2-code.Bounds().Dx(), b.Max.Y-margin*2-code.Bounds().Dy())
	draw.Draw(img, code.Bounds().Add(at), code, code.Bounds().Min, draw.Src)
	return nil
}
