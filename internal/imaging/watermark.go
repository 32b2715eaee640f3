// internal/imaging/watermark.go
package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// watermarkSpan is the share of the image diagonal the text covers.
const watermarkSpan = 0.6

// Watermark stamps text diagonally (45 degrees) across the centre of img at
// the given opacity. The text is scaled relative to the image diagonal.
func Watermark(img image.Image, text string, alpha float64) *image.NRGBA {
	dst := imaging.Clone(img)
	if text == "" || alpha <= 0 {
		return dst
	}

	b := dst.Bounds()
	diagonal := math.Hypot(float64(b.Dx()), float64(b.Dy()))

	label := renderText(text)
	width := int(diagonal * watermarkSpan)
	if width < 1 {
		return dst
	}
	label = imaging.Resize(label, width, 0, imaging.Linear)
	label = imaging.Rotate(label, 45, color.Transparent)

	lb := label.Bounds()
	pos := image.Pt((b.Dx()-lb.Dx())/2, (b.Dy()-lb.Dy())/2)
	return imaging.Overlay(dst, label, pos, alpha)
}

// renderText draws text in white with a dark one-pixel shadow on a
// transparent canvas, using the built-in bitmap face.
func renderText(text string) *image.NRGBA {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	const pad = 2
	canvas := image.NewNRGBA(image.Rect(0, 0, textWidth+2*pad, height+2*pad))
	draw.Draw(canvas, canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)

	baseline := pad + metrics.Ascent.Ceil()
	shadow := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.NRGBA{0, 0, 0, 160}),
		Face: face,
		Dot:  fixed.P(pad+1, baseline+1),
	}
	shadow.DrawString(text)

	fg := &font.Drawer{
		Dst:  canvas,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(pad, baseline),
	}
	fg.DrawString(text)
	return canvas
}
