package recorder

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var timestampColor = color.RGBA{0, 255, 0, 255}

// stampTimestamp draws a human-readable timestamp into the lower-left
// corner of a copy of the frame.
func stampTimestamp(img image.Image, now time.Time) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	d := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(timestampColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(10), Y: fixed.I(bounds.Dy() - 10)},
	}
	d.DrawString(now.Format("2006-01-02 15:04:05"))
	return rgba
}
