package render

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas is a Surface backed by an RGBA image.
type Canvas struct {
	img  *image.RGBA
	face font.Face
}

// NewCanvas creates a transparent canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		face: basicfont.Face7x13,
	}
}

// Image returns the backing image. It is overwritten by the next frame.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// DrawText renders with the bitmap face and scales the result up to the
// requested pixel size.
func (c *Canvas) DrawText(text string, style TextStyle) {
	if text == "" {
		return
	}
	col := style.Color
	if col == nil {
		col = color.White
	}

	metrics := c.face.Metrics()
	lineH := (metrics.Ascent + metrics.Descent).Ceil()
	width := font.MeasureString(c.face, text).Ceil()
	if width == 0 || lineH == 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, width, lineH))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.P(0, metrics.Ascent.Ceil()),
	}
	d.DrawString(text)

	scale := 1.0
	if style.SizePx > 0 {
		scale = float64(style.SizePx) / float64(lineH)
	}
	w := int(float64(width) * scale)
	h := int(float64(lineH) * scale)

	top := style.Origin.Y
	if !style.BaselineTop {
		top -= int(float64(metrics.Ascent.Ceil()) * scale)
	}
	dst := image.Rect(style.Origin.X, top, style.Origin.X+w, top+h)
	xdraw.NearestNeighbor.Scale(c.img, dst, glyphs, glyphs.Bounds(), xdraw.Over, nil)
}

// DrawFrame copies the frame at its own resolution, anchored at the origin.
func (c *Canvas) DrawFrame(frame image.Image) {
	if frame == nil {
		return
	}
	xdraw.Copy(c.img, image.Point{}, frame, frame.Bounds(), xdraw.Over, nil)
}
