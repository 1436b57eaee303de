package render

import (
	"image"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type anchor int

const (
	anchorLeft anchor = 1 << iota
	anchorCenter
	anchorRight
	anchorTop
	anchorMiddle
	anchorBottom
)

var face = basicfont.Face7x13

func textHeight() int {
	return face.Metrics().Height.Ceil()
}

// rasterize draws s at 1x into a tightly sized transparent image
func rasterize(s string) *image.RGBA {
	w := font.MeasureString(face, s).Ceil()
	if w == 0 {
		w = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, textHeight()))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(foreground),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
	return img
}

// rotateCCW turns an image 90 degrees counter-clockwise so text reads
// bottom to top
func rotateCCW(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGBA(y, b.Dx()-1-x, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// drawText places s relative to (x, y) according to a
func (r *Renderer) drawText(dst *image.RGBA, s string, x, y int, a anchor, vertical bool) {
	if s == "" {
		return
	}
	src := rasterize(s)
	if vertical {
		src = rotateCCW(src)
	}

	scale := r.opts.TextScale
	w, h := src.Bounds().Dx()*scale, src.Bounds().Dy()*scale

	switch {
	case a&anchorCenter != 0:
		x -= w / 2
	case a&anchorRight != 0:
		x -= w
	}
	switch {
	case a&anchorMiddle != 0:
		y -= h / 2
	case a&anchorBottom != 0:
		y -= h
	}

	xdraw.NearestNeighbor.Scale(dst, image.Rect(x, y, x+w, y+h), src, src.Bounds(), xdraw.Over, nil)
}

func hline(dst *image.RGBA, x0, x1, y int) {
	for x := x0; x < x1; x++ {
		dst.SetRGBA(x, y, foreground)
	}
}

func vline(dst *image.RGBA, x, y0, y1 int) {
	for y := y0; y < y1; y++ {
		dst.SetRGBA(x, y, foreground)
	}
}

func drawBorder(dst *image.RGBA, r image.Rectangle) {
	hline(dst, r.Min.X-1, r.Max.X+1, r.Min.Y-1)
	hline(dst, r.Min.X-1, r.Max.X+1, r.Max.Y)
	vline(dst, r.Min.X-1, r.Min.Y-1, r.Max.Y+1)
	vline(dst, r.Max.X, r.Min.Y-1, r.Max.Y+1)
}
