package tree

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/erazemk/perutnina/internal/model"
)

// Options control how a tree is drawn.
type Options struct {
	Viewport   Viewport
	NodeRadius float64
	LineWidth  float64
}

func (o Options) withDefaults() Options {
	if o.Viewport.Width <= 0 {
		o.Viewport.Width = 1024
	}
	if o.Viewport.Height <= 0 {
		o.Viewport.Height = 1024
	}
	if o.NodeRadius <= 0 {
		o.NodeRadius = 14
	}
	if o.LineWidth <= 0 {
		o.LineWidth = 2
	}
	return o
}

// MaxCanvas bounds the width and height of rendered images.
const MaxCanvas = 4096

var (
	backgroundColor = color.RGBA{0xff, 0xff, 0xff, 0xff}
	lineColor       = color.RGBA{0x9e, 0x9e, 0x9e, 0xff}
	labelColor      = color.RGBA{0x21, 0x21, 0x21, 0xff}
)

// GenderColor is the fill color of a node.
func GenderColor(gender string) color.RGBA {
	switch gender {
	case model.GenderMale:
		return color.RGBA{0x42, 0x85, 0xf4, 0xff}
	case model.GenderFemale:
		return color.RGBA{0xe9, 0x1e, 0x63, 0xff}
	}
	return color.RGBA{0x75, 0x75, 0x75, 0xff}
}

// RenderPNG draws connections, then nodes and their labels, and writes the
// result as PNG. Shapes that fall outside the canvas are not drawn.
func RenderPNG(w io.Writer, tree FamilyTree, opts Options) error {
	opts = opts.withDefaults()
	width, height := int(opts.Viewport.Width), int(opts.Viewport.Height)
	if width > MaxCanvas || height > MaxCanvas {
		return fmt.Errorf("canvas %dx%d exceeds %d", width, height, MaxCanvas)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	points := Layout(tree, opts.Viewport)
	inside := func(p Point, margin float64) bool {
		return p.X-margin >= 0 && p.Y-margin >= 0 && p.X+margin <= float64(width) && p.Y+margin <= float64(height)
	}

	z := vector.NewRasterizer(width, height)
	fill := func(c color.RGBA) {
		z.DrawOp = draw.Over
		z.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
		z.Reset(width, height)
	}

	half := opts.LineWidth / 2
	for _, c := range tree.Connections {
		a, okA := points[c.From]
		b, okB := points[c.To]
		if !okA || !okB || !inside(a, half) || !inside(b, half) {
			continue
		}
		if line(z, a, b, opts.LineWidth) {
			fill(lineColor)
		}
	}

	for _, n := range tree.Nodes {
		p := points[n.ID]
		if !inside(p, opts.NodeRadius) {
			continue
		}
		circle(z, p, opts.NodeRadius)
		fill(GenderColor(n.Gender))
	}

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelColor), Face: face}
	for _, n := range tree.Nodes {
		p := points[n.ID]
		if !inside(p, opts.NodeRadius) {
			continue
		}
		label := n.Name
		if label == "" {
			label = n.ID
		}
		adv := d.MeasureString(label)
		d.Dot = fixed.Point26_6{
			X: fixed.I(int(p.X)) - adv/2,
			Y: fixed.I(int(p.Y + opts.NodeRadius + float64(face.Ascent) + 2)),
		}
		d.DrawString(label)
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// line adds a segment of the given width as a filled quad. It reports
// false for zero-length segments.
func line(z *vector.Rasterizer, a, b Point, width float64) bool {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return false
	}
	nx, ny := -dy/length*width/2, dx/length*width/2

	z.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	z.LineTo(float32(b.X+nx), float32(b.Y+ny))
	z.LineTo(float32(b.X-nx), float32(b.Y-ny))
	z.LineTo(float32(a.X-nx), float32(a.Y-ny))
	z.ClosePath()
	return true
}

// circle adds a polygonal circle.
func circle(z *vector.Rasterizer, c Point, r float64) {
	const segments = 32
	z.MoveTo(float32(c.X+r), float32(c.Y))
	for i := 1; i < segments; i++ {
		a := float64(i) / segments * 2 * math.Pi
		z.LineTo(float32(c.X+r*math.Cos(a)), float32(c.Y+r*math.Sin(a)))
	}
	z.ClosePath()
}
