/*
Copyright © 2022 the bufclip authors.
This file is part of bufclip.

bufclip is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

bufclip is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with bufclip.  If not, see <http://www.gnu.org/licenses/>.
*/

package bufclip

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/carto"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Preview draws the features of a layer as a PNG map.
type Preview struct {
	// Width and Height are the size of the image. Zero values mean 6 by
	// 6 inches.
	Width, Height vg.Length

	// DPI is the image resolution. Default 96.
	DPI int

	// Fill is used for features that the layer renderer does not color,
	// and for all features of layers without a renderer.
	Fill color.NRGBA

	Outline draw.LineStyle
}

// DefaultPreview draws gray features with thin black outlines.
var DefaultPreview = Preview{
	Fill:    color.NRGBA{R: 200, G: 200, B: 200, A: 255},
	Outline: draw.LineStyle{Color: color.Black, Width: vg.Points(0.5)},
}

// WriteFile draws l to a PNG file at path.
func (p Preview) WriteFile(path string, l *Layer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bufclip: creating preview: %w", err)
	}
	if err := p.Draw(f, l); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Draw draws l to w in PNG format.
func (p Preview) Draw(w io.Writer, l *Layer) error {
	if p.Width == 0 {
		p.Width = 6 * vg.Inch
	}
	if p.Height == 0 {
		p.Height = 6 * vg.Inch
	}
	if p.DPI == 0 {
		p.DPI = 96
	}
	img := vgimg.NewWith(vgimg.UseWH(p.Width, p.Height), vgimg.UseDPI(p.DPI))
	dc := draw.New(img)

	geoms := l.Geometries()
	b := geom.NewBounds()
	for _, g := range geoms {
		if g == nil || isEmpty(g) {
			continue
		}
		b.Extend(g.Bounds())
	}
	if b.Empty() {
		// Nothing to draw; write a blank image.
		_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
		return err
	}
	// Pad so that outlines at the edges are visible and degenerate
	// extents still have a scale.
	padX := (b.Max.X - b.Min.X) * 0.05
	padY := (b.Max.Y - b.Min.Y) * 0.05
	if padX == 0 {
		padX = 1
	}
	if padY == 0 {
		padY = 1
	}
	c := carto.NewCanvas(b.Max.Y+padY, b.Min.Y-padY, b.Max.X+padX, b.Min.X-padX, dc)

	r := l.Renderer()
	var vals []float64
	if r != nil {
		var err error
		if vals, err = l.Values(r.Attribute); err != nil {
			return err
		}
	}
	for i, g := range geoms {
		if g == nil || isEmpty(g) {
			continue
		}
		fill := p.Fill
		if r != nil {
			if col, ok := r.ColorFor(vals[i]); ok {
				fill = col
			}
		}
		if err := c.DrawVector(g, fill, p.Outline, draw.GlyphStyle{}); err != nil {
			return fmt.Errorf("bufclip: drawing feature %d: %w", i, err)
		}
	}
	_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	return err
}

func isEmpty(g geom.Geom) bool {
	p, ok := g.(geom.Polygonal)
	if !ok {
		return false
	}
	for _, poly := range p.Polygons() {
		for _, r := range poly {
			if len(r) > 0 {
				return false
			}
		}
	}
	return true
}
