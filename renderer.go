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
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/bufclip/internal/hash"
)

// Range is one class of a graduated renderer. Values v with
// Lower <= v <= Upper are drawn with Color.
type Range struct {
	Lower, Upper float64
	Label        string
	Color        color.NRGBA
}

// GraduatedRenderer colors features by the class that the value of
// Attribute falls in.
type GraduatedRenderer struct {
	Attribute string
	Method    string
	Ranges    []Range
}

// NewGraduatedRenderer creates a renderer with one range per upper bound in
// breaks. The first range starts at min and each range gets the matching
// color from colors.
func NewGraduatedRenderer(attribute, method string, min float64, breaks []float64, colors []color.NRGBA) *GraduatedRenderer {
	r := &GraduatedRenderer{
		Attribute: attribute,
		Method:    method,
		Ranges:    make([]Range, len(breaks)),
	}
	lower := min
	for i, upper := range breaks {
		r.Ranges[i] = Range{
			Lower: lower,
			Upper: upper,
			Label: fmt.Sprintf("%.4f - %.4f", lower, upper),
			Color: colors[i],
		}
		lower = upper
	}
	return r
}

// ColorFor returns the color of the range containing v. ok is false if v
// is outside all ranges.
func (r *GraduatedRenderer) ColorFor(v float64) (c color.NRGBA, ok bool) {
	for _, rg := range r.Ranges {
		if v >= rg.Lower && v <= rg.Upper {
			return rg.Color, true
		}
	}
	return c, false
}

// Fingerprint returns a digest of the renderer contents. Renderers with the
// same attribute, method, ranges, and colors have the same fingerprint.
func (r *GraduatedRenderer) Fingerprint() string {
	return hash.Fingerprint(r)
}

// styleFile is the on-disk form of a layer style.
type styleFile struct {
	Expressions []expressionFile `toml:"expression"`
	Renderer    *rendererFile    `toml:"renderer"`
}

type expressionFile struct {
	Name       string
	Expression string
}

type rendererFile struct {
	Type      string
	Attribute string
	Method    string
	Ranges    []rangeFile `toml:"range"`
}

type rangeFile struct {
	Lower, Upper float64
	Label        string
	Color        string
}

func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func parseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// writeStyle saves the expression fields and renderer of a layer to a
// TOML file at path.
func writeStyle(path string, exprs []*expressionField, r *GraduatedRenderer) error {
	var sf styleFile
	for _, e := range exprs {
		sf.Expressions = append(sf.Expressions, expressionFile{Name: e.name, Expression: e.source})
	}
	if r != nil {
		rf := &rendererFile{Type: "graduated", Attribute: r.Attribute, Method: r.Method}
		for _, rg := range r.Ranges {
			rf.Ranges = append(rf.Ranges, rangeFile{
				Lower: rg.Lower, Upper: rg.Upper, Label: rg.Label, Color: hexColor(rg.Color),
			})
		}
		sf.Renderer = rf
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bufclip: creating style file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(sf); err != nil {
		f.Close()
		return fmt.Errorf("bufclip: writing style file: %w", err)
	}
	return f.Close()
}

// readStyle reads a file written by writeStyle. The renderer is nil if the
// file does not define one.
func readStyle(path string) ([]expressionFile, *GraduatedRenderer, error) {
	var sf styleFile
	if _, err := toml.DecodeFile(path, &sf); err != nil {
		return nil, nil, fmt.Errorf("bufclip: reading style file %s: %w", path, err)
	}
	if sf.Renderer == nil {
		return sf.Expressions, nil, nil
	}
	if sf.Renderer.Type != "graduated" {
		return nil, nil, fmt.Errorf("bufclip: style file %s: unsupported renderer type %q", path, sf.Renderer.Type)
	}
	r := &GraduatedRenderer{
		Attribute: sf.Renderer.Attribute,
		Method:    sf.Renderer.Method,
		Ranges:    make([]Range, len(sf.Renderer.Ranges)),
	}
	for i, rg := range sf.Renderer.Ranges {
		c, err := parseHexColor(rg.Color)
		if err != nil {
			return nil, nil, fmt.Errorf("bufclip: style file %s: %w", path, err)
		}
		r.Ranges[i] = Range{Lower: rg.Lower, Upper: rg.Upper, Label: rg.Label, Color: c}
	}
	return sf.Expressions, r, nil
}
