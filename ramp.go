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
	"image/color"
	"math"
)

// GradientRamp interpolates linearly between two colors.
type GradientRamp struct {
	From, To color.NRGBA
}

// DefaultRamp runs from light gray to red.
var DefaultRamp = GradientRamp{
	From: color.NRGBA{R: 225, G: 225, B: 225, A: 255},
	To:   color.NRGBA{R: 255, G: 0, B: 0, A: 255},
}

// At returns the color at position t, which is clamped to [0, 1].
func (r GradientRamp) At(t float64) color.NRGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + t*(float64(b)-float64(a))))
	}
	return color.NRGBA{
		R: mix(r.From.R, r.To.R),
		G: mix(r.From.G, r.To.G),
		B: mix(r.From.B, r.To.B),
		A: mix(r.From.A, r.To.A),
	}
}

// Colors returns n colors evenly spaced along the ramp, starting at From
// and ending at To. A single color is From.
func (r GradientRamp) Colors(n int) []color.NRGBA {
	c := make([]color.NRGBA, n)
	for i := range c {
		var t float64
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		c[i] = r.At(t)
	}
	return c
}
