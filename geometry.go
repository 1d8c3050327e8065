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
	"math"

	"github.com/ctessum/geom"
)

// DefaultSegments is the number of straight edges used to approximate each
// quarter of a buffer circle.
const DefaultSegments = 5

// Buffer returns a polygon approximating the circle with radius d around
// p, with segments edges per quarter circle. The result is empty if d is
// not a positive finite number or p is not a finite point.
func Buffer(p geom.Point, d float64, segments int) geom.Polygon {
	if !(d > 0) || math.IsInf(d, 0) || !finite(p) {
		return geom.Polygon{}
	}
	if segments < 1 {
		segments = 1
	}
	return p.Buffer(d, 4*segments)
}

// Centroid returns the area-weighted center of g. ok is false when g has
// no area, in which case there is no meaningful center.
// Rings may be open or closed and wound in either direction; a ring
// inside an odd number of other rings of its polygon is a hole.
func Centroid(g geom.Polygonal) (c geom.Point, ok bool) {
	var a, x, y float64
	for _, p := range compact(g).Polygons() {
		for i, r := range p {
			ra, rc := ringCentroid(r)
			if ra == 0 {
				continue
			}
			if isHole(p, i) {
				ra = -ra
			}
			a += ra
			x += rc.X * ra
			y += rc.Y * ra
		}
	}
	if !(a > 0) {
		return geom.Point{X: math.NaN(), Y: math.NaN()}, false
	}
	c = geom.Point{X: x / a, Y: y / a}
	return c, finite(c)
}

// ringCentroid returns the unsigned area and the centroid of r.
func ringCentroid(r []geom.Point) (float64, geom.Point) {
	var a, cx, cy float64
	for i := range r {
		p0, p1 := r[i], r[(i+1)%len(r)]
		cross := p0.X*p1.Y - p1.X*p0.Y
		a += cross
		cx += (p0.X + p1.X) * cross
		cy += (p0.Y + p1.Y) * cross
	}
	a /= 2
	if a == 0 {
		return 0, geom.Point{}
	}
	return math.Abs(a), geom.Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

func isHole(p geom.Polygon, i int) bool {
	n := 0
	for _, pt := range p[i] {
		n = 0
		onEdge := false
		for j, r := range p {
			if j == i {
				continue
			}
			switch pt.Within(geom.Polygon{r}) {
			case geom.Inside:
				n++
			case geom.OnEdge:
				onEdge = true
			}
		}
		if !onEdge {
			break
		}
	}
	return n%2 == 1
}

// BufferClip returns the part of g that lies within distance d of its
// centroid. g must be polygonal; a nil geometry or one without area gives
// an empty polygon.
func BufferClip(g geom.Geom, d float64, segments int) (geom.Polygon, error) {
	if g == nil {
		return geom.Polygon{}, nil
	}
	p, ok := g.(geom.Polygonal)
	if !ok {
		return nil, fmt.Errorf("geometry of type %T is not polygonal", g)
	}
	c, ok := Centroid(p)
	if !ok {
		return geom.Polygon{}, nil
	}
	buf := Buffer(c, d, segments)
	if len(buf) == 0 {
		return geom.Polygon{}, nil
	}
	return flatten(buf.Intersection(compact(p))), nil
}

// flatten merges the rings of all polygons in g into a single polygon.
func flatten(g geom.Polygonal) geom.Polygon {
	out := geom.Polygon{}
	if g == nil {
		return out
	}
	for _, p := range g.Polygons() {
		for _, r := range p {
			if len(r) < 3 {
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

// compact returns g without degenerate rings.
func compact(g geom.Polygonal) geom.Polygonal {
	if g == nil {
		return geom.Polygon{}
	}
	polys := g.Polygons()
	mp := make(geom.MultiPolygon, 0, len(polys))
	for _, p := range polys {
		var pp geom.Polygon
		for _, r := range p {
			if len(r) >= 3 {
				pp = append(pp, r)
			}
		}
		if len(pp) > 0 {
			mp = append(mp, pp)
		}
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

func finite(p geom.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

