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
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

const (
	projected  = "+proj=lcc +lat_1=33.000000 +lat_2=45.000000 +lat_0=40.000000 +lon_0=-97.000000 +x_0=0 +y_0=0 +a=6370997.000000 +b=6370997.000000 +to_meter=1"
	geographic = "+proj=longlat"
)

func square(x0, y0, side float64) geom.Polygon {
	return geom.Polygon{{
		geom.Point{X: x0, Y: y0},
		geom.Point{X: x0 + side, Y: y0},
		geom.Point{X: x0 + side, Y: y0 + side},
		geom.Point{X: x0, Y: y0 + side},
	}}
}

// regularPolygonArea is the area of a polygon with n vertices on a circle
// of radius r.
func regularPolygonArea(n int, r float64) float64 {
	return float64(n) / 2 * r * r * math.Sin(2*math.Pi/float64(n))
}

func mustCRS(t *testing.T, def string) *CRS {
	t.Helper()
	c, err := ParseCRS(def)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

var testSchema = Schema{
	{Name: "Name", Type: String, Size: 20},
	{Name: "Count", Type: Integer, Size: 10},
}

// testLayer returns an in-memory layer with one square per side length,
// laid out so that the squares do not overlap.
func testLayer(t *testing.T, sides ...float64) *Layer {
	t.Helper()
	l := NewLayer("test", testSchema, PolygonGeometry, mustCRS(t, projected))
	x := 0.
	for i, s := range sides {
		f := &Feature{
			Attributes: []interface{}{string(rune('a' + i)), i},
			Geometry:   square(x, 0, s),
		}
		if err := l.Append(f); err != nil {
			t.Fatal(err)
		}
		x += s + 1000
	}
	return l
}

type testRecord struct {
	geom.Polygon
	Name  string
	Count int
	Value float64
}

// writeTestShapefile writes a polygon shapefile with one record per
// polygon and returns its path. prj is written to the .prj file if it is
// not empty.
func writeTestShapefile(t *testing.T, prj string, polys ...geom.Polygon) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.shp")
	e, err := shp.NewEncoder(path, testRecord{})
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range polys {
		if err := e.Encode(testRecord{
			Polygon: p,
			Name:    string(rune('a' + i)),
			Count:   i,
			Value:   float64(i) + 0.5,
		}); err != nil {
			t.Fatal(err)
		}
	}
	e.Close()
	if prj != "" {
		writeFile(t, basePath(path)+".prj", prj)
	}
	return path
}

func readAll(t *testing.T, src Source) []*Feature {
	t.Helper()
	var out []*Feature
	it := src.Features()
	for {
		f, err := it.Next()
		if err == io.EOF {
			return out
		} else if err != nil {
			t.Fatal(err)
		}
		out = append(out, f)
	}
}

func area(g geom.Geom) float64 { return geometryArea(g) }

func similar(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(math.Abs(a), math.Abs(b))
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}
