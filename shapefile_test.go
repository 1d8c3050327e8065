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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/geom"
)

func TestOpenShapefile(t *testing.T) {
	path := writeTestShapefile(t, projected, square(0, 0, 100), square(200, 0, 50))
	src, err := OpenShapefile(path)
	if err != nil {
		t.Fatal(err)
	}
	if src.GeometryType() != PolygonGeometry {
		t.Errorf("geometry type = %v", src.GeometryType())
	}
	if src.FeatureCount() != 2 {
		t.Errorf("count = %d, want 2", src.FeatureCount())
	}
	if src.CRS() == nil || src.CRS().IsGeographic() {
		t.Errorf("crs = %v", src.CRS())
	}
	fields := src.Fields()
	want := []FieldType{String, Integer, Float}
	if len(fields) != len(want) {
		t.Fatalf("fields = %+v", fields)
	}
	for i, f := range fields {
		if f.Type != want[i] {
			t.Errorf("field %s has type %v, want %v", f.Name, f.Type, want[i])
		}
	}

	features := readAll(t, src)
	if len(features) != 2 {
		t.Fatalf("read %d features", len(features))
	}
	f := features[1]
	if f.Attributes[0] != "b" || f.Attributes[1] != 1 || f.Attributes[2] != 1.5 {
		t.Errorf("attributes = %#v", f.Attributes)
	}
	if a := area(f.Geometry); !similar(a, 2500, 1e-9) {
		t.Errorf("area = %g, want 2500", a)
	}
}

func TestOpenShapefileErrors(t *testing.T) {
	if _, err := OpenShapefile(filepath.Join(t.TempDir(), "missing.shp")); err == nil {
		t.Error("opened a missing file")
	}
	path := writeTestShapefile(t, "", square(0, 0, 1))
	src, err := OpenShapefile(path)
	if err != nil {
		t.Fatal(err)
	}
	if src.CRS() != nil {
		t.Errorf("crs = %v, want none", src.CRS())
	}
	writeFile(t, basePath(path)+".prj", "garbage")
	if _, err := OpenShapefile(path); err == nil {
		t.Error("no error for an invalid .prj file")
	}
}

func TestShapefileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	crs := mustCRS(t, projected)
	fields := Schema{
		{Name: "Name", Type: String, Size: 20},
		{Name: "Count", Type: Integer},
		{Name: "Value", Type: Float},
		{Name: "a_long_field_name", Type: Float},
	}
	dest := ShapefileDestination{Path: filepath.Join(dir, "out")}
	if id := dest.ID(); id != filepath.Join(dir, "out.shp") {
		t.Errorf("ID = %s", id)
	}
	sink, err := dest.Create(fields, PolygonGeometry, crs)
	if err != nil {
		t.Fatal(err)
	}
	holed := geom.Polygon{square(0, 0, 10)[0], square(4, 4, 2)[0]}
	input := []*Feature{
		{Attributes: []interface{}{"x", 3, 2.25, 1e6}, Geometry: holed},
		{Attributes: []interface{}{"y", nil, nil, 0.}, Geometry: geom.Polygon{}},
		{Attributes: []interface{}{"z", int64(7), float32(0.5), -1.}, Geometry: nil},
	}
	for _, f := range input {
		if err := sink.Append(f); err != nil {
			t.Fatal(err)
		}
	}
	l, err := sink.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if l.FeatureCount() != 3 {
		t.Fatalf("have %d features, want 3", l.FeatureCount())
	}
	if l.StylePath() != filepath.Join(dir, "out.style.toml") {
		t.Errorf("style path = %s", l.StylePath())
	}
	b, err := os.ReadFile(filepath.Join(dir, "out.prj"))
	if err != nil || string(b) != crs.Definition {
		t.Errorf("prj = %q, %v", b, err)
	}

	if names := strings.Join(l.Fields().Names(), ","); names != "Name,Count,Value,a_long_fie" {
		t.Errorf("fields = %s", names)
	}
	f0, f1, f2 := l.Feature(0), l.Feature(1), l.Feature(2)
	if a := area(f0.Geometry); !similar(a, 96, 1e-9) {
		t.Errorf("holed area = %g, want 96", a)
	}
	if f0.Attributes[0] != "x" || f0.Attributes[1] != 3 || f0.Attributes[2] != 2.25 || f0.Attributes[3] != 1e6 {
		t.Errorf("attributes 0 = %#v", f0.Attributes)
	}
	if area(f1.Geometry) != 0 || f1.Attributes[1] != nil || f1.Attributes[2] != nil {
		t.Errorf("feature 1 = %#v, %v", f1.Attributes, f1.Geometry)
	}
	if area(f2.Geometry) != 0 || f2.Attributes[1] != 7 || f2.Attributes[2] != 0.5 {
		t.Errorf("feature 2 = %#v, %v", f2.Attributes, f2.Geometry)
	}
}

func TestShapefileDestinationErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := (ShapefileDestination{Path: filepath.Join(dir, "nodir", "out.shp")}).Create(testSchema, PolygonGeometry, nil); err == nil {
		t.Error("created output in a missing directory")
	}
	if _, err := (ShapefileDestination{Path: filepath.Join(dir, "pts.shp")}).Create(testSchema, PointGeometry, nil); err == nil {
		t.Error("created a point output")
	}
	clash := Schema{{Name: "population_2010"}, {Name: "population_2020"}}
	if _, err := (ShapefileDestination{Path: filepath.Join(dir, "clash.shp")}).Create(clash, PolygonGeometry, nil); err == nil {
		t.Error("no error for field names that are the same when truncated")
	}
}

func TestShapefileSinkBadAttribute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.shp")
	sink, err := ShapefileDestination{Path: path}.Create(testSchema, PolygonGeometry, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Append(&Feature{Attributes: []interface{}{"a", 1}, Geometry: square(0, 0, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Append(&Feature{Attributes: []interface{}{"b", "many"}, Geometry: square(0, 0, 2)}); err == nil {
		t.Error("no error for a non-numeric integer value")
	}
	if err := sink.Append(&Feature{Attributes: []interface{}{"c", 3}, Geometry: square(0, 0, 3)}); err != nil {
		t.Fatal(err)
	}
	l, err := sink.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if n := l.FeatureCount(); n != 2 {
		t.Fatalf("output has %d features, want 2", n)
	}
	if name := l.Feature(1).Attributes[0]; name != "c" {
		t.Errorf("second feature name = %v, want c", name)
	}
}

func TestShapefileOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.shp")
	for i := 0; i < 2; i++ {
		sink, err := ShapefileDestination{Path: path}.Create(testSchema, PolygonGeometry, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := sink.Append(&Feature{Attributes: []interface{}{"a", i}, Geometry: square(0, 0, 1)}); err != nil {
			t.Fatal(err)
		}
		l, err := sink.Finalize()
		if err != nil {
			t.Fatal(err)
		}
		if l.FeatureCount() != 1 || l.Feature(0).Attributes[1] != i {
			t.Errorf("run %d: output = %v", i, l.Feature(0).Attributes)
		}
	}
}

func TestShapefileStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styled.shp")
	sink, err := ShapefileDestination{Path: path}.Create(testSchema, PolygonGeometry, mustCRS(t, projected))
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range []float64{10, 20, 30} {
		if err := sink.Append(&Feature{Attributes: []interface{}{"a", i}, Geometry: square(0, 0, s)}); err != nil {
			t.Fatal(err)
		}
	}
	l, err := sink.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	r, err := Styler{Classes: 2}.Style(l)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(StylePath(path)); err != nil {
		t.Fatal(err)
	}

	src, err := OpenShapefile(path)
	if err != nil {
		t.Fatal(err)
	}
	reloaded, err := src.Load()
	if err != nil {
		t.Fatal(err)
	}
	rr := reloaded.Renderer()
	if rr == nil {
		t.Fatal("style was not reloaded")
	}
	if rr.Fingerprint() != r.Fingerprint() {
		t.Errorf("reloaded renderer %+v differs from %+v", rr, r)
	}
	vals, err := reloaded.Values("area")
	if err != nil {
		t.Fatal(err)
	}
	if vals[2] != 900 {
		t.Errorf("areas = %v", vals)
	}
}
