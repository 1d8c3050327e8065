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
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestDefaultRegistry(t *testing.T) {
	algs := DefaultRegistry.Algorithms()
	names := []string{"centroidbuffer", "centroidbufferdistance", "centroidbufferstyled", "centroidbuffervalidated"}
	if len(algs) != len(names) {
		t.Fatalf("have %d algorithms, want %d", len(algs), len(names))
	}
	for i, a := range algs {
		if a.Name != names[i] {
			t.Errorf("algorithm %d = %s, want %s", i, a.Name, names[i])
		}
		if a.Group != "Centroid buffer" || a.GroupID != "centroidbuffer" || a.DisplayName == "" || a.Help == "" {
			t.Errorf("%s: incomplete metadata %+v", a.Name, a)
		}
		for _, p := range []string{ParamInput, ParamBufferSize, ParamOutput} {
			if _, ok := a.Parameter(p); !ok {
				t.Errorf("%s: no %s parameter", a.Name, p)
			}
		}
	}

	plain, _ := DefaultRegistry.Lookup("centroidbuffer")
	p, _ := plain.Parameter(ParamBufferSize)
	if p.Kind != NumberParam || p.Default != 1000. || p.Min != 100 || p.Max != 10000 || !p.HasMin || !p.HasMax {
		t.Errorf("buffer size parameter = %+v", p)
	}
	dist, _ := DefaultRegistry.Lookup("centroidbufferdistance")
	p, _ = dist.Parameter(ParamBufferSize)
	if p.Kind != DistanceParam || p.Default != 10. || p.Parent != ParamInput {
		t.Errorf("distance parameter = %+v", p)
	}
	styled, _ := DefaultRegistry.Lookup("centroidbufferstyled")
	if !styled.Validate || !styled.Style || !styled.HasOutput(OutputFeatureCount) || !styled.HTMLHelp {
		t.Errorf("styled = %+v", styled)
	}
	if plain.HasOutput(OutputFeatureCount) || plain.Validate || plain.Style {
		t.Errorf("plain = %+v", plain)
	}
	if _, ok := DefaultRegistry.Lookup("nope"); ok {
		t.Error("found an algorithm that does not exist")
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Algorithm{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&Algorithm{Name: "a"}); err == nil {
		t.Error("registered a duplicate")
	}
	if err := r.Register(&Algorithm{}); err == nil {
		t.Error("registered an algorithm without a name")
	}
}

func lookup(t *testing.T, name string) *Algorithm {
	t.Helper()
	a, ok := DefaultRegistry.Lookup(name)
	if !ok {
		t.Fatalf("no algorithm %s", name)
	}
	return a
}

func TestRunMemory(t *testing.T) {
	log, _ := test.NewNullLogger()
	pc := NewContext(log)
	src := testLayer(t, 2000, 2000)
	res, err := Run(context.Background(), lookup(t, "centroidbufferdistance"), Parameters{
		ParamInput:      src,
		ParamBufferSize: "500",
		ParamOutput:     "memory:buffered",
	}, pc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res[ParamOutput] != "memory:buffered" {
		t.Errorf("results = %v", res)
	}
	if _, ok := res[OutputFeatureCount]; ok {
		t.Errorf("unexpected feature count in %v", res)
	}
	l, ok := pc.Layer("memory:buffered")
	if !ok {
		t.Fatal("output layer not in context")
	}
	if l.FeatureCount() != 2 {
		t.Errorf("have %d features, want 2", l.FeatureCount())
	}
	if a := area(l.Feature(1).Geometry); !similar(a, regularPolygonArea(20, 500), 1e-6) {
		t.Errorf("area = %g", a)
	}
	if l.Renderer() != nil {
		t.Error("unstyled algorithm styled its output")
	}
}

func TestRunDefaultDistance(t *testing.T) {
	log, _ := test.NewNullLogger()
	pc := NewContext(log)
	_, err := Run(context.Background(), lookup(t, "centroidbuffer"), Parameters{
		ParamInput:  testLayer(t, 4000),
		ParamOutput: "memory:out",
	}, pc, nil)
	if err != nil {
		t.Fatal(err)
	}
	l, _ := pc.Layer("memory:out")
	if a := area(l.Feature(0).Geometry); !similar(a, regularPolygonArea(20, 1000), 1e-6) {
		t.Errorf("area = %g, want the area of a 1000 unit buffer", a)
	}
}

func TestRunParameterErrors(t *testing.T) {
	log, _ := test.NewNullLogger()
	plain := lookup(t, "centroidbuffer")
	validated := lookup(t, "centroidbuffervalidated")
	projectedLayer := testLayer(t, 100)
	geoLayer := NewLayer("geo", testSchema, PolygonGeometry, mustCRS(t, geographic))
	pointLayer := NewLayer("pts", testSchema, PointGeometry, nil)

	tests := []struct {
		name   string
		alg    *Algorithm
		params Parameters
		check  func(error) bool
	}{
		{
			name:   "missing input",
			alg:    plain,
			params: Parameters{ParamOutput: "memory:x"},
			check:  configError(ParamInput),
		},
		{
			name:   "blank input",
			alg:    plain,
			params: Parameters{ParamInput: " ", ParamOutput: "memory:x"},
			check:  configError(ParamInput),
		},
		{
			name:   "unopenable input",
			alg:    plain,
			params: Parameters{ParamInput: filepath.Join(t.TempDir(), "none.shp"), ParamOutput: "memory:x"},
			check:  configError(ParamInput),
		},
		{
			name:   "point input",
			alg:    plain,
			params: Parameters{ParamInput: pointLayer, ParamOutput: "memory:x"},
			check:  configError(ParamInput),
		},
		{
			name:   "missing output",
			alg:    plain,
			params: Parameters{ParamInput: projectedLayer},
			check:  configError(ParamOutput),
		},
		{
			name:   "below minimum",
			alg:    plain,
			params: Parameters{ParamInput: projectedLayer, ParamBufferSize: 50, ParamOutput: "memory:x"},
			check:  invalidParameter,
		},
		{
			name:   "above maximum",
			alg:    plain,
			params: Parameters{ParamInput: projectedLayer, ParamBufferSize: 10001., ParamOutput: "memory:x"},
			check:  invalidParameter,
		},
		{
			name:   "not a number",
			alg:    plain,
			params: Parameters{ParamInput: projectedLayer, ParamBufferSize: "wide", ParamOutput: "memory:x"},
			check:  invalidParameter,
		},
		{
			name:   "infinite",
			alg:    lookup(t, "centroidbufferdistance"),
			params: Parameters{ParamInput: projectedLayer, ParamBufferSize: math.Inf(1), ParamOutput: "memory:x"},
			check:  invalidParameter,
		},
		{
			name:   "geographic",
			alg:    validated,
			params: Parameters{ParamInput: geoLayer, ParamBufferSize: 1000, ParamOutput: "memory:x"},
			check:  rejected("Data must be projected! Currently they are in geographic CRS."),
		},
		{
			name:   "default distance too small",
			alg:    validated,
			params: Parameters{ParamInput: projectedLayer, ParamOutput: "memory:x"},
			check: rejected("The buffer size is set to `10` which is small number and would likely " +
				"produce results without meaning, the value should be at least `100`."),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pc := NewContext(log)
			_, err := Run(context.Background(), tc.alg, tc.params, pc, nil)
			if !tc.check(err) {
				t.Errorf("unexpected error %v", err)
			}
			if _, ok := pc.Layer("memory:x"); ok {
				t.Error("created output for a rejected run")
			}
		})
	}
}

func configError(param string) func(error) bool {
	return func(err error) bool {
		var ce *ConfigError
		return errors.As(err, &ce) && ce.Param == param
	}
}

func invalidParameter(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

func rejected(reason string) func(error) bool {
	return func(err error) bool {
		var re *RejectedError
		return errors.As(err, &re) && re.Reason == reason
	}
}

func TestRunStyledShapefile(t *testing.T) {
	in := writeTestShapefile(t, projected,
		square(0, 0, 1000), square(2000, 0, 3000), square(6000, 0, 150), square(7000, 0, 1200))
	out := filepath.Join(t.TempDir(), "result.shp")
	log, hook := test.NewNullLogger()
	res, err := Run(context.Background(), lookup(t, "centroidbufferstyled"), Parameters{
		ParamInput:      in,
		ParamBufferSize: 400.,
		ParamOutput:     out,
	}, NewContext(log), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res[OutputFeatureCount] != 4 || res[ParamOutput] != out {
		t.Errorf("results = %v", res)
	}
	if _, err := os.Stat(StylePath(out)); err != nil {
		t.Errorf("no style file: %v", err)
	}

	src, err := OpenShapefile(out)
	if err != nil {
		t.Fatal(err)
	}
	l, err := src.Load()
	if err != nil {
		t.Fatal(err)
	}
	r := l.Renderer()
	if r == nil || len(r.Ranges) < 2 || len(r.Ranges) > 4 {
		t.Fatalf("renderer = %+v", r)
	}
	vals, err := l.Values("area")
	if err != nil {
		t.Fatal(err)
	}
	circle := regularPolygonArea(20, 400)
	want := []float64{circle, circle, 150 * 150, circle}
	for i := range want {
		if !similar(vals[i], want[i], 1e-6) {
			t.Errorf("feature %d area = %g, want %g", i, vals[i], want[i])
		}
	}
	if l.Feature(3).Attributes[0] != "d" {
		t.Errorf("attributes = %v", l.Feature(3).Attributes)
	}
	if e := hook.LastEntry(); e == nil || e.Message != "bufclip: finished" {
		t.Errorf("last log entry = %+v", e)
	}
}

type areaRecord struct {
	geom.Polygon
	Area float64
}

func TestRunStyledWithAreaField(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "parcels.shp")
	e, err := shp.NewEncoder(in, areaRecord{})
	if err != nil {
		t.Fatal(err)
	}
	for i, side := range []float64{2000, 3000} {
		if err := e.Encode(areaRecord{Polygon: square(float64(i)*5000, 0, side), Area: side * side}); err != nil {
			t.Fatal(err)
		}
	}
	e.Close()
	writeFile(t, basePath(in)+".prj", projected)

	out := filepath.Join(dir, "result.shp")
	log, _ := test.NewNullLogger()
	res, err := Run(context.Background(), lookup(t, "centroidbufferstyled"), Parameters{
		ParamInput:      in,
		ParamBufferSize: 500,
		ParamOutput:     out,
	}, NewContext(log), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res[OutputFeatureCount] != 2 {
		t.Errorf("results = %v", res)
	}

	src, err := OpenShapefile(out)
	if err != nil {
		t.Fatal(err)
	}
	l, err := src.Load()
	if err != nil {
		t.Fatal(err)
	}
	if r := l.Renderer(); r == nil || r.Attribute != "area_1" {
		t.Fatalf("renderer = %+v, want one on area_1", r)
	}
	stored, err := l.Values("Area")
	if err != nil {
		t.Fatal(err)
	}
	if stored[0] != 2000*2000 || stored[1] != 3000*3000 {
		t.Errorf("stored areas = %v", stored)
	}
	computed, err := l.Values("area_1")
	if err != nil {
		t.Fatal(err)
	}
	circle := regularPolygonArea(20, 500)
	for i, v := range computed {
		if !similar(v, circle, 1e-6) {
			t.Errorf("feature %d area_1 = %g, want %g", i, v, circle)
		}
	}

	// Styling again reuses the expression field.
	r, err := Styler{}.Style(l)
	if err != nil {
		t.Fatal(err)
	}
	if r.Attribute != "area_1" || len(l.Fields()) != 2 {
		t.Errorf("restyled on %s with fields %v", r.Attribute, l.Fields().Names())
	}
}

func TestRunOutputIsInput(t *testing.T) {
	in := writeTestShapefile(t, projected, square(0, 0, 1000), square(2000, 0, 1000))
	for _, out := range []string{
		in,
		basePath(in),
		filepath.Join(filepath.Dir(in), ".", "input.SHP"),
	} {
		log, _ := test.NewNullLogger()
		_, err := Run(context.Background(), lookup(t, "centroidbuffer"), Parameters{
			ParamInput:      in,
			ParamBufferSize: 500,
			ParamOutput:     out,
		}, NewContext(log), nil)
		var ce *ConfigError
		if !errors.As(err, &ce) || ce.Param != ParamOutput {
			t.Errorf("output %s: err = %v, want an OUTPUT ConfigError", out, err)
		}
		src, err := OpenShapefile(in)
		if err != nil {
			t.Fatalf("output %s: input was damaged: %v", out, err)
		}
		if n := len(readAll(t, src)); n != 2 {
			t.Errorf("output %s: input has %d features, want 2", out, n)
		}
	}
}

func TestRunCanceled(t *testing.T) {
	log, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pc := NewContext(log)
	res, err := Run(ctx, lookup(t, "centroidbufferstyled"), Parameters{
		ParamInput:      testLayer(t, 500, 500),
		ParamBufferSize: 100,
		ParamOutput:     "memory:x",
	}, pc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res[OutputFeatureCount] != 0 {
		t.Errorf("results = %v", res)
	}
	warned := false
	for _, e := range hook.AllEntries() {
		warned = warned || e.Message == "bufclip: canceled"
	}
	if !warned {
		t.Error("cancellation was not logged")
	}
}

func TestMemoryDestination(t *testing.T) {
	d := MemoryDestination{Name: "m"}
	if d.ID() != "memory:m" {
		t.Errorf("ID = %s", d.ID())
	}
	s, err := d.Create(testSchema, PolygonGeometry, nil)
	if err != nil {
		t.Fatal(err)
	}
	l, err := s.Finalize()
	if err != nil || l.Name != "m" {
		t.Errorf("layer = %v, %v", l, err)
	}
}
