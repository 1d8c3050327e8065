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
	"sync"

	"github.com/ctessum/geom"
	"github.com/spf13/cast"
)

// Layer is a materialized vector layer. A Layer is both a Sink, so
// algorithms can write to it, and a Source, so it can be processed again.
// Layers returned by a shapefile destination keep their style in a
// sidecar file next to the shapefile.
type Layer struct {
	Name string

	mu        sync.RWMutex
	schema    Schema
	gt        GeometryType
	crs       *CRS
	features  []*Feature
	exprs     []*expressionField
	renderer  *GraduatedRenderer
	stylePath string
}

// NewLayer creates an empty in-memory layer.
func NewLayer(name string, fields Schema, gt GeometryType, crs *CRS) *Layer {
	return &Layer{
		Name:   name,
		schema: fields.Copy(),
		gt:     gt,
		crs:    crs,
	}
}

// CRS implements Source.
func (l *Layer) CRS() *CRS { return l.crs }

// Fields implements Source. Expression fields are included after the
// stored fields.
func (l *Layer) Fields() Schema {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.schema.Copy()
}

// GeometryType implements Source.
func (l *Layer) GeometryType() GeometryType { return l.gt }

// FeatureCount implements Source.
func (l *Layer) FeatureCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.features)
}

// Features implements Source.
func (l *Layer) Features() FeatureIterator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f := make([]*Feature, len(l.features))
	copy(f, l.features)
	return &sliceIterator{features: f}
}

// Feature returns the feature at index i.
func (l *Layer) Feature(i int) *Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.features[i]
}

// Append implements Sink. The feature must have one attribute for each
// stored field; expression fields are computed.
func (l *Layer) Append(f *Feature) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := len(l.schema) - len(l.exprs)
	if len(f.Attributes) != stored {
		return fmt.Errorf("bufclip: layer %s: feature has %d attributes but layer has %d fields",
			l.Name, len(f.Attributes), stored)
	}
	f = f.Copy(f.Geometry)
	for _, e := range l.exprs {
		v, err := e.evaluate(l.schema, f)
		if err != nil {
			return err
		}
		f.Attributes = append(f.Attributes, v)
	}
	l.features = append(l.features, f)
	return nil
}

// Finalize implements Sink.
func (l *Layer) Finalize() (*Layer, error) { return l, nil }

// Values returns the value of field name for every feature, converted to
// float64. Missing or non-numeric values are NaN.
func (l *Layer) Values(name string) ([]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.schema.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("bufclip: layer %s has no field %q", l.Name, name)
	}
	vals := make([]float64, len(l.features))
	for j, f := range l.features {
		vals[j] = toFloat(f.Attributes[i])
	}
	return vals, nil
}

// AddExpressionField adds a field computed from expression, for example
// "$area", and evaluates it for every feature. Adding an expression field
// with the name of an existing expression field replaces it.
func (l *Layer) AddExpressionField(name, expression string) error {
	e, err := newExpressionField(name, expression)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.schema.Index(name)
	if old >= 0 && !l.isExpression(old) {
		return fmt.Errorf("bufclip: layer %s already has a stored field %q", l.Name, name)
	}
	// Evaluate before changing anything so that a failing expression
	// leaves the layer as it was.
	vals := make([]float64, len(l.features))
	for i, f := range l.features {
		if vals[i], err = e.evaluate(l.schema, f); err != nil {
			return err
		}
	}
	if old >= 0 {
		l.removeField(old)
	}
	l.schema = append(l.schema, Field{Name: name, Type: Float, Size: 20, Precision: 6})
	l.exprs = append(l.exprs, e)
	for i, f := range l.features {
		f.Attributes = append(f.Attributes, vals[i])
	}
	return l.saveStyle()
}

// freeFieldName returns name if the layer has no stored field of that
// name, and otherwise name with the first numeric suffix that is free.
// Expression fields do not count as taken since adding one replaces them.
func (l *Layer) freeFieldName(name string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	candidate := name
	for n := 1; ; n++ {
		i := l.schema.Index(candidate)
		if i < 0 || l.isExpression(i) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
}

// isExpression returns whether the field at schema index i is an
// expression field. Expression fields are always last.
func (l *Layer) isExpression(i int) bool {
	return i >= len(l.schema)-len(l.exprs)
}

func (l *Layer) removeField(i int) {
	ei := i - (len(l.schema) - len(l.exprs))
	l.schema = append(l.schema[:i:i], l.schema[i+1:]...)
	l.exprs = append(l.exprs[:ei:ei], l.exprs[ei+1:]...)
	for _, f := range l.features {
		f.Attributes = append(f.Attributes[:i:i], f.Attributes[i+1:]...)
	}
}

// Renderer returns the renderer assigned to the layer, or nil.
func (l *Layer) Renderer() *GraduatedRenderer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.renderer
}

// SetRenderer assigns r to the layer, replacing any previous renderer.
// Layers backed by a file save the change to their style file.
func (l *Layer) SetRenderer(r *GraduatedRenderer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.renderer = r
	return l.saveStyle()
}

// StylePath returns the path of the style file of a file-backed layer, or
// "" for in-memory layers.
func (l *Layer) StylePath() string { return l.stylePath }

func (l *Layer) saveStyle() error {
	if l.stylePath == "" {
		return nil
	}
	return writeStyle(l.stylePath, l.exprs, l.renderer)
}

// Geometries returns the geometry of every feature in order.
func (l *Layer) Geometries() []geom.Geom {
	l.mu.RLock()
	defer l.mu.RUnlock()
	g := make([]geom.Geom, len(l.features))
	for i, f := range l.features {
		g[i] = f.Geometry
	}
	return g
}

// toFloat converts an attribute value to float64, returning NaN for
// missing and non-numeric values.
func toFloat(v interface{}) float64 {
	if v == nil {
		return math.NaN()
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return math.NaN()
	}
	return f
}
