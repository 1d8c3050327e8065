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
	"regexp"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/geom"
	"github.com/spf13/cast"
)

// expressionField is a layer field whose values are computed from an
// expression over the other fields and the feature geometry.
type expressionField struct {
	name   string
	source string
	expr   *govaluate.EvaluableExpression
}

// geometryVar matches geometry variables such as $area.
var geometryVar = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// expressionFunctions are the functions available in expression fields.
var expressionFunctions = map[string]govaluate.ExpressionFunction{
	"exp":   mathFunc("exp", math.Exp),
	"log":   mathFunc("log", math.Log),
	"sqrt":  mathFunc("sqrt", math.Sqrt),
	"abs":   mathFunc("abs", math.Abs),
	"round": mathFunc("round", math.Round),
}

func mathFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("bufclip: got %d arguments for function '%s', but needs 1", len(args), name)
		}
		v, err := cast.ToFloat64E(args[0])
		if err != nil {
			return nil, fmt.Errorf("bufclip: function '%s': %w", name, err)
		}
		return f(v), nil
	}
}

// newExpressionField parses an expression. Geometry variables are written
// with a leading dollar sign: $area is the area of the feature and
// $perimeter is the total length of its rings. Other variables refer to
// attribute fields by name.
func newExpressionField(name, source string) (*expressionField, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(
		geometryVar.ReplaceAllString(source, "[$$${1}]"), expressionFunctions)
	if err != nil {
		return nil, fmt.Errorf("bufclip: parsing expression %q for field %s: %w", source, name, err)
	}
	return &expressionField{name: name, source: source, expr: e}, nil
}

// evaluate computes the value of the field for f, whose attributes are
// aligned with fields.
func (e *expressionField) evaluate(fields Schema, f *Feature) (float64, error) {
	v, err := e.expr.Eval(featureParameters{fields: fields, f: f})
	if err != nil {
		return math.NaN(), fmt.Errorf("bufclip: evaluating field %s: %w", e.name, err)
	}
	out, err := cast.ToFloat64E(v)
	if err != nil {
		return math.NaN(), fmt.Errorf("bufclip: field %s: expression result: %w", e.name, err)
	}
	return out, nil
}

// featureParameters exposes the attributes and geometry of a feature to an
// expression.
type featureParameters struct {
	fields Schema
	f      *Feature
}

func (p featureParameters) Get(name string) (interface{}, error) {
	switch name {
	case "$area":
		return geometryArea(p.f.Geometry), nil
	case "$perimeter":
		return geometryPerimeter(p.f.Geometry), nil
	}
	i := p.fields.Index(name)
	if i < 0 || i >= len(p.f.Attributes) {
		return nil, fmt.Errorf("no field named %q", name)
	}
	switch v := p.f.Attributes[i].(type) {
	case string, bool, nil:
		return v, nil
	default:
		return cast.ToFloat64E(v)
	}
}

func geometryArea(g geom.Geom) float64 {
	if p, ok := g.(geom.Polygonal); ok && p != nil {
		return compact(p).Area()
	}
	return 0
}

func geometryPerimeter(g geom.Geom) float64 {
	p, ok := g.(geom.Polygonal)
	if !ok || p == nil {
		return 0
	}
	var l float64
	for _, poly := range p.Polygons() {
		for _, r := range poly {
			for i := range r {
				j := (i + 1) % len(r)
				l += math.Hypot(r[j].X-r[i].X, r[j].Y-r[i].Y)
			}
		}
	}
	return l
}
