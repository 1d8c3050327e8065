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

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Default styling settings.
const (
	DefaultStyleField = "area"
	DefaultClasses    = 5
)

// Styler colors a layer by the area of its features. It adds an
// expression field holding each feature's area, splits the areas into
// classes, and assigns a graduated renderer with a color ramp.
// The zero value uses the defaults described on each field.
type Styler struct {
	// Field is the name of the expression field to add. Default "area".
	// When the layer already stores a field of that name, a numeric
	// suffix is added, as in "area_1".
	Field string

	// Expression computes the field value. Default "$area".
	Expression string

	// Classes is the number of classes. Default 5.
	Classes int

	// Classifier computes class bounds. Default JenksBreaks.
	Classifier Classifier

	// Method names the classification method in the renderer. It
	// defaults to "jenks" when Classifier is nil.
	Method string

	// Ramp gives the class colors. Default DefaultRamp.
	Ramp GradientRamp

	Log logrus.FieldLogger
}

func (s Styler) withDefaults() Styler {
	if s.Field == "" {
		s.Field = DefaultStyleField
	}
	if s.Expression == "" {
		s.Expression = "$area"
	}
	if s.Classes <= 0 {
		s.Classes = DefaultClasses
	}
	if s.Classifier == nil {
		s.Classifier = JenksBreaks
		if s.Method == "" {
			s.Method = "jenks"
		}
	}
	if s.Method == "" {
		s.Method = "custom"
	}
	if s.Ramp == (GradientRamp{}) {
		s.Ramp = DefaultRamp
	}
	if s.Log == nil {
		s.Log = logrus.StandardLogger()
	}
	return s
}

// Style styles l and returns the renderer assigned to it. Styling a layer
// again with the same settings gives an identical renderer.
func (s Styler) Style(l *Layer) (*GraduatedRenderer, error) {
	s = s.withDefaults()
	s.Field = l.freeFieldName(s.Field)
	if err := l.AddExpressionField(s.Field, s.Expression); err != nil {
		return nil, err
	}
	vals, err := l.Values(s.Field)
	if err != nil {
		return nil, err
	}
	finite := vals[:0:0]
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}

	var r *GraduatedRenderer
	if len(finite) == 0 {
		r = &GraduatedRenderer{Attribute: s.Field, Method: s.Method}
	} else {
		breaks, err := s.Classifier(finite, s.Classes)
		if err != nil {
			return nil, fmt.Errorf("bufclip: classifying %s: %w", s.Field, err)
		}
		r = NewGraduatedRenderer(s.Field, s.Method, floats.Min(finite), breaks, s.Ramp.Colors(len(breaks)))
	}

	if old := l.Renderer(); old != nil && old.Fingerprint() == r.Fingerprint() {
		s.Log.WithFields(logrus.Fields{"layer": l.Name}).Debug("bufclip: style unchanged")
		return old, nil
	}
	if err := l.SetRenderer(r); err != nil {
		return nil, err
	}
	fields := logrus.Fields{
		"layer":   l.Name,
		"field":   s.Field,
		"method":  s.Method,
		"classes": len(r.Ranges),
	}
	if len(r.Ranges) > 0 {
		bounds := make([]float64, len(r.Ranges))
		for i, rg := range r.Ranges {
			bounds[i] = rg.Upper
		}
		fields["gvf"] = GoodnessOfVarianceFit(finite, bounds)
	}
	s.Log.WithFields(fields).Info("bufclip: styled layer")
	return r, nil
}
