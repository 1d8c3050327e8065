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
	"strings"

	"github.com/ctessum/geom"
)

// FieldType is the storage type of an attribute field.
type FieldType int

// Supported attribute field types.
const (
	String FieldType = iota
	Integer
	Float
)

func (t FieldType) String() string {
	switch t {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

// Field is a named attribute column. Size and Precision are hints for
// file formats with fixed-width columns and may be zero.
type Field struct {
	Name      string
	Type      FieldType
	Size      int
	Precision int
}

// Schema is an ordered list of attribute fields.
type Schema []Field

// Index returns the position of the field with the given name, ignoring
// case, or -1 if there is no such field.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Copy returns a copy of s that shares no memory with it.
func (s Schema) Copy() Schema {
	if s == nil {
		return nil
	}
	o := make(Schema, len(s))
	copy(o, s)
	return o
}

// GeometryType describes the kind of geometry held by a feature collection.
type GeometryType int

// Geometry types.
const (
	UnknownGeometry GeometryType = iota
	PointGeometry
	LineGeometry
	PolygonGeometry
)

func (t GeometryType) String() string {
	switch t {
	case PointGeometry:
		return "point"
	case LineGeometry:
		return "line"
	case PolygonGeometry:
		return "polygon"
	default:
		return "unknown"
	}
}

// Feature is one record of a vector layer: attribute values aligned with
// the layer Schema, plus a geometry.
type Feature struct {
	Attributes []interface{}
	Geometry   geom.Geom
}

// Copy returns a feature with a copy of f's attributes and the given
// geometry.
func (f *Feature) Copy(g geom.Geom) *Feature {
	attrs := make([]interface{}, len(f.Attributes))
	copy(attrs, f.Attributes)
	return &Feature{Attributes: attrs, Geometry: g}
}

// UnknownCount is returned by Source.FeatureCount when the number of
// features cannot be determined ahead of time.
const UnknownCount = -1

// A FeatureIterator returns features one at a time. Next returns io.EOF
// after the last feature.
type FeatureIterator interface {
	Next() (*Feature, error)
}

// Source is a readable collection of features.
type Source interface {
	CRS() *CRS
	Fields() Schema
	GeometryType() GeometryType
	// FeatureCount returns the number of features, or UnknownCount.
	FeatureCount() int
	// Features returns a new single-pass iterator over the features.
	Features() FeatureIterator
}

// Sink receives features in order. Finalize must be called once after
// the last Append; it returns the layer the features were written to.
type Sink interface {
	Append(*Feature) error
	Finalize() (*Layer, error)
}

// Destination creates sinks. ID identifies the layer that will be created,
// for example a file path.
type Destination interface {
	ID() string
	Create(fields Schema, gt GeometryType, crs *CRS) (Sink, error)
}

// sliceIterator iterates over an in-memory slice of features.
type sliceIterator struct {
	features []*Feature
	i        int
}

func (it *sliceIterator) Next() (*Feature, error) {
	if it.i >= len(it.features) {
		return nil, io.EOF
	}
	f := it.features[it.i]
	it.i++
	return f, nil
}
