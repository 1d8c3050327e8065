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
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spf13/cast"
)

// Default column widths for shapefile fields without a size.
const (
	shpStringLength = 80
	shpIntLength    = 10
	shpFloatLength  = 24
	shpFloatPrec    = 8
	shpMaxNameLen   = 10
)

// shapefileExts are the files that make up a shapefile, including the
// style file written for styled layers.
var shapefileExts = []string{".shp", ".shx", ".dbf", ".prj", ".style.toml"}

func basePath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return path[:len(path)-4]
	}
	return path
}

// StylePath returns the path of the style file for the shapefile at path.
func StylePath(path string) string { return basePath(path) + ".style.toml" }

// ShapefileSource reads features from a shapefile. The coordinate
// reference system is read from the .prj file next to it, if there is one.
type ShapefileSource struct {
	path   string
	fields Schema
	gt     GeometryType
	crs    *CRS
	count  int
}

// OpenShapefile reads the header, fields, and coordinate reference system
// of the shapefile at path.
func OpenShapefile(path string) (*ShapefileSource, error) {
	path = basePath(path) + ".shp"
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("bufclip: opening shapefile: %w", err)
	}
	defer d.Close()

	s := &ShapefileSource{
		path:  path,
		gt:    shpGeometryType(d.GeometryType),
		count: UnknownCount,
	}
	if _, err := os.Stat(basePath(path) + ".dbf"); err == nil {
		for _, f := range d.Fields() {
			s.fields = append(s.fields, fieldFromShp(f))
		}
		s.count = d.AttributeCount()
	}

	b, err := os.ReadFile(basePath(path) + ".prj")
	switch {
	case err == nil:
		if s.crs, err = ParseCRS(string(b)); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("bufclip: reading shapefile projection: %w", err)
	}
	return s, nil
}

// Path returns the location of the .shp file.
func (s *ShapefileSource) Path() string { return s.path }

// CRS implements Source.
func (s *ShapefileSource) CRS() *CRS { return s.crs }

// Fields implements Source.
func (s *ShapefileSource) Fields() Schema { return s.fields.Copy() }

// GeometryType implements Source.
func (s *ShapefileSource) GeometryType() GeometryType { return s.gt }

// FeatureCount implements Source.
func (s *ShapefileSource) FeatureCount() int { return s.count }

// Features implements Source. The returned iterator holds the file open
// until it returns an error or io.EOF, or until it is closed.
func (s *ShapefileSource) Features() FeatureIterator {
	d, err := shp.NewDecoder(s.path)
	if err != nil {
		return &shapefileIterator{err: fmt.Errorf("bufclip: opening shapefile: %w", err)}
	}
	return &shapefileIterator{d: d, fields: s.fields, names: s.fields.Names()}
}

// Load reads every feature of the shapefile into a Layer. If a style file
// exists next to the shapefile, its expression fields and renderer are
// applied to the layer. Later style changes are saved to that file.
func (s *ShapefileSource) Load() (*Layer, error) {
	name := filepath.Base(basePath(s.path))
	l := NewLayer(name, s.fields, s.gt, s.crs)
	it := s.Features()
	for {
		f, err := it.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if err := l.Append(f); err != nil {
			return nil, err
		}
	}
	stylePath := StylePath(s.path)
	if _, err := os.Stat(stylePath); err == nil {
		exprs, r, err := readStyle(stylePath)
		if err != nil {
			return nil, err
		}
		for _, e := range exprs {
			if err := l.AddExpressionField(e.Name, e.Expression); err != nil {
				return nil, err
			}
		}
		if err := l.SetRenderer(r); err != nil {
			return nil, err
		}
	}
	l.stylePath = stylePath
	return l, nil
}

type shapefileIterator struct {
	d      *shp.Decoder
	fields Schema
	names  []string
	row    int
	err    error
}

func (it *shapefileIterator) Next() (*Feature, error) {
	if it.err != nil {
		return nil, it.err
	}
	g, vals, more := it.d.DecodeRowFields(it.names...)
	if err := it.d.Error(); err != nil {
		return nil, it.fail(fmt.Errorf("bufclip: reading shapefile record %d: %w", it.row, err))
	}
	if err := it.d.Err(); err != nil {
		return nil, it.fail(fmt.Errorf("bufclip: reading shapefile record %d: %w", it.row, err))
	}
	if !more {
		return nil, it.fail(io.EOF)
	}
	f := &Feature{Geometry: g, Attributes: make([]interface{}, len(it.fields))}
	for i, fld := range it.fields {
		v, err := parseAttribute(fld, vals[fld.Name])
		if err != nil {
			return nil, it.fail(fmt.Errorf("bufclip: shapefile record %d: field %s: %w", it.row, fld.Name, err))
		}
		f.Attributes[i] = v
	}
	it.row++
	return f, nil
}

// fail closes the file and makes err the result of all later calls.
func (it *shapefileIterator) fail(err error) error {
	it.err = err
	it.close()
	return err
}

func (it *shapefileIterator) close() {
	if it.d != nil {
		it.d.Close()
		it.d = nil
	}
}

// Close releases the file held by the iterator.
func (it *shapefileIterator) Close() error {
	if it.err == nil {
		it.err = io.EOF
	}
	it.close()
	return nil
}

func shpGeometryType(t goshp.ShapeType) GeometryType {
	switch t {
	case goshp.POINT, goshp.POINTM, goshp.POINTZ, goshp.MULTIPOINT, goshp.MULTIPOINTM, goshp.MULTIPOINTZ:
		return PointGeometry
	case goshp.POLYLINE, goshp.POLYLINEM, goshp.POLYLINEZ:
		return LineGeometry
	case goshp.POLYGON, goshp.POLYGONM, goshp.POLYGONZ:
		return PolygonGeometry
	default:
		return UnknownGeometry
	}
}

func fieldFromShp(f goshp.Field) Field {
	out := Field{
		Name:      strings.TrimSpace(f.String()),
		Size:      int(f.Size),
		Precision: int(f.Precision),
	}
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			out.Type = Integer
		} else {
			out.Type = Float
		}
	case 'F':
		out.Type = Float
	default:
		out.Type = String
	}
	return out
}

// parseAttribute converts the text of a dbf value to the type of f. Blank
// values and numeric overflow markers are returned as nil.
func parseAttribute(f Field, s string) (interface{}, error) {
	s = strings.Trim(s, " \x00")
	switch f.Type {
	case Integer:
		if s == "" || strings.Trim(s, "*") == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return int(i), nil
	case Float:
		if s == "" || strings.Trim(s, "*") == "" {
			return nil, nil
		}
		return strconv.ParseFloat(s, 64)
	default:
		return s, nil
	}
}

// ShapefileDestination creates a polygon shapefile at Path. Any existing
// shapefile at that location is replaced.
type ShapefileDestination struct {
	Path string
}

// ID implements Destination.
func (d ShapefileDestination) ID() string { return basePath(d.Path) + ".shp" }

// Create implements Destination.
func (d ShapefileDestination) Create(fields Schema, gt GeometryType, crs *CRS) (Sink, error) {
	if gt != PolygonGeometry && gt != UnknownGeometry {
		return nil, fmt.Errorf("bufclip: shapefile output only supports polygons, not %s geometry", gt)
	}
	path := d.ID()
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("bufclip: the output directory doesn't exist: %w", err)
	}
	for _, ext := range shapefileExts {
		if err := os.Remove(basePath(path) + ext); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("bufclip: removing old output: %w", err)
		}
	}
	shpFields, err := shpFieldsFor(fields)
	if err != nil {
		return nil, err
	}
	w, err := goshp.Create(path, goshp.POLYGON)
	if err != nil {
		return nil, fmt.Errorf("bufclip: creating shapefile: %w", err)
	}
	if err := w.SetFields(shpFields); err != nil {
		w.Close()
		return nil, fmt.Errorf("bufclip: creating shapefile fields: %w", err)
	}
	return &shapefileSink{w: w, path: path, fields: fields.Copy(), crs: crs}, nil
}

func shpFieldsFor(fields Schema) ([]goshp.Field, error) {
	out := make([]goshp.Field, len(fields))
	seen := make(map[string]string)
	for i, f := range fields {
		name := f.Name
		if len(name) > shpMaxNameLen {
			name = name[:shpMaxNameLen]
		}
		if prev, ok := seen[strings.ToLower(name)]; ok {
			return nil, fmt.Errorf("bufclip: fields %q and %q have the same shapefile name %q", prev, f.Name, name)
		}
		seen[strings.ToLower(name)] = f.Name
		switch f.Type {
		case Integer:
			out[i] = goshp.NumberField(name, fieldSize(f.Size, shpIntLength))
		case Float:
			prec := f.Precision
			if prec <= 0 {
				prec = shpFloatPrec
			}
			out[i] = goshp.FloatField(name, fieldSize(f.Size, shpFloatLength), uint8(prec))
		default:
			out[i] = goshp.StringField(name, fieldSize(f.Size, shpStringLength))
		}
	}
	return out, nil
}

func fieldSize(size, def int) uint8 {
	if size <= 0 {
		return uint8(def)
	}
	if size > 254 {
		return 254
	}
	return uint8(size)
}

type shapefileSink struct {
	w      *goshp.Writer
	path   string
	fields Schema
	crs    *CRS
	n      int
}

// Append implements Sink.
func (s *shapefileSink) Append(f *Feature) error {
	if len(f.Attributes) != len(s.fields) {
		return fmt.Errorf("bufclip: feature has %d attributes but output has %d fields",
			len(f.Attributes), len(s.fields))
	}
	shape, err := polygonShape(f.Geometry)
	if err != nil {
		return err
	}
	vals := make([]interface{}, len(s.fields))
	for i, fld := range s.fields {
		if vals[i], err = shpValue(fld, f.Attributes[i]); err != nil {
			return fmt.Errorf("bufclip: field %s: %w", fld.Name, err)
		}
	}
	row := int(s.w.Write(shape))
	for i, fld := range s.fields {
		v := vals[i]
		if v == nil {
			continue
		}
		if err := s.w.WriteAttribute(row, i, v); err != nil {
			return fmt.Errorf("bufclip: field %s: %w", fld.Name, err)
		}
	}
	s.n++
	return nil
}

// polygonShape converts g to a shapefile polygon. Rings are written in
// reverse order, which is clockwise for outer rings as the format requires.
// Empty geometries are written as polygons with no parts.
func polygonShape(g geom.Geom) (goshp.Shape, error) {
	var p geom.Polygon
	switch t := g.(type) {
	case nil:
	case geom.Polygonal:
		p = flatten(t)
	default:
		return nil, fmt.Errorf("bufclip: cannot write %T geometry to a polygon shapefile", g)
	}
	if len(p) == 0 {
		return &goshp.Polygon{Parts: []int32{}, Points: []goshp.Point{}}, nil
	}
	parts := make([][]goshp.Point, len(p))
	for i, r := range p {
		parts[i] = make([]goshp.Point, len(r))
		for j, pt := range r {
			parts[i][len(r)-1-j] = goshp.Point{X: pt.X, Y: pt.Y}
		}
	}
	shape := goshp.Polygon(*goshp.NewPolyLine(parts))
	return &shape, nil
}

// shpValue converts an attribute to a type the dbf writer accepts. Missing
// values are returned as nil and left blank.
func shpValue(f Field, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case Integer:
		return cast.ToIntE(v)
	case Float:
		return cast.ToFloat64E(v)
	default:
		return cast.ToStringE(v)
	}
}

// Finalize implements Sink. It closes the shapefile, writes the .prj
// file, and loads the result as a layer.
func (s *shapefileSink) Finalize() (*Layer, error) {
	s.w.Close()
	if s.crs != nil && s.crs.Definition != "" {
		if err := os.WriteFile(basePath(s.path)+".prj", []byte(s.crs.Definition), 0644); err != nil {
			return nil, fmt.Errorf("bufclip: writing output projection: %w", err)
		}
	}
	src, err := OpenShapefile(s.path)
	if err != nil {
		return nil, err
	}
	return src.Load()
}
