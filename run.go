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
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// Parameters holds algorithm parameter values by parameter name.
type Parameters map[string]interface{}

// Results holds algorithm outputs by output name. OUTPUT is the ID of
// the output layer and FEATURECOUNT, when the algorithm has it, is the
// number of features written.
type Results map[string]interface{}

// Context holds settings and state shared by algorithm runs.
type Context struct {
	Log logrus.FieldLogger

	// Segments is the number of edges per quarter buffer circle.
	// Zero means DefaultSegments.
	Segments int

	// Styler styles the output of algorithms that have styling enabled.
	Styler Styler

	mu     sync.Mutex
	layers map[string]*Layer
}

// NewContext returns a Context that logs to log, or to the standard
// logrus logger if log is nil.
func NewContext(log logrus.FieldLogger) *Context {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Context{Log: log}
}

// Layer returns the output layer created by a run with the given ID.
func (c *Context) Layer(id string) (*Layer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.layers[id]
	return l, ok
}

func (c *Context) addLayer(id string, l *Layer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.layers == nil {
		c.layers = make(map[string]*Layer)
	}
	c.layers[id] = l
}

// MemoryDestination creates in-memory layers.
type MemoryDestination struct {
	Name string
}

// ID implements Destination.
func (d MemoryDestination) ID() string { return "memory:" + d.Name }

// Create implements Destination.
func (d MemoryDestination) Create(fields Schema, gt GeometryType, crs *CRS) (Sink, error) {
	return NewLayer(d.Name, fields, gt, crs), nil
}

// Run checks params against alg, processes the input, and returns the
// results. Parameter problems are reported as *ConfigError for the input
// and output layers, as errors wrapping ErrInvalidParameter for other
// values, and as *RejectedError when validation fails. No output is
// created in those cases. Cancellation of ctx stops processing early
// and returns the partial output without error.
func Run(ctx context.Context, alg *Algorithm, params Parameters, pc *Context, fb Feedback) (Results, error) {
	if pc == nil {
		pc = NewContext(nil)
	}
	log := pc.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if fb == nil {
		fb = NewFeedback(ctx, log)
	}
	start := time.Now()

	src, err := resolveSource(alg, params)
	if err != nil {
		return nil, err
	}
	distance, err := resolveDistance(alg, params, src)
	if err != nil {
		return nil, err
	}
	if alg.Validate {
		if err := Validate(src.CRS(), distance).Err(); err != nil {
			return nil, err
		}
	}
	dest, err := resolveDestination(params)
	if err != nil {
		return nil, err
	}
	if err := checkOverwrite(src, dest); err != nil {
		return nil, err
	}
	sink, err := dest.Create(src.Fields(), src.GeometryType(), src.CRS())
	if err != nil {
		return nil, &ConfigError{Param: ParamOutput, Err: err}
	}

	fields := logrus.Fields{
		"algorithm": alg.Name,
		"distance":  distance,
		"unit":      src.CRS().UnitName(),
		"output":    dest.ID(),
	}
	if m, err := src.CRS().ToMeters(distance); err == nil {
		fields["meters"] = m
	}
	log.WithFields(fields).Info("bufclip: starting")

	n, err := Transform{Distance: distance, Segments: pc.Segments}.Process(src, sink, fb)
	layer, ferr := sink.Finalize()
	if err != nil {
		return nil, err
	}
	if ferr != nil {
		return nil, fmt.Errorf("bufclip: finalizing output: %w", ferr)
	}
	pc.addLayer(dest.ID(), layer)

	if fb.IsCanceled() {
		log.WithFields(logrus.Fields{"algorithm": alg.Name, "features": n}).Warn("bufclip: canceled")
	}
	if alg.Style {
		st := pc.Styler
		if st.Log == nil {
			st.Log = log
		}
		if _, err := st.Style(layer); err != nil {
			return nil, err
		}
	}

	res := Results{ParamOutput: dest.ID()}
	if alg.HasOutput(OutputFeatureCount) {
		res[OutputFeatureCount] = n
	}
	log.WithFields(logrus.Fields{
		"algorithm": alg.Name,
		"features":  n,
		"output":    dest.ID(),
		"duration":  time.Since(start).String(),
	}).Info("bufclip: finished")
	return res, nil
}

// resolveSource opens the INPUT parameter.
func resolveSource(alg *Algorithm, params Parameters) (Source, error) {
	var src Source
	switch v := params[ParamInput].(type) {
	case nil:
		return nil, &ConfigError{Param: ParamInput, Err: fmt.Errorf("no input layer given")}
	case Source:
		src = v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, &ConfigError{Param: ParamInput, Err: fmt.Errorf("no input layer given")}
		}
		s, err := OpenShapefile(v)
		if err != nil {
			return nil, &ConfigError{Param: ParamInput, Err: err}
		}
		src = s
	default:
		return nil, &ConfigError{Param: ParamInput, Err: fmt.Errorf("unsupported input of type %T", v)}
	}
	if p, ok := alg.Parameter(ParamInput); ok && len(p.GeometryTypes) > 0 {
		gt := src.GeometryType()
		allowed := gt == UnknownGeometry
		for _, t := range p.GeometryTypes {
			allowed = allowed || t == gt
		}
		if !allowed {
			return nil, &ConfigError{Param: ParamInput, Err: fmt.Errorf("%s geometry is not supported", gt)}
		}
	}
	return src, nil
}

// resolveDistance returns the BUFFERSIZE parameter in the units of src.
func resolveDistance(alg *Algorithm, params Parameters, src Source) (float64, error) {
	p, ok := alg.Parameter(ParamBufferSize)
	if !ok {
		return 0, paramError(ParamBufferSize, "not defined for algorithm %s", alg.Name)
	}
	v, ok := params[ParamBufferSize]
	if !ok || v == nil {
		v = p.Default
	}
	if v == nil {
		return 0, paramError(p.Name, "no value given")
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		v = p.Default
	}
	d, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, paramError(p.Name, "%v", err)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, paramError(p.Name, "%v is not a finite number", d)
	}
	if p.HasMin && d < p.Min {
		return 0, paramError(p.Name, "%v is less than the minimum of %v", d, p.Min)
	}
	if p.HasMax && d > p.Max {
		return 0, paramError(p.Name, "%v is greater than the maximum of %v", d, p.Max)
	}
	return d, nil
}

// resolveDestination interprets the OUTPUT parameter.
func resolveDestination(params Parameters) (Destination, error) {
	switch v := params[ParamOutput].(type) {
	case nil:
		return nil, &ConfigError{Param: ParamOutput, Err: fmt.Errorf("no output layer given")}
	case Destination:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		switch {
		case v == "":
			return nil, &ConfigError{Param: ParamOutput, Err: fmt.Errorf("no output layer given")}
		case strings.HasPrefix(v, "memory:"):
			return MemoryDestination{Name: strings.TrimPrefix(v, "memory:")}, nil
		default:
			return ShapefileDestination{Path: v}, nil
		}
	default:
		return nil, &ConfigError{Param: ParamOutput, Err: fmt.Errorf("unsupported output of type %T", v)}
	}
}

// checkOverwrite returns a *ConfigError when dest would replace the
// shapefile src reads from.
func checkOverwrite(src Source, dest Destination) error {
	s, ok := src.(*ShapefileSource)
	if !ok {
		return nil
	}
	d, ok := dest.(ShapefileDestination)
	if !ok {
		return nil
	}
	if sameFile(s.Path(), d.ID()) {
		return &ConfigError{Param: ParamOutput, Err: fmt.Errorf("%s is the input layer and would be overwritten", d.ID())}
	}
	return nil
}

// sameFile returns whether a and b name the same file, either by path or,
// for existing files, by identity.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
