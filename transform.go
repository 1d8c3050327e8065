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
)

// Transform replaces the geometry of each feature with the intersection of
// the feature and a circular buffer around its centroid. Attributes are
// copied unchanged.
type Transform struct {
	// Distance is the buffer radius, in the units of the source CRS.
	Distance float64

	// Segments is the number of edges used for each quarter of the buffer
	// circle. Zero means DefaultSegments.
	Segments int
}

func (t Transform) segments() int {
	if t.Segments <= 0 {
		return DefaultSegments
	}
	return t.Segments
}

// Apply returns the transformed copy of f.
func (t Transform) Apply(f *Feature) (*Feature, error) {
	g, err := BufferClip(f.Geometry, t.Distance, t.segments())
	if err != nil {
		return nil, err
	}
	return f.Copy(g), nil
}

// Process reads every feature from src, transforms it, and appends the
// result to sink in source order. It returns the number of features
// written. If fb reports cancellation, Process stops before the next
// feature and returns without error; features already written are kept.
func (t Transform) Process(src Source, sink Sink, fb Feedback) (int, error) {
	if src == nil {
		return 0, &ConfigError{Param: ParamInput, Err: fmt.Errorf("no input source")}
	}
	if sink == nil {
		return 0, &ConfigError{Param: ParamOutput, Err: fmt.Errorf("no output sink")}
	}
	if fb == nil {
		fb = nopFeedback{}
	}
	count := src.FeatureCount()

	fb.PushInfo("Data loaded, output created. Processing features ...")

	it := src.Features()
	if c, ok := it.(io.Closer); ok {
		defer c.Close()
	}
	n := 0
	for i := 0; ; i++ {
		if fb.IsCanceled() {
			break
		}
		f, err := it.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return n, &FeatureError{Index: i, Err: err}
		}
		out, err := t.Apply(f)
		if err != nil {
			return n, &FeatureError{Index: i, Err: err}
		}
		if err := sink.Append(out); err != nil {
			return n, &FeatureError{Index: i, Err: err}
		}
		n++
		fb.SetProgress(progressPercent(i, count))
	}
	return n, nil
}

// Process transforms src into sink using a buffer of the given distance
// and DefaultSegments. See Transform.Process.
func Process(src Source, distance float64, sink Sink, fb Feedback) (int, error) {
	return Transform{Distance: distance}.Process(src, sink, fb)
}
