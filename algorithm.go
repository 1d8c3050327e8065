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
	"html"
	"sort"
	"strings"
	"sync"
)

// ParameterKind is the type of value an algorithm parameter accepts.
type ParameterKind int

// Parameter kinds.
const (
	// FeatureSourceParam is an input layer: a Source, or the path of a
	// shapefile.
	FeatureSourceParam ParameterKind = iota

	// NumberParam is a plain number.
	NumberParam

	// DistanceParam is a length in the units of the CRS of the parameter
	// named by Parent.
	DistanceParam

	// FeatureSinkParam is an output layer: a Destination, the path of a
	// shapefile, or "memory:" followed by a layer name.
	FeatureSinkParam
)

func (k ParameterKind) String() string {
	switch k {
	case FeatureSourceParam:
		return "source"
	case NumberParam:
		return "number"
	case DistanceParam:
		return "distance"
	case FeatureSinkParam:
		return "sink"
	default:
		return "unknown"
	}
}

// Parameter describes one input of an algorithm.
type Parameter struct {
	Name        string
	Description string
	Kind        ParameterKind

	// GeometryTypes restricts the geometry of source parameters.
	GeometryTypes []GeometryType

	// Default is used when the parameter is not given. A nil default
	// makes the parameter required.
	Default interface{}

	// Min and Max bound numeric values when HasMin and HasMax are set.
	Min, Max       float64
	HasMin, HasMax bool

	// Parent names the source parameter whose CRS gives the unit of a
	// distance parameter.
	Parent string
}

// OutputKind is the type of an algorithm result.
type OutputKind int

// Output kinds.
const (
	VectorLayerOutput OutputKind = iota
	NumberOutput
)

// Output describes one result of an algorithm.
type Output struct {
	Name        string
	Description string
	Kind        OutputKind
}

// Algorithm describes a variant of the centroid buffer clip algorithm.
type Algorithm struct {
	// Name is the stable identifier of the algorithm.
	Name        string
	DisplayName string
	Group       string
	GroupID     string

	// Help describes the algorithm. It is HTML if HTMLHelp is set.
	Help     string
	HTMLHelp bool

	Parameters []Parameter
	Outputs    []Output

	// Validate enables the projected CRS and minimum distance checks.
	Validate bool

	// Style enables graduated styling of the output layer by area.
	Style bool
}

// Parameter returns the parameter with the given name.
func (a *Algorithm) Parameter(name string) (Parameter, bool) {
	for _, p := range a.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// HasOutput returns whether a produces the named output.
func (a *Algorithm) HasOutput(name string) bool {
	for _, o := range a.Outputs {
		if o.Name == name {
			return true
		}
	}
	return false
}

// FormatHelpHTML formats paragraphs as an HTML algorithm description,
// with a heading for each non-empty section. Text is escaped.
func FormatHelpHTML(sections map[string][]string) string {
	var keys []string
	for k := range sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		paras := sections[k]
		if len(paras) == 0 {
			continue
		}
		escaped := make([]string, len(paras))
		for i, p := range paras {
			escaped[i] = html.EscapeString(p)
		}
		if k != "" {
			fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(k))
		}
		fmt.Fprintf(&b, "<p>%s</p>\n", strings.Join(escaped, "<br/><br/>"))
	}
	return b.String()
}

// Registry holds algorithms by name.
type Registry struct {
	mu   sync.RWMutex
	algs map[string]*Algorithm
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{algs: make(map[string]*Algorithm)}
}

// Register adds a to the registry. Names must be unique.
func (r *Registry) Register(a *Algorithm) error {
	if a.Name == "" {
		return fmt.Errorf("bufclip: algorithm has no name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.algs[a.Name]; ok {
		return fmt.Errorf("bufclip: algorithm %q is already registered", a.Name)
	}
	r.algs[a.Name] = a
	return nil
}

// Lookup returns the algorithm with the given name.
func (r *Registry) Lookup(name string) (*Algorithm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.algs[name]
	return a, ok
}

// Algorithms returns the registered algorithms sorted by name.
func (r *Registry) Algorithms() []*Algorithm {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Algorithm, 0, len(r.algs))
	for _, a := range r.algs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

const (
	group   = "Centroid buffer"
	groupID = "centroidbuffer"

	helpBase     = "Create buffer of given size around centroid and clip it to original geometry."
	helpDistance = "Buffer size is considered as distance."
)

func inputParameter() Parameter {
	return Parameter{
		Name:          ParamInput,
		Description:   "Input layer",
		Kind:          FeatureSourceParam,
		GeometryTypes: []GeometryType{PolygonGeometry},
	}
}

func outputParameter() Parameter {
	return Parameter{Name: ParamOutput, Description: "Output layer", Kind: FeatureSinkParam}
}

func distanceParameter() Parameter {
	return Parameter{
		Name:        ParamBufferSize,
		Description: "Buffer size",
		Kind:        DistanceParam,
		Default:     10.,
		Parent:      ParamInput,
	}
}

var layerOutput = Output{Name: ParamOutput, Description: "Output layer", Kind: VectorLayerOutput}

// DefaultAlgorithms returns the built-in algorithm variants.
func DefaultAlgorithms() []*Algorithm {
	return []*Algorithm{
		{
			Name:        "centroidbuffer",
			DisplayName: "Centroid buffer clip",
			Group:       group,
			GroupID:     groupID,
			Help:        helpBase,
			Parameters: []Parameter{
				inputParameter(),
				{
					Name:        ParamBufferSize,
					Description: "Buffer size (in units of Input layer)",
					Kind:        NumberParam,
					Default:     1000.,
					Min:         100,
					HasMin:      true,
					Max:         10000,
					HasMax:      true,
				},
				outputParameter(),
			},
			Outputs: []Output{layerOutput},
		},
		{
			Name:        "centroidbufferdistance",
			DisplayName: "Centroid buffer clip (distance)",
			Group:       group,
			GroupID:     groupID,
			Help:        helpBase + " " + helpDistance,
			Parameters:  []Parameter{inputParameter(), distanceParameter(), outputParameter()},
			Outputs:     []Output{layerOutput},
		},
		{
			Name:        "centroidbuffervalidated",
			DisplayName: "Centroid buffer clip (validated)",
			Group:       group,
			GroupID:     groupID,
			Help: FormatHelpHTML(map[string][]string{"": {
				helpBase,
				helpDistance,
				"Includes verification of input data, to only allow projected data.",
				"Buffer size must be at least 100.",
			}}),
			HTMLHelp:   true,
			Parameters: []Parameter{inputParameter(), distanceParameter(), outputParameter()},
			Outputs:    []Output{layerOutput},
			Validate:   true,
		},
		{
			Name:        "centroidbufferstyled",
			DisplayName: "Centroid buffer clip (styled)",
			Group:       group,
			GroupID:     groupID,
			Help: FormatHelpHTML(map[string][]string{"": {
				helpBase,
				helpDistance,
				"Includes verification of input data, to only allow projected data.",
				"Buffer size must be at least 100.",
				"Output is colored by feature area in five natural breaks classes.",
			}}),
			HTMLHelp:   true,
			Parameters: []Parameter{inputParameter(), distanceParameter(), outputParameter()},
			Outputs: []Output{
				layerOutput,
				{Name: OutputFeatureCount, Description: "Feature count", Kind: NumberOutput},
			},
			Validate: true,
			Style:    true,
		},
	}
}

// DefaultRegistry holds DefaultAlgorithms.
var DefaultRegistry = NewRegistry()

func init() {
	for _, a := range DefaultAlgorithms() {
		if err := DefaultRegistry.Register(a); err != nil {
			panic(err)
		}
	}
}
