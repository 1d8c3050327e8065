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
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/ctessum/unit"
)

// CRS is a coordinate reference system. Definition holds the text it was
// parsed from (WKT or a Proj4 string) so it can be written back out
// unchanged.
type CRS struct {
	Definition string
	SR         *proj.SR
}

// ParseCRS parses a WKT or Proj4 coordinate reference system definition.
func ParseCRS(def string) (*CRS, error) {
	def = strings.TrimSpace(def)
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("bufclip: parsing coordinate reference system: %w", err)
	}
	return &CRS{Definition: def, SR: sr}, nil
}

// IsGeographic returns whether coordinates in c are angles rather than
// projected lengths. A nil or unparsed CRS is not geographic.
func (c *CRS) IsGeographic() bool {
	if c == nil || c.SR == nil {
		return false
	}
	switch strings.ToLower(c.SR.Name) {
	case "longlat", "latlong", "lonlat", "latlon":
		return true
	}
	return false
}

// LinearUnit returns the size of one coordinate unit of c. Projected
// systems return a length in meters; geographic systems return an angle
// in radians.
func (c *CRS) LinearUnit() *unit.Unit {
	if c.IsGeographic() {
		return unit.New(math.Pi/180, unit.Dimensions{unit.AngleDim: 1})
	}
	m := 1.0
	if c != nil && c.SR != nil && c.SR.ToMeter > 0 && !math.IsInf(c.SR.ToMeter, 0) {
		m = c.SR.ToMeter
	}
	return unit.New(m, unit.Meter)
}

// UnitName returns a human readable name for the coordinate unit of c.
func (c *CRS) UnitName() string {
	switch {
	case c.IsGeographic():
		return "degrees"
	case c == nil || c.SR == nil:
		return "unknown"
	case c.SR.Units == "" || c.SR.Units == "m":
		return "meters"
	default:
		return c.SR.Units
	}
}

func (c *CRS) String() string {
	if c == nil {
		return "<unknown CRS>"
	}
	return c.Definition
}

// ToMeters converts a distance d in the coordinate unit of c to meters.
// It fails for geographic systems, whose unit is an angle.
func (c *CRS) ToMeters(d float64) (float64, error) {
	m := unit.Mul(unit.New(d, unit.Dimensions{}), c.LinearUnit())
	if err := m.Check(unit.Meter); err != nil {
		return math.NaN(), fmt.Errorf("bufclip: converting distance to meters: %w", err)
	}
	return m.Value(), nil
}
