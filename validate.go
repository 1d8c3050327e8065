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

	"github.com/ctessum/unit"
)

// MinBufferDistance is the smallest buffer distance, in the linear unit of
// the input, that Validate accepts.
const MinBufferDistance = 100.

// Validation is the outcome of checking run parameters before processing.
// When Accepted is false, Reason explains why to the user.
type Validation struct {
	Accepted bool
	Reason   string
}

// Validate checks that buffering by distance in crs gives a meaningful
// result. Data must be projected and distance must be at least
// MinBufferDistance. The coordinate system is checked first.
func Validate(crs *CRS, distance float64) Validation {
	if err := crs.LinearUnit().Check(unit.Meter); err != nil {
		return Validation{
			Reason: "Data must be projected! Currently they are in geographic CRS.",
		}
	}
	if !(distance >= MinBufferDistance) {
		return Validation{
			Reason: fmt.Sprintf("The buffer size is set to `%v` which is small number "+
				"and would likely produce results without meaning, the value should be at least `%v`.",
				distance, MinBufferDistance),
		}
	}
	return Validation{Accepted: true}
}

// Err returns a *RejectedError if v was not accepted and nil otherwise.
func (v Validation) Err() error {
	if v.Accepted {
		return nil
	}
	return &RejectedError{Reason: v.Reason}
}
