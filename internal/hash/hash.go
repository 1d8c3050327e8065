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

// Package hash computes stable fingerprints of in-memory values.
package hash

import (
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Fingerprint returns a hex digest of the contents of object. Pointers are
// followed and map keys are sorted, so two values with the same contents
// have the same fingerprint.
func Fingerprint(object interface{}) string {
	h := fnv.New128a()
	printer.Fprintf(h, "%#v", object)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Same returns whether a and b have the same fingerprint.
func Same(a, b interface{}) bool {
	return Fingerprint(a) == Fingerprint(b)
}
