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
	"errors"
	"fmt"
)

// Parameter and output names shared by all of the algorithms.
const (
	ParamInput         = "INPUT"
	ParamBufferSize    = "BUFFERSIZE"
	ParamOutput        = "OUTPUT"
	OutputFeatureCount = "FEATURECOUNT"
)

// ErrInvalidParameter is wrapped by errors returned when a parameter
// value is missing, of the wrong type, or out of range.
var ErrInvalidParameter = errors.New("invalid parameter value")

// ConfigError reports that a required input or output could not be
// resolved before processing started.
type ConfigError struct {
	Param string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bufclip: invalid %s parameter", e.Param)
	}
	return fmt.Sprintf("bufclip: invalid %s parameter: %v", e.Param, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FeatureError reports a failure while processing the feature at Index
// (zero based). Features before Index have already been written.
type FeatureError struct {
	Index int
	Err   error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("bufclip: processing feature %d: %v", e.Index, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }

// RejectedError is returned when parameter validation refuses a run.
// Reason is the message shown to the user.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return e.Reason }

// paramError returns an error wrapping ErrInvalidParameter that names
// the offending parameter.
func paramError(name string, format string, args ...interface{}) error {
	return fmt.Errorf("bufclip: parameter %s: %s: %w", name, fmt.Sprintf(format, args...), ErrInvalidParameter)
}
