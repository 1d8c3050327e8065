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

// Package bufclip replaces polygon features with the part of each polygon
// that lies within a fixed distance of its centroid.
//
// Features are read from a Source, transformed one at a time, and written
// to a Sink. The algorithm variants in DefaultRegistry add parameter
// validation and graduated styling of the output by feature area.
package bufclip

// Version gives the version number.
const Version = "1.0.0"
