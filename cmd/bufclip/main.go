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

// Command bufclip is a command-line interface for clipping polygons to a
// buffer around their centroids.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/bufclip/bufcliputil"
)

func main() {
	var commands int
	for _, arg := range os.Args { // Count the number of supplied commands.
		if len(arg) > 0 && arg[0] != '-' {
			commands++
		}
	}
	if commands == 1 { // If only one command was supplied, start the GUI server.
		bufcliputil.StartWebServer()
	}

	// If more than one command was supplied, run in CLI mode.
	if err := bufcliputil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
