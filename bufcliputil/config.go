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

package bufcliputil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spatialmodel/bufclip"
)

// checkInputFile makes sure that the input file is specified and exists,
// and expands any environment variables.
func checkInputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an input file configuration variable (for example: Input="parcels.shp")`)
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(f); err != nil {
		return f, fmt.Errorf("bufclip: the Input file doesn't exist: %v", err)
	}
	return f, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: Output="output.shp")`)
	}
	f = os.ExpandEnv(f)
	if strings.HasPrefix(f, "memory:") {
		return f, fmt.Errorf("bufclip: Output must be a file path, not %q", f)
	}
	if ext := filepath.Ext(f); ext != "" && !strings.EqualFold(ext, ".shp") {
		return f, fmt.Errorf("bufclip: Output must be a shapefile (.shp), not %q", f)
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("bufclip: the Output directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// checkClassifier returns the classification function with the given name
// and the canonical name of its method.
func checkClassifier(name string) (bufclip.Classifier, string, error) {
	name = os.ExpandEnv(name)
	c, err := bufclip.ClassifierByName(name)
	if err != nil {
		return nil, "", err
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "equal", "equalinterval":
		return c, "equal", nil
	case "quantile":
		return c, "quantile", nil
	default:
		return c, "jenks", nil
	}
}
