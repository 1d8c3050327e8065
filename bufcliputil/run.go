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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/bufclip"
	"github.com/spf13/cobra"
)

// Run runs algorithm a.
//
// CobraCommand is the cobra.Command instance where Run is called from.
// Log messages and results are written to its output as well as to LogFile.
//
// Input is the path to the input shapefile and Output is the path where
// the output shapefile should be written.
//
// BufferSize is the buffer radius in units of the input coordinate
// reference system. If it is empty, the default of the algorithm is used.
//
// If Preview is not empty, a PNG map of the output is written there.
//
// Styler is used by algorithms that style their output, and Segments is the
// number of edges per quarter buffer circle.
//
// The run stops early, keeping the features processed so far, if the
// process receives an interrupt signal.
func Run(CobraCommand *cobra.Command, a *bufclip.Algorithm, Input, Output, BufferSize,
	LogFile, Preview string, Styler bufclip.Styler, Segments int) error {

	startTime := time.Now()

	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("bufclip: problem creating log file: %v", err)
	}
	defer logfile.Close()

	var stdout io.Writer = os.Stdout
	if CobraCommand != nil {
		stdout = CobraCommand.OutOrStdout()
	}
	log := logrus.New()
	log.SetOutput(io.MultiWriter(stdout, logfile))
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pc := bufclip.NewContext(log)
	pc.Segments = Segments
	pc.Styler = Styler
	pc.Styler.Log = log

	params := bufclip.Parameters{
		bufclip.ParamInput:  Input,
		bufclip.ParamOutput: Output,
	}
	if BufferSize != "" {
		params[bufclip.ParamBufferSize] = BufferSize
	}

	results, err := bufclip.Run(ctx, a, params, pc, nil)
	if err != nil {
		log.WithError(err).Error("bufclip: run failed")
		return err
	}

	if Preview != "" {
		l, ok := pc.Layer(results[bufclip.ParamOutput].(string))
		if !ok {
			return fmt.Errorf("bufclip: output layer %v not found for preview", results[bufclip.ParamOutput])
		}
		if err := bufclip.DefaultPreview.WriteFile(Preview, l); err != nil {
			return err
		}
		log.WithField("preview", Preview).Info("bufclip: wrote preview")
	}

	fields := make(logrus.Fields, len(results))
	names := make([]string, 0, len(results))
	for k, v := range results {
		fields[k] = v
		names = append(names, k)
	}
	sort.Strings(names)
	log.WithFields(fields).Infof("bufclip: %s completed in %v", a.Name, time.Since(startTime))
	for _, k := range names {
		fmt.Fprintf(stdout, "%s: %v\n", k, results[k])
	}
	return nil
}
