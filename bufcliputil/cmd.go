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

// Package bufcliputil holds the command-line interface to bufclip.
package bufcliputil

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/bufclip"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	// Options are the configuration options available to bufclip.
	options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Input",
			usage: `
              Input is the path to the polygon shapefile to process.
              It can include environment variables.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Output",
			usage: `
              Output is the path where the output shapefile should be written.
              Any existing shapefile at that location is replaced. It can
              include environment variables.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "BufferSize",
			usage: `
              BufferSize is the buffer radius, in the units of the Input
              coordinate reference system. If it is empty, the default of the
              chosen algorithm is used.`,
			shorthand:  "d",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Segments",
			usage: `
              Segments is the number of straight edges used to approximate
              each quarter of the buffer circle.`,
			defaultVal: bufclip.DefaultSegments,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Classes",
			usage: `
              Classes is the number of color classes used by algorithms
              that style their output.`,
			defaultVal: bufclip.DefaultClasses,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Classifier",
			usage: `
              Classifier is the method used to divide feature areas into
              color classes. Options are 'jenks', 'equal', and 'quantile'.`,
			defaultVal: "jenks",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Preview",
			usage: `
              Preview is the path of a PNG map of the output to create.
              No map is created if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the
              logfile will be saved in the same location as the Output file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("BUFCLIP")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(listCmd)
	Root.AddCommand(describeCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("bufclip: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "bufclip",
	Short: "Clip polygons to a buffer around their centroids.",
	Long: `bufclip replaces each polygon in a shapefile with the part of the polygon
that lies within a given distance of its centroid. Use the subcommands specified
below to list the available algorithm variants and to run them.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'BUFCLIP_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of bufclip.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("bufclip v%s\n", bufclip.Version)
	},
	DisableAutoGenTag: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available algorithms",
	Long:  "list prints the name and description of each available algorithm.",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		for _, a := range bufclip.DefaultRegistry.Algorithms() {
			fmt.Fprintf(w, "%s\t%s\n", a.Name, a.DisplayName)
		}
		w.Flush()
	},
	DisableAutoGenTag: true,
}

var describeCmd = &cobra.Command{
	Use:   "describe <algorithm>",
	Short: "Describe an algorithm",
	Long:  "describe prints the help text, parameters, and outputs of an algorithm.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := algorithm(args[0])
		if err != nil {
			return err
		}
		describe(cmd, a)
		return nil
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs an algorithm.
var runCmd = &cobra.Command{
	Use:   "run <algorithm>",
	Short: "Run an algorithm",
	Long: `run runs the named algorithm on the Input shapefile and writes the result
to the Output shapefile. Use the 'list' command to see the available algorithms.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := algorithm(args[0])
		if err != nil {
			return err
		}
		input, err := checkInputFile(Cfg.GetString("Input"))
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("Output"))
		if err != nil {
			return err
		}
		classifier, method, err := checkClassifier(Cfg.GetString("Classifier"))
		if err != nil {
			return err
		}
		return Run(cmd, a,
			input,
			outputFile,
			os.ExpandEnv(Cfg.GetString("BufferSize")),
			checkLogFile(os.ExpandEnv(Cfg.GetString("LogFile")), outputFile),
			os.ExpandEnv(Cfg.GetString("Preview")),
			bufclip.Styler{
				Classes:    Cfg.GetInt("Classes"),
				Classifier: classifier,
				Method:     method,
			},
			Cfg.GetInt("Segments"),
		)
	},
	DisableAutoGenTag: true,
}

func algorithm(name string) (*bufclip.Algorithm, error) {
	a, ok := bufclip.DefaultRegistry.Lookup(name)
	if !ok {
		var names []string
		for _, a := range bufclip.DefaultRegistry.Algorithms() {
			names = append(names, a.Name)
		}
		return nil, fmt.Errorf("bufclip: unknown algorithm %q; valid options are %s",
			name, strings.Join(names, ", "))
	}
	return a, nil
}

func describe(cmd *cobra.Command, a *bufclip.Algorithm) {
	cmd.Printf("%s (%s)\nGroup: %s\n\n%s\n\nParameters:\n", a.DisplayName, a.Name, a.Group, a.Help)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	for _, p := range a.Parameters {
		fmt.Fprintf(w, "  %s\t%s\t%s", p.Name, p.Kind, p.Description)
		if p.Default != nil {
			fmt.Fprintf(w, " (default %v)", p.Default)
		}
		if p.HasMin || p.HasMax {
			fmt.Fprintf(w, " [%v, %v]", p.Min, p.Max)
		}
		if p.Parent != "" {
			fmt.Fprintf(w, " in units of %s", p.Parent)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	cmd.Println("Outputs:")
	for _, o := range a.Outputs {
		cmd.Printf("  %s\t%s\n", o.Name, o.Description)
	}
}
