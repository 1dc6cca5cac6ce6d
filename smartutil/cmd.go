/*
Copyright © 2020 the SMART authors.
This file is part of SMART.

SMART is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SMART is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SMART.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package smartutil contains the command-line interface for the SMART
// rainfall-runoff model.
package smartutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/smart"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to SMART.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Forcing",
			usage: `
              Forcing is the path to the NetCDF file holding precipitation
              and potential evapotranspiration for each timestep and grid
              cell. It can include environment variables.`,
			shorthand:  "f",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Parameters",
			usage: `
              Parameters is the path to the TOML file holding the model
              parameters and their units, with one table per stage. It can
              include environment variables.`,
			shorthand:  "p",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the
              logfile will be saved next to the forcing file with the
              extension .log.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of log messages to write:
              debug, info, warning or error. Timestep progress is logged
              at the debug level.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "NumSteps",
			usage: `
              NumSteps is the number of timesteps to simulate. If < 1,
              the simulation runs until the end of the forcing.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "RecordPeriod",
			usage: `
              RecordPeriod is the number of timesteps averaged into each
              output record. For hourly forcing, 24 gives daily means.`,
			defaultVal: 24,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which variables should be reported
              and how they should be calculated from the model variables.
              Run 'smart fields' for the list of model variables.`,
			defaultVal: map[string]string{
				"Streamflow": smart.VarStreamflow,
				"AET":        smart.VarActualEvapotranspiration,
				"Runoff":     smart.VarSurfaceRunoff + " + " + smart.VarSubsurfaceRunoff,
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "InitialSoilWaterStress",
			usage: `
              InitialSoilWaterStress is the soil water stress [1] seen by
              the surface layer on the first timestep.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "PercolationRule",
			usage: `
              PercolationRule decides when a soil layer absorbs all of
              the remaining excess rain. 'literal' compares the excess with
              the layer's previous depth; 'capacity' compares it with the
              space left in the layer.`,
			defaultVal: "literal",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SMART")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
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
	Root.AddCommand(runCmd)
	Root.AddCommand(fieldsCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("smart: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "smart",
	Short: "A lumped rainfall-runoff model.",
	Long: `SMART is a lumped conceptual rainfall-runoff and channel routing model.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SMART_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of SMART.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("SMART v%s\n", smart.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs a simulation.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a SMART simulation over the forcing file and prints the
domain average of each output variable for every record period.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		forcing, err := checkInputFile("Forcing", Cfg.GetString("Forcing"))
		if err != nil {
			return err
		}
		params, err := checkInputFile("Parameters", Cfg.GetString("Parameters"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		rule, err := checkPercolationRule(Cfg.GetString("PercolationRule"))
		if err != nil {
			return err
		}
		_, err = Run(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), forcing),
			Cfg.GetString("LogLevel"),
			forcing,
			params,
			outputVars,
			Cfg.GetInt("NumSteps"),
			Cfg.GetInt("RecordPeriod"),
			Cfg.GetFloat64("InitialSoilWaterStress"),
			rule,
		)
		return err
	},
	DisableAutoGenTag: true,
}

// fieldsCmd is a command that lists the model variables.
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the model variables and parameters.",
	Long: `fields lists the variables exchanged between the model stages,
which can be used in OutputVariables expressions, and the parameters
each stage reads from the parameter file.`,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "VARIABLE\tFROM\tTO\tUNITS\tDESCRIPTION")
		for _, f := range smart.ExchangeFields {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Name, f.From, f.To, f.Units, f.Description)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "PARAMETER\tSTAGE\tUNITS\tDESCRIPTION")
		for _, p := range parameterInfo {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.name, p.stage, p.units, p.description)
		}
		w.Flush()
	},
	DisableAutoGenTag: true,
}
