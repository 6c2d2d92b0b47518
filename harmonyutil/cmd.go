/*
Copyright © 2023 the gridharmony authors.
This file is part of gridharmony.

gridharmony is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridharmony is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridharmony.  If not, see <http://www.gnu.org/licenses/>.
*/

package harmonyutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/gridharmony"
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
	// Options are the configuration options available to gridharmony.
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
			name: "Tables",
			usage: `
              Tables is the path to a TOML file holding lookup tables (time axes,
              time limits, domains, vegetation classes, global rescale factors and
              unit conversion expressions). Tables that are not in the file keep
              their default values. If Tables is blank, the defaults are used. The
              path can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), upscaleCmd.Flags()},
		},
		{
			name: "Quantity",
			usage: `
              Quantity is the quantity to process. Valid options are burned_area,
              lai, cVeg, gpp, npp, nbp, nee and fFire.`,
			shorthand:  "q",
			defaultVal: "burned_area",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), upscaleCmd.Flags()},
		},
		{
			name: "Domain",
			usage: `
              Domain is the name of the latitude/longitude box that results are
              clipped to. It must be one of the domains in Tables.`,
			shorthand:  "d",
			defaultVal: "Global",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Datasets",
			usage: `
              Datasets gives the paths of the input NetCDF files (as values) by
              dataset name (as keys). Dataset names that start with OCN, JUL and
              ORC are read as output of the OCN, JULES and ORCHIDEE models; all
              others as observational products. At least one dataset must be from
              the OCN family. Paths can include environment variables.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Variables",
			usage: `
              Variables gives the names of the variables holding Quantity (as values)
              by dataset name (as keys), for datasets where it differs from the name
              of the quantity.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory where harmonized series and statistics are
              written. It must already exist and can include environment variables.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of datasets that are read and harmonized at the
              same time. If Workers is 0, the number of processors is used.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Strict",
			usage: `
              If Strict is true, a dataset whose units cannot be converted stops the
              run. Otherwise its values are passed through unchanged with a warning.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Annual",
			usage: `
              If Annual is true, series are resampled to calendar years before
              statistics are computed.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TrendMissing",
			usage: `
              TrendMissing specifies how missing values enter trend fits. Valid
              options are "zero", to treat them as zeros, and "exclude", to fit
              each pixel on its available years only.`,
			defaultVal: "zero",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Difference.Reference",
			usage: `
              Difference.Reference is the name of the dataset that the mean field of
              Difference.Comparison is subtracted from. If it is blank, no difference
              is calculated.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Difference.Comparison",
			usage: `
              Difference.Comparison is the name of the dataset whose mean field is
              subtracted from the one of Difference.Reference.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can include
              environment variables. If LogFile is left blank, the logfile will be
              saved as gridharmony.log in OutputDir, or next to Output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), upscaleCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages. Valid options are
              debug, info, warning and error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), upscaleCmd.Flags()},
		},
		{
			name: "Input",
			usage: `
              Input is the path to the NetCDF file to upscale. It can include
              environment variables.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{upscaleCmd.Flags()},
		},
		{
			name: "Output",
			usage: `
              Output is the path where the upscaled NetCDF file is written. It can
              include environment variables.`,
			defaultVal: "upscaled.ncf",
			flagsets:   []*pflag.FlagSet{upscaleCmd.Flags()},
		},
		{
			name: "Dataset",
			usage: `
              Dataset is the name of the dataset in Input, which decides how it is
              read. If it is blank, the file name without extension is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{upscaleCmd.Flags()},
		},
		{
			name: "Variable",
			usage: `
              Variable is the name of the variable in Input holding Quantity. If it
              is blank, the name of the quantity is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{upscaleCmd.Flags()},
		},
		{
			name: "Factor",
			usage: `
              Factor is the number of fine cells along each axis that are combined
              into one coarse cell.`,
			shorthand:  "f",
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{upscaleCmd.Flags()},
		},
		{
			name: "Classes",
			usage: `
              Classes selects how a vegetation-class axis in Input is collapsed
              before upscaling. "all" sums every class. The name of a vegetation
              scheme in Tables, such as "OCN" or "ESA-CCI", sums the natural
              (non-crop) classes of that scheme. If Classes is blank, the class
              axis is kept.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{upscaleCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GRIDHARMONY")
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
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(v)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
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
	Root.AddCommand(upscaleCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gridharmony: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gridharmony",
	Short: "Harmonize gridded carbon and fire datasets.",
	Long: `gridharmony brings gridded carbon-cycle and fire datasets from land
surface models and observations onto a common grid, units and time axis, and
computes per-pixel statistics and annual domain totals from them.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GRIDHARMONY_var' where 'var' is the
name of the variable to be set. Paths can additionally contain environment variables.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of gridharmony.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("gridharmony v%s\n", gridharmony.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Harmonize datasets and calculate statistics.",
	Long: `run reads Quantity from every dataset in Datasets, converts it to
common units, resamples it onto the grid of the first OCN dataset clipped
to Domain, and writes the harmonized series, per-pixel mean, standard
deviation and trend, and logs annual domain totals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg.GetString("Tables"))
		if err != nil {
			return err
		}
		q, err := gridharmony.ParseQuantity(Cfg.GetString("Quantity"))
		if err != nil {
			return err
		}
		outputDir, err := checkOutputDir(Cfg.GetString("OutputDir"))
		if err != nil {
			return err
		}
		datasetPaths, err := GetStringMapString("Datasets", Cfg)
		if err != nil {
			return err
		}
		variables, err := GetStringMapString("Variables", Cfg)
		if err != nil {
			return err
		}
		datasets, err := datasetDescriptors(datasetPaths, variables)
		if err != nil {
			return err
		}
		policy, err := parseMissingValuePolicy(Cfg.GetString("TrendMissing"))
		if err != nil {
			return err
		}
		log, closeLog, err := newLogger(cmd.OutOrStdout(),
			checkLogFile(Cfg.GetString("LogFile"), outputDir), Cfg.GetString("LogLevel"))
		if err != nil {
			return err
		}
		defer closeLog()

		return Run(log, cfg, datasets, q, Cfg.GetString("Domain"), outputDir,
			Cfg.GetBool("Annual"), Cfg.GetBool("Strict"), Cfg.GetInt("Workers"), policy,
			Cfg.GetString("Difference.Reference"), Cfg.GetString("Difference.Comparison"))
	},
	DisableAutoGenTag: true,
}

var upscaleCmd = &cobra.Command{
	Use:   "upscale",
	Short: "Upscale a gridded dataset.",
	Long: `upscale sums blocks of Factor × Factor cells of Quantity in Input into
single cells and writes the result to Output. The number of latitudes and
longitudes in Input must both be multiples of Factor. Vegetation classes can
be summed first with Classes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg.GetString("Tables"))
		if err != nil {
			return err
		}
		q, err := gridharmony.ParseQuantity(Cfg.GetString("Quantity"))
		if err != nil {
			return err
		}
		input, output, err := checkUpscaleFiles(Cfg.GetString("Input"), Cfg.GetString("Output"))
		if err != nil {
			return err
		}
		log, closeLog, err := newLogger(cmd.OutOrStdout(),
			checkLogFile(Cfg.GetString("LogFile"), filepath.Dir(output)), Cfg.GetString("LogLevel"))
		if err != nil {
			return err
		}
		defer closeLog()

		d := gridharmony.NewDatasetDescriptor(datasetName(Cfg.GetString("Dataset"), input), input, Cfg.GetString("Variable"))
		return Upscale(log, cfg, d, q, output, Cfg.GetInt("Factor"), Cfg.GetString("Classes"))
	},
	DisableAutoGenTag: true,
}
