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
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridharmony"
	"github.com/spf13/cast"
)

// LoadConfig reads lookup tables from the TOML file at path and returns
// the resulting configuration. If path is blank, the default tables are
// used.
func LoadConfig(path string) (*gridharmony.Config, error) {
	if path == "" {
		return gridharmony.NewConfig(gridharmony.DefaultTables())
	}
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("gridharmony: opening tables file: %v", err)
	}
	defer f.Close()
	t, err := gridharmony.LoadTables(f)
	if err != nil {
		return nil, err
	}
	return gridharmony.NewConfig(t)
}

// datasetDescriptors returns descriptors for the datasets in paths, with
// raw variable names from variables, sorted by dataset name so that the
// reference grid does not depend on map order.
func datasetDescriptors(paths, variables map[string]string) ([]gridharmony.DatasetDescriptor, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("gridharmony: there are no datasets specified. Please fill in " +
			"the Datasets configuration and try again")
	}
	for name := range variables {
		if _, ok := paths[name]; !ok {
			return nil, fmt.Errorf("gridharmony: Variables has an entry for %s, which is not in Datasets", name)
		}
	}
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]gridharmony.DatasetDescriptor, len(names))
	for i, name := range names {
		out[i] = gridharmony.NewDatasetDescriptor(name, os.ExpandEnv(paths[name]), variables[name])
	}
	return out, nil
}

func parseMissingValuePolicy(s string) (gridharmony.MissingValuePolicy, error) {
	switch strings.ToLower(s) {
	case "zero", "":
		return gridharmony.TreatMissingAsZero, nil
	case "exclude":
		return gridharmony.ExcludeMissing, nil
	}
	return 0, fmt.Errorf("gridharmony: the TrendMissing variable needs to be set to either zero "+
		"or exclude, but is currently set to `%s`", s)
}

// checkOutputDir makes sure the output directory exists and expands any
// environment variables.
func checkOutputDir(dir string) (string, error) {
	dir = os.ExpandEnv(dir)
	fi, err := os.Stat(dir)
	if err != nil {
		return dir, fmt.Errorf("gridharmony: the OutputDir directory doesn't exist: %v", err)
	}
	if !fi.IsDir() {
		return dir, fmt.Errorf("gridharmony: OutputDir %s is not a directory", dir)
	}
	return dir, nil
}

// checkUpscaleFiles makes sure the upscale input exists and the output
// directory exists, and expands any environment variables.
func checkUpscaleFiles(input, output string) (string, string, error) {
	if input == "" {
		return "", "", fmt.Errorf(`gridharmony: you need to specify an input file configuration variable (for example: Input="ba.nc")`)
	}
	input, output = os.ExpandEnv(input), os.ExpandEnv(output)
	if _, err := os.Stat(input); err != nil {
		return input, output, fmt.Errorf("gridharmony: the Input file doesn't exist: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(output)); err != nil {
		return input, output, fmt.Errorf("gridharmony: the Output directory doesn't exist: %v", err)
	}
	return input, output, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, dir string) string {
	if logFile == "" {
		return filepath.Join(dir, "gridharmony.log")
	}
	return os.ExpandEnv(logFile)
}

// datasetName returns name, or the base name of path without its
// extension if name is blank.
func datasetName(name, path string) string {
	if name != "" {
		return name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// newLogger returns a logger writing to both out and a new file at
// logFile, and a function that closes the file.
func newLogger(out io.Writer, logFile, level string) (*logrus.Logger, func(), error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("gridharmony: LogLevel: %v", err)
	}
	f, err := os.Create(logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("gridharmony: problem creating log file: %v", err)
	}
	log := logrus.New()
	log.Out = io.MultiWriter(out, f)
	log.Level = lvl
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp:  true,
		DisableColors:  true,
		DisableSorting: true,
	}
	return log, func() { f.Close() }, nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("gridharmony: invalid value for %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("gridharmony: invalid type for %s: %#v", varName, i)
	}
}

// selectClasses collapses the vegetation-class axis of r as named by
// classes: "" keeps it, "all" sums every class and a vegetation scheme
// name sums the natural classes of that scheme.
func selectClasses(cfg *gridharmony.Config, r *gridharmony.RasterSeries, classes string) (*gridharmony.RasterSeries, error) {
	switch classes {
	case "":
		return r, nil
	case "all":
		return gridharmony.TotalOverClasses(r)
	}
	table, ok := cfg.VegetationClasses(classes)
	if !ok {
		return nil, fmt.Errorf("gridharmony: unknown vegetation scheme %q", classes)
	}
	if len(table) != len(r.VegClasses) {
		return nil, fmt.Errorf("gridharmony: dataset %s has %d vegetation classes but scheme %s has %d",
			r.Name, len(r.VegClasses), classes, len(table))
	}
	return gridharmony.SumClasses(r, gridharmony.NaturalClasses(table))
}
