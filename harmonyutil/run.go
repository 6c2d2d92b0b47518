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
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridharmony"
	"gonum.org/v1/gonum/stat"
)

// Run harmonizes a batch of datasets and writes the results.
//
// log receives progress messages, the annual domain totals and the mean
// field difference.
//
// cfg holds the lookup tables.
//
// datasets are the datasets to process. At least one must be from the
// OCN family; the first such dataset provides the reference grid.
//
// q is the quantity to process and domain is the name of the box results
// are clipped to.
//
// outputDir is the directory where each harmonized series is written as
// <dataset>_<quantity>.ncf and the statistics of all series as
// <quantity>_<domain>_stats.ncf.
//
// If annual is true, series are resampled to calendar years before
// statistics are computed. If strict is true, a dataset whose units cannot
// be converted is an error. workers is the number of datasets that are
// harmonized at the same time, and policy decides how missing values enter
// trend fits.
//
// If diffRef and diffComp are not blank, the mean field of dataset
// diffComp is subtracted from the one of diffRef and the result is
// written to <quantity>_<domain>_<diffRef>-<diffComp>.ncf.
func Run(log logrus.FieldLogger, cfg *gridharmony.Config, datasets []gridharmony.DatasetDescriptor,
	q gridharmony.Quantity, domain, outputDir string, annual, strict bool, workers int,
	policy gridharmony.MissingValuePolicy, diffRef, diffComp string) error {

	startTime := time.Now()

	p := &gridharmony.Pipeline{
		Harmonizer:   &gridharmony.Harmonizer{Config: cfg, Log: log, Strict: strict},
		Interpolator: &gridharmony.Interpolator{Config: cfg, Log: log},
		Workers:      workers,
		TrendMissing: policy,
		Log:          log,
	}
	log.WithFields(logrus.Fields{
		"quantity": string(q),
		"domain":   domain,
		"datasets": len(datasets),
	}).Info("starting run")

	res, err := p.Run(context.Background(), datasets, q, domain, annual)
	if err != nil {
		return err
	}

	for _, s := range res.Series {
		s := s
		path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.ncf", s.Name, q))
		if err := writeFile(path, func(f *os.File) error { return gridharmony.WriteSeries(f, s) }); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"dataset": s.Name, "file": path}).Debug("wrote harmonized series")
	}
	statsPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s_stats.ncf", q, domain))
	if err := writeFile(statsPath, func(f *os.File) error { return gridharmony.WriteStatistics(f, res.Stats) }); err != nil {
		return err
	}
	log.WithField("file", statsPath).Info("wrote statistics")

	for _, a := range res.Annual {
		for i, y := range a.Years {
			log.WithFields(logrus.Fields{
				"dataset": a.Dataset,
				"year":    y,
				"value":   a.Values[i],
				"units":   a.Units,
			}).Info("annual total")
		}
	}

	if diffRef != "" || diffComp != "" {
		if err := writeDifference(log, res, outputDir, diffRef, diffComp); err != nil {
			return err
		}
	}

	log.WithField("duration", time.Since(startTime).String()).Info("run complete")
	return nil
}

// writeDifference subtracts the mean field of comp from the one of ref
// and writes it alongside both inputs.
func writeDifference(log logrus.FieldLogger, res *gridharmony.Result, outputDir, ref, comp string) error {
	means := make([]*gridharmony.Field, len(res.Stats))
	stds := make([]*gridharmony.Field, len(res.Stats))
	trends := make([]*gridharmony.Field, len(res.Stats))
	for i, s := range res.Stats {
		means[i], stds[i], trends[i] = s.Mean, s.Std, s.Trend
	}
	names := res.Names()
	var diff [3][]*gridharmony.Field
	for i, fields := range [][]*gridharmony.Field{means, stds, trends} {
		d, err := gridharmony.Difference(names, ref, comp, fields)
		if err != nil {
			return err
		}
		diff[i] = d
	}
	result := &gridharmony.StatisticResult{
		Dataset: diff[0][2].Dataset,
		Lat:     diff[0][2].Lat,
		Lon:     diff[0][2].Lon,
		Mean:    diff[0][2],
		Std:     diff[1][2],
		Trend:   diff[2][2],
	}
	path := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%s.ncf", res.Quantity, res.Domain, result.Dataset))
	if err := writeFile(path, func(f *os.File) error {
		return gridharmony.WriteStatistics(f, []*gridharmony.StatisticResult{result})
	}); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"reference":  ref,
		"comparison": comp,
		"mean":       finiteMean(result.Mean.Values.Elements),
		"units":      result.Mean.Units,
		"file":       path,
	}).Info("mean field difference")
	return nil
}

// Upscale harmonizes quantity q of dataset d, upscales it by factor and
// writes it to output. The totals before and after upscaling are logged
// for every time step.
func Upscale(log logrus.FieldLogger, cfg *gridharmony.Config, d gridharmony.DatasetDescriptor,
	q gridharmony.Quantity, output string, factor int, classes string) error {

	h := &gridharmony.Harmonizer{Config: cfg, Log: log}
	r, err := h.Harmonize(d, q, false)
	if err != nil {
		return err
	}
	r, err = selectClasses(cfg, r, classes)
	if err != nil {
		return err
	}
	up, diag, err := gridharmony.UpscaleWithDiagnostics(r, factor)
	if err != nil {
		return err
	}
	for i, t := range diag.Time {
		log.WithFields(logrus.Fields{
			"time":            t.Format("2006-01-02"),
			"fine_total":      diag.FineTotal[i],
			"coarse_total":    diag.CoarseTotal[i],
			"fine_fraction":   diag.FineFraction[i],
			"coarse_fraction": diag.CoarseFraction[i],
		}).Debug("upscaled time step")
	}
	if err := writeFile(output, func(f *os.File) error { return gridharmony.WriteSeries(f, up) }); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"dataset": d.Name(),
		"factor":  factor,
		"file":    output,
	}).Info("wrote upscaled series")
	return nil
}

// writeFile creates the file at path and calls write with it.
func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gridharmony: creating output file: %v", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// finiteMean returns the mean of the values that are not NaN.
func finiteMean(vals []float64) float64 {
	finite := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	return stat.Mean(finite, nil)
}
