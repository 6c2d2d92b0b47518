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

package gridharmony

import (
	"fmt"
	"math"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Field is a per-pixel result for one dataset, with shape (lat, lon) or
// (vegetation class, lat, lon).
type Field struct {
	Dataset   string
	Statistic string
	Lat, Lon  []float64
	Values    *sparse.DenseArray

	Units      string
	Dimensions unit.Dimensions
}

// StatisticResult holds the temporal statistics of one dataset.
type StatisticResult struct {
	Dataset          string
	Lat, Lon         []float64
	Mean, Std, Trend *Field
}

// MissingValuePolicy decides how NaNs enter a trend fit.
type MissingValuePolicy int

const (
	// TreatMissingAsZero replaces NaNs with zero before fitting.
	TreatMissingAsZero MissingValuePolicy = iota
	// ExcludeMissing fits each pixel on its finite values only.
	ExcludeMissing
)

func newField(r *RasterSeries, statistic string) *Field {
	return &Field{
		Dataset:    r.Name,
		Statistic:  statistic,
		Lat:        r.Grid.Lat,
		Lon:        r.Grid.Lon,
		Values:     sparse.ZerosDense(r.Data.Shape[1:]...),
		Units:      r.Units,
		Dimensions: r.Quantity.Dimensions(),
	}
}

// pixelSeries calls f with the time series of every pixel, with NaNs
// removed.
func pixelSeries(r *RasterSeries, f func(p int, vals []float64)) {
	n := r.stepSize()
	vals := make([]float64, 0, r.Nt())
	for p := 0; p < n; p++ {
		vals = vals[:0]
		for t := 0; t < r.Nt(); t++ {
			if v := r.Data.Elements[t*n+p]; !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		f(p, vals)
	}
}

// Mean returns the temporal mean of every pixel of each series, skipping
// NaNs. Pixels that are always NaN are NaN.
func Mean(series []*RasterSeries) ([]*Field, error) {
	out := make([]*Field, len(series))
	for i, r := range series {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		f := newField(r, "mean")
		pixelSeries(r, func(p int, vals []float64) {
			if len(vals) == 0 {
				f.Values.Elements[p] = math.NaN()
				return
			}
			f.Values.Elements[p] = stat.Mean(vals, nil)
		})
		out[i] = f
	}
	return out, nil
}

// Std returns the temporal population standard deviation of every pixel
// of each series, skipping NaNs.
func Std(series []*RasterSeries) ([]*Field, error) {
	out := make([]*Field, len(series))
	for i, r := range series {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		f := newField(r, "std")
		pixelSeries(r, func(p int, vals []float64) {
			switch len(vals) {
			case 0:
				f.Values.Elements[p] = math.NaN()
			case 1:
				f.Values.Elements[p] = 0
			default:
				_, variance := stat.MeanVariance(vals, nil)
				n := float64(len(vals))
				f.Values.Elements[p] = math.Sqrt(variance * (n - 1) / n)
			}
		})
		out[i] = f
	}
	return out, nil
}

// treatMissingAsZero returns a copy of data with NaNs replaced by zero.
func treatMissingAsZero(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		if !math.IsNaN(v) {
			out[i] = v
		}
	}
	return out
}

// Trend returns the least-squares linear trend, in units per year, of
// every pixel of each series against the calendar year of each time step.
func Trend(series []*RasterSeries, policy MissingValuePolicy) ([]*Field, error) {
	out := make([]*Field, len(series))
	for i, r := range series {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		years := make([]float64, r.Nt())
		distinct := make(map[int]bool)
		for t, tt := range r.Time {
			years[t] = float64(tt.Year())
			distinct[tt.Year()] = true
		}
		if len(distinct) < 2 {
			return nil, fmt.Errorf("gridharmony: dataset %s: a trend needs at least two distinct years; have %d", r.Name, len(distinct))
		}
		f := newField(r, "trend")
		f.Units = r.Units + " yr-1"
		f.Dimensions = r.Quantity.TrendDimensions()
		var err error
		switch policy {
		case TreatMissingAsZero:
			err = fitAll(years, treatMissingAsZero(r.Data.Elements), f.Values.Elements)
		case ExcludeMissing:
			fitEach(r, years, f.Values.Elements)
		default:
			err = fmt.Errorf("gridharmony: unknown missing value policy %d", policy)
		}
		if err != nil {
			return nil, fmt.Errorf("gridharmony: trend of dataset %s: %v", r.Name, err)
		}
		out[i] = f
	}
	return out, nil
}

// fitAll fits a line to every column of the (len(years) × len(slope))
// matrix y in a single least-squares solve and stores the slopes.
func fitAll(years, y, slope []float64) error {
	nt := len(years)
	xm := stat.Mean(years, nil)
	x := mat.NewDense(nt, 2, nil)
	for t, yr := range years {
		x.Set(t, 0, yr-xm)
		x.Set(t, 1, 1)
	}
	var beta mat.Dense
	if err := beta.Solve(x, mat.NewDense(nt, len(slope), y)); err != nil {
		return err
	}
	for p := range slope {
		slope[p] = beta.At(0, p)
	}
	return nil
}

// fitEach fits a line to the finite values of each pixel separately.
// Pixels with fewer than two distinct years of data are NaN.
func fitEach(r *RasterSeries, years, slope []float64) {
	n := r.stepSize()
	xs := make([]float64, 0, len(years))
	ys := make([]float64, 0, len(years))
	for p := 0; p < n; p++ {
		xs, ys = xs[:0], ys[:0]
		for t := range years {
			if v := r.Data.Elements[t*n+p]; !math.IsNaN(v) {
				xs = append(xs, years[t])
				ys = append(ys, v)
			}
		}
		if len(xs) < 2 || stat.Variance(xs, nil) == 0 {
			slope[p] = math.NaN()
			continue
		}
		slope[p], _, _, _, _, _ = stats.LinearRegression(xs, ys)
	}
}

// Difference returns the fields of the datasets named ref and comp and
// their difference, ref − comp. names gives the dataset name of each
// field in values.
func Difference(names []string, ref, comp string, values []*Field) ([]*Field, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("gridharmony: %d dataset names for %d fields", len(names), len(values))
	}
	find := func(name string) (*Field, error) {
		for i, n := range names {
			if n == name {
				return values[i], nil
			}
		}
		return nil, &UnknownDatasetError{Name: name}
	}
	a, err := find(ref)
	if err != nil {
		return nil, err
	}
	b, err := find(comp)
	if err != nil {
		return nil, err
	}
	if !sameCoords(a.Lat, b.Lat) || !sameCoords(a.Lon, b.Lon) || len(a.Values.Elements) != len(b.Values.Elements) {
		return nil, &GridMismatchError{Dataset: comp, Reference: ref}
	}
	if a.Dimensions != nil && b.Dimensions != nil && !a.Dimensions.Matches(b.Dimensions) {
		return nil, fmt.Errorf("gridharmony: cannot subtract %s [%v] from %s [%v]", comp, b.Dimensions, ref, a.Dimensions)
	}
	d := &Field{
		Dataset:    ref + "-" + comp,
		Statistic:  a.Statistic,
		Lat:        a.Lat,
		Lon:        a.Lon,
		Values:     a.Values.Copy(),
		Units:      a.Units,
		Dimensions: a.Dimensions,
	}
	for i, v := range b.Values.Elements {
		d.Values.Elements[i] -= v
	}
	return []*Field{a, b, d}, nil
}

// Summarize computes the mean, standard deviation and trend of each
// series.
func Summarize(series []*RasterSeries, policy MissingValuePolicy) ([]*StatisticResult, error) {
	means, err := Mean(series)
	if err != nil {
		return nil, err
	}
	stds, err := Std(series)
	if err != nil {
		return nil, err
	}
	trends, err := Trend(series, policy)
	if err != nil {
		return nil, err
	}
	out := make([]*StatisticResult, len(series))
	for i, r := range series {
		out[i] = &StatisticResult{
			Dataset: r.Name,
			Lat:     r.Grid.Lat,
			Lon:     r.Grid.Lon,
			Mean:    means[i],
			Std:     stds[i],
			Trend:   trends[i],
		}
	}
	return out, nil
}
