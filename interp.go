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
	"sort"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// julesDiagBurnedAreaCalibration is the factor by which burned area from
// the diagnostic JULES run is divided to match observed totals.
const julesDiagBurnedAreaCalibration = 13.5

const julesDiagDataset = "JUL_S2Diag"

// Interpolator brings a batch of harmonized series onto the grid of the
// batch's OCN series.
type Interpolator struct {
	Config *Config

	// UpscaleFactor is the factor by which generic burned-area series that
	// are finer than the reference grid are upscaled before resampling.
	// Zero means 2.
	UpscaleFactor int

	Log logrus.FieldLogger
}

func (ip *Interpolator) log() logrus.FieldLogger {
	if ip.Log == nil {
		return logrus.StandardLogger()
	}
	return ip.Log
}

// Interpolate clips every series to the named domain and to the analysis
// period of quantity q, and resamples each onto the grid of the first
// OCN-family series using nearest-neighbor interpolation. Cells of the
// target grid that lie outside the extent of a source grid are NaN. All
// returned series share the same *Grid, and are returned in input order.
func (ip *Interpolator) Interpolate(series []*RasterSeries, domain string, q Quantity) ([]*RasterSeries, error) {
	ref := -1
	names := make([]string, len(series))
	for i, r := range series {
		names[i] = r.Name
		if ref < 0 && r.Family == FamilyOCN {
			ref = i
		}
	}
	if ref < 0 {
		return nil, &NoReferenceGridError{Datasets: names}
	}
	dom, ok := ip.Config.Domain(domain)
	if !ok {
		return nil, fmt.Errorf("gridharmony: unknown domain %q", domain)
	}
	bounds := dom.Bounds()

	clipped := make([]*RasterSeries, len(series))
	for i, r := range series {
		limits, ok := ip.Config.TimeLimit(q, timeLimitKey(r.Name, r.Family))
		if !ok {
			return nil, fmt.Errorf("gridharmony: no time limits for quantity %s and dataset %s", q, r.Name)
		}
		c, err := clip(r, bounds, limits)
		if err != nil {
			return nil, WithDataset(err, r.Name)
		}
		if r.Name == julesDiagDataset && q == BurnedArea {
			c.Data.Scale(1 / julesDiagBurnedAreaCalibration)
		}
		clipped[i] = c
	}

	target := clipped[ref].Grid
	factor := ip.UpscaleFactor
	if factor == 0 {
		factor = 2
	}
	out := make([]*RasterSeries, len(series))
	for i, r := range clipped {
		if i == ref {
			out[i] = r
			continue
		}
		if q == BurnedArea && r.Family == FamilyGeneric && finer(r.Grid, target) {
			up, err := Upscale(r, factor)
			if err != nil {
				return nil, err
			}
			ip.log().WithFields(logrus.Fields{
				"dataset": r.Name,
				"factor":  factor,
			}).Debug("upscaled before resampling")
			r = up
		}
		out[i] = regridNearest(r, target)
	}
	return out, nil
}

// clip returns the part of r within b and limits.
func clip(r *RasterSeries, b *geom.Bounds, limits YearRange) (*RasterSeries, error) {
	var ti, yi, xi []int
	var times []time.Time
	for i, t := range r.Time {
		if limits.Contains(t) {
			ti = append(ti, i)
			times = append(times, t)
		}
	}
	var lat, lon []float64
	for j, v := range r.Grid.Lat {
		if v >= b.Min.Y && v <= b.Max.Y {
			yi = append(yi, j)
			lat = append(lat, v)
		}
	}
	for i, v := range r.Grid.Lon {
		if v >= b.Min.X && v <= b.Max.X {
			xi = append(xi, i)
			lon = append(lon, v)
		}
	}
	if len(ti) == 0 {
		return nil, fmt.Errorf("no time steps within %d-%d", limits.First, limits.Last)
	}
	grid, err := NewGrid(lat, lon)
	if err != nil {
		return nil, err
	}
	nslab := r.stepSize() / (r.Grid.Ny() * r.Grid.Nx())
	shape := append([]int(nil), r.Data.Shape...)
	shape[0], shape[len(shape)-2], shape[len(shape)-1] = len(ti), len(yi), len(xi)
	data := sparse.ZerosDense(shape...)
	k := 0
	for _, t := range ti {
		for s := 0; s < nslab; s++ {
			in := r.Data.Elements[(t*nslab+s)*r.Grid.Ny()*r.Grid.Nx():]
			for _, j := range yi {
				for _, i := range xi {
					data.Elements[k] = in[j*r.Grid.Nx()+i]
					k++
				}
			}
		}
	}
	c := r.withData(data, times)
	c.Grid = grid
	return c, nil
}

// finer returns whether g has a smaller latitude spacing than target.
func finer(g, target *Grid) bool {
	return spacing(g.Lat) < spacing(target.Lat)*(1-1e-6)
}

func spacing(c []float64) float64 {
	return math.Abs(c[len(c)-1]-c[0]) / float64(len(c)-1)
}

// regridNearest resamples r onto grid using the nearest source cell.
func regridNearest(r *RasterSeries, grid *Grid) *RasterSeries {
	yi := nearestIndices(r.Grid.Lat, grid.Lat)
	xi := nearestIndices(r.Grid.Lon, grid.Lon)
	ny, nx := r.Grid.Ny(), r.Grid.Nx()
	nslab := r.stepSize() / (ny * nx)
	shape := append([]int(nil), r.Data.Shape...)
	shape[len(shape)-2], shape[len(shape)-1] = grid.Ny(), grid.Nx()
	data := sparse.ZerosDense(shape...)
	k := 0
	for slab := 0; slab < r.Nt()*nslab; slab++ {
		in := r.Data.Elements[slab*ny*nx:]
		for _, j := range yi {
			for _, i := range xi {
				if j < 0 || i < 0 {
					data.Elements[k] = math.NaN()
				} else {
					data.Elements[k] = in[j*nx+i]
				}
				k++
			}
		}
	}
	out := r.withData(data, append([]time.Time(nil), r.Time...))
	out.Grid = grid
	return out
}

// nearestIndices returns for each target coordinate the index of the
// nearest source coordinate, or -1 if the target lies outside the range
// of the source coordinates.
func nearestIndices(src, target []float64) []int {
	order := make([]int, len(src))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return src[order[a]] < src[order[b]] })
	lo, hi := src[order[0]], src[order[len(order)-1]]

	out := make([]int, len(target))
	for k, x := range target {
		if x < lo || x > hi {
			out[k] = -1
			continue
		}
		p := sort.Search(len(order), func(i int) bool { return src[order[i]] >= x })
		best := order[p]
		if p > 0 && x-src[order[p-1]] < src[best]-x {
			best = order[p-1]
		}
		out[k] = best
	}
	return out
}
