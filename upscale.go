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
	"time"

	"github.com/ctessum/sparse"
)

// UpscaleDiagnostics holds per-time-step totals of a series before and
// after upscaling, which should agree when no cells were lost.
type UpscaleDiagnostics struct {
	Time []time.Time

	// FineTotal and CoarseTotal are the sums of all values.
	FineTotal, CoarseTotal []float64

	// FineFraction and CoarseFraction are the sums over all cells of the
	// burned fraction, value × 1e9 / cell area.
	FineFraction, CoarseFraction []float64
}

// Upscale aggregates r onto a grid that is factor times coarser in each
// direction by summing each factor × factor block of cells. Coarse cell
// centers are the means of the fine centers they contain. The time and
// vegetation-class axes are carried through unchanged. Values are summed,
// so the quantity must be extensive (e.g. area, not a fraction). NaNs are
// skipped unless a whole block is NaN.
func Upscale(r *RasterSeries, factor int) (*RasterSeries, error) {
	out, _, err := upscale(r, factor, false)
	return out, err
}

// UpscaleWithDiagnostics is like Upscale but also returns totals that
// can be used to check that the upscaled series conserves its sum.
func UpscaleWithDiagnostics(r *RasterSeries, factor int) (*RasterSeries, *UpscaleDiagnostics, error) {
	return upscale(r, factor, true)
}

func upscale(r *RasterSeries, factor int, diagnose bool) (*RasterSeries, *UpscaleDiagnostics, error) {
	if factor < 1 {
		return nil, nil, fmt.Errorf("gridharmony: upscaling factor must be at least 1; got %d", factor)
	}
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}
	ny, nx := r.Grid.Ny(), r.Grid.Nx()
	if ny%factor != 0 {
		return nil, nil, &GridAlignmentError{Dataset: r.Name, Axis: "lat", Length: ny, Factor: factor}
	}
	if nx%factor != 0 {
		return nil, nil, &GridAlignmentError{Dataset: r.Name, Axis: "lon", Length: nx, Factor: factor}
	}
	grid, err := NewGrid(blockCenters(r.Grid.Lat, factor), blockCenters(r.Grid.Lon, factor))
	if err != nil {
		return nil, nil, WithDataset(err, r.Name)
	}
	cy, cx := grid.Ny(), grid.Nx()

	nslab := r.stepSize() / (ny * nx) // vegetation classes per step
	shape := append([]int(nil), r.Data.Shape...)
	shape[len(shape)-2], shape[len(shape)-1] = cy, cx
	out := sparse.ZerosDense(shape...)

	block := make([]float64, factor*factor)
	for t := 0; t < r.Nt(); t++ {
		for s := 0; s < nslab; s++ {
			in := r.Data.Elements[(t*nslab+s)*ny*nx : (t*nslab+s+1)*ny*nx]
			o := out.Elements[(t*nslab+s)*cy*cx : (t*nslab+s+1)*cy*cx]
			upscaleSlab(in, o, nx, cy, cx, factor, block)
		}
	}

	up := r.withData(out, append([]time.Time(nil), r.Time...))
	up.Grid = grid
	if !diagnose {
		return up, nil, nil
	}
	return up, &UpscaleDiagnostics{
		Time:           append([]time.Time(nil), r.Time...),
		FineTotal:      stepTotals(r, nil, 1),
		CoarseTotal:    stepTotals(up, nil, 1),
		FineFraction:   stepTotals(r, r.Grid.Area.Elements, 1/burnedAreaScale),
		CoarseFraction: stepTotals(up, up.Grid.Area.Elements, 1/burnedAreaScale),
	}, nil
}

// upscaleSlab block-sums one 2-D slab.
func upscaleSlab(in, out []float64, nx, cy, cx, factor int, block []float64) {
	for j := 0; j < cy; j++ {
		for i := 0; i < cx; i++ {
			k := 0
			for jj := j * factor; jj < (j+1)*factor; jj++ {
				for ii := i * factor; ii < (i+1)*factor; ii++ {
					block[k] = in[jj*nx+ii]
					k++
				}
			}
			out[j*cx+i] = nanSum(block)
		}
	}
}

// blockCenters returns the means of consecutive groups of factor centers.
func blockCenters(c []float64, factor int) []float64 {
	out := make([]float64, len(c)/factor)
	for i := range out {
		var sum float64
		for _, v := range c[i*factor : (i+1)*factor] {
			sum += v
		}
		out[i] = sum / float64(factor)
	}
	return out
}

// stepTotals returns, for every time step, the sum of all finite values,
// each multiplied by scale and, if area is given, divided by its cell
// area.
func stepTotals(r *RasterSeries, area []float64, scale float64) []float64 {
	out := make([]float64, r.Nt())
	for t := range out {
		s := r.step(t)
		var sum float64
		for i, v := range s {
			if math.IsNaN(v) {
				continue
			}
			if area != nil {
				v /= area[i%len(area)]
			}
			sum += v * scale
		}
		out[t] = sum
	}
	return out
}
