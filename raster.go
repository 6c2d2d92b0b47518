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
	"time"

	"github.com/ctessum/sparse"
)

// RasterSeries is a gridded time series of one quantity from one dataset.
// Data has shape (time, lat, lon) or, when VegClasses is set,
// (time, vegetation class, lat, lon).
type RasterSeries struct {
	Name     string
	Family   Family
	Quantity Quantity
	Units    string

	Time       []time.Time
	Grid       *Grid
	VegClasses []float64

	Data *sparse.DenseArray
}

// Validate checks that the dimensions of the series are consistent.
func (r *RasterSeries) Validate() error {
	if r.Grid == nil || r.Data == nil {
		return fmt.Errorf("gridharmony: dataset %s: series is missing its grid or data", r.Name)
	}
	want := []int{len(r.Time)}
	if r.VegClasses != nil {
		want = append(want, len(r.VegClasses))
	}
	want = append(want, r.Grid.Ny(), r.Grid.Nx())
	if len(want) != len(r.Data.Shape) {
		return fmt.Errorf("gridharmony: dataset %s: data has %d dimensions; want %d", r.Name, len(r.Data.Shape), len(want))
	}
	for i, n := range want {
		if r.Data.Shape[i] != n {
			return fmt.Errorf("gridharmony: dataset %s: data shape %v does not match coordinates %v", r.Name, r.Data.Shape, want)
		}
	}
	for i := 1; i < len(r.Time); i++ {
		if !r.Time[i].After(r.Time[i-1]) {
			return &TimeAxisError{Dataset: r.Name, Reason: fmt.Sprintf("time is not strictly increasing at step %d", i)}
		}
	}
	return nil
}

// Nt returns the number of time steps.
func (r *RasterSeries) Nt() int { return len(r.Time) }

// HasVegClass returns whether the series carries a vegetation-class axis.
func (r *RasterSeries) HasVegClass() bool { return r.VegClasses != nil }

// stepSize is the number of elements in one time step.
func (r *RasterSeries) stepSize() int {
	n := 1
	for _, d := range r.Data.Shape[1:] {
		n *= d
	}
	return n
}

// step returns the elements of time step t without copying them.
func (r *RasterSeries) step(t int) []float64 {
	n := r.stepSize()
	return r.Data.Elements[t*n : (t+1)*n]
}

// Copy returns a deep copy of r. The grid is shared because grids are
// never modified once created.
func (r *RasterSeries) Copy() *RasterSeries {
	o := *r
	o.Time = append([]time.Time(nil), r.Time...)
	if r.VegClasses != nil {
		o.VegClasses = append([]float64(nil), r.VegClasses...)
	}
	o.Data = r.Data.Copy()
	return &o
}

// withData returns a copy of r's metadata carrying the given data.
func (r *RasterSeries) withData(data *sparse.DenseArray, t []time.Time) *RasterSeries {
	o := *r
	o.Time = t
	if r.VegClasses != nil {
		o.VegClasses = append([]float64(nil), r.VegClasses...)
	}
	o.Data = data
	return &o
}
