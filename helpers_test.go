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
	"testing"
	"time"

	"github.com/ctessum/sparse"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func absDifferent(a, b, tolerance float64) bool {
	if math.Abs(a-b) > tolerance {
		return true
	}
	return false
}

// memVariable is one variable of a memSource.
type memVariable struct {
	dims  []string
	data  *sparse.DenseArray
	attrs map[string]interface{}
}

// memSource is an in-memory Source.
type memSource map[string]memVariable

func (m memSource) Variables() []string {
	var names []string
	for n := range m {
		names = append(names, n)
	}
	return names
}

func (m memSource) Dims(v string) []string {
	if x, ok := m[v]; ok {
		return x.dims
	}
	return nil
}

func (m memSource) Read(v string) (*sparse.DenseArray, error) {
	x, ok := m[v]
	if !ok {
		return nil, fmt.Errorf("no variable %s", v)
	}
	return x.data.Copy(), nil
}

func (m memSource) Attribute(v, a string) interface{} {
	if x, ok := m[v]; ok {
		return x.attrs[a]
	}
	return nil
}

func (m memSource) Close() error { return nil }

// memFiles opens memSources by path.
type memFiles map[string]memSource

func (m memFiles) open(path string) (Source, error) {
	s, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("no such file %s", path)
	}
	return s, nil
}

func vector(vals []float64) *sparse.DenseArray {
	a := sparse.ZerosDense(len(vals))
	copy(a.Elements, vals)
	return a
}

// newMemSource creates a source holding variable v with dimensions
// (time, lat, lon), filled with value, and CF time values in days since
// timeBase. latName and lonName name the coordinates.
func newMemSource(latName, lonName string, lat, lon []float64, v string, days []float64, timeBase string, value float64) memSource {
	data := sparse.ZerosDense(len(days), len(lat), len(lon))
	for i := range data.Elements {
		data.Elements[i] = value
	}
	return memSource{
		latName: {dims: []string{latName}, data: vector(lat)},
		lonName: {dims: []string{lonName}, data: vector(lon)},
		"time": {
			dims: []string{"time"},
			data: vector(days),
			attrs: map[string]interface{}{
				"units":    "days since " + timeBase,
				"calendar": "standard",
			},
		},
		v: {
			dims:  []string{"time", latName, lonName},
			data:  data,
			attrs: map[string]interface{}{"units": "raw"},
		},
	}
}

// monthDays returns the day offsets from 2003-01-01 of the middle of
// each of n consecutive months.
func monthDays(n int) []float64 {
	out := make([]float64, n)
	start := time.Date(2003, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = time.Date(2003, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC).Sub(start).Hours() / 24
	}
	return out
}

// testSeries creates a series on the given grid whose value at time t and
// cell index p is f(t, p).
func testSeries(t *testing.T, name string, q Quantity, lat, lon []float64, times []time.Time, f func(t, p int) float64) *RasterSeries {
	g, err := NewGrid(lat, lon)
	if err != nil {
		t.Fatal(err)
	}
	data := sparse.ZerosDense(len(times), len(lat), len(lon))
	n := len(lat) * len(lon)
	for i := range data.Elements {
		data.Elements[i] = f(i/n, i%n)
	}
	return &RasterSeries{
		Name:     name,
		Family:   FamilyOf(name),
		Quantity: q,
		Units:    q.Units(),
		Time:     times,
		Grid:     g,
		Data:     data,
	}
}

func years(first, last int) []time.Time {
	var out []time.Time
	for y := first; y <= last; y++ {
		out = append(out, time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC))
	}
	return out
}

func months(year, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(year, time.Month(i+2), 0, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func steps(first float64, n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = first + float64(i)*step
	}
	return out
}
