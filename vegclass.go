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

	"github.com/ctessum/sparse"
)

// VegetationClass is one entry of a vegetation-class lookup table.
type VegetationClass struct {
	// Index is the position of the class along the vegetation axis.
	Index int
	// Code is the class identifier used by the data provider.
	Code  int
	Name  string
	Label string
	// Crop marks managed classes.
	Crop bool
}

// VegetationClassTable is an ordered list of vegetation classes.
type VegetationClassTable []VegetationClass

// Indices returns the axis positions of the named classes.
func (t VegetationClassTable) Indices(names ...string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, n := range names {
		found := false
		for _, c := range t {
			if c.Name == n {
				out = append(out, c.Index)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("gridharmony: vegetation class %q not in table", n)
		}
	}
	return out, nil
}

// NaturalClasses returns the axis positions of the classes of t that are
// not crops.
func NaturalClasses(t VegetationClassTable) []int {
	var out []int
	for _, c := range t {
		if !c.Crop {
			out = append(out, c.Index)
		}
	}
	return out
}

func (t VegetationClassTable) validate(scheme string) error {
	for i, c := range t {
		if c.Index != i {
			return fmt.Errorf("gridharmony: vegetation scheme %s: class %s has index %d at position %d", scheme, c.Name, c.Index, i)
		}
	}
	return nil
}

// ocnClasses are the plant functional types of the OCN model.
var ocnClasses = VegetationClassTable{
	{0, 1, "BS", "Bare soil", false},
	{1, 2, "TrBE", "tropical broadleaved evergreen", false},
	{2, 3, "TrBR", "tropical broadleaved raingreen", false},
	{3, 4, "TeNE", "temperate needleleaved evergreen", false},
	{4, 5, "TeBE", "temperate broadleaved evergreen", false},
	{5, 6, "TeBS", "temperate broadleaved summergreen", false},
	{6, 7, "BNE", "boreal needleleaved evergreen", false},
	{7, 8, "BBS", "boreal broadleaved summergreen", false},
	{8, 9, "BNS", "boreal needleleaved summergreen", false},
	{9, 10, "HC3", "C3 grass", false},
	{10, 11, "HC4", "C4 grass", false},
	{11, 12, "CC3", "C3 agriculture", true},
	{12, 13, "CC4", "C4 agriculture", true},
}

// naturalClassStart is the first non-crop class of the ESA-CCI land cover
// classification.
const naturalClassStart = 3

func esaCCIClasses() VegetationClassTable {
	labels := []string{
		"Cropland, rainfed",
		"Cropland, irrigated or post-flooding",
		"Mosaic cropland (>50%) / natural vegetation (<50%)",
		"Mosaic natural vegetation (>50%) / cropland (<50%)",
		"Tree cover, broadleaved, evergreen, closed to open (>15%)",
		"Tree cover, broadleaved, deciduous, closed to open (>15%)",
		"Tree cover, needleleaved, evergreen, closed to open (>15%)",
		"Tree cover, needleleaved, deciduous, closed to open (>15%)",
		"Tree cover, mixed leaf type (broadleaved and needleleaved)",
		"Mosaic tree and shrub (>50%) / herbaceous cover (<50%)",
		"Mosaic herbaceous cover (>50%) / tree and shrub (<50%)",
		"Shrubland",
		"Grassland",
		"Lichens and mosses",
		"Sparse vegetation (tree, shrub, herbaceous cover) (<15%)",
		"Tree cover, flooded, fresh or brackish water",
		"Tree cover, flooded, saline water",
		"Shrub or herbaceous cover, flooded, fresh/saline/brakish water",
	}
	t := make(VegetationClassTable, len(labels))
	for i, l := range labels {
		t[i] = VegetationClass{
			Index: i,
			Code:  10 * (i + 1),
			Name:  fmt.Sprintf("LC%d", 10*(i+1)),
			Label: l,
			Crop:  i < naturalClassStart,
		}
	}
	return t
}

// SumClasses collapses the vegetation-class axis of r by summing the
// classes at the given positions. NaN values are skipped unless every
// selected class is NaN.
func SumClasses(r *RasterSeries, indices []int) (*RasterSeries, error) {
	if !r.HasVegClass() {
		return nil, fmt.Errorf("gridharmony: dataset %s has no vegetation-class axis", r.Name)
	}
	nveg := len(r.VegClasses)
	for _, i := range indices {
		if i < 0 || i >= nveg {
			return nil, fmt.Errorf("gridharmony: dataset %s: vegetation class index %d out of range [0, %d)", r.Name, i, nveg)
		}
	}
	nt, ny, nx := r.Nt(), r.Grid.Ny(), r.Grid.Nx()
	npix := ny * nx
	out := sparse.ZerosDense(nt, ny, nx)
	for t := 0; t < nt; t++ {
		in := r.step(t)
		o := out.Elements[t*npix : (t+1)*npix]
		vals := make([]float64, len(indices))
		for p := range o {
			for k, v := range indices {
				vals[k] = in[v*npix+p]
			}
			o[p] = nanSum(vals)
		}
	}
	s := r.withData(out, append(r.Time[:0:0], r.Time...))
	s.VegClasses = nil
	return s, nil
}

// TotalOverClasses sums every vegetation class of r.
func TotalOverClasses(r *RasterSeries) (*RasterSeries, error) {
	all := make([]int, len(r.VegClasses))
	for i := range all {
		all[i] = i
	}
	return SumClasses(r, all)
}

// nanSum adds vals, skipping NaNs. It returns NaN when every value is NaN.
func nanSum(vals []float64) float64 {
	var sum float64
	n := 0
	for _, v := range vals {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum
}

// nanMean averages vals, skipping NaNs. It returns NaN when every value
// is NaN.
func nanMean(vals []float64) float64 {
	var sum float64
	n := 0
	for _, v := range vals {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
