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
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
)

func TestWriteSeriesRoundTrip(t *testing.T) {
	lat := []float64{-1.5, -0.5, 0.5}
	lon := []float64{10, 11, 12, 13}
	r := testSeries(t, "GFED4.1s", BurnedArea, lat, lon, years(2003, 2005), func(t, p int) float64 {
		return float64(100*t + p)
	})
	r.Data.Elements[5] = math.NaN()

	path := filepath.Join(t.TempDir(), "ba.nc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteSeries(f, r); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	h := &Harmonizer{Config: DefaultConfig()}
	back, err := h.Read(NewDatasetDescriptor("GFED4.1s", path, ""), BurnedArea)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Grid.Equal(r.Grid) {
		t.Errorf("grid: have %v %v", back.Grid.Lat, back.Grid.Lon)
	}
	for i, tt := range r.Time {
		if !back.Time[i].Equal(tt) {
			t.Errorf("time %d: have %v, want %v", i, back.Time[i], tt)
		}
	}
	for i, v := range r.Data.Elements {
		have := back.Data.Elements[i]
		if math.IsNaN(v) != math.IsNaN(have) || (!math.IsNaN(v) && v != have) {
			t.Errorf("element %d: have %g, want %g", i, have, v)
		}
	}
	if back.Units != BurnedArea.Units() {
		t.Errorf("units: have %q", back.Units)
	}

	src, err := OpenNCF(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	area, err := src.Read("area")
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range r.Grid.Area.Elements {
		if different(area.Elements[i], a, 1.e-12) {
			t.Errorf("area %d: have %g, want %g", i, area.Elements[i], a)
		}
	}
	if d := attributeString(src, "", "dataset"); d != "GFED4.1s" {
		t.Errorf("dataset attribute: have %q", d)
	}
}

func TestWriteSeriesVegClass(t *testing.T) {
	g, err := NewGrid([]float64{0, 1}, []float64{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	data := sparse.ZerosDense(2, 3, 2, 2)
	for i := range data.Elements {
		data.Elements[i] = float64(i)
	}
	r := &RasterSeries{
		Name:       "OCN_S2.1",
		Family:     FamilyOCN,
		Quantity:   BurnedArea,
		Units:      BurnedArea.Units(),
		Time:       years(2003, 2004),
		Grid:       g,
		VegClasses: []float64{1, 2, 3},
		Data:       data,
	}
	path := filepath.Join(t.TempDir(), "veg.nc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteSeries(f, r); err != nil {
		t.Fatal(err)
	}
	f.Close()

	// Written files carry a usable time axis, so they are read back as
	// generic datasets.
	h := &Harmonizer{Config: DefaultConfig()}
	back, err := h.Read(NewDatasetDescriptor("harmonized", path, ""), BurnedArea)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.VegClasses) != 3 || back.VegClasses[2] != 3 {
		t.Errorf("vegetation classes: have %v", back.VegClasses)
	}
	if v := back.Data.Get(1, 2, 1, 0); v != r.Data.Get(1, 2, 1, 0) {
		t.Errorf("have %g, want %g", v, r.Data.Get(1, 2, 1, 0))
	}
}

func TestWriteStatistics(t *testing.T) {
	a := linearSeries(t, "OCN_S2.1")
	b := linearSeries(t, "JUL_S2.1")
	res, err := Summarize([]*RasterSeries{a, b}, TreatMissingAsZero)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "stats.nc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteStatistics(f, res); err != nil {
		t.Fatal(err)
	}
	f.Close()

	src, err := OpenNCF(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	want := []string{"JUL_S2.1_mean", "JUL_S2.1_std", "JUL_S2.1_trend", "OCN_S2.1_mean", "OCN_S2.1_std", "OCN_S2.1_trend"}
	for _, v := range want {
		if src.Dims(v) == nil {
			t.Errorf("missing variable %s", v)
		}
	}
	trend, err := src.Read("OCN_S2.1_trend")
	if err != nil {
		t.Fatal(err)
	}
	if absDifferent(trend.Elements[3], 3, 1.e-9) {
		t.Errorf("trend: have %g, want 3", trend.Elements[3])
	}
	if u := attributeString(src, "OCN_S2.1_trend", "units"); u != GPP.Units()+" yr-1" {
		t.Errorf("units: have %q", u)
	}
}

func TestWriteStatisticsMismatch(t *testing.T) {
	a := linearSeries(t, "OCN_S2.1")
	lat := []float64{5, 6}
	b := testSeries(t, "GFED4.1s", GPP, lat, lat, years(2003, 2004), func(_, _ int) float64 { return 1 })
	res, err := Summarize([]*RasterSeries{a, b}, TreatMissingAsZero)
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(t.TempDir(), "stats.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var gm *GridMismatchError
	if err := WriteStatistics(f, res); !errors.As(err, &gm) || gm.Dataset != "GFED4.1s" {
		t.Errorf("have %v, want GridMismatchError", err)
	}
}

func TestReadDecoded(t *testing.T) {
	src := memSource{
		"x": {
			dims: []string{"x"},
			data: vector([]float64{1, -1, 2, 32767}),
			attrs: map[string]interface{}{
				"missing_value": []int16{-1},
				"_FillValue":    []int16{32767},
				"scale_factor":  []float32{0.5},
				"add_offset":    []float64{10},
			},
		},
	}
	d, err := readDecoded(src, "x")
	if err != nil {
		t.Fatal(err)
	}
	if d.Elements[0] != 10.5 || d.Elements[2] != 11 {
		t.Errorf("have %v", d.Elements)
	}
	if !math.IsNaN(d.Elements[1]) || !math.IsNaN(d.Elements[3]) {
		t.Errorf("missing values should be NaN: %v", d.Elements)
	}
}
