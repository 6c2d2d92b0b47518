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
	"testing"
)

func TestInterpolateUpscalesFinerBurnedArea(t *testing.T) {
	coarse := []float64{-3, -1, 1, 3}
	fine := steps(-3.5, 8, 1)
	ocn := testSeries(t, "OCN_S2.1", BurnedArea, coarse, coarse, years(2003, 2005), func(_, _ int) float64 { return 1 })
	gfed := testSeries(t, "GFED4.1s", BurnedArea, fine, fine, years(2002, 2017), func(_, _ int) float64 { return 1 })

	ip := &Interpolator{Config: DefaultConfig()}
	out, err := ip.Interpolate([]*RasterSeries{ocn, gfed}, "Other", BurnedArea)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Grid != out[1].Grid {
		t.Error("series should share the reference grid")
	}
	if out[0].Nt() != 3 {
		t.Errorf("reference steps: have %d, want 3", out[0].Nt())
	}
	if out[1].Nt() != 14 || out[1].Time[0].Year() != 2003 || out[1].Time[13].Year() != 2016 {
		t.Errorf("GFED4.1s should be clipped to 2003-2016; have %d steps", out[1].Nt())
	}
	for i, v := range out[1].Data.Elements {
		if v != 4 {
			t.Fatalf("element %d: have %g, want 4", i, v)
		}
	}
	if gfed.Grid.Ny() != 8 || gfed.Nt() != 16 {
		t.Error("input series was modified")
	}
}

func TestInterpolateJULESDiagnostic(t *testing.T) {
	lat := []float64{-3, -1, 1, 3}
	ocn := testSeries(t, "OCN_S2.1", BurnedArea, lat, lat, years(2003, 2004), func(_, _ int) float64 { return 1 })
	jul := testSeries(t, "JUL_S2Diag", BurnedArea, lat, lat, years(2003, 2004), func(_, _ int) float64 { return 27 })
	ip := &Interpolator{Config: DefaultConfig()}
	out, err := ip.Interpolate([]*RasterSeries{jul, ocn}, "Global", BurnedArea)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range out[0].Data.Elements {
		if different(v, 2, 1.e-12) {
			t.Fatalf("have %g, want 2", v)
		}
	}
	if jul.Data.Elements[0] != 27 {
		t.Error("input series was modified")
	}
}

func TestInterpolateOutsideSource(t *testing.T) {
	target := []float64{-3, -1, 1, 3}
	src := []float64{-1, 0, 1}
	ocn := testSeries(t, "OCN_S2.1", LAI, target, target, years(2003, 2003), func(_, _ int) float64 { return 1 })
	modis := testSeries(t, "LAI_MODIS", LAI, src, src, years(2003, 2003), func(_, p int) float64 { return float64(p) })
	ip := &Interpolator{Config: DefaultConfig()}
	out, err := ip.Interpolate([]*RasterSeries{ocn, modis}, "Other", LAI)
	if err != nil {
		t.Fatal(err)
	}
	r := out[1]
	if !math.IsNaN(r.Data.Get(0, 0, 0)) || !math.IsNaN(r.Data.Get(0, 3, 1)) {
		t.Error("cells outside the source extent should be NaN")
	}
	// (-1, -1) is source cell 0 and (1, 1) is source cell 8.
	if v := r.Data.Get(0, 1, 1); v != 0 {
		t.Errorf("have %g, want 0", v)
	}
	if v := r.Data.Get(0, 2, 2); v != 8 {
		t.Errorf("have %g, want 8", v)
	}
}

func TestInterpolateDomain(t *testing.T) {
	lat := []float64{30, 40, 50, 60}
	lon := []float64{0, 10, 20, 30}
	ocn := testSeries(t, "OCN_S2.1", GPP, lat, lon, years(2003, 2003), func(_, p int) float64 { return float64(p) })
	ip := &Interpolator{Config: DefaultConfig()}
	out, err := ip.Interpolate([]*RasterSeries{ocn}, "Europe", GPP)
	if err != nil {
		t.Fatal(err)
	}
	g := out[0].Grid
	if !sameCoords(g.Lat, []float64{40, 50, 60}) || !sameCoords(g.Lon, lon) {
		t.Errorf("clipped grid: have %v %v", g.Lat, g.Lon)
	}
	if v := out[0].Data.Get(0, 0, 0); v != 4 {
		t.Errorf("first clipped cell: have %g, want 4", v)
	}
}

func TestInterpolateErrors(t *testing.T) {
	lat := []float64{-3, -1, 1, 3}
	ocn := testSeries(t, "OCN_S2.1", GPP, lat, lat, years(2003, 2003), func(_, _ int) float64 { return 1 })
	gfed := testSeries(t, "GFED4.1s", GPP, lat, lat, years(2003, 2003), func(_, _ int) float64 { return 1 })
	ip := &Interpolator{Config: DefaultConfig()}

	_, err := ip.Interpolate([]*RasterSeries{gfed}, "Global", GPP)
	var nr *NoReferenceGridError
	if !errors.As(err, &nr) || len(nr.Datasets) != 1 || nr.Datasets[0] != "GFED4.1s" {
		t.Errorf("have %v, want NoReferenceGridError", err)
	}
	if _, err := ip.Interpolate([]*RasterSeries{ocn}, "Atlantis", GPP); err == nil {
		t.Error("unknown domain should fail")
	}
	if _, err := ip.Interpolate([]*RasterSeries{ocn, gfed}, "Global", GPP); err == nil {
		t.Error("dataset without time limits should fail")
	}
	old := testSeries(t, "OCN_S2.1", GPP, lat, lat, years(1990, 1991), func(_, _ int) float64 { return 1 })
	if _, err := ip.Interpolate([]*RasterSeries{old}, "Global", GPP); err == nil {
		t.Error("series outside the analysis period should fail")
	}
}

func TestNearestIndices(t *testing.T) {
	have := nearestIndices([]float64{3, 2, 1, 0}, []float64{-1, 0.4, 0.6, 2.9, 3.1})
	want := []int{-1, 3, 2, 0, -1}
	for i := range want {
		if have[i] != want[i] {
			t.Errorf("have %v, want %v", have, want)
			break
		}
	}
}
