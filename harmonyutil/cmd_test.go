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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/gridharmony"
)

// writeTestSeries writes a series of quantity q with the given value in
// every cell to dir/file.
func writeTestSeries(t *testing.T, dir, file, name string, q gridharmony.Quantity, lat []float64, times []time.Time, value float64) string {
	g, err := gridharmony.NewGrid(lat, lat)
	if err != nil {
		t.Fatal(err)
	}
	data := sparse.ZerosDense(len(times), len(lat), len(lat))
	for i := range data.Elements {
		data.Elements[i] = value
	}
	r := &gridharmony.RasterSeries{
		Name:     name,
		Family:   gridharmony.FamilyOf(name),
		Quantity: q,
		Units:    "raw",
		Time:     times,
		Grid:     g,
		Data:     data,
	}
	path := filepath.Join(dir, file)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := gridharmony.WriteSeries(f, r); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func midMonths(year, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(year, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "gridharmony v" + gridharmony.Version; !strings.Contains(buf.String(), want) {
		t.Errorf("have %q, want %q", buf.String(), want)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	lat := []float64{-3, -1, 1, 3}
	ocn := writeTestSeries(t, dir, "ocn.nc", "OCN_T", gridharmony.FFire, lat, midMonths(2003, 24), 1e-8)
	gfed := writeTestSeries(t, dir, "gfed.nc", "GFED4.1s", gridharmony.FFire, lat, midMonths(2003, 24), 5)
	tables := filepath.Join(dir, "tables.toml")
	if err := ioutil.WriteFile(tables, []byte(`
[TimeAxes.OCN_T]
Start = "2003-01-01"
End = "2005-01-01"
Freq = "1M"
`), 0644); err != nil {
		t.Fatal(err)
	}

	Cfg.Set("Tables", tables)
	Cfg.Set("Quantity", "fFire")
	Cfg.Set("Domain", "Global")
	Cfg.Set("Datasets", map[string]string{"OCN_T": ocn, "GFED4.1s": gfed})
	Cfg.Set("Variables", map[string]string{})
	Cfg.Set("OutputDir", dir)
	Cfg.Set("LogFile", "")
	Cfg.Set("Annual", true)
	Cfg.Set("Difference.Reference", "OCN_T")
	Cfg.Set("Difference.Comparison", "GFED4.1s")
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	for _, f := range []string{
		"OCN_T_fFire.ncf",
		"GFED4.1s_fFire.ncf",
		"fFire_Global_stats.ncf",
		"fFire_Global_OCN_T-GFED4.1s.ncf",
		"gridharmony.log",
	} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
	log, err := ioutil.ReadFile(filepath.Join(dir, "gridharmony.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(log), "annual total") || !strings.Contains(buf.String(), "run complete") {
		t.Errorf("log is missing messages:\n%s", log)
	}

	src, err := gridharmony.OpenNCF(filepath.Join(dir, "fFire_Global_stats.ncf"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	mean, err := src.Read("GFED4.1s_mean")
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range mean.Elements {
		if v != 60 {
			t.Errorf("cell %d: have %g, want 60", i, v)
		}
	}
}

func TestUpscaleCommand(t *testing.T) {
	dir := t.TempDir()
	lat := []float64{-1.5, -0.5, 0.5, 1.5}
	in := writeTestSeries(t, dir, "GFED4.1s.nc", "GFED4.1s", gridharmony.BurnedArea, lat, midMonths(2003, 2), 0.5)
	out := filepath.Join(dir, "up.ncf")

	Cfg.Set("Tables", "")
	Cfg.Set("Quantity", "burned_area")
	Cfg.Set("Input", in)
	Cfg.Set("Output", out)
	Cfg.Set("Dataset", "")
	Cfg.Set("Variable", "")
	Cfg.Set("Factor", 2)
	Cfg.Set("Classes", "")
	Cfg.Set("LogFile", filepath.Join(dir, "upscale.log"))
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"upscale"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	src, err := gridharmony.OpenNCF(out)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	ba, err := src.Read("burned_area")
	if err != nil {
		t.Fatal(err)
	}
	if len(ba.Shape) != 3 || ba.Shape[1] != 2 || ba.Shape[2] != 2 {
		t.Fatalf("shape: have %v", ba.Shape)
	}
	area, err := gridharmony.CellArea(lat, lat)
	if err != nil {
		t.Fatal(err)
	}
	var have float64
	for _, v := range ba.Elements[:4] {
		have += v
	}
	want := 0.5 * area.Sum() * 1e-9
	if d := (have - want) / want; d > 1e-10 || d < -1e-10 {
		t.Errorf("total: have %g, want %g", have, want)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	Cfg.Set("Tables", "")
	Cfg.Set("Quantity", "tas")
	Cfg.Set("OutputDir", dir)
	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err == nil {
		t.Error("unknown quantity should fail")
	}
	Cfg.Set("Quantity", "gpp")
	Cfg.Set("OutputDir", filepath.Join(dir, "absent"))
	if err := Root.Execute(); err == nil {
		t.Error("missing output directory should fail")
	}
}
