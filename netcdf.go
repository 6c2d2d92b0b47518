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
	"os"
	"sort"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Source is an open gridded dataset file.
type Source interface {
	// Variables returns the names of all variables in the file.
	Variables() []string

	// Dims returns the dimension names of variable v, or nil if v does not
	// exist.
	Dims(v string) []string

	// Read returns the raw values of variable v.
	Read(v string) (*sparse.DenseArray, error)

	// Attribute returns attribute a of variable v, or the global
	// attribute a if v is empty. It returns nil if the attribute does not
	// exist.
	Attribute(v, a string) interface{}

	Close() error
}

// OpenFunc opens the dataset file at path.
type OpenFunc func(path string) (Source, error)

// ncfSource is a Source backed by a NetCDF classic-format file.
type ncfSource struct {
	f  *os.File
	cf *cdf.File
}

// OpenNCF opens a NetCDF classic-format file.
func OpenNCF(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gridharmony: opening netcdf file: %v", err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gridharmony: reading netcdf header of %s: %v", path, err)
	}
	return &ncfSource{f: f, cf: cf}, nil
}

func (s *ncfSource) Variables() []string { return s.cf.Header.Variables() }

func (s *ncfSource) Dims(v string) []string { return s.cf.Header.Dimensions(v) }

func (s *ncfSource) Attribute(v, a string) interface{} { return s.cf.Header.GetAttribute(v, a) }

func (s *ncfSource) Close() error { return s.f.Close() }

func (s *ncfSource) Read(v string) (*sparse.DenseArray, error) {
	h := s.cf.Header
	dims := append([]int(nil), h.Lengths(v)...)
	if len(dims) == 0 {
		return nil, fmt.Errorf("gridharmony: read netcdf: variable %v not in file or scalar", v)
	}
	if h.IsRecordVariable(v) {
		fi, err := s.f.Stat()
		if err != nil {
			return nil, fmt.Errorf("gridharmony: read netcdf variable %s: %v", v, err)
		}
		dims[0] = int(h.NumRecs(fi.Size()))
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	data := sparse.ZerosDense(dims...)
	if n == 0 {
		return data, nil
	}
	begin, end := make([]int, len(dims)), make([]int, len(dims))
	for i, d := range dims {
		end[i] = d - 1
	}
	r := s.cf.Reader(v, begin, end)
	buf := h.ZeroValue(v, n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("gridharmony: read netcdf variable %s: %v", v, err)
	}
	vals, err := toFloat64(buf)
	if err != nil {
		return nil, fmt.Errorf("gridharmony: read netcdf variable %s: %v", v, err)
	}
	copy(data.Elements, vals)
	return data, nil
}

// toFloat64 converts a NetCDF value slice to float64.
func toFloat64(buf interface{}) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []int32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []int16:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []uint8:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", buf)
}

// attributeString returns a text attribute, or "" if it is absent or not
// text.
func attributeString(s Source, v, a string) string {
	str, _ := s.Attribute(v, a).(string)
	return str
}

// attributeFloat returns the first value of a numeric attribute.
func attributeFloat(s Source, v, a string) (float64, bool) {
	att := s.Attribute(v, a)
	if att == nil {
		return 0, false
	}
	if _, ok := att.(string); ok {
		return 0, false
	}
	vals, err := toFloat64(att)
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// readDecoded reads variable v and applies the CF packing and missing
// value attributes: values equal to _FillValue, missing_value or one of
// extraMissing become NaN and scale_factor and add_offset are applied.
// Missing values are compared against the packed values.
func readDecoded(s Source, v string, extraMissing ...float64) (*sparse.DenseArray, error) {
	data, err := s.Read(v)
	if err != nil {
		return nil, err
	}
	missing := append([]float64(nil), extraMissing...)
	for _, a := range []string{"_FillValue", "missing_value"} {
		if m, ok := attributeFloat(s, v, a); ok {
			missing = append(missing, m)
		}
	}
	scale, hasScale := attributeFloat(s, v, "scale_factor")
	offset, hasOffset := attributeFloat(s, v, "add_offset")
	for i, e := range data.Elements {
		for _, m := range missing {
			if sameMissing(e, m) {
				e = math.NaN()
				break
			}
		}
		if hasScale {
			e *= scale
		}
		if hasOffset {
			e += offset
		}
		data.Elements[i] = e
	}
	return data, nil
}

// sameMissing returns whether value matches the missing value m. Fill
// values are mostly stored at single precision, and very large sentinels
// are matched to a relative tolerance.
func sameMissing(value, m float64) bool {
	if value == m || float32(value) == float32(m) {
		return true
	}
	return m != 0 && math.Abs(value-m) <= 1e-6*math.Abs(m)
}

var timeEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

const timeUnits = "days since 1970-01-01 00:00:00"

// WriteSeries writes r to w in NetCDF format. The quantity is stored under
// its canonical name along with the cell area and the coordinates.
func WriteSeries(w *os.File, r *RasterSeries) error {
	if err := r.Validate(); err != nil {
		return err
	}
	dimNames := []string{"time", "lat", "lon"}
	dimLens := []int{r.Nt(), r.Grid.Ny(), r.Grid.Nx()}
	dataDims := []string{"time", "lat", "lon"}
	if r.HasVegClass() {
		dimNames = append(dimNames, "veg")
		dimLens = append(dimLens, len(r.VegClasses))
		dataDims = []string{"time", "veg", "lat", "lon"}
	}
	name := string(r.Quantity)
	h := cdf.NewHeader(dimNames, dimLens)
	h.AddAttribute("", "comment", "gridharmony harmonized data file")
	h.AddAttribute("", "dataset", r.Name)
	h.AddAttribute("", "family", r.Family.String())

	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", timeUnits)
	h.AddAttribute("time", "calendar", "standard")
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	if r.HasVegClass() {
		h.AddVariable("veg", []string{"veg"}, []float64{0})
		h.AddAttribute("veg", "description", "vegetation class")
	}
	h.AddVariable(name, dataDims, []float64{0})
	h.AddAttribute(name, "units", unitsAttribute(r.Units))
	h.AddAttribute(name, "_FillValue", []float64{math.NaN()})
	h.AddVariable("area", []string{"lat", "lon"}, []float64{0})
	h.AddAttribute("area", "units", "m2")
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("gridharmony: writing netcdf header: %v", err)
	}
	times := make([]float64, r.Nt())
	for i, t := range r.Time {
		times[i] = t.Sub(timeEpoch).Hours() / 24
	}
	vars := []struct {
		name string
		data []float64
	}{
		{"time", times},
		{"lat", r.Grid.Lat},
		{"lon", r.Grid.Lon},
		{name, r.Data.Elements},
		{"area", r.Grid.Area.Elements},
	}
	if r.HasVegClass() {
		vars = append(vars, struct {
			name string
			data []float64
		}{"veg", r.VegClasses})
	}
	for _, v := range vars {
		if err := writeNCF(f, v.name, v.data); err != nil {
			return fmt.Errorf("gridharmony: writing variable %s: %v", v.name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// WriteStatistics writes per-pixel statistics of one or more datasets to
// w. All results must share a grid. Variables are named
// <dataset>_mean, <dataset>_std and <dataset>_trend.
func WriteStatistics(w *os.File, results []*StatisticResult) error {
	if len(results) == 0 {
		return fmt.Errorf("gridharmony: no statistics to write")
	}
	ref := results[0]
	shape := ref.Mean.Values.Shape
	dims := []string{"lat", "lon"}
	if len(shape) == 3 {
		dims = []string{"veg", "lat", "lon"}
	}
	lens := append([]int(nil), shape...)
	h := cdf.NewHeader(dims, lens)
	h.AddAttribute("", "comment", "gridharmony statistics file")
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")

	data := make(map[string]*Field)
	for _, s := range results {
		if !sameCoords(s.Lat, ref.Lat) || !sameCoords(s.Lon, ref.Lon) {
			return &GridMismatchError{Dataset: s.Dataset, Reference: ref.Dataset}
		}
		for _, f := range []*Field{s.Mean, s.Std, s.Trend} {
			name := s.Dataset + "_" + f.Statistic
			data[name] = f
		}
	}
	// Sort the names so they write in the same order every time.
	names := make([]string, 0, len(data))
	for n := range data {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		h.AddVariable(name, dims, []float64{0})
		h.AddAttribute(name, "units", unitsAttribute(data[name].Units))
		h.AddAttribute(name, "description", fmt.Sprintf("%s of %s", data[name].Statistic, data[name].Dataset))
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("gridharmony: writing netcdf header: %v", err)
	}
	if err := writeNCF(f, "lat", ref.Lat); err != nil {
		return err
	}
	if err := writeNCF(f, "lon", ref.Lon); err != nil {
		return err
	}
	for _, name := range names {
		if err := writeNCF(f, name, data[name].Values.Elements); err != nil {
			return fmt.Errorf("gridharmony: writing variable %s: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// unitsAttribute returns u, or "1" for dimensionless values.
func unitsAttribute(u string) string {
	if u == "" {
		return "1"
	}
	return u
}

func writeNCF(f *cdf.File, v string, data []float64) error {
	// Check that data matches dimensions.
	end := f.Header.Lengths(v)
	n := 1
	for _, l := range end {
		n *= l
	}
	if len(data) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data))
	}
	if n == 0 {
		return nil
	}
	start := make([]int, len(end))
	wr := f.Writer(v, start, end)
	_, err := wr.Write(data)
	return err
}
