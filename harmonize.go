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
	"github.com/sirupsen/logrus"
)

// orchideeMissingValue marks missing data in ORCHIDEE output files, which
// do not declare it as a fill value.
const orchideeMissingValue = 9.96921e36

// Harmonizer reads datasets and converts them to canonical units.
type Harmonizer struct {
	Config *Config

	// Open opens dataset files. If nil, OpenNCF is used.
	Open OpenFunc

	// Log receives warnings about quantities that could not be converted.
	// If nil, the standard logrus logger is used.
	Log logrus.FieldLogger

	// Strict makes unconvertible quantities an error instead of a warning.
	Strict bool
}

func (h *Harmonizer) log() logrus.FieldLogger {
	if h.Log == nil {
		return logrus.StandardLogger()
	}
	return h.Log
}

// Harmonize reads quantity q from dataset d and converts it to canonical
// units. If annual is true, the result is resampled to calendar years.
func (h *Harmonizer) Harmonize(d DatasetDescriptor, q Quantity, annual bool) (*RasterSeries, error) {
	raw, err := h.Read(d, q)
	if err != nil {
		return nil, err
	}
	out := Convert(h.Config, d.Family(), d.Name(), q, raw)
	fields := logrus.Fields{
		"dataset":  d.Name(),
		"family":   d.Family().String(),
		"quantity": string(q),
	}
	if !out.Handled() {
		if h.Strict {
			return nil, out.Unhandled
		}
		h.log().WithFields(fields).Warn("no unit conversion for quantity; passing raw values through")
	} else {
		fields["conversion"] = out.Rule
		h.log().WithFields(fields).Debug("converted units")
	}
	if !annual {
		return out.Series, nil
	}
	return ResampleAnnual(out.Series)
}

// Read reads quantity q from dataset d without converting its units.
// Missing values become NaN.
func (h *Harmonizer) Read(d DatasetDescriptor, q Quantity) (*RasterSeries, error) {
	open := h.Open
	if open == nil {
		open = OpenNCF
	}
	src, err := open(d.Path())
	if err != nil {
		return nil, WithDataset(err, d.Name())
	}
	defer src.Close()

	latNames, lonNames := []string{"lat", "latitude"}, []string{"lon", "longitude"}
	if d.Family() == FamilyORCHIDEE {
		latNames, lonNames = []string{"latitude", "lat"}, []string{"longitude", "lon"}
	}
	latVar, lonVar := findVariable(src, latNames...), findVariable(src, lonNames...)
	if latVar == "" || lonVar == "" {
		return nil, &InvalidGridError{Dataset: d.Name(), Reason: "no latitude or longitude coordinate"}
	}
	lat, err := src.Read(latVar)
	if err != nil {
		return nil, WithDataset(err, d.Name())
	}
	lon, err := src.Read(lonVar)
	if err != nil {
		return nil, WithDataset(err, d.Name())
	}
	grid, err := NewGrid(lat.Elements, lon.Elements)
	if err != nil {
		return nil, WithDataset(err, d.Name())
	}

	v := d.Variable(q)
	dims := src.Dims(v)
	if dims == nil {
		return nil, fmt.Errorf("gridharmony: dataset %s: variable %s not found", d.Name(), v)
	}
	if len(dims) != 3 && len(dims) != 4 {
		return nil, fmt.Errorf("gridharmony: dataset %s: variable %s has dimensions %v; want (time, [vegetation class,] lat, lon)", d.Name(), v, dims)
	}
	var sentinels []float64
	if d.Family() == FamilyORCHIDEE {
		sentinels = append(sentinels, orchideeMissingValue)
	}
	data, err := readDecoded(src, v, sentinels...)
	if err != nil {
		return nil, WithDataset(err, d.Name())
	}

	r := &RasterSeries{
		Name:     d.Name(),
		Family:   d.Family(),
		Quantity: q,
		Units:    attributeString(src, v, "units"),
		Grid:     grid,
		Data:     data,
	}
	if len(dims) == 4 {
		r.VegClasses, err = vegCoordinate(src, dims[1], data.Shape[1])
		if err != nil {
			return nil, WithDataset(err, d.Name())
		}
	}
	r.Time, err = h.timeAxis(d, src, dims[0])
	if err != nil {
		return nil, err
	}
	if len(r.Time) != data.Shape[0] {
		return nil, &TimeAxisError{
			Dataset: d.Name(),
			Reason:  fmt.Sprintf("time axis has %d steps but the data has %d", len(r.Time), data.Shape[0]),
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// timeAxis returns the time stamps of dataset d. The OCN and ORCHIDEE
// families store unusable time values, so their axes are rebuilt from the
// configuration. Generic datasets use a configured axis when there is one.
func (h *Harmonizer) timeAxis(d DatasetDescriptor, src Source, timeVar string) ([]time.Time, error) {
	axis, configured := h.Config.TimeAxis(d.Name())
	switch d.Family() {
	case FamilyOCN, FamilyORCHIDEE:
		if !configured {
			return nil, &TimeAxisError{Dataset: d.Name(), Reason: "no configured time axis"}
		}
		fallthrough
	case FamilyGeneric:
		if configured {
			t, err := axis.Dates()
			if err != nil {
				return nil, &TimeAxisError{Dataset: d.Name(), Reason: err.Error()}
			}
			return t, nil
		}
	}
	vals, err := src.Read(timeVar)
	if err != nil {
		return nil, &TimeAxisError{Dataset: d.Name(), Reason: err.Error()}
	}
	t, err := DecodeCFTime(vals.Elements, attributeString(src, timeVar, "units"), attributeString(src, timeVar, "calendar"))
	if err != nil {
		return nil, &TimeAxisError{Dataset: d.Name(), Reason: err.Error()}
	}
	return t, nil
}

func findVariable(src Source, names ...string) string {
	for _, n := range names {
		if src.Dims(n) != nil {
			return n
		}
	}
	return ""
}

// vegCoordinate returns the values of the vegetation-class coordinate, or
// the class positions if the file has no coordinate variable.
func vegCoordinate(src Source, dim string, n int) ([]float64, error) {
	if src.Dims(dim) == nil {
		c := make([]float64, n)
		for i := range c {
			c[i] = float64(i)
		}
		return c, nil
	}
	v, err := src.Read(dim)
	if err != nil {
		return nil, err
	}
	if len(v.Elements) != n {
		return nil, fmt.Errorf("gridharmony: vegetation coordinate %s has %d values; want %d", dim, len(v.Elements), n)
	}
	return v.Elements, nil
}

// ResampleAnnual combines the time steps of r by calendar year, summing
// flux and area quantities and averaging state quantities. NaNs are
// skipped; a value that is NaN in every step of a year stays NaN. Each
// year is stamped with its last day.
func ResampleAnnual(r *RasterSeries) (*RasterSeries, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	reduce := nanSum
	if r.Quantity.AnnualReduction() == MeanReduction {
		reduce = nanMean
	}
	type span struct{ year, first, last int }
	var years []span
	for t, tt := range r.Time {
		if n := len(years); n > 0 && years[n-1].year == tt.Year() {
			years[n-1].last = t
			continue
		}
		years = append(years, span{tt.Year(), t, t})
	}
	shape := append([]int{len(years)}, r.Data.Shape[1:]...)
	out := sparse.ZerosDense(shape...)
	times := make([]time.Time, len(years))
	n := r.stepSize()
	for y, s := range years {
		times[y] = time.Date(s.year, time.December, 31, 0, 0, 0, 0, time.UTC)
		vals := make([]float64, s.last-s.first+1)
		o := out.Elements[y*n : (y+1)*n]
		for i := range o {
			for t := s.first; t <= s.last; t++ {
				vals[t-s.first] = r.Data.Elements[t*n+i]
			}
			o[i] = reduce(vals)
		}
	}
	return r.withData(out, times), nil
}
