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
	"math"

	"gonum.org/v1/gonum/floats"
)

// AnnualSeries is a domain-wide total (or, for leaf area index, average)
// of one quantity, by calendar year.
type AnnualSeries struct {
	Dataset  string
	Quantity Quantity
	Years    []int
	Values   []float64
	Units    string
}

// annualUnits are the units of domain totals after rescaling with the
// default global rescale factors.
var annualUnits = map[Quantity]string{
	BurnedArea: "1000 km2 yr-1",
	LAI:        "m2 m-2",
	CVeg:       "Pg C",
	GPP:        "Pg C yr-1",
	NPP:        "Pg C yr-1",
	NBP:        "Pg C yr-1",
	NEE:        "Pg C yr-1",
	FFire:      "Pg C yr-1",
}

// AnnualSummary reduces r to one value per calendar year. Values are
// multiplied by cell area (except for burned area, which is already an
// area) and by the global rescale factor of the quantity, and then summed
// over all cells and vegetation classes. Leaf area index is instead
// averaged, weighted by cell area over the whole grid. Within a year,
// state quantities are averaged and all others summed. NaN cells are
// skipped.
func AnnualSummary(r *RasterSeries, cfg *Config) (*AnnualSeries, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	q := r.Quantity
	scale := cfg.GlobalRescale(q)
	area := r.Grid.Area.Elements
	npix := len(area)
	totalArea := floats.Sum(area)

	stepValues := make([]float64, r.Nt())
	for t := range stepValues {
		var sum float64
		for i, v := range r.step(t) {
			if math.IsNaN(v) {
				continue
			}
			if q != BurnedArea {
				v *= area[i%npix]
			}
			sum += v * scale
		}
		if q == LAI {
			sum /= totalArea
		}
		stepValues[t] = sum
	}

	out := &AnnualSeries{Dataset: r.Name, Quantity: q, Units: annualUnits[q]}
	var group []float64
	flush := func() {
		if q.IsState() {
			out.Values = append(out.Values, floats.Sum(group)/float64(len(group)))
		} else {
			out.Values = append(out.Values, floats.Sum(group))
		}
		group = group[:0]
	}
	for t, tt := range r.Time {
		if n := len(out.Years); n == 0 || out.Years[n-1] != tt.Year() {
			if n > 0 {
				flush()
			}
			out.Years = append(out.Years, tt.Year())
		}
		group = append(group, stepValues[t])
	}
	if len(group) > 0 {
		flush()
	}
	return out, nil
}
