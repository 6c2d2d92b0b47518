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

	"github.com/Knetic/govaluate"
)

const (
	gramsPerKilogram = 1000.
	secondsPerDay    = 24 * 3600.

	// burnedAreaScale converts m² to 1000 km².
	burnedAreaScale = 1e-9

	percent = 0.01
)

// ConversionOutcome is the result of a unit conversion. Exactly one of
// Rule and Unhandled is set. When no rule matched, Series is the input
// series, unchanged.
type ConversionOutcome struct {
	Series    *RasterSeries
	Rule      string
	Unhandled *UnhandledConversion
}

// Handled returns whether a conversion rule matched.
func (o ConversionOutcome) Handled() bool { return o.Unhandled == nil }

// conversion is a named unit conversion applied in place.
type conversion struct {
	name  string
	apply func(r *RasterSeries)
}

var (
	identity = conversion{name: "identity", apply: func(*RasterSeries) {}}

	// monthlyFlux converts kg C m-2 s-1 to g C m-2 accumulated over each
	// (monthly) time step.
	monthlyFlux = conversion{
		name: "kg m-2 s-1 to g m-2 month-1",
		apply: func(r *RasterSeries) {
			scaleSteps(r, func(t time.Time) float64 {
				return gramsPerKilogram * secondsPerDay * float64(DaysInMonth(t))
			})
		},
	}

	// dailyBurnedFraction converts a burned fraction per day to burned
	// area per month.
	dailyBurnedFraction = conversion{
		name: "fraction day-1 to 1000 km2 month-1",
		apply: func(r *RasterSeries) {
			scaleByArea(r, burnedAreaScale)
			scaleSteps(r, func(t time.Time) float64 { return float64(DaysInMonth(t)) })
		},
	}

	burnedPercent = conversion{
		name:  "percent to 1000 km2",
		apply: func(r *RasterSeries) { scaleByArea(r, percent*burnedAreaScale) },
	}

	burnedFraction = conversion{
		name:  "fraction to 1000 km2",
		apply: func(r *RasterSeries) { scaleByArea(r, burnedAreaScale) },
	}

	burnedSquareMeters = conversion{
		name:  "m2 to 1000 km2",
		apply: func(r *RasterSeries) { r.Data.Scale(burnedAreaScale) },
	}

	kilogramsToGrams = conversion{
		name:  "kg to g",
		apply: func(r *RasterSeries) { r.Data.Scale(gramsPerKilogram) },
	}
)

// modelConversions returns the conversions of the model families, which
// store monthly rates.
func modelConversions(f Family) map[Quantity]conversion {
	c := map[Quantity]conversion{
		GPP:        monthlyFlux,
		NPP:        monthlyFlux,
		NBP:        monthlyFlux,
		NEE:        monthlyFlux,
		FFire:      monthlyFlux,
		BurnedArea: dailyBurnedFraction,
		LAI:        identity,
		CVeg:       identity,
	}
	if f == FamilyJULES {
		c[BurnedArea] = burnedPercent
	}
	return c
}

// genericConversions holds the one-off unit fixes for observational
// products, by quantity and then dataset name.
var genericConversions = map[Quantity]map[string]conversion{
	BurnedArea: {
		"GFED4.1s": burnedFraction,
		"GFED_TOT": burnedFraction,
		"GFED_FL":  burnedFraction,
		"BA_MODIS": burnedSquareMeters,
		"BA_AVHRR": burnedSquareMeters,
	},
	FFire: {
		"GFED4.1s": identity,
	},
	GPP: {
		"MOD17A2HGFv061": kilogramsToGrams,
		"MOD17A3HGFv061": kilogramsToGrams,
	},
	NPP: {
		"MOD17A2HGFv061": kilogramsToGrams,
		"MOD17A3HGFv061": kilogramsToGrams,
	},
	LAI: {
		"LAI_LTDR":  identity,
		"LAI_MODIS": identity,
		"GLOBMAP":   identity,
	},
}

// Convert converts r, the raw series of quantity q from the named dataset,
// to the canonical units of q. Conversions configured in cfg take
// precedence over the built-in ones for generic datasets; cfg may be nil.
// r is not modified.
func Convert(cfg *Config, f Family, dataset string, q Quantity, r *RasterSeries) ConversionOutcome {
	var c conversion
	var ok bool
	if f == FamilyGeneric {
		if c, ok = cfg.conversion(q, dataset); !ok {
			c, ok = genericConversions[q][dataset]
		}
	} else {
		c, ok = modelConversions(f)[q]
	}
	if !ok {
		return ConversionOutcome{
			Series:    r,
			Unhandled: &UnhandledConversion{Dataset: dataset, Family: f, Quantity: q},
		}
	}
	out := r.Copy()
	c.apply(out)
	out.Units = q.Units()
	return ConversionOutcome{Series: out, Rule: c.name}
}

// scaleSteps multiplies every value of time step t by factor(t).
func scaleSteps(r *RasterSeries, factor func(time.Time) float64) {
	for t, tt := range r.Time {
		f := factor(tt)
		s := r.step(t)
		for i := range s {
			s[i] *= f
		}
	}
}

// scaleByArea multiplies every value by its cell area and by f.
func scaleByArea(r *RasterSeries, f float64) {
	area := r.Grid.Area.Elements
	npix := len(area)
	e := r.Data.Elements
	for i := range e {
		e[i] *= area[i%npix] * f
	}
}

// expressionConversion compiles an arithmetic expression of value, area
// and days_in_month into a conversion.
func expressionConversion(expr string) (conversion, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return conversion{}, err
	}
	for _, v := range e.Vars() {
		switch v {
		case "value", "area", "days_in_month":
		default:
			return conversion{}, fmt.Errorf("unknown variable %q in %q", v, expr)
		}
	}
	return conversion{
		name: expr,
		apply: func(r *RasterSeries) {
			area := r.Grid.Area.Elements
			params := make(map[string]interface{}, 3)
			for t, tt := range r.Time {
				params["days_in_month"] = float64(DaysInMonth(tt))
				s := r.step(t)
				for i, v := range s {
					params["value"] = v
					params["area"] = area[i%len(area)]
					res, err := e.Evaluate(params)
					f, ok := res.(float64)
					if err != nil || !ok {
						s[i] = math.NaN()
						continue
					}
					s[i] = f
				}
			}
		},
	}, nil
}
