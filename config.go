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
	"io"
	"math"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
)

// TimeAxis describes a regular time axis by its first and last dates and
// its step, e.g. "1M" for month ends or "1MS" for month starts.
type TimeAxis struct {
	Start, End string
	Freq       string
}

// Dates returns the time stamps of the axis.
func (a TimeAxis) Dates() ([]time.Time, error) {
	start, err := time.Parse(dateLayout, a.Start)
	if err != nil {
		return nil, fmt.Errorf("gridharmony: time axis start: %v", err)
	}
	end, err := time.Parse(dateLayout, a.End)
	if err != nil {
		return nil, fmt.Errorf("gridharmony: time axis end: %v", err)
	}
	return DateRange(start, end, a.Freq)
}

// YearRange is an inclusive range of calendar years.
type YearRange struct {
	First, Last int
}

// Contains returns whether t falls within the range.
func (y YearRange) Contains(t time.Time) bool {
	return t.Year() >= y.First && t.Year() <= y.Last
}

// Domain is a latitude/longitude box. LatStart and LatStop, as well as
// LonStart and LonStop, may be given in either order.
type Domain struct {
	LatStart, LatStop float64
	LonStart, LonStop float64
}

// Bounds returns the domain box with longitude as X and latitude as Y.
func (d Domain) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: math.Min(d.LonStart, d.LonStop), Y: math.Min(d.LatStart, d.LatStop)},
		Max: geom.Point{X: math.Max(d.LonStart, d.LonStop), Y: math.Max(d.LatStart, d.LatStop)},
	}
}

// Tables holds the static lookup tables that drive harmonization. It is
// the on-disk form of a Config.
type Tables struct {
	// TimeAxes holds the time axes of datasets whose files do not carry a
	// usable one, by dataset name.
	TimeAxes map[string]TimeAxis

	// TimeLimits holds the analysis period by quantity and then by family
	// prefix (OCN, JUL, ORC) or dataset name.
	TimeLimits map[string]map[string]YearRange

	Domains map[string]Domain

	// VegetationClasses holds vegetation-class tables by scheme name.
	VegetationClasses map[string]VegetationClassTable

	// GlobalRescale holds the factor applied to area-integrated values of
	// each quantity, e.g. 1e-15 to convert g C to Pg C.
	GlobalRescale map[string]float64

	// Conversions holds extra unit conversions for generic datasets, by
	// quantity and then dataset name. Each is an arithmetic expression of
	// value, area (cell area in m²) and days_in_month, for example
	// "value * area / 1000000000".
	Conversions map[string]map[string]string
}

// DefaultTables returns the tables used for the standard set of carbon
// and fire datasets.
func DefaultTables() Tables {
	model := YearRange{2003, 2020}
	models := func(extra map[string]YearRange, prefixes ...string) map[string]YearRange {
		m := make(map[string]YearRange)
		for _, p := range prefixes {
			m[p] = model
		}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
	monthly := func(start, end string) TimeAxis { return TimeAxis{start, end, "1M"} }
	return Tables{
		TimeAxes: map[string]TimeAxis{
			"OCN_S2.1":      monthly("1950-01-01", "2022-01-01"),
			"OCN_S2.2":      monthly("1950-01-01", "2022-01-01"),
			"OCN_S3.1":      monthly("1950-01-01", "2022-01-01"),
			"OCN_S3.2":      monthly("1950-01-01", "2022-01-01"),
			"OCN_S2.1_nf":   monthly("1950-01-01", "2022-01-01"),
			"OCN_S3.1_nf":   monthly("1950-01-01", "2022-01-01"),
			"OCN_S2.1.1":    monthly("1950-01-01", "2023-01-01"),
			"OCN_S0":        monthly("1950-01-01", "2021-01-01"),
			"OCN_S2Prog":    monthly("1950-01-01", "2021-01-01"),
			"OCN_S2Diag":    monthly("2000-01-01", "2021-01-01"),
			"OCN_Spost_v3":  monthly("1850-01-01", "2021-01-01"),
			"OCN_S0_v3":     monthly("1960-01-01", "2021-01-01"),
			"OCN_S2Prog_v3": monthly("1960-01-01", "2023-01-01"),
			"OCN_S2Diag_v3": monthly("2003-01-01", "2021-01-01"),
			"ORC_S0":        monthly("1960-01-01", "2021-01-01"),
			"ORC_S2Prog":    monthly("1960-01-01", "2021-01-01"),
			"ORC_S2Diag":    monthly("2003-01-01", "2021-01-01"),
			"NDEP":          {"2018-01-01", "2018-12-01", "1MS"},
		},
		TimeLimits: map[string]map[string]YearRange{
			string(BurnedArea): models(map[string]YearRange{
				"GFED4.1s": {2003, 2016},
				"GFED_TOT": {2003, 2020},
				"GFED_FL":  {2003, 2020},
				"BA_MODIS": {2003, 2020},
				"BA_AVHRR": {2003, 2016},
			}, "OCN", "JUL", "ORC"),
			string(FFire): models(map[string]YearRange{
				"GFED4.1s": {2003, 2020},
			}, "OCN", "JUL", "ORC"),
			string(LAI): models(map[string]YearRange{
				"LAI_LTDR":  {2003, 2018},
				"LAI_MODIS": {2003, 2020},
				"GLOBMAP":   {2003, 2020},
			}, "OCN", "JUL", "ORC"),
			string(CVeg): models(nil, "OCN", "JUL", "ORC"),
			string(NPP): models(map[string]YearRange{
				"MOD17A3HGFv061": {2001, 2020},
			}, "OCN", "JUL"),
			string(GPP): models(map[string]YearRange{
				"MOD17A2HGFv061": {2003, 2020},
				"MOD17A3HGFv061": {2003, 2020},
			}, "OCN", "JUL", "ORC"),
			string(NEE): models(nil, "OCN"),
			string(NBP): models(nil, "OCN", "JUL", "ORC"),
		},
		Domains: map[string]Domain{
			"Global":  {90, -60, -180, 180},
			"Europe":  {72, 34, -10, 45},
			"Tropics": {23, -23, -180, 180},
			"NH":      {80, 30, -180, 180},
			"Other":   {90, -90, -180, 180},
		},
		VegetationClasses: map[string]VegetationClassTable{
			"OCN":     append(VegetationClassTable(nil), ocnClasses...),
			"ESA-CCI": esaCCIClasses(),
		},
		GlobalRescale: map[string]float64{
			string(BurnedArea): 1,
			string(LAI):        1,
			string(CVeg):       1e-12,
			string(GPP):        1e-15,
			string(NPP):        1e-15,
			string(NBP):        1e-15,
			string(NEE):        1e-15,
			string(FFire):      1e-15,
		},
	}
}

// LoadTables reads tables in TOML format from r. Tables that are absent
// from r keep their default values.
func LoadTables(r io.Reader) (Tables, error) {
	t := DefaultTables()
	var in Tables
	if _, err := toml.DecodeReader(r, &in); err != nil {
		return Tables{}, fmt.Errorf("gridharmony: decoding tables: %v", err)
	}
	if in.TimeAxes != nil {
		t.TimeAxes = in.TimeAxes
	}
	if in.TimeLimits != nil {
		t.TimeLimits = in.TimeLimits
	}
	if in.Domains != nil {
		t.Domains = in.Domains
	}
	if in.VegetationClasses != nil {
		t.VegetationClasses = in.VegetationClasses
	}
	if in.GlobalRescale != nil {
		t.GlobalRescale = in.GlobalRescale
	}
	if in.Conversions != nil {
		t.Conversions = in.Conversions
	}
	return t, nil
}

// Config is the validated, read-only form of Tables that is passed to
// every component. Its contents are only exposed as copies.
type Config struct {
	t           Tables
	conversions map[Quantity]map[string]conversion
}

// NewConfig validates t and returns a Config holding a private copy of it.
func NewConfig(t Tables) (*Config, error) {
	c := &Config{
		t: Tables{
			TimeAxes:          make(map[string]TimeAxis, len(t.TimeAxes)),
			TimeLimits:        make(map[string]map[string]YearRange, len(t.TimeLimits)),
			Domains:           make(map[string]Domain, len(t.Domains)),
			VegetationClasses: make(map[string]VegetationClassTable, len(t.VegetationClasses)),
			GlobalRescale:     make(map[string]float64, len(t.GlobalRescale)),
			Conversions:       make(map[string]map[string]string, len(t.Conversions)),
		},
		conversions: make(map[Quantity]map[string]conversion),
	}
	for name, a := range t.TimeAxes {
		if _, err := a.Dates(); err != nil {
			return nil, fmt.Errorf("gridharmony: time axis for %s: %v", name, err)
		}
		c.t.TimeAxes[name] = a
	}
	for q, limits := range t.TimeLimits {
		if _, err := ParseQuantity(q); err != nil {
			return nil, err
		}
		m := make(map[string]YearRange, len(limits))
		for k, y := range limits {
			if y.Last < y.First {
				return nil, fmt.Errorf("gridharmony: time limits for %s/%s end before they start", q, k)
			}
			m[k] = y
		}
		c.t.TimeLimits[q] = m
	}
	for name, d := range t.Domains {
		c.t.Domains[name] = d
	}
	for scheme, v := range t.VegetationClasses {
		if err := v.validate(scheme); err != nil {
			return nil, err
		}
		c.t.VegetationClasses[scheme] = append(VegetationClassTable(nil), v...)
	}
	for q, f := range t.GlobalRescale {
		if _, err := ParseQuantity(q); err != nil {
			return nil, err
		}
		c.t.GlobalRescale[q] = f
	}
	for qs, exprs := range t.Conversions {
		q, err := ParseQuantity(qs)
		if err != nil {
			return nil, err
		}
		c.conversions[q] = make(map[string]conversion, len(exprs))
		c.t.Conversions[qs] = make(map[string]string, len(exprs))
		for dataset, expr := range exprs {
			c.t.Conversions[qs][dataset] = expr
			conv, err := expressionConversion(expr)
			if err != nil {
				return nil, fmt.Errorf("gridharmony: conversion of %s for %s: %v", q, dataset, err)
			}
			c.conversions[q][dataset] = conv
		}
	}
	return c, nil
}

// DefaultConfig returns the Config built from DefaultTables.
func DefaultConfig() *Config {
	c, err := NewConfig(DefaultTables())
	if err != nil {
		panic(err)
	}
	return c
}

// TimeAxis returns the configured time axis of the named dataset.
func (c *Config) TimeAxis(dataset string) (TimeAxis, bool) {
	a, ok := c.t.TimeAxes[dataset]
	return a, ok
}

// TimeLimit returns the analysis period of quantity q for the given
// family prefix or dataset name.
func (c *Config) TimeLimit(q Quantity, key string) (YearRange, bool) {
	y, ok := c.t.TimeLimits[string(q)][key]
	return y, ok
}

// Domain returns the named domain.
func (c *Config) Domain(name string) (Domain, bool) {
	d, ok := c.t.Domains[name]
	return d, ok
}

// VegetationClasses returns a copy of the vegetation-class table of the
// named scheme.
func (c *Config) VegetationClasses(scheme string) (VegetationClassTable, bool) {
	v, ok := c.t.VegetationClasses[scheme]
	return append(VegetationClassTable(nil), v...), ok
}

// GlobalRescale returns the factor applied to area-integrated values of
// q. Quantities without an entry are not rescaled.
func (c *Config) GlobalRescale(q Quantity) float64 {
	if f, ok := c.t.GlobalRescale[string(q)]; ok {
		return f
	}
	return 1
}

// conversion returns the configured conversion of quantity q for the named
// generic dataset.
func (c *Config) conversion(q Quantity, dataset string) (conversion, bool) {
	if c == nil {
		return conversion{}, false
	}
	conv, ok := c.conversions[q][dataset]
	return conv, ok
}
