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
	"strings"

	"github.com/ctessum/unit"
)

// Quantity is the canonical name of a harmonized physical quantity.
type Quantity string

// The quantities the harmonizer knows how to convert.
const (
	BurnedArea Quantity = "burned_area"
	LAI        Quantity = "lai"
	CVeg       Quantity = "cVeg"
	GPP        Quantity = "gpp"
	NPP        Quantity = "npp"
	NBP        Quantity = "nbp"
	NEE        Quantity = "nee"
	FFire      Quantity = "fFire"
)

// Quantities lists every canonical quantity.
var Quantities = []Quantity{BurnedArea, LAI, CVeg, GPP, NPP, NBP, NEE, FFire}

// ParseQuantity returns the canonical quantity named s.
func ParseQuantity(s string) (Quantity, error) {
	for _, q := range Quantities {
		if string(q) == s {
			return q, nil
		}
	}
	names := make([]string, len(Quantities))
	for i, q := range Quantities {
		names[i] = string(q)
	}
	return "", fmt.Errorf("gridharmony: unknown quantity %q; valid options are %s", s, strings.Join(names, ", "))
}

// IsFlux returns whether q is a carbon flux reported per unit time.
func (q Quantity) IsFlux() bool {
	switch q {
	case GPP, NPP, NBP, NEE, FFire:
		return true
	}
	return false
}

// IsState returns whether q is a state variable, which is averaged rather
// than accumulated over time.
func (q Quantity) IsState() bool {
	return q == LAI || q == CVeg
}

// Reduction is a way of combining values across time steps.
type Reduction int

const (
	// Sum accumulates values.
	Sum Reduction = iota
	// MeanReduction averages values.
	MeanReduction
)

func (r Reduction) String() string {
	if r == MeanReduction {
		return "mean"
	}
	return "sum"
}

// AnnualReduction returns how monthly values of q combine into a year.
func (q Quantity) AnnualReduction() Reduction {
	if q.IsState() {
		return MeanReduction
	}
	return Sum
}

// Units returns the units of q after harmonization, per time step.
func (q Quantity) Units() string {
	switch {
	case q.IsFlux():
		return "g C m-2"
	case q == BurnedArea:
		return "1000 km2"
	case q == LAI:
		return "m2 m-2"
	case q == CVeg:
		return "kg C m-2"
	}
	return ""
}

// Dimensions returns the physical dimensions of q after harmonization.
func (q Quantity) Dimensions() unit.Dimensions {
	switch {
	case q.IsFlux(), q == CVeg:
		return unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2}
	case q == BurnedArea:
		return unit.Dimensions{unit.LengthDim: 2}
	}
	return unit.Dimensions{}
}

// TrendDimensions returns the dimensions of a linear trend of q, which is
// q per year.
func (q Quantity) TrendDimensions() unit.Dimensions {
	d := unit.Dimensions{unit.TimeDim: -1}
	for k, v := range q.Dimensions() {
		d[k] = v
	}
	return d
}

// Family is a group of datasets that share storage conventions.
type Family int

// The dataset families. FamilyOCN provides the reference grid.
const (
	FamilyGeneric Family = iota
	FamilyOCN
	FamilyJULES
	FamilyORCHIDEE
)

var familyPrefixes = map[Family]string{
	FamilyOCN:      "OCN",
	FamilyJULES:    "JUL",
	FamilyORCHIDEE: "ORC",
}

func (f Family) String() string {
	switch f {
	case FamilyOCN:
		return "OCN"
	case FamilyJULES:
		return "JULES"
	case FamilyORCHIDEE:
		return "ORCHIDEE"
	}
	return "generic"
}

// FamilyOf resolves the family of a dataset from its name.
func FamilyOf(name string) Family {
	for _, f := range []Family{FamilyOCN, FamilyJULES, FamilyORCHIDEE} {
		if strings.HasPrefix(name, familyPrefixes[f]) {
			return f
		}
	}
	return FamilyGeneric
}

// DatasetDescriptor identifies one input dataset. Its family is resolved
// once, when the descriptor is created.
type DatasetDescriptor struct {
	name, path, variable string
	family               Family
}

// NewDatasetDescriptor returns a descriptor for the dataset called name
// stored at path, whose raw variable is called variable. An empty variable
// means the raw variable carries the canonical quantity name.
func NewDatasetDescriptor(name, path, variable string) DatasetDescriptor {
	return DatasetDescriptor{
		name:     name,
		path:     path,
		variable: variable,
		family:   FamilyOf(name),
	}
}

// Name returns the dataset name.
func (d DatasetDescriptor) Name() string { return d.name }

// Path returns the location of the dataset file.
func (d DatasetDescriptor) Path() string { return d.path }

// Family returns the dataset family.
func (d DatasetDescriptor) Family() Family { return d.family }

// Variable returns the raw variable name for quantity q.
func (d DatasetDescriptor) Variable(q Quantity) string {
	if d.variable == "" {
		return string(q)
	}
	return d.variable
}

// timeLimitKey is the key under which time limits for the dataset are
// stored: the family prefix for model families, the name otherwise.
func timeLimitKey(name string, f Family) string {
	if p, ok := familyPrefixes[f]; ok {
		return p
	}
	return name
}
