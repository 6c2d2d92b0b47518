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
	"fmt"
	"strings"
)

// InvalidGridError is returned when coordinate vectors cannot describe a
// regular grid.
type InvalidGridError struct {
	Dataset string
	Reason  string
}

func (e *InvalidGridError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("gridharmony: invalid grid: %s", e.Reason)
	}
	return fmt.Sprintf("gridharmony: invalid grid for dataset %s: %s", e.Dataset, e.Reason)
}

// GridAlignmentError is returned when a grid axis is not an exact multiple
// of an upscaling factor.
type GridAlignmentError struct {
	Dataset string
	Axis    string
	Length  int
	Factor  int
}

func (e *GridAlignmentError) Error() string {
	return fmt.Sprintf("gridharmony: dataset %s: %s axis of length %d is not a multiple of upscaling factor %d",
		e.Dataset, e.Axis, e.Length, e.Factor)
}

// TimeAxisError is returned when a reconstructed or decoded time axis
// does not match the data it labels.
type TimeAxisError struct {
	Dataset string
	Reason  string
}

func (e *TimeAxisError) Error() string {
	return fmt.Sprintf("gridharmony: time axis for dataset %s: %s", e.Dataset, e.Reason)
}

// NoReferenceGridError is returned by the interpolator when none of the
// datasets in a batch belongs to the reference family.
type NoReferenceGridError struct {
	Datasets []string
}

func (e *NoReferenceGridError) Error() string {
	return fmt.Sprintf("gridharmony: no reference-family dataset among [%s]", strings.Join(e.Datasets, ", "))
}

// GridMismatchError is returned when two fields that should share a grid
// do not.
type GridMismatchError struct {
	Dataset, Reference string
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("gridharmony: dataset %s is not on the grid of dataset %s", e.Dataset, e.Reference)
}

// UnknownDatasetError is returned when a dataset name is requested that is
// not part of a batch.
type UnknownDatasetError struct {
	Name string
}

func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("gridharmony: unknown dataset %q", e.Name)
}

// UnhandledConversion records a quantity/family combination for which no
// unit conversion rule exists.
type UnhandledConversion struct {
	Dataset  string
	Family   Family
	Quantity Quantity
}

func (e *UnhandledConversion) Error() string {
	return fmt.Sprintf("gridharmony: no unit conversion for quantity %s in dataset %s (family %s)",
		e.Quantity, e.Dataset, e.Family)
}

// WithDataset fills in the dataset name of grid errors raised below the
// dataset level. Other errors are wrapped with the name unless they
// already mention it.
func WithDataset(err error, name string) error {
	if err == nil {
		return nil
	}
	var ig *InvalidGridError
	if errors.As(err, &ig) && ig.Dataset == "" {
		ig.Dataset = name
		return err
	}
	var ga *GridAlignmentError
	if errors.As(err, &ga) && ga.Dataset == "" {
		ga.Dataset = name
		return err
	}
	if ig != nil || ga != nil || strings.Contains(err.Error(), name) {
		return err
	}
	return fmt.Errorf("gridharmony: dataset %s: %w", name, err)
}
