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

// Package gridharmony brings gridded carbon-cycle and fire datasets from
// land-surface models and observational products onto a common grid,
// common units and a common time axis, and computes per-pixel temporal
// statistics and domain-wide annual summaries from them.
//
// Datasets belong to a family that decides how their files are read and
// how their units are converted: OCN, JULES, ORCHIDEE, or generic
// observational products. Series of the OCN family provide the reference
// grid that every other series in a batch is resampled onto.
package gridharmony

// Version is the version of this software.
const Version = "0.1.0"
