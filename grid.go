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

	"github.com/ctessum/sparse"
)

// EarthRadius is the spherical earth radius [m] used for cell areas.
const EarthRadius = 6.37122e6

// Grid is a regular latitude/longitude grid. Area holds the surface area
// of each cell in m² and has shape (len(Lat), len(Lon)).
type Grid struct {
	Lat, Lon []float64
	Area     *sparse.DenseArray
}

// NewGrid creates a grid from cell-center coordinates and computes its
// cell areas.
func NewGrid(lat, lon []float64) (*Grid, error) {
	area, err := CellArea(lat, lon)
	if err != nil {
		return nil, err
	}
	return &Grid{
		Lat:  append([]float64(nil), lat...),
		Lon:  append([]float64(nil), lon...),
		Area: area,
	}, nil
}

// Ny returns the number of latitude rows.
func (g *Grid) Ny() int { return len(g.Lat) }

// Nx returns the number of longitude columns.
func (g *Grid) Nx() int { return len(g.Lon) }

// Equal returns whether g and o have exactly the same coordinates.
func (g *Grid) Equal(o *Grid) bool {
	if g == o {
		return true
	}
	if g == nil || o == nil {
		return false
	}
	return sameCoords(g.Lat, o.Lat) && sameCoords(g.Lon, o.Lon)
}

// TotalArea returns the summed area of all cells in m².
func (g *Grid) TotalArea() float64 { return g.Area.Sum() }

func sameCoords(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

// CellArea returns the area [m²] of each cell of the grid with the given
// cell-center coordinates [degrees]. Cell edges lie halfway between
// neighboring centers and the outermost edges are extrapolated by half a
// cell, with latitude edges clamped to the poles. Coordinates may be
// ascending or descending; the result is always non-negative.
func CellArea(lat, lon []float64) (*sparse.DenseArray, error) {
	if len(lat) < 2 {
		return nil, &InvalidGridError{Reason: fmt.Sprintf("need at least 2 latitudes, have %d", len(lat))}
	}
	if len(lon) < 2 {
		return nil, &InvalidGridError{Reason: fmt.Sprintf("need at least 2 longitudes, have %d", len(lon))}
	}
	for _, v := range append(append([]float64(nil), lat...), lon...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InvalidGridError{Reason: "non-finite coordinate"}
		}
	}
	latEdge := cellEdges(lat)
	for i, e := range latEdge {
		latEdge[i] = math.Max(-90, math.Min(90, e))
	}
	lonEdge := cellEdges(lon)

	const deg2rad = math.Pi / 180
	ny, nx := len(lat), len(lon)
	area := sparse.ZerosDense(ny, nx)
	var total float64
	for j := 0; j < ny; j++ {
		dy := EarthRadius * (latEdge[j+1] - latEdge[j]) * deg2rad
		coslat := math.Cos(lat[j] * deg2rad)
		for i := 0; i < nx; i++ {
			dx := EarthRadius * (lonEdge[i+1] - lonEdge[i]) * deg2rad * coslat
			a := dx * dy
			area.Elements[j*nx+i] = a
			total += a
		}
	}
	if total < 0 {
		area.Scale(-1)
	}
	return area, nil
}

// cellEdges returns the len(c)+1 edges surrounding the centers c.
func cellEdges(c []float64) []float64 {
	n := len(c)
	e := make([]float64, n+1)
	e[0] = c[0] - 0.5*(c[1]-c[0])
	for i := 1; i < n; i++ {
		e[i] = 0.5 * (c[i-1] + c[i])
	}
	e[n] = c[n-1] + 0.5*(c[n-1]-c[n-2])
	return e
}
