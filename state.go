/*
Copyright © 2020 the SMART authors.
This file is part of SMART.

SMART is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SMART is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SMART.  If not, see <http://www.gnu.org/licenses/>.
*/

package smart

import (
	"fmt"
	"math"
)

// DualField holds the values of a state variable at the end of the
// previous timestep (Prev) and the working values for the current
// timestep (Cur). The two buffers never share memory.
type DualField struct {
	Prev, Cur Field
}

// NewDualField returns a zero-valued DualField for n cells.
func NewDualField(n int) *DualField {
	return &DualField{Prev: NewField(n), Cur: NewField(n)}
}

// Begin starts a timestep by copying the previous values into the
// working buffer.
func (d *DualField) Begin() { copy(d.Cur, d.Prev) }

// Swap ends a timestep: the working values become the previous values.
func (d *DualField) Swap() { d.Prev, d.Cur = d.Cur, d.Prev }

// Zero sets both buffers to zero.
func (d *DualField) Zero() {
	for i := range d.Prev {
		d.Prev[i] = 0
		d.Cur[i] = 0
	}
}

// Reservoir is a per-cell linear reservoir whose outflow rate is its
// storage at the start of the timestep divided by its residence time.
// Storage is in kg m-2, residence time in s and outflow in kg m-2 s-1.
type Reservoir struct {
	Storage *DualField

	// ResidenceTime [s] must be positive in every cell.
	ResidenceTime Field
}

// NewReservoir returns an empty reservoir with residence time k.
func NewReservoir(k Field) (*Reservoir, error) {
	for i, v := range k {
		if !(v > 0) || math.IsInf(v, 1) {
			return nil, fmt.Errorf("smart: residence time must be positive and finite but is %g in cell %d: %w",
				v, i, ErrInvalidParameter)
		}
	}
	return &Reservoir{Storage: NewDualField(len(k)), ResidenceTime: k}, nil
}

// Route adds inflow [kg m-2] to the reservoir and drains it for dt
// seconds. The new storage is clamped at zero. The returned outflow is
// the unclamped rate prev/k.
func (r *Reservoir) Route(inflow Field, dt float64) Field {
	out := make(Field, len(inflow))
	prev, cur := r.Storage.Prev, r.Storage.Cur
	for i, in := range inflow {
		out[i] = prev[i] / r.ResidenceTime[i]
		cur[i] = prev[i] + in - out[i]*dt
		if cur[i] < 0 {
			cur[i] = 0
		}
	}
	return out
}
