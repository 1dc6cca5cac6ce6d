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

	"gonum.org/v1/gonum/floats"
)

// Field holds one value per grid cell. All of the fields belonging to
// a simulation have the same length.
type Field []float64

// Mask holds one flag per grid cell.
type Mask []bool

// NewField returns a zero-valued field for n cells.
func NewField(n int) Field { return make(Field, n) }

// Uniform returns a field for n cells where every cell has value v.
func Uniform(n int, v float64) Field {
	f := make(Field, n)
	for i := range f {
		f[i] = v
	}
	return f
}

// Copy returns a copy of f that does not share memory with it.
func (f Field) Copy() Field {
	o := make(Field, len(f))
	copy(o, f)
	return o
}

// Sum returns the sum of f over all cells.
func (f Field) Sum() float64 { return floats.Sum(f) }

// Mean returns the average of f over all cells.
func (f Field) Mean() float64 {
	if len(f) == 0 {
		return 0
	}
	return floats.Sum(f) / float64(len(f))
}

// Min returns the smallest value in f.
func (f Field) Min() float64 { return floats.Min(f) }

// Finite reports whether every value in f is a finite number.
func (f Field) Finite() bool {
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Select returns a new field holding a where mask is true and b elsewhere.
func Select(mask Mask, a, b Field) Field {
	o := make(Field, len(mask))
	SelectInto(o, mask, a, b)
	return o
}

// SelectInto writes a into dst where mask is true and b elsewhere.
// dst may be the same slice as a or b.
func SelectInto(dst Field, mask Mask, a, b Field) {
	for i, m := range mask {
		if m {
			dst[i] = a[i]
		} else {
			dst[i] = b[i]
		}
	}
}

// Where returns a new field holding a where mask is true and zero elsewhere.
func Where(mask Mask, a Field) Field {
	o := make(Field, len(mask))
	for i, m := range mask {
		if m {
			o[i] = a[i]
		}
	}
	return o
}

// Not returns the complement of m.
func (m Mask) Not() Mask {
	o := make(Mask, len(m))
	for i, v := range m {
		o[i] = !v
	}
	return o
}

// Count returns the number of cells where m is true.
func (m Mask) Count() int {
	var n int
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// CheckLen returns an error wrapping ErrShape if any of the named
// fields does not have n cells.
func CheckLen(n int, fields map[string]Field) error {
	for name, f := range fields {
		if len(f) != n {
			return fmt.Errorf("smart: field %s has %d cells but the domain has %d: %w",
				name, len(f), n, ErrShape)
		}
	}
	return nil
}
