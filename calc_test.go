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

import "testing"

func TestCells(t *testing.T) {
	for _, n := range []int{10, minParallelCells * 3} {
		o := NewField(n)
		Cells(n,
			func(i int) { o[i] = float64(i) },
			func(i int) { o[i] *= 2 },
		)
		for i, v := range o {
			if v != float64(2*i) {
				t.Fatalf("n=%d: cell %d is %g", n, i, v)
			}
		}
	}
}
