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
	"runtime"
	"sync"
)

// minParallelCells is the domain size below which Cells does not
// start any goroutines.
const minParallelCells = 4096

// CellCalculator performs a calculation on grid cell i. It must only
// write to index i of any shared slice.
type CellCalculator func(i int)

// Cells concurrently runs a series of calculations on n grid cells.
// Each cell is handled by exactly one goroutine, and the calculators
// run in order for each cell.
func Cells(n int, calculators ...CellCalculator) {
	nprocs := runtime.GOMAXPROCS(0)
	if n < minParallelCells || nprocs == 1 {
		for i := 0; i < n; i++ {
			for _, f := range calculators {
				f(i)
			}
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			for ii := pp; ii < n; ii += nprocs {
				for _, f := range calculators {
					f(ii)
				}
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()
}
