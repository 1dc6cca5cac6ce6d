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

// Package hash fingerprints model inputs, so that a log file can be
// matched to the parameters and forcing that produced it.
package hash

import (
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// printer writes values deterministically: map keys are sorted and
// pointer addresses are left out.
var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Hash returns a hexadecimal key for the given objects. Equal objects
// give equal keys regardless of map iteration order.
func Hash(objects ...interface{}) string {
	h := fnv.New128a()
	for _, o := range objects {
		printer.Fprintf(h, "%#v\n", o)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
