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
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/unit"
)

var (
	// ErrInvalidParameter is returned when a stage is constructed with a
	// parameter value it cannot run with.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrShape is returned when a field does not have one value per cell.
	ErrShape = errors.New("field length does not match domain")

	// ErrUnits is returned when a quantity has unknown or unexpected units.
	ErrUnits = errors.New("incompatible units")

	// ErrForcing is returned when forcing data are missing or invalid.
	ErrForcing = errors.New("invalid forcing")
)

// Dimensions of the quantities used by the model.
var (
	// Depth is an areal water mass [kg m-2], equivalent to a depth in mm.
	Depth = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2}

	// Flux is an areal water mass rate [kg m-2 s-1].
	Flux = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2, unit.TimeDim: -1}
)

type unitDef struct {
	factor float64
	dims   unit.Dimensions
}

// units holds the unit strings accepted in parameter files, with the
// factor that converts them to SI.
var units = map[string]unitDef{
	"1":          {1, unit.Dimless},
	"kg m-2":     {1, Depth},
	"mm":         {1, Depth},
	"kg m-2 s-1": {1, Flux},
	"mm s-1":     {1, Flux},
	"mm h-1":     {1. / 3600, Flux},
	"mm d-1":     {1. / 86400, Flux},
	"s":          {1, unit.Second},
	"min":        {60, unit.Second},
	"h":          {3600, unit.Second},
	"d":          {86400, unit.Second},
	"m2":         {1, unit.Meter2},
	"km2":        {1e6, unit.Meter2},
}

// ParseQuantity converts value in the given units to SI.
func ParseQuantity(value float64, units string) (*unit.Unit, error) {
	def, ok := unitsTable(units)
	if !ok {
		return nil, fmt.Errorf("smart: unknown units %q: %w", units, ErrUnits)
	}
	return unit.New(value*def.factor, def.dims), nil
}

func unitsTable(u string) (unitDef, bool) {
	def, ok := units[strings.Join(strings.Fields(u), " ")]
	return def, ok
}

// Quantity is a parameter value and its units as written in a
// parameter file, for example
//	theta_sk = {value = 46.8, units = "h"}
type Quantity struct {
	Value float64 `toml:"value"`
	Units string  `toml:"units"`
}

// ParameterSet holds parameter quantities by stage name and parameter name.
type ParameterSet map[string]map[string]Quantity

// ReadParameterSet reads a TOML parameter file from r. Each stage has
// its own table:
//
//	[surfacelayer]
//	theta_t = {value = 1.0, units = "1"}
//	theta_z = {value = 105.26, units = "kg m-2"}
func ReadParameterSet(r io.Reader) (ParameterSet, error) {
	ps := make(ParameterSet)
	if _, err := toml.DecodeReader(r, &ps); err != nil {
		return nil, fmt.Errorf("smart: reading parameter file: %v", err)
	}
	return ps, nil
}

// Get returns the SI value of parameter name of stage, checking that it
// has dimensions want.
func (ps ParameterSet) Get(stage, name string, want unit.Dimensions) (float64, error) {
	st, ok := ps[stage]
	if !ok {
		return math.NaN(), fmt.Errorf("smart: parameter file has no table for %s: %w", stage, ErrInvalidParameter)
	}
	q, ok := st[name]
	if !ok {
		return math.NaN(), fmt.Errorf("smart: parameter %s.%s is missing: %w", stage, name, ErrInvalidParameter)
	}
	u, err := ParseQuantity(q.Value, q.Units)
	if err != nil {
		return math.NaN(), fmt.Errorf("smart: parameter %s.%s: %w", stage, name, err)
	}
	if err := u.Check(want); err != nil {
		return math.NaN(), fmt.Errorf("smart: parameter %s.%s: %v: %w", stage, name, err, ErrUnits)
	}
	return u.Value(), nil
}

// Names returns the sorted parameter names of stage.
func (ps ParameterSet) Names(stage string) []string {
	var o []string
	for n := range ps[stage] {
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}

// CheckParameter returns an error wrapping ErrInvalidParameter if any
// value of the named parameter is not finite, or if positive is true
// and any value is not greater than zero.
func CheckParameter(name string, v Field, positive bool) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("smart: parameter %s is %g in cell %d: %w", name, x, i, ErrInvalidParameter)
		}
		if positive && x <= 0 {
			return fmt.Errorf("smart: parameter %s must be positive but is %g in cell %d: %w", name, x, i, ErrInvalidParameter)
		}
	}
	return nil
}
