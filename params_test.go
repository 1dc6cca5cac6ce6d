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
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/unit"
)

const testParameters = `
[surfacelayer]
theta_t = {value = 1.0, units = "1"}
theta_z = {value = 105.26, units = "mm"}

[subsurface]
theta_sk = {value = 46.8, units = "h"}
theta_z = {value = 0.10526, units = "kg m-2"}
rate = {value = 3.6, units = "mm h-1"}
bad = {value = 1.0, units = "furlong"}
`

func TestReadParameterSet(t *testing.T) {
	ps, err := ReadParameterSet(strings.NewReader(testParameters))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		stage, name string
		dims        unit.Dimensions
		want        float64
	}{
		{"surfacelayer", "theta_t", unit.Dimless, 1},
		{"surfacelayer", "theta_z", Depth, 105.26},
		{"subsurface", "theta_sk", unit.Second, 46.8 * 3600},
		{"subsurface", "rate", Flux, 0.001},
	}
	for _, test := range tests {
		t.Run(test.stage+"."+test.name, func(t *testing.T) {
			v, err := ps.Get(test.stage, test.name, test.dims)
			if err != nil {
				t.Fatal(err)
			}
			if different(v, test.want, testTolerance) {
				t.Errorf("%g != %g", v, test.want)
			}
		})
	}

	want := []string{"bad", "rate", "theta_sk", "theta_z"}
	if names := ps.Names("subsurface"); !reflect.DeepEqual(names, want) {
		t.Errorf("names: %v != %v", names, want)
	}
}

func TestParameterSetErrors(t *testing.T) {
	ps, err := ReadParameterSet(strings.NewReader(testParameters))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		stage, name string
		dims        unit.Dimensions
		err         error
	}{
		{"openwater", "theta_rk", unit.Second, ErrInvalidParameter},
		{"subsurface", "theta_fk", unit.Second, ErrInvalidParameter},
		{"subsurface", "theta_sk", Depth, ErrUnits},
		{"subsurface", "bad", unit.Dimless, ErrUnits},
	}
	for _, test := range tests {
		t.Run(test.stage+"."+test.name, func(t *testing.T) {
			if _, err := ps.Get(test.stage, test.name, test.dims); !errors.Is(err, test.err) {
				t.Errorf("wrong error: %v", err)
			}
		})
	}

	if _, err := ReadParameterSet(strings.NewReader("[surfacelayer\n")); err == nil {
		t.Error("malformed file accepted")
	}
}

func TestParseQuantity(t *testing.T) {
	u, err := ParseQuantity(2, " mm   d-1 ")
	if err != nil {
		t.Fatal(err)
	}
	if err := u.Check(Flux); err != nil {
		t.Error(err)
	}
	if different(u.Value(), 2./86400, testTolerance) {
		t.Errorf("%g != %g", u.Value(), 2./86400)
	}
	a, err := ParseQuantity(3, "km2")
	if err != nil {
		t.Fatal(err)
	}
	if a.Value() != 3e6 {
		t.Errorf("area: %g", a.Value())
	}
}

func TestCheckParameter(t *testing.T) {
	if err := CheckParameter("theta_h", Field{0, 0.5}, false); err != nil {
		t.Error(err)
	}
	if err := CheckParameter("theta_z", Field{100, 0}, true); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero accepted: %v", err)
	}
	if err := CheckParameter("theta_z", Field{100, -5}, true); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative accepted: %v", err)
	}
}
