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

package smartutil

import (
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/smart"
	"github.com/spatialmodel/smart/science/subsurface"
)

func TestCheckOutputVars(t *testing.T) {
	os.Setenv("SMART_TEST_VAR", "surface_runoff")
	defer os.Unsetenv("SMART_TEST_VAR")
	o, err := checkOutputVars(map[string]string{
		"Runoff": "$SMART_TEST_VAR +\r\nsubsurface_runoff",
		"Q":      "outgoing_streamflow\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"Runoff": "surface_runoff + subsurface_runoff",
		"Q":      "outgoing_streamflow ",
	}
	if !reflect.DeepEqual(o, want) {
		t.Errorf("%v != %v", o, want)
	}
	if _, err := checkOutputVars(nil); err == nil {
		t.Error("empty output variables accepted")
	}
}

func TestCheckLogFile(t *testing.T) {
	if f := checkLogFile("", "data/forcing.ncf"); f != "data/forcing.log" {
		t.Errorf("default log file: %s", f)
	}
	if f := checkLogFile("run.log", "data/forcing.ncf"); f != "run.log" {
		t.Errorf("log file: %s", f)
	}
}

func TestCheckInputFile(t *testing.T) {
	if _, err := checkInputFile("Parameters", ""); err == nil {
		t.Error("empty path accepted")
	}
	if _, err := checkInputFile("Parameters", "testdata/does_not_exist.toml"); err == nil {
		t.Error("missing file accepted")
	}
	if f, err := checkInputFile("Parameters", "testdata/params.toml"); err != nil || f != "testdata/params.toml" {
		t.Errorf("%s: %v", f, err)
	}
}

func TestCheckPercolationRule(t *testing.T) {
	r, err := checkPercolationRule("capacity")
	if err != nil {
		t.Fatal(err)
	}
	if r != subsurface.CapacityPercolation {
		t.Errorf("rule: %v", r)
	}
	if _, err := checkPercolationRule("sideways"); err == nil {
		t.Error("unknown rule accepted")
	}
}

func TestGetStringMapString(t *testing.T) {
	cfg := viper.New()
	cfg.Set("a", `{"Q": "outgoing_streamflow"}`)
	cfg.Set("b", map[string]interface{}{"aet": "actual_evapotranspiration"})
	cfg.Set("c", map[string]string{"S": "soil_water_stress"})
	for key, want := range map[string]map[string]string{
		"a": {"Q": "outgoing_streamflow"},
		"b": {"aet": "actual_evapotranspiration"},
		"c": {"S": "soil_water_stress"},
	} {
		if got := GetStringMapString(key, cfg); !reflect.DeepEqual(got, want) {
			t.Errorf("%s: %v != %v", key, got, want)
		}
	}
}

func TestNewModel(t *testing.T) {
	ps, err := readParameters("testdata/params.toml")
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewModel(ps, 4, smart.Uniform(4, 1e6), subsurface.LiteralPercolation)
	if err != nil {
		t.Fatal(err)
	}
	if m.Cells() != 4 {
		t.Errorf("cells: %d", m.Cells())
	}

	ps["openwater"]["theta_rk"] = smart.Quantity{Value: 0, Units: "h"}
	if _, err := NewModel(ps, 4, nil, subsurface.LiteralPercolation); !errors.Is(err, smart.ErrInvalidParameter) {
		t.Errorf("wrong error: %v", err)
	}
}
