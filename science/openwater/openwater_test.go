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

package openwater

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/spatialmodel/smart"
)

const dt = 3600.

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func runoff(surface, subsurface smart.Field) smart.SubsurfaceExchange {
	return smart.SubsurfaceExchange{
		SurfaceRunoff:    surface,
		SubsurfaceRunoff: subsurface,
		SoilWaterStress:  smart.NewField(len(surface)),
	}
}

func TestEmptyChannel(t *testing.T) {
	o, err := New(1, Parameters{ThetaRK: smart.Field{3600}})
	if err != nil {
		t.Fatal(err)
	}
	if err = o.Initialise(); err != nil {
		t.Fatal(err)
	}
	ex, out, err := o.Run(runoff(smart.Field{0}, smart.Field{0}), dt)
	if err != nil {
		t.Fatal(err)
	}
	if out.Streamflow[0] != 0 || ex.WaterLevel[0] != 0 {
		t.Errorf("streamflow %g, water level %g", out.Streamflow[0], ex.WaterLevel[0])
	}
	if out.StreamflowVolume != nil {
		t.Errorf("volumetric streamflow without surface area: %v", out.StreamflowVolume)
	}
	if o.ReportsVolume() {
		t.Error("reports volume without surface area")
	}
}

func TestRouting(t *testing.T) {
	o, err := New(2, Parameters{
		ThetaRK:     smart.Field{36000, 1800},
		SurfaceArea: smart.Field{1e6, 2.5e6},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err = o.Initialise(); err != nil {
		t.Fatal(err)
	}
	o.channel.Storage.Prev[0] = 36
	o.channel.Storage.Prev[1] = 36

	ex, out, err := o.Run(runoff(smart.Field{0.0005, 0.0005}, smart.Field{0.0005, 0.0005}), dt)
	if err != nil {
		t.Fatal(err)
	}

	// Linear outflow balances the inflow.
	if different(out.Streamflow[0], 0.001, 1e-10) || different(ex.WaterLevel[0], 36, 1e-10) {
		t.Errorf("cell 0: streamflow %g, water level %g", out.Streamflow[0], ex.WaterLevel[0])
	}

	// Linear outflow would empty the channel, so it is capped.
	q := MaxDrawdown * (0.001 + 36/dt)
	if different(out.Streamflow[1], q, 1e-10) {
		t.Errorf("cell 1: streamflow %g != %g", out.Streamflow[1], q)
	}
	level := 36 + (0.001-q)*dt
	if different(ex.WaterLevel[1], level, 1e-10) || ex.WaterLevel[1] < 0 {
		t.Errorf("cell 1: water level %g != %g", ex.WaterLevel[1], level)
	}

	// 1 kg m-2 s-1 of water over 1 m2 is 0.001 m3 s-1.
	for i, a := range []float64{1e6, 2.5e6} {
		if want := out.Streamflow[i] * a / 1000; different(out.StreamflowVolume[i], want, 1e-10) {
			t.Errorf("cell %d: volume %g != %g", i, out.StreamflowVolume[i], want)
		}
	}

	ex.WaterLevel[0] = -1
	if different(o.States()[RiverChannelStore][0], 36, 1e-10) {
		t.Error("water level shares memory with the channel storage")
	}
}

func TestNonNegative(t *testing.T) {
	const n = 20
	k := smart.NewField(n)
	for i := range k {
		k[i] = dt * float64(i+1) / 4
	}
	o, err := New(n, Parameters{ThetaRK: k})
	if err != nil {
		t.Fatal(err)
	}
	if err = o.Initialise(); err != nil {
		t.Fatal(err)
	}
	for step := 0; step < 100; step++ {
		in := smart.NewField(n)
		if step < 10 {
			for i := range in {
				in[i] = 1e-3 * float64(i%3)
			}
		}
		ex, out, err := o.Run(runoff(in, smart.NewField(n)), dt)
		if err != nil {
			t.Fatal(err)
		}
		if ex.WaterLevel.Min() < 0 || out.Streamflow.Min() < 0 {
			t.Fatalf("step %d: water level %v, streamflow %v", step, ex.WaterLevel, out.Streamflow)
		}
	}
}

func TestNew(t *testing.T) {
	for _, test := range []struct {
		name string
		p    Parameters
		err  error
	}{
		{"zero residence time", Parameters{ThetaRK: smart.Field{0, 3600}}, smart.ErrInvalidParameter},
		{"negative residence time", Parameters{ThetaRK: smart.Field{-3600, 3600}}, smart.ErrInvalidParameter},
		{"short residence time", Parameters{ThetaRK: smart.Field{3600}}, smart.ErrShape},
		{"negative area", Parameters{ThetaRK: smart.Field{3600, 3600}, SurfaceArea: smart.Field{1, -1}}, smart.ErrInvalidParameter},
		{"short area", Parameters{ThetaRK: smart.Field{3600, 3600}, SurfaceArea: smart.Field{1}}, smart.ErrShape},
	} {
		t.Run(test.name, func(t *testing.T) {
			if _, err := New(2, test.p); !errors.Is(err, test.err) {
				t.Errorf("wrong error: %v", err)
			}
		})
	}
}

func TestParametersFrom(t *testing.T) {
	ps, err := smart.ReadParameterSet(strings.NewReader(`
[openwater]
theta_rk = {value = 10.64, units = "h"}
`))
	if err != nil {
		t.Fatal(err)
	}
	p, err := ParametersFrom(ps, 2, smart.Field{1e6, 1e6})
	if err != nil {
		t.Fatal(err)
	}
	if different(p.ThetaRK[1], 10.64*3600, 1e-10) || p.SurfaceArea[0] != 1e6 {
		t.Errorf("%+v", p)
	}
	if _, err := ParametersFrom(smart.ParameterSet{}, 2, nil); !errors.Is(err, smart.ErrInvalidParameter) {
		t.Errorf("wrong error: %v", err)
	}
}
