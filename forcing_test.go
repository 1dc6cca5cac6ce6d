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
	"io/ioutil"
	"math"
	"os"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"
)

func testForcing(nSteps, nCells int) *GriddedForcing {
	start := time.Date(2007, time.January, 1, 0, 0, 0, 0, time.UTC)
	f := NewGriddedForcing(nSteps, nCells, 3600, start)
	for t := 0; t < nSteps; t++ {
		for c := 0; c < nCells; c++ {
			f.Precipitation.Set(float64(t+c)*1e-5, t, c)
			f.PotentialEvapotranspiration.Set(2e-5, t, c)
		}
	}
	return f
}

func TestForcingWriteRead(t *testing.T) {
	f := testForcing(5, 3)
	f.SurfaceArea = Field{1e6, 2e6, 4e6}

	w, err := ioutil.TempFile("", "smart_forcing")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(w.Name())
	if err = f.Write(w); err != nil {
		t.Fatal(err)
	}
	w.Close()

	r, err := os.Open(w.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	f2, err := ReadForcing(r)
	if err != nil {
		t.Fatal(err)
	}

	if f2.Steps() != 5 || f2.Cells() != 3 {
		t.Errorf("shape: %d steps, %d cells", f2.Steps(), f2.Cells())
	}
	if f2.Dt() != 3600 {
		t.Errorf("dt: %g", f2.Dt())
	}
	if !f2.Start().Equal(f.Start()) {
		t.Errorf("start: %v != %v", f2.Start(), f.Start())
	}
	if !floats.EqualApprox(f2.Precipitation.Elements, f.Precipitation.Elements, testTolerance) {
		t.Errorf("precipitation: %v != %v", f2.Precipitation.Elements, f.Precipitation.Elements)
	}
	if !floats.EqualApprox(f2.PotentialEvapotranspiration.Elements, f.PotentialEvapotranspiration.Elements, testTolerance) {
		t.Errorf("pet: %v != %v", f2.PotentialEvapotranspiration.Elements, f.PotentialEvapotranspiration.Elements)
	}
	if !floats.Equal(f2.SurfaceArea, f.SurfaceArea) {
		t.Errorf("area: %v != %v", f2.SurfaceArea, f.SurfaceArea)
	}
}

func TestForcingAt(t *testing.T) {
	f := testForcing(4, 2)
	in, err := f.At(3)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(in.Precipitation, []float64{3e-5, 4e-5}, testTolerance) {
		t.Errorf("precipitation: %v", in.Precipitation)
	}
	in.Precipitation[0] = 1
	if f.Precipitation.Get(3, 0) == 1 {
		t.Error("inputs share memory with the forcing")
	}

	for _, step := range []int{-1, 4} {
		if _, err := f.At(step); !errors.Is(err, ErrForcing) {
			t.Errorf("step %d: wrong error %v", step, err)
		}
	}

	f.PotentialEvapotranspiration.Set(math.NaN(), 2, 1)
	if _, err := f.At(2); !errors.Is(err, ErrForcing) {
		t.Errorf("missing value: wrong error %v", err)
	}
}
