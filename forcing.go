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
	"os"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// ForcingDataVersion is the version of the forcing file format
// this version of the model works with.
const ForcingDataVersion = "1.0.0"

// Forcing supplies the surface layer inputs for each timestep.
type Forcing interface {
	// Steps returns the number of timesteps available.
	Steps() int

	// Cells returns the number of grid cells.
	Cells() int

	// Dt returns the timestep [s].
	Dt() float64

	// Start returns the time at the beginning of the first timestep.
	Start() time.Time

	// At returns the inputs for the given timestep.
	At(step int) (SurfaceLayerInputs, error)
}

// GriddedForcing holds forcing for every timestep in memory. The data
// arrays have dimensions [time, cell] and units of kg m-2 s-1.
type GriddedForcing struct {
	Precipitation               *sparse.DenseArray
	PotentialEvapotranspiration *sparse.DenseArray

	// SurfaceArea [m2] of each cell. It may be nil.
	SurfaceArea Field

	dt    float64
	start time.Time
}

// NewGriddedForcing returns zero-valued forcing for nSteps timesteps of
// dt seconds over nCells cells.
func NewGriddedForcing(nSteps, nCells int, dt float64, start time.Time) *GriddedForcing {
	return &GriddedForcing{
		Precipitation:               sparse.ZerosDense(nSteps, nCells),
		PotentialEvapotranspiration: sparse.ZerosDense(nSteps, nCells),
		dt:                          dt,
		start:                       start,
	}
}

// Steps implements Forcing.
func (f *GriddedForcing) Steps() int { return f.Precipitation.Shape[0] }

// Cells implements Forcing.
func (f *GriddedForcing) Cells() int { return f.Precipitation.Shape[1] }

// Dt implements Forcing.
func (f *GriddedForcing) Dt() float64 { return f.dt }

// Start implements Forcing.
func (f *GriddedForcing) Start() time.Time { return f.start }

// At implements Forcing. It returns an error wrapping ErrForcing if
// step is out of range or if any value is missing.
func (f *GriddedForcing) At(step int) (SurfaceLayerInputs, error) {
	if step < 0 || step >= f.Steps() {
		return SurfaceLayerInputs{}, fmt.Errorf("smart: forcing step %d is outside of [0, %d): %w",
			step, f.Steps(), ErrForcing)
	}
	n := f.Cells()
	in := SurfaceLayerInputs{
		Precipitation:               Field(f.Precipitation.Elements[step*n : (step+1)*n]).Copy(),
		PotentialEvapotranspiration: Field(f.PotentialEvapotranspiration.Elements[step*n : (step+1)*n]).Copy(),
	}
	for name, v := range map[string]Field{
		VarPrecipitation:               in.Precipitation,
		VarPotentialEvapotranspiration: in.PotentialEvapotranspiration,
	} {
		for i, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return SurfaceLayerInputs{}, fmt.Errorf("smart: %s is %g at step %d cell %d: %w",
					name, x, step, i, ErrForcing)
			}
		}
	}
	return in, nil
}

// ReadForcing reads forcing from a NetCDF file. The file must hold
// precipitation and potential_evapotranspiration variables with
// dimensions [time, cell] and units attributes, and global timestep [s]
// and start (RFC 3339) attributes. A surface_area [m2] variable with
// dimension [cell] is optional.
func ReadForcing(rw cdf.ReaderWriterAt) (*GriddedForcing, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("smart.ReadForcing: %v", err)
	}
	if v, ok := f.Header.GetAttribute("", "data_version").(string); !ok || v != ForcingDataVersion {
		return nil, fmt.Errorf("smart.ReadForcing: data version %q is incompatible "+
			"with the required version %s: %w", v, ForcingDataVersion, ErrForcing)
	}
	dtAttr, ok := f.Header.GetAttribute("", "timestep").([]float64)
	if !ok || len(dtAttr) != 1 {
		return nil, fmt.Errorf("smart.ReadForcing: missing timestep attribute: %w", ErrForcing)
	}
	startAttr, ok := f.Header.GetAttribute("", "start").(string)
	if !ok {
		return nil, fmt.Errorf("smart.ReadForcing: missing start attribute: %w", ErrForcing)
	}
	start, err := time.Parse(time.RFC3339, startAttr)
	if err != nil {
		return nil, fmt.Errorf("smart.ReadForcing: %v: %w", err, ErrForcing)
	}
	o := &GriddedForcing{dt: dtAttr[0], start: start}

	o.Precipitation, err = readNCF(f, VarPrecipitation, Flux)
	if err != nil {
		return nil, err
	}
	o.PotentialEvapotranspiration, err = readNCF(f, VarPotentialEvapotranspiration, Flux)
	if err != nil {
		return nil, err
	}
	if len(o.Precipitation.Shape) != 2 {
		return nil, fmt.Errorf("smart.ReadForcing: %s has %d dimensions but needs 2: %w",
			VarPrecipitation, len(o.Precipitation.Shape), ErrShape)
	}
	for i, s := range o.Precipitation.Shape {
		if s != o.PotentialEvapotranspiration.Shape[i] {
			return nil, fmt.Errorf("smart.ReadForcing: %s and %s have different shapes: %w",
				VarPrecipitation, VarPotentialEvapotranspiration, ErrShape)
		}
	}
	if hasVariable(f, "surface_area") {
		a, err := readNCF(f, "surface_area", unit.Meter2)
		if err != nil {
			return nil, err
		}
		if len(a.Elements) != o.Cells() {
			return nil, fmt.Errorf("smart.ReadForcing: surface_area has %d cells but forcing has %d: %w",
				len(a.Elements), o.Cells(), ErrShape)
		}
		o.SurfaceArea = Field(a.Elements)
	}
	return o, nil
}

func hasVariable(f *cdf.File, name string) bool {
	for _, v := range f.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// readNCF reads variable v from f, converting it to SI units and
// checking that it has dimensions want.
func readNCF(f *cdf.File, v string, want unit.Dimensions) (*sparse.DenseArray, error) {
	if !hasVariable(f, v) {
		return nil, fmt.Errorf("smart.ReadForcing: missing variable %s: %w", v, ErrForcing)
	}
	units, ok := f.Header.GetAttribute(v, "units").(string)
	if !ok {
		return nil, fmt.Errorf("smart.ReadForcing: variable %s has no units: %w", v, ErrUnits)
	}
	u, err := ParseQuantity(1, units)
	if err != nil {
		return nil, fmt.Errorf("smart.ReadForcing: variable %s: %w", v, err)
	}
	if err := u.Check(want); err != nil {
		return nil, fmt.Errorf("smart.ReadForcing: variable %s: %v: %w", v, err, ErrUnits)
	}
	dims := f.Header.Lengths(v)
	data := sparse.ZerosDense(dims...)
	r := f.Reader(v, nil, nil)
	if _, err = r.Read(data.Elements); err != nil {
		return nil, fmt.Errorf("smart.ReadForcing: reading %s: %v", v, err)
	}
	data.Scale(u.Value())
	return data, nil
}

// Write writes f to NetCDF file w in the format read by ReadForcing.
func (f *GriddedForcing) Write(w *os.File) error {
	nt, nc := f.Steps(), f.Cells()
	h := cdf.NewHeader([]string{"time", "cell"}, []int{nt, nc})
	h.AddAttribute("", "comment", "SMART forcing data file")
	h.AddAttribute("", "data_version", ForcingDataVersion)
	h.AddAttribute("", "timestep", []float64{f.dt})
	h.AddAttribute("", "start", f.start.Format(time.RFC3339))

	vars := map[string]*sparse.DenseArray{
		VarPrecipitation:               f.Precipitation,
		VarPotentialEvapotranspiration: f.PotentialEvapotranspiration,
	}
	names := []string{VarPrecipitation, VarPotentialEvapotranspiration}
	desc := map[string]string{
		VarPrecipitation:               "Precipitation flux",
		VarPotentialEvapotranspiration: "Potential water evapotranspiration flux",
	}
	for _, name := range names {
		h.AddVariable(name, []string{"time", "cell"}, []float64{0})
		h.AddAttribute(name, "description", desc[name])
		h.AddAttribute(name, "units", "kg m-2 s-1")
	}
	if f.SurfaceArea != nil {
		if len(f.SurfaceArea) != nc {
			return fmt.Errorf("smart: surface area has %d cells but forcing has %d: %w",
				len(f.SurfaceArea), nc, ErrShape)
		}
		a := sparse.ZerosDense(nc)
		copy(a.Elements, f.SurfaceArea)
		vars["surface_area"] = a
		names = append(names, "surface_area")
		h.AddVariable("surface_area", []string{"cell"}, []float64{0})
		h.AddAttribute("surface_area", "description", "Cell surface area")
		h.AddAttribute("surface_area", "units", "m2")
	}
	h.Define()

	ff, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err = writeNCF(ff, name, vars[name]); err != nil {
			return fmt.Errorf("smart: writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, v string, data *sparse.DenseArray) error {
	n := 1
	for _, s := range data.Shape {
		n *= s
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	end := f.Header.Lengths(v)
	start := make([]int, len(end))
	_, err := f.Writer(v, start, end).Write(data.Elements)
	return err
}
