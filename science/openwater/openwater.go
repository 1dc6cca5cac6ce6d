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

// Package openwater routes land runoff through a linear river channel
// reservoir in each cell.
package openwater

import (
	"fmt"

	"github.com/ctessum/unit"
	"github.com/spatialmodel/smart"
)

// Name is the name of the parameter table for this stage.
const Name = "openwater"

// RiverChannelStore is the name of the channel storage state.
const RiverChannelStore = "river_channel_store"

// MaxDrawdown is the largest fraction of the water available in a
// timestep that the channel may release when its linear outflow would
// empty it.
const MaxDrawdown = 0.95

// waterDensity [kg m-3] converts areal water mass to volume.
var waterDensity = unit.New(1000, unit.KilogramPerMeter3)

// Parameters holds the open water parameters for each cell.
type Parameters struct {
	// ThetaRK [s] is the channel residence time.
	ThetaRK smart.Field

	// SurfaceArea [m2] of each cell. If nil, volumetric streamflow is
	// not calculated.
	SurfaceArea smart.Field
}

// ParametersFrom returns spatially uniform parameters for n cells from
// the openwater table of ps, with the given cell surface areas.
func ParametersFrom(ps smart.ParameterSet, n int, area smart.Field) (Parameters, error) {
	k, err := ps.Get(Name, "theta_rk", unit.Second)
	if err != nil {
		return Parameters{}, err
	}
	return Parameters{ThetaRK: smart.Uniform(n, k), SurfaceArea: area}, nil
}

// OpenWater fulfils the github.com/spatialmodel/smart.OpenWater interface.
type OpenWater struct {
	n       int
	p       Parameters
	channel *smart.Reservoir

	// volume [m3 s-1] is the volumetric streamflow from a flux of
	// 1 kg m-2 s-1 over 1 m2.
	volume float64
}

// New returns an open water stage for n cells. A zero or negative
// residence time is reported as an error.
func New(n int, p Parameters) (*OpenWater, error) {
	if err := smart.CheckLen(n, map[string]smart.Field{"theta_rk": p.ThetaRK}); err != nil {
		return nil, fmt.Errorf("openwater: %w", err)
	}
	if p.SurfaceArea != nil {
		if err := smart.CheckLen(n, map[string]smart.Field{"surface_area": p.SurfaceArea}); err != nil {
			return nil, fmt.Errorf("openwater: %w", err)
		}
		if err := smart.CheckParameter("surface_area", p.SurfaceArea, true); err != nil {
			return nil, fmt.Errorf("openwater: %w", err)
		}
	}
	ch, err := smart.NewReservoir(p.ThetaRK)
	if err != nil {
		return nil, fmt.Errorf("openwater: %w", err)
	}
	v := unit.Div(unit.Mul(unit.New(1, smart.Flux), unit.New(1, unit.Meter2)), waterDensity)
	if err := v.Check(unit.Meter3PerSecond); err != nil {
		return nil, fmt.Errorf("openwater: volumetric streamflow: %v: %w", err, smart.ErrUnits)
	}
	return &OpenWater{n: n, p: p, channel: ch, volume: v.Value()}, nil
}

// Initialise sets the channel storage to zero.
func (o *OpenWater) Initialise() error {
	o.channel.Storage.Zero()
	return nil
}

// Finalise implements smart.Stage.
func (o *OpenWater) Finalise() error { return nil }

// ReportsVolume reports whether the cell surface areas are known, so
// that volumetric streamflow is calculated.
func (o *OpenWater) ReportsVolume() bool { return o.p.SurfaceArea != nil }

// States returns the channel storage [kg m-2] at the end of the most
// recent timestep.
func (o *OpenWater) States() map[string]smart.Field {
	return map[string]smart.Field{RiverChannelStore: o.channel.Storage.Prev}
}

// Run routes the land runoff through the channel for one timestep.
// When the linear outflow would drain more than the channel holds, the
// outflow is capped at MaxDrawdown of the water available.
func (o *OpenWater) Run(sub smart.SubsurfaceExchange, dt float64) (smart.OpenWaterExchange, smart.OpenWaterOutputs, error) {
	if err := smart.CheckLen(o.n, map[string]smart.Field{
		smart.VarSurfaceRunoff:    sub.SurfaceRunoff,
		smart.VarSubsurfaceRunoff: sub.SubsurfaceRunoff,
	}); err != nil {
		return smart.OpenWaterExchange{}, smart.OpenWaterOutputs{}, fmt.Errorf("openwater: %w", err)
	}
	st := o.channel.Storage
	st.Begin()
	outflow := smart.NewField(o.n)
	for i := range outflow {
		inflow := sub.SurfaceRunoff[i] + sub.SubsurfaceRunoff[i]
		prev := st.Prev[i]
		outflow[i] = prev / o.channel.ResidenceTime[i]
		s := prev + (inflow-outflow[i])*dt
		if s < 0 {
			outflow[i] = MaxDrawdown * (inflow + prev/dt)
			s = prev + (inflow-outflow[i])*dt
		}
		if s < 0 {
			s = 0
		}
		st.Cur[i] = s
	}
	st.Swap()

	out := smart.OpenWaterOutputs{Streamflow: outflow}
	if o.p.SurfaceArea != nil {
		out.StreamflowVolume = smart.NewField(o.n)
		for i, q := range outflow {
			out.StreamflowVolume[i] = q * o.p.SurfaceArea[i] * o.volume
		}
	}
	return smart.OpenWaterExchange{WaterLevel: st.Prev.Copy()}, out, nil
}
