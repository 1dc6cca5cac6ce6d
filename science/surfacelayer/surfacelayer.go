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

// Package surfacelayer partitions precipitation and potential
// evapotranspiration into throughfall and the evaporative demand placed
// on the soil.
package surfacelayer

import (
	"fmt"
	"math"

	"github.com/ctessum/unit"
	"github.com/spatialmodel/smart"
)

// Name is the name of the parameter table for this stage.
const Name = "surfacelayer"

// Parameters holds the surface layer parameters for each cell.
type Parameters struct {
	// ThetaT [1] corrects precipitation for gauge undercatch.
	ThetaT smart.Field

	// ThetaZ [kg m-2] is the effective soil depth.
	ThetaZ smart.Field
}

// ParametersFrom returns spatially uniform parameters for n cells from
// the surfacelayer table of ps.
func ParametersFrom(ps smart.ParameterSet, n int) (Parameters, error) {
	t, err := ps.Get(Name, "theta_t", unit.Dimless)
	if err != nil {
		return Parameters{}, err
	}
	z, err := ps.Get(Name, "theta_z", smart.Depth)
	if err != nil {
		return Parameters{}, err
	}
	return Parameters{ThetaT: smart.Uniform(n, t), ThetaZ: smart.Uniform(n, z)}, nil
}

// SurfaceLayer fulfils the github.com/spatialmodel/smart.SurfaceLayer
// interface. It holds no state between timesteps.
type SurfaceLayer struct {
	n int
	p Parameters
}

// New returns a surface layer for n cells.
func New(n int, p Parameters) (*SurfaceLayer, error) {
	if err := smart.CheckLen(n, map[string]smart.Field{"theta_t": p.ThetaT, "theta_z": p.ThetaZ}); err != nil {
		return nil, fmt.Errorf("surfacelayer: %w", err)
	}
	if err := smart.CheckParameter("theta_t", p.ThetaT, false); err != nil {
		return nil, fmt.Errorf("surfacelayer: %w", err)
	}
	if err := smart.CheckParameter("theta_z", p.ThetaZ, true); err != nil {
		return nil, fmt.Errorf("surfacelayer: %w", err)
	}
	return &SurfaceLayer{n: n, p: p}, nil
}

// Initialise implements smart.Stage.
func (s *SurfaceLayer) Initialise() error { return nil }

// Finalise implements smart.Stage.
func (s *SurfaceLayer) Finalise() error { return nil }

// States implements smart.Stage.
func (s *SurfaceLayer) States() map[string]smart.Field { return nil }

// Run partitions the forcing in each cell.
// Where corrected rainfall meets the potential evapotranspiration the
// cell is energy-limited: the surplus becomes throughfall and
// evapotranspiration proceeds at the potential rate. Elsewhere the cell
// is water-limited: the deficit is met from soil moisture as far as
// the soil water stress allows, and that contribution is passed to the
// subsurface as soil evaporation. ow.WaterLevel is accepted but does
// not affect the result.
func (s *SurfaceLayer) Run(sub smart.SubsurfaceExchange, ow smart.OpenWaterExchange, in smart.SurfaceLayerInputs, dt float64) (smart.SurfaceLayerExchange, smart.SurfaceLayerOutputs, error) {
	if err := smart.CheckLen(s.n, map[string]smart.Field{
		smart.VarPrecipitation:               in.Precipitation,
		smart.VarPotentialEvapotranspiration: in.PotentialEvapotranspiration,
		smart.VarSoilWaterStress:             sub.SoilWaterStress,
		smart.VarWaterLevel:                  ow.WaterLevel,
	}); err != nil {
		return smart.SurfaceLayerExchange{}, smart.SurfaceLayerOutputs{}, fmt.Errorf("surfacelayer: %w", err)
	}

	pet := in.PotentialEvapotranspiration
	balance := smart.NewField(s.n)
	deficit := smart.NewField(s.n)
	contribution := smart.NewField(s.n)
	energyLimited := make(smart.Mask, s.n)
	for i := range balance {
		balance[i] = in.Precipitation[i]*s.p.ThetaT[i] - pet[i]
		energyLimited[i] = balance[i] >= 0

		// water-limited candidate
		deficit[i] = -balance[i]
		available := sub.SoilWaterStress[i] * s.p.ThetaZ[i] / dt
		contribution[i] = math.Max(math.Min(available, deficit[i]), 0)
	}
	waterLimited := energyLimited.Not()

	met := smart.NewField(s.n)
	for i := range met {
		met[i] = pet[i] - (deficit[i] - contribution[i])
	}

	ex := smart.SurfaceLayerExchange{
		Throughfall:            smart.Where(energyLimited, balance),
		Snowmelt:               smart.NewField(s.n),
		Transpiration:          smart.NewField(s.n),
		EvaporationSoilSurface: smart.Where(waterLimited, contribution),
		EvaporationPondedWater: smart.NewField(s.n),
		EvaporationOpenWater:   smart.NewField(s.n),
		EnergyLimited:          energyLimited,
	}
	out := smart.SurfaceLayerOutputs{
		ActualEvapotranspiration: smart.Select(energyLimited, pet.Copy(), met),
	}
	return ex, out, nil
}
