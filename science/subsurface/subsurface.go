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

// Package subsurface accounts for soil moisture in a six-layer soil
// column and routes the resulting runoff through five linear reservoirs.
package subsurface

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ctessum/unit"
	"github.com/spatialmodel/smart"
	"gonum.org/v1/gonum/floats"
)

// Name is the name of the parameter table for this stage.
const Name = "subsurface"

// NumLayers is the number of soil layers.
const NumLayers = 6

// Names of the stage states.
const (
	OverlandFlowStore = "overland_flow_store"
	DrainFlowStore    = "drain_flow_store"
	InterFlowStore    = "inter_flow_store"
	ShallowGWStore    = "shallow_groundwater_store"
	DeepGWStore       = "deep_groundwater_store"
)

// SoilLayer returns the name of the state holding the water depth in
// soil layer i, counting from 0 at the top.
func SoilLayer(i int) string { return "soil_layer_" + strconv.Itoa(i+1) }

// PercolationRule decides how much of the remaining excess rain a soil
// layer absorbs during percolation.
type PercolationRule int

const (
	// LiteralPercolation fills a layer with all of the remaining excess
	// when the excess is no larger than the layer's previous depth, and
	// otherwise fills it to capacity. A layer can exceed its capacity
	// when it was more than half full, and an empty layer filled to
	// capacity by a smaller excess leaves a negative excess that the
	// next layer absorbs. The negative depth is carried into later
	// timesteps, and a water-limited step resets it to zero, which
	// adds water to the soil. Only CapacityPercolation conserves water
	// across timesteps.
	LiteralPercolation PercolationRule = iota

	// CapacityPercolation fills a layer with all of the remaining
	// excess when it fits in the space left in the layer, and
	// otherwise fills it to capacity.
	CapacityPercolation
)

// ParsePercolationRule returns the rule called s: "literal" or "capacity".
func ParsePercolationRule(s string) (PercolationRule, error) {
	switch s {
	case "literal", "":
		return LiteralPercolation, nil
	case "capacity":
		return CapacityPercolation, nil
	}
	return 0, fmt.Errorf("subsurface: unknown percolation rule %q: %w", s, smart.ErrInvalidParameter)
}

func (r PercolationRule) String() string {
	if r == CapacityPercolation {
		return "capacity"
	}
	return "literal"
}

// Parameters holds the subsurface parameters for each cell.
type Parameters struct {
	ThetaC smart.Field // [1] evaporation deficit carried to lower layers
	ThetaH smart.Field // [1] overland flow partitioning
	ThetaD smart.Field // [1] drain flow partitioning
	ThetaS smart.Field // [1] soil outflow coefficient
	ThetaZ smart.Field // [kg m-2] effective soil depth

	// Residence times [s] of the surface (overland and drain flow),
	// interflow and groundwater reservoirs.
	ThetaSK smart.Field
	ThetaFK smart.Field
	ThetaGK smart.Field

	Percolation PercolationRule
}

// ParametersFrom returns spatially uniform parameters for n cells from
// the subsurface table of ps.
func ParametersFrom(ps smart.ParameterSet, n int) (Parameters, error) {
	p := Parameters{}
	for _, x := range []struct {
		name string
		dims unit.Dimensions
		dst  *smart.Field
	}{
		{"theta_c", unit.Dimless, &p.ThetaC},
		{"theta_h", unit.Dimless, &p.ThetaH},
		{"theta_d", unit.Dimless, &p.ThetaD},
		{"theta_s", unit.Dimless, &p.ThetaS},
		{"theta_z", smart.Depth, &p.ThetaZ},
		{"theta_sk", unit.Second, &p.ThetaSK},
		{"theta_fk", unit.Second, &p.ThetaFK},
		{"theta_gk", unit.Second, &p.ThetaGK},
	} {
		v, err := ps.Get(Name, x.name, x.dims)
		if err != nil {
			return Parameters{}, err
		}
		*x.dst = smart.Uniform(n, v)
	}
	return p, nil
}

func (p Parameters) fields() map[string]smart.Field {
	return map[string]smart.Field{
		"theta_c": p.ThetaC, "theta_h": p.ThetaH, "theta_d": p.ThetaD,
		"theta_s": p.ThetaS, "theta_z": p.ThetaZ, "theta_sk": p.ThetaSK,
		"theta_fk": p.ThetaFK, "theta_gk": p.ThetaGK,
	}
}

// Subsurface fulfils the github.com/spatialmodel/smart.Subsurface interface.
type Subsurface struct {
	n int
	p Parameters

	layers [NumLayers]*smart.DualField

	overland, drain, inter, shallow, deep *smart.Reservoir
}

// New returns a subsurface for n cells. Zero or negative effective
// depths and residence times are reported as errors.
func New(n int, p Parameters) (*Subsurface, error) {
	if err := smart.CheckLen(n, p.fields()); err != nil {
		return nil, fmt.Errorf("subsurface: %w", err)
	}
	for name, v := range p.fields() {
		positive := name == "theta_z" || name == "theta_sk" || name == "theta_fk" || name == "theta_gk"
		if err := smart.CheckParameter(name, v, positive); err != nil {
			return nil, fmt.Errorf("subsurface: %w", err)
		}
	}
	if p.Percolation != LiteralPercolation && p.Percolation != CapacityPercolation {
		return nil, fmt.Errorf("subsurface: unknown percolation rule %d: %w", p.Percolation, smart.ErrInvalidParameter)
	}
	s := &Subsurface{n: n, p: p}
	for i := range s.layers {
		s.layers[i] = smart.NewDualField(n)
	}
	var err error
	for _, r := range []struct {
		dst **smart.Reservoir
		k   smart.Field
	}{
		{&s.overland, p.ThetaSK},
		{&s.drain, p.ThetaSK},
		{&s.inter, p.ThetaFK},
		{&s.shallow, p.ThetaGK},
		{&s.deep, p.ThetaGK},
	} {
		if *r.dst, err = smart.NewReservoir(r.k); err != nil {
			return nil, fmt.Errorf("subsurface: %w", err)
		}
	}
	return s, nil
}

func (s *Subsurface) reservoirs() map[string]*smart.Reservoir {
	return map[string]*smart.Reservoir{
		OverlandFlowStore: s.overland,
		DrainFlowStore:    s.drain,
		InterFlowStore:    s.inter,
		ShallowGWStore:    s.shallow,
		DeepGWStore:       s.deep,
	}
}

// Initialise sets the soil layers and reservoirs to empty.
func (s *Subsurface) Initialise() error {
	for _, l := range s.layers {
		l.Zero()
	}
	for _, r := range s.reservoirs() {
		r.Storage.Zero()
	}
	return nil
}

// Finalise implements smart.Stage.
func (s *Subsurface) Finalise() error { return nil }

// States returns the soil layer depths and reservoir storages [kg m-2]
// at the end of the most recent timestep. They remain valid until the
// next call to Run.
func (s *Subsurface) States() map[string]smart.Field {
	o := make(map[string]smart.Field, NumLayers+5)
	for i, l := range s.layers {
		o[SoilLayer(i)] = l.Prev
	}
	for name, r := range s.reservoirs() {
		o[name] = r.Storage.Prev
	}
	return o
}

// flows holds the water depths [kg m-2] entering each reservoir.
type flows struct {
	overland, drain, inter, shallow, deep smart.Field
}

func newFlows(n int) flows {
	return flows{
		overland: smart.NewField(n),
		drain:    smart.NewField(n),
		inter:    smart.NewField(n),
		shallow:  smart.NewField(n),
		deep:     smart.NewField(n),
	}
}

// Run updates the soil moisture and runoff reservoirs for one timestep.
// Each cell follows its energy-limited or water-limited pathway
// according to sl.EnergyLimited.
func (s *Subsurface) Run(sl smart.SurfaceLayerExchange, dt float64) (smart.SubsurfaceExchange, error) {
	if err := smart.CheckLen(s.n, map[string]smart.Field{
		smart.VarThroughfall:            sl.Throughfall,
		smart.VarSnowmelt:               sl.Snowmelt,
		smart.VarTranspiration:          sl.Transpiration,
		smart.VarEvaporationSoilSurface: sl.EvaporationSoilSurface,
		smart.VarEvaporationPondedWater: sl.EvaporationPondedWater,
	}); err != nil {
		return smart.SubsurfaceExchange{}, fmt.Errorf("subsurface: %w", err)
	}
	if len(sl.EnergyLimited) != s.n {
		return smart.SubsurfaceExchange{}, fmt.Errorf("subsurface: regime mask has %d cells but the domain has %d: %w",
			len(sl.EnergyLimited), s.n, smart.ErrShape)
	}

	excess := smart.NewField(s.n)
	unmet := smart.NewField(s.n)
	for i := range excess {
		excess[i] = (sl.Throughfall[i] + sl.Snowmelt[i]) * dt
		unmet[i] = (sl.Transpiration[i] + sl.EvaporationSoilSurface[i] + sl.EvaporationPondedWater[i]) * dt
	}

	var prev, energy, water [NumLayers]smart.Field
	for k, l := range s.layers {
		l.Begin()
		prev[k] = l.Prev
		energy[k] = smart.NewField(s.n)
		water[k] = smart.NewField(s.n)
	}
	f := newFlows(s.n)

	smart.Cells(s.n,
		func(i int) { s.energyLimited(i, excess[i], prev, energy, f) },
		func(i int) { s.waterLimited(i, unmet[i], prev, water) },
	)

	mask := sl.EnergyLimited
	for k, l := range s.layers {
		smart.SelectInto(l.Cur, mask, energy[k], water[k])
	}
	f = flows{
		overland: smart.Where(mask, f.overland),
		drain:    smart.Where(mask, f.drain),
		inter:    smart.Where(mask, f.inter),
		shallow:  smart.Where(mask, f.shallow),
		deep:     smart.Where(mask, f.deep),
	}

	for _, r := range s.reservoirs() {
		r.Storage.Begin()
	}
	overlandOut := s.overland.Route(f.overland, dt)
	drainOut := s.drain.Route(f.drain, dt)
	interOut := s.inter.Route(f.inter, dt)
	shallowOut := s.shallow.Route(f.shallow, dt)
	deepOut := s.deep.Route(f.deep, dt)

	surface := overlandOut.Copy()
	floats.Add(surface, drainOut)
	floats.Add(surface, interOut)
	subsurface := shallowOut.Copy()
	floats.Add(subsurface, deepOut)

	stress := smart.NewField(s.n)
	for _, l := range s.layers {
		floats.Add(stress, l.Cur)
	}
	floats.Div(stress, s.p.ThetaZ)

	for _, l := range s.layers {
		l.Swap()
	}
	for _, r := range s.reservoirs() {
		r.Storage.Swap()
	}

	return smart.SubsurfaceExchange{
		SurfaceRunoff:    surface,
		SubsurfaceRunoff: subsurface,
		SoilWaterStress:  stress,
	}, nil
}

// energyLimited calculates the layer depths and reservoir inflows of
// cell i when excess rain [kg m-2] is entering the soil.
func (s *Subsurface) energyLimited(i int, excess float64, prev, cur [NumLayers]smart.Field, f flows) {
	thetaZ := s.p.ThetaZ[i]
	var soilWater float64
	for k := range prev {
		soilWater += prev[k][i]
	}

	// Overland flow scales with how wet the soil was.
	thetaH := s.p.ThetaH[i] * soilWater / thetaZ
	f.overland[i] = thetaH * excess
	excess -= f.overland[i]

	// Percolation, top layer first.
	capacity := thetaZ / NumLayers
	for k := range prev {
		p := prev[k][i]
		var fits bool
		if s.p.Percolation == CapacityPercolation {
			fits = excess <= capacity-p
		} else {
			fits = excess <= p
		}
		if fits {
			cur[k][i] = p + excess
			excess = 0
		} else {
			cur[k][i] = capacity
			excess -= capacity - p
		}
	}

	// Saturation excess.
	f.drain[i] = s.p.ThetaD[i] * excess
	f.inter[i] = (1 - s.p.ThetaD[i]) * excess

	// Leakage from each layer.
	thetaS := s.p.ThetaS[i] * soilWater / thetaZ
	for k := range cur {
		d := cur[k][i]
		if leak := d * math.Pow(thetaS, float64(k+1)); leak < d {
			f.inter[i] += leak
			d -= leak
		}
		if leak := d * thetaS / float64(k+1); leak < d {
			f.shallow[i] += leak
			d -= leak
		}
		if leak := d * math.Pow(thetaS, float64(NumLayers-k)); leak < d {
			f.deep[i] += leak
			d -= leak
		}
		cur[k][i] = d
	}
}

// waterLimited calculates the layer depths of cell i when unmet
// evaporative demand [kg m-2] is drawn from the soil, top layer first.
func (s *Subsurface) waterLimited(i int, unmet float64, prev, cur [NumLayers]smart.Field) {
	for k := range prev {
		p := prev[k][i]
		if unmet <= p {
			cur[k][i] = p - unmet
			unmet = 0
		} else {
			unmet = (unmet - p) * s.p.ThetaC[i]
			cur[k][i] = 0
		}
	}
}
