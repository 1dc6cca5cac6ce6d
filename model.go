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

	"github.com/sirupsen/logrus"
)

// Model runs the surface layer, subsurface and open water stages in
// sequence and carries the feedback between timesteps.
type Model struct {
	SurfaceLayer SurfaceLayer
	Subsurface   Subsurface
	OpenWater    OpenWater

	// InitialSoilWaterStress is the soil water stress seen by the
	// surface layer on the first timestep. Zero if nil.
	InitialSoilWaterStress Field

	Log logrus.FieldLogger

	n    int
	step int

	// feedback from the previous timestep.
	sub SubsurfaceExchange
	ow  OpenWaterExchange
}

// NewModel returns a model for n cells.
func NewModel(n int, sl SurfaceLayer, ss Subsurface, ow OpenWater) *Model {
	return &Model{
		SurfaceLayer: sl,
		Subsurface:   ss,
		OpenWater:    ow,
		n:            n,
	}
}

// Cells returns the number of grid cells.
func (m *Model) Cells() int { return m.n }

// Initialise sets every stage state to zero and resets the feedback
// fields.
func (m *Model) Initialise() error {
	if m.Log == nil {
		m.Log = logrus.StandardLogger()
	}
	stress := m.InitialSoilWaterStress
	if stress == nil {
		stress = NewField(m.n)
	}
	if err := CheckLen(m.n, map[string]Field{"initial soil water stress": stress}); err != nil {
		return err
	}
	if err := m.SurfaceLayer.Initialise(); err != nil {
		return fmt.Errorf("smart: initialising surface layer: %w", err)
	}
	if err := m.Subsurface.Initialise(); err != nil {
		return fmt.Errorf("smart: initialising subsurface: %w", err)
	}
	if err := m.OpenWater.Initialise(); err != nil {
		return fmt.Errorf("smart: initialising open water: %w", err)
	}
	m.sub = SubsurfaceExchange{
		SurfaceRunoff:    NewField(m.n),
		SubsurfaceRunoff: NewField(m.n),
		SoilWaterStress:  stress.Copy(),
	}
	m.ow = OpenWaterExchange{WaterLevel: NewField(m.n)}
	m.step = 0
	m.Log.WithFields(logrus.Fields{"cells": m.n}).Debug("initialised stages")
	return nil
}

// Step advances the model by one timestep of dt seconds using forcing in.
func (m *Model) Step(in SurfaceLayerInputs, dt float64) (*StepResult, error) {
	if !(dt > 0) {
		return nil, fmt.Errorf("smart: timestep must be positive but is %g: %w", dt, ErrInvalidParameter)
	}
	if err := CheckLen(m.n, map[string]Field{
		VarPrecipitation:               in.Precipitation,
		VarPotentialEvapotranspiration: in.PotentialEvapotranspiration,
	}); err != nil {
		return nil, err
	}
	sl, slOut, err := m.SurfaceLayer.Run(m.sub, m.ow, in, dt)
	if err != nil {
		return nil, fmt.Errorf("smart: step %d: surface layer: %w", m.step, err)
	}
	sub, err := m.Subsurface.Run(sl, dt)
	if err != nil {
		return nil, fmt.Errorf("smart: step %d: subsurface: %w", m.step, err)
	}
	ow, owOut, err := m.OpenWater.Run(sub, dt)
	if err != nil {
		return nil, fmt.Errorf("smart: step %d: open water: %w", m.step, err)
	}
	m.sub, m.ow = sub, ow
	m.step++

	states := make(map[string]Field)
	for _, s := range []Stage{m.SurfaceLayer, m.Subsurface, m.OpenWater} {
		for k, v := range s.States() {
			states[k] = v
		}
	}
	return &StepResult{
		Inputs:          in,
		SurfaceLayer:    sl,
		SurfaceLayerOut: slOut,
		Subsurface:      sub,
		OpenWater:       ow,
		OpenWaterOut:    owOut,
		States:          states,
	}, nil
}

// Finalise finalises every stage.
func (m *Model) Finalise() error {
	for name, s := range map[string]Stage{
		"surface layer": m.SurfaceLayer,
		"subsurface":    m.Subsurface,
		"open water":    m.OpenWater,
	} {
		if err := s.Finalise(); err != nil {
			return fmt.Errorf("smart: finalising %s: %w", name, err)
		}
	}
	if m.Log != nil {
		m.Log.WithFields(logrus.Fields{"steps": m.step}).Debug("finalised stages")
	}
	return nil
}
