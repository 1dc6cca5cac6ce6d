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

// Package smart is a lumped conceptual rainfall-runoff and channel
// routing model. Each grid cell is an independent column with a surface
// layer, a six-layer soil, five linear runoff reservoirs and a river
// channel reservoir, advanced together one fixed timestep at a time.
package smart

import (
	"time"
)

// Version gives the version number.
const Version = "0.1.0"

// SMART holds the current state of a simulation.
type SMART struct {
	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until "Done" is true. Therefore, the simulation will not end until
	// one of the RunFuncs sets "Done" to true.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be called in the given order
	// at the end of the simulation.
	CleanupFuncs []DomainManipulator

	// Model holds the three stages.
	Model *Model

	// Forcing supplies the inputs for each timestep.
	Forcing Forcing

	// Dt is the timestep [s].
	Dt float64

	// Step is the index of the current timestep.
	Step int

	// Time is the start of the current timestep.
	Time time.Time

	// Inputs holds the forcing for the current timestep.
	Inputs SurfaceLayerInputs

	// Result holds the output of the most recent timestep.
	Result *StepResult

	// Done specifies whether the simulation is finished.
	Done bool
}

// DomainManipulator is a function that operates on the simulation.
type DomainManipulator func(d *SMART) error

// Init initializes the simulation by running d.InitFuncs.
func (d *SMART) Init() error {
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running d.RunFuncs until d.Done is true.
func (d *SMART) Run() error {
	for !d.Done {
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup finishes the simulation by running d.CleanupFuncs.
func (d *SMART) Cleanup() error {
	for _, f := range d.CleanupFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}
