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
	"time"
)

// UseForcing sets f as the source of forcing data and takes the
// timestep and start time from it.
func UseForcing(f Forcing) DomainManipulator {
	return func(d *SMART) error {
		if f.Steps() == 0 {
			return fmt.Errorf("smart: forcing has no timesteps: %w", ErrForcing)
		}
		if !(f.Dt() > 0) {
			return fmt.Errorf("smart: forcing timestep must be positive but is %g: %w", f.Dt(), ErrForcing)
		}
		d.Forcing = f
		d.Dt = f.Dt()
		d.Time = f.Start()
		d.Step = 0
		return nil
	}
}

// InitialiseStages sets m as the simulation model and initialises its
// stages. It must come after UseForcing.
func InitialiseStages(m *Model) DomainManipulator {
	return func(d *SMART) error {
		if d.Forcing != nil && d.Forcing.Cells() != m.Cells() {
			return fmt.Errorf("smart: forcing has %d cells but the model has %d: %w",
				d.Forcing.Cells(), m.Cells(), ErrShape)
		}
		d.Model = m
		return m.Initialise()
	}
}

// StepForcing loads the forcing for the current timestep.
func StepForcing() DomainManipulator {
	return func(d *SMART) error {
		in, err := d.Forcing.At(d.Step)
		if err != nil {
			return err
		}
		d.Inputs = in
		return nil
	}
}

// RunStages advances the model by one timestep.
func RunStages() DomainManipulator {
	return func(d *SMART) error {
		r, err := d.Model.Step(d.Inputs, d.Dt)
		if err != nil {
			return err
		}
		d.Result = r
		return nil
	}
}

// Advance moves the simulation to the next timestep and sets the Done
// flag once the forcing is exhausted. If numSteps > 0, the simulation
// is also finished after that number of timesteps.
func Advance(numSteps int) DomainManipulator {
	return func(d *SMART) error {
		d.Step++
		d.Time = d.Time.Add(time.Duration(d.Dt * float64(time.Second)))
		if d.Step >= d.Forcing.Steps() || (numSteps > 0 && d.Step >= numSteps) {
			d.Done = true
		}
		return nil
	}
}

// FinaliseStages finalises the model stages.
func FinaliseStages() DomainManipulator {
	return func(d *SMART) error {
		if d.Model == nil {
			return nil
		}
		return d.Model.Finalise()
	}
}

// SimulationStatus holds information about the progress of a simulation.
type SimulationStatus struct {
	Step         int
	Time         time.Time
	Walltime     time.Duration
	StepWalltime time.Duration

	// Domain averages after the timestep.
	Streamflow      float64 // [kg m-2 s-1]
	SoilWaterStress float64 // [1]
	WaterLevel      float64 // [kg m-2]
}

// Log sends simulation status messages to c.
func Log(c chan *SimulationStatus) DomainManipulator {
	startTime := time.Now()
	stepTime := time.Now()

	return func(d *SMART) error {
		s := &SimulationStatus{
			Step:         d.Step,
			Time:         d.Time,
			Walltime:     time.Since(startTime),
			StepWalltime: time.Since(stepTime),
		}
		if r := d.Result; r != nil {
			s.Streamflow = r.OpenWaterOut.Streamflow.Mean()
			s.SoilWaterStress = r.Subsurface.SoilWaterStress.Mean()
			s.WaterLevel = r.OpenWater.WaterLevel.Mean()
		}
		c <- s
		stepTime = time.Now()
		return nil
	}
}
