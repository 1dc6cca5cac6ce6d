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

// A Stage is one of the three parts of the water balance. Initialise
// sets its states to zero, and Finalise releases anything it holds.
// States returns the stage's storages after the most recent timestep.
type Stage interface {
	Initialise() error
	Finalise() error
	States() map[string]Field
}

// SurfaceLayer partitions forcing into throughfall and evaporative demand.
// sub and ow hold the feedback from the previous timestep.
type SurfaceLayer interface {
	Stage
	Run(sub SubsurfaceExchange, ow OpenWaterExchange, in SurfaceLayerInputs, dt float64) (SurfaceLayerExchange, SurfaceLayerOutputs, error)
}

// Subsurface accounts for soil moisture and land runoff.
type Subsurface interface {
	Stage
	Run(sl SurfaceLayerExchange, dt float64) (SubsurfaceExchange, error)
}

// OpenWater routes land runoff through the river channel.
type OpenWater interface {
	Stage
	Run(sub SubsurfaceExchange, dt float64) (OpenWaterExchange, OpenWaterOutputs, error)
}

// A VolumeReporter is an OpenWater that can tell whether it reports
// volumetric streamflow. OpenWater stages that don't implement it are
// assumed to report it.
type VolumeReporter interface {
	ReportsVolume() bool
}
