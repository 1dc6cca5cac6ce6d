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

// SurfaceLayerInputs holds the meteorological forcing for one timestep.
type SurfaceLayerInputs struct {
	Precipitation               Field `desc:"Precipitation flux" units:"kg m-2 s-1"`
	PotentialEvapotranspiration Field `desc:"Potential water evapotranspiration flux" units:"kg m-2 s-1"`
}

// SurfaceLayerExchange holds the fields the surface layer passes to the
// subsurface within a timestep.
type SurfaceLayerExchange struct {
	Throughfall            Field `desc:"Canopy liquid throughfall and overflow" units:"kg m-2 s-1"`
	Snowmelt               Field `desc:"Snow melt flux" units:"kg m-2 s-1"`
	Transpiration          Field `desc:"Transpiration flux" units:"kg m-2 s-1"`
	EvaporationSoilSurface Field `desc:"Water evaporation flux from soil" units:"kg m-2 s-1"`
	EvaporationPondedWater Field `desc:"Water evaporation flux from ponded water" units:"kg m-2 s-1"`
	EvaporationOpenWater   Field `desc:"Water evaporation flux from open water" units:"kg m-2 s-1"`

	// EnergyLimited is true in cells where corrected rainfall meets
	// potential evapotranspiration, and false in water-limited cells.
	EnergyLimited Mask
}

// SurfaceLayerOutputs holds the surface layer results reported to the host.
type SurfaceLayerOutputs struct {
	ActualEvapotranspiration Field `desc:"Actual water evapotranspiration flux" units:"kg m-2 s-1"`
}

// SubsurfaceExchange holds the fields the subsurface passes to the open
// water within a timestep and back to the surface layer on the next one.
type SubsurfaceExchange struct {
	SurfaceRunoff    Field `desc:"Surface runoff flux" units:"kg m-2 s-1"`
	SubsurfaceRunoff Field `desc:"Subsurface runoff flux" units:"kg m-2 s-1"`
	SoilWaterStress  Field `desc:"Soil water stress" units:"1"`
}

// OpenWaterExchange holds the fields the open water passes back to the
// surface layer on the next timestep.
type OpenWaterExchange struct {
	WaterLevel Field `desc:"River channel storage" units:"kg m-2"`
}

// OpenWaterOutputs holds the open water results reported to the host.
type OpenWaterOutputs struct {
	Streamflow Field `desc:"Outgoing water flux along river channel" units:"kg m-2 s-1"`

	// StreamflowVolume is only set when the cell surface areas are known.
	StreamflowVolume Field `desc:"Outgoing water volume transport along river channel" units:"m3 s-1"`
}

// Names of the variables available from a StepResult.
const (
	VarPrecipitation               = "precipitation"
	VarPotentialEvapotranspiration = "potential_evapotranspiration"
	VarThroughfall                 = "throughfall"
	VarSnowmelt                    = "snowmelt"
	VarTranspiration               = "transpiration"
	VarEvaporationSoilSurface      = "evaporation_soil_surface"
	VarEvaporationPondedWater      = "evaporation_ponded_water"
	VarEvaporationOpenWater        = "evaporation_openwater"
	VarActualEvapotranspiration    = "actual_evapotranspiration"
	VarSurfaceRunoff               = "surface_runoff"
	VarSubsurfaceRunoff            = "subsurface_runoff"
	VarSoilWaterStress             = "soil_water_stress"
	VarWaterLevel                  = "water_level"
	VarStreamflow                  = "outgoing_streamflow"
	VarStreamflowVolume            = "outgoing_water_volume_transport_along_river_channel"
)

// FieldInfo describes a named exchange or output field.
type FieldInfo struct {
	Name, From, To, Units, Description string
}

// ExchangeFields lists the named fields passed between the stages and
// reported to the host, in pipeline order.
var ExchangeFields = []FieldInfo{
	{VarPrecipitation, "host", "surfacelayer", "kg m-2 s-1", "Precipitation flux"},
	{VarPotentialEvapotranspiration, "host", "surfacelayer", "kg m-2 s-1", "Potential water evapotranspiration flux"},
	{VarSoilWaterStress, "subsurface", "surfacelayer", "1", "Soil water stress"},
	{VarWaterLevel, "openwater", "surfacelayer", "kg m-2", "River channel storage"},
	{VarThroughfall, "surfacelayer", "subsurface", "kg m-2 s-1", "Canopy liquid throughfall and overflow"},
	{VarSnowmelt, "surfacelayer", "subsurface", "kg m-2 s-1", "Snow melt flux"},
	{VarTranspiration, "surfacelayer", "subsurface", "kg m-2 s-1", "Transpiration flux"},
	{VarEvaporationSoilSurface, "surfacelayer", "subsurface", "kg m-2 s-1", "Water evaporation flux from soil"},
	{VarEvaporationPondedWater, "surfacelayer", "subsurface", "kg m-2 s-1", "Water evaporation flux from ponded water"},
	{VarEvaporationOpenWater, "surfacelayer", "openwater", "kg m-2 s-1", "Water evaporation flux from open water"},
	{VarActualEvapotranspiration, "surfacelayer", "host", "kg m-2 s-1", "Actual water evapotranspiration flux"},
	{VarSurfaceRunoff, "subsurface", "openwater", "kg m-2 s-1", "Surface runoff flux"},
	{VarSubsurfaceRunoff, "subsurface", "openwater", "kg m-2 s-1", "Subsurface runoff flux"},
	{VarStreamflow, "openwater", "host", "kg m-2 s-1", "Outgoing water flux along river channel"},
	{VarStreamflowVolume, "openwater", "host", "m3 s-1", "Outgoing water volume transport along river channel"},
}

// StepResult holds everything the model produced during one timestep.
type StepResult struct {
	Inputs          SurfaceLayerInputs
	SurfaceLayer    SurfaceLayerExchange
	SurfaceLayerOut SurfaceLayerOutputs
	Subsurface      SubsurfaceExchange
	OpenWater       OpenWaterExchange
	OpenWaterOut    OpenWaterOutputs
	States          map[string]Field
}

// Variables returns the fields in r by name, including the stage
// states. Fields that were not produced are omitted.
func (r *StepResult) Variables() map[string]Field {
	o := map[string]Field{
		VarPrecipitation:               r.Inputs.Precipitation,
		VarPotentialEvapotranspiration: r.Inputs.PotentialEvapotranspiration,
		VarThroughfall:                 r.SurfaceLayer.Throughfall,
		VarSnowmelt:                    r.SurfaceLayer.Snowmelt,
		VarTranspiration:               r.SurfaceLayer.Transpiration,
		VarEvaporationSoilSurface:      r.SurfaceLayer.EvaporationSoilSurface,
		VarEvaporationPondedWater:      r.SurfaceLayer.EvaporationPondedWater,
		VarEvaporationOpenWater:        r.SurfaceLayer.EvaporationOpenWater,
		VarActualEvapotranspiration:    r.SurfaceLayerOut.ActualEvapotranspiration,
		VarSurfaceRunoff:               r.Subsurface.SurfaceRunoff,
		VarSubsurfaceRunoff:            r.Subsurface.SubsurfaceRunoff,
		VarSoilWaterStress:             r.Subsurface.SoilWaterStress,
		VarWaterLevel:                  r.OpenWater.WaterLevel,
		VarStreamflow:                  r.OpenWaterOut.Streamflow,
		VarStreamflowVolume:            r.OpenWaterOut.StreamflowVolume,
	}
	for k, v := range r.States {
		o[k] = v
	}
	for k, v := range o {
		if v == nil {
			delete(o, k)
		}
	}
	return o
}
