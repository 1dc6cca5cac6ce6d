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

package smartutil

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/smart"
	"github.com/spatialmodel/smart/internal/hash"
	"github.com/spatialmodel/smart/science/openwater"
	"github.com/spatialmodel/smart/science/subsurface"
	"github.com/spatialmodel/smart/science/surfacelayer"
	"github.com/spf13/cobra"
)

// NewModel creates the three model stages for n cells from the
// parameters in ps. area gives the surface area [m2] of each cell and
// may be nil.
func NewModel(ps smart.ParameterSet, n int, area smart.Field, rule subsurface.PercolationRule) (*smart.Model, error) {
	slp, err := surfacelayer.ParametersFrom(ps, n)
	if err != nil {
		return nil, err
	}
	sl, err := surfacelayer.New(n, slp)
	if err != nil {
		return nil, err
	}
	ssp, err := subsurface.ParametersFrom(ps, n)
	if err != nil {
		return nil, err
	}
	ssp.Percolation = rule
	ss, err := subsurface.New(n, ssp)
	if err != nil {
		return nil, err
	}
	owp, err := openwater.ParametersFrom(ps, n, area)
	if err != nil {
		return nil, err
	}
	ow, err := openwater.New(n, owp)
	if err != nil {
		return nil, err
	}
	return smart.NewModel(n, sl, ss, ow), nil
}

// Run runs the model.
//
// CobraCommand is the cobra.Command instance where Run is called from.
// Log messages and the summary table are written to its output.
//
// LogFile is the path to the desired logfile location and LogLevel the
// minimum severity of the messages written.
//
// ForcingFile is the path to the NetCDF forcing and ParameterFile the
// path to the TOML parameter file.
//
// OutputVariables specifies which variables should be reported and how
// they are calculated from the model variables.
//
// NumSteps is the number of timesteps to run. If < 1, the simulation
// runs until the end of the forcing. RecordPeriod is the number of
// timesteps averaged into each record.
//
// InitialSoilWaterStress is used by the surface layer on the first
// timestep, and rule selects the soil percolation rule.
func Run(CobraCommand *cobra.Command, LogFile, LogLevel, ForcingFile, ParameterFile string,
	OutputVariables map[string]string, NumSteps, RecordPeriod int,
	InitialSoilWaterStress float64, rule subsurface.PercolationRule) ([]*smart.Record, error) {

	startTime := time.Now()

	logfile, err := os.Create(LogFile)
	if err != nil {
		return nil, fmt.Errorf("smart: problem creating log file: %v", err)
	}
	defer logfile.Close()

	logger := logrus.New()
	logger.Out = io.MultiWriter(CobraCommand.OutOrStdout(), logfile)
	logger.Formatter = &logrus.TextFormatter{FullTimestamp: true, DisableColors: true}
	if logger.Level, err = logrus.ParseLevel(LogLevel); err != nil {
		return nil, fmt.Errorf("smart: %v", err)
	}

	cLog := make(chan *smart.SimulationStatus)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for s := range cLog {
			logger.WithFields(logrus.Fields{
				"step":              s.Step,
				"time":              s.Time.Format(time.RFC3339),
				"walltime":          s.Walltime.String(),
				"streamflow":        s.Streamflow,
				"soil_water_stress": s.SoilWaterStress,
				"water_level":       s.WaterLevel,
			}).Debug("timestep complete")
		}
		wg.Done()
	}()
	var logDone sync.Once
	finishLog := func() {
		close(cLog)
		wg.Wait()
	}
	defer logDone.Do(finishLog) // Wait for the logging to finish.

	logger.WithField("file", ForcingFile).Info("reading forcing data")
	forcing, err := readForcing(ForcingFile)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"cells": forcing.Cells(),
		"steps": forcing.Steps(),
		"dt":    forcing.Dt(),
		"start": forcing.Start().Format(time.RFC3339),
	}).Info("loaded forcing data")

	logger.WithField("file", ParameterFile).Info("reading parameters")
	ps, err := readParameters(ParameterFile)
	if err != nil {
		return nil, err
	}
	n := forcing.Cells()
	m, err := NewModel(ps, n, forcing.SurfaceArea, rule)
	if err != nil {
		return nil, err
	}
	m.InitialSoilWaterStress = smart.Uniform(n, InitialSoilWaterStress)
	m.Log = logger
	if rule == subsurface.LiteralPercolation {
		logger.Warn("literal percolation can leave soil layers with negative depths, " +
			"which are reset to zero on water-limited timesteps and so do not conserve water; " +
			"set PercolationRule to capacity for a conservative water balance")
	}

	logger.WithField("inputs", hash.Hash(ps, rule.String(), n, forcing.Steps(), forcing.Dt(),
		forcing.Start().Format(time.RFC3339), forcing.SurfaceArea)).Info("created model stages")

	logger.Info("parsing output variable expressions")
	o, err := smart.NewOutputter(OutputVariables, nil)
	if err != nil {
		return nil, err
	}
	rec, err := smart.NewRecorder(o, RecordPeriod)
	if err != nil {
		return nil, err
	}

	d := &smart.SMART{
		InitFuncs: []smart.DomainManipulator{
			smart.UseForcing(forcing),
			smart.InitialiseStages(m),
			o.CheckOutputVars(),
		},
		RunFuncs: []smart.DomainManipulator{
			smart.StepForcing(),
			smart.RunStages(),
			rec.Record(),
			smart.Log(cLog),
			smart.Advance(NumSteps),
		},
		CleanupFuncs: []smart.DomainManipulator{
			rec.Flush(),
			smart.FinaliseStages(),
		},
	}
	if err = d.Init(); err != nil {
		return nil, fmt.Errorf("smart: problem initializing model: %v", err)
	}
	logger.WithField("percolation", rule.String()).Info("running simulation")
	if err = d.Run(); err != nil {
		return nil, fmt.Errorf("smart: problem running simulation: %v", err)
	}
	if err = d.Cleanup(); err != nil {
		return nil, fmt.Errorf("smart: problem shutting down model: %v", err)
	}

	logDone.Do(finishLog)
	if err = writeSummary(CobraCommand.OutOrStdout(), rec.Records, o.Names(), forcing.SurfaceArea); err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"steps":    d.Step,
		"records":  len(rec.Records),
		"walltime": time.Since(startTime).String(),
	}).Info("simulation complete")
	return rec.Records, nil
}

func readForcing(path string) (*smart.GriddedForcing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("smart: problem loading forcing data: %v", err)
	}
	defer f.Close()
	forcing, err := smart.ReadForcing(f)
	if err != nil {
		return nil, fmt.Errorf("smart: problem loading forcing data: %v", err)
	}
	return forcing, nil
}

func readParameters(path string) (smart.ParameterSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("smart: problem loading parameters: %v", err)
	}
	defer f.Close()
	return smart.ReadParameterSet(f)
}

// writeSummary writes the domain average of each output variable in
// each record to w. The averages are weighted by cell area when it is
// known.
func writeSummary(w io.Writer, records []*smart.Record, names []string, area smart.Field) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprint(tw, "START\tEND\tSTEPS")
	for _, n := range names {
		fmt.Fprintf(tw, "\t%s", n)
	}
	fmt.Fprintln(tw)
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339), r.Steps)
		for _, n := range names {
			fmt.Fprintf(tw, "\t%.4g", r.DomainMean(n, area))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
