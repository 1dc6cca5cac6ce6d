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
	"sort"
	"time"

	"github.com/Knetic/govaluate"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Outputter is a holder for output parameters.
//
// outputVariables maps the names of the variables for which data
// should be returned to expressions that define how the
// requested data should be calculated. These expressions can use the
// model variables listed by (*Model).VariableNames, other output
// variables, and functions.
//
// modelVariables is automatically generated based on the model variables that
// are required to calculate the requested output variables.
type Outputter struct {
	outputVariables map[string]string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction

	// order lists the output variables so that each comes after the
	// output variables it depends on.
	order       []string
	expressions map[string]*govaluate.EvaluableExpression
}

func oneArg(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("smart: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		return f(arg[0].(float64)), nil
	}
}

func twoArg(name string, f func(float64, float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 2 {
			return nil, fmt.Errorf("smart: got %d arguments for function '%s', but needs 2", len(arg), name)
		}
		return f(arg[0].(float64), arg[1].(float64)), nil
	}
}

// NewOutputter initializes a new Outputter holder and adds a set of default
// output functions. Default functions include:
//
// 'exp(x)' which applies the exponetional function e^x.
//
// 'log(x)' which applies the natural logarithm.
//
// 'min(x, y)' and 'max(x, y)'.
//
// Expressions are evaluated separately for each grid cell.
func NewOutputter(outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": oneArg("exp", math.Exp),
		"log": oneArg("log", math.Log),
		"min": twoArg("min", math.Min),
		"max": twoArg("max", math.Max),
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := &Outputter{
		outputVariables: outputVariables,
		outputFunctions: defaultOutputFuncs,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
	}
	if len(outputVariables) == 0 {
		return nil, fmt.Errorf("smart: no output variables requested")
	}
	deps := make(map[string][]string)
	var modelVars []string
	for name, expr := range outputVariables {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("smart: output variable %s: %v", name, err)
		}
		o.expressions[name] = e
		for _, v := range removeDuplicates(e.Vars()) {
			if _, ok := outputVariables[v]; ok && v != name {
				deps[name] = append(deps[name], v)
			} else {
				modelVars = append(modelVars, v)
			}
		}
	}
	o.modelVariables = removeDuplicates(modelVars)
	sort.Strings(o.modelVariables)

	var err error
	if o.order, err = dependencyOrder(deps, outputVariables); err != nil {
		return nil, err
	}
	return o, nil
}

// dependencyOrder sorts the output variable names so that every
// variable comes after the variables its expression uses.
func dependencyOrder(deps map[string][]string, vars map[string]string) ([]string, error) {
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int)
	var order []string
	var visit func(n string) error
	visit = func(n string) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("smart: output variable %s is defined in terms of itself", n)
		case visited:
			return nil
		}
		state[n] = visiting
		for _, d := range deps[n] {
			if err := visit(d); err != nil {
				return err
			}
		}
		state[n] = visited
		order = append(order, n)
		return nil
	}
	for _, n := range names {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// Names returns the sorted output variable names.
func (o *Outputter) Names() []string {
	names := make([]string, 0, len(o.outputVariables))
	for n := range o.outputVariables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ModelVariables returns the model variables the outputs depend on.
func (o *Outputter) ModelVariables() []string { return o.modelVariables }

// CheckOutputVars ensures the output variables can be calculated from
// the variables the model produces. It must come after InitialiseStages.
func (o *Outputter) CheckOutputVars() DomainManipulator {
	return func(d *SMART) error {
		avail := make(map[string]struct{})
		for _, n := range d.Model.VariableNames() {
			avail[n] = struct{}{}
		}
		for _, v := range o.modelVariables {
			if _, ok := avail[v]; !ok {
				return fmt.Errorf("smart: undefined variable name '%s'", v)
			}
		}
		return nil
	}
}

// Evaluate calculates the output variables in each of n cells from
// the given model variables.
func (o *Outputter) Evaluate(vars map[string]Field, n int) (map[string]Field, error) {
	for _, v := range o.modelVariables {
		f, ok := vars[v]
		if !ok {
			return nil, fmt.Errorf("smart: variable '%s' is not available", v)
		}
		if len(f) != n {
			return nil, fmt.Errorf("smart: variable '%s' has %d cells but needs %d: %w", v, len(f), n, ErrShape)
		}
	}
	out := make(map[string]Field, len(o.order))
	for _, name := range o.order {
		out[name] = NewField(n)
	}
	params := make(map[string]interface{}, len(o.modelVariables)+len(o.order))
	for i := 0; i < n; i++ {
		for _, v := range o.modelVariables {
			params[v] = vars[v][i]
		}
		for _, name := range o.order {
			r, err := o.expressions[name].Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("smart: evaluating output variable %s: %v", name, err)
			}
			val, ok := r.(float64)
			if !ok {
				return nil, fmt.Errorf("smart: output variable %s evaluates to %T, not a number", name, r)
			}
			out[name][i] = val
			params[name] = val
		}
	}
	return out, nil
}

// VariableNames returns the names of the variables produced by each
// timestep, including the stage states. Volumetric streamflow is left
// out when the open water stage can't calculate it.
func (m *Model) VariableNames() []string {
	volume := true
	if v, ok := m.OpenWater.(VolumeReporter); ok {
		volume = v.ReportsVolume()
	}
	var names []string
	for _, f := range ExchangeFields {
		if f.Name == VarStreamflowVolume && !volume {
			continue
		}
		names = append(names, f.Name)
	}
	for _, s := range []Stage{m.SurfaceLayer, m.Subsurface, m.OpenWater} {
		for n := range s.States() {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Record holds output variables averaged over a period of timesteps.
type Record struct {
	// Start and End bound the period covered.
	Start, End time.Time

	// Steps is the number of timesteps averaged.
	Steps int

	// Values holds the mean of each output variable in each cell.
	Values map[string]Field
}

// DomainMean returns the average of output variable name over all
// cells, weighted by weights if it is not nil.
func (r *Record) DomainMean(name string, weights Field) float64 {
	v, ok := r.Values[name]
	if !ok || len(v) == 0 {
		return math.NaN()
	}
	if weights != nil && len(weights) != len(v) {
		return math.NaN()
	}
	return stat.Mean(v, weights)
}

// Recorder averages the outputs of an Outputter over fixed periods of
// timesteps, such as daily means from hourly steps.
type Recorder struct {
	Outputter *Outputter

	// Period is the number of timesteps in each record.
	Period int

	// Records holds the completed records.
	Records []*Record

	sums  map[string]Field
	count int
	start time.Time
}

// NewRecorder returns a Recorder that averages the outputs of o over
// period timesteps.
func NewRecorder(o *Outputter, period int) (*Recorder, error) {
	if period < 1 {
		return nil, fmt.Errorf("smart: record period must be at least 1 but is %d: %w", period, ErrInvalidParameter)
	}
	return &Recorder{Outputter: o, Period: period}, nil
}

// Record adds the result of the current timestep to the record being
// accumulated and completes the record once it covers Period
// timesteps. It must come after RunStages and before Advance.
func (r *Recorder) Record() DomainManipulator {
	return func(d *SMART) error {
		out, err := r.Outputter.Evaluate(d.Result.Variables(), d.Model.Cells())
		if err != nil {
			return err
		}
		if r.count == 0 {
			r.start = d.Time
			r.sums = make(map[string]Field, len(out))
			for name, v := range out {
				r.sums[name] = v
			}
		} else {
			for name, v := range out {
				floats.Add(r.sums[name], v)
			}
		}
		r.count++
		if r.count == r.Period {
			r.complete(d)
		}
		return nil
	}
}

// Flush completes any partially accumulated record.
func (r *Recorder) Flush() DomainManipulator {
	return func(d *SMART) error {
		if r.count > 0 {
			r.complete(d)
		}
		return nil
	}
}

func (r *Recorder) complete(d *SMART) {
	rec := &Record{
		Start:  r.start,
		End:    r.start.Add(time.Duration(float64(r.count) * d.Dt * float64(time.Second))),
		Steps:  r.count,
		Values: r.sums,
	}
	for _, v := range rec.Values {
		floats.Scale(1/float64(r.count), v)
	}
	r.Records = append(r.Records, rec)
	r.sums = nil
	r.count = 0
}
