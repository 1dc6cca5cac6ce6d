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
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/kr/pretty"
)

func TestOutputter(t *testing.T) {
	o, err := NewOutputter(map[string]string{
		"Runoff":      "surface_runoff + subsurface_runoff",
		"RunoffRatio": "Runoff / max(precipitation, 0.000000000001)",
		"Exp":         "exp(log(precipitation))",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	wantVars := []string{"precipitation", "subsurface_runoff", "surface_runoff"}
	if !reflect.DeepEqual(o.ModelVariables(), wantVars) {
		t.Errorf("model variables: %v != %v", o.ModelVariables(), wantVars)
	}
	if want := []string{"Exp", "Runoff", "RunoffRatio"}; !reflect.DeepEqual(o.Names(), want) {
		t.Errorf("names: %v != %v", o.Names(), want)
	}

	out, err := o.Evaluate(map[string]Field{
		VarPrecipitation:    {2, 4},
		VarSurfaceRunoff:    {0.5, 1},
		VarSubsurfaceRunoff: {0.5, 2},
		VarSnowmelt:         {0, 0},
	}, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]Field{
		"Runoff":      {1, 3},
		"RunoffRatio": {0.5, 0.75},
		"Exp":         {2, 4},
	}
	for name, w := range want {
		for i := range w {
			if different(out[name][i], w[i], testTolerance) {
				t.Errorf("%s: %v != %v", name, out[name], w)
				break
			}
		}
	}
	if len(out) != len(want) {
		t.Error(pretty.Diff(out, want))
	}

	if _, err = o.Evaluate(map[string]Field{VarPrecipitation: {1, 2}}, 2); err == nil {
		t.Error("missing variable accepted")
	}
	if _, err = o.Evaluate(map[string]Field{
		VarPrecipitation:    {1, 2},
		VarSurfaceRunoff:    {1},
		VarSubsurfaceRunoff: {1, 2},
	}, 2); err == nil {
		t.Error("short variable accepted")
	}
}

func TestOutputterCustomFunction(t *testing.T) {
	o, err := NewOutputter(map[string]string{"x": "sqrt(precipitation)"},
		map[string]govaluate.ExpressionFunction{"sqrt": oneArg("sqrt", math.Sqrt)})
	if err != nil {
		t.Fatal(err)
	}
	out, err := o.Evaluate(map[string]Field{VarPrecipitation: {9}}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if out["x"][0] != 3 {
		t.Errorf("sqrt: %g", out["x"][0])
	}
}

func TestOutputterErrors(t *testing.T) {
	if _, err := NewOutputter(nil, nil); err == nil {
		t.Error("no output variables accepted")
	}
	if _, err := NewOutputter(map[string]string{"A": "B + 1", "B": "A * 2"}, nil); err == nil {
		t.Error("circular definition accepted")
	}
	if _, err := NewOutputter(map[string]string{"A": "precipitation +"}, nil); err == nil {
		t.Error("malformed expression accepted")
	}
}

func TestDomainMean(t *testing.T) {
	r := &Record{Values: map[string]Field{"x": {1, 3}}}
	if m := r.DomainMean("x", nil); m != 2 {
		t.Errorf("unweighted: %g", m)
	}
	if m := r.DomainMean("x", Field{1, 3}); different(m, 2.5, testTolerance) {
		t.Errorf("weighted: %g", m)
	}
	if m := r.DomainMean("y", nil); !math.IsNaN(m) {
		t.Errorf("missing variable: %g", m)
	}
}

func TestRecorder(t *testing.T) {
	o, err := NewOutputter(map[string]string{"P": "precipitation * 2"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := NewRecorder(o, 2)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2007, time.January, 1, 0, 0, 0, 0, time.UTC)
	d := &SMART{
		Model: NewModel(2, nil, nil, nil),
		Dt:    3600,
		Time:  start,
	}
	record := rec.Record()
	for _, p := range []float64{1, 3, 5} {
		d.Result = &StepResult{Inputs: SurfaceLayerInputs{Precipitation: Field{p, 2 * p}}}
		if err := record(d); err != nil {
			t.Fatal(err)
		}
		d.Time = d.Time.Add(time.Hour)
	}
	if len(rec.Records) != 1 {
		t.Fatalf("%d records before flush", len(rec.Records))
	}
	if err := rec.Flush()(d); err != nil {
		t.Fatal(err)
	}
	if len(rec.Records) != 2 {
		t.Fatalf("%d records after flush", len(rec.Records))
	}

	want := []*Record{
		{
			Start:  start,
			End:    start.Add(2 * time.Hour),
			Steps:  2,
			Values: map[string]Field{"P": {4, 8}},
		},
		{
			Start:  start.Add(2 * time.Hour),
			End:    start.Add(3 * time.Hour),
			Steps:  1,
			Values: map[string]Field{"P": {10, 20}},
		},
	}
	if diff := pretty.Diff(rec.Records, want); len(diff) != 0 {
		t.Error(diff)
	}

	if _, err := NewRecorder(o, 0); err == nil {
		t.Error("zero period accepted")
	}
}
