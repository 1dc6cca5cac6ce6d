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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/smart/science/openwater"
	"github.com/spatialmodel/smart/science/subsurface"
	"github.com/spatialmodel/smart/science/surfacelayer"
	"github.com/spf13/cast"
)

// parameterInfo lists the parameters read from the parameter file.
var parameterInfo = []struct {
	name, stage, units, description string
}{
	{"theta_t", surfacelayer.Name, "1", "precipitation correction factor"},
	{"theta_z", surfacelayer.Name, "kg m-2", "effective soil depth"},
	{"theta_c", subsurface.Name, "1", "evaporation deficit carried to lower soil layers"},
	{"theta_h", subsurface.Name, "1", "overland flow partitioning"},
	{"theta_d", subsurface.Name, "1", "drain flow partitioning"},
	{"theta_s", subsurface.Name, "1", "soil outflow coefficient"},
	{"theta_z", subsurface.Name, "kg m-2", "effective soil depth"},
	{"theta_sk", subsurface.Name, "s", "surface runoff residence time"},
	{"theta_fk", subsurface.Name, "s", "interflow residence time"},
	{"theta_gk", subsurface.Name, "s", "groundwater residence time"},
	{"theta_rk", openwater.Name, "s", "river channel residence time"},
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o, nil
}

// checkInputFile makes sure that the input file is specified and exists,
// and expands any environment variables.
func checkInputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("you need to specify the %s configuration variable", name)
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(f); err != nil {
		return f, fmt.Errorf("smart: the %s file can't be read: %v", name, err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, forcingFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(forcingFile, filepath.Ext(forcingFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

// checkPercolationRule ensures that an acceptable percolation rule
// was specified.
func checkPercolationRule(r string) (subsurface.PercolationRule, error) {
	rule, err := subsurface.ParsePercolationRule(os.ExpandEnv(r))
	if err != nil {
		return rule, fmt.Errorf("the PercolationRule variable needs to be set to either "+
			"literal or capacity, but is currently set to `%s`", r)
	}
	return rule, nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for getStringMapString variable %s: %#v", varName, i))
	}
}
