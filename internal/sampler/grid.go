/*
Copyright 2024 GramLabs, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sampler

import (
	"math"
	"math/rand"
	"sort"

	"github.com/gramlabs/optimize-study/api"
)

// Grid enumerates the cartesian product of each dimension's discrete grid
// points. Continuous (Uniform/LogUniform) dimensions have no natural finite
// grid, so they are discretized into Resolution equally spaced points
// (equally spaced in log-space for LogUniform); Int/DiscreteUniform/
// Categorical dimensions use their own natural grid. Proposals are
// deterministic in trialIndex: the same index always yields the same
// combination, wrapping around once every combination has been visited.
type Grid struct {
	// Resolution is the number of points used to discretize a continuous
	// dimension. Default 10 if zero.
	Resolution int
}

// NewGrid returns a Grid sampler discretizing continuous dimensions into
// resolution points.
func NewGrid(resolution int) *Grid {
	if resolution <= 0 {
		resolution = 10
	}
	return &Grid{Resolution: resolution}
}

func (g Grid) Next(params api.StaticParams, trialIndex int, _ History, _ *rand.Rand) (api.Assignment, error) {
	names := sortedNames(params)
	axes := make([][]api.Value, len(names))
	for i, name := range names {
		axes[i] = g.axis(params[name])
	}

	total := 1
	for _, axis := range axes {
		total *= len(axis)
	}
	if total == 0 {
		return api.Assignment{}, nil
	}

	idx := trialIndex % total
	out := make(api.Assignment, len(names))
	for i, name := range names {
		axisLen := len(axes[i])
		out[name] = axes[i][idx%axisLen]
		idx /= axisLen
	}
	return out, nil
}

func (g Grid) axis(spec api.ParamSpec) []api.Value {
	res := g.Resolution
	if res <= 0 {
		res = 10
	}
	switch spec.Kind {
	case api.Categorical:
		out := make([]api.Value, len(spec.Choices))
		for i, c := range spec.Choices {
			out[i] = api.CategoricalValue(c)
		}
		return out
	case api.IntParam:
		n := spec.IntHigh - spec.IntLow + 1
		out := make([]api.Value, 0, n)
		for v := spec.IntLow; v <= spec.IntHigh; v++ {
			out = append(out, api.IntValue(v))
		}
		return out
	case api.DiscreteUniform:
		var out []api.Value
		for v := spec.Low; v <= spec.High+1e-9; v += spec.Step {
			out = append(out, api.FloatValue(v))
		}
		return out
	case api.Uniform:
		out := make([]api.Value, res)
		for i := 0; i < res; i++ {
			frac := float64(i) / float64(maxInt(res-1, 1))
			out[i] = api.FloatValue(spec.Low + frac*(spec.High-spec.Low))
		}
		return out
	case api.LogUniform:
		lo, hi := math.Log(spec.Low), math.Log(spec.High)
		out := make([]api.Value, res)
		for i := 0; i < res; i++ {
			frac := float64(i) / float64(maxInt(res-1, 1))
			out[i] = api.FloatValue(math.Exp(lo + frac*(hi-lo)))
		}
		return out
	default:
		return nil
	}
}

func sortedNames(params api.StaticParams) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

var _ Sampler = Grid{}
